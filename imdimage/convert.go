// This file implements the IMD<->DSK conversions: IMD's sparse,
// track-record archive format against DSK's flat, fixed-geometry raw dump.

package imdimage

import (
	"bufio"
	"io"
	"reflect"

	"github.com/dsoprea/go-logging"
)

// dskTracks, dskSectorsPerTrack and dskSectorSize mirror DefaultGeometry,
// the geometry of the Codec that the package-level ImageToDisk/DiskToImage
// functions below use. A caller that needs a
// different fixed geometry -- for example Geometry{77, 32, 128}, to
// round-trip safely against a sector store built with a different
// sectors-per-track count -- constructs a Codec directly instead.
var (
	dskTracks          = DefaultGeometry.Tracks
	dskSectorsPerTrack = DefaultGeometry.SectorsPerTrack
	dskSectorSize      = DefaultGeometry.SectorSize
)

// Codec performs IMD<->DSK conversions against a specific Geometry. The
// package-level ImageToDisk and DiskToImage functions are shorthand for
// NewCodec(DefaultGeometry).
type Codec struct {
	geometry Geometry
}

// NewCodec returns a Codec bound to geometry.
func NewCodec(geometry Geometry) *Codec {
	return &Codec{geometry: geometry}
}

// ImageToDisk renders a decoded .IMD image as a flat DSK byte stream,
// grouping sectors into a grid by cylinder and sector-map position
// (1-based sector IDs map directly to grid column) sized by c's geometry.
// Tracks with cylinder >= geometry.Tracks are skipped. Trailing tracks with
// no valid sector at all are omitted entirely, which is why a converted
// image can come out shorter than a full fixed-geometry dump -- this is
// the "truncated DSK" the design documentation anticipates for images
// whose source media never used every track.
func (c *Codec) ImageToDisk(img *Image, w io.Writer) (err error) {
	defer func() {
		if errRaw := recover(); errRaw != nil {
			var ok bool
			if err, ok = errRaw.(error); ok == true {
				err = log.Wrap(err)
			} else {
				err = log.Errorf("error not an error: [%s] [%v]", reflect.TypeOf(errRaw).Name(), errRaw)
			}
		}
	}()

	tracks := c.geometry.Tracks
	sectorsPerTrack := c.geometry.SectorsPerTrack
	sectorSize := c.geometry.SectorSize

	grid := make([][][]byte, tracks)
	trackHasData := make([]bool, tracks)
	for t := range grid {
		grid[t] = make([][]byte, sectorsPerTrack)
		for s := range grid[t] {
			grid[t][s] = make([]byte, sectorSize)
		}
	}

	for _, t := range img.Tracks {
		if t.Cylinder < 0 || t.Cylinder >= tracks {
			continue
		}

		for col := 0; col < len(t.Sectors) && col < sectorsPerTrack; col++ {
			if t.Valid[col] == false {
				continue
			}

			copy(grid[t.Cylinder][col], t.Sectors[col])
			trackHasData[t.Cylinder] = true
		}
	}

	bw := bufio.NewWriter(w)

	highestTrack := -1
	for t := 0; t < tracks; t++ {
		if trackHasData[t] == true {
			highestTrack = t
		}
	}

	for t := 0; t <= highestTrack; t++ {
		for s := 0; s < sectorsPerTrack; s++ {
			_, err = bw.Write(grid[t][s])
			log.PanicIf(err)
		}
	}

	err = bw.Flush()
	log.PanicIf(err)

	return nil
}

// ImageToDisk is shorthand for NewCodec(DefaultGeometry).ImageToDisk.
func ImageToDisk(img *Image, w io.Writer) error {
	return NewCodec(DefaultGeometry).ImageToDisk(img, w)
}

// DiskToImage renders a flat DSK byte stream as an .IMD image: it finds
// the highest-indexed track containing any nonzero byte and emits track
// records only up to that point, skipping entirely-zero intermediate
// tracks rather than emitting a wasted all-zero record for each. Every
// emitted track holds a full row of sectors sized by c's geometry, all
// marked valid; the per-sector wire encoding is chosen later by Encode.
func (c *Codec) DiskToImage(r io.Reader, comment string) (img *Image, err error) {
	defer func() {
		if errRaw := recover(); errRaw != nil {
			var ok bool
			if err, ok = errRaw.(error); ok == true {
				err = log.Wrap(err)
			} else {
				err = log.Errorf("error not an error: [%s] [%v]", reflect.TypeOf(errRaw).Name(), errRaw)
			}
		}
	}()

	raw, err := io.ReadAll(r)
	log.PanicIf(err)

	sectorsPerTrack := c.geometry.SectorsPerTrack
	sectorSize := c.geometry.SectorSize
	trackBytes := sectorsPerTrack * sectorSize

	highestTrack := -1
	for t := 0; t*trackBytes < len(raw); t++ {
		start := t * trackBytes
		end := start + trackBytes
		if end > len(raw) {
			end = len(raw)
		}

		if anyNonzero(raw[start:end]) == true {
			highestTrack = t
		}
	}

	img = &Image{Comment: comment}

	for t := 0; t <= highestTrack; t++ {
		start := t * trackBytes
		end := start + trackBytes
		if end > len(raw) {
			end = len(raw)
		}

		chunk := make([]byte, trackBytes)
		copy(chunk, raw[start:end])

		if anyNonzero(chunk) == false {
			continue
		}

		track := Track{
			Cylinder: t,
			Head:     0,
			Sectors:  make([][]byte, sectorsPerTrack),
			Valid:    make([]bool, sectorsPerTrack),
		}

		for s := 0; s < sectorsPerTrack; s++ {
			sStart := s * sectorSize
			sEnd := sStart + sectorSize
			sector := make([]byte, sectorSize)
			copy(sector, chunk[sStart:sEnd])
			track.Sectors[s] = sector
			track.Valid[s] = true
		}

		img.Tracks = append(img.Tracks, track)
	}

	return img, nil
}

// DiskToImage is shorthand for NewCodec(DefaultGeometry).DiskToImage.
func DiskToImage(r io.Reader, comment string) (*Image, error) {
	return NewCodec(DefaultGeometry).DiskToImage(r, comment)
}

// anyNonzero reports whether buf contains at least one nonzero byte.
func anyNonzero(buf []byte) bool {
	for _, b := range buf {
		if b != 0 {
			return true
		}
	}
	return false
}

// Encode writes an Image back out in .IMD wire format: the comment
// terminated by 0x1A, then one track record per Track. Each sector is
// written as type 0 if it is not marked valid, with the type-2 compressed
// encoding if all its bytes share one value, and as type-1 raw bytes
// otherwise.
func Encode(img *Image, w io.Writer) (err error) {
	defer func() {
		if errRaw := recover(); errRaw != nil {
			var ok bool
			if err, ok = errRaw.(error); ok == true {
				err = log.Wrap(err)
			} else {
				err = log.Errorf("error not an error: [%s] [%v]", reflect.TypeOf(errRaw).Name(), errRaw)
			}
		}
	}()

	bw := bufio.NewWriter(w)

	_, err = bw.WriteString(img.Comment)
	log.PanicIf(err)

	err = bw.WriteByte(0x1A)
	log.PanicIf(err)

	for _, t := range img.Tracks {
		sectorCount := len(t.Sectors)

		header := []byte{0, byte(t.Cylinder), byte(t.Head), byte(sectorCount), 0}
		_, err = bw.Write(header)
		log.PanicIf(err)

		sectorMap := make([]byte, sectorCount)
		for i := range sectorMap {
			sectorMap[i] = byte(i + 1)
		}
		_, err = bw.Write(sectorMap)
		log.PanicIf(err)

		for i, sector := range t.Sectors {
			if t.Valid[i] == false {
				err = bw.WriteByte(imdSectorUnavailable)
				log.PanicIf(err)
				continue
			}

			fill, uniform := uniformFill(sector)
			if uniform == true {
				err = bw.WriteByte(imdSectorCompressed)
				log.PanicIf(err)
				err = bw.WriteByte(fill)
				log.PanicIf(err)
				continue
			}

			err = bw.WriteByte(imdSectorNormal)
			log.PanicIf(err)
			_, err = bw.Write(sector)
			log.PanicIf(err)
		}
	}

	err = bw.Flush()
	log.PanicIf(err)

	return nil
}

// uniformFill reports whether every byte of sector is identical.
func uniformFill(sector []byte) (fill byte, uniform bool) {
	if len(sector) == 0 {
		return 0, false
	}

	fill = sector[0]
	for _, b := range sector[1:] {
		if b != fill {
			return 0, false
		}
	}

	return fill, true
}
