package imdimage

import (
	"bytes"
	"testing"

	"github.com/dsoprea/go-logging"
)

func buildTestImd(t *testing.T) []byte {
	var buf bytes.Buffer

	buf.WriteString("IMD 1.18: test image\r\n")
	buf.WriteByte(0x1A)

	// Track 0, head 0, 2 sectors, 128-byte sectors (size code 0).
	buf.Write([]byte{0, 0, 0, 2, 0})
	buf.Write([]byte{1, 2}) // sector numbering map

	// Sector 1: type 1, raw 128 bytes.
	buf.WriteByte(1)
	buf.Write(bytes.Repeat([]byte{0x41}, 128))

	// Sector 2: type 2, compressed fill 0x00.
	buf.WriteByte(2)
	buf.WriteByte(0x00)

	return buf.Bytes()
}

func TestDecode_BasicTrack(t *testing.T) {
	defer func() {
		if state := recover(); state != nil {
			log.PrintError(state.(error))
			t.Fatalf("Test failed.")
		}
	}()

	data := buildTestImd(t)

	img, err := Decode(bytes.NewReader(data))
	log.PanicIf(err)

	if len(img.Tracks) != 1 {
		t.Fatalf("expected 1 track, got (%d)", len(img.Tracks))
	}

	track := img.Tracks[0]
	if len(track.Sectors) != 2 {
		t.Fatalf("expected 2 sectors, got (%d)", len(track.Sectors))
	}

	if track.Valid[0] != true || track.Valid[1] != true {
		t.Fatalf("expected both sectors to be valid")
	}

	if track.Sectors[0][0] != 0x41 {
		t.Fatalf("expected raw sector to decode to 0x41 fill")
	}

	for _, b := range track.Sectors[1] {
		if b != 0x00 {
			t.Fatalf("expected compressed sector to decode to all-zero fill")
		}
	}
}

func TestImageToDisk_SkipsTrailingEmptyTracks(t *testing.T) {
	defer func() {
		if state := recover(); state != nil {
			log.PrintError(state.(error))
			t.Fatalf("Test failed.")
		}
	}()

	img := &Image{
		Tracks: []Track{
			{
				Cylinder: 0,
				Sectors:  make([][]byte, DefaultGeometry.SectorsPerTrack),
				Valid:    make([]bool, DefaultGeometry.SectorsPerTrack),
			},
		},
	}

	for i := range img.Tracks[0].Sectors {
		img.Tracks[0].Sectors[i] = bytes.Repeat([]byte{0x5A}, dskSectorSize)
		img.Tracks[0].Valid[i] = true
	}

	var out bytes.Buffer
	err := ImageToDisk(img, &out)
	log.PanicIf(err)

	want := dskSectorsPerTrack * dskSectorSize
	if out.Len() != want {
		t.Fatalf("expected output truncated to 1 track (%d bytes), got (%d)", want, out.Len())
	}
}

func TestDiskToImage_RoundTripsThroughEncode(t *testing.T) {
	defer func() {
		if state := recover(); state != nil {
			log.PrintError(state.(error))
			t.Fatalf("Test failed.")
		}
	}()

	trackBytes := dskSectorsPerTrack * dskSectorSize
	raw := make([]byte, trackBytes*2)
	for i := range raw[:trackBytes] {
		raw[i] = 0x7E
	}
	// Second track left all-zero -- it lies past the highest nonzero track
	// (track 0), so DiskToImage should omit it.

	img, err := DiskToImage(bytes.NewReader(raw), "round-trip test\r\n")
	log.PanicIf(err)

	if len(img.Tracks) != 1 {
		t.Fatalf("expected 1 emitted track, got (%d)", len(img.Tracks))
	}

	var encoded bytes.Buffer
	err = Encode(img, &encoded)
	log.PanicIf(err)

	reDecoded, err := Decode(bytes.NewReader(encoded.Bytes()))
	log.PanicIf(err)

	if len(reDecoded.Tracks) != 1 {
		t.Fatalf("expected re-decoded image to carry 1 track, got (%d)", len(reDecoded.Tracks))
	}

	for _, b := range reDecoded.Tracks[0].Sectors[0] {
		if b != 0x7E {
			t.Fatalf("expected fill byte 0x7E to survive the round trip")
		}
	}
}
