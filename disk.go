// This file implements the sector store: random-access read/write of
// 128-byte sectors backed by a disk-image file, and fresh-image creation.

package mdos

import (
	"io"
	"os"
	"reflect"

	"github.com/dsoprea/go-logging"
)

// PSN is a physical sector number: an image-absolute sector index. Sector 0
// is the disk-ID sector.
type PSN int

// Disk is the sector store. It owns the backing image file and enforces the
// read-only flag; writes against a read-only disk silently no-op, exactly
// as the filesystem's design documentation specifies (callers are expected
// to check ReadOnly() and propagate a permission error themselves).
type Disk struct {
	rws      io.ReadWriteSeeker
	readOnly bool

	// One-sector read cache, filled by ReadSector and invalidated by a write
	// to the cached sector. Not required for correctness -- it only saves a
	// re-seek when the same sector is read twice with no write in between.
	cachedPSN   PSN
	cachedData  [SectorSize]byte
	cacheValid  bool
}

// NewDisk wraps an already-open backing store. The backing store is
// typically an *os.File, but any io.ReadWriteSeeker works -- tests commonly
// substitute an in-memory buffer.
func NewDisk(rws io.ReadWriteSeeker, readOnly bool) *Disk {
	return &Disk{
		rws:      rws,
		readOnly: readOnly,
	}
}

// ReadOnly reports whether writes to this disk are suppressed.
func (d *Disk) ReadOnly() bool {
	return d.readOnly
}

// ReadSector reads the 128 bytes at the given physical sector number.
func (d *Disk) ReadSector(psn PSN) (data [SectorSize]byte, err error) {
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

	if d.cacheValid == true && d.cachedPSN == psn {
		return d.cachedData, nil
	}

	if psn < 0 {
		log.Panicf("sector number can not be negative: (%d)", psn)
	}

	_, err = d.rws.Seek(int64(psn)*SectorSize, io.SeekStart)
	log.PanicIf(err)

	_, err = io.ReadFull(d.rws, data[:])
	log.PanicIf(err)

	d.cachedPSN = psn
	d.cachedData = data
	d.cacheValid = true

	return data, nil
}

// WriteSector writes 128 bytes to the given physical sector number. It is a
// silent no-op when the disk is read-only.
func (d *Disk) WriteSector(psn PSN, data [SectorSize]byte) (err error) {
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

	if d.readOnly == true {
		return nil
	}

	if psn < 0 {
		log.Panicf("sector number can not be negative: (%d)", psn)
	}

	_, err = d.rws.Seek(int64(psn)*SectorSize, io.SeekStart)
	log.PanicIf(err)

	_, err = d.rws.Write(data[:])
	log.PanicIf(err)

	if d.cacheValid == true && d.cachedPSN == psn {
		d.cacheValid = false
	}

	return nil
}

// CreateImage initializes a full MDOS-formatted disk image at path:
//
//   - total tracks = 77 * sides, 32 sectors/track (this geometry
//     deliberately differs from the IMD codec's 26 sectors/track; see
//     imdimage and DESIGN.md)
//   - every sector zeroed
//   - PSN 0: disk-ID sector ("MDOS", sides, tracks, sectors/track)
//   - PSN 1: CAT with clusters 0..5 marked allocated
//   - PSN 2: zeroed LCAT
//   - PSNs 3..22: zeroed directory region
//   - PSNs 23..24: boot sectors, PSN 23 carrying a plain-ASCII boot message
func CreateImage(path string, sides int) (err error) {
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

	if sides != 1 && sides != 2 {
		return ErrInvalid
	}

	f, err := os.Create(path)
	log.PanicIf(err)

	defer f.Close()

	disk := NewDisk(f, false)

	totalSectors := mkfsSectorsPerTrack * mkfsTracksPerSide * sides

	var zero [SectorSize]byte
	for psn := 0; psn < totalSectors; psn++ {
		err = disk.WriteSector(PSN(psn), zero)
		log.PanicIf(err)
	}

	var id [SectorSize]byte
	copy(id[:], "MDOS")
	id[4] = byte(sides)
	id[5] = mkfsTracksPerSide
	id[6] = mkfsSectorsPerTrack
	err = disk.WriteSector(SectorDiskID, id)
	log.PanicIf(err)

	var cat [SectorSize]byte
	for cl := 0; cl < 6; cl++ {
		cat[cl>>3] |= 1 << (7 - uint(cl&7))
	}
	err = disk.WriteSector(SectorCAT, cat)
	log.PanicIf(err)

	err = disk.WriteSector(SectorLCAT, zero)
	log.PanicIf(err)

	for i := 0; i < SectorDirCount; i++ {
		err = disk.WriteSector(SectorDirFirst+PSN(i), zero)
		log.PanicIf(err)
	}

	var boot [SectorSize]byte
	copy(boot[:], "MDOS Boot Loader\r\nInsert system disk and press any key\r\n")
	err = disk.WriteSector(SectorBootFirst, boot)
	log.PanicIf(err)

	err = disk.WriteSector(SectorBootFirst+1, zero)
	log.PanicIf(err)

	return nil
}
