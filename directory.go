// This file implements the directory service: filename normalization,
// linear scan/lookup, insertion into the first free slot, and deletion.
// The directory region is a fixed 20-sector, 160-slot table (PSNs
// SectorDirFirst..SectorDirFirst+SectorDirCount-1); there is no subdirectory
// nesting and no on-disk hashing, so lookups are a straightforward scan --
// unlike the teacher's tree-indexed navigator, this directory is small and
// flat enough that the scan itself is the index.

package mdos

import (
	"reflect"
	"strings"

	"github.com/dsoprea/go-logging"
)

// Directory reads and mutates the fixed directory region of a mounted
// disk.
type Directory struct {
	disk *Disk
}

// NewDirectory wraps a disk's directory region.
func NewDirectory(disk *Disk) *Directory {
	return &Directory{disk: disk}
}

// NormalizeFilename validates and upper-cases a "NAME.EXT" filename against
// the 8.3 constraint: base name at most 8 characters, extension at most 2,
// at most one dot. Embedded spaces are rejected -- the space character is
// the directory entry's own padding byte.
func NormalizeFilename(name string) (base string, ext string, err error) {
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

	if strings.ContainsAny(name, " ") == true {
		return "", "", ErrInvalid
	}

	parts := strings.Split(name, ".")
	switch len(parts) {
	case 1:
		base, ext = parts[0], ""
	case 2:
		base, ext = parts[0], parts[1]
	default:
		return "", "", ErrInvalid
	}

	if base == "" || len(base) > 8 || len(ext) > 2 {
		return "", "", ErrInvalid
	}

	return strings.ToUpper(base), strings.ToUpper(ext), nil
}

// slotLocation is a directory slot's physical position: the sector holding
// it and the slot's byte offset within that sector.
type slotLocation struct {
	sector PSN
	offset int
}

// walk visits every slot in directory order, calling visit for each. It
// stops early -- without error -- the moment visit returns true.
func (d *Directory) walk(visit func(loc slotLocation, entry *DirectoryEntry) bool) (err error) {
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

	for i := 0; i < SectorDirCount; i++ {
		sector := SectorDirFirst + PSN(i)

		data, err := d.disk.ReadSector(sector)
		log.PanicIf(err)

		for off := 0; off < SectorSize; off += directoryEntrySize {
			var raw [directoryEntrySize]byte
			copy(raw[:], data[off:off+directoryEntrySize])

			entry := NewDirectoryEntryFromBytes(raw)

			if visit(slotLocation{sector: sector, offset: off}, entry) == true {
				return nil
			}
		}
	}

	return nil
}

// Find scans for a live entry matching base/ext exactly.
func (d *Directory) Find(base string, ext string) (entry *DirectoryEntry, err error) {
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

	err = d.walk(func(_ slotLocation, e *DirectoryEntry) bool {
		if e.IsLive() == true && e.Name() == base && e.Ext() == ext {
			entry = e
			return true
		}
		return false
	})
	log.PanicIf(err)

	if entry == nil {
		return nil, ErrNotFound
	}

	return entry, nil
}

// Enumerate returns every live entry in directory order.
func (d *Directory) Enumerate() (entries []*DirectoryEntry, err error) {
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

	err = d.walk(func(_ slotLocation, e *DirectoryEntry) bool {
		if e.IsLive() == true {
			entries = append(entries, e)
		}
		return false
	})
	log.PanicIf(err)

	return entries, nil
}

// Insert places a new entry into the first available slot: a deleted slot
// if one exists earlier in the directory, otherwise the first never-used
// (terminator) slot. Returns ErrExists if base/ext is already live, and
// ErrNoSpace if every slot is live.
func (d *Directory) Insert(base string, ext string, fileType FileType, attrs Attributes, rib PSN) (err error) {
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

	var target *slotLocation
	var conflict bool

	walkErr := d.walk(func(loc slotLocation, e *DirectoryEntry) bool {
		if e.IsLive() == true {
			if e.Name() == base && e.Ext() == ext {
				conflict = true
				return true
			}
			return false
		}

		if e.State() == stateDeleted && target == nil {
			locCopy := loc
			target = &locCopy
			return false
		}

		if e.IsTerminator() == true {
			if target == nil {
				locCopy := loc
				target = &locCopy
			}
			return true
		}

		return false
	})
	log.PanicIf(walkErr)

	if conflict == true {
		return ErrExists
	}

	if target == nil {
		return ErrNoSpace
	}

	entry := &DirectoryEntry{}
	entry.SetName(base)
	entry.SetExt(ext)
	entry.SetFileType(fileType)
	entry.SetAttributes(attrs)
	entry.SetRibSector(rib)

	err = d.writeSlot(*target, entry)
	log.PanicIf(err)

	return nil
}

// writeSlot rewrites a single 16-byte slot in place.
func (d *Directory) writeSlot(loc slotLocation, entry *DirectoryEntry) (err error) {
	data, err := d.disk.ReadSector(loc.sector)
	if err != nil {
		return err
	}

	raw := entry.Bytes()
	copy(data[loc.offset:loc.offset+directoryEntrySize], raw[:])

	return d.disk.WriteSector(loc.sector, data)
}

// Delete marks a live entry's slot as deleted.
func (d *Directory) Delete(base string, ext string) (err error) {
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

	var found *slotLocation

	err = d.walk(func(loc slotLocation, e *DirectoryEntry) bool {
		if e.IsLive() == true && e.Name() == base && e.Ext() == ext {
			locCopy := loc
			found = &locCopy
			return true
		}
		return false
	})
	log.PanicIf(err)

	if found == nil {
		return ErrNotFound
	}

	data, err := d.disk.ReadSector(found.sector)
	log.PanicIf(err)

	data[found.offset] = 0xFF

	err = d.disk.WriteSector(found.sector, data)
	log.PanicIf(err)

	return nil
}
