// This file implements the top-level mount handle tying the sector store,
// directory service, and file table together into one filesystem session.

package mdos

import (
	"io"
	"os"
	"reflect"

	"github.com/dsoprea/go-logging"
)

// Mount is an open filesystem session over one disk image.
type Mount struct {
	disk  *Disk
	dir   *Directory
	files *FileTable

	backing io.Closer
}

// MountFile opens a disk image file and mounts it.
func MountFile(path string, readOnly bool) (m *Mount, err error) {
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

	flag := os.O_RDWR
	if readOnly == true {
		flag = os.O_RDONLY
	}

	f, err := os.OpenFile(path, flag, 0)
	log.PanicIf(err)

	m = NewMount(f, readOnly)
	m.backing = f

	return m, nil
}

// NewMount wraps an already-open backing store.
func NewMount(rws io.ReadWriteSeeker, readOnly bool) *Mount {
	disk := NewDisk(rws, readOnly)
	dir := NewDirectory(disk)
	files := NewFileTable(disk, dir)

	return &Mount{disk: disk, dir: dir, files: files}
}

// Unmount closes the backing store, if one was opened by MountFile.
func (m *Mount) Unmount() (err error) {
	if m.backing != nil {
		return m.backing.Close()
	}
	return nil
}

// Sync is a no-op: every write goes straight through to the backing store
// already (WriteSector has no deferred-flush buffering beyond the
// single-sector read cache, which Sync does not need to invalidate).
func (m *Mount) Sync() error {
	return nil
}

// Files returns the mount's open-file descriptor table.
func (m *Mount) Files() *FileTable {
	return m.files
}

// Directory returns the mount's directory service.
func (m *Mount) Directory() *Directory {
	return m.dir
}

// Disk returns the mount's underlying sector store.
func (m *Mount) Disk() *Disk {
	return m.disk
}

// FreeSpace reports the number of free sectors available for allocation.
func (m *Mount) FreeSpace() (freeSectors int, err error) {
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

	data, err := m.disk.ReadSector(SectorCAT)
	log.PanicIf(err)

	raw := make([]byte, SectorSize)
	copy(raw, data[:])
	bitmap := NewClusterBitmap(raw, maxClusters)

	return bitmap.FreeClusterCount() * SectorsPerCluster, nil
}

// FileInfo describes one directory entry for listing purposes.
type FileInfo struct {
	Name       string
	Ext        string
	Type       FileType
	Attributes Attributes
	Size       int64
	RibSector  PSN
}

// Stat returns metadata for a named file.
func (m *Mount) Stat(name string) (info FileInfo, err error) {
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

	base, ext, err := NormalizeFilename(name)
	log.PanicIf(err)

	entry, err := m.dir.Find(base, ext)
	if err != nil {
		return FileInfo{}, err
	}

	sector, err := m.disk.ReadSector(entry.RibSector())
	log.PanicIf(err)

	rib := NewRibFromSector(sector)

	return FileInfo{
		Name:       entry.Name(),
		Ext:        entry.Ext(),
		Type:       entry.FileType(),
		Attributes: entry.Attributes(),
		Size:       rib.FileByteLength(),
		RibSector:  entry.RibSector(),
	}, nil
}

// List returns metadata for every live file, in sorted filename order. It
// builds a fresh DirectoryIndex on every call rather than caching one
// across mutations, since the directory region is small enough that a full
// rescan is cheap and this sidesteps ever having to reason about index
// invalidation on Unlink/create. An entry whose Rib sector cannot be read
// is left out of the result rather than failing the whole listing.
func (m *Mount) List() (infos []FileInfo, err error) {
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

	idx, err := NewDirectoryIndex(m.dir)
	log.PanicIf(err)

	for _, fullName := range idx.Names() {
		entry, found := idx.Lookup(fullName)
		if found == false {
			continue
		}

		sector, err := m.disk.ReadSector(entry.RibSector())
		if err != nil {
			continue
		}

		rib := NewRibFromSector(sector)

		infos = append(infos, FileInfo{
			Name:       entry.Name(),
			Ext:        entry.Ext(),
			Type:       entry.FileType(),
			Attributes: entry.Attributes(),
			Size:       rib.FileByteLength(),
			RibSector:  entry.RibSector(),
		})
	}

	return infos, nil
}

// Unlink removes a file: marks its directory slot deleted, then frees its
// cluster chain and its Rib's own cluster in the CAT. It refuses to unlink a
// file carrying the delete-protect attribute.
func (m *Mount) Unlink(name string) (err error) {
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

	base, ext, err := NormalizeFilename(name)
	log.PanicIf(err)

	entry, err := m.dir.Find(base, ext)
	if err != nil {
		return err
	}

	if entry.Attributes().DeleteProtected == true {
		return ErrPermission
	}

	sector, err := m.disk.ReadSector(entry.RibSector())
	log.PanicIf(err)

	rib := NewRibFromSector(sector)

	err = m.dir.Delete(base, ext)
	log.PanicIf(err)

	data, err := m.disk.ReadSector(SectorCAT)
	log.PanicIf(err)

	raw := make([]byte, SectorSize)
	copy(raw, data[:])
	bitmap := NewClusterBitmap(raw, maxClusters)

	FreeChain(bitmap, rib.ActiveSDWs())

	ribCluster := ClusterNumber(int(entry.RibSector()) / SectorsPerCluster)
	bitmap.SetAllocated(ribCluster, false)

	var newCat [SectorSize]byte
	copy(newCat[:], bitmap.Bytes())
	err = m.disk.WriteSector(SectorCAT, newCat)
	log.PanicIf(err)

	return nil
}
