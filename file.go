// This file implements the POSIX-style file I/O layer: an open-file
// descriptor table over a mounted disk, with Open/Close/Read/Write/Lseek,
// and the ASCII-record transcoding applied transparently for TypeASCII
// files.

package mdos

import (
	"reflect"

	"github.com/dsoprea/go-logging"
)

// Fd is an open-file descriptor, analogous to a POSIX file descriptor
// number.
type Fd int

// openFile holds the per-descriptor state: the entry's Rib, the current
// seek position (always counted in on-disk bytes, per the ASCII-record
// seek convention), and the flags it was opened with.
type openFile struct {
	base, ext string
	ribSector PSN
	rib       *Rib
	fileType  FileType
	flags     OpenFlag
	pos       int64
	closed    bool
}

// FileTable is the open-file descriptor table for one mounted disk. It is
// not safe for concurrent use from multiple goroutines without external
// synchronization, matching the single-threaded access model of the
// original floppy-based filesystem.
type FileTable struct {
	disk *Disk
	dir  *Directory

	open map[Fd]*openFile
	next Fd
}

// NewFileTable creates an empty descriptor table bound to a directory.
func NewFileTable(disk *Disk, dir *Directory) *FileTable {
	return &FileTable{
		disk: disk,
		dir:  dir,
		open: make(map[Fd]*openFile),
	}
}

// Open opens an existing file. flags may include ORdOnly, OWrOnly, or
// ORdWr, optionally combined with OTrunc. With OCreat, a missing file is
// instead created empty as TypeUserDefined and opened read-write.
func (ft *FileTable) Open(name string, flags OpenFlag) (fd Fd, err error) {
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

	if len(ft.open) >= maxOpenFiles {
		return 0, ErrTooManyOpen
	}

	base, ext, err := NormalizeFilename(name)
	log.PanicIf(err)

	entry, err := ft.dir.Find(base, ext)
	if err != nil {
		if flags&OCreat != 0 {
			return ft.create(base, ext, TypeUserDefined, Attributes{})
		}
		return 0, err
	}

	sector, err := ft.disk.ReadSector(entry.RibSector())
	log.PanicIf(err)

	rib := NewRibFromSector(sector)

	if flags&OTrunc != 0 {
		bitmap, err := ft.loadBitmap()
		log.PanicIf(err)

		FreeChain(bitmap, rib.ActiveSDWs())
		err = ft.storeBitmap(bitmap)
		log.PanicIf(err)

		rib = NewEmptyRib()
		err = ft.disk.WriteSector(entry.RibSector(), rib.Sector())
		log.PanicIf(err)
	}

	of := &openFile{
		base:      base,
		ext:       ext,
		ribSector: entry.RibSector(),
		rib:       rib,
		fileType:  entry.FileType(),
		flags:     flags,
	}

	fd = ft.next
	ft.next++
	ft.open[fd] = of

	return fd, nil
}

// CreateFile creates a new, empty file and returns it opened for read-write.
func (ft *FileTable) CreateFile(name string, fileType FileType, attrs Attributes) (fd Fd, err error) {
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

	return ft.create(base, ext, fileType, attrs)
}

func (ft *FileTable) create(base, ext string, fileType FileType, attrs Attributes) (fd Fd, err error) {
	bitmap, err := ft.loadBitmap()
	if err != nil {
		return 0, err
	}

	ribPSN, ok := allocateSingleFreeCluster(bitmap)
	if ok == false {
		return 0, ErrNoSpace
	}

	err = ft.storeBitmap(bitmap)
	if err != nil {
		return 0, err
	}

	rib := NewEmptyRib()
	err = ft.disk.WriteSector(ribPSN, rib.Sector())
	if err != nil {
		return 0, err
	}

	err = ft.dir.Insert(base, ext, fileType, attrs, ribPSN)
	if err != nil {
		return 0, err
	}

	of := &openFile{
		base:      base,
		ext:       ext,
		ribSector: ribPSN,
		rib:       rib,
		fileType:  fileType,
		flags:     ORdWr | OCreat,
	}

	fd = ft.next
	ft.next++
	ft.open[fd] = of

	return fd, nil
}

// allocateSingleFreeCluster finds and marks allocated the first free
// cluster, for use as a new file's Rib sector. A Rib only ever occupies the
// first sector of its cluster; the remaining three sectors of that cluster
// are wasted, matching the original filesystem's one-cluster-per-Rib
// convention.
func allocateSingleFreeCluster(bitmap *ClusterBitmap) (PSN, bool) {
	start, run, found := findFreeRun(bitmap, 1)
	if found == false || run < 1 {
		return 0, false
	}
	bitmap.SetAllocated(ClusterNumber(start), true)
	return ClusterNumber(start).toPSN(), true
}

func (ft *FileTable) loadBitmap() (*ClusterBitmap, error) {
	data, err := ft.disk.ReadSector(SectorCAT)
	if err != nil {
		return nil, err
	}
	raw := make([]byte, SectorSize)
	copy(raw, data[:])
	return NewClusterBitmap(raw, maxClusters), nil
}

func (ft *FileTable) storeBitmap(bitmap *ClusterBitmap) error {
	var data [SectorSize]byte
	copy(data[:], bitmap.Bytes())
	return ft.disk.WriteSector(SectorCAT, data)
}

func (ft *FileTable) lookup(fd Fd) (*openFile, error) {
	of, found := ft.open[fd]
	if found == false || of.closed == true {
		return nil, ErrBadFd
	}
	return of, nil
}

// Close releases a descriptor. The Rib is flushed beforehand, so Close
// also serves as the per-file sync point.
func (ft *FileTable) Close(fd Fd) (err error) {
	of, err := ft.lookup(fd)
	if err != nil {
		return err
	}

	err = ft.disk.WriteSector(of.ribSector, of.rib.Sector())
	if err != nil {
		return err
	}

	of.closed = true
	delete(ft.open, fd)

	return nil
}

// Lseek repositions a descriptor's on-disk byte offset. Offsets are always
// counted in on-disk record bytes, even for TypeASCII files whose decoded
// length can differ.
func (ft *FileTable) Lseek(fd Fd, offset int64, whence Whence) (newPos int64, err error) {
	of, err := ft.lookup(fd)
	if err != nil {
		return 0, err
	}

	var base int64
	switch whence {
	case SeekSet:
		base = 0
	case SeekCur:
		base = of.pos
	case SeekEnd:
		base = of.rib.FileByteLength()
	default:
		return 0, ErrInvalid
	}

	pos := base + offset
	if pos < 0 {
		return 0, ErrInvalid
	}

	of.pos = pos
	return pos, nil
}

// Read reads up to len(buf) bytes starting at the descriptor's current
// position, applying ASCII-record decoding if the file is TypeASCII.
// Returns the number of bytes placed into buf; a short count, including
// zero, signals end of file.
func (ft *FileTable) Read(fd Fd, buf []byte) (n int, err error) {
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

	of, err := ft.lookup(fd)
	log.PanicIf(err)

	if of.flags&(ORdOnly|ORdWr) == 0 {
		return 0, ErrPermission
	}

	raw, err := ft.readRaw(of)
	log.PanicIf(err)

	if int(of.pos) >= len(raw) {
		return 0, nil
	}

	if of.fileType != TypeASCII {
		n = copy(buf, raw[of.pos:])
		of.pos += int64(n)
		return n, nil
	}

	decoded := DecodeASCII(raw[of.pos:])
	n = copy(buf, decoded)
	consumed := consumeForDecodedCount(raw[of.pos:], n)
	of.pos += int64(consumed)

	return n, nil
}

// consumeForDecodedCount walks raw, decoding byte by byte, and returns how
// many input bytes were consumed to produce exactly want decoded bytes (or
// all of raw, if it decodes to fewer than want bytes total).
func consumeForDecodedCount(raw []byte, want int) int {
	produced := 0
	for i, b := range raw {
		if produced >= want {
			return i
		}
		produced += len(DecodeASCIIRecord(b))
	}
	return len(raw)
}

// readRaw returns the file's on-disk byte content, logical sector 1 onward,
// decoded from the Rib's segment chain. SectorCount and LastSize are
// already corrected against the chain's own terminator (see rib.go), so
// this loop ordinarily runs exactly as far as real data exists. If it still
// hits a sector the chain can't resolve -- a disk read failure, or
// corruption the terminator correction couldn't account for -- the read
// terminates with whatever bytes were already decoded rather than
// discarding them, matching a short read rather than a hard failure.
func (ft *FileTable) readRaw(of *openFile) (raw []byte, err error) {
	length := of.rib.FileByteLength()
	if length == 0 {
		return nil, nil
	}

	sectorCount := int(of.rib.SectorCount())
	out := make([]byte, 0, length)

	for lsn := 1; lsn < sectorCount; lsn++ {
		psn, err := of.rib.lsnToPSN(lsn)
		if err != nil {
			return out, nil
		}

		data, err := ft.disk.ReadSector(psn)
		if err != nil {
			return out, nil
		}

		if lsn == sectorCount-1 {
			out = append(out, data[:of.rib.LastSize()]...)
		} else {
			out = append(out, data[:]...)
		}
	}

	return out, nil
}

// Write appends or overwrites file content starting at the descriptor's
// current position, growing the file's segment chain as needed.
// ASCII-record encoding is applied transparently for TypeASCII files.
func (ft *FileTable) Write(fd Fd, buf []byte) (n int, err error) {
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

	of, err := ft.lookup(fd)
	log.PanicIf(err)

	if of.flags&(OWrOnly|ORdWr) == 0 {
		return 0, ErrPermission
	}

	payload := buf
	if of.fileType == TypeASCII {
		payload = EncodeASCII(buf)
	}

	existing, err := ft.readRaw(of)
	log.PanicIf(err)

	end := int(of.pos) + len(payload)
	merged := make([]byte, len(existing))
	copy(merged, existing)
	if end > len(merged) {
		grown := make([]byte, end)
		copy(grown, merged)
		merged = grown
	}
	copy(merged[of.pos:end], payload)

	err = ft.rewriteContent(of, merged)
	log.PanicIf(err)

	of.pos = int64(end)
	n = len(buf)

	return n, nil
}

// rewriteContent replaces a file's entire body with content, reallocating
// its segment chain from scratch. This keeps the allocator's
// always-restart-at-cluster-0 behavior simple at the cost of re-copying
// unions of old and new content on every write; acceptable for a
// filesystem whose files are overwhelmingly written once, sequentially.
func (ft *FileTable) rewriteContent(of *openFile, content []byte) (err error) {
	bitmap, err := ft.loadBitmap()
	if err != nil {
		return err
	}

	FreeChain(bitmap, of.rib.ActiveSDWs())

	sectorsNeeded := (len(content) + SectorSize - 1) / SectorSize
	lastSize := len(content) - (sectorsNeeded-1)*SectorSize
	if sectorsNeeded == 0 {
		lastSize = 0
	}

	var sdws []SDW
	if sectorsNeeded > 0 {
		sdws, err = AllocateSegments(bitmap, nil, sectorsNeeded, 1)
		if err != nil {
			return err
		}
	}

	err = ft.storeBitmap(bitmap)
	if err != nil {
		return err
	}

	of.rib.SetSDWs(sdws)
	of.rib.SetSectorCount(uint16(sectorsNeeded + 1))
	of.rib.SetLastSize(uint8(lastSize))

	for lsn := 1; lsn <= sectorsNeeded; lsn++ {
		psn, err := of.rib.lsnToPSN(lsn)
		if err != nil {
			return err
		}

		var data [SectorSize]byte
		start := (lsn - 1) * SectorSize
		end := start + SectorSize
		if end > len(content) {
			end = len(content)
		}
		copy(data[:], content[start:end])

		err = ft.disk.WriteSector(psn, data)
		if err != nil {
			return err
		}
	}

	err = ft.disk.WriteSector(of.ribSector, of.rib.Sector())
	if err != nil {
		return err
	}

	return nil
}
