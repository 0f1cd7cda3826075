package mdos

import (
	"testing"

	"github.com/dsoprea/go-logging"
)

func TestDisk_ReadWriteSector(t *testing.T) {
	defer func() {
		if state := recover(); state != nil {
			log.PrintError(state.(error))
			t.Fatalf("Test failed.")
		}
	}()

	rws := &memReadWriteSeeker{buf: make([]byte, SectorSize*4)}

	disk := NewDisk(rws, false)

	var data [SectorSize]byte
	copy(data[:], "HELLO")

	err := disk.WriteSector(PSN(2), data)
	log.PanicIf(err)

	got, err := disk.ReadSector(PSN(2))
	log.PanicIf(err)

	if got != data {
		t.Fatalf("sector round-trip mismatch")
	}
}

func TestDisk_ReadOnlyWriteNoOp(t *testing.T) {
	defer func() {
		if state := recover(); state != nil {
			log.PrintError(state.(error))
			t.Fatalf("Test failed.")
		}
	}()

	rws := &memReadWriteSeeker{buf: make([]byte, SectorSize*4)}
	disk := NewDisk(rws, true)

	var data [SectorSize]byte
	copy(data[:], "SHOULD-NOT-APPEAR")

	err := disk.WriteSector(PSN(0), data)
	log.PanicIf(err)

	got, err := disk.ReadSector(PSN(0))
	log.PanicIf(err)

	var zero [SectorSize]byte
	if got != zero {
		t.Fatalf("read-only disk accepted a write")
	}
}

// memReadWriteSeeker is a minimal in-memory io.ReadWriteSeeker, standing in
// for an *os.File in tests that do not need a real backing file.
type memReadWriteSeeker struct {
	buf []byte
	pos int64
}

func (m *memReadWriteSeeker) Read(p []byte) (int, error) {
	n := copy(p, m.buf[m.pos:])
	m.pos += int64(n)
	return n, nil
}

func (m *memReadWriteSeeker) Write(p []byte) (int, error) {
	end := m.pos + int64(len(p))
	if end > int64(len(m.buf)) {
		grown := make([]byte, end)
		copy(grown, m.buf)
		m.buf = grown
	}
	n := copy(m.buf[m.pos:end], p)
	m.pos = end
	return n, nil
}

func (m *memReadWriteSeeker) Seek(offset int64, whence int) (int64, error) {
	switch whence {
	case 0:
		m.pos = offset
	case 1:
		m.pos += offset
	case 2:
		m.pos = int64(len(m.buf)) + offset
	}
	return m.pos, nil
}
