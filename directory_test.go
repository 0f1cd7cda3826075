package mdos

import (
	"testing"

	"github.com/dsoprea/go-logging"
)

// newTestDisk builds a minimally-initialized in-memory disk: zeroed
// directory region and CAT, large enough for the tests in this package.
func newTestDisk(totalSectors int) *Disk {
	rws := &memReadWriteSeeker{buf: make([]byte, SectorSize*totalSectors)}
	return NewDisk(rws, false)
}

func TestNormalizeFilename(t *testing.T) {
	base, ext, err := NormalizeFilename("hello.tx")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if base != "HELLO" || ext != "TX" {
		t.Fatalf("expected HELLO/TX, got (%s)/(%s)", base, ext)
	}

	_, _, err = NormalizeFilename("toolongname.tx")
	if err != ErrInvalid {
		t.Fatalf("expected ErrInvalid for an over-long base name")
	}

	_, _, err = NormalizeFilename("a.b.c")
	if err != ErrInvalid {
		t.Fatalf("expected ErrInvalid for multiple dots")
	}

	_, _, err = NormalizeFilename("has space")
	if err != ErrInvalid {
		t.Fatalf("expected ErrInvalid for embedded spaces")
	}
}

func TestDirectory_InsertFindDelete(t *testing.T) {
	defer func() {
		if state := recover(); state != nil {
			log.PrintError(state.(error))
			t.Fatalf("Test failed.")
		}
	}()

	disk := newTestDisk(30)
	dir := NewDirectory(disk)

	err := dir.Insert("HELLO", "TX", TypeASCII, Attributes{}, PSN(24))
	log.PanicIf(err)

	entry, err := dir.Find("HELLO", "TX")
	log.PanicIf(err)

	if entry.RibSector() != PSN(24) {
		t.Fatalf("expected rib sector 24, got (%d)", entry.RibSector())
	}

	err = dir.Insert("HELLO", "TX", TypeASCII, Attributes{}, PSN(28))
	if err != ErrExists {
		t.Fatalf("expected ErrExists on duplicate insert, got (%v)", err)
	}

	err = dir.Delete("HELLO", "TX")
	log.PanicIf(err)

	_, err = dir.Find("HELLO", "TX")
	if err != ErrNotFound {
		t.Fatalf("expected ErrNotFound after delete, got (%v)", err)
	}
}

func TestDirectory_InsertReusesDeletedSlot(t *testing.T) {
	defer func() {
		if state := recover(); state != nil {
			log.PrintError(state.(error))
			t.Fatalf("Test failed.")
		}
	}()

	disk := newTestDisk(30)
	dir := NewDirectory(disk)

	err := dir.Insert("FIRST", "", TypeUserDefined, Attributes{}, PSN(24))
	log.PanicIf(err)

	err = dir.Delete("FIRST", "")
	log.PanicIf(err)

	err = dir.Insert("SECOND", "", TypeUserDefined, Attributes{}, PSN(28))
	log.PanicIf(err)

	entries, err := dir.Enumerate()
	log.PanicIf(err)

	if len(entries) != 1 {
		t.Fatalf("expected exactly 1 live entry, got (%d)", len(entries))
	}
	if entries[0].Name() != "SECOND" {
		t.Fatalf("expected the deleted slot to have been reused, got (%s)", entries[0].Name())
	}
}

func TestDirectory_Enumerate(t *testing.T) {
	defer func() {
		if state := recover(); state != nil {
			log.PrintError(state.(error))
			t.Fatalf("Test failed.")
		}
	}()

	disk := newTestDisk(30)
	dir := NewDirectory(disk)

	err := dir.Insert("A", "", TypeUserDefined, Attributes{}, PSN(24))
	log.PanicIf(err)

	err = dir.Insert("B", "", TypeUserDefined, Attributes{}, PSN(28))
	log.PanicIf(err)

	entries, err := dir.Enumerate()
	log.PanicIf(err)

	if len(entries) != 2 {
		t.Fatalf("expected 2 live entries, got (%d)", len(entries))
	}
}
