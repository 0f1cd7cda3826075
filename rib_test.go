package mdos

import (
	"testing"
)

func TestRib_SDWRoundTrip(t *testing.T) {
	rib := NewEmptyRib()

	sdws := []SDW{
		newSegmentSDW(ClusterNumber(6), 2),
		newSegmentSDW(ClusterNumber(20), 5),
		terminatorSDW(27),
	}

	rib.SetSDWs(sdws)

	active := rib.ActiveSDWs()
	if len(active) != 2 {
		t.Fatalf("expected 2 active segments, got (%d)", len(active))
	}

	start, count := active[0].ClusterRange()
	if start != 6 || count != 2 {
		t.Fatalf("first segment mismatch: start=(%d) count=(%d)", start, count)
	}

	term, found := rib.Terminator()
	if found == false {
		t.Fatalf("expected a terminator SDW")
	}
	if term.LastLogicalSector() != 27 {
		t.Fatalf("expected last logical sector 27, got (%d)", term.LastLogicalSector())
	}
}

func TestRib_FileByteLength(t *testing.T) {
	rib := NewEmptyRib()
	rib.SetSectorCount(3)
	rib.SetLastSize(50)

	if rib.FileByteLength() != int64(SectorSize)+50 {
		t.Fatalf("expected (%d), got (%d)", int64(SectorSize)+50, rib.FileByteLength())
	}
}

func TestRib_LsnToPSN(t *testing.T) {
	rib := NewEmptyRib()

	sdws := []SDW{
		newSegmentSDW(ClusterNumber(6), 1),
		terminatorSDW(4),
	}
	rib.SetSDWs(sdws)

	psn, err := rib.lsnToPSN(1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if psn != PSN(6*SectorsPerCluster) {
		t.Fatalf("expected psn (%d), got (%d)", 6*SectorsPerCluster, psn)
	}

	psn, err = rib.lsnToPSN(4)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if psn != PSN(6*SectorsPerCluster+3) {
		t.Fatalf("expected psn (%d), got (%d)", 6*SectorsPerCluster+3, psn)
	}

	_, err = rib.lsnToPSN(5)
	if err != ErrInvalid {
		t.Fatalf("expected ErrInvalid past the end of the chain, got (%v)", err)
	}
}

func TestRib_SectorCountCorrectsAgainstCorruptTrailer(t *testing.T) {
	rib := NewEmptyRib()

	sdws := []SDW{
		newSegmentSDW(ClusterNumber(6), 1),
		terminatorSDW(3),
	}
	rib.SetSDWs(sdws)

	// A legitimate trailer for this chain would read 4 (the Rib's own
	// logical sector 0 plus 3 data sectors). Corrupt it with an
	// implausible value and confirm the accessor substitutes the
	// terminator-derived count instead of returning the raw byte.
	rib.SetSectorCount(0xFFFF)

	if rib.SectorCount() != 4 {
		t.Fatalf("expected corrupt sector_count to be corrected to 4, got (%d)", rib.SectorCount())
	}

	// A value within one sector of the terminator-derived count is
	// trusted as-is rather than overridden.
	rib.SetSectorCount(5)
	if rib.SectorCount() != 5 {
		t.Fatalf("expected a plausible off-by-one sector_count to survive uncorrected, got (%d)", rib.SectorCount())
	}
}

func TestRib_LastSizeCorrectsOutOfRange(t *testing.T) {
	rib := NewEmptyRib()

	rib.SetLastSize(0)
	if rib.LastSize() != SectorSize {
		t.Fatalf("expected last_size 0 to be corrected to (%d), got (%d)", SectorSize, rib.LastSize())
	}

	rib.SetLastSize(200)
	if rib.LastSize() != SectorSize {
		t.Fatalf("expected last_size > 128 to be corrected to (%d), got (%d)", SectorSize, rib.LastSize())
	}

	rib.SetLastSize(50)
	if rib.LastSize() != 50 {
		t.Fatalf("expected an in-range last_size to survive uncorrected, got (%d)", rib.LastSize())
	}
}

func TestRib_LoadAndEntryAddress(t *testing.T) {
	rib := NewEmptyRib()
	rib.SetLoadAddress(0x1000)
	rib.SetEntryAddress(0x1004)

	if rib.LoadAddress() != 0x1000 {
		t.Fatalf("load address mismatch")
	}
	if rib.EntryAddress() != 0x1004 {
		t.Fatalf("entry address mismatch")
	}
}
