package mdos

import (
	"testing"

	"github.com/dsoprea/go-logging"
)

func TestDirectoryIndex_SortedNames(t *testing.T) {
	defer func() {
		if state := recover(); state != nil {
			log.PrintError(state.(error))
			t.Fatalf("Test failed.")
		}
	}()

	disk := newTestDisk(30)
	dir := NewDirectory(disk)

	for _, name := range []string{"ZEBRA", "APPLE", "MANGO"} {
		err := dir.Insert(name, "", TypeUserDefined, Attributes{}, PSN(24))
		log.PanicIf(err)
	}

	idx, err := NewDirectoryIndex(dir)
	log.PanicIf(err)

	names := idx.Names()
	want := []string{"APPLE", "MANGO", "ZEBRA"}

	if len(names) != len(want) {
		t.Fatalf("expected (%d) names, got (%d)", len(want), len(names))
	}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("expected sorted order (%v), got (%v)", want, names)
		}
	}

	if idx.Len() != 3 {
		t.Fatalf("expected Len() == 3, got (%d)", idx.Len())
	}

	_, found := idx.Lookup("APPLE")
	if found == false {
		t.Fatalf("expected to find APPLE in the index")
	}
}
