package mdos

import (
	"testing"

	"github.com/dsoprea/go-logging"
)

func TestClusterBitmap_AllocatedTracking(t *testing.T) {
	bitmap := NewClusterBitmap(make([]byte, SectorSize), maxClusters)

	if bitmap.IsAllocated(ClusterNumber(5)) == true {
		t.Fatalf("cluster 5 should start free")
	}

	bitmap.SetAllocated(ClusterNumber(5), true)
	if bitmap.IsAllocated(ClusterNumber(5)) == false {
		t.Fatalf("cluster 5 should now be allocated")
	}

	bitmap.SetAllocated(ClusterNumber(5), false)
	if bitmap.IsAllocated(ClusterNumber(5)) == true {
		t.Fatalf("cluster 5 should be free again")
	}
}

func TestClusterBitmap_FreeClusterCount(t *testing.T) {
	bitmap := NewClusterBitmap(make([]byte, SectorSize), 16)

	for c := 0; c < 6; c++ {
		bitmap.SetAllocated(ClusterNumber(c), true)
	}

	if bitmap.FreeClusterCount() != 10 {
		t.Fatalf("expected 10 free clusters, got (%d)", bitmap.FreeClusterCount())
	}
}

func TestAllocateSegments_GreedyLeftToRight(t *testing.T) {
	defer func() {
		if state := recover(); state != nil {
			log.PrintError(state.(error))
			t.Fatalf("Test failed.")
		}
	}()

	bitmap := NewClusterBitmap(make([]byte, SectorSize), 64)

	for c := 0; c < 6; c++ {
		bitmap.SetAllocated(ClusterNumber(c), true)
	}

	sdws, err := AllocateSegments(bitmap, nil, SectorsPerCluster*3, 1)
	log.PanicIf(err)

	if len(sdws) != 2 {
		t.Fatalf("expected one data segment plus a terminator, got (%d) SDWs", len(sdws))
	}

	start, count := sdws[0].ClusterRange()
	if start != 6 {
		t.Fatalf("expected allocation to start at the first free cluster (6), got (%d)", start)
	}
	if count != 3 {
		t.Fatalf("expected a 3-cluster segment, got (%d)", count)
	}

	if sdws[1].IsTerminator() == false {
		t.Fatalf("expected a terminator SDW")
	}
}

func TestAllocateSegments_NoSpace(t *testing.T) {
	bitmap := NewClusterBitmap(make([]byte, SectorSize), 4)

	for c := 0; c < 4; c++ {
		bitmap.SetAllocated(ClusterNumber(c), true)
	}

	_, err := AllocateSegments(bitmap, nil, SectorsPerCluster, 1)
	if err != ErrNoSpace {
		t.Fatalf("expected ErrNoSpace, got (%v)", err)
	}
}

func TestFreeChain(t *testing.T) {
	bitmap := NewClusterBitmap(make([]byte, SectorSize), 64)

	sdw := newSegmentSDW(ClusterNumber(10), 4)

	for c := 10; c < 14; c++ {
		bitmap.SetAllocated(ClusterNumber(c), true)
	}

	FreeChain(bitmap, []SDW{sdw})

	for c := 10; c < 14; c++ {
		if bitmap.IsAllocated(ClusterNumber(c)) == true {
			t.Fatalf("cluster (%d) should have been freed", c)
		}
	}
}
