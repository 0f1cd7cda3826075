// This file implements the cluster allocation bitmap (the CAT) and the
// left-to-right greedy segment allocator used when a file grows.

package mdos

import (
	"reflect"

	"github.com/dsoprea/go-logging"
)

// ClusterNumber identifies a cluster: a run of SectorsPerCluster consecutive
// sectors. Cluster 0 begins at PSN 0.
type ClusterNumber int

// clusterCount returns the total number of clusters a disk of the given
// sector count is divided into.
func clusterCount(totalSectors int) int {
	return totalSectors / SectorsPerCluster
}

// toPSN returns the first physical sector of a cluster.
func (c ClusterNumber) toPSN() PSN {
	return PSN(int(c) * SectorsPerCluster)
}

// ClusterBitmap is the in-memory form of the CAT sector: one bit per
// cluster, most-significant-bit-first within each byte, set meaning
// allocated. A single 128-byte sector addresses at most 1024 clusters,
// fewer than the largest geometry CreateImage produces (77*2*32/4 = 1232
// clusters in the two-sided case). Callers size the backing array to the
// disk's actual cluster count.
type ClusterBitmap struct {
	bits  []byte
	total int
}

// NewClusterBitmap wraps a CAT sector's raw bytes for a disk with the given
// cluster count.
func NewClusterBitmap(raw []byte, total int) *ClusterBitmap {
	return &ClusterBitmap{bits: raw, total: total}
}

// IsAllocated reports whether a cluster's bit is set.
func (b *ClusterBitmap) IsAllocated(c ClusterNumber) bool {
	idx := int(c)
	if idx < 0 || idx >= b.total {
		return true
	}
	return b.bits[idx>>3]&(1<<(7-uint(idx&7))) != 0
}

// SetAllocated sets or clears a cluster's bit.
func (b *ClusterBitmap) SetAllocated(c ClusterNumber, allocated bool) {
	idx := int(c)
	mask := byte(1 << (7 - uint(idx&7)))
	if allocated == true {
		b.bits[idx>>3] |= mask
	} else {
		b.bits[idx>>3] &^= mask
	}
}

// FreeClusterCount returns how many clusters are currently unallocated.
func (b *ClusterBitmap) FreeClusterCount() int {
	free := 0
	for c := 0; c < b.total; c++ {
		if b.IsAllocated(ClusterNumber(c)) == false {
			free++
		}
	}
	return free
}

// Bytes returns the backing sector bytes, for writing back to the CAT
// sector.
func (b *ClusterBitmap) Bytes() []byte {
	return b.bits
}

// AllocateSegments grows a file by sectorsNeeded sectors, appending new
// Segment Descriptor Words to existing. It is a direct port of the
// left-to-right greedy scan used by the original allocator: each segment
// always starts its search at cluster 0 rather than resuming from the
// previous segment's end, so small early gaps left by earlier deletions
// tend to fragment later files rather than the first ones allocated.
//
// Each segment covers at most 32 clusters (5 bits of count, stored as
// count-1). The final segment's SDW is followed by a terminator SDW whose
// high bit is set and whose low 15 bits hold the zero-based index of the
// file's last logical sector. The terminator occupies one of the
// maxSegmentDescriptors slots, so at most 56 segment SDWs (existing ones
// included) fit.
//
// Returns ErrNoSpace if the 57-slot SDW table would overflow or free space
// runs out before sectorsNeeded is satisfied.
func AllocateSegments(bitmap *ClusterBitmap, existing []SDW, sectorsNeeded int, lastLogicalSector int) (grown []SDW, err error) {
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

	if sectorsNeeded <= 0 {
		log.Panicf("sectorsNeeded must be positive: (%d)", sectorsNeeded)
	}

	segs := make([]SDW, len(existing))
	copy(segs, existing)

	remaining := sectorsNeeded
	lastSector := lastLogicalSector

	for remaining > 0 {
		if len(segs) >= maxSegmentDescriptors-1 {
			return nil, ErrNoSpace
		}

		wantSectors := remaining
		if wantSectors > 32*SectorsPerCluster {
			wantSectors = 32 * SectorsPerCluster
		}
		wantClusters := (wantSectors + SectorsPerCluster - 1) / SectorsPerCluster

		start, runLen, found := findFreeRun(bitmap, wantClusters)
		if found == false {
			return nil, ErrNoSpace
		}

		for c := 0; c < runLen; c++ {
			bitmap.SetAllocated(ClusterNumber(start+c), true)
		}

		sdw := newSegmentSDW(ClusterNumber(start), runLen)
		segs = append(segs, sdw)

		sectorsThisSeg := runLen * SectorsPerCluster
		if sectorsThisSeg > remaining {
			sectorsThisSeg = remaining
		}
		remaining -= sectorsThisSeg
		lastSector += sectorsThisSeg
	}

	segs = append(segs, terminatorSDW(lastSector-1))

	return segs, nil
}

// findFreeRun performs the greedy left-to-right scan for a run of up to
// want contiguous free clusters, starting the scan over from cluster 0
// every call (never resuming from a previous call's position). It returns
// the longest run found at the first free cluster encountered, even if
// shorter than want, exactly like the original allocator: it does not keep
// scanning past the first gap's end looking for a longer one.
func findFreeRun(bitmap *ClusterBitmap, want int) (start int, length int, found bool) {
	for c := 0; c < bitmap.total; c++ {
		if bitmap.IsAllocated(ClusterNumber(c)) == true {
			continue
		}

		run := 0
		for c+run < bitmap.total && run < want && bitmap.IsAllocated(ClusterNumber(c+run)) == false {
			run++
		}

		return c, run, true
	}

	return 0, 0, false
}

// FreeChain clears every cluster referenced by a file's non-terminator
// SDWs. Unused (w==0) entries are skipped.
func FreeChain(bitmap *ClusterBitmap, sdws []SDW) {
	for _, s := range sdws {
		if s.IsTerminator() == true || s.IsUnused() == true {
			continue
		}
		start, count := s.ClusterRange()
		for c := 0; c < count; c++ {
			bitmap.SetAllocated(ClusterNumber(start+c), false)
		}
	}
}
