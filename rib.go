// This file implements the Record Information Block: the 128-byte
// structure stored as a file's logical sector 0, holding the segment chain
// and the file's size/load-address metadata.

package mdos

import (
	"encoding/binary"
	"reflect"

	"github.com/dsoprea/go-logging"
	"github.com/go-restruct/restruct"
)

// SDW is a Segment Descriptor Word: one 16-bit entry of a Rib's segment
// chain.
//
//   - w == 0: unused, not part of the chain.
//   - bit 15 set: terminator; bits 0-14 hold the zero-based index of the
//     file's last logical sector.
//   - otherwise: bits 0-9 are the starting cluster, bits 10-14 are the
//     cluster count minus one (so a segment spans 1-32 clusters).
type SDW uint16

// IsUnused reports an empty SDW slot.
func (s SDW) IsUnused() bool {
	return s == 0
}

// IsTerminator reports whether this SDW ends the chain.
func (s SDW) IsTerminator() bool {
	return s&0x8000 != 0
}

// LastLogicalSector is only meaningful when IsTerminator is true.
func (s SDW) LastLogicalSector() int {
	return int(s & 0x7FFF)
}

// ClusterRange decodes a non-terminator, non-unused SDW into its starting
// cluster and cluster count.
func (s SDW) ClusterRange() (start int, count int) {
	start = int(s & 0x03FF)
	count = int((s>>10)&0x1F) + 1
	return start, count
}

func newSegmentSDW(start ClusterNumber, clusterCount int) SDW {
	return SDW(uint16(start)&0x03FF | uint16(clusterCount-1)<<10)
}

func terminatorSDW(lastLogicalSector int) SDW {
	return SDW(0x8000 | uint16(lastLogicalSector)&0x7FFF)
}

// Rib wraps the 128-byte on-disk Record Information Block. Fields are
// decoded on demand from the backing array rather than copied into typed
// struct fields up front, mirroring the read-only-correction style used
// elsewhere in this package: callers that mutate a Rib do so through the
// setter methods, which write straight back into raw.
type Rib struct {
	raw [SectorSize]byte
}

// NewRibFromSector decodes a sector's bytes into a Rib. No validation is
// performed here; a Rib with every SDW unused and last_size/sector count
// zero is a legitimate empty file.
func NewRibFromSector(data [SectorSize]byte) *Rib {
	return &Rib{raw: data}
}

// NewEmptyRib returns a Rib describing a zero-length file.
func NewEmptyRib() *Rib {
	return &Rib{}
}

// Sector returns the Rib's on-disk representation.
func (r *Rib) Sector() [SectorSize]byte {
	return r.raw
}

// ribSDWCount is the number of SDW slots physically present in the segment
// table (bytes 0-113, two bytes each).
const ribSDWCount = 57

// SDWs decodes every slot of the segment table, in order, including unused
// slots and the terminator if present.
func (r *Rib) SDWs() []SDW {
	out := make([]SDW, ribSDWCount)
	for i := 0; i < ribSDWCount; i++ {
		out[i] = SDW(binary.BigEndian.Uint16(r.raw[i*2 : i*2+2]))
	}
	return out
}

// SetSDWs re-encodes the segment table. Slots beyond len(sdws) are zeroed.
func (r *Rib) SetSDWs(sdws []SDW) {
	if len(sdws) > ribSDWCount {
		log.Panicf("too many segment descriptors: (%d) > (%d)", len(sdws), ribSDWCount)
	}

	for i := 0; i < ribSDWCount; i++ {
		var v SDW
		if i < len(sdws) {
			v = sdws[i]
		}
		binary.BigEndian.PutUint16(r.raw[i*2:i*2+2], uint16(v))
	}
}

// ActiveSDWs returns only the non-unused, non-terminator segment
// descriptors, in chain order -- the set AllocateSegments and FreeChain
// operate over.
func (r *Rib) ActiveSDWs() []SDW {
	all := r.SDWs()
	out := make([]SDW, 0, len(all))
	for _, s := range all {
		if s.IsUnused() == true || s.IsTerminator() == true {
			continue
		}
		out = append(out, s)
	}
	return out
}

// Terminator returns the chain's terminator SDW and whether one is present.
func (r *Rib) Terminator() (SDW, bool) {
	for _, s := range r.SDWs() {
		if s.IsTerminator() == true {
			return s, true
		}
	}
	return 0, false
}

// ribOffsetTrailer is where the fixed trailer fields begin, after the
// 57-slot segment table (bytes 0-113) and three reserved bytes (114-116)
// (§3.3 of the filesystem's design documentation). The four fields are packed contiguously, so they decode
// as a single restruct-tagged struct rather than four separate offsets.
const ribOffsetTrailer = 117

// ribTrailer is the fixed-layout tail of a Rib: the fields that follow the
// segment table. Decoded/encoded via restruct rather than manual
// binary.BigEndian offsets. It is the only restruct-tagged struct in this
// module; the segment table, the directory entry and the IMD track header
// are handled with explicit byte offsets.
type ribTrailer struct {
	LastSize     uint8
	SectorCount  uint16
	LoadAddress  uint16
	EntryAddress uint16
}

func (r *Rib) decodeTrailer() ribTrailer {
	var t ribTrailer
	err := restruct.Unpack(r.raw[ribOffsetTrailer:ribOffsetTrailer+7], binary.BigEndian, &t)
	log.PanicIf(err)
	return t
}

func (r *Rib) encodeTrailer(t ribTrailer) {
	data, err := restruct.Pack(binary.BigEndian, &t)
	log.PanicIf(err)
	copy(r.raw[ribOffsetTrailer:ribOffsetTrailer+7], data)
}

// LastSize is the byte count used within the file's final logical sector.
// A raw trailer value of zero or greater than a sector's size is corrupt --
// the original filesystem's last_size field can never legitimately hold
// either -- and is read back as 128 (a full sector) instead. This
// correction is applied on every read; the backing bytes are never
// rewritten.
func (r *Rib) LastSize() uint8 {
	raw := r.decodeTrailer().LastSize
	if raw == 0 || raw > SectorSize {
		return SectorSize
	}
	return raw
}

// SetLastSize sets the byte count used within the file's final logical
// sector.
func (r *Rib) SetLastSize(n uint8) {
	t := r.decodeTrailer()
	t.LastSize = n
	r.encodeTrailer(t)
}

// SectorCount is the file's total sector count, including the Rib's own
// logical sector 0. A raw trailer value that is zero, implausibly large, or
// disagrees by more than one sector with the count derived from the
// segment chain's own terminator is corrupt, and is read back as the
// terminator-derived count instead. As with LastSize, this correction is
// read-time only: it never rewrites the backing bytes, so a later SetSDWs
// call that changes the terminator naturally changes what SectorCount
// reports without any explicit reconciliation step.
func (r *Rib) SectorCount() uint16 {
	raw := r.decodeTrailer().SectorCount

	term, found := r.Terminator()
	if found == false {
		return raw
	}

	derived := uint16(term.LastLogicalSector() + 1)

	disagreement := int(raw) - int(derived)
	if disagreement < 0 {
		disagreement = -disagreement
	}

	if raw == 0 || raw > 1000 || disagreement > 1 {
		return derived
	}

	return raw
}

// SetSectorCount sets the file's total sector count.
func (r *Rib) SetSectorCount(n uint16) {
	t := r.decodeTrailer()
	t.SectorCount = n
	r.encodeTrailer(t)
}

// LoadAddress is the memory address an image-type file expects to be
// loaded at.
func (r *Rib) LoadAddress() uint16 {
	return r.decodeTrailer().LoadAddress
}

// SetLoadAddress sets the load address.
func (r *Rib) SetLoadAddress(n uint16) {
	t := r.decodeTrailer()
	t.LoadAddress = n
	r.encodeTrailer(t)
}

// EntryAddress is the memory address execution should resume at for an
// executable image-type file.
func (r *Rib) EntryAddress() uint16 {
	return r.decodeTrailer().EntryAddress
}

// SetEntryAddress sets the entry address.
func (r *Rib) SetEntryAddress(n uint16) {
	t := r.decodeTrailer()
	t.EntryAddress = n
	r.encodeTrailer(t)
}

// FileByteLength computes the file's logical byte length from SectorCount
// and LastSize. SectorCount includes the Rib's own logical sector 0, so
// sc-1 is the number of data sectors; every data sector but the last is
// assumed full.
func (r *Rib) FileByteLength() int64 {
	sc := int(r.SectorCount())
	dataSectors := sc - 1
	if dataSectors <= 0 {
		return 0
	}
	full := dataSectors - 1
	return int64(full)*SectorSize + int64(r.LastSize())
}

// lsnToPSN resolves a file-logical sector number (0 is the Rib itself, 1 is
// the first data sector) to the physical sector it lives at, by walking the
// active segment chain. Logical sector 0 (or below) is rejected with an
// error -- callers read the Rib itself directly rather than through this
// path.
func (r *Rib) lsnToPSN(lsn int) (psn PSN, err error) {
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

	if lsn <= 0 {
		log.Panicf("logical sector must be positive: (%d)", lsn)
	}

	dataIndex := lsn - 1

	offset := 0
	for _, s := range r.ActiveSDWs() {
		start, count := s.ClusterRange()
		segSectors := count * SectorsPerCluster
		if dataIndex < offset+segSectors {
			within := dataIndex - offset
			return PSN(start*SectorsPerCluster + within), nil
		}
		offset += segSectors
	}

	return 0, ErrInvalid
}
