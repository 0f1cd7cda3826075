package mdos

// SectorSize is the fixed size, in bytes, of every MDOS sector.
const SectorSize = 128

// SectorsPerCluster is the number of consecutive sectors a cluster spans.
const SectorsPerCluster = 4

// Fixed well-known sectors and regions (§3 of the filesystem's design
// documentation).
const (
	SectorDiskID      PSN = 0
	SectorCAT         PSN = 1
	SectorLCAT        PSN = 2
	SectorDirFirst    PSN = 3
	SectorDirCount        = 20
	SectorBootFirst   PSN = 23
	SectorBootCount       = 2
	directoryEntrySize    = 16
	entriesPerDirSector   = SectorSize / directoryEntrySize
	maxSegmentDescriptors = 57
	maxOpenFiles          = 16
)

// mkfsSectorsPerTrack and mkfsTracksPerSide describe the geometry written by
// CreateImage. This is deliberately different from the IMD codec's assumed
// 26-sectors/track geometry -- see the imdimage package and DESIGN.md.
const (
	mkfsSectorsPerTrack = 32
	mkfsTracksPerSide   = 77
)

// maxClusters is the number of clusters a single 128-byte CAT sector can
// address: one bit per cluster, 1024 bits. A two-sided maximum-geometry
// image (32*77*2/4 = 1232 clusters) slightly exceeds this -- the same
// single-CAT-sector ceiling the original filesystem design carries -- so
// the outermost few tracks of the largest two-sided images are only
// reachable as raw sectors, never as allocatable cluster space.
const maxClusters = SectorSize * 8

// FileType is the 3-bit file-type code stored in a directory entry's
// attribute-high byte.
type FileType uint8

// File-type codes as defined by MDOS. Only TypeImage and TypeASCII affect
// read behavior; the rest are preserved for round-trip fidelity.
const (
	TypeUserDefined    FileType = 0
	TypeUnknown1       FileType = 1
	TypeImage          FileType = 2
	TypeObject         FileType = 3
	TypeUnknown4       FileType = 4
	TypeASCII          FileType = 5
	TypeUnknown6       FileType = 6
	TypeASCIIConverted FileType = 7
)

func (t FileType) String() string {
	switch t {
	case TypeUserDefined:
		return "user-defined"
	case TypeImage:
		return "image"
	case TypeObject:
		return "object"
	case TypeASCII:
		return "ascii"
	case TypeASCIIConverted:
		return "ascii-converted"
	default:
		return "unknown"
	}
}

// Attribute flags packed into a directory entry's attribute-high byte
// alongside the 3-bit FileType.
const (
	attrWriteProtect  = 0x80
	attrDeleteProtect = 0x40
	attrSystem        = 0x20
	attrContiguous    = 0x10
	attrCompressed    = 0x08
)

// OpenFlag mirrors the POSIX-style open(2) flags MDOS's file engine
// recognizes.
type OpenFlag int

const (
	ORdOnly OpenFlag = 0x01
	OWrOnly OpenFlag = 0x02
	ORdWr   OpenFlag = 0x03
	OCreat  OpenFlag = 0x04
	OTrunc  OpenFlag = 0x08
)

// Whence selects the reference point for Lseek.
type Whence int

const (
	SeekSet Whence = iota
	SeekCur
	SeekEnd
)
