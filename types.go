package v9kfs

import "time"

// FormatVariant identifies which on-disk layout a Geometry describes.
type FormatVariant int

const (
	FormatUnknown FormatVariant = iota
	FormatVictorSS
	FormatVictorDS
	FormatIbmPc360
	FormatIbmPc720
	FormatIbmPc12M
	FormatIbmPc144M
	FormatVictorHdVolume
	FormatCpm86
)

func (v FormatVariant) String() string {
	switch v {
	case FormatVictorSS:
		return "VictorSS"
	case FormatVictorDS:
		return "VictorDS"
	case FormatIbmPc360:
		return "IbmPc360"
	case FormatIbmPc720:
		return "IbmPc720"
	case FormatIbmPc12M:
		return "IbmPc12M"
	case FormatIbmPc144M:
		return "IbmPc144M"
	case FormatVictorHdVolume:
		return "VictorHdVolume"
	case FormatCpm86:
		return "Cpm86"
	default:
		return "Unknown"
	}
}

// SectorSize is the fixed sector size this engine supports.
const SectorSize = 512

// Geometry is the immutable, fully-resolved description of a volume's
// layout. Once returned by detection it must never be mutated; derived
// values (DataStartSector, TotalClusters, ...) are computed once.
type Geometry struct {
	SectorSize         uint32
	TotalSectors       uint32
	ReservedSectors    uint32
	FatCount           uint32
	FatSectors         uint32
	RootDirSectors     uint32
	RootDirEntries     uint32
	DataStartSector    uint32
	SectorsPerCluster  uint32
	TotalClusters      uint32
	MediaDescriptor    byte
	FormatVariant      FormatVariant
	IsVictorBootSector bool
}

// BytesPerCluster returns the number of bytes in a single cluster.
func (g Geometry) BytesPerCluster() uint32 {
	return g.SectorsPerCluster * g.SectorSize
}

// RootDirStartSector returns the sector at which the (fixed-size) root
// directory begins. It is meaningless for format variants whose root
// directory lives in a cluster chain (none do in this engine; all root
// directories here are fixed-size).
func (g Geometry) RootDirStartSector() uint32 {
	return g.ReservedSectors + g.FatCount*g.FatSectors
}

// ClusterToSector converts a cluster number (first valid cluster is 2) to
// its first absolute sector.
func (g Geometry) ClusterToSector(cluster uint32) uint32 {
	return g.DataStartSector + (cluster-2)*g.SectorsPerCluster
}

// Attrs holds the bits of a FAT directory entry's attribute byte that this
// engine understands.
type Attrs uint8

const (
	AttrReadOnly Attrs = 1 << iota
	AttrHidden
	AttrSystem
	AttrVolumeLabel
	AttrSubdirectory
	AttrArchive
)

// MutableMask is the set of attribute bits SetAttrs is allowed to touch.
// The volume-label bit is never modified through it.
const MutableMask = AttrReadOnly | AttrHidden | AttrSystem | AttrSubdirectory | AttrArchive

// FatEpoch is the earliest representable FAT timestamp, 1980-01-01 00:00:00,
// used as the sentinel for an all-zero date/time field.
var FatEpoch = time.Date(1980, time.January, 1, 0, 0, 0, 0, time.UTC)

// DirEntry is the caller-facing, decoded form of a 32-byte FAT directory
// entry.
type DirEntry struct {
	Name         string
	Attrs        Attrs
	FirstCluster uint32
	Size         uint32
	CreatedAt    time.Time
	ModifiedAt   time.Time
	AccessedAt   time.Time
	Deleted      bool
}

func (d DirEntry) IsDir() bool { return d.Attrs&AttrSubdirectory != 0 }

func (d DirEntry) IsVolumeLabel() bool { return d.Attrs&AttrVolumeLabel != 0 }

func (d DirEntry) IsReadOnly() bool { return d.Attrs&AttrReadOnly != 0 }

// CrossLinkedCluster identifies a cluster reachable from more than one
// directory entry's chain, along with the paths of the colliding entries.
type CrossLinkedCluster struct {
	Cluster uint32
	Entries []string
}

// VerifyReport is the result of running Verify against a volume.
type VerifyReport struct {
	OrphanClusters         []uint32
	CrossLinkedClusters    []uint32
	CrossLinkedEntries     []CrossLinkedCluster
	NonTerminatingChains   []uint32 // first cluster of each offending chain
	EntriesOutsideDataArea []string // path of each offending directory entry
	Fat1Fat2Divergent      bool
}

// OK reports whether verify found no problems at all.
func (r VerifyReport) OK() bool {
	return len(r.OrphanClusters) == 0 &&
		len(r.CrossLinkedClusters) == 0 &&
		len(r.NonTerminatingChains) == 0 &&
		len(r.EntriesOutsideDataArea) == 0 &&
		!r.Fat1Fat2Divergent
}

// Stats summarises a volume: space usage, entry counts, the volume label,
// and the resolved geometry.
type Stats struct {
	Geometry          Geometry
	Label             string
	TotalClusters     uint32
	UsedClusters      uint32
	FreeClusters      uint32
	TotalBytes        uint64
	FreeBytes         uint64
	FileCount         uint32
	SubdirectoryCount uint32
}
