// Package hdlabel implements the Victor hard-disk physical label codec,
// the per-volume virtual label codec, and partition dispatch (mapping a
// zero-based partition index to a volume's geometry and byte range).
//
// The label formats fix the fields and their order but not concrete byte
// offsets. The layout below packs the fields in order with no padding (so
// several 2-byte fields sit at odd offsets), and leaves room for the
// maximum 16-entry volume list in sector 0.
package hdlabel

import (
	"encoding/binary"

	"github.com/dargueta/v9kfs"
)

// MaxVolumeCount is the largest volume_count this engine accepts.
const MaxVolumeCount = 16

// Physical label field offsets within sector 0.
const (
	offLabelType          = 0
	offDeviceID           = 1
	offSerial             = 2
	serialLen             = 16
	offSectorSize         = offSerial + serialLen                      // 18
	offIplVector          = offSectorSize + 2                          // 20
	offPrimaryBootVolume  = offIplVector + 2                           // 22
	offControllerParams   = offPrimaryBootVolume + 1                   // 23
	controllerParamsLen   = 16
	offAvailableMediaList = offControllerParams + controllerParamsLen // 39
	offWorkingMediaList   = offAvailableMediaList + 2                  // 41
	offVolumeCount        = offWorkingMediaList + 2                    // 43
	offVolumeList         = offVolumeCount + 1                         // 44
)

// Virtual volume label field offsets within its own sector.
const (
	voffLabelType       = 0
	voffName            = 1
	nameLen             = 16
	voffIpl             = voffName + nameLen           // 17
	voffCapacityBlocks  = voffIpl + 2                  // 19
	voffDataStartOffset = voffCapacityBlocks + 2        // 21
	voffHostBlockSize   = voffDataStartOffset + 2       // 23
	voffAllocationUnit  = voffHostBlockSize + 2         // 25
	voffRootDirEntries  = voffAllocationUnit + 1        // 26
)

// PhysicalLabel is the decoded form of a Victor hard disk's sector-0
// label.
type PhysicalLabel struct {
	LabelType         byte
	DeviceID          byte
	Serial            [serialLen]byte
	SectorSize        uint16
	IplVector         uint16
	PrimaryBootVolume byte
	VolumeSectors     []uint16 // absolute sector address of each virtual volume label
}

// LooksLikePhysicalLabel reports whether sector is a plausible Victor
// physical label: label_type bit 0 set, sector_size == 512, and
// volume_count in [1, 16].
func LooksLikePhysicalLabel(sector []byte) bool {
	if len(sector) < offVolumeList {
		return false
	}
	if sector[offLabelType]&0x01 == 0 {
		return false
	}
	if binary.LittleEndian.Uint16(sector[offSectorSize:offSectorSize+2]) != 512 {
		return false
	}
	count := sector[offVolumeCount]
	if count < 1 || count > MaxVolumeCount {
		return false
	}
	return len(sector) >= offVolumeList+int(count)*2
}

// DecodePhysicalLabel parses sector 0 of a Victor hard-disk image.
func DecodePhysicalLabel(sector []byte) (PhysicalLabel, *v9kfs.Error) {
	if !LooksLikePhysicalLabel(sector) {
		return PhysicalLabel{}, v9kfs.ErrCorruptLabel.WithMessage("sector 0 is not a valid Victor physical label")
	}

	label := PhysicalLabel{
		LabelType:         sector[offLabelType],
		DeviceID:          sector[offDeviceID],
		SectorSize:        binary.LittleEndian.Uint16(sector[offSectorSize : offSectorSize+2]),
		IplVector:         binary.LittleEndian.Uint16(sector[offIplVector : offIplVector+2]),
		PrimaryBootVolume: sector[offPrimaryBootVolume],
	}
	copy(label.Serial[:], sector[offSerial:offSerial+serialLen])

	count := int(sector[offVolumeCount])
	label.VolumeSectors = make([]uint16, count)
	for i := 0; i < count; i++ {
		off := offVolumeList + i*2
		label.VolumeSectors[i] = binary.LittleEndian.Uint16(sector[off : off+2])
	}
	return label, nil
}

// EncodePhysicalLabel serializes label back into a 512-byte sector, for
// formatting tools that need to build a Victor hard-disk image from
// scratch. Unspecified bytes (controller params, media lists) are left
// zero.
func EncodePhysicalLabel(label PhysicalLabel) []byte {
	sector := make([]byte, v9kfs.SectorSize)
	sector[offLabelType] = label.LabelType | 0x01
	sector[offDeviceID] = label.DeviceID
	copy(sector[offSerial:offSerial+serialLen], label.Serial[:])
	binary.LittleEndian.PutUint16(sector[offSectorSize:offSectorSize+2], 512)
	binary.LittleEndian.PutUint16(sector[offIplVector:offIplVector+2], label.IplVector)
	sector[offPrimaryBootVolume] = label.PrimaryBootVolume
	sector[offVolumeCount] = byte(len(label.VolumeSectors))
	for i, s := range label.VolumeSectors {
		off := offVolumeList + i*2
		binary.LittleEndian.PutUint16(sector[off:off+2], s)
	}
	return sector
}

// VirtualVolumeLabel is the decoded form of one volume's own label.
type VirtualVolumeLabel struct {
	LabelType        byte
	Name             string
	Ipl              uint16
	CapacityBlocks   uint16
	DataStartOffset  uint16
	HostBlockSize    uint16
	AllocationUnit   byte
	RootDirEntries   byte
}

// DecodeVirtualVolumeLabel parses a virtual volume label sector.
func DecodeVirtualVolumeLabel(sector []byte) (VirtualVolumeLabel, *v9kfs.Error) {
	if len(sector) < voffRootDirEntries+1 {
		return VirtualVolumeLabel{}, v9kfs.ErrCorruptLabel.WithMessage("virtual volume label sector too short")
	}
	hostBlockSize := binary.LittleEndian.Uint16(sector[voffHostBlockSize : voffHostBlockSize+2])
	if hostBlockSize != 512 {
		return VirtualVolumeLabel{}, v9kfs.ErrCorruptLabel.WithMessage(
			"virtual volume label has non-512 host_block_size %d", hostBlockSize)
	}

	nameBytes := sector[voffName : voffName+nameLen]
	end := nameLen
	for i, b := range nameBytes {
		if b == 0 {
			end = i
			break
		}
	}

	return VirtualVolumeLabel{
		LabelType:       sector[voffLabelType],
		Name:            string(nameBytes[:end]),
		Ipl:             binary.LittleEndian.Uint16(sector[voffIpl : voffIpl+2]),
		CapacityBlocks:  binary.LittleEndian.Uint16(sector[voffCapacityBlocks : voffCapacityBlocks+2]),
		DataStartOffset: binary.LittleEndian.Uint16(sector[voffDataStartOffset : voffDataStartOffset+2]),
		HostBlockSize:   hostBlockSize,
		AllocationUnit:  sector[voffAllocationUnit],
		RootDirEntries:  sector[voffRootDirEntries],
	}, nil
}

// EncodeVirtualVolumeLabel serializes label back into a 512-byte sector.
func EncodeVirtualVolumeLabel(label VirtualVolumeLabel) []byte {
	sector := make([]byte, v9kfs.SectorSize)
	sector[voffLabelType] = label.LabelType
	copy(sector[voffName:voffName+nameLen], label.Name)
	binary.LittleEndian.PutUint16(sector[voffIpl:voffIpl+2], label.Ipl)
	binary.LittleEndian.PutUint16(sector[voffCapacityBlocks:voffCapacityBlocks+2], label.CapacityBlocks)
	binary.LittleEndian.PutUint16(sector[voffDataStartOffset:voffDataStartOffset+2], label.DataStartOffset)
	binary.LittleEndian.PutUint16(sector[voffHostBlockSize:voffHostBlockSize+2], 512)
	sector[voffAllocationUnit] = label.AllocationUnit
	sector[voffRootDirEntries] = label.RootDirEntries
	return sector
}

// ToGeometry converts a virtual volume label into a resolved Geometry,
// local to that volume's slice of the disk. RootDirEntries is one byte in
// the on-disk label (0 meaning 256, the only value that doesn't fit
// otherwise, since Victor volumes never carry more than that many root
// entries).
func (vv VirtualVolumeLabel) ToGeometry() v9kfs.Geometry {
	rootEntries := uint32(vv.RootDirEntries)
	if rootEntries == 0 {
		rootEntries = 256
	}

	const reservedSectors = 1
	const fatCount = 2
	allocUnit := uint32(vv.AllocationUnit)
	totalSectors := uint32(vv.CapacityBlocks)
	dataStart := uint32(vv.DataStartOffset)
	rootDirSectors := ceilDiv(rootEntries*32, v9kfs.SectorSize)

	fatSectorSpan := dataStart - reservedSectors - rootDirSectors
	fatSectors := fatSectorSpan / fatCount

	totalClusters := uint32(0)
	if totalSectors > dataStart && allocUnit > 0 {
		totalClusters = (totalSectors - dataStart) / allocUnit
	}

	return v9kfs.Geometry{
		SectorSize:         v9kfs.SectorSize,
		TotalSectors:       totalSectors,
		ReservedSectors:    reservedSectors,
		FatCount:           fatCount,
		FatSectors:         fatSectors,
		RootDirSectors:     rootDirSectors,
		RootDirEntries:     rootEntries,
		DataStartSector:    dataStart,
		SectorsPerCluster:  allocUnit,
		TotalClusters:      totalClusters,
		MediaDescriptor:    0x01,
		FormatVariant:      v9kfs.FormatVictorHdVolume,
		IsVictorBootSector: false,
	}
}

func ceilDiv(a, b uint32) uint32 {
	return (a + b - 1) / b
}
