package hdlabel

import (
	"io"

	"github.com/dargueta/v9kfs"
	"github.com/dargueta/v9kfs/block"
)

// PartitionTableRow is one synthetic row of the partition table List
// yields when a hard-disk path has no `:N:` prefix.
type PartitionTableRow struct {
	Index int
	Name  string
	Size  uint32 // capacity in sectors
}

// Disk is an opened Victor hard-disk image: the physical label plus enough
// context to dispatch to any of its volumes on demand.
type Disk struct {
	stream io.ReadWriteSeeker
	Label  PhysicalLabel
}

// Open reads and parses sector 0 of stream as a Victor physical label.
func Open(stream io.ReadWriteSeeker) (*Disk, *v9kfs.Error) {
	dev := block.New(stream, 0, 1)
	sector, err := dev.ReadSectors(0, 1)
	if err != nil {
		return nil, err
	}

	label, derr := DecodePhysicalLabel(sector)
	if derr != nil {
		return nil, derr
	}
	return &Disk{stream: stream, Label: label}, nil
}

// VolumeCount reports how many virtual volumes this disk's label lists.
func (d *Disk) VolumeCount() int {
	return len(d.Label.VolumeSectors)
}

// PartitionTable builds the synthetic rows List returns when no partition
// index was given.
func (d *Disk) PartitionTable() ([]PartitionTableRow, *v9kfs.Error) {
	rows := make([]PartitionTableRow, 0, len(d.Label.VolumeSectors))
	for i, sectorAddr := range d.Label.VolumeSectors {
		vv, _, err := d.readVirtualLabel(sectorAddr)
		if err != nil {
			return nil, err
		}
		rows = append(rows, PartitionTableRow{Index: i, Name: vv.Name, Size: uint32(vv.CapacityBlocks)})
	}
	return rows, nil
}

func (d *Disk) readVirtualLabel(labelSector uint16) (VirtualVolumeLabel, uint32, *v9kfs.Error) {
	wholeDev := block.New(d.stream, 0, uint32(labelSector)+1)
	raw, err := wholeDev.ReadSectors(uint32(labelSector), 1)
	if err != nil {
		return VirtualVolumeLabel{}, 0, err
	}
	vv, derr := DecodeVirtualVolumeLabel(raw)
	return vv, uint32(labelSector), derr
}

// OpenVolume selects the N-th virtual volume (zero-based), returning its
// resolved Geometry and a block.Device scoped to the volume's slice of the
// disk, `[volume_start_sector*512, (volume_start_sector +
// capacity_blocks)*512)`, with every FAT and directory offset local to
// that slice.
func (d *Disk) OpenVolume(n int) (*block.Device, v9kfs.Geometry, *v9kfs.Error) {
	if n < 0 || n >= len(d.Label.VolumeSectors) {
		return nil, v9kfs.Geometry{}, v9kfs.ErrPartitionOutOfRange.WithMessage(
			"partition %d out of range [0, %d)", n, len(d.Label.VolumeSectors))
	}

	labelSector := d.Label.VolumeSectors[n]
	vv, _, err := d.readVirtualLabel(labelSector)
	if err != nil {
		return nil, v9kfs.Geometry{}, err
	}

	geom := vv.ToGeometry()
	startOffset := int64(labelSector) * v9kfs.SectorSize
	dev := block.New(d.stream, startOffset, geom.TotalSectors)
	return dev, geom, nil
}
