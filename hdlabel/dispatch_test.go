package hdlabel_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dargueta/v9kfs"
	"github.com/dargueta/v9kfs/hdlabel"
	"github.com/dargueta/v9kfs/v9kfstest"
)

func buildFakeHardDisk(t *testing.T) []byte {
	t.Helper()
	const totalSectors = 8192
	image := make([]byte, totalSectors*v9kfs.SectorSize)

	vol0Sector := uint16(4)
	vol1Sector := uint16(5)

	physical := hdlabel.PhysicalLabel{
		LabelType:     0x01,
		VolumeSectors: []uint16{vol0Sector, vol1Sector},
	}
	copy(image[0:512], hdlabel.EncodePhysicalLabel(physical))

	vv0 := hdlabel.VirtualVolumeLabel{
		Name:            "FIRST",
		CapacityBlocks:  1233,
		DataStartOffset: 13,
		HostBlockSize:   512,
		AllocationUnit:  4,
		RootDirEntries:  128,
	}
	copy(image[int(vol0Sector)*512:], hdlabel.EncodeVirtualVolumeLabel(vv0))

	vv1 := hdlabel.VirtualVolumeLabel{
		Name:            "SECOND",
		CapacityBlocks:  615,
		DataStartOffset: 11,
		HostBlockSize:   512,
		AllocationUnit:  4,
		RootDirEntries:  128,
	}
	copy(image[int(vol1Sector)*512:], hdlabel.EncodeVirtualVolumeLabel(vv1))

	return image
}

func TestDisk_PartitionTable(t *testing.T) {
	stream := v9kfstest.NewMemoryImageFromBytes(buildFakeHardDisk(t))
	disk, err := hdlabel.Open(stream)
	require.Nil(t, err)
	assert.Equal(t, 2, disk.VolumeCount())

	rows, terr := disk.PartitionTable()
	require.Nil(t, terr)
	require.Len(t, rows, 2)
	assert.Equal(t, "FIRST", rows[0].Name)
	assert.Equal(t, "SECOND", rows[1].Name)
}

func TestDisk_OpenVolume(t *testing.T) {
	stream := v9kfstest.NewMemoryImageFromBytes(buildFakeHardDisk(t))
	disk, err := hdlabel.Open(stream)
	require.Nil(t, err)

	dev, geom, operr := disk.OpenVolume(0)
	require.Nil(t, operr)
	require.NotNil(t, dev)
	assert.EqualValues(t, 1233, geom.TotalSectors)
	assert.EqualValues(t, 4, geom.SectorsPerCluster)
}

func TestDisk_OpenVolume_OutOfRange(t *testing.T) {
	stream := v9kfstest.NewMemoryImageFromBytes(buildFakeHardDisk(t))
	disk, err := hdlabel.Open(stream)
	require.Nil(t, err)

	_, _, operr := disk.OpenVolume(5)
	require.NotNil(t, operr)
	assert.Equal(t, v9kfs.KindPartitionOutOfRange, operr.Kind)
}
