package cpm_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dargueta/v9kfs"
	"github.com/dargueta/v9kfs/block"
	"github.com/dargueta/v9kfs/cpm"
	"github.com/dargueta/v9kfs/v9kfstest"
)

func buildFakeCpmImage(t *testing.T) (*block.Device, cpm.Layout) {
	t.Helper()
	layout := cpm.Layout{
		ReservedSectors:  2,
		DirectoryExtents: 16, // one sector's worth
		BlockSizeBytes:   1024,
	}

	const totalSectors = 80
	raw := make([]byte, totalSectors*v9kfs.SectorSize)

	dirOffset := int(layout.ReservedSectors) * v9kfs.SectorSize
	entry := make([]byte, cpm.ExtentSize)
	entry[0] = 0 // user 0
	copy(entry[1:9], "HELLO   ")
	copy(entry[9:12], "TXT")
	entry[12] = 0 // extent 0
	entry[15] = 2 // 2 records == 256 bytes
	entry[16] = 0
	entry[17] = 0 // block 0 (first data block)
	copy(raw[dirOffset:dirOffset+cpm.ExtentSize], entry)

	dataStart := int(layout.ReservedSectors) + 1 // directory occupies 1 sector
	payload := make([]byte, 256)
	for i := range payload {
		payload[i] = byte(i)
	}
	copy(raw[dataStart*v9kfs.SectorSize:], payload)

	stream := v9kfstest.NewMemoryImageFromBytes(raw)
	dev := block.New(stream, 0, totalSectors)
	return dev, layout
}

func TestVolume_List_FindsFile(t *testing.T) {
	dev, layout := buildFakeCpmImage(t)
	vol, err := cpm.Open(dev, layout)
	require.Nil(t, err)

	entries, lerr := vol.List()
	require.Nil(t, lerr)
	require.Len(t, entries, 1)
	assert.Equal(t, "HELLO.TXT", entries[0].Name)
	assert.EqualValues(t, 256, entries[0].Size)
}

func TestVolume_Extract_ReturnsFileBytes(t *testing.T) {
	dev, layout := buildFakeCpmImage(t)
	vol, err := cpm.Open(dev, layout)
	require.Nil(t, err)

	data, eerr := vol.Extract("HELLO.TXT")
	require.Nil(t, eerr)
	require.Len(t, data, 256)
	assert.EqualValues(t, 0, data[0])
	assert.EqualValues(t, 255, data[255])
}

func TestVolume_Extract_NotFound(t *testing.T) {
	dev, layout := buildFakeCpmImage(t)
	vol, err := cpm.Open(dev, layout)
	require.Nil(t, err)

	_, eerr := vol.Extract("NOPE.TXT")
	require.NotNil(t, eerr)
	assert.Equal(t, v9kfs.KindNotFound, eerr.Kind)
}

func TestVolume_MutationsAreRejected(t *testing.T) {
	dev, layout := buildFakeCpmImage(t)
	vol, err := cpm.Open(dev, layout)
	require.Nil(t, err)

	assert.Equal(t, v9kfs.KindReadOnlyVolume, vol.CopyIn("x").Kind)
	assert.Equal(t, v9kfs.KindReadOnlyVolume, vol.Delete("x").Kind)
	assert.Equal(t, v9kfs.KindReadOnlyVolume, vol.SetAttrs("x", 0, 0).Kind)
}

func TestDecodeExtent_SkipsDeletedEntries(t *testing.T) {
	raw := make([]byte, cpm.ExtentSize)
	raw[0] = cpm.DeletedUser
	e := cpm.DecodeExtent(raw)
	assert.True(t, e.Deleted)
}
