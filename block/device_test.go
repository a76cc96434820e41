package block_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dargueta/v9kfs/block"
	"github.com/dargueta/v9kfs/v9kfstest"
)

func TestDevice_WriteThenReadSectors(t *testing.T) {
	stream := v9kfstest.NewMemoryImage(10 * block.SectorSize)
	dev := block.New(stream, 0, 10)

	payload := make([]byte, block.SectorSize*2)
	for i := range payload {
		payload[i] = byte(i)
	}

	err := dev.WriteSectors(3, payload)
	require.Nil(t, err)

	got, err := dev.ReadSectors(3, 2)
	require.Nil(t, err)
	assert.Equal(t, payload, got)
}

func TestDevice_ReadOutOfBoundsFails(t *testing.T) {
	stream := v9kfstest.NewMemoryImage(4 * block.SectorSize)
	dev := block.New(stream, 0, 4)

	_, err := dev.ReadSectors(3, 2)
	require.NotNil(t, err)
}

func TestDevice_StartOffsetIsRespected(t *testing.T) {
	// A "hard disk" with two volumes: the second volume's sector 0 actually
	// lives 5 sectors into the underlying image.
	stream := v9kfstest.NewMemoryImage(10 * block.SectorSize)
	volume := block.New(stream, 5*block.SectorSize, 5)

	payload := make([]byte, block.SectorSize)
	for i := range payload {
		payload[i] = 0xAB
	}
	require.Nil(t, volume.WriteSectors(0, payload))

	rawDevice := block.New(stream, 0, 10)
	got, err := rawDevice.ReadSectors(5, 1)
	require.Nil(t, err)
	assert.Equal(t, payload, got)
}

func TestDevice_WriteNotMultipleOfSectorSizeFails(t *testing.T) {
	stream := v9kfstest.NewMemoryImage(4 * block.SectorSize)
	dev := block.New(stream, 0, 4)

	err := dev.WriteSectors(0, make([]byte, 10))
	require.NotNil(t, err)
}
