package fat12_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dargueta/v9kfs/fat12"
)

func TestEncodeDecodeEntry_RoundTrip(t *testing.T) {
	for _, v := range []uint16{0x000, 0x001, 0x002, 0x7FF, 0xABC, 0xFFF} {
		fat := make([]byte, 16)
		fat12.EncodeEntry(fat, 3, v)
		assert.Equal(t, v, fat12.DecodeEntry(fat, 3), "value %#x", v)
	}
}

func TestEncodeEntry_PreservesNeighborEvenThenOdd(t *testing.T) {
	fat := make([]byte, 16)
	fat12.EncodeEntry(fat, 2, 0x123)
	fat12.EncodeEntry(fat, 3, 0x456)

	assert.Equal(t, uint16(0x123), fat12.DecodeEntry(fat, 2))
	assert.Equal(t, uint16(0x456), fat12.DecodeEntry(fat, 3))
}

func TestEncodeEntry_PreservesNeighborOddThenEven(t *testing.T) {
	fat := make([]byte, 16)
	fat12.EncodeEntry(fat, 3, 0x456)
	fat12.EncodeEntry(fat, 4, 0x789)

	assert.Equal(t, uint16(0x456), fat12.DecodeEntry(fat, 3))
	assert.Equal(t, uint16(0x789), fat12.DecodeEntry(fat, 4))
}

func TestInitHeaderEntries(t *testing.T) {
	fat := make([]byte, 16)
	fat12.InitHeaderEntries(fat, 0xF0)

	assert.Equal(t, uint16(0xFF0), fat12.DecodeEntry(fat, 0))
	assert.Equal(t, uint16(0xFFF), fat12.DecodeEntry(fat, 1))
}

func TestValidateHeaderEntries(t *testing.T) {
	fat := make([]byte, 16)
	fat12.InitHeaderEntries(fat, 0x01)
	assert.Nil(t, fat12.ValidateHeaderEntries(fat, 0x01))

	fat[0] = 0x00
	assert.NotNil(t, fat12.ValidateHeaderEntries(fat, 0x01))
}

func TestIsEndOfChainBoundaries(t *testing.T) {
	assert.False(t, fat12.IsEndOfChain(0xFF7))
	assert.True(t, fat12.IsEndOfChain(0xFF8))
	assert.True(t, fat12.IsEndOfChain(0xFFF))
}

func TestFatByteSize(t *testing.T) {
	// 354 data clusters + 2 header entries = 356 entries, 1.5 bytes each.
	assert.EqualValues(t, 534, fat12.FatByteSize(354))
}
