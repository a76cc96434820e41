package geometry_test

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dargueta/v9kfs"
	"github.com/dargueta/v9kfs/geometry"
)

func makeIbmPcHeader(totalSectors16 uint16, sectorsPerCluster byte, fatSize16 uint16, rootEntryCount uint16) []byte {
	header := make([]byte, 512)
	binary.LittleEndian.PutUint16(header[0x0B:], 512)
	header[0x0D] = sectorsPerCluster
	binary.LittleEndian.PutUint16(header[0x0E:], 1)
	header[0x10] = 2
	binary.LittleEndian.PutUint16(header[0x11:], rootEntryCount)
	binary.LittleEndian.PutUint16(header[0x13:], totalSectors16)
	header[0x15] = 0xF9
	binary.LittleEndian.PutUint16(header[0x16:], fatSize16)
	header[0x1FE] = 0x55
	header[0x1FF] = 0xAA
	return header
}

func TestDetect_IbmPc144M(t *testing.T) {
	header := makeIbmPcHeader(2880, 1, 9, 224)
	g, err := geometry.Detect(header, 2880*512)
	require.Nil(t, err)
	assert.Equal(t, v9kfs.FormatIbmPc144M, g.FormatVariant)
	assert.EqualValues(t, 1, g.ReservedSectors)
	assert.EqualValues(t, 9, g.FatSectors)
	// FAT1 at sectors 1-9, FAT2 at 10-18, root at 19-32; data starts
	// immediately after, at sector 33.
	assert.EqualValues(t, 33, g.DataStartSector)
}

func TestDetect_IbmPc360(t *testing.T) {
	header := makeIbmPcHeader(720, 2, 2, 112)
	g, err := geometry.Detect(header, 720*512)
	require.Nil(t, err)
	assert.Equal(t, v9kfs.FormatIbmPc360, g.FormatVariant)
}

func TestDetect_VictorDS(t *testing.T) {
	// Boot-sector offset 32 byte = 0x01 (double-sided), offset 28 word =
	// 0x0000, so the default data_start applies.
	header := make([]byte, 64)
	header[32] = 0x01

	g, ok := geometryForVictor(t, header)
	assert.True(t, ok)
	assert.Equal(t, v9kfs.FormatVictorDS, g.FormatVariant)
	assert.EqualValues(t, 2, g.FatSectors)
	assert.EqualValues(t, 13, g.DataStartSector)
	assert.EqualValues(t, 4, g.SectorsPerCluster)
}

func TestDetect_VictorSS(t *testing.T) {
	header := make([]byte, 64)
	g, ok := geometryForVictor(t, header)
	assert.True(t, ok)
	assert.Equal(t, v9kfs.FormatVictorSS, g.FormatVariant)
	assert.EqualValues(t, 11, g.DataStartSector)
}

func TestDetect_VictorExplicitDataStartOverridesDefault(t *testing.T) {
	header := make([]byte, 64)
	header[32] = 0x01
	binary.LittleEndian.PutUint16(header[28:], 20)

	g, ok := geometryForVictor(t, header)
	require.True(t, ok)
	assert.EqualValues(t, 20, g.DataStartSector)
}

func TestDetect_UnknownFormatFails(t *testing.T) {
	header := make([]byte, 2048)
	_, err := geometry.Detect(header, 123456)
	require.NotNil(t, err)
	assert.Equal(t, v9kfs.KindUnknownFormat, err.Kind)
}

// geometryForVictor calls the package-level Detect but only after confirming
// the header does not happen to also look like an IBM PC BPB (it won't,
// since it lacks the 0x55AA signature).
func geometryForVictor(t *testing.T, header []byte) (v9kfs.Geometry, bool) {
	t.Helper()
	g, err := geometry.Detect(header, int64(len(header)))
	if err != nil {
		return v9kfs.Geometry{}, false
	}
	return g, true
}
