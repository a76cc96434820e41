package v9kfs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePathExpression_ImageOnly(t *testing.T) {
	expr, err := ParsePathExpression("image.img")
	require.Nil(t, err)
	assert.Equal(t, "image.img", expr.ImagePath)
	assert.False(t, expr.HasPartition)
	assert.Empty(t, expr.Components)
}

func TestParsePathExpression_WithComponents(t *testing.T) {
	expr, err := ParsePathExpression(`image.img:\DIR\FILE.TXT`)
	require.Nil(t, err)
	assert.Equal(t, "image.img", expr.ImagePath)
	assert.False(t, expr.HasPartition)
	assert.Equal(t, []string{"DIR", "FILE.TXT"}, expr.Components)
}

func TestParsePathExpression_WithPartitionAndComponents(t *testing.T) {
	expr, err := ParsePathExpression(`vichd.img:1:\`)
	require.Nil(t, err)
	assert.Equal(t, "vichd.img", expr.ImagePath)
	assert.True(t, expr.HasPartition)
	assert.Equal(t, 1, expr.Partition)
	assert.Empty(t, expr.Components)
}

func TestParsePathExpression_WithPartitionNoComponents(t *testing.T) {
	expr, err := ParsePathExpression("vichd.img:0")
	require.Nil(t, err)
	assert.True(t, expr.HasPartition)
	assert.Equal(t, 0, expr.Partition)
}

func TestParsePathExpression_DriveLetterNotMistakenForPartition(t *testing.T) {
	expr, err := ParsePathExpression(`C:\images\vichd.img`)
	require.Nil(t, err)
	assert.Equal(t, `C:\images\vichd.img`, expr.ImagePath)
	assert.False(t, expr.HasPartition)
}

func TestParsePathExpression_RootComponentsStripEmpty(t *testing.T) {
	expr, err := ParsePathExpression(`image.img:\DIR\\FILE.TXT`)
	require.Nil(t, err)
	assert.Equal(t, []string{"DIR", "FILE.TXT"}, expr.Components)
}
