package fat12_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dargueta/v9kfs"
	"github.com/dargueta/v9kfs/fat12"
)

func testGeometry(totalClusters uint32) v9kfs.Geometry {
	return v9kfs.Geometry{
		SectorSize:        512,
		SectorsPerCluster: 4,
		TotalClusters:     totalClusters,
		MediaDescriptor:   0x01,
		FatSectors:        2,
		FatCount:          2,
		ReservedSectors:   1,
	}
}

func newTestTable(t *testing.T, totalClusters uint32) (*fat12.Table, v9kfs.Geometry) {
	t.Helper()
	geom := testGeometry(totalClusters)
	table := fat12.NewTable(geom)
	return table, geom
}

func TestAllocateChain_LinksSequentially(t *testing.T) {
	table, geom := newTestTable(t, 20)
	alloc := fat12.NewAllocator(table, geom)

	chain, err := alloc.AllocateChain(3)
	require.Nil(t, err)
	require.Len(t, chain, 3)
	assert.Equal(t, []uint32{2, 3, 4}, chain)

	assert.Equal(t, uint16(3), table.Get(2))
	assert.Equal(t, uint16(4), table.Get(3))
	assert.Equal(t, uint16(0xFFF), table.Get(4))
}

func TestAllocateChain_FailsWithoutMutatingFatWhenOutOfSpace(t *testing.T) {
	table, geom := newTestTable(t, 2)
	alloc := fat12.NewAllocator(table, geom)

	_, err := alloc.AllocateChain(5)
	require.NotNil(t, err)
	assert.Equal(t, v9kfs.KindOutOfSpace, err.Kind)

	// Nothing allocated: both clusters still read as free.
	assert.Equal(t, uint16(0), table.Get(2))
	assert.Equal(t, uint16(0), table.Get(3))
}

func TestWalkChain_FollowsToEOC(t *testing.T) {
	table, geom := newTestTable(t, 10)
	table.Set(2, 3)
	table.Set(3, 5)
	table.Set(5, 0xFFF)

	alloc := fat12.NewAllocator(table, geom)
	chain, err := alloc.WalkChain(2)
	require.Nil(t, err)
	assert.Equal(t, []uint32{2, 3, 5}, chain)
}

func TestWalkChain_DetectsCycle(t *testing.T) {
	table, geom := newTestTable(t, 10)
	table.Set(2, 3)
	table.Set(3, 2) // cycle

	alloc := fat12.NewAllocator(table, geom)
	_, err := alloc.WalkChain(2)
	require.NotNil(t, err)
	assert.Equal(t, v9kfs.KindCorruptChain, err.Kind)
}

func TestWalkChain_DetectsOutOfRangePointer(t *testing.T) {
	table, geom := newTestTable(t, 10)
	table.Set(2, 9999)

	alloc := fat12.NewAllocator(table, geom)
	_, err := alloc.WalkChain(2)
	require.NotNil(t, err)
	assert.Equal(t, v9kfs.KindCorruptChain, err.Kind)
}

func TestFreeChain_MarksClustersFreeAndReallocatable(t *testing.T) {
	table, geom := newTestTable(t, 10)
	alloc := fat12.NewAllocator(table, geom)

	chain, err := alloc.AllocateChain(3)
	require.Nil(t, err)

	require.Nil(t, alloc.FreeChain(chain[0]))
	for _, c := range chain {
		assert.Equal(t, uint16(0), table.Get(c))
	}

	// The freed clusters should be available again: the next-fit cursor sits
	// past them, so claiming every cluster on the volume has to wrap round
	// and reuse them.
	newChain, err := alloc.AllocateChain(10)
	require.Nil(t, err)
	assert.Subset(t, newChain, chain)
}

func TestFindCrossLinks_DetectsSharedCluster(t *testing.T) {
	table, geom := newTestTable(t, 10)
	// File A: 2 -> 3 -> EOC. File B: 4 -> 3 -> EOC (shares cluster 3).
	table.Set(2, 3)
	table.Set(3, 0xFFF)
	table.Set(4, 3)

	alloc := fat12.NewAllocator(table, geom)
	crossLinked, owners, err := alloc.FindCrossLinks([]uint32{2, 4})
	require.Nil(t, err)
	assert.Equal(t, []uint32{3}, crossLinked)
	assert.Equal(t, [2]int{0, 1}, owners[3])
}

func TestFindOrphans_DetectsUnreachableCluster(t *testing.T) {
	table, geom := newTestTable(t, 10)
	table.Set(2, 0xFFF)
	// Cluster 5 marked in-use but not referenced by any directory chain.
	table.Set(5, 0xFFF)

	alloc := fat12.NewAllocator(table, geom)
	orphans, err := alloc.FindOrphans([]uint32{2})
	require.Nil(t, err)
	assert.Equal(t, []uint32{5}, orphans)
}

func TestFreeClusterCount(t *testing.T) {
	table, geom := newTestTable(t, 5)
	alloc := fat12.NewAllocator(table, geom)
	assert.EqualValues(t, 5, alloc.FreeClusterCount())

	_, err := alloc.AllocateChain(2)
	require.Nil(t, err)
	assert.EqualValues(t, 3, alloc.FreeClusterCount())
}
