package fat12

import (
	"sort"

	"github.com/boljen/go-bitmap"

	"github.com/dargueta/v9kfs"
)

// Allocator walks and allocates cluster chains against a Table. It keeps a
// bitmap mirror of which clusters are free purely as a fast-lookup cache;
// the Table's FAT entries remain the single source of truth and are what
// gets persisted. The next-fit search cursor is per-Allocator and starts
// at cluster 2.
type Allocator struct {
	table  *Table
	geom   v9kfs.Geometry
	free   bitmap.Bitmap
	cursor uint32
}

// NewAllocator builds an Allocator over table, scanning every data cluster
// once to seed the free-cluster bitmap.
func NewAllocator(table *Table, geom v9kfs.Geometry) *Allocator {
	a := &Allocator{
		table:  table,
		geom:   geom,
		free:   bitmap.New(int(geom.TotalClusters)),
		cursor: 2,
	}
	for c := uint32(2); c < geom.TotalClusters+2; c++ {
		if IsFree(table.Get(c)) {
			a.free.Set(int(c-2), true)
		}
	}
	return a
}

func (a *Allocator) isFreeCluster(c uint32) bool {
	return a.free.Get(int(c - 2))
}

func (a *Allocator) markAllocated(c uint32) {
	a.free.Set(int(c-2), false)
}

func (a *Allocator) markFree(c uint32) {
	a.free.Set(int(c-2), true)
}

func (a *Allocator) lastValidCluster() uint32 {
	return a.geom.TotalClusters + 1
}

// WalkChain follows the cluster chain starting at first, returning every
// cluster visited in order. It fails with ErrCorruptChain on a cycle, an
// out-of-range pointer, or a pointer into the reserved entry range.
func (a *Allocator) WalkChain(first uint32) ([]uint32, *v9kfs.Error) {
	if first == 0 {
		return nil, nil
	}

	visited := bitmap.New(int(a.geom.TotalClusters))
	chain := make([]uint32, 0, 8)
	c := first

	for i := uint32(0); i <= a.geom.TotalClusters; i++ {
		if c < MinDataCluster || c > a.lastValidCluster() {
			return nil, v9kfs.ErrCorruptChain.WithMessage(
				"cluster pointer %#x out of range [%#x, %#x]", c, MinDataCluster, a.lastValidCluster())
		}
		if visited.Get(int(c - 2)) {
			return nil, v9kfs.ErrCorruptChain.WithMessage("cycle detected at cluster %#x", c)
		}
		visited.Set(int(c-2), true)
		chain = append(chain, c)

		entry := a.table.Get(c)
		if IsEndOfChain(entry) {
			return chain, nil
		}
		if entry == EntryFree || entry == EntryBad || (entry >= MinReservedTail && entry <= MaxReservedTail) {
			return nil, v9kfs.ErrCorruptChain.WithMessage(
				"cluster %#x points into the reserved entry range (%#x)", c, entry)
		}
		c = uint32(entry)
	}

	return nil, v9kfs.ErrCorruptChain.WithMessage("chain exceeds total cluster count without reaching EOC")
}

// AllocateChain finds n free clusters by next-fit search starting at the
// allocator's cursor, links them into a chain terminated by EOC (0xFFF), and
// returns the cluster numbers in chain order. If fewer than n clusters are
// free, it fails with ErrOutOfSpace and leaves the FAT untouched: the full
// scan completes first, and only once n clusters are confirmed free does it
// write anything, so there is no partial-allocation state to roll back.
func (a *Allocator) AllocateChain(n uint32) ([]uint32, *v9kfs.Error) {
	if n == 0 {
		return nil, nil
	}

	start := a.cursor
	if start == 0 {
		start = 2
	}

	found := make([]uint32, 0, n)
	c := start
	for i := uint32(0); i < a.geom.TotalClusters && uint32(len(found)) < n; i++ {
		if a.isFreeCluster(c) {
			found = append(found, c)
		}
		c++
		if c > a.lastValidCluster() {
			c = 2
		}
	}

	if uint32(len(found)) < n {
		return nil, v9kfs.ErrOutOfSpace.WithMessage(
			"requested %d clusters, only %d free", n, len(found))
	}

	for i, cl := range found {
		if i == len(found)-1 {
			a.table.Set(cl, MaxEOC)
		} else {
			a.table.Set(cl, uint16(found[i+1]))
		}
		a.markAllocated(cl)
	}

	a.cursor = c
	return found, nil
}

// FreeChain walks the chain starting at first and marks every cluster in it
// free. It does not touch the underlying data sectors.
func (a *Allocator) FreeChain(first uint32) *v9kfs.Error {
	clusters, err := a.WalkChain(first)
	if err != nil {
		return err
	}
	for _, c := range clusters {
		a.table.Set(c, EntryFree)
		a.markFree(c)
	}
	return nil
}

// FreeClusterCount returns the number of clusters currently marked free.
func (a *Allocator) FreeClusterCount() uint32 {
	count := uint32(0)
	for c := uint32(2); c < a.geom.TotalClusters+2; c++ {
		if a.isFreeCluster(c) {
			count++
		}
	}
	return count
}

// FindCrossLinks scans every in-use chain reachable from the given set of
// chain heads and reports clusters that appear in more than one chain,
// sorted ascending by cluster index, together with the index (into heads)
// of the first two chains found to collide on each one, so the caller can
// identify the offending directory entries.
func (a *Allocator) FindCrossLinks(heads []uint32) ([]uint32, map[uint32][2]int, *v9kfs.Error) {
	owner := make(map[uint32]int)
	collider := make(map[uint32]int)
	crossLinked := make(map[uint32]bool)

	for idx, head := range heads {
		chain, err := a.WalkChain(head)
		if err != nil {
			return nil, nil, err
		}
		for _, c := range chain {
			if prevIdx, seen := owner[c]; seen && prevIdx != idx {
				crossLinked[c] = true
				if _, recorded := collider[c]; !recorded {
					collider[c] = idx
				}
			} else {
				owner[c] = idx
			}
		}
	}

	result := make([]uint32, 0, len(crossLinked))
	owners := make(map[uint32][2]int, len(crossLinked))
	for c := range crossLinked {
		result = append(result, c)
		owners[c] = [2]int{owner[c], collider[c]}
	}
	sort.Slice(result, func(i, j int) bool { return result[i] < result[j] })
	return result, owners, nil
}

// FindOrphans returns every in-use cluster (FAT entry >= 0x002, not bad)
// that is not reachable from any chain head in `heads`.
func (a *Allocator) FindOrphans(heads []uint32) ([]uint32, *v9kfs.Error) {
	reachable := make(map[uint32]bool)
	for _, head := range heads {
		chain, err := a.WalkChain(head)
		if err != nil {
			return nil, err
		}
		for _, c := range chain {
			reachable[c] = true
		}
	}

	var orphans []uint32
	for c := uint32(2); c < a.geom.TotalClusters+2; c++ {
		entry := a.table.Get(c)
		if entry == EntryFree || entry == EntryBad {
			continue
		}
		if !reachable[c] {
			orphans = append(orphans, c)
		}
	}
	sort.Slice(orphans, func(i, j int) bool { return orphans[i] < orphans[j] })
	return orphans, nil
}
