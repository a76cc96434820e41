// Package volume implements the high-level operations against a single
// opened FAT12 volume: listing, copying files in and out, creating
// subdirectories, deleting, setting attributes, formatting pristine
// images, verifying, and reporting statistics. It ties together the block
// device, FAT table/allocator, and directory resolver.
package volume

import (
	"sort"

	"github.com/hashicorp/go-multierror"

	"github.com/dargueta/v9kfs"
	"github.com/dargueta/v9kfs/block"
	"github.com/dargueta/v9kfs/dirent"
	"github.com/dargueta/v9kfs/fat12"
)

// Volume is a single opened FAT12 filesystem: a geometry, a block device
// already scoped to this volume's byte range, and the in-memory FAT cache
// and allocator that mutations stage against before flush.
type Volume struct {
	Dev   *block.Device
	Geom  v9kfs.Geometry
	Table *fat12.Table
	Alloc *fat12.Allocator
	Label string
}

// Open loads the FAT and builds the allocator for a volume whose block
// device and geometry have already been resolved by the caller (the image
// package, which owns detection and, for hard disks, partition dispatch).
func Open(dev *block.Device, geom v9kfs.Geometry) (*Volume, *v9kfs.Error) {
	table, err := fat12.Load(dev, geom)
	if err != nil {
		return nil, err
	}
	return &Volume{
		Dev:   dev,
		Geom:  geom,
		Table: table,
		Alloc: fat12.NewAllocator(table, geom),
	}, nil
}

// rootDirSectorCount derives the root directory's sector span from the
// entry count the geometry reports (32 bytes per entry).
func (v *Volume) rootDirSectorCount() uint32 {
	bytesNeeded := v.Geom.RootDirEntries * dirent.EntrySize
	sectors := bytesNeeded / v9kfs.SectorSize
	if bytesNeeded%v9kfs.SectorSize != 0 {
		sectors++
	}
	return sectors
}

// ReadDirectory implements dirent.Backend: firstCluster 0 reads the fixed
// root directory sectors; anything else walks the cluster chain.
func (v *Volume) ReadDirectory(firstCluster uint32) ([]byte, *v9kfs.Error) {
	if firstCluster == 0 {
		return v.Dev.ReadSectors(v.Geom.RootDirStartSector(), v.rootDirSectorCount())
	}

	chain, err := v.Alloc.WalkChain(firstCluster)
	if err != nil {
		return nil, err
	}

	data := make([]byte, 0, int(v.Geom.BytesPerCluster())*len(chain))
	for _, c := range chain {
		sector := v.Geom.ClusterToSector(c)
		raw, err := v.Dev.ReadSectors(sector, v.Geom.SectorsPerCluster)
		if err != nil {
			return nil, err
		}
		data = append(data, raw...)
	}
	return data, nil
}

// WriteDirectory implements dirent.Backend, writing data back to the root
// directory's fixed sectors or a subdirectory's cluster chain.
func (v *Volume) WriteDirectory(firstCluster uint32, data []byte) *v9kfs.Error {
	if firstCluster == 0 {
		return v.Dev.WriteSectors(v.Geom.RootDirStartSector(), data)
	}

	chain, err := v.Alloc.WalkChain(firstCluster)
	if err != nil {
		return err
	}

	bytesPerCluster := int(v.Geom.BytesPerCluster())
	for i, c := range chain {
		start := i * bytesPerCluster
		end := start + bytesPerCluster
		if start >= len(data) {
			break
		}
		if end > len(data) {
			end = len(data)
		}
		chunk := data[start:end]
		if len(chunk) < bytesPerCluster {
			padded := make([]byte, bytesPerCluster)
			copy(padded, chunk)
			chunk = padded
		}
		if err := v.Dev.WriteSectors(v.Geom.ClusterToSector(c), chunk); err != nil {
			return err
		}
	}
	return nil
}

// GrowDirectory implements dirent.Backend by allocating one more cluster,
// linking it onto the end of the chain, and appending its zero-filled
// bytes.
func (v *Volume) GrowDirectory(firstCluster uint32, current []byte) ([]byte, *v9kfs.Error) {
	if firstCluster == 0 {
		return nil, v9kfs.ErrDirectoryFull.WithMessage("the root directory has a fixed size and cannot grow")
	}

	chain, err := v.Alloc.WalkChain(firstCluster)
	if err != nil {
		return nil, err
	}

	newChain, err := v.Alloc.AllocateChain(1)
	if err != nil {
		return nil, err
	}
	newCluster := newChain[0]

	last := chain[len(chain)-1]
	v.Table.Set(last, uint16(newCluster))
	v.Table.Set(newCluster, fat12.MaxEOC)

	grown := append(append([]byte{}, current...), make([]byte, v.Geom.BytesPerCluster())...)
	return grown, nil
}

var _ dirent.Backend = (*Volume)(nil)

// Flush writes the FAT to both on-disk copies if it has been mutated.
func (v *Volume) Flush() *v9kfs.Error {
	if !v.Table.Dirty() {
		return nil
	}
	return v.Table.Flush(v.Dev)
}

// chainHead pairs a live directory entry's first cluster with its path, for
// use by verify's orphan/cross-link/out-of-range detection.
type chainHead struct {
	cluster uint32
	path    string
}

// collectAllChainHeads walks every live directory entry reachable from the
// root, recursively, and returns the first-cluster and path of every file
// and subdirectory whose FirstCluster falls inside the valid data-cluster
// range [2, total_clusters+1], plus the path of every entry whose
// FirstCluster points outside that range.
func (v *Volume) collectAllChainHeads() (heads []chainHead, outOfRange []string, verr *v9kfs.Error) {
	lastValidCluster := v.Geom.TotalClusters + 1

	var walk func(firstCluster uint32, dirPath string) *v9kfs.Error
	walk = func(firstCluster uint32, dirPath string) *v9kfs.Error {
		data, err := v.ReadDirectory(firstCluster)
		if err != nil {
			return err
		}
		for _, slot := range dirent.ListEntries(data) {
			name := slot.Entry.Name
			if name == "." || name == ".." || slot.Entry.IsVolumeLabel() {
				continue
			}
			if slot.Entry.FirstCluster == 0 {
				continue
			}

			entryPath := dirPath + "\\" + name
			if slot.Entry.FirstCluster < fat12.MinDataCluster || slot.Entry.FirstCluster > lastValidCluster {
				outOfRange = append(outOfRange, entryPath)
				continue
			}

			heads = append(heads, chainHead{cluster: slot.Entry.FirstCluster, path: entryPath})
			if slot.Entry.IsDir() {
				if err := walk(slot.Entry.FirstCluster, entryPath); err != nil {
					return err
				}
			}
		}
		return nil
	}
	if err := walk(0, ""); err != nil {
		return nil, nil, err
	}
	return heads, outOfRange, nil
}

// Verify checks the volume for orphan clusters, cross-linked clusters,
// non-terminating chains, out-of-range directory entries, and FAT1/FAT2
// divergence.
func (v *Volume) Verify() (v9kfs.VerifyReport, *v9kfs.Error) {
	report := v9kfs.VerifyReport{}

	heads, outOfRange, err := v.collectAllChainHeads()
	if err != nil {
		return report, err
	}
	sort.Strings(outOfRange)
	report.EntriesOutsideDataArea = outOfRange

	var nonTerminating []uint32
	goodClusters := make([]uint32, 0, len(heads))
	goodPaths := make([]string, 0, len(heads))
	for _, h := range heads {
		if _, werr := v.Alloc.WalkChain(h.cluster); werr != nil {
			nonTerminating = append(nonTerminating, h.cluster)
			continue
		}
		goodClusters = append(goodClusters, h.cluster)
		goodPaths = append(goodPaths, h.path)
	}
	sort.Slice(nonTerminating, func(i, j int) bool { return nonTerminating[i] < nonTerminating[j] })
	report.NonTerminatingChains = nonTerminating

	orphans, err := v.Alloc.FindOrphans(goodClusters)
	if err != nil {
		return report, err
	}
	report.OrphanClusters = orphans

	crossLinked, owners, err := v.Alloc.FindCrossLinks(goodClusters)
	if err != nil {
		return report, err
	}
	report.CrossLinkedClusters = crossLinked
	for _, c := range crossLinked {
		pair := owners[c]
		report.CrossLinkedEntries = append(report.CrossLinkedEntries, v9kfs.CrossLinkedCluster{
			Cluster: c,
			Entries: []string{goodPaths[pair[0]], goodPaths[pair[1]]},
		})
	}

	divergent, derr := fat12.CompareCopies(v.Dev, v.Geom)
	if derr != nil {
		return report, derr
	}
	report.Fat1Fat2Divergent = !divergent

	return report, nil
}

// VerifyMultiError converts a VerifyReport into an aggregated error, useful
// for CLI collaborators that want a single Go error summarising every
// problem found (the report itself remains the primary API for programmatic
// callers).
func VerifyMultiError(report v9kfs.VerifyReport) error {
	if report.OK() {
		return nil
	}

	var result *multierror.Error
	for _, c := range report.OrphanClusters {
		result = multierror.Append(result, v9kfs.ErrCorruptChain.WithMessage("orphan cluster %#x", c))
	}
	for _, c := range report.CrossLinkedClusters {
		result = multierror.Append(result, v9kfs.ErrCrossLink.WithMessage("cross-linked cluster %#x", c))
	}
	for _, c := range report.NonTerminatingChains {
		result = multierror.Append(result, v9kfs.ErrCorruptChain.WithMessage("chain at cluster %#x does not terminate", c))
	}
	for _, p := range report.EntriesOutsideDataArea {
		result = multierror.Append(result, v9kfs.ErrCorruptChain.WithMessage("entry %q points outside the data area", p))
	}
	if report.Fat1Fat2Divergent {
		result = multierror.Append(result, v9kfs.ErrCorruptChain.WithMessage("FAT copy 1 and FAT copy 2 disagree"))
	}
	return result.ErrorOrNil()
}

// Info reports space usage and entry counts for the volume.
func (v *Volume) Info() (v9kfs.Stats, *v9kfs.Error) {
	stats := v9kfs.Stats{
		Geometry:      v.Geom,
		TotalClusters: v.Geom.TotalClusters,
		FreeClusters:  v.Alloc.FreeClusterCount(),
		TotalBytes:    uint64(v.Geom.TotalClusters) * uint64(v.Geom.BytesPerCluster()),
	}
	stats.UsedClusters = stats.TotalClusters - stats.FreeClusters
	stats.FreeBytes = uint64(stats.FreeClusters) * uint64(v.Geom.BytesPerCluster())

	root, err := v.ReadDirectory(0)
	if err != nil {
		return stats, err
	}
	for _, slot := range dirent.ListEntries(root) {
		if slot.Entry.IsVolumeLabel() {
			stats.Label = slot.Entry.Name
			continue
		}
		if slot.Entry.Name == "." || slot.Entry.Name == ".." {
			continue
		}
		if slot.Entry.IsDir() {
			stats.SubdirectoryCount++
		} else {
			stats.FileCount++
		}
	}
	return stats, nil
}
