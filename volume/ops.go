package volume

import (
	"io"
	"strings"
	"time"

	"github.com/dargueta/v9kfs"
	"github.com/dargueta/v9kfs/dirent"
)

// commitDirectory applies the commit order of a mutating operation: data
// sectors have already been written by the caller; the FAT copies are
// flushed next, and only then are the affected directory bytes written.
func (v *Volume) commitDirectory(parentCluster uint32, parentData []byte) *v9kfs.Error {
	if err := v.Flush(); err != nil {
		return err
	}
	return v.WriteDirectory(parentCluster, parentData)
}

// placeEntry copies raw into the first free slot of parentData, growing the
// directory by one cluster when it has none left, and returns the (possibly
// grown) directory bytes. The root directory cannot grow; a full root
// surfaces as DirectoryFull.
func (v *Volume) placeEntry(parentCluster uint32, parentData []byte, raw []byte) ([]byte, *v9kfs.Error) {
	offset, _, ok := dirent.FindFreeSlot(parentData)
	if !ok {
		grown, gerr := v.GrowDirectory(parentCluster, parentData)
		if gerr != nil {
			return nil, gerr
		}
		parentData = grown
		offset, _, ok = dirent.FindFreeSlot(parentData)
		if !ok {
			return nil, v9kfs.ErrDirectoryFull
		}
	}
	copy(parentData[offset:offset+dirent.EntrySize], raw)
	return parentData, nil
}

func hasWildcard(s string) bool {
	return strings.ContainsAny(s, "*?")
}

// List enumerates the non-deleted, non-LFN, non-volume-label entries in
// the directory named by components. A final component containing `*` or
// `?` filters the parent directory's entries by wildcard match. With
// recursive set, subdirectories are expanded pre-order, `.` and `..`
// skipped. Sort order is on-disk, matching historical FAT tools.
func (v *Volume) List(components []string, recursive bool) ([]v9kfs.DirEntry, *v9kfs.Error) {
	pattern := ""
	if n := len(components); n > 0 && hasWildcard(components[n-1]) {
		pattern = components[n-1]
		components = components[:n-1]
	}

	result, err := dirent.Resolve(v, components)
	if err != nil {
		return nil, err
	}

	var firstCluster uint32
	if !result.IsRoot {
		if !result.Entry.IsDir() {
			return nil, v9kfs.ErrNotADirectory.WithMessage("%v is not a directory", components)
		}
		firstCluster = result.Entry.FirstCluster
	}

	return v.listDirectory(firstCluster, pattern, recursive)
}

// listDirectory lists one directory, filtered by pattern when non-empty.
// The filter applies only at this level; recursion below a matched
// subdirectory lists everything.
func (v *Volume) listDirectory(firstCluster uint32, pattern string, recursive bool) ([]v9kfs.DirEntry, *v9kfs.Error) {
	data, err := v.ReadDirectory(firstCluster)
	if err != nil {
		return nil, err
	}

	var out []v9kfs.DirEntry
	for _, slot := range dirent.ListEntries(data) {
		e := slot.Entry
		if e.Name == "." || e.Name == ".." || e.IsVolumeLabel() {
			continue
		}
		if pattern != "" && !dirent.MatchWildcard(pattern, e.Name) {
			continue
		}
		out = append(out, e)
		if recursive && e.IsDir() {
			children, cerr := v.listDirectory(e.FirstCluster, "", true)
			if cerr != nil {
				return nil, cerr
			}
			out = append(out, children...)
		}
	}
	return out, nil
}

// CopyOut resolves components to a file entry and streams its cluster
// chain to dst, writing only the residual bytes of the final cluster.
func (v *Volume) CopyOut(components []string, dst io.Writer) *v9kfs.Error {
	result, err := dirent.Resolve(v, components)
	if err != nil {
		return err
	}
	if result.IsRoot || result.Entry.IsDir() {
		return v9kfs.ErrIsADirectory.WithMessage("%v is a directory", components)
	}

	entry := result.Entry
	if entry.Size == 0 {
		return nil
	}

	chain, werr := v.Alloc.WalkChain(entry.FirstCluster)
	if werr != nil {
		return werr
	}

	clusterBytes := v.Geom.BytesPerCluster()
	remaining := entry.Size
	for _, c := range chain {
		sector := v.Geom.ClusterToSector(c)
		raw, rerr := v.Dev.ReadSectors(sector, v.Geom.SectorsPerCluster)
		if rerr != nil {
			return rerr
		}

		toWrite := clusterBytes
		if remaining < toWrite {
			toWrite = remaining
		}
		if _, ioErr := dst.Write(raw[:toWrite]); ioErr != nil {
			return v9kfs.ErrIOError.Wrap(ioErr)
		}
		remaining -= toWrite
	}
	return nil
}

// CopyIn allocates ceil(srcLen/cluster_bytes) clusters, writes the data
// zero-padding the final cluster, and creates or replaces the directory
// entry. On failure the newly allocated clusters are freed before
// returning, leaving no new directory entry.
func (v *Volume) CopyIn(src io.Reader, srcLen uint32, dstComponents []string, overwrite bool, attrs v9kfs.Attrs, mtime time.Time) *v9kfs.Error {
	if len(dstComponents) == 0 {
		return v9kfs.ErrInvalidName.WithMessage("destination path has no file name component")
	}

	parentCluster, parentData, perr := dirent.ResolveParent(v, dstComponents)
	if perr != nil {
		return perr
	}

	name := dstComponents[len(dstComponents)-1]
	existingOffset := -1
	var existingFirstCluster uint32
	for _, slot := range dirent.ListEntries(parentData) {
		if slot.Entry.IsVolumeLabel() || !strings.EqualFold(slot.Entry.Name, name) {
			continue
		}
		if slot.Entry.IsDir() {
			return v9kfs.ErrIsADirectory.WithMessage("%q is a directory", name)
		}
		if !overwrite {
			return v9kfs.ErrExistsAndNoOverwrite.WithMessage("%q already exists", name)
		}
		if slot.Entry.IsReadOnly() {
			return v9kfs.ErrAttributeProtected.WithMessage("%q is read-only", name)
		}
		existingOffset = slot.Offset
		existingFirstCluster = slot.Entry.FirstCluster
		break
	}

	clusterBytes := v.Geom.BytesPerCluster()
	clusterCount := srcLen / clusterBytes
	if srcLen%clusterBytes != 0 {
		clusterCount++
	}

	var chain []uint32
	if clusterCount > 0 {
		var aerr *v9kfs.Error
		chain, aerr = v.Alloc.AllocateChain(clusterCount)
		if aerr != nil {
			return aerr
		}
	}

	if werr := v.writeFileData(chain, src, srcLen); werr != nil {
		if len(chain) > 0 {
			_ = v.Alloc.FreeChain(chain[0])
		}
		return werr
	}

	firstCluster := uint32(0)
	if len(chain) > 0 {
		firstCluster = chain[0]
	}

	entry := v9kfs.DirEntry{
		Name:         name,
		Attrs:        attrs,
		FirstCluster: firstCluster,
		Size:         srcLen,
		CreatedAt:    mtime,
		ModifiedAt:   mtime,
		AccessedAt:   mtime,
	}
	raw, eerr := dirent.Encode(entry)
	if eerr != nil {
		if len(chain) > 0 {
			_ = v.Alloc.FreeChain(chain[0])
		}
		return eerr
	}

	if existingOffset >= 0 {
		copy(parentData[existingOffset:existingOffset+dirent.EntrySize], raw)
		if existingFirstCluster != 0 {
			// The new chain is already allocated and written; only now, once
			// the replacement entry is in place, is it safe to release the
			// old file's clusters.
			if ferr := v.Alloc.FreeChain(existingFirstCluster); ferr != nil {
				return ferr
			}
		}
		return v.commitDirectory(parentCluster, parentData)
	}

	parentData, perr = v.placeEntry(parentCluster, parentData, raw)
	if perr != nil {
		if len(chain) > 0 {
			_ = v.Alloc.FreeChain(chain[0])
		}
		return perr
	}
	return v.commitDirectory(parentCluster, parentData)
}

func (v *Volume) writeFileData(chain []uint32, src io.Reader, srcLen uint32) *v9kfs.Error {
	clusterBytes := int(v.Geom.BytesPerCluster())
	remaining := int64(srcLen)

	for _, c := range chain {
		buf := make([]byte, clusterBytes)
		toRead := int64(clusterBytes)
		if remaining < toRead {
			toRead = remaining
		}
		if toRead > 0 {
			if _, err := io.ReadFull(src, buf[:toRead]); err != nil {
				return v9kfs.ErrIOError.Wrap(err)
			}
		}
		remaining -= toRead

		if err := v.Dev.WriteSectors(v.Geom.ClusterToSector(c), buf); err != nil {
			return err
		}
	}
	return nil
}

// MakeDir creates a new subdirectory named by the path's final component,
// allocating one cluster and seeding it with the `.` and `..` entries
// (`.` pointing at the new cluster, `..` at the parent, 0 when the parent
// is the root).
func (v *Volume) MakeDir(components []string, mtime time.Time) *v9kfs.Error {
	if len(components) == 0 {
		return v9kfs.ErrInvalidName.WithMessage("destination path has no directory name component")
	}

	parentCluster, parentData, perr := dirent.ResolveParent(v, components)
	if perr != nil {
		return perr
	}

	name := components[len(components)-1]
	for _, slot := range dirent.ListEntries(parentData) {
		if !slot.Entry.IsVolumeLabel() && strings.EqualFold(slot.Entry.Name, name) {
			return v9kfs.ErrExistsAndNoOverwrite.WithMessage("%q already exists", name)
		}
	}

	chain, aerr := v.Alloc.AllocateChain(1)
	if aerr != nil {
		return aerr
	}
	self := chain[0]

	seed := dirent.NewSubdirectorySeed(v.Geom.BytesPerCluster(), self, parentCluster)
	if werr := v.Dev.WriteSectors(v.Geom.ClusterToSector(self), seed); werr != nil {
		_ = v.Alloc.FreeChain(self)
		return werr
	}

	entry := v9kfs.DirEntry{
		Name:         name,
		Attrs:        v9kfs.AttrSubdirectory,
		FirstCluster: self,
		CreatedAt:    mtime,
		ModifiedAt:   mtime,
		AccessedAt:   mtime,
	}
	raw, eerr := dirent.Encode(entry)
	if eerr != nil {
		_ = v.Alloc.FreeChain(self)
		return eerr
	}

	parentData, perr = v.placeEntry(parentCluster, parentData, raw)
	if perr != nil {
		_ = v.Alloc.FreeChain(self)
		return perr
	}
	return v.commitDirectory(parentCluster, parentData)
}

// Delete marks the entry's first byte deleted and frees its cluster chain.
// A subdirectory must be empty apart from `.` and `..`. Data sectors are
// left untouched.
func (v *Volume) Delete(components []string) *v9kfs.Error {
	if len(components) == 0 {
		return v9kfs.ErrIsADirectory.WithMessage("cannot delete the root directory")
	}

	parentCluster, parentData, perr := dirent.ResolveParent(v, components)
	if perr != nil {
		return perr
	}

	name := components[len(components)-1]
	matchCount := 0
	matchOffset := -1
	var matched v9kfs.DirEntry
	for _, s := range dirent.ListEntries(parentData) {
		if s.Entry.IsVolumeLabel() || !strings.EqualFold(s.Entry.Name, name) {
			continue
		}
		matchCount++
		matchOffset = s.Offset
		matched = s.Entry
	}
	if matchCount == 0 {
		return v9kfs.ErrNotFound.WithMessage("no entry named %q", name)
	}
	if matchCount > 1 {
		return v9kfs.ErrAmbiguous.WithMessage("%d entries named %q", matchCount, name)
	}
	if matched.IsReadOnly() {
		return v9kfs.ErrAttributeProtected.WithMessage("%q is read-only", name)
	}
	if matched.IsDir() && matched.FirstCluster != 0 {
		children, rerr := v.ReadDirectory(matched.FirstCluster)
		if rerr != nil {
			return rerr
		}
		for _, s := range dirent.ListEntries(children) {
			if s.Entry.Name != "." && s.Entry.Name != ".." {
				return v9kfs.ErrIsADirectory.WithMessage("directory %q is not empty", name)
			}
		}
	}

	if matched.FirstCluster != 0 {
		if err := v.Alloc.FreeChain(matched.FirstCluster); err != nil {
			return err
		}
	}

	parentData[matchOffset] = dirent.DeletedMarker
	return v.commitDirectory(parentCluster, parentData)
}

// SetAttrs updates only the mutable attribute bits, refusing to touch the
// volume-label bit.
func (v *Volume) SetAttrs(components []string, setMask, clearMask v9kfs.Attrs) *v9kfs.Error {
	setMask &= v9kfs.MutableMask
	clearMask &= v9kfs.MutableMask

	parentCluster, parentData, perr := dirent.ResolveParent(v, components)
	if perr != nil {
		return perr
	}

	name := components[len(components)-1]
	for _, s := range dirent.ListEntries(parentData) {
		if s.Entry.IsVolumeLabel() || !strings.EqualFold(s.Entry.Name, name) {
			continue
		}
		newAttrs := (s.Entry.Attrs &^ clearMask) | setMask
		parentData[s.Offset+11] = byte(newAttrs)
		return v.WriteDirectory(parentCluster, parentData)
	}
	return v9kfs.ErrNotFound.WithMessage("no entry named %q", name)
}
