package dirent

import (
	"strings"

	"github.com/dargueta/v9kfs"
)

// Backend supplies the raw bytes of a directory's entries and lets the
// resolver grow a subdirectory when asked to. firstCluster 0 always means
// the volume's fixed-size root directory; any other value is a subdirectory
// cluster chain head.
//
// Implemented by the volume package, which has access to the block device,
// FAT table, and allocator this package intentionally stays ignorant of, to
// keep the directory codec and path-walking logic storage-agnostic.
type Backend interface {
	ReadDirectory(firstCluster uint32) ([]byte, *v9kfs.Error)
	WriteDirectory(firstCluster uint32, data []byte) *v9kfs.Error
	// GrowDirectory appends one more zero-filled cluster to the chain
	// starting at firstCluster and returns the directory bytes with the new
	// cluster appended. The volume package's implementation fails with
	// DirectoryFull for firstCluster 0, the fixed-size root directory.
	GrowDirectory(firstCluster uint32, current []byte) ([]byte, *v9kfs.Error)
}

// Slot identifies one 32-byte entry's position within a directory's raw
// bytes, so callers can rewrite it in place.
type Slot struct {
	Offset int
	Raw    RawEntry
	Entry  v9kfs.DirEntry
}

// ListEntries decodes every live (non-deleted, non-LFN) entry in a
// directory's raw bytes, stopping at the end-of-directory marker.
// Deleted and LFN entries are skipped; the volume-label and `.`/`..`
// filtering, if wanted, is left to the caller since different operations
// need different subsets.
func ListEntries(data []byte) []Slot {
	var slots []Slot
	for off := 0; off+EntrySize <= len(data); off += EntrySize {
		chunk := data[off : off+EntrySize]
		switch Classify(chunk) {
		case ParsedEndOfDirectory:
			return slots
		case ParsedSkip:
			continue
		default:
			if chunk[0] == DeletedMarker {
				continue
			}
			raw := DecodeRaw(chunk)
			slots = append(slots, Slot{Offset: off, Raw: raw, Entry: Decode(chunk)})
		}
	}
	return slots
}

// FindFreeSlot returns the offset of the first entry usable for a new
// directory entry: either a deleted entry or the end-of-directory marker.
// ok is false if the directory is full and has no end-of-directory marker
// within its current allocation.
func FindFreeSlot(data []byte) (offset int, isEndMarker bool, ok bool) {
	for off := 0; off+EntrySize <= len(data); off += EntrySize {
		b := data[off]
		if b == DeletedMarker {
			return off, false, true
		}
		if b == 0x00 {
			return off, true, true
		}
	}
	return 0, false, false
}

// findUniqueSubdirectory matches name (case-insensitively, exact match, no
// wildcards) against the live entries in data and enforces the uniqueness
// and directory-ness invariants.
func findUniqueSubdirectory(data []byte, name string) (v9kfs.DirEntry, *v9kfs.Error) {
	upper := strings.ToUpper(name)
	var match *v9kfs.DirEntry
	matchCount := 0

	for _, slot := range ListEntries(data) {
		if slot.Entry.IsVolumeLabel() {
			continue
		}
		if strings.ToUpper(slot.Entry.Name) == upper {
			matchCount++
			e := slot.Entry
			match = &e
		}
	}

	switch {
	case matchCount == 0:
		return v9kfs.DirEntry{}, v9kfs.ErrNotFound.WithMessage("no entry named %q", name)
	case matchCount > 1:
		return v9kfs.DirEntry{}, v9kfs.ErrAmbiguous.WithMessage("%d entries named %q", matchCount, name)
	}

	return *match, nil
}

// ResolveResult is what Resolve returns: the final matched entry (zero value
// if the path names the root), plus the raw directory bytes and first
// cluster of the *containing* directory, so a caller can locate, rewrite, or
// append the entry's slot.
type ResolveResult struct {
	Entry               v9kfs.DirEntry
	IsRoot              bool
	ParentFirstCluster  uint32
	ParentDirectoryData []byte
}

// Resolve walks components starting at the volume's root directory. At
// each step it requires the unique non-deleted subdirectory
// entry whose name matches exactly (case-insensitive), failing with
// NotFound, NotADirectory, or Ambiguous as appropriate. An empty components
// slice resolves to the root directory itself.
func Resolve(backend Backend, components []string) (ResolveResult, *v9kfs.Error) {
	currentCluster := uint32(0)
	currentData, err := backend.ReadDirectory(currentCluster)
	if err != nil {
		return ResolveResult{}, err
	}

	if len(components) == 0 {
		return ResolveResult{IsRoot: true, ParentFirstCluster: 0, ParentDirectoryData: currentData}, nil
	}

	for i, name := range components {
		entry, ferr := findUniqueSubdirectory(currentData, name)
		if ferr != nil {
			return ResolveResult{}, ferr
		}

		isLast := i == len(components)-1
		if !isLast {
			if !entry.IsDir() {
				return ResolveResult{}, v9kfs.ErrNotADirectory.WithMessage(
					"%q is not a directory", name)
			}
			currentCluster = entry.FirstCluster
			currentData, err = backend.ReadDirectory(currentCluster)
			if err != nil {
				return ResolveResult{}, err
			}
			continue
		}

		return ResolveResult{
			Entry:               entry,
			ParentFirstCluster:  currentCluster,
			ParentDirectoryData: currentData,
		}, nil
	}

	// Unreachable: the loop above always returns on its last iteration.
	return ResolveResult{}, v9kfs.ErrNotFound
}

// ResolveParent walks all but the last component and returns the parent
// directory, for operations (copy_in, delete target lookup) that need to
// locate or create an entry by name within a known-good parent.
func ResolveParent(backend Backend, components []string) (parentFirstCluster uint32, parentData []byte, verr *v9kfs.Error) {
	if len(components) == 0 {
		data, err := backend.ReadDirectory(0)
		return 0, data, err
	}
	result, err := Resolve(backend, components[:len(components)-1])
	if err != nil {
		return 0, nil, err
	}
	if result.IsRoot {
		return 0, result.ParentDirectoryData, nil
	}
	if !result.Entry.IsDir() {
		return 0, nil, v9kfs.ErrNotADirectory.WithMessage("%q is not a directory", components[len(components)-2])
	}
	data, derr := backend.ReadDirectory(result.Entry.FirstCluster)
	return result.Entry.FirstCluster, data, derr
}

// NewSubdirectorySeed builds the initial cluster contents for a freshly
// created subdirectory: `.` pointing at self and `..` pointing at parent
// (0 when parent is the root). clusterBytes is the size of
// one cluster; the rest of the buffer is left zero-filled, which the codec
// treats as the end-of-directory marker.
func NewSubdirectorySeed(clusterBytes uint32, selfCluster, parentCluster uint32) []byte {
	buf := make([]byte, clusterBytes)

	copy(buf[0:EntrySize], dotRawEntry(".", selfCluster))
	copy(buf[EntrySize:2*EntrySize], dotRawEntry("..", parentCluster))
	return buf
}

// dotRawEntry builds the raw 32-byte form of a `.` or `..` entry directly,
// bypassing EncodeName's 8.3 character validation, which would otherwise
// reject a bare "." as too short a stem.
func dotRawEntry(name string, firstCluster uint32) []byte {
	raw := RawEntry{
		AttributeFlags:   byte(v9kfs.AttrSubdirectory),
		FirstClusterHigh: uint16(firstCluster >> 16),
		FirstClusterLow:  uint16(firstCluster & 0xFFFF),
		CreatedDate:      DateToInt(v9kfs.FatEpoch),
		ModifiedDate:     DateToInt(v9kfs.FatEpoch),
	}
	for i := range raw.Name {
		raw.Name[i] = ' '
	}
	for i := range raw.Extension {
		raw.Extension[i] = ' '
	}
	copy(raw.Name[:], name)
	return EncodeRaw(raw)
}
