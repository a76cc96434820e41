package cpm

import (
	"github.com/dargueta/v9kfs"
	"github.com/dargueta/v9kfs/block"
)

// Layout describes where a CP/M-86 floppy's directory and data areas
// begin. CP/M images carry no self-describing header, so this engine
// assumes the common convention: a reserved system area, then a fixed-size
// directory area, then data addressed in fixed-size allocation blocks.
type Layout struct {
	ReservedSectors uint32
	DirectoryExtents uint32 // number of 32-byte extents the directory area holds
	BlockSizeBytes   uint32 // CP/M "allocation block" size, e.g. 1024
}

func (l Layout) directorySectors() uint32 {
	bytes := l.DirectoryExtents * ExtentSize
	return (bytes + v9kfs.SectorSize - 1) / v9kfs.SectorSize
}

func (l Layout) sectorsPerBlock() uint32 {
	return l.BlockSizeBytes / v9kfs.SectorSize
}

func (l Layout) dataStartSector() uint32 {
	return l.ReservedSectors + l.directorySectors()
}

// Volume is a read-only handle on a CP/M-86 floppy.
type Volume struct {
	Dev    *block.Device
	Layout Layout
}

// Open validates that layout fits within dev and returns a read-only handle.
func Open(dev *block.Device, layout Layout) (*Volume, *v9kfs.Error) {
	needed := layout.dataStartSector()
	if dev.TotalSectors() < needed {
		return nil, v9kfs.ErrCorruptBootSector.WithMessage(
			"cpm volume too small for its own directory area: have %d sectors, need at least %d",
			dev.TotalSectors(), needed)
	}
	return &Volume{Dev: dev, Layout: layout}, nil
}

// readDirectory reads every directory extent of user 0, skipping deleted
// entries and never-used slots (a name whose first byte is NUL).
func (v *Volume) readDirectory() ([]Extent, *v9kfs.Error) {
	raw, err := v.Dev.ReadSectors(v.Layout.ReservedSectors, v.Layout.directorySectors())
	if err != nil {
		return nil, err
	}

	extents := make([]Extent, 0, v.Layout.DirectoryExtents)
	for i := uint32(0); i < v.Layout.DirectoryExtents; i++ {
		off := i * ExtentSize
		if off+ExtentSize > uint32(len(raw)) {
			break
		}
		e := DecodeExtent(raw[off : off+ExtentSize])
		if e.Deleted || e.UserNumber != 0 || raw[off+1] == 0 {
			continue
		}
		extents = append(extents, e)
	}
	return extents, nil
}

// List returns the distinct files on the volume. Files are assumed to fit
// in a single extent; a file with more than one extent on disk is reported
// using its lowest-numbered extent only.
func (v *Volume) List() ([]v9kfs.DirEntry, *v9kfs.Error) {
	extents, err := v.readDirectory()
	if err != nil {
		return nil, err
	}

	best := map[string]Extent{}
	for _, e := range extents {
		if e.ExtentNumber != 0 {
			continue // additional extents of a >16KiB file: out of scope
		}
		if existing, ok := best[e.Name]; !ok || e.RecordCount > existing.RecordCount {
			best[e.Name] = e
		}
	}

	entries := make([]v9kfs.DirEntry, 0, len(best))
	for name, e := range best {
		attrs := v9kfs.Attrs(0)
		if e.ReadOnly {
			attrs |= v9kfs.AttrReadOnly
		}
		if e.System {
			attrs |= v9kfs.AttrHidden
		}
		entries = append(entries, v9kfs.DirEntry{
			Name:  name,
			Size:  e.SizeBytes(),
			Attrs: attrs,
		})
	}
	return entries, nil
}

// Extract reads the full contents of the named file. Files spanning more
// than one extent (i.e. larger than 16 KiB) are not supported; see package
// doc comment.
func (v *Volume) Extract(name string) ([]byte, *v9kfs.Error) {
	extents, err := v.readDirectory()
	if err != nil {
		return nil, err
	}

	var target *Extent
	for i := range extents {
		if extents[i].Name == name && extents[i].ExtentNumber == 0 {
			target = &extents[i]
			break
		}
	}
	if target == nil {
		return nil, v9kfs.ErrNotFound.WithMessage("%s not found on cpm volume", name)
	}

	size := target.SizeBytes()
	out := make([]byte, 0, size)
	spb := v.Layout.sectorsPerBlock()
	for _, blockNum := range target.AllocBlocks {
		if uint32(len(out)) >= size {
			break
		}
		// Blocks are numbered from the start of the data area, so block 0
		// is a real block in the first slot; a 0 in any later slot marks
		// the rest of a partially filled allocation list unused.
		if blockNum == 0 && len(out) > 0 {
			break
		}
		sector := v.Layout.dataStartSector() + uint32(blockNum)*spb
		data, rerr := v.Dev.ReadSectors(sector, spb)
		if rerr != nil {
			return nil, rerr
		}
		remaining := size - uint32(len(out))
		if uint32(len(data)) > remaining {
			data = data[:remaining]
		}
		out = append(out, data...)
	}
	return out, nil
}

// The mutating operations below are all rejected; CP/M-86 volumes are
// strictly read-only.

// CopyIn always fails: CP/M-86 volumes are read-only.
func (v *Volume) CopyIn(string) *v9kfs.Error {
	return v9kfs.ErrReadOnlyVolume
}

// Delete always fails: CP/M-86 volumes are read-only.
func (v *Volume) Delete(string) *v9kfs.Error {
	return v9kfs.ErrReadOnlyVolume
}

// SetAttrs always fails: CP/M-86 volumes are read-only.
func (v *Volume) SetAttrs(string, v9kfs.Attrs, v9kfs.Attrs) *v9kfs.Error {
	return v9kfs.ErrReadOnlyVolume
}
