package fat12

import (
	"bytes"

	"github.com/dargueta/v9kfs"
	"github.com/dargueta/v9kfs/block"
)

// Table is the in-memory cache of a single FAT copy, decoded lazily through
// DecodeEntry/EncodeEntry. The FAT is read once, mutated in memory, and both
// on-disk copies are rewritten together on Flush.
type Table struct {
	geom  v9kfs.Geometry
	bytes []byte
	dirty bool
}

// NewTable allocates a zeroed FAT for a freshly formatted volume and sets
// the reserved header entries.
func NewTable(geom v9kfs.Geometry) *Table {
	t := &Table{geom: geom, bytes: make([]byte, geom.FatSectors*v9kfs.SectorSize)}
	InitHeaderEntries(t.bytes, geom.MediaDescriptor)
	t.dirty = true
	return t
}

// Load reads FAT copy 1 from dev into a new Table.
func Load(dev *block.Device, geom v9kfs.Geometry) (*Table, *v9kfs.Error) {
	raw, err := dev.ReadSectors(geom.ReservedSectors, geom.FatSectors)
	if err != nil {
		return nil, err
	}
	return &Table{geom: geom, bytes: raw}, nil
}

// Get decodes the FAT entry for cluster c.
func (t *Table) Get(c uint32) uint16 {
	return DecodeEntry(t.bytes, c)
}

// Set encodes v into the FAT entry for cluster c and marks the table dirty.
func (t *Table) Set(c uint32, v uint16) {
	EncodeEntry(t.bytes, c, v)
	t.dirty = true
}

// Dirty reports whether any entry has changed since the table was loaded or
// last flushed.
func (t *Table) Dirty() bool {
	return t.dirty
}

// Flush rewrites both on-disk FAT copies in full, so they stay
// bit-identical after any mutation. Partial writes are not supported.
func (t *Table) Flush(dev *block.Device) *v9kfs.Error {
	for i := uint32(0); i < t.geom.FatCount; i++ {
		start := t.geom.ReservedSectors + i*t.geom.FatSectors
		if err := dev.WriteSectors(start, t.bytes); err != nil {
			return err
		}
	}
	t.dirty = false
	return nil
}

// CompareCopies reads both on-disk FAT copies and reports whether they
// agree at the entry level. The unused high nibble of a trailing shared
// byte is not compared.
func CompareCopies(dev *block.Device, geom v9kfs.Geometry) (bool, *v9kfs.Error) {
	copies := make([][]byte, geom.FatCount)
	for i := uint32(0); i < geom.FatCount; i++ {
		raw, err := dev.ReadSectors(geom.ReservedSectors+i*geom.FatSectors, geom.FatSectors)
		if err != nil {
			return false, err
		}
		copies[i] = raw
	}

	if geom.FatCount < 2 {
		return true, nil
	}

	for c := uint32(0); c < geom.TotalClusters+2; c++ {
		first := DecodeEntry(copies[0], c)
		for i := 1; i < len(copies); i++ {
			if DecodeEntry(copies[i], c) != first {
				return false, nil
			}
		}
	}
	return true, nil
}

// Equal reports whether two raw FAT byte buffers decode to the same entries
// for every cluster in [0, totalClusters+2), ignoring the unused nibble of
// whichever byte two odd/even entries happen to share.
func Equal(a, b []byte, totalClusters uint32) bool {
	if len(a) != len(b) {
		return bytes.Equal(a, b)
	}
	for c := uint32(0); c < totalClusters+2; c++ {
		if DecodeEntry(a, c) != DecodeEntry(b, c) {
			return false
		}
	}
	return true
}
