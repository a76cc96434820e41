package volume

import (
	"time"

	"github.com/dargueta/v9kfs"
	"github.com/dargueta/v9kfs/block"
	"github.com/dargueta/v9kfs/dirent"
	"github.com/dargueta/v9kfs/fat12"
	"github.com/dargueta/v9kfs/geometry"
)

// fillByteFor returns the byte CreateImage pads unused sectors with: 0xF6
// on Victor floppies to match MS-DOS FORMAT's historical fill pattern,
// zero otherwise.
func fillByteFor(g v9kfs.Geometry) byte {
	if g.IsVictorBootSector {
		return 0xF6
	}
	return 0x00
}

// CreateImage materialises a pristine image on dev: writes the canonical
// boot sector, initialises both FAT copies, zero-fills the root directory,
// and, if label is non-empty, writes a volume-label entry as the first
// root entry.
func CreateImage(dev *block.Device, variant v9kfs.FormatVariant, label string, now time.Time) (*Volume, *v9kfs.Error) {
	geom, ok := geometry.ForVariant(variant)
	if !ok {
		return nil, v9kfs.ErrUnknownFormat.WithMessage("no canonical geometry for variant %v", variant)
	}

	fill := fillByteFor(geom)
	blank := make([]byte, geom.SectorSize)
	for i := range blank {
		blank[i] = fill
	}
	for s := uint32(0); s < geom.TotalSectors; s++ {
		if err := dev.WriteSectors(s, blank); err != nil {
			return nil, err
		}
	}

	bootSector := bootSectorFor(geom)
	if err := dev.WriteSectors(0, bootSector); err != nil {
		return nil, err
	}

	table := fat12.NewTable(geom)
	if err := table.Flush(dev); err != nil {
		return nil, err
	}

	rootBytes := make([]byte, geom.RootDirSectors*geom.SectorSize)
	if label != "" {
		entry := v9kfs.DirEntry{
			Name:       label,
			Attrs:      v9kfs.AttrVolumeLabel,
			CreatedAt:  now,
			ModifiedAt: now,
			AccessedAt: now,
		}
		raw, eerr := dirent.Encode(entry)
		if eerr != nil {
			return nil, eerr
		}
		copy(rootBytes[:dirent.EntrySize], raw)
	}
	if err := dev.WriteSectors(geom.RootDirStartSector(), rootBytes); err != nil {
		return nil, err
	}

	return &Volume{
		Dev:   dev,
		Geom:  geom,
		Table: table,
		Alloc: fat12.NewAllocator(table, geom),
		Label: label,
	}, nil
}

// bootSectorFor builds the canonical boot sector for geom's variant.
func bootSectorFor(geom v9kfs.Geometry) []byte {
	if geom.IsVictorBootSector {
		doubleSided := geom.FormatVariant == v9kfs.FormatVictorDS
		return geometry.BuildVictorBootSector(geom.DataStartSector, doubleSided)
	}
	return geometry.BuildIbmPcBootSector(
		geom.SectorSize,
		geom.SectorsPerCluster,
		geom.ReservedSectors,
		geom.FatCount,
		geom.RootDirEntries,
		geom.TotalSectors,
		geom.FatSectors,
		geom.MediaDescriptor,
	)
}
