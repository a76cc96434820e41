// Package geometry resolves a raw image header to a Geometry. It does not
// decide between a Victor hard disk and a floppy; that ordering lives in
// the image package, which tries the hdlabel package first and falls back
// to geometry.Detect for floppies.
package geometry

import (
	"encoding/binary"

	"github.com/dargueta/v9kfs"
)

// HeaderSize is the number of leading bytes of an image the detector needs
// to see.
const HeaderSize = 2048

// Detect resolves the geometry of a floppy image (Victor or IBM PC) from
// its header bytes and total length. header must be at least HeaderSize
// bytes, or as many bytes as are available if the image is shorter.
func Detect(header []byte, totalLength int64) (v9kfs.Geometry, *v9kfs.Error) {
	if g, ok, err := detectIbmPcFloppy(header); err != nil {
		return v9kfs.Geometry{}, err
	} else if ok {
		return g, nil
	}

	if g, ok := detectVictorFloppy(header); ok {
		return g, nil
	}

	// Legacy fallback: a headerless IBM PC image, recognised only by its
	// total length matching one of the four standard sizes.
	totalSectors := uint32(totalLength / v9kfs.SectorSize)
	if variant, ok := IbmVariantForTotalSectors16(totalSectors); ok && totalLength%v9kfs.SectorSize == 0 {
		g, _ := ForVariant(variant)
		return g, nil
	}

	return v9kfs.Geometry{}, v9kfs.ErrUnknownFormat
}

// detectIbmPcFloppy recognises an image carrying a signed, internally
// consistent BPB.
func detectIbmPcFloppy(header []byte) (v9kfs.Geometry, bool, *v9kfs.Error) {
	if len(header) < 0x200 {
		return v9kfs.Geometry{}, false, nil
	}
	if header[0x1FE] != 0x55 || header[0x1FF] != 0xAA {
		return v9kfs.Geometry{}, false, nil
	}

	bytesPerSector := binary.LittleEndian.Uint16(header[0x0B:0x0D])
	sectorsPerCluster := header[0x0D]
	reservedSectors := binary.LittleEndian.Uint16(header[0x0E:0x10])
	numFats := header[0x10]
	totalSectors16 := binary.LittleEndian.Uint16(header[0x13:0x15])
	fatSize16 := binary.LittleEndian.Uint16(header[0x16:0x18])

	if bytesPerSector != 512 || numFats != 2 || totalSectors16 == 0 || fatSize16 == 0 {
		return v9kfs.Geometry{}, false, nil
	}
	switch sectorsPerCluster {
	case 1, 2, 4, 8:
	default:
		return v9kfs.Geometry{}, false, nil
	}

	variant, ok := IbmVariantForTotalSectors16(uint32(totalSectors16))
	if !ok {
		// BPB is otherwise well-formed but the size doesn't match a standard
		// floppy; still construct a Geometry directly from the BPB rather
		// than failing, but only when every field we need is actually
		// present.
		rootEntryCount := binary.LittleEndian.Uint16(header[0x11:0x13])
		mediaDescriptor := header[0x15]
		rootDirSectors := ceilDiv(uint32(rootEntryCount)*32, v9kfs.SectorSize)
		dataStart := uint32(reservedSectors) + uint32(numFats)*uint32(fatSize16) + rootDirSectors
		totalClusters := (uint32(totalSectors16) - dataStart) / uint32(sectorsPerCluster)

		return v9kfs.Geometry{
			SectorSize:        uint32(bytesPerSector),
			TotalSectors:      uint32(totalSectors16),
			ReservedSectors:   uint32(reservedSectors),
			FatCount:          uint32(numFats),
			FatSectors:        uint32(fatSize16),
			RootDirSectors:    rootDirSectors,
			RootDirEntries:    uint32(rootEntryCount),
			DataStartSector:   dataStart,
			SectorsPerCluster: uint32(sectorsPerCluster),
			TotalClusters:     totalClusters,
			MediaDescriptor:   mediaDescriptor,
			FormatVariant:     v9kfs.FormatUnknown,
		}, true, nil
	}

	g, _ := ForVariant(variant)
	return g, true, nil
}

// detectVictorFloppy classifies anything without a BPB as a Victor floppy,
// single- or double-sided per the boot-sector flags word.
func detectVictorFloppy(header []byte) (v9kfs.Geometry, bool) {
	if len(header) < 36 {
		return v9kfs.Geometry{}, false
	}

	dataStart := binary.LittleEndian.Uint16(header[28:30])
	flags := binary.LittleEndian.Uint16(header[32:34])
	isDoubleSided := flags&0x0001 != 0

	variant := v9kfs.FormatVictorSS
	if isDoubleSided {
		variant = v9kfs.FormatVictorDS
	}

	g, _ := ForVariant(variant)
	if dataStart != 0 {
		g.DataStartSector = uint32(dataStart)
		// Recompute the cluster count for the (tolerated) non-default
		// data_start value.
		overhead := g.DataStartSector
		g.TotalClusters = (g.TotalSectors - overhead) / g.SectorsPerCluster
	}
	g.IsVictorBootSector = true
	return g, true
}
