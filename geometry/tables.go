package geometry

import (
	_ "embed"
	"strconv"
	"strings"

	"github.com/gocarina/gocsv"

	"github.com/dargueta/v9kfs"
)

//go:embed tables.csv
var rawGeometryTableCSV string

// geometryRow is the CSV shape of one format variant's fixed geometry. The
// per-variant constants live in embedded CSV rather than in a switch
// statement per format.
type geometryRow struct {
	Variant           string `csv:"variant"`
	TotalSectors      uint32 `csv:"total_sectors"`
	SectorsPerCluster uint32 `csv:"sectors_per_cluster"`
	ReservedSectors   uint32 `csv:"reserved_sectors"`
	FatCount          uint32 `csv:"fat_count"`
	FatSectors        uint32 `csv:"fat_sectors"`
	RootDirEntries    uint32 `csv:"root_dir_entries"`
	MediaDescriptor   string `csv:"media_descriptor"`
}

var variantByName = map[string]v9kfs.FormatVariant{
	"IbmPc360":  v9kfs.FormatIbmPc360,
	"IbmPc720":  v9kfs.FormatIbmPc720,
	"IbmPc12M":  v9kfs.FormatIbmPc12M,
	"IbmPc144M": v9kfs.FormatIbmPc144M,
	"VictorSS":  v9kfs.FormatVictorSS,
	"VictorDS":  v9kfs.FormatVictorDS,
}

var tableByVariant map[v9kfs.FormatVariant]v9kfs.Geometry
var ibmVariantByTotalSectors16 map[uint32]v9kfs.FormatVariant

func init() {
	var rows []geometryRow
	if err := gocsv.UnmarshalString(rawGeometryTableCSV, &rows); err != nil {
		panic("geometry: malformed embedded tables.csv: " + err.Error())
	}

	tableByVariant = make(map[v9kfs.FormatVariant]v9kfs.Geometry, len(rows))
	ibmVariantByTotalSectors16 = make(map[uint32]v9kfs.FormatVariant)

	for _, row := range rows {
		variant, ok := variantByName[row.Variant]
		if !ok {
			panic("geometry: unknown variant name in tables.csv: " + row.Variant)
		}

		media, err := parseHexByte(row.MediaDescriptor)
		if err != nil {
			panic("geometry: bad media_descriptor for " + row.Variant + ": " + err.Error())
		}

		rootDirSectors := ceilDiv(row.RootDirEntries*32, v9kfs.SectorSize)
		dataStart := row.ReservedSectors + row.FatCount*row.FatSectors + rootDirSectors
		totalClusters := (row.TotalSectors - dataStart) / row.SectorsPerCluster

		g := v9kfs.Geometry{
			SectorSize:        v9kfs.SectorSize,
			TotalSectors:      row.TotalSectors,
			ReservedSectors:   row.ReservedSectors,
			FatCount:          row.FatCount,
			FatSectors:        row.FatSectors,
			RootDirSectors:    rootDirSectors,
			RootDirEntries:    row.RootDirEntries,
			DataStartSector:   dataStart,
			SectorsPerCluster: row.SectorsPerCluster,
			TotalClusters:     totalClusters,
			MediaDescriptor:   media,
			FormatVariant:     variant,
			IsVictorBootSector: variant == v9kfs.FormatVictorSS || variant == v9kfs.FormatVictorDS,
		}
		tableByVariant[variant] = g

		if strings.HasPrefix(row.Variant, "IbmPc") {
			ibmVariantByTotalSectors16[row.TotalSectors] = variant
		}
	}
}

func parseHexByte(s string) (byte, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "0x")
	v, err := strconv.ParseUint(s, 16, 8)
	if err != nil {
		return 0, err
	}
	return byte(v), nil
}

func ceilDiv(a, b uint32) uint32 {
	return (a + b - 1) / b
}

// ForVariant returns the canonical Geometry for a known format variant,
// e.g. to materialise a pristine image during create_image.
func ForVariant(variant v9kfs.FormatVariant) (v9kfs.Geometry, bool) {
	g, ok := tableByVariant[variant]
	return g, ok
}

// IbmVariantForTotalSectors16 infers the specific IBM PC floppy variant
// (360K/720K/1.2M/1.44M) from the BPB's TotalSectors16 field.
func IbmVariantForTotalSectors16(totalSectors16 uint32) (v9kfs.FormatVariant, bool) {
	v, ok := ibmVariantByTotalSectors16[totalSectors16]
	return v, ok
}
