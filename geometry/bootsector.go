package geometry

import "encoding/binary"

// nominalSectorsPerTrack and nominalHeads are nominal values written to the
// sec/track and heads fields of every IBM PC boot sector, the same for every
// variant; nothing in this engine reads them back.
const (
	nominalSectorsPerTrack = 9
	nominalHeads           = 2
)

// BuildIbmPcBootSector builds the canonical 512-byte boot sector / BPB for
// an IBM PC floppy of the given geometry. Only the BPB fields are written;
// the boot-loader code region is left zero.
func BuildIbmPcBootSector(sectorSize, sectorsPerCluster, reservedSectors, fatCount, rootDirEntries, totalSectors, fatSectors uint32, mediaDescriptor byte) []byte {
	sector := make([]byte, 512)
	binary.LittleEndian.PutUint16(sector[0x0B:0x0D], uint16(sectorSize))
	sector[0x0D] = byte(sectorsPerCluster)
	binary.LittleEndian.PutUint16(sector[0x0E:0x10], uint16(reservedSectors))
	sector[0x10] = byte(fatCount)
	binary.LittleEndian.PutUint16(sector[0x11:0x13], uint16(rootDirEntries))
	binary.LittleEndian.PutUint16(sector[0x13:0x15], uint16(totalSectors))
	sector[0x15] = mediaDescriptor
	binary.LittleEndian.PutUint16(sector[0x16:0x18], uint16(fatSectors))
	binary.LittleEndian.PutUint16(sector[0x18:0x1A], nominalSectorsPerTrack)
	binary.LittleEndian.PutUint16(sector[0x1A:0x1C], nominalHeads)
	sector[0x1FE] = 0x55
	sector[0x1FF] = 0xAA
	return sector
}

// BuildVictorBootSector builds the canonical Victor boot sector: system ID
// 0xFF00, sector size 512 at offset 26, data_start at 28, flags at 32
// (bit 0 set for double-sided), disc type 0x10 at 34.
func BuildVictorBootSector(dataStart uint32, doubleSided bool) []byte {
	sector := make([]byte, 512)
	binary.LittleEndian.PutUint16(sector[0:2], 0xFF00)
	binary.LittleEndian.PutUint16(sector[26:28], 512)
	binary.LittleEndian.PutUint16(sector[28:30], uint16(dataStart))

	var flags uint16
	if doubleSided {
		flags |= 0x0001
	}
	binary.LittleEndian.PutUint16(sector[32:34], flags)
	sector[34] = 0x10
	return sector
}
