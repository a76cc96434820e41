// Package cpm implements read-only support for CP/M-86 floppies: directory
// listing and file extraction only.
//
// CP/M images carry no self-describing geometry header. This package
// follows the standard CP/M directory-extent format (32-byte FCB-style
// entries, 16 per 512-byte sector). Only the first extent of a file is
// read, which covers files up to 16 KiB.
package cpm

import "strings"

// ExtentSize is the fixed size of one CP/M directory entry.
const ExtentSize = 32

// DeletedUser is the user-number byte value marking a directory entry free
// (analogous to FAT12's 0xE5 deleted marker).
const DeletedUser = 0xE5

// attrReadOnlyBit is the high bit that carries the read-only flag on the
// first filename byte and the system flag on the first extension byte; this
// engine reports both flags but (being read-only) never writes them.
const (
	attrReadOnlyBit = 0x80
	maxRecordsPerExtent = 128 // 128 * 128-byte records == 16 KiB, one extent's worth
	recordSize          = 128
)

// Extent is one decoded 32-byte CP/M directory entry.
type Extent struct {
	UserNumber   byte
	Name         string
	ExtentNumber byte
	RecordCount  byte
	AllocBlocks  [8]uint16
	ReadOnly     bool
	System       bool
	Deleted      bool
}

// DecodeExtent parses a raw 32-byte CP/M directory entry.
func DecodeExtent(data []byte) Extent {
	user := data[0]
	if user == DeletedUser {
		return Extent{UserNumber: user, Deleted: true}
	}

	nameBytes := make([]byte, 8)
	copy(nameBytes, data[1:9])
	readOnly := nameBytes[0]&attrReadOnlyBit != 0
	nameBytes[0] &^= attrReadOnlyBit

	typeBytes := make([]byte, 3)
	copy(typeBytes, data[9:12])
	system := typeBytes[0]&attrReadOnlyBit != 0
	typeBytes[0] &^= attrReadOnlyBit
	for i := range typeBytes {
		typeBytes[i] &^= attrReadOnlyBit
	}

	stem := strings.TrimRight(string(nameBytes), " ")
	ext := strings.TrimRight(string(typeBytes), " ")
	name := stem
	if ext != "" {
		name = stem + "." + ext
	}

	var blocks [8]uint16
	for i := 0; i < 8; i++ {
		off := 16 + i*2
		blocks[i] = uint16(data[off]) | uint16(data[off+1])<<8
	}

	return Extent{
		UserNumber:   user,
		Name:         name,
		ExtentNumber: data[12],
		RecordCount:  data[15],
		AllocBlocks:  blocks,
		ReadOnly:     readOnly,
		System:       system,
	}
}

// SizeBytes returns the number of bytes of real file data this single
// extent covers, assuming it is extent 0 of the file (files larger than
// 16 KiB, which would need a second extent, are not supported).
func (e Extent) SizeBytes() uint32 {
	return uint32(e.RecordCount) * recordSize
}
