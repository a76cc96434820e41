// Package dirent parses and emits 32-byte FAT directory entries, and
// handles 8.3 name encoding, wildcard matching, and resolving absolute
// paths against a directory tree.
package dirent

import (
	"encoding/binary"
	"fmt"
	"strings"
	"time"

	"github.com/dargueta/v9kfs"
)

// EntrySize is the fixed size of a raw FAT directory entry, in bytes.
const EntrySize = 32

// DeletedMarker is the byte written to a directory entry's first name byte
// to mark it deleted.
const DeletedMarker = 0xE5

// EscapedE5 is the substitute byte written in place of a literal 0xE5 as the
// first character of a name, so a genuine file named with that byte isn't
// mistaken for a deleted entry.
const EscapedE5 = 0x05

// LfnMarker is the attribute byte value (0x0F) that identifies a long file
// name continuation entry, which this engine skips rather than
// interprets.
const LfnMarker = 0x0F

// validNameChars is the set of punctuation characters an 8.3 name may
// contain, besides letters and digits.
const validNameChars = "!#$%&'()-@^_`{}~."

// RawEntry is the on-disk layout of a single 32-byte directory entry.
type RawEntry struct {
	Name             [8]byte
	Extension        [3]byte
	AttributeFlags   byte
	Reserved         byte
	CreatedTimeTenth byte
	CreatedTime      uint16
	CreatedDate      uint16
	AccessedDate     uint16
	FirstClusterHigh uint16
	ModifiedTime     uint16
	ModifiedDate     uint16
	FirstClusterLow  uint16
	FileSize         uint32
}

// ParseResult distinguishes the three outcomes entry parsing can have: a
// real entry, an entry to skip silently (LFN continuation), or the
// end-of-directory sentinel.
type ParseResult int

const (
	ParsedEntry ParseResult = iota
	ParsedSkip
	ParsedEndOfDirectory
)

// DecodeRaw unmarshals 32 bytes into a RawEntry.
func DecodeRaw(data []byte) RawEntry {
	return RawEntry{
		Name:             [8]byte(data[0:8]),
		Extension:        [3]byte(data[8:11]),
		AttributeFlags:   data[11],
		Reserved:         data[12],
		CreatedTimeTenth: data[13],
		CreatedTime:      binary.LittleEndian.Uint16(data[14:16]),
		CreatedDate:      binary.LittleEndian.Uint16(data[16:18]),
		AccessedDate:     binary.LittleEndian.Uint16(data[18:20]),
		FirstClusterHigh: binary.LittleEndian.Uint16(data[20:22]),
		ModifiedTime:     binary.LittleEndian.Uint16(data[22:24]),
		ModifiedDate:     binary.LittleEndian.Uint16(data[24:26]),
		FirstClusterLow:  binary.LittleEndian.Uint16(data[26:28]),
		FileSize:         binary.LittleEndian.Uint32(data[28:32]),
	}
}

// EncodeRaw marshals a RawEntry back into 32 bytes.
func EncodeRaw(e RawEntry) []byte {
	data := make([]byte, EntrySize)
	copy(data[0:8], e.Name[:])
	copy(data[8:11], e.Extension[:])
	data[11] = e.AttributeFlags
	data[12] = e.Reserved
	data[13] = e.CreatedTimeTenth
	binary.LittleEndian.PutUint16(data[14:16], e.CreatedTime)
	binary.LittleEndian.PutUint16(data[16:18], e.CreatedDate)
	binary.LittleEndian.PutUint16(data[18:20], e.AccessedDate)
	binary.LittleEndian.PutUint16(data[20:22], e.FirstClusterHigh)
	binary.LittleEndian.PutUint16(data[22:24], e.ModifiedTime)
	binary.LittleEndian.PutUint16(data[24:26], e.ModifiedDate)
	binary.LittleEndian.PutUint16(data[26:28], e.FirstClusterLow)
	binary.LittleEndian.PutUint32(data[28:32], e.FileSize)
	return data
}

// DateFromInt converts a packed FAT date word into a time.Time at midnight
// UTC.
func DateFromInt(value uint16) time.Time {
	day := int(value & 0x1F)
	month := time.Month((value >> 5) & 0x0F)
	year := 1980 + int(value>>9)
	if value == 0 {
		return v9kfs.FatEpoch
	}
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// DateToInt packs a time.Time into a FAT date word.
func DateToInt(t time.Time) uint16 {
	y := t.Year() - 1980
	if y < 0 {
		y = 0
	}
	return uint16(y<<9) | uint16(int(t.Month())<<5) | uint16(t.Day())
}

// TimeToInt packs a time.Time's hour/minute/second into a FAT time word
// (2-second resolution).
func TimeToInt(t time.Time) uint16 {
	return uint16(t.Hour()<<11) | uint16(t.Minute()<<5) | uint16(t.Second()/2)
}

// TimestampFromParts reconstructs a full timestamp from a FAT date word, time
// word, and optional tenths-of-a-second byte (used only by the creation
// timestamp). A date, time and tenths that are all 0 yield the sentinel
// epoch.
func TimestampFromParts(datePart, timePart uint16, tenths byte) time.Time {
	if datePart == 0 && timePart == 0 && tenths == 0 {
		return v9kfs.FatEpoch
	}
	d := DateFromInt(datePart)
	seconds := int(timePart&0x1F) * 2
	nanos := 0
	if tenths >= 100 {
		seconds++
		tenths -= 100
	}
	nanos = int(tenths) * 10_000_000
	minutes := int((timePart >> 5) & 0x3F)
	hours := int(timePart >> 11)
	return time.Date(d.Year(), d.Month(), d.Day(), hours, minutes, seconds, nanos, time.UTC)
}

// latin1Decode interprets each input byte as a Latin-1 code point, producing
// the corresponding Unicode string. Real images contain high-bit
// characters, so this is deliberately not strict ASCII.
func latin1Decode(b []byte) string {
	runes := make([]rune, len(b))
	for i, c := range b {
		runes[i] = rune(c)
	}
	return string(runes)
}

// latin1Encode converts a string back to its Latin-1 byte representation. It
// fails if any rune is outside the Latin-1 range.
func latin1Encode(s string) ([]byte, bool) {
	out := make([]byte, 0, len(s))
	for _, r := range s {
		if r > 0xFF {
			return nil, false
		}
		out = append(out, byte(r))
	}
	return out, true
}

// ReconstructName rebuilds the user-facing name from a raw entry's Name and
// Extension fields: trims trailing spaces, decodes as Latin-1,
// and restores a literal 0xE5 first byte that was escaped as 0x05. A volume
// label is reconstructed as the single 11-character field it was encoded
// from rather than split into stem and extension.
func ReconstructName(raw RawEntry, isVolumeLabel bool) string {
	nameBytes := append([]byte{}, raw.Name[:]...)
	if nameBytes[0] == EscapedE5 {
		nameBytes[0] = DeletedMarker
	}

	if isVolumeLabel {
		combined := append(nameBytes, raw.Extension[:]...)
		return strings.TrimRight(latin1Decode(combined), " ")
	}

	stem := strings.TrimRight(latin1Decode(nameBytes), " ")
	ext := strings.TrimRight(latin1Decode(raw.Extension[:]), " ")

	if ext == "" {
		return stem
	}
	return stem + "." + ext
}

// Classify inspects a raw 32-byte entry and reports which of the three entry
// states it represents, without fully decoding it.
func Classify(data []byte) ParseResult {
	if data[0] == 0x00 {
		return ParsedEndOfDirectory
	}
	if data[11] == LfnMarker {
		return ParsedSkip
	}
	return ParsedEntry
}

// Decode fully decodes a non-skipped, non-end-of-directory raw entry into a
// v9kfs.DirEntry.
func Decode(data []byte) v9kfs.DirEntry {
	raw := DecodeRaw(data)
	deleted := data[0] == DeletedMarker
	attrs := v9kfs.Attrs(raw.AttributeFlags)

	entry := v9kfs.DirEntry{
		Name:         ReconstructName(raw, attrs&v9kfs.AttrVolumeLabel != 0),
		Attrs:        attrs,
		FirstCluster: uint32(raw.FirstClusterHigh)<<16 | uint32(raw.FirstClusterLow),
		Size:         raw.FileSize,
		CreatedAt:    TimestampFromParts(raw.CreatedDate, raw.CreatedTime, raw.CreatedTimeTenth),
		ModifiedAt:   TimestampFromParts(raw.ModifiedDate, raw.ModifiedTime, 0),
		AccessedAt:   DateFromInt(raw.AccessedDate),
		Deleted:      deleted,
	}
	return entry
}

// splitName separates a user-facing name into its stem and extension, the
// way entry emission and wildcard matching both need to.
func splitName(name string) (stem, ext string) {
	idx := strings.LastIndexByte(name, '.')
	if idx < 0 {
		return name, ""
	}
	return name[:idx], name[idx+1:]
}

// isValid83Char reports whether r is permitted in an 8.3 name component;
// callers fold to uppercase before this check.
func isValid83Char(r rune) bool {
	if r >= 'A' && r <= 'Z' {
		return true
	}
	if r >= '0' && r <= '9' {
		return true
	}
	return strings.ContainsRune(validNameChars, r)
}

// EncodeName validates and packs a user-facing 8.3 name into the fixed
// 8-byte/3-byte on-disk fields, folding to uppercase.
func EncodeName(name string) (nameField [8]byte, extField [3]byte, verr *v9kfs.Error) {
	stem, ext := splitName(strings.ToUpper(name))
	if len(stem) == 0 || len(stem) > 8 || len(ext) > 3 {
		return nameField, extField, v9kfs.ErrInvalidName.WithMessage(
			"name %q does not fit the 8.3 layout", name)
	}

	for _, r := range stem {
		if !isValid83Char(r) {
			return nameField, extField, v9kfs.ErrInvalidName.WithMessage(
				"character %q is not allowed in an 8.3 name", r)
		}
	}
	for _, r := range ext {
		if !isValid83Char(r) {
			return nameField, extField, v9kfs.ErrInvalidName.WithMessage(
				"character %q is not allowed in an 8.3 extension", r)
		}
	}

	rawStem, ok := latin1Encode(fmt.Sprintf("%-8s", stem))
	if !ok {
		return nameField, extField, v9kfs.ErrInvalidName
	}
	if rawStem[0] == DeletedMarker {
		rawStem[0] = EscapedE5
	}
	copy(nameField[:], rawStem)

	rawExt, _ := latin1Encode(fmt.Sprintf("%-3s", ext))
	copy(extField[:], rawExt)

	return nameField, extField, nil
}

// EncodeVolumeLabelName validates and packs a volume label into the combined
// 11-byte name+extension field, without the 8.3 stem/extension split: a FAT
// volume label is a single 11-character field, so an 11-character label with
// no dot must round-trip.
func EncodeVolumeLabelName(name string) (nameField [8]byte, extField [3]byte, verr *v9kfs.Error) {
	upper := strings.ToUpper(name)
	if len(upper) == 0 || len(upper) > 11 {
		return nameField, extField, v9kfs.ErrInvalidName.WithMessage(
			"volume label %q does not fit in 11 characters", name)
	}
	for _, r := range upper {
		if !isValid83Char(r) {
			return nameField, extField, v9kfs.ErrInvalidName.WithMessage(
				"character %q is not allowed in a volume label", r)
		}
	}

	raw, ok := latin1Encode(fmt.Sprintf("%-11s", upper))
	if !ok {
		return nameField, extField, v9kfs.ErrInvalidName
	}
	if raw[0] == DeletedMarker {
		raw[0] = EscapedE5
	}
	copy(nameField[:], raw[:8])
	copy(extField[:], raw[8:11])
	return nameField, extField, nil
}

// Encode packs a v9kfs.DirEntry into its raw 32-byte on-disk form. The
// timestamps come from the entry itself, so callers control them and output
// stays deterministic. A volume label's name bypasses the 8.3 split
// (EncodeVolumeLabelName) since it occupies the full 11-byte field as one
// name.
func Encode(e v9kfs.DirEntry) ([]byte, *v9kfs.Error) {
	var nameField [8]byte
	var extField [3]byte
	var err *v9kfs.Error
	if e.IsVolumeLabel() {
		nameField, extField, err = EncodeVolumeLabelName(e.Name)
	} else {
		nameField, extField, err = EncodeName(e.Name)
	}
	if err != nil {
		return nil, err
	}

	raw := RawEntry{
		Name:             nameField,
		Extension:        extField,
		AttributeFlags:   byte(e.Attrs),
		FirstClusterHigh: uint16(e.FirstCluster >> 16),
		FirstClusterLow:  uint16(e.FirstCluster & 0xFFFF),
		FileSize:         e.Size,
		CreatedDate:      DateToInt(e.CreatedAt),
		CreatedTime:      TimeToInt(e.CreatedAt),
		ModifiedDate:     DateToInt(e.ModifiedAt),
		ModifiedTime:     TimeToInt(e.ModifiedAt),
		AccessedDate:     DateToInt(e.AccessedAt),
	}
	return EncodeRaw(raw), nil
}
