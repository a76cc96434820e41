// Package block reads and writes sector-aligned ranges against the backing
// image file. This is the only layer that touches raw bytes on the
// underlying stream; everything above it addresses sectors, clusters, or
// directory entries.
package block

import (
	"io"

	"github.com/dargueta/v9kfs"
)

// SectorSize is the fixed sector size this engine supports.
const SectorSize = v9kfs.SectorSize

// Device is a thin abstraction around a ReadWriteSeeker that restricts
// access to sector-aligned ranges and, for hard-disk images, offsets every
// access by the start of the partition's slice of the disk.
type Device struct {
	stream       io.ReadWriteSeeker
	startOffset  int64
	totalSectors uint32
}

// New creates a Device over stream, whose sector 0 is startOffset bytes into
// the underlying stream, and which exposes totalSectors sectors.
func New(stream io.ReadWriteSeeker, startOffset int64, totalSectors uint32) *Device {
	return &Device{stream: stream, startOffset: startOffset, totalSectors: totalSectors}
}

// TotalSectors returns the number of sectors visible through this device.
func (d *Device) TotalSectors() uint32 {
	return d.totalSectors
}

func (d *Device) checkBounds(sector uint32, count uint32) *v9kfs.Error {
	if count == 0 {
		return nil
	}
	if sector >= d.totalSectors || uint64(sector)+uint64(count) > uint64(d.totalSectors) {
		return v9kfs.ErrIOError.WithMessage(
			"sector range [%d, %d) out of bounds [0, %d)", sector, sector+count, d.totalSectors)
	}
	return nil
}

func (d *Device) offsetOf(sector uint32) int64 {
	return d.startOffset + int64(sector)*SectorSize
}

// ReadSectors reads count sectors starting at sector and returns the raw
// bytes.
func (d *Device) ReadSectors(sector uint32, count uint32) ([]byte, *v9kfs.Error) {
	if err := d.checkBounds(sector, count); err != nil {
		return nil, err
	}

	buffer := make([]byte, int(count)*SectorSize)
	if _, err := d.stream.Seek(d.offsetOf(sector), io.SeekStart); err != nil {
		return nil, v9kfs.ErrIOError.Wrap(err)
	}
	if _, err := io.ReadFull(d.stream, buffer); err != nil {
		return nil, v9kfs.ErrIOError.Wrap(err)
	}
	return buffer, nil
}

// WriteSectors writes data, which must be an exact multiple of SectorSize,
// starting at sector.
func (d *Device) WriteSectors(sector uint32, data []byte) *v9kfs.Error {
	if len(data)%SectorSize != 0 {
		return v9kfs.ErrIOError.WithMessage(
			"write of %d bytes is not a multiple of the sector size", len(data))
	}
	count := uint32(len(data) / SectorSize)
	if err := d.checkBounds(sector, count); err != nil {
		return err
	}

	if _, err := d.stream.Seek(d.offsetOf(sector), io.SeekStart); err != nil {
		return v9kfs.ErrIOError.Wrap(err)
	}
	if _, err := d.stream.Write(data); err != nil {
		return v9kfs.ErrIOError.Wrap(err)
	}
	return nil
}

// ReadAt reads length bytes at a byte offset from the start of sector 0,
// for callers (e.g. the geometry detector) that need finer granularity than
// a whole sector.
func (d *Device) ReadAt(offset int64, length int) ([]byte, *v9kfs.Error) {
	buffer := make([]byte, length)
	if _, err := d.stream.Seek(d.startOffset+offset, io.SeekStart); err != nil {
		return nil, v9kfs.ErrIOError.Wrap(err)
	}
	if _, err := io.ReadFull(d.stream, buffer); err != nil {
		return nil, v9kfs.ErrIOError.Wrap(err)
	}
	return buffer, nil
}
