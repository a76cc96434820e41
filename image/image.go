// Package image ties every layer together: given a path expression, open
// the right kind of backing image (Victor floppy, IBM PC floppy, Victor
// hard disk volume, or a CP/M-86 floppy opened explicitly) and dispatch
// operations to it.
package image

import (
	"io"
	"time"

	"github.com/dargueta/v9kfs"
	"github.com/dargueta/v9kfs/block"
	"github.com/dargueta/v9kfs/geometry"
	"github.com/dargueta/v9kfs/hdlabel"
	"github.com/dargueta/v9kfs/volume"
)

// hardDiskMinLength is the image length below which sector 0 is never even
// tried as a Victor physical label.
const hardDiskMinLength = 2 * 1024 * 1024

// Handle is an opened image, tagged with one of two shapes:
//   - a single FAT12 Volume (Victor or IBM PC floppy, or a selected Victor
//     hard-disk partition), or
//   - an unselected Victor hard disk (Disk != nil, Volume == nil), for which
//     only List (the partition table) is valid; every other operation fails
//     with PartitionRequired.
type Handle struct {
	Volume *volume.Volume
	Disk   *hdlabel.Disk
}

// Open resolves expr.ImagePath to a Handle, trying the Victor hard-disk
// label first and falling back to floppy detection. CP/M-86 floppies carry
// no signature to detect and are opened through OpenCpm instead.
func Open(stream io.ReadWriteSeeker, expr v9kfs.PathExpression) (*Handle, *v9kfs.Error) {
	totalLength, err := streamLength(stream)
	if err != nil {
		return nil, err
	}

	header, err := readHeader(stream, totalLength)
	if err != nil {
		return nil, err
	}

	if totalLength >= hardDiskMinLength && hdlabel.LooksLikePhysicalLabel(header) {
		disk, derr := hdlabel.Open(stream)
		if derr != nil {
			return nil, derr
		}
		if !expr.HasPartition {
			return &Handle{Disk: disk}, nil
		}
		dev, geom, operr := disk.OpenVolume(expr.Partition)
		if operr != nil {
			return nil, operr
		}
		vol, operr := volume.Open(dev, geom)
		if operr != nil {
			return nil, operr
		}
		return &Handle{Volume: vol}, nil
	}

	if expr.HasPartition {
		return nil, v9kfs.ErrPartitionOutOfRange.WithMessage(
			"%s is not a Victor hard-disk image; it has no partitions", expr.ImagePath)
	}

	geom, gerr := geometry.Detect(header, totalLength)
	if gerr != nil {
		return nil, gerr
	}
	dev := block.New(stream, 0, geom.TotalSectors)
	vol, operr := volume.Open(dev, geom)
	if operr != nil {
		return nil, operr
	}
	return &Handle{Volume: vol}, nil
}

func streamLength(stream io.ReadWriteSeeker) (int64, *v9kfs.Error) {
	length, err := stream.Seek(0, io.SeekEnd)
	if err != nil {
		return 0, v9kfs.ErrIOError.Wrap(err)
	}
	if _, err := stream.Seek(0, io.SeekStart); err != nil {
		return 0, v9kfs.ErrIOError.Wrap(err)
	}
	return length, nil
}

func readHeader(stream io.ReadWriteSeeker, totalLength int64) ([]byte, *v9kfs.Error) {
	size := int64(geometry.HeaderSize)
	if totalLength < size {
		size = totalLength
	}
	header := make([]byte, size)
	if _, err := io.ReadFull(stream, header); err != nil && err != io.ErrUnexpectedEOF {
		return nil, v9kfs.ErrIOError.Wrap(err)
	}
	if _, err := stream.Seek(0, io.SeekStart); err != nil {
		return nil, v9kfs.ErrIOError.Wrap(err)
	}
	return header, nil
}

// CreateImage formats a brand-new image of variant onto stream and returns
// a Handle wrapping it. Victor hard disks are created through hdlabel
// directly, since they hold multiple volumes; this entry point covers the
// single-volume variants only.
func CreateImage(stream io.ReadWriteSeeker, variant v9kfs.FormatVariant, label string, now time.Time) (*Handle, *v9kfs.Error) {
	g, ok := geometry.ForVariant(variant)
	if !ok {
		return nil, v9kfs.ErrUnknownFormat.WithMessage("no canonical geometry for variant %v", variant)
	}
	dev := block.New(stream, 0, g.TotalSectors)
	vol, err := volume.CreateImage(dev, variant, label, now)
	if err != nil {
		return nil, err
	}
	return &Handle{Volume: vol}, nil
}

func (h *Handle) requireVolume() (*volume.Volume, *v9kfs.Error) {
	if h.Volume == nil {
		return nil, v9kfs.ErrPartitionRequired.WithMessage(
			"path must name a partition index for this hard-disk image")
	}
	return h.Volume, nil
}

// List enumerates a directory. On an unselected hard disk it yields the
// synthetic partition table; otherwise it delegates to the underlying
// volume.
func (h *Handle) List(components []string, recursive bool) ([]v9kfs.DirEntry, *v9kfs.Error) {
	if h.Volume == nil {
		rows, err := h.Disk.PartitionTable()
		if err != nil {
			return nil, err
		}
		entries := make([]v9kfs.DirEntry, 0, len(rows))
		for _, row := range rows {
			entries = append(entries, v9kfs.DirEntry{
				Name:         row.Name,
				Size:         row.Size,
				FirstCluster: uint32(row.Index),
			})
		}
		return entries, nil
	}
	return h.Volume.List(components, recursive)
}

// CopyOut extracts a file from the volume.
func (h *Handle) CopyOut(components []string, dst io.Writer) *v9kfs.Error {
	v, err := h.requireVolume()
	if err != nil {
		return err
	}
	return v.CopyOut(components, dst)
}

// CopyIn inserts a file into the volume.
func (h *Handle) CopyIn(src io.Reader, srcLen uint32, dstComponents []string, overwrite bool, attrs v9kfs.Attrs, mtime time.Time) *v9kfs.Error {
	v, err := h.requireVolume()
	if err != nil {
		return err
	}
	return v.CopyIn(src, srcLen, dstComponents, overwrite, attrs, mtime)
}

// MakeDir creates a new subdirectory.
func (h *Handle) MakeDir(components []string, mtime time.Time) *v9kfs.Error {
	v, err := h.requireVolume()
	if err != nil {
		return err
	}
	return v.MakeDir(components, mtime)
}

// Delete removes a file or subdirectory entry.
func (h *Handle) Delete(components []string) *v9kfs.Error {
	v, err := h.requireVolume()
	if err != nil {
		return err
	}
	return v.Delete(components)
}

// SetAttrs updates a file's attribute bits.
func (h *Handle) SetAttrs(components []string, setMask, clearMask v9kfs.Attrs) *v9kfs.Error {
	v, err := h.requireVolume()
	if err != nil {
		return err
	}
	return v.SetAttrs(components, setMask, clearMask)
}

// Verify checks the volume for filesystem corruption.
func (h *Handle) Verify() (v9kfs.VerifyReport, *v9kfs.Error) {
	v, err := h.requireVolume()
	if err != nil {
		return v9kfs.VerifyReport{}, err
	}
	return v.Verify()
}

// Info reports volume statistics.
func (h *Handle) Info() (v9kfs.Stats, *v9kfs.Error) {
	v, err := h.requireVolume()
	if err != nil {
		return v9kfs.Stats{}, err
	}
	return v.Info()
}

// Flush commits any staged FAT mutations.
func (h *Handle) Flush() *v9kfs.Error {
	if h.Volume == nil {
		return nil
	}
	return h.Volume.Flush()
}
