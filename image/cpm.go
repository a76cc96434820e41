package image

import (
	"io"

	"github.com/dargueta/v9kfs"
	"github.com/dargueta/v9kfs/block"
	"github.com/dargueta/v9kfs/cpm"
)

// OpenCpm opens stream as a CP/M-86 floppy using layout. Unlike the other
// variants, CP/M-86 images carry no signature the core can use to
// auto-detect them, so the caller supplies the layout explicitly rather
// than going through Open.
func OpenCpm(stream io.ReadWriteSeeker, layout cpm.Layout, totalSectors uint32) (*cpm.Volume, *v9kfs.Error) {
	dev := block.New(stream, 0, totalSectors)
	return cpm.Open(dev, layout)
}
