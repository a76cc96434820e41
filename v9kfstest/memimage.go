// Package v9kfstest provides fixtures shared across this module's test
// suites: building in-memory disk images without touching the real
// filesystem.
package v9kfstest

import (
	"io"

	"github.com/xaionaro-go/bytesextra"
)

// NewMemoryImage returns a fixed-size, seekable, read/write stream backed by
// size zero bytes. Writes past the end of the buffer fail, exactly as
// writing past the end of a real disk image would.
func NewMemoryImage(size int) io.ReadWriteSeeker {
	return bytesextra.NewReadWriteSeeker(make([]byte, size))
}

// NewMemoryImageFromBytes is like NewMemoryImage but seeds the buffer with
// existing content, e.g. a hand-crafted boot sector or FAT.
func NewMemoryImageFromBytes(data []byte) io.ReadWriteSeeker {
	buf := make([]byte, len(data))
	copy(buf, data)
	return bytesextra.NewReadWriteSeeker(buf)
}
