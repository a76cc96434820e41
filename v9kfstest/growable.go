package v9kfstest

import "io"

// GrowableImage is an io.ReadWriteSeeker backed by a slice that grows on
// demand, the way a freshly os.Create'd file grows as bytes are written past
// its current end. Unlike NewMemoryImage, it does not pre-allocate the full
// image size, so a test built on it can catch code that silently leaves the
// tail of an image unwritten.
type GrowableImage struct {
	data []byte
	pos  int64
}

// NewGrowableImage returns an empty, seekable, read/write stream that grows
// to fit whatever is written to it.
func NewGrowableImage() *GrowableImage {
	return &GrowableImage{}
}

func (g *GrowableImage) Read(p []byte) (int, error) {
	if g.pos >= int64(len(g.data)) {
		return 0, io.EOF
	}
	n := copy(p, g.data[g.pos:])
	g.pos += int64(n)
	return n, nil
}

func (g *GrowableImage) Write(p []byte) (int, error) {
	end := g.pos + int64(len(p))
	if end > int64(len(g.data)) {
		grown := make([]byte, end)
		copy(grown, g.data)
		g.data = grown
	}
	n := copy(g.data[g.pos:end], p)
	g.pos = end
	return n, nil
}

func (g *GrowableImage) Seek(offset int64, whence int) (int64, error) {
	var newPos int64
	switch whence {
	case io.SeekStart:
		newPos = offset
	case io.SeekCurrent:
		newPos = g.pos + offset
	case io.SeekEnd:
		newPos = int64(len(g.data)) + offset
	default:
		return 0, io.ErrClosedPipe
	}
	if newPos < 0 {
		return 0, io.ErrClosedPipe
	}
	g.pos = newPos
	return newPos, nil
}

// Len reports the current length of the backing buffer, mirroring the size
// a real file would have on disk after the writes made to it so far.
func (g *GrowableImage) Len() int {
	return len(g.data)
}
