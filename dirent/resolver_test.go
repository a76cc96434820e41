package dirent_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dargueta/v9kfs"
	"github.com/dargueta/v9kfs/dirent"
)

// fakeBackend is an in-memory dirent.Backend keyed by first cluster number,
// standing in for a real volume's block device + FAT during path-resolver
// tests.
type fakeBackend struct {
	dirs map[uint32][]byte
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{dirs: map[uint32][]byte{}}
}

func (f *fakeBackend) ReadDirectory(firstCluster uint32) ([]byte, *v9kfs.Error) {
	data, ok := f.dirs[firstCluster]
	if !ok {
		return nil, v9kfs.ErrIOError.WithMessage("no such directory cluster %d", firstCluster)
	}
	return data, nil
}

func (f *fakeBackend) WriteDirectory(firstCluster uint32, data []byte) *v9kfs.Error {
	f.dirs[firstCluster] = data
	return nil
}

func (f *fakeBackend) GrowDirectory(firstCluster uint32, current []byte) ([]byte, *v9kfs.Error) {
	grown := append(append([]byte{}, current...), make([]byte, 512)...)
	f.dirs[firstCluster] = grown
	return grown, nil
}

func putEntry(data []byte, idx int, e v9kfs.DirEntry) []byte {
	raw, err := dirent.Encode(e)
	if err != nil {
		panic(err)
	}
	copy(data[idx*dirent.EntrySize:], raw)
	return data
}

func TestResolve_RootWithNoComponents(t *testing.T) {
	backend := newFakeBackend()
	backend.dirs[0] = make([]byte, 512)

	result, err := dirent.Resolve(backend, nil)
	require.Nil(t, err)
	assert.True(t, result.IsRoot)
}

func TestResolve_FindsFileInRoot(t *testing.T) {
	backend := newFakeBackend()
	root := make([]byte, 512)
	putEntry(root, 0, v9kfs.DirEntry{Name: "FOO.TXT", FirstCluster: 5, Size: 100})
	backend.dirs[0] = root

	result, err := dirent.Resolve(backend, []string{"FOO.TXT"})
	require.Nil(t, err)
	assert.Equal(t, "FOO.TXT", result.Entry.Name)
	assert.EqualValues(t, 5, result.Entry.FirstCluster)
}

func TestResolve_WalksIntoSubdirectory(t *testing.T) {
	backend := newFakeBackend()
	root := make([]byte, 512)
	putEntry(root, 0, v9kfs.DirEntry{Name: "SUB", Attrs: v9kfs.AttrSubdirectory, FirstCluster: 9})
	backend.dirs[0] = root

	sub := make([]byte, 512)
	putEntry(sub, 0, v9kfs.DirEntry{Name: "INNER.TXT", FirstCluster: 10, Size: 20})
	backend.dirs[9] = sub

	result, err := dirent.Resolve(backend, []string{"SUB", "INNER.TXT"})
	require.Nil(t, err)
	assert.Equal(t, "INNER.TXT", result.Entry.Name)
	assert.EqualValues(t, 9, result.ParentFirstCluster)
}

func TestResolve_NotFound(t *testing.T) {
	backend := newFakeBackend()
	backend.dirs[0] = make([]byte, 512)

	_, err := dirent.Resolve(backend, []string{"MISSING.TXT"})
	require.NotNil(t, err)
	assert.Equal(t, v9kfs.KindNotFound, err.Kind)
}

func TestResolve_NotADirectoryWhenWalkingThroughFile(t *testing.T) {
	backend := newFakeBackend()
	root := make([]byte, 512)
	putEntry(root, 0, v9kfs.DirEntry{Name: "FILE.TXT", FirstCluster: 5})
	backend.dirs[0] = root

	_, err := dirent.Resolve(backend, []string{"FILE.TXT", "X.TXT"})
	require.NotNil(t, err)
	assert.Equal(t, v9kfs.KindNotADirectory, err.Kind)
}

func TestResolve_AmbiguousOnDuplicateNames(t *testing.T) {
	backend := newFakeBackend()
	root := make([]byte, 512)
	putEntry(root, 0, v9kfs.DirEntry{Name: "DUP.TXT", FirstCluster: 5})
	putEntry(root, 1, v9kfs.DirEntry{Name: "DUP.TXT", FirstCluster: 6})
	backend.dirs[0] = root

	_, err := dirent.Resolve(backend, []string{"DUP.TXT"})
	require.NotNil(t, err)
	assert.Equal(t, v9kfs.KindAmbiguous, err.Kind)
}

func TestResolve_IgnoresDeletedEntries(t *testing.T) {
	backend := newFakeBackend()
	root := make([]byte, 512)
	putEntry(root, 0, v9kfs.DirEntry{Name: "GONE.TXT", FirstCluster: 5})
	root[0] = dirent.DeletedMarker
	backend.dirs[0] = root

	_, err := dirent.Resolve(backend, []string{"GONE.TXT"})
	require.NotNil(t, err)
	assert.Equal(t, v9kfs.KindNotFound, err.Kind)
}

func TestListEntries_KeepsVolumeLabelForCallerToFilter(t *testing.T) {
	root := make([]byte, 512)
	putEntry(root, 0, v9kfs.DirEntry{Name: "VOL", Attrs: v9kfs.AttrVolumeLabel})
	putEntry(root, 1, v9kfs.DirEntry{Name: "FILE.TXT"})

	slots := dirent.ListEntries(root)
	require.Len(t, slots, 2)
	assert.True(t, slots[0].Entry.IsVolumeLabel())
	assert.False(t, slots[1].Entry.IsVolumeLabel())
}

func TestNewSubdirectorySeed_HasDotAndDotDot(t *testing.T) {
	seed := dirent.NewSubdirectorySeed(512, 9, 0)
	slots := dirent.ListEntries(seed)
	require.Len(t, slots, 2)
	assert.EqualValues(t, 9, slots[0].Entry.FirstCluster)
	assert.EqualValues(t, 0, slots[1].Entry.FirstCluster)
}
