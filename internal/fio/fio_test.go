package fio

import (
	"path/filepath"
	"testing"

	"github.com/hltanaka/fiorefs/internal/allocator"
	"github.com/hltanaka/fiorefs/internal/bitmap"
	"github.com/hltanaka/fiorefs/internal/blockdev"
	"github.com/hltanaka/fiorefs/internal/dirmgr"
	"github.com/hltanaka/fiorefs/internal/dirtypes"
	"github.com/hltanaka/fiorefs/internal/fserrors"
	"github.com/hltanaka/fiorefs/internal/fsstate"
	"github.com/hltanaka/fiorefs/internal/vcbmgr"
	"github.com/stretchr/testify/require"
)

func newMountedPool(t *testing.T, blockCount uint64) (*Pool, *dirtypes.Directory) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "vol.img")
	dev, err := blockdev.Open(path, 512, blockCount)
	require.NoError(t, err)
	t.Cleanup(func() { dev.Close() })

	vcb, err := vcbmgr.NewVCB(blockCount, 512)
	require.NoError(t, err)

	buf := make([]byte, bitmap.ByteLen(blockCount))
	bm, err := bitmap.New(buf, blockCount)
	require.NoError(t, err)

	alloc := allocator.New(dev, bm, vcb)
	prefix := uint64(vcb.VCBBlockCount) + uint64(vcb.FreespaceBlockCount)
	_, err = alloc.Allocate(prefix)
	require.NoError(t, err)

	state := fsstate.New(nil)
	dm := dirmgr.New(dev, alloc, vcb, state)
	root, err := dm.CreateDirectory(nil, "/")
	require.NoError(t, err)
	vcb.RootDirLocation = root.DirectoryStartLocation
	require.NoError(t, vcbmgr.Update(dev, vcb))
	state.CWD = root

	return New(dev, alloc), root
}

func TestWriteReadRoundTrip(t *testing.T) {
	pool, root := newMountedPool(t, 64)

	fd, err := pool.Open(root, "hello.txt")
	require.NoError(t, err)

	payload := []byte("hello, fiorefs")
	require.NoError(t, pool.Write(fd, payload, uint64(len(payload))))
	require.NoError(t, pool.Close(fd))

	idx, entry, ok := root.FindUsedByName("hello.txt")
	require.True(t, ok)
	require.Equal(t, dirtypes.TypeFile, root.Entries[idx].FileType)
	require.EqualValues(t, len(payload), entry.Size)

	fd2, err := pool.Open(root, "hello.txt")
	require.NoError(t, err)
	dst := make([]byte, 64)
	n, err := pool.Read(fd2, dst, uint64(len(dst)))
	require.NoError(t, err)
	require.Equal(t, payload, dst[:n])

	n2, err := pool.Read(fd2, dst, uint64(len(dst)))
	require.NoError(t, err)
	require.Zero(t, n2)
	require.NoError(t, pool.Close(fd2))
}

func TestWriteSpansMultipleBlocks(t *testing.T) {
	pool, root := newMountedPool(t, 64)

	fd, err := pool.Open(root, "big.bin")
	require.NoError(t, err)

	payload := make([]byte, 1500)
	for i := range payload {
		payload[i] = byte(i)
	}
	require.NoError(t, pool.Write(fd, payload, uint64(len(payload))))
	require.NoError(t, pool.Close(fd))

	_, entry, ok := root.FindUsedByName("big.bin")
	require.True(t, ok)
	require.EqualValues(t, 1500, entry.Size)

	fd2, err := pool.Open(root, "big.bin")
	require.NoError(t, err)
	dst := make([]byte, 1500)
	total := uint64(0)
	for total < 1500 {
		n, err := pool.Read(fd2, dst[total:], 1500-total)
		require.NoError(t, err)
		require.NotZero(t, n)
		total += n
	}
	require.Equal(t, payload, dst)
	require.NoError(t, pool.Close(fd2))
}

func TestWriteThenReadSameHandleConflicts(t *testing.T) {
	pool, root := newMountedPool(t, 64)

	fd, err := pool.Open(root, "file.dat")
	require.NoError(t, err)
	payload := make([]byte, 200)
	require.NoError(t, pool.Write(fd, payload, uint64(len(payload))))

	dst := make([]byte, 10)
	_, err = pool.Read(fd, dst, uint64(len(dst)))
	require.ErrorIs(t, err, fserrors.ErrModeConflict)
}

func TestReadMissingFileErrors(t *testing.T) {
	pool, root := newMountedPool(t, 64)

	fd, err := pool.Open(root, "nope.txt")
	require.NoError(t, err)
	dst := make([]byte, 10)
	_, err = pool.Read(fd, dst, uint64(len(dst)))
	require.ErrorIs(t, err, fserrors.ErrNotFound)
}

func TestWriteRejectsDuplicateName(t *testing.T) {
	pool, root := newMountedPool(t, 64)

	fd, err := pool.Open(root, "dup.txt")
	require.NoError(t, err)
	require.NoError(t, pool.Write(fd, []byte("a"), 1))
	require.NoError(t, pool.Close(fd))

	fd2, err := pool.Open(root, "dup.txt")
	require.NoError(t, err)
	err = pool.Write(fd2, []byte("b"), 1)
	require.ErrorIs(t, err, fserrors.ErrAlreadyExists)
}

func TestPoolExhaustion(t *testing.T) {
	pool, root := newMountedPool(t, 64)

	for i := 0; i < MaxFCBs; i++ {
		_, err := pool.Open(root, "f")
		require.NoError(t, err)
	}
	_, err := pool.Open(root, "f")
	require.ErrorIs(t, err, fserrors.ErrCapacity)
}
