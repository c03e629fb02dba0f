package fiorefs

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/hltanaka/fiorefs/internal/blockdev"
	"github.com/hltanaka/fiorefs/internal/fserrors"
	"github.com/hltanaka/fiorefs/internal/persist"
	"github.com/stretchr/testify/require"
)

func newFS(t *testing.T, blockCount uint64) Filesystem {
	t.Helper()
	path := filepath.Join(t.TempDir(), "vol.img")
	fs, err := NewFilesystem(path, WithFormatGeometry(512, blockCount))
	require.NoError(t, err)
	t.Cleanup(func() { fs.Shutdown() })
	return fs
}

func listNames(t *testing.T, ctx context.Context, fs Filesystem, path string) []string {
	t.Helper()
	require.NoError(t, fs.Opendir(ctx, path))
	defer fs.Closedir(ctx)
	var names []string
	for {
		e, ok, err := fs.Readdir(ctx)
		require.NoError(t, err)
		if !ok {
			break
		}
		names = append(names, e.Name)
	}
	return names
}

// Scenario 1: format a 1MiB/512-byte volume, check the initial
// cwd/readdir state.
func TestFormatScenario(t *testing.T) {
	ctx := context.Background()
	fs := newFS(t, 2048)

	cwd, err := fs.Getcwd(ctx)
	require.NoError(t, err)
	require.Equal(t, "./", cwd)

	names := listNames(t, ctx, fs, ".")
	require.ElementsMatch(t, []string{".", ".."}, names)
}

// Scenario 2: duplicate mkdir fails, readdir reflects the new entry.
func TestMkdirDuplicateScenario(t *testing.T) {
	ctx := context.Background()
	fs := newFS(t, 2048)

	require.NoError(t, fs.Mkdir(ctx, "foo"))
	err := fs.Mkdir(ctx, "foo")
	require.ErrorIs(t, err, fserrors.ErrAlreadyExists)

	names := listNames(t, ctx, fs, ".")
	require.ElementsMatch(t, []string{".", "..", "foo"}, names)
}

// Scenario 3: nested mkdir requires the parent to exist; setcwd+getcwd
// round trip to the nested path.
func TestNestedMkdirAndCwdScenario(t *testing.T) {
	ctx := context.Background()
	fs := newFS(t, 2048)

	err := fs.Mkdir(ctx, "a/b")
	require.Error(t, err)

	require.NoError(t, fs.Mkdir(ctx, "a"))
	require.NoError(t, fs.Mkdir(ctx, "a/b"))
	require.NoError(t, fs.Setcwd(ctx, "a/b"))

	cwd, err := fs.Getcwd(ctx)
	require.NoError(t, err)
	require.Equal(t, "./a/b", cwd)
}

// Scenario 4: a 1500-byte write allocates ceil(1500/512)=3 blocks and
// round-trips byte-for-byte on read.
func TestWriteReadAllocatesThreeBlocks(t *testing.T) {
	ctx := context.Background()
	fs := newFS(t, 2048)

	payload := make([]byte, 1500)
	for i := range payload {
		payload[i] = byte(i % 251)
	}

	fd, err := fs.Open(ctx, "data")
	require.NoError(t, err)
	require.NoError(t, fs.Write(ctx, fd, payload))
	require.NoError(t, fs.Close(ctx, fd))

	require.NoError(t, fs.Opendir(ctx, "."))
	info, err := fs.Stat(ctx, "data")
	fs.Closedir(ctx)
	require.NoError(t, err)
	require.False(t, info.IsDir)
	require.EqualValues(t, 1500, info.Size)
	require.EqualValues(t, 3, info.BlockCount)

	fd2, err := fs.Open(ctx, "data")
	require.NoError(t, err)
	dst := make([]byte, 1500)
	total := 0
	for total < len(dst) {
		n, err := fs.Read(ctx, fd2, dst[total:])
		require.NoError(t, err)
		require.NotZero(t, n)
		total += n
	}
	require.Equal(t, payload, dst)
	require.NoError(t, fs.Close(ctx, fd2))
}

// Scenario 5: rmdir cascades cwd retargeting up through every removed
// ancestor, and the removed directory no longer resolves.
func TestRmdirCascadesCwd(t *testing.T) {
	ctx := context.Background()
	fs := newFS(t, 2048)

	require.NoError(t, fs.Mkdir(ctx, "a"))
	require.NoError(t, fs.Mkdir(ctx, "a/b"))
	require.NoError(t, fs.Setcwd(ctx, "a/b"))

	// paths resolve from cwd, so "a" is reached from a/b via "../..".
	require.NoError(t, fs.Rmdir(ctx, "../../a"))

	cwd, err := fs.Getcwd(ctx)
	require.NoError(t, err)
	require.Equal(t, "./", cwd)

	isDir, err := fs.IsDir(ctx, "a")
	require.NoError(t, err)
	require.False(t, isDir)
}

// Scenario 6: write then read on the same handle is a mode conflict.
func TestWriteThenReadSameHandleConflict(t *testing.T) {
	ctx := context.Background()
	fs := newFS(t, 2048)

	fd, err := fs.Open(ctx, "f")
	require.NoError(t, err)
	require.NoError(t, fs.Write(ctx, fd, make([]byte, 200)))

	_, err = fs.Read(ctx, fd, make([]byte, 10))
	require.ErrorIs(t, err, fserrors.ErrModeConflict)
}

func TestMountIDIsStablePerSession(t *testing.T) {
	fs := newFS(t, 64)
	id1 := fs.MountID()
	id2 := fs.MountID()
	require.Equal(t, id1, id2)
}

// countUsedBlocks reloads the VCB and freespace bitmap fresh off disk
// (the volume must not be mounted concurrently) and counts set bits.
func countUsedBlocks(t *testing.T, path string, blockSize, blockCount uint64) int {
	t.Helper()
	dev, err := blockdev.Open(path, blockSize, blockCount)
	require.NoError(t, err)
	defer dev.Close()

	vcb, err := persist.ReadVCB(dev)
	require.NoError(t, err)
	bm, err := persist.ReadFreespace(dev, uint64(vcb.VCBBlockCount), blockCount)
	require.NoError(t, err)

	count := 0
	for i := uint64(0); i < blockCount; i++ {
		set, err := bm.IsSet(i)
		require.NoError(t, err)
		if set {
			count++
		}
	}
	return count
}

// Regression: writing and deleting a zero-length file must return the
// bitmap to its prior occupancy. deleteFileEntry used to skip release
// entirely when the stored size rounded down to 0 blocks, leaking the
// single block Close still allocates for an empty write.
func TestDeleteEmptyFileReleasesItsBlock(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "vol.img")

	fs1, err := NewFilesystem(path, WithFormatGeometry(512, 64))
	require.NoError(t, err)
	require.NoError(t, fs1.Shutdown())
	before := countUsedBlocks(t, path, 512, 64)

	fs2, err := NewFilesystem(path, WithFormatGeometry(512, 64))
	require.NoError(t, err)

	fd, err := fs2.Open(ctx, "empty.txt")
	require.NoError(t, err)
	require.NoError(t, fs2.Write(ctx, fd, []byte{}))
	require.NoError(t, fs2.Close(ctx, fd))
	require.NoError(t, fs2.Delete(ctx, "empty.txt"))
	require.NoError(t, fs2.Shutdown())

	after := countUsedBlocks(t, path, 512, 64)
	require.Equal(t, before, after)
}

func TestReopenExistingVolumePreservesContents(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "vol.img")

	fs1, err := NewFilesystem(path, WithFormatGeometry(512, 2048))
	require.NoError(t, err)
	require.NoError(t, fs1.Mkdir(ctx, "persisted"))
	require.NoError(t, fs1.Shutdown())

	fs2, err := NewFilesystem(path, WithFormatGeometry(512, 2048))
	require.NoError(t, err)
	defer fs2.Shutdown()

	isDir, err := fs2.IsDir(ctx, "persisted")
	require.NoError(t, err)
	require.True(t, isDir)
}
