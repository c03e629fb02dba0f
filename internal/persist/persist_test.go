package persist

import (
	"path/filepath"
	"testing"

	"github.com/hltanaka/fiorefs/internal/bitmap"
	"github.com/hltanaka/fiorefs/internal/blockdev"
	"github.com/hltanaka/fiorefs/internal/dirtypes"
	"github.com/hltanaka/fiorefs/internal/vcbtypes"
	"github.com/stretchr/testify/require"
)

func openDev(t *testing.T) *blockdev.Device {
	t.Helper()
	path := filepath.Join(t.TempDir(), "vol.img")
	dev, err := blockdev.Open(path, 512, 64)
	require.NoError(t, err)
	t.Cleanup(func() { dev.Close() })
	return dev
}

func TestBlocksFor(t *testing.T) {
	require.Equal(t, uint64(1), BlocksFor(1, 512))
	require.Equal(t, uint64(1), BlocksFor(512, 512))
	require.Equal(t, uint64(2), BlocksFor(513, 512))
}

func TestVCBWriteReadRoundTrip(t *testing.T) {
	dev := openDev(t)
	v := &vcbtypes.VCB{
		Magic:               vcbtypes.Magic,
		BlockSize:           512,
		NumberOfBlocks:      64,
		VCBBlockCount:       1,
		FreespaceBlockCount: 1,
		FirstFreeBlockIndex: 2,
		RootDirLocation:     2,
	}
	require.NoError(t, WriteVCB(dev, v))

	got, err := ReadVCB(dev)
	require.NoError(t, err)
	require.Equal(t, v, got)
}

func TestFreespaceWriteReadRoundTrip(t *testing.T) {
	dev := openDev(t)
	buf := make([]byte, bitmap.ByteLen(64))
	bm, err := bitmap.New(buf, 64)
	require.NoError(t, err)
	require.NoError(t, bm.Set(0))
	require.NoError(t, bm.Set(5))

	require.NoError(t, WriteFreespace(dev, bm, 1))

	got, err := ReadFreespace(dev, 1, 64)
	require.NoError(t, err)
	set, err := got.IsSet(0)
	require.NoError(t, err)
	require.True(t, set)
	set, err = got.IsSet(5)
	require.NoError(t, err)
	require.True(t, set)
	set, err = got.IsSet(1)
	require.NoError(t, err)
	require.False(t, set)
}

func TestDirectoryWriteReadRoundTrip(t *testing.T) {
	dev := openDev(t)
	span := DirectoryBlockSpan(dev.BlockSize())
	d := &dirtypes.Directory{
		Name:                   "root",
		DirectoryStartLocation: 2,
		RecLen:                 uint32(dirtypes.DirectorySize),
		DirEntryAmount:         2,
	}
	d.Entries[0] = dirtypes.Entry{Name: ".", FileType: dirtypes.TypeDir, Space: dirtypes.SpaceUsed, EntryStartLocation: 2, Size: uint64(dirtypes.DirectorySize)}
	d.Entries[1] = dirtypes.Entry{Name: "..", FileType: dirtypes.TypeDir, Space: dirtypes.SpaceUsed, EntryStartLocation: 2, Size: uint64(dirtypes.DirectorySize)}

	require.NoError(t, WriteDirectory(dev, d))
	require.Greater(t, span, uint64(0))

	got, err := ReadDirectory(dev, 2)
	require.NoError(t, err)
	require.Equal(t, d, got)
}
