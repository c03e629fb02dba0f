package blockdev

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOpenCreatesSizedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "volume.img")
	dev, err := Open(path, 512, 2048)
	require.NoError(t, err)
	defer dev.Close()

	require.Equal(t, uint64(512), dev.BlockSize())
	require.Equal(t, uint64(2048), dev.BlockCount())
}

func TestWriteReadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "volume.img")
	dev, err := Open(path, 512, 8)
	require.NoError(t, err)
	defer dev.Close()

	payload := make([]byte, 512*2)
	for i := range payload {
		payload[i] = byte(i)
	}
	require.NoError(t, dev.WriteBlocks(payload, 2, 3))

	out := make([]byte, 512*2)
	require.NoError(t, dev.ReadBlocks(out, 2, 3))
	require.Equal(t, payload, out)
}

func TestOutOfRangeRejected(t *testing.T) {
	path := filepath.Join(t.TempDir(), "volume.img")
	dev, err := Open(path, 512, 4)
	require.NoError(t, err)
	defer dev.Close()

	buf := make([]byte, 512*2)
	err = dev.ReadBlocks(buf, 2, 3)
	require.Error(t, err)

	err = dev.WriteBlocks(buf, 2, 3)
	require.Error(t, err)
}

func TestWrongBufferSizeRejected(t *testing.T) {
	path := filepath.Join(t.TempDir(), "volume.img")
	dev, err := Open(path, 512, 4)
	require.NoError(t, err)
	defer dev.Close()

	buf := make([]byte, 511)
	require.Error(t, dev.ReadBlocks(buf, 1, 0))
	require.Error(t, dev.WriteBlocks(buf, 1, 0))
}

func TestReopenPreservesContents(t *testing.T) {
	path := filepath.Join(t.TempDir(), "volume.img")
	dev, err := Open(path, 512, 4)
	require.NoError(t, err)

	payload := make([]byte, 512)
	for i := range payload {
		payload[i] = 0xAB
	}
	require.NoError(t, dev.WriteBlocks(payload, 1, 1))
	require.NoError(t, dev.Close())

	dev2, err := Open(path, 512, 4)
	require.NoError(t, err)
	defer dev2.Close()

	out := make([]byte, 512)
	require.NoError(t, dev2.ReadBlocks(out, 1, 1))
	require.Equal(t, payload, out)
}
