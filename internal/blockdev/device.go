// Package blockdev is the Block Device Adapter of spec.md §4.1: whole-
// block reads and writes against a backing regular file, treated as a
// raw block device. Higher layers pad through internal/persist before
// calling into this package; out-of-range accesses are rejected here.
package blockdev

import (
	"fmt"
	"io"
	"os"

	"github.com/hltanaka/fiorefs/internal/fserrors"
)

// Device is a fixed block-size, fixed block-count view over a backing
// file opened for read/write.
type Device struct {
	file       *os.File
	blockSize  uint64
	blockCount uint64
}

// Open opens (creating if necessary) the backing file at path and
// returns a Device sized to blockCount blocks of blockSize bytes each.
// If the file is smaller than the volume size, it is extended with
// zero bytes.
func Open(path string, blockSize, blockCount uint64) (*Device, error) {
	if blockSize == 0 || blockCount == 0 {
		return nil, fmt.Errorf("blockdev: blockSize and blockCount must be positive: %w", fserrors.ErrInvalidArgument)
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, fmt.Errorf("blockdev: open %s: %w", path, fserrors.ErrIO)
	}

	volumeSize := int64(blockSize * blockCount)
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("blockdev: stat %s: %w", path, fserrors.ErrIO)
	}
	if info.Size() < volumeSize {
		if err := f.Truncate(volumeSize); err != nil {
			f.Close()
			return nil, fmt.Errorf("blockdev: truncate %s to %d bytes: %w", path, volumeSize, fserrors.ErrIO)
		}
	}

	return &Device{file: f, blockSize: blockSize, blockCount: blockCount}, nil
}

// Close releases the backing file handle.
func (d *Device) Close() error {
	if err := d.file.Close(); err != nil {
		return fmt.Errorf("blockdev: close: %w", fserrors.ErrIO)
	}
	return nil
}

// BlockSize returns the fixed block size in bytes.
func (d *Device) BlockSize() uint64 { return d.blockSize }

// BlockCount returns the total number of addressable blocks.
func (d *Device) BlockCount() uint64 { return d.blockCount }

func (d *Device) inRange(start, count uint64) bool {
	if count == 0 {
		return true
	}
	return start < d.blockCount && count <= d.blockCount-start
}

// ReadBlocks reads count whole blocks starting at block start into buf.
// buf must be exactly count*BlockSize bytes.
func (d *Device) ReadBlocks(buf []byte, count, start uint64) error {
	if !d.inRange(start, count) {
		return fmt.Errorf("blockdev: read range [%d,%d) out of bounds (count=%d): %w", start, start+count, d.blockCount, fserrors.ErrInvalidArgument)
	}
	want := count * d.blockSize
	if uint64(len(buf)) != want {
		return fmt.Errorf("blockdev: read buffer is %d bytes, want %d: %w", len(buf), want, fserrors.ErrInvalidArgument)
	}
	if _, err := d.file.ReadAt(buf, int64(start*d.blockSize)); err != nil && err != io.EOF {
		return fmt.Errorf("blockdev: read at block %d: %w", start, fserrors.ErrIO)
	}
	return nil
}

// WriteBlocks writes count whole blocks starting at block start from buf.
// buf must be exactly count*BlockSize bytes.
func (d *Device) WriteBlocks(buf []byte, count, start uint64) error {
	if !d.inRange(start, count) {
		return fmt.Errorf("blockdev: write range [%d,%d) out of bounds (count=%d): %w", start, start+count, d.blockCount, fserrors.ErrInvalidArgument)
	}
	want := count * d.blockSize
	if uint64(len(buf)) != want {
		return fmt.Errorf("blockdev: write buffer is %d bytes, want %d: %w", len(buf), want, fserrors.ErrInvalidArgument)
	}
	if _, err := d.file.WriteAt(buf, int64(start*d.blockSize)); err != nil {
		return fmt.Errorf("blockdev: write at block %d: %w", start, fserrors.ErrIO)
	}
	return nil
}
