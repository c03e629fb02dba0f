// Package persist implements the Persistence Helpers of spec.md §4.8:
// padded, whole-block write-back of structures that do not naturally
// fill a block (the VCB, directory records), plus the bitmap write.
package persist

import (
	"fmt"

	"github.com/hltanaka/fiorefs/internal/bincodec"
	"github.com/hltanaka/fiorefs/internal/bitmap"
	"github.com/hltanaka/fiorefs/internal/blockdev"
	"github.com/hltanaka/fiorefs/internal/dirtypes"
	"github.com/hltanaka/fiorefs/internal/fserrors"
	"github.com/hltanaka/fiorefs/internal/vcbtypes"
)

// BlocksFor returns the number of whole blocks needed to hold byteSize
// bytes given blockSize, i.e. ceil(byteSize/blockSize).
func BlocksFor(byteSize, blockSize uint64) uint64 {
	return (byteSize + blockSize - 1) / blockSize
}

// WriteWhole pads data with zeros to a whole number of blocks and
// writes it starting at startBlock.
func WriteWhole(dev *blockdev.Device, data []byte, startBlock uint64) error {
	blockSize := dev.BlockSize()
	count := BlocksFor(uint64(len(data)), blockSize)
	padded := make([]byte, count*blockSize)
	copy(padded, data)
	if err := dev.WriteBlocks(padded, count, startBlock); err != nil {
		return fmt.Errorf("persist: write whole at block %d: %w", startBlock, err)
	}
	return nil
}

// ReadWhole reads ceil(byteSize/blockSize) blocks starting at
// startBlock and returns the first byteSize bytes.
func ReadWhole(dev *blockdev.Device, startBlock, byteSize uint64) ([]byte, error) {
	blockSize := dev.BlockSize()
	count := BlocksFor(byteSize, blockSize)
	buf := make([]byte, count*blockSize)
	if err := dev.ReadBlocks(buf, count, startBlock); err != nil {
		return nil, fmt.Errorf("persist: read whole at block %d: %w", startBlock, err)
	}
	return buf[:byteSize], nil
}

// WriteVCB pads and writes v to block 0.
func WriteVCB(dev *blockdev.Device, v *vcbtypes.VCB) error {
	return WriteWhole(dev, bincodec.EncodeVCB(v), 0)
}

// ReadVCB reads and decodes the VCB from block 0.
func ReadVCB(dev *blockdev.Device) (*vcbtypes.VCB, error) {
	data, err := ReadWhole(dev, 0, vcbtypes.Size)
	if err != nil {
		return nil, err
	}
	return bincodec.DecodeVCB(data)
}

// WriteFreespace writes the bitmap's backing bytes starting at
// vcbBlocks (the first block after the VCB region).
func WriteFreespace(dev *blockdev.Device, bm *bitmap.Bitmap, vcbBlocks uint64) error {
	return WriteWhole(dev, bm.Bytes(), vcbBlocks)
}

// ReadFreespace reads blockCount bits worth of bitmap bytes starting at
// vcbBlocks and wraps them as a Bitmap.
func ReadFreespace(dev *blockdev.Device, vcbBlocks, blockCount uint64) (*bitmap.Bitmap, error) {
	byteLen := bitmap.ByteLen(blockCount)
	data, err := ReadWhole(dev, vcbBlocks, byteLen)
	if err != nil {
		return nil, err
	}
	return bitmap.New(data, blockCount)
}

// WriteDirectory pads and writes d at its own start location.
func WriteDirectory(dev *blockdev.Device, d *dirtypes.Directory) error {
	if d.DirectoryStartLocation == 0 && d.RecLen == 0 {
		return fmt.Errorf("persist: directory has no start location: %w", fserrors.ErrInvalidArgument)
	}
	return WriteWhole(dev, bincodec.EncodeDirectory(d), d.DirectoryStartLocation)
}

// ReadDirectory reads and decodes a Directory record starting at
// startBlock.
func ReadDirectory(dev *blockdev.Device, startBlock uint64) (*dirtypes.Directory, error) {
	data, err := ReadWhole(dev, startBlock, dirtypes.DirectorySize)
	if err != nil {
		return nil, err
	}
	return bincodec.DecodeDirectory(data)
}

// DirectoryBlockSpan returns ceil(sizeof(Directory)/blockSize), the
// number of contiguous blocks a directory record occupies.
func DirectoryBlockSpan(blockSize uint64) uint64 {
	return BlocksFor(dirtypes.DirectorySize, blockSize)
}
