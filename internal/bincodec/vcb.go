// Package bincodec encodes and decodes the on-disk VCB and Directory
// records to their exact little-endian byte layout (spec.md §6). It
// follows the teacher repository's manual-slicing style
// (endian.Uint64(data[a:b])) rather than reflection-based binary.Read,
// so the byte offsets are visible and independently testable.
package bincodec

import (
	"encoding/binary"
	"fmt"

	"github.com/hltanaka/fiorefs/internal/fserrors"
	"github.com/hltanaka/fiorefs/internal/vcbtypes"
)

var endian = binary.LittleEndian

// EncodeVCB serializes v into exactly vcbtypes.Size bytes.
func EncodeVCB(v *vcbtypes.VCB) []byte {
	buf := make([]byte, vcbtypes.Size)
	endian.PutUint64(buf[0:8], v.Magic)
	endian.PutUint64(buf[8:16], v.BlockSize)
	endian.PutUint64(buf[16:24], v.NumberOfBlocks)
	endian.PutUint32(buf[24:28], v.VCBBlockCount)
	endian.PutUint32(buf[28:32], v.FreespaceBlockCount)
	endian.PutUint64(buf[32:40], v.FirstFreeBlockIndex)
	endian.PutUint64(buf[40:48], v.RootDirLocation)
	return buf
}

// DecodeVCB parses a VCB record from data, which must be at least
// vcbtypes.Size bytes.
func DecodeVCB(data []byte) (*vcbtypes.VCB, error) {
	if len(data) < vcbtypes.Size {
		return nil, fmt.Errorf("bincodec: data too small for VCB: got %d want %d: %w", len(data), vcbtypes.Size, fserrors.ErrInvalidArgument)
	}
	v := &vcbtypes.VCB{
		Magic:               endian.Uint64(data[0:8]),
		BlockSize:           endian.Uint64(data[8:16]),
		NumberOfBlocks:      endian.Uint64(data[16:24]),
		VCBBlockCount:       endian.Uint32(data[24:28]),
		FreespaceBlockCount: endian.Uint32(data[28:32]),
		FirstFreeBlockIndex: endian.Uint64(data[32:40]),
		RootDirLocation:     endian.Uint64(data[40:48]),
	}
	return v, nil
}
