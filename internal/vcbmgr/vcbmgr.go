// Package vcbmgr implements the VCB Manager of spec.md §4.4: format
// detection by magic, and reload/persist of the volume's geometry.
//
// Root-directory creation is not performed here — it requires the
// allocator and the directory manager (internal/dirmgr), neither of
// which this package imports. Mount's orchestration ("format, then
// initFreespace, then initRootDir") instead lives one layer up, in
// pkg/fiorefs.NewFilesystem, which imports vcbmgr, allocator, and
// dirmgr together. See DESIGN.md.
package vcbmgr

import (
	"fmt"

	"github.com/hltanaka/fiorefs/internal/bitmap"
	"github.com/hltanaka/fiorefs/internal/blockdev"
	"github.com/hltanaka/fiorefs/internal/fserrors"
	"github.com/hltanaka/fiorefs/internal/persist"
	"github.com/hltanaka/fiorefs/internal/vcbtypes"
)

// NewVCB computes the geometry for a fresh volume: magic set, VCB and
// freespace spans sized from blockCount/blockSize, hint at 0, root
// location left unset (the caller fills it in once the root directory
// is allocated).
func NewVCB(blockCount, blockSize uint64) (*vcbtypes.VCB, error) {
	if blockCount == 0 || blockSize == 0 {
		return nil, fmt.Errorf("vcbmgr: blockCount and blockSize must be positive: %w", fserrors.ErrInvalidArgument)
	}
	vcbBlocks := persist.BlocksFor(vcbtypes.Size, blockSize)
	freespaceBlocks := persist.BlocksFor(bitmap.ByteLen(blockCount), blockSize)
	if vcbBlocks+freespaceBlocks > blockCount {
		return nil, fmt.Errorf("vcbmgr: volume of %d blocks too small for VCB+bitmap (%d blocks): %w", blockCount, vcbBlocks+freespaceBlocks, fserrors.ErrInvalidArgument)
	}

	return &vcbtypes.VCB{
		Magic:               vcbtypes.Magic,
		BlockSize:           blockSize,
		NumberOfBlocks:      blockCount,
		VCBBlockCount:       uint32(vcbBlocks),
		FreespaceBlockCount: uint32(freespaceBlocks),
		FirstFreeBlockIndex: 0,
		RootDirLocation:     0,
	}, nil
}

// Probe reads block 0 and reports whether it holds a formatted FioreFS
// volume. A read failure (e.g. the device is smaller than one block)
// is reported as not-formatted plus the underlying error.
func Probe(dev *blockdev.Device) (bool, *vcbtypes.VCB, error) {
	vcb, err := persist.ReadVCB(dev)
	if err != nil {
		return false, nil, fmt.Errorf("vcbmgr: probing block 0: %w", err)
	}
	return vcb.IsFormatted(), vcb, nil
}

// LoadFreespace reads the bitmap region described by vcb off dev.
func LoadFreespace(dev *blockdev.Device, vcb *vcbtypes.VCB) (*bitmap.Bitmap, error) {
	bm, err := persist.ReadFreespace(dev, uint64(vcb.VCBBlockCount), vcb.NumberOfBlocks)
	if err != nil {
		return nil, fmt.Errorf("vcbmgr: loading freespace bitmap: %w", err)
	}
	return bm, nil
}

// Update pads and writes vcb to block 0.
func Update(dev *blockdev.Device, vcb *vcbtypes.VCB) error {
	if err := persist.WriteVCB(dev, vcb); err != nil {
		return fmt.Errorf("vcbmgr: updating vcb: %w", err)
	}
	return nil
}
