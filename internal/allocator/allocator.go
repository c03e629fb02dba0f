// Package allocator implements the Free-Space Allocator of spec.md
// §4.3: strictly first-fit contiguous allocation over the bitmap, with
// a first-free hint cached in the VCB and persisted on every mutation.
package allocator

import (
	"fmt"

	"github.com/hltanaka/fiorefs/internal/bitmap"
	"github.com/hltanaka/fiorefs/internal/blockdev"
	"github.com/hltanaka/fiorefs/internal/fserrors"
	"github.com/hltanaka/fiorefs/internal/persist"
	"github.com/hltanaka/fiorefs/internal/vcbtypes"
)

// Allocator owns the live bitmap and VCB and mutates both under the
// ordering spec.md §5 requires: bitmap (and VCB on hint move) persisted
// before any allocation or release returns.
type Allocator struct {
	dev *blockdev.Device
	bm  *bitmap.Bitmap
	vcb *vcbtypes.VCB
}

// New wraps the live bitmap and VCB for a mounted volume.
func New(dev *blockdev.Device, bm *bitmap.Bitmap, vcb *vcbtypes.VCB) *Allocator {
	return &Allocator{dev: dev, bm: bm, vcb: vcb}
}

// reservedPrefix returns the first block index past the VCB and
// bitmap regions — the lowest block a release may ever target.
func (a *Allocator) reservedPrefix() uint64 {
	return uint64(a.vcb.VCBBlockCount) + uint64(a.vcb.FreespaceBlockCount)
}

// Allocate finds the lowest-indexed contiguous run of n free blocks at
// or after the VCB's first-free hint, marks it used, and persists the
// bitmap (and the VCB, if the hint moved) before returning its start.
func (a *Allocator) Allocate(n uint64) (uint64, error) {
	if n == 0 {
		return 0, fmt.Errorf("allocator: requested 0 blocks: %w", fserrors.ErrInvalidArgument)
	}

	total := a.bm.Len()
	runStart := uint64(0)
	runLen := uint64(0)
	found := false

	for i := a.vcb.FirstFreeBlockIndex; i < total; i++ {
		set, err := a.bm.IsSet(i)
		if err != nil {
			return 0, fmt.Errorf("allocator: %w", err)
		}
		if set {
			runLen = 0
			continue
		}
		if runLen == 0 {
			runStart = i
		}
		runLen++
		if runLen == n {
			found = true
			break
		}
	}

	if !found {
		return 0, fmt.Errorf("allocator: no contiguous run of %d blocks: %w", n, fserrors.ErrNoSpace)
	}

	marked := uint64(0)
	for j := uint64(0); j < n; j++ {
		if err := a.bm.Set(runStart + j); err != nil {
			for k := uint64(0); k < marked; k++ {
				_ = a.bm.Clear(runStart + k)
			}
			return 0, fmt.Errorf("allocator: failed marking block %d used, rolled back: %w", runStart+j, fserrors.ErrInternal)
		}
		marked++
	}

	hintMoved := false
	hintSet, err := a.bm.IsSet(a.vcb.FirstFreeBlockIndex)
	if err != nil {
		return 0, fmt.Errorf("allocator: %w", err)
	}
	if hintSet {
		next := a.vcb.FirstFreeBlockIndex + 1
		for next < total {
			free, err := a.bm.IsSet(next)
			if err != nil {
				return 0, fmt.Errorf("allocator: %w", err)
			}
			if !free {
				break
			}
			next++
		}
		a.vcb.FirstFreeBlockIndex = next
		hintMoved = true
	}

	if err := persist.WriteFreespace(a.dev, a.bm, uint64(a.vcb.VCBBlockCount)); err != nil {
		return 0, fmt.Errorf("allocator: persisting bitmap: %w", err)
	}
	if hintMoved {
		if err := persist.WriteVCB(a.dev, a.vcb); err != nil {
			return 0, fmt.Errorf("allocator: persisting vcb: %w", err)
		}
	}

	return runStart, nil
}

// Release clears n blocks starting at start, refusing to touch the
// reserved VCB+bitmap prefix or any out-of-range block, lowering the
// hint when the released run starts below it.
func (a *Allocator) Release(start, n uint64) error {
	if n == 0 {
		return fmt.Errorf("allocator: released 0 blocks: %w", fserrors.ErrInvalidArgument)
	}
	if start < a.reservedPrefix() {
		return fmt.Errorf("allocator: refusing to release reserved block %d: %w", start, fserrors.ErrInvalidArgument)
	}
	if start+n > a.bm.Len() {
		return fmt.Errorf("allocator: release range [%d,%d) out of range: %w", start, start+n, fserrors.ErrInvalidArgument)
	}

	for j := uint64(0); j < n; j++ {
		if err := a.bm.Clear(start + j); err != nil {
			return fmt.Errorf("allocator: %w", err)
		}
	}

	hintMoved := false
	if start < a.vcb.FirstFreeBlockIndex {
		a.vcb.FirstFreeBlockIndex = start
		hintMoved = true
	}

	if err := persist.WriteFreespace(a.dev, a.bm, uint64(a.vcb.VCBBlockCount)); err != nil {
		return fmt.Errorf("allocator: persisting bitmap: %w", err)
	}
	if hintMoved {
		if err := persist.WriteVCB(a.dev, a.vcb); err != nil {
			return fmt.Errorf("allocator: persisting vcb: %w", err)
		}
	}

	return nil
}
