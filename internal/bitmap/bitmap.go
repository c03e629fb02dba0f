// Package bitmap implements the free-space bit array described in
// spec.md §4.2: one bit per block, word-addressed, with no I/O of its
// own — callers are responsible for loading and persisting the backing
// bytes via internal/persist.
package bitmap

import (
	"fmt"

	"github.com/hltanaka/fiorefs/internal/fserrors"
)

const wordBits = 8

// Bitmap is a fixed-length bit array backed by a byte slice, one bit
// per addressable block index.
type Bitmap struct {
	bits []byte
	n    uint64
}

// New wraps an existing byte slice as a bitmap covering n bits. The
// slice must be at least ByteLen(n) bytes long.
func New(bits []byte, n uint64) (*Bitmap, error) {
	if uint64(len(bits)) < ByteLen(n) {
		return nil, fmt.Errorf("bitmap: backing slice too small for %d bits: %w", n, fserrors.ErrInvalidArgument)
	}
	return &Bitmap{bits: bits, n: n}, nil
}

// ByteLen returns the number of bytes needed to hold n bits.
func ByteLen(n uint64) uint64 {
	return (n + wordBits - 1) / wordBits
}

// Len returns the number of addressable bits.
func (b *Bitmap) Len() uint64 {
	return b.n
}

// Bytes returns the backing byte slice, for persistence.
func (b *Bitmap) Bytes() []byte {
	return b.bits
}

func (b *Bitmap) addr(i uint64) (word, bit uint64, err error) {
	if i >= b.n {
		return 0, 0, fmt.Errorf("bitmap: index %d out of range [0,%d): %w", i, b.n, fserrors.ErrInvalidArgument)
	}
	return i / wordBits, i % wordBits, nil
}

// IsSet reports whether block i is marked used.
func (b *Bitmap) IsSet(i uint64) (bool, error) {
	word, bit, err := b.addr(i)
	if err != nil {
		return false, err
	}
	return b.bits[word]&(1<<bit) != 0, nil
}

// Set marks block i used. It fails if the bit is already set.
func (b *Bitmap) Set(i uint64) error {
	word, bit, err := b.addr(i)
	if err != nil {
		return err
	}
	if b.bits[word]&(1<<bit) != 0 {
		return fmt.Errorf("bitmap: bit %d already set: %w", i, fserrors.ErrInternal)
	}
	b.bits[word] |= 1 << bit
	return nil
}

// Clear marks block i free. It fails if the bit is already clear.
func (b *Bitmap) Clear(i uint64) error {
	word, bit, err := b.addr(i)
	if err != nil {
		return err
	}
	if b.bits[word]&(1<<bit) == 0 {
		return fmt.Errorf("bitmap: bit %d already clear: %w", i, fserrors.ErrInternal)
	}
	b.bits[word] &^= 1 << bit
	return nil
}
