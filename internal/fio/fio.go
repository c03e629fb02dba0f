// Package fio implements the Buffered I/O of spec.md §4.7: a fixed pool
// of file-control-block handles, each pinned to READ or WRITE on first
// use, buffering the whole payload in memory between open and close.
package fio

import (
	"fmt"
	"sync"

	"github.com/hltanaka/fiorefs/internal/allocator"
	"github.com/hltanaka/fiorefs/internal/blockdev"
	"github.com/hltanaka/fiorefs/internal/dirtypes"
	"github.com/hltanaka/fiorefs/internal/fserrors"
	"github.com/hltanaka/fiorefs/internal/pathresolver"
	"github.com/hltanaka/fiorefs/internal/persist"
)

// MaxFCBs is the fixed size of the handle pool (spec.md's MAX_FCBS).
const MaxFCBs = 20

// mode is a handle's latched direction, pinned on first read or write.
type mode int

const (
	modeUnset mode = iota
	modeRead
	modeWrite
)

// fcb is one file control block: the state a single open handle carries
// between open and close.
type fcb struct {
	inUse  bool
	mode   mode
	name   string
	parent *dirtypes.Directory
	buffer []byte
	buflen uint64
	index  uint64
}

// Pool manages MaxFCBs handles against one mounted volume. Only slot
// claim/release is mutex-guarded; once a caller holds a fd, it owns
// that handle exclusively until Close.
type Pool struct {
	dev      *blockdev.Device
	alloc    *allocator.Allocator
	resolver *pathresolver.Resolver

	mu    sync.Mutex
	slots [MaxFCBs]fcb
}

// New returns a Pool of MaxFCBs handles against dev/alloc.
func New(dev *blockdev.Device, alloc *allocator.Allocator) *Pool {
	return &Pool{dev: dev, alloc: alloc, resolver: pathresolver.New(dev)}
}

// Open claims a free slot, splits path, and caches the resolved parent
// directory and trailing filename on the handle. Buffer allocation is
// deferred to the first Read or Write, since the two need different
// sizes.
func (p *Pool) Open(cwd *dirtypes.Directory, path string) (int, error) {
	parentPath, name := pathresolver.SplitLastSlash(path)
	if name == "" {
		return -1, fmt.Errorf("fio: open %q: empty filename: %w", path, fserrors.ErrInvalidArgument)
	}
	parent, err := p.resolver.Resolve(cwd, parentPath)
	if err != nil {
		return -1, fmt.Errorf("fio: open %q: %w", path, err)
	}

	fd, err := p.claim()
	if err != nil {
		return -1, err
	}
	s := &p.slots[fd]
	s.name = dirtypes.TruncateName(name)
	s.parent = parent
	s.mode = modeUnset
	return fd, nil
}

func (p *Pool) claim() (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i := range p.slots {
		if !p.slots[i].inUse {
			p.slots[i] = fcb{inUse: true}
			return i, nil
		}
	}
	return -1, fmt.Errorf("fio: open: no free handle (MAX_FCBS=%d): %w", MaxFCBs, fserrors.ErrCapacity)
}

func (p *Pool) slot(fd int) (*fcb, error) {
	if fd < 0 || fd >= MaxFCBs || !p.slots[fd].inUse {
		return nil, fmt.Errorf("fio: invalid handle %d: %w", fd, fserrors.ErrInvalidArgument)
	}
	return &p.slots[fd], nil
}

func findUsedFileByName(d *dirtypes.Directory, name string) (int, *dirtypes.Entry, bool) {
	for i := 2; i < dirtypes.MaxEntries; i++ {
		e := &d.Entries[i]
		if e.Space == dirtypes.SpaceUsed && e.FileType == dirtypes.TypeFile && e.Name == name {
			return i, e, true
		}
	}
	return -1, nil, false
}

// Write appends n bytes from src to fd's buffer, pinning the handle to
// WRITE mode on first use.
func (p *Pool) Write(fd int, src []byte, n uint64) error {
	s, err := p.slot(fd)
	if err != nil {
		return err
	}
	if s.mode == modeUnset {
		if s.parent.DirEntryAmount >= dirtypes.MaxEntries {
			return fmt.Errorf("fio: write: parent %q is full: %w", s.parent.Name, fserrors.ErrCapacity)
		}
		if _, _, ok := findUsedFileByName(s.parent, s.name); ok {
			return fmt.Errorf("fio: write: %q already exists: %w", s.name, fserrors.ErrAlreadyExists)
		}
		s.mode = modeWrite
		s.buffer = make([]byte, p.dev.BlockSize())
		s.buflen = p.dev.BlockSize()
		s.index = 0
	} else if s.mode == modeRead {
		return fmt.Errorf("fio: write: handle %d already pinned to read: %w", fd, fserrors.ErrModeConflict)
	}

	for s.index+n > s.buflen {
		grown := make([]byte, s.buflen+p.dev.BlockSize())
		copy(grown, s.buffer)
		s.buffer = grown
		s.buflen += p.dev.BlockSize()
	}
	copy(s.buffer[s.index:s.index+n], src[:n])
	s.index += n
	return nil
}

// Read copies up to n bytes from fd's buffer into dst, pinning the
// handle to READ mode (and bulk-loading the file) on first use. Returns
// the number of bytes copied; 0 means EOF.
func (p *Pool) Read(fd int, dst []byte, n uint64) (uint64, error) {
	s, err := p.slot(fd)
	if err != nil {
		return 0, err
	}
	if s.mode == modeUnset {
		_, entry, ok := findUsedFileByName(s.parent, s.name)
		if !ok {
			return 0, fmt.Errorf("fio: read: %q not found: %w", s.name, fserrors.ErrNotFound)
		}
		blocks := persist.BlocksFor(entry.Size, p.dev.BlockSize())
		buf, err := persist.ReadWhole(p.dev, entry.EntryStartLocation, blocks*p.dev.BlockSize())
		if err != nil {
			return 0, fmt.Errorf("fio: read: loading %q: %w", s.name, err)
		}
		s.mode = modeRead
		s.buffer = buf
		s.buflen = entry.Size
		s.index = 0
	} else if s.mode == modeWrite {
		return 0, fmt.Errorf("fio: read: handle %d already pinned to write: %w", fd, fserrors.ErrModeConflict)
	}

	remaining := s.buflen - s.index
	if remaining == 0 {
		return 0, nil
	}
	count := n
	if remaining < count {
		count = remaining
	}
	copy(dst[:count], s.buffer[s.index:s.index+count])
	s.index += count
	return count, nil
}

// Close finalizes a WRITE-mode handle (allocating a contiguous run,
// writing the buffer, and linking a new entry into the parent), does
// nothing persistence-wise for a READ-mode handle, and always releases
// the slot.
func (p *Pool) Close(fd int) error {
	s, err := p.slot(fd)
	if err != nil {
		return err
	}
	defer p.release(fd)

	if s.mode != modeWrite {
		return nil
	}

	slot := s.parent.FirstFreeSlot()
	if slot < 0 {
		return fmt.Errorf("fio: close: parent %q has no free slot: %w", s.parent.Name, fserrors.ErrCapacity)
	}
	blocks := persist.BlocksFor(s.index, p.dev.BlockSize())
	if blocks == 0 {
		blocks = 1
	}
	start, err := p.alloc.Allocate(blocks)
	if err != nil {
		return fmt.Errorf("fio: close: allocating %q: %w", s.name, err)
	}

	padded := make([]byte, blocks*p.dev.BlockSize())
	copy(padded, s.buffer[:s.index])
	if err := p.dev.WriteBlocks(padded, blocks, start); err != nil {
		return fmt.Errorf("fio: close: writing %q: %w", s.name, err)
	}

	s.parent.Entries[slot] = dirtypes.Entry{
		Name:               s.name,
		FileType:           dirtypes.TypeFile,
		Space:              dirtypes.SpaceUsed,
		EntryStartLocation: start,
		RecLen:             uint16(dirtypes.EntrySize),
		Size:               s.index,
	}
	s.parent.DirEntryAmount++
	if err := persist.WriteDirectory(p.dev, s.parent); err != nil {
		return fmt.Errorf("fio: close: persisting parent %q: %w", s.parent.Name, err)
	}
	return nil
}

func (p *Pool) release(fd int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.slots[fd] = fcb{}
}
