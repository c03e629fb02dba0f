// Package dirmgr implements the Directory Ops of spec.md §4.5:
// mkdir, rmdir (recursive), delete, readdir family, stat, cwd
// get/set, and isDir/isFile.
package dirmgr

import (
	"errors"
	"fmt"

	"github.com/hltanaka/fiorefs/internal/allocator"
	"github.com/hltanaka/fiorefs/internal/blockdev"
	"github.com/hltanaka/fiorefs/internal/dirtypes"
	"github.com/hltanaka/fiorefs/internal/fserrors"
	"github.com/hltanaka/fiorefs/internal/fsstate"
	"github.com/hltanaka/fiorefs/internal/pathresolver"
	"github.com/hltanaka/fiorefs/internal/persist"
	"github.com/hltanaka/fiorefs/internal/vcbtypes"
)

// Manager implements every directory-tree operation in spec.md §4.5
// against a mounted volume's shared device, allocator, VCB, and
// process-wide state.
type Manager struct {
	dev      *blockdev.Device
	alloc    *allocator.Allocator
	vcb      *vcbtypes.VCB
	state    *fsstate.State
	resolver *pathresolver.Resolver
}

// New returns a Manager wired to a mounted volume's shared components.
func New(dev *blockdev.Device, alloc *allocator.Allocator, vcb *vcbtypes.VCB, state *fsstate.State) *Manager {
	return &Manager{dev: dev, alloc: alloc, vcb: vcb, state: state, resolver: pathresolver.New(dev)}
}

// baseDir returns the directory relative paths resolve against: the
// opened-directory when an iteration is in progress (so `ls`-style
// relative lookups work against what's being listed), else cwd.
func (m *Manager) baseDir() *dirtypes.Directory {
	if m.state.OpenedDir != nil {
		return m.state.OpenedDir
	}
	return m.state.CWD
}

func (m *Manager) dirBlockSpan() uint64 {
	return persist.DirectoryBlockSpan(m.dev.BlockSize())
}

// CreateDirectory allocates a fresh, self-consistent directory record:
// "." refers back to the new directory, ".." copies parentSelfEntry
// (or self-references when parentSelfEntry is nil, marking a root).
// The caller links the new directory into its parent and persists the
// parent; CreateDirectory only persists the child.
func (m *Manager) CreateDirectory(parentSelfEntry *dirtypes.Entry, name string) (*dirtypes.Directory, error) {
	span := m.dirBlockSpan()
	start, err := m.alloc.Allocate(span)
	if err != nil {
		return nil, fmt.Errorf("dirmgr: allocating directory: %w", err)
	}

	d := &dirtypes.Directory{
		Name:                   dirtypes.TruncateName(name),
		DirectoryStartLocation: start,
		RecLen:                 uint32(dirtypes.DirectorySize),
		DirEntryAmount:         2,
	}
	parentStart := start
	if parentSelfEntry != nil {
		parentStart = parentSelfEntry.EntryStartLocation
	}
	d.Entries[0] = dirtypes.Entry{
		Name: ".", FileType: dirtypes.TypeDir, Space: dirtypes.SpaceUsed,
		EntryStartLocation: start, RecLen: uint16(dirtypes.EntrySize), Size: uint64(dirtypes.DirectorySize),
	}
	d.Entries[1] = dirtypes.Entry{
		Name: "..", FileType: dirtypes.TypeDir, Space: dirtypes.SpaceUsed,
		EntryStartLocation: parentStart, RecLen: uint16(dirtypes.EntrySize), Size: uint64(dirtypes.DirectorySize),
	}

	if err := persist.WriteDirectory(m.dev, d); err != nil {
		return nil, fmt.Errorf("dirmgr: persisting new directory: %w", err)
	}
	return d, nil
}

// Mkdir implements spec.md's fs_mkdir.
func (m *Manager) Mkdir(path string) error {
	parentPath, name := pathresolver.SplitLastSlash(path)
	if name == "" {
		return fmt.Errorf("dirmgr: mkdir: empty name in %q: %w", path, fserrors.ErrInvalidArgument)
	}

	parent, err := m.resolver.Resolve(m.state.CWD, parentPath)
	if err != nil {
		return fmt.Errorf("dirmgr: mkdir %q: %w", path, err)
	}

	if hasUsedName(parent, name) {
		return fmt.Errorf("dirmgr: mkdir %q: same name already exists in %q: %w", name, parent.Name, fserrors.ErrAlreadyExists)
	}
	if parent.DirEntryAmount >= dirtypes.MaxEntries {
		return fmt.Errorf("dirmgr: mkdir %q: parent %q is full: %w", name, parent.Name, fserrors.ErrCapacity)
	}

	child, err := m.CreateDirectory(&parent.Entries[0], name)
	if err != nil {
		return fmt.Errorf("dirmgr: mkdir %q: %w", path, err)
	}

	slot := parent.FirstFreeSlot()
	if slot < 0 {
		return fmt.Errorf("dirmgr: mkdir %q: parent %q has no free slot: %w", name, parent.Name, fserrors.ErrCapacity)
	}
	parent.Entries[slot] = dirtypes.Entry{
		Name: dirtypes.TruncateName(name), FileType: dirtypes.TypeDir, Space: dirtypes.SpaceUsed,
		EntryStartLocation: child.DirectoryStartLocation, RecLen: uint16(dirtypes.EntrySize), Size: uint64(dirtypes.DirectorySize),
	}
	parent.DirEntryAmount++

	if err := m.persistDirectory(parent); err != nil {
		return fmt.Errorf("dirmgr: mkdir %q: %w", path, err)
	}
	return nil
}

// hasUsedName reports whether any USED slot (including "." and "..")
// already carries name — this is what prevents manually creating "."
// or "..".
func hasUsedName(d *dirtypes.Directory, name string) bool {
	for i := 0; i < dirtypes.MaxEntries; i++ {
		e := &d.Entries[i]
		if e.Space == dirtypes.SpaceUsed && e.Name == name {
			return true
		}
	}
	return false
}

// Rmdir implements spec.md's fs_rmdir: recursive removal, refusing the
// root, retargeting cwd to ".." first if cwd is the target — at every
// level of the recursion, so a multi-level rmdir under cwd cascades
// cwd upward one level per removed ancestor (spec.md §8 scenario 5).
func (m *Manager) Rmdir(path string) error {
	target, err := m.resolver.Resolve(m.state.CWD, path)
	if err != nil {
		return fmt.Errorf("dirmgr: rmdir %q: %w", path, err)
	}
	if target.DirectoryStartLocation == m.vcb.RootDirLocation {
		return fmt.Errorf("dirmgr: rmdir %q: refusing to remove root: %w", path, fserrors.ErrInvalidArgument)
	}

	parent, err := persist.ReadDirectory(m.dev, target.Entries[1].EntryStartLocation)
	if err != nil {
		return fmt.Errorf("dirmgr: rmdir %q: loading parent: %w", path, err)
	}
	idx, _, ok := findEntryByLocation(parent, target.DirectoryStartLocation, dirtypes.TypeDir)
	if !ok {
		return fmt.Errorf("dirmgr: rmdir %q: not found in parent %q: %w", path, parent.Name, fserrors.ErrNotFound)
	}

	if err := m.rmdirRecord(target, parent, idx); err != nil {
		return fmt.Errorf("dirmgr: rmdir %q: %w", path, err)
	}
	return nil
}

// rmdirRecord removes target, whose slot in its already-loaded parent
// is entryIdx. It recursively dispatches on every USED child beyond
// index 1 before touching target itself, matching spec.md's prose
// order: children first, then the cwd check, then unlink-and-release.
func (m *Manager) rmdirRecord(target, parent *dirtypes.Directory, entryIdx int) error {
	for i := 2; i < dirtypes.MaxEntries; i++ {
		e := &target.Entries[i]
		if e.Space != dirtypes.SpaceUsed {
			continue
		}
		switch e.FileType {
		case dirtypes.TypeDir:
			sub, err := persist.ReadDirectory(m.dev, e.EntryStartLocation)
			if err != nil {
				return fmt.Errorf("loading %q: %w", e.Name, err)
			}
			if err := m.rmdirRecord(sub, target, i); err != nil {
				return err
			}
		case dirtypes.TypeFile:
			if err := m.deleteFileEntry(target, i); err != nil {
				return fmt.Errorf("deleting %q: %w", e.Name, err)
			}
		default:
			return fmt.Errorf("entry %q has unrecognized type: %w", e.Name, fserrors.ErrInternal)
		}
	}

	if m.state.CWD.DirectoryStartLocation == target.DirectoryStartLocation {
		m.state.CWD = parent
	}

	parent.Entries[entryIdx] = dirtypes.Entry{Space: dirtypes.SpaceFree}
	parent.DirEntryAmount--
	if err := m.persistDirectory(parent); err != nil {
		return err
	}
	if err := m.alloc.Release(target.DirectoryStartLocation, m.dirBlockSpan()); err != nil {
		return fmt.Errorf("releasing directory %q blocks: %w", target.Name, err)
	}
	return nil
}

// Delete implements spec.md's fs_delete.
func (m *Manager) Delete(path string) error {
	parentPath, name := pathresolver.SplitLastSlash(path)
	if name == "" {
		return fmt.Errorf("dirmgr: delete: empty name in %q: %w", path, fserrors.ErrInvalidArgument)
	}
	parent, err := m.resolver.Resolve(m.state.CWD, parentPath)
	if err != nil {
		return fmt.Errorf("dirmgr: delete %q: %w", path, err)
	}

	idx, _, ok := findUsedFileByName(parent, name)
	if !ok {
		return fmt.Errorf("dirmgr: delete %q: not found: %w", path, fserrors.ErrNotFound)
	}
	if err := m.deleteFileEntry(parent, idx); err != nil {
		return fmt.Errorf("dirmgr: delete %q: %w", path, err)
	}
	return nil
}

// deleteFileEntry clears slot idx (a USED FILE entry) in an
// already-loaded parent, persists the parent, and releases the file's
// block run. Shared by Delete and the recursive Rmdir walk.
func (m *Manager) deleteFileEntry(parent *dirtypes.Directory, idx int) error {
	entry := &parent.Entries[idx]
	start, size := entry.EntryStartLocation, entry.Size
	parent.Entries[idx] = dirtypes.Entry{Space: dirtypes.SpaceFree}
	parent.DirEntryAmount--
	if err := m.persistDirectory(parent); err != nil {
		return err
	}
	blocks := persist.BlocksFor(size, m.dev.BlockSize())
	if blocks == 0 {
		blocks = 1
	}
	if err := m.alloc.Release(start, blocks); err != nil {
		return fmt.Errorf("releasing blocks: %w", err)
	}
	return nil
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

func findEntryByLocation(d *dirtypes.Directory, start uint64, ft dirtypes.FileType) (int, *dirtypes.Entry, bool) {
	for i := 2; i < dirtypes.MaxEntries; i++ {
		e := &d.Entries[i]
		if e.Space == dirtypes.SpaceUsed && e.FileType == ft && e.EntryStartLocation == start {
			return i, e, true
		}
	}
	return -1, nil, false
}

// persistDirectory writes d and, if d is the live cwd, refreshes the
// in-memory cwd copy — spec.md §4.8's update_directory behavior.
func (m *Manager) persistDirectory(d *dirtypes.Directory) error {
	if err := persist.WriteDirectory(m.dev, d); err != nil {
		return err
	}
	if m.state.CWD.DirectoryStartLocation == d.DirectoryStartLocation {
		m.state.CWD = d
	}
	if m.state.OpenedDir != nil && m.state.OpenedDir.DirectoryStartLocation == d.DirectoryStartLocation {
		m.state.OpenedDir = d
	}
	return nil
}

// Opendir resolves path, stores it as the process-wide opened
// directory, and resets the iteration index.
func (m *Manager) Opendir(path string) (*dirtypes.Directory, error) {
	d, err := m.resolver.Resolve(m.state.CWD, path)
	if err != nil {
		return nil, fmt.Errorf("dirmgr: opendir %q: %w", path, err)
	}
	m.state.OpenedDir = d
	m.state.OpenedIndex = 0
	return d, nil
}

// Readdir returns the next USED entry from the opened directory,
// advancing the iteration index, or ok=false when exhausted.
func (m *Manager) Readdir() (entry *dirtypes.Entry, ok bool, err error) {
	if m.state.OpenedDir == nil {
		return nil, false, fmt.Errorf("dirmgr: readdir: no directory opened: %w", fserrors.ErrInvalidArgument)
	}
	for m.state.OpenedIndex < dirtypes.MaxEntries {
		i := m.state.OpenedIndex
		m.state.OpenedIndex++
		e := &m.state.OpenedDir.Entries[i]
		if e.Space == dirtypes.SpaceUsed {
			return e, true, nil
		}
	}
	return nil, false, nil
}

// Closedir releases the opened directory and resets iteration state.
func (m *Manager) Closedir() {
	m.state.OpenedDir = nil
	m.state.OpenedIndex = 0
}

// StatResult reports the derived metadata spec.md's fs_stat exposes.
type StatResult struct {
	Name       string
	FileType   dirtypes.FileType
	Size       uint64
	BlockSize  uint64
	BlockCount uint64
}

// Stat looks up name within the currently opened directory.
func (m *Manager) Stat(name string) (*StatResult, error) {
	if m.state.OpenedDir == nil {
		return nil, fmt.Errorf("dirmgr: stat %q: no directory opened: %w", name, fserrors.ErrInvalidArgument)
	}
	for i := 0; i < dirtypes.MaxEntries; i++ {
		e := &m.state.OpenedDir.Entries[i]
		if e.Space == dirtypes.SpaceUsed && e.Name == name {
			return &StatResult{
				Name:       e.Name,
				FileType:   e.FileType,
				Size:       e.Size,
				BlockSize:  m.dev.BlockSize(),
				BlockCount: persist.BlocksFor(e.Size, m.dev.BlockSize()),
			}, nil
		}
	}
	return nil, fmt.Errorf("dirmgr: stat %q: %w", name, fserrors.ErrNotFound)
}

// Getcwd walks cwd's ".." chain back to root, building a "."-rooted,
// cwd-relative path representation.
func (m *Manager) Getcwd() (string, error) {
	cur := m.state.CWD
	path := ""
	for cur.DirectoryStartLocation != m.vcb.RootDirLocation {
		path = "/" + cur.Name + path
		parent, err := persist.ReadDirectory(m.dev, cur.Entries[1].EntryStartLocation)
		if err != nil {
			return "", fmt.Errorf("dirmgr: getcwd: walking up from %q: %w", cur.Name, err)
		}
		cur = parent
	}
	if path == "" {
		return "./", nil
	}
	return "." + path, nil
}

// Setcwd resolves path and, on success, replaces the live cwd.
func (m *Manager) Setcwd(path string) error {
	d, err := m.resolver.Resolve(m.state.CWD, path)
	if err != nil {
		return fmt.Errorf("dirmgr: setcwd %q: %w", path, err)
	}
	m.state.CWD = d
	return nil
}

// IsDir reports whether path resolves to a directory.
func (m *Manager) IsDir(path string) (bool, error) {
	_, err := m.resolver.Resolve(m.baseDir(), path)
	if err != nil {
		if errors.Is(err, fserrors.ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("dirmgr: isdir %q: %w", path, err)
	}
	return true, nil
}

// IsFile reports whether path resolves to a USED FILE entry in its
// parent directory.
func (m *Manager) IsFile(path string) (bool, error) {
	parentPath, name := pathresolver.SplitLastSlash(path)
	parent, err := m.resolver.Resolve(m.baseDir(), parentPath)
	if err != nil {
		if errors.Is(err, fserrors.ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("dirmgr: isfile %q: %w", path, err)
	}
	_, _, ok := findUsedFileByName(parent, name)
	return ok, nil
}
