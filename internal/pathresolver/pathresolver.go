// Package pathresolver implements the Path Resolver of spec.md §4.6:
// walking absolute/relative path strings against directory entries,
// starting from an in-memory copy of the caller's current directory.
package pathresolver

import (
	"fmt"
	"strings"

	"github.com/hltanaka/fiorefs/internal/blockdev"
	"github.com/hltanaka/fiorefs/internal/dirtypes"
	"github.com/hltanaka/fiorefs/internal/fserrors"
	"github.com/hltanaka/fiorefs/internal/persist"
)

// Resolver resolves path strings against directories loaded from dev.
type Resolver struct {
	dev *blockdev.Device
}

// New returns a Resolver reading directory records off dev.
func New(dev *blockdev.Device) *Resolver {
	return &Resolver{dev: dev}
}

// Resolve walks path starting from the given start directory snapshot,
// tokenizing on "/". An empty token or "." is a no-op; any other name
// must match a USED DIR entry in the current working copy; on miss the
// whole resolution fails with ErrNotFound. ".." is not special-cased —
// it is looked up as an ordinary entry whose stored location is either
// the parent or, at root, the root itself (spec.md §4.6).
func (r *Resolver) Resolve(start *dirtypes.Directory, path string) (*dirtypes.Directory, error) {
	current := start
	for _, tok := range strings.Split(path, "/") {
		if tok == "" || tok == "." {
			continue
		}
		_, entry, ok := findDirEntry(current, tok)
		if !ok {
			return nil, fmt.Errorf("pathresolver: %q has no directory entry %q: %w", current.Name, tok, fserrors.ErrNotFound)
		}
		next, err := persist.ReadDirectory(r.dev, entry.EntryStartLocation)
		if err != nil {
			return nil, fmt.Errorf("pathresolver: loading %q: %w", tok, err)
		}
		current = next
	}
	return current, nil
}

// findDirEntry scans all slots (including "." and "..") for a USED DIR
// entry with an exact name match.
func findDirEntry(d *dirtypes.Directory, name string) (int, *dirtypes.Entry, bool) {
	for i := 0; i < dirtypes.MaxEntries; i++ {
		e := &d.Entries[i]
		if e.Space == dirtypes.SpaceUsed && e.FileType == dirtypes.TypeDir && e.Name == name {
			return i, e, true
		}
	}
	return -1, nil, false
}

// SplitLastSlash returns (parentPath, tail) where tail is the segment
// after the final "/". If path has no "/", parentPath is ".".
func SplitLastSlash(path string) (parent, tail string) {
	idx := strings.LastIndex(path, "/")
	if idx < 0 {
		return ".", path
	}
	parent = path[:idx]
	if parent == "" {
		parent = "/"
	}
	return parent, path[idx+1:]
}
