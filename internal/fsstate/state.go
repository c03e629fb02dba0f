// Package fsstate holds the process-wide mutable state spec.md §3 and
// §5 describe as globals: the current working directory snapshot and
// the opened-directory iteration pointer. It is a separate package
// (rather than a field of pkg/fiorefs.Filesystem) so that dirmgr can
// share and mutate it with pkg/fiorefs without importing pkg/fiorefs,
// which imports dirmgr. pathresolver and fio do not use it: they take
// the directory to start from as an argument.
package fsstate

import "github.com/hltanaka/fiorefs/internal/dirtypes"

// State is the shared in-memory context threaded through every
// directory and I/O operation for one mounted filesystem.
type State struct {
	// CWD is an in-memory copy of the current working directory.
	CWD *dirtypes.Directory

	// OpenedDir is the process-wide pointer used by opendir/readdir/
	// closedir, decoupled from CWD so iteration survives cd.
	OpenedDir *dirtypes.Directory

	// OpenedIndex is the next entry index fs_readdir will return.
	OpenedIndex int
}

// New returns a fresh State with no opened directory.
func New(cwd *dirtypes.Directory) *State {
	return &State{CWD: cwd, OpenedIndex: 0}
}
