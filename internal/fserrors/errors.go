// Package fserrors defines the sentinel error kinds shared across the
// fiorefs packages. Every public operation returns one of these,
// wrapped with context via fmt.Errorf("...: %w", err), so callers can
// still use errors.Is against the sentinel.
package fserrors

import "errors"

var (
	// ErrInvalidArgument covers bad fds, empty names, out-of-range blocks.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrNotFound covers missing paths, entries, or files.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists covers mkdir/open-for-write name collisions.
	ErrAlreadyExists = errors.New("already exists")

	// ErrNoSpace means the allocator could not satisfy a request.
	ErrNoSpace = errors.New("no space left on volume")

	// ErrCapacity means a directory's entry table is full.
	ErrCapacity = errors.New("directory full")

	// ErrModeConflict means a handle already latched to the other mode.
	ErrModeConflict = errors.New("mode conflict")

	// ErrIO covers block device read/write failures.
	ErrIO = errors.New("block device i/o failure")

	// ErrInternal covers bitmap/allocator consistency violations that
	// should not happen if is_set/is_clear agree with the caller.
	ErrInternal = errors.New("internal filesystem inconsistency")
)
