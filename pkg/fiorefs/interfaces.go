package fiorefs

import (
	"context"

	"github.com/google/uuid"
)

// Filesystem is the public, context-first surface over one mounted
// FioreFS volume, gathering the device/VCB/bitmap/cwd/FCB-pool globals
// spec.md §9 describes into a single passed context.
type Filesystem interface {
	// Mkdir creates a new, empty directory at path.
	Mkdir(ctx context.Context, path string) error
	// Rmdir recursively removes the directory tree at path, refusing
	// the volume root.
	Rmdir(ctx context.Context, path string) error
	// Delete removes the file at path.
	Delete(ctx context.Context, path string) error

	// Opendir resolves path and marks it the process-wide directory
	// under iteration.
	Opendir(ctx context.Context, path string) error
	// Readdir returns the next entry in the opened directory, or
	// ok=false at exhaustion.
	Readdir(ctx context.Context) (entry EntryInfo, ok bool, err error)
	// Closedir ends the current readdir iteration.
	Closedir(ctx context.Context)

	// Stat looks up name within the opened directory.
	Stat(ctx context.Context, name string) (EntryInfo, error)
	// Getcwd returns the current working directory as a "."-rooted path.
	Getcwd(ctx context.Context) (string, error)
	// Setcwd changes the current working directory to path.
	Setcwd(ctx context.Context, path string) error

	// IsDir reports whether path resolves to a directory.
	IsDir(ctx context.Context, path string) (bool, error)
	// IsFile reports whether path resolves to a file.
	IsFile(ctx context.Context, path string) (bool, error)

	// Open claims a handle for path, latched to READ or WRITE on first
	// Read/Write call.
	Open(ctx context.Context, path string) (int, error)
	// Write appends len(p) bytes to the handle's write buffer.
	Write(ctx context.Context, fd int, p []byte) error
	// Read copies up to len(p) bytes from the handle into p, returning
	// the count read (0 at EOF).
	Read(ctx context.Context, fd int, p []byte) (int, error)
	// Close finalizes a write handle (allocating and persisting its
	// data run) or discards a read handle, and releases the slot.
	Close(ctx context.Context, fd int) error

	// MountID returns the UUID minted for this mount session.
	MountID() uuid.UUID

	// Shutdown releases the backing device.
	Shutdown() error
}

// EntryInfo is the caller-facing view of a directory entry, decoupled
// from the on-disk dirtypes.Entry representation.
type EntryInfo struct {
	Name       string
	IsDir      bool
	Size       uint64
	BlockSize  uint64
	BlockCount uint64
}
