// Package fiorefs is the public facade of spec.md §9's design note:
// "Recast [globals] as fields of a single Filesystem context passed to
// every operation." filesystem gathers the device, VCB, bitmap, cwd,
// opened-directory pointer, and FCB pool into one mount session and
// exposes every operation in spec.md §6's CLI surface as context-first
// methods, mirroring the teacher's pkg/services constructor-returning-
// interface shape.
package fiorefs

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/hltanaka/fiorefs/internal/allocator"
	"github.com/hltanaka/fiorefs/internal/bitmap"
	"github.com/hltanaka/fiorefs/internal/blockdev"
	"github.com/hltanaka/fiorefs/internal/dirmgr"
	"github.com/hltanaka/fiorefs/internal/dirtypes"
	"github.com/hltanaka/fiorefs/internal/fio"
	"github.com/hltanaka/fiorefs/internal/fsstate"
	"github.com/hltanaka/fiorefs/internal/persist"
	"github.com/hltanaka/fiorefs/internal/vcbmgr"
	"github.com/hltanaka/fiorefs/internal/vcbtypes"
)

// filesystem implements Filesystem against one mounted backing file.
type filesystem struct {
	dev     *blockdev.Device
	vcb     *vcbtypes.VCB
	bm      *bitmap.Bitmap
	alloc   *allocator.Allocator
	state   *fsstate.State
	dirs    *dirmgr.Manager
	files   *fio.Pool
	mountID uuid.UUID
}

// Option configures NewFilesystem's format-on-first-use behavior.
type Option func(*mountOptions)

type mountOptions struct {
	blockSize  uint64
	blockCount uint64
}

// WithFormatGeometry sets the block size and count used when the
// backing file is not already a formatted FioreFS volume. An existing
// volume is mounted with the geometry recorded in its VCB instead
// (the backing file is still extended to this size first if smaller).
func WithFormatGeometry(blockSize, blockCount uint64) Option {
	return func(o *mountOptions) {
		o.blockSize = blockSize
		o.blockCount = blockCount
	}
}

// NewFilesystem mounts (or formats, on first use) the volume backed by
// path, mirroring original_source/fsInit.c's initFileSystem: probe the
// magic at block 0; if absent, lay down a fresh VCB, zero the freespace
// bitmap, reserve the VCB+bitmap prefix, and create the root directory.
func NewFilesystem(path string, opts ...Option) (Filesystem, error) {
	o := mountOptions{blockSize: 512, blockCount: 2048}
	for _, opt := range opts {
		opt(&o)
	}

	dev, err := blockdev.Open(path, o.blockSize, o.blockCount)
	if err != nil {
		return nil, fmt.Errorf("fiorefs: opening %s: %w", path, err)
	}

	formatted, vcb, err := vcbmgr.Probe(dev)
	if err != nil {
		dev.Close()
		return nil, fmt.Errorf("fiorefs: probing %s: %w", path, err)
	}
	if formatted && (vcb.BlockSize != dev.BlockSize() || vcb.NumberOfBlocks != dev.BlockCount()) {
		dev.Close()
		dev, err = blockdev.Open(path, vcb.BlockSize, vcb.NumberOfBlocks)
		if err != nil {
			return nil, fmt.Errorf("fiorefs: reopening %s with its recorded geometry: %w", path, err)
		}
	}

	var bm *bitmap.Bitmap
	var root *dirtypes.Directory

	if formatted {
		bm, err = vcbmgr.LoadFreespace(dev, vcb)
		if err != nil {
			dev.Close()
			return nil, fmt.Errorf("fiorefs: loading freespace: %w", err)
		}
	} else {
		vcb, err = vcbmgr.NewVCB(dev.BlockCount(), dev.BlockSize())
		if err != nil {
			dev.Close()
			return nil, fmt.Errorf("fiorefs: formatting %s: %w", path, err)
		}
		buf := make([]byte, bitmap.ByteLen(dev.BlockCount()))
		bm, err = bitmap.New(buf, dev.BlockCount())
		if err != nil {
			dev.Close()
			return nil, fmt.Errorf("fiorefs: %w", err)
		}
	}

	alloc := allocator.New(dev, bm, vcb)
	state := fsstate.New(nil)
	dirs := dirmgr.New(dev, alloc, vcb, state)

	if !formatted {
		prefix := uint64(vcb.VCBBlockCount) + uint64(vcb.FreespaceBlockCount)
		if _, err := alloc.Allocate(prefix); err != nil {
			dev.Close()
			return nil, fmt.Errorf("fiorefs: reserving vcb+bitmap prefix: %w", err)
		}
		root, err = dirs.CreateDirectory(nil, "/")
		if err != nil {
			dev.Close()
			return nil, fmt.Errorf("fiorefs: creating root directory: %w", err)
		}
		vcb.RootDirLocation = root.DirectoryStartLocation
		if err := vcbmgr.Update(dev, vcb); err != nil {
			dev.Close()
			return nil, fmt.Errorf("fiorefs: persisting vcb: %w", err)
		}
	} else {
		root, err = persist.ReadDirectory(dev, vcb.RootDirLocation)
		if err != nil {
			dev.Close()
			return nil, fmt.Errorf("fiorefs: loading root directory: %w", err)
		}
	}
	state.CWD = root

	files := fio.New(dev, alloc)

	return &filesystem{
		dev: dev, vcb: vcb, bm: bm, alloc: alloc,
		state: state, dirs: dirs, files: files,
		mountID: uuid.New(),
	}, nil
}

// MountID returns the UUID minted for this mount session, surfaced in
// CLI verbose output and useful for correlating concurrent test runs
// against the same backing file.
func (fs *filesystem) MountID() uuid.UUID { return fs.mountID }

// Shutdown releases the backing device.
func (fs *filesystem) Shutdown() error { return fs.dev.Close() }

func (fs *filesystem) Mkdir(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return fs.dirs.Mkdir(path)
}

func (fs *filesystem) Rmdir(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return fs.dirs.Rmdir(path)
}

func (fs *filesystem) Delete(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return fs.dirs.Delete(path)
}

func (fs *filesystem) Opendir(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := fs.dirs.Opendir(path)
	return err
}

func (fs *filesystem) Readdir(ctx context.Context) (EntryInfo, bool, error) {
	if err := ctx.Err(); err != nil {
		return EntryInfo{}, false, err
	}
	e, ok, err := fs.dirs.Readdir()
	if err != nil || !ok {
		return EntryInfo{}, ok, err
	}
	return toEntryInfo(e, fs.dev.BlockSize()), true, nil
}

func (fs *filesystem) Closedir(ctx context.Context) {
	fs.dirs.Closedir()
}

func (fs *filesystem) Stat(ctx context.Context, name string) (EntryInfo, error) {
	if err := ctx.Err(); err != nil {
		return EntryInfo{}, err
	}
	r, err := fs.dirs.Stat(name)
	if err != nil {
		return EntryInfo{}, err
	}
	return EntryInfo{
		Name:       r.Name,
		IsDir:      r.FileType == dirtypes.TypeDir,
		Size:       r.Size,
		BlockSize:  r.BlockSize,
		BlockCount: r.BlockCount,
	}, nil
}

func (fs *filesystem) Getcwd(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return fs.dirs.Getcwd()
}

func (fs *filesystem) Setcwd(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return fs.dirs.Setcwd(path)
}

func (fs *filesystem) IsDir(ctx context.Context, path string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	return fs.dirs.IsDir(path)
}

func (fs *filesystem) IsFile(ctx context.Context, path string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	return fs.dirs.IsFile(path)
}

func (fs *filesystem) Open(ctx context.Context, path string) (int, error) {
	if err := ctx.Err(); err != nil {
		return -1, err
	}
	return fs.files.Open(fs.state.CWD, path)
}

func (fs *filesystem) Write(ctx context.Context, fd int, p []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return fs.files.Write(fd, p, uint64(len(p)))
}

func (fs *filesystem) Read(ctx context.Context, fd int, p []byte) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	n, err := fs.files.Read(fd, p, uint64(len(p)))
	return int(n), err
}

func (fs *filesystem) Close(ctx context.Context, fd int) error {
	return fs.files.Close(fd)
}

func toEntryInfo(e *dirtypes.Entry, blockSize uint64) EntryInfo {
	blocks := (e.Size + blockSize - 1) / blockSize
	if e.Size == 0 {
		blocks = 0
	}
	return EntryInfo{
		Name:       e.Name,
		IsDir:      e.FileType == dirtypes.TypeDir,
		Size:       e.Size,
		BlockSize:  blockSize,
		BlockCount: blocks,
	}
}

