// Command fiorefs is a non-interactive administrative client over a
// FioreFS volume: format, mount, mkdir, rmdir, rm, ls, stat, cd, put,
// and get each run once per invocation and exit. It supplements the
// dropped fsshell.c REPL's individual operations without reintroducing
// its shell: no history, no line editor.
package main

import (
	"context"
	"fmt"

	"github.com/hltanaka/fiorefs/pkg/fiorefs"
)

func main() {
	Execute()
}

// openVolume loads config, resolves the backing path, and mounts (or
// formats, on first use) the volume.
func openVolume(blockCount uint64) (fiorefs.Filesystem, error) {
	c, err := loadConfig()
	if err != nil {
		return nil, err
	}
	path := resolvePath(c)
	blockSize := c.BlockSize
	if blockCount == 0 {
		blockCount = c.VolumeSize / blockSize
		if blockCount == 0 {
			blockCount = 1
		}
	}
	fs, err := fiorefs.NewFilesystem(path, fiorefs.WithFormatGeometry(blockSize, blockCount))
	if err != nil {
		return nil, fmt.Errorf("mounting %s: %w", path, err)
	}
	if verbose {
		fmt.Printf("mount id: %s\n", fs.MountID().String())
	}
	return fs, nil
}

func ctx() context.Context {
	return context.Background()
}
