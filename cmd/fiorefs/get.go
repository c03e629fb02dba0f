package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/hltanaka/fiorefs/internal/pathresolver"
)

var getCmd = &cobra.Command{
	Use:   "get <fiorefs-path> <host-file>",
	Short: "Copy a volume file out to the host (cp2l)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		fs, err := openVolume(0)
		if err != nil {
			return err
		}
		defer fs.Shutdown()

		parent, name := pathresolver.SplitLastSlash(args[0])
		if err := fs.Opendir(ctx(), parent); err != nil {
			return err
		}
		info, err := fs.Stat(ctx(), name)
		fs.Closedir(ctx())
		if err != nil {
			return err
		}

		fd, err := fs.Open(ctx(), args[0])
		if err != nil {
			return err
		}
		buf := make([]byte, info.Size)
		total := uint64(0)
		for total < info.Size {
			n, err := fs.Read(ctx(), fd, buf[total:])
			if err != nil {
				return err
			}
			if n == 0 {
				break
			}
			total += uint64(n)
		}
		if err := fs.Close(ctx(), fd); err != nil {
			return err
		}

		if err := os.WriteFile(args[1], buf[:total], 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", args[1], err)
		}
		fmt.Printf("wrote %d bytes to %s\n", total, args[1])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(getCmd)
}
