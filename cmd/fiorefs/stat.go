package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hltanaka/fiorefs/internal/pathresolver"
)

var statCmd = &cobra.Command{
	Use:   "stat <path>",
	Short: "Print metadata for a file or directory",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		parent, name := pathresolver.SplitLastSlash(args[0])

		fs, err := openVolume(0)
		if err != nil {
			return err
		}
		defer fs.Shutdown()

		if err := fs.Opendir(ctx(), parent); err != nil {
			return err
		}
		defer fs.Closedir(ctx())

		info, err := fs.Stat(ctx(), name)
		if err != nil {
			return err
		}
		kind := "file"
		if info.IsDir {
			kind = "dir"
		}
		fmt.Printf("name:       %s\n", info.Name)
		fmt.Printf("type:       %s\n", kind)
		fmt.Printf("size:       %d\n", info.Size)
		fmt.Printf("block size: %d\n", info.BlockSize)
		fmt.Printf("blocks:     %d\n", info.BlockCount)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statCmd)
}
