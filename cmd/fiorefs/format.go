package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var formatBlocks uint64

var formatCmd = &cobra.Command{
	Use:   "format",
	Short: "Format (or mount, if already formatted) the backing volume",
	RunE: func(cmd *cobra.Command, args []string) error {
		fs, err := openVolume(formatBlocks)
		if err != nil {
			return err
		}
		defer fs.Shutdown()

		cwd, err := fs.Getcwd(ctx())
		if err != nil {
			return err
		}
		fmt.Printf("volume ready, cwd %s\n", cwd)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(formatCmd)
	formatCmd.Flags().Uint64Var(&formatBlocks, "blocks", 0, "total block count (default from fiorefs-config.yaml volume_size/block_size)")
}
