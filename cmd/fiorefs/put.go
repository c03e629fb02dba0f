package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var putCmd = &cobra.Command{
	Use:   "put <host-file> <fiorefs-path>",
	Short: "Copy a host file into the volume (cp2fs)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("reading %s: %w", args[0], err)
		}

		fs, err := openVolume(0)
		if err != nil {
			return err
		}
		defer fs.Shutdown()

		fd, err := fs.Open(ctx(), args[1])
		if err != nil {
			return err
		}
		if err := fs.Write(ctx(), fd, data); err != nil {
			return err
		}
		if err := fs.Close(ctx(), fd); err != nil {
			return err
		}
		fmt.Printf("wrote %d bytes to %s\n", len(data), args[1])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(putCmd)
}
