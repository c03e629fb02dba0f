package main

import (
	"github.com/spf13/cobra"
)

var rmdirCmd = &cobra.Command{
	Use:   "rmdir <path>",
	Short: "Recursively remove a directory",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		fs, err := openVolume(0)
		if err != nil {
			return err
		}
		defer fs.Shutdown()
		return fs.Rmdir(ctx(), args[0])
	},
}

func init() {
	rootCmd.AddCommand(rmdirCmd)
}
