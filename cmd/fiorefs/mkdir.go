package main

import (
	"github.com/spf13/cobra"
)

var mkdirCmd = &cobra.Command{
	Use:   "mkdir <path>",
	Short: "Create a directory",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		fs, err := openVolume(0)
		if err != nil {
			return err
		}
		defer fs.Shutdown()
		return fs.Mkdir(ctx(), args[0])
	},
}

func init() {
	rootCmd.AddCommand(mkdirCmd)
}
