package main

import (
	"github.com/spf13/cobra"
)

var rmCmd = &cobra.Command{
	Use:   "rm <path>",
	Short: "Delete a file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		fs, err := openVolume(0)
		if err != nil {
			return err
		}
		defer fs.Shutdown()
		return fs.Delete(ctx(), args[0])
	},
}

func init() {
	rootCmd.AddCommand(rmCmd)
}
