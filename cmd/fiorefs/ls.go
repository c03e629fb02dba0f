package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var lsCmd = &cobra.Command{
	Use:   "ls [path]",
	Short: "List a directory's entries",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := "."
		if len(args) == 1 {
			path = args[0]
		}

		fs, err := openVolume(0)
		if err != nil {
			return err
		}
		defer fs.Shutdown()

		if err := fs.Opendir(ctx(), path); err != nil {
			return err
		}
		defer fs.Closedir(ctx())

		for {
			e, ok, err := fs.Readdir(ctx())
			if err != nil {
				return err
			}
			if !ok {
				break
			}
			kind := "file"
			if e.IsDir {
				kind = "dir"
			}
			fmt.Printf("%-6s %10d  %s\n", kind, e.Size, e.Name)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(lsCmd)
}
