package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var mountCmd = &cobra.Command{
	Use:   "mount",
	Short: "Mount (formatting on first use) the volume and print a health summary",
	RunE: func(cmd *cobra.Command, args []string) error {
		fs, err := openVolume(0)
		if err != nil {
			return err
		}
		defer fs.Shutdown()

		cwd, err := fs.Getcwd(ctx())
		if err != nil {
			return err
		}
		names := 0
		if err := fs.Opendir(ctx(), "."); err != nil {
			return err
		}
		for {
			_, ok, err := fs.Readdir(ctx())
			if err != nil {
				return err
			}
			if !ok {
				break
			}
			names++
		}
		fs.Closedir(ctx())

		fmt.Printf("cwd %s, %d entries at root\n", cwd, names)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(mountCmd)
}
