package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var cdCmd = &cobra.Command{
	Use:   "cd <path>",
	Short: "Change the mount's working directory and print the result",
	Long: `cd changes cwd for the duration of this process only — cwd is
not persisted across invocations, so this is mainly useful for
confirming that a path resolves before scripting further commands
against it.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		fs, err := openVolume(0)
		if err != nil {
			return err
		}
		defer fs.Shutdown()

		if err := fs.Setcwd(ctx(), args[0]); err != nil {
			return err
		}
		cwd, err := fs.Getcwd(ctx())
		if err != nil {
			return err
		}
		fmt.Println(cwd)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(cdCmd)
}
