package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	volumePath string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "fiorefs",
	Short: "Administrative CLI for FioreFS volumes",
	Long: `fiorefs formats and inspects FioreFS volumes: single regular
files treated as raw block devices, holding a VCB, a freespace bitmap,
and a directory tree.

Every subcommand is a one-shot operation against the volume named by
--path (or FIOREFS_PATH / fiorefs-config.yaml); there is no interactive
shell.`,
}

// Execute adds all child commands to the root command and runs it.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "fiorefs: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&volumePath, "path", "", "path to the FioreFS backing file (default from config)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "print the mount session id alongside output")
}
