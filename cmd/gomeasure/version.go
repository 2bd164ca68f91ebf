package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/philipparndt/gomeasure/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Args:  cobra.NoArgs,
	// The version needs no configuration
	PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), "gomeasure "+version.GetFullVersion())
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
