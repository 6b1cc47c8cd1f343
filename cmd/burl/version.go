package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Version is the burl release, overridden at link time.
var Version = "0.1.0-dev"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of burl",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "burl version %s\n", Version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
