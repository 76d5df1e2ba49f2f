package main

import (
	"fmt"
	"runtime/debug"

	"github.com/spf13/cobra"
)

// se pisa con -ldflags "-X main.version=..."
var version = "dev"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, _ []string) {
		v := version
		if bi, ok := debug.ReadBuildInfo(); ok && v == "dev" && bi.Main.Version != "" {
			v = bi.Main.Version
		}
		fmt.Fprintln(cmd.OutOrStdout(), v)
	},
}
