package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	// Set at build time with -ldflags "-X github.com/samzong/autopush/cmd.Version=..."
	Version    = "dev"
	BuildTime  = "unknown"
	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Show autopush version information",
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Fprintf(outWriter(), "autopush version %s (built at %s)\n", Version, BuildTime)
		},
	}
)

func init() {
	rootCmd.AddCommand(versionCmd)
}
