package main

import (
	"github.com/spf13/cobra"

	"github.com/relkit/relkit/internal/release"
)

var buildCmd = &cobra.Command{
	Use:     "build",
	GroupID: "release",
	Short:   "Build the wheel and sdist into the dist directory",
	Args:    cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		runCommand(release.Build())
	},
}

func init() {
	rootCmd.AddCommand(buildCmd)
}
