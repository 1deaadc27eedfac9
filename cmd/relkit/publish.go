package main

import (
	"github.com/spf13/cobra"

	"github.com/relkit/relkit/internal/release"
)

var publishCmd = &cobra.Command{
	Use:     "publish",
	GroupID: "release",
	Short:   "Upload the built distribution to PyPI",
	Long: `Upload the artifacts in the dist directory with uv publish.

The version must be tagged and dist must hold only this version. Public
packages require a CONFIRM_PUBLISH token; private packages skip it.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		runCommand(release.Publish())
	},
}

func init() {
	rootCmd.AddCommand(publishCmd)
}
