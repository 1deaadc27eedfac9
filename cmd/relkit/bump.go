package main

import (
	"github.com/spf13/cobra"

	"github.com/relkit/relkit/internal/release"
)

var bumpCmd = &cobra.Command{
	Use:     "bump <major|minor|patch>",
	GroupID: "release",
	Short:   "Bump the project version and date the changelog",
	Long: `Bump the version in pyproject.toml and move the [Unreleased] changelog
entries under the new version.

The first run asks you to review the commits since the last tag and prints a
REVIEW_COMMITS token. A dirty tree or undocumented commits block the bump;
a major bump needs ACK_MAJOR_BUMP.`,
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"major", "minor", "patch"},
	Run: func(cmd *cobra.Command, args []string) {
		runCommand(release.Bump(args[0]))
	},
}

func init() {
	rootCmd.AddCommand(bumpCmd)
}
