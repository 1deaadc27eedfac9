package main

import (
	"github.com/spf13/cobra"

	"github.com/relkit/relkit/internal/release"
)

var tagCmd = &cobra.Command{
	Use:     "tag",
	GroupID: "release",
	Short:   "Create and push the release tag for the current version",
	Long: `Create an annotated tag for the current version and push it to origin.

Needs a clean tree, a pushed branch and a changelog entry for the version.
Requires REVIEW_COMMITS and CONFIRM_TAG tokens.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		noPush, _ := cmd.Flags().GetBool("no-push")
		runCommand(release.Tag(!noPush))
	},
}

func init() {
	tagCmd.Flags().Bool("no-push", false, "Create the tag locally without pushing it")
	rootCmd.AddCommand(tagCmd)
}
