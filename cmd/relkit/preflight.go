package main

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/relkit/relkit/internal/check"
	"github.com/relkit/relkit/internal/release"
)

var preflightCmd = &cobra.Command{
	Use:     "preflight",
	GroupID: "inspect",
	Short:   "Run every pre-release check",
	Long: `Run git-clean and version-entry in order, then format, lint and types
in parallel. Stops at the first failing stage.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		runCommand(release.Preflight())
	},
}

var checkCmd = &cobra.Command{
	Use:     "check <name>",
	GroupID: "inspect",
	Short:   "Run a single check",
	Long:    "Run one check from the library. Available: " + strings.Join(check.Names(), ", "),
	Args:    cobra.ExactArgs(1),
	ValidArgsFunction: func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		if len(args) > 0 {
			return nil, cobra.ShellCompDirectiveNoFileComp
		}
		return check.Names(), cobra.ShellCompDirectiveNoFileComp
	},
	Run: func(cmd *cobra.Command, args []string) {
		runCommand(release.RunCheck(args[0]))
	},
}

func init() {
	rootCmd.AddCommand(preflightCmd)
	rootCmd.AddCommand(checkCmd)
}
