package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/relkit/relkit/internal/output"
	"github.com/relkit/relkit/internal/release"
	"github.com/relkit/relkit/internal/ui"
)

var initChangelogCmd = &cobra.Command{
	Use:     "init-changelog",
	GroupID: "setup",
	Short:   "Create a Keep a Changelog template",
	Args:    cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		runCommand(release.InitChangelog())
	},
}

var changelogCmd = &cobra.Command{
	Use:     "changelog [version]",
	GroupID: "inspect",
	Short:   "Show a changelog section (default: Unreleased)",
	Args:    cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		noPager, _ := cmd.Flags().GetBool("no-pager")
		version := ""
		if len(args) == 1 {
			version = args[0]
		}
		out := release.ShowChangelog(version).Execute(getRootContext(), mustEnv())
		if jsonOutput || !out.Success {
			emit(out)
			return
		}
		showMarkdown(out, noPager)
	},
}

// showMarkdown renders the section's markdown through glamour and the pager,
// falling back to the plain Output rendering.
func showMarkdown(out *output.Output, noPager bool) {
	md, ok := out.Get(release.MarkdownKey).(string)
	if !ok || md == "" {
		emit(out)
		return
	}
	if err := ui.ToPager(os.Stdout, ui.RenderMarkdown(md), ui.PagerOptions{NoPager: noPager}); err != nil {
		WarnError("pager failed: %v", err)
		emit(out)
	}
}

func init() {
	changelogCmd.Flags().Bool("no-pager", false, "Print directly instead of through a pager")
	rootCmd.AddCommand(initChangelogCmd)
	rootCmd.AddCommand(changelogCmd)
}
