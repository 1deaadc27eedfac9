package release

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/relkit/relkit/internal/changelog"
	"github.com/relkit/relkit/internal/check"
	"github.com/relkit/relkit/internal/git"
	"github.com/relkit/relkit/internal/guard"
	"github.com/relkit/relkit/internal/output"
	"github.com/relkit/relkit/internal/project"
)

const (
	reviewTTL    = 10 * time.Minute
	shownCommits = 5
)

// reviewCommands are the commands a caller should read before a release
// step is allowed.
func reviewCommands(ctx context.Context, env *check.Env) []string {
	if tag, ok := env.Project.LastTag(ctx); ok {
		return []string{
			"git log --oneline " + tag + "..HEAD",
			"git diff " + tag,
		}
	}
	return []string{"git log --oneline -20", "git diff --stat"}
}

// Bump increments the version in the manifest and moves the Unreleased
// changelog content under the new version.
func Bump(kind string) Command {
	cmd := Command{Name: "bump", Args: []string{kind}, NeedsVersion: true}
	bt, err := project.ParseBumpType(kind)
	if err != nil {
		cmd.Run = func(context.Context, *guard.Invocation) *output.Output {
			return output.Fail("Invalid bump type: %s", kind).
				Text("Valid types: major, minor, patch").
				Next("relkit bump <major|minor|patch>")
		}
		return cmd
	}
	cmd.Params = check.Params{BumpType: bt}
	cmd.Guards = func(ctx context.Context, env *check.Env) []guard.Guard {
		return []guard.Guard{
			guard.RequiresReview("commits", reviewCommands(ctx, env), reviewTTL),
			guard.RequiresActiveDecision("bump", check.GitClean, check.CommitsDocumented, check.MajorBump),
		}
	}
	cmd.Run = bump
	return cmd
}

func bump(ctx context.Context, inv *guard.Invocation) *output.Output {
	env := inv.Env
	proj := env.Project
	current := proj.Version
	next, err := project.BumpVersion(current, inv.Params.BumpType)
	if err != nil {
		return output.Fail("Cannot bump version %s", current).
			Text("%v", err).
			Next("Fix the version in " + proj.ManifestPath())
	}

	lastTag, tagged := proj.LastTag(ctx)
	since := lastTag
	if !tagged {
		since = "start"
	}
	commits := proj.Git().Log(ctx, git.LogOptions{Since: lastTag, Limit: 10})
	count := proj.CommitsSinceTag(ctx)

	if err := project.WriteVersion(proj.ManifestPath(), next); err != nil {
		return output.Fail("Failed to update %s", project.ManifestFile).
			Text("%v", err).
			Next(`Make sure [project] has a version = "..." line`)
	}

	updated, err := changelog.ReleaseFile(env.ChangelogPath(), next, now())
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return output.Fail("Bumped %s to %s but failed to update %s", project.ManifestFile, next, env.ChangelogName()).
			Text("%v", err).
			Next(
				"Move the [Unreleased] entries under ## ["+next+"] by hand",
				"Or revert: git checkout "+project.ManifestFile,
			)
	}
	env.Logger().Info("version bumped",
		"package", proj.Name,
		"old", current,
		"new", next,
		"bump", string(inv.Params.BumpType),
		"changelog_updated", updated,
	)

	out := output.OK("Bumped version to %s", next).
		Change(current, next).
		Text("Commits since %s: %d", since, count)
	if len(commits) > 0 {
		out.Spacer().Text("Recent commits:").Lines("  ", firstN(commits, shownCommits))
	}
	if updated {
		out.Spacer().Text("Updated %s", env.ChangelogName())
	}
	return out.
		With("old", current).
		With("new", next).
		With("bump_type", string(inv.Params.BumpType)).
		With("commits", count).
		With("changelog_updated", updated).
		Next(
			"Review changes with: git diff",
			"Commit with: git commit -am 'chore: bump version to "+next+"'",
			"Tag with: relkit tag",
		)
}

func firstN(s []string, n int) []string {
	if len(s) > n {
		return s[:n]
	}
	return s
}
