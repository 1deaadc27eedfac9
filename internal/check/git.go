package check

import (
	"context"

	"github.com/relkit/relkit/internal/output"
	"github.com/relkit/relkit/internal/project"
)

const maxListed = 10

// GitClean passes when git reports no pending changes.
var GitClean = Check{Name: "git-clean", Run: gitClean}

func gitClean(ctx context.Context, env *Env, _ Params) *output.Output {
	res, err := env.Project.Git().Status(ctx)
	if err != nil {
		return output.Fail("Failed to check git status").
			Text("%v", err).
			Next("Install git or set tools.git in .relkit.yaml")
	}
	if !res.OK() {
		out := output.Fail("Failed to check git status")
		if msg := res.ErrorText(); msg != "" {
			out.Text("%s", msg)
		}
		return out.Next("Run relkit from inside a git repository")
	}

	changes := res.Lines()
	if len(changes) == 0 {
		return output.OK("Git working directory is clean")
	}
	out := output.Fail("Git working directory has %d uncommitted change(s)", len(changes))
	shown := changes
	if len(shown) > maxListed {
		shown = shown[:maxListed]
	}
	out.Lines("", shown)
	if len(changes) > maxListed {
		out.Text("... and %d more", len(changes)-maxListed)
	}
	return out.
		With("changes", len(changes)).
		Next(
			"Review changes: git status",
			"Commit changes: git commit -am 'Your message'",
			"Or stash: git stash",
		)
}

// MajorBump fails softly for a major bump so the breaking change has to be
// acknowledged.
var MajorBump = Check{Name: "major-bump", Run: majorBump, Override: &AckMajorBump}

func majorBump(_ context.Context, _ *Env, p Params) *output.Output {
	if p.BumpType != project.BumpMajor {
		return output.OK("Not a major bump")
	}
	return output.Fail("Major version bump (breaking change)").
		Text("Major bumps indicate breaking changes").
		Text("Users will need to update their code").
		Next("Document the breaking changes under ## [Unreleased]")
}

// VersionTagged passes when the release tag for the version exists.
var VersionTagged = Check{Name: "version-tagged", Run: versionTagged}

func versionTagged(ctx context.Context, env *Env, p Params) *output.Output {
	version := env.version(p)
	tag := env.Project.TagName(version)
	if env.Project.Git().TagExists(ctx, tag) {
		return output.OK("Version %s is tagged", version).With("tag", tag)
	}
	return output.Fail("Version %s not tagged", version).
		Text("Expected tag: %s", tag).
		Text("Publishing requires a git tag").
		Text("This ensures releases are traceable").
		With("tag", tag).
		Next(
			"Tag the release: relkit tag",
			"Or start a new release: relkit bump <major|minor|patch>",
		)
}
