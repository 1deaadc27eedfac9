package check

import (
	"context"
	"errors"
	"os"

	"github.com/relkit/relkit/internal/changelog"
	"github.com/relkit/relkit/internal/git"
	"github.com/relkit/relkit/internal/output"
)

// ChangelogExists passes when the changelog file is present.
var ChangelogExists = Check{Name: "changelog-exists", Run: changelogExists}

func changelogExists(_ context.Context, env *Env, _ Params) *output.Output {
	if _, err := os.Stat(env.changelogPath()); err != nil {
		return missingChangelog(env, err)
	}
	return output.OK("%s exists", env.ChangelogName())
}

func missingChangelog(env *Env, err error) *output.Output {
	if !errors.Is(err, os.ErrNotExist) {
		return output.Fail("Cannot read %s", env.ChangelogName()).
			Text("%v", err).
			Next("Check the file permissions of " + env.ChangelogName())
	}
	return output.Fail("No %s found", env.ChangelogName()).
		Text("This project requires a changelog for releases").
		Next("Run: relkit init-changelog")
}

func readChangelog(env *Env) (*changelog.Document, *output.Output) {
	doc, err := changelog.Read(env.changelogPath())
	if err != nil {
		return nil, missingChangelog(env, err)
	}
	return doc, nil
}

// UnreleasedContent passes when the Unreleased section documents at least
// one change. Subsection headers, comments and blank lines do not count.
var UnreleasedContent = Check{Name: "changelog-unreleased", Run: unreleasedContent}

func unreleasedContent(_ context.Context, env *Env, _ Params) *output.Output {
	doc, fail := readChangelog(env)
	if fail != nil {
		return fail
	}
	sec, ok := doc.Section(changelog.Unreleased)
	if !ok {
		return output.Fail("No [Unreleased] section in changelog").
			Next("Add ## [Unreleased] section to " + env.ChangelogName())
	}
	if !sec.HasContent() {
		return output.Fail("Changelog [Unreleased] section is empty").
			Next(
				"Add entries to "+env.ChangelogName()+" under ## [Unreleased]",
				"Document what was added, changed, fixed, or removed",
			)
	}
	return output.OK("Changelog has unreleased content").With("entries", len(sec.Entries()))
}

// CommitsDocumented passes when there are commits since the last release
// and the Unreleased section describes them. A presented
// FORCE_EMPTY_CHANGELOG token acknowledges either failure.
var CommitsDocumented = Check{Name: "commits-documented", Run: commitsDocumented, Override: &ForceEmptyChangelog}

func commitsDocumented(ctx context.Context, env *Env, p Params) *output.Output {
	if env.Presented(ForceEmptyChangelog) {
		env.logger().Info("changelog check overridden", "key", ForceEmptyChangelog.Key())
		return output.OK("Changelog check overridden")
	}

	lastTag, tagged := env.Project.LastTag(ctx)
	since := lastTag
	if !tagged {
		since = "start of project"
	}
	count := env.Project.Git().CommitCount(ctx, lastTag)

	if count == 0 {
		out := output.Fail("No commits since last tag - nothing to release").
			Text("Last tag: %s", since).
			Text("No changes have been made since the last release").
			Next("Make changes before creating a new release")
		return env.Offer(ctx, out, ForceEmptyChangelog, "If you need to bump anyway (e.g., rebuild):")
	}

	if doc := unreleasedContent(ctx, env, p); doc.Success {
		return output.OK("Commits and changelog are in sync").With("commits", count)
	}

	opts := git.LogOptions{NoMerges: true}
	if tagged {
		opts.Since = lastTag
	} else {
		opts.Limit = 20
	}
	commits := env.Project.Git().Log(ctx, opts)

	out := output.Fail("Found %d commit(s) but changelog is empty", count).
		Text("Found %d commit(s) since %s", count, since).
		Text("But [Unreleased] section in %s is empty", env.ChangelogName())
	if len(commits) > 0 {
		shown := commits
		if len(shown) > maxListed {
			shown = shown[:maxListed]
		}
		out.Spacer().Text("Recent commits that need documentation:").Lines("  ", shown)
		if len(commits) > maxListed {
			out.Text("  ... and %d more", len(commits)-maxListed)
		}
	}
	out.Spacer().
		Text("Every release must document what changed").
		Text("Add entries under ## [Unreleased] in %s", env.ChangelogName()).
		With("commits", count).
		Next(
			"Add entries to "+env.ChangelogName()+" under ## [Unreleased]",
			"Document what changed in this release",
		)
	return env.Offer(ctx, out, ForceEmptyChangelog, "To force bump without changelog (not recommended):")
}

// VersionEntry passes when the changelog has a non-empty section for the
// version.
var VersionEntry = Check{Name: "version-entry", Run: versionEntry}

func versionEntry(_ context.Context, env *Env, p Params) *output.Output {
	version := env.version(p)
	doc, fail := readChangelog(env)
	if fail != nil {
		return fail
	}
	sec, ok := doc.Section(version)
	if !ok {
		return output.Fail("No changelog entry for version %s", version).
			Text("Every release must have a changelog entry").
			Text("The changelog documents what changed for users").
			Next(
				"Add your changes to "+env.ChangelogName()+" under [Unreleased]",
				"Then run: relkit bump <major|minor|patch>",
			)
	}
	if !sec.HasContent() {
		return output.Fail("Changelog entry for %s is empty", version).
			Text("Version section exists but has no content").
			Text("Users need to know what changed").
			Next(
				"Add meaningful entries to the changelog",
				"Document what was added, changed, fixed, or removed",
			)
	}
	return output.OK("Changelog has entry for version %s", version)
}
