package release

import (
	"context"
	"errors"
	"os"
	"strings"

	"github.com/relkit/relkit/internal/changelog"
	"github.com/relkit/relkit/internal/check"
	"github.com/relkit/relkit/internal/guard"
	"github.com/relkit/relkit/internal/output"
)

// MarkdownKey is the Output.Data key holding a section's markdown for
// rich rendering.
const MarkdownKey = "markdown"

// InitChangelog writes a Keep a Changelog template. An existing changelog
// is never overwritten.
func InitChangelog() Command {
	return Command{Name: "init-changelog", Run: initChangelog}
}

func initChangelog(_ context.Context, inv *guard.Invocation) *output.Output {
	env := inv.Env
	path := env.ChangelogPath()
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644) // #nosec G302 -- changelog is committed and world-readable
	if errors.Is(err, os.ErrExist) {
		return output.Fail("%s already exists", env.ChangelogName()).
			Text("Refusing to overwrite an existing changelog").
			Next("Edit " + env.ChangelogName() + " and add entries under ## [Unreleased]")
	}
	if err != nil {
		return output.Fail("Cannot create %s", env.ChangelogName()).Text("%v", err)
	}
	_, werr := f.WriteString(changelog.Template)
	if cerr := f.Close(); werr == nil {
		werr = cerr
	}
	if werr != nil {
		return output.Fail("Failed to write %s", env.ChangelogName()).Text("%v", werr)
	}
	env.Logger().Info("changelog created", "path", path)
	return output.OK("Created %s", env.ChangelogName()).
		With("path", path).
		Next(
			"Add entries under ## [Unreleased]",
			"Commit it: git add "+env.ChangelogName(),
		)
}

// ShowChangelog returns one changelog section, Unreleased by default.
func ShowChangelog(version string) Command {
	cmd := Command{Name: "changelog", Run: func(ctx context.Context, inv *guard.Invocation) *output.Output {
		return showChangelog(ctx, inv, version)
	}}
	if version != "" {
		cmd.Args = []string{version}
	}
	return cmd
}

func showChangelog(ctx context.Context, inv *guard.Invocation, version string) *output.Output {
	env := inv.Env
	if exists := check.ChangelogExists.Evaluate(ctx, env, inv.Params); !exists.Success {
		return exists
	}
	doc, err := changelog.Read(env.ChangelogPath())
	if err != nil {
		return output.Fail("Cannot read %s", env.ChangelogName()).Text("%v", err)
	}

	name := changelog.Unreleased
	if version != "" {
		name = version
	}
	sec, ok := doc.Section(name)
	if !ok {
		return output.Fail("No [%s] section in %s", name, env.ChangelogName()).
			Next("Add ## [" + name + "] to " + env.ChangelogName())
	}

	entries := sec.Entries()
	out := output.OK("%s: %d entr%s", strings.TrimPrefix(strings.TrimSpace(sec.Header), "## "), len(entries), plural(len(entries), "y", "ies"))
	for _, line := range sec.Lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		out.Text("%s", line)
	}
	return out.
		With("section", sec.Name).
		With("entries", entries).
		With(MarkdownKey, sec.Header+"\n\n"+sec.Body()+"\n")
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
