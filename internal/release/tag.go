package release

import (
	"context"
	"time"

	"github.com/relkit/relkit/internal/check"
	"github.com/relkit/relkit/internal/guard"
	"github.com/relkit/relkit/internal/output"
)

const (
	tagTTL = 3 * time.Minute
	remote = "origin"
)

// Tag creates the annotated release tag for the current version and pushes
// it unless push is false.
func Tag(push bool) Command {
	cmd := Command{Name: "tag", NeedsVersion: true}
	if !push {
		cmd.Args = []string{"--no-push"}
	}
	cmd.Guards = func(ctx context.Context, env *check.Env) []guard.Guard {
		return []guard.Guard{
			guard.RequiresReview("commits", reviewCommands(ctx, env), reviewTTL),
			guard.RequiresConfirmation("tag", tagTTL, false),
			guard.RequiresCleanGit(),
		}
	}
	cmd.Run = func(ctx context.Context, inv *guard.Invocation) *output.Output {
		return tag(ctx, inv, push)
	}
	return cmd
}

func tag(ctx context.Context, inv *guard.Invocation, push bool) *output.Output {
	env := inv.Env
	proj := env.Project
	repo := proj.Git()

	if !repo.HasRemote(ctx) {
		return output.Fail("No git remote configured").
			Text("Tags require a remote repository").
			Text("This ensures tags can be shared").
			Next(
				"Add remote: git remote add origin <url>",
				"Example: git remote add origin git@github.com:user/repo.git",
			)
	}
	if _, ok := repo.Upstream(ctx); !ok {
		return output.Fail("Branch not pushed to remote").
			Text("Current branch has no upstream tracking").
			Text("Tags should only be created on pushed commits").
			Next(
				"Push branch first: git push -u origin <branch>",
				"Example: git push -u origin main",
			)
	}
	if unpushed := repo.Unpushed(ctx); len(unpushed) > 0 {
		return output.Fail("Branch has %d unpushed commit(s)", len(unpushed)).
			Text("Tags should only be created on pushed commits").
			Text("This ensures tags reference public commits").
			Next("Push commits first: git push", "Then retry: relkit tag")
	}

	if doc := check.VersionEntry.Evaluate(ctx, env, inv.Params); !doc.Success {
		return output.Failure(doc)
	}

	name := proj.TagName(proj.Version)
	if repo.TagExists(ctx, name) {
		return output.Fail("Tag %s already exists", name).
			Next(
				"Delete existing tag: git tag -d "+name,
				"Or bump version first: relkit bump <major|minor|patch>",
			)
	}

	res, err := repo.CreateTag(ctx, name, "Release "+proj.Version)
	if err != nil || !res.OK() {
		return toolFailure("Failed to create tag "+name, res, err, "Create it by hand: git tag -a "+name)
	}
	env.Logger().Info("tag created", "tag", name, "package", proj.Name)

	out := output.OK("Tagged release %s", proj.Version).Text("Created tag: %s", name)
	pushed := false
	if push {
		res, err := repo.PushTag(ctx, remote, name)
		if err == nil && res.OK() {
			out.Text("Pushed tag to %s", remote)
			pushed = true
		} else {
			env.Logger().Warn("tag push failed", "tag", name, "exit", res.ExitCode, "err", err)
			out.Text("Failed to push tag (will need manual push)")
			if err != nil {
				out.Text("%v", err)
			} else if text := res.ErrorText(); text != "" {
				out.Text("%s", text)
			}
			out.Next("Push the tag: git push " + remote + " " + name)
		}
	}
	if pushed || !push {
		out.Next("Build the release: relkit build", "Then publish: relkit publish")
	}
	return out.With("tag", name).With("pushed", pushed)
}
