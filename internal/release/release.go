// Package release implements the relkit commands. Each command is a body
// plus the guards that must let it through; Execute assembles the chain for
// one invocation so guard state never leaks between calls.
package release

import (
	"context"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/relkit/relkit/internal/check"
	"github.com/relkit/relkit/internal/guard"
	"github.com/relkit/relkit/internal/output"
	"github.com/relkit/relkit/internal/runner"
	"github.com/relkit/relkit/internal/telemetry"
)

// now is the release date source for changelog headers.
var now = time.Now

// Command is one relkit command.
type Command struct {
	Name string
	// Args are rendered after the name when a token offer suggests the
	// rerun command line.
	Args   []string
	Params check.Params
	// NeedsVersion commands refuse to run on a virtual workspace root.
	NeedsVersion bool
	// Guards builds the guard list for an invocation, outermost first.
	Guards func(ctx context.Context, env *check.Env) []guard.Guard
	Run    guard.CommandFunc
}

// Invocation renders the command line used in token next steps.
func (c Command) Invocation(env *check.Env) string {
	parts := append([]string{c.Name}, c.Args...)
	if env.Project != nil && env.Project.Package != "" {
		parts = append(parts, "--package", env.Project.Package)
	}
	return strings.Join(parts, " ")
}

// Execute runs the command through its guards.
func (c Command) Execute(ctx context.Context, env *check.Env) *output.Output {
	ctx, span := telemetry.StartSpan(ctx, "command."+c.Name,
		attribute.String("relkit.command", c.Name),
		attribute.String("relkit.project", env.Project.Name),
		attribute.String("relkit.invocation_id", env.Project.ID),
	)
	defer span.End()

	if env.Command == "" {
		env.Command = c.Invocation(env)
	}
	log := env.Logger().With("command", c.Name, "invocation", env.Project.ID)
	log.Debug("command started", "project", env.Project.Name, "version", env.Project.Version)

	if c.NeedsVersion && env.Project.NeedsPackage() {
		return selectPackage(env)
	}

	var guards []guard.Guard
	if c.Guards != nil {
		guards = c.Guards(ctx, env)
	}
	out := guard.Chain(c.Run, guards...)(ctx, guard.NewInvocation(env, c.Params))

	span.SetAttributes(attribute.Bool("relkit.command.success", out.Success))
	log.Debug("command finished", "success", out.Success, "message", out.Message)
	return out
}

func selectPackage(env *check.Env) *output.Output {
	out := output.Fail("%s is a workspace; choose a package", env.Project.Name).
		Text("The workspace root has no version of its own")
	if len(env.Project.Members) > 0 {
		out.Text("Members:")
		for _, m := range env.Project.Members {
			out.Text("  %s %s", m.Name, m.Version)
		}
		out.Next("Rerun with: relkit " + env.Command + " --package " + env.Project.Members[0].Name)
	} else {
		out.Next("Add members under [tool.uv.workspace] in pyproject.toml")
	}
	return out
}

// toolFailure reports an external tool that could not start or exited
// non-zero. The captured stderr is shown verbatim.
func toolFailure(message string, res runner.Result, err error, steps ...string) *output.Output {
	out := output.Fail("%s", message)
	if err != nil {
		out.Text("%v", err)
	} else if text := res.ErrorText(); text != "" {
		out.Text("%s", text)
	}
	return out.Next(steps...)
}
