package release

import (
	"context"

	"github.com/relkit/relkit/internal/check"
	"github.com/relkit/relkit/internal/guard"
	"github.com/relkit/relkit/internal/output"
	"github.com/relkit/relkit/internal/workflow"
)

// PreflightWorkflow is the pre-release check sequence.
func PreflightWorkflow() *workflow.Workflow {
	return workflow.New("preflight").
		Check(check.GitClean).
		Check(check.VersionEntry).
		Parallel(check.Format, check.Lint, check.Types)
}

// Preflight runs PreflightWorkflow.
func Preflight() Command {
	return Command{
		Name:         "preflight",
		NeedsVersion: true,
		Run: func(ctx context.Context, inv *guard.Invocation) *output.Output {
			return PreflightWorkflow().Run(ctx, inv.Env, inv.Params)
		},
	}
}

// RunCheck evaluates a single library check by name.
func RunCheck(name string) Command {
	return Command{
		Name:         "check",
		Args:         []string{name},
		NeedsVersion: true,
		Run: func(ctx context.Context, inv *guard.Invocation) *output.Output {
			c, ok := check.Lookup(name)
			if !ok {
				return output.Fail("Unknown check: %s", name).
					Text("Available checks:").
					Lines("  ", check.Names()).
					Next("relkit check <name>")
			}
			return c.Evaluate(ctx, inv.Env, inv.Params)
		},
	}
}
