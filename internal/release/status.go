package release

import (
	"context"
	"fmt"

	"github.com/relkit/relkit/internal/check"
	"github.com/relkit/relkit/internal/guard"
	"github.com/relkit/relkit/internal/output"
	"github.com/relkit/relkit/internal/workflow"
)

type readiness struct {
	label string
	check check.Check
	// short replaces the check message on success.
	short string
	// hint is the next step on failure; empty means the check's own first
	// step.
	hint string
}

func readinessChecks() []readiness {
	return []readiness{
		{label: "Git", check: check.GitClean, short: "Clean", hint: "Commit changes: git commit -am 'your message'"},
		{label: "Changelog", check: check.VersionEntry},
		{label: "Formatting", check: check.Format, short: "Correct"},
		{label: "Linting", check: check.Lint, short: "No issues"},
		{label: "Types", check: check.Types, short: "Passed"},
	}
}

// Status reports release readiness at a glance. It never blocks.
func Status() Command {
	return Command{Name: "status", NeedsVersion: true, Run: status}
}

func status(ctx context.Context, inv *guard.Invocation) *output.Output {
	env := inv.Env
	proj := env.Project
	items := readinessChecks()

	cs := make([]check.Check, len(items))
	for i, it := range items {
		cs[i] = it.check
	}
	results := workflow.New("status").Parallel(cs...).Evaluate(ctx, env, inv.Params)

	lastTag, ok := proj.LastTag(ctx)
	if !ok {
		lastTag = "none"
	}
	out := &output.Output{}
	out.Text("Project: %s v%s", proj.Name, proj.Version).
		Text("Type: %s", proj.Type).
		Text("Last tag: %s", lastTag).
		Text("Commits since tag: %d", proj.CommitsSinceTag(ctx)).
		Spacer().
		Text("Release Readiness:")

	ready := 0
	var steps []string
	seen := make(map[string]bool)
	summary := make(map[string]bool, len(items))
	for i, r := range results {
		it := items[i]
		summary[it.check.Name] = r.Success
		msg := r.Message
		if r.Success {
			ready++
			if it.short != "" {
				msg = it.short
			}
		} else {
			if n, ok := r.Output.Get("changes").(int); ok {
				msg = fmt.Sprintf("%d uncommitted change(s)", n)
			}
			hint := it.hint
			if hint == "" && len(r.Output.NextSteps) > 0 {
				hint = r.Output.NextSteps[0]
			}
			if hint != "" && !seen[hint] {
				seen[hint] = true
				steps = append(steps, hint)
			}
		}
		out.Check(it.label, r.Success, msg)
	}

	total := len(items)
	out.With("ready", ready).With("total", total).With("checks", summary)
	if ready == total {
		out.Success = true
		out.Message = fmt.Sprintf("Ready for release (%d/%d checks passed)", ready, total)
		return out.Next("Run: relkit preflight", "Then: relkit tag")
	}
	out.Message = fmt.Sprintf("Not ready for release (%d/%d checks passed)", ready, total)
	return out.Next(append(steps, "Then: relkit status")...)
}
