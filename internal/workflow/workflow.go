// Package workflow composes checks into ordered pipelines.
//
// A sequential stage stops the run when it fails. A parallel stage always
// evaluates every member, fails if any member does, and lets later stages
// run. The aggregate
// Output lists every executed check and concatenates the failures'
// messages, details and next steps.
package workflow

import (
	"context"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/relkit/relkit/internal/check"
	"github.com/relkit/relkit/internal/output"
	"github.com/relkit/relkit/internal/telemetry"
)

type stage struct {
	checks   []check.Check
	parallel bool
}

// Workflow is a named list of stages. Build it with Check and Parallel,
// then Run it; a Workflow may be run any number of times.
type Workflow struct {
	name       string
	stages     []stage
	sequential bool
}

// New returns an empty workflow.
func New(name string) *Workflow {
	return &Workflow{name: name}
}

// Name returns the workflow name.
func (w *Workflow) Name() string {
	return w.name
}

// Check appends a sequential stage.
func (w *Workflow) Check(c check.Check) *Workflow {
	w.stages = append(w.stages, stage{checks: []check.Check{c}})
	return w
}

// Parallel appends a stage whose checks all run before the stage is judged.
func (w *Workflow) Parallel(cs ...check.Check) *Workflow {
	if len(cs) > 0 {
		w.stages = append(w.stages, stage{checks: cs, parallel: true})
	}
	return w
}

// Sequential makes parallel stages evaluate their checks one at a time.
// The aggregate result is the same either way.
func (w *Workflow) Sequential() *Workflow {
	w.sequential = true
	return w
}

// Result is one executed check.
type Result struct {
	Name    string         `json:"name"`
	Success bool           `json:"success"`
	Message string         `json:"message"`
	Output  *output.Output `json:"-"`
}

// Run executes the stages in order and aggregates the results.
func (w *Workflow) Run(ctx context.Context, env *check.Env, p check.Params) *output.Output {
	ctx, span := telemetry.StartSpan(ctx, "workflow."+w.name, attribute.String("relkit.workflow", w.name))
	defer span.End()

	out := aggregate(w.name, w.Evaluate(ctx, env, p))
	span.SetAttributes(attribute.Bool("relkit.workflow.success", out.Success))
	return out
}

// Evaluate executes the stages in order and returns every executed check's
// result in declaration order. A failing sequential stage ends the run; a
// failing parallel stage does not.
func (w *Workflow) Evaluate(ctx context.Context, env *check.Env, p check.Params) []Result {
	log := env.Logger().With("workflow", w.name)

	var results []Result
	for i, st := range w.stages {
		stageResults := w.runStage(ctx, env, p, st)
		results = append(results, stageResults...)

		ok := true
		for _, r := range stageResults {
			ok = ok && r.Success
		}
		log.Debug("stage finished", "stage", i+1, "parallel", st.parallel, "success", ok)
		if !ok && !st.parallel {
			break
		}
	}
	return results
}

func (w *Workflow) runStage(ctx context.Context, env *check.Env, p check.Params, st stage) []Result {
	results := make([]Result, len(st.checks))
	eval := func(i int) {
		c := st.checks[i]
		out := c.Evaluate(ctx, env, p)
		results[i] = Result{Name: c.Name, Success: out.Success, Message: out.Message, Output: out}
	}

	if !st.parallel || w.sequential || len(st.checks) == 1 {
		for i := range st.checks {
			eval(i)
		}
		return results
	}

	var g errgroup.Group
	for i := range st.checks {
		g.Go(func() error {
			eval(i)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func aggregate(name string, results []Result) *output.Output {
	var failed []Result
	for _, r := range results {
		if !r.Success {
			failed = append(failed, r)
		}
	}

	var out *output.Output
	if len(failed) == 0 {
		out = output.OK("All %s checks passed (%d/%d)", name, len(results), len(results))
	} else {
		msgs := make([]string, len(failed))
		for i, r := range failed {
			msgs[i] = r.Message
		}
		out = output.Fail("%s", strings.Join(msgs, "; "))
	}

	for _, r := range results {
		out.Check(r.Name, r.Success, r.Message)
	}

	seen := make(map[string]bool)
	for _, r := range failed {
		if len(r.Output.Details) > 0 {
			out.Spacer().Text("%s:", r.Name)
			out.Details = append(out.Details, r.Output.Details...)
		}
		for _, step := range r.Output.NextSteps {
			if !seen[step] {
				seen[step] = true
				out.Next(step)
			}
		}
	}

	names := make([]string, len(failed))
	for i, r := range failed {
		names[i] = r.Name
	}
	return out.
		With("workflow", name).
		With("checks", results).
		With("failed", names)
}
