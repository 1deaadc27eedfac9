package workflow

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relkit/relkit/internal/check"
	"github.com/relkit/relkit/internal/output"
	"github.com/relkit/relkit/internal/project"
	"github.com/relkit/relkit/internal/testutil"
)

func testEnv(t *testing.T) *check.Env {
	t.Helper()
	dir := t.TempDir()
	testutil.WriteProject(t, dir, "pkg", "1.2.3")
	proj, err := project.Load(dir, testutil.NewFakeRunner())
	require.NoError(t, err)
	return &check.Env{Project: proj}
}

type counter struct{ calls atomic.Int32 }

func (c *counter) check(name string, pass bool, steps ...string) check.Check {
	return check.Check{Name: name, Run: func(context.Context, *check.Env, check.Params) *output.Output {
		c.calls.Add(1)
		if pass {
			return output.OK("%s ok", name)
		}
		return output.Fail("%s failed", name).Text("%s detail", name).Next(steps...)
	}}
}

func checkDetails(out *output.Output) map[string]bool {
	m := map[string]bool{}
	for _, d := range out.Details {
		if d.Kind == output.KindCheck {
			m[d.Name] = d.Success
		}
	}
	return m
}

func TestSequentialFailureShortCircuits(t *testing.T) {
	var ran atomic.Bool
	checkB := check.Check{Name: "checkB", Run: func(context.Context, *check.Env, check.Params) *output.Output {
		ran.Store(true)
		return output.OK("b")
	}}
	var c counter
	out := New("release").
		Check(c.check("checkA", false, "fix A")).
		Check(checkB).
		Run(context.Background(), testEnv(t), check.Params{})

	assert.False(t, out.Success)
	assert.False(t, ran.Load())
	assert.Equal(t, map[string]bool{"checkA": false}, checkDetails(out))
	assert.Equal(t, "checkA failed", out.Message)
	assert.Equal(t, []string{"fix A"}, out.NextSteps)
	assert.Equal(t, []string{"checkA"}, out.Get("failed"))
}

func TestParallelStageRunsEveryMember(t *testing.T) {
	var c counter
	out := New("preflight").
		Parallel(c.check("checkC", false, "fix C"), c.check("checkD", true)).
		Run(context.Background(), testEnv(t), check.Params{})

	assert.False(t, out.Success)
	assert.EqualValues(t, 2, c.calls.Load())
	assert.Equal(t, map[string]bool{"checkC": false, "checkD": true}, checkDetails(out))

	var messages []string
	for _, d := range out.Details {
		if d.Kind == output.KindCheck {
			messages = append(messages, d.Message)
		}
	}
	assert.Equal(t, []string{"checkC failed", "checkD ok"}, messages)
}

func TestParallelFailureContinuesToLaterStages(t *testing.T) {
	var c counter
	out := New("wf").
		Parallel(c.check("a", false), c.check("b", false)).
		Check(c.check("after", true)).
		Run(context.Background(), testEnv(t), check.Params{})

	assert.False(t, out.Success)
	assert.Equal(t, "a failed; b failed", out.Message)
	assert.Equal(t, map[string]bool{"a": false, "b": false, "after": true}, checkDetails(out))
	assert.Equal(t, int32(3), c.calls.Load())
}

func TestFailuresFromSeveralStagesAggregate(t *testing.T) {
	var c counter
	out := New("wf").
		Parallel(c.check("c", false, "fix c"), c.check("d", true)).
		Check(c.check("b", false, "fix b")).
		Check(c.check("never", true)).
		Run(context.Background(), testEnv(t), check.Params{})

	assert.False(t, out.Success)
	assert.Equal(t, "c failed; b failed", out.Message)
	assert.Equal(t, map[string]bool{"c": false, "d": true, "b": false}, checkDetails(out))
	assert.Equal(t, []string{"fix c", "fix b"}, out.NextSteps)
	assert.Equal(t, int32(3), c.calls.Load())
}

func TestAllPass(t *testing.T) {
	var c counter
	out := New("preflight").
		Check(c.check("git", true)).
		Check(c.check("changelog", true)).
		Parallel(c.check("format", true), c.check("lint", true), c.check("types", true)).
		Run(context.Background(), testEnv(t), check.Params{})

	assert.True(t, out.Success)
	assert.Equal(t, "All preflight checks passed (5/5)", out.Message)
	assert.Len(t, checkDetails(out), 5)
	assert.Empty(t, out.NextSteps)
	assert.Empty(t, out.Get("failed"))
}

func TestNextStepsConcatenatedAndDeduplicated(t *testing.T) {
	var c counter
	out := New("wf").
		Parallel(
			c.check("a", false, "Rebuild: relkit build", "a only"),
			c.check("b", false, "Rebuild: relkit build", "b only"),
		).
		Run(context.Background(), testEnv(t), check.Params{})

	assert.Equal(t, []string{"Rebuild: relkit build", "a only", "b only"}, out.NextSteps)

	var texts []string
	for _, d := range out.Details {
		if d.Kind == output.KindText {
			texts = append(texts, d.Content)
		}
	}
	assert.Equal(t, []string{"a:", "a detail", "b:", "b detail"}, texts)
}

func TestConcurrentAndSequentialAgree(t *testing.T) {
	build := func(c *counter) *Workflow {
		slow := check.Check{Name: "slow", Run: func(context.Context, *check.Env, check.Params) *output.Output {
			time.Sleep(20 * time.Millisecond)
			return output.Fail("slow failed").Next("wait")
		}}
		return New("wf").
			Check(c.check("first", true)).
			Parallel(slow, c.check("fast", true), c.check("bad", false, "fix bad"))
	}
	env := testEnv(t)

	var c1, c2 counter
	concurrent := build(&c1).Run(context.Background(), env, check.Params{})
	sequential := build(&c2).Sequential().Run(context.Background(), env, check.Params{})

	assert.Equal(t, sequential.Success, concurrent.Success)
	assert.Equal(t, sequential.Message, concurrent.Message)
	assert.Equal(t, sequential.Details, concurrent.Details)
	assert.Equal(t, sequential.NextSteps, concurrent.NextSteps)
	assert.Equal(t, "slow failed; bad failed", concurrent.Message)
}

func TestParamsReachChecks(t *testing.T) {
	out := New("bump").
		Check(check.MajorBump).
		Run(context.Background(), testEnv(t), check.Params{BumpType: project.BumpMajor})
	assert.False(t, out.Success)
	assert.Equal(t, map[string]bool{"major-bump": false}, checkDetails(out))
}

func TestEmptyWorkflowPasses(t *testing.T) {
	out := New("noop").Parallel().Run(context.Background(), testEnv(t), check.Params{})
	assert.True(t, out.Success)
	assert.Equal(t, "All noop checks passed (0/0)", out.Message)
}
