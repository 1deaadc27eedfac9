package check

import (
	"context"
	"errors"
	"strings"

	"github.com/relkit/relkit/internal/output"
	"github.com/relkit/relkit/internal/runner"
)

const qualityTail = 10

type quality struct {
	key     string // config key under checks.
	what    string
	passMsg string
	failMsg string
	fix     string
}

var qualityDefaults = map[string][]string{
	"format": {"uv", "run", "ruff", "format", "--check", "."},
	"lint":   {"uv", "run", "ruff", "check", "."},
	"types":  {"uv", "run", "basedpyright"},
}

// Quality checks run the configured tool and pass on exit code 0.
var (
	Format = qualityCheck(quality{
		key: "format", what: "formatter",
		passMsg: "Code formatting is correct", failMsg: "Code needs formatting",
		fix: "Format code: uv run ruff format .",
	})
	Lint = qualityCheck(quality{
		key: "lint", what: "linter",
		passMsg: "No linting issues found", failMsg: "Linting issues found",
		fix: "Fix issues: uv run ruff check --fix .",
	})
	Types = qualityCheck(quality{
		key: "types", what: "type checker",
		passMsg: "Type checking passed", failMsg: "Type errors found",
		fix: "Fix the reported type errors",
	})
)

func qualityCheck(q quality) Check {
	return Check{Name: q.key, Run: func(ctx context.Context, env *Env, _ Params) *output.Output {
		return runQuality(ctx, env, q)
	}}
}

func runQuality(ctx context.Context, env *Env, q quality) *output.Output {
	argv := qualityDefaults[q.key]
	if env.Config != nil {
		argv = env.Config.QualityCommand(q.key)
	}
	if len(argv) == 0 {
		return output.OK("No %s configured (checks.%s is empty)", q.what, q.key)
	}

	cmd := runner.Cmd{Args: argv, Dir: env.Project.Root}
	res, err := env.Runner.Run(ctx, cmd)
	if err != nil {
		out := output.Fail("Could not run %s", q.what).Text("%v", err)
		if errors.Is(err, runner.ErrNotFound) {
			return out.Next(
				"Install "+argv[0]+" or point checks."+q.key+" at your "+q.what+" in .relkit.yaml",
			)
		}
		return out.Next("Run it directly: " + cmd.String())
	}
	if res.OK() {
		return output.OK("%s", q.passMsg).With("command", cmd.String())
	}

	env.logger().Debug("quality check failed", "check", q.key, "exit", res.ExitCode)
	out := output.Fail("%s", q.failMsg).With("command", cmd.String()).With("exit_code", res.ExitCode)
	out.Lines("  ", tail(strings.TrimSpace(res.Stdout+"\n"+res.Stderr), qualityTail))
	return out.Next(q.fix, "See full output: "+cmd.String())
}

func tail(s string, n int) []string {
	var lines []string
	for _, l := range strings.Split(s, "\n") {
		if strings.TrimSpace(l) != "" {
			lines = append(lines, strings.TrimRight(l, " \t\r"))
		}
	}
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return lines
}
