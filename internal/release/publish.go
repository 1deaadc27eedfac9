package release

import (
	"context"
	"os"
	"strings"
	"time"

	"github.com/relkit/relkit/internal/check"
	"github.com/relkit/relkit/internal/guard"
	"github.com/relkit/relkit/internal/output"
	"github.com/relkit/relkit/internal/runner"
	"github.com/relkit/relkit/internal/workflow"
)

const (
	publishTTL = 5 * time.Minute
	// uvTokenEnv is where uv publish reads the registry token.
	uvTokenEnv = "UV_PUBLISH_TOKEN"
)

// Publish uploads the built artifacts of the current version. Private
// packages skip the confirmation step.
func Publish() Command {
	return Command{
		Name:         "publish",
		NeedsVersion: true,
		Guards: func(context.Context, *check.Env) []guard.Guard {
			return []guard.Guard{guard.RequiresConfirmation("publish", publishTTL, true)}
		},
		Run: publish,
	}
}

// PublishWorkflow gates an upload: the version must be tagged and dist must
// hold only this version's files.
func PublishWorkflow() *workflow.Workflow {
	return workflow.New("publish").
		Check(check.VersionTagged).
		Parallel(check.DistVersionMatch, check.DistClean)
}

func publish(ctx context.Context, inv *guard.Invocation) *output.Output {
	env := inv.Env
	proj := env.Project

	if pre := PublishWorkflow().Run(ctx, env, inv.Params); !pre.Success {
		return pre
	}

	arts, err := check.Artifacts(env.DistDir(), proj.Package)
	if err != nil {
		return output.Fail("Cannot read %s", env.DistDir()).Text("%v", err).Next("Run: relkit build")
	}
	files := make([]string, len(arts))
	names := make([]string, len(arts))
	for i, a := range arts {
		files[i] = a.Path
		names[i] = a.Name
	}

	token, fail := registryToken(ctx, env)
	if fail != nil {
		return fail
	}

	cmd := runner.Cmd{
		Args: append([]string{uvBinary(env), "publish"}, files...),
		Dir:  proj.RepoRoot,
		Env:  map[string]string{uvTokenEnv: token},
	}
	res, err := env.Runner.Run(ctx, cmd)
	if err != nil {
		return toolFailure("Failed to publish", res, err, "Install uv or set tools.uv in .relkit.yaml")
	}
	if !res.OK() {
		msg := res.ErrorText()
		if msg == "" {
			msg = "Unknown error"
		}
		env.Logger().Warn("publish failed", "package", proj.Name, "version", proj.Version, "exit", res.ExitCode)
		if strings.Contains(strings.ToLower(msg), "already exists") {
			return output.Fail("Version %s already exists on PyPI", proj.Version).
				Text("%s", msg).
				Next(
					"Bump version: relkit bump <major|minor|patch>",
					"Then rebuild: relkit build",
				)
		}
		return output.Fail("Failed to publish").
			Text("%s", msg).
			Next(
				"Check PyPI token is valid",
				"Ensure you have upload permissions",
			)
	}

	env.Logger().Info("published", "package", proj.Name, "version", proj.Version, "files", len(names))
	out := output.OK("Published %s %s to PyPI", proj.Name, proj.Version).Lines("Published: ", names)
	return out.
		With("version", proj.Version).
		With("files", names).
		With("public", proj.IsPublic())
}

// registryToken finds the upload credential: the output of
// publish.token_command first, then the publish.token_env variable.
func registryToken(ctx context.Context, env *check.Env) (string, *output.Output) {
	argv := []string{"pass", "pypi/uv-publish"}
	envName := uvTokenEnv
	if env.Config != nil {
		argv = env.Config.GetStringSlice("publish.token_command")
		envName = env.Config.GetString("publish.token_env")
	}

	if len(argv) > 0 {
		res, err := env.Runner.Run(ctx, runner.Cmd{Args: argv, Dir: env.Project.RepoRoot})
		switch {
		case err != nil:
			env.Logger().Debug("token command unavailable", "cmd", argv[0], "err", err)
		case !res.OK():
			env.Logger().Debug("token command failed", "cmd", argv[0], "exit", res.ExitCode)
		default:
			if tok := strings.TrimSpace(res.Stdout); tok != "" {
				return tok, nil
			}
		}
	}
	if envName != "" {
		if tok := strings.TrimSpace(os.Getenv(envName)); tok != "" {
			return tok, nil
		}
	}

	out := output.Fail("No PyPI token found")
	if len(argv) > 0 {
		out.Text("Checked: %s", strings.Join(argv, " "))
	}
	if envName != "" {
		out.Text("Checked: %s environment variable", envName)
	}
	var steps []string
	if len(argv) == 2 && argv[0] == "pass" {
		steps = append(steps, "Set token in pass: pass insert "+argv[1])
	}
	if envName != "" {
		steps = append(steps, "Or set: "+envName+"=<token>")
	}
	steps = append(steps, "Or configure publish.token_command in .relkit.yaml")
	return "", out.Next(steps...)
}

func uvBinary(env *check.Env) string {
	if env.Config != nil {
		if bin := env.Config.UVBinary(); bin != "" {
			return bin
		}
	}
	return "uv"
}
