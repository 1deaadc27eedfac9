package release

import (
	"context"
	"os"

	"github.com/relkit/relkit/internal/check"
	"github.com/relkit/relkit/internal/guard"
	"github.com/relkit/relkit/internal/output"
	"github.com/relkit/relkit/internal/runner"
)

// Build runs uv build into the dist directory.
func Build() Command {
	return Command{Name: "build", NeedsVersion: true, Run: build}
}

func build(ctx context.Context, inv *guard.Invocation) *output.Output {
	env := inv.Env
	proj := env.Project
	dist := env.DistDir()
	if err := os.MkdirAll(dist, 0o750); err != nil {
		return output.Fail("Cannot create %s", dist).Text("%v", err)
	}

	args := []string{uvBinary(env), "build", "--out-dir", dist}
	if proj.Package != "" {
		args = append(args, "--package", proj.Package)
	}
	res, err := env.Runner.Run(ctx, runner.Cmd{Args: args, Dir: proj.RepoRoot})
	if err != nil {
		return toolFailure("Build failed", res, err, "Install uv or set tools.uv in .relkit.yaml")
	}
	if !res.OK() {
		env.Logger().Warn("build failed", "package", proj.Name, "exit", res.ExitCode)
		return toolFailure("Build failed", res, nil, "Check pyproject.toml for errors")
	}

	arts, err := check.Artifacts(dist, proj.Package)
	if err != nil {
		return output.Fail("Build finished but %s is unreadable", dist).Text("%v", err)
	}
	wheel, sdist := newest(arts, proj.Version)

	out := output.OK("Built %s %s", proj.Name, proj.Version)
	if wheel != nil {
		out.Text("Wheel: %s", wheel.Name).With("wheel", wheel.Path)
	}
	if sdist != nil {
		out.Text("Source: %s", sdist.Name).With("sdist", sdist.Path)
	}
	return out.With("dist_dir", dist).Next("Publish with: relkit publish")
}

// newest picks the wheel and sdist for version, falling back to the last
// of each kind when no file carries it.
func newest(arts []check.Artifact, version string) (wheel, sdist *check.Artifact) {
	for i := range arts {
		a := &arts[i]
		if a.Wheel {
			if wheel == nil || wheel.Version != version {
				wheel = a
			}
		} else if sdist == nil || sdist.Version != version {
			sdist = a
		}
	}
	return wheel, sdist
}
