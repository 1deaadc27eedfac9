package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/relkit/relkit/internal/check"
	"github.com/relkit/relkit/internal/config"
	"github.com/relkit/relkit/internal/debug"
	"github.com/relkit/relkit/internal/git"
	"github.com/relkit/relkit/internal/project"
	"github.com/relkit/relkit/internal/release"
	"github.com/relkit/relkit/internal/runner"
	"github.com/relkit/relkit/internal/token"
)

// loadEnv builds the check environment for the project containing dir,
// narrowed to pkg when set.
func loadEnv(dir, pkg string) (*check.Env, error) {
	root, err := project.FindRoot(dir)
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(root)
	if err != nil {
		return nil, err
	}

	log := debug.Logger()
	r := runner.Exec{Log: log}
	proj, err := loadProject(root, pkg, r, cfg, log)
	if err != nil {
		return nil, err
	}

	secret, err := cfg.TokenSecret()
	if err != nil {
		return nil, fmt.Errorf("token secret: %w", err)
	}
	tokens, err := token.NewService(secret)
	if err != nil {
		return nil, err
	}

	return &check.Env{
		Project: proj,
		Runner:  r,
		Config:  cfg,
		Tokens:  tokens,
		Channel: token.EnvChannel{},
		Log:     log.With("project", proj.Name, "invocation", proj.ID),
	}, nil
}

// loadProject reads the manifest in root and selects pkg.
func loadProject(root, pkg string, r runner.Runner, cfg *config.Config, log *slog.Logger) (*project.Context, error) {
	proj, err := project.Load(root, r, git.WithBinary(cfg.GitBinary()), git.WithLogger(log))
	if err != nil {
		return nil, err
	}
	return proj.Select(pkg)
}

// mustEnv loads the environment for the working directory or exits.
func mustEnv() *check.Env {
	cwd, err := os.Getwd()
	if err != nil {
		FatalError("%v", err)
	}
	env, err := loadEnv(cwd, packageName)
	switch {
	case errors.Is(err, project.ErrNoManifest):
		FatalErrorWithHint(err.Error(), "Run relkit from inside a uv project")
	case errors.Is(err, project.ErrInvalidVersion):
		FatalErrorWithHint(err.Error(), "Set [project] version to MAJOR.MINOR.PATCH in pyproject.toml")
	case err != nil:
		FatalError("%v", err)
	}
	return env
}

// runCommand executes c against the working directory's project and prints
// the result.
func runCommand(c release.Command) {
	emit(c.Execute(getRootContext(), mustEnv()))
}
