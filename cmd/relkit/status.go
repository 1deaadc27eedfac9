package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/relkit/relkit/internal/check"
	"github.com/relkit/relkit/internal/debug"
	"github.com/relkit/relkit/internal/project"
	"github.com/relkit/relkit/internal/release"
	"github.com/relkit/relkit/internal/ui"
)

const watchDebounce = 500 * time.Millisecond

var statusCmd = &cobra.Command{
	Use:     "status",
	GroupID: "inspect",
	Short:   "Show release readiness",
	Args:    cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		watch, _ := cmd.Flags().GetBool("watch")
		if !watch {
			runCommand(release.Status())
			return
		}
		if err := watchStatus(getRootContext(), mustEnv()); err != nil {
			FatalError("%v", err)
		}
	},
}

// watchPaths are the directories whose changes can alter readiness. The
// git directory itself is left out: git status rewrites the index, which
// would retrigger the refresh. Branch and tag refs are read from the common
// git directory so a linked worktree sees them too. Missing paths are skipped.
func watchPaths(ctx context.Context, env *check.Env) []string {
	root := env.Project.RepoRoot
	common := filepath.Join(root, ".git")
	if gitDir, dir, err := env.Project.Git().Dirs(ctx); err == nil {
		common = dir
		if gitDir != dir {
			env.Logger().Debug("watching linked worktree", "git_dir", gitDir, "common_dir", dir)
		}
	} else {
		env.Logger().Debug("git dirs unavailable, assuming .git", "err", err)
	}
	candidates := []string{
		root,
		env.Project.Root,
		filepath.Dir(env.ChangelogPath()),
		filepath.Join(common, "refs", "heads"),
		filepath.Join(common, "refs", "tags"),
	}
	seen := make(map[string]bool)
	var paths []string
	for _, p := range candidates {
		if seen[p] {
			continue
		}
		seen[p] = true
		if _, err := os.Stat(p); err == nil {
			paths = append(paths, p)
		}
	}
	return paths
}

// relevant reports whether an event under root should trigger a refresh.
// Lock files churn on every git or uv run, and dot-directories such as
// .venv or .ruff_cache hold tool state, so both are ignored. Refs under a
// .git directory still count.
func relevant(root string, event fsnotify.Event) bool {
	if filepath.Ext(event.Name) == ".lock" {
		return false
	}
	if rel, err := filepath.Rel(root, event.Name); err == nil && !strings.HasPrefix(rel, "..") {
		parts := strings.Split(filepath.ToSlash(rel), "/")
		for i, part := range parts {
			if !strings.HasPrefix(part, ".") || part == "." {
				continue
			}
			if part == ".git" && i+1 < len(parts) && parts[i+1] == "refs" {
				break
			}
			if i < len(parts)-1 || isDir(event.Name) {
				return false
			}
		}
	}
	return event.Has(fsnotify.Write) || event.Has(fsnotify.Create) ||
		event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename)
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// watchStatus redraws the status report whenever the project changes,
// until ctx is cancelled.
func watchStatus(ctx context.Context, env *check.Env) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }() // Best effort cleanup

	for _, p := range watchPaths(ctx, env) {
		if err := watcher.Add(p); err != nil {
			WarnError("cannot watch %s: %v", p, err)
		}
	}

	refresh := make(chan struct{}, 1)
	draw := func() {
		// Reload so a manifest edit (e.g. a bump) is reflected.
		if fresh, err := reloadProject(env); err == nil {
			env.Project = fresh
		} else {
			WarnError("%v", err)
		}
		out := release.Status().Execute(ctx, env)
		if ui.IsTerminal() {
			fmt.Print("\033[H\033[2J")
		}
		if err := writeOutput(os.Stdout, out, jsonOutput); err != nil {
			WarnError("writing output: %v", err)
		}
		_ = debug.PrintlnNormal(os.Stderr, "\n"+ui.RenderSeparator(min(ui.Width(60), 60)))
		_ = debug.PrintlnNormal(os.Stderr, ui.Info("Watching for changes... (Press Ctrl+C to exit)"))
	}
	draw()

	var debounceTimer *time.Timer
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !relevant(env.Project.RepoRoot, event) {
				continue
			}
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.AfterFunc(watchDebounce, func() {
				select {
				case refresh <- struct{}{}:
				default:
				}
			})
		case <-refresh:
			draw()
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			WarnError("watcher error: %v", err)
		}
	}
}

func reloadProject(env *check.Env) (*project.Context, error) {
	return loadProject(env.Project.RepoRoot, env.Project.Package, env.Runner, env.Config, env.Logger())
}

func init() {
	statusCmd.Flags().BoolP("watch", "w", false, "Redraw whenever the project changes")
	rootCmd.AddCommand(statusCmd)
}
