// Package git wraps the git CLI for release checks and commands.
//
// All calls go through a runner.Runner so tests can script git's responses.
// Read-only queries retry briefly when another git process holds the index
// lock; mutations (tag, push) run exactly once.
package git

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/relkit/relkit/internal/runner"
)

const queryMaxElapsed = 2 * time.Second

// Repo runs git against one working directory.
type Repo struct {
	runner runner.Runner
	dir    string
	bin    string
	log    *slog.Logger
}

// Option configures a Repo.
type Option func(*Repo)

// WithBinary overrides the git executable (default "git").
func WithBinary(bin string) Option {
	return func(r *Repo) {
		if bin != "" {
			r.bin = bin
		}
	}
}

// WithLogger sets the logger used for retry diagnostics.
func WithLogger(log *slog.Logger) Option {
	return func(r *Repo) {
		r.log = log
	}
}

// New returns a Repo rooted at dir.
func New(r runner.Runner, dir string, opts ...Option) *Repo {
	repo := &Repo{runner: r, dir: dir, bin: "git", log: slog.New(slog.DiscardHandler)}
	for _, opt := range opts {
		opt(repo)
	}
	return repo
}

// Dir returns the working directory git runs in.
func (r *Repo) Dir() string {
	return r.dir
}

// Exec runs git once with args and returns the raw result.
func (r *Repo) Exec(ctx context.Context, args ...string) (runner.Result, error) {
	return r.runner.Run(ctx, runner.Cmd{Args: append([]string{r.bin}, args...), Dir: r.dir})
}

// Query runs a read-only git command, retrying while the index is locked by
// a concurrent git process.
func (r *Repo) Query(ctx context.Context, args ...string) (runner.Result, error) {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 50 * time.Millisecond
	bo.MaxElapsedTime = queryMaxElapsed

	var res runner.Result
	err := backoff.Retry(func() error {
		var err error
		res, err = r.Exec(ctx, args...)
		if err != nil {
			return backoff.Permanent(err)
		}
		if !res.OK() && isLockContention(res.Stderr) {
			r.log.Debug("git index locked, retrying", "args", strings.Join(args, " "))
			return errIndexLocked
		}
		return nil
	}, backoff.WithContext(bo, ctx))
	if errors.Is(err, errIndexLocked) {
		// Out of retries: hand back the failed result like any other exit.
		return res, nil
	}
	return res, err
}

var errIndexLocked = errors.New("git index locked")

func isLockContention(stderr string) bool {
	return strings.Contains(stderr, "index.lock") ||
		(strings.Contains(stderr, "Unable to create") && strings.Contains(stderr, ".lock"))
}

// Dirs returns the repository's git directory and its common directory.
// They differ in a linked worktree, where .git is a file and branches and
// tags live under the common directory.
func (r *Repo) Dirs(ctx context.Context) (gitDir, common string, err error) {
	res, err := r.Query(ctx, "rev-parse", "--git-dir", "--git-common-dir")
	if err != nil {
		return "", "", err
	}
	if !res.OK() {
		return "", "", fmt.Errorf("not a git repository: %s", res.ErrorText())
	}
	lines := res.Lines()
	if len(lines) != 2 {
		return "", "", fmt.Errorf("unexpected rev-parse output %q", res.Stdout)
	}
	return r.abs(lines[0]), r.abs(lines[1]), nil
}

func (r *Repo) abs(p string) string {
	if !filepath.IsAbs(p) {
		p = filepath.Join(r.dir, p)
	}
	return filepath.Clean(p)
}

// Status returns `git status --porcelain` for the directory.
func (r *Repo) Status(ctx context.Context) (runner.Result, error) {
	return r.Query(ctx, "status", "--porcelain")
}

// LastTag returns the most recent tag reachable from HEAD. When match is
// non-empty only tags matching the glob are considered.
func (r *Repo) LastTag(ctx context.Context, match string) (string, bool) {
	args := []string{"describe", "--tags", "--abbrev=0"}
	if match != "" {
		args = append(args, "--match", match)
	}
	res, err := r.Query(ctx, args...)
	if err != nil || !res.OK() {
		return "", false
	}
	tag := strings.TrimSpace(res.Stdout)
	return tag, tag != ""
}

// CommitCount returns the number of commits in since..HEAD, or all commits
// reachable from HEAD when since is empty. Errors count as zero.
func (r *Repo) CommitCount(ctx context.Context, since string) int {
	rev := "HEAD"
	if since != "" {
		rev = since + "..HEAD"
	}
	res, err := r.Query(ctx, "rev-list", "--count", rev)
	if err != nil || !res.OK() {
		return 0
	}
	n, err := strconv.Atoi(strings.TrimSpace(res.Stdout))
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// LogOptions selects commits for Log.
type LogOptions struct {
	Since    string // tag or ref; empty means from HEAD
	Limit    int    // 0 means unlimited
	NoMerges bool
}

// Log returns one-line commit summaries, newest first.
func (r *Repo) Log(ctx context.Context, opts LogOptions) []string {
	args := []string{"log", "--oneline"}
	if opts.Since != "" {
		args = append(args, opts.Since+"..HEAD")
	}
	if opts.NoMerges {
		args = append(args, "--no-merges")
	}
	if opts.Limit > 0 {
		args = append(args, "-n", strconv.Itoa(opts.Limit))
	}
	res, err := r.Query(ctx, args...)
	if err != nil || !res.OK() {
		return nil
	}
	return res.Lines()
}

// HasRemote reports whether any remote is configured.
func (r *Repo) HasRemote(ctx context.Context) bool {
	res, err := r.Query(ctx, "remote", "-v")
	return err == nil && res.OK() && len(res.Lines()) > 0
}

// Upstream returns the upstream branch of HEAD, if tracking is set up.
func (r *Repo) Upstream(ctx context.Context) (string, bool) {
	res, err := r.Query(ctx, "rev-parse", "--abbrev-ref", "--symbolic-full-name", "@{u}")
	if err != nil || !res.OK() {
		return "", false
	}
	up := strings.TrimSpace(res.Stdout)
	return up, up != ""
}

// Unpushed returns commits on HEAD that are not on the upstream branch.
func (r *Repo) Unpushed(ctx context.Context) []string {
	res, err := r.Query(ctx, "cherry", "-v", "@{u}")
	if err != nil || !res.OK() {
		return nil
	}
	return res.Lines()
}

// TagExists reports whether a tag with exactly this name exists locally.
func (r *Repo) TagExists(ctx context.Context, name string) bool {
	res, err := r.Query(ctx, "tag", "-l", name)
	if err != nil || !res.OK() {
		return false
	}
	for _, line := range res.Lines() {
		if strings.TrimSpace(line) == name {
			return true
		}
	}
	return false
}

// CreateTag creates an annotated tag at HEAD.
func (r *Repo) CreateTag(ctx context.Context, name, message string) (runner.Result, error) {
	return r.Exec(ctx, "tag", "-a", name, "-m", message)
}

// PushTag pushes a single tag to remote.
func (r *Repo) PushTag(ctx context.Context, remote, name string) (runner.Result, error) {
	return r.Exec(ctx, "push", remote, name)
}
