// Package check holds the release preconditions. A Check inspects the
// project, repository and tool output and reports an *output.Output; it
// never writes files and never returns an error for an expected failure.
package check

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/relkit/relkit/internal/config"
	"github.com/relkit/relkit/internal/output"
	"github.com/relkit/relkit/internal/project"
	"github.com/relkit/relkit/internal/runner"
	"github.com/relkit/relkit/internal/telemetry"
	"github.com/relkit/relkit/internal/token"
)

// Override scopes a check failure can be acknowledged with.
var (
	ForceEmptyChangelog = token.Scope{Action: "force_empty_changelog", TTL: 5 * time.Minute}
	AckMajorBump        = token.Scope{Action: "ack_major_bump", TTL: 5 * time.Minute}
)

// BypassKey is the Output.Data key naming the channel key of a token the
// check already minted.
const BypassKey = "bypass"

// Params are the optional inputs a check family understands.
type Params struct {
	// BumpType is the requested bump, for major-bump.
	BumpType project.BumpType
	// Version replaces the project version for version-entry,
	// dist-version-match and version-tagged.
	Version string
}

// Env is everything a check may consult.
type Env struct {
	Project *project.Context
	Runner  runner.Runner
	Config  *config.Config
	Tokens  *token.Service
	Channel token.Channel
	Log     *slog.Logger
	// Command is the relkit invocation to suggest when offering a token,
	// e.g. "bump minor".
	Command string

	mu       sync.Mutex
	accepted []string
}

func (e *Env) logger() *slog.Logger {
	if e.Log == nil {
		return slog.New(slog.DiscardHandler)
	}
	return e.Log
}

// Logger returns the environment's logger, never nil.
func (e *Env) Logger() *slog.Logger {
	return e.logger()
}

func (e *Env) version(p Params) string {
	if p.Version != "" {
		return p.Version
	}
	return e.Project.Version
}

func (e *Env) changelogPath() string {
	if e.Config != nil {
		return e.Config.ChangelogPath()
	}
	return filepath.Join(e.Project.RepoRoot, "CHANGELOG.md")
}

// ChangelogName is the changelog path relative to the repository root, for
// messages.
func (e *Env) ChangelogName() string {
	if rel, err := filepath.Rel(e.Project.RepoRoot, e.changelogPath()); err == nil && !strings.HasPrefix(rel, "..") {
		return rel
	}
	return e.changelogPath()
}

// ChangelogPath is the absolute changelog location.
func (e *Env) ChangelogPath() string {
	return e.changelogPath()
}

// DistDir is the absolute build output directory.
func (e *Env) DistDir() string {
	if e.Config != nil {
		return e.Config.DistDir()
	}
	return filepath.Join(e.Project.RepoRoot, "dist")
}

// Presented reports whether a valid token for sc was supplied. Accepted
// tokens are carried into the rerun line of any later Offer.
func (e *Env) Presented(sc token.Scope) bool {
	if e.Tokens == nil {
		return false
	}
	if !e.Tokens.Presented(e.Project.Name, sc, e.Channel) {
		return false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	key := sc.Key()
	for _, k := range e.accepted {
		if k == key {
			return true
		}
	}
	e.accepted = append(e.accepted, key)
	return true
}

// rerunPrefix renders the KEY=value pairs already accepted this run, less
// the key being offered.
func (e *Env) rerunPrefix(offered string) string {
	e.mu.Lock()
	defer e.mu.Unlock()
	var b strings.Builder
	for _, k := range e.accepted {
		if k == offered {
			continue
		}
		v, ok := e.Channel.Lookup(k)
		if !ok {
			continue
		}
		fmt.Fprintf(&b, "%s=%s ", k, v)
	}
	return b.String()
}

// Invocation renders the command line a caller reruns with a token.
func (e *Env) Invocation() string {
	if e.Command == "" {
		return "relkit"
	}
	return "relkit " + e.Command
}

// Offer mints a token for sc and appends it to out with instructions for
// presenting it back. It is a no-op when out already carries a token.
func (e *Env) Offer(ctx context.Context, out *output.Output, sc token.Scope, reason string) *output.Output {
	if out.Get(BypassKey) != nil {
		return out
	}
	if e.Tokens == nil {
		return out
	}
	tok, err := e.Tokens.Mint(e.Project.Name, sc)
	if err != nil {
		e.logger().Warn("token mint failed", "action", sc.Action, "err", err)
		return out.Text("Could not mint a %s token: %v", sc.Key(), err)
	}
	telemetry.TokenMinted(ctx, sc.Action)
	e.logger().Debug("token minted", "action", sc.Action, "ttl", sc.TTL)

	key := sc.Key()
	if reason != "" {
		out.Spacer().Text("%s", reason)
	}
	out.Token(key, tok, int(sc.TTL/time.Second)).
		Text("Token expires in %s", sc.Minutes()).
		Next(fmt.Sprintf("%s%s=%s %s", e.rerunPrefix(key), key, tok, e.Invocation()))
	return out.With(BypassKey, key)
}

// Func evaluates one precondition.
type Func func(ctx context.Context, env *Env, p Params) *output.Output

// Check is a named precondition. Override, when set, is the acknowledgment
// that lets an active-decision guard proceed past this check's failure.
type Check struct {
	Name     string
	Run      Func
	Override *token.Scope
}

// Evaluate runs the check with tracing and logging. A nil result from Run
// is reported as a failure.
func (c Check) Evaluate(ctx context.Context, env *Env, p Params) *output.Output {
	ctx, done := telemetry.CheckRun(ctx, c.Name)
	out := c.Run(ctx, env, p)
	if out == nil {
		out = output.Fail("Check %s produced no result", c.Name)
	}
	done(out.Success)
	env.logger().Debug("check finished", "check", c.Name, "success", out.Success, "message", out.Message)
	return out
}

// WithOverride returns a copy of c that sc can acknowledge.
func (c Check) WithOverride(sc token.Scope) Check {
	c.Override = &sc
	return c
}

// Library lists every check by name, in display order.
func Library() []Check {
	return []Check{
		GitClean,
		ChangelogExists,
		UnreleasedContent,
		CommitsDocumented,
		VersionEntry,
		DistExists,
		DistHasFiles,
		DistVersionMatch,
		DistClean,
		MajorBump,
		VersionTagged,
		Format,
		Lint,
		Types,
	}
}

// Lookup finds a library check by name.
func Lookup(name string) (Check, bool) {
	for _, c := range Library() {
		if c.Name == name {
			return c, true
		}
	}
	return Check{}, false
}

// Names returns the library's check names.
func Names() []string {
	lib := Library()
	names := make([]string, len(lib))
	for i, c := range lib {
		names[i] = c.Name
	}
	return names
}
