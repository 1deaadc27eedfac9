// Package guard wraps command functions with release preconditions and
// consent gates. A guard runs before the command body and either lets the
// call through or returns an Output explaining what must happen first,
// including the token to present when consent is what's missing.
//
// Guards compose with Chain; the first guard given is the outermost.
package guard

import (
	"context"
	"time"

	"github.com/relkit/relkit/internal/check"
	"github.com/relkit/relkit/internal/output"
	"github.com/relkit/relkit/internal/telemetry"
	"github.com/relkit/relkit/internal/token"
)

// Invocation is one command call as seen by guards and the body.
type Invocation struct {
	Env    *check.Env
	Params check.Params
	// Results holds the outputs of checks a guard already evaluated, by
	// check name, so the body need not run them again.
	Results map[string]*output.Output
}

// NewInvocation returns an Invocation with an empty result set.
func NewInvocation(env *check.Env, p check.Params) *Invocation {
	return &Invocation{Env: env, Params: p, Results: make(map[string]*output.Output)}
}

// Result returns a check output recorded by a guard.
func (inv *Invocation) Result(name string) (*output.Output, bool) {
	out, ok := inv.Results[name]
	return out, ok
}

func (inv *Invocation) record(name string, out *output.Output) {
	if inv.Results == nil {
		inv.Results = make(map[string]*output.Output)
	}
	inv.Results[name] = out
}

// CommandFunc is a command body.
type CommandFunc func(ctx context.Context, inv *Invocation) *output.Output

// Guard decorates a CommandFunc.
type Guard func(next CommandFunc) CommandFunc

// Chain wraps fn in guards. guards[0] runs first.
func Chain(fn CommandFunc, guards ...Guard) CommandFunc {
	for i := len(guards) - 1; i >= 0; i-- {
		fn = guards[i](fn)
	}
	return fn
}

func blocked(ctx context.Context, inv *Invocation, guard, action string, out *output.Output) *output.Output {
	telemetry.GuardBlocked(ctx, guard, action)
	inv.Env.Logger().Info("guard blocked command",
		"guard", guard,
		"action", action,
		"command", inv.Env.Command,
		"reason", out.Message,
	)
	return out.With("guard", guard)
}

// RequiresCleanGit blocks unless the working tree is clean. There is no
// override.
func RequiresCleanGit() Guard {
	return func(next CommandFunc) CommandFunc {
		return func(ctx context.Context, inv *Invocation) *output.Output {
			ctx, span := telemetry.StartSpan(ctx, "guard.requires_clean_git")
			defer span.End()

			out := check.GitClean.Evaluate(ctx, inv.Env, inv.Params)
			inv.record(check.GitClean.Name, out)
			if !out.Success {
				return blocked(ctx, inv, "requires_clean_git", "clean_git", out)
			}
			return next(ctx, inv)
		}
	}
}

// RequiresConfirmation blocks until a CONFIRM_<ACTION> token is presented.
// Without one it mints a token valid for ttl and returns instructions. With
// skipPrivate, private packages proceed without confirmation.
func RequiresConfirmation(action string, ttl time.Duration, skipPrivate bool) Guard {
	sc := token.Confirm(action, ttl)
	return func(next CommandFunc) CommandFunc {
		return func(ctx context.Context, inv *Invocation) *output.Output {
			ctx, span := telemetry.StartSpan(ctx, "guard.requires_confirmation")
			defer span.End()

			env := inv.Env
			if skipPrivate && !env.Project.IsPublic() {
				env.Logger().Debug("confirmation skipped for private package", "action", action)
				return next(ctx, inv)
			}
			if env.Presented(sc) {
				env.Logger().Debug("confirmation accepted", "action", action, "key", sc.Key())
				return next(ctx, inv)
			}

			out := output.Fail("Confirmation required to %s %s %s", action, env.Project.Name, env.Project.Version).
				Text("This action cannot be undone").
				Text("Rerun with the token below to confirm")
			env.Offer(ctx, out, sc, "")
			return blocked(ctx, inv, "requires_confirmation", action, out)
		}
	}
}

// RequiresActiveDecision runs checks in order and blocks at the first
// failure unless that check's override token is presented. A blocking
// check with an override gets a freshly minted token in its Output.
func RequiresActiveDecision(action string, checks ...check.Check) Guard {
	return func(next CommandFunc) CommandFunc {
		return func(ctx context.Context, inv *Invocation) *output.Output {
			ctx, span := telemetry.StartSpan(ctx, "guard.requires_active_decision")
			defer span.End()

			env := inv.Env
			for _, c := range checks {
				out := c.Evaluate(ctx, env, inv.Params)
				inv.record(c.Name, out)
				if out.Success {
					continue
				}
				if c.Override != nil && env.Presented(*c.Override) {
					env.Logger().Info("check failure acknowledged",
						"action", action,
						"check", c.Name,
						"key", c.Override.Key(),
					)
					continue
				}
				if c.Override != nil {
					env.Offer(ctx, out, *c.Override, "To proceed anyway, acknowledge with:")
				}
				return blocked(ctx, inv, "requires_active_decision", action, out.With("check", c.Name))
			}
			return next(ctx, inv)
		}
	}
}

// RequiresReview blocks until a REVIEW_<TOPIC> token is presented. The
// block lists the suggested commands to run before retrying.
func RequiresReview(topic string, suggested []string, ttl time.Duration) Guard {
	sc := token.Review(topic, ttl)
	return func(next CommandFunc) CommandFunc {
		return func(ctx context.Context, inv *Invocation) *output.Output {
			ctx, span := telemetry.StartSpan(ctx, "guard.requires_review")
			defer span.End()

			env := inv.Env
			if env.Presented(sc) {
				env.Logger().Debug("review acknowledged", "topic", topic)
				return next(ctx, inv)
			}

			out := output.Fail("Review %s before continuing", topic)
			if len(suggested) > 0 {
				out.Text("Run and read:").Lines("  ", suggested)
				out.Next(suggested...)
			}
			env.Offer(ctx, out, sc, "When you have reviewed, rerun with:")
			return blocked(ctx, inv, "requires_review", topic, out)
		}
	}
}
