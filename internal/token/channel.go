package token

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// Channel is the out-of-band input a caller uses to present tokens back,
// conventionally environment variables such as CONFIRM_PUBLISH.
type Channel interface {
	Lookup(key string) (string, bool)
}

// EnvChannel reads tokens from the process environment.
type EnvChannel struct{}

// Lookup implements Channel.
func (EnvChannel) Lookup(key string) (string, bool) {
	v, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(v) == "" {
		return "", false
	}
	return strings.TrimSpace(v), true
}

// MapChannel serves tokens from a fixed map.
type MapChannel map[string]string

// Lookup implements Channel.
func (m MapChannel) Lookup(key string) (string, bool) {
	v, ok := m[key]
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

// Scope names one kind of acknowledgment: the token action and how long a
// minted token stays valid.
type Scope struct {
	Action string
	TTL    time.Duration
}

// Confirm returns the scope for confirming an irreversible action.
func Confirm(action string, ttl time.Duration) Scope {
	return Scope{Action: "confirm_" + action, TTL: ttl}
}

// Review returns the scope for acknowledging a review of topic.
func Review(topic string, ttl time.Duration) Scope {
	return Scope{Action: "review_" + topic, TTL: ttl}
}

// Key is the channel key a caller sets to present a token for this scope,
// e.g. "confirm_publish" -> "CONFIRM_PUBLISH".
func (sc Scope) Key() string {
	var b strings.Builder
	for _, r := range sc.Action {
		switch {
		case r >= 'a' && r <= 'z':
			b.WriteRune(r - 'a' + 'A')
		case r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}

// Minutes renders the TTL for humans ("5 minutes").
func (sc Scope) Minutes() string {
	m := int(sc.TTL.Round(time.Minute) / time.Minute)
	if m <= 1 {
		return "1 minute"
	}
	return fmt.Sprintf("%d minutes", m)
}

// Presented looks up the token for scope in ch and verifies it for subject.
func (s *Service) Presented(subject string, sc Scope, ch Channel) bool {
	if ch == nil {
		return false
	}
	tok, ok := ch.Lookup(sc.Key())
	if !ok {
		return false
	}
	return s.Verify(subject, sc.Action, tok)
}

// Mint generates a token for scope.
func (s *Service) Mint(subject string, sc Scope) (string, error) {
	return s.Generate(subject, sc.Action, sc.TTL)
}
