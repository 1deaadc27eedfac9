// Package token mints and verifies short-lived action tokens.
//
// A token proves that a human explicitly acknowledged one action for one
// subject (usually the project name). Tokens are HS256-signed JWTs carrying
// the subject, the action and an expiry. Nothing is stored: verification
// recomputes the signature with the local secret, so any process holding the
// same secret can verify a token minted by another.
package token

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
)

const issuer = "relkit"

// ErrEmptySecret is returned by NewService when no signing key is supplied.
var ErrEmptySecret = errors.New("token: signing secret must not be empty")

// Claims is the payload of an action token.
type Claims struct {
	Action string `json:"act"`
	jwt.RegisteredClaims
}

// Service generates and verifies action tokens.
type Service struct {
	secret []byte
	now    func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithClock replaces the wall clock. Tests use it to mint deterministic tokens
// and to move past expiry without sleeping.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// NewService returns a Service signing with secret.
func NewService(secret []byte, opts ...Option) (*Service, error) {
	if len(secret) == 0 {
		return nil, ErrEmptySecret
	}
	s := &Service{
		secret: append([]byte(nil), secret...),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Generate mints a token bound to subject and action that expires ttl from now.
func (s *Service) Generate(subject, action string, ttl time.Duration) (string, error) {
	if subject == "" || action == "" {
		return "", fmt.Errorf("token: subject and action are required")
	}
	if ttl <= 0 {
		return "", fmt.Errorf("token: ttl must be positive, got %s", ttl)
	}
	now := s.now()
	claims := Claims{
		Action: action,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiry(now, ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("token: sign: %w", err)
	}
	return signed, nil
}

// expiry rounds now+ttl up to the whole second the exp claim can hold, so a
// token is never rejected before its full ttl has passed.
func expiry(now time.Time, ttl time.Duration) time.Time {
	exp := now.Add(ttl)
	if whole := exp.Truncate(time.Second); whole.Before(exp) {
		return whole.Add(time.Second)
	}
	return exp
}

// Verify reports whether tok was minted for exactly (subject, action) and has
// not yet expired. Any malformed, forged, mismatched or expired token yields
// false.
func (s *Service) Verify(subject, action, tok string) bool {
	if subject == "" || action == "" || tok == "" {
		return false
	}
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(tok, claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
		jwt.WithExpirationRequired(),
		jwt.WithIssuer(issuer),
		jwt.WithSubject(subject),
	)
	if err != nil || !parsed.Valid {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(claims.Action), []byte(action)) == 1
}
