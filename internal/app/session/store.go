/*
Package session implements the secret registry used to reclaim a logical identity across reconnects.

A secret is an opaque bearer token bound to one user ID. Secrets idle for longer
than the store's TTL stop resolving and are purged by Expire. The store is not
safe for concurrent use; the relay hub is its only owner.
*/
package session

import (
	"errors"
	"fmt"
	"time"

	"presence/internal/pkg/randx"
)

// maxGenerateAttempts bounds retries when a generated token collides with a live one.
const maxGenerateAttempts = 16

// ErrTokenSpaceExhausted is returned when no unused token could be generated.
var ErrTokenSpaceExhausted = errors.New("session: could not generate an unused secret")

// Secret binds a token to a user ID.
type Secret struct {
	Token      string
	UserID     string
	LastUsedAt time.Time
}

// Store is the secret registry with a forward (token) and reverse (user) index.
type Store struct {
	ttl      time.Duration
	byToken  map[string]*Secret
	byUser   map[string]string
	now      func() time.Time
	generate func() (string, error)
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithGenerator overrides the token generator.
func WithGenerator(gen func() (string, error)) Option {
	return func(s *Store) { s.generate = gen }
}

// NewStore creates a Store whose secrets expire after ttl of inactivity.
func NewStore(ttl time.Duration, opts ...Option) *Store {
	s := &Store{
		ttl:      ttl,
		byToken:  make(map[string]*Secret),
		byUser:   make(map[string]string),
		now:      time.Now,
		generate: randx.Secret,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Resolve returns the user bound to token and refreshes its last-use time.
// Unknown tokens, and tokens already past their TTL, do not resolve; the
// latter are removed immediately.
func (s *Store) Resolve(token string) (string, bool) {
	if !randx.IsValidSecret(token) {
		return "", false
	}

	sec, ok := s.byToken[token]
	if !ok {
		return "", false
	}

	now := s.now()
	if s.expired(sec, now) {
		s.remove(sec)
		return "", false
	}

	sec.LastUsedAt = now
	return sec.UserID, true
}

// Issue mints a new token for userID, replacing any token the user already held.
func (s *Store) Issue(userID string) (string, error) {
	token, err := s.unusedToken()
	if err != nil {
		return "", err
	}

	if old, ok := s.byUser[userID]; ok {
		delete(s.byToken, old)
	}

	s.byToken[token] = &Secret{Token: token, UserID: userID, LastUsedAt: s.now()}
	s.byUser[userID] = token
	return token, nil
}

// Touch refreshes the last-use time of the secret held by userID.
// It reports whether the user holds a secret.
func (s *Store) Touch(userID string) bool {
	token, ok := s.byUser[userID]
	if !ok {
		return false
	}
	s.byToken[token].LastUsedAt = s.now()
	return true
}

// tokenFor returns the secret currently held by userID.
func (s *Store) tokenFor(userID string) (string, bool) {
	token, ok := s.byUser[userID]
	return token, ok
}

// lookup returns a copy of the secret for token without refreshing it.
func (s *Store) lookup(token string) (Secret, bool) {
	sec, ok := s.byToken[token]
	if !ok {
		return Secret{}, false
	}
	return *sec, true
}

// Expire removes every secret idle for longer than the TTL as of now and
// returns the user IDs whose secrets were removed.
func (s *Store) Expire(now time.Time) []string {
	var removed []string
	for _, sec := range s.byToken {
		if s.expired(sec, now) {
			removed = append(removed, sec.UserID)
			s.remove(sec)
		}
	}
	return removed
}

// Len returns the number of live secrets.
func (s *Store) Len() int {
	return len(s.byToken)
}

func (s *Store) expired(sec *Secret, now time.Time) bool {
	return now.Sub(sec.LastUsedAt) > s.ttl
}

func (s *Store) remove(sec *Secret) {
	delete(s.byToken, sec.Token)
	if s.byUser[sec.UserID] == sec.Token {
		delete(s.byUser, sec.UserID)
	}
}

func (s *Store) unusedToken() (string, error) {
	for range maxGenerateAttempts {
		token, err := s.generate()
		if err != nil {
			return "", fmt.Errorf("generate secret: %w", err)
		}
		if _, taken := s.byToken[token]; !taken {
			return token, nil
		}
	}
	return "", ErrTokenSpaceExhausted
}
