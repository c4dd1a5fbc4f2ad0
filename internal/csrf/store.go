// Package csrf holds single-use CSRF tokens in process memory, keyed by an
// opaque session id. Tokens expire after a TTL and are consumed on first
// successful validation. Single-process only: a second API instance would
// need a shared store.
package csrf

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"sync"
	"time"
)

type entry struct {
	token     string
	expiresAt time.Time
}

type Store struct {
	mu      sync.Mutex
	tokens  map[string]entry
	ttl     time.Duration
	nowFunc func() time.Time
}

func NewStore(ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &Store{
		tokens:  make(map[string]entry),
		ttl:     ttl,
		nowFunc: time.Now,
	}
}

// Issue creates a fresh token for the session, replacing any previous one.
func (s *Store) Issue(sessionID string) (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	token := hex.EncodeToString(b)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[sessionID] = entry{
		token:     token,
		expiresAt: s.nowFunc().Add(s.ttl),
	}
	return token, nil
}

// Consume validates and invalidates the token for the session. A token can
// only be consumed once.
func (s *Store) Consume(sessionID, token string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.tokens[sessionID]
	if !ok {
		return false
	}
	if s.nowFunc().After(e.expiresAt) {
		delete(s.tokens, sessionID)
		return false
	}
	if subtle.ConstantTimeCompare([]byte(e.token), []byte(token)) != 1 {
		return false
	}

	delete(s.tokens, sessionID)
	return true
}

// Sweep drops expired tokens. Meant to be called periodically.
func (s *Store) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.nowFunc()
	removed := 0
	for id, e := range s.tokens {
		if now.After(e.expiresAt) {
			delete(s.tokens, id)
			removed++
		}
	}
	return removed
}

// StartSweeper runs Sweep on an interval until stop is closed.
func (s *Store) StartSweeper(interval time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			s.Sweep()
		}
	}
}
