// Package compare holds per-session researcher comparison sets.
package compare

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/scholarmap/researcher-profile-service/internal/domain"
)

const (
	// DefaultTTL is how long an idle session's comparison set survives.
	DefaultTTL = time.Hour

	// DefaultMaxItems bounds how many researchers one session can compare.
	DefaultMaxItems = 10

	// DefaultSweepInterval is how often expired sessions are purged.
	DefaultSweepInterval = 5 * time.Minute
)

type session struct {
	pids     []string
	lastUsed time.Time
}

// SessionStore is an in-memory store of comparison sets keyed by session ID.
// Sessions expire after a TTL of inactivity. It is safe for concurrent use.
type SessionStore struct {
	mu       sync.Mutex
	sessions map[string]*session
	ttl      time.Duration
	maxItems int
	logger   zerolog.Logger

	// now is replaceable in tests.
	now func() time.Time
}

// NewSessionStore creates a session store. Zero ttl and maxItems fall back to
// the package defaults.
func NewSessionStore(ttl time.Duration, maxItems int, logger zerolog.Logger) *SessionStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if maxItems <= 0 {
		maxItems = DefaultMaxItems
	}

	return &SessionStore{
		sessions: make(map[string]*session),
		ttl:      ttl,
		maxItems: maxItems,
		logger:   logger.With().Str("component", "compare").Logger(),
		now:      time.Now,
	}
}

// Add puts a researcher PID into the session's comparison set. Adding an
// already-present PID is a no-op. A full set rejects further additions.
func (s *SessionStore) Add(sessionID, pid string) error {
	if sessionID == "" {
		return domain.NewValidationError("session_id", "session id is required")
	}
	if pid == "" {
		return domain.NewValidationError("pid", "pid is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		sess = &session{}
		s.sessions[sessionID] = sess
	}
	sess.lastUsed = s.now()

	for _, existing := range sess.pids {
		if existing == pid {
			return nil
		}
	}
	if len(sess.pids) >= s.maxItems {
		return domain.NewValidationError("pid", "comparison set is full")
	}

	sess.pids = append(sess.pids, pid)
	return nil
}

// Remove drops a researcher PID from the session's comparison set. Removing
// an absent PID, or from an absent session, is a no-op.
func (s *SessionStore) Remove(sessionID, pid string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		return
	}
	sess.lastUsed = s.now()

	for i, existing := range sess.pids {
		if existing == pid {
			sess.pids = append(sess.pids[:i], sess.pids[i+1:]...)
			return
		}
	}
}

// List returns the session's comparison set in insertion order. The returned
// slice is a copy.
func (s *SessionStore) List(sessionID string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[sessionID]
	if !ok || s.now().Sub(sess.lastUsed) > s.ttl {
		return nil
	}
	sess.lastUsed = s.now()

	pids := make([]string, len(sess.pids))
	copy(pids, sess.pids)
	return pids
}

// Clear removes the session's comparison set entirely.
func (s *SessionStore) Clear(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
}

// Sweep removes every session idle for longer than the TTL and returns how
// many were removed.
func (s *SessionStore) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Add(-s.ttl)
	removed := 0
	for id, sess := range s.sessions {
		if sess.lastUsed.Before(cutoff) {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed
}

// Run sweeps expired sessions at the given interval until ctx is cancelled.
func (s *SessionStore) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := s.Sweep(); removed > 0 {
				s.logger.Debug().Int("removed", removed).Msg("swept expired comparison sessions")
			}
		}
	}
}
