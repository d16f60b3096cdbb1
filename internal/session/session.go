// Package session manages the lifecycle of wizard sessions.
package session

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/matthewbaird/contractwizard/internal/wizard"
)

// Session holds the server-side state of one wizard page.
type Session struct {
	ID         uuid.UUID
	DraftKey   string
	Locale     string
	Controller *wizard.Controller
	CreatedAt  time.Time

	lastActive atomic.Int64
}

// Touch updates the last activity timestamp.
func (s *Session) Touch() { s.touchAt(time.Now()) }

func (s *Session) touchAt(t time.Time) { s.lastActive.Store(t.UnixNano()) }

// LastActiveAt returns the time of the last Touch.
func (s *Session) LastActiveAt() time.Time { return time.Unix(0, s.lastActive.Load()) }

// IsExpired returns true if the session has exceeded the given max age.
func (s *Session) IsExpired(now time.Time, maxAge time.Duration) bool {
	return now.Sub(s.CreatedAt) > maxAge
}

// IsIdle returns true if the session has been idle longer than the timeout.
func (s *Session) IsIdle(now time.Time, timeout time.Duration) bool {
	return now.Sub(s.LastActiveAt()) > timeout
}

// Manager handles session creation, lookup, and cleanup.
type Manager struct {
	mu          sync.RWMutex
	sessions    map[uuid.UUID]*Session
	maxAge      time.Duration
	idleTimeout time.Duration
	now         func() time.Time
}

// NewManager creates a session manager with the given timeouts.
func NewManager(maxAge, idleTimeout time.Duration) *Manager {
	return &Manager{
		sessions:    make(map[uuid.UUID]*Session),
		maxAge:      maxAge,
		idleTimeout: idleTimeout,
		now:         time.Now,
	}
}

// Create registers a new session around c.
func (m *Manager) Create(c *wizard.Controller, draftKey, locale string) *Session {
	now := m.now()
	s := &Session{
		ID:         uuid.New(),
		DraftKey:   draftKey,
		Locale:     locale,
		Controller: c,
		CreatedAt:  now,
	}
	s.touchAt(now)
	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()
	return s
}

// Get retrieves a session by ID and marks it active. Returns nil if not
// found or expired.
func (m *Manager) Get(id uuid.UUID) *Session {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil
	}
	now := m.now()
	if m.stale(s, now) {
		m.Remove(id)
		return nil
	}
	s.touchAt(now)
	return s
}

// Remove deletes a session, cancelling any submission it has in flight.
// It reports whether the session existed.
func (m *Manager) Remove(id uuid.UUID) bool {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if ok {
		s.Controller.CancelSubmit()
	}
	return ok
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Cleanup removes all expired and idle sessions and returns how many were
// removed.
func (m *Manager) Cleanup() int {
	now := m.now()
	var removed []*Session
	m.mu.Lock()
	for id, s := range m.sessions {
		if m.stale(s, now) {
			delete(m.sessions, id)
			removed = append(removed, s)
		}
	}
	m.mu.Unlock()
	for _, s := range removed {
		s.Controller.CancelSubmit()
	}
	return len(removed)
}

// Run calls Cleanup every interval until ctx is done.
func (m *Manager) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			m.Cleanup()
		}
	}
}

func (m *Manager) stale(s *Session, now time.Time) bool {
	return s.IsExpired(now, m.maxAge) || s.IsIdle(now, m.idleTimeout)
}
