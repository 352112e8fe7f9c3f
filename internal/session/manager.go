package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/joseph-ayodele/notas-reader/internal/common"
)

// Manager owns all live sessions. Sessions idle longer than the TTL are
// dropped together with their documents.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	ttl      time.Duration
	now      func() time.Time
	logger   *slog.Logger
}

func NewManager(ttl time.Duration, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	if ttl <= 0 {
		ttl = 2 * time.Hour
	}
	return &Manager{
		sessions: make(map[string]*Session),
		ttl:      ttl,
		now:      time.Now,
		logger:   logger,
	}
}

func (m *Manager) Create() *Session {
	s := newSession(m.now().UTC())
	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()
	m.logger.Info("session.created", "session_id", s.ID)
	return s
}

// Get returns a live session and marks it as seen.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil, common.NotFoundError("session " + id)
	}
	s.touch(m.now().UTC())
	return s, nil
}

// Delete ends a session. It reports whether the session existed.
func (m *Manager) Delete(id string) bool {
	m.mu.Lock()
	_, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if ok {
		m.logger.Info("session.deleted", "session_id", id)
	}
	return ok
}

func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Sweep drops sessions idle for longer than the TTL. Sessions with an active
// run are kept. It returns how many were dropped.
func (m *Manager) Sweep(now time.Time) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for id, s := range m.sessions {
		if s.busy() || now.Sub(s.idleSince()) < m.ttl {
			continue
		}
		delete(m.sessions, id)
		n++
	}
	if n > 0 {
		m.logger.Info("session.sweep", "expired", n, "live", len(m.sessions))
	}
	return n
}

// Janitor sweeps on every tick until ctx is done.
func (m *Manager) Janitor(ctx context.Context, every time.Duration) {
	if every <= 0 {
		every = time.Minute
	}
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			m.Sweep(now.UTC())
		}
	}
}
