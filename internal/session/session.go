// Package session scopes documents, credentials and runs to one caller.
package session

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/notas-reader/constants"
	"github.com/joseph-ayodele/notas-reader/internal/common"
	"github.com/joseph-ayodele/notas-reader/internal/llm"
	"github.com/joseph-ayodele/notas-reader/internal/pipeline"
	"github.com/joseph-ayodele/notas-reader/internal/store"
)

// maxRunHistory bounds how many finished runs a session remembers.
const maxRunHistory = 50

type Session struct {
	ID        string
	CreatedAt time.Time

	docs *store.Store

	mu       sync.Mutex
	creds    llm.Credentials
	lastSeen time.Time
	active   *Run
	runs     map[string]*Run
	order    []string
}

func newSession(now time.Time) *Session {
	return &Session{
		ID:        uuid.NewString(),
		CreatedAt: now,
		docs:      store.New(),
		lastSeen:  now,
		runs:      make(map[string]*Run),
	}
}

// Documents is the session's document store.
func (s *Session) Documents() *store.Store { return s.docs }

func (s *Session) SetCredentials(c llm.Credentials) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.creds = c
}

func (s *Session) ClearCredentials() {
	s.SetCredentials(llm.Credentials{})
}

// Credentials returns the credentials current at call time, so a run that
// reads them between stages sees a withdrawal.
func (s *Session) Credentials() llm.Credentials {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.creds
}

func (s *Session) HasCredentials() bool { return s.Credentials().Present() }

// BeginRun reserves the session for a new run. Only one run may be active.
func (s *Session) BeginRun() (*Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active != nil {
		return nil, common.RunInProgressError(s.ID)
	}
	r := &Run{ID: uuid.NewString(), state: constants.RunStateQueued, queuedAt: time.Now().UTC()}
	s.active = r
	s.runs[r.ID] = r
	s.order = append(s.order, r.ID)
	if len(s.order) > maxRunHistory {
		delete(s.runs, s.order[0])
		s.order = s.order[1:]
	}
	return r, nil
}

// FinishRun records the outcome and releases the session.
func (s *Session) FinishRun(r *Run, out pipeline.Outcome) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r.finish(out)
	if s.active == r {
		s.active = nil
	}
}

func (s *Session) Run(id string) (*Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.runs[id]
	if !ok {
		return nil, common.NotFoundError("run " + id)
	}
	return r, nil
}

// Runs returns snapshots of the remembered runs, oldest first.
func (s *Session) Runs() []RunSnapshot {
	s.mu.Lock()
	runs := make([]*Run, 0, len(s.order))
	for _, id := range s.order {
		runs = append(runs, s.runs[id])
	}
	s.mu.Unlock()

	out := make([]RunSnapshot, 0, len(runs))
	for _, r := range runs {
		out = append(out, r.Snapshot())
	}
	return out
}

func (s *Session) busy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active != nil
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

func (s *Session) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}
