package session

import (
	"sync"
	"time"

	"github.com/joseph-ayodele/notas-reader/constants"
	"github.com/joseph-ayodele/notas-reader/internal/pipeline"
)

// Run tracks one pipeline run. It is the pipeline.Observer for that run.
type Run struct {
	ID string

	mu         sync.RWMutex
	state      constants.RunState
	progress   int
	outcome    *pipeline.Outcome
	queuedAt   time.Time
	startedAt  time.Time
	finishedAt time.Time
}

// RunSnapshot is a consistent copy of a Run.
type RunSnapshot struct {
	ID         string
	State      constants.RunState
	Progress   int
	Outcome    *pipeline.Outcome
	QueuedAt   time.Time
	StartedAt  time.Time
	FinishedAt time.Time
}

// OnState records a transition. Once the run is terminal later states are ignored.
func (r *Run) OnState(s constants.RunState) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state.Terminal() {
		return
	}
	if r.startedAt.IsZero() && s != constants.RunStateQueued {
		r.startedAt = time.Now().UTC()
	}
	r.state = s
}

func (r *Run) OnProgress(p int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p > r.progress {
		r.progress = p
	}
}

func (r *Run) finish(out pipeline.Outcome) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcome = &out
	r.state = out.State
	r.finishedAt = time.Now().UTC()
}

// Done reports whether the run reached a terminal state.
func (r *Run) Done() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.outcome != nil
}

func (r *Run) Snapshot() RunSnapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s := RunSnapshot{
		ID:         r.ID,
		State:      r.state,
		Progress:   r.progress,
		QueuedAt:   r.queuedAt,
		StartedAt:  r.startedAt,
		FinishedAt: r.finishedAt,
	}
	if r.outcome != nil {
		out := *r.outcome
		s.Outcome = &out
	}
	return s
}
