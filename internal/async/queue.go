package async

import (
	"context"
	"errors"
	"time"
)

// Job asks for one pipeline run of a session.
type Job struct {
	SessionID   string
	RunID       string
	SubmittedAt time.Time
	RequestID   string
}

// Executor performs a job. The context carries the per-job timeout.
type Executor interface {
	Execute(ctx context.Context, job Job) error
}

type Queue interface {
	Enqueue(ctx context.Context, job Job) error
	Shutdown(ctx context.Context)
}

var ErrQueueClosed = errors.New("run queue is shutting down")
