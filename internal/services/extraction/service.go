// Package extraction starts and executes pipeline runs for sessions.
package extraction

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/joseph-ayodele/notas-reader/constants"
	"github.com/joseph-ayodele/notas-reader/internal/async"
	"github.com/joseph-ayodele/notas-reader/internal/common"
	"github.com/joseph-ayodele/notas-reader/internal/pipeline"
	"github.com/joseph-ayodele/notas-reader/internal/session"
)

type Service struct {
	sessions *session.Manager
	orch     *pipeline.Orchestrator
	queue    async.Queue
	logger   *slog.Logger
}

// NewService wires a run queue whose workers call back into the service.
func NewService(sessions *session.Manager, orch *pipeline.Orchestrator, logger *slog.Logger, opts ...async.Option) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{sessions: sessions, orch: orch, logger: logger}
	s.queue = async.NewRunQueue(s, logger, opts...)
	return s
}

// Start reserves the session and queues a run. The returned run can be polled.
func (s *Service) Start(ctx context.Context, sessionID string) (*session.Run, error) {
	sess, run, err := s.begin(sessionID)
	if err != nil {
		return nil, err
	}
	job := async.Job{
		SessionID:   sessionID,
		RunID:       run.ID,
		SubmittedAt: time.Now(),
		RequestID:   common.RequestIDFromContext(ctx),
	}
	if err := s.queue.Enqueue(ctx, job); err != nil {
		sess.FinishRun(run, pipeline.Outcome{Kind: pipeline.OutcomeFailed, State: constants.RunStateFailed, Err: err})
		return nil, err
	}
	return run, nil
}

// RunNow executes a run on the caller's goroutine and returns its final snapshot.
func (s *Service) RunNow(ctx context.Context, sessionID string) (session.RunSnapshot, error) {
	sess, run, err := s.begin(sessionID)
	if err != nil {
		return session.RunSnapshot{}, err
	}
	s.execute(ctx, sess, run, common.RequestIDFromContext(ctx))
	return run.Snapshot(), nil
}

// Execute implements async.Executor.
func (s *Service) Execute(ctx context.Context, job async.Job) error {
	sess, err := s.sessions.Get(job.SessionID)
	if err != nil {
		return err
	}
	run, err := sess.Run(job.RunID)
	if err != nil {
		return err
	}
	out := s.execute(ctx, sess, run, job.RequestID)
	return out.Err
}

func (s *Service) Shutdown(ctx context.Context) {
	s.queue.Shutdown(ctx)
}

func (s *Service) begin(sessionID string) (*session.Session, *session.Run, error) {
	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, nil, err
	}
	if sess.Documents().Len() == 0 {
		return nil, nil, common.EmptyStoreError()
	}
	run, err := sess.BeginRun()
	if err != nil {
		return nil, nil, err
	}
	return sess, run, nil
}

func (s *Service) execute(ctx context.Context, sess *session.Session, run *session.Run, reqID string) (out pipeline.Outcome) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("extraction.run.panic", "session_id", sess.ID, "run_id", run.ID, "panic", r)
			out = pipeline.Outcome{
				Kind:  pipeline.OutcomeFailed,
				State: constants.RunStateFailed,
				Err:   common.NewAppError(common.CodeInternal, fmt.Sprint(r), common.ErrInternal),
			}
			sess.FinishRun(run, out)
		}
	}()

	ctx = common.WithSessionID(ctx, sess.ID)
	ctx = common.WithRunID(ctx, run.ID)
	if reqID != "" {
		ctx = common.WithRequestID(ctx, reqID)
	}
	out = s.orch.RunObserved(ctx, sess.Documents(), sess, run)
	sess.FinishRun(run, out)
	return out
}
