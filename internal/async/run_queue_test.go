package async_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/joseph-ayodele/notas-reader/internal/async"
)

type countingExecutor struct {
	mu   sync.Mutex
	seen []string
}

func (c *countingExecutor) Execute(ctx context.Context, job async.Job) error {
	if _, ok := ctx.Deadline(); !ok {
		return errors.New("expected a deadline")
	}
	c.mu.Lock()
	c.seen = append(c.seen, job.RunID)
	c.mu.Unlock()
	return nil
}

func TestRunQueueDrainsOnShutdown(t *testing.T) {
	exec := &countingExecutor{}
	q := async.NewRunQueue(exec, nil, async.WithWorkers(2), async.WithQueueSize(8), async.WithRunTimeout(time.Second))

	for _, id := range []string{"a", "b", "c"} {
		if err := q.Enqueue(context.Background(), async.Job{SessionID: "s", RunID: id}); err != nil {
			t.Fatalf("Enqueue failed: %v", err)
		}
	}
	q.Shutdown(context.Background())

	if len(exec.seen) != 3 {
		t.Fatalf("expected 3 executed jobs, got %v", exec.seen)
	}
	if err := q.Enqueue(context.Background(), async.Job{RunID: "late"}); !errors.Is(err, async.ErrQueueClosed) {
		t.Fatalf("expected ErrQueueClosed after shutdown, got %v", err)
	}
}

type blockingExecutor struct {
	started chan struct{}
	release chan struct{}
	once    sync.Once
}

func (b *blockingExecutor) Execute(ctx context.Context, _ async.Job) error {
	b.once.Do(func() { close(b.started) })
	select {
	case <-b.release:
	case <-ctx.Done():
	}
	return nil
}

func TestFullQueueHonoursCallerDeadlines(t *testing.T) {
	exec := &blockingExecutor{started: make(chan struct{}), release: make(chan struct{})}
	q := async.NewRunQueue(exec, nil, async.WithWorkers(1), async.WithQueueSize(1), async.WithRunTimeout(10*time.Second))
	defer close(exec.release)

	if err := q.Enqueue(context.Background(), async.Job{RunID: "running"}); err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}
	<-exec.started
	if err := q.Enqueue(context.Background(), async.Job{RunID: "buffered"}); err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}

	waiting := make(chan error, 1)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		waiting <- q.Enqueue(ctx, async.Job{RunID: "waiting"})
	}()
	time.Sleep(50 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	start := time.Now()
	if err := q.Enqueue(ctx, async.Job{RunID: "late"}); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected DeadlineExceeded, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("Enqueue ignored its deadline: %v", elapsed)
	}

	sctx, scancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer scancel()
	start = time.Now()
	q.Shutdown(sctx)
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("Shutdown ignored its deadline: %v", elapsed)
	}

	select {
	case err := <-waiting:
		if !errors.Is(err, async.ErrQueueClosed) {
			t.Fatalf("expected ErrQueueClosed for the waiting caller, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatalf("waiting Enqueue did not return after Shutdown")
	}
}
