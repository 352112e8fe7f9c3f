package extraction_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/joseph-ayodele/notas-reader/constants"
	"github.com/joseph-ayodele/notas-reader/internal/async"
	"github.com/joseph-ayodele/notas-reader/internal/common"
	"github.com/joseph-ayodele/notas-reader/internal/convert"
	"github.com/joseph-ayodele/notas-reader/internal/llm"
	"github.com/joseph-ayodele/notas-reader/internal/pipeline"
	"github.com/joseph-ayodele/notas-reader/internal/services/extraction"
	"github.com/joseph-ayodele/notas-reader/internal/session"
	"github.com/joseph-ayodele/notas-reader/internal/store"
)

type blockingConverter struct {
	release chan struct{}
}

func (b *blockingConverter) Convert(_ context.Context, doc store.Document) (convert.Result, error) {
	if b.release != nil {
		<-b.release
	}
	return convert.Result{SourceDocumentName: doc.Name, Markdown: "Total: 1"}, nil
}

type echoExtractor struct{}

func (echoExtractor) Extract(_ context.Context, req llm.Request, _ llm.Credentials) (string, error) {
	return "- Total Bruto: 1", nil
}

func newService(conv convert.Converter) (*extraction.Service, *session.Manager) {
	m := session.NewManager(time.Hour, nil)
	orch := pipeline.NewOrchestrator(nil, conv, echoExtractor{}, llm.PromptBuilder{})
	return extraction.NewService(m, orch, nil, async.WithWorkers(1)), m
}

func TestRunNowWithCredentials(t *testing.T) {
	svc, m := newService(&blockingConverter{})
	defer svc.Shutdown(context.Background())

	sess := m.Create()
	sess.Documents().Add("nota.pdf", []byte("%PDF"), "application/pdf")
	sess.SetCredentials(llm.Credentials{APIKey: "sk"})

	snap, err := svc.RunNow(context.Background(), sess.ID)
	if err != nil {
		t.Fatalf("RunNow failed: %v", err)
	}
	if snap.State != constants.RunStateDone || snap.Outcome == nil || snap.Outcome.Fields != "- Total Bruto: 1" {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}
	if snap.Progress != 100 {
		t.Fatalf("expected progress 100, got %d", snap.Progress)
	}
}

func TestStartRejectsEmptySession(t *testing.T) {
	svc, m := newService(&blockingConverter{})
	defer svc.Shutdown(context.Background())

	sess := m.Create()
	if _, err := svc.Start(context.Background(), sess.ID); !errors.Is(err, common.ErrEmptyStore) {
		t.Fatalf("expected ErrEmptyStore, got %v", err)
	}
}

func TestStartRunsInBackgroundAndLocksSession(t *testing.T) {
	conv := &blockingConverter{release: make(chan struct{})}
	svc, m := newService(conv)
	defer svc.Shutdown(context.Background())

	sess := m.Create()
	sess.Documents().Add("nota.png", []byte("png"), "image/png")

	run, err := svc.Start(context.Background(), sess.ID)
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if _, err := svc.Start(context.Background(), sess.ID); !errors.Is(err, common.ErrRunInProgress) {
		t.Fatalf("expected ErrRunInProgress while running, got %v", err)
	}
	close(conv.release)

	deadline := time.Now().Add(2 * time.Second)
	for !run.Done() {
		if time.Now().After(deadline) {
			t.Fatalf("run did not finish")
		}
		time.Sleep(5 * time.Millisecond)
	}
	snap := run.Snapshot()
	if snap.Outcome.Kind != pipeline.OutcomeConvertedOnly {
		t.Fatalf("expected ConvertedOnly without credentials, got %s", snap.Outcome.Kind)
	}
	if _, err := svc.Start(context.Background(), sess.ID); err != nil {
		t.Fatalf("expected session to be free after the run, got %v", err)
	}
}
