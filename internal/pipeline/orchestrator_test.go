package pipeline_test

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/joseph-ayodele/notas-reader/constants"
	"github.com/joseph-ayodele/notas-reader/internal/common"
	"github.com/joseph-ayodele/notas-reader/internal/convert"
	"github.com/joseph-ayodele/notas-reader/internal/llm"
	"github.com/joseph-ayodele/notas-reader/internal/pipeline"
	"github.com/joseph-ayodele/notas-reader/internal/store"
)

type fakeConverter struct {
	text   string
	err    error
	calls  int
	during func()
}

func (f *fakeConverter) Convert(_ context.Context, doc store.Document) (convert.Result, error) {
	f.calls++
	if f.during != nil {
		f.during()
	}
	if f.err != nil {
		return convert.Result{}, f.err
	}
	return convert.Result{SourceDocumentName: doc.Name, Markdown: f.text, Pages: 1}, nil
}

type fakeExtractor struct {
	answer string
	err    error
	calls  int
	reqs   []llm.Request
}

func (f *fakeExtractor) Extract(_ context.Context, req llm.Request, _ llm.Credentials) (string, error) {
	f.calls++
	f.reqs = append(f.reqs, req)
	return f.answer, f.err
}

type recorder struct {
	states   []constants.RunState
	progress []int
}

func (r *recorder) OnState(s constants.RunState) { r.states = append(r.states, s) }
func (r *recorder) OnProgress(p int)             { r.progress = append(r.progress, p) }

func oneDocStore() *store.Store {
	s := store.New()
	s.Add("invoice1.pdf", []byte("%PDF"), "application/pdf")
	return s
}

const answer = "- Data de Emissão: 2024-01-01\n- Total Bruto: 100.00\n..."

func TestRunEndToEnd(t *testing.T) {
	conv := &fakeConverter{text: "Total: 100.00\nDate: 2024-01-01"}
	ext := &fakeExtractor{answer: answer}
	o := pipeline.NewOrchestrator(nil, conv, ext, llm.PromptBuilder{})

	rec := &recorder{}
	out := o.RunObserved(context.Background(), oneDocStore(), llm.Credentials{APIKey: "sk"}, rec)

	if out.Kind != pipeline.OutcomeExtractedFields {
		t.Fatalf("expected ExtractedFields, got %s (%v)", out.Kind, out.Err)
	}
	if out.Text() != answer {
		t.Fatalf("expected exact answer, got %q", out.Text())
	}
	if ext.calls != 1 {
		t.Fatalf("expected exactly one extraction call, got %d", ext.calls)
	}
	req := ext.reqs[0]
	if req.Temperature != 0 || len(req.Messages) != 2 || req.Messages[0].Role != llm.RoleSystem || req.Messages[1].Role != llm.RoleUser {
		t.Fatalf("unexpected request: %+v", req)
	}
	if !reflect.DeepEqual(req, llm.BuildExtractionRequest(conv.text)) {
		t.Fatalf("request was not built from the converted text")
	}

	wantStates := []constants.RunState{
		constants.RunStateIdle,
		constants.RunStateConverting,
		constants.RunStateConverted,
		constants.RunStateExtracting,
		constants.RunStateDone,
	}
	if !reflect.DeepEqual(rec.states, wantStates) {
		t.Fatalf("states: got %v want %v", rec.states, wantStates)
	}
	for i := 1; i < len(rec.progress); i++ {
		if rec.progress[i] < rec.progress[i-1] {
			t.Fatalf("progress not monotonic: %v", rec.progress)
		}
	}
	if rec.progress[len(rec.progress)-1] != 100 {
		t.Fatalf("expected final progress 100, got %v", rec.progress)
	}
}

func TestRunConversionFailureShortCircuits(t *testing.T) {
	conv := &fakeConverter{err: common.ConversionError("corrupt", nil)}
	ext := &fakeExtractor{answer: answer}
	o := pipeline.NewOrchestrator(nil, conv, ext, llm.PromptBuilder{})

	out := o.Run(context.Background(), oneDocStore(), llm.Credentials{APIKey: "sk"})
	if out.Kind != pipeline.OutcomeFailed || !errors.Is(out.Err, common.ErrConversion) {
		t.Fatalf("expected Failed(ConversionError), got %s %v", out.Kind, out.Err)
	}
	if ext.calls != 0 {
		t.Fatalf("extractor must not be invoked, got %d calls", ext.calls)
	}
	if out.ErrorKind() != common.CodeConversion {
		t.Fatalf("unexpected kind: %s", out.ErrorKind())
	}
}

func TestRunWithoutCredentialsReturnsConvertedOnly(t *testing.T) {
	conv := &fakeConverter{text: "markdown"}
	ext := &fakeExtractor{}
	o := pipeline.NewOrchestrator(nil, conv, ext, llm.PromptBuilder{})

	for _, creds := range []llm.CredentialSource{nil, llm.Credentials{}} {
		out := o.Run(context.Background(), oneDocStore(), creds)
		if out.Kind != pipeline.OutcomeConvertedOnly {
			t.Fatalf("expected ConvertedOnly, got %s (%v)", out.Kind, out.Err)
		}
		if out.Text() != "markdown" || out.Err != nil || out.Hint == "" {
			t.Fatalf("unexpected outcome: %+v", out)
		}
		if out.State != constants.RunStateAwaitingCredentials {
			t.Fatalf("expected AwaitingCredentials, got %s", out.State)
		}
	}
	if ext.calls != 0 {
		t.Fatalf("extractor must not run without credentials")
	}
}

type switchableCreds struct{ key string }

func (s *switchableCreds) Credentials() llm.Credentials { return llm.Credentials{APIKey: s.key} }

func TestRunHonorsCredentialsWithdrawnDuringConversion(t *testing.T) {
	creds := &switchableCreds{key: "sk"}
	conv := &fakeConverter{text: "md", during: func() { creds.key = "" }}
	ext := &fakeExtractor{answer: answer}
	o := pipeline.NewOrchestrator(nil, conv, ext, llm.PromptBuilder{})

	out := o.Run(context.Background(), oneDocStore(), creds)
	if out.Kind != pipeline.OutcomeConvertedOnly || ext.calls != 0 {
		t.Fatalf("expected ConvertedOnly without extraction, got %s and %d calls", out.Kind, ext.calls)
	}
}

func TestRunCancelledBetweenStages(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	conv := &fakeConverter{text: "md", during: cancel}
	ext := &fakeExtractor{answer: answer}
	o := pipeline.NewOrchestrator(nil, conv, ext, llm.PromptBuilder{})

	out := o.Run(ctx, oneDocStore(), llm.Credentials{APIKey: "sk"})
	if out.Kind != pipeline.OutcomeFailed || out.ErrorKind() != common.CodeCancelled {
		t.Fatalf("expected cancelled failure, got %s %v", out.Kind, out.Err)
	}
	if !errors.Is(out.Err, context.Canceled) {
		t.Fatalf("expected context.Canceled in chain, got %v", out.Err)
	}
	if out.Markdown != "md" {
		t.Fatalf("conversion output should stay available, got %q", out.Markdown)
	}
	if ext.calls != 0 {
		t.Fatalf("extractor must not run after cancellation")
	}
}

func TestRunEmptyStore(t *testing.T) {
	conv := &fakeConverter{text: "md"}
	o := pipeline.NewOrchestrator(nil, conv, &fakeExtractor{}, llm.PromptBuilder{})

	out := o.Run(context.Background(), store.New(), llm.Credentials{APIKey: "sk"})
	if out.Kind != pipeline.OutcomeFailed || !errors.Is(out.Err, common.ErrEmptyStore) {
		t.Fatalf("expected Failed(EmptyStore), got %s %v", out.Kind, out.Err)
	}
	if conv.calls != 0 {
		t.Fatalf("converter must not run on an empty store")
	}
}

func TestRunExtractionErrorKeepsMarkdown(t *testing.T) {
	conv := &fakeConverter{text: "md"}
	ext := &fakeExtractor{err: common.AuthenticationError("rejected", nil)}
	o := pipeline.NewOrchestrator(nil, conv, ext, llm.PromptBuilder{})

	out := o.Run(context.Background(), oneDocStore(), llm.Credentials{APIKey: "bad"})
	if out.Kind != pipeline.OutcomeFailed || !errors.Is(out.Err, common.ErrAuthentication) {
		t.Fatalf("expected Failed(AuthenticationError), got %s %v", out.Kind, out.Err)
	}
	if out.Markdown != "md" {
		t.Fatalf("expected markdown to survive extraction failure")
	}
}

func TestRunIsIdempotentAndReadOnly(t *testing.T) {
	s := oneDocStore()
	s.Add("second.png", []byte("png"), "image/png")
	conv := &fakeConverter{text: "md"}
	ext := &fakeExtractor{answer: answer}
	o := pipeline.NewOrchestrator(nil, conv, ext, llm.PromptBuilder{})

	first := o.Run(context.Background(), s, llm.Credentials{APIKey: "sk"})
	second := o.Run(context.Background(), s, llm.Credentials{APIKey: "sk"})
	if first.Kind != second.Kind || first.DocumentName != "second.png" || second.DocumentName != "second.png" {
		t.Fatalf("runs differ: %+v vs %+v", first, second)
	}
	if s.Len() != 2 {
		t.Fatalf("run mutated the store")
	}
	if !reflect.DeepEqual(ext.reqs[0], ext.reqs[1]) {
		t.Fatalf("identical inputs produced different requests")
	}
}
