// Package pipeline sequences conversion and extraction for a session's latest document.
package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/joseph-ayodele/notas-reader/constants"
	"github.com/joseph-ayodele/notas-reader/internal/common"
	"github.com/joseph-ayodele/notas-reader/internal/convert"
	"github.com/joseph-ayodele/notas-reader/internal/llm"
	"github.com/joseph-ayodele/notas-reader/internal/store"
)

// DocumentSource is the read side of a document store.
type DocumentSource interface {
	Latest() (store.Document, error)
}

// Orchestrator coordinates conversion then extraction.
type Orchestrator struct {
	converter convert.Converter
	extractor llm.FieldExtractor
	prompts   llm.PromptBuilder
	logger    *slog.Logger
}

func NewOrchestrator(logger *slog.Logger, converter convert.Converter, extractor llm.FieldExtractor, prompts llm.PromptBuilder) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{converter: converter, extractor: extractor, prompts: prompts, logger: logger}
}

// Run processes src.Latest(). It never mutates the source and never retries
// across stages.
func (o *Orchestrator) Run(ctx context.Context, src DocumentSource, creds llm.CredentialSource) Outcome {
	return o.RunObserved(ctx, src, creds, nil)
}

// RunObserved is Run with an observer for state and progress.
func (o *Orchestrator) RunObserved(ctx context.Context, src DocumentSource, creds llm.CredentialSource, obs Observer) Outcome {
	if obs == nil {
		obs = nopObserver{}
	}
	mo := &monotonic{Observer: obs}
	start := time.Now()
	sid := common.SessionIDFromContext(ctx)
	log := o.logger.With("session_id", sid, "run_id", common.RunIDFromContext(ctx))

	finish := func(out Outcome) Outcome {
		mo.OnState(out.State)
		if out.Kind != OutcomeFailed {
			mo.OnProgress(progressDone)
		}
		attrs := []any{
			"document", out.DocumentName,
			"outcome", out.Kind,
			"elapsed_ms", time.Since(start).Milliseconds(),
		}
		if out.Err != nil {
			log.Error("pipeline.run.failed", append(attrs, "kind", out.ErrorKind(), "error", out.Err)...)
		} else {
			log.Info("pipeline.run.ok", attrs...)
		}
		return out
	}

	mo.OnState(constants.RunStateIdle)
	if err := ctx.Err(); err != nil {
		return finish(failed("", "", cancelled(err)))
	}

	doc, err := src.Latest()
	if err != nil {
		return finish(failed("", "", err))
	}
	log.Info("pipeline.run.start", "document", doc.Name, "bytes", doc.Size())

	mo.OnState(constants.RunStateConverting)
	mo.OnProgress(0)
	cctx := convert.WithProgress(ctx, func(p int) {
		mo.OnProgress(p * progressConvertEnd / 100)
	})
	res, err := o.converter.Convert(cctx, doc)
	if err != nil {
		if ctx.Err() != nil {
			err = cancelled(ctx.Err())
		}
		return finish(failed(doc.Name, "", err))
	}
	mo.OnState(constants.RunStateConverted)
	mo.OnProgress(progressConvertEnd)

	if err := ctx.Err(); err != nil {
		return finish(failed(doc.Name, res.Markdown, cancelled(err)))
	}

	var c llm.Credentials
	if creds != nil {
		c = creds.Credentials()
	}
	if !c.Present() {
		log.Info("pipeline.run.awaiting_credentials", "document", doc.Name)
		return finish(convertedOnly(doc.Name, res.Markdown))
	}

	req := o.prompts.Build(res.Markdown)
	mo.OnState(constants.RunStateExtracting)
	mo.OnProgress(progressExtracting)

	text, err := o.extractor.Extract(ctx, req, c)
	if err != nil {
		return finish(failed(doc.Name, res.Markdown, err))
	}
	return finish(extracted(doc.Name, res.Markdown, text))
}

func cancelled(cause error) error {
	return common.CancelledError("run cancelled", cause)
}
