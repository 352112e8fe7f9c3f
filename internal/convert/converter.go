// Package convert turns an uploaded document into markdown text for extraction.
package convert

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/notas-reader/constants"
	"github.com/joseph-ayodele/notas-reader/internal/common"
	"github.com/joseph-ayodele/notas-reader/internal/store"
)

// Result is the transient text rendering of one document.
type Result struct {
	SourceDocumentName string
	Markdown           string
	Pages              int
	Engine             string
	Method             string
}

// Converter is the contract the pipeline depends on.
type Converter interface {
	Convert(ctx context.Context, doc store.Document) (Result, error)
}

// Engine extracts per-page text from a staged file.
type Engine interface {
	Name() string
	Pages(ctx context.Context, path string, format constants.Format, mediaType string) (pages []string, method string, err error)
}

// Progress milestones reported by Adapter.Convert, in order.
const (
	ProgressStarted   = 0
	ProgressStaged    = 20
	ProgressPreflight = 40
	ProgressExtracted = 90
	ProgressRendered  = 100
)

// ProgressFunc receives monotonic conversion milestones in 0..100.
type ProgressFunc func(percent int)

type progressKey struct{}

// WithProgress attaches a progress callback to ctx for the next Convert call.
func WithProgress(ctx context.Context, fn ProgressFunc) context.Context {
	return context.WithValue(ctx, progressKey{}, fn)
}

func progressFrom(ctx context.Context) ProgressFunc {
	if fn, ok := ctx.Value(progressKey{}).(ProgressFunc); ok && fn != nil {
		return fn
	}
	return func(int) {}
}

// Adapter validates, stages and converts documents through an Engine.
type Adapter struct {
	engine    Engine
	preflight Preflighter
	tmpRoot   string
	logger    *slog.Logger
}

type Option func(*Adapter)

// WithPreflight overrides the PDF preflight check.
func WithPreflight(p Preflighter) Option {
	return func(a *Adapter) { a.preflight = p }
}

// WithTempRoot sets the parent directory for per-call scratch directories.
func WithTempRoot(dir string) Option {
	return func(a *Adapter) { a.tmpRoot = dir }
}

func NewAdapter(engine Engine, logger *slog.Logger, opts ...Option) *Adapter {
	if logger == nil {
		logger = slog.Default()
	}
	a := &Adapter{
		engine:    engine,
		preflight: PDFCPUPreflight{},
		logger:    logger,
	}
	for _, o := range opts {
		o(a)
	}
	return a
}

// ResolveFormat decides the document format from extension, then declared
// media type, then content sniffing. It returns the canonical media type too.
func ResolveFormat(name, mediaType string, data []byte) (constants.Format, string, error) {
	ext := filepath.Ext(name)
	if f := constants.MapExtToFormat(ext); f != "" {
		return f, constants.MediaTypeForExt(ext), nil
	}
	if ext == "" {
		if f := constants.MapMediaTypeToFormat(mediaType); f != "" {
			return f, constants.NormalizeMediaType(mediaType), nil
		}
		if len(data) > 0 {
			sniffed := http.DetectContentType(data)
			if f := constants.MapMediaTypeToFormat(sniffed); f != "" {
				return f, constants.NormalizeMediaType(sniffed), nil
			}
		}
	}
	return "", "", common.UnsupportedFormatError(name, mediaType)
}

// Convert renders doc as markdown. Nothing is returned on failure, and the
// scratch directory is removed on every exit path.
func (a *Adapter) Convert(ctx context.Context, doc store.Document) (Result, error) {
	start := time.Now()
	progress := progressFrom(ctx)
	sid := common.SessionIDFromContext(ctx)
	progress(ProgressStarted)

	format, mediaType, err := ResolveFormat(doc.Name, doc.MediaType, doc.Data)
	if err != nil {
		a.logger.Warn("convert.unsupported_format", "session_id", sid, "document", doc.Name, "media_type", doc.MediaType)
		return Result{}, err
	}
	if len(doc.Data) == 0 {
		return Result{}, common.ConversionError(fmt.Sprintf("%q is empty", doc.Name), nil)
	}

	a.logger.Info("convert.start",
		"session_id", sid,
		"document", doc.Name,
		"format", format,
		"bytes", len(doc.Data),
		"engine", a.engine.Name(),
	)

	dir, err := os.MkdirTemp(a.tmpRoot, "nf-convert-*")
	if err != nil {
		return Result{}, common.ConversionError("create scratch dir", err)
	}
	defer func() {
		if rmErr := os.RemoveAll(dir); rmErr != nil {
			a.logger.Warn("convert.cleanup_failed", "dir", dir, "error", rmErr)
		}
	}()

	path := filepath.Join(dir, uuid.NewString()+constants.ScratchExt(mediaType))
	if err := os.WriteFile(path, doc.Data, 0o600); err != nil {
		return Result{}, common.ConversionError("stage document", err)
	}
	progress(ProgressStaged)

	pageCount := 0
	if format == constants.PDF {
		n, err := a.preflight.Check(path)
		if err != nil {
			a.logger.Warn("convert.preflight_failed", "session_id", sid, "document", doc.Name, "error", err)
			return Result{}, common.ConversionError(fmt.Sprintf("%q is not a readable PDF", doc.Name), err)
		}
		pageCount = n
	}
	progress(ProgressPreflight)

	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	pages, method, err := a.engine.Pages(ctx, path, format, mediaType)
	if err != nil {
		if ctx.Err() != nil {
			return Result{}, ctx.Err()
		}
		a.logger.Error("convert.engine_failed",
			"session_id", sid,
			"document", doc.Name,
			"engine", a.engine.Name(),
			"error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return Result{}, common.ConversionError(fmt.Sprintf("could not convert %q", doc.Name), err)
	}
	progress(ProgressExtracted)

	md := RenderMarkdown(pages)
	if strings.TrimSpace(md) == "" {
		return Result{}, common.ConversionError(fmt.Sprintf("no readable text in %q", doc.Name), nil)
	}
	if pageCount == 0 {
		pageCount = len(pages)
	}
	progress(ProgressRendered)

	a.logger.Info("convert.ok",
		"session_id", sid,
		"document", doc.Name,
		"pages", pageCount,
		"method", method,
		"markdown_len", len(md),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return Result{
		SourceDocumentName: doc.Name,
		Markdown:           md,
		Pages:              pageCount,
		Engine:             a.engine.Name(),
		Method:             method,
	}, nil
}
