// Package app builds the pipeline components from configuration for the binaries.
package app

import (
	"io"
	"log/slog"
	"strings"

	"github.com/joseph-ayodele/notas-reader/internal/common"
	"github.com/joseph-ayodele/notas-reader/internal/convert"
	"github.com/joseph-ayodele/notas-reader/internal/llm"
	"github.com/joseph-ayodele/notas-reader/internal/llm/gemini"
	"github.com/joseph-ayodele/notas-reader/internal/llm/openai"
	"github.com/joseph-ayodele/notas-reader/internal/ocr"
	"github.com/joseph-ayodele/notas-reader/internal/pipeline"
)

// NewLogger returns a text logger at the given level ("debug", "info", "warn", "error").
func NewLogger(w io.Writer, level string) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: ParseLevel(level)}))
}

func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewConverter builds the converter adapter around the configured engine.
func NewConverter(cfg common.ConverterConfig, logger *slog.Logger) *convert.Adapter {
	var engine convert.Engine
	switch cfg.Engine {
	case common.EngineDocconv:
		engine = convert.NewDocconvEngine(false)
	default:
		extractor := ocr.NewExtractor(ocr.Config{
			Pdftotext:     cfg.Pdftotext,
			Pdftoppm:      cfg.Pdftoppm,
			Tesseract:     cfg.Tesseract,
			TesseractLang: cfg.TesseractLang,
			TessdataDir:   cfg.TessdataDir,
			DPI:           cfg.DPI,
			MaxPages:      cfg.MaxPages,
			MinTextChars:  cfg.MinPDFTextChars,
			TempDir:       cfg.TempDir,
		}, logger)
		engine = convert.NewOCREngine(extractor)
	}
	return convert.NewAdapter(engine, logger,
		convert.WithPreflight(convert.PDFCPUPreflight{}),
		convert.WithTempRoot(cfg.TempDir),
	)
}

// NewExtractor builds the field extractor for the configured provider.
func NewExtractor(cfg common.LLMConfig, logger *slog.Logger) llm.FieldExtractor {
	if cfg.Provider == common.ProviderGemini {
		return gemini.NewClient(gemini.Config{Model: cfg.GeminiModel, Timeout: cfg.Timeout}, logger)
	}
	return openai.NewClient(openai.Config{
		BaseURL:      cfg.BaseURL,
		Model:        cfg.Model,
		Timeout:      cfg.Timeout,
		MaxRetries:   cfg.MaxRetries,
		RetryBackoff: cfg.RetryBackoff,
	}, logger)
}

// NewOrchestrator wires converter, extractor and prompt builder together.
func NewOrchestrator(cfg *common.Config, logger *slog.Logger) *pipeline.Orchestrator {
	model := cfg.LLM.Model
	if cfg.LLM.Provider == common.ProviderGemini {
		model = cfg.LLM.GeminiModel
	}
	return pipeline.NewOrchestrator(logger,
		NewConverter(cfg.Converter, logger),
		NewExtractor(cfg.LLM, logger),
		llm.PromptBuilder{Model: model},
	)
}
