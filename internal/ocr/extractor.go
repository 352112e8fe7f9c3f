package ocr

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/joseph-ayodele/notas-reader/constants"
)

type Config struct {
	Pdftotext string // binary name or absolute path; if empty -> "pdftotext"
	Pdftoppm  string // binary name or absolute path; if empty -> "pdftoppm"
	Tesseract string // binary name or absolute path; if empty -> "tesseract"

	TesseractLang string // default "por"
	TessdataDir   string
	DPI           int // rasterization DPI for scanned PDFs, default 300
	MaxPages      int // 0 = no limit

	// PDFs whose text layer has fewer non-space characters than this are
	// treated as scanned and rasterized through tesseract.
	MinTextChars int

	// TempDir is the parent of per-call raster directories; "" means os.TempDir().
	TempDir string
}

type Result struct {
	Pages    []string
	Method   string // "pdf-text" | "pdf-ocr" | "image-ocr"
	Language string
	Duration time.Duration
}

type Extractor struct {
	cfg    Config
	runner Runner
	logger *slog.Logger
}

func NewExtractor(cfg Config, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Pdftotext == "" {
		cfg.Pdftotext = "pdftotext"
	}
	if cfg.Pdftoppm == "" {
		cfg.Pdftoppm = "pdftoppm"
	}
	if cfg.Tesseract == "" {
		cfg.Tesseract = "tesseract"
	}
	if cfg.TesseractLang == "" {
		cfg.TesseractLang = "por"
	}
	if cfg.DPI <= 0 {
		cfg.DPI = 300
	}
	if cfg.MinTextChars < 0 {
		cfg.MinTextChars = 0
	}
	return &Extractor{cfg: cfg, runner: ExecRunner{Logger: logger}, logger: logger}
}

// WithRunner swaps the command runner, mostly for tests.
func (e *Extractor) WithRunner(r Runner) *Extractor {
	e.runner = r
	return e
}

// Extract reads the file at path with the strategy for its format.
func (e *Extractor) Extract(ctx context.Context, path string, format constants.Format) (Result, error) {
	start := time.Now()
	e.logger.Debug("ocr.extract.start", "path", path, "format", format)

	var (
		res Result
		err error
	)
	switch format {
	case constants.PDF:
		res, err = e.extractPDF(ctx, path)
	case constants.IMAGE:
		res, err = e.extractImage(ctx, path)
	default:
		return Result{}, fmt.Errorf("unsupported format: %q", format)
	}
	res.Duration = time.Since(start)
	res.Language = e.cfg.TesseractLang
	return res, err
}

func (e *Extractor) extractPDF(ctx context.Context, path string) (Result, error) {
	pages, err := e.pdfToText(ctx, path)
	if err != nil {
		return Result{}, err
	}
	if textChars(pages) >= e.cfg.MinTextChars && textChars(pages) > 0 {
		return Result{Pages: pages, Method: "pdf-text"}, nil
	}

	e.logger.Info("ocr.pdf.no_text_layer", "path", path, "chars", textChars(pages), "fallback", "pdf-ocr")
	pages, err = e.pdfToOCR(ctx, path)
	if err != nil {
		return Result{}, err
	}
	return Result{Pages: pages, Method: "pdf-ocr"}, nil
}

func (e *Extractor) pdfToText(ctx context.Context, path string) ([]string, error) {
	// pdftotext -layout -enc UTF-8 -eol unix <path> -
	out, errb, err := e.runner.Run(ctx, e.cfg.Pdftotext, "-layout", "-enc", "UTF-8", "-eol", "unix", path, "-")
	if err != nil {
		return nil, toolError("pdftotext", err, errb)
	}
	pages := SplitPages(string(out))
	if e.cfg.MaxPages > 0 && len(pages) > e.cfg.MaxPages {
		pages = pages[:e.cfg.MaxPages]
	}
	return pages, nil
}

func (e *Extractor) pdfToOCR(ctx context.Context, path string) ([]string, error) {
	tmpDir, err := os.MkdirTemp(e.cfg.TempDir, "nf-pp-*")
	if err != nil {
		return nil, err
	}
	defer func(dir string) {
		if err := os.RemoveAll(dir); err != nil {
			e.logger.Warn("ocr.tmp.cleanup_failed", "dir", dir, "error", err)
		}
	}(tmpDir)

	prefix := filepath.Join(tmpDir, "page")
	args := []string{"-r", strconv.Itoa(e.cfg.DPI), "-png"}
	if e.cfg.MaxPages > 0 {
		args = append(args, "-l", strconv.Itoa(e.cfg.MaxPages))
	}
	// pdftoppm -r 300 -png <in.pdf> <tmp/page>
	_, errb, err := e.runner.Run(ctx, e.cfg.Pdftoppm, append(args, path, prefix)...)
	if err != nil {
		return nil, toolError("pdftoppm", err, errb)
	}

	// prefix-1.png, prefix-2.png, ... (zero-padded when there are many)
	matches, _ := filepath.Glob(prefix + "-*.png")
	sort.Strings(matches)
	if len(matches) == 0 {
		return nil, fmt.Errorf("pdftoppm: no pages rendered")
	}

	pages := make([]string, 0, len(matches))
	for i, img := range matches {
		txt, err := e.tesseract(ctx, img)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", i+1, err)
		}
		pages = append(pages, txt)
	}
	return pages, nil
}

func (e *Extractor) extractImage(ctx context.Context, path string) (Result, error) {
	txt, err := e.tesseract(ctx, path)
	if err != nil {
		return Result{}, err
	}
	return Result{Pages: []string{txt}, Method: "image-ocr"}, nil
}

func (e *Extractor) tesseract(ctx context.Context, path string) (string, error) {
	args := []string{path, "stdout", "-l", e.cfg.TesseractLang}
	if e.cfg.TessdataDir != "" {
		args = append(args, "--tessdata-dir", e.cfg.TessdataDir)
	}
	// tesseract <file> stdout -l <lang>
	out, errb, err := e.runner.Run(ctx, e.cfg.Tesseract, args...)
	if err != nil {
		return "", toolError("tesseract", err, errb)
	}
	return string(out), nil
}

// toolError attaches the tool's trimmed stderr to its exit error.
func toolError(tool string, err error, stderr []byte) error {
	msg := strings.TrimSpace(truncate(string(stderr), 512))
	if msg == "" {
		return fmt.Errorf("%s: %w", tool, err)
	}
	return fmt.Errorf("%s: %w: %s", tool, err, msg)
}
