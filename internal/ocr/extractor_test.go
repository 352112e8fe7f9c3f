package ocr_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/joseph-ayodele/notas-reader/constants"
	"github.com/joseph-ayodele/notas-reader/internal/ocr"
)

type call struct {
	name string
	args []string
}

// fakeRunner answers per binary name; pdftoppm writes two page images under the given prefix.
type fakeRunner struct {
	out   map[string]string
	fail  map[string]bool
	calls []call
}

func (f *fakeRunner) Run(_ context.Context, name string, args ...string) ([]byte, []byte, error) {
	f.calls = append(f.calls, call{name: name, args: args})
	if f.fail[name] {
		return nil, []byte("boom"), errors.New("exit status 1")
	}
	if name == "pdftoppm" {
		prefix := args[len(args)-1]
		for _, n := range []string{"-1.png", "-2.png"} {
			if err := os.WriteFile(prefix+n, []byte("png"), 0o600); err != nil {
				return nil, nil, err
			}
		}
	}
	if name == "tesseract" {
		return []byte(f.out[name] + " " + args[0][strings.LastIndex(args[0], "-")+1:]), nil, nil
	}
	return []byte(f.out[name]), nil, nil
}

func (f *fakeRunner) count(name string) int {
	n := 0
	for _, c := range f.calls {
		if c.name == name {
			n++
		}
	}
	return n
}

func TestExtractPDFTextLayer(t *testing.T) {
	r := &fakeRunner{out: map[string]string{
		"pdftotext": "NOTA FISCAL DE SERVIÇO ELETRÔNICA\nValor Total: R$ 1.000,00\fPágina dois com texto suficiente\f",
	}}
	e := ocr.NewExtractor(ocr.Config{MinTextChars: 10}, nil).WithRunner(r)

	res, err := e.Extract(context.Background(), "/tmp/x.pdf", constants.PDF)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if res.Method != "pdf-text" {
		t.Fatalf("expected pdf-text, got %s", res.Method)
	}
	if len(res.Pages) != 2 {
		t.Fatalf("expected 2 pages, got %d", len(res.Pages))
	}
	if r.count("pdftoppm") != 0 {
		t.Fatalf("did not expect rasterization for a text PDF")
	}
	if got := r.calls[0].args; got[0] != "-layout" || got[len(got)-1] != "-" {
		t.Fatalf("unexpected pdftotext args: %v", got)
	}
}

func TestExtractScannedPDFFallsBackToOCR(t *testing.T) {
	r := &fakeRunner{out: map[string]string{"pdftotext": "\f", "tesseract": "texto"}}
	e := ocr.NewExtractor(ocr.Config{MinTextChars: 10}, nil).WithRunner(r)

	res, err := e.Extract(context.Background(), "/tmp/scan.pdf", constants.PDF)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if res.Method != "pdf-ocr" {
		t.Fatalf("expected pdf-ocr, got %s", res.Method)
	}
	if len(res.Pages) != 2 || r.count("tesseract") != 2 {
		t.Fatalf("expected 2 OCR pages, got %d pages and %d tesseract calls", len(res.Pages), r.count("tesseract"))
	}
	if !strings.HasSuffix(res.Pages[0], "1.png") || !strings.HasSuffix(res.Pages[1], "2.png") {
		t.Fatalf("pages out of order: %q", res.Pages)
	}
}

func TestExtractImageUsesLanguage(t *testing.T) {
	r := &fakeRunner{out: map[string]string{"tesseract": "CNPJ"}}
	e := ocr.NewExtractor(ocr.Config{}, nil).WithRunner(r)

	res, err := e.Extract(context.Background(), "/tmp/nota.png", constants.IMAGE)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if res.Method != "image-ocr" || res.Language != "por" {
		t.Fatalf("unexpected result: %+v", res)
	}
	args := r.calls[0].args
	if args[1] != "stdout" || args[2] != "-l" || args[3] != "por" {
		t.Fatalf("unexpected tesseract args: %v", args)
	}
}

func TestExtractPropagatesToolFailure(t *testing.T) {
	r := &fakeRunner{fail: map[string]bool{"tesseract": true}}
	e := ocr.NewExtractor(ocr.Config{}, nil).WithRunner(r)

	_, err := e.Extract(context.Background(), "/tmp/nota.jpg", constants.IMAGE)
	if err == nil {
		t.Fatalf("expected tesseract failure to surface")
	}
	if !strings.Contains(err.Error(), "boom") {
		t.Fatalf("expected tool stderr in error, got %v", err)
	}
}

func TestScannedPDFRastersUnderTempDir(t *testing.T) {
	root := t.TempDir()
	r := &fakeRunner{out: map[string]string{"pdftotext": "\f", "tesseract": "texto"}}
	e := ocr.NewExtractor(ocr.Config{MinTextChars: 10, TempDir: root}, nil).WithRunner(r)

	if _, err := e.Extract(context.Background(), "/tmp/scan.pdf", constants.PDF); err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	var prefix string
	for _, c := range r.calls {
		if c.name == "pdftoppm" {
			prefix = c.args[len(c.args)-1]
		}
	}
	if rel, err := filepath.Rel(root, prefix); err != nil || strings.HasPrefix(rel, "..") {
		t.Fatalf("raster prefix %q is outside %q", prefix, root)
	}
	left, _ := os.ReadDir(root)
	if len(left) != 0 {
		t.Fatalf("raster directory not cleaned up: %v", left)
	}
}

func TestNormalize(t *testing.T) {
	in := "Prestador\r\nCNPJ:\t12.345.678/0001-90   \r\n-----\n\n\n\nTotal 01/02/2024\f"
	got := ocr.Normalize(in)
	want := "Prestador\nCNPJ:    12.345.678/0001-90\n\nTotal 01/02/2024"
	if got != want {
		t.Fatalf("Normalize mismatch\n got: %q\nwant: %q", got, want)
	}
}

func TestSplitPagesDropsTrailingEmptyPage(t *testing.T) {
	pages := ocr.SplitPages("one\ftwo\f")
	if len(pages) != 2 || pages[0] != "one" || pages[1] != "two" {
		t.Fatalf("unexpected pages: %q", pages)
	}
}
