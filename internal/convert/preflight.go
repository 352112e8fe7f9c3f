package convert

import (
	"fmt"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// Preflighter checks that a staged PDF is structurally readable and returns its page count.
type Preflighter interface {
	Check(path string) (pages int, err error)
}

// PDFCPUPreflight validates with pdfcpu in relaxed mode.
type PDFCPUPreflight struct{}

func (PDFCPUPreflight) Check(path string) (int, error) {
	cfg := model.NewDefaultConfiguration()
	cfg.ValidationMode = model.ValidationRelaxed
	if err := api.ValidateFile(path, cfg); err != nil {
		return 0, fmt.Errorf("validate pdf: %w", err)
	}
	n, err := api.PageCountFile(path)
	if err != nil {
		return 0, fmt.Errorf("count pages: %w", err)
	}
	if n == 0 {
		return 0, fmt.Errorf("pdf has no pages")
	}
	return n, nil
}

// NoPreflight skips structural checks.
type NoPreflight struct{}

func (NoPreflight) Check(string) (int, error) { return 0, nil }
