package convert

import (
	"context"

	"github.com/joseph-ayodele/notas-reader/constants"
	"github.com/joseph-ayodele/notas-reader/internal/ocr"
)

// OCREngine converts through poppler and tesseract.
type OCREngine struct {
	extractor *ocr.Extractor
}

func NewOCREngine(extractor *ocr.Extractor) *OCREngine {
	return &OCREngine{extractor: extractor}
}

func (e *OCREngine) Name() string { return "ocr" }

func (e *OCREngine) Pages(ctx context.Context, path string, format constants.Format, _ string) ([]string, string, error) {
	res, err := e.extractor.Extract(ctx, path, format)
	if err != nil {
		return nil, "", err
	}
	return res.Pages, res.Method, nil
}
