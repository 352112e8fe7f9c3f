package convert

import (
	"context"
	"fmt"
	"os"

	"code.sajari.com/docconv"

	"github.com/joseph-ayodele/notas-reader/constants"
	"github.com/joseph-ayodele/notas-reader/internal/ocr"
)

// DocconvEngine converts through code.sajari.com/docconv. Image support
// requires building docconv with the "ocr" tag.
type DocconvEngine struct {
	readability bool
}

func NewDocconvEngine(readability bool) *DocconvEngine {
	return &DocconvEngine{readability: readability}
}

func (e *DocconvEngine) Name() string { return "docconv" }

func (e *DocconvEngine) Pages(ctx context.Context, path string, _ constants.Format, mediaType string) ([]string, string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, "", err
	}
	defer f.Close()

	type result struct {
		body string
		err  error
	}
	done := make(chan result, 1)
	go func() {
		res, err := docconv.Convert(f, mediaType, e.readability)
		if err != nil {
			done <- result{err: err}
			return
		}
		done <- result{body: res.Body}
	}()

	select {
	case <-ctx.Done():
		return nil, "", ctx.Err()
	case r := <-done:
		if r.err != nil {
			return nil, "", fmt.Errorf("docconv: %w", r.err)
		}
		return ocr.SplitPages(r.body), "docconv", nil
	}
}
