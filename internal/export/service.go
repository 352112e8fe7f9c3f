package export

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/notas-reader/internal/llm"
	"github.com/joseph-ayodele/notas-reader/internal/pipeline"
	"github.com/joseph-ayodele/notas-reader/internal/session"
)

const SheetName = "Notas"

// Service renders finished runs as an XLSX workbook, one row per run.
type Service struct {
	logger *slog.Logger
}

func NewService(logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{logger: logger}
}

// Headers returns the column titles in order.
func Headers() []string {
	h := []string{"Documento", "Concluído em", "Resultado"}
	h = append(h, llm.FieldLabels()...)
	return append(h, "Erro")
}

// ExportRunsXLSX writes the finished runs (oldest first). Runs still in
// flight are skipped. Field columns are filled from the parsed answer of
// extracted runs and left blank otherwise.
func (s *Service) ExportRunsXLSX(ctx context.Context, sessionID string, runs []session.RunSnapshot) ([]byte, error) {
	start := time.Now()

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName(f.GetSheetName(0), SheetName); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}

	headers := Headers()
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(SheetName, cell, h)
	}

	row := 2
	for _, r := range runs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if r.Outcome == nil {
			continue
		}
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(SheetName, cell, v)
		}

		out := r.Outcome
		write(1, out.DocumentName)
		write(2, r.FinishedAt.Format(time.RFC3339))
		write(3, string(out.Kind))
		if out.Kind == pipeline.OutcomeExtractedFields {
			for i, fld := range llm.ParseLabeledFields(out.Fields) {
				write(4+i, fld.Value)
			}
		}
		if out.Err != nil {
			write(len(headers), truncate(out.Err.Error(), 240))
		}
		row++
	}

	_ = f.SetColWidth(SheetName, "A", "A", 28) // document
	_ = f.SetColWidth(SheetName, "B", "C", 20)
	_ = f.SetColWidth(SheetName, "D", "K", 24) // fields
	_ = f.SetColWidth(SheetName, "L", "L", 60) // error

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	s.logger.Info("export.xlsx.ok",
		"session_id", sessionID,
		"rows", row-2,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if n <= 0 || len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
