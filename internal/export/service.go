package export

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/fatture-in-chat/internal/repository"
)

const sheetName = "Operazioni"

// InvocationLister reads audit rows.
type InvocationLister interface {
	List(ctx context.Context, filter repository.ListFilter) ([]repository.ToolInvocation, error)
}

// Service produces XLSX bytes from the tool invocation audit trail.
type Service struct {
	repo   InvocationLister
	loc    *time.Location
	logger *slog.Logger
}

func NewService(repo InvocationLister, loc *time.Location, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Service{repo: repo, loc: loc, logger: logger}
}

// ExportInvocationsXLSX returns an XLSX workbook (as bytes) of the audit rows
// matching filter, newest first. Timestamps are rendered in the service location.
func (s *Service) ExportInvocationsXLSX(ctx context.Context, filter repository.ListFilter) ([]byte, error) {
	start := time.Now()

	rows, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("query tool invocations: %w", err)
	}

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()
	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return nil, err
	}
	activeIndex, _ := f.GetSheetIndex(sheetName)
	f.SetActiveSheet(activeIndex)

	headers := []string{
		"Data",
		"Strumento",
		"Entità",
		"Esito",
		"Imponibile",
		"IVA",
		"Totale",
		"Motivo",
		"Request ID",
	}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheetName, cell, h)
	}

	row := 2
	for _, r := range rows {
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(sheetName, cell, v)
		}

		write(1, r.CreatedAt.In(s.loc).Format("2006-01-02 15:04:05"))
		write(2, r.ToolName)
		write(3, r.EntityID)
		write(4, string(r.Outcome))
		write(5, r.Taxable)
		write(6, r.Tax)
		write(7, r.Total)
		write(8, Truncate(r.Reason, 200))
		write(9, r.RequestID)

		row++
	}

	// Widen a few columns
	_ = f.SetColWidth(sheetName, "A", "A", 20) // date
	_ = f.SetColWidth(sheetName, "B", "C", 18) // tool, entity
	_ = f.SetColWidth(sheetName, "E", "G", 14) // amounts
	_ = f.SetColWidth(sheetName, "H", "H", 60) // reason
	_ = f.SetColWidth(sheetName, "I", "I", 38) // request id

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	s.logger.Info("export.xlsx.ok",
		"entity_id", filter.EntityID,
		"rows", len(rows),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

// Truncate shortens s to at most n runes, marking the cut with an ellipsis.
// A non-positive n leaves s unchanged.
func Truncate(s string, n int) string {
	r := []rune(s)
	if n <= 0 || len(r) <= n {
		return s
	}
	if n <= 1 {
		return string(r[:n])
	}
	return string(r[:n-1]) + "…"
}
