package export

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/fatture-in-chat/constants"
	"github.com/joseph-ayodele/fatture-in-chat/internal/repository"
)

type stubLister struct {
	rows   []repository.ToolInvocation
	err    error
	filter repository.ListFilter
}

func (s *stubLister) List(_ context.Context, f repository.ListFilter) ([]repository.ToolInvocation, error) {
	s.filter = f
	return s.rows, s.err
}

func TestExportInvocationsXLSX(t *testing.T) {
	rome, err := time.LoadLocation("Europe/Rome")
	require.NoError(t, err)
	lister := &stubLister{rows: []repository.ToolInvocation{
		{
			RequestID: "req-1", ToolName: constants.ToolCreateInvoice, EntityID: "ent-1",
			Taxable: 2580, Tax: 567.6, Total: 3147.6, Outcome: constants.OutcomeSuccess,
			CreatedAt: time.Date(2026, 10, 14, 8, 0, 0, 0, time.UTC),
		},
		{
			RequestID: "req-2", ToolName: constants.ToolCreateExpense, EntityID: "ent-1",
			Outcome: constants.OutcomeFailure, Reason: strings.Repeat("x", 300),
			CreatedAt: time.Date(2026, 10, 14, 9, 0, 0, 0, time.UTC),
		},
	}}

	svc := NewService(lister, rome, slog.New(slog.NewTextHandler(io.Discard, nil)))
	out, err := svc.ExportInvocationsXLSX(context.Background(), repository.ListFilter{EntityID: "ent-1"})
	require.NoError(t, err)
	assert.Equal(t, "ent-1", lister.filter.EntityID)

	f, err := excelize.OpenReader(bytes.NewReader(out))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(sheetName)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "Data", rows[0][0])
	assert.Equal(t, "2026-10-14 10:00:00", rows[1][0])
	assert.Equal(t, "create_fattura", rows[1][1])
	assert.Equal(t, "SUCCESS", rows[1][3])
	assert.Equal(t, "3147.6", rows[1][6])
	assert.Equal(t, "FAILURE", rows[2][3])
	assert.Len(t, []rune(rows[2][7]), 200)
}

func TestExportPropagatesListError(t *testing.T) {
	svc := NewService(&stubLister{err: errors.New("db closed")}, nil, nil)
	_, err := svc.ExportInvocationsXLSX(context.Background(), repository.ListFilter{})
	assert.Error(t, err)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", Truncate("abc", 5))
	assert.Equal(t, "àbc…", Truncate("àbcdef", 4))
	assert.Equal(t, "à", Truncate("àbc", 1))
	assert.Equal(t, "àbc", Truncate("àbc", 0))
	assert.Equal(t, "àbc", Truncate("àbc", -1))
}
