package llm

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sprintf(format string, args ...any) string { return fmt.Sprintf(format, args...) }

func discardLogger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func TestNormalizeToolArguments(t *testing.T) {
	raw := `{
		"debitore": {"denominazione": "  Larin Srl ", "pec": "", "fax": "02 123"},
		"numeroFattura": " 12 ",
		"note": null,
		"imponibile": "2580",
		"modalitaPagamento": "bonifico",
		"iva": 567.6
	}`
	out, dropped, err := NormalizeToolArguments(BuildInvoiceJSONSchema(), []byte(raw), discardLogger())
	require.NoError(t, err)

	var m map[string]any
	require.NoError(t, json.Unmarshal(out, &m))

	assert.Equal(t, "12", m["numeroFattura"])
	assert.Equal(t, "Bonifico bancario", m["modalitaPagamento"])
	assert.Equal(t, "2580", m["imponibile"], "strings are never coerced to numbers")
	assert.NotContains(t, m, "note")
	assert.NotContains(t, m, "iva")

	deb := m["debitore"].(map[string]any)
	assert.Equal(t, "Larin Srl", deb["denominazione"])
	assert.NotContains(t, deb, "pec")
	assert.NotContains(t, deb, "fax")

	assert.ElementsMatch(t, []string{"debitore.fax(unknown)", "debitore.pec(empty)", "iva(unknown)", "note(null)"}, dropped)
}

func TestNormalizeToolArguments_InvalidJSON(t *testing.T) {
	_, _, err := NormalizeToolArguments(BuildInvoiceJSONSchema(), []byte(`{"a":`), discardLogger())
	assert.Error(t, err)
}
