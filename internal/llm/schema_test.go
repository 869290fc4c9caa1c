package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validInvoiceArgs = `{
	"debitore": {"denominazione": "Larin Srl", "indirizzo": "Via Roma 1", "cap": "20100", "citta": "Milano", "provincia": "MI"},
	"numeroFattura": "12/2026",
	"dataEmissione": "2026-10-14",
	"dataScadenza": "2026-11-13",
	"imponibile": 2580,
	"percentualeIva": 22,
	"oggetto": "Consulenza",
	"modalitaPagamento": "Bonifico bancario",
	"entity_id": "ent-1"
}`

func TestInvoiceSchema_AcceptsCompleteArguments(t *testing.T) {
	require.NoError(t, ValidateJSONAgainstSchema(BuildInvoiceJSONSchema(), []byte(validInvoiceArgs)))
}

func TestInvoiceSchema_Rejections(t *testing.T) {
	schema, err := CompileSchema(BuildInvoiceJSONSchema())
	require.NoError(t, err)

	cases := map[string]string{
		"amount as string": `{"debitore":{"denominazione":"A","indirizzo":"B","cap":"1","citta":"C","provincia":"D"},"numeroFattura":"1","dataEmissione":"2026-10-14","dataScadenza":"2026-11-13","imponibile":"2.580,00","percentualeIva":22,"oggetto":"x","modalitaPagamento":"Contanti","entity_id":"e"}`,
		"missing entity":   `{"debitore":{"denominazione":"A","indirizzo":"B","cap":"1","citta":"C","provincia":"D"},"numeroFattura":"1","dataEmissione":"2026-10-14","dataScadenza":"2026-11-13","imponibile":10,"percentualeIva":22,"oggetto":"x","modalitaPagamento":"Contanti"}`,
		"bad date":         `{"debitore":{"denominazione":"A","indirizzo":"B","cap":"1","citta":"C","provincia":"D"},"numeroFattura":"1","dataEmissione":"14/10/2026","dataScadenza":"2026-11-13","imponibile":10,"percentualeIva":22,"oggetto":"x","modalitaPagamento":"Contanti","entity_id":"e"}`,
		"negative amount":  `{"debitore":{"denominazione":"A","indirizzo":"B","cap":"1","citta":"C","provincia":"D"},"numeroFattura":"1","dataEmissione":"2026-10-14","dataScadenza":"2026-11-13","imponibile":-1,"percentualeIva":22,"oggetto":"x","modalitaPagamento":"Contanti","entity_id":"e"}`,
		"unknown key":      `{"debitore":{"denominazione":"A","indirizzo":"B","cap":"1","citta":"C","provincia":"D"},"numeroFattura":"1","dataEmissione":"2026-10-14","dataScadenza":"2026-11-13","imponibile":10,"percentualeIva":22,"oggetto":"x","modalitaPagamento":"Contanti","entity_id":"e","iva":2.2}`,
		"missing debtor":   `{"numeroFattura":"1","dataEmissione":"2026-10-14","dataScadenza":"2026-11-13","imponibile":10,"percentualeIva":22,"oggetto":"x","modalitaPagamento":"Contanti","entity_id":"e"}`,
	}
	for name, args := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Error(t, ValidateJSON(schema, []byte(args)))
		})
	}
}

func TestExpenseSchema_DeductibilityBounds(t *testing.T) {
	args := `{"fornitore":{"denominazione":"Enel"},"numeroDocumento":"F-1","dataDocumento":"2026-10-01","tipoDocumento":"Bolletta","imponibile":100,"percentualeIva":22,"categoria":"Utenze","oggetto":"Luce","modalitaPagamento":"Addebito diretto SEPA","percentualeDeducibilita":%s,"entity_id":"e"}`
	schema, err := CompileSchema(BuildExpenseJSONSchema())
	require.NoError(t, err)

	assert.NoError(t, ValidateJSON(schema, []byte(sprintf(args, "50"))))
	assert.Error(t, ValidateJSON(schema, []byte(sprintf(args, "150"))))
}

func TestToolDefinitions(t *testing.T) {
	inv := CreateInvoiceTool()
	assert.Equal(t, "create_fattura", inv.Name)
	assert.Equal(t, false, inv.Parameters["additionalProperties"])

	exp := CreateExpenseTool()
	assert.Equal(t, "create_costo", exp.Name)
	assert.Contains(t, exp.Parameters["required"], "percentualeDeducibilita")
}
