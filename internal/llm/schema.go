package llm

import (
	"strings"

	"github.com/joseph-ayodele/fatture-in-chat/constants"
)

const isoDatePattern = `^\d{4}-\d{2}-\d{2}$`

// BuildInvoiceJSONSchema returns the JSON-Schema of the create_fattura arguments.
// The same map is advertised to the model and used locally to validate.
func BuildInvoiceJSONSchema() map[string]any {
	debitore := map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"description":          "Dati del cliente (debitore)",
		"properties": map[string]any{
			"denominazione":      requiredString("Ragione sociale o nome e cognome del cliente"),
			"partitaIva":         optionalString("Partita IVA del cliente"),
			"codiceFiscale":      optionalString("Codice fiscale del cliente"),
			"indirizzo":          requiredString("Via e numero civico"),
			"cap":                requiredString("Codice di avviamento postale"),
			"citta":              requiredString("Città"),
			"provincia":          requiredString("Sigla della provincia, es. MI"),
			"pec":                optionalString("Indirizzo PEC"),
			"codiceDestinatario": optionalString("Codice destinatario SDI"),
		},
		"required": []string{"denominazione", "indirizzo", "cap", "citta", "provincia"},
	}

	props := map[string]any{
		"debitore":          debitore,
		"numeroFattura":     requiredString("Numero progressivo della fattura"),
		"dataEmissione":     dateProp("Data di emissione (YYYY-MM-DD)"),
		"dataScadenza":      dateProp("Data di scadenza del pagamento (YYYY-MM-DD)"),
		"imponibile":        amountProp("Importo imponibile in euro, come numero"),
		"percentualeIva":    amountProp("Aliquota IVA in percentuale, es. 22"),
		"oggetto":           requiredString("Oggetto della fattura"),
		"descrizione":       optionalString("Descrizione dettagliata della prestazione"),
		"modalitaPagamento": requiredString("Modalità di pagamento. Valori ammessi: " + strings.Join(constants.PaymentMethods, ", ")),
		"causale":           optionalString("Causale del pagamento"),
		"note":              optionalString("Note aggiuntive"),
		"regimeFiscale":     optionalString("Regime fiscale. Valori ammessi: " + strings.Join(constants.FiscalRegimes, ", ")),
		"entity_id":         requiredString("Id dell'entità emittente, scelto tra le entità disponibili"),
	}
	required := []string{
		"debitore", "numeroFattura", "dataEmissione", "dataScadenza", "imponibile",
		"percentualeIva", "oggetto", "modalitaPagamento", "entity_id",
	}

	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties":           props,
		"required":             required,
	}
}

// BuildExpenseJSONSchema returns the JSON-Schema of the create_costo arguments.
func BuildExpenseJSONSchema() map[string]any {
	fornitore := map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"description":          "Dati del fornitore",
		"properties": map[string]any{
			"denominazione": requiredString("Ragione sociale del fornitore"),
			"partitaIva":    optionalString("Partita IVA del fornitore"),
			"codiceFiscale": optionalString("Codice fiscale del fornitore"),
			"indirizzo":     optionalString("Indirizzo del fornitore"),
			"cap":           optionalString("CAP"),
			"citta":         optionalString("Città"),
			"provincia":     optionalString("Provincia"),
		},
		"required": []string{"denominazione"},
	}

	deducibilita := amountProp("Percentuale di deducibilità del costo, da 0 a 100")
	deducibilita["maximum"] = 100

	props := map[string]any{
		"fornitore":               fornitore,
		"numeroDocumento":         requiredString("Numero del documento di spesa"),
		"dataDocumento":           dateProp("Data del documento (YYYY-MM-DD)"),
		"tipoDocumento":           requiredString("Tipo di documento. Valori ammessi: " + strings.Join(constants.DocumentTypes, ", ")),
		"imponibile":              amountProp("Importo imponibile in euro, come numero"),
		"percentualeIva":          amountProp("Aliquota IVA in percentuale, es. 22"),
		"categoria":               requiredString("Categoria della spesa. Valori ammessi: " + strings.Join(constants.ExpenseCategories, ", ")),
		"sottocategoria":          optionalString("Sottocategoria della spesa"),
		"oggetto":                 requiredString("Oggetto della spesa"),
		"descrizione":             optionalString("Descrizione della spesa"),
		"modalitaPagamento":       requiredString("Modalità di pagamento. Valori ammessi: " + strings.Join(constants.PaymentMethods, ", ")),
		"dataPagamento":           dateProp("Data del pagamento (YYYY-MM-DD)"),
		"percentualeDeducibilita": deducibilita,
		"centroCosto":             optionalString("Centro di costo"),
		"progetto":                optionalString("Progetto di riferimento"),
		"note":                    optionalString("Note aggiuntive"),
		"entity_id":               requiredString("Id dell'entità a cui imputare il costo"),
	}
	required := []string{
		"fornitore", "numeroDocumento", "dataDocumento", "tipoDocumento", "imponibile",
		"percentualeIva", "categoria", "oggetto", "modalitaPagamento",
		"percentualeDeducibilita", "entity_id",
	}

	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties":           props,
		"required":             required,
	}
}

// CreateInvoiceTool is the tool definition advertised for invoice creation.
func CreateInvoiceTool() ToolDefinition {
	return ToolDefinition{
		Name: constants.ToolCreateInvoice,
		Description: "Crea una nuova fattura per l'entità indicata. Chiamalo solo quando hai raccolto tutti i dati obbligatori " +
			"e l'utente ha confermato. IVA e totale vengono calcolati automaticamente.",
		Parameters: BuildInvoiceJSONSchema(),
	}
}

// CreateExpenseTool is the tool definition advertised for expense registration.
func CreateExpenseTool() ToolDefinition {
	return ToolDefinition{
		Name: constants.ToolCreateExpense,
		Description: "Registra un nuovo costo (spesa) per l'entità indicata. Chiamalo solo quando hai raccolto tutti i dati obbligatori " +
			"e l'utente ha confermato. IVA, totale e importo deducibile vengono calcolati automaticamente.",
		Parameters: BuildExpenseJSONSchema(),
	}
}

func requiredString(desc string) map[string]any {
	return map[string]any{"type": "string", "minLength": 1, "description": desc}
}

func optionalString(desc string) map[string]any {
	return map[string]any{"type": "string", "description": desc}
}

func dateProp(desc string) map[string]any {
	return map[string]any{"type": "string", "pattern": isoDatePattern, "description": desc}
}

func amountProp(desc string) map[string]any {
	return map[string]any{"type": "number", "minimum": 0, "description": desc}
}
