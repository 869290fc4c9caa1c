package constants

import "strings"

// PaymentMethods lists the payment methods offered by the UI forms.
var PaymentMethods = []string{
	"Bonifico bancario",
	"Contrassegno",
	"Carta di credito",
	"Assegno",
	"Contanti",
	"Paypal",
	"Addebito diretto SEPA",
	"Altro",
}

// FiscalRegimes lists the supported regime labels.
var FiscalRegimes = []string{
	"Regime ordinario",
	"Regime forfettario",
	"Regime dei minimi",
	"Regime fiscale di vantaggio",
	"Altro",
}

// ExpenseCategories lists the expense classification buckets.
var ExpenseCategories = []string{
	"Consulenze professionali",
	"Materiali e forniture",
	"Trasporti e logistica",
	"Utenze (energia, gas, acqua)",
	"Affitti e canoni",
	"Marketing e pubblicità",
	"Formazione e corsi",
	"Spese generali",
	"Manutenzioni e riparazioni",
	"Assicurazioni",
	"Tasse e imposte",
	"Spese bancarie",
	"Altro",
}

// DocumentTypes lists the kinds of expense documents.
var DocumentTypes = []string{
	"Fattura",
	"Ricevuta fiscale",
	"Scontrino fiscale",
	"Nota spese",
	"Parcella professionale",
	"Bolletta",
	"Canone",
	"Altro",
}

// CanonicalPaymentMethod maps free text onto a known payment method, case-insensitively.
// Unknown values are returned trimmed and unchanged.
func CanonicalPaymentMethod(input string) (string, bool) {
	normalized := strings.ToLower(strings.TrimSpace(input))
	if normalized == "" {
		return "", false
	}

	synonyms := map[string]string{
		"bonifico":      "Bonifico bancario",
		"bank transfer": "Bonifico bancario",
		"carta":         "Carta di credito",
		"sepa":          "Addebito diretto SEPA",
		"rid":           "Addebito diretto SEPA",
		"contante":      "Contanti",
		"paypal":        "Paypal",
	}
	if pm, ok := synonyms[normalized]; ok {
		return pm, true
	}
	for _, pm := range PaymentMethods {
		if normalized == strings.ToLower(pm) {
			return pm, true
		}
	}
	return strings.TrimSpace(input), false
}
