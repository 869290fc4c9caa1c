package chat

import (
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/joseph-ayodele/fatture-in-chat/constants"
	"github.com/joseph-ayodele/fatture-in-chat/internal/common"
	"github.com/joseph-ayodele/fatture-in-chat/internal/llm"
	"github.com/joseph-ayodele/fatture-in-chat/internal/tools"
)

const (
	apologyNoResponse = "Mi dispiace, non sono riuscito a elaborare una risposta. Riprova o riformula la richiesta."
	apologySummary    = "Mi scuso, non sono riuscito a completare la risposta: questo è un riepilogo automatico dell'operazione."
	streamErrorLine   = "\n\nSi è verificato un errore durante la generazione della risposta. Riprova tra qualche istante."
)

// StreamErrorLine is appended to a response that fails after streaming started.
func StreamErrorLine() string { return streamErrorLine }

// FallbackNarration is the deterministic text emitted when the model does not
// narrate. It summarizes last when set and always ends with an apology.
func FallbackNarration(last *tools.Result) string {
	if last == nil {
		return apologyNoResponse
	}
	var b strings.Builder
	if last.OK() {
		writeSuccess(&b, last.Success)
	} else {
		b.WriteString("Non è stato possibile completare l'operazione: ")
		b.WriteString(strings.TrimRight(last.Reason(), ". "))
		b.WriteString(".\n")
	}
	b.WriteString("\n")
	b.WriteString(apologySummary)
	return b.String()
}

func writeSuccess(b *strings.Builder, s *tools.Success) {
	p := message.NewPrinter(language.Italian)

	if s.Kind == constants.RequestTypeExpense {
		p.Fprintf(b, "Ho registrato la spesa n. %s di %s per %s.\n", s.InvoiceNumber, s.Counterpart, s.EntityName)
	} else {
		p.Fprintf(b, "Ho creato la fattura n. %s per %s a nome di %s.\n", s.InvoiceNumber, s.Counterpart, s.EntityName)
	}
	p.Fprintf(b, "- Imponibile: %.2f €\n", s.TaxableAmount)
	p.Fprintf(b, "- IVA (%v%%): %.2f €\n", s.TaxRate, s.TaxAmount)
	p.Fprintf(b, "- Totale: %.2f €\n", s.GrandTotal)
	if s.DeductibleAmount != nil {
		p.Fprintf(b, "- Importo deducibile: %.2f €\n", *s.DeductibleAmount)
	}
	if d := italianDate(s.IssueDate); d != "" {
		b.WriteString("- Data: " + d + "\n")
	}
	if d := italianDate(s.DueDate); d != "" {
		b.WriteString("- Scadenza: " + d + "\n")
	}
	b.WriteString("Trovi il documento nella sezione \"Richieste\".\n")
}

func italianDate(iso string) string {
	if iso == "" {
		return ""
	}
	t, err := common.ParseISODate(iso)
	if err != nil {
		return iso
	}
	return llm.FormatItalianDate(t)
}
