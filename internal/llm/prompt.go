package llm

import (
	"fmt"
	"strings"
	"time"

	"github.com/joseph-ayodele/fatture-in-chat/internal/entity"
)

var (
	italianWeekdays = [...]string{"domenica", "lunedì", "martedì", "mercoledì", "giovedì", "venerdì", "sabato"}
	italianMonths   = [...]string{"gennaio", "febbraio", "marzo", "aprile", "maggio", "giugno", "luglio", "agosto", "settembre", "ottobre", "novembre", "dicembre"}
)

// invoiceChecklist is the mandatory-field list for create_fattura.
var invoiceChecklist = []string{
	"Denominazione del cliente",
	"Indirizzo completo del cliente (via, CAP, città, provincia)",
	"Numero fattura",
	"Data di emissione e data di scadenza",
	"Importo imponibile",
	"Percentuale IVA",
	"Oggetto/descrizione",
	"Modalità di pagamento",
	"Entità emittente (entity_id)",
}

// expenseChecklist is the mandatory-field list for create_costo.
var expenseChecklist = []string{
	"Denominazione del fornitore",
	"Numero, data e tipo del documento",
	"Importo imponibile e percentuale IVA",
	"Categoria della spesa",
	"Oggetto",
	"Modalità di pagamento",
	"Percentuale di deducibilità",
	"Entità (entity_id)",
}

// FormatItalianDateTime renders t like "martedì 14 ottobre 2026, ore 10:30".
func FormatItalianDateTime(t time.Time) string {
	return fmt.Sprintf("%s %d %s %d, ore %02d:%02d",
		italianWeekdays[t.Weekday()], t.Day(), italianMonths[t.Month()-1], t.Year(), t.Hour(), t.Minute())
}

// FormatItalianDate renders t like "14 ottobre 2026".
func FormatItalianDate(t time.Time) string {
	return fmt.Sprintf("%d %s %d", t.Day(), italianMonths[t.Month()-1], t.Year())
}

// ComposeSystemPrompt builds the system instructions for a conversation turn.
// The output depends only on its arguments: the same entities and instant
// always produce the same bytes.
func ComposeSystemPrompt(entities []entity.BillingEntity, now time.Time) string {
	var b strings.Builder

	b.WriteString("Sei un assistente AI specializzato nella gestione di fatture e spese per imprese e professionisti in Italia, per il servizio \"Fatture in Chat\".\n\n")

	b.WriteString("DATA E ORA CORRENTI: ")
	b.WriteString(FormatItalianDateTime(now))
	b.WriteString(" (")
	b.WriteString(now.Location().String())
	b.WriteString("). Data di oggi in formato ISO: ")
	b.WriteString(now.Format("2006-01-02"))
	b.WriteString(". Usala per risolvere date relative come \"scadenza 30 giorni\" o \"fine mese\".\n\n")

	b.WriteString("Il tuo compito è aiutare gli utenti a:\n")
	b.WriteString("- Creare fatture con tutti i dati necessari\n")
	b.WriteString("- Registrare spese e costi\n")
	b.WriteString("- Spiegare il calcolo di IVA e totali\n")
	b.WriteString("- Fornire supporto sulla normativa fiscale italiana\n\n")

	b.WriteString("DATI OBBLIGATORI per una fattura:\n")
	writeList(&b, invoiceChecklist)
	b.WriteString("\nDATI OBBLIGATORI per una spesa:\n")
	writeList(&b, expenseChecklist)

	b.WriteString("\nREGOLE:\n")
	b.WriteString("- Rispondi sempre in italiano, in modo preciso e professionale.\n")
	b.WriteString("- Usa sempre il formato ISO per le date (YYYY-MM-DD).\n")
	b.WriteString("- Se manca anche un solo dato obbligatorio, chiedilo all'utente: non inventarlo e non chiamare il tool.\n")
	b.WriteString("- Riepiloga i dati raccolti e chiedi conferma prima di creare il documento.\n")
	b.WriteString("- Negli argomenti dei tool gli importi sono numeri (es. 2580.5), mai stringhe con simboli di valuta o separatori delle migliaia.\n")
	b.WriteString("- IVA e totale sono calcolati dal sistema a partire da imponibile e percentuale IVA.\n")
	b.WriteString("- SEMPRE dopo aver eseguito un tool, riporta all'utente l'esito (successo o errore) con i dettagli restituiti dal tool.\n\n")

	writeEntitySection(&b, entities)

	b.WriteString("\nFORMATO RISPOSTA dopo la creazione di un documento:\n")
	b.WriteString("1. Il risultato dell'operazione (successo o errore)\n")
	b.WriteString("2. I dettagli del documento: numero, cliente o fornitore, imponibile, IVA, totale, date\n")
	b.WriteString("3. Dove trovarlo: la sezione \"Richieste\"\n")

	return b.String()
}

func writeEntitySection(b *strings.Builder, entities []entity.BillingEntity) {
	if len(entities) == 0 {
		b.WriteString("ENTITÀ DISPONIBILI: nessuna.\n")
		b.WriteString("L'utente non ha ancora configurato alcuna entità (azienda o professionista) per cui emettere documenti. ")
		b.WriteString("NON puoi creare fatture né spese: spiega all'utente che deve prima creare un'entità dalla sezione dedicata e poi tornare in chat.\n")
		return
	}

	b.WriteString("ENTITÀ DISPONIBILI:\n")
	for _, e := range entities {
		fmt.Fprintf(b, "- %s (id: %s, ruolo: %s, P.IVA: %s)\n",
			orNA(e.Name), e.ID, orNA(string(e.Role)), orNA(e.TaxID()))
	}
	b.WriteString("Il campo entity_id è OBBLIGATORIO in ogni chiamata ai tool di creazione e deve essere uno degli id elencati.\n")
	if len(entities) == 1 {
		fmt.Fprintf(b, "È disponibile una sola entità: usala automaticamente senza chiedere, ma informa l'utente che il documento verrà emesso per \"%s\".\n", orNA(entities[0].Name))
		return
	}
	b.WriteString("Sono disponibili più entità: se l'utente non ha indicato esplicitamente per quale entità emettere il documento, chiedigli di sceglierne una prima di chiamare il tool.\n")
}

func writeList(b *strings.Builder, items []string) {
	for _, it := range items {
		b.WriteString("- ")
		b.WriteString(it)
		b.WriteString("\n")
	}
}

func orNA(s string) string {
	if strings.TrimSpace(s) == "" {
		return "n/d"
	}
	return s
}
