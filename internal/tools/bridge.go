package tools

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/joseph-ayodele/fatture-in-chat/constants"
	"github.com/joseph-ayodele/fatture-in-chat/internal/backend"
	"github.com/joseph-ayodele/fatture-in-chat/internal/common"
	"github.com/joseph-ayodele/fatture-in-chat/internal/entity"
	"github.com/joseph-ayodele/fatture-in-chat/internal/invoice"
)

// RequestCreator persists a creation request on the collaborator.
type RequestCreator interface {
	CreateRequest(ctx context.Context, creds backend.Credentials, in backend.CreateRequestInput) (json.RawMessage, error)
}

// Bridge turns validated tool arguments into persisted documents. It never
// retries: a failed call is reported to the model, which tells the user.
type Bridge struct {
	creator RequestCreator
	logger  *slog.Logger
}

func NewBridge(creator RequestCreator, logger *slog.Logger) *Bridge {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bridge{creator: creator, logger: logger}
}

// CreateInvoice computes the invoice totals and stores it for the chosen entity.
func (b *Bridge) CreateInvoice(ctx context.Context, d invoice.InvoiceDraft, entities []entity.BillingEntity, creds backend.Credentials) Result {
	ent, fail := resolveEntity(d.EntityID, entities)
	if fail != nil {
		return *fail
	}

	v := common.NewValidator().
		Field("dataEmissione", d.DataEmissione, common.Required, common.ISODate).
		Field("dataScadenza", d.DataScadenza, common.Required, common.ISODate).
		Field("imponibile", d.Imponibile, common.NonNegative).
		Field("percentualeIva", d.PercentualeIva, common.NonNegative)
	if !v.HasErrors() {
		issue, _ := common.ParseISODate(d.DataEmissione)
		due, _ := common.ParseISODate(d.DataScadenza)
		v.Check(!due.Before(issue), "dataScadenza", d.DataScadenza, "non può precedere la data di emissione")
	}
	if v.HasErrors() {
		return Failedf("Dati della fattura non validi: %s", v.ErrorMessage())
	}

	totals := invoice.ComputeTotals(d.Imponibile, d.PercentualeIva)
	body := invoice.NewFatturaBody(d, totals)

	if fail := b.persist(ctx, creds, constants.RequestTypeInvoice, body, ent.ID); fail != nil {
		return *fail
	}

	b.logger.Info("tools.invoice.created",
		"req_id", common.RequestIDFromContext(ctx),
		"entity_id", ent.ID,
		"numero", d.NumeroFattura,
		"imponibile", body.Imponibile,
		"iva", body.Iva,
		"totale", body.ImportoTotale,
	)
	return Succeeded(Success{
		Kind:          constants.RequestTypeInvoice,
		Message:       "Fattura creata con successo",
		EntityName:    ent.Name,
		InvoiceNumber: d.NumeroFattura,
		Counterpart:   d.Debitore.Denominazione,
		TaxableAmount: body.Imponibile,
		TaxRate:       body.PercentualeIva,
		TaxAmount:     body.Iva,
		GrandTotal:    body.ImportoTotale,
		IssueDate:     d.DataEmissione,
		DueDate:       d.DataScadenza,
	})
}

// CreateExpense computes the expense totals and deductible share and stores it.
func (b *Bridge) CreateExpense(ctx context.Context, d invoice.ExpenseDraft, entities []entity.BillingEntity, creds backend.Credentials) Result {
	ent, fail := resolveEntity(d.EntityID, entities)
	if fail != nil {
		return *fail
	}

	v := common.NewValidator().
		Field("dataDocumento", d.DataDocumento, common.Required, common.ISODate).
		Field("imponibile", d.Imponibile, common.NonNegative).
		Field("percentualeIva", d.PercentualeIva, common.NonNegative)
	if strings.TrimSpace(d.DataPagamento) != "" {
		v.Field("dataPagamento", d.DataPagamento, common.ISODate)
	}
	v.Check(d.PercentualeDeducibilita >= 0 && d.PercentualeDeducibilita <= 100,
		"percentualeDeducibilita", d.PercentualeDeducibilita, "deve essere compresa tra 0 e 100")
	if v.HasErrors() {
		return Failedf("Dati della spesa non validi: %s", v.ErrorMessage())
	}

	totals := invoice.ComputeTotals(d.Imponibile, d.PercentualeIva)
	deductible := invoice.Deductible(totals.Total, decimal.NewFromFloat(d.PercentualeDeducibilita)).InexactFloat64()
	body := invoice.NewCostoBody(d, totals, deductible)

	if fail := b.persist(ctx, creds, constants.RequestTypeExpense, body, ent.ID); fail != nil {
		return *fail
	}

	b.logger.Info("tools.expense.created",
		"req_id", common.RequestIDFromContext(ctx),
		"entity_id", ent.ID,
		"numero", d.NumeroDocumento,
		"imponibile", body.Imponibile,
		"iva", body.Iva,
		"totale", body.ImportoTotale,
		"deducibile", deductible,
	)
	return Succeeded(Success{
		Kind:             constants.RequestTypeExpense,
		Message:          "Spesa registrata con successo",
		EntityName:       ent.Name,
		InvoiceNumber:    d.NumeroDocumento,
		Counterpart:      d.Fornitore.Denominazione,
		TaxableAmount:    body.Imponibile,
		TaxRate:          body.PercentualeIva,
		TaxAmount:        body.Iva,
		GrandTotal:       body.ImportoTotale,
		IssueDate:        d.DataDocumento,
		DeductibleAmount: &deductible,
	})
}

func (b *Bridge) persist(ctx context.Context, creds backend.Credentials, kind constants.RequestType, body any, entityID string) *Result {
	start := time.Now()
	_, err := b.creator.CreateRequest(ctx, creds, backend.CreateRequestInput{Type: kind, Body: body, EntityID: entityID})
	if err == nil {
		return nil
	}

	b.logger.Error("tools.persist.failed",
		"req_id", common.RequestIDFromContext(ctx),
		"type", kind,
		"entity_id", entityID,
		"error", err,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	var apiErr *backend.APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		r := Failedf("Errore durante il salvataggio: %s", apiErr.Message)
		return &r
	}
	if errors.As(err, &apiErr) {
		r := Failedf("Errore durante il salvataggio (stato %d)", apiErr.Status)
		return &r
	}
	r := Failed("Errore di comunicazione con il servizio di salvataggio")
	return &r
}

func resolveEntity(id string, entities []entity.BillingEntity) (entity.BillingEntity, *Result) {
	if len(entities) == 0 {
		r := Failed("Nessuna entità disponibile: crea prima un'entità per poter emettere documenti")
		return entity.BillingEntity{}, &r
	}
	if strings.TrimSpace(id) == "" {
		r := Failed("entity_id mancante: chiedi all'utente per quale entità emettere il documento")
		return entity.BillingEntity{}, &r
	}
	ent, ok := entity.FindEntity(entities, id)
	if !ok {
		r := Failedf("L'entità %q non è tra le entità disponibili per l'utente", id)
		return entity.BillingEntity{}, &r
	}
	if strings.TrimSpace(ent.Name) == "" {
		ent.Name = constants.UnknownEntityName
	}
	return ent, nil
}
