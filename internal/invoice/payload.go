package invoice

// Debitore is the customer that owes the invoice.
type Debitore struct {
	Denominazione      string `json:"denominazione"`
	PartitaIva         string `json:"partitaIva,omitempty"`
	CodiceFiscale      string `json:"codiceFiscale,omitempty"`
	Indirizzo          string `json:"indirizzo"`
	Cap                string `json:"cap"`
	Citta              string `json:"citta"`
	Provincia          string `json:"provincia"`
	Pec                string `json:"pec,omitempty"`
	CodiceDestinatario string `json:"codiceDestinatario,omitempty"` // SDI routing code
}

// InvoiceDraft is the argument set of the create_fattura tool.
type InvoiceDraft struct {
	Debitore          Debitore `json:"debitore"`
	NumeroFattura     string   `json:"numeroFattura"`
	DataEmissione     string   `json:"dataEmissione"` // YYYY-MM-DD
	DataScadenza      string   `json:"dataScadenza"`  // YYYY-MM-DD
	Imponibile        float64  `json:"imponibile"`
	PercentualeIva    float64  `json:"percentualeIva"`
	Oggetto           string   `json:"oggetto"`
	Descrizione       string   `json:"descrizione,omitempty"`
	ModalitaPagamento string   `json:"modalitaPagamento"`
	Causale           string   `json:"causale,omitempty"`
	Note              string   `json:"note,omitempty"`
	RegimeFiscale     string   `json:"regimeFiscale,omitempty"`
	EntityID          string   `json:"entity_id"`
}

// FatturaBody is the invoice record stored by the persistence collaborator.
type FatturaBody struct {
	Debitore          Debitore `json:"debitore"`
	NumeroFattura     string   `json:"numeroFattura"`
	DataEmissione     string   `json:"dataEmissione"`
	DataScadenza      string   `json:"dataScadenza"`
	Imponibile        float64  `json:"imponibile"`
	Iva               float64  `json:"iva"`
	PercentualeIva    float64  `json:"percentualeIva"`
	ImportoTotale     float64  `json:"importoTotale"`
	Oggetto           string   `json:"oggetto"`
	Descrizione       string   `json:"descrizione,omitempty"`
	ModalitaPagamento string   `json:"modalitaPagamento"`
	Causale           string   `json:"causale,omitempty"`
	Note              string   `json:"note,omitempty"`
	RegimeFiscale     string   `json:"regimeFiscale,omitempty"`
}

// NewFatturaBody assembles the stored record from a draft and its totals.
func NewFatturaBody(d InvoiceDraft, t Totals) FatturaBody {
	return FatturaBody{
		Debitore:          d.Debitore,
		NumeroFattura:     d.NumeroFattura,
		DataEmissione:     d.DataEmissione,
		DataScadenza:      d.DataScadenza,
		Imponibile:        t.Taxable.InexactFloat64(),
		Iva:               t.Tax.InexactFloat64(),
		PercentualeIva:    d.PercentualeIva,
		ImportoTotale:     t.Total.InexactFloat64(),
		Oggetto:           d.Oggetto,
		Descrizione:       d.Descrizione,
		ModalitaPagamento: d.ModalitaPagamento,
		Causale:           d.Causale,
		Note:              d.Note,
		RegimeFiscale:     d.RegimeFiscale,
	}
}

// Fornitore is the supplier of an expense document.
type Fornitore struct {
	Denominazione string `json:"denominazione"`
	PartitaIva    string `json:"partitaIva,omitempty"`
	CodiceFiscale string `json:"codiceFiscale,omitempty"`
	Indirizzo     string `json:"indirizzo,omitempty"`
	Cap           string `json:"cap,omitempty"`
	Citta         string `json:"citta,omitempty"`
	Provincia     string `json:"provincia,omitempty"`
}

// ExpenseDraft is the argument set of the create_costo tool.
type ExpenseDraft struct {
	Fornitore               Fornitore `json:"fornitore"`
	NumeroDocumento         string    `json:"numeroDocumento"`
	DataDocumento           string    `json:"dataDocumento"`
	TipoDocumento           string    `json:"tipoDocumento"`
	Imponibile              float64   `json:"imponibile"`
	PercentualeIva          float64   `json:"percentualeIva"`
	Categoria               string    `json:"categoria"`
	Sottocategoria          string    `json:"sottocategoria,omitempty"`
	Oggetto                 string    `json:"oggetto"`
	Descrizione             string    `json:"descrizione,omitempty"`
	ModalitaPagamento       string    `json:"modalitaPagamento"`
	DataPagamento           string    `json:"dataPagamento,omitempty"`
	PercentualeDeducibilita float64   `json:"percentualeDeducibilita"`
	CentroCosto             string    `json:"centroCosto,omitempty"`
	Progetto                string    `json:"progetto,omitempty"`
	Note                    string    `json:"note,omitempty"`
	EntityID                string    `json:"entity_id"`
}

// Deducibilita is the tax-deductible share of an expense.
type Deducibilita struct {
	Percentuale       float64 `json:"percentuale"`
	ImportoDeducibile float64 `json:"importoDeducibile"`
	Note              string  `json:"note,omitempty"`
}

// CostoBody is the expense record stored by the persistence collaborator.
type CostoBody struct {
	Fornitore         Fornitore    `json:"fornitore"`
	NumeroDocumento   string       `json:"numeroDocumento"`
	DataDocumento     string       `json:"dataDocumento"`
	TipoDocumento     string       `json:"tipoDocumento"`
	Imponibile        float64      `json:"imponibile"`
	Iva               float64      `json:"iva"`
	PercentualeIva    float64      `json:"percentualeIva"`
	ImportoTotale     float64      `json:"importoTotale"`
	Categoria         string       `json:"categoria"`
	Sottocategoria    string       `json:"sottocategoria,omitempty"`
	Oggetto           string       `json:"oggetto"`
	Descrizione       string       `json:"descrizione,omitempty"`
	ModalitaPagamento string       `json:"modalitaPagamento"`
	DataPagamento     string       `json:"dataPagamento,omitempty"`
	Deducibilita      Deducibilita `json:"deducibilita"`
	CentroCosto       string       `json:"centroCosto,omitempty"`
	Progetto          string       `json:"progetto,omitempty"`
	Note              string       `json:"note,omitempty"`
}

// NewCostoBody assembles the stored expense from a draft, its totals and the
// deductible amount.
func NewCostoBody(d ExpenseDraft, t Totals, deductible float64) CostoBody {
	return CostoBody{
		Fornitore:         d.Fornitore,
		NumeroDocumento:   d.NumeroDocumento,
		DataDocumento:     d.DataDocumento,
		TipoDocumento:     d.TipoDocumento,
		Imponibile:        t.Taxable.InexactFloat64(),
		Iva:               t.Tax.InexactFloat64(),
		PercentualeIva:    d.PercentualeIva,
		ImportoTotale:     t.Total.InexactFloat64(),
		Categoria:         d.Categoria,
		Sottocategoria:    d.Sottocategoria,
		Oggetto:           d.Oggetto,
		Descrizione:       d.Descrizione,
		ModalitaPagamento: d.ModalitaPagamento,
		DataPagamento:     d.DataPagamento,
		Deducibilita: Deducibilita{
			Percentuale:       d.PercentualeDeducibilita,
			ImportoDeducibile: deductible,
		},
		CentroCosto: d.CentroCosto,
		Progetto:    d.Progetto,
		Note:        d.Note,
	}
}
