package constants

// RequestType is the document-type discriminator accepted by the requests endpoint.
type RequestType string

const (
	RequestTypeInvoice RequestType = "fattura"
	RequestTypeExpense RequestType = "costo"
)

// Tool names exposed to the model.
const (
	ToolCreateInvoice = "create_fattura"
	ToolCreateExpense = "create_costo"
)

// DefaultVATRate is the Italian ordinary VAT rate in percentage points.
const DefaultVATRate = 22

// UnknownEntityName is shown when an entity has no display name.
const UnknownEntityName = "entità sconosciuta"
