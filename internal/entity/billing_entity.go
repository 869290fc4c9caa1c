package entity

import "time"

// EntityRole is the relationship between the user and a billing entity.
type EntityRole string

const (
	RoleOwner        EntityRole = "owner"
	RoleCollaborator EntityRole = "collaborator"
)

// BillingEntityBody holds the free-form attributes stored with an entity.
type BillingEntityBody struct {
	PartitaIVA string `json:"partita_iva,omitempty"`
	Tipo       string `json:"tipo,omitempty"`
}

// BillingEntity is an organization the user may issue invoices or expenses for.
type BillingEntity struct {
	ID        string            `json:"id"`
	Name      string            `json:"name"`
	Role      EntityRole        `json:"role"`
	Body      BillingEntityBody `json:"body"`
	CreatedAt *time.Time        `json:"created_at,omitempty"`
	UpdatedAt *time.Time        `json:"updated_at,omitempty"`
}

// TaxID returns the entity's partita IVA, if any.
func (e BillingEntity) TaxID() string { return e.Body.PartitaIVA }

// FindEntity returns the entity with the given id.
func FindEntity(entities []BillingEntity, id string) (BillingEntity, bool) {
	for _, e := range entities {
		if e.ID == id {
			return e, true
		}
	}
	return BillingEntity{}, false
}
