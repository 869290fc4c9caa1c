// Package tools executes the creation tools the model may call.
package tools

import (
	"encoding/json"
	"fmt"

	"github.com/joseph-ayodele/fatture-in-chat/constants"
)

// Success carries the figures of a persisted document back to the model.
type Success struct {
	Kind             constants.RequestType `json:"kind"`
	Message          string                `json:"message"`
	EntityName       string                `json:"entityName"`
	InvoiceNumber    string                `json:"invoiceNumber"`
	Counterpart      string                `json:"counterpart"`
	TaxableAmount    float64               `json:"taxableAmount"`
	TaxRate          float64               `json:"taxRate"`
	TaxAmount        float64               `json:"taxAmount"`
	GrandTotal       float64               `json:"grandTotal"`
	IssueDate        string                `json:"issueDate"`
	DueDate          string                `json:"dueDate,omitempty"`
	DeductibleAmount *float64              `json:"deductibleAmount,omitempty"`
}

// Failure explains why nothing was persisted.
type Failure struct {
	Reason string `json:"reason"`
}

// Result is the outcome of one tool call. Exactly one of Success and Failure is set.
type Result struct {
	Success *Success
	Failure *Failure
}

func Succeeded(s Success) Result { return Result{Success: &s} }

func Failed(reason string) Result { return Result{Failure: &Failure{Reason: reason}} }

func Failedf(format string, args ...any) Result { return Failed(fmt.Sprintf(format, args...)) }

// OK reports whether the document was persisted.
func (r Result) OK() bool { return r.Success != nil }

// Status is the outcome tag.
func (r Result) Status() constants.OutcomeStatus {
	if r.OK() {
		return constants.OutcomeSuccess
	}
	return constants.OutcomeFailure
}

// Reason is the failure reason, empty on success.
func (r Result) Reason() string {
	if r.Failure == nil {
		return ""
	}
	return r.Failure.Reason
}

type resultEnvelope struct {
	Status constants.OutcomeStatus `json:"status"`
	*Success
	*Failure
}

func (r Result) MarshalJSON() ([]byte, error) {
	env := resultEnvelope{Status: r.Status(), Success: r.Success, Failure: r.Failure}
	if !r.OK() && env.Failure == nil {
		env.Failure = &Failure{Reason: "esito sconosciuto"}
	}
	return json.Marshal(env)
}

// Content is the tool message content handed back to the model.
func (r Result) Content() string {
	b, err := json.Marshal(r)
	if err != nil {
		return fmt.Sprintf(`{"status":%q,"reason":"risultato non serializzabile"}`, constants.OutcomeFailure)
	}
	return string(b)
}
