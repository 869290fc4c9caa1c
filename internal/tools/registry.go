package tools

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/joseph-ayodele/fatture-in-chat/constants"
	"github.com/joseph-ayodele/fatture-in-chat/internal/backend"
	"github.com/joseph-ayodele/fatture-in-chat/internal/common"
	"github.com/joseph-ayodele/fatture-in-chat/internal/entity"
	"github.com/joseph-ayodele/fatture-in-chat/internal/invoice"
	"github.com/joseph-ayodele/fatture-in-chat/internal/llm"
	"github.com/joseph-ayodele/fatture-in-chat/internal/repository"
)

const entityIDKey = "entity_id"

// Executor performs validated creation calls.
type Executor interface {
	CreateInvoice(ctx context.Context, d invoice.InvoiceDraft, entities []entity.BillingEntity, creds backend.Credentials) Result
	CreateExpense(ctx context.Context, d invoice.ExpenseDraft, entities []entity.BillingEntity, creds backend.Credentials) Result
}

// Auditor records one row per executed tool call.
type Auditor interface {
	Create(ctx context.Context, inv *repository.ToolInvocation) error
}

type registeredTool struct {
	def    llm.ToolDefinition
	schema *jsonschema.Schema
}

// Registry advertises the creation tools and gates their execution behind
// schema validation.
type Registry struct {
	exec    Executor
	auditor Auditor
	logger  *slog.Logger
	order   []string
	tools   map[string]registeredTool
}

// NewRegistry compiles the tool schemas. auditor may be nil.
func NewRegistry(exec Executor, auditor Auditor, logger *slog.Logger) (*Registry, error) {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Registry{exec: exec, auditor: auditor, logger: logger, tools: map[string]registeredTool{}}
	for _, def := range []llm.ToolDefinition{llm.CreateInvoiceTool(), llm.CreateExpenseTool()} {
		schema, err := llm.CompileSchema(def.Parameters)
		if err != nil {
			return nil, common.WrapError(err, "compile "+def.Name)
		}
		r.order = append(r.order, def.Name)
		r.tools[def.Name] = registeredTool{def: def, schema: schema}
	}
	return r, nil
}

// Definitions returns the tools to offer for the given entity list. With no
// entity nothing can be created, so nothing is offered.
func (r *Registry) Definitions(entities []entity.BillingEntity) []llm.ToolDefinition {
	if len(entities) == 0 {
		return nil
	}
	out := make([]llm.ToolDefinition, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.tools[name].def)
	}
	return out
}

// Execute validates a tool call and dispatches it. Every problem becomes a
// Failure for the model to narrate; Execute itself never fails.
func (r *Registry) Execute(ctx context.Context, call llm.ToolCall, entities []entity.BillingEntity, creds backend.Credentials) Result {
	start := time.Now()
	rid := common.RequestIDFromContext(ctx)

	args, res, ok := r.prepare(call, entities)
	if ok {
		res = r.dispatch(ctx, call.Name, args, entities, creds)
	}

	r.logger.Info("tools.execute",
		"req_id", rid,
		"tool", call.Name,
		"call_id", call.ID,
		"status", res.Status(),
		"reason", res.Reason(),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	r.audit(ctx, call.Name, args, res)
	return res
}

// prepare decodes, injects, normalizes and validates the arguments.
func (r *Registry) prepare(call llm.ToolCall, entities []entity.BillingEntity) ([]byte, Result, bool) {
	tool, known := r.tools[call.Name]
	if !known {
		return nil, Failedf("Strumento sconosciuto: %s", call.Name), false
	}
	if len(entities) == 0 {
		return nil, Failed("Nessuna entità disponibile: crea prima un'entità per poter emettere documenti"), false
	}

	var m map[string]any
	raw := strings.TrimSpace(call.Arguments)
	if raw == "" {
		raw = "{}"
	}
	if err := json.Unmarshal([]byte(raw), &m); err != nil || m == nil {
		return nil, Failed("Argomenti non validi: JSON malformato"), false
	}

	if id, _ := m[entityIDKey].(string); strings.TrimSpace(id) == "" && len(entities) == 1 {
		m[entityIDKey] = entities[0].ID
	}

	injected, err := json.Marshal(m)
	if err != nil {
		return nil, Failed("Argomenti non validi"), false
	}
	cleaned, _, err := llm.NormalizeToolArguments(tool.def.Parameters, injected, r.logger)
	if err != nil {
		return injected, Failed("Argomenti non validi: JSON malformato"), false
	}
	if err := llm.ValidateJSON(tool.schema, cleaned); err != nil {
		r.logger.Warn("tools.validate.failed", "tool", call.Name, "error", err)
		return cleaned, Failedf("Dati mancanti o non validi, chiedi all'utente di completarli: %s", validationDetail(err)), false
	}
	return cleaned, Result{}, true
}

func (r *Registry) dispatch(ctx context.Context, name string, args []byte, entities []entity.BillingEntity, creds backend.Credentials) Result {
	switch name {
	case constants.ToolCreateInvoice:
		var d invoice.InvoiceDraft
		if err := json.Unmarshal(args, &d); err != nil {
			return Failed("Argomenti della fattura non decodificabili")
		}
		return r.exec.CreateInvoice(ctx, d, entities, creds)
	case constants.ToolCreateExpense:
		var d invoice.ExpenseDraft
		if err := json.Unmarshal(args, &d); err != nil {
			return Failed("Argomenti della spesa non decodificabili")
		}
		return r.exec.CreateExpense(ctx, d, entities, creds)
	default:
		return Failedf("Strumento sconosciuto: %s", name)
	}
}

func (r *Registry) audit(ctx context.Context, name string, args []byte, res Result) {
	if r.auditor == nil {
		return
	}
	row := &repository.ToolInvocation{
		RequestID: common.RequestIDFromContext(ctx),
		ToolName:  name,
		Arguments: string(args),
		Outcome:   res.Status(),
		Reason:    res.Reason(),
	}
	var probe struct {
		EntityID string `json:"entity_id"`
	}
	if len(args) > 0 && json.Unmarshal(args, &probe) == nil {
		row.EntityID = probe.EntityID
	}
	if res.Success != nil {
		row.Taxable = res.Success.TaxableAmount
		row.Tax = res.Success.TaxAmount
		row.Total = res.Success.GrandTotal
	}
	// the audit row outlives a cancelled client request
	if err := r.auditor.Create(context.WithoutCancel(ctx), row); err != nil {
		r.logger.Warn("tools.audit.failed", "tool", name, "error", err)
	}
}

// validationDetail flattens a schema error into its leaf messages.
func validationDetail(err error) string {
	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return err.Error()
	}
	var parts []string
	var walk func(e *jsonschema.ValidationError)
	walk = func(e *jsonschema.ValidationError) {
		if len(e.Causes) == 0 {
			loc := e.InstanceLocation
			if loc == "" {
				loc = "/"
			}
			parts = append(parts, loc+": "+e.Message)
			return
		}
		for _, c := range e.Causes {
			walk(c)
		}
	}
	walk(ve)
	return strings.Join(parts, "; ")
}
