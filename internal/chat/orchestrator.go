// Package chat drives one conversational turn: the model drafts, optionally
// calls the creation tools, and narrates their outcome.
package chat

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/joseph-ayodele/fatture-in-chat/internal/backend"
	"github.com/joseph-ayodele/fatture-in-chat/internal/common"
	"github.com/joseph-ayodele/fatture-in-chat/internal/entity"
	"github.com/joseph-ayodele/fatture-in-chat/internal/llm"
	"github.com/joseph-ayodele/fatture-in-chat/internal/tools"
)

const DefaultMaxSteps = 3

// State is the position of a turn in its lifecycle.
type State string

const (
	StateDrafting      State = "drafting"
	StateToolRequested State = "tool_requested"
	StateToolExecuting State = "tool_executing"
	StateNarrating     State = "narrating"
	StateDone          State = "done"
	StateErrored       State = "errored"
)

// EntityResolver lists the billing entities visible to the caller.
type EntityResolver interface {
	Resolve(ctx context.Context, creds backend.Credentials) []entity.BillingEntity
}

// ToolRunner offers and executes the creation tools.
type ToolRunner interface {
	Definitions(entities []entity.BillingEntity) []llm.ToolDefinition
	Execute(ctx context.Context, call llm.ToolCall, entities []entity.BillingEntity, creds backend.Credentials) tools.Result
}

type Config struct {
	MaxSteps int              // model invocations per request
	Location *time.Location   // timezone of the prompt's date header
	Now      func() time.Time // clock, time.Now when nil
}

// Input is a chat request as received from the client.
type Input struct {
	Messages    []entity.ConversationTurn
	EntityID    string // UI-selected entity, optional
	Credentials backend.Credentials
}

// Turn is a validated request ready to run.
type Turn struct {
	Conversation []entity.ConversationTurn
	Entities     []entity.BillingEntity
	Credentials  backend.Credentials
}

// Outcome summarizes a completed turn.
type Outcome struct {
	Steps      int
	ToolCalls  int
	LastResult *tools.Result
	Fallback   bool
}

type Orchestrator struct {
	model    llm.ChatModel
	resolver EntityResolver
	tools    ToolRunner
	cfg      Config
	logger   *slog.Logger
}

func NewOrchestrator(model llm.ChatModel, resolver EntityResolver, runner ToolRunner, cfg Config, logger *slog.Logger) *Orchestrator {
	if cfg.MaxSteps <= 0 {
		cfg.MaxSteps = DefaultMaxSteps
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{model: model, resolver: resolver, tools: runner, cfg: cfg, logger: logger}
}

// Prepare validates the conversation and resolves the caller's entities. All
// returned errors are input errors; nothing has been sent to the model yet.
func (o *Orchestrator) Prepare(ctx context.Context, in Input) (*Turn, error) {
	conv, err := entity.NormalizeConversation(in.Messages)
	if err != nil {
		return nil, common.NewAppError("INVALID_INPUT", "Conversazione non valida: "+err.Error(), common.ErrInvalidInput)
	}

	entities := o.resolver.Resolve(ctx, in.Credentials)
	if id := strings.TrimSpace(in.EntityID); id != "" && len(entities) > 0 {
		selected, ok := entity.FindEntity(entities, id)
		if !ok {
			return nil, common.InvalidInputErrorf("Entità %s non disponibile", id)
		}
		entities = []entity.BillingEntity{selected}
	}
	return &Turn{Conversation: conv, Entities: entities, Credentials: in.Credentials}, nil
}

// Run streams the assistant's answer to sink. A returned error means the
// model could not be reached; text already delivered to sink stays delivered.
func (o *Orchestrator) Run(ctx context.Context, turn *Turn, sink llm.DeltaFunc) (Outcome, error) {
	rid := common.RequestIDFromContext(ctx)
	start := time.Now()
	log := o.logger.With("req_id", rid)

	system := llm.ComposeSystemPrompt(turn.Entities, o.cfg.Now().In(o.cfg.Location))
	defs := o.tools.Definitions(turn.Entities)
	msgs := toMessages(turn.Conversation)

	var (
		out     Outcome
		wrote   bool
		pending bool // last response still requested tools
	)
	emit := func(text string) error {
		if text == "" {
			return nil
		}
		wrote = true
		return sink(text)
	}

	state := StateDrafting
	for out.Steps < o.cfg.MaxSteps {
		out.Steps++
		log.Debug("chat.turn.state", "state", state, "step", out.Steps)

		resp, err := o.model.StreamChat(ctx, llm.ChatRequest{System: system, Messages: msgs, Tools: defs}, emit)
		if err != nil {
			log.Error("chat.turn.model_failed", "state", StateErrored, "from", state, "step", out.Steps, "error", err,
				"elapsed_ms", time.Since(start).Milliseconds())
			return out, err
		}
		log.Info("chat.turn.step",
			"step", out.Steps,
			"state", state,
			"content_len", len(resp.Content),
			"tool_calls", len(resp.ToolCalls),
			"finish_reason", resp.FinishReason,
		)

		if len(resp.ToolCalls) == 0 {
			pending = false
			if strings.TrimSpace(resp.Content) == "" {
				break
			}
			log.Info("chat.turn.done", "state", StateDone, "steps", out.Steps, "tool_calls", out.ToolCalls,
				"elapsed_ms", time.Since(start).Milliseconds())
			return out, nil
		}

		state = StateToolRequested
		pending = true
		msgs = append(msgs, llm.Message{Role: llm.RoleAssistant, Content: resp.Content, ToolCalls: resp.ToolCalls})

		state = StateToolExecuting
		for _, call := range resp.ToolCalls {
			res := o.tools.Execute(ctx, call, turn.Entities, turn.Credentials)
			out.ToolCalls++
			out.LastResult = &res
			msgs = append(msgs, llm.Message{Role: llm.RoleTool, ToolCallID: call.ID, Content: res.Content()})
		}
		state = StateNarrating
	}

	out.Fallback = true
	log.Warn("chat.turn.fallback",
		"steps", out.Steps,
		"tool_pending", pending,
		"has_result", out.LastResult != nil,
	)
	text := FallbackNarration(out.LastResult)
	if wrote {
		text = "\n\n" + text
	}
	if err := emit(text); err != nil {
		return out, err
	}
	log.Info("chat.turn.done", "state", StateDone, "steps", out.Steps, "tool_calls", out.ToolCalls, "fallback", true,
		"elapsed_ms", time.Since(start).Milliseconds())
	return out, nil
}

func toMessages(conv []entity.ConversationTurn) []llm.Message {
	out := make([]llm.Message, 0, len(conv))
	for _, t := range conv {
		role := llm.RoleUser
		if t.Role == entity.TurnRoleAssistant {
			role = llm.RoleAssistant
		}
		out = append(out, llm.Message{Role: role, Content: t.Content})
	}
	return out
}
