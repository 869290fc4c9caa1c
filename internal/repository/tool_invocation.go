package repository

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/fatture-in-chat/constants"
)

const toolInvocationsTable = "tool_invocations"

var toolInvocationColumns = []string{
	"id", "request_id", "tool_name", "entity_id", "arguments",
	"taxable", "tax", "total", "outcome", "reason", "created_at",
}

// ToolInvocation is the audit row written for every tool execution.
type ToolInvocation struct {
	ID        string
	RequestID string
	ToolName  string
	EntityID  string
	Arguments string // normalized JSON arguments
	Taxable   float64
	Tax       float64
	Total     float64
	Outcome   constants.OutcomeStatus
	Reason    string
	CreatedAt time.Time
}

// ListFilter narrows List. Zero values mean no filter.
type ListFilter struct {
	EntityID string
	Outcome  constants.OutcomeStatus
	Since    *time.Time // inclusive
	Until    *time.Time // exclusive
	Limit    int
}

type ToolInvocationRepository interface {
	Create(ctx context.Context, inv *ToolInvocation) error
	List(ctx context.Context, filter ListFilter) ([]ToolInvocation, error)
}

type toolInvocationRepo struct {
	db  *DB
	log *slog.Logger
}

func NewToolInvocationRepository(db *DB, log *slog.Logger) ToolInvocationRepository {
	if log == nil {
		log = slog.Default()
	}
	return &toolInvocationRepo{db: db, log: log}
}

func (r *toolInvocationRepo) Create(ctx context.Context, inv *ToolInvocation) error {
	if inv.ID == "" {
		inv.ID = uuid.New().String()
	}
	if inv.CreatedAt.IsZero() {
		inv.CreatedAt = time.Now().UTC()
	}

	query, args := entsql.Dialect(r.db.dialect).
		Insert(toolInvocationsTable).
		Columns(toolInvocationColumns...).
		Values(
			inv.ID, inv.RequestID, inv.ToolName, inv.EntityID, inv.Arguments,
			inv.Taxable, inv.Tax, inv.Total, string(inv.Outcome), inv.Reason,
			inv.CreatedAt.UnixMilli(),
		).
		Query()
	if err := r.db.drv.Exec(ctx, query, args, nil); err != nil {
		r.log.Error("tool_invocation create failed", "tool", inv.ToolName, "req_id", inv.RequestID, "err", err)
		return fmt.Errorf("insert tool invocation: %w", err)
	}
	r.log.Debug("tool_invocation recorded", "id", inv.ID, "tool", inv.ToolName, "outcome", inv.Outcome)
	return nil
}

func (r *toolInvocationRepo) List(ctx context.Context, filter ListFilter) ([]ToolInvocation, error) {
	b := entsql.Dialect(r.db.dialect)
	t := b.Table(toolInvocationsTable)
	sel := b.Select(toolInvocationColumns...).From(t)

	var preds []*entsql.Predicate
	if filter.EntityID != "" {
		preds = append(preds, entsql.EQ(t.C("entity_id"), filter.EntityID))
	}
	if filter.Outcome != "" {
		preds = append(preds, entsql.EQ(t.C("outcome"), string(filter.Outcome)))
	}
	if filter.Since != nil {
		preds = append(preds, entsql.GTE(t.C("created_at"), filter.Since.UnixMilli()))
	}
	if filter.Until != nil {
		preds = append(preds, entsql.LT(t.C("created_at"), filter.Until.UnixMilli()))
	}
	if len(preds) > 0 {
		sel.Where(entsql.And(preds...))
	}
	sel.OrderBy(entsql.Desc(t.C("created_at")), entsql.Desc(t.C("id")))
	if filter.Limit > 0 {
		sel.Limit(filter.Limit)
	}

	query, args := sel.Query()
	rows := &entsql.Rows{}
	if err := r.db.drv.Query(ctx, query, args, rows); err != nil {
		r.log.Error("tool_invocation list failed", "err", err)
		return nil, fmt.Errorf("list tool invocations: %w", err)
	}
	defer func() { _ = rows.Close() }()

	out := make([]ToolInvocation, 0)
	for rows.Next() {
		var (
			inv     ToolInvocation
			outcome string
			created int64
		)
		if err := rows.Scan(
			&inv.ID, &inv.RequestID, &inv.ToolName, &inv.EntityID, &inv.Arguments,
			&inv.Taxable, &inv.Tax, &inv.Total, &outcome, &inv.Reason, &created,
		); err != nil {
			return nil, fmt.Errorf("scan tool invocation: %w", err)
		}
		inv.Outcome = constants.OutcomeStatus(outcome)
		inv.CreatedAt = time.UnixMilli(created).UTC()
		out = append(out, inv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tool invocations: %w", err)
	}
	return out, nil
}
