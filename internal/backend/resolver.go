package backend

import (
	"context"
	"log/slog"
	"time"

	"github.com/joseph-ayodele/fatture-in-chat/internal/entity"
)

// EntityLister fetches the caller's billing entities.
type EntityLister interface {
	ListEntities(ctx context.Context, creds Credentials) ([]entity.BillingEntity, error)
}

// Resolver supplies the entity context of a conversation. It never fails:
// the chat must still be able to tell the user that no entity is configured.
type Resolver struct {
	lister EntityLister
	logger *slog.Logger
}

func NewResolver(lister EntityLister, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{lister: lister, logger: logger}
}

// Resolve returns the caller's entities, or an empty list on any failure.
func (r *Resolver) Resolve(ctx context.Context, creds Credentials) []entity.BillingEntity {
	start := time.Now()
	if creds.Empty() {
		r.logger.Warn("entities.resolve.no_credentials")
		return []entity.BillingEntity{}
	}
	list, err := r.lister.ListEntities(ctx, creds)
	if err != nil {
		r.logger.Warn("entities.resolve.failed",
			"error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return []entity.BillingEntity{}
	}
	if list == nil {
		list = []entity.BillingEntity{}
	}
	r.logger.Info("entities.resolve.ok",
		"count", len(list),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return list
}
