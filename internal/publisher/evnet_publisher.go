package publisher

import (
	"context"
	"sync"

	"github.com/freelanceops/billing/internal/db"
	"github.com/freelanceops/billing/internal/domain/workflow"
	"github.com/freelanceops/billing/internal/logger"
	"github.com/freelanceops/billing/internal/types"
)

// EventHandler consumes published workflow events
type EventHandler interface {
	Emit(ctx context.Context, event *workflow.Event) (*workflow.EventLog, error)
}

// EventPublisher hands workflow events to the trigger engine once the transaction that
// produced them commits. Events of a rolled back transaction are never delivered.
type EventPublisher interface {
	Publish(ctx context.Context, event *workflow.Event)
	// Subscribe sets the handler events are delivered to
	Subscribe(handler EventHandler)
}

type eventPublisher struct {
	db      *db.DB
	logger  *logger.Logger
	handler EventHandler
	mu      sync.RWMutex
}

// NewEventPublisher creates a new publisher
func NewEventPublisher(db *db.DB, logger *logger.Logger) EventPublisher {
	return &eventPublisher{
		db:     db,
		logger: logger,
	}
}

func (p *eventPublisher) Subscribe(handler EventHandler) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.handler = handler
}

func (p *eventPublisher) Publish(ctx context.Context, event *workflow.Event) {
	depth := types.GetEmitDepth(ctx)
	p.db.AfterCommit(ctx, func(ctx context.Context) {
		p.mu.RLock()
		handler := p.handler
		p.mu.RUnlock()

		if handler == nil {
			p.logger.Debugw("no event handler subscribed, dropping event",
				"event_type", event.Type,
				"source_entity_id", event.SourceEntityID(),
			)
			return
		}

		ctx = types.SetEmitDepth(ctx, depth)
		if _, err := handler.Emit(ctx, event); err != nil {
			p.logger.Errorw("failed to handle published event",
				"event_type", event.Type,
				"source_entity_id", event.SourceEntityID(),
				"depth", depth,
				"error", err,
			)
		}
	})
}
