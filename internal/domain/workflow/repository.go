package workflow

import (
	"context"
	"time"

	"github.com/freelanceops/billing/internal/types"
)

// TriggerRepository defines the interface for trigger persistence
type TriggerRepository interface {
	Create(ctx context.Context, trigger *Trigger) error
	Get(ctx context.Context, id string) (*Trigger, error)
	Update(ctx context.Context, trigger *Trigger) error
	// Delete marks a trigger as deleted
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, filter *types.WorkflowTriggerFilter) ([]*Trigger, error)
	Count(ctx context.Context, filter *types.WorkflowTriggerFilter) (int, error)
	// ListActiveByEvent returns the active triggers of an event type ordered by priority
	ListActiveByEvent(ctx context.Context, eventType types.WorkflowEventType) ([]*Trigger, error)
	// PurgeDeleted permanently removes triggers soft deleted before the cutoff
	PurgeDeleted(ctx context.Context, before time.Time) (int64, error)
}

// ExecutionRepository stores dedupe claims of financial actions
type ExecutionRepository interface {
	// Claim inserts the execution. It fails with ErrAlreadyExists when the key was claimed before.
	Claim(ctx context.Context, execution *Execution) error
	// SetResult records the entity the action produced
	SetResult(ctx context.Context, id string, resultEntityID string) error
	GetByDedupeKey(ctx context.Context, key string) (*Execution, error)
}

// EventLogRepository stores the append-only event audit log
type EventLogRepository interface {
	Create(ctx context.Context, log *EventLog) error
	List(ctx context.Context, filter *types.WorkflowEventLogFilter) ([]*EventLog, error)
	Count(ctx context.Context, filter *types.WorkflowEventLogFilter) (int, error)
	// PruneBefore removes entries created before the cutoff
	PruneBefore(ctx context.Context, before time.Time) (int64, error)
}
