package task

import (
	"context"
	"time"

	"github.com/freelanceops/billing/internal/types"
)

// Repository defines the interface for task persistence
type Repository interface {
	Create(ctx context.Context, task *Task) error
	Get(ctx context.Context, id string) (*Task, error)
	Update(ctx context.Context, task *Task) error
	// Delete marks a task as deleted
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, filter *types.TaskFilter) ([]*Task, error)
	Count(ctx context.Context, filter *types.TaskFilter) (int, error)
	// PurgeDeleted permanently removes tasks soft deleted before the cutoff
	PurgeDeleted(ctx context.Context, before time.Time) (int64, error)
}
