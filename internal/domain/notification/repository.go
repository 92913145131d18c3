package notification

import (
	"context"
	"time"

	"github.com/freelanceops/billing/internal/types"
)

// Repository defines the interface for notification persistence
type Repository interface {
	Create(ctx context.Context, notification *Notification) error
	Get(ctx context.Context, id string) (*Notification, error)
	MarkRead(ctx context.Context, id string, readAt time.Time) error
	List(ctx context.Context, filter *types.NotificationFilter) ([]*Notification, error)
	Count(ctx context.Context, filter *types.NotificationFilter) (int, error)
	// PurgeDeleted permanently removes notifications soft deleted or read before the cutoff
	PurgeDeleted(ctx context.Context, before time.Time) (int64, error)
}
