package webhookdelivery

import (
	"context"
	"time"

	"github.com/freelanceops/billing/internal/types"
)

// Repository defines the interface for webhook delivery persistence
type Repository interface {
	Create(ctx context.Context, d *Delivery) error
	Get(ctx context.Context, id string) (*Delivery, error)
	// Update writes d when the stored row is still at d.Version and fails with ErrConflict otherwise
	Update(ctx context.Context, d *Delivery) error
	// Claim moves a claimable delivery in flight for lease. It returns false when another sender
	// claimed or changed it first.
	Claim(ctx context.Context, d *Delivery, now time.Time, lease time.Duration) (bool, error)
	List(ctx context.Context, filter *types.WebhookDeliveryFilter) ([]*Delivery, error)
	Count(ctx context.Context, filter *types.WebhookDeliveryFilter) (int, error)
	// ListDue returns pending and failed deliveries whose next attempt is due, and in-flight
	// deliveries whose claim expired
	ListDue(ctx context.Context, now time.Time, limit int) ([]*Delivery, error)
	// PruneFinishedBefore removes delivered and exhausted deliveries last updated before the cutoff
	PruneFinishedBefore(ctx context.Context, before time.Time) (int64, error)
}
