package scheduledinvoice

import (
	"context"
	"time"

	"github.com/freelanceops/billing/internal/types"
)

// Repository defines the interface for scheduled invoice persistence
type Repository interface {
	Create(ctx context.Context, s *ScheduledInvoice) error
	Get(ctx context.Context, id string) (*ScheduledInvoice, error)
	// GetForUpdate re-reads the live row and locks it until the surrounding transaction ends
	GetForUpdate(ctx context.Context, id string) (*ScheduledInvoice, error)
	Update(ctx context.Context, s *ScheduledInvoice) error
	List(ctx context.Context, filter *types.ScheduledInvoiceFilter) ([]*ScheduledInvoice, error)
	Count(ctx context.Context, filter *types.ScheduledInvoiceFilter) (int, error)
	// ListDue returns pending schedules dated on or before asOf
	ListDue(ctx context.Context, asOf time.Time) ([]*ScheduledInvoice, error)
}
