package recurring

import (
	"context"
	"time"

	"github.com/freelanceops/billing/internal/types"
)

// Repository defines the interface for recurring series persistence
type Repository interface {
	Create(ctx context.Context, series *Series) error
	Get(ctx context.Context, id string) (*Series, error)
	// GetForUpdate re-reads the live row and locks it until the surrounding transaction ends
	GetForUpdate(ctx context.Context, id string) (*Series, error)
	Update(ctx context.Context, series *Series) error
	List(ctx context.Context, filter *types.RecurringInvoiceFilter) ([]*Series, error)
	Count(ctx context.Context, filter *types.RecurringInvoiceFilter) (int, error)
	// ListDue returns active series whose next generation date is on or before asOf
	ListDue(ctx context.Context, asOf time.Time) ([]*Series, error)
}
