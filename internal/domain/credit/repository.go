package credit

import (
	"context"
)

// Repository defines the interface for credit persistence
type Repository interface {
	Create(ctx context.Context, credit *Credit) error
	// ListBySource returns every credit drawn from a source invoice
	ListBySource(ctx context.Context, sourceInvoiceID string) ([]*Credit, error)
	// ListByTarget returns every credit applied onto a target invoice
	ListByTarget(ctx context.Context, targetInvoiceID string) ([]*Credit, error)
}
