package payment

import (
	"context"
)

// Repository defines the interface for payment persistence. Payments are never updated or deleted.
type Repository interface {
	Create(ctx context.Context, payment *Payment) error
	Get(ctx context.Context, id string) (*Payment, error)
	// ListByInvoice returns the payments of an invoice in insertion order
	ListByInvoice(ctx context.Context, invoiceID string) ([]*Payment, error)
}
