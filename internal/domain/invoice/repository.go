package invoice

import (
	"context"
	"time"

	"github.com/freelanceops/billing/internal/types"
)

// Repository defines the interface for invoice persistence operations
type Repository interface {
	// Create creates a new invoice together with its line items
	Create(ctx context.Context, invoice *Invoice) error

	// Get retrieves an invoice with its line items by ID
	Get(ctx context.Context, id string) (*Invoice, error)

	// GetForUpdate retrieves an invoice and locks its row until the surrounding transaction ends
	GetForUpdate(ctx context.Context, id string) (*Invoice, error)

	// GetByIdempotencyKey retrieves the invoice generated for a key
	GetByIdempotencyKey(ctx context.Context, key string) (*Invoice, error)

	// Update writes the invoice header if its version still matches and bumps the version
	Update(ctx context.Context, invoice *Invoice) error

	// ReplaceLineItems swaps every line item of an invoice
	ReplaceLineItems(ctx context.Context, invoiceID string, items []*LineItem) error

	// AddLineItem appends a single line item
	AddLineItem(ctx context.Context, item *LineItem) error

	// UpdateLineItem rewrites the amounts of an existing line item
	UpdateLineItem(ctx context.Context, item *LineItem) error

	// Delete hard deletes an invoice and its line items
	Delete(ctx context.Context, id string) error

	// List retrieves invoices based on filter criteria
	List(ctx context.Context, filter *types.InvoiceFilter) ([]*Invoice, error)

	// Count returns the total count of invoices based on filter criteria
	Count(ctx context.Context, filter *types.InvoiceFilter) (int, error)

	// NextSequenceValue allocates the next number of the month bucket
	NextSequenceValue(ctx context.Context, yearMonth string) (int64, error)

	// ClaimReminder reserves a reminder for sending. It returns false when the reminder was
	// sent, is claimed by a run since after StaleBefore, or already failed MaxAttempts times.
	ClaimReminder(ctx context.Context, claim *ReminderClaim) (bool, error)

	// CompleteReminder records the outcome of a claimed reminder. A nil failure marks it sent.
	CompleteReminder(ctx context.Context, invoiceID, reminderKey string, failure *string, at time.Time) error

	// GetReminder retrieves the send record of one reminder of an invoice
	GetReminder(ctx context.Context, invoiceID, reminderKey string) (*Reminder, error)
}
