package credit

import (
	"time"

	ierr "github.com/freelanceops/billing/internal/errors"
	"github.com/shopspring/decimal"
)

// Credit draws part of a paid deposit invoice down onto another invoice
type Credit struct {
	ID              string          `json:"id"`
	SourceInvoiceID string          `json:"source_invoice_id"`
	TargetInvoiceID string          `json:"target_invoice_id"`
	Amount          decimal.Decimal `json:"amount"`
	// PaymentID is the payment recorded on the target for this credit
	PaymentID string    `json:"payment_id"`
	CreatedAt time.Time `json:"created_at"`
	CreatedBy string    `json:"created_by"`
}

func (c *Credit) Validate() error {
	if c.SourceInvoiceID == "" || c.TargetInvoiceID == "" {
		return ierr.NewError("source and target invoices are required").
			WithHint("Credit must reference a source and a target invoice").
			Mark(ierr.ErrValidation)
	}
	if c.SourceInvoiceID == c.TargetInvoiceID {
		return ierr.NewError("credit source and target must differ").
			WithHint("An invoice can not be credited from itself").
			Mark(ierr.ErrValidation)
	}
	if !c.Amount.IsPositive() {
		return ierr.NewError("credit amount must be positive").
			WithHint("Amount must be greater than zero").
			Mark(ierr.ErrValidation)
	}
	return nil
}

// Available returns how much of a source invoice's paid amount is still unapplied
func Available(sourceAmountPaid decimal.Decimal, applied []*Credit) decimal.Decimal {
	used := decimal.Zero
	for _, c := range applied {
		used = used.Add(c.Amount)
	}
	return sourceAmountPaid.Sub(used)
}
