package payment

import (
	"time"

	ierr "github.com/freelanceops/billing/internal/errors"
	"github.com/freelanceops/billing/internal/types"
	"github.com/shopspring/decimal"
)

// Payment is an append-only record of money received against an invoice
type Payment struct {
	ID        string              `json:"id"`
	InvoiceID string              `json:"invoice_id"`
	Amount    decimal.Decimal     `json:"amount"`
	Method    types.PaymentMethod `json:"method"`
	Reference *string             `json:"reference,omitempty"`
	// CreditID links payments recorded by a credit application
	CreditID   *string   `json:"credit_id,omitempty"`
	Notes      *string   `json:"notes,omitempty"`
	RecordedAt time.Time `json:"recorded_at"`
	CreatedAt  time.Time `json:"created_at"`
	CreatedBy  string    `json:"created_by"`
}

func (p *Payment) Validate() error {
	if p.InvoiceID == "" {
		return ierr.NewError("invoice_id is required").
			WithHint("Payment must reference an invoice").
			Mark(ierr.ErrValidation)
	}
	if !p.Amount.IsPositive() {
		return ierr.NewError("payment amount must be positive").
			WithHint("Amount must be greater than zero").
			WithReportableDetails(map[string]any{
				"amount": p.Amount,
			}).
			Mark(ierr.ErrValidation)
	}
	if !p.Amount.Equal(types.RoundMoney(p.Amount)) {
		return ierr.NewError("payment amount has too many decimal places").
			WithHintf("Amounts are recorded with %d decimal places", types.MoneyPrecision).
			Mark(ierr.ErrValidation)
	}
	return p.Method.Validate()
}

// Sum adds up payment amounts in insertion order
func Sum(payments []*Payment) decimal.Decimal {
	total := decimal.Zero
	for _, p := range payments {
		total = total.Add(p.Amount)
	}
	return total
}
