package dto

import (
	"context"
	"time"

	"github.com/freelanceops/billing/internal/domain/credit"
	"github.com/freelanceops/billing/internal/domain/payment"
	ierr "github.com/freelanceops/billing/internal/errors"
	"github.com/freelanceops/billing/internal/types"
	"github.com/freelanceops/billing/internal/validator"
	"github.com/shopspring/decimal"
)

// RecordPaymentRequest records money received against an invoice
type RecordPaymentRequest struct {
	Amount    decimal.Decimal     `json:"amount"`
	Method    types.PaymentMethod `json:"method" validate:"required"`
	Reference *string             `json:"reference,omitempty"`
	Notes     *string             `json:"notes,omitempty"`
	// recorded_at defaults to now
	RecordedAt *time.Time `json:"recorded_at,omitempty"`
}

func (r *RecordPaymentRequest) Validate() error {
	if err := validator.ValidateRequest(r); err != nil {
		return err
	}
	if r.Method == types.PaymentMethodCredit {
		return ierr.NewError("credit payments are recorded by applying credit").
			WithHint("Use apply-credit to pay an invoice from a deposit").
			Mark(ierr.ErrValidation)
	}
	return r.Method.Validate()
}

// ToPayment converts the request to a payment of invoiceID
func (r *RecordPaymentRequest) ToPayment(ctx context.Context, invoiceID string) *payment.Payment {
	now := time.Now().UTC()
	recordedAt := now
	if r.RecordedAt != nil {
		recordedAt = r.RecordedAt.UTC()
	}
	return &payment.Payment{
		ID:         types.GenerateUUIDWithPrefix(types.UUID_PREFIX_PAYMENT),
		InvoiceID:  invoiceID,
		Amount:     r.Amount,
		Method:     r.Method,
		Reference:  r.Reference,
		Notes:      r.Notes,
		RecordedAt: recordedAt,
		CreatedAt:  now,
		CreatedBy:  types.GetUserID(ctx),
	}
}

// PaymentResponse represents a payment in responses
type PaymentResponse struct {
	*payment.Payment
}

func NewPaymentResponse(p *payment.Payment) *PaymentResponse {
	if p == nil {
		return nil
	}
	return &PaymentResponse{Payment: p}
}

// RecordPaymentResponse is the stored payment and the invoice after it
type RecordPaymentResponse struct {
	Payment *PaymentResponse `json:"payment"`
	Invoice *InvoiceResponse `json:"invoice"`
}

// ListPaymentsResponse lists the payments of one invoice in insertion order
type ListPaymentsResponse struct {
	InvoiceID  string             `json:"invoice_id"`
	Items      []*PaymentResponse `json:"items"`
	AmountPaid decimal.Decimal    `json:"amount_paid"`
}

// ApplyCreditRequest draws credit from a paid deposit invoice onto the target in the URL
type ApplyCreditRequest struct {
	SourceInvoiceID string          `json:"source_invoice_id" validate:"required"`
	Amount          decimal.Decimal `json:"amount"`
}

func (r *ApplyCreditRequest) Validate() error {
	if err := validator.ValidateRequest(r); err != nil {
		return err
	}
	if !r.Amount.IsPositive() {
		return ierr.NewError("credit amount must be positive").
			WithHint("Amount must be greater than zero").
			Mark(ierr.ErrValidation)
	}
	return nil
}

// ApplyCreditResponse is the credit, the payment it recorded and the target after it
type ApplyCreditResponse struct {
	Credit  *credit.Credit   `json:"credit"`
	Payment *PaymentResponse `json:"payment"`
	Invoice *InvoiceResponse `json:"invoice"`
}

// AvailableCreditResponse is how much of a deposit is still unapplied
type AvailableCreditResponse struct {
	InvoiceID  string          `json:"invoice_id"`
	AmountPaid decimal.Decimal `json:"amount_paid"`
	Applied    decimal.Decimal `json:"applied"`
	Available  decimal.Decimal `json:"available"`
}
