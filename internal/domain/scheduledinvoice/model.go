package scheduledinvoice

import (
	"time"

	ierr "github.com/freelanceops/billing/internal/errors"
	"github.com/freelanceops/billing/internal/types"
	"github.com/shopspring/decimal"
)

// ScheduledInvoice is a one-shot invoice materialized on its scheduled date
type ScheduledInvoice struct {
	ID                 string                       `json:"id"`
	ProjectID          string                       `json:"project_id"`
	ClientID           string                       `json:"client_id"`
	Description        string                       `json:"description"`
	Amount             decimal.Decimal              `json:"amount"`
	Currency           string                       `json:"currency"`
	ScheduledDate      time.Time                    `json:"scheduled_date"`
	DueDays            int                          `json:"due_days"`
	BillingEmail       *string                      `json:"billing_email,omitempty"`
	ScheduledStatus    types.ScheduledInvoiceStatus `json:"scheduled_status"`
	GeneratedInvoiceID *string                      `json:"generated_invoice_id,omitempty"`
	GeneratedAt        *time.Time                   `json:"generated_at,omitempty"`
	CancelledAt        *time.Time                   `json:"cancelled_at,omitempty"`
	types.BaseModel
}

// IsDue reports whether the schedule is pending and its date has arrived
func (s *ScheduledInvoice) IsDue(today time.Time) bool {
	return s.ScheduledStatus == types.ScheduledInvoiceStatusPending &&
		!types.ToDate(s.ScheduledDate).After(types.ToDate(today))
}

func (s *ScheduledInvoice) Validate() error {
	if s.ProjectID == "" || s.ClientID == "" {
		return ierr.NewError("project_id and client_id are required").
			WithHint("Scheduled invoices belong to a project and a client").
			Mark(ierr.ErrValidation)
	}
	if s.Description == "" {
		return ierr.NewError("description is required").
			WithHint("Please describe what the invoice is for").
			Mark(ierr.ErrValidation)
	}
	if !s.Amount.IsPositive() {
		return ierr.NewError("scheduled amount must be positive").
			WithHint("Amount must be greater than zero").
			Mark(ierr.ErrValidation)
	}
	if s.DueDays < 0 {
		return ierr.NewError("due_days must not be negative").
			Mark(ierr.ErrValidation)
	}
	return nil
}
