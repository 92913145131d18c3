package recurring

import (
	"time"

	"github.com/freelanceops/billing/internal/domain/invoice"
	ierr "github.com/freelanceops/billing/internal/errors"
	"github.com/freelanceops/billing/internal/types"
	"github.com/shopspring/decimal"
)

// TemplateLineItem is copied onto every invoice a series generates
type TemplateLineItem struct {
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitRate    decimal.Decimal `json:"unit_rate"`
}

// Series is a recurring invoice template that materializes one draft invoice per period
type Series struct {
	ID            string                   `json:"id"`
	ProjectID     string                   `json:"project_id"`
	ClientID      string                   `json:"client_id"`
	Description   string                   `json:"description"`
	Currency      string                   `json:"currency"`
	LineItems     []TemplateLineItem       `json:"line_items"`
	TaxRate       decimal.Decimal          `json:"tax_rate"`
	DiscountType  *types.DiscountType      `json:"discount_type,omitempty"`
	DiscountValue decimal.Decimal          `json:"discount_value"`
	Frequency     types.RecurringFrequency `json:"frequency"`
	// AnchorDay is the day of month monthly and quarterly periods land on
	AnchorDay          int                   `json:"anchor_day"`
	StartDate          time.Time             `json:"start_date"`
	NextGenerationDate time.Time             `json:"next_generation_date"`
	EndDate            *time.Time            `json:"end_date,omitempty"`
	DueDays            int                   `json:"due_days"`
	BillingEmail       *string               `json:"billing_email,omitempty"`
	LateFeePolicy      invoice.LateFeePolicy `json:"late_fee_policy"`
	IsActive           bool                  `json:"is_active"`
	GeneratedCount     int                   `json:"generated_count"`
	LastGeneratedAt    *time.Time            `json:"last_generated_at,omitempty"`
	types.BaseModel
}

// IsDue reports whether the series must generate an invoice on the given day
func (s *Series) IsDue(today time.Time) bool {
	return s.IsActive && !types.ToDate(s.NextGenerationDate).After(types.ToDate(today))
}

// IsFinished reports whether the next period would start after the end date
func (s *Series) IsFinished() bool {
	return s.EndDate != nil && types.ToDate(s.NextGenerationDate).After(types.ToDate(*s.EndDate))
}

// Advance moves NextGenerationDate forward by one period
func (s *Series) Advance() error {
	next, err := types.NextPeriodDate(s.NextGenerationDate, s.Frequency, s.AnchorDay)
	if err != nil {
		return ierr.WithError(err).
			WithHint("Recurring series has an invalid frequency").
			Mark(ierr.ErrValidation)
	}
	s.NextGenerationDate = next
	return nil
}

// TemplateTotal is the pre-tax, pre-discount amount of one generated invoice
func (s *Series) TemplateTotal() decimal.Decimal {
	total := decimal.Zero
	for _, item := range s.LineItems {
		total = total.Add(types.RoundMoney(item.Quantity.Mul(item.UnitRate)))
	}
	return total
}

func (s *Series) Validate() error {
	if s.ProjectID == "" || s.ClientID == "" {
		return ierr.NewError("project_id and client_id are required").
			WithHint("Recurring invoices belong to a project and a client").
			Mark(ierr.ErrValidation)
	}
	if err := s.Frequency.Validate(); err != nil {
		return err
	}
	if len(s.LineItems) == 0 {
		return ierr.NewError("recurring invoice needs at least one line item").
			WithHint("Please provide the line items to bill every period").
			Mark(ierr.ErrValidation)
	}
	for _, item := range s.LineItems {
		line := invoice.LineItem{Description: item.Description, Quantity: item.Quantity, UnitRate: item.UnitRate}
		if err := line.Validate(); err != nil {
			return err
		}
	}
	if !s.TemplateTotal().IsPositive() {
		return ierr.NewError("recurring invoice amount must be positive").
			WithHint("Line items must add up to more than zero").
			Mark(ierr.ErrValidation)
	}
	if s.AnchorDay < 1 || s.AnchorDay > 31 {
		return ierr.NewError("anchor day must be between 1 and 31").
			Mark(ierr.ErrValidation)
	}
	if s.DueDays < 0 {
		return ierr.NewError("due_days must not be negative").
			WithHint("Due days is the number of days after issue the invoice is due").
			Mark(ierr.ErrValidation)
	}
	if s.EndDate != nil && s.EndDate.Before(s.StartDate) {
		return ierr.NewError("end date is before start date").
			WithHint("End date must be on or after the start date").
			Mark(ierr.ErrValidation)
	}
	return s.LateFeePolicy.Validate()
}
