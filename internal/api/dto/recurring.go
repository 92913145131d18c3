package dto

import (
	"context"
	"time"

	"github.com/freelanceops/billing/internal/domain/invoice"
	"github.com/freelanceops/billing/internal/domain/recurring"
	"github.com/freelanceops/billing/internal/domain/scheduledinvoice"
	"github.com/freelanceops/billing/internal/types"
	"github.com/freelanceops/billing/internal/validator"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

// CreateRecurringInvoiceRequest creates a series that drafts one invoice per period
type CreateRecurringInvoiceRequest struct {
	ProjectID     string                   `json:"project_id" validate:"required"`
	ClientID      string                   `json:"client_id" validate:"required"`
	Description   string                   `json:"description,omitempty"`
	Currency      string                   `json:"currency,omitempty" validate:"omitempty,currency"`
	LineItems     []LineItemRequest        `json:"line_items" validate:"required,min=1,dive"`
	TaxRate       decimal.Decimal          `json:"tax_rate"`
	DiscountType  *types.DiscountType      `json:"discount_type,omitempty"`
	DiscountValue decimal.Decimal          `json:"discount_value"`
	Frequency     types.RecurringFrequency `json:"frequency" validate:"required"`
	// start_date is the first generation date, anchor_day defaults to its day of month
	StartDate     time.Time              `json:"start_date" validate:"required"`
	AnchorDay     *int                   `json:"anchor_day,omitempty" validate:"omitempty,min=1,max=31"`
	EndDate       *time.Time             `json:"end_date,omitempty"`
	DueDays       *int                   `json:"due_days,omitempty" validate:"omitempty,min=0"`
	BillingEmail  *string                `json:"billing_email,omitempty" validate:"omitempty,email"`
	LateFeePolicy *invoice.LateFeePolicy `json:"late_fee_policy,omitempty"`
}

func (r *CreateRecurringInvoiceRequest) Validate() error {
	if err := validator.ValidateRequest(r); err != nil {
		return err
	}
	if err := validateNotNegative("tax_rate", r.TaxRate); err != nil {
		return err
	}
	return r.Frequency.Validate()
}

// ToSeries converts the request to an active series
func (r *CreateRecurringInvoiceRequest) ToSeries(ctx context.Context) *recurring.Series {
	start := types.ToDate(r.StartDate)
	s := &recurring.Series{
		ID:                 types.GenerateUUIDWithPrefix(types.UUID_PREFIX_RECURRING_INVOICE),
		ProjectID:          r.ProjectID,
		ClientID:           r.ClientID,
		Description:        r.Description,
		Currency:           lo.Ternary(r.Currency == "", types.DefaultCurrency, r.Currency),
		TaxRate:            r.TaxRate,
		DiscountType:       r.DiscountType,
		DiscountValue:      r.DiscountValue,
		Frequency:          r.Frequency,
		AnchorDay:          start.Day(),
		StartDate:          start,
		NextGenerationDate: start,
		DueDays:            types.DefaultDueDays,
		BillingEmail:       r.BillingEmail,
		IsActive:           true,
		BaseModel:          types.GetDefaultBaseModel(ctx),
	}
	if r.AnchorDay != nil {
		s.AnchorDay = *r.AnchorDay
	}
	if r.EndDate != nil {
		end := types.ToDate(*r.EndDate)
		s.EndDate = &end
	}
	if r.DueDays != nil {
		s.DueDays = *r.DueDays
	}
	if r.LateFeePolicy != nil {
		s.LateFeePolicy = *r.LateFeePolicy
	}
	for _, item := range r.LineItems {
		s.LineItems = append(s.LineItems, recurring.TemplateLineItem{
			Description: item.Description,
			Quantity:    lo.Ternary(item.Quantity.IsZero(), decimal.NewFromInt(1), item.Quantity),
			UnitRate:    item.UnitRate,
		})
	}
	return s
}

// RecurringInvoiceResponse represents a series in responses
type RecurringInvoiceResponse struct {
	*recurring.Series
	TemplateTotal decimal.Decimal `json:"template_total"`
}

func NewRecurringInvoiceResponse(s *recurring.Series) *RecurringInvoiceResponse {
	if s == nil {
		return nil
	}
	return &RecurringInvoiceResponse{Series: s, TemplateTotal: s.TemplateTotal()}
}

type ListRecurringInvoicesResponse = types.ListResponse[*RecurringInvoiceResponse]

// CreateScheduledInvoiceRequest schedules a single invoice for a future date
type CreateScheduledInvoiceRequest struct {
	ProjectID     string          `json:"project_id" validate:"required"`
	ClientID      string          `json:"client_id" validate:"required"`
	Description   string          `json:"description" validate:"required"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency,omitempty" validate:"omitempty,currency"`
	ScheduledDate time.Time       `json:"scheduled_date" validate:"required"`
	DueDays       *int            `json:"due_days,omitempty" validate:"omitempty,min=0"`
	BillingEmail  *string         `json:"billing_email,omitempty" validate:"omitempty,email"`
}

func (r *CreateScheduledInvoiceRequest) Validate() error {
	return validator.ValidateRequest(r)
}

// ToScheduledInvoice converts the request to a pending schedule
func (r *CreateScheduledInvoiceRequest) ToScheduledInvoice(ctx context.Context) *scheduledinvoice.ScheduledInvoice {
	return &scheduledinvoice.ScheduledInvoice{
		ID:              types.GenerateUUIDWithPrefix(types.UUID_PREFIX_SCHEDULED_INVOICE),
		ProjectID:       r.ProjectID,
		ClientID:        r.ClientID,
		Description:     r.Description,
		Amount:          r.Amount,
		Currency:        lo.Ternary(r.Currency == "", types.DefaultCurrency, r.Currency),
		ScheduledDate:   types.ToDate(r.ScheduledDate),
		DueDays:         lo.FromPtrOr(r.DueDays, types.DefaultDueDays),
		BillingEmail:    r.BillingEmail,
		ScheduledStatus: types.ScheduledInvoiceStatusPending,
		BaseModel:       types.GetDefaultBaseModel(ctx),
	}
}

type ScheduledInvoiceResponse struct {
	*scheduledinvoice.ScheduledInvoice
}

func NewScheduledInvoiceResponse(s *scheduledinvoice.ScheduledInvoice) *ScheduledInvoiceResponse {
	if s == nil {
		return nil
	}
	return &ScheduledInvoiceResponse{ScheduledInvoice: s}
}

type ListScheduledInvoicesResponse = types.ListResponse[*ScheduledInvoiceResponse]

// GenerationResult is one invoice materialized by the generator
type GenerationResult struct {
	SourceID       string `json:"source_id"`
	InvoiceID      string `json:"invoice_id,omitempty"`
	PeriodDate     string `json:"period_date"`
	IdempotencyKey string `json:"idempotency_key"`
	Error          string `json:"error,omitempty"`
}

// GenerationResponse reports a generator pass
type GenerationResponse struct {
	AsOf      string             `json:"as_of"`
	Recurring BatchSummary       `json:"recurring"`
	Scheduled BatchSummary       `json:"scheduled"`
	Results   []GenerationResult `json:"results"`
}
