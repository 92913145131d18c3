package dto

import (
	"context"
	"time"

	"github.com/freelanceops/billing/internal/domain/invoice"
	ierr "github.com/freelanceops/billing/internal/errors"
	"github.com/freelanceops/billing/internal/types"
	"github.com/freelanceops/billing/internal/validator"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

// LineItemRequest is one billable line of an invoice request
type LineItemRequest struct {
	Description string          `json:"description" validate:"required"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitRate    decimal.Decimal `json:"unit_rate"`
}

func (r LineItemRequest) toLineItem() *invoice.LineItem {
	quantity := r.Quantity
	if quantity.IsZero() {
		quantity = decimal.NewFromInt(1)
	}
	return invoice.NewLineItem(r.Description, quantity, r.UnitRate)
}

// CreateInvoiceRequest represents the request payload for creating a draft invoice
type CreateInvoiceRequest struct {
	// client_id is the client the invoice is addressed to
	ClientID string `json:"client_id" validate:"required"`

	// project_id and milestone_id link the invoice to the work it bills
	ProjectID   *string `json:"project_id,omitempty"`
	MilestoneID *string `json:"milestone_id,omitempty"`

	// currency is the three-letter ISO currency code, USD when empty
	Currency string `json:"currency,omitempty" validate:"omitempty,currency"`

	LineItems []LineItemRequest `json:"line_items" validate:"required,min=1,dive"`

	// tax_rate is a percentage, 8.25 means 8.25%
	TaxRate decimal.Decimal `json:"tax_rate"`

	// discount_value is a percentage for percent discounts and an amount for fixed ones
	DiscountType  *types.DiscountType `json:"discount_type,omitempty"`
	DiscountValue decimal.Decimal     `json:"discount_value"`

	// due_date defaults to the issue date plus due_days
	IssuedDate *time.Time `json:"issued_date,omitempty"`
	DueDate    *time.Time `json:"due_date,omitempty"`
	DueDays    *int       `json:"due_days,omitempty" validate:"omitempty,min=0"`

	// late_fee_policy defaults to the configured policy
	LateFeePolicy *invoice.LateFeePolicy `json:"late_fee_policy,omitempty"`

	// is_deposit marks invoices whose payments can later be applied as credit
	IsDeposit    bool           `json:"is_deposit,omitempty"`
	BillingEmail *string        `json:"billing_email,omitempty" validate:"omitempty,email"`
	Notes        *string        `json:"notes,omitempty"`
	Metadata     types.Metadata `json:"metadata,omitempty"`

	// Set by generators and workflow actions, never bound from HTTP
	Source             types.InvoiceSource `json:"-"`
	RecurringInvoiceID *string             `json:"-"`
	ScheduledInvoiceID *string             `json:"-"`
	IdempotencyKey     *string             `json:"-"`
}

func (r *CreateInvoiceRequest) Validate() error {
	if err := validator.ValidateRequest(r); err != nil {
		return err
	}
	if r.DiscountType != nil {
		if err := r.DiscountType.Validate(); err != nil {
			return err
		}
	}
	if r.LateFeePolicy != nil {
		if err := r.LateFeePolicy.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// ToInvoice converts the request to a draft invoice with computed totals.
// The invoice number is allocated by the service.
func (r *CreateInvoiceRequest) ToInvoice(ctx context.Context) *invoice.Invoice {
	inv := &invoice.Invoice{
		ID:                 types.GenerateUUIDWithPrefix(types.UUID_PREFIX_INVOICE),
		ClientID:           r.ClientID,
		ProjectID:          r.ProjectID,
		MilestoneID:        r.MilestoneID,
		InvoiceStatus:      types.InvoiceStatusDraft,
		Currency:           lo.Ternary(r.Currency == "", types.DefaultCurrency, r.Currency),
		TaxRate:            r.TaxRate,
		DiscountType:       r.DiscountType,
		DiscountValue:      r.DiscountValue,
		IsDeposit:          r.IsDeposit,
		BillingEmail:       r.BillingEmail,
		Notes:              r.Notes,
		Metadata:           r.Metadata,
		Source:             lo.Ternary(r.Source == "", types.InvoiceSourceManual, r.Source),
		RecurringInvoiceID: r.RecurringInvoiceID,
		ScheduledInvoiceID: r.ScheduledInvoiceID,
		IdempotencyKey:     r.IdempotencyKey,
		BaseModel:          types.GetDefaultBaseModel(ctx),
	}
	if r.LateFeePolicy != nil {
		inv.LateFeePolicy = *r.LateFeePolicy
	}

	issued := types.ToDate(time.Now())
	if r.IssuedDate != nil {
		issued = types.ToDate(*r.IssuedDate)
	}
	inv.IssuedDate = &issued
	switch {
	case r.DueDate != nil:
		inv.DueDate = types.ToDate(*r.DueDate)
	case r.DueDays != nil:
		inv.DueDate = issued.AddDate(0, 0, *r.DueDays)
	default:
		inv.DueDate = issued.AddDate(0, 0, types.DefaultDueDays)
	}

	for i, item := range r.LineItems {
		line := item.toLineItem()
		line.InvoiceID = inv.ID
		line.Position = i
		inv.LineItems = append(inv.LineItems, line)
	}
	inv.RecomputeTotals()
	return inv
}

// UpdateInvoiceRequest changes a draft invoice. Omitted fields are kept.
type UpdateInvoiceRequest struct {
	ProjectID     *string                `json:"project_id,omitempty"`
	Currency      *string                `json:"currency,omitempty" validate:"omitempty,currency"`
	LineItems     []LineItemRequest      `json:"line_items,omitempty" validate:"omitempty,dive"`
	TaxRate       *decimal.Decimal       `json:"tax_rate,omitempty"`
	DiscountType  *types.DiscountType    `json:"discount_type,omitempty"`
	DiscountValue *decimal.Decimal       `json:"discount_value,omitempty"`
	DueDate       *time.Time             `json:"due_date,omitempty"`
	LateFeePolicy *invoice.LateFeePolicy `json:"late_fee_policy,omitempty"`
	IsDeposit     *bool                  `json:"is_deposit,omitempty"`
	BillingEmail  *string                `json:"billing_email,omitempty" validate:"omitempty,email"`
	Notes         *string                `json:"notes,omitempty"`
	Metadata      types.Metadata         `json:"metadata,omitempty"`
}

func (r *UpdateInvoiceRequest) Validate() error {
	return validator.ValidateRequest(r)
}

// Apply writes the set fields onto inv and recomputes its totals.
// It reports whether the line items were replaced.
func (r *UpdateInvoiceRequest) Apply(ctx context.Context, inv *invoice.Invoice) bool {
	if r.ProjectID != nil {
		inv.ProjectID = r.ProjectID
	}
	if r.Currency != nil {
		inv.Currency = *r.Currency
	}
	if r.TaxRate != nil {
		inv.TaxRate = *r.TaxRate
	}
	if r.DiscountType != nil {
		inv.DiscountType = r.DiscountType
	}
	if r.DiscountValue != nil {
		inv.DiscountValue = *r.DiscountValue
	}
	if r.DueDate != nil {
		inv.DueDate = types.ToDate(*r.DueDate)
	}
	if r.LateFeePolicy != nil {
		inv.LateFeePolicy = *r.LateFeePolicy
	}
	if r.IsDeposit != nil {
		inv.IsDeposit = *r.IsDeposit
	}
	if r.BillingEmail != nil {
		inv.BillingEmail = r.BillingEmail
	}
	if r.Notes != nil {
		inv.Notes = r.Notes
	}
	if r.Metadata != nil {
		inv.Metadata = r.Metadata
	}

	replaced := len(r.LineItems) > 0
	if replaced {
		inv.LineItems = inv.LineItems[:0]
		for i, item := range r.LineItems {
			line := item.toLineItem()
			line.InvoiceID = inv.ID
			line.Position = i
			inv.LineItems = append(inv.LineItems, line)
		}
	}
	inv.Touch(ctx)
	inv.RecomputeTotals()
	return replaced
}

// InvoiceResponse is an invoice with its derived overdue view
type InvoiceResponse struct {
	*invoice.Invoice
	AmountDue   decimal.Decimal `json:"amount_due"`
	IsOverdue   bool            `json:"is_overdue"`
	DaysOverdue int             `json:"days_overdue"`
}

// NewInvoiceResponse creates a response for inv as seen today
func NewInvoiceResponse(inv *invoice.Invoice) *InvoiceResponse {
	if inv == nil {
		return nil
	}
	today := time.Now()
	resp := &InvoiceResponse{
		Invoice:   inv,
		AmountDue: inv.GetRemainingAmount(),
		IsOverdue: inv.IsOverdue(today),
	}
	if resp.IsOverdue {
		resp.DaysOverdue = inv.DaysOverdue(today)
	}
	return resp
}

// ListInvoicesResponse represents the response for listing invoices
type ListInvoicesResponse = types.ListResponse[*InvoiceResponse]

// DeleteInvoiceResponse says what DELETE did to the invoice
type DeleteInvoiceResponse struct {
	InvoiceID string `json:"invoice_id"`
	// Action is deleted, voided or archived
	Action  string           `json:"action"`
	Invoice *InvoiceResponse `json:"invoice,omitempty"`
}

// Delete outcomes
const (
	DeleteActionDeleted  = "deleted"
	DeleteActionVoided   = "voided"
	DeleteActionArchived = "archived"
)

// AgingRequest filters the aging report
type AgingRequest struct {
	ClientID  string `form:"client_id"`
	ProjectID string `form:"project_id"`
	AsOf      string `form:"as_of"`
}

// AgingEntry is one open invoice in the aging report
type AgingEntry struct {
	InvoiceID     string              `json:"invoice_id"`
	InvoiceNumber string              `json:"invoice_number"`
	ClientID      string              `json:"client_id"`
	InvoiceStatus types.InvoiceStatus `json:"invoice_status"`
	DueDate       string              `json:"due_date"`
	DaysPastDue   int                 `json:"days_past_due"`
	Bucket        types.AgingBucket   `json:"bucket"`
	Currency      string              `json:"currency"`
	AmountDue     decimal.Decimal     `json:"amount_due"`
}

// AgingBucketSummary totals the amount due of one bucket
type AgingBucketSummary struct {
	Bucket    types.AgingBucket `json:"bucket"`
	Count     int               `json:"count"`
	AmountDue decimal.Decimal   `json:"amount_due"`
}

// AgingResponse classifies unpaid and partially paid invoices by days past due
type AgingResponse struct {
	AsOf           string               `json:"as_of"`
	Buckets        []AgingBucketSummary `json:"buckets"`
	TotalAmountDue decimal.Decimal      `json:"total_amount_due"`
	Invoices       []AgingEntry         `json:"invoices"`
}

// AsOfDate returns the report day, or today
func (r AgingRequest) AsOfDate() (time.Time, error) {
	return parseAsOf(r.AsOf)
}

// ProcessLateFeesRequest runs the late fee batch for a given day
type ProcessLateFeesRequest struct {
	AsOf string `json:"as_of,omitempty"`
}

// LateFeeResult is the decision for one invoice of the batch
type LateFeeResult struct {
	InvoiceID   string          `json:"invoice_id"`
	Applied     bool            `json:"applied"`
	Charge      decimal.Decimal `json:"charge"`
	DaysOverdue int             `json:"days_overdue"`
	Reason      string          `json:"reason,omitempty"`
	Error       string          `json:"error,omitempty"`
}

// ProcessLateFeesResponse reports the late fee batch
type ProcessLateFeesResponse struct {
	AsOf    string          `json:"as_of"`
	Summary BatchSummary    `json:"summary"`
	Results []LateFeeResult `json:"results"`
}

func validateNotNegative(name string, d decimal.Decimal) error {
	if d.IsNegative() {
		return ierr.NewErrorf("%s must not be negative", name).
			WithHintf("%s must be zero or positive", name).
			Mark(ierr.ErrValidation)
	}
	return nil
}
