package invoice

import (
	"time"

	ierr "github.com/freelanceops/billing/internal/errors"
	"github.com/freelanceops/billing/internal/types"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// LateFeePolicy is the fee policy snapshot an invoice was issued with.
// Value is an amount for flat policies and a rate (0.05 = 5%) otherwise.
type LateFeePolicy struct {
	Type  types.LateFeePolicyType `json:"type"`
	Value decimal.Decimal         `json:"value"`
}

// IsNone reports whether the policy never charges a fee
func (p LateFeePolicy) IsNone() bool {
	return p.Type == "" || p.Type == types.LateFeePolicyNone
}

func (p LateFeePolicy) Validate() error {
	if p.Type == "" {
		return nil
	}
	if err := p.Type.Validate(); err != nil {
		return err
	}
	if p.Value.IsNegative() {
		return ierr.NewError("late fee value must not be negative").
			WithHint("Late fee value must be zero or positive").
			Mark(ierr.ErrValidation)
	}
	return nil
}

// Invoice represents the invoice domain model
type Invoice struct {
	ID            string              `json:"id"`
	InvoiceNumber string              `json:"invoice_number"`
	ClientID      string              `json:"client_id"`
	ProjectID     *string             `json:"project_id,omitempty"`
	MilestoneID   *string             `json:"milestone_id,omitempty"`
	InvoiceStatus types.InvoiceStatus `json:"invoice_status"`
	Currency      string              `json:"currency"`
	LineItems     []*LineItem         `json:"line_items"`

	Subtotal decimal.Decimal `json:"subtotal"`
	// DiscountValue is a percentage (10 = 10%) for percent discounts and an amount for fixed ones
	DiscountType   *types.DiscountType `json:"discount_type,omitempty"`
	DiscountValue  decimal.Decimal     `json:"discount_value"`
	DiscountAmount decimal.Decimal     `json:"discount_amount"`
	// TaxRate is a percentage, 8.25 = 8.25%
	TaxRate    decimal.Decimal `json:"tax_rate"`
	TaxAmount  decimal.Decimal `json:"tax_amount"`
	Total      decimal.Decimal `json:"total"`
	AmountPaid decimal.Decimal `json:"amount_paid"`

	IssuedDate *time.Time `json:"issued_date,omitempty"`
	DueDate    time.Time  `json:"due_date"`
	SentAt     *time.Time `json:"sent_at,omitempty"`
	ViewedAt   *time.Time `json:"viewed_at,omitempty"`
	PaidAt     *time.Time `json:"paid_at,omitempty"`
	VoidedAt   *time.Time `json:"voided_at,omitempty"`
	// OverdueSince is the due date of the current overdue episode, nil while not overdue
	OverdueSince *time.Time `json:"overdue_since,omitempty"`

	LateFeePolicy    LateFeePolicy   `json:"late_fee_policy"`
	LateFeeAppliedAt *time.Time      `json:"late_fee_applied_at,omitempty"`
	LateFeeAmount    decimal.Decimal `json:"late_fee_amount"`

	// IsDeposit marks invoices whose payments can be drawn down as credit
	IsDeposit          bool                `json:"is_deposit"`
	BillingEmail       *string             `json:"billing_email,omitempty"`
	Notes              *string             `json:"notes,omitempty"`
	Source             types.InvoiceSource `json:"source"`
	RecurringInvoiceID *string             `json:"recurring_invoice_id,omitempty"`
	ScheduledInvoiceID *string             `json:"scheduled_invoice_id,omitempty"`
	IdempotencyKey     *string             `json:"idempotency_key,omitempty"`
	Metadata           types.Metadata      `json:"metadata,omitempty"`
	Version            int                 `json:"version"`
	types.BaseModel
}

// RecomputeTotals derives line amounts, subtotal, discount, tax and total from the line items.
// Late fee lines are part of the subtotal but excluded from the discount and tax base.
func (i *Invoice) RecomputeTotals() {
	base := decimal.Zero
	fees := decimal.Zero
	for _, item := range i.LineItems {
		item.Amount = types.RoundMoney(item.Quantity.Mul(item.UnitRate))
		if item.Kind == types.LineItemKindLateFee {
			fees = fees.Add(item.Amount)
			continue
		}
		base = base.Add(item.Amount)
	}

	discount := decimal.Zero
	if i.DiscountType != nil {
		switch *i.DiscountType {
		case types.DiscountTypePercent:
			discount = types.RoundMoney(base.Mul(i.DiscountValue).Div(hundred))
		case types.DiscountTypeFixed:
			discount = decimal.Min(i.DiscountValue, base)
		}
	}
	if discount.IsNegative() {
		discount = decimal.Zero
	}

	i.Subtotal = base.Add(fees)
	i.DiscountAmount = discount
	i.TaxAmount = types.RoundMoney(base.Sub(discount).Mul(i.TaxRate).Div(hundred))
	i.Total = i.Subtotal.Sub(i.DiscountAmount).Add(i.TaxAmount)
	i.LateFeeAmount = fees
}

// GetRemainingAmount is the outstanding balance
func (i *Invoice) GetRemainingAmount() decimal.Decimal {
	return i.Total.Sub(i.AmountPaid)
}

// HasBillableLine reports whether at least one line item has a positive amount
func (i *Invoice) HasBillableLine() bool {
	return lo.SomeBy(i.LineItems, func(item *LineItem) bool {
		return item.Amount.IsPositive()
	})
}

// IsOverdue reports whether the invoice is open and past its due date on the given day
func (i *Invoice) IsOverdue(today time.Time) bool {
	return i.InvoiceStatus.IsOpen() && types.ToDate(i.DueDate).Before(types.ToDate(today))
}

// DaysOverdue is the number of whole days past the due date, zero when not yet due
func (i *Invoice) DaysOverdue(today time.Time) int {
	return max(types.DaysBetween(i.DueDate, today), 0)
}

// NextLinePosition returns the position to use for an appended line item
func (i *Invoice) NextLinePosition() int {
	pos := 0
	for _, item := range i.LineItems {
		pos = max(pos, item.Position+1)
	}
	return pos
}

// LateFeeLine returns the late fee line item if one was added
func (i *Invoice) LateFeeLine() *LineItem {
	item, ok := lo.Find(i.LineItems, func(item *LineItem) bool {
		return item.Kind == types.LineItemKindLateFee
	})
	if !ok {
		return nil
	}
	return item
}

func (i *Invoice) Validate() error {
	if i.ClientID == "" {
		return ierr.NewError("client_id is required").
			WithHint("Invoice must belong to a client").
			Mark(ierr.ErrValidation)
	}
	if i.Currency == "" {
		return ierr.NewError("currency is required").
			WithHint("Please provide a currency").
			Mark(ierr.ErrValidation)
	}
	if err := i.InvoiceStatus.Validate(); err != nil {
		return err
	}
	if i.DiscountType != nil {
		if err := i.DiscountType.Validate(); err != nil {
			return err
		}
		if i.DiscountValue.IsNegative() {
			return ierr.NewError("discount value must not be negative").
				WithHint("Discount must be zero or positive").
				Mark(ierr.ErrValidation)
		}
		if *i.DiscountType == types.DiscountTypePercent && i.DiscountValue.GreaterThan(hundred) {
			return ierr.NewError("discount percentage must not exceed 100").
				WithHint("Percent discounts are between 0 and 100").
				Mark(ierr.ErrValidation)
		}
	}
	if i.TaxRate.IsNegative() {
		return ierr.NewError("tax rate must not be negative").
			WithHint("Tax rate must be zero or positive").
			Mark(ierr.ErrValidation)
	}
	if err := i.LateFeePolicy.Validate(); err != nil {
		return err
	}
	if i.IssuedDate != nil && types.ToDate(i.DueDate).Before(types.ToDate(*i.IssuedDate)) {
		return ierr.NewError("due date is before issue date").
			WithHint("Due date must be on or after the issue date").
			WithReportableDetails(map[string]any{
				"issued_date": types.FormatDate(*i.IssuedDate),
				"due_date":    types.FormatDate(i.DueDate),
			}).
			Mark(ierr.ErrValidation)
	}

	for _, item := range i.LineItems {
		if err := item.Validate(); err != nil {
			return err
		}
	}

	if !i.Subtotal.Sub(i.DiscountAmount).Add(i.TaxAmount).Equal(i.Total) {
		return ierr.NewError("invoice totals are inconsistent").
			WithHint("Total must equal subtotal minus discount plus tax").
			Mark(ierr.ErrValidation)
	}
	if i.AmountPaid.IsNegative() {
		return ierr.NewError("amount paid must not be negative").
			Mark(ierr.ErrValidation)
	}
	if i.AmountPaid.GreaterThan(i.Total) {
		return ierr.NewError("amount paid exceeds invoice total").
			WithHint("Payments can not exceed the invoice total").
			WithReportableDetails(map[string]any{
				"total":       i.Total,
				"amount_paid": i.AmountPaid,
			}).
			Mark(ierr.ErrConflict)
	}
	return nil
}
