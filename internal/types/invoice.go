package types

import (
	"time"

	ierr "github.com/freelanceops/billing/internal/errors"
	"github.com/samber/lo"
)

// InvoiceStatus is the lifecycle state of an invoice
type InvoiceStatus string

const (
	InvoiceStatusDraft     InvoiceStatus = "draft"
	InvoiceStatusSent      InvoiceStatus = "sent"
	InvoiceStatusViewed    InvoiceStatus = "viewed"
	InvoiceStatusPartial   InvoiceStatus = "partial"
	InvoiceStatusPaid      InvoiceStatus = "paid"
	InvoiceStatusVoid      InvoiceStatus = "void"
	InvoiceStatusCancelled InvoiceStatus = "cancelled"
)

func (s InvoiceStatus) String() string {
	return string(s)
}

func (s InvoiceStatus) Validate() error {
	allowed := []InvoiceStatus{
		InvoiceStatusDraft,
		InvoiceStatusSent,
		InvoiceStatusViewed,
		InvoiceStatusPartial,
		InvoiceStatusPaid,
		InvoiceStatusVoid,
		InvoiceStatusCancelled,
	}
	if !lo.Contains(allowed, s) {
		return ierr.NewError("invalid invoice status").
			WithHint("Please provide a valid invoice status").
			WithReportableDetails(map[string]any{
				"allowed": allowed,
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}

// IsOpen reports whether the invoice still expects payment
func (s InvoiceStatus) IsOpen() bool {
	return lo.Contains(InvoiceOpenStatuses, s)
}

// InvoiceOpenStatuses are the statuses an invoice can be overdue, reminded and paid in
var InvoiceOpenStatuses = []InvoiceStatus{
	InvoiceStatusSent,
	InvoiceStatusViewed,
	InvoiceStatusPartial,
}

// DiscountType is how an invoice discount value is interpreted
type DiscountType string

const (
	DiscountTypePercent DiscountType = "percent"
	DiscountTypeFixed   DiscountType = "fixed"
)

func (d DiscountType) Validate() error {
	allowed := []DiscountType{DiscountTypePercent, DiscountTypeFixed}
	if !lo.Contains(allowed, d) {
		return ierr.NewError("invalid discount type").
			WithHint("Discount type must be percent or fixed").
			WithReportableDetails(map[string]any{
				"allowed": allowed,
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}

// LineItemKind separates billable work from fee adjustments
type LineItemKind string

const (
	LineItemKindStandard LineItemKind = "standard"
	// LineItemKindLateFee lines are excluded from the discount and tax base
	LineItemKindLateFee LineItemKind = "late_fee"
)

// InvoiceSource records what created an invoice
type InvoiceSource string

const (
	InvoiceSourceManual    InvoiceSource = "manual"
	InvoiceSourceRecurring InvoiceSource = "recurring"
	InvoiceSourceScheduled InvoiceSource = "scheduled"
	InvoiceSourceWorkflow  InvoiceSource = "workflow"
)

// AgingBucket classifies an open invoice by days past due
type AgingBucket string

const (
	AgingBucketCurrent AgingBucket = "current"
	AgingBucket1To30   AgingBucket = "1-30"
	AgingBucket31To60  AgingBucket = "31-60"
	AgingBucket61To90  AgingBucket = "61-90"
	AgingBucketOver90  AgingBucket = "90+"
)

// AgingBuckets in reporting order
var AgingBuckets = []AgingBucket{
	AgingBucketCurrent,
	AgingBucket1To30,
	AgingBucket31To60,
	AgingBucket61To90,
	AgingBucketOver90,
}

// AgingBucketFor returns the bucket of an invoice that is daysPastDue days past its due date
func AgingBucketFor(daysPastDue int) AgingBucket {
	switch {
	case daysPastDue <= 0:
		return AgingBucketCurrent
	case daysPastDue <= 30:
		return AgingBucket1To30
	case daysPastDue <= 60:
		return AgingBucket31To60
	case daysPastDue <= 90:
		return AgingBucket61To90
	default:
		return AgingBucketOver90
	}
}

// ReminderStatus is the send state of one invoice reminder
type ReminderStatus string

const (
	ReminderStatusPending ReminderStatus = "pending"
	ReminderStatusSent    ReminderStatus = "sent"
	// ReminderStatusFailed reminders are claimed again by later runs until their attempts run out
	ReminderStatusFailed ReminderStatus = "failed"
)

// InvoiceFilter represents the filter options for listing invoices
type InvoiceFilter struct {
	*QueryFilter
	InvoiceIDs         []string        `json:"invoice_ids,omitempty" form:"invoice_ids"`
	ClientID           string          `json:"client_id,omitempty" form:"client_id"`
	ProjectID          string          `json:"project_id,omitempty" form:"project_id"`
	InvoiceStatus      []InvoiceStatus `json:"invoice_status,omitempty" form:"invoice_status"`
	RecurringInvoiceID string          `json:"recurring_invoice_id,omitempty" form:"recurring_invoice_id"`
	// OverdueOnly keeps open invoices whose due date is before DueBefore
	OverdueOnly bool       `json:"overdue_only,omitempty" form:"overdue_only"`
	DueBefore   *time.Time `json:"-" form:"-"`
	// IncludeDeleted also returns archived (soft-deleted) invoices
	IncludeDeleted bool `json:"-" form:"-"`
}

// NewInvoiceFilter creates a new invoice filter with default options
func NewInvoiceFilter() *InvoiceFilter {
	return &InvoiceFilter{
		QueryFilter: NewDefaultQueryFilter(),
	}
}

// NewNoLimitInvoiceFilter creates a new invoice filter without pagination
func NewNoLimitInvoiceFilter() *InvoiceFilter {
	return &InvoiceFilter{
		QueryFilter: NewNoLimitQueryFilter(),
	}
}

func (f *InvoiceFilter) Validate() error {
	if f == nil {
		return nil
	}
	if err := f.QueryFilter.Validate(); err != nil {
		return ierr.WithError(err).
			WithHint("Invalid pagination parameters").
			Mark(ierr.ErrValidation)
	}
	for _, s := range f.InvoiceStatus {
		if err := s.Validate(); err != nil {
			return err
		}
	}
	return nil
}

const (
	// DefaultCurrency is used when a request names no currency
	DefaultCurrency = "USD"
	// DefaultDueDays are the net terms of invoices created without a due date
	DefaultDueDays = 30
)
