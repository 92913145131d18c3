package types

import (
	ierr "github.com/freelanceops/billing/internal/errors"
	"github.com/samber/lo"
)

// RecurringFrequency is the period of a recurring invoice series
type RecurringFrequency string

const (
	RecurringFrequencyWeekly    RecurringFrequency = "weekly"
	RecurringFrequencyBiweekly  RecurringFrequency = "biweekly"
	RecurringFrequencyMonthly   RecurringFrequency = "monthly"
	RecurringFrequencyQuarterly RecurringFrequency = "quarterly"
)

func (f RecurringFrequency) String() string {
	return string(f)
}

func (f RecurringFrequency) Validate() error {
	allowed := []RecurringFrequency{
		RecurringFrequencyWeekly,
		RecurringFrequencyBiweekly,
		RecurringFrequencyMonthly,
		RecurringFrequencyQuarterly,
	}
	if !lo.Contains(allowed, f) {
		return ierr.NewError("invalid recurring frequency").
			WithHint("Frequency must be weekly, biweekly, monthly or quarterly").
			WithReportableDetails(map[string]any{
				"allowed": allowed,
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}

// RecurringInvoiceFilter represents the filter options for listing recurring series
type RecurringInvoiceFilter struct {
	*QueryFilter
	ProjectID  string `json:"project_id,omitempty" form:"project_id"`
	ActiveOnly bool   `json:"active_only,omitempty" form:"active_only"`
}

func NewRecurringInvoiceFilter() *RecurringInvoiceFilter {
	return &RecurringInvoiceFilter{QueryFilter: NewDefaultQueryFilter()}
}

// ScheduledInvoiceStatus is the state of a one-shot scheduled invoice
type ScheduledInvoiceStatus string

const (
	ScheduledInvoiceStatusPending   ScheduledInvoiceStatus = "pending"
	ScheduledInvoiceStatusGenerated ScheduledInvoiceStatus = "generated"
	ScheduledInvoiceStatusCancelled ScheduledInvoiceStatus = "cancelled"
)

func (s ScheduledInvoiceStatus) String() string {
	return string(s)
}

// ScheduledInvoiceFilter represents the filter options for listing scheduled invoices
type ScheduledInvoiceFilter struct {
	*QueryFilter
	ProjectID string                 `json:"project_id,omitempty" form:"project_id"`
	Status    ScheduledInvoiceStatus `json:"status,omitempty" form:"status"`
}

func NewScheduledInvoiceFilter() *ScheduledInvoiceFilter {
	return &ScheduledInvoiceFilter{QueryFilter: NewDefaultQueryFilter()}
}
