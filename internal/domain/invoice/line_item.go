package invoice

import (
	"time"

	ierr "github.com/freelanceops/billing/internal/errors"
	"github.com/freelanceops/billing/internal/types"
	"github.com/shopspring/decimal"
)

// LineItem represents a single line item in an invoice. Amount is always quantity × unit rate.
type LineItem struct {
	ID          string             `json:"id"`
	InvoiceID   string             `json:"invoice_id"`
	Position    int                `json:"position"`
	Kind        types.LineItemKind `json:"kind"`
	Description string             `json:"description"`
	Quantity    decimal.Decimal    `json:"quantity"`
	UnitRate    decimal.Decimal    `json:"unit_rate"`
	Amount      decimal.Decimal    `json:"amount"`
	CreatedAt   time.Time          `json:"created_at"`
}

// NewLineItem builds a standard line item with its amount computed
func NewLineItem(description string, quantity, unitRate decimal.Decimal) *LineItem {
	return &LineItem{
		ID:          types.GenerateUUIDWithPrefix(types.UUID_PREFIX_INVOICE_LINE_ITEM),
		Kind:        types.LineItemKindStandard,
		Description: description,
		Quantity:    quantity,
		UnitRate:    unitRate,
		Amount:      types.RoundMoney(quantity.Mul(unitRate)),
		CreatedAt:   time.Now().UTC(),
	}
}

func (l *LineItem) Validate() error {
	if l.Description == "" {
		return ierr.NewError("line item description is required").
			WithHint("Every line item needs a description").
			Mark(ierr.ErrValidation)
	}
	if !l.Quantity.IsPositive() {
		return ierr.NewError("line item quantity must be positive").
			WithHint("Quantity must be greater than zero").
			WithReportableDetails(map[string]any{
				"description": l.Description,
				"quantity":    l.Quantity,
			}).
			Mark(ierr.ErrValidation)
	}
	if l.UnitRate.IsNegative() {
		return ierr.NewError("line item unit rate must not be negative").
			WithHint("Unit rate must be zero or positive").
			WithReportableDetails(map[string]any{
				"description": l.Description,
				"unit_rate":   l.UnitRate,
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}
