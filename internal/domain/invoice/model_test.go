package invoice

import (
	"testing"
	"time"

	ierr "github.com/freelanceops/billing/internal/errors"
	"github.com/freelanceops/billing/internal/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecomputeTotals(t *testing.T) {
	fixed := types.DiscountTypeFixed
	inv := &Invoice{
		ClientID:      "client_1",
		Currency:      "USD",
		InvoiceStatus: types.InvoiceStatusDraft,
		DiscountType:  &fixed,
		DiscountValue: decimal.NewFromInt(50),
		TaxRate:       decimal.RequireFromString("8.25"),
		DueDate:       time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		LineItems: []*LineItem{
			NewLineItem("Strategy call", decimal.RequireFromString("1.5"), decimal.NewFromInt(120)),
			NewLineItem("Wireframes", decimal.NewFromInt(1), decimal.RequireFromString("450.10")),
		},
	}
	inv.RecomputeTotals()

	assert.True(t, decimal.RequireFromString("630.10").Equal(inv.Subtotal))
	assert.True(t, decimal.NewFromInt(50).Equal(inv.DiscountAmount))
	assert.True(t, decimal.RequireFromString("47.86").Equal(inv.TaxAmount))
	assert.True(t, decimal.RequireFromString("627.96").Equal(inv.Total))
	assert.True(t, inv.HasBillableLine())
	require.NoError(t, inv.Validate())
}

func TestFixedDiscountNeverExceedsBase(t *testing.T) {
	fixed := types.DiscountTypeFixed
	inv := &Invoice{
		DiscountType:  &fixed,
		DiscountValue: decimal.NewFromInt(500),
		LineItems:     []*LineItem{NewLineItem("Logo", decimal.NewFromInt(1), decimal.NewFromInt(200))},
	}
	inv.RecomputeTotals()
	assert.True(t, decimal.NewFromInt(200).Equal(inv.DiscountAmount))
	assert.True(t, inv.Total.IsZero())
}

func TestValidateRejectsOverpaidInvoice(t *testing.T) {
	inv := &Invoice{
		ClientID:      "client_1",
		Currency:      "USD",
		InvoiceStatus: types.InvoiceStatusSent,
		LineItems:     []*LineItem{NewLineItem("Retainer", decimal.NewFromInt(1), decimal.NewFromInt(500))},
	}
	inv.RecomputeTotals()
	inv.AmountPaid = decimal.NewFromInt(501)

	err := inv.Validate()
	require.Error(t, err)
	assert.True(t, ierr.IsConflict(err))
}

func TestValidateLineItems(t *testing.T) {
	inv := &Invoice{
		ClientID:      "client_1",
		Currency:      "USD",
		InvoiceStatus: types.InvoiceStatusDraft,
		LineItems:     []*LineItem{NewLineItem("", decimal.NewFromInt(1), decimal.NewFromInt(10))},
	}
	inv.RecomputeTotals()
	assert.True(t, ierr.IsValidation(inv.Validate()))

	inv.LineItems = []*LineItem{NewLineItem("Hours", decimal.Zero, decimal.NewFromInt(10))}
	inv.RecomputeTotals()
	assert.True(t, ierr.IsValidation(inv.Validate()))
}

func TestFormatInvoiceNumber(t *testing.T) {
	ym := SequenceYearMonth(time.Date(2026, 1, 31, 23, 0, 0, 0, time.UTC))
	assert.Equal(t, "INV-202601-00042", FormatInvoiceNumber(ym, 42))
}
