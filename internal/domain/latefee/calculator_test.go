package latefee

import (
	"testing"
	"time"

	"github.com/freelanceops/billing/internal/domain/invoice"
	"github.com/freelanceops/billing/internal/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func date(s string) time.Time {
	t, err := types.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return t
}

func overdueInvoice(policy invoice.LateFeePolicy) *invoice.Invoice {
	inv := &invoice.Invoice{
		ID:            "inv_1",
		InvoiceStatus: types.InvoiceStatusSent,
		DueDate:       date("2026-03-01"),
		LateFeePolicy: policy,
		LineItems: []*invoice.LineItem{
			invoice.NewLineItem("Design work", d("10"), d("100")),
		},
	}
	inv.RecomputeTotals()
	return inv
}

func TestCalculate(t *testing.T) {
	tests := []struct {
		name        string
		policy      invoice.LateFeePolicy
		days        int
		outstanding string
		want        string
	}{
		{"flat", invoice.LateFeePolicy{Type: types.LateFeePolicyFlat, Value: d("25")}, 3, "1000", "25"},
		{"percentage", invoice.LateFeePolicy{Type: types.LateFeePolicyPercentage, Value: d("0.05")}, 10, "1000", "50"},
		{"daily percentage accrues linearly", invoice.LateFeePolicy{Type: types.LateFeePolicyDailyPercentage, Value: d("0.001")}, 10, "1000", "10"},
		{"daily percentage rounds to cents", invoice.LateFeePolicy{Type: types.LateFeePolicyDailyPercentage, Value: d("0.0015")}, 3, "333.33", "1.5"},
		{"none", invoice.LateFeePolicy{Type: types.LateFeePolicyNone}, 10, "1000", "0"},
		{"not overdue", invoice.LateFeePolicy{Type: types.LateFeePolicyFlat, Value: d("25")}, 0, "1000", "0"},
		{"nothing outstanding", invoice.LateFeePolicy{Type: types.LateFeePolicyPercentage, Value: d("0.05")}, 5, "0", "0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Calculate(tt.policy, tt.days, d(tt.outstanding))
			assert.True(t, d(tt.want).Equal(got), "want %s got %s", tt.want, got)
		})
	}
}

func TestAssessPercentageAppliesOncePerEpisode(t *testing.T) {
	inv := overdueInvoice(invoice.LateFeePolicy{Type: types.LateFeePolicyPercentage, Value: d("0.05")})
	require.True(t, d("1000").Equal(inv.Total))
	asOf := date("2026-03-10")

	a := Assess(inv, asOf, 0)
	require.True(t, a.Apply)
	assert.True(t, d("50").Equal(a.Charge))

	line, created := Apply(inv, a.Charge, asOf)
	assert.True(t, created)
	assert.Equal(t, types.LineItemKindLateFee, line.Kind)
	assert.True(t, d("1050").Equal(inv.Total))
	assert.True(t, d("50").Equal(inv.LateFeeAmount))
	require.NotNil(t, inv.LateFeeAppliedAt)

	again := Assess(inv, asOf, 0)
	assert.False(t, again.Apply)
	assert.Equal(t, ReasonAlreadyApplied, again.Reason)

	later := Assess(inv, date("2026-04-10"), 0)
	assert.False(t, later.Apply, "same overdue episode must not be charged twice")
	assert.True(t, d("1050").Equal(inv.Total))
}

func TestAssessLateFeeExcludedFromDiscountAndTax(t *testing.T) {
	inv := overdueInvoice(invoice.LateFeePolicy{Type: types.LateFeePolicyFlat, Value: d("30")})
	percent := types.DiscountTypePercent
	inv.DiscountType = &percent
	inv.DiscountValue = d("10")
	inv.TaxRate = d("10")
	inv.RecomputeTotals()
	require.True(t, d("990").Equal(inv.Total))

	a := Assess(inv, date("2026-03-05"), 0)
	require.True(t, a.Apply)
	Apply(inv, a.Charge, date("2026-03-05"))

	assert.True(t, d("100").Equal(inv.DiscountAmount))
	assert.True(t, d("90").Equal(inv.TaxAmount))
	assert.True(t, d("1020").Equal(inv.Total))
	assert.True(t, inv.Subtotal.Sub(inv.DiscountAmount).Add(inv.TaxAmount).Equal(inv.Total))
}

func TestAssessDailyPercentageTopsUpOncePerDay(t *testing.T) {
	inv := overdueInvoice(invoice.LateFeePolicy{Type: types.LateFeePolicyDailyPercentage, Value: d("0.001")})

	day5 := date("2026-03-06")
	a := Assess(inv, day5, 0)
	require.True(t, a.Apply)
	assert.True(t, d("5").Equal(a.Charge))
	Apply(inv, a.Charge, day5)

	assert.False(t, Assess(inv, day5, 0).Apply)

	day8 := date("2026-03-09")
	b := Assess(inv, day8, 0)
	require.True(t, b.Apply)
	assert.True(t, d("3").Equal(b.Charge), "fee accrues on the original balance, not on fees")
	Apply(inv, b.Charge, day8)
	assert.True(t, d("8").Equal(inv.LateFeeAmount))
	assert.Len(t, inv.LineItems, 2)
}

func TestAssessSkips(t *testing.T) {
	inv := overdueInvoice(invoice.LateFeePolicy{Type: types.LateFeePolicyFlat, Value: d("25")})

	assert.Equal(t, ReasonNotOverdue, Assess(inv, date("2026-03-01"), 0).Reason)
	assert.Equal(t, ReasonInGrace, Assess(inv, date("2026-03-03"), 5).Reason)

	inv.InvoiceStatus = types.InvoiceStatusPaid
	assert.Equal(t, ReasonNotOverdue, Assess(inv, date("2026-03-20"), 0).Reason)

	inv.InvoiceStatus = types.InvoiceStatusPartial
	inv.LateFeePolicy = invoice.LateFeePolicy{Type: types.LateFeePolicyNone}
	assert.Equal(t, ReasonNoPolicy, Assess(inv, date("2026-03-20"), 0).Reason)
}
