package latefee

import (
	"time"

	"github.com/freelanceops/billing/internal/domain/invoice"
	"github.com/freelanceops/billing/internal/types"
	"github.com/shopspring/decimal"
)

// Skip reasons reported when an invoice is not charged
const (
	ReasonNotOverdue     = "not_overdue"
	ReasonInGrace        = "in_grace_period"
	ReasonNoPolicy       = "no_policy"
	ReasonAlreadyApplied = "already_applied"
	ReasonNothingOwed    = "nothing_owed"
)

// Calculate returns the fee a policy yields after daysOverdue chargeable days on an
// outstanding balance. Daily percentages accrue linearly and never compound.
func Calculate(policy invoice.LateFeePolicy, daysOverdue int, outstanding decimal.Decimal) decimal.Decimal {
	if policy.IsNone() || daysOverdue <= 0 || !outstanding.IsPositive() {
		return decimal.Zero
	}
	switch policy.Type {
	case types.LateFeePolicyFlat:
		return types.RoundMoney(policy.Value)
	case types.LateFeePolicyPercentage:
		return types.RoundMoney(outstanding.Mul(policy.Value))
	case types.LateFeePolicyDailyPercentage:
		return types.RoundMoney(outstanding.Mul(policy.Value).Mul(decimal.NewFromInt(int64(daysOverdue))))
	}
	return decimal.Zero
}

// Assessment is the decision for one invoice in one batch run
type Assessment struct {
	Apply       bool
	Charge      decimal.Decimal
	Target      decimal.Decimal
	DaysOverdue int
	Reason      string
}

// FeeBase is the outstanding balance fees are computed on, excluding fees already charged
func FeeBase(inv *invoice.Invoice) decimal.Decimal {
	return decimal.Max(inv.Total.Sub(inv.LateFeeAmount).Sub(inv.AmountPaid), decimal.Zero)
}

// Assess decides what to charge inv on asOf. Flat and percentage fees are charged once per
// overdue episode; daily fees are topped up to the accrued amount at most once per calendar day.
// Re-running Assess after the charge was recorded yields no charge.
func Assess(inv *invoice.Invoice, asOf time.Time, graceDays int) Assessment {
	if !inv.IsOverdue(asOf) {
		return Assessment{Reason: ReasonNotOverdue}
	}
	days := inv.DaysOverdue(asOf)
	chargeable := days - max(graceDays, 0)
	if chargeable <= 0 {
		return Assessment{DaysOverdue: days, Reason: ReasonInGrace}
	}
	policy := inv.LateFeePolicy
	if policy.IsNone() {
		return Assessment{DaysOverdue: days, Reason: ReasonNoPolicy}
	}

	episodeStart := types.ToDate(inv.DueDate)
	if inv.OverdueSince != nil {
		episodeStart = types.ToDate(*inv.OverdueSince)
	}
	base := FeeBase(inv)

	switch policy.Type {
	case types.LateFeePolicyDailyPercentage:
		if inv.LateFeeAppliedAt != nil && types.FormatDate(*inv.LateFeeAppliedAt) == types.FormatDate(asOf) {
			return Assessment{DaysOverdue: days, Reason: ReasonAlreadyApplied}
		}
		target := Calculate(policy, chargeable, base)
		charge := target.Sub(inv.LateFeeAmount)
		if !charge.IsPositive() {
			return Assessment{DaysOverdue: days, Target: target, Reason: ReasonNothingOwed}
		}
		return Assessment{Apply: true, Charge: charge, Target: target, DaysOverdue: days}

	default:
		if inv.LateFeeAppliedAt != nil && !types.ToDate(*inv.LateFeeAppliedAt).Before(episodeStart) {
			return Assessment{DaysOverdue: days, Reason: ReasonAlreadyApplied}
		}
		charge := Calculate(policy, chargeable, base)
		if !charge.IsPositive() {
			return Assessment{DaysOverdue: days, Reason: ReasonNothingOwed}
		}
		return Assessment{Apply: true, Charge: charge, Target: inv.LateFeeAmount.Add(charge), DaysOverdue: days}
	}
}

// Apply adds charge to the late fee line of inv, creating the line when needed, and
// recomputes totals. It returns the line that must be persisted and whether it is new.
func Apply(inv *invoice.Invoice, charge decimal.Decimal, asOf time.Time) (*invoice.LineItem, bool) {
	line := inv.LateFeeLine()
	created := line == nil
	if created {
		line = invoice.NewLineItem("Late fee", decimal.NewFromInt(1), decimal.Zero)
		line.Kind = types.LineItemKindLateFee
		line.InvoiceID = inv.ID
		line.Position = inv.NextLinePosition()
		inv.LineItems = append(inv.LineItems, line)
	}
	line.UnitRate = line.UnitRate.Add(charge)

	applied := asOf.UTC()
	inv.LateFeeAppliedAt = &applied
	inv.RecomputeTotals()
	return line, created
}
