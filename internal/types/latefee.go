package types

import (
	ierr "github.com/freelanceops/billing/internal/errors"
	"github.com/samber/lo"
)

// LateFeePolicyType selects how a late fee is computed
type LateFeePolicyType string

const (
	LateFeePolicyNone LateFeePolicyType = "none"
	// LateFeePolicyFlat charges a fixed amount once per overdue period
	LateFeePolicyFlat LateFeePolicyType = "flat"
	// LateFeePolicyPercentage charges rate × outstanding once per overdue period
	LateFeePolicyPercentage LateFeePolicyType = "percentage"
	// LateFeePolicyDailyPercentage accrues rate × days overdue × outstanding, simple not compounding
	LateFeePolicyDailyPercentage LateFeePolicyType = "daily_percentage"
)

func (p LateFeePolicyType) String() string {
	return string(p)
}

func (p LateFeePolicyType) Validate() error {
	allowed := []LateFeePolicyType{
		LateFeePolicyNone,
		LateFeePolicyFlat,
		LateFeePolicyPercentage,
		LateFeePolicyDailyPercentage,
	}
	if !lo.Contains(allowed, p) {
		return ierr.NewError("invalid late fee policy").
			WithHint("Please provide a valid late fee policy").
			WithReportableDetails(map[string]any{
				"allowed": allowed,
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}
