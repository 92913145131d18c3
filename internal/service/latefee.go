package service

import (
	"context"
	"time"

	"github.com/freelanceops/billing/internal/api/dto"
	"github.com/freelanceops/billing/internal/domain/invoice"
	"github.com/freelanceops/billing/internal/domain/latefee"
	"github.com/freelanceops/billing/internal/types"
	"github.com/shopspring/decimal"
)

// LateFeeService charges late fees on overdue invoices
type LateFeeService interface {
	ProcessLateFees(ctx context.Context, asOf time.Time) (*dto.ProcessLateFeesResponse, error)
}

type lateFeeService struct {
	ServiceParams
}

func NewLateFeeService(params ServiceParams) LateFeeService {
	return &lateFeeService{ServiceParams: params}
}

// ProcessLateFees assesses every overdue invoice on asOf. Each invoice is charged in its own
// transaction so one failure does not block the rest of the batch.
func (s *lateFeeService) ProcessLateFees(ctx context.Context, asOf time.Time) (*dto.ProcessLateFeesResponse, error) {
	asOf = types.ToDate(asOf)
	filter := types.NewNoLimitInvoiceFilter()
	filter.OverdueOnly = true
	filter.DueBefore = &asOf

	invoices, err := s.InvoiceRepo.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	resp := &dto.ProcessLateFeesResponse{
		AsOf:    types.FormatDate(asOf),
		Results: make([]dto.LateFeeResult, 0, len(invoices)),
	}
	for _, candidate := range invoices {
		resp.Summary.Processed++
		result := dto.LateFeeResult{InvoiceID: candidate.ID, Charge: decimal.Zero}

		err := s.DB.WithTx(ctx, func(ctx context.Context) error {
			inv, err := s.InvoiceRepo.GetForUpdate(ctx, candidate.ID)
			if err != nil {
				return err
			}
			return s.chargeLateFee(ctx, inv, asOf, &result)
		})
		switch {
		case err != nil:
			result.Applied = false
			result.Charge = decimal.Zero
			result.Error = err.Error()
			resp.Summary.Fail(candidate.ID, err)
		case result.Applied:
			resp.Summary.Updated++
		default:
			resp.Summary.Skipped++
		}
		resp.Results = append(resp.Results, result)
	}

	s.Logger.Infow("late fees processed", append(resp.Summary.LogFields(), "as_of", resp.AsOf)...)
	return resp, nil
}

func (s *lateFeeService) chargeLateFee(ctx context.Context, inv *invoice.Invoice, asOf time.Time, result *dto.LateFeeResult) error {
	a := latefee.Assess(inv, asOf, s.Config.LateFee.GraceDays)
	result.DaysOverdue = a.DaysOverdue
	if !a.Apply {
		result.Reason = a.Reason
		return nil
	}

	line, created := latefee.Apply(inv, a.Charge, asOf)
	if created {
		if err := s.InvoiceRepo.AddLineItem(ctx, line); err != nil {
			return err
		}
	} else if err := s.InvoiceRepo.UpdateLineItem(ctx, line); err != nil {
		return err
	}
	if err := s.InvoiceRepo.Update(ctx, inv); err != nil {
		return err
	}

	result.Applied = true
	result.Charge = a.Charge
	s.Logger.Debugw("late fee applied",
		"invoice_id", inv.ID,
		"policy", inv.LateFeePolicy.Type,
		"charge", a.Charge,
		"late_fee_amount", inv.LateFeeAmount,
		"days_overdue", a.DaysOverdue,
	)
	return nil
}
