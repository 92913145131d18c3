package service

import (
	"context"
	"time"

	"github.com/freelanceops/billing/internal/api/dto"
	"github.com/freelanceops/billing/internal/domain/recurring"
	"github.com/freelanceops/billing/internal/domain/scheduledinvoice"
	"github.com/freelanceops/billing/internal/idempotency"
	"github.com/freelanceops/billing/internal/types"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

// InvoiceGeneratorService materializes due recurring series and scheduled invoices
type InvoiceGeneratorService interface {
	GenerateDue(ctx context.Context, asOf time.Time) (*dto.GenerationResponse, error)
}

type invoiceGeneratorService struct {
	ServiceParams
	invoices *invoiceService
	keys     *idempotency.Generator
}

func NewInvoiceGeneratorService(params ServiceParams) InvoiceGeneratorService {
	return &invoiceGeneratorService{
		ServiceParams: params,
		invoices:      &invoiceService{ServiceParams: params},
		keys:          idempotency.NewGenerator(),
	}
}

func (s *invoiceGeneratorService) GenerateDue(ctx context.Context, asOf time.Time) (*dto.GenerationResponse, error) {
	asOf = types.ToDate(asOf)
	resp := &dto.GenerationResponse{
		AsOf:    types.FormatDate(asOf),
		Results: []dto.GenerationResult{},
	}

	series, err := s.RecurringRepo.ListDue(ctx, asOf)
	if err != nil {
		return nil, err
	}
	for _, candidate := range series {
		resp.Recurring.Processed++
		s.catchUpSeries(ctx, candidate.ID, asOf, resp)
	}

	schedules, err := s.ScheduledInvoiceRepo.ListDue(ctx, asOf)
	if err != nil {
		return nil, err
	}
	for _, candidate := range schedules {
		resp.Scheduled.Processed++
		s.generateScheduled(ctx, candidate.ID, asOf, resp)
	}

	s.Logger.Infow("recurring invoices generated", append(resp.Recurring.LogFields(), "as_of", resp.AsOf)...)
	s.Logger.Infow("scheduled invoices generated", append(resp.Scheduled.LogFields(), "as_of", resp.AsOf)...)
	return resp, nil
}

// catchUpSeries generates one period per transaction until the series is no longer due or
// the per tick catch-up limit is reached
func (s *invoiceGeneratorService) catchUpSeries(ctx context.Context, seriesID string, asOf time.Time, resp *dto.GenerationResponse) {
	limit := max(s.Config.Scheduler.CatchUpLimit, 1)
	for i := 0; i < limit; i++ {
		result, generated, err := s.generatePeriod(ctx, seriesID, asOf)
		if err != nil {
			result.Error = err.Error()
			resp.Results = append(resp.Results, result)
			resp.Recurring.Fail(seriesID, err)
			s.Logger.Errorw("failed to generate recurring invoice",
				"recurring_invoice_id", seriesID,
				"period_date", result.PeriodDate,
				"error", err,
			)
			return
		}
		if !generated {
			if i == 0 {
				resp.Recurring.Skipped++
			}
			return
		}
		resp.Results = append(resp.Results, result)
		resp.Recurring.Created++
	}
	s.Logger.Warnw("recurring invoice still behind after catch-up limit",
		"recurring_invoice_id", seriesID,
		"limit", limit,
	)
}

// generatePeriod creates the invoice of the series' next period and advances the series in
// one transaction. It reports false when the live row is no longer due.
func (s *invoiceGeneratorService) generatePeriod(ctx context.Context, seriesID string, asOf time.Time) (dto.GenerationResult, bool, error) {
	result := dto.GenerationResult{SourceID: seriesID}
	generated := false

	err := s.DB.WithTx(ctx, func(ctx context.Context) error {
		series, err := s.RecurringRepo.GetForUpdate(ctx, seriesID)
		if err != nil {
			return err
		}
		if !series.IsDue(asOf) || series.IsFinished() {
			if series.IsActive && series.IsFinished() {
				series.IsActive = false
				return s.RecurringRepo.Update(ctx, series)
			}
			return nil
		}

		period := types.ToDate(series.NextGenerationDate)
		key := s.keys.RecurringInvoiceKey(series.ID, period)
		result.PeriodDate = types.FormatDate(period)
		result.IdempotencyKey = key

		inv, err := s.invoices.createInvoice(ctx, recurringInvoiceRequest(series, period, key))
		if err != nil {
			return err
		}
		result.InvoiceID = inv.ID

		if err := series.Advance(); err != nil {
			return err
		}
		now := time.Now().UTC()
		series.GeneratedCount++
		series.LastGeneratedAt = &now
		if series.IsFinished() {
			series.IsActive = false
		}
		if err := s.RecurringRepo.Update(ctx, series); err != nil {
			return err
		}
		generated = true
		return nil
	})
	if err != nil {
		return result, false, err
	}
	return result, generated, nil
}

func recurringInvoiceRequest(series *recurring.Series, period time.Time, key string) *dto.CreateInvoiceRequest {
	req := &dto.CreateInvoiceRequest{
		ClientID:           series.ClientID,
		ProjectID:          lo.ToPtr(series.ProjectID),
		Currency:           series.Currency,
		TaxRate:            series.TaxRate,
		DiscountType:       series.DiscountType,
		DiscountValue:      series.DiscountValue,
		IssuedDate:         &period,
		DueDays:            lo.ToPtr(series.DueDays),
		BillingEmail:       series.BillingEmail,
		Source:             types.InvoiceSourceRecurring,
		RecurringInvoiceID: lo.ToPtr(series.ID),
		IdempotencyKey:     lo.ToPtr(key),
	}
	if series.Description != "" {
		req.Notes = lo.ToPtr(series.Description)
	}
	policy := series.LateFeePolicy
	req.LateFeePolicy = &policy
	for _, item := range series.LineItems {
		req.LineItems = append(req.LineItems, dto.LineItemRequest{
			Description: item.Description,
			Quantity:    item.Quantity,
			UnitRate:    item.UnitRate,
		})
	}
	return req
}

// generateScheduled re-checks that the schedule is still pending, creates its invoice and
// flips it to generated in one transaction
func (s *invoiceGeneratorService) generateScheduled(ctx context.Context, scheduledID string, asOf time.Time, resp *dto.GenerationResponse) {
	result := dto.GenerationResult{
		SourceID:       scheduledID,
		IdempotencyKey: s.keys.ScheduledInvoiceKey(scheduledID),
	}
	generated := false

	err := s.DB.WithTx(ctx, func(ctx context.Context) error {
		sched, err := s.ScheduledInvoiceRepo.GetForUpdate(ctx, scheduledID)
		if err != nil {
			return err
		}
		if !sched.IsDue(asOf) {
			return nil
		}
		result.PeriodDate = types.FormatDate(sched.ScheduledDate)

		inv, err := s.invoices.createInvoice(ctx, scheduledInvoiceRequest(sched, result.IdempotencyKey))
		if err != nil {
			return err
		}
		result.InvoiceID = inv.ID

		now := time.Now().UTC()
		sched.ScheduledStatus = types.ScheduledInvoiceStatusGenerated
		sched.GeneratedInvoiceID = lo.ToPtr(inv.ID)
		sched.GeneratedAt = &now
		if err := s.ScheduledInvoiceRepo.Update(ctx, sched); err != nil {
			return err
		}
		generated = true
		return nil
	})

	switch {
	case err != nil:
		result.Error = err.Error()
		resp.Results = append(resp.Results, result)
		resp.Scheduled.Fail(scheduledID, err)
		s.Logger.Errorw("failed to generate scheduled invoice",
			"scheduled_invoice_id", scheduledID,
			"error", err,
		)
	case generated:
		resp.Results = append(resp.Results, result)
		resp.Scheduled.Created++
	default:
		resp.Scheduled.Skipped++
	}
}

func scheduledInvoiceRequest(sched *scheduledinvoice.ScheduledInvoice, key string) *dto.CreateInvoiceRequest {
	issued := types.ToDate(sched.ScheduledDate)
	return &dto.CreateInvoiceRequest{
		ClientID:  sched.ClientID,
		ProjectID: lo.ToPtr(sched.ProjectID),
		Currency:  sched.Currency,
		LineItems: []dto.LineItemRequest{{
			Description: sched.Description,
			Quantity:    decimal.NewFromInt(1),
			UnitRate:    sched.Amount,
		}},
		IssuedDate:         &issued,
		DueDays:            lo.ToPtr(sched.DueDays),
		BillingEmail:       sched.BillingEmail,
		Source:             types.InvoiceSourceScheduled,
		ScheduledInvoiceID: lo.ToPtr(sched.ID),
		IdempotencyKey:     lo.ToPtr(key),
	}
}
