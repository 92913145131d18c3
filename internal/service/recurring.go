package service

import (
	"context"
	"time"

	"github.com/freelanceops/billing/internal/api/dto"
	"github.com/freelanceops/billing/internal/domain/recurring"
	ierr "github.com/freelanceops/billing/internal/errors"
	"github.com/freelanceops/billing/internal/types"
	"github.com/samber/lo"
)

type RecurringInvoiceService interface {
	CreateRecurringInvoice(ctx context.Context, req dto.CreateRecurringInvoiceRequest) (*dto.RecurringInvoiceResponse, error)
	GetRecurringInvoice(ctx context.Context, id string) (*dto.RecurringInvoiceResponse, error)
	ListRecurringInvoices(ctx context.Context, filter *types.RecurringInvoiceFilter) (*dto.ListRecurringInvoicesResponse, error)
	PauseRecurringInvoice(ctx context.Context, id string) (*dto.RecurringInvoiceResponse, error)
	// ResumeRecurringInvoice reactivates a paused series. Periods that passed while it was
	// paused are skipped, not billed.
	ResumeRecurringInvoice(ctx context.Context, id string) (*dto.RecurringInvoiceResponse, error)
}

type recurringInvoiceService struct {
	ServiceParams
}

func NewRecurringInvoiceService(params ServiceParams) RecurringInvoiceService {
	return &recurringInvoiceService{ServiceParams: params}
}

func (s *recurringInvoiceService) CreateRecurringInvoice(ctx context.Context, req dto.CreateRecurringInvoiceRequest) (*dto.RecurringInvoiceResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	series := req.ToSeries(ctx)
	if req.LateFeePolicy == nil {
		series.LateFeePolicy = (&invoiceService{ServiceParams: s.ServiceParams}).defaultLateFeePolicy()
	}
	if err := series.Validate(); err != nil {
		return nil, err
	}
	if err := s.RecurringRepo.Create(ctx, series); err != nil {
		return nil, err
	}

	s.Logger.Infow("recurring invoice created",
		"recurring_invoice_id", series.ID,
		"frequency", series.Frequency,
		"next_generation_date", types.FormatDate(series.NextGenerationDate),
	)
	return dto.NewRecurringInvoiceResponse(series), nil
}

func (s *recurringInvoiceService) GetRecurringInvoice(ctx context.Context, id string) (*dto.RecurringInvoiceResponse, error) {
	series, err := s.RecurringRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return dto.NewRecurringInvoiceResponse(series), nil
}

func (s *recurringInvoiceService) ListRecurringInvoices(ctx context.Context, filter *types.RecurringInvoiceFilter) (*dto.ListRecurringInvoicesResponse, error) {
	if filter == nil {
		filter = types.NewRecurringInvoiceFilter()
	}
	if filter.QueryFilter == nil {
		filter.QueryFilter = types.NewDefaultQueryFilter()
	}
	if err := filter.Validate(); err != nil {
		return nil, err
	}

	items, err := s.RecurringRepo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	total, err := s.RecurringRepo.Count(ctx, filter)
	if err != nil {
		return nil, err
	}

	resp := types.NewListResponse(
		lo.Map(items, func(series *recurring.Series, _ int) *dto.RecurringInvoiceResponse {
			return dto.NewRecurringInvoiceResponse(series)
		}),
		total, filter.GetLimit(), filter.GetOffset(),
	)
	return &resp, nil
}

func (s *recurringInvoiceService) PauseRecurringInvoice(ctx context.Context, id string) (*dto.RecurringInvoiceResponse, error) {
	return s.setActive(ctx, id, false)
}

func (s *recurringInvoiceService) ResumeRecurringInvoice(ctx context.Context, id string) (*dto.RecurringInvoiceResponse, error) {
	return s.setActive(ctx, id, true)
}

func (s *recurringInvoiceService) setActive(ctx context.Context, id string, active bool) (*dto.RecurringInvoiceResponse, error) {
	var series *recurring.Series
	err := s.DB.WithTx(ctx, func(ctx context.Context) error {
		var err error
		series, err = s.RecurringRepo.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if series.IsActive == active {
			return nil
		}

		if active {
			today := types.ToDate(time.Now())
			for series.NextGenerationDate.Before(today) {
				if err := series.Advance(); err != nil {
					return err
				}
			}
			if series.IsFinished() {
				return ierr.NewError("recurring invoice has ended").
					WithHint("The series passed its end date and can not be resumed").
					WithReportableDetails(map[string]any{
						"recurring_invoice_id": series.ID,
						"end_date":             series.EndDate,
					}).
					Mark(ierr.ErrConflict)
			}
		}
		series.IsActive = active
		return s.RecurringRepo.Update(ctx, series)
	})
	if err != nil {
		return nil, err
	}

	s.Logger.Infow("recurring invoice toggled",
		"recurring_invoice_id", series.ID,
		"is_active", series.IsActive,
		"next_generation_date", types.FormatDate(series.NextGenerationDate),
	)
	return dto.NewRecurringInvoiceResponse(series), nil
}
