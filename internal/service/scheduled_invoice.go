package service

import (
	"context"
	"time"

	"github.com/freelanceops/billing/internal/api/dto"
	"github.com/freelanceops/billing/internal/domain/scheduledinvoice"
	ierr "github.com/freelanceops/billing/internal/errors"
	"github.com/freelanceops/billing/internal/types"
	"github.com/samber/lo"
)

type ScheduledInvoiceService interface {
	CreateScheduledInvoice(ctx context.Context, req dto.CreateScheduledInvoiceRequest) (*dto.ScheduledInvoiceResponse, error)
	GetScheduledInvoice(ctx context.Context, id string) (*dto.ScheduledInvoiceResponse, error)
	ListScheduledInvoices(ctx context.Context, filter *types.ScheduledInvoiceFilter) (*dto.ListScheduledInvoicesResponse, error)
	// CancelScheduledInvoice cancels a pending schedule. Generated schedules can not be cancelled.
	CancelScheduledInvoice(ctx context.Context, id string) (*dto.ScheduledInvoiceResponse, error)
}

type scheduledInvoiceService struct {
	ServiceParams
}

func NewScheduledInvoiceService(params ServiceParams) ScheduledInvoiceService {
	return &scheduledInvoiceService{ServiceParams: params}
}

func (s *scheduledInvoiceService) CreateScheduledInvoice(ctx context.Context, req dto.CreateScheduledInvoiceRequest) (*dto.ScheduledInvoiceResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	sched := req.ToScheduledInvoice(ctx)
	if err := sched.Validate(); err != nil {
		return nil, err
	}
	if err := s.ScheduledInvoiceRepo.Create(ctx, sched); err != nil {
		return nil, err
	}

	s.Logger.Infow("invoice scheduled",
		"scheduled_invoice_id", sched.ID,
		"scheduled_date", types.FormatDate(sched.ScheduledDate),
		"amount", sched.Amount,
	)
	return dto.NewScheduledInvoiceResponse(sched), nil
}

func (s *scheduledInvoiceService) GetScheduledInvoice(ctx context.Context, id string) (*dto.ScheduledInvoiceResponse, error) {
	sched, err := s.ScheduledInvoiceRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return dto.NewScheduledInvoiceResponse(sched), nil
}

func (s *scheduledInvoiceService) ListScheduledInvoices(ctx context.Context, filter *types.ScheduledInvoiceFilter) (*dto.ListScheduledInvoicesResponse, error) {
	if filter == nil {
		filter = types.NewScheduledInvoiceFilter()
	}
	if filter.QueryFilter == nil {
		filter.QueryFilter = types.NewDefaultQueryFilter()
	}
	if err := filter.Validate(); err != nil {
		return nil, err
	}

	items, err := s.ScheduledInvoiceRepo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	total, err := s.ScheduledInvoiceRepo.Count(ctx, filter)
	if err != nil {
		return nil, err
	}

	resp := types.NewListResponse(
		lo.Map(items, func(sched *scheduledinvoice.ScheduledInvoice, _ int) *dto.ScheduledInvoiceResponse {
			return dto.NewScheduledInvoiceResponse(sched)
		}),
		total, filter.GetLimit(), filter.GetOffset(),
	)
	return &resp, nil
}

func (s *scheduledInvoiceService) CancelScheduledInvoice(ctx context.Context, id string) (*dto.ScheduledInvoiceResponse, error) {
	var sched *scheduledinvoice.ScheduledInvoice
	err := s.DB.WithTx(ctx, func(ctx context.Context) error {
		var err error
		sched, err = s.ScheduledInvoiceRepo.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		switch sched.ScheduledStatus {
		case types.ScheduledInvoiceStatusCancelled:
			return nil
		case types.ScheduledInvoiceStatusGenerated:
			return ierr.NewError("scheduled invoice was already generated").
				WithHint("The invoice was already created, void or delete it instead").
				WithReportableDetails(map[string]any{
					"scheduled_invoice_id": sched.ID,
					"invoice_id":           lo.FromPtr(sched.GeneratedInvoiceID),
				}).
				Mark(ierr.ErrConflict)
		}

		now := time.Now().UTC()
		sched.ScheduledStatus = types.ScheduledInvoiceStatusCancelled
		sched.CancelledAt = &now
		return s.ScheduledInvoiceRepo.Update(ctx, sched)
	})
	if err != nil {
		return nil, err
	}

	s.Logger.Infow("scheduled invoice cancelled", "scheduled_invoice_id", sched.ID)
	return dto.NewScheduledInvoiceResponse(sched), nil
}
