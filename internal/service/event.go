package service

import (
	"context"

	"github.com/freelanceops/billing/internal/api/dto"
	"github.com/freelanceops/billing/internal/domain/workflow"
	"github.com/freelanceops/billing/internal/types"
	"github.com/samber/lo"
)

// EventService emits business events from outside the billing core and reads the event log
type EventService interface {
	EmitEvent(ctx context.Context, req *dto.EmitEventRequest) (*dto.EventLogResponse, error)
	ListEventLog(ctx context.Context, filter *types.WorkflowEventLogFilter) (*dto.ListEventLogResponse, error)
}

type eventService struct {
	ServiceParams
	engine WorkflowEngine
}

func NewEventService(params ServiceParams, engine WorkflowEngine) EventService {
	return &eventService{
		ServiceParams: params,
		engine:        engine,
	}
}

func (s *eventService) EmitEvent(ctx context.Context, req *dto.EmitEventRequest) (*dto.EventLogResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	event, err := req.ToEvent()
	if err != nil {
		return nil, err
	}

	log, err := s.engine.Emit(ctx, event)
	if err != nil {
		return nil, err
	}
	return dto.NewEventLogResponse(log), nil
}

func (s *eventService) ListEventLog(ctx context.Context, filter *types.WorkflowEventLogFilter) (*dto.ListEventLogResponse, error) {
	if filter == nil {
		filter = types.NewWorkflowEventLogFilter()
	}
	if filter.QueryFilter == nil {
		filter.QueryFilter = types.NewDefaultQueryFilter()
	}
	if err := filter.Validate(); err != nil {
		return nil, err
	}
	if filter.EventType != "" {
		if err := filter.EventType.Validate(); err != nil {
			return nil, err
		}
	}

	logs, err := s.EventLogRepo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	total, err := s.EventLogRepo.Count(ctx, filter)
	if err != nil {
		return nil, err
	}

	resp := types.NewListResponse(
		lo.Map(logs, func(l *workflow.EventLog, _ int) *dto.EventLogResponse { return dto.NewEventLogResponse(l) }),
		total, filter.GetLimit(), filter.GetOffset(),
	)
	return &resp, nil
}
