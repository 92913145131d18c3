package service

import (
	"context"
	"time"

	"github.com/freelanceops/billing/internal/api/dto"
	"github.com/freelanceops/billing/internal/domain/task"
	"github.com/freelanceops/billing/internal/types"
	"github.com/samber/lo"
)

type TaskService interface {
	GetTask(ctx context.Context, id string) (*dto.TaskResponse, error)
	ListTasks(ctx context.Context, filter *types.TaskFilter) (*dto.ListTasksResponse, error)
	UpdateTaskStatus(ctx context.Context, id string, req dto.UpdateTaskStatusRequest) (*dto.TaskResponse, error)
}

type taskService struct {
	ServiceParams
}

func NewTaskService(params ServiceParams) TaskService {
	return &taskService{ServiceParams: params}
}

func (s *taskService) GetTask(ctx context.Context, id string) (*dto.TaskResponse, error) {
	t, err := s.TaskRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return dto.NewTaskResponse(t), nil
}

func (s *taskService) ListTasks(ctx context.Context, filter *types.TaskFilter) (*dto.ListTasksResponse, error) {
	if filter == nil {
		filter = types.NewTaskFilter()
	}
	if filter.QueryFilter == nil {
		filter.QueryFilter = types.NewDefaultQueryFilter()
	}
	if err := filter.Validate(); err != nil {
		return nil, err
	}
	if filter.Status != "" {
		if err := filter.Status.Validate(); err != nil {
			return nil, err
		}
	}

	tasks, err := s.TaskRepo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	total, err := s.TaskRepo.Count(ctx, filter)
	if err != nil {
		return nil, err
	}

	resp := types.NewListResponse(
		lo.Map(tasks, func(t *task.Task, _ int) *dto.TaskResponse { return dto.NewTaskResponse(t) }),
		total, filter.GetLimit(), filter.GetOffset(),
	)
	return &resp, nil
}

func (s *taskService) UpdateTaskStatus(ctx context.Context, id string, req dto.UpdateTaskStatusRequest) (*dto.TaskResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	t, err := s.TaskRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if t.TaskStatus == req.Status {
		return dto.NewTaskResponse(t), nil
	}

	t.TaskStatus = req.Status
	if req.Status == types.TaskStatusDone {
		t.CompletedAt = lo.ToPtr(time.Now().UTC())
	} else {
		t.CompletedAt = nil
	}
	if err := s.TaskRepo.Update(ctx, t); err != nil {
		return nil, err
	}

	s.Logger.Infow("task status updated", "task_id", t.ID, "task_status", t.TaskStatus)
	return dto.NewTaskResponse(t), nil
}
