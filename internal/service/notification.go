package service

import (
	"context"
	"time"

	"github.com/freelanceops/billing/internal/api/dto"
	"github.com/freelanceops/billing/internal/domain/notification"
	"github.com/freelanceops/billing/internal/types"
	"github.com/samber/lo"
)

type NotificationService interface {
	ListNotifications(ctx context.Context, filter *types.NotificationFilter) (*dto.ListNotificationsResponse, error)
	// MarkRead is idempotent, a read notification keeps its first read time
	MarkRead(ctx context.Context, id string) (*dto.NotificationResponse, error)
}

type notificationService struct {
	ServiceParams
}

func NewNotificationService(params ServiceParams) NotificationService {
	return &notificationService{ServiceParams: params}
}

func (s *notificationService) ListNotifications(ctx context.Context, filter *types.NotificationFilter) (*dto.ListNotificationsResponse, error) {
	if filter == nil {
		filter = types.NewNotificationFilter()
	}
	if filter.QueryFilter == nil {
		filter.QueryFilter = types.NewDefaultQueryFilter()
	}
	if err := filter.Validate(); err != nil {
		return nil, err
	}

	items, err := s.NotificationRepo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	total, err := s.NotificationRepo.Count(ctx, filter)
	if err != nil {
		return nil, err
	}

	resp := types.NewListResponse(
		lo.Map(items, func(n *notification.Notification, _ int) *dto.NotificationResponse {
			return dto.NewNotificationResponse(n)
		}),
		total, filter.GetLimit(), filter.GetOffset(),
	)
	return &resp, nil
}

func (s *notificationService) MarkRead(ctx context.Context, id string) (*dto.NotificationResponse, error) {
	n, err := s.NotificationRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if n.ReadAt != nil {
		return dto.NewNotificationResponse(n), nil
	}

	now := time.Now().UTC()
	if err := s.NotificationRepo.MarkRead(ctx, id, now); err != nil {
		return nil, err
	}
	n.ReadAt = &now
	return dto.NewNotificationResponse(n), nil
}
