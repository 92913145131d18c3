package dto

import (
	"github.com/freelanceops/billing/internal/domain/notification"
	"github.com/freelanceops/billing/internal/domain/task"
	"github.com/freelanceops/billing/internal/types"
	"github.com/freelanceops/billing/internal/validator"
)

// UpdateTaskStatusRequest moves a task to a new status
type UpdateTaskStatusRequest struct {
	Status types.TaskStatus `json:"status" validate:"required"`
}

func (r *UpdateTaskStatusRequest) Validate() error {
	if err := validator.ValidateRequest(r); err != nil {
		return err
	}
	return r.Status.Validate()
}

// TaskResponse represents a task in responses
type TaskResponse struct {
	*task.Task
}

// NewTaskResponse creates a new task response from a domain task
func NewTaskResponse(t *task.Task) *TaskResponse {
	if t == nil {
		return nil
	}
	return &TaskResponse{Task: t}
}

// ListTasksResponse represents the response for listing tasks
type ListTasksResponse = types.ListResponse[*TaskResponse]

// NotificationResponse represents an in-app notification in responses
type NotificationResponse struct {
	*notification.Notification
	IsRead bool `json:"is_read"`
}

func NewNotificationResponse(n *notification.Notification) *NotificationResponse {
	if n == nil {
		return nil
	}
	return &NotificationResponse{Notification: n, IsRead: n.ReadAt != nil}
}

type ListNotificationsResponse = types.ListResponse[*NotificationResponse]
