package types

import (
	ierr "github.com/freelanceops/billing/internal/errors"
	"github.com/samber/lo"
)

// TaskStatus is the progress state of a task created by an admin or a workflow
type TaskStatus string

const (
	TaskStatusTodo       TaskStatus = "todo"
	TaskStatusInProgress TaskStatus = "in_progress"
	TaskStatusDone       TaskStatus = "done"
	TaskStatusCancelled  TaskStatus = "cancelled"
)

func (s TaskStatus) String() string {
	return string(s)
}

func (s TaskStatus) Validate() error {
	allowed := []TaskStatus{
		TaskStatusTodo,
		TaskStatusInProgress,
		TaskStatusDone,
		TaskStatusCancelled,
	}
	if !lo.Contains(allowed, s) {
		return ierr.NewError("invalid task status").
			WithHint("Please provide a valid task status").
			WithReportableDetails(map[string]any{
				"allowed": allowed,
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}

// TaskPriority orders tasks in the admin dashboard
type TaskPriority string

const (
	TaskPriorityLow    TaskPriority = "low"
	TaskPriorityMedium TaskPriority = "medium"
	TaskPriorityHigh   TaskPriority = "high"
)

// TaskFilter represents the filter options for listing tasks
type TaskFilter struct {
	*QueryFilter
	ProjectID string     `json:"project_id,omitempty" form:"project_id"`
	LeadID    string     `json:"lead_id,omitempty" form:"lead_id"`
	Status    TaskStatus `json:"status,omitempty" form:"status"`
}

func NewTaskFilter() *TaskFilter {
	return &TaskFilter{QueryFilter: NewDefaultQueryFilter()}
}

// NotificationFilter represents the filter options for listing in-app notifications
type NotificationFilter struct {
	*QueryFilter
	RecipientID string `json:"recipient_id,omitempty" form:"recipient_id"`
	UnreadOnly  bool   `json:"unread_only,omitempty" form:"unread_only"`
}

func NewNotificationFilter() *NotificationFilter {
	return &NotificationFilter{QueryFilter: NewDefaultQueryFilter()}
}
