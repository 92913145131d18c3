package task

import (
	"time"

	ierr "github.com/freelanceops/billing/internal/errors"
	"github.com/freelanceops/billing/internal/types"
)

// Task is a to-do item for the freelancer, created by an admin or by a workflow action
type Task struct {
	ID          string             `json:"id"`
	Title       string             `json:"title"`
	Description string             `json:"description"`
	ProjectID   *string            `json:"project_id,omitempty"`
	LeadID      *string            `json:"lead_id,omitempty"`
	AssigneeID  *string            `json:"assignee_id,omitempty"`
	Priority    types.TaskPriority `json:"priority"`
	TaskStatus  types.TaskStatus   `json:"task_status"`
	DueDate     *time.Time         `json:"due_date,omitempty"`
	// Source fields are set on tasks created by workflow triggers
	SourceEventType *types.WorkflowEventType `json:"source_event_type,omitempty"`
	SourceEntityID  *string                  `json:"source_entity_id,omitempty"`
	TriggerID       *string                  `json:"trigger_id,omitempty"`
	CompletedAt     *time.Time               `json:"completed_at,omitempty"`
	types.BaseModel
}

// Validate validates the task
func (t *Task) Validate() error {
	if t.Title == "" {
		return ierr.NewError("task title is required").
			WithHint("Please provide a task title").
			Mark(ierr.ErrValidation)
	}
	return t.TaskStatus.Validate()
}
