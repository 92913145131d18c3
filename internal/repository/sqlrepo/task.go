package sqlrepo

import (
	"context"
	"time"

	"github.com/freelanceops/billing/internal/db"
	"github.com/freelanceops/billing/internal/domain/task"
	"github.com/freelanceops/billing/internal/logger"
	"github.com/freelanceops/billing/internal/types"
	"github.com/samber/lo"
)

const taskColumns = `id, title, description, project_id, lead_id, assignee_id, priority, task_status, due_date,
	source_event_type, source_entity_id, trigger_id, completed_at,
	status, created_at, updated_at, created_by, updated_by`

type taskRow struct {
	ID              string  `db:"id"`
	Title           string  `db:"title"`
	Description     string  `db:"description"`
	ProjectID       *string `db:"project_id"`
	LeadID          *string `db:"lead_id"`
	AssigneeID      *string `db:"assignee_id"`
	Priority        string  `db:"priority"`
	TaskStatus      string  `db:"task_status"`
	DueDate         *string `db:"due_date"`
	SourceEventType *string `db:"source_event_type"`
	SourceEntityID  *string `db:"source_entity_id"`
	TriggerID       *string `db:"trigger_id"`
	CompletedAt     *string `db:"completed_at"`
	Status          string  `db:"status"`
	CreatedAt       string  `db:"created_at"`
	UpdatedAt       string  `db:"updated_at"`
	CreatedBy       *string `db:"created_by"`
	UpdatedBy       *string `db:"updated_by"`
}

func toTaskRow(t *task.Task) *taskRow {
	var eventType *string
	if t.SourceEventType != nil {
		eventType = lo.ToPtr(string(*t.SourceEventType))
	}
	return &taskRow{
		ID:              t.ID,
		Title:           t.Title,
		Description:     t.Description,
		ProjectID:       t.ProjectID,
		LeadID:          t.LeadID,
		AssigneeID:      t.AssigneeID,
		Priority:        string(t.Priority),
		TaskStatus:      string(t.TaskStatus),
		DueDate:         formatDatePtr(t.DueDate),
		SourceEventType: eventType,
		SourceEntityID:  t.SourceEntityID,
		TriggerID:       t.TriggerID,
		CompletedAt:     formatTimePtr(t.CompletedAt),
		Status:          string(t.Status),
		CreatedAt:       formatTime(t.CreatedAt),
		UpdatedAt:       formatTime(t.UpdatedAt),
		CreatedBy:       nullString(t.CreatedBy),
		UpdatedBy:       nullString(t.UpdatedBy),
	}
}

func (r *taskRow) toDomain() *task.Task {
	var eventType *types.WorkflowEventType
	if r.SourceEventType != nil {
		eventType = lo.ToPtr(types.WorkflowEventType(*r.SourceEventType))
	}
	return &task.Task{
		ID:              r.ID,
		Title:           r.Title,
		Description:     r.Description,
		ProjectID:       r.ProjectID,
		LeadID:          r.LeadID,
		AssigneeID:      r.AssigneeID,
		Priority:        types.TaskPriority(r.Priority),
		TaskStatus:      types.TaskStatus(r.TaskStatus),
		DueDate:         parseDatePtr(r.DueDate),
		SourceEventType: eventType,
		SourceEntityID:  r.SourceEntityID,
		TriggerID:       r.TriggerID,
		CompletedAt:     parseTimePtr(r.CompletedAt),
		BaseModel: types.BaseModel{
			Status:    types.Status(r.Status),
			CreatedAt: parseTime(r.CreatedAt),
			UpdatedAt: parseTime(r.UpdatedAt),
			CreatedBy: stringValue(r.CreatedBy),
			UpdatedBy: stringValue(r.UpdatedBy),
		},
	}
}

type taskRepository struct {
	db     *db.DB
	logger *logger.Logger
}

func NewTaskRepository(db *db.DB, logger *logger.Logger) task.Repository {
	return &taskRepository{db: db, logger: logger}
}

func (r *taskRepository) Create(ctx context.Context, t *task.Task) error {
	query := `INSERT INTO tasks (` + taskColumns + `) VALUES (
		:id, :title, :description, :project_id, :lead_id, :assignee_id, :priority, :task_status, :due_date,
		:source_event_type, :source_entity_id, :trigger_id, :completed_at,
		:status, :created_at, :updated_at, :created_by, :updated_by)`
	if _, err := r.db.NamedExecContext(ctx, query, toTaskRow(t)); err != nil {
		return wrapErr(err, "task", "create", map[string]any{"task_id": t.ID})
	}
	return nil
}

func (r *taskRepository) Get(ctx context.Context, id string) (*task.Task, error) {
	var row taskRow
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE id = :id AND status <> :deleted`
	if err := r.db.NamedGetContext(ctx, &row, query, map[string]interface{}{
		"id":      id,
		"deleted": types.StatusDeleted,
	}); err != nil {
		return nil, wrapErr(err, "task", "get", map[string]any{"task_id": id})
	}
	return row.toDomain(), nil
}

func (r *taskRepository) Update(ctx context.Context, t *task.Task) error {
	t.Touch(ctx)
	query := `UPDATE tasks SET
		title = :title, description = :description, assignee_id = :assignee_id, priority = :priority,
		task_status = :task_status, due_date = :due_date, completed_at = :completed_at,
		status = :status, updated_at = :updated_at, updated_by = :updated_by
		WHERE id = :id`
	result, err := r.db.NamedExecContext(ctx, query, toTaskRow(t))
	if err != nil {
		return wrapErr(err, "task", "update", map[string]any{"task_id": t.ID})
	}
	n, _ := result.RowsAffected()
	return expectAffected(n, "task", map[string]any{"task_id": t.ID})
}

func (r *taskRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.NamedExecContext(ctx,
		`UPDATE tasks SET status = :deleted, updated_at = :now, updated_by = :user WHERE id = :id AND status <> :deleted`,
		map[string]interface{}{
			"id":      id,
			"deleted": types.StatusDeleted,
			"now":     formatTime(time.Now()),
			"user":    nullString(types.GetUserID(ctx)),
		})
	if err != nil {
		return wrapErr(err, "task", "delete", map[string]any{"task_id": id})
	}
	n, _ := result.RowsAffected()
	return expectAffected(n, "task", map[string]any{"task_id": id})
}

func (r *taskRepository) filter(f *types.TaskFilter) *where {
	w := newWhere().add("status <> :deleted", "deleted", types.StatusDeleted)
	if f == nil {
		return w
	}
	if f.ProjectID != "" {
		w.add("project_id = :project_id", "project_id", f.ProjectID)
	}
	if f.LeadID != "" {
		w.add("lead_id = :lead_id", "lead_id", f.LeadID)
	}
	if f.Status != "" {
		w.add("task_status = :task_status", "task_status", string(f.Status))
	}
	return w
}

func (r *taskRepository) List(ctx context.Context, f *types.TaskFilter) ([]*task.Task, error) {
	w := r.filter(f)
	var qf *types.QueryFilter
	if f != nil {
		qf = f.QueryFilter
	}
	var rows []taskRow
	if err := r.db.NamedSelectContext(ctx, &rows, `SELECT `+taskColumns+` FROM tasks`+w.String()+paginate(qf, "created_at"), w.args); err != nil {
		return nil, wrapErr(err, "task", "list", nil)
	}
	return lo.Map(rows, func(row taskRow, _ int) *task.Task { return row.toDomain() }), nil
}

func (r *taskRepository) Count(ctx context.Context, f *types.TaskFilter) (int, error) {
	w := r.filter(f)
	var count int
	if err := r.db.NamedGetContext(ctx, &count, `SELECT COUNT(*) FROM tasks`+w.String(), w.args); err != nil {
		return 0, wrapErr(err, "task", "count", nil)
	}
	return count, nil
}

func (r *taskRepository) PurgeDeleted(ctx context.Context, before time.Time) (int64, error) {
	result, err := r.db.NamedExecContext(ctx,
		`DELETE FROM tasks WHERE status = :deleted AND updated_at < :before`,
		map[string]interface{}{"deleted": types.StatusDeleted, "before": formatTime(before)})
	if err != nil {
		return 0, wrapErr(err, "task", "purge", nil)
	}
	return result.RowsAffected()
}
