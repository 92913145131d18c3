package sqlrepo

import (
	"context"
	"encoding/json"
	"time"

	"github.com/freelanceops/billing/internal/db"
	"github.com/freelanceops/billing/internal/domain/workflow"
	"github.com/freelanceops/billing/internal/logger"
	"github.com/freelanceops/billing/internal/types"
)

const triggerColumns = `id, name, description, event_type, conditions, actions, priority, is_active,
	status, created_at, updated_at, created_by, updated_by`

type triggerRow struct {
	ID          string  `db:"id"`
	Name        string  `db:"name"`
	Description string  `db:"description"`
	EventType   string  `db:"event_type"`
	Conditions  string  `db:"conditions"`
	Actions     string  `db:"actions"`
	Priority    int     `db:"priority"`
	IsActive    bool    `db:"is_active"`
	Status      string  `db:"status"`
	CreatedAt   string  `db:"created_at"`
	UpdatedAt   string  `db:"updated_at"`
	CreatedBy   *string `db:"created_by"`
	UpdatedBy   *string `db:"updated_by"`
}

func toTriggerRow(t *workflow.Trigger) (*triggerRow, error) {
	conditions := t.Conditions
	if conditions == nil {
		conditions = []workflow.Condition{}
	}
	c, err := json.Marshal(conditions)
	if err != nil {
		return nil, err
	}
	a, err := json.Marshal(t.Actions)
	if err != nil {
		return nil, err
	}
	return &triggerRow{
		ID:          t.ID,
		Name:        t.Name,
		Description: t.Description,
		EventType:   string(t.EventType),
		Conditions:  string(c),
		Actions:     string(a),
		Priority:    t.Priority,
		IsActive:    t.IsActive,
		Status:      string(t.Status),
		CreatedAt:   formatTime(t.CreatedAt),
		UpdatedAt:   formatTime(t.UpdatedAt),
		CreatedBy:   nullString(t.CreatedBy),
		UpdatedBy:   nullString(t.UpdatedBy),
	}, nil
}

func (r *triggerRow) toDomain() (*workflow.Trigger, error) {
	t := &workflow.Trigger{
		ID:          r.ID,
		Name:        r.Name,
		Description: r.Description,
		EventType:   types.WorkflowEventType(r.EventType),
		Priority:    r.Priority,
		IsActive:    r.IsActive,
		BaseModel: types.BaseModel{
			Status:    types.Status(r.Status),
			CreatedAt: parseTime(r.CreatedAt),
			UpdatedAt: parseTime(r.UpdatedAt),
			CreatedBy: stringValue(r.CreatedBy),
			UpdatedBy: stringValue(r.UpdatedBy),
		},
	}
	if err := json.Unmarshal([]byte(r.Conditions), &t.Conditions); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(r.Actions), &t.Actions); err != nil {
		return nil, err
	}
	return t, nil
}

type triggerRepository struct {
	db     *db.DB
	logger *logger.Logger
}

func NewTriggerRepository(db *db.DB, logger *logger.Logger) workflow.TriggerRepository {
	return &triggerRepository{db: db, logger: logger}
}

func (r *triggerRepository) Create(ctx context.Context, t *workflow.Trigger) error {
	row, err := toTriggerRow(t)
	if err != nil {
		return wrapErr(err, "workflow trigger", "encode", map[string]any{"trigger_id": t.ID})
	}
	query := `INSERT INTO workflow_triggers (` + triggerColumns + `) VALUES (
		:id, :name, :description, :event_type, :conditions, :actions, :priority, :is_active,
		:status, :created_at, :updated_at, :created_by, :updated_by)`
	if _, err := r.db.NamedExecContext(ctx, query, row); err != nil {
		return wrapErr(err, "workflow trigger", "create", map[string]any{"trigger_id": t.ID})
	}
	return nil
}

func (r *triggerRepository) Get(ctx context.Context, id string) (*workflow.Trigger, error) {
	var row triggerRow
	query := `SELECT ` + triggerColumns + ` FROM workflow_triggers WHERE id = :id AND status <> :deleted`
	if err := r.db.NamedGetContext(ctx, &row, query, map[string]interface{}{
		"id":      id,
		"deleted": types.StatusDeleted,
	}); err != nil {
		return nil, wrapErr(err, "workflow trigger", "get", map[string]any{"trigger_id": id})
	}
	t, err := row.toDomain()
	if err != nil {
		return nil, wrapErr(err, "workflow trigger", "decode", map[string]any{"trigger_id": id})
	}
	return t, nil
}

func (r *triggerRepository) Update(ctx context.Context, t *workflow.Trigger) error {
	t.Touch(ctx)
	row, err := toTriggerRow(t)
	if err != nil {
		return wrapErr(err, "workflow trigger", "encode", map[string]any{"trigger_id": t.ID})
	}
	query := `UPDATE workflow_triggers SET
		name = :name, description = :description, event_type = :event_type, conditions = :conditions,
		actions = :actions, priority = :priority, is_active = :is_active, status = :status,
		updated_at = :updated_at, updated_by = :updated_by
		WHERE id = :id`
	result, err := r.db.NamedExecContext(ctx, query, row)
	if err != nil {
		return wrapErr(err, "workflow trigger", "update", map[string]any{"trigger_id": t.ID})
	}
	n, _ := result.RowsAffected()
	return expectAffected(n, "workflow trigger", map[string]any{"trigger_id": t.ID})
}

func (r *triggerRepository) Delete(ctx context.Context, id string) error {
	query := `UPDATE workflow_triggers SET status = :deleted, is_active = :inactive, updated_at = :now, updated_by = :user
		WHERE id = :id AND status <> :deleted`
	result, err := r.db.NamedExecContext(ctx, query, map[string]interface{}{
		"id":       id,
		"deleted":  types.StatusDeleted,
		"inactive": false,
		"now":      formatTime(time.Now()),
		"user":     nullString(types.GetUserID(ctx)),
	})
	if err != nil {
		return wrapErr(err, "workflow trigger", "delete", map[string]any{"trigger_id": id})
	}
	n, _ := result.RowsAffected()
	return expectAffected(n, "workflow trigger", map[string]any{"trigger_id": id})
}

func (r *triggerRepository) filter(f *types.WorkflowTriggerFilter) *where {
	w := newWhere().add("status <> :deleted", "deleted", types.StatusDeleted)
	if f == nil {
		return w
	}
	if f.EventType != "" {
		w.add("event_type = :event_type", "event_type", string(f.EventType))
	}
	if f.ActiveOnly {
		w.add("is_active = :is_active", "is_active", true)
	}
	return w
}

func (r *triggerRepository) selectRows(ctx context.Context, query string, args map[string]interface{}) ([]*workflow.Trigger, error) {
	var rows []triggerRow
	if err := r.db.NamedSelectContext(ctx, &rows, query, args); err != nil {
		return nil, wrapErr(err, "workflow trigger", "list", nil)
	}
	triggers := make([]*workflow.Trigger, 0, len(rows))
	for i := range rows {
		t, err := rows[i].toDomain()
		if err != nil {
			return nil, wrapErr(err, "workflow trigger", "decode", map[string]any{"trigger_id": rows[i].ID})
		}
		triggers = append(triggers, t)
	}
	return triggers, nil
}

func (r *triggerRepository) List(ctx context.Context, f *types.WorkflowTriggerFilter) ([]*workflow.Trigger, error) {
	w := r.filter(f)
	var qf *types.QueryFilter
	if f != nil {
		qf = f.QueryFilter
	}
	return r.selectRows(ctx, `SELECT `+triggerColumns+` FROM workflow_triggers`+w.String()+paginate(qf, "created_at"), w.args)
}

func (r *triggerRepository) Count(ctx context.Context, f *types.WorkflowTriggerFilter) (int, error) {
	w := r.filter(f)
	var count int
	if err := r.db.NamedGetContext(ctx, &count, `SELECT COUNT(*) FROM workflow_triggers`+w.String(), w.args); err != nil {
		return 0, wrapErr(err, "workflow trigger", "count", nil)
	}
	return count, nil
}

func (r *triggerRepository) ListActiveByEvent(ctx context.Context, eventType types.WorkflowEventType) ([]*workflow.Trigger, error) {
	query := `SELECT ` + triggerColumns + ` FROM workflow_triggers
		WHERE event_type = :event_type AND is_active = :is_active AND status <> :deleted
		ORDER BY priority DESC, created_at ASC, id ASC`
	return r.selectRows(ctx, query, map[string]interface{}{
		"event_type": string(eventType),
		"is_active":  true,
		"deleted":    types.StatusDeleted,
	})
}

func (r *triggerRepository) PurgeDeleted(ctx context.Context, before time.Time) (int64, error) {
	result, err := r.db.NamedExecContext(ctx,
		`DELETE FROM workflow_triggers WHERE status = :deleted AND updated_at < :before`,
		map[string]interface{}{"deleted": types.StatusDeleted, "before": formatTime(before)})
	if err != nil {
		return 0, wrapErr(err, "workflow trigger", "purge", nil)
	}
	return result.RowsAffected()
}

type executionRow struct {
	ID             string  `db:"id"`
	DedupeKey      string  `db:"dedupe_key"`
	TriggerID      string  `db:"trigger_id"`
	EventType      string  `db:"event_type"`
	SourceEntityID string  `db:"source_entity_id"`
	ActionIndex    int     `db:"action_index"`
	ActionType     string  `db:"action_type"`
	ResultEntityID *string `db:"result_entity_id"`
	CreatedAt      string  `db:"created_at"`
}

func (r *executionRow) toDomain() *workflow.Execution {
	return &workflow.Execution{
		ID:             r.ID,
		DedupeKey:      r.DedupeKey,
		TriggerID:      r.TriggerID,
		EventType:      types.WorkflowEventType(r.EventType),
		SourceEntityID: r.SourceEntityID,
		ActionIndex:    r.ActionIndex,
		ActionType:     types.WorkflowActionType(r.ActionType),
		ResultEntityID: r.ResultEntityID,
		CreatedAt:      parseTime(r.CreatedAt),
	}
}

type executionRepository struct {
	db     *db.DB
	logger *logger.Logger
}

func NewExecutionRepository(db *db.DB, logger *logger.Logger) workflow.ExecutionRepository {
	return &executionRepository{db: db, logger: logger}
}

func (r *executionRepository) Claim(ctx context.Context, e *workflow.Execution) error {
	row := &executionRow{
		ID:             e.ID,
		DedupeKey:      e.DedupeKey,
		TriggerID:      e.TriggerID,
		EventType:      string(e.EventType),
		SourceEntityID: e.SourceEntityID,
		ActionIndex:    e.ActionIndex,
		ActionType:     string(e.ActionType),
		ResultEntityID: e.ResultEntityID,
		CreatedAt:      formatTime(e.CreatedAt),
	}
	query := `INSERT INTO workflow_executions
		(id, dedupe_key, trigger_id, event_type, source_entity_id, action_index, action_type, result_entity_id, created_at)
		VALUES (:id, :dedupe_key, :trigger_id, :event_type, :source_entity_id, :action_index, :action_type, :result_entity_id, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, row); err != nil {
		return wrapErr(err, "workflow execution", "claim", map[string]any{"dedupe_key": e.DedupeKey})
	}
	return nil
}

func (r *executionRepository) SetResult(ctx context.Context, id string, resultEntityID string) error {
	result, err := r.db.NamedExecContext(ctx,
		`UPDATE workflow_executions SET result_entity_id = :result WHERE id = :id`,
		map[string]interface{}{"id": id, "result": resultEntityID})
	if err != nil {
		return wrapErr(err, "workflow execution", "update", map[string]any{"execution_id": id})
	}
	n, _ := result.RowsAffected()
	return expectAffected(n, "workflow execution", map[string]any{"execution_id": id})
}

func (r *executionRepository) GetByDedupeKey(ctx context.Context, key string) (*workflow.Execution, error) {
	var row executionRow
	query := `SELECT id, dedupe_key, trigger_id, event_type, source_entity_id, action_index, action_type,
		result_entity_id, created_at FROM workflow_executions WHERE dedupe_key = :key`
	if err := r.db.NamedGetContext(ctx, &row, query, map[string]interface{}{"key": key}); err != nil {
		return nil, wrapErr(err, "workflow execution", "get", map[string]any{"dedupe_key": key})
	}
	return row.toDomain(), nil
}

const eventLogColumns = `id, event_type, source_entity_id, payload, occurred_at, depth, triggers_matched,
	actions_succeeded, actions_failed, results, request_id, created_at`

type eventLogRow struct {
	ID               string  `db:"id"`
	EventType        string  `db:"event_type"`
	SourceEntityID   string  `db:"source_entity_id"`
	Payload          string  `db:"payload"`
	OccurredAt       string  `db:"occurred_at"`
	Depth            int     `db:"depth"`
	TriggersMatched  int     `db:"triggers_matched"`
	ActionsSucceeded int     `db:"actions_succeeded"`
	ActionsFailed    int     `db:"actions_failed"`
	Results          string  `db:"results"`
	RequestID        *string `db:"request_id"`
	CreatedAt        string  `db:"created_at"`
}

func (r *eventLogRow) toDomain() (*workflow.EventLog, error) {
	l := &workflow.EventLog{
		ID:               r.ID,
		EventType:        types.WorkflowEventType(r.EventType),
		SourceEntityID:   r.SourceEntityID,
		Payload:          r.Payload,
		OccurredAt:       parseTime(r.OccurredAt),
		Depth:            r.Depth,
		TriggersMatched:  r.TriggersMatched,
		ActionsSucceeded: r.ActionsSucceeded,
		ActionsFailed:    r.ActionsFailed,
		RequestID:        r.RequestID,
		CreatedAt:        parseTime(r.CreatedAt),
	}
	if err := json.Unmarshal([]byte(r.Results), &l.Results); err != nil {
		return nil, err
	}
	return l, nil
}

type eventLogRepository struct {
	db     *db.DB
	logger *logger.Logger
}

func NewEventLogRepository(db *db.DB, logger *logger.Logger) workflow.EventLogRepository {
	return &eventLogRepository{db: db, logger: logger}
}

func (r *eventLogRepository) Create(ctx context.Context, l *workflow.EventLog) error {
	results := l.Results
	if results == nil {
		results = []workflow.ActionResult{}
	}
	encoded, err := json.Marshal(results)
	if err != nil {
		return wrapErr(err, "event log", "encode", map[string]any{"event_log_id": l.ID})
	}
	row := &eventLogRow{
		ID:               l.ID,
		EventType:        string(l.EventType),
		SourceEntityID:   l.SourceEntityID,
		Payload:          l.Payload,
		OccurredAt:       formatTime(l.OccurredAt),
		Depth:            l.Depth,
		TriggersMatched:  l.TriggersMatched,
		ActionsSucceeded: l.ActionsSucceeded,
		ActionsFailed:    l.ActionsFailed,
		Results:          string(encoded),
		RequestID:        l.RequestID,
		CreatedAt:        formatTime(l.CreatedAt),
	}
	query := `INSERT INTO workflow_event_log (` + eventLogColumns + `) VALUES (
		:id, :event_type, :source_entity_id, :payload, :occurred_at, :depth, :triggers_matched,
		:actions_succeeded, :actions_failed, :results, :request_id, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, row); err != nil {
		return wrapErr(err, "event log", "create", map[string]any{"event_log_id": l.ID})
	}
	return nil
}

func (r *eventLogRepository) filter(f *types.WorkflowEventLogFilter) *where {
	w := newWhere()
	if f == nil {
		return w
	}
	if f.EventType != "" {
		w.add("event_type = :event_type", "event_type", string(f.EventType))
	}
	if f.SourceEntityID != "" {
		w.add("source_entity_id = :source_entity_id", "source_entity_id", f.SourceEntityID)
	}
	return w
}

func (r *eventLogRepository) List(ctx context.Context, f *types.WorkflowEventLogFilter) ([]*workflow.EventLog, error) {
	w := r.filter(f)
	var qf *types.QueryFilter
	if f != nil {
		qf = f.QueryFilter
	}
	var rows []eventLogRow
	query := `SELECT ` + eventLogColumns + ` FROM workflow_event_log` + w.String() + paginate(qf, "created_at")
	if err := r.db.NamedSelectContext(ctx, &rows, query, w.args); err != nil {
		return nil, wrapErr(err, "event log", "list", nil)
	}
	logs := make([]*workflow.EventLog, 0, len(rows))
	for i := range rows {
		l, err := rows[i].toDomain()
		if err != nil {
			return nil, wrapErr(err, "event log", "decode", map[string]any{"event_log_id": rows[i].ID})
		}
		logs = append(logs, l)
	}
	return logs, nil
}

func (r *eventLogRepository) Count(ctx context.Context, f *types.WorkflowEventLogFilter) (int, error) {
	w := r.filter(f)
	var count int
	if err := r.db.NamedGetContext(ctx, &count, `SELECT COUNT(*) FROM workflow_event_log`+w.String(), w.args); err != nil {
		return 0, wrapErr(err, "event log", "count", nil)
	}
	return count, nil
}

func (r *eventLogRepository) PruneBefore(ctx context.Context, before time.Time) (int64, error) {
	result, err := r.db.NamedExecContext(ctx,
		`DELETE FROM workflow_event_log WHERE created_at < :before`,
		map[string]interface{}{"before": formatTime(before)})
	if err != nil {
		return 0, wrapErr(err, "event log", "prune", nil)
	}
	return result.RowsAffected()
}
