package sqlrepo

import (
	"context"
	"time"

	"github.com/freelanceops/billing/internal/db"
	"github.com/freelanceops/billing/internal/domain/notification"
	"github.com/freelanceops/billing/internal/logger"
	"github.com/freelanceops/billing/internal/types"
	"github.com/samber/lo"
)

const notificationColumns = `id, recipient_id, title, body, entity_type, entity_id, read_at,
	status, created_at, updated_at, created_by, updated_by`

type notificationRow struct {
	ID          string  `db:"id"`
	RecipientID string  `db:"recipient_id"`
	Title       string  `db:"title"`
	Body        string  `db:"body"`
	EntityType  *string `db:"entity_type"`
	EntityID    *string `db:"entity_id"`
	ReadAt      *string `db:"read_at"`
	Status      string  `db:"status"`
	CreatedAt   string  `db:"created_at"`
	UpdatedAt   string  `db:"updated_at"`
	CreatedBy   *string `db:"created_by"`
	UpdatedBy   *string `db:"updated_by"`
}

func (r *notificationRow) toDomain() *notification.Notification {
	return &notification.Notification{
		ID:          r.ID,
		RecipientID: r.RecipientID,
		Title:       r.Title,
		Body:        r.Body,
		EntityType:  r.EntityType,
		EntityID:    r.EntityID,
		ReadAt:      parseTimePtr(r.ReadAt),
		BaseModel: types.BaseModel{
			Status:    types.Status(r.Status),
			CreatedAt: parseTime(r.CreatedAt),
			UpdatedAt: parseTime(r.UpdatedAt),
			CreatedBy: stringValue(r.CreatedBy),
			UpdatedBy: stringValue(r.UpdatedBy),
		},
	}
}

type notificationRepository struct {
	db     *db.DB
	logger *logger.Logger
}

func NewNotificationRepository(db *db.DB, logger *logger.Logger) notification.Repository {
	return &notificationRepository{db: db, logger: logger}
}

func (r *notificationRepository) Create(ctx context.Context, n *notification.Notification) error {
	row := &notificationRow{
		ID:          n.ID,
		RecipientID: n.RecipientID,
		Title:       n.Title,
		Body:        n.Body,
		EntityType:  n.EntityType,
		EntityID:    n.EntityID,
		ReadAt:      formatTimePtr(n.ReadAt),
		Status:      string(n.Status),
		CreatedAt:   formatTime(n.CreatedAt),
		UpdatedAt:   formatTime(n.UpdatedAt),
		CreatedBy:   nullString(n.CreatedBy),
		UpdatedBy:   nullString(n.UpdatedBy),
	}
	query := `INSERT INTO notifications (` + notificationColumns + `) VALUES (
		:id, :recipient_id, :title, :body, :entity_type, :entity_id, :read_at,
		:status, :created_at, :updated_at, :created_by, :updated_by)`
	if _, err := r.db.NamedExecContext(ctx, query, row); err != nil {
		return wrapErr(err, "notification", "create", map[string]any{"notification_id": n.ID})
	}
	return nil
}

func (r *notificationRepository) Get(ctx context.Context, id string) (*notification.Notification, error) {
	var row notificationRow
	query := `SELECT ` + notificationColumns + ` FROM notifications WHERE id = :id AND status <> :deleted`
	if err := r.db.NamedGetContext(ctx, &row, query, map[string]interface{}{
		"id":      id,
		"deleted": types.StatusDeleted,
	}); err != nil {
		return nil, wrapErr(err, "notification", "get", map[string]any{"notification_id": id})
	}
	return row.toDomain(), nil
}

// MarkRead keeps the first read time when called again
func (r *notificationRepository) MarkRead(ctx context.Context, id string, readAt time.Time) error {
	result, err := r.db.NamedExecContext(ctx,
		`UPDATE notifications SET read_at = COALESCE(read_at, :read_at), updated_at = :read_at
		WHERE id = :id AND status <> :deleted`,
		map[string]interface{}{
			"id":      id,
			"read_at": formatTime(readAt),
			"deleted": types.StatusDeleted,
		})
	if err != nil {
		return wrapErr(err, "notification", "update", map[string]any{"notification_id": id})
	}
	n, _ := result.RowsAffected()
	return expectAffected(n, "notification", map[string]any{"notification_id": id})
}

func (r *notificationRepository) filter(f *types.NotificationFilter) *where {
	w := newWhere().add("status <> :deleted", "deleted", types.StatusDeleted)
	if f == nil {
		return w
	}
	if f.RecipientID != "" {
		w.add("recipient_id = :recipient_id", "recipient_id", f.RecipientID)
	}
	if f.UnreadOnly {
		w.add("read_at IS NULL")
	}
	return w
}

func (r *notificationRepository) List(ctx context.Context, f *types.NotificationFilter) ([]*notification.Notification, error) {
	w := r.filter(f)
	var qf *types.QueryFilter
	if f != nil {
		qf = f.QueryFilter
	}
	var rows []notificationRow
	query := `SELECT ` + notificationColumns + ` FROM notifications` + w.String() + paginate(qf, "created_at")
	if err := r.db.NamedSelectContext(ctx, &rows, query, w.args); err != nil {
		return nil, wrapErr(err, "notification", "list", nil)
	}
	return lo.Map(rows, func(row notificationRow, _ int) *notification.Notification { return row.toDomain() }), nil
}

func (r *notificationRepository) Count(ctx context.Context, f *types.NotificationFilter) (int, error) {
	w := r.filter(f)
	var count int
	if err := r.db.NamedGetContext(ctx, &count, `SELECT COUNT(*) FROM notifications`+w.String(), w.args); err != nil {
		return 0, wrapErr(err, "notification", "count", nil)
	}
	return count, nil
}

// PurgeDeleted removes deleted notifications and read ones older than the cutoff
func (r *notificationRepository) PurgeDeleted(ctx context.Context, before time.Time) (int64, error) {
	result, err := r.db.NamedExecContext(ctx,
		`DELETE FROM notifications WHERE (status = :deleted AND updated_at < :before)
		OR (read_at IS NOT NULL AND read_at < :before)`,
		map[string]interface{}{"deleted": types.StatusDeleted, "before": formatTime(before)})
	if err != nil {
		return 0, wrapErr(err, "notification", "purge", nil)
	}
	return result.RowsAffected()
}
