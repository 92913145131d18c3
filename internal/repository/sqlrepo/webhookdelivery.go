package sqlrepo

import (
	"context"
	"time"

	"github.com/freelanceops/billing/internal/db"
	"github.com/freelanceops/billing/internal/domain/webhookdelivery"
	ierr "github.com/freelanceops/billing/internal/errors"
	"github.com/freelanceops/billing/internal/logger"
	"github.com/freelanceops/billing/internal/types"
)

const deliveryColumns = `id, trigger_id, event_log_id, event_type, source_entity_id, url, secret, headers,
	payload, delivery_status, attempts, max_attempts, last_status_code, last_error, next_attempt_at,
	delivered_at, created_at, updated_at, version`

type deliveryRow struct {
	ID             string         `db:"id"`
	TriggerID      string         `db:"trigger_id"`
	EventLogID     *string        `db:"event_log_id"`
	EventType      string         `db:"event_type"`
	SourceEntityID string         `db:"source_entity_id"`
	URL            string         `db:"url"`
	Secret         string         `db:"secret"`
	Headers        types.Metadata `db:"headers"`
	Payload        string         `db:"payload"`
	DeliveryStatus string         `db:"delivery_status"`
	Attempts       int            `db:"attempts"`
	MaxAttempts    int            `db:"max_attempts"`
	LastStatusCode *int           `db:"last_status_code"`
	LastError      *string        `db:"last_error"`
	NextAttemptAt  *string        `db:"next_attempt_at"`
	DeliveredAt    *string        `db:"delivered_at"`
	CreatedAt      string         `db:"created_at"`
	UpdatedAt      string         `db:"updated_at"`
	Version        int            `db:"version"`
}

func toDeliveryRow(d *webhookdelivery.Delivery) *deliveryRow {
	return &deliveryRow{
		ID:             d.ID,
		TriggerID:      d.TriggerID,
		EventLogID:     d.EventLogID,
		EventType:      string(d.EventType),
		SourceEntityID: d.SourceEntityID,
		URL:            d.URL,
		Secret:         d.Secret,
		Headers:        d.Headers,
		Payload:        d.Payload,
		DeliveryStatus: string(d.DeliveryStatus),
		Attempts:       d.Attempts,
		MaxAttempts:    d.MaxAttempts,
		LastStatusCode: d.LastStatusCode,
		LastError:      d.LastError,
		NextAttemptAt:  formatTimePtr(d.NextAttemptAt),
		DeliveredAt:    formatTimePtr(d.DeliveredAt),
		CreatedAt:      formatTime(d.CreatedAt),
		UpdatedAt:      formatTime(d.UpdatedAt),
		Version:        d.Version,
	}
}

func (r *deliveryRow) toDomain() *webhookdelivery.Delivery {
	return &webhookdelivery.Delivery{
		ID:             r.ID,
		TriggerID:      r.TriggerID,
		EventLogID:     r.EventLogID,
		EventType:      types.WorkflowEventType(r.EventType),
		SourceEntityID: r.SourceEntityID,
		URL:            r.URL,
		Secret:         r.Secret,
		Headers:        r.Headers,
		Payload:        r.Payload,
		DeliveryStatus: types.WebhookDeliveryStatus(r.DeliveryStatus),
		Attempts:       r.Attempts,
		MaxAttempts:    r.MaxAttempts,
		LastStatusCode: r.LastStatusCode,
		LastError:      r.LastError,
		NextAttemptAt:  parseTimePtr(r.NextAttemptAt),
		DeliveredAt:    parseTimePtr(r.DeliveredAt),
		CreatedAt:      parseTime(r.CreatedAt),
		UpdatedAt:      parseTime(r.UpdatedAt),
		Version:        r.Version,
	}
}

type deliveryRepository struct {
	db     *db.DB
	logger *logger.Logger
}

func NewWebhookDeliveryRepository(db *db.DB, logger *logger.Logger) webhookdelivery.Repository {
	return &deliveryRepository{db: db, logger: logger}
}

func (r *deliveryRepository) Create(ctx context.Context, d *webhookdelivery.Delivery) error {
	query := `INSERT INTO webhook_delivery_log (` + deliveryColumns + `) VALUES (
		:id, :trigger_id, :event_log_id, :event_type, :source_entity_id, :url, :secret, :headers,
		:payload, :delivery_status, :attempts, :max_attempts, :last_status_code, :last_error, :next_attempt_at,
		:delivered_at, :created_at, :updated_at, 1)`
	if _, err := r.db.NamedExecContext(ctx, query, toDeliveryRow(d)); err != nil {
		return wrapErr(err, "webhook delivery", "create", map[string]any{"delivery_id": d.ID})
	}
	d.Version = 1
	return nil
}

func (r *deliveryRepository) Get(ctx context.Context, id string) (*webhookdelivery.Delivery, error) {
	var row deliveryRow
	query := `SELECT ` + deliveryColumns + ` FROM webhook_delivery_log WHERE id = :id`
	if err := r.db.NamedGetContext(ctx, &row, query, map[string]interface{}{"id": id}); err != nil {
		return nil, wrapErr(err, "webhook delivery", "get", map[string]any{"delivery_id": id})
	}
	return row.toDomain(), nil
}

func (r *deliveryRepository) Update(ctx context.Context, d *webhookdelivery.Delivery) error {
	query := `UPDATE webhook_delivery_log SET
		delivery_status = :delivery_status, attempts = :attempts, max_attempts = :max_attempts,
		last_status_code = :last_status_code, last_error = :last_error, next_attempt_at = :next_attempt_at,
		delivered_at = :delivered_at, updated_at = :updated_at, version = version + 1
		WHERE id = :id AND version = :version`
	result, err := r.db.NamedExecContext(ctx, query, toDeliveryRow(d))
	if err != nil {
		return wrapErr(err, "webhook delivery", "update", map[string]any{"delivery_id": d.ID})
	}
	n, err := result.RowsAffected()
	if err != nil {
		return wrapErr(err, "webhook delivery", "update", map[string]any{"delivery_id": d.ID})
	}
	if n == 0 {
		return ierr.NewError("webhook delivery version mismatch").
			WithHint("Webhook delivery was changed by another attempt, please retry").
			WithReportableDetails(map[string]any{
				"delivery_id": d.ID,
				"version":     d.Version,
			}).
			Mark(ierr.ErrConflict)
	}
	d.Version++
	return nil
}

// Claim moves d in flight only when the stored row is still at d's version and due at now,
// so exactly one of several concurrent senders wins.
func (r *deliveryRepository) Claim(ctx context.Context, d *webhookdelivery.Delivery, now time.Time, lease time.Duration) (bool, error) {
	query := `UPDATE webhook_delivery_log SET
		delivery_status = :in_flight, next_attempt_at = :locked_until, updated_at = :now, version = version + 1
		WHERE id = :id AND version = :version
		AND delivery_status IN (:pending, :failed, :in_flight)
		AND (next_attempt_at IS NULL OR next_attempt_at <= :now)`
	result, err := r.db.NamedExecContext(ctx, query, map[string]interface{}{
		"id":           d.ID,
		"version":      d.Version,
		"now":          formatTime(now),
		"locked_until": formatTime(now.Add(lease)),
		"pending":      string(types.WebhookDeliveryStatusPending),
		"failed":       string(types.WebhookDeliveryStatusFailed),
		"in_flight":    string(types.WebhookDeliveryStatusInFlight),
	})
	if err != nil {
		return false, wrapErr(err, "webhook delivery", "claim", map[string]any{"delivery_id": d.ID})
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, wrapErr(err, "webhook delivery", "claim", map[string]any{"delivery_id": d.ID})
	}
	if n == 0 {
		return false, nil
	}
	d.Claim(now, lease)
	d.Version++
	return true, nil
}

func (r *deliveryRepository) filter(f *types.WebhookDeliveryFilter) *where {
	w := newWhere()
	if f == nil {
		return w
	}
	if len(f.Status) > 0 {
		w.add("delivery_status IN (:statuses)", "statuses", f.Status)
	}
	if f.TriggerID != "" {
		w.add("trigger_id = :trigger_id", "trigger_id", f.TriggerID)
	}
	if f.DueBefore != nil {
		w.add("(next_attempt_at IS NULL OR next_attempt_at <= :due_before)", "due_before", formatTime(*f.DueBefore))
	}
	return w
}

func (r *deliveryRepository) selectRows(ctx context.Context, query string, args map[string]interface{}) ([]*webhookdelivery.Delivery, error) {
	var rows []deliveryRow
	if err := r.db.NamedSelectContext(ctx, &rows, query, args); err != nil {
		return nil, wrapErr(err, "webhook delivery", "list", nil)
	}
	out := make([]*webhookdelivery.Delivery, len(rows))
	for i := range rows {
		out[i] = rows[i].toDomain()
	}
	return out, nil
}

func (r *deliveryRepository) List(ctx context.Context, f *types.WebhookDeliveryFilter) ([]*webhookdelivery.Delivery, error) {
	w := r.filter(f)
	var qf *types.QueryFilter
	if f != nil {
		qf = f.QueryFilter
	}
	return r.selectRows(ctx, `SELECT `+deliveryColumns+` FROM webhook_delivery_log`+w.String()+paginate(qf, "created_at"), w.args)
}

func (r *deliveryRepository) Count(ctx context.Context, f *types.WebhookDeliveryFilter) (int, error) {
	w := r.filter(f)
	var count int
	if err := r.db.NamedGetContext(ctx, &count, `SELECT COUNT(*) FROM webhook_delivery_log`+w.String(), w.args); err != nil {
		return 0, wrapErr(err, "webhook delivery", "count", nil)
	}
	return count, nil
}

func (r *deliveryRepository) ListDue(ctx context.Context, now time.Time, limit int) ([]*webhookdelivery.Delivery, error) {
	f := types.NewWebhookDeliveryFilter()
	f.Status = []types.WebhookDeliveryStatus{
		types.WebhookDeliveryStatusPending,
		types.WebhookDeliveryStatusFailed,
		types.WebhookDeliveryStatusInFlight,
	}
	f.DueBefore = &now
	w := r.filter(f)
	query := `SELECT ` + deliveryColumns + ` FROM webhook_delivery_log` + w.String() + ` ORDER BY created_at ASC, id ASC`
	if limit > 0 {
		query += ` LIMIT :limit`
		w.args["limit"] = limit
	}
	return r.selectRows(ctx, query, w.args)
}

func (r *deliveryRepository) PruneFinishedBefore(ctx context.Context, before time.Time) (int64, error) {
	result, err := r.db.NamedExecContext(ctx,
		`DELETE FROM webhook_delivery_log WHERE delivery_status IN (:statuses) AND updated_at < :before`,
		map[string]interface{}{
			"statuses": []types.WebhookDeliveryStatus{types.WebhookDeliveryStatusDelivered, types.WebhookDeliveryStatusExhausted},
			"before":   formatTime(before),
		})
	if err != nil {
		return 0, wrapErr(err, "webhook delivery", "prune", nil)
	}
	return result.RowsAffected()
}
