package sqlrepo

import (
	"context"
	"time"

	"github.com/freelanceops/billing/internal/db"
	"github.com/freelanceops/billing/internal/domain/scheduledinvoice"
	"github.com/freelanceops/billing/internal/logger"
	"github.com/freelanceops/billing/internal/types"
	"github.com/shopspring/decimal"
)

const scheduledColumns = `id, project_id, client_id, description, amount, currency, scheduled_date, due_days,
	billing_email, scheduled_status, generated_invoice_id, generated_at, cancelled_at,
	status, created_at, updated_at, created_by, updated_by`

type scheduledRow struct {
	ID                 string          `db:"id"`
	ProjectID          string          `db:"project_id"`
	ClientID           string          `db:"client_id"`
	Description        string          `db:"description"`
	Amount             decimal.Decimal `db:"amount"`
	Currency           string          `db:"currency"`
	ScheduledDate      string          `db:"scheduled_date"`
	DueDays            int             `db:"due_days"`
	BillingEmail       *string         `db:"billing_email"`
	ScheduledStatus    string          `db:"scheduled_status"`
	GeneratedInvoiceID *string         `db:"generated_invoice_id"`
	GeneratedAt        *string         `db:"generated_at"`
	CancelledAt        *string         `db:"cancelled_at"`
	Status             string          `db:"status"`
	CreatedAt          string          `db:"created_at"`
	UpdatedAt          string          `db:"updated_at"`
	CreatedBy          *string         `db:"created_by"`
	UpdatedBy          *string         `db:"updated_by"`
}

func toScheduledRow(s *scheduledinvoice.ScheduledInvoice) *scheduledRow {
	return &scheduledRow{
		ID:                 s.ID,
		ProjectID:          s.ProjectID,
		ClientID:           s.ClientID,
		Description:        s.Description,
		Amount:             s.Amount,
		Currency:           s.Currency,
		ScheduledDate:      formatDate(s.ScheduledDate),
		DueDays:            s.DueDays,
		BillingEmail:       s.BillingEmail,
		ScheduledStatus:    string(s.ScheduledStatus),
		GeneratedInvoiceID: s.GeneratedInvoiceID,
		GeneratedAt:        formatTimePtr(s.GeneratedAt),
		CancelledAt:        formatTimePtr(s.CancelledAt),
		Status:             string(s.Status),
		CreatedAt:          formatTime(s.CreatedAt),
		UpdatedAt:          formatTime(s.UpdatedAt),
		CreatedBy:          nullString(s.CreatedBy),
		UpdatedBy:          nullString(s.UpdatedBy),
	}
}

func (r *scheduledRow) toDomain() *scheduledinvoice.ScheduledInvoice {
	return &scheduledinvoice.ScheduledInvoice{
		ID:                 r.ID,
		ProjectID:          r.ProjectID,
		ClientID:           r.ClientID,
		Description:        r.Description,
		Amount:             r.Amount,
		Currency:           r.Currency,
		ScheduledDate:      parseDate(r.ScheduledDate),
		DueDays:            r.DueDays,
		BillingEmail:       r.BillingEmail,
		ScheduledStatus:    types.ScheduledInvoiceStatus(r.ScheduledStatus),
		GeneratedInvoiceID: r.GeneratedInvoiceID,
		GeneratedAt:        parseTimePtr(r.GeneratedAt),
		CancelledAt:        parseTimePtr(r.CancelledAt),
		BaseModel: types.BaseModel{
			Status:    types.Status(r.Status),
			CreatedAt: parseTime(r.CreatedAt),
			UpdatedAt: parseTime(r.UpdatedAt),
			CreatedBy: stringValue(r.CreatedBy),
			UpdatedBy: stringValue(r.UpdatedBy),
		},
	}
}

type scheduledInvoiceRepository struct {
	db     *db.DB
	logger *logger.Logger
}

func NewScheduledInvoiceRepository(db *db.DB, logger *logger.Logger) scheduledinvoice.Repository {
	return &scheduledInvoiceRepository{db: db, logger: logger}
}

func (r *scheduledInvoiceRepository) Create(ctx context.Context, s *scheduledinvoice.ScheduledInvoice) error {
	query := `INSERT INTO scheduled_invoices (` + scheduledColumns + `) VALUES (
		:id, :project_id, :client_id, :description, :amount, :currency, :scheduled_date, :due_days,
		:billing_email, :scheduled_status, :generated_invoice_id, :generated_at, :cancelled_at,
		:status, :created_at, :updated_at, :created_by, :updated_by)`
	if _, err := r.db.NamedExecContext(ctx, query, toScheduledRow(s)); err != nil {
		return wrapErr(err, "scheduled invoice", "create", map[string]any{"scheduled_invoice_id": s.ID})
	}
	return nil
}

func (r *scheduledInvoiceRepository) get(ctx context.Context, id string, lock bool) (*scheduledinvoice.ScheduledInvoice, error) {
	query := `SELECT ` + scheduledColumns + ` FROM scheduled_invoices WHERE id = :id`
	if lock {
		query += r.db.ForUpdate()
	}
	var row scheduledRow
	if err := r.db.NamedGetContext(ctx, &row, query, map[string]interface{}{"id": id}); err != nil {
		return nil, wrapErr(err, "scheduled invoice", "get", map[string]any{"scheduled_invoice_id": id})
	}
	return row.toDomain(), nil
}

func (r *scheduledInvoiceRepository) Get(ctx context.Context, id string) (*scheduledinvoice.ScheduledInvoice, error) {
	return r.get(ctx, id, false)
}

func (r *scheduledInvoiceRepository) GetForUpdate(ctx context.Context, id string) (*scheduledinvoice.ScheduledInvoice, error) {
	return r.get(ctx, id, true)
}

func (r *scheduledInvoiceRepository) Update(ctx context.Context, s *scheduledinvoice.ScheduledInvoice) error {
	s.Touch(ctx)
	query := `UPDATE scheduled_invoices SET
		description = :description, amount = :amount, scheduled_date = :scheduled_date, due_days = :due_days,
		billing_email = :billing_email, scheduled_status = :scheduled_status,
		generated_invoice_id = :generated_invoice_id, generated_at = :generated_at, cancelled_at = :cancelled_at,
		status = :status, updated_at = :updated_at, updated_by = :updated_by
		WHERE id = :id`
	result, err := r.db.NamedExecContext(ctx, query, toScheduledRow(s))
	if err != nil {
		return wrapErr(err, "scheduled invoice", "update", map[string]any{"scheduled_invoice_id": s.ID})
	}
	n, _ := result.RowsAffected()
	return expectAffected(n, "scheduled invoice", map[string]any{"scheduled_invoice_id": s.ID})
}

func (r *scheduledInvoiceRepository) filter(f *types.ScheduledInvoiceFilter) *where {
	w := newWhere().add("status <> :deleted", "deleted", types.StatusDeleted)
	if f == nil {
		return w
	}
	if f.ProjectID != "" {
		w.add("project_id = :project_id", "project_id", f.ProjectID)
	}
	if f.Status != "" {
		w.add("scheduled_status = :scheduled_status", "scheduled_status", string(f.Status))
	}
	return w
}

func (r *scheduledInvoiceRepository) selectRows(ctx context.Context, query string, args map[string]interface{}) ([]*scheduledinvoice.ScheduledInvoice, error) {
	var rows []scheduledRow
	if err := r.db.NamedSelectContext(ctx, &rows, query, args); err != nil {
		return nil, wrapErr(err, "scheduled invoice", "list", nil)
	}
	out := make([]*scheduledinvoice.ScheduledInvoice, len(rows))
	for i := range rows {
		out[i] = rows[i].toDomain()
	}
	return out, nil
}

func (r *scheduledInvoiceRepository) List(ctx context.Context, f *types.ScheduledInvoiceFilter) ([]*scheduledinvoice.ScheduledInvoice, error) {
	w := r.filter(f)
	var qf *types.QueryFilter
	if f != nil {
		qf = f.QueryFilter
	}
	return r.selectRows(ctx, `SELECT `+scheduledColumns+` FROM scheduled_invoices`+w.String()+paginate(qf, "scheduled_date"), w.args)
}

func (r *scheduledInvoiceRepository) Count(ctx context.Context, f *types.ScheduledInvoiceFilter) (int, error) {
	w := r.filter(f)
	var count int
	if err := r.db.NamedGetContext(ctx, &count, `SELECT COUNT(*) FROM scheduled_invoices`+w.String(), w.args); err != nil {
		return 0, wrapErr(err, "scheduled invoice", "count", nil)
	}
	return count, nil
}

func (r *scheduledInvoiceRepository) ListDue(ctx context.Context, asOf time.Time) ([]*scheduledinvoice.ScheduledInvoice, error) {
	query := `SELECT ` + scheduledColumns + ` FROM scheduled_invoices
		WHERE status <> :deleted AND scheduled_status = :pending AND scheduled_date <= :as_of
		ORDER BY scheduled_date ASC, id ASC`
	return r.selectRows(ctx, query, map[string]interface{}{
		"deleted": types.StatusDeleted,
		"pending": string(types.ScheduledInvoiceStatusPending),
		"as_of":   formatDate(asOf),
	})
}
