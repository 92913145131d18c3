package sqlrepo

import (
	"context"
	"encoding/json"
	"time"

	"github.com/freelanceops/billing/internal/db"
	"github.com/freelanceops/billing/internal/domain/invoice"
	"github.com/freelanceops/billing/internal/domain/recurring"
	"github.com/freelanceops/billing/internal/logger"
	"github.com/freelanceops/billing/internal/types"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

const recurringColumns = `id, project_id, client_id, description, currency, line_items, tax_rate,
	discount_type, discount_value, frequency, anchor_day, start_date, next_generation_date, end_date,
	due_days, billing_email, late_fee_policy, late_fee_value, is_active, generated_count, last_generated_at,
	status, created_at, updated_at, created_by, updated_by`

type recurringRow struct {
	ID                 string          `db:"id"`
	ProjectID          string          `db:"project_id"`
	ClientID           string          `db:"client_id"`
	Description        string          `db:"description"`
	Currency           string          `db:"currency"`
	LineItems          string          `db:"line_items"`
	TaxRate            decimal.Decimal `db:"tax_rate"`
	DiscountType       *string         `db:"discount_type"`
	DiscountValue      decimal.Decimal `db:"discount_value"`
	Frequency          string          `db:"frequency"`
	AnchorDay          int             `db:"anchor_day"`
	StartDate          string          `db:"start_date"`
	NextGenerationDate string          `db:"next_generation_date"`
	EndDate            *string         `db:"end_date"`
	DueDays            int             `db:"due_days"`
	BillingEmail       *string         `db:"billing_email"`
	LateFeePolicy      string          `db:"late_fee_policy"`
	LateFeeValue       decimal.Decimal `db:"late_fee_value"`
	IsActive           bool            `db:"is_active"`
	GeneratedCount     int             `db:"generated_count"`
	LastGeneratedAt    *string         `db:"last_generated_at"`
	Status             string          `db:"status"`
	CreatedAt          string          `db:"created_at"`
	UpdatedAt          string          `db:"updated_at"`
	CreatedBy          *string         `db:"created_by"`
	UpdatedBy          *string         `db:"updated_by"`
}

func toRecurringRow(s *recurring.Series) (*recurringRow, error) {
	items, err := json.Marshal(s.LineItems)
	if err != nil {
		return nil, err
	}
	var discountType *string
	if s.DiscountType != nil {
		discountType = lo.ToPtr(string(*s.DiscountType))
	}
	policy := s.LateFeePolicy.Type
	if policy == "" {
		policy = types.LateFeePolicyNone
	}
	return &recurringRow{
		ID:                 s.ID,
		ProjectID:          s.ProjectID,
		ClientID:           s.ClientID,
		Description:        s.Description,
		Currency:           s.Currency,
		LineItems:          string(items),
		TaxRate:            s.TaxRate,
		DiscountType:       discountType,
		DiscountValue:      s.DiscountValue,
		Frequency:          string(s.Frequency),
		AnchorDay:          s.AnchorDay,
		StartDate:          formatDate(s.StartDate),
		NextGenerationDate: formatDate(s.NextGenerationDate),
		EndDate:            formatDatePtr(s.EndDate),
		DueDays:            s.DueDays,
		BillingEmail:       s.BillingEmail,
		LateFeePolicy:      string(policy),
		LateFeeValue:       s.LateFeePolicy.Value,
		IsActive:           s.IsActive,
		GeneratedCount:     s.GeneratedCount,
		LastGeneratedAt:    formatTimePtr(s.LastGeneratedAt),
		Status:             string(s.Status),
		CreatedAt:          formatTime(s.CreatedAt),
		UpdatedAt:          formatTime(s.UpdatedAt),
		CreatedBy:          nullString(s.CreatedBy),
		UpdatedBy:          nullString(s.UpdatedBy),
	}, nil
}

func (r *recurringRow) toDomain() (*recurring.Series, error) {
	var items []recurring.TemplateLineItem
	if err := json.Unmarshal([]byte(r.LineItems), &items); err != nil {
		return nil, err
	}
	var discountType *types.DiscountType
	if r.DiscountType != nil {
		discountType = lo.ToPtr(types.DiscountType(*r.DiscountType))
	}
	return &recurring.Series{
		ID:                 r.ID,
		ProjectID:          r.ProjectID,
		ClientID:           r.ClientID,
		Description:        r.Description,
		Currency:           r.Currency,
		LineItems:          items,
		TaxRate:            r.TaxRate,
		DiscountType:       discountType,
		DiscountValue:      r.DiscountValue,
		Frequency:          types.RecurringFrequency(r.Frequency),
		AnchorDay:          r.AnchorDay,
		StartDate:          parseDate(r.StartDate),
		NextGenerationDate: parseDate(r.NextGenerationDate),
		EndDate:            parseDatePtr(r.EndDate),
		DueDays:            r.DueDays,
		BillingEmail:       r.BillingEmail,
		LateFeePolicy: invoice.LateFeePolicy{
			Type:  types.LateFeePolicyType(r.LateFeePolicy),
			Value: r.LateFeeValue,
		},
		IsActive:        r.IsActive,
		GeneratedCount:  r.GeneratedCount,
		LastGeneratedAt: parseTimePtr(r.LastGeneratedAt),
		BaseModel: types.BaseModel{
			Status:    types.Status(r.Status),
			CreatedAt: parseTime(r.CreatedAt),
			UpdatedAt: parseTime(r.UpdatedAt),
			CreatedBy: stringValue(r.CreatedBy),
			UpdatedBy: stringValue(r.UpdatedBy),
		},
	}, nil
}

type recurringRepository struct {
	db     *db.DB
	logger *logger.Logger
}

func NewRecurringRepository(db *db.DB, logger *logger.Logger) recurring.Repository {
	return &recurringRepository{db: db, logger: logger}
}

func (r *recurringRepository) Create(ctx context.Context, s *recurring.Series) error {
	row, err := toRecurringRow(s)
	if err != nil {
		return wrapErr(err, "recurring invoice", "encode", map[string]any{"recurring_invoice_id": s.ID})
	}
	query := `INSERT INTO recurring_invoices (` + recurringColumns + `) VALUES (
		:id, :project_id, :client_id, :description, :currency, :line_items, :tax_rate,
		:discount_type, :discount_value, :frequency, :anchor_day, :start_date, :next_generation_date, :end_date,
		:due_days, :billing_email, :late_fee_policy, :late_fee_value, :is_active, :generated_count, :last_generated_at,
		:status, :created_at, :updated_at, :created_by, :updated_by)`
	if _, err := r.db.NamedExecContext(ctx, query, row); err != nil {
		return wrapErr(err, "recurring invoice", "create", map[string]any{"recurring_invoice_id": s.ID})
	}
	return nil
}

func (r *recurringRepository) get(ctx context.Context, id string, lock bool) (*recurring.Series, error) {
	query := `SELECT ` + recurringColumns + ` FROM recurring_invoices WHERE id = :id AND status <> :deleted`
	if lock {
		query += r.db.ForUpdate()
	}
	var row recurringRow
	if err := r.db.NamedGetContext(ctx, &row, query, map[string]interface{}{
		"id":      id,
		"deleted": types.StatusDeleted,
	}); err != nil {
		return nil, wrapErr(err, "recurring invoice", "get", map[string]any{"recurring_invoice_id": id})
	}
	s, err := row.toDomain()
	if err != nil {
		return nil, wrapErr(err, "recurring invoice", "decode", map[string]any{"recurring_invoice_id": id})
	}
	return s, nil
}

func (r *recurringRepository) Get(ctx context.Context, id string) (*recurring.Series, error) {
	return r.get(ctx, id, false)
}

func (r *recurringRepository) GetForUpdate(ctx context.Context, id string) (*recurring.Series, error) {
	return r.get(ctx, id, true)
}

func (r *recurringRepository) Update(ctx context.Context, s *recurring.Series) error {
	s.Touch(ctx)
	row, err := toRecurringRow(s)
	if err != nil {
		return wrapErr(err, "recurring invoice", "encode", map[string]any{"recurring_invoice_id": s.ID})
	}
	query := `UPDATE recurring_invoices SET
		description = :description, line_items = :line_items, tax_rate = :tax_rate,
		discount_type = :discount_type, discount_value = :discount_value, frequency = :frequency,
		anchor_day = :anchor_day, next_generation_date = :next_generation_date, end_date = :end_date,
		due_days = :due_days, billing_email = :billing_email, late_fee_policy = :late_fee_policy,
		late_fee_value = :late_fee_value, is_active = :is_active, generated_count = :generated_count,
		last_generated_at = :last_generated_at, status = :status, updated_at = :updated_at, updated_by = :updated_by
		WHERE id = :id`
	result, err := r.db.NamedExecContext(ctx, query, row)
	if err != nil {
		return wrapErr(err, "recurring invoice", "update", map[string]any{"recurring_invoice_id": s.ID})
	}
	n, _ := result.RowsAffected()
	return expectAffected(n, "recurring invoice", map[string]any{"recurring_invoice_id": s.ID})
}

func (r *recurringRepository) filter(f *types.RecurringInvoiceFilter) *where {
	w := newWhere().add("status <> :deleted", "deleted", types.StatusDeleted)
	if f == nil {
		return w
	}
	if f.ProjectID != "" {
		w.add("project_id = :project_id", "project_id", f.ProjectID)
	}
	if f.ActiveOnly {
		w.add("is_active = :is_active", "is_active", true)
	}
	return w
}

func (r *recurringRepository) selectRows(ctx context.Context, query string, args map[string]interface{}) ([]*recurring.Series, error) {
	var rows []recurringRow
	if err := r.db.NamedSelectContext(ctx, &rows, query, args); err != nil {
		return nil, wrapErr(err, "recurring invoice", "list", nil)
	}
	series := make([]*recurring.Series, 0, len(rows))
	for i := range rows {
		s, err := rows[i].toDomain()
		if err != nil {
			return nil, wrapErr(err, "recurring invoice", "decode", map[string]any{"recurring_invoice_id": rows[i].ID})
		}
		series = append(series, s)
	}
	return series, nil
}

func (r *recurringRepository) List(ctx context.Context, f *types.RecurringInvoiceFilter) ([]*recurring.Series, error) {
	w := r.filter(f)
	var qf *types.QueryFilter
	if f != nil {
		qf = f.QueryFilter
	}
	return r.selectRows(ctx, `SELECT `+recurringColumns+` FROM recurring_invoices`+w.String()+paginate(qf, "created_at"), w.args)
}

func (r *recurringRepository) Count(ctx context.Context, f *types.RecurringInvoiceFilter) (int, error) {
	w := r.filter(f)
	var count int
	if err := r.db.NamedGetContext(ctx, &count, `SELECT COUNT(*) FROM recurring_invoices`+w.String(), w.args); err != nil {
		return 0, wrapErr(err, "recurring invoice", "count", nil)
	}
	return count, nil
}

func (r *recurringRepository) ListDue(ctx context.Context, asOf time.Time) ([]*recurring.Series, error) {
	query := `SELECT ` + recurringColumns + ` FROM recurring_invoices
		WHERE status <> :deleted AND is_active = :is_active AND next_generation_date <= :as_of
		ORDER BY next_generation_date ASC, id ASC`
	return r.selectRows(ctx, query, map[string]interface{}{
		"deleted":   types.StatusDeleted,
		"is_active": true,
		"as_of":     formatDate(asOf),
	})
}
