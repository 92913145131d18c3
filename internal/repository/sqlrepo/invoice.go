package sqlrepo

import (
	"context"
	"time"

	"github.com/freelanceops/billing/internal/db"
	"github.com/freelanceops/billing/internal/domain/invoice"
	ierr "github.com/freelanceops/billing/internal/errors"
	"github.com/freelanceops/billing/internal/logger"
	"github.com/freelanceops/billing/internal/types"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

const invoiceColumns = `id, invoice_number, client_id, project_id, milestone_id, invoice_status, currency,
	subtotal, discount_type, discount_value, discount_amount, tax_rate, tax_amount, total, amount_paid,
	issued_date, due_date, sent_at, viewed_at, paid_at, voided_at, overdue_since,
	late_fee_policy, late_fee_value, late_fee_applied_at, late_fee_amount, is_deposit, billing_email, notes,
	source, recurring_invoice_id, scheduled_invoice_id, idempotency_key, metadata, version,
	status, created_at, updated_at, created_by, updated_by`

const lineItemColumns = `id, invoice_id, position, kind, description, quantity, unit_rate, amount, created_at`

type invoiceRow struct {
	ID                 string          `db:"id"`
	InvoiceNumber      string          `db:"invoice_number"`
	ClientID           string          `db:"client_id"`
	ProjectID          *string         `db:"project_id"`
	MilestoneID        *string         `db:"milestone_id"`
	InvoiceStatus      string          `db:"invoice_status"`
	Currency           string          `db:"currency"`
	Subtotal           decimal.Decimal `db:"subtotal"`
	DiscountType       *string         `db:"discount_type"`
	DiscountValue      decimal.Decimal `db:"discount_value"`
	DiscountAmount     decimal.Decimal `db:"discount_amount"`
	TaxRate            decimal.Decimal `db:"tax_rate"`
	TaxAmount          decimal.Decimal `db:"tax_amount"`
	Total              decimal.Decimal `db:"total"`
	AmountPaid         decimal.Decimal `db:"amount_paid"`
	IssuedDate         *string         `db:"issued_date"`
	DueDate            string          `db:"due_date"`
	SentAt             *string         `db:"sent_at"`
	ViewedAt           *string         `db:"viewed_at"`
	PaidAt             *string         `db:"paid_at"`
	VoidedAt           *string         `db:"voided_at"`
	OverdueSince       *string         `db:"overdue_since"`
	LateFeePolicy      string          `db:"late_fee_policy"`
	LateFeeValue       decimal.Decimal `db:"late_fee_value"`
	LateFeeAppliedAt   *string         `db:"late_fee_applied_at"`
	LateFeeAmount      decimal.Decimal `db:"late_fee_amount"`
	IsDeposit          bool            `db:"is_deposit"`
	BillingEmail       *string         `db:"billing_email"`
	Notes              *string         `db:"notes"`
	Source             string          `db:"source"`
	RecurringInvoiceID *string         `db:"recurring_invoice_id"`
	ScheduledInvoiceID *string         `db:"scheduled_invoice_id"`
	IdempotencyKey     *string         `db:"idempotency_key"`
	Metadata           types.Metadata  `db:"metadata"`
	Version            int             `db:"version"`
	Status             string          `db:"status"`
	CreatedAt          string          `db:"created_at"`
	UpdatedAt          string          `db:"updated_at"`
	CreatedBy          *string         `db:"created_by"`
	UpdatedBy          *string         `db:"updated_by"`
}

type lineItemRow struct {
	ID          string          `db:"id"`
	InvoiceID   string          `db:"invoice_id"`
	Position    int             `db:"position"`
	Kind        string          `db:"kind"`
	Description string          `db:"description"`
	Quantity    decimal.Decimal `db:"quantity"`
	UnitRate    decimal.Decimal `db:"unit_rate"`
	Amount      decimal.Decimal `db:"amount"`
	CreatedAt   string          `db:"created_at"`
}

func toInvoiceRow(inv *invoice.Invoice) *invoiceRow {
	var discountType *string
	if inv.DiscountType != nil {
		discountType = lo.ToPtr(string(*inv.DiscountType))
	}
	policy := inv.LateFeePolicy.Type
	if policy == "" {
		policy = types.LateFeePolicyNone
	}
	return &invoiceRow{
		ID:                 inv.ID,
		InvoiceNumber:      inv.InvoiceNumber,
		ClientID:           inv.ClientID,
		ProjectID:          inv.ProjectID,
		MilestoneID:        inv.MilestoneID,
		InvoiceStatus:      string(inv.InvoiceStatus),
		Currency:           inv.Currency,
		Subtotal:           inv.Subtotal,
		DiscountType:       discountType,
		DiscountValue:      inv.DiscountValue,
		DiscountAmount:     inv.DiscountAmount,
		TaxRate:            inv.TaxRate,
		TaxAmount:          inv.TaxAmount,
		Total:              inv.Total,
		AmountPaid:         inv.AmountPaid,
		IssuedDate:         formatDatePtr(inv.IssuedDate),
		DueDate:            formatDate(inv.DueDate),
		SentAt:             formatTimePtr(inv.SentAt),
		ViewedAt:           formatTimePtr(inv.ViewedAt),
		PaidAt:             formatTimePtr(inv.PaidAt),
		VoidedAt:           formatTimePtr(inv.VoidedAt),
		OverdueSince:       formatDatePtr(inv.OverdueSince),
		LateFeePolicy:      string(policy),
		LateFeeValue:       inv.LateFeePolicy.Value,
		LateFeeAppliedAt:   formatTimePtr(inv.LateFeeAppliedAt),
		LateFeeAmount:      inv.LateFeeAmount,
		IsDeposit:          inv.IsDeposit,
		BillingEmail:       inv.BillingEmail,
		Notes:              inv.Notes,
		Source:             string(inv.Source),
		RecurringInvoiceID: inv.RecurringInvoiceID,
		ScheduledInvoiceID: inv.ScheduledInvoiceID,
		IdempotencyKey:     inv.IdempotencyKey,
		Metadata:           inv.Metadata,
		Version:            inv.Version,
		Status:             string(inv.Status),
		CreatedAt:          formatTime(inv.CreatedAt),
		UpdatedAt:          formatTime(inv.UpdatedAt),
		CreatedBy:          nullString(inv.CreatedBy),
		UpdatedBy:          nullString(inv.UpdatedBy),
	}
}

func (r *invoiceRow) toDomain() *invoice.Invoice {
	var discountType *types.DiscountType
	if r.DiscountType != nil {
		discountType = lo.ToPtr(types.DiscountType(*r.DiscountType))
	}
	return &invoice.Invoice{
		ID:             r.ID,
		InvoiceNumber:  r.InvoiceNumber,
		ClientID:       r.ClientID,
		ProjectID:      r.ProjectID,
		MilestoneID:    r.MilestoneID,
		InvoiceStatus:  types.InvoiceStatus(r.InvoiceStatus),
		Currency:       r.Currency,
		LineItems:      []*invoice.LineItem{},
		Subtotal:       r.Subtotal,
		DiscountType:   discountType,
		DiscountValue:  r.DiscountValue,
		DiscountAmount: r.DiscountAmount,
		TaxRate:        r.TaxRate,
		TaxAmount:      r.TaxAmount,
		Total:          r.Total,
		AmountPaid:     r.AmountPaid,
		IssuedDate:     parseDatePtr(r.IssuedDate),
		DueDate:        parseDate(r.DueDate),
		SentAt:         parseTimePtr(r.SentAt),
		ViewedAt:       parseTimePtr(r.ViewedAt),
		PaidAt:         parseTimePtr(r.PaidAt),
		VoidedAt:       parseTimePtr(r.VoidedAt),
		OverdueSince:   parseDatePtr(r.OverdueSince),
		LateFeePolicy: invoice.LateFeePolicy{
			Type:  types.LateFeePolicyType(r.LateFeePolicy),
			Value: r.LateFeeValue,
		},
		LateFeeAppliedAt:   parseTimePtr(r.LateFeeAppliedAt),
		LateFeeAmount:      r.LateFeeAmount,
		IsDeposit:          r.IsDeposit,
		BillingEmail:       r.BillingEmail,
		Notes:              r.Notes,
		Source:             types.InvoiceSource(r.Source),
		RecurringInvoiceID: r.RecurringInvoiceID,
		ScheduledInvoiceID: r.ScheduledInvoiceID,
		IdempotencyKey:     r.IdempotencyKey,
		Metadata:           r.Metadata,
		Version:            r.Version,
		BaseModel: types.BaseModel{
			Status:    types.Status(r.Status),
			CreatedAt: parseTime(r.CreatedAt),
			UpdatedAt: parseTime(r.UpdatedAt),
			CreatedBy: stringValue(r.CreatedBy),
			UpdatedBy: stringValue(r.UpdatedBy),
		},
	}
}

func toLineItemRow(item *invoice.LineItem) *lineItemRow {
	return &lineItemRow{
		ID:          item.ID,
		InvoiceID:   item.InvoiceID,
		Position:    item.Position,
		Kind:        string(item.Kind),
		Description: item.Description,
		Quantity:    item.Quantity,
		UnitRate:    item.UnitRate,
		Amount:      item.Amount,
		CreatedAt:   formatTime(item.CreatedAt),
	}
}

func (r *lineItemRow) toDomain() *invoice.LineItem {
	return &invoice.LineItem{
		ID:          r.ID,
		InvoiceID:   r.InvoiceID,
		Position:    r.Position,
		Kind:        types.LineItemKind(r.Kind),
		Description: r.Description,
		Quantity:    r.Quantity,
		UnitRate:    r.UnitRate,
		Amount:      r.Amount,
		CreatedAt:   parseTime(r.CreatedAt),
	}
}

type invoiceRepository struct {
	db     *db.DB
	logger *logger.Logger
}

func NewInvoiceRepository(db *db.DB, logger *logger.Logger) invoice.Repository {
	return &invoiceRepository{db: db, logger: logger}
}

func (r *invoiceRepository) Create(ctx context.Context, inv *invoice.Invoice) error {
	r.logger.Debugw("creating invoice",
		"invoice_id", inv.ID,
		"client_id", inv.ClientID,
		"total", inv.Total,
	)

	return r.db.WithTx(ctx, func(ctx context.Context) error {
		query := `INSERT INTO invoices (` + invoiceColumns + `) VALUES (
			:id, :invoice_number, :client_id, :project_id, :milestone_id, :invoice_status, :currency,
			:subtotal, :discount_type, :discount_value, :discount_amount, :tax_rate, :tax_amount, :total, :amount_paid,
			:issued_date, :due_date, :sent_at, :viewed_at, :paid_at, :voided_at, :overdue_since,
			:late_fee_policy, :late_fee_value, :late_fee_applied_at, :late_fee_amount, :is_deposit, :billing_email, :notes,
			:source, :recurring_invoice_id, :scheduled_invoice_id, :idempotency_key, :metadata, :version,
			:status, :created_at, :updated_at, :created_by, :updated_by)`
		if _, err := r.db.NamedExecContext(ctx, query, toInvoiceRow(inv)); err != nil {
			return wrapErr(err, "invoice", "create", map[string]any{
				"invoice_id":     inv.ID,
				"invoice_number": inv.InvoiceNumber,
			})
		}
		for _, item := range inv.LineItems {
			item.InvoiceID = inv.ID
			if err := r.AddLineItem(ctx, item); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *invoiceRepository) get(ctx context.Context, id string, lock bool) (*invoice.Invoice, error) {
	query := `SELECT ` + invoiceColumns + ` FROM invoices WHERE id = :id`
	if lock {
		query += r.db.ForUpdate()
	}
	var row invoiceRow
	if err := r.db.NamedGetContext(ctx, &row, query, map[string]interface{}{"id": id}); err != nil {
		return nil, wrapErr(err, "invoice", "get", map[string]any{"invoice_id": id})
	}
	inv := row.toDomain()
	if err := r.loadLineItems(ctx, []*invoice.Invoice{inv}); err != nil {
		return nil, err
	}
	return inv, nil
}

func (r *invoiceRepository) Get(ctx context.Context, id string) (*invoice.Invoice, error) {
	return r.get(ctx, id, false)
}

func (r *invoiceRepository) GetForUpdate(ctx context.Context, id string) (*invoice.Invoice, error) {
	return r.get(ctx, id, true)
}

func (r *invoiceRepository) GetByIdempotencyKey(ctx context.Context, key string) (*invoice.Invoice, error) {
	var row invoiceRow
	query := `SELECT ` + invoiceColumns + ` FROM invoices WHERE idempotency_key = :key`
	if err := r.db.NamedGetContext(ctx, &row, query, map[string]interface{}{"key": key}); err != nil {
		return nil, wrapErr(err, "invoice", "get", map[string]any{"idempotency_key": key})
	}
	inv := row.toDomain()
	if err := r.loadLineItems(ctx, []*invoice.Invoice{inv}); err != nil {
		return nil, err
	}
	return inv, nil
}

func (r *invoiceRepository) Update(ctx context.Context, inv *invoice.Invoice) error {
	row := toInvoiceRow(inv)
	row.UpdatedAt = formatTime(time.Now())
	row.UpdatedBy = nullString(types.GetUserID(ctx))

	query := `UPDATE invoices SET
		client_id = :client_id, project_id = :project_id, milestone_id = :milestone_id,
		invoice_status = :invoice_status, currency = :currency,
		subtotal = :subtotal, discount_type = :discount_type, discount_value = :discount_value,
		discount_amount = :discount_amount, tax_rate = :tax_rate, tax_amount = :tax_amount,
		total = :total, amount_paid = :amount_paid,
		issued_date = :issued_date, due_date = :due_date, sent_at = :sent_at, viewed_at = :viewed_at,
		paid_at = :paid_at, voided_at = :voided_at, overdue_since = :overdue_since,
		late_fee_policy = :late_fee_policy, late_fee_value = :late_fee_value,
		late_fee_applied_at = :late_fee_applied_at, late_fee_amount = :late_fee_amount,
		is_deposit = :is_deposit, billing_email = :billing_email, notes = :notes, metadata = :metadata,
		version = version + 1, status = :status, updated_at = :updated_at, updated_by = :updated_by
		WHERE id = :id AND version = :version`

	result, err := r.db.NamedExecContext(ctx, query, row)
	if err != nil {
		return wrapErr(err, "invoice", "update", map[string]any{"invoice_id": inv.ID})
	}
	n, err := result.RowsAffected()
	if err != nil {
		return wrapErr(err, "invoice", "update", map[string]any{"invoice_id": inv.ID})
	}
	if n == 0 {
		return ierr.NewError("invoice version mismatch").
			WithHint("Invoice was changed by another request, please retry").
			WithReportableDetails(map[string]any{
				"invoice_id": inv.ID,
				"version":    inv.Version,
			}).
			Mark(ierr.ErrConflict)
	}
	inv.Version++
	inv.UpdatedAt = parseTime(row.UpdatedAt)
	inv.UpdatedBy = stringValue(row.UpdatedBy)
	return nil
}

func (r *invoiceRepository) ReplaceLineItems(ctx context.Context, invoiceID string, items []*invoice.LineItem) error {
	return r.db.WithTx(ctx, func(ctx context.Context) error {
		if _, err := r.db.NamedExecContext(ctx,
			`DELETE FROM invoice_line_items WHERE invoice_id = :invoice_id`,
			map[string]interface{}{"invoice_id": invoiceID},
		); err != nil {
			return wrapErr(err, "invoice line item", "delete", map[string]any{"invoice_id": invoiceID})
		}
		for _, item := range items {
			item.InvoiceID = invoiceID
			if err := r.AddLineItem(ctx, item); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *invoiceRepository) AddLineItem(ctx context.Context, item *invoice.LineItem) error {
	query := `INSERT INTO invoice_line_items (` + lineItemColumns + `) VALUES (
		:id, :invoice_id, :position, :kind, :description, :quantity, :unit_rate, :amount, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, toLineItemRow(item)); err != nil {
		return wrapErr(err, "invoice line item", "create", map[string]any{
			"invoice_id":   item.InvoiceID,
			"line_item_id": item.ID,
		})
	}
	return nil
}

func (r *invoiceRepository) UpdateLineItem(ctx context.Context, item *invoice.LineItem) error {
	query := `UPDATE invoice_line_items SET description = :description, quantity = :quantity,
		unit_rate = :unit_rate, amount = :amount WHERE id = :id`
	result, err := r.db.NamedExecContext(ctx, query, toLineItemRow(item))
	if err != nil {
		return wrapErr(err, "invoice line item", "update", map[string]any{"line_item_id": item.ID})
	}
	n, _ := result.RowsAffected()
	return expectAffected(n, "invoice line item", map[string]any{"line_item_id": item.ID})
}

func (r *invoiceRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithTx(ctx, func(ctx context.Context) error {
		args := map[string]interface{}{"id": id}
		for _, stmt := range []string{
			`DELETE FROM invoice_reminders WHERE invoice_id = :id`,
			`DELETE FROM invoice_line_items WHERE invoice_id = :id`,
		} {
			if _, err := r.db.NamedExecContext(ctx, stmt, args); err != nil {
				return wrapErr(err, "invoice", "delete", map[string]any{"invoice_id": id})
			}
		}
		result, err := r.db.NamedExecContext(ctx, `DELETE FROM invoices WHERE id = :id`, args)
		if err != nil {
			return wrapErr(err, "invoice", "delete", map[string]any{"invoice_id": id})
		}
		n, _ := result.RowsAffected()
		return expectAffected(n, "invoice", map[string]any{"invoice_id": id})
	})
}

func (r *invoiceRepository) filter(f *types.InvoiceFilter) *where {
	w := newWhere()
	if f == nil {
		return w.add("status <> :deleted", "deleted", types.StatusDeleted)
	}
	if !f.IncludeDeleted {
		w.add("status <> :deleted", "deleted", types.StatusDeleted)
	}
	if len(f.InvoiceIDs) > 0 {
		w.add("id IN (:invoice_ids)", "invoice_ids", f.InvoiceIDs)
	}
	if f.ClientID != "" {
		w.add("client_id = :client_id", "client_id", f.ClientID)
	}
	if f.ProjectID != "" {
		w.add("project_id = :project_id", "project_id", f.ProjectID)
	}
	if f.RecurringInvoiceID != "" {
		w.add("recurring_invoice_id = :recurring_invoice_id", "recurring_invoice_id", f.RecurringInvoiceID)
	}
	statuses := f.InvoiceStatus
	dueBefore := f.DueBefore
	if f.OverdueOnly {
		statuses = types.InvoiceOpenStatuses
		if dueBefore == nil {
			dueBefore = lo.ToPtr(types.ToDate(time.Now()))
		}
	}
	if len(statuses) > 0 {
		w.add("invoice_status IN (:invoice_status)", "invoice_status", lo.Map(statuses, func(s types.InvoiceStatus, _ int) string {
			return string(s)
		}))
	}
	if dueBefore != nil {
		w.add("due_date < :due_before", "due_before", formatDate(*dueBefore))
	}
	return w
}

func (r *invoiceRepository) List(ctx context.Context, f *types.InvoiceFilter) ([]*invoice.Invoice, error) {
	w := r.filter(f)
	var qf *types.QueryFilter
	if f != nil {
		qf = f.QueryFilter
	}
	query := `SELECT ` + invoiceColumns + ` FROM invoices` + w.String() + paginate(qf, "created_at")

	var rows []invoiceRow
	if err := r.db.NamedSelectContext(ctx, &rows, query, w.args); err != nil {
		return nil, wrapErr(err, "invoice", "list", nil)
	}
	invoices := make([]*invoice.Invoice, len(rows))
	for i := range rows {
		invoices[i] = rows[i].toDomain()
	}
	if err := r.loadLineItems(ctx, invoices); err != nil {
		return nil, err
	}
	return invoices, nil
}

func (r *invoiceRepository) Count(ctx context.Context, f *types.InvoiceFilter) (int, error) {
	w := r.filter(f)
	var count int
	if err := r.db.NamedGetContext(ctx, &count, `SELECT COUNT(*) FROM invoices`+w.String(), w.args); err != nil {
		return 0, wrapErr(err, "invoice", "count", nil)
	}
	return count, nil
}

func (r *invoiceRepository) loadLineItems(ctx context.Context, invoices []*invoice.Invoice) error {
	if len(invoices) == 0 {
		return nil
	}
	byID := lo.KeyBy(invoices, func(inv *invoice.Invoice) string { return inv.ID })

	var rows []lineItemRow
	query := `SELECT ` + lineItemColumns + ` FROM invoice_line_items
		WHERE invoice_id IN (:invoice_ids) ORDER BY invoice_id, position`
	if err := r.db.NamedSelectContext(ctx, &rows, query, map[string]interface{}{
		"invoice_ids": lo.Keys(byID),
	}); err != nil {
		return wrapErr(err, "invoice line item", "list", nil)
	}
	for i := range rows {
		if inv, ok := byID[rows[i].InvoiceID]; ok {
			inv.LineItems = append(inv.LineItems, rows[i].toDomain())
		}
	}
	return nil
}

func (r *invoiceRepository) NextSequenceValue(ctx context.Context, yearMonth string) (int64, error) {
	query := `INSERT INTO invoice_sequences (year_month, last_value, updated_at)
		VALUES (:year_month, 1, :updated_at)
		ON CONFLICT (year_month) DO UPDATE
		SET last_value = invoice_sequences.last_value + 1, updated_at = excluded.updated_at
		RETURNING last_value`

	var value int64
	if err := r.db.NamedGetContext(ctx, &value, query, map[string]interface{}{
		"year_month": yearMonth,
		"updated_at": formatTime(time.Now()),
	}); err != nil {
		return 0, wrapErr(err, "invoice sequence", "allocate", map[string]any{"year_month": yearMonth})
	}
	return value, nil
}

// ClaimReminder inserts a pending reminder or takes over a failed or stale one, all in one
// statement so concurrent runs can not both claim it.
func (r *invoiceRepository) ClaimReminder(ctx context.Context, claim *invoice.ReminderClaim) (bool, error) {
	query := `INSERT INTO invoice_reminders (id, invoice_id, reminder_key, channel, reminder_status, attempts, claimed_at)
		VALUES (:id, :invoice_id, :reminder_key, :channel, :pending, 0, :now)
		ON CONFLICT (invoice_id, reminder_key) DO UPDATE SET
			channel = excluded.channel,
			reminder_status = excluded.reminder_status,
			claimed_at = excluded.claimed_at
		WHERE invoice_reminders.attempts < :max_attempts
			AND (invoice_reminders.reminder_status = :failed
				OR (invoice_reminders.reminder_status = :pending AND invoice_reminders.claimed_at < :stale_before))`
	details := map[string]any{
		"invoice_id":   claim.InvoiceID,
		"reminder_key": claim.ReminderKey,
	}
	result, err := r.db.NamedExecContext(ctx, query, map[string]interface{}{
		"id":           types.GenerateUUIDWithPrefix(types.UUID_PREFIX_INVOICE_REMINDER),
		"invoice_id":   claim.InvoiceID,
		"reminder_key": claim.ReminderKey,
		"channel":      claim.Channel,
		"now":          formatTime(claim.Now),
		"stale_before": formatTime(claim.StaleBefore),
		"max_attempts": claim.MaxAttempts,
		"pending":      string(types.ReminderStatusPending),
		"failed":       string(types.ReminderStatusFailed),
	})
	if err != nil {
		return false, wrapErr(err, "invoice reminder", "claim", details)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, wrapErr(err, "invoice reminder", "claim", details)
	}
	return n > 0, nil
}

func (r *invoiceRepository) CompleteReminder(ctx context.Context, invoiceID, reminderKey string, failure *string, at time.Time) error {
	args := map[string]interface{}{
		"invoice_id":   invoiceID,
		"reminder_key": reminderKey,
		"status":       string(types.ReminderStatusSent),
		"last_error":   failure,
		"sent_at":      lo.ToPtr(formatTime(at)),
	}
	if failure != nil {
		args["status"] = string(types.ReminderStatusFailed)
		args["sent_at"] = (*string)(nil)
	}
	details := map[string]any{"invoice_id": invoiceID, "reminder_key": reminderKey}

	result, err := r.db.NamedExecContext(ctx,
		`UPDATE invoice_reminders SET reminder_status = :status, attempts = attempts + 1,
			last_error = :last_error, sent_at = :sent_at
		WHERE invoice_id = :invoice_id AND reminder_key = :reminder_key`, args)
	if err != nil {
		return wrapErr(err, "invoice reminder", "complete", details)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return wrapErr(err, "invoice reminder", "complete", details)
	}
	return expectAffected(n, "invoice reminder", details)
}

type reminderRow struct {
	ID             string  `db:"id"`
	InvoiceID      string  `db:"invoice_id"`
	ReminderKey    string  `db:"reminder_key"`
	Channel        string  `db:"channel"`
	ReminderStatus string  `db:"reminder_status"`
	Attempts       int     `db:"attempts"`
	LastError      *string `db:"last_error"`
	ClaimedAt      string  `db:"claimed_at"`
	SentAt         *string `db:"sent_at"`
}

func (r *invoiceRepository) GetReminder(ctx context.Context, invoiceID, reminderKey string) (*invoice.Reminder, error) {
	var row reminderRow
	err := r.db.NamedGetContext(ctx, &row,
		`SELECT id, invoice_id, reminder_key, channel, reminder_status, attempts, last_error, claimed_at, sent_at
		FROM invoice_reminders WHERE invoice_id = :invoice_id AND reminder_key = :reminder_key`,
		map[string]interface{}{"invoice_id": invoiceID, "reminder_key": reminderKey})
	if err != nil {
		return nil, wrapErr(err, "invoice reminder", "get", map[string]any{
			"invoice_id":   invoiceID,
			"reminder_key": reminderKey,
		})
	}
	return &invoice.Reminder{
		ID:             row.ID,
		InvoiceID:      row.InvoiceID,
		ReminderKey:    row.ReminderKey,
		Channel:        row.Channel,
		ReminderStatus: types.ReminderStatus(row.ReminderStatus),
		Attempts:       row.Attempts,
		LastError:      row.LastError,
		ClaimedAt:      parseTime(row.ClaimedAt),
		SentAt:         parseTimePtr(row.SentAt),
	}, nil
}
