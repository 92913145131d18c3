package sqlrepo

import (
	"context"

	"github.com/freelanceops/billing/internal/db"
	"github.com/freelanceops/billing/internal/domain/credit"
	"github.com/freelanceops/billing/internal/domain/payment"
	"github.com/freelanceops/billing/internal/logger"
	"github.com/freelanceops/billing/internal/types"
	"github.com/shopspring/decimal"
)

const paymentColumns = `id, invoice_id, amount, method, reference, credit_id, notes, recorded_at, created_at, created_by`

type paymentRow struct {
	ID         string          `db:"id"`
	InvoiceID  string          `db:"invoice_id"`
	Amount     decimal.Decimal `db:"amount"`
	Method     string          `db:"method"`
	Reference  *string         `db:"reference"`
	CreditID   *string         `db:"credit_id"`
	Notes      *string         `db:"notes"`
	RecordedAt string          `db:"recorded_at"`
	CreatedAt  string          `db:"created_at"`
	CreatedBy  *string         `db:"created_by"`
}

func (r *paymentRow) toDomain() *payment.Payment {
	return &payment.Payment{
		ID:         r.ID,
		InvoiceID:  r.InvoiceID,
		Amount:     r.Amount,
		Method:     types.PaymentMethod(r.Method),
		Reference:  r.Reference,
		CreditID:   r.CreditID,
		Notes:      r.Notes,
		RecordedAt: parseTime(r.RecordedAt),
		CreatedAt:  parseTime(r.CreatedAt),
		CreatedBy:  stringValue(r.CreatedBy),
	}
}

type paymentRepository struct {
	db     *db.DB
	logger *logger.Logger
}

func NewPaymentRepository(db *db.DB, logger *logger.Logger) payment.Repository {
	return &paymentRepository{db: db, logger: logger}
}

func (r *paymentRepository) Create(ctx context.Context, p *payment.Payment) error {
	r.logger.Debugw("recording payment",
		"payment_id", p.ID,
		"invoice_id", p.InvoiceID,
		"amount", p.Amount,
	)
	query := `INSERT INTO invoice_payments (` + paymentColumns + `) VALUES (
		:id, :invoice_id, :amount, :method, :reference, :credit_id, :notes, :recorded_at, :created_at, :created_by)`
	_, err := r.db.NamedExecContext(ctx, query, &paymentRow{
		ID:         p.ID,
		InvoiceID:  p.InvoiceID,
		Amount:     p.Amount,
		Method:     string(p.Method),
		Reference:  p.Reference,
		CreditID:   p.CreditID,
		Notes:      p.Notes,
		RecordedAt: formatTime(p.RecordedAt),
		CreatedAt:  formatTime(p.CreatedAt),
		CreatedBy:  nullString(p.CreatedBy),
	})
	if err != nil {
		return wrapErr(err, "payment", "create", map[string]any{
			"payment_id": p.ID,
			"invoice_id": p.InvoiceID,
		})
	}
	return nil
}

func (r *paymentRepository) Get(ctx context.Context, id string) (*payment.Payment, error) {
	var row paymentRow
	query := `SELECT ` + paymentColumns + ` FROM invoice_payments WHERE id = :id`
	if err := r.db.NamedGetContext(ctx, &row, query, map[string]interface{}{"id": id}); err != nil {
		return nil, wrapErr(err, "payment", "get", map[string]any{"payment_id": id})
	}
	return row.toDomain(), nil
}

func (r *paymentRepository) ListByInvoice(ctx context.Context, invoiceID string) ([]*payment.Payment, error) {
	var rows []paymentRow
	query := `SELECT ` + paymentColumns + ` FROM invoice_payments
		WHERE invoice_id = :invoice_id ORDER BY created_at ASC, id ASC`
	if err := r.db.NamedSelectContext(ctx, &rows, query, map[string]interface{}{"invoice_id": invoiceID}); err != nil {
		return nil, wrapErr(err, "payment", "list", map[string]any{"invoice_id": invoiceID})
	}
	payments := make([]*payment.Payment, len(rows))
	for i := range rows {
		payments[i] = rows[i].toDomain()
	}
	return payments, nil
}

const creditColumns = `id, source_invoice_id, target_invoice_id, amount, payment_id, created_at, created_by`

type creditRow struct {
	ID              string          `db:"id"`
	SourceInvoiceID string          `db:"source_invoice_id"`
	TargetInvoiceID string          `db:"target_invoice_id"`
	Amount          decimal.Decimal `db:"amount"`
	PaymentID       string          `db:"payment_id"`
	CreatedAt       string          `db:"created_at"`
	CreatedBy       *string         `db:"created_by"`
}

func (r *creditRow) toDomain() *credit.Credit {
	return &credit.Credit{
		ID:              r.ID,
		SourceInvoiceID: r.SourceInvoiceID,
		TargetInvoiceID: r.TargetInvoiceID,
		Amount:          r.Amount,
		PaymentID:       r.PaymentID,
		CreatedAt:       parseTime(r.CreatedAt),
		CreatedBy:       stringValue(r.CreatedBy),
	}
}

type creditRepository struct {
	db     *db.DB
	logger *logger.Logger
}

func NewCreditRepository(db *db.DB, logger *logger.Logger) credit.Repository {
	return &creditRepository{db: db, logger: logger}
}

func (r *creditRepository) Create(ctx context.Context, c *credit.Credit) error {
	query := `INSERT INTO invoice_credits (` + creditColumns + `) VALUES (
		:id, :source_invoice_id, :target_invoice_id, :amount, :payment_id, :created_at, :created_by)`
	_, err := r.db.NamedExecContext(ctx, query, &creditRow{
		ID:              c.ID,
		SourceInvoiceID: c.SourceInvoiceID,
		TargetInvoiceID: c.TargetInvoiceID,
		Amount:          c.Amount,
		PaymentID:       c.PaymentID,
		CreatedAt:       formatTime(c.CreatedAt),
		CreatedBy:       nullString(c.CreatedBy),
	})
	if err != nil {
		return wrapErr(err, "credit", "create", map[string]any{
			"source_invoice_id": c.SourceInvoiceID,
			"target_invoice_id": c.TargetInvoiceID,
		})
	}
	return nil
}

func (r *creditRepository) list(ctx context.Context, column, invoiceID string) ([]*credit.Credit, error) {
	var rows []creditRow
	query := `SELECT ` + creditColumns + ` FROM invoice_credits WHERE ` + column + ` = :invoice_id ORDER BY created_at ASC, id ASC`
	if err := r.db.NamedSelectContext(ctx, &rows, query, map[string]interface{}{"invoice_id": invoiceID}); err != nil {
		return nil, wrapErr(err, "credit", "list", map[string]any{column: invoiceID})
	}
	credits := make([]*credit.Credit, len(rows))
	for i := range rows {
		credits[i] = rows[i].toDomain()
	}
	return credits, nil
}

func (r *creditRepository) ListBySource(ctx context.Context, sourceInvoiceID string) ([]*credit.Credit, error) {
	return r.list(ctx, "source_invoice_id", sourceInvoiceID)
}

func (r *creditRepository) ListByTarget(ctx context.Context, targetInvoiceID string) ([]*credit.Credit, error) {
	return r.list(ctx, "target_invoice_id", targetInvoiceID)
}
