package db

import (
	"context"
	"fmt"
	"time"

	"github.com/freelanceops/billing/internal/types"
)

// migration is one ordered schema step. Statements are portable between SQLite and Postgres:
// money is stored as decimal text, instants as fixed-width UTC text and dates as YYYY-MM-DD.
type migration struct {
	version    int
	name       string
	statements []string
}

var migrations = []migration{
	{
		version: 1,
		name:    "invoices",
		statements: []string{
			`CREATE TABLE IF NOT EXISTS recurring_invoices (
				id TEXT PRIMARY KEY,
				project_id TEXT NOT NULL,
				client_id TEXT NOT NULL,
				description TEXT NOT NULL DEFAULT '',
				currency TEXT NOT NULL,
				line_items TEXT NOT NULL,
				tax_rate TEXT NOT NULL DEFAULT '0',
				discount_type TEXT,
				discount_value TEXT NOT NULL DEFAULT '0',
				frequency TEXT NOT NULL,
				anchor_day INTEGER NOT NULL,
				start_date TEXT NOT NULL,
				next_generation_date TEXT NOT NULL,
				end_date TEXT,
				due_days INTEGER NOT NULL DEFAULT 0,
				billing_email TEXT,
				late_fee_policy TEXT NOT NULL DEFAULT 'none',
				late_fee_value TEXT NOT NULL DEFAULT '0',
				is_active BOOLEAN NOT NULL DEFAULT TRUE,
				generated_count INTEGER NOT NULL DEFAULT 0,
				last_generated_at TEXT,
				status TEXT NOT NULL,
				created_at TEXT NOT NULL,
				updated_at TEXT NOT NULL,
				created_by TEXT,
				updated_by TEXT
			)`,
			`CREATE INDEX IF NOT EXISTS idx_recurring_invoices_due ON recurring_invoices (is_active, next_generation_date)`,
			`CREATE TABLE IF NOT EXISTS scheduled_invoices (
				id TEXT PRIMARY KEY,
				project_id TEXT NOT NULL,
				client_id TEXT NOT NULL,
				description TEXT NOT NULL,
				amount TEXT NOT NULL,
				currency TEXT NOT NULL,
				scheduled_date TEXT NOT NULL,
				due_days INTEGER NOT NULL DEFAULT 0,
				billing_email TEXT,
				scheduled_status TEXT NOT NULL,
				generated_invoice_id TEXT,
				generated_at TEXT,
				cancelled_at TEXT,
				status TEXT NOT NULL,
				created_at TEXT NOT NULL,
				updated_at TEXT NOT NULL,
				created_by TEXT,
				updated_by TEXT
			)`,
			`CREATE INDEX IF NOT EXISTS idx_scheduled_invoices_due ON scheduled_invoices (scheduled_status, scheduled_date)`,
			`CREATE TABLE IF NOT EXISTS invoices (
				id TEXT PRIMARY KEY,
				invoice_number TEXT NOT NULL,
				client_id TEXT NOT NULL,
				project_id TEXT,
				milestone_id TEXT,
				invoice_status TEXT NOT NULL,
				currency TEXT NOT NULL,
				subtotal TEXT NOT NULL,
				discount_type TEXT,
				discount_value TEXT NOT NULL DEFAULT '0',
				discount_amount TEXT NOT NULL DEFAULT '0',
				tax_rate TEXT NOT NULL DEFAULT '0',
				tax_amount TEXT NOT NULL DEFAULT '0',
				total TEXT NOT NULL,
				amount_paid TEXT NOT NULL DEFAULT '0',
				issued_date TEXT,
				due_date TEXT NOT NULL,
				sent_at TEXT,
				viewed_at TEXT,
				paid_at TEXT,
				voided_at TEXT,
				overdue_since TEXT,
				late_fee_policy TEXT NOT NULL DEFAULT 'none',
				late_fee_value TEXT NOT NULL DEFAULT '0',
				late_fee_applied_at TEXT,
				late_fee_amount TEXT NOT NULL DEFAULT '0',
				is_deposit BOOLEAN NOT NULL DEFAULT FALSE,
				billing_email TEXT,
				notes TEXT,
				source TEXT NOT NULL,
				recurring_invoice_id TEXT REFERENCES recurring_invoices (id),
				scheduled_invoice_id TEXT REFERENCES scheduled_invoices (id),
				idempotency_key TEXT,
				metadata TEXT,
				version INTEGER NOT NULL DEFAULT 1,
				status TEXT NOT NULL,
				created_at TEXT NOT NULL,
				updated_at TEXT NOT NULL,
				created_by TEXT,
				updated_by TEXT
			)`,
			`CREATE UNIQUE INDEX IF NOT EXISTS idx_invoices_number ON invoices (invoice_number)`,
			`CREATE UNIQUE INDEX IF NOT EXISTS idx_invoices_idempotency_key ON invoices (idempotency_key)`,
			`CREATE INDEX IF NOT EXISTS idx_invoices_status_due ON invoices (invoice_status, due_date)`,
			`CREATE INDEX IF NOT EXISTS idx_invoices_client ON invoices (client_id)`,
			`CREATE TABLE IF NOT EXISTS invoice_line_items (
				id TEXT PRIMARY KEY,
				invoice_id TEXT NOT NULL REFERENCES invoices (id) ON DELETE CASCADE,
				position INTEGER NOT NULL,
				kind TEXT NOT NULL,
				description TEXT NOT NULL,
				quantity TEXT NOT NULL,
				unit_rate TEXT NOT NULL,
				amount TEXT NOT NULL,
				created_at TEXT NOT NULL
			)`,
			`CREATE INDEX IF NOT EXISTS idx_invoice_line_items_invoice ON invoice_line_items (invoice_id, position)`,
			`CREATE TABLE IF NOT EXISTS invoice_payments (
				id TEXT PRIMARY KEY,
				invoice_id TEXT NOT NULL REFERENCES invoices (id),
				amount TEXT NOT NULL,
				method TEXT NOT NULL,
				reference TEXT,
				credit_id TEXT,
				notes TEXT,
				recorded_at TEXT NOT NULL,
				created_at TEXT NOT NULL,
				created_by TEXT
			)`,
			`CREATE INDEX IF NOT EXISTS idx_invoice_payments_invoice ON invoice_payments (invoice_id, created_at)`,
			`CREATE TABLE IF NOT EXISTS invoice_credits (
				id TEXT PRIMARY KEY,
				source_invoice_id TEXT NOT NULL REFERENCES invoices (id),
				target_invoice_id TEXT NOT NULL REFERENCES invoices (id),
				amount TEXT NOT NULL,
				payment_id TEXT NOT NULL,
				created_at TEXT NOT NULL,
				created_by TEXT
			)`,
			`CREATE INDEX IF NOT EXISTS idx_invoice_credits_source ON invoice_credits (source_invoice_id)`,
			`CREATE TABLE IF NOT EXISTS invoice_sequences (
				year_month TEXT PRIMARY KEY,
				last_value INTEGER NOT NULL,
				updated_at TEXT NOT NULL
			)`,
			`CREATE TABLE IF NOT EXISTS invoice_reminders (
				id TEXT PRIMARY KEY,
				invoice_id TEXT NOT NULL REFERENCES invoices (id) ON DELETE CASCADE,
				reminder_key TEXT NOT NULL,
				channel TEXT NOT NULL,
				reminder_status TEXT NOT NULL,
				attempts INTEGER NOT NULL DEFAULT 0,
				last_error TEXT,
				claimed_at TEXT NOT NULL,
				sent_at TEXT
			)`,
			`CREATE UNIQUE INDEX IF NOT EXISTS idx_invoice_reminders_key ON invoice_reminders (invoice_id, reminder_key)`,
		},
	},
	{
		version: 2,
		name:    "workflows",
		statements: []string{
			`CREATE TABLE IF NOT EXISTS workflow_triggers (
				id TEXT PRIMARY KEY,
				name TEXT NOT NULL,
				description TEXT NOT NULL DEFAULT '',
				event_type TEXT NOT NULL,
				conditions TEXT NOT NULL,
				actions TEXT NOT NULL,
				priority INTEGER NOT NULL DEFAULT 0,
				is_active BOOLEAN NOT NULL DEFAULT TRUE,
				status TEXT NOT NULL,
				created_at TEXT NOT NULL,
				updated_at TEXT NOT NULL,
				created_by TEXT,
				updated_by TEXT
			)`,
			`CREATE INDEX IF NOT EXISTS idx_workflow_triggers_event ON workflow_triggers (event_type, is_active, priority)`,
			`CREATE TABLE IF NOT EXISTS workflow_executions (
				id TEXT PRIMARY KEY,
				dedupe_key TEXT NOT NULL,
				trigger_id TEXT NOT NULL,
				event_type TEXT NOT NULL,
				source_entity_id TEXT NOT NULL,
				action_index INTEGER NOT NULL,
				action_type TEXT NOT NULL,
				result_entity_id TEXT,
				created_at TEXT NOT NULL
			)`,
			`CREATE UNIQUE INDEX IF NOT EXISTS idx_workflow_executions_dedupe ON workflow_executions (dedupe_key)`,
			`CREATE TABLE IF NOT EXISTS workflow_event_log (
				id TEXT PRIMARY KEY,
				event_type TEXT NOT NULL,
				source_entity_id TEXT NOT NULL,
				payload TEXT NOT NULL,
				occurred_at TEXT NOT NULL,
				depth INTEGER NOT NULL DEFAULT 0,
				triggers_matched INTEGER NOT NULL DEFAULT 0,
				actions_succeeded INTEGER NOT NULL DEFAULT 0,
				actions_failed INTEGER NOT NULL DEFAULT 0,
				results TEXT NOT NULL,
				request_id TEXT,
				created_at TEXT NOT NULL
			)`,
			`CREATE INDEX IF NOT EXISTS idx_workflow_event_log_created ON workflow_event_log (created_at)`,
			`CREATE TABLE IF NOT EXISTS webhook_delivery_log (
				id TEXT PRIMARY KEY,
				trigger_id TEXT NOT NULL,
				event_log_id TEXT,
				event_type TEXT NOT NULL,
				source_entity_id TEXT NOT NULL,
				url TEXT NOT NULL,
				secret TEXT NOT NULL,
				headers TEXT,
				payload TEXT NOT NULL,
				delivery_status TEXT NOT NULL,
				attempts INTEGER NOT NULL DEFAULT 0,
				max_attempts INTEGER NOT NULL,
				last_status_code INTEGER,
				last_error TEXT,
				next_attempt_at TEXT,
				delivered_at TEXT,
				created_at TEXT NOT NULL,
				updated_at TEXT NOT NULL,
				version INTEGER NOT NULL DEFAULT 1
			)`,
			`CREATE INDEX IF NOT EXISTS idx_webhook_delivery_status ON webhook_delivery_log (delivery_status, next_attempt_at)`,
		},
	},
	{
		version: 3,
		name:    "tasks_notifications_scheduler",
		statements: []string{
			`CREATE TABLE IF NOT EXISTS tasks (
				id TEXT PRIMARY KEY,
				title TEXT NOT NULL,
				description TEXT NOT NULL DEFAULT '',
				project_id TEXT,
				lead_id TEXT,
				assignee_id TEXT,
				priority TEXT NOT NULL,
				task_status TEXT NOT NULL,
				due_date TEXT,
				source_event_type TEXT,
				source_entity_id TEXT,
				trigger_id TEXT,
				completed_at TEXT,
				status TEXT NOT NULL,
				created_at TEXT NOT NULL,
				updated_at TEXT NOT NULL,
				created_by TEXT,
				updated_by TEXT
			)`,
			`CREATE INDEX IF NOT EXISTS idx_tasks_project ON tasks (project_id, task_status)`,
			`CREATE TABLE IF NOT EXISTS notifications (
				id TEXT PRIMARY KEY,
				recipient_id TEXT NOT NULL,
				title TEXT NOT NULL,
				body TEXT NOT NULL DEFAULT '',
				entity_type TEXT,
				entity_id TEXT,
				read_at TEXT,
				status TEXT NOT NULL,
				created_at TEXT NOT NULL,
				updated_at TEXT NOT NULL,
				created_by TEXT,
				updated_by TEXT
			)`,
			`CREATE INDEX IF NOT EXISTS idx_notifications_recipient ON notifications (recipient_id, read_at)`,
			`CREATE TABLE IF NOT EXISTS scheduler_locks (
				name TEXT PRIMARY KEY,
				holder TEXT NOT NULL,
				locked_until TEXT NOT NULL,
				acquired_at TEXT NOT NULL,
				last_finished_at TEXT,
				last_summary TEXT
			)`,
		},
	},
}

// Migrate applies every migration that has not been recorded in schema_migrations
func (db *DB) Migrate(ctx context.Context) error {
	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		version INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		applied_at TEXT NOT NULL
	)`); err != nil {
		return fmt.Errorf("creating schema_migrations: %w", err)
	}

	var applied []int
	if err := db.SelectContext(ctx, &applied, `SELECT version FROM schema_migrations`); err != nil {
		return fmt.Errorf("reading schema_migrations: %w", err)
	}
	done := make(map[int]bool, len(applied))
	for _, v := range applied {
		done[v] = true
	}

	for _, m := range migrations {
		if done[m.version] {
			continue
		}
		m := m
		err := db.WithTx(ctx, func(ctx context.Context) error {
			q := db.GetQuerier(ctx)
			for i, stmt := range m.statements {
				if _, err := q.ExecContext(ctx, stmt); err != nil {
					return fmt.Errorf("migration %d (%s) statement %d: %w", m.version, m.name, i, err)
				}
			}
			_, err := q.ExecContext(ctx,
				q.Rebind(`INSERT INTO schema_migrations (version, name, applied_at) VALUES (?, ?, ?)`),
				m.version, m.name, types.FormatTime(time.Now()),
			)
			return err
		})
		if err != nil {
			return err
		}
		db.logger.Infow("applied migration", "version", m.version, "name", m.name)
	}
	return nil
}
