package repository

import (
	"github.com/freelanceops/billing/internal/db"
	"github.com/freelanceops/billing/internal/domain/credit"
	"github.com/freelanceops/billing/internal/domain/invoice"
	"github.com/freelanceops/billing/internal/domain/notification"
	"github.com/freelanceops/billing/internal/domain/payment"
	"github.com/freelanceops/billing/internal/domain/recurring"
	"github.com/freelanceops/billing/internal/domain/scheduledinvoice"
	"github.com/freelanceops/billing/internal/domain/schedulerlock"
	"github.com/freelanceops/billing/internal/domain/task"
	"github.com/freelanceops/billing/internal/domain/webhookdelivery"
	"github.com/freelanceops/billing/internal/domain/workflow"
	"github.com/freelanceops/billing/internal/logger"
	"github.com/freelanceops/billing/internal/repository/sqlrepo"
)

func NewInvoiceRepository(db *db.DB, logger *logger.Logger) invoice.Repository {
	return sqlrepo.NewInvoiceRepository(db, logger)
}

func NewPaymentRepository(db *db.DB, logger *logger.Logger) payment.Repository {
	return sqlrepo.NewPaymentRepository(db, logger)
}

func NewCreditRepository(db *db.DB, logger *logger.Logger) credit.Repository {
	return sqlrepo.NewCreditRepository(db, logger)
}

func NewRecurringRepository(db *db.DB, logger *logger.Logger) recurring.Repository {
	return sqlrepo.NewRecurringRepository(db, logger)
}

func NewScheduledInvoiceRepository(db *db.DB, logger *logger.Logger) scheduledinvoice.Repository {
	return sqlrepo.NewScheduledInvoiceRepository(db, logger)
}

func NewTriggerRepository(db *db.DB, logger *logger.Logger) workflow.TriggerRepository {
	return sqlrepo.NewTriggerRepository(db, logger)
}

func NewExecutionRepository(db *db.DB, logger *logger.Logger) workflow.ExecutionRepository {
	return sqlrepo.NewExecutionRepository(db, logger)
}

func NewEventLogRepository(db *db.DB, logger *logger.Logger) workflow.EventLogRepository {
	return sqlrepo.NewEventLogRepository(db, logger)
}

func NewWebhookDeliveryRepository(db *db.DB, logger *logger.Logger) webhookdelivery.Repository {
	return sqlrepo.NewWebhookDeliveryRepository(db, logger)
}

func NewTaskRepository(db *db.DB, logger *logger.Logger) task.Repository {
	return sqlrepo.NewTaskRepository(db, logger)
}

func NewNotificationRepository(db *db.DB, logger *logger.Logger) notification.Repository {
	return sqlrepo.NewNotificationRepository(db, logger)
}

func NewSchedulerLockRepository(db *db.DB, logger *logger.Logger) schedulerlock.Repository {
	return sqlrepo.NewSchedulerLockRepository(db, logger)
}
