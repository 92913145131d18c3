package app

import (
	"context"

	"github.com/freelanceops/billing/internal/cache"
	"github.com/freelanceops/billing/internal/config"
	"github.com/freelanceops/billing/internal/db"
	"github.com/freelanceops/billing/internal/email"
	"github.com/freelanceops/billing/internal/logger"
	"github.com/freelanceops/billing/internal/publisher"
	pubsubRouter "github.com/freelanceops/billing/internal/pubsub/router"
	"github.com/freelanceops/billing/internal/repository"
	"github.com/freelanceops/billing/internal/scheduler"
	"github.com/freelanceops/billing/internal/security"
	"github.com/freelanceops/billing/internal/sentry"
	"github.com/freelanceops/billing/internal/service"
	"github.com/freelanceops/billing/internal/validator"
	"github.com/freelanceops/billing/internal/webhook"
	"github.com/freelanceops/billing/internal/webhook/handler"
	"go.uber.org/fx"
)

// Module wires storage, repositories, services and the scheduler. It is shared by the
// server and the operator CLI.
var Module = fx.Options(
	// Core dependencies
	fx.Provide(
		validator.NewValidator,
		config.NewConfig,
		logger.NewLogger,
		sentry.NewSentryService,
		cache.NewInMemoryCache,
		db.NewDB,
		security.NewEncryptionService,
		email.NewSender,
		service.NewWebhookHTTPClient,
		publisher.NewEventPublisher,

		// Repositories
		repository.NewInvoiceRepository,
		repository.NewPaymentRepository,
		repository.NewCreditRepository,
		repository.NewRecurringRepository,
		repository.NewScheduledInvoiceRepository,
		repository.NewTriggerRepository,
		repository.NewExecutionRepository,
		repository.NewEventLogRepository,
		repository.NewWebhookDeliveryRepository,
		repository.NewTaskRepository,
		repository.NewNotificationRepository,
		repository.NewSchedulerLockRepository,

		// PubSub
		pubsubRouter.NewRouter,
	),

	// Webhook module (the delivery processor comes from the service layer)
	webhook.Module,

	// Service layer
	fx.Provide(
		service.NewServiceParams,

		service.NewInvoiceService,
		service.NewPaymentService,
		service.NewLateFeeService,
		service.NewReminderService,
		service.NewRecurringInvoiceService,
		service.NewScheduledInvoiceService,
		service.NewInvoiceGeneratorService,
		service.NewWorkflowEngine,
		service.NewTriggerService,
		service.NewEventService,
		service.NewWebhookDeliveryService,
		service.NewTaskService,
		service.NewNotificationService,
		service.NewCleanupService,
		provideDeliveryProcessor,
		provideScheduler,
	),

	fx.Invoke(
		sentry.RegisterHooks,
		registerDatabaseHooks,
		subscribeWorkflowEngine,
	),
)

func provideDeliveryProcessor(deliveryService service.WebhookDeliveryService) handler.Processor {
	return deliveryService
}

func provideScheduler(
	params service.ServiceParams,
	invoiceService service.InvoiceService,
	lateFeeService service.LateFeeService,
	generatorService service.InvoiceGeneratorService,
	reminderService service.ReminderService,
	deliveryService service.WebhookDeliveryService,
	cleanupService service.CleanupService,
) *scheduler.Scheduler {
	return scheduler.New(scheduler.Params{
		Config:    params.Config,
		Logger:    params.Logger,
		Sentry:    params.Sentry,
		Locks:     params.SchedulerLockRepo,
		Invoices:  invoiceService,
		LateFees:  lateFeeService,
		Generator: generatorService,
		Reminders: reminderService,
		Webhooks:  deliveryService,
		Cleanup:   cleanupService,
	})
}

func registerDatabaseHooks(lc fx.Lifecycle, database *db.DB) {
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			database.Close()
			return nil
		},
	})
}

// subscribeWorkflowEngine feeds committed domain events into trigger evaluation
func subscribeWorkflowEngine(eventPublisher publisher.EventPublisher, engine service.WorkflowEngine) {
	eventPublisher.Subscribe(engine)
}
