package service

import (
	"github.com/freelanceops/billing/internal/cache"
	"github.com/freelanceops/billing/internal/config"
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
	"github.com/freelanceops/billing/internal/email"
	"github.com/freelanceops/billing/internal/httpclient"
	"github.com/freelanceops/billing/internal/logger"
	"github.com/freelanceops/billing/internal/publisher"
	"github.com/freelanceops/billing/internal/security"
	"github.com/freelanceops/billing/internal/sentry"
	webhookPublisher "github.com/freelanceops/billing/internal/webhook/publisher"
)

// ServiceParams holds common dependencies for services
type ServiceParams struct {
	Logger     *logger.Logger
	Config     *config.Configuration
	DB         *db.DB
	Sentry     *sentry.Service
	Cache      cache.Cache
	Encryption security.EncryptionService

	// Repositories
	InvoiceRepo          invoice.Repository
	PaymentRepo          payment.Repository
	CreditRepo           credit.Repository
	RecurringRepo        recurring.Repository
	ScheduledInvoiceRepo scheduledinvoice.Repository
	TriggerRepo          workflow.TriggerRepository
	ExecutionRepo        workflow.ExecutionRepository
	EventLogRepo         workflow.EventLogRepository
	WebhookDeliveryRepo  webhookdelivery.Repository
	TaskRepo             task.Repository
	NotificationRepo     notification.Repository
	SchedulerLockRepo    schedulerlock.Repository

	// Publishers
	EventPublisher   publisher.EventPublisher
	WebhookPublisher webhookPublisher.WebhookPublisher

	// Outbound
	EmailSender email.Sender
	Client      httpclient.Client
}

// Common service params
func NewServiceParams(
	logger *logger.Logger,
	config *config.Configuration,
	db *db.DB,
	sentry *sentry.Service,
	cache cache.Cache,
	encryption security.EncryptionService,
	invoiceRepo invoice.Repository,
	paymentRepo payment.Repository,
	creditRepo credit.Repository,
	recurringRepo recurring.Repository,
	scheduledInvoiceRepo scheduledinvoice.Repository,
	triggerRepo workflow.TriggerRepository,
	executionRepo workflow.ExecutionRepository,
	eventLogRepo workflow.EventLogRepository,
	webhookDeliveryRepo webhookdelivery.Repository,
	taskRepo task.Repository,
	notificationRepo notification.Repository,
	schedulerLockRepo schedulerlock.Repository,
	eventPublisher publisher.EventPublisher,
	webhookPublisher webhookPublisher.WebhookPublisher,
	emailSender email.Sender,
	client httpclient.Client,
) ServiceParams {
	return ServiceParams{
		Logger:               logger,
		Config:               config,
		DB:                   db,
		Sentry:               sentry,
		Cache:                cache,
		Encryption:           encryption,
		InvoiceRepo:          invoiceRepo,
		PaymentRepo:          paymentRepo,
		CreditRepo:           creditRepo,
		RecurringRepo:        recurringRepo,
		ScheduledInvoiceRepo: scheduledInvoiceRepo,
		TriggerRepo:          triggerRepo,
		ExecutionRepo:        executionRepo,
		EventLogRepo:         eventLogRepo,
		WebhookDeliveryRepo:  webhookDeliveryRepo,
		TaskRepo:             taskRepo,
		NotificationRepo:     notificationRepo,
		SchedulerLockRepo:    schedulerLockRepo,
		EventPublisher:       eventPublisher,
		WebhookPublisher:     webhookPublisher,
		EmailSender:          emailSender,
		Client:               client,
	}
}

// NewWebhookHTTPClient builds the retrying client used for workflow webhooks
func NewWebhookHTTPClient(cfg *config.Configuration, logger *logger.Logger) httpclient.Client {
	return httpclient.NewRetryableClient(httpclient.ClientConfig{
		Timeout:      cfg.Webhook.Timeout,
		RetryMax:     cfg.Webhook.RetryMax,
		RetryWaitMin: cfg.Webhook.RetryWaitMin,
		RetryWaitMax: cfg.Webhook.RetryWaitMax,
	}, logger)
}
