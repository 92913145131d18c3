package api

import (
	"github.com/freelanceops/billing/internal/api/cron"
	v1 "github.com/freelanceops/billing/internal/api/v1"
	"github.com/freelanceops/billing/internal/config"
	"github.com/freelanceops/billing/internal/logger"
	"github.com/freelanceops/billing/internal/rest/middleware"
	"github.com/freelanceops/billing/internal/types"
	"github.com/gin-gonic/gin"
)

type Handlers struct {
	Health    *v1.HealthHandler
	Invoice   *v1.InvoiceHandler
	Recurring *v1.RecurringInvoiceHandler
	Trigger   *v1.TriggerHandler
	Events    *v1.EventsHandler
	Webhook   *v1.WebhookDeliveryHandler
	Task      *v1.TaskHandler

	CronScheduler *cron.SchedulerHandler
}

func NewRouter(handlers Handlers, cfg *config.Configuration, logger *logger.Logger) *gin.Engine {
	if !cfg.Deployment.Mode.IsLocal() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(
		gin.Logger(),
		gin.Recovery(),
		middleware.RequestIDMiddleware,
		middleware.CORSMiddleware,
		middleware.SentryMiddleware(cfg),
		middleware.ErrorHandler(cfg.Deployment.Mode.IsLocal()),
	)

	router.GET("/health", handlers.Health.Health)

	v1Group := router.Group("/v1")
	v1Group.GET("/health", handlers.Health.Health)

	private := v1Group.Group("/")
	private.Use(middleware.APIKeyMiddleware(cfg, logger))
	registerV1Routes(private, handlers)

	logger.Infow("router ready", "auth_required", len(cfg.Auth.APIKeys) > 0, "header", types.HeaderAPIKey)
	return router
}

func registerV1Routes(router *gin.RouterGroup, handlers Handlers) {
	invoices := router.Group("/invoices")
	{
		invoices.POST("", handlers.Invoice.CreateInvoice)
		invoices.GET("", handlers.Invoice.ListInvoices)
		invoices.GET("/aging", handlers.Invoice.Aging)
		invoices.POST("/process-late-fees", handlers.Invoice.ProcessLateFees)

		// scheduled and recurring routes are registered before /:id
		invoices.POST("/schedule", handlers.Recurring.CreateScheduledInvoice)
		invoices.GET("/scheduled", handlers.Recurring.ListScheduledInvoices)
		invoices.GET("/scheduled/:id", handlers.Recurring.GetScheduledInvoice)
		invoices.DELETE("/scheduled/:id", handlers.Recurring.CancelScheduledInvoice)

		invoices.POST("/recurring", handlers.Recurring.CreateRecurringInvoice)
		invoices.GET("/recurring", handlers.Recurring.ListRecurringInvoices)
		invoices.GET("/recurring/:id", handlers.Recurring.GetRecurringInvoice)
		invoices.POST("/recurring/:id/pause", handlers.Recurring.PauseRecurringInvoice)
		invoices.POST("/recurring/:id/resume", handlers.Recurring.ResumeRecurringInvoice)

		invoices.GET("/:id", handlers.Invoice.GetInvoice)
		invoices.PUT("/:id", handlers.Invoice.UpdateInvoice)
		invoices.DELETE("/:id", handlers.Invoice.DeleteInvoice)
		invoices.POST("/:id/send", handlers.Invoice.SendInvoice)
		invoices.POST("/:id/view", handlers.Invoice.MarkViewed)
		invoices.POST("/:id/void", handlers.Invoice.VoidInvoice)
		invoices.POST("/:id/record-payment", handlers.Invoice.RecordPayment)
		invoices.GET("/:id/payments", handlers.Invoice.ListPayments)
		invoices.POST("/:id/apply-credit", handlers.Invoice.ApplyCredit)
		invoices.GET("/:id/available-credit", handlers.Invoice.AvailableCredit)
	}

	triggers := router.Group("/triggers")
	{
		triggers.POST("", handlers.Trigger.CreateTrigger)
		triggers.GET("", handlers.Trigger.ListTriggers)
		triggers.GET("/:id", handlers.Trigger.GetTrigger)
		triggers.PUT("/:id", handlers.Trigger.UpdateTrigger)
		triggers.DELETE("/:id", handlers.Trigger.DeleteTrigger)
		triggers.POST("/:id/toggle", handlers.Trigger.ToggleTrigger)
	}

	events := router.Group("/events")
	{
		events.POST("", handlers.Events.EmitEvent)
		events.GET("/log", handlers.Events.ListEventLog)
	}

	webhooks := router.Group("/webhooks/deliveries")
	{
		webhooks.GET("", handlers.Webhook.ListDeliveries)
		webhooks.GET("/:id", handlers.Webhook.GetDelivery)
		webhooks.POST("/:id/retry", handlers.Webhook.RetryDelivery)
	}

	tasks := router.Group("/tasks")
	{
		tasks.GET("", handlers.Task.ListTasks)
		tasks.GET("/:id", handlers.Task.GetTask)
		tasks.PUT("/:id/status", handlers.Task.UpdateTaskStatus)
	}

	notifications := router.Group("/notifications")
	{
		notifications.GET("", handlers.Task.ListNotifications)
		notifications.POST("/:id/read", handlers.Task.MarkNotificationRead)
	}

	cronGroup := router.Group("/cron")
	{
		cronGroup.POST("/scheduler/run", handlers.CronScheduler.RunScheduler)
	}
}
