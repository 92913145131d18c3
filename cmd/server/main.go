package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/freelanceops/billing/internal/api"
	"github.com/freelanceops/billing/internal/api/cron"
	v1 "github.com/freelanceops/billing/internal/api/v1"
	billingapp "github.com/freelanceops/billing/internal/app"
	"github.com/freelanceops/billing/internal/config"
	"github.com/freelanceops/billing/internal/db"
	"github.com/freelanceops/billing/internal/logger"
	"github.com/freelanceops/billing/internal/profiling"
	pubsubRouter "github.com/freelanceops/billing/internal/pubsub/router"
	"github.com/freelanceops/billing/internal/scheduler"
	"github.com/freelanceops/billing/internal/service"
	"github.com/freelanceops/billing/internal/types"
	"github.com/freelanceops/billing/internal/webhook"
	"github.com/gin-gonic/gin"
	"go.uber.org/fx"
)

// @title Billing API
// @version 1.0
// @description Invoice lifecycle and workflow automation API
// @BasePath /v1
// @schemes http https
// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name x-api-key

func init() {
	time.Local = time.UTC
}

func main() {
	app := fx.New(
		billingapp.Module,
		profiling.Module(),
		fx.Provide(
			provideHandlers,
			provideRouter,
		),
		fx.Invoke(startServer),
	)
	app.Run()
}

func provideHandlers(
	logger *logger.Logger,
	database *db.DB,
	sched *scheduler.Scheduler,
	invoiceService service.InvoiceService,
	paymentService service.PaymentService,
	lateFeeService service.LateFeeService,
	recurringService service.RecurringInvoiceService,
	scheduledService service.ScheduledInvoiceService,
	triggerService service.TriggerService,
	eventService service.EventService,
	deliveryService service.WebhookDeliveryService,
	taskService service.TaskService,
	notificationService service.NotificationService,
) api.Handlers {
	return api.Handlers{
		Health:        v1.NewHealthHandler(database, sched, logger),
		Invoice:       v1.NewInvoiceHandler(invoiceService, paymentService, lateFeeService, logger),
		Recurring:     v1.NewRecurringInvoiceHandler(recurringService, scheduledService, logger),
		Trigger:       v1.NewTriggerHandler(triggerService, logger),
		Events:        v1.NewEventsHandler(eventService, logger),
		Webhook:       v1.NewWebhookDeliveryHandler(deliveryService, logger),
		Task:          v1.NewTaskHandler(taskService, notificationService, logger),
		CronScheduler: cron.NewSchedulerHandler(sched, logger),
	}
}

func provideRouter(handlers api.Handlers, cfg *config.Configuration, logger *logger.Logger) *gin.Engine {
	return api.NewRouter(handlers, cfg, logger)
}

func startServer(
	lc fx.Lifecycle,
	cfg *config.Configuration,
	r *gin.Engine,
	webhookService *webhook.WebhookService,
	router *pubsubRouter.Router,
	sched *scheduler.Scheduler,
	log *logger.Logger,
) {
	mode := cfg.Deployment.Mode
	if mode == "" {
		mode = types.ModeLocal
	}

	switch mode {
	case types.ModeLocal:
		startAPIServer(lc, r, cfg, log)
		startMessageRouter(lc, router, webhookService, log)
		startScheduler(lc, sched, log)
	case types.ModeAPI:
		startAPIServer(lc, r, cfg, log)
		startMessageRouter(lc, router, webhookService, log)
	case types.ModeScheduler:
		startMessageRouter(lc, router, webhookService, log)
		startScheduler(lc, sched, log)
	default:
		log.Fatalf("Unknown deployment mode: %s", mode)
	}
}

func startAPIServer(
	lc fx.Lifecycle,
	r *gin.Engine,
	cfg *config.Configuration,
	log *logger.Logger,
) {
	srv := &http.Server{
		Addr:    cfg.Server.Address,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Infow("starting API server", "address", cfg.Server.Address)
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Fatalf("Failed to start server: %v", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info("shutting down API server")
			return srv.Shutdown(ctx)
		},
	})
}

func startScheduler(lc fx.Lifecycle, sched *scheduler.Scheduler, log *logger.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			sched.Start(ctx)
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info("stopping scheduler")
			sched.Stop()
			return nil
		},
	})
}

func startMessageRouter(
	lc fx.Lifecycle,
	router *pubsubRouter.Router,
	webhookService *webhook.WebhookService,
	logger *logger.Logger,
) {
	// Register handlers before starting the router
	webhookService.RegisterHandler(router)

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			logger.Info("starting message router")
			go func() {
				if err := router.Run(context.Background()); err != nil {
					logger.Errorw("message router failed", "error", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Info("stopping message router")
			if err := webhookService.Stop(ctx); err != nil {
				logger.Errorw("failed to stop webhook service", "error", err)
			}
			return router.Close()
		},
	})
}
