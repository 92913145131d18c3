package webhook

import (
	"context"

	"github.com/freelanceops/billing/internal/config"
	ierr "github.com/freelanceops/billing/internal/errors"
	"github.com/freelanceops/billing/internal/logger"
	pubsubRouter "github.com/freelanceops/billing/internal/pubsub/router"
	"github.com/freelanceops/billing/internal/webhook/handler"
	"github.com/freelanceops/billing/internal/webhook/publisher"
)

// WebhookService owns the delivery consumer. Deliveries are always persisted first; the
// consumer only shortens the wait before the scheduler's retry step would pick them up.
type WebhookService struct {
	config    *config.Configuration
	publisher publisher.WebhookPublisher
	handler   handler.Handler
	logger    *logger.Logger
}

// NewWebhookService creates a new webhook service
func NewWebhookService(
	cfg *config.Configuration,
	publisher publisher.WebhookPublisher,
	h handler.Handler,
	l *logger.Logger,
) *WebhookService {
	return &WebhookService{
		config:    cfg,
		publisher: publisher,
		handler:   h,
		logger:    l,
	}
}

// RegisterHandler attaches the consumer to the router unless webhooks are disabled
func (s *WebhookService) RegisterHandler(router *pubsubRouter.Router) {
	if !s.config.Webhook.Enabled {
		s.logger.Info("webhook delivery consumer disabled")
		return
	}
	s.handler.RegisterHandler(router)
	s.logger.Infow("webhook delivery consumer registered", "topic", s.config.Webhook.Topic)
}

// Stop closes the publisher
func (s *WebhookService) Stop(_ context.Context) error {
	if err := s.publisher.Close(); err != nil {
		s.logger.Errorw("failed to close webhook publisher", "error", err)
		return ierr.WithError(err).
			WithHint("Webhook publisher could not be closed").
			Mark(ierr.ErrSystem)
	}
	s.logger.Info("webhook service stopped successfully")
	return nil
}
