package publisher

import (
	"context"

	"github.com/freelanceops/billing/internal/config"
	"github.com/freelanceops/billing/internal/logger"
	"github.com/freelanceops/billing/internal/pubsub"
	"github.com/freelanceops/billing/internal/types"
)

// WebhookPublisher hands persisted deliveries to the background consumer
type WebhookPublisher interface {
	PublishDelivery(ctx context.Context, msg *types.WebhookMessage) error
	Close() error
}

type webhookPublisher struct {
	pubSub pubsub.PubSub
	config *config.Webhook
	logger *logger.Logger
}

// NewPublisher creates a publisher on the configured pubsub
func NewPublisher(
	pubSub pubsub.PubSub,
	cfg *config.Configuration,
	logger *logger.Logger,
) (WebhookPublisher, error) {
	return &webhookPublisher{
		pubSub: pubSub,
		config: &cfg.Webhook,
		logger: logger,
	}, nil
}

func (p *webhookPublisher) PublishDelivery(ctx context.Context, wm *types.WebhookMessage) error {
	msg, err := pubsub.EncodeDelivery(wm)
	if err != nil {
		return err
	}

	p.logger.Debugw("publishing webhook delivery",
		"delivery_id", wm.DeliveryID,
		"topic", p.config.Topic,
	)

	if err := p.pubSub.Publish(ctx, p.config.Topic, msg); err != nil {
		p.logger.Errorw("failed to publish webhook delivery",
			"error", err,
			"delivery_id", wm.DeliveryID,
		)
		return err
	}
	return nil
}

// Close closes the publisher
func (p *webhookPublisher) Close() error {
	return p.pubSub.Close()
}
