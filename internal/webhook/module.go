package webhook

import (
	"github.com/freelanceops/billing/internal/config"
	"github.com/freelanceops/billing/internal/logger"
	"github.com/freelanceops/billing/internal/pubsub"
	"github.com/freelanceops/billing/internal/pubsub/memory"
	"github.com/freelanceops/billing/internal/webhook/handler"
	"github.com/freelanceops/billing/internal/webhook/publisher"
	"go.uber.org/fx"
)

// Module provides the pubsub, the delivery publisher and the delivery consumer.
// The handler.Processor is provided by the service layer.
var Module = fx.Options(
	fx.Provide(
		providePubSub,
		publisher.NewPublisher,
		handler.NewHandler,
		NewWebhookService,
	),
)

func providePubSub(
	cfg *config.Configuration,
	logger *logger.Logger,
) (pubsub.PubSub, error) {
	if err := cfg.Webhook.PubSub.Validate(); err != nil {
		return nil, err
	}
	return memory.NewPubSub(cfg, logger), nil
}
