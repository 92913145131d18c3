package handler

import (
	"context"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/freelanceops/billing/internal/config"
	"github.com/freelanceops/billing/internal/logger"
	"github.com/freelanceops/billing/internal/pubsub"
	pubsubRouter "github.com/freelanceops/billing/internal/pubsub/router"
	"github.com/freelanceops/billing/internal/types"
)

// Processor attempts one persisted delivery
type Processor interface {
	AttemptDelivery(ctx context.Context, deliveryID string) error
}

// Handler consumes delivery messages
type Handler interface {
	RegisterHandler(router *pubsubRouter.Router)
}

type handler struct {
	pubSub    pubsub.PubSub
	config    *config.Webhook
	processor Processor
	logger    *logger.Logger
}

// NewHandler creates the delivery consumer
func NewHandler(
	pubSub pubsub.PubSub,
	cfg *config.Configuration,
	processor Processor,
	logger *logger.Logger,
) Handler {
	return &handler{
		pubSub:    pubSub,
		config:    &cfg.Webhook,
		processor: processor,
		logger:    logger,
	}
}

func (h *handler) RegisterHandler(router *pubsubRouter.Router) {
	router.AddNoPublishHandler(
		"webhook_delivery_handler",
		h.config.Topic,
		h.pubSub,
		h.processMessage,
	)
}

// processMessage attempts the delivery named by the message. Failed attempts are
// recorded on the delivery itself, so only infrastructure errors reach the router.
func (h *handler) processMessage(msg *message.Message) error {
	wm, err := pubsub.DecodeDelivery(msg)
	if err != nil {
		h.logger.Errorw("dropping malformed webhook message",
			"error", err,
			"message_uuid", msg.UUID,
		)
		return nil
	}

	ctx := types.NewSystemContext(context.Background())
	if wm.RequestID != "" {
		ctx = types.SetRequestID(ctx, wm.RequestID)
	}

	return h.processor.AttemptDelivery(ctx, wm.DeliveryID)
}
