package router

import (
	"context"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/freelanceops/billing/internal/logger"
	"github.com/freelanceops/billing/internal/sentry"
)

// PoisonTopic receives delivery messages whose handler returned an error
const PoisonTopic = "webhook_deliveries_poison"

// Router runs the in-process consumers of delivery messages
type Router struct {
	router *message.Router
	poison *gochannel.GoChannel
	logger *logger.Logger
	sentry *sentry.Service
}

// NewRouter creates the message router. Handlers are not retried here: delivery attempts
// are persisted and the scheduler retries them. Poisoned messages are logged and dropped.
func NewRouter(logger *logger.Logger, sentry *sentry.Service) (*Router, error) {
	router, err := message.NewRouter(message.RouterConfig{}, logger.GetWatermillLogger())
	if err != nil {
		return nil, err
	}

	poison := gochannel.NewGoChannel(gochannel.Config{}, logger.GetWatermillLogger())
	poisonQueue, err := middleware.PoisonQueue(poison, PoisonTopic)
	if err != nil {
		return nil, err
	}
	router.AddMiddleware(
		poisonQueue,
		middleware.Recoverer,
		middleware.CorrelationID,
	)

	r := &Router{
		router: router,
		poison: poison,
		logger: logger,
		sentry: sentry,
	}
	router.AddNoPublisherHandler("webhook_poison_logger", PoisonTopic, poison, r.logPoisoned)
	return r, nil
}

func (r *Router) logPoisoned(msg *message.Message) error {
	r.logger.Warnw("dropping poisoned delivery message",
		"message_uuid", msg.UUID,
		"correlation_id", middleware.MessageCorrelationID(msg),
		"reason", msg.Metadata.Get(middleware.ReasonForPoisonedKey),
		"handler", msg.Metadata.Get(middleware.PoisonedHandlerKey),
	)
	return nil
}

// AddNoPublishHandler registers a consumer. Handler errors are reported to sentry before
// the poison queue takes the message.
func (r *Router) AddNoPublishHandler(
	handlerName string,
	topicName string,
	subscriber message.Subscriber,
	handlerFunc func(msg *message.Message) error,
	middlewares ...message.HandlerMiddleware,
) {
	handler := r.router.AddNoPublisherHandler(handlerName, topicName, subscriber,
		func(msg *message.Message) error {
			err := handlerFunc(msg)
			if err != nil {
				r.sentry.CaptureException(err)
				r.logger.Errorw("delivery handler failed",
					"handler", handlerName,
					"error", err,
					"correlation_id", middleware.MessageCorrelationID(msg),
					"message_uuid", msg.UUID,
				)
			}
			return err
		},
	)
	for _, mw := range middlewares {
		handler.AddMiddleware(mw)
	}
}

// Run blocks until ctx is done or Close is called
func (r *Router) Run(ctx context.Context) error {
	r.logger.Info("starting delivery message router")
	return r.router.Run(ctx)
}

// Running is closed once every handler is subscribed
func (r *Router) Running() chan struct{} {
	return r.router.Running()
}

func (r *Router) Close() error {
	r.logger.Info("closing delivery message router")
	if err := r.router.Close(); err != nil {
		return err
	}
	return r.poison.Close()
}
