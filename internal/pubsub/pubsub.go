package pubsub

import (
	"context"
	"encoding/json"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	ierr "github.com/freelanceops/billing/internal/errors"
	"github.com/freelanceops/billing/internal/types"
)

// Publisher publishes delivery messages to a topic
type Publisher interface {
	Publish(ctx context.Context, topic string, msg *message.Message) error
	Close() error
}

// Subscriber consumes delivery messages of a topic
type Subscriber interface {
	Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error)
	Close() error
}

type PubSub interface {
	Publisher
	Subscriber
}

// EncodeDelivery wraps a delivery envelope in a watermill message. The request id
// travels as the correlation id.
func EncodeDelivery(wm *types.WebhookMessage) (*message.Message, error) {
	payload, err := json.Marshal(wm)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Webhook message could not be encoded").
			Mark(ierr.ErrSystem)
	}
	msg := message.NewMessage(watermill.NewUUID(), payload)
	if wm.RequestID != "" {
		middleware.SetCorrelationID(wm.RequestID, msg)
	}
	return msg, nil
}

// DecodeDelivery reads the envelope back, falling back to the correlation id when the
// payload carries no request id
func DecodeDelivery(msg *message.Message) (*types.WebhookMessage, error) {
	var wm types.WebhookMessage
	if err := json.Unmarshal(msg.Payload, &wm); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Webhook message could not be decoded").
			WithReportableDetails(map[string]any{"message_uuid": msg.UUID}).
			Mark(ierr.ErrValidation)
	}
	if wm.DeliveryID == "" {
		return nil, ierr.NewError("webhook message has no delivery id").
			WithReportableDetails(map[string]any{"message_uuid": msg.UUID}).
			Mark(ierr.ErrValidation)
	}
	if wm.RequestID == "" {
		wm.RequestID = middleware.MessageCorrelationID(msg)
	}
	return &wm, nil
}
