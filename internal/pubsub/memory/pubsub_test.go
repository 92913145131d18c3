package memory

import (
	"context"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"github.com/freelanceops/billing/internal/config"
	"github.com/freelanceops/billing/internal/logger"
	"github.com/freelanceops/billing/internal/pubsub"
	"github.com/freelanceops/billing/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeliveryMessageRoundTrip(t *testing.T) {
	cfg := config.GetDefaultConfig()
	ps := NewPubSub(cfg, logger.NewNopLogger())
	defer ps.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	msgs, err := ps.Subscribe(ctx, cfg.Webhook.Topic)
	require.NoError(t, err)

	sent := &types.WebhookMessage{DeliveryID: "whd_1", RequestID: "req_1", Timestamp: time.Now().UTC()}
	msg, err := pubsub.EncodeDelivery(sent)
	require.NoError(t, err)
	require.NoError(t, ps.Publish(ctx, cfg.Webhook.Topic, msg))

	select {
	case got := <-msgs:
		got.Ack()
		wm, err := pubsub.DecodeDelivery(got)
		require.NoError(t, err)
		assert.Equal(t, "whd_1", wm.DeliveryID)
		assert.Equal(t, "req_1", wm.RequestID)
		assert.Equal(t, "req_1", middleware.MessageCorrelationID(got))
	case <-ctx.Done():
		t.Fatal("delivery message was not received")
	}
}

func TestDecodeDeliveryRejectsMalformedMessages(t *testing.T) {
	_, err := pubsub.DecodeDelivery(message.NewMessage(watermill.NewUUID(), []byte("not json")))
	require.Error(t, err)

	_, err = pubsub.DecodeDelivery(message.NewMessage(watermill.NewUUID(), []byte(`{"request_id":"req_1"}`)))
	require.Error(t, err)
}

func TestDecodeDeliveryFallsBackToCorrelationID(t *testing.T) {
	msg := message.NewMessage(watermill.NewUUID(), []byte(`{"delivery_id":"whd_2"}`))
	middleware.SetCorrelationID("req_9", msg)

	wm, err := pubsub.DecodeDelivery(msg)
	require.NoError(t, err)
	assert.Equal(t, "req_9", wm.RequestID)
}
