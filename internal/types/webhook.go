package types

import (
	"time"
)

// WebhookDeliveryStatus is the persisted state of an outbound workflow webhook
type WebhookDeliveryStatus string

const (
	WebhookDeliveryStatusPending   WebhookDeliveryStatus = "pending"
	WebhookDeliveryStatusDelivered WebhookDeliveryStatus = "delivered"
	// WebhookDeliveryStatusInFlight deliveries are claimed by one sender until NextAttemptAt.
	// A claim that outlives it was abandoned and can be taken over.
	WebhookDeliveryStatusInFlight WebhookDeliveryStatus = "in_flight"
	// WebhookDeliveryStatusFailed deliveries are retried by the scheduler once NextAttemptAt passes
	WebhookDeliveryStatusFailed WebhookDeliveryStatus = "failed"
	// WebhookDeliveryStatusExhausted deliveries used every attempt and only resume on manual retry
	WebhookDeliveryStatusExhausted WebhookDeliveryStatus = "exhausted"
)

func (s WebhookDeliveryStatus) String() string {
	return string(s)
}

// Webhook request headers
const (
	WebhookHeaderSignature = "X-Signature"
	WebhookHeaderEvent     = "X-Webhook-Event"
	WebhookHeaderDelivery  = "X-Webhook-Delivery"
	WebhookSignaturePrefix = "sha256="
)

// WebhookMessage is the pubsub envelope that asks the consumer to attempt a delivery
type WebhookMessage struct {
	DeliveryID string    `json:"delivery_id"`
	RequestID  string    `json:"request_id"`
	Timestamp  time.Time `json:"timestamp"`
}

// WebhookDeliveryFilter represents the filter options for listing deliveries
type WebhookDeliveryFilter struct {
	*QueryFilter
	Status    []WebhookDeliveryStatus `json:"status,omitempty" form:"status"`
	TriggerID string                  `json:"trigger_id,omitempty" form:"trigger_id"`
	// DueBefore keeps failed deliveries whose next attempt is due
	DueBefore *time.Time `json:"-" form:"-"`
}

func NewWebhookDeliveryFilter() *WebhookDeliveryFilter {
	return &WebhookDeliveryFilter{QueryFilter: NewDefaultQueryFilter()}
}
