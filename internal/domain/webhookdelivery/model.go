package webhookdelivery

import (
	"time"

	"github.com/freelanceops/billing/internal/types"
)

// Delivery is the persisted state of one outbound webhook of a workflow action
type Delivery struct {
	ID             string                  `json:"id"`
	TriggerID      string                  `json:"trigger_id"`
	EventLogID     *string                 `json:"event_log_id,omitempty"`
	EventType      types.WorkflowEventType `json:"event_type"`
	SourceEntityID string                  `json:"source_entity_id"`
	URL            string                  `json:"url"`
	// Secret is the encrypted signing secret of the destination
	Secret         string                      `json:"-"`
	Headers        types.Metadata              `json:"headers,omitempty"`
	Payload        string                      `json:"payload"`
	DeliveryStatus types.WebhookDeliveryStatus `json:"delivery_status"`
	Attempts       int                         `json:"attempts"`
	MaxAttempts    int                         `json:"max_attempts"`
	LastStatusCode *int                        `json:"last_status_code,omitempty"`
	LastError      *string                     `json:"last_error,omitempty"`
	NextAttemptAt  *time.Time                  `json:"next_attempt_at,omitempty"`
	DeliveredAt    *time.Time                  `json:"delivered_at,omitempty"`
	CreatedAt      time.Time                   `json:"created_at"`
	UpdatedAt      time.Time                   `json:"updated_at"`
	// Version is bumped by every write so concurrent senders can not overwrite each other
	Version int `json:"-"`
}

// IsFinished reports whether the delivery needs no further attempts without manual action
func (d *Delivery) IsFinished() bool {
	return d.DeliveryStatus == types.WebhookDeliveryStatusDelivered ||
		d.DeliveryStatus == types.WebhookDeliveryStatusExhausted
}

// IsClaimable reports whether a sender may claim the delivery at now
func (d *Delivery) IsClaimable(now time.Time) bool {
	switch d.DeliveryStatus {
	case types.WebhookDeliveryStatusPending, types.WebhookDeliveryStatusFailed, types.WebhookDeliveryStatusInFlight:
		return d.NextAttemptAt == nil || !d.NextAttemptAt.After(now)
	default:
		return false
	}
}

// Claim marks the delivery in flight until now plus lease
func (d *Delivery) Claim(now time.Time, lease time.Duration) {
	until := now.Add(lease)
	d.DeliveryStatus = types.WebhookDeliveryStatusInFlight
	d.NextAttemptAt = &until
	d.UpdatedAt = now
}

// MarkDelivered records a successful attempt
func (d *Delivery) MarkDelivered(statusCode int, at time.Time) {
	d.Attempts++
	d.DeliveryStatus = types.WebhookDeliveryStatusDelivered
	d.LastStatusCode = &statusCode
	d.LastError = nil
	d.NextAttemptAt = nil
	d.DeliveredAt = &at
	d.UpdatedAt = at
}

// MarkFailed records a failed attempt. The delivery is exhausted once every attempt is used,
// otherwise the next attempt is due after retryDelay.
func (d *Delivery) MarkFailed(statusCode *int, reason string, at time.Time, retryDelay time.Duration) {
	d.Attempts++
	d.LastStatusCode = statusCode
	d.LastError = &reason
	d.UpdatedAt = at
	if d.Attempts >= d.MaxAttempts {
		d.DeliveryStatus = types.WebhookDeliveryStatusExhausted
		d.NextAttemptAt = nil
		return
	}
	next := at.Add(retryDelay * time.Duration(d.Attempts))
	d.DeliveryStatus = types.WebhookDeliveryStatusFailed
	d.NextAttemptAt = &next
}

// Reopen grants an exhausted delivery one more attempt
func (d *Delivery) Reopen(at time.Time) {
	if d.Attempts >= d.MaxAttempts {
		d.MaxAttempts = d.Attempts + 1
	}
	d.DeliveryStatus = types.WebhookDeliveryStatusPending
	d.NextAttemptAt = nil
	d.UpdatedAt = at
}
