package webhookdelivery

import (
	"testing"
	"time"

	"github.com/freelanceops/billing/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeliveryAttempts(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	d := &Delivery{
		DeliveryStatus: types.WebhookDeliveryStatusPending,
		MaxAttempts:    2,
	}

	code := 500
	d.MarkFailed(&code, "server error", now, time.Minute)
	assert.Equal(t, types.WebhookDeliveryStatusFailed, d.DeliveryStatus)
	require.NotNil(t, d.NextAttemptAt)
	assert.Equal(t, now.Add(time.Minute), *d.NextAttemptAt)
	assert.False(t, d.IsFinished())

	d.MarkFailed(nil, "timeout", now.Add(time.Minute), time.Minute)
	assert.Equal(t, types.WebhookDeliveryStatusExhausted, d.DeliveryStatus)
	assert.Nil(t, d.NextAttemptAt)
	assert.True(t, d.IsFinished())
	assert.Equal(t, 2, d.Attempts)

	d.Reopen(now.Add(time.Hour))
	assert.Equal(t, types.WebhookDeliveryStatusPending, d.DeliveryStatus)
	assert.Equal(t, 3, d.MaxAttempts)

	d.MarkDelivered(204, now.Add(2*time.Hour))
	assert.Equal(t, types.WebhookDeliveryStatusDelivered, d.DeliveryStatus)
	assert.Nil(t, d.LastError)
	assert.Equal(t, 3, d.Attempts)
}

func TestDeliveryClaim(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	later := now.Add(time.Hour)

	tests := []struct {
		name      string
		status    types.WebhookDeliveryStatus
		next      *time.Time
		claimable bool
	}{
		{name: "new pending", status: types.WebhookDeliveryStatusPending, claimable: true},
		{name: "failed and due", status: types.WebhookDeliveryStatusFailed, next: &now, claimable: true},
		{name: "failed not yet due", status: types.WebhookDeliveryStatusFailed, next: &later},
		{name: "claim still held", status: types.WebhookDeliveryStatusInFlight, next: &later},
		{name: "claim expired", status: types.WebhookDeliveryStatusInFlight, next: &now, claimable: true},
		{name: "delivered", status: types.WebhookDeliveryStatusDelivered},
		{name: "exhausted", status: types.WebhookDeliveryStatusExhausted},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := &Delivery{DeliveryStatus: tt.status, NextAttemptAt: tt.next}
			assert.Equal(t, tt.claimable, d.IsClaimable(now))
		})
	}

	d := &Delivery{DeliveryStatus: types.WebhookDeliveryStatusPending}
	d.Claim(now, 5*time.Minute)
	assert.Equal(t, types.WebhookDeliveryStatusInFlight, d.DeliveryStatus)
	require.NotNil(t, d.NextAttemptAt)
	assert.Equal(t, now.Add(5*time.Minute), *d.NextAttemptAt)
	assert.False(t, d.IsClaimable(now.Add(time.Minute)))
	assert.True(t, d.IsClaimable(now.Add(5*time.Minute)))
}
