package config

import (
	"time"

	"github.com/freelanceops/billing/internal/types"
)

// Webhook represents the configuration for outbound workflow webhooks
type Webhook struct {
	Enabled bool             `mapstructure:"enabled"`
	Topic   string           `mapstructure:"topic" validate:"required"`
	PubSub  types.PubSubType `mapstructure:"pubsub" validate:"required"`
	// Timeout bounds a single HTTP attempt
	Timeout time.Duration `mapstructure:"timeout" validate:"required"`
	// MaxAttempts is the total number of attempts before a delivery is exhausted
	MaxAttempts int `mapstructure:"max_attempts" validate:"min=1"`
	// RetryMax is the number of in-process retries per delivery run
	RetryMax     int           `mapstructure:"retry_max" validate:"min=0"`
	RetryWaitMin time.Duration `mapstructure:"retry_wait_min"`
	RetryWaitMax time.Duration `mapstructure:"retry_wait_max"`
	// RetryDelay is how long a failed delivery waits before the scheduler picks it up again
	RetryDelay time.Duration `mapstructure:"retry_delay"`
	// ClaimLease is how long a sender owns a delivery before another may take it over.
	// It must outlast one attempt including its in-process retries.
	ClaimLease   time.Duration `mapstructure:"claim_lease" validate:"required"`
	OutputBuffer int64         `mapstructure:"output_buffer"`
	Concurrency  int           `mapstructure:"concurrency" validate:"min=1"`
}
