package types

import ierr "github.com/freelanceops/billing/internal/errors"

// PubSubType selects the transport that carries webhook delivery messages
// from the workflow engine to the delivery consumer
type PubSubType string

const (
	// MemoryPubSub keeps messages in process, which is enough for a single instance
	MemoryPubSub PubSubType = "memory"
)

func (t PubSubType) Validate() error {
	if t != MemoryPubSub {
		return ierr.NewErrorf("unsupported pubsub type %q", t).
			WithHint("webhook.pubsub must be memory").
			Mark(ierr.ErrValidation)
	}
	return nil
}
