package cache

import (
	"context"
	"time"
)

// Cache is the process-local cache in front of the trigger store
type Cache interface {
	// Get returns the value and whether the key was present
	Get(ctx context.Context, key string) (interface{}, bool)
	// Set stores value until expiration. Zero means the cache default.
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration)
	Delete(ctx context.Context, key string)
	DeleteByPrefix(ctx context.Context, prefix string)
	Flush(ctx context.Context)
}

// PrefixWorkflowTrigger namespaces the active trigger lists, one key per event type.
// Bump the version when the cached shape changes.
const PrefixWorkflowTrigger = "workflow_trigger:v1:"

// TriggersKey is the key of the active trigger list of an event type
func TriggersKey(eventType string) string {
	return PrefixWorkflowTrigger + eventType
}

// InvalidateTriggers drops every cached trigger list. c may be nil.
func InvalidateTriggers(ctx context.Context, c Cache) {
	if c == nil {
		return
	}
	c.DeleteByPrefix(ctx, PrefixWorkflowTrigger)
}
