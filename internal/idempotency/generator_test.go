package idempotency

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGenerateKey(t *testing.T) {
	g := NewGenerator()

	params := map[string]interface{}{
		"trigger_id":       "trg_1",
		"event_type":       "milestone.completed",
		"source_entity_id": "7",
		"action_index":     0,
	}
	key := g.GenerateKey(ScopeWorkflowAction, params)

	assert.Contains(t, key, string(ScopeWorkflowAction)+"-")
	assert.Equal(t, key, g.GenerateKey(ScopeWorkflowAction, map[string]interface{}{
		"action_index":     0,
		"source_entity_id": "7",
		"event_type":       "milestone.completed",
		"trigger_id":       "trg_1",
	}), "key must not depend on map order")

	params["source_entity_id"] = "8"
	assert.NotEqual(t, key, g.GenerateKey(ScopeWorkflowAction, params))
	assert.NotEqual(t, key, g.GenerateKey(ScopeRecurringInvoice, map[string]interface{}{
		"trigger_id":       "trg_1",
		"event_type":       "milestone.completed",
		"source_entity_id": "7",
		"action_index":     0,
	}))
}

func TestInvoiceKeys(t *testing.T) {
	g := NewGenerator()

	period := time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "recurring:rec_1:2026-03-01", g.RecurringInvoiceKey("rec_1", period))
	assert.Equal(t, "scheduled:sched_1", g.ScheduledInvoiceKey("sched_1"))
}
