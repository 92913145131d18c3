package workflow

import (
	"time"

	"github.com/freelanceops/billing/internal/types"
)

// Execution claims a financial action for one trigger, event type and source entity.
// Its dedupe key is unique, so a second claim for the same combination fails.
type Execution struct {
	ID             string                   `json:"id"`
	DedupeKey      string                   `json:"dedupe_key"`
	TriggerID      string                   `json:"trigger_id"`
	EventType      types.WorkflowEventType  `json:"event_type"`
	SourceEntityID string                   `json:"source_entity_id"`
	ActionIndex    int                      `json:"action_index"`
	ActionType     types.WorkflowActionType `json:"action_type"`
	ResultEntityID *string                  `json:"result_entity_id,omitempty"`
	CreatedAt      time.Time                `json:"created_at"`
}

// ActionResult is the outcome of one action recorded in the event log
type ActionResult struct {
	TriggerID   string                   `json:"trigger_id"`
	TriggerName string                   `json:"trigger_name"`
	ActionIndex int                      `json:"action_index"`
	ActionType  types.WorkflowActionType `json:"action_type"`
	Outcome     types.ActionOutcome      `json:"outcome"`
	EntityID    string                   `json:"entity_id,omitempty"`
	Error       string                   `json:"error,omitempty"`
}

// EventLog is the audit record written for every emitted event
type EventLog struct {
	ID               string                  `json:"id"`
	EventType        types.WorkflowEventType `json:"event_type"`
	SourceEntityID   string                  `json:"source_entity_id"`
	Payload          string                  `json:"payload"`
	OccurredAt       time.Time               `json:"occurred_at"`
	Depth            int                     `json:"depth"`
	TriggersMatched  int                     `json:"triggers_matched"`
	ActionsSucceeded int                     `json:"actions_succeeded"`
	ActionsFailed    int                     `json:"actions_failed"`
	Results          []ActionResult          `json:"results"`
	RequestID        *string                 `json:"request_id,omitempty"`
	CreatedAt        time.Time               `json:"created_at"`
}

// Tally counts succeeded and failed results
func (l *EventLog) Tally() {
	l.ActionsSucceeded, l.ActionsFailed = 0, 0
	for _, r := range l.Results {
		switch r.Outcome {
		case types.ActionOutcomeSucceeded:
			l.ActionsSucceeded++
		case types.ActionOutcomeFailed:
			l.ActionsFailed++
		}
	}
}
