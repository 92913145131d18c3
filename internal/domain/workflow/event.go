package workflow

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	ierr "github.com/freelanceops/billing/internal/errors"
	"github.com/freelanceops/billing/internal/types"
)

// Event is one business occurrence handed to the trigger engine. It is handled
// synchronously at emit time and only its audit record is persisted.
type Event struct {
	Type       types.WorkflowEventType `json:"type"`
	OccurredAt time.Time               `json:"occurred_at"`
	Payload    Payload                 `json:"payload"`
}

// NewEvent builds an event from a typed payload
func NewEvent(eventType types.WorkflowEventType, payload Payload, occurredAt time.Time) *Event {
	return &Event{
		Type:       eventType,
		OccurredAt: occurredAt.UTC(),
		Payload:    payload,
	}
}

// ParseEvent decodes a raw JSON payload into the payload type of eventType.
// Unknown payload fields are rejected.
func ParseEvent(eventType types.WorkflowEventType, raw json.RawMessage, occurredAt time.Time) (*Event, error) {
	payload, err := newPayload(eventType)
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		raw = json.RawMessage("{}")
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(payload); err != nil {
		return nil, ierr.WithError(err).
			WithHintf("Payload does not match the %s event shape", eventType).
			WithReportableDetails(map[string]any{
				"event_type": eventType,
				"fields":     payload.Fields().Schema(),
			}).
			Mark(ierr.ErrValidation)
	}

	event := NewEvent(eventType, payload, occurredAt)
	if err := event.Validate(); err != nil {
		return nil, err
	}
	return event, nil
}

func (e *Event) Validate() error {
	if err := e.Type.Validate(); err != nil {
		return err
	}
	if e.Payload == nil {
		return ierr.NewError("event payload is required").
			WithHint("Please provide an event payload").
			Mark(ierr.ErrValidation)
	}
	expected, _ := newPayload(e.Type)
	if typeName(expected) != typeName(e.Payload) {
		return ierr.NewError("payload type does not match event type").
			WithHintf("Event %s carries a different payload", e.Type).
			Mark(ierr.ErrValidation)
	}
	return e.Payload.Validate()
}

// SourceEntityID identifies the record the event is about
func (e *Event) SourceEntityID() string {
	return e.Payload.SourceEntityID()
}

// Field returns a payload field by name
func (e *Event) Field(name string) (Value, bool) {
	v, ok := e.Payload.Fields()[name]
	return v, ok
}

// PayloadJSON is the payload as stored in the audit log and sent to webhooks
func (e *Event) PayloadJSON() (json.RawMessage, error) {
	return json.Marshal(e.Payload)
}

func typeName(p Payload) string {
	return fmt.Sprintf("%T", p)
}
