package dto

import (
	"context"
	"encoding/json"
	"time"

	"github.com/freelanceops/billing/internal/domain/webhookdelivery"
	"github.com/freelanceops/billing/internal/domain/workflow"
	"github.com/freelanceops/billing/internal/types"
	"github.com/freelanceops/billing/internal/validator"
	"github.com/samber/lo"
)

// secretMask replaces webhook secrets in responses
const secretMask = "********"

// CreateTriggerRequest creates a workflow trigger
type CreateTriggerRequest struct {
	Name        string                  `json:"name" validate:"required,max=255"`
	Description string                  `json:"description,omitempty"`
	EventType   types.WorkflowEventType `json:"event_type" validate:"required"`
	Conditions  []workflow.Condition    `json:"conditions,omitempty"`
	Actions     []workflow.Action       `json:"actions" validate:"required,min=1"`
	Priority    int                     `json:"priority"`
	// is_active defaults to true
	IsActive *bool `json:"is_active,omitempty"`
}

func (r *CreateTriggerRequest) Validate() error {
	if err := validator.ValidateRequest(r); err != nil {
		return err
	}
	return r.EventType.Validate()
}

// ToTrigger converts the request to a trigger. Conditions and actions are validated
// against the event schema by the service.
func (r *CreateTriggerRequest) ToTrigger(ctx context.Context) *workflow.Trigger {
	return &workflow.Trigger{
		ID:          types.GenerateUUIDWithPrefix(types.UUID_PREFIX_WORKFLOW_TRIGGER),
		Name:        r.Name,
		Description: r.Description,
		EventType:   r.EventType,
		Conditions:  r.Conditions,
		Actions:     r.Actions,
		Priority:    r.Priority,
		IsActive:    lo.FromPtrOr(r.IsActive, true),
		BaseModel:   types.GetDefaultBaseModel(ctx),
	}
}

// UpdateTriggerRequest replaces the set parts of a trigger. A webhook action sent
// with an empty or masked secret keeps the secret stored at the same position.
type UpdateTriggerRequest struct {
	Name        *string                  `json:"name,omitempty" validate:"omitempty,max=255"`
	Description *string                  `json:"description,omitempty"`
	EventType   *types.WorkflowEventType `json:"event_type,omitempty"`
	Conditions  *[]workflow.Condition    `json:"conditions,omitempty"`
	Actions     *[]workflow.Action       `json:"actions,omitempty"`
	Priority    *int                     `json:"priority,omitempty"`
	IsActive    *bool                    `json:"is_active,omitempty"`
}

func (r *UpdateTriggerRequest) Validate() error {
	return validator.ValidateRequest(r)
}

// Apply writes the set fields onto t
func (r *UpdateTriggerRequest) Apply(t *workflow.Trigger) {
	if r.Name != nil {
		t.Name = *r.Name
	}
	if r.Description != nil {
		t.Description = *r.Description
	}
	if r.EventType != nil {
		t.EventType = *r.EventType
	}
	if r.Conditions != nil {
		t.Conditions = *r.Conditions
	}
	if r.Actions != nil {
		t.Actions = *r.Actions
	}
	if r.Priority != nil {
		t.Priority = *r.Priority
	}
	if r.IsActive != nil {
		t.IsActive = *r.IsActive
	}
}

// IsMaskedSecret reports whether a secret sent back by a client stands for the stored one
func IsMaskedSecret(secret string) bool {
	return secret == "" || secret == secretMask
}

// TriggerResponse is a trigger with webhook secrets masked
type TriggerResponse struct {
	*workflow.Trigger
}

func NewTriggerResponse(t *workflow.Trigger) *TriggerResponse {
	if t == nil {
		return nil
	}
	masked := *t
	masked.Actions = make([]workflow.Action, len(t.Actions))
	for i, a := range t.Actions {
		if a.Webhook != nil {
			hook := *a.Webhook
			hook.Secret = secretMask
			a.Webhook = &hook
		}
		masked.Actions[i] = a
	}
	return &TriggerResponse{Trigger: &masked}
}

type ListTriggersResponse = types.ListResponse[*TriggerResponse]

// EmitEventRequest emits a typed business event
type EmitEventRequest struct {
	EventType  types.WorkflowEventType `json:"event_type" validate:"required"`
	Payload    json.RawMessage         `json:"payload" validate:"required"`
	OccurredAt *time.Time              `json:"occurred_at,omitempty"`
}

func (r *EmitEventRequest) Validate() error {
	if err := validator.ValidateRequest(r); err != nil {
		return err
	}
	return r.EventType.Validate()
}

// ToEvent decodes the payload into the typed payload of the event type
func (r *EmitEventRequest) ToEvent() (*workflow.Event, error) {
	occurredAt := time.Now().UTC()
	if r.OccurredAt != nil {
		occurredAt = *r.OccurredAt
	}
	return workflow.ParseEvent(r.EventType, r.Payload, occurredAt)
}

// EventLogResponse is one audit record of an emitted event
type EventLogResponse struct {
	*workflow.EventLog
}

func NewEventLogResponse(l *workflow.EventLog) *EventLogResponse {
	if l == nil {
		return nil
	}
	return &EventLogResponse{EventLog: l}
}

type ListEventLogResponse = types.ListResponse[*EventLogResponse]

// WebhookDeliveryResponse is the persisted state of one outbound webhook
type WebhookDeliveryResponse struct {
	*webhookdelivery.Delivery
}

func NewWebhookDeliveryResponse(d *webhookdelivery.Delivery) *WebhookDeliveryResponse {
	if d == nil {
		return nil
	}
	return &WebhookDeliveryResponse{Delivery: d}
}

type ListWebhookDeliveriesResponse = types.ListResponse[*WebhookDeliveryResponse]
