package types

import (
	ierr "github.com/freelanceops/billing/internal/errors"
	"github.com/samber/lo"
)

// WorkflowEventType is the closed set of business events triggers can listen for
type WorkflowEventType string

const (
	EventProposalAccepted        WorkflowEventType = "proposal.accepted"
	EventProposalRejected        WorkflowEventType = "proposal.rejected"
	EventContractSigned          WorkflowEventType = "contract.signed"
	EventMilestoneCompleted      WorkflowEventType = "milestone.completed"
	EventInvoiceCreated          WorkflowEventType = "invoice.created"
	EventInvoiceSent             WorkflowEventType = "invoice.sent"
	EventInvoicePaid             WorkflowEventType = "invoice.paid"
	EventInvoiceOverdue          WorkflowEventType = "invoice.overdue"
	EventDeliverableApproved     WorkflowEventType = "deliverable.approved"
	EventDocumentRequestApproved WorkflowEventType = "document_request.approved"
	EventQuestionnaireCompleted  WorkflowEventType = "questionnaire.completed"
)

// WorkflowEventTypes lists every event type in declaration order
var WorkflowEventTypes = []WorkflowEventType{
	EventProposalAccepted,
	EventProposalRejected,
	EventContractSigned,
	EventMilestoneCompleted,
	EventInvoiceCreated,
	EventInvoiceSent,
	EventInvoicePaid,
	EventInvoiceOverdue,
	EventDeliverableApproved,
	EventDocumentRequestApproved,
	EventQuestionnaireCompleted,
}

func (e WorkflowEventType) String() string {
	return string(e)
}

func (e WorkflowEventType) Validate() error {
	if !lo.Contains(WorkflowEventTypes, e) {
		return ierr.NewError("invalid event type").
			WithHintf("Unknown event type %q", string(e)).
			WithReportableDetails(map[string]any{
				"allowed": WorkflowEventTypes,
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}

// ConditionOperator compares an event field against a trigger condition value
type ConditionOperator string

const (
	ConditionOperatorEquals      ConditionOperator = "equals"
	ConditionOperatorContains    ConditionOperator = "contains"
	ConditionOperatorIn          ConditionOperator = "in"
	ConditionOperatorGreaterThan ConditionOperator = "greater_than"
	ConditionOperatorNotEmpty    ConditionOperator = "not_empty"
)

func (o ConditionOperator) Validate() error {
	allowed := []ConditionOperator{
		ConditionOperatorEquals,
		ConditionOperatorContains,
		ConditionOperatorIn,
		ConditionOperatorGreaterThan,
		ConditionOperatorNotEmpty,
	}
	if !lo.Contains(allowed, o) {
		return ierr.NewError("invalid condition operator").
			WithHintf("Unknown condition operator %q", string(o)).
			WithReportableDetails(map[string]any{
				"allowed": allowed,
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}

// WorkflowActionType is the fixed set of actions a trigger can run
type WorkflowActionType string

const (
	ActionSendEmail     WorkflowActionType = "send_email"
	ActionCreateTask    WorkflowActionType = "create_task"
	ActionUpdateStatus  WorkflowActionType = "update_status"
	ActionWebhook       WorkflowActionType = "webhook"
	ActionNotify        WorkflowActionType = "notify"
	ActionCreateInvoice WorkflowActionType = "create_invoice"
)

var WorkflowActionTypes = []WorkflowActionType{
	ActionSendEmail,
	ActionCreateTask,
	ActionUpdateStatus,
	ActionWebhook,
	ActionNotify,
	ActionCreateInvoice,
}

func (a WorkflowActionType) String() string {
	return string(a)
}

func (a WorkflowActionType) Validate() error {
	if !lo.Contains(WorkflowActionTypes, a) {
		return ierr.NewError("invalid action type").
			WithHintf("Unknown action type %q", string(a)).
			WithReportableDetails(map[string]any{
				"allowed": WorkflowActionTypes,
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}

// IsFinancial reports whether an action can move money and therefore needs a dedupe key
func (a WorkflowActionType) IsFinancial(entity EntityType) bool {
	switch a {
	case ActionCreateInvoice:
		return true
	case ActionUpdateStatus:
		return entity == EntityTypeInvoice
	}
	return false
}

// ActionOutcome is the recorded result of a single action execution
type ActionOutcome string

const (
	ActionOutcomeSucceeded ActionOutcome = "succeeded"
	ActionOutcomeFailed    ActionOutcome = "failed"
	ActionOutcomeSkipped   ActionOutcome = "skipped"
	ActionOutcomeDuplicate ActionOutcome = "duplicate"
)

// EntityType names the records an update_status action may target
type EntityType string

const (
	EntityTypeInvoice EntityType = "invoice"
	EntityTypeTask    EntityType = "task"
)

func (e EntityType) Validate() error {
	allowed := []EntityType{EntityTypeInvoice, EntityTypeTask}
	if !lo.Contains(allowed, e) {
		return ierr.NewError("invalid entity type").
			WithHintf("Status updates are supported for %v", allowed).
			Mark(ierr.ErrValidation)
	}
	return nil
}

// WorkflowTriggerFilter represents the filter options for listing triggers
type WorkflowTriggerFilter struct {
	*QueryFilter
	EventType  WorkflowEventType `json:"event_type,omitempty" form:"event_type"`
	ActiveOnly bool              `json:"active_only,omitempty" form:"active_only"`
}

func NewWorkflowTriggerFilter() *WorkflowTriggerFilter {
	return &WorkflowTriggerFilter{QueryFilter: NewDefaultQueryFilter()}
}

// WorkflowEventLogFilter represents the filter options for the event audit log
type WorkflowEventLogFilter struct {
	*QueryFilter
	EventType      WorkflowEventType `json:"event_type,omitempty" form:"event_type"`
	SourceEntityID string            `json:"source_entity_id,omitempty" form:"source_entity_id"`
}

func NewWorkflowEventLogFilter() *WorkflowEventLogFilter {
	return &WorkflowEventLogFilter{QueryFilter: NewDefaultQueryFilter()}
}
