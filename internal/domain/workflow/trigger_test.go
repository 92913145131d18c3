package workflow

import (
	"encoding/json"
	"testing"
	"time"

	ierr "github.com/freelanceops/billing/internal/errors"
	"github.com/freelanceops/billing/internal/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func milestoneEvent(t *testing.T, raw string) *Event {
	t.Helper()
	event, err := ParseEvent(types.EventMilestoneCompleted, json.RawMessage(raw), time.Now())
	require.NoError(t, err)
	return event
}

func TestParseEvent(t *testing.T) {
	event := milestoneEvent(t, `{"milestone_id":"7","client_id":"client_1","amount":"1200.50","has_payment_deliverable":true}`)
	assert.Equal(t, "7", event.SourceEntityID())

	v, ok := event.Field("has_payment_deliverable")
	require.True(t, ok)
	assert.True(t, v.Bool)

	amount, ok := event.Field("amount")
	require.True(t, ok)
	assert.True(t, decimal.RequireFromString("1200.50").Equal(amount.Num))

	_, err := ParseEvent(types.EventMilestoneCompleted, json.RawMessage(`{"milestone_id":"7","unknown":1}`), time.Now())
	assert.True(t, ierr.IsValidation(err))

	_, err = ParseEvent(types.EventMilestoneCompleted, json.RawMessage(`{"title":"no id"}`), time.Now())
	assert.True(t, ierr.IsValidation(err))

	_, err = ParseEvent(types.WorkflowEventType("milestone.started"), nil, time.Now())
	assert.True(t, ierr.IsValidation(err))
}

func TestConditionEvaluate(t *testing.T) {
	event := milestoneEvent(t, `{"milestone_id":"7","title":"Final Delivery","amount":"900","has_payment_deliverable":true}`)

	tests := []struct {
		name string
		cond Condition
		want bool
	}{
		{"bool equals", Condition{Field: "has_payment_deliverable", Operator: types.ConditionOperatorEquals, Value: true}, true},
		{"bool equals text", Condition{Field: "has_payment_deliverable", Operator: types.ConditionOperatorEquals, Value: "false"}, false},
		{"number equals", Condition{Field: "amount", Operator: types.ConditionOperatorEquals, Value: 900.0}, true},
		{"greater than", Condition{Field: "amount", Operator: types.ConditionOperatorGreaterThan, Value: 500.0}, true},
		{"not greater than", Condition{Field: "amount", Operator: types.ConditionOperatorGreaterThan, Value: 900.0}, false},
		{"contains ignores case", Condition{Field: "title", Operator: types.ConditionOperatorContains, Value: "final"}, true},
		{"in", Condition{Field: "milestone_id", Operator: types.ConditionOperatorIn, Value: []any{"3", "7"}}, true},
		{"not in", Condition{Field: "milestone_id", Operator: types.ConditionOperatorIn, Value: []any{"3"}}, false},
		{"not empty", Condition{Field: "title", Operator: types.ConditionOperatorNotEmpty}, true},
		{"empty", Condition{Field: "currency", Operator: types.ConditionOperatorNotEmpty}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, ok := event.Field(tt.cond.Field)
			require.True(t, ok)
			assert.Equal(t, tt.want, tt.cond.Evaluate(v))
		})
	}
}

func TestTriggerValidate(t *testing.T) {
	trigger := &Trigger{
		Name:      "Bill completed milestones",
		EventType: types.EventMilestoneCompleted,
		Conditions: []Condition{
			{Field: "has_payment_deliverable", Operator: types.ConditionOperatorEquals, Value: true},
		},
		Actions: []Action{
			{
				Type: types.ActionCreateInvoice,
				CreateInvoice: &CreateInvoiceConfig{
					AmountField: "amount",
					Description: "Milestone {{.title}}",
				},
			},
		},
		IsActive: true,
	}
	require.NoError(t, trigger.Validate())

	trigger.Conditions = append(trigger.Conditions,
		Condition{Field: "invoice_total", Operator: types.ConditionOperatorGreaterThan, Value: 1.0},
		Condition{Field: "title", Operator: types.ConditionOperatorGreaterThan, Value: 1.0},
	)
	trigger.Actions = append(trigger.Actions, Action{Type: types.ActionWebhook, Webhook: &WebhookConfig{URL: "ftp://x"}})

	err := trigger.Validate()
	require.Error(t, err)
	assert.True(t, ierr.IsValidation(err))
	assert.Contains(t, err.Error(), "3 errors occurred")
}

func TestTriggerMatches(t *testing.T) {
	trigger := &Trigger{
		EventType: types.EventMilestoneCompleted,
		Conditions: []Condition{
			{Field: "has_payment_deliverable", Operator: types.ConditionOperatorEquals, Value: true},
		},
		IsActive: true,
	}
	assert.True(t, trigger.Matches(milestoneEvent(t, `{"milestone_id":"7","has_payment_deliverable":true}`)))
	assert.False(t, trigger.Matches(milestoneEvent(t, `{"milestone_id":"7","has_payment_deliverable":false}`)))

	trigger.IsActive = false
	assert.False(t, trigger.Matches(milestoneEvent(t, `{"milestone_id":"7","has_payment_deliverable":true}`)))
}

func TestRender(t *testing.T) {
	fields := Fields{"invoice_number": StringValue("INV-202603-00001"), "amount_due": NumberValue(decimal.NewFromInt(50))}

	out, err := Render("Invoice {{.invoice_number}} has {{.amount_due}} due", fields)
	require.NoError(t, err)
	assert.Equal(t, "Invoice INV-202603-00001 has 50 due", out)

	_, err = Render("{{.missing}}", fields)
	assert.True(t, ierr.IsValidation(err))
}
