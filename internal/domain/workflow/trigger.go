package workflow

import (
	"fmt"
	"sort"

	ierr "github.com/freelanceops/billing/internal/errors"
	"github.com/freelanceops/billing/internal/types"
	"github.com/hashicorp/go-multierror"
	"github.com/samber/lo"
)

// Trigger fires its actions, in order, when an event of EventType satisfies every condition
type Trigger struct {
	ID          string                  `json:"id"`
	Name        string                  `json:"name"`
	Description string                  `json:"description"`
	EventType   types.WorkflowEventType `json:"event_type"`
	Conditions  []Condition             `json:"conditions"`
	Actions     []Action                `json:"actions"`
	// Priority orders triggers of the same event, highest first
	Priority int  `json:"priority"`
	IsActive bool `json:"is_active"`
	types.BaseModel
}

// Validate reports every problem of the trigger at once
func (t *Trigger) Validate() error {
	if err := t.EventType.Validate(); err != nil {
		return err
	}
	schema, err := Schema(t.EventType)
	if err != nil {
		return err
	}

	var result *multierror.Error
	if t.Name == "" {
		result = multierror.Append(result, fmt.Errorf("name is required"))
	}
	if len(t.Actions) == 0 {
		result = multierror.Append(result, fmt.Errorf("at least one action is required"))
	}
	for i, c := range t.Conditions {
		if err := c.Validate(schema); err != nil {
			result = multierror.Append(result, fmt.Errorf("conditions[%d]: %s", i, hintOf(err)))
		}
	}
	for i, a := range t.Actions {
		if err := a.Validate(schema); err != nil {
			result = multierror.Append(result, fmt.Errorf("actions[%d]: %s", i, hintOf(err)))
		}
	}

	if result.ErrorOrNil() == nil {
		return nil
	}
	problems := lo.Map(result.Errors, func(e error, _ int) string { return e.Error() })
	return ierr.WithError(result).
		WithHintf("Trigger is invalid: %s", problems[0]).
		WithReportableDetails(map[string]any{
			"problems": problems,
		}).
		Mark(ierr.ErrValidation)
}

// Matches reports whether the trigger fires for the event
func (t *Trigger) Matches(event *Event) bool {
	if !t.IsActive || t.IsDeleted() || t.EventType != event.Type {
		return false
	}
	fields := event.Payload.Fields()
	for _, c := range t.Conditions {
		v, ok := fields[c.Field]
		if !ok || !c.Evaluate(v) {
			return false
		}
	}
	return true
}

// SortByPriority orders triggers highest priority first, oldest first on ties
func SortByPriority(triggers []*Trigger) {
	sort.SliceStable(triggers, func(i, j int) bool {
		if triggers[i].Priority != triggers[j].Priority {
			return triggers[i].Priority > triggers[j].Priority
		}
		return triggers[i].CreatedAt.Before(triggers[j].CreatedAt)
	})
}

func hintOf(err error) string {
	hints := ierr.GetHints(err)
	if len(hints) > 0 {
		return hints[0]
	}
	return err.Error()
}
