package workflow

import (
	"encoding/json"
	"strconv"
	"strings"

	ierr "github.com/freelanceops/billing/internal/errors"
	"github.com/freelanceops/billing/internal/types"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

// Condition compares one payload field against a literal
type Condition struct {
	Field    string                  `json:"field"`
	Operator types.ConditionOperator `json:"operator"`
	// Value is a string, number or bool, or a list of them for the in operator
	Value any `json:"value,omitempty"`
}

// Validate checks the condition against the fields an event type carries
func (c Condition) Validate(schema map[string]FieldKind) error {
	if err := c.Operator.Validate(); err != nil {
		return err
	}
	kind, ok := schema[c.Field]
	if !ok {
		return ierr.NewErrorf("unknown field %q", c.Field).
			WithHintf("Condition field %q is not part of the event payload", c.Field).
			WithReportableDetails(map[string]any{
				"field":  c.Field,
				"fields": lo.Keys(schema),
			}).
			Mark(ierr.ErrValidation)
	}

	invalid := func(reason string) error {
		return ierr.NewErrorf("invalid condition on %q: %s", c.Field, reason).
			WithHintf("Condition on %q: %s", c.Field, reason).
			Mark(ierr.ErrValidation)
	}

	switch c.Operator {
	case types.ConditionOperatorNotEmpty:
		return nil
	case types.ConditionOperatorGreaterThan:
		if kind != FieldKindNumber {
			return invalid("greater_than needs a number field")
		}
		if _, ok := toDecimal(c.Value); !ok {
			return invalid("greater_than needs a number value")
		}
	case types.ConditionOperatorContains:
		if kind != FieldKindString {
			return invalid("contains needs a text field")
		}
		if _, ok := c.Value.(string); !ok {
			return invalid("contains needs a text value")
		}
	case types.ConditionOperatorEquals:
		if !compatible(kind, c.Value) {
			return invalid("value does not match the field type " + string(kind))
		}
	case types.ConditionOperatorIn:
		list, ok := c.Value.([]any)
		if !ok || len(list) == 0 {
			return invalid("in needs a non empty list")
		}
		for _, item := range list {
			if !compatible(kind, item) {
				return invalid("list value does not match the field type " + string(kind))
			}
		}
	}
	return nil
}

// Evaluate reports whether the field value satisfies the condition
func (c Condition) Evaluate(v Value) bool {
	switch c.Operator {
	case types.ConditionOperatorNotEmpty:
		return !v.IsEmpty()
	case types.ConditionOperatorEquals:
		return equals(v, c.Value)
	case types.ConditionOperatorIn:
		list, ok := c.Value.([]any)
		if !ok {
			return false
		}
		return lo.SomeBy(list, func(item any) bool { return equals(v, item) })
	case types.ConditionOperatorContains:
		s, ok := c.Value.(string)
		return ok && v.Kind == FieldKindString &&
			strings.Contains(strings.ToLower(v.Str), strings.ToLower(s))
	case types.ConditionOperatorGreaterThan:
		d, ok := toDecimal(c.Value)
		return ok && v.Kind == FieldKindNumber && v.Num.GreaterThan(d)
	}
	return false
}

func equals(v Value, literal any) bool {
	switch v.Kind {
	case FieldKindNumber:
		d, ok := toDecimal(literal)
		return ok && v.Num.Equal(d)
	case FieldKindBool:
		b, ok := toBool(literal)
		return ok && v.Bool == b
	default:
		s, ok := toText(literal)
		return ok && v.Str == s
	}
}

func compatible(kind FieldKind, literal any) bool {
	switch kind {
	case FieldKindNumber:
		_, ok := toDecimal(literal)
		return ok
	case FieldKindBool:
		_, ok := toBool(literal)
		return ok
	default:
		_, ok := toText(literal)
		return ok
	}
}

func toDecimal(literal any) (decimal.Decimal, bool) {
	switch v := literal.(type) {
	case float64:
		return decimal.NewFromFloat(v), true
	case int:
		return decimal.NewFromInt(int64(v)), true
	case int64:
		return decimal.NewFromInt(v), true
	case json.Number:
		d, err := decimal.NewFromString(v.String())
		return d, err == nil
	case decimal.Decimal:
		return v, true
	case string:
		d, err := decimal.NewFromString(v)
		return d, err == nil
	}
	return decimal.Zero, false
}

func toBool(literal any) (bool, bool) {
	switch v := literal.(type) {
	case bool:
		return v, true
	case string:
		b, err := strconv.ParseBool(v)
		return b, err == nil
	}
	return false, false
}

func toText(literal any) (string, bool) {
	switch v := literal.(type) {
	case string:
		return v, true
	case float64:
		return decimal.NewFromFloat(v).String(), true
	case int:
		return strconv.Itoa(v), true
	case json.Number:
		return v.String(), true
	}
	return "", false
}
