package workflow

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// FieldKind is the type of a payload field as seen by conditions
type FieldKind string

const (
	FieldKindString FieldKind = "string"
	FieldKindNumber FieldKind = "number"
	FieldKindBool   FieldKind = "bool"
)

// Value is a single typed payload field
type Value struct {
	Kind FieldKind
	Str  string
	Num  decimal.Decimal
	Bool bool
}

func StringValue(s string) Value {
	return Value{Kind: FieldKindString, Str: s}
}

func NumberValue(d decimal.Decimal) Value {
	return Value{Kind: FieldKindNumber, Num: d}
}

func IntValue(i int) Value {
	return NumberValue(decimal.NewFromInt(int64(i)))
}

func BoolValue(b bool) Value {
	return Value{Kind: FieldKindBool, Bool: b}
}

// IsEmpty is true for blank strings, zero numbers and false
func (v Value) IsEmpty() bool {
	switch v.Kind {
	case FieldKindString:
		return strings.TrimSpace(v.Str) == ""
	case FieldKindNumber:
		return v.Num.IsZero()
	case FieldKindBool:
		return !v.Bool
	}
	return true
}

func (v Value) String() string {
	switch v.Kind {
	case FieldKindNumber:
		return v.Num.String()
	case FieldKindBool:
		return strconv.FormatBool(v.Bool)
	}
	return v.Str
}

// Fields is the flat, validated view of an event payload
type Fields map[string]Value

// Schema returns the field kinds
func (f Fields) Schema() map[string]FieldKind {
	schema := make(map[string]FieldKind, len(f))
	for name, v := range f {
		schema[name] = v.Kind
	}
	return schema
}

// Strings renders every field as text for templates
func (f Fields) Strings() map[string]string {
	out := make(map[string]string, len(f))
	for name, v := range f {
		out[name] = v.String()
	}
	return out
}

// optionalString is a helper for nullable payload ids
func optionalString(s *string) Value {
	if s == nil {
		return StringValue("")
	}
	return StringValue(*s)
}
