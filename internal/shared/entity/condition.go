package entity

import (
	"fmt"
	"strconv"
	"strings"
)

// GroupOperator combines nested conditions.
type GroupOperator string

const (
	GroupAnd GroupOperator = "AND"
	GroupOr  GroupOperator = "OR"
)

// StateField addresses the lifecycle state instead of a payload field.
const StateField = "@state"

// Condition is a structured filter: field equality composed in groups.
// A condition is either a group (Group set) or a leaf (Field set).
type Condition struct {
	Group      GroupOperator `json:"group,omitempty"`
	Conditions []Condition   `json:"conditions,omitempty"`
	Field      string        `json:"field,omitempty"`
	Value      any           `json:"value,omitempty"`
}

// Equals matches entities whose field (dotted path) equals value.
func Equals(field string, value any) Condition {
	return Condition{Field: field, Value: value}
}

// InState matches entities currently in the given lifecycle state.
func InState(state string) Condition {
	return Condition{Field: StateField, Value: state}
}

// And matches when every nested condition matches.
func And(conds ...Condition) Condition {
	return Condition{Group: GroupAnd, Conditions: conds}
}

// Or matches when any nested condition matches.
func Or(conds ...Condition) Condition {
	return Condition{Group: GroupOr, Conditions: conds}
}

// IsGroup reports whether the condition combines nested conditions.
func (c Condition) IsGroup() bool {
	return c.Group != ""
}

// Validate rejects malformed filters before they reach a store.
func (c Condition) Validate() error {
	if c.IsGroup() {
		if c.Group != GroupAnd && c.Group != GroupOr {
			return fmt.Errorf("unknown group operator %q", c.Group)
		}
		for _, nested := range c.Conditions {
			if err := nested.Validate(); err != nil {
				return err
			}
		}
		return nil
	}
	if strings.TrimSpace(c.Field) == "" {
		return fmt.Errorf("condition field is required")
	}
	return nil
}

// Path splits the dotted field path into its segments.
func (c Condition) Path() []string {
	return strings.Split(c.Field, ".")
}

// Matches evaluates the condition against a decoded JSON document and lifecycle state.
func (c Condition) Matches(doc map[string]any, state string) bool {
	if c.IsGroup() {
		switch c.Group {
		case GroupOr:
			for _, nested := range c.Conditions {
				if nested.Matches(doc, state) {
					return true
				}
			}
			return false
		default:
			for _, nested := range c.Conditions {
				if !nested.Matches(doc, state) {
					return false
				}
			}
			return true
		}
	}
	if c.Field == StateField {
		return state == ValueString(c.Value)
	}
	value, ok := lookup(doc, c.Path())
	if !ok || value == nil {
		return c.Value == nil
	}
	if c.Value == nil {
		return false
	}
	return ValueString(value) == ValueString(c.Value)
}

// ValueString renders a filter value the way a JSON text extraction would.
func ValueString(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}

func lookup(doc map[string]any, path []string) (any, bool) {
	var current any = doc
	for _, segment := range path {
		obj, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		current, ok = obj[segment]
		if !ok {
			return nil, false
		}
	}
	return current, true
}
