package wizard

import (
	"slices"
	"strings"
	"time"
)

// SelectionsField is the name reported when a step needs more selections.
const SelectionsField = "selections"

// StepField is the name reported when confirmation is attempted before the
// last step.
const StepField = "step"

// RequireFields fails for every named field that is unset.
func RequireFields(names ...string) Validator {
	return func(s State) []string {
		var missing []string
		for _, name := range names {
			if strings.TrimSpace(s.Fields[name]) == "" {
				missing = append(missing, name)
			}
		}
		return missing
	}
}

// RequireSelections fails when fewer than min items are selected.
func RequireSelections(min int) Validator {
	return func(s State) []string {
		if len(s.Selections) < min {
			return []string{SelectionsField}
		}
		return nil
	}
}

// FieldOneOf fails when the field is set to a value outside allowed. An unset
// field passes; pair with RequireFields for presence.
func FieldOneOf(name string, allowed ...string) Validator {
	return func(s State) []string {
		v, ok := s.Fields[name]
		if !ok || v == "" {
			return nil
		}
		if slices.Contains(allowed, v) {
			return nil
		}
		return []string{name}
	}
}

// FieldLayout fails when the field is set but does not parse with the given
// time layout.
func FieldLayout(name, layout string) Validator {
	return func(s State) []string {
		v, ok := s.Fields[name]
		if !ok || v == "" {
			return nil
		}
		if _, err := time.Parse(layout, v); err != nil {
			return []string{name}
		}
		return nil
	}
}

// All combines validators, reporting each failing field once in first-seen
// order.
func All(validators ...Validator) Validator {
	return func(s State) []string {
		var out []string
		for _, v := range validators {
			if v == nil {
				continue
			}
			for _, f := range v(s) {
				if !slices.Contains(out, f) {
					out = append(out, f)
				}
			}
		}
		return out
	}
}
