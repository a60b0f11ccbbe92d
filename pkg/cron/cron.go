// Package cron parses 5-field recurrence expressions and computes
// timezone-correct next-run instants for schedules.
package cron

import (
	"fmt"
	"strconv"
	"strings"
)

// Field is a predicate over a single cron field: either any value, or a
// finite set of integers.
type Field struct {
	Any    bool
	Values map[int]struct{}
}

func (f Field) Matches(v int) bool {
	if f.Any {
		return true
	}
	_, ok := f.Values[v]
	return ok
}

// Expression is a parsed 5-field cron expression.
type Expression struct {
	Minute     Field
	Hour       Field
	DayOfMonth Field
	Month      Field
	DayOfWeek  Field
}

type fieldSpec struct {
	name string
	min  int
	max  int
}

var fieldSpecs = [5]fieldSpec{
	{"minute", 0, 59},
	{"hour", 0, 23},
	{"day-of-month", 1, 31},
	{"month", 1, 12},
	{"day-of-week", 0, 6},
}

var aliases = map[string]string{
	"@daily":    "0 0 * * *",
	"@midnight": "0 0 * * *",
	"@weekly":   "0 0 * * 0",
	"@monthly":  "0 0 1 * *",
	"@hourly":   "0 * * * *",
}

// Parse parses a strict 5-field cron expression or a named alias.
func Parse(expr string) (Expression, error) {
	trimmed := strings.TrimSpace(expr)
	if resolved, ok := aliases[trimmed]; ok {
		trimmed = resolved
	}

	parts := strings.Fields(trimmed)
	if len(parts) != 5 {
		return Expression{}, fmt.Errorf("invalid cron expression %q: expected 5 fields, got %d", expr, len(parts))
	}

	var fields [5]Field
	for i, part := range parts {
		field, err := parseField(part, fieldSpecs[i])
		if err != nil {
			return Expression{}, err
		}
		fields[i] = field
	}

	return Expression{
		Minute:     fields[0],
		Hour:       fields[1],
		DayOfMonth: fields[2],
		Month:      fields[3],
		DayOfWeek:  fields[4],
	}, nil
}

// parseField parses a comma-separated union of *, N, a-b, and base/step terms.
func parseField(part string, spec fieldSpec) (Field, error) {
	if part == "*" {
		return Field{Any: true}, nil
	}

	values := make(map[int]struct{})
	for _, term := range strings.Split(part, ",") {
		if term == "*" {
			return Field{Any: true}, nil
		}
		if err := parseTerm(term, spec, values); err != nil {
			return Field{}, err
		}
	}
	return Field{Values: values}, nil
}

func parseTerm(term string, spec fieldSpec, values map[int]struct{}) error {
	base := term
	step := 1
	if idx := strings.Index(term, "/"); idx >= 0 {
		base = term[:idx]
		parsed, err := strconv.Atoi(term[idx+1:])
		if err != nil {
			return fmt.Errorf("invalid step %q in %s field", term[idx+1:], spec.name)
		}
		if parsed <= 0 {
			return fmt.Errorf("step must be positive in %s field, got %d", spec.name, parsed)
		}
		step = parsed
	}

	var lo, hi int
	switch {
	case base == "*":
		lo, hi = spec.min, spec.max
	case strings.Contains(base, "-"):
		parts := strings.SplitN(base, "-", 2)
		var err error
		if lo, err = parseValue(parts[0], spec); err != nil {
			return err
		}
		if hi, err = parseValue(parts[1], spec); err != nil {
			return err
		}
		if lo > hi {
			return fmt.Errorf("invalid range %q in %s field", base, spec.name)
		}
	default:
		v, err := parseValue(base, spec)
		if err != nil {
			return err
		}
		lo = v
		if step == 1 {
			hi = v
		} else {
			// A bare value with a step runs up to the field's bound.
			hi = spec.max
		}
	}

	for v := lo; v <= hi; v += step {
		values[v] = struct{}{}
	}
	return nil
}

func parseValue(s string, spec fieldSpec) (int, error) {
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid value %q in %s field", s, spec.name)
	}
	if v < spec.min || v > spec.max {
		return 0, fmt.Errorf("value %d out of range %d-%d in %s field", v, spec.min, spec.max, spec.name)
	}
	return v, nil
}
