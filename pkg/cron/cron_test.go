package cron

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		expr    string
		wantErr string
	}{
		{name: "wildcard all fields", expr: "* * * * *"},
		{name: "daily at nine", expr: "0 9 * * *"},
		{name: "weekly monday", expr: "0 9 * * 1"},
		{name: "every fifteen minutes", expr: "*/15 * * * *"},
		{name: "range with step", expr: "0 9-17/2 * * 1-5"},
		{name: "comma union", expr: "0,30 0,12 1 * *"},
		{name: "alias daily", expr: "@daily"},
		{name: "alias hourly", expr: "@hourly"},
		{name: "too few fields", expr: "0 9 * *", wantErr: "expected 5 fields, got 4"},
		{name: "too many fields", expr: "0 9 * * * *", wantErr: "expected 5 fields, got 6"},
		{name: "zero step", expr: "*/0 * * * *", wantErr: "step must be positive in minute field"},
		{name: "negative step", expr: "* */-2 * * *", wantErr: "step must be positive in hour field"},
		{name: "non numeric step", expr: "*/x * * * *", wantErr: `invalid step "x" in minute field`},
		{name: "non numeric value", expr: "* * * jan *", wantErr: `invalid value "jan" in month field`},
		{name: "minute out of range", expr: "60 * * * *", wantErr: "value 60 out of range 0-59 in minute field"},
		{name: "day of week out of range", expr: "* * * * 7", wantErr: "value 7 out of range 0-6 in day-of-week field"},
		{name: "inverted range", expr: "* 10-4 * * *", wantErr: `invalid range "10-4" in hour field`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.expr)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestParseFieldValues(t *testing.T) {
	expr, err := Parse("*/15 9-11 1,15 */3 1-5")
	require.NoError(t, err)

	assert.Equal(t, setOf(0, 15, 30, 45), expr.Minute.Values)
	assert.Equal(t, setOf(9, 10, 11), expr.Hour.Values)
	assert.Equal(t, setOf(1, 15), expr.DayOfMonth.Values)
	assert.Equal(t, setOf(1, 4, 7, 10), expr.Month.Values)
	assert.Equal(t, setOf(1, 2, 3, 4, 5), expr.DayOfWeek.Values)
}

func TestParseAliases(t *testing.T) {
	tests := []struct {
		alias      string
		equivalent string
	}{
		{"@daily", "0 0 * * *"},
		{"@midnight", "0 0 * * *"},
		{"@weekly", "0 0 * * 0"},
		{"@monthly", "0 0 1 * *"},
		{"@hourly", "0 * * * *"},
	}
	for _, tt := range tests {
		t.Run(tt.alias, func(t *testing.T) {
			fromAlias, err := Parse(tt.alias)
			require.NoError(t, err)
			expanded, err := Parse(tt.equivalent)
			require.NoError(t, err)
			assert.Equal(t, expanded, fromAlias)
		})
	}
}

func TestParseStepWithLiteralBase(t *testing.T) {
	// A literal base with a step runs to the field's upper bound.
	expr, err := Parse("10/20 * * * *")
	require.NoError(t, err)
	assert.Equal(t, setOf(10, 30, 50), expr.Minute.Values)
}

func setOf(vs ...int) map[int]struct{} {
	m := make(map[int]struct{}, len(vs))
	for _, v := range vs {
		m[v] = struct{}{}
	}
	return m
}
