package cron

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustParse(t *testing.T, expr string) Expression {
	t.Helper()
	parsed, err := Parse(expr)
	require.NoError(t, err)
	return parsed
}

func TestNextDailyUTC(t *testing.T) {
	expr := mustParse(t, "0 9 * * *")

	tests := []struct {
		name  string
		after time.Time
		want  time.Time
	}{
		{
			name:  "before nine returns same day",
			after: time.Date(2025, 3, 10, 7, 30, 12, 0, time.UTC),
			want:  time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC),
		},
		{
			name:  "after nine returns next day",
			after: time.Date(2025, 3, 10, 9, 0, 1, 0, time.UTC),
			want:  time.Date(2025, 3, 11, 9, 0, 0, 0, time.UTC),
		},
		{
			name:  "exactly nine returns next day",
			after: time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC),
			want:  time.Date(2025, 3, 11, 9, 0, 0, 0, time.UTC),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Next(expr, "UTC", tt.after)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.True(t, got.After(tt.after))
		})
	}
}

func TestNextWeeklyIsMonday(t *testing.T) {
	expr := mustParse(t, "0 9 * * 1")

	after := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC) // a Sunday
	for i := 0; i < 8; i++ {
		got, err := Next(expr, "UTC", after)
		require.NoError(t, err)
		assert.Equal(t, time.Monday, got.Weekday())
		assert.Equal(t, 9, got.Hour())
		assert.Equal(t, 0, got.Minute())
		after = got
	}
}

func TestNextEveryFifteenMinutesUnaligned(t *testing.T) {
	expr := mustParse(t, "*/15 * * * *")

	after := time.Date(2025, 3, 10, 10, 7, 42, 0, time.UTC)
	got, err := Next(expr, "UTC", after)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 3, 10, 10, 15, 0, 0, time.UTC), got)

	got, err = Next(expr, "UTC", got)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 3, 10, 10, 30, 0, 0, time.UTC), got)
}

func TestNextLocalTimezone(t *testing.T) {
	expr := mustParse(t, "30 9 * * *")

	// 09:30 Jakarta is 02:30 UTC; Jakarta has no DST.
	after := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	got, err := Next(expr, "Asia/Jakarta", after)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 3, 10, 2, 30, 0, 0, time.UTC), got)
}

func TestNextDSTSpringForward(t *testing.T) {
	// US DST starts 2025-03-09: 02:30 local does not exist that day. The
	// next 02:30 in New York is on March 10 at 06:30 UTC (EDT, UTC-4).
	expr := mustParse(t, "30 2 * * *")

	after := time.Date(2025, 3, 9, 5, 0, 0, 0, time.UTC) // 00:00 EST
	got, err := Next(expr, "America/New_York", after)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 3, 10, 6, 30, 0, 0, time.UTC), got)

	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	local := got.In(loc)
	assert.Equal(t, 2, local.Hour())
	assert.Equal(t, 30, local.Minute())
	assert.Equal(t, 10, local.Day())
}

func TestNextDSTFallBack(t *testing.T) {
	// US DST ends 2025-11-02: 01:30 local occurs twice. The scan over
	// absolute instants returns the earlier occurrence (EDT).
	expr := mustParse(t, "30 1 * * *")

	after := time.Date(2025, 11, 2, 4, 0, 0, 0, time.UTC) // 00:00 EDT
	got, err := Next(expr, "America/New_York", after)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 11, 2, 5, 30, 0, 0, time.UTC), got)
}

func TestNextUnreachableExpressionFallsBack(t *testing.T) {
	// February 30 never matches; the scan gives up after a year and falls
	// back to a fixed 24h delay.
	expr := mustParse(t, "0 0 30 2 *")

	after := time.Date(2025, 3, 10, 10, 7, 42, 0, time.UTC)
	got, err := Next(expr, "UTC", after)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 3, 11, 10, 7, 0, 0, time.UTC), got)
}

func TestNextInvalidTimezone(t *testing.T) {
	expr := mustParse(t, "* * * * *")
	_, err := Next(expr, "Mars/Olympus_Mons", time.Now())
	assert.Error(t, err)
}

func TestNextSecondsAreZero(t *testing.T) {
	expr := mustParse(t, "* * * * *")
	got, err := Next(expr, "UTC", time.Date(2025, 3, 10, 10, 7, 42, 123, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 3, 10, 10, 8, 0, 0, time.UTC), got)
}
