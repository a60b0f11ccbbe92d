package utils

import "time"

// TruncateToMinute zeroes seconds and sub-second precision.
func TruncateToMinute(t time.Time) time.Time {
	return t.Truncate(time.Minute)
}

// StartOfMonth returns midnight UTC on the first day of t's month.
func StartOfMonth(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// MonthKey formats t as YYYY-MM, the bucket used for cost aggregation.
func MonthKey(t time.Time) string {
	return t.UTC().Format("2006-01")
}
