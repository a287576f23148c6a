package util

import "time"

// MonthKeyLayout is the layout of quality baseline month keys.
const MonthKeyLayout = "2006-01"

// MonthKey returns the calendar year-month identifier for t, e.g. "2025-09".
func MonthKey(t time.Time) string {
	return t.Format(MonthKeyLayout)
}

// IsFirstOfMonth reports whether t falls on the first calendar day of its month.
func IsFirstOfMonth(t time.Time) bool {
	return t.Day() == 1
}

// MonthStart returns midnight of the first day of t's month in t's location.
func MonthStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
}

// Timestamp formats t for use in artifact file names.
func Timestamp(t time.Time) string {
	return t.Format("2006-01-02_15_04_05")
}
