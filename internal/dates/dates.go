package dates

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// serialEpoch is the spreadsheet serial-date origin. Serial day counts in
// source cells are offsets from 1899-12-30.
var serialEpoch = time.Date(1899, time.December, 30, 0, 0, 0, 0, time.UTC)

var (
	reCompact = regexp.MustCompile(`^\d{8}$`)
	reSerial  = regexp.MustCompile(`^\d{4,6}$`)
)

var genericLayouts = []string{
	"2006-1-2",
	"2006/1/2",
	"2006.1.2",
	"2006年1月2日",
	"2006-1-2 15:04:05",
	"2006/1/2 15:04:05",
	time.RFC3339,
	"1/2/2006",
	"1-2-2006",
	"Jan 2, 2006",
	"2 Jan 2006",
	"01-02-06",
}

// Normalize converts a raw cell value into a day-resolution calendar date.
// The zero time is the "unknown date" sentinel: empty input, or input that
// survives none of the parse attempts, yields it. Normalize never fails and
// is idempotent over its own canonical output.
func Normalize(value string) time.Time {
	text := strings.TrimSpace(value)
	if text == "" {
		return time.Time{}
	}

	if reCompact.MatchString(text) {
		if t, err := time.Parse("20060102", text); err == nil {
			return t
		}
	}

	if reSerial.MatchString(text) {
		if days, err := strconv.Atoi(text); err == nil {
			return serialEpoch.AddDate(0, 0, days)
		}
	}

	for _, layout := range genericLayouts {
		if t, err := time.Parse(layout, text); err == nil {
			return Truncate(t)
		}
	}

	return time.Time{}
}

func Known(t time.Time) bool {
	return !t.IsZero()
}

// Truncate drops time-of-day, keeping the calendar date in UTC.
func Truncate(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Format renders a canonical date as yyyy-mm-dd, empty string for unknown.
func Format(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02")
}
