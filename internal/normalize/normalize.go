// Package normalize converts raw spreadsheet field values into typed
// numeric and date values. Parsing never fails: malformed input degrades
// to zero values so that a single bad cell cannot abort an analysis pass.
package normalize

import (
	"strconv"
	"strings"
	"time"
)

// Decimal parses a raw cell value into a float64. Numbers pass through;
// strings are parsed with locale-aware separators (thousands ".", decimal
// ","). Blank or unparseable input yields 0.
func Decimal(raw any) float64 {
	switch v := raw.(type) {
	case nil:
		return 0
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case string:
		return decimalString(v)
	default:
		return 0
	}
}

func decimalString(raw string) float64 {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0
	}
	s = strings.ReplaceAll(s, " ", "")

	switch {
	case strings.Contains(s, ","):
		// "1.234,56" -> "1234.56"
		s = strings.ReplaceAll(s, ".", "")
		s = strings.Replace(s, ",", ".", 1)
	case strings.Count(s, ".") > 1:
		// "1.234.567" -> "1234567"
		s = strings.ReplaceAll(s, ".", "")
	case strings.Count(s, ".") == 1:
		// A lone dot followed by exactly three digits is a thousands
		// separator ("12.345"); anything else is a decimal point.
		if i := strings.IndexByte(s, '.'); len(s)-i-1 == 3 {
			s = strings.ReplaceAll(s, ".", "")
		}
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return f
}

// Date formats accepted by Date, tried in order.
var dateLayouts = []string{
	"02/01/2006",
	"2006-01-02",
	time.RFC3339,
	"02/01/2006 15:04:05",
	"02/01/2006 15:04",
}

// Date parses a raw date string in dd/mm/yyyy or ISO form.
// Returns the zero time and false if no layout matches.
func Date(raw string) (time.Time, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// DateTime combines a date string with a raw time-of-day ("15:04" or
// "15:04:05"). An unparseable time leaves the date at midnight; an
// unparseable date yields the zero time.
func DateTime(rawDate, rawTime string) (time.Time, bool) {
	d, ok := Date(rawDate)
	if !ok {
		return time.Time{}, false
	}
	t := strings.TrimSpace(rawTime)
	if t == "" {
		return d, true
	}
	for _, layout := range []string{"15:04:05", "15:04"} {
		if tod, err := time.Parse(layout, t); err == nil {
			return time.Date(d.Year(), d.Month(), d.Day(),
				tod.Hour(), tod.Minute(), tod.Second(), 0, d.Location()), true
		}
	}
	return d, true
}
