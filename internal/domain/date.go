package domain

import (
	"strings"
	"time"
)

const (
	// DisplayDateLayout is how logged and completion dates are stored and shown
	DisplayDateLayout = "02/01/2006"
	// ISODateLayout is how dates are edited
	ISODateLayout = "2006-01-02"
)

// ParseDate reads a display date, accepting ISO as well. The boolean is false for
// empty or malformed input.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}

	if t, err := time.Parse(DisplayDateLayout, s); err == nil {
		return t, true
	}
	if t, err := time.Parse(ISODateLayout, s); err == nil {
		return t, true
	}

	return time.Time{}, false
}

// DateKey returns a comparable value for sorting. Malformed or missing dates map to
// the zero time, which orders before every real date.
func DateKey(s string) time.Time {
	t, _ := ParseDate(s)
	return t
}

// FormatDate renders t in the display layout
func FormatDate(t time.Time) string {
	return t.Format(DisplayDateLayout)
}

// ISOToDisplay converts an edited ISO date into the display layout
func ISOToDisplay(iso string) (string, error) {
	iso = strings.TrimSpace(iso)
	if iso == "" {
		return "", nil
	}

	t, err := time.Parse(ISODateLayout, iso)
	if err != nil {
		return "", NewValidationError("date", "invalid date %q (expected YYYY-MM-DD)", iso)
	}
	return FormatDate(t), nil
}

// DisplayToISO converts a stored display date into the ISO editing layout
func DisplayToISO(display string) (string, error) {
	display = strings.TrimSpace(display)
	if display == "" {
		return "", nil
	}

	t, err := time.Parse(DisplayDateLayout, display)
	if err != nil {
		return "", NewValidationError("date", "invalid date %q (expected DD/MM/YYYY)", display)
	}
	return t.Format(ISODateLayout), nil
}

// NormalizeDate accepts either layout and returns the display layout
func NormalizeDate(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", nil
	}

	t, ok := ParseDate(s)
	if !ok {
		return "", NewValidationError("date", "invalid date %q (expected DD/MM/YYYY or YYYY-MM-DD)", s)
	}
	return FormatDate(t), nil
}
