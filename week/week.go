// Package week computes the Monday–Sunday window used for the weekly hour cap.
package week

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"laborbook/fault"
)

// DateLayout is the civil date format used for job dates on the wire and in the store.
const DateLayout = "2006-01-02"

var layouts = []string{
	DateLayout,
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
}

// InvalidDateError reports input that could not be parsed as a date. It
// classifies as fault.ErrValidation.
type InvalidDateError struct {
	Input string
	Err   error
}

func (e *InvalidDateError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("week: invalid date %q", e.Input)
	}
	return fmt.Sprintf("week: invalid date %q: %v", e.Input, e.Err)
}

func (e *InvalidDateError) Unwrap() []error {
	if e.Err == nil {
		return []error{fault.ErrValidation}
	}
	return []error{fault.ErrValidation, e.Err}
}

// Bounds returns the window containing t: Monday 00:00:00.000 through Sunday
// 23:59:59.999, both in t's location.
func Bounds(t time.Time) (time.Time, time.Time) {
	offset := int(t.Weekday()) - 1
	if t.Weekday() == time.Sunday {
		offset = 6
	}
	start := time.Date(t.Year(), t.Month(), t.Day()-offset, 0, 0, 0, 0, t.Location())
	end := start.AddDate(0, 0, 7).Add(-time.Millisecond)
	return start, end
}

// Parse reads a civil date (2006-01-02) or an RFC3339 instant and returns it
// in loc. A nil loc means time.Local.
func Parse(value string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return time.Time{}, &InvalidDateError{Input: value, Err: errors.New("empty value")}
	}

	var lastErr error
	for _, layout := range layouts {
		parsed, err := time.ParseInLocation(layout, trimmed, loc)
		if err == nil {
			return parsed.In(loc), nil
		}
		lastErr = err
	}
	return time.Time{}, &InvalidDateError{Input: value, Err: lastErr}
}

// BoundsOf parses value and returns its window.
func BoundsOf(value string, loc *time.Location) (time.Time, time.Time, error) {
	t, err := Parse(value, loc)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	start, end := Bounds(t)
	return start, end, nil
}

// Contains reports whether t lies in [start, end].
func Contains(start, end, t time.Time) bool {
	return !t.Before(start) && !t.After(end)
}

// Date re-anchors the calendar day of t at midnight in loc. DATE columns come
// back from the driver as UTC midnight and must be moved before comparison.
func Date(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.Local
	}
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}
