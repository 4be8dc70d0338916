// Package wage computes the minimum payable amount for a posting and stores the
// system-wide hourly rate it is derived from.
package wage

import (
	"fmt"
	"strings"
	"time"

	"laborbook/fault"
)

// Type is how a posting's wage amount is expressed.
type Type string

const (
	Hourly Type = "hourly"
	Daily  Type = "daily"
)

// ParseType normalises user input into a Type.
func ParseType(value string) (Type, error) {
	switch t := Type(strings.ToLower(strings.TrimSpace(value))); t {
	case Hourly, Daily:
		return t, nil
	default:
		return "", fault.Validation("wage: parse type", fmt.Sprintf("unknown wage type %q", value))
	}
}

// Rates mirrors the system_rates singleton row.
type Rates struct {
	MinWagePerHour float64
	LastUpdated    time.Time
}

// MinimumRequired returns the smallest compliant offer: the hourly rate for
// hourly postings, the hourly rate times duration for daily ones.
func MinimumRequired(rates Rates, wageType Type, durationHours float64) float64 {
	if wageType == Daily {
		return rates.MinWagePerHour * durationHours
	}
	return rates.MinWagePerHour
}

func IsCompliant(offered, minimum float64) bool {
	return offered >= minimum
}

// BelowMinimumError reports a posting offer under the wage floor.
type BelowMinimumError struct {
	WageType Type
	Offered  float64
	Minimum  float64
}

func (e *BelowMinimumError) Error() string {
	return fmt.Sprintf("wage: %s offer %.2f is below the minimum of %.2f", e.WageType, e.Offered, e.Minimum)
}

func (e *BelowMinimumError) Unwrap() error { return fault.ErrValidation }

// Validate checks an offer against the wage floor.
func Validate(rates Rates, wageType Type, offered, durationHours float64) error {
	if wageType != Hourly && wageType != Daily {
		return fault.Validation("wage: validate", fmt.Sprintf("unknown wage type %q", wageType))
	}
	if offered < 0 {
		return fault.Validation("wage: validate", "wage amount must not be negative")
	}
	minimum := MinimumRequired(rates, wageType, durationHours)
	if !IsCompliant(offered, minimum) {
		return &BelowMinimumError{WageType: wageType, Offered: offered, Minimum: minimum}
	}
	return nil
}
