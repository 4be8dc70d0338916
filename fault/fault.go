// Package fault holds the error markers shared by every laborbook package.
//
// Domain packages keep their own sentinels (application.ErrAlreadyApplied and
// friends) and tag infrastructure or input problems with one of the markers
// below so callers can classify a failure with errors.Is without knowing which
// package produced it.
package fault

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrValidation = errors.New("validation error")
	ErrNotFound   = errors.New("not found")
	ErrForbidden  = errors.New("forbidden")
	ErrConflict   = errors.New("conflict")
	ErrSystem     = errors.New("system failure")
)

// Wrap builds an error that carries the marker for classification plus the
// operation context. A nil marker is treated as ErrSystem.
func Wrap(marker error, operation, message string, err error) error {
	if marker == nil {
		marker = ErrSystem
	}
	detail := buildDetail(operation, message)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Validation is shorthand for Wrap(ErrValidation, operation, message, nil).
func Validation(operation, message string) error {
	return Wrap(ErrValidation, operation, message, nil)
}

// Kind reports the marker name for logs and API payloads.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrForbidden):
		return "forbidden"
	case errors.Is(err, ErrConflict):
		return "conflict"
	default:
		return "system"
	}
}

func buildDetail(operation, message string) string {
	parts := make([]string, 0, 2)
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "failure"
	}
	return strings.Join(parts, ": ")
}
