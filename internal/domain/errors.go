package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidConfiguration is returned when reconciliation options are out of range.
	ErrInvalidConfiguration = errors.New("invalid reconciliation configuration")

	// ErrMalformedRecord is returned when the reject policy meets an incomplete record.
	ErrMalformedRecord = errors.New("malformed record")

	// ErrInvalidDateRange is returned by callers that receive an empty or inverted period.
	ErrInvalidDateRange = errors.New("invalid date range")

	// ErrSessionNotFound is returned when no stored session has the requested id.
	ErrSessionNotFound = errors.New("session not found")
)

// ConfigError describes a single invalid option.
type ConfigError struct {
	Field  string
	Value  any
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid configuration: %s=%v: %s", e.Field, e.Value, e.Reason)
}

func (e *ConfigError) Unwrap() error { return ErrInvalidConfiguration }

// MalformedRecordError lists every record that failed validation in a rejected run.
type MalformedRecordError struct {
	Records []MalformedRecord
}

func (e *MalformedRecordError) Error() string {
	parts := make([]string, 0, len(e.Records))
	for _, r := range e.Records {
		parts = append(parts, r.String())
	}
	return fmt.Sprintf("%d malformed record(s): %s", len(e.Records), strings.Join(parts, "; "))
}

func (e *MalformedRecordError) Unwrap() error { return ErrMalformedRecord }
