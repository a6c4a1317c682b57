package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// MalformedPolicy decides what happens to records missing a required field.
type MalformedPolicy string

const (
	// MalformedExclude keeps them out of matching and reports them in the result.
	MalformedExclude MalformedPolicy = "exclude"
	// MalformedReject fails the whole run before any matching.
	MalformedReject MalformedPolicy = "reject"
)

// Options holds every threshold the engine uses. Nothing is read from globals.
type Options struct {
	ToleranceAmount         decimal.Decimal `json:"tolerance_amount"`
	TolerancePercentage     decimal.Decimal `json:"tolerance_percentage"` // fraction, 0.05 = 5%
	NameSimilarityThreshold float64         `json:"name_similarity_threshold"`
	DateWindowDays          int             `json:"date_window_days"` // 0 = same calendar date
	MalformedPolicy         MalformedPolicy `json:"malformed_policy"`
}

// DefaultOptions returns the thresholds used when nothing is configured.
func DefaultOptions() Options {
	return Options{
		ToleranceAmount:         decimal.NewFromInt(1),
		TolerancePercentage:     decimal.RequireFromString("0.01"),
		NameSimilarityThreshold: 0.8,
		DateWindowDays:          0,
		MalformedPolicy:         MalformedExclude,
	}
}

// Policy returns the effective malformed policy; empty means exclude.
func (o Options) Policy() MalformedPolicy {
	if o.MalformedPolicy == "" {
		return MalformedExclude
	}
	return o.MalformedPolicy
}

// Validate checks every option range and returns a *ConfigError for the first violation.
func (o Options) Validate() error {
	one := decimal.NewFromInt(1)

	if o.ToleranceAmount.IsNegative() {
		return &ConfigError{Field: "tolerance_amount", Value: o.ToleranceAmount, Reason: "must be >= 0"}
	}
	if o.TolerancePercentage.IsNegative() || o.TolerancePercentage.GreaterThan(one) {
		return &ConfigError{Field: "tolerance_percentage", Value: o.TolerancePercentage, Reason: "must be within [0,1]"}
	}
	if o.NameSimilarityThreshold < 0 || o.NameSimilarityThreshold > 1 || o.NameSimilarityThreshold != o.NameSimilarityThreshold {
		return &ConfigError{Field: "name_similarity_threshold", Value: o.NameSimilarityThreshold, Reason: "must be within [0,1]"}
	}
	if o.DateWindowDays < 0 {
		return &ConfigError{Field: "date_window_days", Value: o.DateWindowDays, Reason: "must be >= 0"}
	}
	switch o.Policy() {
	case MalformedExclude, MalformedReject:
	default:
		return &ConfigError{Field: "malformed_policy", Value: o.MalformedPolicy, Reason: fmt.Sprintf("must be %s or %s", MalformedExclude, MalformedReject)}
	}
	return nil
}
