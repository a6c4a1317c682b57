package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Mode selects which record field acts as the match key.
type Mode string

const (
	ModeBySKU  Mode = "by_sku"
	ModeByName Mode = "by_name"
)

// Valid reports whether m is a known reconciliation mode.
func (m Mode) Valid() bool {
	return m == ModeBySKU || m == ModeByName
}

// ParseMode converts user input into a Mode.
func ParseMode(s string) (Mode, error) {
	m := Mode(strings.ToLower(strings.TrimSpace(s)))
	if !m.Valid() {
		return "", &ConfigError{Field: "mode", Value: s, Reason: "must be by_sku or by_name"}
	}
	return m, nil
}

// InvoiceItem represents a line from the external invoice/billing export.
type InvoiceItem struct {
	ID          string              `json:"id"`
	Date        time.Time           `json:"date"`
	MatchKey    string              `json:"match_key"` // SKU or customer name, depending on Mode
	Label       string              `json:"label,omitempty"`
	Quantity    int                 `json:"quantity"`
	UnitPrice   decimal.Decimal     `json:"unit_price"`
	TotalAmount decimal.NullDecimal `json:"total_amount"`
}

// DisplayName returns the label shown for the item in reports.
func (i InvoiceItem) DisplayName(mode Mode) string {
	return displayName(mode, i.MatchKey, i.Label)
}

// POSRecord represents a sale recorded by the point-of-sale system.
type POSRecord struct {
	ID          string              `json:"id"`
	Date        time.Time           `json:"date"`
	MatchKey    string              `json:"match_key"`
	Label       string              `json:"label,omitempty"`
	Quantity    int                 `json:"quantity"`
	TotalAmount decimal.NullDecimal `json:"total_amount"`
}

// DisplayName returns the label shown for the record in reports.
func (p POSRecord) DisplayName(mode Mode) string {
	return displayName(mode, p.MatchKey, p.Label)
}

func displayName(mode Mode, key, label string) string {
	if mode == ModeBySKU && label != "" {
		return fmt.Sprintf("%s (%s)", label, key)
	}
	return key
}

// CalendarDate truncates t to its calendar date at UTC midnight.
func CalendarDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DaysBetween returns the signed number of calendar days from b to a.
func DaysBetween(a, b time.Time) int {
	return int(CalendarDate(a).Sub(CalendarDate(b)).Hours() / 24)
}
