package gateway

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"pos-reconciliation/internal/domain"
)

type column int

const (
	colID column = iota
	colDate
	colCustomer
	colSKU
	colLabel
	colQuantity
	colUnitPrice
	colTotal
)

var columnNames = map[column]string{
	colID:        "id",
	colDate:      "date",
	colCustomer:  "customer_name",
	colSKU:       "sku",
	colLabel:     "product",
	colQuantity:  "quantity",
	colUnitPrice: "unit_price",
	colTotal:     "total_amount",
}

// columnAliases maps normalized header names to ledger columns.
var columnAliases = map[string]column{
	"id":               colID,
	"invoice_id":       colID,
	"invoice_no":       colID,
	"invoice_number":   colID,
	"receipt_id":       colID,
	"receipt_no":       colID,
	"transaction_id":   colID,
	"date":             colDate,
	"transaction_date": colDate,
	"invoice_date":     colDate,
	"sale_date":        colDate,
	"customer_name":    colCustomer,
	"customer":         colCustomer,
	"name":             colCustomer,
	"sku":              colSKU,
	"product_code":     colSKU,
	"item_code":        colSKU,
	"product":          colLabel,
	"product_name":     colLabel,
	"category":         colLabel,
	"label":            colLabel,
	"description":      colLabel,
	"quantity":         colQuantity,
	"qty":              colQuantity,
	"unit_price":       colUnitPrice,
	"price":            colUnitPrice,
	"total_amount":     colTotal,
	"amount":           colTotal,
	"total":            colTotal,
	"net_amount":       colTotal,
}

// header maps each known column to its position in a row.
type header map[column]int

func normalizeHeader(h string) string {
	h = strings.ToLower(strings.TrimSpace(h))
	return strings.NewReplacer(" ", "_", "-", "_", ".", "").Replace(h)
}

func parseHeader(row []string, mode domain.Mode) (header, error) {
	h := make(header)
	for i, name := range row {
		if col, ok := columnAliases[normalizeHeader(name)]; ok {
			if _, seen := h[col]; !seen {
				h[col] = i
			}
		}
	}

	required := []column{colDate, colTotal, keyColumn(mode)}
	for _, col := range required {
		if _, ok := h[col]; !ok {
			return nil, fmt.Errorf("missing required column %q", columnNames[col])
		}
	}
	return h, nil
}

// keyColumn returns the column holding the match key for mode.
func keyColumn(mode domain.Mode) column {
	if mode == domain.ModeByName {
		return colCustomer
	}
	return colSKU
}

func (h header) cell(row []string, col column) string {
	i, ok := h[col]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

var dateLayouts = []string{
	"2006-01-02",
	"02/01/2006",
	"2006/01/02",
	"2006-01-02 15:04:05",
	time.RFC3339,
}

// ParseDate parses a ledger date into its calendar day. An empty string
// yields the zero time.
func ParseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return domain.CalendarDate(t), nil
		}
	}
	// raw spreadsheet cells carry Excel serial dates
	if serial, err := strconv.ParseFloat(s, 64); err == nil && serial > 0 {
		t, err := excelize.ExcelDateToTime(serial, false)
		if err == nil {
			return domain.CalendarDate(t), nil
		}
	}
	return time.Time{}, fmt.Errorf("could not parse date '%s'", s)
}

var amountCleaner = strings.NewReplacer(",", "", "฿", "", "$", "", "€", "", "£", "", " ", "", "THB", "")

// amountPlaces is the currency precision amounts are rounded to on ingestion.
const amountPlaces = 2

// parseAmount returns an invalid NullDecimal for an empty cell.
func parseAmount(s string) (decimal.NullDecimal, error) {
	if s == "" {
		return decimal.NullDecimal{}, nil
	}
	cleaned := amountCleaner.Replace(s)
	negative := strings.HasPrefix(cleaned, "(") && strings.HasSuffix(cleaned, ")")
	if negative {
		cleaned = strings.TrimSuffix(strings.TrimPrefix(cleaned, "("), ")")
	}
	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.NullDecimal{}, fmt.Errorf("could not parse amount '%s': %w", s, err)
	}
	if negative {
		d = d.Neg()
	}
	return decimal.NewNullDecimal(d.Round(amountPlaces)), nil
}

func parseQuantity(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n, nil
	}
	d, err := decimal.NewFromString(strings.ReplaceAll(s, ",", ""))
	if err != nil || !d.Equal(d.Truncate(0)) {
		return 0, fmt.Errorf("could not parse quantity '%s'", s)
	}
	return int(d.IntPart()), nil
}
