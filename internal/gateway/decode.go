package gateway

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"pos-reconciliation/internal/domain"
)

// DecodeInvoiceItems parses an invoice ledger. Empty cells are kept as missing
// values for the engine to screen; cells that fail to parse are an error.
// source names the ledger in generated ids and error messages.
func DecodeInvoiceItems(r io.Reader, format Format, mode domain.Mode, source string) ([]domain.InvoiceItem, error) {
	rows, h, err := decodeRows(r, format, mode)
	if err != nil {
		return nil, err
	}

	items := make([]domain.InvoiceItem, 0, len(rows))
	for i, row := range rows {
		if isBlank(row) {
			continue
		}
		line := i + 2 // 1-based, after the header
		base, err := decodeBase(h, row, mode, source, line)
		if err != nil {
			return nil, err
		}
		unitPrice, err := parseAmount(h.cell(row, colUnitPrice))
		if err != nil {
			return nil, rowError(source, line, columnNames[colUnitPrice], err)
		}

		items = append(items, domain.InvoiceItem{
			ID:          base.id,
			Date:        base.date,
			MatchKey:    base.key,
			Label:       base.label,
			Quantity:    base.quantity,
			UnitPrice:   unitPrice.Decimal,
			TotalAmount: base.total,
		})
	}
	return items, nil
}

// DecodePOSRecords parses a POS export with the same rules as DecodeInvoiceItems.
func DecodePOSRecords(r io.Reader, format Format, mode domain.Mode, source string) ([]domain.POSRecord, error) {
	rows, h, err := decodeRows(r, format, mode)
	if err != nil {
		return nil, err
	}

	records := make([]domain.POSRecord, 0, len(rows))
	for i, row := range rows {
		if isBlank(row) {
			continue
		}
		line := i + 2
		base, err := decodeBase(h, row, mode, source, line)
		if err != nil {
			return nil, err
		}
		records = append(records, domain.POSRecord{
			ID:          base.id,
			Date:        base.date,
			MatchKey:    base.key,
			Label:       base.label,
			Quantity:    base.quantity,
			TotalAmount: base.total,
		})
	}
	return records, nil
}

func decodeRows(r io.Reader, format Format, mode domain.Mode) ([][]string, header, error) {
	if !mode.Valid() {
		return nil, nil, &domain.ConfigError{Field: "mode", Value: mode, Reason: "must be by_sku or by_name"}
	}
	rows, err := readRows(r, format)
	if err != nil {
		return nil, nil, err
	}
	if len(rows) == 0 {
		return nil, nil, errors.New("ledger is empty: header row is required")
	}
	h, err := parseHeader(rows[0], mode)
	if err != nil {
		return nil, nil, err
	}
	return rows[1:], h, nil
}

type baseRow struct {
	id       string
	date     time.Time
	key      string
	label    string
	quantity int
	total    decimal.NullDecimal
}

func decodeBase(h header, row []string, mode domain.Mode, source string, line int) (baseRow, error) {
	date, err := ParseDate(h.cell(row, colDate))
	if err != nil {
		return baseRow{}, rowError(source, line, columnNames[colDate], err)
	}
	total, err := parseAmount(h.cell(row, colTotal))
	if err != nil {
		return baseRow{}, rowError(source, line, columnNames[colTotal], err)
	}
	quantity, err := parseQuantity(h.cell(row, colQuantity))
	if err != nil {
		return baseRow{}, rowError(source, line, columnNames[colQuantity], err)
	}

	id := h.cell(row, colID)
	if id == "" {
		id = fmt.Sprintf("%s#%d", source, line)
	}

	return baseRow{
		id:       id,
		date:     date,
		key:      h.cell(row, keyColumn(mode)),
		label:    h.cell(row, colLabel),
		quantity: quantity,
		total:    total,
	}, nil
}

func rowError(source string, line int, col string, err error) error {
	return fmt.Errorf("%s row %d, column %s: %w", source, line, col, err)
}

func isBlank(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
