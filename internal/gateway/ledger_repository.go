package gateway

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"pos-reconciliation/internal/domain"
)

// Format identifies the encoding of a ledger file.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// FormatFromPath picks the ledger format from a file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return FormatCSV, nil
	case ".xlsx", ".xlsm":
		return FormatXLSX, nil
	default:
		return "", fmt.Errorf("unsupported ledger file %s: expected .csv or .xlsx", path)
	}
}

// FileLedgerRepository loads ledgers from CSV and XLSX files on disk.
type FileLedgerRepository struct{}

func NewFileLedgerRepository() *FileLedgerRepository {
	return &FileLedgerRepository{}
}

// GetInvoiceItems reads all invoice items from a single ledger file.
func (r *FileLedgerRepository) GetInvoiceItems(ctx context.Context, path string, mode domain.Mode) ([]domain.InvoiceItem, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var items []domain.InvoiceItem
	err := withLedgerFile(path, func(rd io.Reader, format Format) error {
		var err error
		items, err = DecodeInvoiceItems(rd, format, mode, filepath.Base(path))
		return err
	})
	if err != nil {
		return nil, err
	}
	return items, nil
}

// GetPOSRecords reads POS records from one or more ledger files, in order.
func (r *FileLedgerRepository) GetPOSRecords(ctx context.Context, paths []string, mode domain.Mode) ([]domain.POSRecord, error) {
	var all []domain.POSRecord
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		err := withLedgerFile(path, func(rd io.Reader, format Format) error {
			records, err := DecodePOSRecords(rd, format, mode, filepath.Base(path))
			if err != nil {
				return err
			}
			all = append(all, records...)
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return all, nil
}

func withLedgerFile(path string, fn func(io.Reader, Format) error) error {
	format, err := FormatFromPath(path)
	if err != nil {
		return err
	}
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open ledger file %s: %w", path, err)
	}
	defer file.Close()

	if err := fn(file, format); err != nil {
		return fmt.Errorf("failed to read ledger file %s: %w", path, err)
	}
	return nil
}

func readRows(r io.Reader, format Format) ([][]string, error) {
	switch format {
	case FormatCSV:
		return readCSVRows(r)
	case FormatXLSX:
		return readXLSXRows(r)
	default:
		return nil, fmt.Errorf("unsupported ledger format %q", format)
	}
}
