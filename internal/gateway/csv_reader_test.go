package gateway

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pos-reconciliation/internal/domain"
)

func TestFileLedgerRepository_GetInvoiceItems(t *testing.T) {
	tests := []struct {
		name     string
		mode     domain.Mode
		csvData  [][]string
		expected []domain.InvoiceItem
		wantErr  bool
	}{
		{
			name: "valid invoice items by sku",
			mode: domain.ModeBySKU,
			csvData: [][]string{
				{"invoice_id", "date", "sku", "product", "qty", "unit_price", "total_amount"},
				{"INV-001", "2025-01-01", "A-100", "Jasmine Rice 5kg", "2", "75.00", "150.00"},
				{"INV-002", "02/01/2025", "B-200", "Fish Sauce", "1", "1,250.00", "฿1,250.00"},
			},
			expected: []domain.InvoiceItem{
				{
					ID:          "INV-001",
					Date:        mustParseDate("2025-01-01"),
					MatchKey:    "A-100",
					Label:       "Jasmine Rice 5kg",
					Quantity:    2,
					UnitPrice:   decimal.RequireFromString("75.00"),
					TotalAmount: nullAmount("150.00"),
				},
				{
					ID:          "INV-002",
					Date:        mustParseDate("2025-01-02"),
					MatchKey:    "B-200",
					Label:       "Fish Sauce",
					Quantity:    1,
					UnitPrice:   decimal.RequireFromString("1250.00"),
					TotalAmount: nullAmount("1250.00"),
				},
			},
		},
		{
			name: "valid invoice items by name",
			mode: domain.ModeByName,
			csvData: [][]string{
				{"Invoice No", "Transaction Date", "Customer Name", "Amount"},
				{"INV-010", "2025-01-03T10:15:00+07:00", "Somchai Jaidee", "99.50"},
			},
			expected: []domain.InvoiceItem{
				{
					ID:          "INV-010",
					Date:        mustParseDate("2025-01-03"),
					MatchKey:    "Somchai Jaidee",
					TotalAmount: nullAmount("99.50"),
				},
			},
		},
		{
			name: "missing values are kept for screening",
			mode: domain.ModeBySKU,
			csvData: [][]string{
				{"sku", "date", "total"},
				{"A-100", "", ""},
			},
			expected: []domain.InvoiceItem{
				{
					ID:       "invoice.csv#2",
					MatchKey: "A-100",
				},
			},
		},
		{
			name: "blank rows are skipped",
			mode: domain.ModeBySKU,
			csvData: [][]string{
				{"id", "date", "sku", "total"},
				{"", "", "", ""},
				{"INV-001", "2025-01-01", "A-100", "(10.00)"},
			},
			expected: []domain.InvoiceItem{
				{
					ID:          "INV-001",
					Date:        mustParseDate("2025-01-01"),
					MatchKey:    "A-100",
					TotalAmount: nullAmount("-10.00"),
				},
			},
		},
		{
			name: "empty file with header only",
			mode: domain.ModeBySKU,
			csvData: [][]string{
				{"id", "date", "sku", "total"},
			},
			expected: []domain.InvoiceItem{},
		},
		{
			name: "invalid amount format",
			mode: domain.ModeBySKU,
			csvData: [][]string{
				{"id", "date", "sku", "total"},
				{"INV-001", "2025-01-01", "A-100", "invalid_amount"},
			},
			wantErr: true,
		},
		{
			name: "invalid date format",
			mode: domain.ModeBySKU,
			csvData: [][]string{
				{"id", "date", "sku", "total"},
				{"INV-001", "first of january", "A-100", "10.00"},
			},
			wantErr: true,
		},
		{
			name: "fractional quantity",
			mode: domain.ModeBySKU,
			csvData: [][]string{
				{"id", "date", "sku", "qty", "total"},
				{"INV-001", "2025-01-01", "A-100", "1.5", "10.00"},
			},
			wantErr: true,
		},
		{
			name: "key column for mode is missing",
			mode: domain.ModeByName,
			csvData: [][]string{
				{"id", "date", "sku", "total"},
				{"INV-001", "2025-01-01", "A-100", "10.00"},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := createTempCSV(t, "invoice.csv", tt.csvData)

			repo := NewFileLedgerRepository()
			got, err := repo.GetInvoiceItems(context.Background(), path, tt.mode)

			if tt.wantErr {
				assert.Error(t, err, "Expected error but got nil")
				assert.Nil(t, got)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestFileLedgerRepository_GetPOSRecords(t *testing.T) {
	first := createTempCSV(t, "pos_day1.csv", [][]string{
		{"receipt_id", "sale_date", "product_code", "category", "quantity", "total"},
		{"R-1", "2025-01-01", "A-100", "Rice", "2", "150.00"},
	})
	second := createTempCSV(t, "pos_day2.csv", [][]string{
		{"receipt_id", "sale_date", "product_code", "category", "quantity", "total"},
		{"R-2", "2025-01-02", "B-200", "Sauce", "1", "35.00"},
		{"R-3", "2025-01-02", "C-300", "", "", "12.00"},
	})

	repo := NewFileLedgerRepository()
	got, err := repo.GetPOSRecords(context.Background(), []string{first, second}, domain.ModeBySKU)

	require.NoError(t, err)
	assert.Equal(t, []domain.POSRecord{
		{ID: "R-1", Date: mustParseDate("2025-01-01"), MatchKey: "A-100", Label: "Rice", Quantity: 2, TotalAmount: nullAmount("150.00")},
		{ID: "R-2", Date: mustParseDate("2025-01-02"), MatchKey: "B-200", Label: "Sauce", Quantity: 1, TotalAmount: nullAmount("35.00")},
		{ID: "R-3", Date: mustParseDate("2025-01-02"), MatchKey: "C-300", TotalAmount: nullAmount("12.00")},
	}, got)
}

func TestFileLedgerRepository_FileErrors(t *testing.T) {
	repo := NewFileLedgerRepository()
	ctx := context.Background()

	t.Run("file not found", func(t *testing.T) {
		_, err := repo.GetInvoiceItems(ctx, filepath.Join(t.TempDir(), "missing.csv"), domain.ModeBySKU)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "failed to open ledger file")
	})

	t.Run("unsupported extension", func(t *testing.T) {
		_, err := repo.GetInvoiceItems(ctx, "ledger.json", domain.ModeBySKU)
		assert.Error(t, err)
	})

	t.Run("file with no header", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "empty.csv")
		require.NoError(t, os.WriteFile(path, nil, 0o600))

		_, err := repo.GetInvoiceItems(ctx, path, domain.ModeBySKU)
		assert.Error(t, err)
	})

	t.Run("one valid file and one invalid file", func(t *testing.T) {
		valid := createTempCSV(t, "valid.csv", [][]string{
			{"id", "date", "sku", "total"},
			{"R-1", "2025-01-01", "A-100", "10.00"},
		})
		invalid := createTempCSV(t, "invalid.csv", [][]string{
			{"id", "date", "sku", "total"},
			{"R-2", "2025-01-01", "A-100", "ten"},
		})

		got, err := repo.GetPOSRecords(ctx, []string{valid, invalid}, domain.ModeBySKU)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "invalid.csv row 2, column total_amount")
		assert.Nil(t, got)
	})

	t.Run("cancelled context", func(t *testing.T) {
		cancelled, cancel := context.WithCancel(ctx)
		cancel()

		_, err := repo.GetPOSRecords(cancelled, []string{"pos.csv"}, domain.ModeBySKU)
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestDecodePOSRecords_ByteOrderMark(t *testing.T) {
	data := "\ufeffid,date,customer,amount\nR-1,2025-01-01,Somchai,10\n"

	got, err := DecodePOSRecords(strings.NewReader(data), FormatCSV, domain.ModeByName, "pos")

	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "R-1", got[0].ID)
	assert.Equal(t, "Somchai", got[0].MatchKey)
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{name: "plain", input: "100.00", want: "100"},
		{name: "thousands and currency", input: "฿1,234.50", want: "1234.5"},
		{name: "parenthesised negative", input: "(25.10)", want: "-25.1"},
		{name: "rounds half up to cents", input: "100.005", want: "100.01"},
		{name: "rounds down to cents", input: "100.004", want: "100"},
		{name: "float artifact from a spreadsheet", input: "0.30000000000000004", want: "0.3"},
		{name: "garbage", input: "ten", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseAmount(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.True(t, got.Valid)
			assert.True(t, decimal.RequireFromString(tt.want).Equal(got.Decimal), "got %s", got.Decimal)
		})
	}

	empty, err := parseAmount("")
	require.NoError(t, err)
	assert.False(t, empty.Valid)
}

func TestDecode_InvalidMode(t *testing.T) {
	_, err := DecodeInvoiceItems(strings.NewReader("id\n"), FormatCSV, domain.Mode("by_color"), "invoice")
	assert.ErrorIs(t, err, domain.ErrInvalidConfiguration)
}

func createTempCSV(t *testing.T, filename string, data [][]string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), filename)
	file, err := os.Create(path)
	require.NoError(t, err)
	defer file.Close()

	writer := csv.NewWriter(file)
	require.NoError(t, writer.WriteAll(data))
	return path
}

func mustParseDate(dateStr string) time.Time {
	t, err := time.Parse("2006-01-02", dateStr)
	if err != nil {
		panic(err)
	}
	return t
}

func nullAmount(s string) decimal.NullDecimal {
	return decimal.NewNullDecimal(decimal.RequireFromString(s))
}
