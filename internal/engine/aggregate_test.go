package engine

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pos-reconciliation/internal/domain"
)

func TestPartition(t *testing.T) {
	invoices := []domain.InvoiceItem{
		invoice("INV-1", "SKU-1", "10.00", "2025-01-01"),
		invoice("INV-2", "SKU-2", "20.00", "2025-01-01"),
		invoice("INV-3", "SKU-3", "30.00", "2025-01-01"),
	}
	records := []domain.POSRecord{
		posRecord("POS-1", "SKU-3", "30.00", "2025-01-01"),
		posRecord("POS-2", "SKU-1", "10.00", "2025-01-01"),
		posRecord("POS-3", "SKU-9", "5.00", "2025-01-01"),
	}

	t.Run("matched follow invoice order, residuals keep input order", func(t *testing.T) {
		committed := []ScoredPair{
			{InvoiceIndex: 2, POSIndex: 0, MatchType: domain.MatchExact, Confidence: 1},
			{InvoiceIndex: 0, POSIndex: 1, MatchType: domain.MatchExact, Confidence: 1},
		}

		matched, invoiceOnly, posOnly, err := Partition(invoices, records, committed)

		require.NoError(t, err)
		require.Len(t, matched, 2)
		assert.Equal(t, "INV-1", matched[0].Invoice.ID)
		assert.Equal(t, "INV-3", matched[1].Invoice.ID)
		assert.Equal(t, []domain.InvoiceItem{invoices[1]}, invoiceOnly)
		assert.Equal(t, []domain.POSRecord{records[2]}, posOnly)
	})

	t.Run("duplicate invoice is rejected", func(t *testing.T) {
		committed := []ScoredPair{
			{InvoiceIndex: 0, POSIndex: 0},
			{InvoiceIndex: 0, POSIndex: 1},
		}
		_, _, _, err := Partition(invoices, records, committed)
		assert.Error(t, err)
	})

	t.Run("duplicate pos record is rejected", func(t *testing.T) {
		committed := []ScoredPair{
			{InvoiceIndex: 0, POSIndex: 1},
			{InvoiceIndex: 1, POSIndex: 1},
		}
		_, _, _, err := Partition(invoices, records, committed)
		assert.Error(t, err)
	})

	t.Run("out of range index is rejected", func(t *testing.T) {
		_, _, _, err := Partition(invoices, records, []ScoredPair{{InvoiceIndex: 5, POSIndex: 0}})
		assert.Error(t, err)
	})
}

func TestSummarize(t *testing.T) {
	matched := []domain.MatchedPair{
		{
			Invoice:   invoice("INV-1", "SKU-1", "100.00", "2025-01-01"),
			POS:       posRecord("POS-1", "SKU-1", "96.00", "2025-01-01"),
			MatchType: domain.MatchFuzzyBoth,
		},
	}
	invoiceOnly := []domain.InvoiceItem{
		invoice("INV-2", "SKU-2", "50.00", "2025-01-01"),
		invoice("INV-3", "SKU-3", "50.00", "2025-01-01"),
	}
	posOnly := []domain.POSRecord{
		posRecord("POS-2", "SKU-4", "4.00", "2025-01-01"),
	}
	malformed := []domain.MalformedRecord{
		{Side: domain.SidePOS, Index: 3, Amount: money("7.50"), Reasons: []string{"missing date"}},
		{Side: domain.SideInvoice, Index: 0, Reasons: []string{"missing total amount"}},
	}

	s := Summarize(matched, invoiceOnly, posOnly, malformed)

	assert.Equal(t, 3, s.TotalInvoiceItems)
	assert.Equal(t, 2, s.TotalPOSRecords)
	assert.Equal(t, 1, s.MatchedCount)
	assert.Equal(t, 2, s.InvoiceOnlyCount)
	assert.Equal(t, 1, s.POSOnlyCount)
	assert.Equal(t, 1, s.MalformedInvoiceItems)
	assert.Equal(t, 1, s.MalformedPOSRecords)
	assert.True(t, s.MalformedInvoiceAmount.IsZero())
	assert.True(t, decimal.RequireFromString("7.50").Equal(s.MalformedPOSAmount))
	assert.Equal(t, 33.33, s.MatchRate)
	assert.True(t, decimal.NewFromInt(200).Equal(s.TotalInvoiceAmount))
	assert.True(t, decimal.NewFromInt(100).Equal(s.TotalPOSAmount))
	assert.True(t, decimal.NewFromInt(100).Equal(s.VarianceAmount))
	assert.Equal(t, 50.0, s.VariancePercentage)
	assert.Equal(t, map[domain.MatchType]int{
		domain.MatchExact:       0,
		domain.MatchFuzzyName:   0,
		domain.MatchFuzzyAmount: 0,
		domain.MatchFuzzyBoth:   1,
	}, s.MatchTypeCounts)
	assert.False(t, s.EmptyInput)
}
