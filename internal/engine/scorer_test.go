package engine

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pos-reconciliation/internal/domain"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name         string
		nameSim      float64
		amountsEqual bool
		amountOK     bool
		want         domain.MatchType
		wantOK       bool
	}{
		{"exact", 1, true, true, domain.MatchExact, true},
		{"identical names within tolerance", 1, false, true, domain.MatchFuzzyBoth, true},
		{"similar names equal amounts", 0.9, true, true, domain.MatchFuzzyBoth, true},
		{"similar names amount out of tolerance", 0.9, false, false, domain.MatchFuzzyName, true},
		{"identical names amount out of tolerance", 1, false, false, domain.MatchFuzzyName, true},
		{"threshold is inclusive", 0.8, false, false, domain.MatchFuzzyName, true},
		{"different names within tolerance", 0.3, false, true, domain.MatchFuzzyAmount, true},
		{"nothing qualifies", 0.3, false, false, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Classify(tt.nameSim, tt.amountsEqual, tt.amountOK, 0.8)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestScorer_Score(t *testing.T) {
	scorer := NewScorer(testOptions())

	t.Run("exact pair has full confidence", func(t *testing.T) {
		inv := invoice("INV-1", "SKU-1", "100.00", "2025-01-01")
		pos := posRecord("POS-1", "SKU-1", "100.00", "2025-01-01")

		pair, ok := scorer.Score(3, inv, 7, pos)

		require.True(t, ok)
		assert.Equal(t, domain.MatchExact, pair.MatchType)
		assert.Equal(t, 1.0, pair.Confidence)
		assert.Equal(t, 3, pair.InvoiceIndex)
		assert.Equal(t, 7, pair.POSIndex)
		assert.True(t, pair.AmountDiff.IsZero())
	})

	t.Run("variance is invoice minus pos", func(t *testing.T) {
		inv := invoice("INV-1", "SKU-1", "100.00", "2025-01-03")
		inv.Quantity = 3
		pos := posRecord("POS-1", "SKU-1", "97.50", "2025-01-01")

		pair, ok := scorer.Score(0, inv, 0, pos)

		require.True(t, ok)
		assert.Equal(t, domain.MatchFuzzyBoth, pair.MatchType)
		assert.True(t, decimal.RequireFromString("2.50").Equal(pair.AmountDiff))
		assert.Equal(t, 2, pair.QuantityDiff)
		assert.Equal(t, 2, pair.DateDiffDays)
		assert.Equal(t, 2, pair.DateDistance())
		assert.Less(t, pair.Confidence, 1.0)
	})

	t.Run("unrelated pair does not qualify", func(t *testing.T) {
		inv := invoice("INV-1", "Driver Rental", "100.00", "2025-01-01")
		pos := posRecord("POS-1", "Beer Tower", "400.00", "2025-01-01")

		pair, ok := scorer.Score(0, inv, 0, pos)

		assert.False(t, ok)
		assert.GreaterOrEqual(t, pair.Confidence, 0.0)
		assert.LessOrEqual(t, pair.Confidence, 1.0)
	})
}
