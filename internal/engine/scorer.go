package engine

import (
	"github.com/shopspring/decimal"

	"pos-reconciliation/internal/domain"
)

// ScoredPair is a candidate pair together with everything the matcher sorts on.
type ScoredPair struct {
	InvoiceIndex   int
	POSIndex       int
	MatchType      domain.MatchType
	Confidence     float64
	NameSimilarity float64
	AmountDiff     decimal.Decimal // invoice - pos
	QuantityDiff   int
	DateDiffDays   int // invoice - pos
}

// DateDistance is the absolute number of days between the two records.
func (p ScoredPair) DateDistance() int {
	if p.DateDiffDays < 0 {
		return -p.DateDiffDays
	}
	return p.DateDiffDays
}

// Scorer computes confidence and match type for candidate pairs.
type Scorer struct {
	opts domain.Options
}

// NewScorer creates a scorer bound to validated options.
func NewScorer(opts domain.Options) Scorer {
	return Scorer{opts: opts}
}

// Score evaluates one pair. The boolean is false when the pair meets none of the
// match-type rules; confidence is still filled in for reporting.
func (s Scorer) Score(invoiceIndex int, inv domain.InvoiceItem, posIndex int, pos domain.POSRecord) (ScoredPair, bool) {
	invAmount := inv.TotalAmount.Decimal
	posAmount := pos.TotalAmount.Decimal

	nameSim := NameSimilarity(inv.MatchKey, pos.MatchKey)
	amountOK := AmountWithinTolerance(invAmount, posAmount, s.opts.ToleranceAmount, s.opts.TolerancePercentage)
	amountClose := AmountCloseness(invAmount, posAmount, s.opts.ToleranceAmount, s.opts.TolerancePercentage)

	pair := ScoredPair{
		InvoiceIndex:   invoiceIndex,
		POSIndex:       posIndex,
		Confidence:     clamp01(0.5*nameSim + 0.5*amountClose),
		NameSimilarity: nameSim,
		AmountDiff:     invAmount.Sub(posAmount),
		QuantityDiff:   inv.Quantity - pos.Quantity,
		DateDiffDays:   domain.DaysBetween(inv.Date, pos.Date),
	}

	matchType, ok := Classify(nameSim, invAmount.Equal(posAmount), amountOK, s.opts.NameSimilarityThreshold)
	pair.MatchType = matchType
	return pair, ok
}

// Classify applies the match-type rules in priority order: exact, fuzzy_both,
// fuzzy_name, fuzzy_amount. It returns false for pairs that qualify for none.
func Classify(nameSim float64, amountsEqual, amountOK bool, threshold float64) (domain.MatchType, bool) {
	nameOK := nameSim >= threshold
	switch {
	case nameSim == 1 && amountsEqual:
		return domain.MatchExact, true
	case nameOK && amountOK:
		return domain.MatchFuzzyBoth, true
	case nameOK:
		return domain.MatchFuzzyName, true
	case amountOK:
		return domain.MatchFuzzyAmount, true
	}
	return 0, false
}
