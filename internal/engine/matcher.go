package engine

import (
	"cmp"
	"slices"
)

// Matcher turns scored candidate pairs into a one-to-one assignment.
type Matcher interface {
	Assign(pairs []ScoredPair) []ScoredPair
}

// GreedyMatcher commits pairs in descending priority while both sides are free.
// It is deterministic but not globally optimal.
type GreedyMatcher struct{}

// Assign returns the committed pairs in commit order. The input is not modified.
func (GreedyMatcher) Assign(pairs []ScoredPair) []ScoredPair {
	sorted := slices.Clone(pairs)
	slices.SortStableFunc(sorted, ComparePairs)

	usedInvoice := make(map[int]bool)
	usedPOS := make(map[int]bool)

	var committed []ScoredPair
	for _, p := range sorted {
		if usedInvoice[p.InvoiceIndex] || usedPOS[p.POSIndex] {
			continue
		}
		usedInvoice[p.InvoiceIndex] = true
		usedPOS[p.POSIndex] = true
		committed = append(committed, p)
	}
	return committed
}

// ComparePairs orders pairs by confidence (desc), |amount diff|, date distance,
// then invoice and POS input order.
func ComparePairs(a, b ScoredPair) int {
	if c := cmp.Compare(b.Confidence, a.Confidence); c != 0 {
		return c
	}
	if c := a.AmountDiff.Abs().Cmp(b.AmountDiff.Abs()); c != 0 {
		return c
	}
	if c := cmp.Compare(a.DateDistance(), b.DateDistance()); c != 0 {
		return c
	}
	if c := cmp.Compare(a.InvoiceIndex, b.InvoiceIndex); c != 0 {
		return c
	}
	return cmp.Compare(a.POSIndex, b.POSIndex)
}
