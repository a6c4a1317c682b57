// Package engine matches invoice items against POS records.
//
// A run is a pure function of its inputs: records are screened, bucketed into
// candidate pairs, scored, assigned one-to-one by a Matcher and partitioned
// into matched, invoice-only and POS-only sets with a summary derived from
// those sets. The package performs no I/O and keeps no state between runs.
//
// Example usage:
//
//	opts := domain.DefaultOptions()
//	opts.DateWindowDays = 1
//	result, err := engine.Reconcile(invoices, posRecords, domain.ModeBySKU, opts)
package engine

import (
	"fmt"

	"pos-reconciliation/internal/domain"
)

// Engine runs reconciliations with a pluggable assignment strategy.
type Engine struct {
	matcher Matcher
}

// New creates an engine. A nil matcher selects GreedyMatcher.
func New(m Matcher) *Engine {
	if m == nil {
		m = GreedyMatcher{}
	}
	return &Engine{matcher: m}
}

// Reconcile runs the default greedy engine.
func Reconcile(invoices []domain.InvoiceItem, records []domain.POSRecord, mode domain.Mode, opts domain.Options) (*domain.ReconciliationResult, error) {
	return New(nil).Reconcile(invoices, records, mode, opts)
}

// Reconcile partitions the two ledgers. It either returns a complete result or
// an error before any matching work; SessionID is left for the caller.
func (e *Engine) Reconcile(invoices []domain.InvoiceItem, records []domain.POSRecord, mode domain.Mode, opts domain.Options) (*domain.ReconciliationResult, error) {
	// Step 1: Configuration
	if !mode.Valid() {
		return nil, &domain.ConfigError{Field: "mode", Value: mode, Reason: "must be by_sku or by_name"}
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	// Step 2: Record screening
	validInvoices, validPOS, malformed := screen(invoices, records)
	if len(malformed) > 0 && opts.Policy() == domain.MalformedReject {
		return nil, &domain.MalformedRecordError{Records: malformed}
	}

	// Step 3: Candidate generation and scoring
	scorer := NewScorer(opts)
	var scored []ScoredPair
	for i, cands := range GenerateCandidates(validInvoices, validPOS, mode, opts.DateWindowDays) {
		for _, j := range cands {
			if pair, ok := scorer.Score(i, validInvoices[i], j, validPOS[j]); ok {
				scored = append(scored, pair)
			}
		}
	}

	// Step 4: Assignment
	committed := e.matcher.Assign(scored)

	// Step 5: Partition and summary
	matched, invoiceOnly, posOnly, err := Partition(validInvoices, validPOS, committed)
	if err != nil {
		return nil, fmt.Errorf("matcher produced an invalid assignment: %w", err)
	}

	return &domain.ReconciliationResult{
		Mode:        mode,
		Matched:     matched,
		InvoiceOnly: invoiceOnly,
		POSOnly:     posOnly,
		Malformed:   malformed,
		Summary:     Summarize(matched, invoiceOnly, posOnly, malformed),
	}, nil
}
