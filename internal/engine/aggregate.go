package engine

import (
	"fmt"
	"slices"

	"github.com/shopspring/decimal"

	"pos-reconciliation/internal/domain"
)

var hundred = decimal.NewFromInt(100)

// Partition splits the screened records into matched pairs and the two "only"
// sets. Matched pairs are reported in invoice input order; the residual sets
// keep input order. It fails if committed uses any record twice.
func Partition(invoices []domain.InvoiceItem, records []domain.POSRecord, committed []ScoredPair) ([]domain.MatchedPair, []domain.InvoiceItem, []domain.POSRecord, error) {
	usedInvoice := make([]bool, len(invoices))
	usedPOS := make([]bool, len(records))

	ordered := slices.Clone(committed)
	slices.SortFunc(ordered, func(a, b ScoredPair) int { return a.InvoiceIndex - b.InvoiceIndex })

	matched := make([]domain.MatchedPair, 0, len(ordered))
	for _, p := range ordered {
		if p.InvoiceIndex < 0 || p.InvoiceIndex >= len(invoices) || p.POSIndex < 0 || p.POSIndex >= len(records) {
			return nil, nil, nil, fmt.Errorf("committed pair (%d,%d) out of range", p.InvoiceIndex, p.POSIndex)
		}
		if usedInvoice[p.InvoiceIndex] {
			return nil, nil, nil, fmt.Errorf("invoice item %d committed more than once", p.InvoiceIndex)
		}
		if usedPOS[p.POSIndex] {
			return nil, nil, nil, fmt.Errorf("pos record %d committed more than once", p.POSIndex)
		}
		usedInvoice[p.InvoiceIndex] = true
		usedPOS[p.POSIndex] = true

		matched = append(matched, domain.MatchedPair{
			Invoice:    invoices[p.InvoiceIndex],
			POS:        records[p.POSIndex],
			MatchType:  p.MatchType,
			Confidence: p.Confidence,
			Variance: domain.Variance{
				AmountDiff:     p.AmountDiff,
				QuantityDiff:   p.QuantityDiff,
				NameSimilarity: p.NameSimilarity,
				DateDiffDays:   p.DateDiffDays,
			},
		})
	}

	invoiceOnly := make([]domain.InvoiceItem, 0)
	for i, inv := range invoices {
		if !usedInvoice[i] {
			invoiceOnly = append(invoiceOnly, inv)
		}
	}
	posOnly := make([]domain.POSRecord, 0)
	for i, rec := range records {
		if !usedPOS[i] {
			posOnly = append(posOnly, rec)
		}
	}
	return matched, invoiceOnly, posOnly, nil
}

// Summarize derives every summary figure from the partitions alone, so the
// summary of a result can always be recomputed from it.
func Summarize(matched []domain.MatchedPair, invoiceOnly []domain.InvoiceItem, posOnly []domain.POSRecord, malformed []domain.MalformedRecord) domain.Summary {
	s := domain.Summary{
		MatchedCount:       len(matched),
		InvoiceOnlyCount:   len(invoiceOnly),
		POSOnlyCount:       len(posOnly),
		TotalInvoiceItems:  len(matched) + len(invoiceOnly),
		TotalPOSRecords:    len(matched) + len(posOnly),
		MatchTypeCounts:    make(map[domain.MatchType]int, len(domain.MatchTypes)),
		TotalInvoiceAmount: decimal.Zero,
		TotalPOSAmount:     decimal.Zero,

		MalformedInvoiceAmount: decimal.Zero,
		MalformedPOSAmount:     decimal.Zero,
	}
	for _, mt := range domain.MatchTypes {
		s.MatchTypeCounts[mt] = 0
	}

	for _, p := range matched {
		s.MatchTypeCounts[p.MatchType]++
		s.TotalInvoiceAmount = s.TotalInvoiceAmount.Add(p.Invoice.TotalAmount.Decimal)
		s.TotalPOSAmount = s.TotalPOSAmount.Add(p.POS.TotalAmount.Decimal)
	}
	for _, inv := range invoiceOnly {
		s.TotalInvoiceAmount = s.TotalInvoiceAmount.Add(inv.TotalAmount.Decimal)
	}
	for _, rec := range posOnly {
		s.TotalPOSAmount = s.TotalPOSAmount.Add(rec.TotalAmount.Decimal)
	}
	for _, m := range malformed {
		switch m.Side {
		case domain.SideInvoice:
			s.MalformedInvoiceItems++
			if m.Amount.Valid {
				s.MalformedInvoiceAmount = s.MalformedInvoiceAmount.Add(m.Amount.Decimal)
			}
		case domain.SidePOS:
			s.MalformedPOSRecords++
			if m.Amount.Valid {
				s.MalformedPOSAmount = s.MalformedPOSAmount.Add(m.Amount.Decimal)
			}
		}
	}

	s.VarianceAmount = s.TotalInvoiceAmount.Sub(s.TotalPOSAmount)
	s.EmptyInput = s.TotalInvoiceItems == 0
	s.MatchRate = percentage(decimal.NewFromInt(int64(s.MatchedCount)), decimal.NewFromInt(int64(s.TotalInvoiceItems)))
	s.VariancePercentage = percentage(s.VarianceAmount, s.TotalInvoiceAmount)
	return s
}

// percentage returns part/whole*100 rounded to two places, or 0 for a zero whole.
func percentage(part, whole decimal.Decimal) float64 {
	if whole.IsZero() {
		return 0
	}
	return part.Mul(hundred).Div(whole).Round(2).InexactFloat64()
}
