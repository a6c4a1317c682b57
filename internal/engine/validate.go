package engine

import (
	"strings"

	"pos-reconciliation/internal/domain"
)

func invoiceProblems(inv domain.InvoiceItem) []string {
	return recordProblems(inv.TotalAmount.Valid, inv.Date.IsZero(), inv.MatchKey, inv.Quantity)
}

func posProblems(rec domain.POSRecord) []string {
	return recordProblems(rec.TotalAmount.Valid, rec.Date.IsZero(), rec.MatchKey, rec.Quantity)
}

func recordProblems(hasAmount, missingDate bool, key string, quantity int) []string {
	var reasons []string
	if !hasAmount {
		reasons = append(reasons, "missing total amount")
	}
	if missingDate {
		reasons = append(reasons, "missing date")
	}
	if strings.TrimSpace(key) == "" {
		reasons = append(reasons, "missing match key")
	}
	if quantity < 0 {
		reasons = append(reasons, "negative quantity")
	}
	return reasons
}

// screen separates well-formed records from malformed ones, preserving order.
func screen(invoices []domain.InvoiceItem, records []domain.POSRecord) ([]domain.InvoiceItem, []domain.POSRecord, []domain.MalformedRecord) {
	validInvoices := make([]domain.InvoiceItem, 0, len(invoices))
	validPOS := make([]domain.POSRecord, 0, len(records))
	malformed := make([]domain.MalformedRecord, 0)

	for i, inv := range invoices {
		if reasons := invoiceProblems(inv); len(reasons) > 0 {
			malformed = append(malformed, domain.MalformedRecord{Side: domain.SideInvoice, Index: i, ID: inv.ID, Amount: inv.TotalAmount, Reasons: reasons})
			continue
		}
		validInvoices = append(validInvoices, inv)
	}
	for i, rec := range records {
		if reasons := posProblems(rec); len(reasons) > 0 {
			malformed = append(malformed, domain.MalformedRecord{Side: domain.SidePOS, Index: i, ID: rec.ID, Amount: rec.TotalAmount, Reasons: reasons})
			continue
		}
		validPOS = append(validPOS, rec)
	}
	return validInvoices, validPOS, malformed
}
