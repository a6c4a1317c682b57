package main

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"pos-reconciliation/internal/domain"
)

// writeTextReport prints a human readable summary followed by the three
// partitions, labelling records the way the mode keys them.
func writeTextReport(w io.Writer, result *domain.ReconciliationResult) error {
	s := result.Summary
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	fmt.Fprintf(tw, "Session:\t%s\n", result.SessionID)
	fmt.Fprintf(tw, "Mode:\t%s\n", result.Mode)
	if s.EmptyInput {
		fmt.Fprintln(tw, "Nothing to reconcile.")
		writeMalformed(tw, result.Malformed)
		return tw.Flush()
	}
	fmt.Fprintf(tw, "Invoice items:\t%d\n", s.TotalInvoiceItems)
	fmt.Fprintf(tw, "POS records:\t%d\n", s.TotalPOSRecords)
	fmt.Fprintf(tw, "Matched:\t%d (%.2f%%)\n", s.MatchedCount, s.MatchRate)
	for _, mt := range domain.MatchTypes {
		fmt.Fprintf(tw, "  %s:\t%d\n", mt, s.MatchTypeCounts[mt])
	}
	fmt.Fprintf(tw, "Invoice only:\t%d\n", s.InvoiceOnlyCount)
	fmt.Fprintf(tw, "POS only:\t%d\n", s.POSOnlyCount)
	fmt.Fprintf(tw, "Malformed:\t%d invoice (%s), %d pos (%s)\n",
		s.MalformedInvoiceItems, s.MalformedInvoiceAmount.StringFixed(2),
		s.MalformedPOSRecords, s.MalformedPOSAmount.StringFixed(2))
	fmt.Fprintf(tw, "Invoice total:\t%s\n", s.TotalInvoiceAmount.StringFixed(2))
	fmt.Fprintf(tw, "POS total:\t%s\n", s.TotalPOSAmount.StringFixed(2))
	fmt.Fprintf(tw, "Variance:\t%s (%.2f%%)\n", s.VarianceAmount.StringFixed(2), s.VariancePercentage)

	if len(result.Matched) > 0 {
		fmt.Fprintln(tw, "\nMATCHED")
		fmt.Fprintln(tw, "TYPE\tINVOICE\tPOS\tDATE\tINVOICE AMOUNT\tPOS AMOUNT\tCONFIDENCE")
		for _, p := range result.Matched {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%.2f\n",
				p.MatchType,
				p.Invoice.DisplayName(result.Mode),
				p.POS.DisplayName(result.Mode),
				p.Invoice.Date.Format(time.DateOnly),
				p.Invoice.TotalAmount.Decimal.StringFixed(2),
				p.POS.TotalAmount.Decimal.StringFixed(2),
				p.Confidence)
		}
	}

	if len(result.InvoiceOnly) > 0 {
		fmt.Fprintln(tw, "\nINVOICE ONLY")
		fmt.Fprintln(tw, "ID\tNAME\tDATE\tAMOUNT")
		for _, inv := range result.InvoiceOnly {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", inv.ID, inv.DisplayName(result.Mode),
				inv.Date.Format(time.DateOnly), inv.TotalAmount.Decimal.StringFixed(2))
		}
	}

	if len(result.POSOnly) > 0 {
		fmt.Fprintln(tw, "\nPOS ONLY")
		fmt.Fprintln(tw, "ID\tNAME\tDATE\tAMOUNT")
		for _, rec := range result.POSOnly {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", rec.ID, rec.DisplayName(result.Mode),
				rec.Date.Format(time.DateOnly), rec.TotalAmount.Decimal.StringFixed(2))
		}
	}

	writeMalformed(tw, result.Malformed)
	return tw.Flush()
}

func writeMalformed(w io.Writer, malformed []domain.MalformedRecord) {
	if len(malformed) == 0 {
		return
	}
	fmt.Fprintln(w, "\nMALFORMED")
	for _, m := range malformed {
		fmt.Fprintln(w, m.String())
	}
}
