package engine

import (
	"time"

	"github.com/shopspring/decimal"

	"pos-reconciliation/internal/domain"
)

func mustDate(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func money(s string) decimal.NullDecimal {
	return decimal.NewNullDecimal(decimal.RequireFromString(s))
}

func invoice(id, key, amount, date string) domain.InvoiceItem {
	return domain.InvoiceItem{
		ID:          id,
		Date:        mustDate(date),
		MatchKey:    key,
		Quantity:    1,
		UnitPrice:   money(amount).Decimal,
		TotalAmount: money(amount),
	}
}

func posRecord(id, key, amount, date string) domain.POSRecord {
	return domain.POSRecord{
		ID:          id,
		Date:        mustDate(date),
		MatchKey:    key,
		Quantity:    1,
		TotalAmount: money(amount),
	}
}

func testOptions() domain.Options {
	return domain.Options{
		ToleranceAmount:         decimal.NewFromInt(5),
		TolerancePercentage:     decimal.Zero,
		NameSimilarityThreshold: 0.8,
		MalformedPolicy:         domain.MalformedExclude,
	}
}
