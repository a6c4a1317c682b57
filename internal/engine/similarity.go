package engine

import (
	"math"
	"sort"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
	"github.com/texttheater/golang-levenshtein/levenshtein"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Normalize lower-cases s, strips diacritics, trims it and collapses inner whitespace.
func Normalize(s string) string {
	// transform chains keep state, so each call builds its own
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	stripped, _, err := transform.String(t, s)
	if err != nil {
		stripped = s
	}
	return strings.Join(strings.Fields(strings.ToLower(stripped)), " ")
}

// NameSimilarity scores two match keys in [0,1]. It is symmetric and returns 1
// for keys that normalize to the same string.
func NameSimilarity(a, b string) float64 {
	na, nb := Normalize(a), Normalize(b)
	if na == nb {
		return 1
	}
	if na == "" || nb == "" {
		return 0
	}

	score := levenshtein.RatioForStrings([]rune(na), []rune(nb), levenshtein.DefaultOptions)

	// Word order should not matter: "Jaidee Somchai" is "Somchai Jaidee".
	sa, sb := sortedTokens(na), sortedTokens(nb)
	if sa == sb {
		return 1
	}
	if sa != na || sb != nb {
		score = math.Max(score, levenshtein.RatioForStrings([]rune(sa), []rune(sb), levenshtein.DefaultOptions))
	}
	return clamp01(score)
}

func sortedTokens(s string) string {
	tokens := strings.Fields(s)
	sort.Strings(tokens)
	return strings.Join(tokens, " ")
}

// AmountWithinTolerance reports whether |invoice - pos| <= max(toleranceAmount,
// tolerancePercentage * max(|invoice|, |pos|)). The boundary is inclusive.
func AmountWithinTolerance(invoiceAmount, posAmount, toleranceAmount, tolerancePercentage decimal.Decimal) bool {
	diff := invoiceAmount.Sub(posAmount).Abs()
	return diff.LessThanOrEqual(allowedDifference(invoiceAmount, posAmount, toleranceAmount, tolerancePercentage))
}

func allowedDifference(invoiceAmount, posAmount, toleranceAmount, tolerancePercentage decimal.Decimal) decimal.Decimal {
	base := decimal.Max(invoiceAmount.Abs(), posAmount.Abs())
	return decimal.Max(toleranceAmount, tolerancePercentage.Mul(base))
}

// AmountCloseness is 1 for equal amounts, falls with the relative difference and
// is 0 once the tolerance is exceeded.
func AmountCloseness(invoiceAmount, posAmount, toleranceAmount, tolerancePercentage decimal.Decimal) float64 {
	diff := invoiceAmount.Sub(posAmount).Abs()
	if diff.IsZero() {
		return 1
	}
	if !AmountWithinTolerance(invoiceAmount, posAmount, toleranceAmount, tolerancePercentage) {
		return 0
	}
	base := decimal.Max(invoiceAmount.Abs(), posAmount.Abs())
	return clamp01(1 - diff.Div(base).InexactFloat64())
}

func clamp01(v float64) float64 {
	switch {
	case math.IsNaN(v), v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
