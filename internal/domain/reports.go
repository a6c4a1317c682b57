package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// MatchType classifies how a matched pair was recognised.
type MatchType int

const (
	MatchExact MatchType = iota + 1
	MatchFuzzyName
	MatchFuzzyAmount
	MatchFuzzyBoth
)

// MatchTypes lists every match type in reporting order.
var MatchTypes = []MatchType{MatchExact, MatchFuzzyName, MatchFuzzyAmount, MatchFuzzyBoth}

func (t MatchType) String() string {
	switch t {
	case MatchExact:
		return "exact"
	case MatchFuzzyName:
		return "fuzzy_name"
	case MatchFuzzyAmount:
		return "fuzzy_amount"
	case MatchFuzzyBoth:
		return "fuzzy_both"
	default:
		return fmt.Sprintf("MatchType(%d)", int(t))
	}
}

// MarshalText encodes the match type as its snake_case name.
func (t MatchType) MarshalText() ([]byte, error) {
	switch t {
	case MatchExact, MatchFuzzyName, MatchFuzzyAmount, MatchFuzzyBoth:
		return []byte(t.String()), nil
	}
	return nil, fmt.Errorf("unknown match type %d", int(t))
}

// UnmarshalText decodes a snake_case match type name.
func (t *MatchType) UnmarshalText(b []byte) error {
	for _, mt := range MatchTypes {
		if mt.String() == string(b) {
			*t = mt
			return nil
		}
	}
	return fmt.Errorf("unknown match type %q", string(b))
}

// Variance quantifies the difference between the two sides of a match.
type Variance struct {
	AmountDiff     decimal.Decimal `json:"amount_diff"`   // invoice - pos
	QuantityDiff   int             `json:"quantity_diff"` // invoice - pos
	NameSimilarity float64         `json:"name_similarity"`
	DateDiffDays   int             `json:"date_diff_days"` // invoice - pos
}

// MatchedPair links exactly one invoice item to exactly one POS record.
type MatchedPair struct {
	Invoice    InvoiceItem `json:"invoice"`
	POS        POSRecord   `json:"pos"`
	MatchType  MatchType   `json:"match_type"`
	Confidence float64     `json:"confidence"`
	Variance   Variance    `json:"variance"`
}

// Side names the ledger a record came from.
type Side string

const (
	SideInvoice Side = "invoice"
	SidePOS     Side = "pos"
)

// MalformedRecord reports a record that was kept out of matching.
type MalformedRecord struct {
	Side    Side                `json:"side"`
	Index   int                 `json:"index"` // position in the caller's input
	ID      string              `json:"id"`
	Amount  decimal.NullDecimal `json:"amount"` // null when the record has none
	Reasons []string            `json:"reasons"`
}

func (m MalformedRecord) String() string {
	return fmt.Sprintf("%s[%d] id=%q: %s", m.Side, m.Index, m.ID, strings.Join(m.Reasons, ", "))
}

// Summary provides high-level statistics of the reconciliation run.
// Every figure is derived from the partitions of the owning result.
// Counts and totals cover well-formed records only; malformed records are
// counted and summed in the Malformed* fields.
type Summary struct {
	TotalInvoiceItems      int               `json:"total_invoice_items"`
	TotalPOSRecords        int               `json:"total_pos_records"`
	MatchedCount           int               `json:"matched_count"`
	InvoiceOnlyCount       int               `json:"invoice_only_count"`
	POSOnlyCount           int               `json:"pos_only_count"`
	MalformedInvoiceItems  int               `json:"malformed_invoice_items"`
	MalformedPOSRecords    int               `json:"malformed_pos_records"`
	MatchTypeCounts        map[MatchType]int `json:"match_type_counts"`
	MatchRate              float64           `json:"match_rate"` // percent
	TotalInvoiceAmount     decimal.Decimal   `json:"total_invoice_amount"`
	TotalPOSAmount         decimal.Decimal   `json:"total_pos_amount"`
	MalformedInvoiceAmount decimal.Decimal   `json:"malformed_invoice_amount"`
	MalformedPOSAmount     decimal.Decimal   `json:"malformed_pos_amount"`
	VarianceAmount         decimal.Decimal   `json:"variance_amount"`
	VariancePercentage     float64           `json:"variance_percentage"`
	EmptyInput             bool              `json:"empty_input"`
}

// ReconciliationResult is the top-level structure handed to presentation and persistence.
type ReconciliationResult struct {
	SessionID   string            `json:"session_id"` // assigned by the caller
	Mode        Mode              `json:"mode"`
	Matched     []MatchedPair     `json:"matched"`
	InvoiceOnly []InvoiceItem     `json:"invoice_only"`
	POSOnly     []POSRecord       `json:"pos_only"`
	Malformed   []MalformedRecord `json:"malformed"`
	Summary     Summary           `json:"summary"`
}

// ReconciliationSession is a persisted reconciliation run.
type ReconciliationSession struct {
	ID          string                `json:"id"`
	CreatedAt   time.Time             `json:"created_at"`
	Mode        Mode                  `json:"mode"`
	PeriodStart time.Time             `json:"period_start"`
	PeriodEnd   time.Time             `json:"period_end"`
	Summary     Summary               `json:"summary"`
	Result      *ReconciliationResult `json:"result,omitempty"`
}
