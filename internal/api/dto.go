package api

import (
	"fmt"
	"mime/multipart"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"pos-reconciliation/internal/domain"
	"pos-reconciliation/internal/gateway"
)

// optionOverrides replaces individual server defaults for one run.
type optionOverrides struct {
	ToleranceAmount         *decimal.Decimal `json:"tolerance_amount"`
	TolerancePercentage     *decimal.Decimal `json:"tolerance_percentage"`
	NameSimilarityThreshold *float64         `json:"name_similarity_threshold"`
	DateWindowDays          *int             `json:"date_window_days"`
	MalformedPolicy         *string          `json:"malformed_policy"`
}

func (o optionOverrides) apply(base domain.Options) domain.Options {
	if o.ToleranceAmount != nil {
		base.ToleranceAmount = *o.ToleranceAmount
	}
	if o.TolerancePercentage != nil {
		base.TolerancePercentage = *o.TolerancePercentage
	}
	if o.NameSimilarityThreshold != nil {
		base.NameSimilarityThreshold = *o.NameSimilarityThreshold
	}
	if o.DateWindowDays != nil {
		base.DateWindowDays = *o.DateWindowDays
	}
	if o.MalformedPolicy != nil {
		base.MalformedPolicy = domain.MalformedPolicy(strings.ToLower(*o.MalformedPolicy))
	}
	return base
}

type invoiceItemPayload struct {
	ID          string              `json:"id"`
	Date        string              `json:"date"`
	MatchKey    string              `json:"match_key"`
	Label       string              `json:"label"`
	Quantity    int                 `json:"quantity"`
	UnitPrice   decimal.NullDecimal `json:"unit_price"`
	TotalAmount decimal.NullDecimal `json:"total_amount"`
}

type posRecordPayload struct {
	ID          string              `json:"id"`
	Date        string              `json:"date"`
	MatchKey    string              `json:"match_key"`
	Label       string              `json:"label"`
	Quantity    int                 `json:"quantity"`
	TotalAmount decimal.NullDecimal `json:"total_amount"`
}

// reconcileRequest is the JSON body of POST /reconciliations.
type reconcileRequest struct {
	Mode         string               `json:"mode"`
	PeriodStart  string               `json:"period_start"`
	PeriodEnd    string               `json:"period_end"`
	Persist      *bool                `json:"persist"`
	Options      optionOverrides      `json:"options"`
	InvoiceItems []invoiceItemPayload `json:"invoice_items"`
	POSRecords   []posRecordPayload   `json:"pos_records"`
}

func (r reconcileRequest) invoices() ([]domain.InvoiceItem, error) {
	items := make([]domain.InvoiceItem, 0, len(r.InvoiceItems))
	for i, p := range r.InvoiceItems {
		date, err := gateway.ParseDate(strings.TrimSpace(p.Date))
		if err != nil {
			return nil, fmt.Errorf("invoice_items[%d].date: %w", i, err)
		}
		items = append(items, domain.InvoiceItem{
			ID:          p.ID,
			Date:        date,
			MatchKey:    p.MatchKey,
			Label:       p.Label,
			Quantity:    p.Quantity,
			UnitPrice:   p.UnitPrice.Decimal,
			TotalAmount: p.TotalAmount,
		})
	}
	return items, nil
}

func (r reconcileRequest) posRecords() ([]domain.POSRecord, error) {
	records := make([]domain.POSRecord, 0, len(r.POSRecords))
	for i, p := range r.POSRecords {
		date, err := gateway.ParseDate(strings.TrimSpace(p.Date))
		if err != nil {
			return nil, fmt.Errorf("pos_records[%d].date: %w", i, err)
		}
		records = append(records, domain.POSRecord{
			ID:          p.ID,
			Date:        date,
			MatchKey:    p.MatchKey,
			Label:       p.Label,
			Quantity:    p.Quantity,
			TotalAmount: p.TotalAmount,
		})
	}
	return records, nil
}

// uploadForm is the multipart body of POST /reconciliations/upload.
type uploadForm struct {
	Invoice                 *multipart.FileHeader   `form:"invoice" binding:"required"`
	POS                     []*multipart.FileHeader `form:"pos" binding:"required"`
	Mode                    string                  `form:"mode"`
	PeriodStart             string                  `form:"period_start"`
	PeriodEnd               string                  `form:"period_end"`
	Persist                 string                  `form:"persist"`
	ToleranceAmount         string                  `form:"tolerance_amount"`
	TolerancePercentage     string                  `form:"tolerance_percentage"`
	NameSimilarityThreshold string                  `form:"name_similarity_threshold"`
	DateWindowDays          string                  `form:"date_window_days"`
	MalformedPolicy         string                  `form:"malformed_policy"`
}

// overrides parses the textual option fields of the form.
func (f uploadForm) overrides() (optionOverrides, error) {
	var o optionOverrides
	if f.ToleranceAmount != "" {
		d, err := decimal.NewFromString(f.ToleranceAmount)
		if err != nil {
			return o, &domain.ConfigError{Field: "tolerance_amount", Value: f.ToleranceAmount, Reason: "must be a decimal number"}
		}
		o.ToleranceAmount = &d
	}
	if f.TolerancePercentage != "" {
		d, err := decimal.NewFromString(f.TolerancePercentage)
		if err != nil {
			return o, &domain.ConfigError{Field: "tolerance_percentage", Value: f.TolerancePercentage, Reason: "must be a decimal number"}
		}
		o.TolerancePercentage = &d
	}
	if f.NameSimilarityThreshold != "" {
		v, err := strconv.ParseFloat(f.NameSimilarityThreshold, 64)
		if err != nil {
			return o, &domain.ConfigError{Field: "name_similarity_threshold", Value: f.NameSimilarityThreshold, Reason: "must be a number"}
		}
		o.NameSimilarityThreshold = &v
	}
	if f.DateWindowDays != "" {
		v, err := strconv.Atoi(f.DateWindowDays)
		if err != nil {
			return o, &domain.ConfigError{Field: "date_window_days", Value: f.DateWindowDays, Reason: "must be an integer"}
		}
		o.DateWindowDays = &v
	}
	if f.MalformedPolicy != "" {
		o.MalformedPolicy = &f.MalformedPolicy
	}
	return o, nil
}

func (f uploadForm) persist() (*bool, error) {
	if f.Persist == "" {
		return nil, nil
	}
	v, err := strconv.ParseBool(f.Persist)
	if err != nil {
		return nil, fmt.Errorf("persist must be a boolean: %w", err)
	}
	return &v, nil
}

// parsePeriod parses the optional inclusive period bounds (YYYY-MM-DD).
func parsePeriod(start, end string) (time.Time, time.Time, error) {
	var s, e time.Time
	var err error
	if start != "" {
		if s, err = time.Parse(time.DateOnly, start); err != nil {
			return s, e, fmt.Errorf("%w: period_start must be YYYY-MM-DD", domain.ErrInvalidDateRange)
		}
	}
	if end != "" {
		if e, err = time.Parse(time.DateOnly, end); err != nil {
			return s, e, fmt.Errorf("%w: period_end must be YYYY-MM-DD", domain.ErrInvalidDateRange)
		}
	}
	return s, e, nil
}
