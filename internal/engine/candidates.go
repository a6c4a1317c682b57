package engine

import (
	"math"
	"sort"
	"strings"
	"unicode"

	"pos-reconciliation/internal/domain"
)

// namePrefixLength is the number of runes of a customer name used as its bucket.
const namePrefixLength = 3

// BucketKey returns the cheap pre-filter key for a match key: alphanumerics of the
// normalized key, the whole of it for SKUs and a short prefix for names. An empty
// result means the key cannot be bucketed.
func BucketKey(key string, mode domain.Mode) string {
	var b strings.Builder
	for _, r := range Normalize(key) {
		if unicode.IsLetter(r) || unicode.IsNumber(r) {
			b.WriteRune(r)
		}
	}
	bucket := []rune(b.String())
	if mode == domain.ModeByName && len(bucket) > namePrefixLength {
		bucket = bucket[:namePrefixLength]
	}
	return string(bucket)
}

// posIndex groups POS record positions by calendar day and bucket key.
// days holds the distinct day numbers in ascending order.
type posIndex struct {
	days       []int64
	byBucket   map[int64]map[string][]int
	unbucketed map[int64][]int
	all        map[int64][]int
}

func newPOSIndex(records []domain.POSRecord, mode domain.Mode) *posIndex {
	idx := &posIndex{
		byBucket:   make(map[int64]map[string][]int),
		unbucketed: make(map[int64][]int),
		all:        make(map[int64][]int),
	}
	for i, rec := range records {
		day := dayNumber(rec)
		if _, seen := idx.all[day]; !seen {
			idx.days = append(idx.days, day)
		}
		idx.all[day] = append(idx.all[day], i)

		key := BucketKey(rec.MatchKey, mode)
		if key == "" {
			idx.unbucketed[day] = append(idx.unbucketed[day], i)
			continue
		}
		if idx.byBucket[day] == nil {
			idx.byBucket[day] = make(map[string][]int)
		}
		idx.byBucket[day][key] = append(idx.byBucket[day][key], i)
	}
	sort.Slice(idx.days, func(a, b int) bool { return idx.days[a] < idx.days[b] })
	return idx
}

// daysWithin returns the indexed days in [center-window, center+window].
// The bounds saturate instead of overflowing.
func (idx *posIndex) daysWithin(center int64, window int) []int64 {
	if window < 0 {
		return nil
	}
	w := int64(window)
	lo, hi := int64(math.MinInt64), int64(math.MaxInt64)
	if center >= math.MinInt64+w {
		lo = center - w
	}
	if center <= math.MaxInt64-w {
		hi = center + w
	}
	from := sort.Search(len(idx.days), func(i int) bool { return idx.days[i] >= lo })
	to := sort.Search(len(idx.days), func(i int) bool { return idx.days[i] > hi })
	return idx.days[from:to]
}

// GenerateCandidates returns, for each invoice item, the positions of the POS
// records worth scoring against it, in POS input order. A candidate shares the
// invoice bucket (or has none) and falls within windowDays calendar days.
// Invoice items that cannot be bucketed are compared with every POS record in
// the window.
func GenerateCandidates(invoices []domain.InvoiceItem, records []domain.POSRecord, mode domain.Mode, windowDays int) [][]int {
	idx := newPOSIndex(records, mode)
	out := make([][]int, len(invoices))

	for i, inv := range invoices {
		key := BucketKey(inv.MatchKey, mode)
		center := domain.CalendarDate(inv.Date).Unix() / secondsPerDay

		var cands []int
		for _, day := range idx.daysWithin(center, windowDays) {
			if key == "" {
				cands = append(cands, idx.all[day]...)
				continue
			}
			cands = append(cands, idx.byBucket[day][key]...)
			cands = append(cands, idx.unbucketed[day]...)
		}
		sort.Ints(cands)
		out[i] = cands
	}
	return out
}

const secondsPerDay = 24 * 60 * 60

func dayNumber(rec domain.POSRecord) int64 {
	return domain.CalendarDate(rec.Date).Unix() / secondsPerDay
}
