package columns

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/komsit37/stocksync/pkg/stocksync/types"
)

// Identity and timestamp column names.
const (
	Symbol      = "Symbol"
	Company     = "Company"
	SharesOut   = "SharesOut"
	PERatio     = "PE Ratio"
	PriceTarget = "Price Target"
	Updated     = "Updated"
)

// Identity columns lead every schema in this order.
var Identity = []string{Symbol, Company, SharesOut, PERatio, PriceTarget}

var (
	keyPattern = `(EPS|Free Cash Flow|FreeCashFlow|Total Debt|TotalDebt)`
	ttmRe      = regexp.MustCompile(keyPattern + `.*\(TTM\)`)
	fyRe       = regexp.MustCompile(keyPattern + `.*?\(FY (\d{4})\)`)
	periodRe   = regexp.MustCompile(`\((TTM|\d{4})\)`)
)

// ParseField maps a source label such as "EPS (Basic) (FY 2024)" or
// "Free Cash Flow (TTM)" to its series key. Labels that match neither form
// keep their trimmed text as the key with no period.
func ParseField(raw string) types.SeriesKey {
	if m := ttmRe.FindStringSubmatch(raw); m != nil {
		return types.SeriesKey{Key: types.ParseKey(m[1]), Period: types.TTM}
	}
	if m := fyRe.FindStringSubmatch(raw); m != nil {
		y, _ := strconv.Atoi(m[2])
		return types.SeriesKey{Key: types.ParseKey(m[1]), Period: types.FY(y)}
	}
	return types.SeriesKey{Key: types.CanonicalKey(strings.TrimSpace(raw))}
}

// Canonicalize maps a raw label to its column name. The company column
// passes through unchanged.
func Canonicalize(raw string) string {
	if raw == Company {
		return raw
	}
	return ParseField(raw).Column()
}

// PeriodKey is the sort key of a column: 9999 for TTM, the year for a
// fiscal-year column and 0 when no period can be read.
func PeriodKey(col string) int {
	m := periodRe.FindStringSubmatch(col)
	if m == nil {
		return 0
	}
	if m[1] == "TTM" {
		return types.TTMYear
	}
	y, _ := strconv.Atoi(m[1])
	return y
}

// BuildSchema computes the destination header from the columns seen in the
// data and a priority template. Identity columns come first, then dynamic
// columns newest-first, then Updated; the result is re-ordered so template
// entries appear in template order (template-only columns are included
// even without data), followed by any data-only columns.
func BuildSchema(seen []string, template []string) []string {
	fixed := map[string]struct{}{Updated: {}}
	for _, c := range Identity {
		fixed[c] = struct{}{}
	}

	dynamic := make([]string, 0, len(seen))
	for _, s := range seen {
		c := Canonicalize(s)
		if _, ok := fixed[c]; ok || c == "" {
			continue
		}
		dynamic = append(dynamic, c)
	}
	dynamic = dedupe(dynamic)
	sort.SliceStable(dynamic, func(i, j int) bool {
		ki, kj := PeriodKey(dynamic[i]), PeriodKey(dynamic[j])
		if ki != kj {
			return ki > kj
		}
		return dynamic[i] < dynamic[j]
	})

	raw := make([]string, 0, len(Identity)+len(dynamic)+1+len(template))
	raw = append(raw, Identity...)
	raw = append(raw, dynamic...)
	raw = append(raw, Updated)
	for _, c := range template {
		if !contains(raw, c) {
			raw = append(raw, c)
		}
	}
	return dedupe(prioritize(raw, template))
}

// prioritize orders cols by template first, then the remainder in order.
func prioritize(cols, template []string) []string {
	out := make([]string, 0, len(cols))
	for _, c := range template {
		if contains(cols, c) && !contains(out, c) {
			out = append(out, c)
		}
	}
	for _, c := range cols {
		if !contains(out, c) {
			out = append(out, c)
		}
	}
	return out
}

// SeenColumns collects the distinct series column names across records.
func SeenColumns(records []types.MetricRecord) []string {
	var out []string
	set := map[string]struct{}{}
	for _, r := range records {
		for k := range r.Series {
			c := k.Column()
			if _, ok := set[c]; ok {
				continue
			}
			set[c] = struct{}{}
			out = append(out, c)
		}
	}
	sort.Strings(out)
	return out
}

// Index maps header names to 0-based positions; first occurrence wins.
func Index(header []string) map[string]int {
	idx := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.TrimSpace(h)
		if _, ok := idx[h]; !ok {
			idx[h] = i
		}
	}
	return idx
}

func dedupe(s []string) []string {
	seen := map[string]struct{}{}
	out := make([]string, 0, len(s))
	for _, k := range s {
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	return out
}

func contains(s []string, v string) bool {
	for _, e := range s {
		if e == v {
			return true
		}
	}
	return false
}
