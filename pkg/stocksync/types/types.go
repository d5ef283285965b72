package types

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Unknown is written for any value the source did not provide.
const Unknown = "-"

// NormalizeSymbol trims and upper-cases a ticker.
func NormalizeSymbol(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// Overview holds the scalar metrics scraped from a symbol's overview page.
// Fields never hold "" once built with NewOverview; missing values are Unknown.
type Overview struct {
	SharesOut   string
	PERatio     string
	PriceTarget string
}

// NewOverview returns an Overview with every field set to Unknown.
func NewOverview() Overview {
	return Overview{SharesOut: Unknown, PERatio: Unknown, PriceTarget: Unknown}
}

// CanonicalKey names a series field independent of how the source labels it.
// The three known keys are constants; anything else is carried as its trimmed label.
type CanonicalKey string

const (
	EPS          CanonicalKey = "EPS"
	FreeCashFlow CanonicalKey = "FreeCashFlow"
	TotalDebt    CanonicalKey = "TotalDebt"
)

// KnownKeys lists the canonical keys in template order.
var KnownKeys = []CanonicalKey{EPS, FreeCashFlow, TotalDebt}

// Known reports whether k is one of EPS, FreeCashFlow or TotalDebt.
func (k CanonicalKey) Known() bool {
	switch k {
	case EPS, FreeCashFlow, TotalDebt:
		return true
	}
	return false
}

// ParseKey maps a raw source label such as "EPS (Basic)" or
// "Free Cash Flow" to its canonical key.
func ParseKey(label string) CanonicalKey {
	l := strings.TrimSpace(label)
	switch {
	case strings.HasPrefix(l, "EPS"):
		return EPS
	case strings.HasPrefix(l, "Free Cash Flow"), strings.HasPrefix(l, "FreeCashFlow"):
		return FreeCashFlow
	case strings.HasPrefix(l, "Total Debt"), strings.HasPrefix(l, "TotalDebt"):
		return TotalDebt
	}
	return CanonicalKey(l)
}

// TTMYear is the sort key used for the trailing-twelve-months period.
const TTMYear = 9999

// Period is a fiscal year or trailing twelve months. The zero value is an
// unknown period and sorts as the oldest.
type Period struct {
	Year int
	TTM  bool
}

// TTM is the trailing-twelve-months period.
var TTM = Period{TTM: true}

// FY returns the fiscal-year period for year.
func FY(year int) Period { return Period{Year: year} }

// ParsePeriod accepts "TTM", "FY 2024", "2024" and "FY2024".
func ParsePeriod(s string) (Period, bool) {
	s = strings.TrimSpace(s)
	if strings.EqualFold(s, "TTM") {
		return TTM, true
	}
	s = strings.TrimSpace(strings.TrimPrefix(strings.TrimPrefix(s, "FY"), "fy"))
	if len(s) != 4 {
		return Period{}, false
	}
	y, err := strconv.Atoi(s)
	if err != nil {
		return Period{}, false
	}
	return FY(y), true
}

// Valid reports whether p is TTM or a known year.
func (p Period) Valid() bool { return p.TTM || p.Year > 0 }

// SortKey orders periods newest-first when sorted descending.
func (p Period) SortKey() int {
	if p.TTM {
		return TTMYear
	}
	return p.Year
}

func (p Period) String() string {
	if p.TTM {
		return "TTM"
	}
	if p.Year > 0 {
		return strconv.Itoa(p.Year)
	}
	return ""
}

// SeriesKey addresses one cell of year-keyed financial data.
type SeriesKey struct {
	Key    CanonicalKey
	Period Period
}

// Column is the canonical column name, e.g. "EPS(2024)" or "TotalDebt(TTM)".
// Keys with no valid period use the bare key.
func (k SeriesKey) Column() string {
	if !k.Period.Valid() {
		return string(k.Key)
	}
	return fmt.Sprintf("%s(%s)", k.Key, k.Period)
}

// MetricRecord is everything fetched for one symbol in one pass.
type MetricRecord struct {
	Symbol  string
	Company string
	Overview
	Series map[SeriesKey]string
}

// NewMetricRecord returns a record with Unknown scalars and an empty series.
func NewMetricRecord(sym string) MetricRecord {
	return MetricRecord{
		Symbol:   NormalizeSymbol(sym),
		Company:  Unknown,
		Overview: NewOverview(),
		Series:   map[SeriesKey]string{},
	}
}

// GroupModel maps group names to ordered symbol lists.
type GroupModel map[string][]string

// Clone deep-copies g so the copy can be handed to another goroutine.
func (g GroupModel) Clone() GroupModel {
	if g == nil {
		return nil
	}
	out := make(GroupModel, len(g))
	for name, syms := range g {
		out[name] = append([]string(nil), syms...)
	}
	return out
}

// Names returns the group names sorted.
func (g GroupModel) Names() []string {
	names := make([]string, 0, len(g))
	for n := range g {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Add appends sym to group, creating the group if needed. Duplicates are ignored.
func (g GroupModel) Add(group, sym string) bool {
	sym = NormalizeSymbol(sym)
	if sym == "" {
		return false
	}
	for _, s := range g[group] {
		if s == sym {
			return false
		}
	}
	g[group] = append(g[group], sym)
	return true
}

// Remove deletes sym from group and reports whether it was present.
func (g GroupModel) Remove(group, sym string) bool {
	sym = NormalizeSymbol(sym)
	list := g[group]
	for i, s := range list {
		if s == sym {
			g[group] = append(list[:i:i], list[i+1:]...)
			return true
		}
	}
	return false
}

// Rename moves a group to a new name. It fails if the target exists.
func (g GroupModel) Rename(from, to string) error {
	if _, ok := g[from]; !ok {
		return fmt.Errorf("group %q not found", from)
	}
	if _, ok := g[to]; ok {
		return fmt.Errorf("group %q already exists", to)
	}
	g[to] = g[from]
	delete(g, from)
	return nil
}
