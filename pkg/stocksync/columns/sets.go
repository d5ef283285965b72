package columns

import (
	"sort"
	"strings"

	"github.com/komsit37/stocksync/pkg/stocksync/types"
)

// TemplateYears are the fiscal years every series set reserves a column for.
var TemplateYears = []int{2025, 2024, 2023, 2022, 2021, 2020}

// seriesSetNames names the set of each known series key.
var seriesSetNames = map[types.CanonicalKey]string{
	types.EPS:          "eps",
	types.FreeCashFlow: "fcf",
	types.TotalDebt:    "debt",
}

// Sets defines named column groups that expand into a priority template.
// - "identity": symbol, company and overview metrics
// - "eps", "fcf", "debt": TTM plus TemplateYears for one series key
// - "updated": the timestamp column
var Sets = buildSets()

func buildSets() map[string][]string {
	sets := map[string][]string{
		"identity": Identity,
		"updated":  {Updated},
	}
	for _, k := range types.KnownKeys {
		sets[seriesSetNames[k]] = seriesSet(k)
	}
	return sets
}

// DefaultSets is the template used when none is configured: identity, every
// known series key in KnownKeys order, then the timestamp.
var DefaultSets = defaultSets()

func defaultSets() []string {
	out := []string{"identity"}
	for _, k := range types.KnownKeys {
		out = append(out, seriesSetNames[k])
	}
	return append(out, "updated")
}

// DefaultTemplate is DefaultSets expanded.
func DefaultTemplate() []string {
	t, _ := ExpandSets(DefaultSets)
	return t
}

func seriesSet(k types.CanonicalKey) []string {
	cols := []string{types.SeriesKey{Key: k, Period: types.TTM}.Column()}
	for _, y := range TemplateYears {
		cols = append(cols, types.SeriesKey{Key: k, Period: types.FY(y)}.Column())
	}
	return cols
}

// ExpandSets returns the union of columns for the given set names.
// It preserves the order of the sets and the order of columns within each set,
// and de-duplicates columns while keeping the first occurrence.
func ExpandSets(setNames []string) ([]string, error) {
	out := make([]string, 0, 32)
	seen := map[string]struct{}{}
	for _, name := range setNames {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		cols, ok := Sets[name]
		if !ok {
			return nil, &UnknownSetError{Name: name, Available: availableSets()}
		}
		for _, c := range cols {
			if _, ok := seen[c]; ok {
				continue
			}
			seen[c] = struct{}{}
			out = append(out, c)
		}
	}
	return out, nil
}

// UnknownSetError reports an unknown column set name.
type UnknownSetError struct {
	Name      string
	Available []string
}

func (e *UnknownSetError) Error() string {
	return "unknown column set: " + e.Name + "; available: " + strings.Join(e.Available, ", ")
}

func availableSets() []string {
	keys := make([]string, 0, len(Sets))
	for k := range Sets {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
