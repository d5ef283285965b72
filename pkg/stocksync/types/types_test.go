package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseKey(t *testing.T) {
	tests := []struct {
		label string
		want  CanonicalKey
	}{
		{"EPS (Basic)", EPS},
		{"EPS (Diluted)", EPS},
		{"Free Cash Flow", FreeCashFlow},
		{"Total Debt", TotalDebt},
		{"  Revenue ", CanonicalKey("Revenue")},
	}
	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseKey(tt.label))
		})
	}
	assert.True(t, EPS.Known())
	assert.False(t, CanonicalKey("Revenue").Known())
}

func TestParsePeriod(t *testing.T) {
	p, ok := ParsePeriod("FY 2024")
	require.True(t, ok)
	assert.Equal(t, FY(2024), p)

	p, ok = ParsePeriod("TTM")
	require.True(t, ok)
	assert.Equal(t, TTMYear, p.SortKey())

	p, ok = ParsePeriod("2021")
	require.True(t, ok)
	assert.Equal(t, 2021, p.SortKey())

	_, ok = ParsePeriod("Q3 2024")
	assert.False(t, ok)
	assert.Equal(t, 0, Period{}.SortKey())
}

func TestSeriesKeyColumn(t *testing.T) {
	assert.Equal(t, "EPS(2024)", SeriesKey{EPS, FY(2024)}.Column())
	assert.Equal(t, "TotalDebt(TTM)", SeriesKey{TotalDebt, TTM}.Column())
	assert.Equal(t, "Revenue", SeriesKey{Key: "Revenue"}.Column())
}

func TestNewMetricRecord(t *testing.T) {
	r := NewMetricRecord(" abc ")
	assert.Equal(t, "ABC", r.Symbol)
	assert.Equal(t, Unknown, r.Company)
	assert.Equal(t, Unknown, r.SharesOut)
	assert.Equal(t, Unknown, r.PERatio)
	assert.Equal(t, Unknown, r.PriceTarget)
	assert.NotNil(t, r.Series)
}

func TestGroupModel(t *testing.T) {
	g := GroupModel{}
	assert.True(t, g.Add("Tech", "aapl"))
	assert.True(t, g.Add("Tech", "MSFT"))
	assert.False(t, g.Add("Tech", " AAPL "), "duplicate ignored")
	assert.False(t, g.Add("Tech", "  "))
	assert.Equal(t, []string{"AAPL", "MSFT"}, g["Tech"])

	clone := g.Clone()
	require.True(t, g.Remove("Tech", "aapl"))
	assert.Equal(t, []string{"MSFT"}, g["Tech"])
	assert.Equal(t, []string{"AAPL", "MSFT"}, clone["Tech"], "clone unaffected")

	g["Energy"] = []string{"XOM"}
	assert.Equal(t, []string{"Energy", "Tech"}, g.Names())

	require.NoError(t, g.Rename("Energy", "Oil"))
	assert.Error(t, g.Rename("Energy", "Gas"))
	assert.Error(t, g.Rename("Oil", "Tech"))
	assert.Equal(t, []string{"XOM"}, g["Oil"])
}
