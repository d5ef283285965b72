package render

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/komsit37/stocksync/pkg/stocksync/columns"
	"github.com/komsit37/stocksync/pkg/stocksync/dest"
	"github.com/komsit37/stocksync/pkg/stocksync/pipeline"
	"github.com/komsit37/stocksync/pkg/stocksync/types"
	"github.com/komsit37/stocksync/pkg/stocksync/upsert"
)

func report() *pipeline.Report {
	rec := types.NewMetricRecord("AAPL")
	rec.Company = "Apple Inc."
	rec.PERatio = "31.2"
	rec.Series[types.SeriesKey{Key: types.EPS, Period: types.FY(2024)}] = "6.11"
	return &pipeline.Report{
		RunID:  "run-1",
		Schema: []string{columns.Symbol, columns.Company, columns.PERatio, "EPS(2024)", columns.Updated},
		Symbols: []pipeline.SymbolResult{
			{Symbol: "AAPL", Record: rec},
			{Symbol: "ZZZZ", Err: errors.New("status 404")},
		},
		Destinations: []pipeline.DestinationResult{
			{Result: upsert.Result{Destination: "local", Inserted: 1}},
			{
				Result: upsert.Result{Destination: "remote", Failed: []*dest.WriteError{{Destination: "remote", Symbol: "AAPL", Row: 2, Err: errors.New("quota")}}},
				Err:    errors.New("commit remote: boom"),
			},
		},
	}
}

func TestNew(t *testing.T) {
	for _, f := range Formats {
		r, err := New(f, Options{})
		require.NoError(t, err)
		assert.NotNil(t, r)
	}
	_, err := New("csv", Options{})
	assert.Error(t, err)
}

func TestTableRenderer(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, (&TableRenderer{}).Render(&buf, report()))
	out := buf.String()

	assert.Contains(t, out, "AAPL")
	assert.Contains(t, out, "Apple Inc.")
	assert.Contains(t, out, "6.11")
	assert.Contains(t, out, "status 404")
	assert.Contains(t, out, "boom")
	assert.Contains(t, out, "1/2 symbols synced")
}

func TestJSONRenderer(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, (&JSONRenderer{Opts: Options{PrettyJSON: true}}).Render(&buf, report()))

	var got jsonReport
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, "run-1", got.RunID)
	assert.Equal(t, 1, got.Succeeded)
	assert.Equal(t, 2, got.Total)
	require.Len(t, got.Symbols, 2)
	assert.Equal(t, "6.11", got.Symbols[0].Values["EPS(2024)"])
	assert.NotContains(t, got.Symbols[0].Values, columns.Updated)
	assert.False(t, got.Symbols[1].OK)
	assert.Equal(t, "status 404", got.Symbols[1].Error)
	require.Len(t, got.Destinations, 2)
	assert.Len(t, got.Destinations[1].Failed, 1)
	assert.Equal(t, "commit remote: boom", got.Destinations[1].Error)
}

func TestSymsRenderer(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, SymsRenderer{}.Render(&buf, report()))
	assert.Equal(t, "AAPL\n", buf.String())
}

func TestSchema(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Schema(&buf, []string{columns.Symbol, "EPS(TTM)", "EPS(2023)"}, Options{}))
	out := buf.String()
	assert.Contains(t, out, "TTM")
	assert.Contains(t, out, "2023")
	assert.Contains(t, out, columns.Symbol)
}
