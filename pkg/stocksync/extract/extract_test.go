package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/komsit37/stocksync/pkg/stocksync/types"
)

const overviewHTML = `<html><head><title>ABC Holdings Inc. (ABC) Stock Price &amp; Overview</title></head>
<body><table>
<tr><td>Market Cap</td><td>1.1B</td></tr>
<tr><td>Shares Out</td><td>1.2M</td></tr>
<tr><td>PE Ratio</td><td>15.3</td></tr>
<tr><td>Price Target</td><td>120</td></tr>
<tr><td>Shares Outstanding (diluted)</td><td>9.9M</td></tr>
</table></body></html>`

const statementHTML = `<html><body><table>
<thead><tr><th>Fiscal Year</th><th>FY 2024</th><th>FY 2023</th></tr></thead>
<tbody>
<tr><td>Revenue</td><td>100</td><td>90</td></tr>
<tr><td>EPS (Basic)</td><td>1.50</td><td>Upgrade</td></tr>
<tr><td>Free Cash Flow</td><td>12</td><td>11</td></tr>
</tbody></table></body></html>`

func parse(t *testing.T, html string) *Document {
	t.Helper()
	doc, err := Parse("test", []byte(html))
	require.NoError(t, err)
	return doc
}

func TestOverview(t *testing.T) {
	doc := parse(t, overviewHTML)
	ov, err := doc.Overview()
	require.NoError(t, err)
	assert.Equal(t, types.Overview{SharesOut: "1.2M", PERatio: "15.3", PriceTarget: "120"}, ov)
	assert.Equal(t, "ABC Holdings Inc.", doc.Title("abc"))
}

func TestOverviewMissingFieldsDefault(t *testing.T) {
	doc := parse(t, `<table><tr><td>PE Ratio</td><td>8.1</td></tr></table>`)
	ov, err := doc.Overview()
	require.NoError(t, err)
	assert.Equal(t, "8.1", ov.PERatio)
	assert.Equal(t, types.Unknown, ov.SharesOut)
	assert.Equal(t, types.Unknown, ov.PriceTarget)
	assert.Equal(t, "", doc.Title("X"))
}

func TestOverviewNoCells(t *testing.T) {
	ov, err := parse(t, `<p>blocked</p>`).Overview()
	var ee *ExtractError
	require.ErrorAs(t, err, &ee)
	assert.Equal(t, types.NewOverview(), ov)
}

func TestSeriesDropsPaywalledCells(t *testing.T) {
	cells, err := parse(t, statementHTML).Series([]string{"EPS (Basic)"})
	require.NoError(t, err)
	require.Len(t, cells, 1)
	assert.Equal(t, Cell{Label: "EPS (Basic)", Period: "FY 2024", Value: "1.50"}, cells[0])
	assert.Equal(t, "EPS (Basic) (FY 2024)", cells[0].Raw())
}

func TestSeriesSkipsUnwantedRows(t *testing.T) {
	cells, err := parse(t, statementHTML).Series(StatementLabels)
	require.NoError(t, err)
	var labels []string
	for _, c := range cells {
		labels = append(labels, c.Label)
	}
	assert.NotContains(t, labels, "Revenue")
	assert.Len(t, cells, 3)
}

func TestSeriesWithoutThead(t *testing.T) {
	html := `<table>
<tr><th>Year</th><th>TTM</th><th>FY 2024</th></tr>
<tr><td>Total Debt</td><td>50</td><td>45</td></tr>
</table>`
	cells, err := parse(t, html).Series(BalanceSheetLabels)
	require.NoError(t, err)
	assert.Equal(t, []Cell{
		{Label: "Total Debt", Period: "TTM", Value: "50"},
		{Label: "Total Debt", Period: "FY 2024", Value: "45"},
	}, cells)
}

func TestSeriesMissingTable(t *testing.T) {
	cells, err := parse(t, `<div>nothing</div>`).Series(StatementLabels)
	var ee *ExtractError
	require.ErrorAs(t, err, &ee)
	assert.Equal(t, "no table", ee.Reason)
	assert.Empty(t, cells)
}
