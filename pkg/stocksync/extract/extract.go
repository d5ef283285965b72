// Package extract pulls overview metrics, the company title and
// period-keyed financial rows out of fetched HTML documents.
//
// Extraction never fails a batch: missing structure yields an empty or
// partial result together with an *ExtractError for the caller to log.
package extract

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/komsit37/stocksync/pkg/stocksync/types"
)

// Paywalled marks a cell the source hides behind a subscription.
const Paywalled = "Upgrade"

// Overview label prefixes.
const (
	LabelSharesOut   = "Shares Out"
	LabelPERatio     = "PE Ratio"
	LabelPriceTarget = "Price Target"
)

// Statement row labels wanted from the financial pages.
var (
	StatementLabels    = []string{"EPS (Basic)", "Free Cash Flow", "Total Debt"}
	BalanceSheetLabels = []string{"Total Debt"}
)

// ExtractError describes a document that lacked the expected structure.
type ExtractError struct {
	Doc    string
	Reason string
	Err    error
}

func (e *ExtractError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("extract %s: %s: %v", e.Doc, e.Reason, e.Err)
	}
	return fmt.Sprintf("extract %s: %s", e.Doc, e.Reason)
}

func (e *ExtractError) Unwrap() error { return e.Err }

// Document is a parsed HTML page.
type Document struct {
	name string
	doc  *goquery.Document
}

// Parse parses body. name identifies the document in errors.
func Parse(name string, body []byte) (*Document, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, &ExtractError{Doc: name, Reason: "parse html", Err: err}
	}
	return &Document{name: name, doc: doc}, nil
}

// Overview scans adjacent td label/value pairs. Labels match by prefix and
// the first match for each metric wins.
func (d *Document) Overview() (types.Overview, error) {
	ov := types.NewOverview()
	tds := d.doc.Find("td")
	if tds.Length() < 2 {
		return ov, &ExtractError{Doc: d.name, Reason: "no label/value cells"}
	}
	var sharesSet, peSet, ptSet bool
	cells := tds.Map(func(_ int, s *goquery.Selection) string {
		return strings.TrimSpace(s.Text())
	})
	for i := 0; i < len(cells)-1; i++ {
		lbl, val := cells[i], cells[i+1]
		switch {
		case !sharesSet && strings.HasPrefix(lbl, LabelSharesOut):
			ov.SharesOut, sharesSet = orUnknown(val), true
		case !peSet && strings.HasPrefix(lbl, LabelPERatio):
			ov.PERatio, peSet = orUnknown(val), true
		case !ptSet && strings.HasPrefix(lbl, LabelPriceTarget):
			ov.PriceTarget, ptSet = orUnknown(val), true
		}
	}
	return ov, nil
}

// Title returns the company name from the page title with the
// " (SYM) Stock Price & Overview" style suffix removed, or "".
func (d *Document) Title(sym string) string {
	title := strings.TrimSpace(d.doc.Find("title").First().Text())
	if title == "" {
		return ""
	}
	if i := strings.Index(title, " ("+types.NormalizeSymbol(sym)+")"); i > 0 {
		title = title[:i]
	}
	return strings.TrimSpace(title)
}

// Cell is one value of a statement row for one period column.
type Cell struct {
	Label  string
	Period string
	Value  string
}

// Raw is the source-formatted label, e.g. "EPS (Basic) (FY 2024)".
func (c Cell) Raw() string {
	return fmt.Sprintf("%s (%s)", c.Label, c.Period)
}

// Series reads the first table. Header cells after the first name the
// periods; body rows whose first cell is not in wanted are skipped and
// paywalled values are dropped.
func (d *Document) Series(wanted []string) ([]Cell, error) {
	table := d.doc.Find("table").First()
	if table.Length() == 0 {
		return nil, &ExtractError{Doc: d.name, Reason: "no table"}
	}
	header := table.Find("thead tr").First().Find("th, td")
	body := table.Find("tbody tr")
	if header.Length() == 0 {
		rows := table.Find("tr")
		header = rows.First().Find("th, td")
		body = rows.Slice(1, goquery.ToEnd)
	}
	if header.Length() < 2 {
		return nil, &ExtractError{Doc: d.name, Reason: "no period header"}
	}
	periods := texts(header)[1:]

	want := make(map[string]struct{}, len(wanted))
	for _, w := range wanted {
		want[w] = struct{}{}
	}

	var out []Cell
	body.Each(func(_ int, tr *goquery.Selection) {
		cols := texts(tr.Find("td, th"))
		if len(cols) == 0 {
			return
		}
		if _, ok := want[cols[0]]; !ok {
			return
		}
		for i, val := range cols[1:] {
			if i >= len(periods) {
				break
			}
			if val == Paywalled {
				continue
			}
			out = append(out, Cell{Label: cols[0], Period: periods[i], Value: val})
		}
	})
	return out, nil
}

func texts(s *goquery.Selection) []string {
	return s.Map(func(_ int, c *goquery.Selection) string {
		return strings.TrimSpace(c.Text())
	})
}

func orUnknown(v string) string {
	if v == "" {
		return types.Unknown
	}
	return v
}
