package render

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/komsit37/stocksync/pkg/stocksync/columns"
	"github.com/komsit37/stocksync/pkg/stocksync/pipeline"
	"github.com/komsit37/stocksync/pkg/stocksync/upsert"
)

// maxColumns bounds the per-column width configs.
const maxColumns = 64

// ttmKey is the period key columns.PeriodKey gives trailing-twelve-month columns.
const ttmKey = 9999

type TableRenderer struct{ Opts Options }

func (r *TableRenderer) Render(w io.Writer, rep *pipeline.Report) error {
	cols := displayColumns(rep.Schema)

	tw := r.newWriter(w)
	hdr := table.Row{"STATUS"}
	for _, c := range cols {
		hdr = append(hdr, c)
	}
	tw.AppendHeader(hdr)

	for _, s := range rep.Symbols {
		status := "ok"
		if !s.OK() {
			status = "fail"
		}
		if r.Opts.Color {
			if s.OK() {
				status = text.Colors{text.FgGreen}.Sprint(status)
			} else {
				status = text.Colors{text.FgRed}.Sprint(status)
			}
		}
		row := table.Row{status}
		if !s.OK() {
			row = append(row, s.Symbol, s.Err.Error())
			for len(row) < len(hdr) {
				row = append(row, "")
			}
			tw.AppendRow(row)
			continue
		}
		for _, v := range upsert.BuildRow(cols, s.Record, time.Time{}) {
			row = append(row, v)
		}
		tw.AppendRow(row)
	}
	tw.Render()

	if len(rep.Destinations) > 0 {
		fmt.Fprintln(w)
		dw := r.newWriter(w)
		dw.AppendHeader(table.Row{"DESTINATION", "UPDATED", "ADDED", "FAILED", "ERROR"})
		for _, d := range rep.Destinations {
			errText := ""
			if d.Err != nil {
				errText = d.Err.Error()
			}
			dw.AppendRow(table.Row{d.Destination, d.Updated, d.Inserted, len(d.Failed), errText})
		}
		dw.Render()
	}
	_, err := fmt.Fprintf(w, "%d/%d symbols synced\n", rep.Succeeded(), len(rep.Symbols))
	return err
}

func (r *TableRenderer) newWriter(w io.Writer) table.Writer {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	if r.Opts.Color {
		tw.SetStyle(table.StyleColoredDark)
	} else {
		tw.SetStyle(table.StyleLight)
	}
	tw.Style().Options.DrawBorder = false
	tw.Style().Options.SeparateRows = false
	maxWidth := r.Opts.MaxColWidth
	if maxWidth <= 0 {
		maxWidth = 40
	}
	cfgs := make([]table.ColumnConfig, 0, maxColumns)
	for i := 1; i <= maxColumns; i++ {
		cfgs = append(cfgs, table.ColumnConfig{Number: i, WidthMax: maxWidth})
	}
	tw.SetColumnConfigs(cfgs)
	return tw
}

// displayColumns drops the timestamp, which is only meaningful once written.
func displayColumns(schema []string) []string {
	out := make([]string, 0, len(schema))
	for _, c := range schema {
		if c != columns.Updated {
			out = append(out, c)
		}
	}
	return out
}

// Schema prints the computed column order with each column's period key.
func Schema(w io.Writer, schema []string, opts Options) error {
	r := &TableRenderer{Opts: opts}
	tw := r.newWriter(w)
	tw.AppendHeader(table.Row{"#", "COLUMN", "PERIOD"})
	for i, c := range schema {
		period := ""
		if k := columns.PeriodKey(c); k > 0 {
			period = strconv.Itoa(k)
			if k == ttmKey {
				period = "TTM"
			}
		}
		tw.AppendRow(table.Row{i + 1, c, period})
	}
	tw.Render()
	return nil
}
