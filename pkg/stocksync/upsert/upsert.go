// Package upsert reconciles a batch of metric records into a destination,
// keyed case-insensitively by symbol.
package upsert

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/komsit37/stocksync/pkg/stocksync/columns"
	"github.com/komsit37/stocksync/pkg/stocksync/dest"
	"github.com/komsit37/stocksync/pkg/stocksync/metrics"
	"github.com/komsit37/stocksync/pkg/stocksync/types"
)

// TimeFormat is the layout of the Updated column.
const TimeFormat = "2006-01-02 15:04:05"

type Options struct {
	// Reflow moves existing body cells to their column's new position when
	// the header changes. Off by default: the header is replaced in place
	// and untouched rows keep their old alignment.
	Reflow  bool
	Now     func() time.Time
	Logger  *slog.Logger
	Metrics *metrics.Metrics
}

type Writer struct {
	opts Options
	log  *slog.Logger
}

func New(opts Options) *Writer {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	w := &Writer{opts: opts, log: opts.Logger}
	if w.log == nil {
		w.log = slog.Default()
	}
	return w
}

// Result summarizes one destination pass.
type Result struct {
	Destination   string
	Header        []string
	HeaderChanged bool
	Reflowed      bool
	Inserted      int
	Updated       int
	Failed        []*dest.WriteError
}

// Reconcile loads d, migrates its header to schema, updates the row of every
// record whose symbol already exists and appends the rest in input order,
// then commits. Load and commit failures abort and are returned; a failed
// row is logged, recorded in Result.Failed and skipped.
func (w *Writer) Reconcile(ctx context.Context, d dest.Destination, schema []string, records []types.MetricRecord) (Result, error) {
	res := Result{Destination: d.Name(), Header: schema}
	log := w.log.With(slog.String("destination", d.Name()))

	t, err := d.Load(ctx)
	if err != nil {
		var le *dest.LoadError
		if !errors.As(err, &le) {
			err = &dest.LoadError{Destination: d.Name(), Err: err}
		}
		return res, err
	}

	// Body rows stay in the loaded layout unless reflowed.
	bodyHeader := t.Header
	rows := t.Rows
	if !sameHeader(t.Header, schema) {
		if err := d.SetHeader(ctx, schema); err != nil {
			return res, &dest.CommitError{Destination: d.Name(), Err: err}
		}
		res.HeaderChanged = true
		log.Info("header migrated", slog.Int("old_columns", len(trimTrailing(t.Header))), slog.Int("new_columns", len(schema)))
		if w.opts.Reflow && len(trimTrailing(t.Header)) > 0 && len(rows) > 0 {
			rows = Reflow(rows, t.Header, schema)
			if err := d.ReplaceRows(ctx, rows); err != nil {
				return res, &dest.CommitError{Destination: d.Name(), Err: err}
			}
			bodyHeader = schema
			res.Reflowed = true
		}
	}

	index := IndexRows(rows, symbolColumn(bodyHeader))
	next := dest.RowNumber(len(rows))
	for _, r := range records {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		key := types.NormalizeSymbol(r.Symbol)
		if key == "" {
			continue
		}
		row := BuildRow(schema, r, w.opts.Now())
		if n, ok := index[key]; ok {
			if err := d.UpdateRow(ctx, n, row); err != nil {
				res.Failed = append(res.Failed, w.rowFailed(log, d.Name(), r, n, err))
				continue
			}
			res.Updated++
			w.opts.Metrics.Row(d.Name(), "update")
			log.Info("row updated", slog.String("symbol", r.Symbol), slog.String("company", r.Company), slog.Int("row", n))
			continue
		}
		if err := d.AppendRow(ctx, row); err != nil {
			res.Failed = append(res.Failed, w.rowFailed(log, d.Name(), r, next, err))
			continue
		}
		index[key] = next
		res.Inserted++
		w.opts.Metrics.Row(d.Name(), "insert")
		log.Info("row added", slog.String("symbol", r.Symbol), slog.String("company", r.Company), slog.Int("row", next))
		next++
	}

	if err := d.Commit(ctx); err != nil {
		var ce *dest.CommitError
		if !errors.As(err, &ce) {
			err = &dest.CommitError{Destination: d.Name(), Err: err}
		}
		return res, err
	}
	return res, nil
}

func (w *Writer) rowFailed(log *slog.Logger, name string, r types.MetricRecord, row int, err error) *dest.WriteError {
	we := &dest.WriteError{Destination: name, Symbol: r.Symbol, Company: r.Company, Row: row, Err: err}
	w.opts.Metrics.Row(name, "error")
	log.Error("row write failed",
		slog.String("symbol", r.Symbol),
		slog.String("company", r.Company),
		slog.Int("row", row),
		slog.String("error", err.Error()))
	return we
}

// IndexRows maps upper-cased symbols to sheet row numbers. The first
// occurrence of a duplicated symbol wins.
func IndexRows(rows [][]string, symCol int) map[string]int {
	idx := make(map[string]int, len(rows))
	for i, row := range rows {
		if symCol >= len(row) {
			continue
		}
		key := types.NormalizeSymbol(row[symCol])
		if key == "" {
			continue
		}
		if _, ok := idx[key]; !ok {
			idx[key] = dest.RowNumber(i)
		}
	}
	return idx
}

// BuildRow lays r out under schema, stamping Updated with now.
func BuildRow(schema []string, r types.MetricRecord, now time.Time) []string {
	series := make(map[string]string, len(r.Series))
	for k, v := range r.Series {
		series[k.Column()] = v
	}
	row := make([]string, len(schema))
	for i, col := range schema {
		var v string
		switch col {
		case columns.Symbol:
			v = r.Symbol
		case columns.Company:
			v = r.Company
		case columns.SharesOut:
			v = r.SharesOut
		case columns.PERatio:
			v = r.PERatio
		case columns.PriceTarget:
			v = r.PriceTarget
		case columns.Updated:
			v = now.Format(TimeFormat)
		default:
			v = series[col]
		}
		row[i] = orUnknown(v)
	}
	return row
}

// Reflow moves each cell of rows from its position under from to the
// position of the same column name under to. Columns absent from from are
// left empty.
func Reflow(rows [][]string, from, to []string) [][]string {
	old := columns.Index(from)
	out := make([][]string, len(rows))
	for i, row := range rows {
		nr := make([]string, len(to))
		for j, col := range to {
			if k, ok := old[col]; ok && k < len(row) {
				nr[j] = row[k]
			}
		}
		out[i] = nr
	}
	return out
}

func symbolColumn(header []string) int {
	if i, ok := columns.Index(header)[columns.Symbol]; ok {
		return i
	}
	return 0
}

func sameHeader(a, b []string) bool {
	a, b = trimTrailing(a), trimTrailing(b)
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if strings.TrimSpace(a[i]) != strings.TrimSpace(b[i]) {
			return false
		}
	}
	return true
}

func trimTrailing(s []string) []string {
	n := len(s)
	for n > 0 && strings.TrimSpace(s[n-1]) == "" {
		n--
	}
	return s[:n]
}

func orUnknown(v string) string {
	switch strings.TrimSpace(v) {
	case "", "NA", "N/A":
		return types.Unknown
	}
	return v
}
