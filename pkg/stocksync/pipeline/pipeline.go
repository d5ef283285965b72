// Package pipeline drives one fetch-and-reconcile pass: fetch every symbol
// in input order, build its record, then reconcile the batch into each
// destination.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/google/uuid"

	"github.com/komsit37/stocksync/pkg/stocksync/columns"
	"github.com/komsit37/stocksync/pkg/stocksync/dest"
	"github.com/komsit37/stocksync/pkg/stocksync/enrich"
	"github.com/komsit37/stocksync/pkg/stocksync/fetch"
	"github.com/komsit37/stocksync/pkg/stocksync/filter"
	"github.com/komsit37/stocksync/pkg/stocksync/metrics"
	"github.com/komsit37/stocksync/pkg/stocksync/source"
	"github.com/komsit37/stocksync/pkg/stocksync/types"
	"github.com/komsit37/stocksync/pkg/stocksync/upsert"
)

type Runner struct {
	Fetcher fetch.Fetcher
	// Titles resolves company names missing from the overview page. Optional.
	Titles       enrich.TitleService
	Writer       *upsert.Writer
	Destinations []dest.Destination
	BaseURL      string
	Template     []string

	Source   source.Source
	Renderer Renderer
	Out      io.Writer

	Sink    Sink
	Logger  *slog.Logger
	Metrics *metrics.Metrics
}

// Renderer prints a finished pass.
type Renderer interface {
	Render(w io.Writer, rep *Report) error
}

// SymbolResult is the outcome for one input symbol.
type SymbolResult struct {
	Symbol string
	Record types.MetricRecord
	Err    error
}

func (s SymbolResult) OK() bool { return s.Err == nil }

// DestinationResult is the outcome for one destination.
type DestinationResult struct {
	upsert.Result
	Err error
}

type Report struct {
	RunID        string
	Schema       []string
	Symbols      []SymbolResult
	Destinations []DestinationResult
}

// Succeeded counts symbols whose record was built.
func (r *Report) Succeeded() int {
	n := 0
	for _, s := range r.Symbols {
		if s.OK() {
			n++
		}
	}
	return n
}

// Records returns the built records in input order.
func (r *Report) Records() []types.MetricRecord {
	var out []types.MetricRecord
	for _, s := range r.Symbols {
		if s.OK() {
			out = append(out, s.Record)
		}
	}
	return out
}

func (r *Runner) log() *slog.Logger {
	if r.Logger == nil {
		return slog.Default()
	}
	return r.Logger
}

func (r *Runner) sink() Sink {
	if r.Sink == nil {
		return Discard
	}
	return r.Sink
}

// Run processes symbols in order and reconciles the records into every
// destination. A symbol failure is reported and skipped. Destination load
// or commit failures are collected and returned joined after all
// destinations were tried; the report is complete either way.
func (r *Runner) Run(ctx context.Context, symbols []string) (*Report, error) {
	rep := &Report{RunID: uuid.NewString()}
	log := r.log().With(slog.String("run_id", rep.RunID))
	sink := r.sink()

	symbols = normalize(symbols)
	total := len(symbols)
	log.Info("pass started", slog.Int("symbols", total), slog.Int("destinations", len(r.Destinations)))

	for i, sym := range symbols {
		if err := ctx.Err(); err != nil {
			return rep, err
		}
		rec, err := r.FetchRecord(ctx, sym)
		rep.Symbols = append(rep.Symbols, SymbolResult{Symbol: sym, Record: rec, Err: err})
		ev := Event{RunID: rep.RunID, Symbol: sym, Company: rec.Company, Done: i + 1, Total: total}
		if err != nil {
			r.Metrics.Symbol("error")
			ev.Kind, ev.Message, ev.Err = EventSymbolFailed, "symbol failed", err
		} else {
			r.Metrics.Symbol("ok")
			ev.Kind, ev.Message = EventSymbolDone, "symbol fetched"
		}
		sink.Emit(ev)
	}

	records := rep.Records()
	rep.Schema = columns.BuildSchema(columns.SeenColumns(records), r.Template)

	var errs []error
	if len(records) > 0 {
		for _, d := range r.Destinations {
			res, err := r.Writer.Reconcile(ctx, d, rep.Schema, records)
			rep.Destinations = append(rep.Destinations, DestinationResult{Result: res, Err: err})
			ev := Event{Kind: EventDestination, RunID: rep.RunID, Done: total, Total: total, Err: err,
				Message: fmt.Sprintf("%s: %d updated, %d added, %d failed", d.Name(), res.Updated, res.Inserted, len(res.Failed))}
			sink.Emit(ev)
			if err != nil {
				errs = append(errs, err)
			}
		}
	} else {
		log.Warn("no records to write")
	}

	summary := fmt.Sprintf("%d/%d symbols synced", rep.Succeeded(), total)
	sink.Emit(Event{Kind: EventSummary, RunID: rep.RunID, Message: summary, Done: rep.Succeeded(), Total: total})
	log.Info("pass finished", slog.Int("succeeded", rep.Succeeded()), slog.Int("total", total))
	return rep, errors.Join(errs...)
}

type ExecuteOptions struct {
	Filter filter.Filter
	// Symbols, when set, bypasses the group source.
	Symbols []string
}

// Execute resolves the symbol list from the group source, runs a pass and
// renders the report.
func (r *Runner) Execute(ctx context.Context, opts ExecuteOptions) error {
	symbols := opts.Symbols
	if len(symbols) == 0 {
		if r.Source == nil {
			return errors.New("no symbols and no group source")
		}
		groups, err := r.Source.Load(ctx)
		if err != nil {
			return fmt.Errorf("load groups: %w", err)
		}
		var filt filter.Filter = filter.Always(true)
		if opts.Filter != nil {
			filt = opts.Filter
		}
		symbols = filter.Symbols(groups, filt)
	}
	rep, runErr := r.Run(ctx, symbols)
	if r.Renderer != nil && r.Out != nil {
		if err := r.Renderer.Render(r.Out, rep); err != nil {
			return errors.Join(runErr, err)
		}
	}
	return runErr
}

func normalize(symbols []string) []string {
	out := make([]string, 0, len(symbols))
	seen := map[string]struct{}{}
	for _, s := range symbols {
		s = types.NormalizeSymbol(s)
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
