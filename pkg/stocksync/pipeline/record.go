package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/komsit37/stocksync/pkg/stocksync/columns"
	"github.com/komsit37/stocksync/pkg/stocksync/extract"
	"github.com/komsit37/stocksync/pkg/stocksync/fetch"
	"github.com/komsit37/stocksync/pkg/stocksync/types"
)

// URLs are the three documents fetched per symbol.
type URLs struct {
	Overview     string
	Statement    string
	BalanceSheet string
}

func SymbolURLs(base, sym string) URLs {
	root := strings.TrimRight(base, "/") + "/stocks/" + url.PathEscape(strings.ToLower(types.NormalizeSymbol(sym))) + "/"
	return URLs{
		Overview:     root,
		Statement:    root + "financials/",
		BalanceSheet: root + "financials/balance-sheet/",
	}
}

// FetchRecord fetches and extracts one symbol. An overview failure fails
// the symbol; statement failures are logged and leave the series partial.
func (r *Runner) FetchRecord(ctx context.Context, sym string) (types.MetricRecord, error) {
	rec := types.NewMetricRecord(sym)
	u := SymbolURLs(r.BaseURL, rec.Symbol)
	log := r.log().With(slog.String("symbol", rec.Symbol))

	var (
		overview, statement, balance *fetch.Response
		stmtErr, balErr              error
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		overview, err = r.Fetcher.Get(gctx, u.Overview)
		return err
	})
	g.Go(func() error {
		statement, stmtErr = r.Fetcher.Get(gctx, u.Statement)
		return nil
	})
	g.Go(func() error {
		balance, balErr = r.Fetcher.Get(gctx, u.BalanceSheet)
		return nil
	})
	if err := g.Wait(); err != nil {
		return rec, err
	}

	doc, err := extract.Parse(u.Overview, overview.Body)
	if err != nil {
		return rec, err
	}
	ov, err := doc.Overview()
	if err != nil {
		log.Warn("overview incomplete", slog.String("error", err.Error()))
	}
	rec.Overview = ov
	rec.Company = doc.Title(rec.Symbol)
	if rec.Company == "" {
		rec.Company = r.fallbackTitle(ctx, log, rec.Symbol)
	}

	// Balance sheet values win over statement values for the same period.
	r.addSeries(log, &rec, statement, stmtErr, u.Statement, extract.StatementLabels)
	r.addSeries(log, &rec, balance, balErr, u.BalanceSheet, extract.BalanceSheetLabels)
	return rec, nil
}

func (r *Runner) addSeries(log *slog.Logger, rec *types.MetricRecord, resp *fetch.Response, fetchErr error, name string, labels []string) {
	if fetchErr != nil {
		log.Warn("statement unavailable", slog.String("url", name), slog.String("error", fetchErr.Error()))
		return
	}
	doc, err := extract.Parse(name, resp.Body)
	if err != nil {
		log.Warn("statement unreadable", slog.String("url", name), slog.String("error", err.Error()))
		return
	}
	cells, err := doc.Series(labels)
	if err != nil {
		log.Warn("statement incomplete", slog.String("url", name), slog.String("error", err.Error()))
	}
	for _, c := range cells {
		rec.Series[columns.ParseField(c.Raw())] = c.Value
	}
}

func (r *Runner) fallbackTitle(ctx context.Context, log *slog.Logger, sym string) string {
	if r.Titles == nil {
		return types.Unknown
	}
	t, err := r.Titles.Title(ctx, sym)
	if err != nil || strings.TrimSpace(t) == "" {
		if err == nil {
			err = fmt.Errorf("empty title")
		}
		log.Debug("title lookup failed", slog.String("error", err.Error()))
		return types.Unknown
	}
	return strings.TrimSpace(t)
}
