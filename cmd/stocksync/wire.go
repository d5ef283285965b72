package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/komsit37/stocksync/pkg/stocksync/dest"
	"github.com/komsit37/stocksync/pkg/stocksync/dest/excel"
	"github.com/komsit37/stocksync/pkg/stocksync/dest/gsheets"
	"github.com/komsit37/stocksync/pkg/stocksync/dest/pgstore"
	"github.com/komsit37/stocksync/pkg/stocksync/enrich"
	"github.com/komsit37/stocksync/pkg/stocksync/fetch"
	"github.com/komsit37/stocksync/pkg/stocksync/groupsync"
	"github.com/komsit37/stocksync/pkg/stocksync/source"
	"github.com/komsit37/stocksync/pkg/stocksync/types"
)

const (
	titleTimeout   = 5 * time.Second
	titleCacheTTL  = time.Hour
	titleCacheSize = 1024
)

func (a *app) fetcher() *fetch.Client {
	f := a.cfg.Fetch
	return fetch.New(fetch.Options{
		Timeout:           f.Timeout,
		MaxAttempts:       f.MaxAttempts,
		BackoffMin:        f.BackoffMin,
		BackoffMax:        f.BackoffMax,
		RequestsPerSecond: f.RequestsPerSecond,
		Logger:            a.log,
		Metrics:           a.metrics,
	})
}

func (a *app) titles() enrich.TitleService {
	return enrich.NewCacheService(enrich.NewYFService(titleTimeout), titleCacheTTL, titleCacheSize)
}

// destinations opens every configured destination. The returned func
// releases their resources.
func (a *app) destinations(ctx context.Context) ([]dest.Destination, func(), error) {
	var (
		out     []dest.Destination
		closers []func()
	)
	cleanup := func() {
		for _, c := range closers {
			c()
		}
	}

	if a.cfg.Local.Path != "" {
		out = append(out, excel.NewSheet(a.cfg.Local.Path, a.cfg.Local.Sheet, a.log))
	}
	if a.cfg.Remote.SpreadsheetID != "" {
		client, err := a.remoteClient(ctx, a.cfg.Remote.Sheet)
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		out = append(out, gsheets.NewSheet(client, a.log))
	}
	if a.cfg.Postgres.DSN != "" {
		pool, err := pgstore.Open(ctx, a.cfg.Postgres.DSN)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("open postgres: %w", err)
		}
		closers = append(closers, pool.Close)
		out = append(out, pgstore.New(pool, a.cfg.Postgres.Sheet, a.log))
	}
	if len(out) == 0 {
		return nil, nil, errors.New("no destination configured: set local.path, remote.spreadsheet_id or postgres.dsn")
	}
	return out, cleanup, nil
}

func (a *app) remoteClient(ctx context.Context, sheet string) (*gsheets.SheetsClient, error) {
	svc, err := gsheets.NewService(ctx, a.cfg.Remote.CredentialsFile)
	if err != nil {
		return nil, fmt.Errorf("open remote spreadsheet: %w", err)
	}
	return gsheets.NewSheetsClient(svc, a.cfg.Remote.SpreadsheetID, sheet), nil
}

// groupSource prefers the YAML group file and falls back to the local
// workbook's group sheet.
func (a *app) groupSource() (source.Source, error) {
	if a.cfg.Groups.File != "" {
		return source.YAMLSource{Path: a.cfg.Groups.File}, nil
	}
	if a.cfg.Local.Path != "" {
		return source.WorkbookSource{Groups: excel.NewGroups(a.cfg.Local.Path, a.cfg.Local.GroupSheet, a.log)}, nil
	}
	return nil, errors.New("no group source configured: set groups.file or local.path")
}

var errNoGroupDestination = errors.New("no group destination configured: set remote.spreadsheet_id, or local.path with groups.file")

// groupWriter mirrors group snapshots to the remote group sheet and, when
// groups come from a YAML file, to the local workbook's group sheet.
func (a *app) groupWriter(ctx context.Context) (groupsync.Writer, error) {
	var writers []groupsync.Writer
	if a.cfg.Remote.SpreadsheetID != "" {
		client, err := a.remoteClient(ctx, a.cfg.Remote.GroupSheet)
		if err != nil {
			return nil, err
		}
		writers = append(writers, gsheets.NewGroupSheet(client))
	}
	if a.cfg.Local.Path != "" && a.cfg.Groups.File != "" {
		local := excel.NewGroups(a.cfg.Local.Path, a.cfg.Local.GroupSheet, a.log)
		writers = append(writers, groupsync.WriterFunc(local.SaveGroups))
	}
	if len(writers) == 0 {
		return nil, errNoGroupDestination
	}
	return groupsync.WriterFunc(func(ctx context.Context, groups types.GroupModel) error {
		var errs []error
		for _, w := range writers {
			if err := w.ReplaceGroups(ctx, groups); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	}), nil
}
