// Package pgstore keeps a sheet-shaped copy of the metrics table in
// Postgres. Rows are stored as text arrays keyed by sheet and row number,
// so the store mirrors the spreadsheet destinations exactly.
package pgstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/komsit37/stocksync/pkg/stocksync/dest"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS sheet_headers (
	sheet  text PRIMARY KEY,
	header text[] NOT NULL
);
CREATE TABLE IF NOT EXISTS sheet_rows (
	sheet   text    NOT NULL,
	row_num integer NOT NULL,
	cells   text[]  NOT NULL,
	PRIMARY KEY (sheet, row_num)
);`

// Open connects to dsn and creates the tables if needed.
func Open(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	cfg.MaxConns = 2
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	if _, err := pool.Exec(ctx, schemaSQL); err != nil {
		pool.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return pool, nil
}

// Store is a buffered destination; Commit applies all changes in one
// transaction.
type Store struct {
	dest.Buffer

	pool  *pgxpool.Pool
	sheet string
	log   *slog.Logger
	ready bool
}

func New(pool *pgxpool.Pool, sheet string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{pool: pool, sheet: sheet, log: logger}
}

func (s *Store) Name() string { return "postgres" }

func (s *Store) Load(ctx context.Context) (dest.Table, error) {
	t, err := s.load(ctx)
	if err != nil {
		return dest.Table{}, &dest.LoadError{Destination: s.Name(), Err: err}
	}
	s.Reset(t)
	s.ready = true
	return s.Snapshot(), nil
}

func (s *Store) load(ctx context.Context) (dest.Table, error) {
	var t dest.Table
	err := s.pool.QueryRow(ctx, `SELECT header FROM sheet_headers WHERE sheet = $1`, s.sheet).Scan(&t.Header)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return t, fmt.Errorf("read header: %w", err)
	}
	rows, err := s.pool.Query(ctx, `SELECT row_num, cells FROM sheet_rows WHERE sheet = $1 ORDER BY row_num`, s.sheet)
	if err != nil {
		return t, fmt.Errorf("read rows: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			n     int
			cells []string
		)
		if err := rows.Scan(&n, &cells); err != nil {
			return t, fmt.Errorf("scan row: %w", err)
		}
		// Gaps in row numbers become empty rows so positions line up.
		for len(t.Rows) < n-2 {
			t.Rows = append(t.Rows, nil)
		}
		t.Rows = append(t.Rows, cells)
	}
	return t, rows.Err()
}

func (s *Store) Commit(ctx context.Context) error {
	if !s.ready {
		return &dest.CommitError{Destination: s.Name(), Err: errors.New("commit without load")}
	}
	s.ready = false
	t := s.Snapshot()
	dirty := s.Dirty()

	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		b := &pgx.Batch{}
		if s.HeaderChanged() {
			b.Queue(`INSERT INTO sheet_headers (sheet, header) VALUES ($1, $2)
				ON CONFLICT (sheet) DO UPDATE SET header = EXCLUDED.header`, s.sheet, t.Header)
		}
		for _, i := range dirty {
			cells := t.Rows[i]
			if cells == nil {
				cells = []string{}
			}
			b.Queue(`INSERT INTO sheet_rows (sheet, row_num, cells) VALUES ($1, $2, $3)
				ON CONFLICT (sheet, row_num) DO UPDATE SET cells = EXCLUDED.cells`, s.sheet, dest.RowNumber(i), cells)
		}
		if s.Replaced() {
			b.Queue(`DELETE FROM sheet_rows WHERE sheet = $1 AND row_num > $2`, s.sheet, dest.RowNumber(len(t.Rows)-1))
		}
		if b.Len() == 0 {
			return nil
		}
		return tx.SendBatch(ctx, b).Close()
	})
	if err != nil {
		return &dest.CommitError{Destination: s.Name(), Err: err}
	}
	s.log.Info("postgres sheet committed", slog.String("sheet", s.sheet), slog.Int("rows", len(dirty)))
	return nil
}
