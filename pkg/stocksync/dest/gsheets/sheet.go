package gsheets

import (
	"context"
	"log/slog"

	"github.com/komsit37/stocksync/pkg/stocksync/dest"
	"github.com/komsit37/stocksync/pkg/stocksync/types"
)

// Sheet is the remote destination. Every change is written through as it
// happens, so a failed row leaves the others intact; Commit has nothing
// left to do.
//
// New rows go to an explicit row number one past the loaded body rather
// than through the API's append, which lands after the first table it
// detects and would shift rows below a blank gap.
type Sheet struct {
	client Client
	log    *slog.Logger
	header []string
	// next is the sheet row the next appended row is written to.
	next int
}

func NewSheet(client Client, logger *slog.Logger) *Sheet {
	if logger == nil {
		logger = slog.Default()
	}
	return &Sheet{client: client, log: logger}
}

func (s *Sheet) Name() string { return "remote" }

func (s *Sheet) Load(ctx context.Context) (dest.Table, error) {
	if err := s.client.EnsureSheet(ctx); err != nil {
		return dest.Table{}, &dest.LoadError{Destination: s.Name(), Err: err}
	}
	header, err := s.client.GetHeader(ctx)
	if err != nil {
		return dest.Table{}, &dest.LoadError{Destination: s.Name(), Err: err}
	}
	rows, err := s.client.GetRows(ctx)
	if err != nil {
		return dest.Table{}, &dest.LoadError{Destination: s.Name(), Err: err}
	}
	s.header = header
	s.next = dest.RowNumber(len(rows))
	return dest.Table{Header: header, Rows: rows}, nil
}

func (s *Sheet) SetHeader(ctx context.Context, header []string) error {
	if err := s.client.SetHeader(ctx, header); err != nil {
		return err
	}
	s.header = append([]string(nil), header...)
	return nil
}

func (s *Sheet) UpdateRow(ctx context.Context, rowNumber int, row []string) error {
	return s.client.UpdateRow(ctx, rowNumber, row)
}

func (s *Sheet) AppendRow(ctx context.Context, row []string) error {
	if s.next < dest.RowNumber(0) {
		s.next = dest.RowNumber(0)
	}
	if err := s.client.UpdateRow(ctx, s.next, row); err != nil {
		return err
	}
	s.next++
	return nil
}

func (s *Sheet) ReplaceRows(ctx context.Context, rows [][]string) error {
	all := make([][]string, 0, len(rows)+1)
	all = append(all, s.header)
	all = append(all, rows...)
	if err := s.client.ClearAndReplaceAll(ctx, all); err != nil {
		return err
	}
	s.next = dest.RowNumber(len(rows))
	return nil
}

func (s *Sheet) Commit(context.Context) error { return nil }

// GroupSheet writes the whole group model to a dedicated worksheet.
type GroupSheet struct {
	client Client
}

func NewGroupSheet(client Client) *GroupSheet {
	return &GroupSheet{client: client}
}

// ReplaceGroups clears the worksheet and rewrites it from groups.
func (g *GroupSheet) ReplaceGroups(ctx context.Context, groups types.GroupModel) error {
	if err := g.client.EnsureSheet(ctx); err != nil {
		return err
	}
	return g.client.ClearAndReplaceAll(ctx, GroupLayout(groups))
}

// GroupLayout lays groups out as columns: sorted names in the first row,
// each group's symbols below its name, short columns padded with "".
func GroupLayout(groups types.GroupModel) [][]string {
	names := groups.Names()
	if len(names) == 0 {
		return nil
	}
	depth := 0
	for _, n := range names {
		if len(groups[n]) > depth {
			depth = len(groups[n])
		}
	}
	rows := make([][]string, depth+1)
	rows[0] = names
	for r := 1; r <= depth; r++ {
		row := make([]string, len(names))
		for c, n := range names {
			if r-1 < len(groups[n]) {
				row[c] = groups[n][r-1]
			}
		}
		rows[r] = row
	}
	return rows
}
