package excel

import (
	"context"
	"errors"
	"log/slog"

	"github.com/komsit37/stocksync/pkg/stocksync/dest"
)

// Sheet is the local workbook destination. Changes are buffered between
// Load and Commit; Commit writes them with one atomic save.
type Sheet struct {
	dest.Buffer

	path  string
	sheet string
	log   *slog.Logger

	wb *workbook
	// loaded holds the width of each row at load time, header first, so
	// Commit can blank cells a shorter row no longer covers.
	loaded []int
}

func NewSheet(path, sheet string, logger *slog.Logger) *Sheet {
	if logger == nil {
		logger = slog.Default()
	}
	return &Sheet{path: path, sheet: sheet, log: logger}
}

func (s *Sheet) Name() string { return "local" }

func (s *Sheet) Load(ctx context.Context) (dest.Table, error) {
	if err := ctx.Err(); err != nil {
		return dest.Table{}, err
	}
	s.discard()
	wb, err := openWorkbook(s.path)
	if err != nil {
		return dest.Table{}, &dest.LoadError{Destination: s.Name(), Err: err}
	}
	rows, err := wb.rows(s.sheet)
	if err != nil {
		_ = wb.close()
		return dest.Table{}, &dest.LoadError{Destination: s.Name(), Err: err}
	}

	var t dest.Table
	s.loaded = s.loaded[:0]
	for i, r := range rows {
		s.loaded = append(s.loaded, len(r))
		if i == 0 {
			t.Header = r
			continue
		}
		t.Rows = append(t.Rows, r)
	}
	s.wb = wb
	s.Reset(t)
	s.log.Debug("sheet loaded", slog.String("path", s.path), slog.String("sheet", s.sheet), slog.Int("rows", len(t.Rows)))
	return s.Snapshot(), nil
}

func (s *Sheet) Commit(ctx context.Context) error {
	if s.wb == nil {
		return &dest.CommitError{Destination: s.Name(), Err: errors.New("commit without load")}
	}
	defer s.discard()
	if err := ctx.Err(); err != nil {
		return &dest.CommitError{Destination: s.Name(), Err: err}
	}
	if err := s.write(); err != nil {
		return &dest.CommitError{Destination: s.Name(), Err: err}
	}
	if err := s.wb.save(); err != nil {
		return &dest.CommitError{Destination: s.Name(), Err: err}
	}
	s.log.Info("sheet saved", slog.String("path", s.path), slog.String("sheet", s.sheet))
	return nil
}

func (s *Sheet) write() error {
	if _, err := s.wb.ensureSheet(s.sheet); err != nil {
		return err
	}
	t := s.Snapshot()
	if s.HeaderChanged() {
		if err := s.writeRow(1, t.Header); err != nil {
			return err
		}
	}
	for _, i := range s.Dirty() {
		if err := s.writeRow(dest.RowNumber(i), t.Rows[i]); err != nil {
			return err
		}
	}
	// A replaced body may be shorter than the loaded one.
	for n := dest.RowNumber(len(t.Rows)); n <= len(s.loaded); n++ {
		if err := s.wb.blank(s.sheet, n, 1, s.loaded[n-1]); err != nil {
			return err
		}
	}
	return nil
}

func (s *Sheet) writeRow(rowNumber int, cells []string) error {
	if err := s.wb.setRow(s.sheet, rowNumber, cells); err != nil {
		return err
	}
	if old := s.loadedWidth(rowNumber); old > len(cells) {
		return s.wb.blank(s.sheet, rowNumber, len(cells)+1, old)
	}
	return nil
}

func (s *Sheet) loadedWidth(rowNumber int) int {
	if rowNumber-1 < len(s.loaded) {
		return s.loaded[rowNumber-1]
	}
	return 0
}

func (s *Sheet) discard() {
	if s.wb != nil {
		_ = s.wb.close()
		s.wb = nil
	}
}
