package excel

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/xuri/excelize/v2"

	"github.com/komsit37/stocksync/pkg/stocksync/types"
)

const (
	// LabelHeader heads column A of the group sheet, which is reserved.
	LabelHeader = "No."
	// DefaultGroup is created with a new group sheet.
	DefaultGroup = "Default Group"
	// firstGroupCol is column B.
	firstGroupCol = 2
)

var ErrGroupNotFound = errors.New("group not found")

// Groups stores the group model in one sheet of the local workbook: group
// names in row 1 from column B, each group's symbols below its name.
// Every operation is one load-modify-save cycle.
type Groups struct {
	path  string
	sheet string
	log   *slog.Logger
}

func NewGroups(path, sheet string, logger *slog.Logger) *Groups {
	if logger == nil {
		logger = slog.Default()
	}
	return &Groups{path: path, sheet: sheet, log: logger}
}

func (g *Groups) LoadGroups(ctx context.Context) (types.GroupModel, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	wb, err := openWorkbook(g.path)
	if err != nil {
		return nil, err
	}
	defer wb.close()

	if !wb.hasSheet(g.sheet) {
		return types.GroupModel{DefaultGroup: nil}, nil
	}
	cols, err := wb.f.GetCols(g.sheet)
	if err != nil {
		return nil, fmt.Errorf("read group sheet: %w", err)
	}
	groups := types.GroupModel{}
	for i := firstGroupCol - 1; i < len(cols); i++ {
		col := cols[i]
		if len(col) == 0 || col[0] == "" {
			continue
		}
		name := col[0]
		if _, ok := groups[name]; !ok {
			groups[name] = nil
		}
		for _, sym := range col[1:] {
			groups.Add(name, sym)
		}
	}
	return groups, nil
}

// SaveGroups replaces every group column with groups, sorted by name.
func (g *Groups) SaveGroups(ctx context.Context, groups types.GroupModel) error {
	return g.update(ctx, func(wb *workbook) error {
		n, err := g.groupCols(wb)
		if err != nil {
			return err
		}
		for ; n > 0; n-- {
			if err := wb.f.RemoveCol(g.sheet, "B"); err != nil {
				return err
			}
		}
		for i, name := range groups.Names() {
			if err := g.writeColumn(wb, firstGroupCol+i, name, groups[name]); err != nil {
				return err
			}
		}
		return nil
	})
}

func (g *Groups) RenameGroup(ctx context.Context, from, to string) error {
	return g.update(ctx, func(wb *workbook) error {
		if _, ok, err := g.find(wb, to); err != nil {
			return err
		} else if ok {
			return fmt.Errorf("group %q already exists", to)
		}
		col, ok, err := g.find(wb, from)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: %q", ErrGroupNotFound, from)
		}
		cell, _ := excelize.CoordinatesToCellName(col, 1)
		return wb.f.SetCellStr(g.sheet, cell, to)
	})
}

func (g *Groups) DeleteGroup(ctx context.Context, name string) error {
	return g.update(ctx, func(wb *workbook) error {
		col, ok, err := g.find(wb, name)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: %q", ErrGroupNotFound, name)
		}
		letter, err := excelize.ColumnNumberToName(col)
		if err != nil {
			return err
		}
		return wb.f.RemoveCol(g.sheet, letter)
	})
}

// UpdateGroup clears one group's column and rewrites its symbols.
func (g *Groups) UpdateGroup(ctx context.Context, name string, symbols []string) error {
	return g.update(ctx, func(wb *workbook) error {
		col, ok, err := g.find(wb, name)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: %q", ErrGroupNotFound, name)
		}
		cols, err := wb.f.GetCols(g.sheet)
		if err != nil {
			return err
		}
		if old := len(cols[col-1]); old > 1 {
			for r := 2; r <= old; r++ {
				cell, _ := excelize.CoordinatesToCellName(col, r)
				if err := wb.f.SetCellStr(g.sheet, cell, ""); err != nil {
					return err
				}
			}
		}
		return g.writeColumn(wb, col, name, symbols)
	})
}

func (g *Groups) update(ctx context.Context, fn func(*workbook) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	wb, err := openWorkbook(g.path)
	if err != nil {
		return err
	}
	defer wb.close()
	if err := g.ensure(wb); err != nil {
		return err
	}
	if err := fn(wb); err != nil {
		return err
	}
	if err := wb.save(); err != nil {
		return err
	}
	g.log.Debug("group sheet saved", slog.String("path", g.path), slog.String("sheet", g.sheet))
	return nil
}

// ensure creates the group sheet with its label column and a default group.
func (g *Groups) ensure(wb *workbook) error {
	created, err := wb.ensureSheet(g.sheet)
	if err != nil || !created {
		return err
	}
	if err := wb.f.SetCellStr(g.sheet, "A1", LabelHeader); err != nil {
		return err
	}
	return wb.f.SetCellStr(g.sheet, "B1", DefaultGroup)
}

// groupCols counts columns from B to the last used one.
func (g *Groups) groupCols(wb *workbook) (int, error) {
	cols, err := wb.f.GetCols(g.sheet)
	if err != nil {
		return 0, err
	}
	if len(cols) < firstGroupCol {
		return 0, nil
	}
	return len(cols) - (firstGroupCol - 1), nil
}

// find returns the 1-based column of the group named name.
func (g *Groups) find(wb *workbook, name string) (int, bool, error) {
	rows, err := wb.rows(g.sheet)
	if err != nil || len(rows) == 0 {
		return 0, false, err
	}
	for i := firstGroupCol - 1; i < len(rows[0]); i++ {
		if rows[0][i] == name {
			return i + 1, true, nil
		}
	}
	return 0, false, nil
}

func (g *Groups) writeColumn(wb *workbook, col int, name string, symbols []string) error {
	cells := []string{name}
	seen := map[string]bool{}
	for _, s := range symbols {
		s = types.NormalizeSymbol(s)
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		cells = append(cells, s)
	}
	cell, err := excelize.CoordinatesToCellName(col, 1)
	if err != nil {
		return err
	}
	return wb.f.SetSheetCol(g.sheet, cell, &cells)
}
