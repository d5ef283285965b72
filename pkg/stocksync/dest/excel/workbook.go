// Package excel implements the local workbook destination and the local
// group sheet on top of excelize. Other sheets, styles and macros in the
// workbook are left untouched.
package excel

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// defaultSheet is the sheet excelize.NewFile creates.
const defaultSheet = "Sheet1"

type workbook struct {
	f     *excelize.File
	path  string
	fresh bool
}

// openWorkbook opens path, or starts a new in-memory workbook when the file
// does not exist yet. Nothing is written until save.
func openWorkbook(path string) (*workbook, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return &workbook{f: excelize.NewFile(), path: path, fresh: true}, nil
	}
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook %s: %w", path, err)
	}
	return &workbook{f: f, path: path}, nil
}

func (w *workbook) hasSheet(name string) bool {
	idx, err := w.f.GetSheetIndex(name)
	return err == nil && idx >= 0
}

// ensureSheet creates name if missing. In a new workbook it replaces the
// placeholder sheet.
func (w *workbook) ensureSheet(name string) (bool, error) {
	if w.hasSheet(name) {
		return false, nil
	}
	idx, err := w.f.NewSheet(name)
	if err != nil {
		return false, fmt.Errorf("create sheet %q: %w", name, err)
	}
	if w.fresh && name != defaultSheet {
		w.f.SetActiveSheet(idx)
		if err := w.f.DeleteSheet(defaultSheet); err != nil {
			return false, fmt.Errorf("drop placeholder sheet: %w", err)
		}
	}
	w.fresh = false
	return true, nil
}

// rows returns the sheet's rows with trailing empty cells and rows removed.
// A missing sheet has no rows.
func (w *workbook) rows(sheet string) ([][]string, error) {
	if !w.hasSheet(sheet) {
		return nil, nil
	}
	rows, err := w.f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	for i := range rows {
		rows[i] = trimRow(rows[i])
	}
	n := len(rows)
	for n > 0 && len(rows[n-1]) == 0 {
		n--
	}
	return rows[:n], nil
}

func (w *workbook) setRow(sheet string, rowNumber int, cells []string) error {
	cell, err := excelize.CoordinatesToCellName(1, rowNumber)
	if err != nil {
		return err
	}
	return w.f.SetSheetRow(sheet, cell, &cells)
}

// blank clears columns from..to (1-based, inclusive) of rowNumber.
func (w *workbook) blank(sheet string, rowNumber, from, to int) error {
	for c := from; c <= to; c++ {
		cell, err := excelize.CoordinatesToCellName(c, rowNumber)
		if err != nil {
			return err
		}
		if err := w.f.SetCellStr(sheet, cell, ""); err != nil {
			return err
		}
	}
	return nil
}

// save writes the workbook next to its destination and renames it into
// place so readers never see a half-written file.
func (w *workbook) save() error {
	if dir := filepath.Dir(w.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create dir: %w", err)
		}
	}
	ext := filepath.Ext(w.path)
	tmp := strings.TrimSuffix(w.path, ext) + ".tmp" + ext
	if err := w.f.SaveAs(tmp); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("save %s: %w", w.path, err)
	}
	if err := os.Rename(tmp, w.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("replace %s: %w", w.path, err)
	}
	return nil
}

func (w *workbook) close() error { return w.f.Close() }

func trimRow(r []string) []string {
	n := len(r)
	for n > 0 && strings.TrimSpace(r[n-1]) == "" {
		n--
	}
	return r[:n]
}
