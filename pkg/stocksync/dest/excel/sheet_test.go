package excel

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/komsit37/stocksync/pkg/stocksync/columns"
	"github.com/komsit37/stocksync/pkg/stocksync/dest"
	"github.com/komsit37/stocksync/pkg/stocksync/types"
	"github.com/komsit37/stocksync/pkg/stocksync/upsert"
)

func writeFixture(t *testing.T, path string, sheets map[string][][]string) {
	t.Helper()
	f := excelize.NewFile()
	for name, rows := range sheets {
		_, err := f.NewSheet(name)
		require.NoError(t, err)
		for i, r := range rows {
			cell, _ := excelize.CoordinatesToCellName(1, i+1)
			row := r
			require.NoError(t, f.SetSheetRow(name, cell, &row))
		}
	}
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())
}

func readSheet(t *testing.T, path, sheet string) [][]string {
	t.Helper()
	wb, err := openWorkbook(path)
	require.NoError(t, err)
	defer wb.close()
	rows, err := wb.rows(sheet)
	require.NoError(t, err)
	return rows
}

func TestSheetLoadMissingFile(t *testing.T) {
	s := NewSheet(filepath.Join(t.TempDir(), "book.xlsx"), "Data", nil)
	tbl, err := s.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, tbl.Header)
	assert.Empty(t, tbl.Rows)
}

func TestSheetCommitCreatesWorkbook(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "sub", "book.xlsx")
	s := NewSheet(path, "Data", nil)
	_, err := s.Load(ctx)
	require.NoError(t, err)
	require.NoError(t, s.SetHeader(ctx, []string{"Symbol", "Company"}))
	require.NoError(t, s.AppendRow(ctx, []string{"ABC", "ABC Inc"}))
	require.NoError(t, s.Commit(ctx))

	assert.Equal(t, [][]string{{"Symbol", "Company"}, {"ABC", "ABC Inc"}}, readSheet(t, path, "Data"))
	assert.NoFileExists(t, filepath.Join(filepath.Dir(path), "book.tmp.xlsx"))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, []string{"Data"}, f.GetSheetList())
}

func TestSheetPreservesOtherSheetsAndBlanksStaleCells(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "book.xlsx")
	writeFixture(t, path, map[string][][]string{
		"Data":  {{"Symbol", "Company", "Old1", "Old2"}, {"ABC", "ABC Inc", "x", "y"}},
		"Notes": {{"keep me"}},
	})

	s := NewSheet(path, "Data", nil)
	tbl, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Symbol", "Company", "Old1", "Old2"}, tbl.Header)
	require.NoError(t, s.SetHeader(ctx, []string{"Symbol", "Company"}))
	require.NoError(t, s.UpdateRow(ctx, 2, []string{"ABC", "ABC Corp"}))
	require.NoError(t, s.Commit(ctx))

	assert.Equal(t, [][]string{{"Symbol", "Company"}, {"ABC", "ABC Corp"}}, readSheet(t, path, "Data"))
	assert.Equal(t, [][]string{{"keep me"}}, readSheet(t, path, "Notes"))
}

func TestSheetCommitWithoutLoad(t *testing.T) {
	s := NewSheet(filepath.Join(t.TempDir(), "book.xlsx"), "Data", nil)
	var ce *dest.CommitError
	require.ErrorAs(t, s.Commit(context.Background()), &ce)
}

func TestSheetLoadCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "book.xlsx")
	require.NoError(t, writeString(path, "not a zip"))
	_, err := NewSheet(path, "Data", nil).Load(context.Background())
	var le *dest.LoadError
	require.ErrorAs(t, err, &le)
	assert.Equal(t, "local", le.Destination)
}

func TestUpsertAgainstWorkbook(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "book.xlsm")
	writeFixture(t, path, map[string][][]string{
		"Data": {{"Symbol", "Company"}, {"abc", "stale"}, {"ZZZ", "untouched"}},
	})

	now := time.Date(2025, 1, 2, 3, 4, 5, 0, time.Local)
	w := upsert.New(upsert.Options{Now: func() time.Time { return now }})

	rec := func(sym, company, eps string) types.MetricRecord {
		r := types.NewMetricRecord(sym)
		r.Company = company
		r.Series[types.SeriesKey{Key: types.EPS, Period: types.TTM}] = eps
		return r
	}
	recs := []types.MetricRecord{rec("ABC", "ABC Inc", "1.50"), rec("NEW", "New Co", "2.00")}
	schema := columns.BuildSchema(columns.SeenColumns(recs), nil)

	res, err := w.Reconcile(ctx, NewSheet(path, "Data", nil), schema, recs)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Updated)
	assert.Equal(t, 1, res.Inserted)

	first := readSheet(t, path, "Data")
	require.Len(t, first, 4)
	assert.Equal(t, schema, first[0])
	idx := columns.Index(schema)
	assert.Equal(t, "ABC", first[1][idx[columns.Symbol]])
	assert.Equal(t, "1.50", first[1][idx["EPS(TTM)"]])
	assert.Equal(t, "2025-01-02 03:04:05", first[1][idx[columns.Updated]])
	assert.Equal(t, []string{"ZZZ", "untouched"}, first[2])
	assert.Equal(t, "NEW", first[3][0])

	_, err = w.Reconcile(ctx, NewSheet(path, "Data", nil), schema, recs)
	require.NoError(t, err)
	assert.Equal(t, first, readSheet(t, path, "Data"))
}
