// Package gsheets implements the remote destination on the Google Sheets
// values API.
package gsheets

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// Client is the remote spreadsheet adapter for one worksheet. Row numbers
// are 1-based; the header is row 1.
type Client interface {
	EnsureSheet(ctx context.Context) error
	GetHeader(ctx context.Context) ([]string, error)
	SetHeader(ctx context.Context, row []string) error
	// GetRows returns the body rows, starting at row 2.
	GetRows(ctx context.Context) ([][]string, error)
	// UpdateRow writes row at rowNumber; a row past the end extends the sheet.
	UpdateRow(ctx context.Context, rowNumber int, row []string) error
	// ClearAndReplaceAll clears the worksheet and writes rows from row 1.
	ClearAndReplaceAll(ctx context.Context, rows [][]string) error
}

// SheetsClient talks to one worksheet of a spreadsheet.
type SheetsClient struct {
	svc           *sheets.Service
	spreadsheetID string
	sheet         string
}

// NewService builds a Sheets service from a service-account credentials
// file. Extra options are appended, so tests can point it elsewhere.
func NewService(ctx context.Context, credentialsFile string, opts ...option.ClientOption) (*sheets.Service, error) {
	var all []option.ClientOption
	if credentialsFile != "" {
		all = append(all, option.WithCredentialsFile(credentialsFile))
	}
	all = append(all, opts...)
	svc, err := sheets.NewService(ctx, all...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return svc, nil
}

func NewSheetsClient(svc *sheets.Service, spreadsheetID, sheet string) *SheetsClient {
	return &SheetsClient{svc: svc, spreadsheetID: spreadsheetID, sheet: sheet}
}

func (c *SheetsClient) rng(cells string) string {
	name := "'" + strings.ReplaceAll(c.sheet, "'", "''") + "'"
	if cells == "" {
		return name
	}
	return name + "!" + cells
}

func (c *SheetsClient) EnsureSheet(ctx context.Context) error {
	ss, err := c.svc.Spreadsheets.Get(c.spreadsheetID).Fields("sheets.properties.title").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("get spreadsheet: %w", err)
	}
	for _, s := range ss.Sheets {
		if s.Properties != nil && s.Properties.Title == c.sheet {
			return nil
		}
	}
	req := &sheets.BatchUpdateSpreadsheetRequest{Requests: []*sheets.Request{{
		AddSheet: &sheets.AddSheetRequest{Properties: &sheets.SheetProperties{Title: c.sheet}},
	}}}
	if _, err := c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("add sheet %q: %w", c.sheet, err)
	}
	return nil
}

func (c *SheetsClient) GetHeader(ctx context.Context) ([]string, error) {
	rows, err := c.get(ctx, c.rng("1:1"))
	if err != nil || len(rows) == 0 {
		return nil, err
	}
	return rows[0], nil
}

func (c *SheetsClient) SetHeader(ctx context.Context, row []string) error {
	if _, err := c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, c.rng("1:1"), &sheets.ClearValuesRequest{}).Context(ctx).Do(); err != nil {
		return fmt.Errorf("clear header: %w", err)
	}
	return c.put(ctx, c.rng("A1"), [][]string{row})
}

func (c *SheetsClient) GetRows(ctx context.Context) ([][]string, error) {
	rows, err := c.get(ctx, c.rng(""))
	if err != nil || len(rows) <= 1 {
		return nil, err
	}
	return rows[1:], nil
}

func (c *SheetsClient) UpdateRow(ctx context.Context, rowNumber int, row []string) error {
	return c.put(ctx, c.rng(fmt.Sprintf("A%d", rowNumber)), [][]string{row})
}

func (c *SheetsClient) ClearAndReplaceAll(ctx context.Context, rows [][]string) error {
	if _, err := c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, c.rng(""), &sheets.ClearValuesRequest{}).Context(ctx).Do(); err != nil {
		return fmt.Errorf("clear sheet: %w", err)
	}
	if len(rows) == 0 {
		return nil
	}
	return c.put(ctx, c.rng("A1"), rows)
}

func (c *SheetsClient) get(ctx context.Context, rng string) ([][]string, error) {
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", rng, err)
	}
	out := make([][]string, len(resp.Values))
	for i, r := range resp.Values {
		row := make([]string, len(r))
		for j, v := range r {
			row[j] = fmt.Sprint(v)
		}
		out[i] = row
	}
	return out, nil
}

func (c *SheetsClient) put(ctx context.Context, rng string, rows [][]string) error {
	vr := &sheets.ValueRange{Values: toValues(rows)}
	if _, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, vr).ValueInputOption("RAW").Context(ctx).Do(); err != nil {
		return fmt.Errorf("update %s: %w", rng, err)
	}
	return nil
}

func toValues(rows [][]string) [][]interface{} {
	out := make([][]interface{}, len(rows))
	for i, r := range rows {
		row := make([]interface{}, len(r))
		for j, v := range r {
			row[j] = v
		}
		out[i] = row
	}
	return out
}
