// Package dest defines the capability every spreadsheet-like destination
// offers the upsert writer: load the current layout, apply header and row
// changes, commit.
//
// Row numbers are 1-based sheet rows: the header is row 1 and the first body
// row is row 2.
package dest

import (
	"context"
	"fmt"
)

// Table is a destination's header and body rows.
type Table struct {
	Header []string
	Rows   [][]string
}

// RowNumber converts a 0-based body index into a sheet row number.
func RowNumber(bodyIndex int) int { return bodyIndex + 2 }

// Destination is implemented by the local workbook, the remote spreadsheet
// and the Postgres store.
//
// Buffered destinations apply SetHeader/UpdateRow/AppendRow/ReplaceRows in
// memory and make them durable in Commit. Remote destinations may write
// through immediately, in which case an error from UpdateRow or AppendRow
// affects only that row.
type Destination interface {
	Name() string
	Load(ctx context.Context) (Table, error)
	SetHeader(ctx context.Context, header []string) error
	UpdateRow(ctx context.Context, rowNumber int, row []string) error
	AppendRow(ctx context.Context, row []string) error
	// ReplaceRows rewrites the whole body.
	ReplaceRows(ctx context.Context, rows [][]string) error
	Commit(ctx context.Context) error
}

// LoadError aborts a pass: the destination could not be opened or read.
type LoadError struct {
	Destination string
	Err         error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load %s: %v", e.Destination, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// WriteError is a single row that could not be written.
type WriteError struct {
	Destination string
	Symbol      string
	Company     string
	Row         int
	Err         error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("write %s row %d (%s | %s): %v", e.Destination, e.Row, e.Symbol, e.Company, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

// CommitError aborts a pass: buffered changes could not be saved.
type CommitError struct {
	Destination string
	Err         error
}

func (e *CommitError) Error() string {
	return fmt.Sprintf("commit %s: %v", e.Destination, e.Err)
}

func (e *CommitError) Unwrap() error { return e.Err }
