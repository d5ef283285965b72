package gsheets

import (
	"context"
	"fmt"
	"sync"
)

// MemClient is an in-memory Client. FailRow, when set, is consulted before
// every row write.
type MemClient struct {
	mu       sync.Mutex
	rows     [][]string
	FailRow  func(row []string) error
	replaces int
}

func NewMemClient(rows ...[]string) *MemClient {
	m := &MemClient{}
	m.rows = copyRows(rows)
	return m
}

// Rows returns a copy of the worksheet, header first.
func (m *MemClient) Rows() [][]string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return copyRows(m.rows)
}

func (m *MemClient) EnsureSheet(context.Context) error { return nil }

func (m *MemClient) GetHeader(context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.rows) == 0 {
		return nil, nil
	}
	return append([]string(nil), m.rows[0]...), nil
}

func (m *MemClient) SetHeader(_ context.Context, row []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.rows) == 0 {
		m.rows = append(m.rows, nil)
	}
	m.rows[0] = append([]string(nil), row...)
	return nil
}

func (m *MemClient) GetRows(context.Context) ([][]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.rows) <= 1 {
		return nil, nil
	}
	return copyRows(m.rows[1:]), nil
}

func (m *MemClient) UpdateRow(_ context.Context, rowNumber int, row []string) error {
	if err := m.fail(row); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if rowNumber < 1 {
		return fmt.Errorf("row %d out of range", rowNumber)
	}
	for len(m.rows) < rowNumber {
		m.rows = append(m.rows, nil)
	}
	m.rows[rowNumber-1] = append([]string(nil), row...)
	return nil
}

func (m *MemClient) ClearAndReplaceAll(_ context.Context, rows [][]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows = copyRows(rows)
	m.replaces++
	return nil
}

// Replaces counts ClearAndReplaceAll calls.
func (m *MemClient) Replaces() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.replaces
}

func (m *MemClient) fail(row []string) error {
	if m.FailRow == nil {
		return nil
	}
	return m.FailRow(row)
}

func copyRows(rows [][]string) [][]string {
	out := make([][]string, len(rows))
	for i, r := range rows {
		out[i] = append([]string(nil), r...)
	}
	return out
}
