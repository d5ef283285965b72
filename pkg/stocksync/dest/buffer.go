package dest

import (
	"context"
	"fmt"
)

// Buffer holds a loaded Table and records changes until the owning
// destination commits them. Embed it to get the mutating half of
// Destination.
type Buffer struct {
	table         Table
	headerChanged bool
	replaced      bool
	// dirty holds body indexes changed since Reset.
	dirty map[int]struct{}
	// width is the widest row seen at load, used to blank stale cells.
	width int
}

// Reset starts a new pass from t.
func (b *Buffer) Reset(t Table) {
	b.table = Table{Header: append([]string(nil), t.Header...)}
	for _, r := range t.Rows {
		b.table.Rows = append(b.table.Rows, append([]string(nil), r...))
	}
	b.headerChanged, b.replaced = false, false
	b.dirty = map[int]struct{}{}
	b.width = len(t.Header)
	for _, r := range t.Rows {
		if len(r) > b.width {
			b.width = len(r)
		}
	}
}

// Snapshot returns a copy of the buffered table.
func (b *Buffer) Snapshot() Table {
	out := Table{Header: append([]string(nil), b.table.Header...)}
	for _, r := range b.table.Rows {
		out.Rows = append(out.Rows, append([]string(nil), r...))
	}
	return out
}

func (b *Buffer) SetHeader(_ context.Context, header []string) error {
	b.table.Header = append([]string(nil), header...)
	b.headerChanged = true
	return nil
}

func (b *Buffer) UpdateRow(_ context.Context, rowNumber int, row []string) error {
	i := rowNumber - 2
	if i < 0 || i >= len(b.table.Rows) {
		return fmt.Errorf("row %d out of range (1..%d)", rowNumber, len(b.table.Rows)+1)
	}
	b.table.Rows[i] = append([]string(nil), row...)
	b.markDirty(i)
	return nil
}

func (b *Buffer) AppendRow(_ context.Context, row []string) error {
	b.table.Rows = append(b.table.Rows, append([]string(nil), row...))
	b.markDirty(len(b.table.Rows) - 1)
	return nil
}

func (b *Buffer) ReplaceRows(_ context.Context, rows [][]string) error {
	b.table.Rows = nil
	for _, r := range rows {
		b.table.Rows = append(b.table.Rows, append([]string(nil), r...))
	}
	b.replaced = true
	for i := range b.table.Rows {
		b.markDirty(i)
	}
	return nil
}

// HeaderChanged reports whether SetHeader was called since Reset.
func (b *Buffer) HeaderChanged() bool { return b.headerChanged }

// Replaced reports whether ReplaceRows was called since Reset.
func (b *Buffer) Replaced() bool { return b.replaced }

// Dirty returns the changed body indexes in ascending order.
func (b *Buffer) Dirty() []int {
	out := make([]int, 0, len(b.dirty))
	for i := range b.table.Rows {
		if _, ok := b.dirty[i]; ok {
			out = append(out, i)
		}
	}
	return out
}

// Width is the number of columns a save must cover to overwrite stale cells.
func (b *Buffer) Width() int {
	w := b.width
	if len(b.table.Header) > w {
		w = len(b.table.Header)
	}
	for _, r := range b.table.Rows {
		if len(r) > w {
			w = len(r)
		}
	}
	return w
}

func (b *Buffer) markDirty(i int) {
	if b.dirty == nil {
		b.dirty = map[int]struct{}{}
	}
	b.dirty[i] = struct{}{}
}
