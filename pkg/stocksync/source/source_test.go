package source

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/komsit37/stocksync/pkg/stocksync/dest/excel"
	"github.com/komsit37/stocksync/pkg/stocksync/types"
)

func write(t *testing.T, path, body string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
}

func TestYAMLSourceFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "watch.yaml")
	write(t, path, `
groups:
  - name: Tech
    symbols: [aapl, MSFT, AAPL]
  - name: Asia
    groups:
      - name: Japan
        symbols: [7203.t]
  - symbols: [spy]
`)
	got, err := YAMLSource{Path: path}.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, types.GroupModel{
		"Tech":       {"AAPL", "MSFT"},
		"Asia/Japan": {"7203.T"},
		"watch":      {"SPY"},
	}, got)
}

func TestYAMLSourceDir(t *testing.T) {
	dir := t.TempDir()
	write(t, filepath.Join(dir, "us.yaml"), "groups:\n  - name: Core\n    symbols: [SPY]\n")
	write(t, filepath.Join(dir, "intl", "eu.yml"), "groups:\n  - symbols: [ASML]\n")
	write(t, filepath.Join(dir, "notes.txt"), "ignored")

	got, err := YAMLSource{Path: dir}.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, types.GroupModel{
		"us/Core": {"SPY"},
		"intl/eu": {"ASML"},
	}, got)
}

func TestYAMLSourceInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	write(t, path, "watchlist: []\n")
	_, err := YAMLSource{Path: path}.Load(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing 'groups'")
}

func TestWriteYAMLRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "groups.yaml")
	groups := types.GroupModel{"B": {"Y"}, "A": {"X", "Z"}}
	require.NoError(t, WriteYAML(path, groups))

	got, err := YAMLSource{Path: path}.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, groups, got)
}

func TestWorkbookSource(t *testing.T) {
	ctx := context.Background()
	g := excel.NewGroups(filepath.Join(t.TempDir(), "book.xlsx"), "Group", nil)
	require.NoError(t, g.SaveGroups(ctx, types.GroupModel{"Tech": {"AAPL"}}))

	got, err := WorkbookSource{Groups: g}.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, types.GroupModel{"Tech": {"AAPL"}}, got)
}
