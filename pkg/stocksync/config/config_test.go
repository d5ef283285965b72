package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/komsit37/stocksync/pkg/stocksync/columns"
)

// isolate keeps the search path away from any real config.
func isolate(t *testing.T) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
}

func TestLoadDefaults(t *testing.T) {
	isolate(t)
	cfg, err := Load(viper.New(), LoadOptions{})
	require.NoError(t, err)
	assert.Equal(t, "https://stockanalysis.com", cfg.Source.BaseURL)
	assert.Equal(t, 10*time.Second, cfg.Fetch.Timeout)
	assert.Equal(t, 5, cfg.Fetch.MaxAttempts)
	assert.Equal(t, 3*time.Second, cfg.Fetch.BackoffMin)
	assert.Equal(t, 6*time.Second, cfg.Fetch.BackoffMax)
	assert.Equal(t, 10*time.Second, cfg.Groups.QuietPeriod)
	assert.Equal(t, 2*time.Second, cfg.Groups.PollInterval)
	assert.False(t, cfg.Schema.Reflow)
	assert.Equal(t, columns.DefaultTemplate(), cfg.Template())
}

func TestLoadFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cfg.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
fetch:
  timeout: 3s
  max_attempts: 2
local:
  path: /tmp/book.xlsm
schema:
  reflow: true
  sets: [identity, eps, updated]
`), 0o644))
	envFile := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("STOCKSYNC_REMOTE_SPREADSHEET_ID=from-dotenv\n"), 0o644))
	t.Setenv("STOCKSYNC_FETCH_MAX_ATTEMPTS", "7")
	t.Setenv("STOCKSYNC_REMOTE_CREDENTIALS_FILE", "/secrets/sa.json")
	t.Setenv("STOCKSYNC_REMOTE_SPREADSHEET_ID", "")
	require.NoError(t, os.Unsetenv("STOCKSYNC_REMOTE_SPREADSHEET_ID"))

	cfg, err := Load(viper.New(), LoadOptions{File: path, EnvFile: envFile})
	require.NoError(t, err)
	assert.Equal(t, 3*time.Second, cfg.Fetch.Timeout)
	assert.Equal(t, 7, cfg.Fetch.MaxAttempts)
	assert.Equal(t, "/tmp/book.xlsm", cfg.Local.Path)
	assert.Equal(t, "from-dotenv", cfg.Remote.SpreadsheetID)
	assert.True(t, cfg.Schema.Reflow)
	assert.NotContains(t, cfg.Template(), "FreeCashFlow(TTM)")
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(viper.New(), LoadOptions{File: filepath.Join(t.TempDir(), "nope.yaml")})
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	isolate(t)
	cfg, err := Load(viper.New(), LoadOptions{})
	require.NoError(t, err)

	bad := *cfg
	bad.Fetch.BackoffMax = time.Second
	var verrs validator.ValidationErrors
	require.ErrorAs(t, bad.Validate(), &verrs)

	bad = *cfg
	bad.Remote.SpreadsheetID = "abc"
	require.Error(t, bad.Validate(), "credentials required with a spreadsheet id")

	bad = *cfg
	bad.Log.Output = "both"
	require.Error(t, bad.Validate(), "file output needs a path")

	bad = *cfg
	bad.Schema.Sets = []string{"identity", "bogus"}
	var use *columns.UnknownSetError
	require.ErrorAs(t, bad.Validate(), &use)
}
