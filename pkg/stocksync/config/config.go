// Package config loads settings from a YAML file, .env and STOCKSYNC_*
// environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/komsit37/stocksync/pkg/stocksync/columns"
)

const envPrefix = "STOCKSYNC"

type Config struct {
	Source   SourceConfig   `mapstructure:"source"`
	Fetch    FetchConfig    `mapstructure:"fetch"`
	Local    LocalConfig    `mapstructure:"local"`
	Remote   RemoteConfig   `mapstructure:"remote"`
	Postgres PostgresConfig `mapstructure:"postgres"`
	Groups   GroupsConfig   `mapstructure:"groups"`
	Schema   SchemaConfig   `mapstructure:"schema"`
	Log      LogConfig      `mapstructure:"log"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
}

type SourceConfig struct {
	BaseURL string `mapstructure:"base_url" validate:"required,url"`
}

type FetchConfig struct {
	Timeout           time.Duration `mapstructure:"timeout" validate:"gt=0"`
	MaxAttempts       int           `mapstructure:"max_attempts" validate:"min=1"`
	BackoffMin        time.Duration `mapstructure:"backoff_min" validate:"gte=0"`
	BackoffMax        time.Duration `mapstructure:"backoff_max" validate:"gtefield=BackoffMin"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second" validate:"gte=0"`
}

type LocalConfig struct {
	Path       string `mapstructure:"path"`
	Sheet      string `mapstructure:"sheet" validate:"required"`
	GroupSheet string `mapstructure:"group_sheet" validate:"required"`
}

type RemoteConfig struct {
	SpreadsheetID   string `mapstructure:"spreadsheet_id"`
	CredentialsFile string `mapstructure:"credentials_file" validate:"required_with=SpreadsheetID"`
	Sheet           string `mapstructure:"sheet" validate:"required"`
	GroupSheet      string `mapstructure:"group_sheet" validate:"required"`
}

type PostgresConfig struct {
	DSN   string `mapstructure:"dsn"`
	Sheet string `mapstructure:"sheet" validate:"required"`
}

type GroupsConfig struct {
	File         string        `mapstructure:"file"`
	QuietPeriod  time.Duration `mapstructure:"quiet_period" validate:"gt=0"`
	PollInterval time.Duration `mapstructure:"poll_interval" validate:"gt=0"`
}

type SchemaConfig struct {
	Reflow bool     `mapstructure:"reflow"`
	Sets   []string `mapstructure:"sets" validate:"min=1"`
}

type LogConfig struct {
	Level  string `mapstructure:"level" validate:"oneof=debug info warn warning error"`
	Format string `mapstructure:"format" validate:"oneof=json text"`
	Output string `mapstructure:"output" validate:"oneof=stdout file both"`
	File   string `mapstructure:"file" validate:"required_unless=Output stdout"`
}

type MetricsConfig struct {
	Addr string `mapstructure:"addr"`
}

// SetDefaults registers every key so env overrides work without a file.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("source.base_url", "https://stockanalysis.com")
	v.SetDefault("fetch.timeout", 10*time.Second)
	v.SetDefault("fetch.max_attempts", 5)
	v.SetDefault("fetch.backoff_min", 3*time.Second)
	v.SetDefault("fetch.backoff_max", 6*time.Second)
	v.SetDefault("fetch.requests_per_second", 0)
	v.SetDefault("local.path", "")
	v.SetDefault("local.sheet", "Data")
	v.SetDefault("local.group_sheet", "Group")
	v.SetDefault("remote.spreadsheet_id", "")
	v.SetDefault("remote.credentials_file", "")
	v.SetDefault("remote.sheet", "Data")
	v.SetDefault("remote.group_sheet", "Group")
	v.SetDefault("postgres.dsn", "")
	v.SetDefault("postgres.sheet", "Data")
	v.SetDefault("groups.file", "")
	v.SetDefault("groups.quiet_period", 10*time.Second)
	v.SetDefault("groups.poll_interval", 2*time.Second)
	v.SetDefault("schema.reflow", false)
	v.SetDefault("schema.sets", columns.DefaultSets)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.output", "stdout")
	v.SetDefault("log.file", "")
	v.SetDefault("metrics.addr", "")
}

type LoadOptions struct {
	// File is an explicit config path. Empty searches ./stocksync.yaml and
	// $HOME/.config/stocksync/stocksync.yaml; none found is fine.
	File string
	// EnvFile is loaded into the environment first when it exists.
	EnvFile string
}

// Load reads configuration into v and returns the validated result.
func Load(v *viper.Viper, opts LoadOptions) (*Config, error) {
	if opts.EnvFile != "" {
		if err := godotenv.Load(opts.EnvFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", opts.EnvFile, err)
		}
	}

	SetDefaults(v)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if opts.File != "" {
		v.SetConfigFile(opts.File)
	} else {
		v.SetConfigName("stocksync")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "stocksync"))
		}
	}
	if err := v.ReadInConfig(); err != nil {
		var nf viper.ConfigFileNotFoundError
		if opts.File != "" || !errors.As(err, &nf) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if _, err := columns.ExpandSets(c.Schema.Sets); err != nil {
		return fmt.Errorf("invalid config: schema.sets: %w", err)
	}
	return nil
}

// Template is the column priority template named by schema.sets.
func (c *Config) Template() []string {
	t, _ := columns.ExpandSets(c.Schema.Sets)
	return t
}
