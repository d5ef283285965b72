package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/komsit37/stocksync/pkg/stocksync/config"
	"github.com/komsit37/stocksync/pkg/stocksync/logging"
	"github.com/komsit37/stocksync/pkg/stocksync/metrics"
)

// app carries what every subcommand needs once configuration is loaded.
type app struct {
	configFile  string
	envFile     string
	metricsAddr string

	cfg      *config.Config
	log      *slog.Logger
	closeLog func() error
	reg      *prometheus.Registry
	metrics  *metrics.Metrics
}

func main() {
	a := &app{}
	rootCmd := &cobra.Command{
		Use:           "stocksync",
		Short:         "Sync per-symbol financial metrics into spreadsheets",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if a.closeLog != nil {
				return a.closeLog()
			}
			return nil
		},
	}
	rootCmd.PersistentFlags().StringVar(&a.configFile, "config", "", "config file (default ./stocksync.yaml or ~/.config/stocksync/stocksync.yaml)")
	rootCmd.PersistentFlags().StringVar(&a.envFile, "env-file", ".env", "dotenv file loaded before reading the environment")
	rootCmd.PersistentFlags().StringVar(&a.metricsAddr, "metrics-addr", "", "serve prometheus metrics on this address (overrides metrics.addr)")

	rootCmd.AddCommand(newSyncCmd(a), newSchemaCmd(a), newGroupsCmd(a))

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func (a *app) init(cmd *cobra.Command) error {
	cfg, err := config.Load(viper.New(), config.LoadOptions{File: a.configFile, EnvFile: a.envFile})
	if err != nil {
		return err
	}
	if a.metricsAddr != "" {
		cfg.Metrics.Addr = a.metricsAddr
	}
	log, closeLog, err := logging.New(logging.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
		File:   cfg.Log.File,
	}, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	slog.SetDefault(log)

	a.cfg, a.log, a.closeLog = cfg, log, closeLog
	a.reg = prometheus.NewRegistry()
	a.reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	a.metrics = metrics.New(a.reg)
	return nil
}

// serveMetrics exposes the registry until ctx is done. It is a no-op when
// no address is configured.
func (a *app) serveMetrics(ctx context.Context) {
	if a.cfg.Metrics.Addr == "" {
		return
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(a.reg, promhttp.HandlerOpts{Registry: a.reg}))
	srv := &http.Server{Addr: a.cfg.Metrics.Addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		a.log.Info("metrics listening", slog.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.log.Error("metrics server failed", slog.String("error", err.Error()))
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
}
