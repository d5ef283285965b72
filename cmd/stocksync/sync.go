package main

import (
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/komsit37/stocksync/pkg/stocksync/filter"
	"github.com/komsit37/stocksync/pkg/stocksync/pipeline"
	"github.com/komsit37/stocksync/pkg/stocksync/render"
	"github.com/komsit37/stocksync/pkg/stocksync/source"
	"github.com/komsit37/stocksync/pkg/stocksync/upsert"
)

func newSyncCmd(a *app) *cobra.Command {
	var (
		group   string
		symbols string
		format  string
		quiet   bool
	)
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Fetch metrics for every symbol and upsert them into each destination",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			a.serveMetrics(ctx)

			renderer, err := render.New(format, renderOptions())
			if err != nil {
				return err
			}

			opts := pipeline.ExecuteOptions{}
			if symbols != "" {
				opts.Symbols = strings.Split(symbols, ",")
			}
			var src source.Source
			if len(opts.Symbols) == 0 {
				if src, err = a.groupSource(); err != nil {
					return err
				}
				if opts.Filter, err = filter.Parse(group); err != nil {
					return err
				}
			}

			dests, closeDests, err := a.destinations(ctx)
			if err != nil {
				return err
			}
			defer closeDests()

			sinks := pipeline.Multi{pipeline.LogSink{Log: a.log}}
			if !quiet {
				sinks = append(sinks, &pipeline.WriterSink{W: cmd.ErrOrStderr()})
			}
			r := &pipeline.Runner{
				Fetcher:      a.fetcher(),
				Titles:       a.titles(),
				Writer:       upsert.New(upsert.Options{Reflow: a.cfg.Schema.Reflow, Logger: a.log, Metrics: a.metrics}),
				Destinations: dests,
				BaseURL:      a.cfg.Source.BaseURL,
				Template:     a.cfg.Template(),
				Source:       src,
				Renderer:     renderer,
				Out:          cmd.OutOrStdout(),
				Sink:         sinks,
				Logger:       a.log,
				Metrics:      a.metrics,
			}
			return r.Execute(ctx, opts)
		},
	}
	cmd.Flags().StringVarP(&group, "group", "g", "", "group filter: exact names (a,b), glob:pat, /regex/ or substring")
	cmd.Flags().StringVarP(&symbols, "symbols", "s", "", "comma-separated symbols; bypasses the group source")
	cmd.Flags().StringVarP(&format, "format", "f", "table", "report format: "+strings.Join(render.Formats, "|"))
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "suppress per-symbol progress lines")
	return cmd
}

func renderOptions() render.Options {
	width := detectTerminalWidth()
	_, noColor := os.LookupEnv("NO_COLOR")
	opts := render.Options{Color: width > 0 && !noColor, PrettyJSON: width > 0}
	if width > 0 {
		opts.MaxColWidth = min(max(width/4, 12), 60)
	}
	return opts
}
