package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"github.com/komsit37/stocksync/pkg/stocksync/groupsync"
	"github.com/komsit37/stocksync/pkg/stocksync/types"
)

func newGroupsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "groups",
		Short: "Mirror group membership to the group sheets",
	}
	cmd.AddCommand(
		newGroupsPushCmd(a),
		newGroupsWatchCmd(a),
		newGroupsAddCmd(a),
		newGroupsRmCmd(a),
		newGroupsRenameCmd(a),
		newGroupsDeleteCmd(a),
	)
	return cmd
}

func (a *app) debouncer(w groupsync.Writer) *groupsync.Debouncer {
	return groupsync.New(w, groupsync.Options{
		QuietPeriod:  a.cfg.Groups.QuietPeriod,
		PollInterval: a.cfg.Groups.PollInterval,
		Logger:       a.log,
		Metrics:      a.metrics,
	})
}

// flushGroups enqueues groups and runs the debouncer with a cancelled
// context, which writes the pending snapshot once and returns.
func (a *app) flushGroups(ctx context.Context, w groupsync.Writer, groups types.GroupModel) error {
	var flushErr error
	deb := a.debouncer(groupsync.WriterFunc(func(ctx context.Context, g types.GroupModel) error {
		flushErr = w.ReplaceGroups(ctx, g)
		return flushErr
	}))
	deb.Enqueue(groups)
	runCtx, cancel := context.WithCancel(ctx)
	cancel()
	if err := deb.Run(runCtx); err != nil {
		return err
	}
	if flushErr != nil {
		return fmt.Errorf("write groups: %w", flushErr)
	}
	return nil
}

func newGroupsPushCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "push",
		Short: "Write the current groups once",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			src, err := a.groupSource()
			if err != nil {
				return err
			}
			groups, err := src.Load(ctx)
			if err != nil {
				return fmt.Errorf("load groups: %w", err)
			}
			w, err := a.groupWriter(ctx)
			if err != nil {
				return err
			}
			if err := a.flushGroups(ctx, w, groups); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d groups written\n", len(groups))
			return nil
		},
	}
}

func newGroupsWatchCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Watch the group file and write debounced snapshots",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.cfg.Groups.File == "" {
				return errors.New("groups watch needs groups.file")
			}
			if fi, err := os.Stat(a.cfg.Groups.File); err != nil {
				return err
			} else if fi.IsDir() {
				return fmt.Errorf("groups watch needs a single file, %s is a directory", a.cfg.Groups.File)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			a.serveMetrics(ctx)

			src, err := a.groupSource()
			if err != nil {
				return err
			}
			w, err := a.groupWriter(ctx)
			if err != nil {
				return err
			}
			deb := a.debouncer(w)

			reload := func() {
				groups, err := src.Load(ctx)
				if err != nil {
					a.log.Error("reload groups failed", slog.String("file", a.cfg.Groups.File), slog.String("error", err.Error()))
					return
				}
				a.log.Info("groups changed", slog.Int("groups", len(groups)))
				deb.Enqueue(groups)
			}

			watcher := viper.New()
			watcher.SetConfigFile(a.cfg.Groups.File)
			if err := watcher.ReadInConfig(); err != nil {
				return fmt.Errorf("read %s: %w", a.cfg.Groups.File, err)
			}
			// Reloads run on one goroutine so snapshots reach the debouncer
			// in the order the file was read.
			changed := make(chan struct{}, 1)
			notify := func() {
				select {
				case changed <- struct{}{}:
				default:
				}
			}
			watcher.OnConfigChange(func(e fsnotify.Event) {
				a.log.Debug("group file event", slog.String("op", e.Op.String()))
				notify()
			})
			watcher.WatchConfig()

			eg, egCtx := errgroup.WithContext(ctx)
			eg.Go(func() error { return deb.Run(egCtx) })
			eg.Go(func() error {
				for {
					select {
					case <-egCtx.Done():
						return nil
					case <-changed:
						reload()
					}
				}
			})
			notify()
			a.log.Info("watching groups", slog.String("file", a.cfg.Groups.File))

			err = eg.Wait()
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}
}
