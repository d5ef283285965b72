// Package groupsync debounces group-model snapshots into full-replace
// writes. A burst of mutations produces one write of the latest snapshot.
package groupsync

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/komsit37/stocksync/pkg/stocksync/metrics"
	"github.com/komsit37/stocksync/pkg/stocksync/types"
)

const (
	DefaultQuietPeriod  = 10 * time.Second
	DefaultPollInterval = 2 * time.Second
	shutdownTimeout     = 30 * time.Second
)

// Writer replaces the stored group model with groups.
type Writer interface {
	ReplaceGroups(ctx context.Context, groups types.GroupModel) error
}

// WriterFunc adapts a function to Writer.
type WriterFunc func(ctx context.Context, groups types.GroupModel) error

func (f WriterFunc) ReplaceGroups(ctx context.Context, groups types.GroupModel) error {
	return f(ctx, groups)
}

type Options struct {
	QuietPeriod  time.Duration
	PollInterval time.Duration
	Logger       *slog.Logger
	Metrics      *metrics.Metrics
}

type snapshot struct {
	groups types.GroupModel
	at     time.Time
}

// Debouncer owns a single-slot mailbox. Enqueue never blocks: a newer
// snapshot replaces one that has not been picked up yet.
type Debouncer struct {
	w       Writer
	opts    Options
	log     *slog.Logger
	mailbox chan snapshot
	// mu orders producers so the last Enqueue to return is the snapshot
	// left in the mailbox.
	mu  sync.Mutex
	now func() time.Time
}

func New(w Writer, opts Options) *Debouncer {
	if opts.QuietPeriod <= 0 {
		opts.QuietPeriod = DefaultQuietPeriod
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Debouncer{w: w, opts: opts, log: log, mailbox: make(chan snapshot, 1), now: time.Now}
}

// Enqueue hands a copy of groups to the worker. Safe for concurrent use;
// the snapshot from the call that completes last wins.
func (d *Debouncer) Enqueue(groups types.GroupModel) {
	groups = groups.Clone()
	d.mu.Lock()
	defer d.mu.Unlock()
	s := snapshot{groups: groups, at: d.now()}
	for {
		select {
		case d.mailbox <- s:
			return
		default:
		}
		select {
		case <-d.mailbox:
			d.opts.Metrics.Supersede()
		default:
		}
	}
}

// Run polls the mailbox every PollInterval. A pending snapshot is written
// once it is at least QuietPeriod old and nothing newer has arrived. On
// cancellation the newest pending snapshot, including one still in the
// mailbox, is written once more before Run returns.
func (d *Debouncer) Run(ctx context.Context) error {
	ticker := time.NewTicker(d.opts.PollInterval)
	defer ticker.Stop()

	var pending *snapshot
	for {
		select {
		case <-ctx.Done():
			select {
			case s := <-d.mailbox:
				if pending != nil {
					d.opts.Metrics.Supersede()
				}
				pending = &s
			default:
			}
			if pending != nil {
				fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
				d.flush(fctx, *pending)
				cancel()
			}
			return nil
		case s := <-d.mailbox:
			if pending != nil {
				d.opts.Metrics.Supersede()
			}
			pending = &s
		case <-ticker.C:
			if pending != nil && d.now().Sub(pending.at) >= d.opts.QuietPeriod {
				d.flush(ctx, *pending)
				pending = nil
			}
		}
	}
}

func (d *Debouncer) flush(ctx context.Context, s snapshot) {
	start := d.now()
	if err := d.w.ReplaceGroups(ctx, s.groups); err != nil {
		d.opts.Metrics.Flush("error")
		d.log.Error("group sync failed", slog.Int("groups", len(s.groups)), slog.String("error", err.Error()))
		return
	}
	d.opts.Metrics.Flush("ok")
	d.log.Info("groups synced",
		slog.Int("groups", len(s.groups)),
		slog.Duration("age", start.Sub(s.at)),
		slog.Duration("took", d.now().Sub(start)))
}
