// Package metrics exposes prometheus counters for fetches, row writes and
// group flushes. A nil *Metrics is valid and records nothing.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "stocksync"

type Metrics struct {
	FetchAttempts  *prometheus.CounterVec
	RateLimited    prometheus.Counter
	RowsWritten    *prometheus.CounterVec
	SymbolsFetched *prometheus.CounterVec
	GroupFlushes   *prometheus.CounterVec
	Superseded     prometheus.Counter
}

// New creates the counters and registers them on reg when reg is non-nil.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		FetchAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_attempts_total",
			Help:      "HTTP fetch attempts by status class.",
		}, []string{"status"}),
		RateLimited: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_rate_limited_total",
			Help:      "Responses with status 429.",
		}),
		RowsWritten: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_written_total",
			Help:      "Rows written per destination and outcome (insert, update, error).",
		}, []string{"destination", "outcome"}),
		SymbolsFetched: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "symbols_fetched_total",
			Help:      "Symbols processed in a pass by result.",
		}, []string{"result"}),
		GroupFlushes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "group_flushes_total",
			Help:      "Debounced group snapshot writes by result.",
		}, []string{"result"}),
		Superseded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "group_snapshots_superseded_total",
			Help:      "Group snapshots replaced before their quiet period elapsed.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.FetchAttempts, m.RateLimited, m.RowsWritten, m.SymbolsFetched, m.GroupFlushes, m.Superseded)
	}
	return m
}

func (m *Metrics) FetchAttempt(status string) {
	if m == nil {
		return
	}
	m.FetchAttempts.WithLabelValues(status).Inc()
}

func (m *Metrics) RateLimit() {
	if m == nil {
		return
	}
	m.RateLimited.Inc()
}

func (m *Metrics) Row(destination, outcome string) {
	if m == nil {
		return
	}
	m.RowsWritten.WithLabelValues(destination, outcome).Inc()
}

func (m *Metrics) Symbol(result string) {
	if m == nil {
		return
	}
	m.SymbolsFetched.WithLabelValues(result).Inc()
}

func (m *Metrics) Flush(result string) {
	if m == nil {
		return
	}
	m.GroupFlushes.WithLabelValues(result).Inc()
}

func (m *Metrics) Supersede() {
	if m == nil {
		return
	}
	m.Superseded.Inc()
}
