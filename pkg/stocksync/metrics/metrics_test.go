package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsCount(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.FetchAttempt("2xx")
	m.FetchAttempt("429")
	m.RateLimit()
	m.Row("local", "insert")
	m.Row("local", "insert")
	m.Flush("ok")
	m.Supersede()

	assert.Equal(t, 1.0, testutil.ToFloat64(m.FetchAttempts.WithLabelValues("2xx")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RateLimited))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.RowsWritten.WithLabelValues("local", "insert")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.GroupFlushes.WithLabelValues("ok")))

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.FetchAttempt("2xx")
		m.RateLimit()
		m.Row("remote", "error")
		m.Symbol("ok")
		m.Flush("error")
		m.Supersede()
	})
}
