package jobmetrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestTrackerRecordsOutcome(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	require.NoError(t, m.Track("bills:mark_overdue").End(nil))
	boom := errors.New("boom")
	require.ErrorIs(t, m.Track("bills:mark_overdue").End(boom), boom)

	require.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues("bills:mark_overdue", "success")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues("bills:mark_overdue", "failure")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.failures.WithLabelValues("bills:mark_overdue")))
}

func TestObserveSyncSkipsEmptyCounts(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())
	m.ObserveSync("created", 3)
	m.ObserveSync("error", 0)
	require.Equal(t, 3.0, testutil.ToFloat64(m.syncResults.WithLabelValues("created")))
	require.Equal(t, 0.0, testutil.ToFloat64(m.syncResults.WithLabelValues("error")))
}

func TestNilMetricsTrackerIsNoop(t *testing.T) {
	var m *Metrics
	require.NoError(t, m.Track("x").End(nil))
	m.ObserveSync("created", 1)
}
