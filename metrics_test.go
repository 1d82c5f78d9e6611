package rfdecode

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsObserveStats(t *testing.T) {
	metrics := NewMetrics(prometheus.NewRegistry())
	metrics.observeStats("ax25", Stats{FramesSynced: 12, FramesDiscarded: 3, CRCFailures: 2})
	metrics.observeStats("ax25", Stats{FramesSynced: 15, FramesDiscarded: 3, CRCFailures: 2})

	assert.EqualValues(t, 15, testutil.ToFloat64(metrics.FramesSynced.WithLabelValues("ax25")))
	assert.EqualValues(t, 3, testutil.ToFloat64(metrics.FramesDiscarded.WithLabelValues("ax25")))
	assert.EqualValues(t, 2, testutil.ToFloat64(metrics.CRCFailures.WithLabelValues("ax25")))
}

func TestMetricsPassLint(t *testing.T) {
	metrics := NewMetrics(prometheus.NewRegistry())

	// Populate a label on each collector so it exports something to lint.
	metrics.BuffersRouted.WithLabelValues("dec").Inc()
	metrics.BuffersDropped.WithLabelValues("dec").Inc()
	metrics.MessagesEmitted.WithLabelValues("dec").Inc()
	metrics.DecodeDuration.WithLabelValues("dec").Observe(0.001)
	metrics.observeStats("dec", Stats{FramesSynced: 1, FramesDiscarded: 1, CRCFailures: 1})

	for _, c := range []prometheus.Collector{
		metrics.BuffersRouted,
		metrics.BuffersDropped,
		metrics.MessagesEmitted,
		metrics.DecodeDuration,
		metrics.FramesSynced,
		metrics.FramesDiscarded,
		metrics.CRCFailures,
	} {
		problems, err := testutil.CollectAndLint(c)
		require.NoError(t, err)
		assert.Empty(t, problems)
	}
}
