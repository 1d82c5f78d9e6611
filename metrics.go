package rfdecode

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors for the decode pipeline. All
// per-decoder collectors carry a 'decoder' label.
type Metrics struct {
	BuffersRouted   *prometheus.CounterVec // Buffers delivered into a decoder queue
	BuffersDropped  *prometheus.CounterVec // Buffers dropped because a queue was full
	MessagesEmitted *prometheus.CounterVec // Decoded messages handed to the consumer
	DecodeDuration  *prometheus.HistogramVec

	FramesSynced    *prometheus.GaugeVec // Cumulative frames passing pattern sync
	FramesDiscarded *prometheus.GaugeVec // Frames failing length/field constraints
	CRCFailures     *prometheus.GaugeVec // Frames failing checksum validation
}

// NewMetrics registers the pipeline collectors with the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		BuffersRouted: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "rfdecode_buffers_routed_total",
			Help: "Sample buffers delivered to a decoder queue",
		}, []string{"decoder"}),
		BuffersDropped: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "rfdecode_buffers_dropped_total",
			Help: "Sample buffers dropped because the decoder queue was full",
		}, []string{"decoder"}),
		MessagesEmitted: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "rfdecode_messages_emitted_total",
			Help: "Decoded messages emitted",
		}, []string{"decoder"}),
		DecodeDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "rfdecode_decode_duration_seconds",
			Help:    "Wall time of one decode cycle",
			Buckets: prometheus.ExponentialBuckets(0.0001, 4, 10),
		}, []string{"decoder"}),
		FramesSynced: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "rfdecode_frames_synced",
			Help: "Frames that passed pattern synchronization",
		}, []string{"decoder"}),
		FramesDiscarded: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "rfdecode_frames_discarded",
			Help: "Frames discarded for malformed length or fields",
		}, []string{"decoder"}),
		CRCFailures: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "rfdecode_crc_failures",
			Help: "Frames discarded on checksum mismatch",
		}, []string{"decoder"}),
	}
}

// observeStats publishes a decoder's cumulative counters. The counters are
// owned by the decoder, so they surface as gauges set to the latest value.
func (m *Metrics) observeStats(decoder string, s Stats) {
	m.FramesSynced.WithLabelValues(decoder).Set(float64(s.FramesSynced))
	m.FramesDiscarded.WithLabelValues(decoder).Set(float64(s.FramesDiscarded))
	m.CRCFailures.WithLabelValues(decoder).Set(float64(s.CRCFailures))
}
