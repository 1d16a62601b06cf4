// Package metricsx exposes prometheus instrumentation for the capture
// pipeline, following the teacher's NewXMetrics(registry) (*X, error)
// constructor pattern: every metric is registered once against a
// caller-supplied registry instead of the global default, so tests can
// use an isolated prometheus.NewRegistry().
package metricsx

import "github.com/prometheus/client_golang/prometheus"

// PipelineMetrics groups every counter/gauge the capture pipeline emits.
type PipelineMetrics struct {
	buffersProcessedTotal *prometheus.CounterVec
	buffersDroppedTotal   *prometheus.CounterVec
	conversionErrorsTotal *prometheus.CounterVec
	sinkErrorsTotal       *prometheus.CounterVec
	queueDepth            *prometheus.GaugeVec
	activeSessions        prometheus.Gauge
}

// NewPipelineMetrics creates and registers every metric against
// registry, mirroring the teacher's per-feature metrics constructors.
func NewPipelineMetrics(registry prometheus.Registerer) (*PipelineMetrics, error) {
	m := &PipelineMetrics{
		buffersProcessedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "audiocapture_buffers_processed_total",
			Help: "Audio buffers successfully dispatched to a sink.",
		}, []string{"sink_id"}),
		buffersDroppedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "audiocapture_buffers_dropped_total",
			Help: "Audio buffers dropped from a bounded queue due to overflow.",
		}, []string{"queue"}),
		conversionErrorsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "audiocapture_conversion_errors_total",
			Help: "Format conversion failures in the collector pipeline.",
		}, []string{"source_id"}),
		sinkErrorsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "audiocapture_sink_errors_total",
			Help: "Errors reported by a sink via HandleError.",
		}, []string{"sink_id"}),
		queueDepth: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "audiocapture_queue_depth",
			Help: "Current occupancy of a bounded queue.",
		}, []string{"queue"}),
		activeSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "audiocapture_active_sessions",
			Help: "Number of capture sessions currently in the Active or Paused state.",
		}),
	}

	collectors := []prometheus.Collector{
		m.buffersProcessedTotal,
		m.buffersDroppedTotal,
		m.conversionErrorsTotal,
		m.sinkErrorsTotal,
		m.queueDepth,
		m.activeSessions,
	}
	for _, c := range collectors {
		if err := registry.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// RecordBufferProcessed increments the processed counter for sinkID.
func (m *PipelineMetrics) RecordBufferProcessed(sinkID string) {
	m.buffersProcessedTotal.WithLabelValues(sinkID).Inc()
}

// RecordBufferDropped increments the dropped counter for queueName.
func (m *PipelineMetrics) RecordBufferDropped(queueName string) {
	m.buffersDroppedTotal.WithLabelValues(queueName).Inc()
}

// RecordConversionError increments the conversion-error counter for sourceID.
func (m *PipelineMetrics) RecordConversionError(sourceID string) {
	m.conversionErrorsTotal.WithLabelValues(sourceID).Inc()
}

// RecordSinkError increments the sink-error counter for sinkID.
func (m *PipelineMetrics) RecordSinkError(sinkID string) {
	m.sinkErrorsTotal.WithLabelValues(sinkID).Inc()
}

// SetQueueDepth reports the current occupancy of a named queue.
func (m *PipelineMetrics) SetQueueDepth(queueName string, depth int) {
	m.queueDepth.WithLabelValues(queueName).Set(float64(depth))
}

// SetActiveSessions reports the current number of active sessions.
func (m *PipelineMetrics) SetActiveSessions(n int) {
	m.activeSessions.Set(float64(n))
}
