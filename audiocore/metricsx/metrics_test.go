package metricsx

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordBufferProcessed(t *testing.T) {
	registry := prometheus.NewRegistry()
	m, err := NewPipelineMetrics(registry)
	require.NoError(t, err)

	m.RecordBufferProcessed("wav1")
	m.RecordBufferProcessed("wav1")

	assert.Equal(t, float64(2), testutil.ToFloat64(m.buffersProcessedTotal.WithLabelValues("wav1")))
}

func TestSetQueueDepth(t *testing.T) {
	registry := prometheus.NewRegistry()
	m, err := NewPipelineMetrics(registry)
	require.NoError(t, err)

	m.SetQueueDepth("producer", 7)
	assert.Equal(t, float64(7), testutil.ToFloat64(m.queueDepth.WithLabelValues("producer")))
}
