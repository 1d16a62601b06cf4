package producer

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/sooth/audio-capture-library/audiocore"
	"github.com/sooth/audio-capture-library/audiocore/metricsx"
)

type fakeDevice struct {
	mu       sync.Mutex
	format   audiocore.AudioFormat
	cb       func([]byte)
	closed   int
	opened   int
}

func (d *fakeDevice) ActualFormat() audiocore.AudioFormat { return d.format }

func (d *fakeDevice) RegisterCallback(fn func([]byte)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cb = fn
	d.opened++
}

func (d *fakeDevice) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed++
	return nil
}

func (d *fakeDevice) deliver(raw []byte) {
	d.mu.Lock()
	cb := d.cb
	d.mu.Unlock()
	if cb != nil {
		cb(raw)
	}
}

type countingDispatcher struct {
	mu sync.Mutex
	n  int
}

func (c *countingDispatcher) Dispatch(context.Context, audiocore.AudioBuffer) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.n++
}

func (c *countingDispatcher) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.n
}

func testFormat() audiocore.AudioFormat {
	return audiocore.AudioFormat{SampleRate: 48000, ChannelCount: 2, BitDepth: 16, IsInterleaved: true}
}

// A producer must survive a full Start/Stop/Start/Stop cycle: the
// restart is exactly the path session.Session.Start allows from
// StateStopped, so the producer it drives must not leak its dispatch
// goroutine or otherwise wedge on the second cycle.
func TestProducerSurvivesRestartCycle(t *testing.T) {
	defer goleak.VerifyNone(t)

	device := &fakeDevice{format: testFormat()}
	dispatcher := &countingDispatcher{}
	p := New(Config{SourceID: "mic", Device: device, Dispatcher: dispatcher})

	ctx := context.Background()
	require.NoError(t, p.Start(ctx))
	assert.True(t, p.IsRecording())

	device.deliver(make([]byte, testFormat().BytesPerFrame()*16))
	require.Eventually(t, func() bool { return dispatcher.count() == 1 }, time.Second, time.Millisecond)

	require.NoError(t, p.Stop())
	assert.False(t, p.IsRecording())

	// Second cycle: must not be a once-only no-op.
	require.NoError(t, p.Start(ctx))
	assert.True(t, p.IsRecording())

	device.deliver(make([]byte, testFormat().BytesPerFrame()*16))
	require.Eventually(t, func() bool { return dispatcher.count() == 2 }, time.Second, time.Millisecond)

	require.NoError(t, p.Stop())
	assert.False(t, p.IsRecording())
	assert.Equal(t, 2, device.closed)
}

func TestProducerOnRawFrameDropsOldestOnFullQueue(t *testing.T) {
	device := &fakeDevice{format: testFormat()}
	dispatcher := &countingDispatcher{}
	p := New(Config{SourceID: "mic", Device: device, Dispatcher: dispatcher, QueueCapacity: 2})

	// Without starting the dispatch loop, the hand-off queue fills and
	// must drop the oldest frame rather than block the callback.
	frame := make([]byte, testFormat().BytesPerFrame())
	atomicStoreRecording(p)
	for i := 0; i < 5; i++ {
		p.onRawFrame(frame)
	}

	stats := p.QueueStats()
	assert.Equal(t, int64(5), stats.Enqueued)
	assert.Equal(t, int64(3), stats.Dropped)
}

// Testable property: the hand-off queue's drop path and depth gauge
// reach the pipeline metrics attached via Config.Metrics.
func TestProducerReportsQueueMetrics(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics, err := metricsx.NewPipelineMetrics(registry)
	require.NoError(t, err)

	device := &fakeDevice{format: testFormat()}
	dispatcher := &countingDispatcher{}
	p := New(Config{SourceID: "mic", Device: device, Dispatcher: dispatcher, QueueCapacity: 2, Metrics: metrics})

	frame := make([]byte, testFormat().BytesPerFrame())
	atomicStoreRecording(p)
	for i := 0; i < 5; i++ {
		p.onRawFrame(frame)
	}

	const expected = `
# HELP audiocapture_buffers_dropped_total Audio buffers dropped from a bounded queue due to overflow.
# TYPE audiocapture_buffers_dropped_total counter
audiocapture_buffers_dropped_total{queue="mic"} 3
# HELP audiocapture_queue_depth Current occupancy of a bounded queue.
# TYPE audiocapture_queue_depth gauge
audiocapture_queue_depth{queue="mic"} 2
`
	assert.NoError(t, testutil.GatherAndCompare(registry, strings.NewReader(expected),
		"audiocapture_buffers_dropped_total", "audiocapture_queue_depth"))
}

func atomicStoreRecording(p *Producer) {
	// onRawFrame no-ops while not recording; simulate an active producer
	// without spinning up the real dispatch goroutine for this test.
	p.recording = 1
}
