package mux

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/sooth/audio-capture-library/audiocore"
	"github.com/sooth/audio-capture-library/audiocore/metricsx"
)

type countingSink struct {
	id string
	mu sync.Mutex
	n  int
}

func (s *countingSink) ID() string                                 { return s.id }
func (s *countingSink) Configure(audiocore.AudioFormat) error      { return nil }
func (s *countingSink) HandleError(error)                          {}
func (s *countingSink) Finish() error                               { return nil }
func (s *countingSink) Process(context.Context, audiocore.AudioBuffer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.n++
	return nil
}
func (s *countingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.n
}

type failingSink struct {
	id         string
	panics     bool
	errorCount int
	mu         sync.Mutex
}

func (s *failingSink) ID() string                            { return s.id }
func (s *failingSink) Configure(audiocore.AudioFormat) error { return nil }
func (s *failingSink) Finish() error                          { return nil }
func (s *failingSink) HandleError(error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errorCount++
}
func (s *failingSink) Process(context.Context, audiocore.AudioBuffer) error {
	if s.panics {
		panic("simulated sink failure")
	}
	return errors.New("simulated sink error")
}

// Testable property: multiplexer isolation. A failing (or panicking)
// sink running alongside a healthy sink must not prevent the healthy
// sink from receiving every dispatched buffer.
func TestMultiplexerIsolatesFailingSink(t *testing.T) {
	m := New(nil)
	good := &countingSink{id: "good"}
	bad := &failingSink{id: "bad"}

	assertNoErr(t, m.Attach(good, audiocore.DefaultTargetFormat()))
	assertNoErr(t, m.Attach(bad, audiocore.DefaultTargetFormat()))

	for i := 0; i < 5; i++ {
		m.Dispatch(context.Background(), audiocore.AudioBuffer{})
	}

	assert.Equal(t, 5, good.count())

	bad.mu.Lock()
	assert.Equal(t, 5, bad.errorCount)
	bad.mu.Unlock()
}

func TestMultiplexerIsolatesPanickingSink(t *testing.T) {
	defer goleak.VerifyNone(t)

	m := New(nil)
	good := &countingSink{id: "good"}
	bad := &failingSink{id: "bad", panics: true}

	assertNoErr(t, m.Attach(good, audiocore.DefaultTargetFormat()))
	assertNoErr(t, m.Attach(bad, audiocore.DefaultTargetFormat()))

	m.Dispatch(context.Background(), audiocore.AudioBuffer{})

	assert.Equal(t, 1, good.count())
	bad.mu.Lock()
	assert.Equal(t, 1, bad.errorCount)
	bad.mu.Unlock()
}

func TestMultiplexerPauseDropsBuffers(t *testing.T) {
	m := New(nil)
	good := &countingSink{id: "good"}
	assertNoErr(t, m.Attach(good, audiocore.DefaultTargetFormat()))

	m.Pause()
	m.Dispatch(context.Background(), audiocore.AudioBuffer{})
	assert.Equal(t, 0, good.count())

	m.Resume()
	m.Dispatch(context.Background(), audiocore.AudioBuffer{})
	assert.Equal(t, 1, good.count())
}

func TestMultiplexerDetach(t *testing.T) {
	m := New(nil)
	s1 := &countingSink{id: "s1"}
	s2 := &countingSink{id: "s2"}
	assertNoErr(t, m.Attach(s1, audiocore.DefaultTargetFormat()))
	assertNoErr(t, m.Attach(s2, audiocore.DefaultTargetFormat()))

	m.Detach("s1")
	assert.Len(t, m.Sinks(), 1)

	m.Dispatch(context.Background(), audiocore.AudioBuffer{})
	assert.Equal(t, 0, s1.count())
	assert.Equal(t, 1, s2.count())
}

// Testable property: Dispatch feeds the pipeline metrics attached via
// SetMetrics — processed counts for healthy sinks, sink-error counts
// for failing or panicking ones.
func TestMultiplexerReportsMetrics(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics, err := metricsx.NewPipelineMetrics(registry)
	require.NoError(t, err)

	m := New(nil)
	m.SetMetrics(metrics)
	good := &countingSink{id: "good"}
	bad := &failingSink{id: "bad"}
	assertNoErr(t, m.Attach(good, audiocore.DefaultTargetFormat()))
	assertNoErr(t, m.Attach(bad, audiocore.DefaultTargetFormat()))

	m.Dispatch(context.Background(), audiocore.AudioBuffer{})
	m.Dispatch(context.Background(), audiocore.AudioBuffer{})

	const expected = `
# HELP audiocapture_buffers_processed_total Audio buffers successfully dispatched to a sink.
# TYPE audiocapture_buffers_processed_total counter
audiocapture_buffers_processed_total{sink_id="good"} 2
# HELP audiocapture_sink_errors_total Errors reported by a sink via HandleError.
# TYPE audiocapture_sink_errors_total counter
audiocapture_sink_errors_total{sink_id="bad"} 2
`
	assert.NoError(t, testutil.GatherAndCompare(registry, strings.NewReader(expected),
		"audiocapture_buffers_processed_total", "audiocapture_sink_errors_total"))
}

func assertNoErr(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
