// Package mux implements the fan-out multiplexer (spec §4.6): one
// converted buffer dispatched to every attached sink concurrently, with
// per-sink fault isolation so a failing or panicking sink never blocks
// or cancels delivery to the others.
package mux

import (
	"context"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/sooth/audio-capture-library/audiocore"
	"github.com/sooth/audio-capture-library/audiocore/metricsx"
	"github.com/sooth/audio-capture-library/internal/logging"
)

// Multiplexer fans a stream of AudioBuffers out to a set of Sinks.
// Sinks are never removed automatically on error; the owning session
// decides whether to detach a persistently failing sink.
type Multiplexer struct {
	mu     sync.RWMutex
	sinks  []audiocore.Sink
	paused bool

	logger  *slog.Logger
	metrics *metricsx.PipelineMetrics
}

// New creates an empty Multiplexer.
func New(logger *slog.Logger) *Multiplexer {
	return &Multiplexer{logger: logging.Named(logger, "mux")}
}

// SetMetrics attaches the pipeline metrics every Dispatch call reports
// buffers-processed and sink-error counts to. Nil (the default) disables
// reporting, matching the logging package's Init/SetLevel setter style.
func (m *Multiplexer) SetMetrics(metrics *metricsx.PipelineMetrics) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.metrics = metrics
}

// Attach configures sink with format and adds it to the dispatch set in
// attachment order. Configure is called before the sink becomes visible
// to Dispatch.
func (m *Multiplexer) Attach(sink audiocore.Sink, format audiocore.AudioFormat) error {
	if err := sink.Configure(format); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sinks = append(m.sinks, sink)
	return nil
}

// Detach removes sink from the dispatch set without calling Finish; the
// caller is responsible for finishing a sink it is about to detach.
func (m *Multiplexer) Detach(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, s := range m.sinks {
		if s.ID() == id {
			m.sinks = append(m.sinks[:i], m.sinks[i+1:]...)
			return
		}
	}
}

// Sinks returns a snapshot of the currently attached sinks, in
// attachment order.
func (m *Multiplexer) Sinks() []audiocore.Sink {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]audiocore.Sink, len(m.sinks))
	copy(out, m.sinks)
	return out
}

// Pause drops every subsequently dispatched buffer on the floor,
// synchronously and without backpressuring the producer, until Resume.
func (m *Multiplexer) Pause() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.paused = true
}

// Resume cancels a prior Pause.
func (m *Multiplexer) Resume() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.paused = false
}

// IsPaused reports the current pause state.
func (m *Multiplexer) IsPaused() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.paused
}

// Dispatch delivers buf to every attached sink concurrently and waits
// for all of them to finish processing it. A sink that returns an error
// or panics has that fault routed to its own HandleError; it never
// propagates to the other sinks or to Dispatch's own return value,
// which is why this intentionally does not rely on errgroup's built-in
// fail-fast cancellation.
func (m *Multiplexer) Dispatch(ctx context.Context, buf audiocore.AudioBuffer) {
	m.mu.RLock()
	paused := m.paused
	sinks := make([]audiocore.Sink, len(m.sinks))
	copy(sinks, m.sinks)
	metrics := m.metrics
	m.mu.RUnlock()

	if paused || len(sinks) == 0 {
		return
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, s := range sinks {
		s := s
		g.Go(func() error {
			m.dispatchOne(gctx, s, buf, metrics)
			return nil
		})
	}
	_ = g.Wait() // never non-nil: dispatchOne absorbs every fault itself
}

// dispatchOne runs one sink's Process call, converting both panics and
// returned errors into a HandleError callback on that sink alone, and
// reporting the outcome to metrics (nil disables reporting).
func (m *Multiplexer) dispatchOne(ctx context.Context, s audiocore.Sink, buf audiocore.AudioBuffer, metrics *metricsx.PipelineMetrics) {
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error("sink panicked during dispatch", "sink_id", s.ID(), "panic", r)
			if metrics != nil {
				metrics.RecordSinkError(s.ID())
			}
			s.HandleError(panicError{value: r})
		}
	}()

	if err := s.Process(ctx, buf); err != nil {
		if metrics != nil {
			metrics.RecordSinkError(s.ID())
		}
		s.HandleError(err)
		return
	}
	if metrics != nil {
		metrics.RecordBufferProcessed(s.ID())
	}
}

type panicError struct{ value any }

func (p panicError) Error() string { return "sink panic recovered during dispatch" }
