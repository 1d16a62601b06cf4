// Package producer implements the device-backed producer adapter
// (spec §4.7): it wraps a DeviceHandle, tags each incoming raw callback
// with a monotonic timestamp, and hands buffers off to the multiplexer
// without ever blocking the device's audio thread.
package producer

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sooth/audio-capture-library/audiocore"
	"github.com/sooth/audio-capture-library/audiocore/metricsx"
	"github.com/sooth/audio-capture-library/audiocore/queue"
	"github.com/sooth/audio-capture-library/internal/errors"
	"github.com/sooth/audio-capture-library/internal/logging"
)

// Dispatcher is the subset of *mux.Multiplexer a Producer needs; kept as
// an interface so producer does not import mux directly and can be
// driven by tests with a stub.
type Dispatcher interface {
	Dispatch(ctx context.Context, buf audiocore.AudioBuffer)
}

// Config configures a Producer.
type Config struct {
	SourceID   string
	Device     audiocore.DeviceHandle
	Dispatcher Dispatcher
	// QueueCapacity bounds the hand-off queue between the device
	// callback and the dispatch goroutine; 0 uses a sensible default.
	QueueCapacity int
	Logger        *slog.Logger
	Metrics       *metricsx.PipelineMetrics // nil disables drop/depth reporting
}

// Producer drives one DeviceHandle, converting its raw callback stream
// into timestamped AudioBuffers dispatched downstream.
type Producer struct {
	sourceID   string
	device     audiocore.DeviceHandle
	dispatcher Dispatcher
	queue      *queue.FIFO[audiocore.AudioBuffer]
	logger     *slog.Logger
	metrics    *metricsx.PipelineMetrics

	recording int32 // atomic bool
	startedAt time.Time

	runMu  sync.Mutex // guards stopCh/doneCh across a Start/Stop cycle
	stopCh chan struct{}
	doneCh chan struct{}
}

const defaultQueueCapacity = 64

// New creates a Producer bound to cfg.Device. The device callback is
// not registered until Start is called.
func New(cfg Config) *Producer {
	cap := cfg.QueueCapacity
	if cap <= 0 {
		cap = defaultQueueCapacity
	}
	return &Producer{
		sourceID:   cfg.SourceID,
		device:     cfg.Device,
		dispatcher: cfg.Dispatcher,
		queue:      queue.NewFIFO[audiocore.AudioBuffer](cap),
		logger:     logging.Named(cfg.Logger, "producer"),
		metrics:    cfg.Metrics,
	}
}

// Start registers the device callback and begins the dispatch loop.
// Idempotent: calling Start twice is a no-op after the first call.
func (p *Producer) Start(ctx context.Context) error {
	if !atomic.CompareAndSwapInt32(&p.recording, 0, 1) {
		return nil
	}
	p.startedAt = time.Now()
	p.runMu.Lock()
	p.stopCh = make(chan struct{})
	p.doneCh = make(chan struct{})
	p.runMu.Unlock()

	p.device.RegisterCallback(func(raw []byte) {
		p.onRawFrame(raw)
	})

	go p.dispatchLoop(ctx, p.stopCh, p.doneCh)
	p.logger.Info("producer started", "source_id", p.sourceID, "format", p.device.ActualFormat().String())
	return nil
}

// onRawFrame runs on the device's callback thread: it must never block.
// A full queue drops the oldest buffered frame rather than stalling the
// device, per spec §4.2/§4.7.
func (p *Producer) onRawFrame(raw []byte) {
	if atomic.LoadInt32(&p.recording) == 0 {
		return
	}
	format := p.device.ActualFormat()
	buf := audiocore.AudioBuffer{
		Raw:       append([]byte(nil), raw...),
		Format:    format,
		Timestamp: time.Now(),
		SourceID:  p.sourceID,
	}
	if format.BitDepth > 0 {
		buf.FrameCount = len(raw) / format.BytesPerFrame()
	}
	dropped := p.queue.TryEnqueue(buf)
	if p.metrics != nil {
		if dropped {
			p.metrics.RecordBufferDropped(p.sourceID)
		}
		p.metrics.SetQueueDepth(p.sourceID, p.queue.Count())
	}
}

// dispatchLoop drains the hand-off queue and forwards each buffer to the
// dispatcher, off the device's real-time callback thread.
func (p *Producer) dispatchLoop(ctx context.Context, stopCh, doneCh chan struct{}) {
	defer close(doneCh)
	stream := p.queue.Stream(stopCh)
	for {
		select {
		case buf, ok := <-stream:
			if !ok {
				return
			}
			p.dispatcher.Dispatch(ctx, buf)
		case <-ctx.Done():
			return
		}
	}
}

// Stop halts the device callback and waits for the dispatch loop to
// drain. Idempotent per run: calling Stop twice in a row (without an
// intervening Start) is a no-op, but a subsequent Start/Stop cycle works
// correctly since each Start installs a fresh stop/done pair.
func (p *Producer) Stop() error {
	if !atomic.CompareAndSwapInt32(&p.recording, 1, 0) {
		return nil
	}
	p.runMu.Lock()
	stopCh, doneCh := p.stopCh, p.doneCh
	p.runMu.Unlock()

	close(stopCh)
	var err error
	if closeErr := p.device.Close(); closeErr != nil {
		err = errors.New(closeErr).
			Component(audiocore.ComponentAudioCore).
			Category(errors.CategoryDevice).
			Context("source_id", p.sourceID).
			Build()
	}
	<-doneCh
	p.logger.Info("producer stopped", "source_id", p.sourceID)
	return err
}

// IsRecording reports whether the producer is currently active.
func (p *Producer) IsRecording() bool { return atomic.LoadInt32(&p.recording) == 1 }

// ActualSampleRate returns the device's negotiated sample rate, which
// may differ from what was requested (spec §4.7).
func (p *Producer) ActualSampleRate() float64 { return p.device.ActualFormat().SampleRate }

// ChannelCount returns the device's negotiated channel count.
func (p *Producer) ChannelCount() int { return p.device.ActualFormat().ChannelCount }

// QueueStats exposes the hand-off queue's bookkeeping for diagnostics.
func (p *Producer) QueueStats() queue.Stats { return p.queue.Stats() }
