// Package ringsink implements the in-memory ring-buffer sink: recent
// audio is retained in a fixed-capacity byte ring so a consumer can pull
// the last N seconds on demand (e.g. a "save the last 10 seconds"
// trigger) without the sink itself doing any file or network I/O.
package ringsink

import (
	"context"
	"log/slog"
	"sync"

	"github.com/smallnest/ringbuffer"

	"github.com/sooth/audio-capture-library/audiocore"
	"github.com/sooth/audio-capture-library/audiocore/collector"
	"github.com/sooth/audio-capture-library/internal/errors"
	"github.com/sooth/audio-capture-library/internal/logging"
)

type state int

const (
	stateUnconfigured state = iota
	stateConfigured
	stateClosed
)

// Sink retains the most recent capacityBytes of interleaved audio in a
// ring buffer, overwriting the oldest bytes once full.
type Sink struct {
	id            string
	capacityBytes int

	mu     sync.Mutex
	st     state
	format audiocore.AudioFormat
	ring   *ringbuffer.RingBuffer
	logger *slog.Logger
}

// New creates a ring-buffer sink retaining the most recent
// capacityBytes bytes of converted audio.
func New(id string, capacityBytes int, logger *slog.Logger) *Sink {
	return &Sink{
		id:            id,
		capacityBytes: capacityBytes,
		logger:        logging.Named(logger, "ringsink"),
	}
}

func (s *Sink) ID() string { return s.id }

// Configure allocates the backing ring buffer.
func (s *Sink) Configure(format audiocore.AudioFormat) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.st != stateUnconfigured {
		return errors.New(audiocore.ErrSinkAlreadyConfigured).
			Component(audiocore.ComponentAudioCore).
			Context("sink_id", s.id).
			Build()
	}
	s.format = format
	s.ring = ringbuffer.New(s.capacityBytes)
	s.st = stateConfigured
	return nil
}

// Process appends buf's interleaved bytes, discarding the oldest
// retained bytes first if there isn't enough free space, so the sink
// always keeps the most recent capacityBytes (spec's drop-oldest
// retention policy for this sink). Oversized single buffers are
// truncated to the ring's total capacity from the tail.
func (s *Sink) Process(_ context.Context, buf audiocore.AudioBuffer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.st != stateConfigured {
		return errors.New(audiocore.ErrSinkNotConfigured).
			Component(audiocore.ComponentAudioCore).
			Context("sink_id", s.id).
			Build()
	}

	data := collector.InterleaveBytes(buf, s.format)
	if len(data) == 0 {
		return nil
	}
	if len(data) > s.capacityBytes {
		data = data[len(data)-s.capacityBytes:]
	}

	if needed := len(data) - s.ring.Free(); needed > 0 {
		discard := make([]byte, needed)
		_, _ = s.ring.Read(discard)
	}
	if _, err := s.ring.Write(data); err != nil {
		return errors.New(err).
			Component(audiocore.ComponentAudioCore).
			Category(errors.CategoryResource).
			Context("sink_id", s.id).
			Build()
	}
	return nil
}

// HandleError logs ring-sink processing failures.
func (s *Sink) HandleError(err error) {
	s.logger.Error("ring sink processing error", "sink_id", s.id, "error", err)
}

// Finish marks the sink closed; the retained bytes remain readable via
// Snapshot until the Sink is discarded.
func (s *Sink) Finish() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.st == stateClosed {
		return errors.New(audiocore.ErrSinkFinished).
			Component(audiocore.ComponentAudioCore).
			Context("sink_id", s.id).
			Build()
	}
	s.st = stateClosed
	return nil
}

// Snapshot returns a copy of the bytes currently retained in the ring,
// oldest first.
func (s *Sink) Snapshot() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ring == nil {
		return nil
	}
	return s.ring.Bytes()
}
