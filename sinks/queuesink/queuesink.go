// Package queuesink adapts a bounded queue into an audiocore.Sink, so a
// consumer can pull converted buffers at its own pace (e.g. a batch
// upload job) instead of being driven by the multiplexer's dispatch
// goroutines directly.
package queuesink

import (
	"context"
	"sync"

	"github.com/sooth/audio-capture-library/audiocore"
	"github.com/sooth/audio-capture-library/audiocore/queue"
	"github.com/sooth/audio-capture-library/internal/errors"
)

type state int

const (
	stateUnconfigured state = iota
	stateConfigured
	stateClosed
)

// Sink wraps a queue.FIFO[audiocore.AudioBuffer], applying the FIFO's
// own drop-oldest overflow policy to buffers the consumer hasn't pulled
// yet.
type Sink struct {
	id    string
	queue *queue.FIFO[audiocore.AudioBuffer]

	mu sync.Mutex
	st state
}

// New creates a queue-backed sink with the given hand-off capacity.
func New(id string, capacity int) *Sink {
	return &Sink{id: id, queue: queue.NewFIFO[audiocore.AudioBuffer](capacity)}
}

func (s *Sink) ID() string { return s.id }

func (s *Sink) Configure(audiocore.AudioFormat) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.st != stateUnconfigured {
		return errors.New(audiocore.ErrSinkAlreadyConfigured).
			Component(audiocore.ComponentAudioCore).
			Context("sink_id", s.id).
			Build()
	}
	s.st = stateConfigured
	return nil
}

func (s *Sink) Process(_ context.Context, buf audiocore.AudioBuffer) error {
	s.mu.Lock()
	st := s.st
	s.mu.Unlock()
	if st != stateConfigured {
		return errors.New(audiocore.ErrSinkNotConfigured).
			Component(audiocore.ComponentAudioCore).
			Context("sink_id", s.id).
			Build()
	}
	s.queue.TryEnqueue(buf)
	return nil
}

func (s *Sink) HandleError(error) {}

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

// Dequeue pulls the next buffered item, if any.
func (s *Sink) Dequeue() (audiocore.AudioBuffer, bool) { return s.queue.Dequeue() }

// Stats exposes the underlying queue's bookkeeping.
func (s *Sink) Stats() queue.Stats { return s.queue.Stats() }
