// Package callbacksink implements the user-callback sink: every
// converted buffer is handed to an application-supplied function,
// letting callers embed audio processing directly in their own process
// without going through a file or network sink.
package callbacksink

import (
	"context"
	"log/slog"
	"sync"

	"github.com/sooth/audio-capture-library/audiocore"
	"github.com/sooth/audio-capture-library/internal/errors"
	"github.com/sooth/audio-capture-library/internal/logging"
)

type state int

const (
	stateUnconfigured state = iota
	stateConfigured
	stateClosed
)

// Handler receives each converted buffer. It must not retain buf's
// slices past the call, since the multiplexer may reuse them.
type Handler func(buf audiocore.AudioBuffer) error

// Sink forwards every Process call to a user-supplied Handler.
type Sink struct {
	id      string
	handler Handler

	mu     sync.Mutex
	st     state
	format audiocore.AudioFormat
	logger *slog.Logger
}

// New creates a callback sink that invokes handler for every buffer.
func New(id string, handler Handler, logger *slog.Logger) *Sink {
	return &Sink{id: id, handler: handler, logger: logging.Named(logger, "callbacksink")}
}

func (s *Sink) ID() string { return s.id }

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
	return s.handler(buf)
}

func (s *Sink) HandleError(err error) {
	s.logger.Error("callback sink processing error", "sink_id", s.id, "error", err)
}

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
