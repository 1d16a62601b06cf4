// Package session implements the capture-session state machine
// (spec §4.8): Idle -> Starting -> Active <-> Paused -> Stopping ->
// Stopped, with Error as a terminal state. The only path into Error is a
// producer that fails to start; no other fault moves a session there.
package session

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/sooth/audio-capture-library/audiocore"
	"github.com/sooth/audio-capture-library/audiocore/mux"
	"github.com/sooth/audio-capture-library/internal/errors"
	"github.com/sooth/audio-capture-library/internal/logging"
)

// State enumerates the capture session's lifecycle states.
type State int

const (
	StateIdle State = iota
	StateStarting
	StateActive
	StatePaused
	StateStopping
	StateStopped
	StateError
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateStarting:
		return "starting"
	case StateActive:
		return "active"
	case StatePaused:
		return "paused"
	case StateStopping:
		return "stopping"
	case StateStopped:
		return "stopped"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// Producer is the subset of producer.Producer a session drives.
type Producer interface {
	Start(ctx context.Context) error
	Stop() error
	IsRecording() bool
}

// Observer is notified of state transitions, outside the session's own
// lock (spec §4.8: observer notifications happen outside the state lock
// to avoid reentrant deadlocks from observer callbacks).
type Observer func(from, to State)

// Session coordinates one producer, one multiplexer, and the sinks
// attached to it through a single lifecycle state machine.
type Session struct {
	id       string
	producer Producer
	mux      *mux.Multiplexer
	logger   *slog.Logger

	mu          sync.Mutex
	state       State
	sinkOrder   []string
	observers   []Observer
	lastErr     error
}

// New creates a session in StateIdle, wrapping producer and mux.
func New(producer Producer, multiplexer *mux.Multiplexer, logger *slog.Logger) *Session {
	return &Session{
		id:       uuid.NewString(),
		producer: producer,
		mux:      multiplexer,
		state:    StateIdle,
		logger:   logging.Named(logger, "session"),
	}
}

// ID returns the session's UUID.
func (s *Session) ID() string { return s.id }

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// OnTransition registers an observer invoked after every state change.
func (s *Session) OnTransition(obs Observer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers = append(s.observers, obs)
}

// Start transitions Idle|Stopped -> Starting -> Active, starting the
// producer. Any failure transitions to Error and reports a fault.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	got := s.state
	s.mu.Unlock()
	if got != StateIdle && got != StateStopped {
		return errors.Newf("session %s: invalid transition from %s, expected idle or stopped", s.id, got).
			Component(audiocore.ComponentAudioCore).
			Category(errors.CategoryState).
			Context("session_id", s.id).
			Build()
	}
	s.transition(StateStarting)

	if err := s.producer.Start(ctx); err != nil {
		wrapped := errors.New(audiocore.ErrSessionStartFailed).
			Component(audiocore.ComponentAudioCore).
			Category(errors.CategoryState).
			Context("session_id", s.id).
			Context("operation", "start_producer").
			Context("cause", err.Error()).
			Build()
		s.fail(wrapped)
		return wrapped
	}

	s.transition(StateActive)
	return nil
}

// Pause transitions Active -> Paused, pausing the multiplexer so
// buffers are dropped rather than delivered while paused.
func (s *Session) Pause() error {
	if err := s.requireState(StateActive); err != nil {
		return err
	}
	s.mux.Pause()
	s.transition(StatePaused)
	return nil
}

// Resume transitions Paused -> Active.
func (s *Session) Resume() error {
	if err := s.requireState(StatePaused); err != nil {
		return err
	}
	s.mux.Resume()
	s.transition(StateActive)
	return nil
}

// AttachSink configures and attaches sink, valid only while Active or
// Paused. Sinks are tracked in attach order so Stop can Finish them in
// the same order.
func (s *Session) AttachSink(sink audiocore.Sink, format audiocore.AudioFormat) error {
	s.mu.Lock()
	state := s.state
	s.mu.Unlock()
	if state != StateActive && state != StatePaused {
		return errors.New(audiocore.ErrInvalidState).
			Component(audiocore.ComponentAudioCore).
			Context("session_id", s.id).
			Context("state", state.String()).
			Build()
	}
	if err := s.mux.Attach(sink, format); err != nil {
		return err
	}
	s.mu.Lock()
	s.sinkOrder = append(s.sinkOrder, sink.ID())
	s.mu.Unlock()
	return nil
}

// DetachSink removes a sink from dispatch without calling Finish; the
// caller owns finishing a sink it detaches mid-session.
func (s *Session) DetachSink(id string) {
	s.mux.Detach(id)
	s.mu.Lock()
	for i, sid := range s.sinkOrder {
		if sid == id {
			s.sinkOrder = append(s.sinkOrder[:i], s.sinkOrder[i+1:]...)
			break
		}
	}
	s.mu.Unlock()
}

// Stop transitions (Active|Paused) -> Stopping -> Stopped: halts the
// producer, then calls Finish on every attached sink exactly once, in
// attach order, and detaches it so a later restart never dispatches to
// it. Producer-stop and sink-Finish errors are logged, not returned, and
// do not stop the remaining sinks from being finished.
func (s *Session) Stop() error {
	s.mu.Lock()
	state := s.state
	s.mu.Unlock()
	if state != StateActive && state != StatePaused {
		return errors.New(audiocore.ErrInvalidState).
			Component(audiocore.ComponentAudioCore).
			Context("session_id", s.id).
			Context("state", state.String()).
			Build()
	}
	s.transition(StateStopping)

	if err := s.producer.Stop(); err != nil {
		s.logger.Error("producer stop failed", "session_id", s.id, "error", err)
	}

	sinks := s.mux.Sinks()
	for _, sink := range sinks {
		if err := sink.Finish(); err != nil {
			s.logger.Error("sink finish failed", "session_id", s.id, "sink_id", sink.ID(), "error", err)
		}
		s.mux.Detach(sink.ID())
	}

	s.mu.Lock()
	s.sinkOrder = nil
	s.mu.Unlock()

	s.transition(StateStopped)
	return nil
}

// LastError returns the error that drove the session into StateError,
// or nil if it has never entered that state.
func (s *Session) LastError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

func (s *Session) requireState(want State) error {
	s.mu.Lock()
	got := s.state
	s.mu.Unlock()
	if got != want {
		return errors.Newf("session %s: invalid transition from %s, expected %s", s.id, got, want).
			Component(audiocore.ComponentAudioCore).
			Category(errors.CategoryState).
			Context("session_id", s.id).
			Build()
	}
	return nil
}

// fail transitions the session into the terminal Error state and
// reports the fault via the package-level FaultReporter hook.
func (s *Session) fail(err error) {
	s.mu.Lock()
	s.lastErr = err
	s.mu.Unlock()
	s.transition(StateError)

	var enhanced *errors.EnhancedError
	if errors.As(err, &enhanced) {
		errors.ReportFault(enhanced)
	}
}

// transition updates the state and fires observers outside the lock.
func (s *Session) transition(to State) {
	s.mu.Lock()
	from := s.state
	s.state = to
	obs := make([]Observer, len(s.observers))
	copy(obs, s.observers)
	s.mu.Unlock()

	s.logger.Info("session state transition", "session_id", s.id, "from", from.String(), "to", to.String())
	for _, o := range obs {
		o(from, to)
	}
}
