package session

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sooth/audio-capture-library/audiocore"
	"github.com/sooth/audio-capture-library/audiocore/mux"
)

type fakeProducer struct {
	startErr error
	stopErr  error
	started  bool
}

func (p *fakeProducer) Start(context.Context) error {
	p.started = true
	return p.startErr
}
func (p *fakeProducer) Stop() error {
	p.started = false
	return p.stopErr
}
func (p *fakeProducer) IsRecording() bool { return p.started }

type finishTrackingSink struct {
	id       string
	finished bool
	mu       *sync.Mutex
	order    *[]string
}

func (s *finishTrackingSink) ID() string                                  { return s.id }
func (s *finishTrackingSink) Configure(audiocore.AudioFormat) error       { return nil }
func (s *finishTrackingSink) Process(context.Context, audiocore.AudioBuffer) error { return nil }
func (s *finishTrackingSink) HandleError(error)                           {}
func (s *finishTrackingSink) Finish() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.finished = true
	*s.order = append(*s.order, s.id)
	return nil
}

// S5 — stopping a session halts the producer and calls Finish on every
// attached sink exactly once, in attach order.
func TestSessionStopDrainsSinksInAttachOrder(t *testing.T) {
	producer := &fakeProducer{}
	m := mux.New(nil)
	sess := New(producer, m, nil)

	require.NoError(t, sess.Start(context.Background()))
	assert.Equal(t, StateActive, sess.State())

	var mu sync.Mutex
	var order []string
	s1 := &finishTrackingSink{id: "s1", mu: &mu, order: &order}
	s2 := &finishTrackingSink{id: "s2", mu: &mu, order: &order}
	require.NoError(t, sess.AttachSink(s1, audiocore.DefaultTargetFormat()))
	require.NoError(t, sess.AttachSink(s2, audiocore.DefaultTargetFormat()))

	require.NoError(t, sess.Stop())

	assert.Equal(t, StateStopped, sess.State())
	assert.False(t, producer.started)
	assert.True(t, s1.finished)
	assert.True(t, s2.finished)
	assert.Equal(t, []string{"s1", "s2"}, order)
}

func TestSessionStartFailureTransitionsToError(t *testing.T) {
	producer := &fakeProducer{startErr: assertErr}
	m := mux.New(nil)
	sess := New(producer, m, nil)

	err := sess.Start(context.Background())
	require.Error(t, err)
	assert.Equal(t, StateError, sess.State())
	assert.Error(t, sess.LastError())
}

func TestSessionPauseResume(t *testing.T) {
	producer := &fakeProducer{}
	m := mux.New(nil)
	sess := New(producer, m, nil)
	require.NoError(t, sess.Start(context.Background()))

	require.NoError(t, sess.Pause())
	assert.Equal(t, StatePaused, sess.State())
	assert.True(t, m.IsPaused())

	require.NoError(t, sess.Resume())
	assert.Equal(t, StateActive, sess.State())
	assert.False(t, m.IsPaused())
}

func TestSessionAttachSinkRequiresActiveOrPaused(t *testing.T) {
	producer := &fakeProducer{}
	m := mux.New(nil)
	sess := New(producer, m, nil)

	var mu sync.Mutex
	var order []string
	err := sess.AttachSink(&finishTrackingSink{id: "s1", mu: &mu, order: &order}, audiocore.DefaultTargetFormat())
	assert.Error(t, err)
}

func TestSessionObserverFiresOutsideLock(t *testing.T) {
	producer := &fakeProducer{}
	m := mux.New(nil)
	sess := New(producer, m, nil)

	var transitions []string
	sess.OnTransition(func(from, to State) {
		transitions = append(transitions, from.String()+"->"+to.String())
		// Calling back into the session from inside the observer must not
		// deadlock, proving the transition lock was released first.
		_ = sess.State()
	})

	require.NoError(t, sess.Start(context.Background()))
	assert.Contains(t, transitions, "idle->starting")
	assert.Contains(t, transitions, "starting->active")
}

// Start is valid from Idle or Stopped (spec §4.8); a session that has
// already completed one full Start/Stop cycle must be restartable.
func TestSessionRestartFromStopped(t *testing.T) {
	producer := &fakeProducer{}
	m := mux.New(nil)
	sess := New(producer, m, nil)

	require.NoError(t, sess.Start(context.Background()))
	require.NoError(t, sess.Stop())
	assert.Equal(t, StateStopped, sess.State())

	require.NoError(t, sess.Start(context.Background()))
	assert.Equal(t, StateActive, sess.State())
	assert.True(t, producer.started)

	require.NoError(t, sess.Stop())
	assert.Equal(t, StateStopped, sess.State())
}

var assertErr = &staticErr{"start failed"}

type staticErr struct{ msg string }

func (e *staticErr) Error() string { return e.msg }
