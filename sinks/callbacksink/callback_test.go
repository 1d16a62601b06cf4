package callbacksink

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sooth/audio-capture-library/audiocore"
)

func TestCallbackSinkInvokesHandler(t *testing.T) {
	var received []string
	s := New("cb1", func(buf audiocore.AudioBuffer) error {
		received = append(received, buf.SourceID)
		return nil
	}, nil)

	require.NoError(t, s.Configure(audiocore.DefaultTargetFormat()))
	require.NoError(t, s.Process(context.Background(), audiocore.AudioBuffer{SourceID: "mic"}))
	assert.Equal(t, []string{"mic"}, received)
}

func TestCallbackSinkRejectsBeforeConfigure(t *testing.T) {
	s := New("cb1", func(audiocore.AudioBuffer) error { return nil }, nil)
	err := s.Process(context.Background(), audiocore.AudioBuffer{})
	assert.Error(t, err)
}
