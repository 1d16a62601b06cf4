package ringsink

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sooth/audio-capture-library/audiocore"
)

func TestRingSinkRetainsMostRecentBytes(t *testing.T) {
	format := audiocore.AudioFormat{SampleRate: 48000, ChannelCount: 1, BitDepth: 16, IsFloat: false}
	s := New("ring1", 4, nil) // 4 bytes = 2 int16 samples
	require.NoError(t, s.Configure(format))

	buf1 := audiocore.AudioBuffer{Layout: audiocore.Planar{Channels: [][]float32{{0.1, 0.2}}}}
	require.NoError(t, s.Process(context.Background(), buf1))

	buf2 := audiocore.AudioBuffer{Layout: audiocore.Planar{Channels: [][]float32{{0.3}}}}
	require.NoError(t, s.Process(context.Background(), buf2))

	snap := s.Snapshot()
	assert.Len(t, snap, 4)
}

func TestRingSinkDoubleConfigureFails(t *testing.T) {
	s := New("ring1", 16, nil)
	require.NoError(t, s.Configure(audiocore.DefaultTargetFormat()))
	assert.Error(t, s.Configure(audiocore.DefaultTargetFormat()))
}

func TestRingSinkFinishIdempotencyGuard(t *testing.T) {
	s := New("ring1", 16, nil)
	require.NoError(t, s.Configure(audiocore.DefaultTargetFormat()))
	require.NoError(t, s.Finish())
	assert.Error(t, s.Finish())
}
