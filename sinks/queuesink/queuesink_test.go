package queuesink

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sooth/audio-capture-library/audiocore"
)

func TestQueueSinkDequeueOrder(t *testing.T) {
	s := New("q1", 10)
	require.NoError(t, s.Configure(audiocore.DefaultTargetFormat()))

	require.NoError(t, s.Process(context.Background(), audiocore.AudioBuffer{SourceID: "a"}))
	require.NoError(t, s.Process(context.Background(), audiocore.AudioBuffer{SourceID: "b"}))

	first, ok := s.Dequeue()
	require.True(t, ok)
	assert.Equal(t, "a", first.SourceID)

	second, ok := s.Dequeue()
	require.True(t, ok)
	assert.Equal(t, "b", second.SourceID)
}

func TestQueueSinkOverflowDropsOldest(t *testing.T) {
	s := New("q1", 2)
	require.NoError(t, s.Configure(audiocore.DefaultTargetFormat()))

	for i := 0; i < 5; i++ {
		_ = s.Process(context.Background(), audiocore.AudioBuffer{SourceID: string(rune('a' + i))})
	}
	assert.Equal(t, int64(3), s.Stats().Dropped)
}
