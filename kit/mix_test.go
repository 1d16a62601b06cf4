package kit

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sooth/audio-capture-library/audiocore"
)

func TestMixToFileProducesBlendedWAV(t *testing.T) {
	k := newTestKit(t)
	path := filepath.Join(t.TempDir(), "mixed.wav")

	mix, err := k.MixToFile(context.Background(), "loopback", "mic", path)
	require.NoError(t, err)

	// No frames are fed to the fake devices: this checks the session
	// bookkeeping and that the WAV file is created, not the blended samples.
	stats := k.GetStatistics()
	assert.Equal(t, 2, stats.ActiveSessions)

	time.Sleep(300 * time.Millisecond) // let the ticker flush at least once
	require.NoError(t, mix.Stop())

	stats = k.GetStatistics()
	assert.Equal(t, 0, stats.ActiveSessions)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0)) // WAV header was written even with no frames
}

func TestMixToFileFailsWhenSecondDeviceUnavailable(t *testing.T) {
	calls := 0
	k, err := New(Config{
		DeviceFactory: func(string) (audiocore.DeviceHandle, error) {
			calls++
			if calls == 1 {
				return &fakeDevice{format: audiocore.DefaultTargetFormat()}, nil
			}
			return nil, assert.AnError
		},
	})
	require.NoError(t, err)

	_, err = k.MixToFile(context.Background(), "a", "b", filepath.Join(t.TempDir(), "out.wav"))
	assert.Error(t, err)
	assert.Equal(t, 0, k.GetStatistics().ActiveSessions)
}
