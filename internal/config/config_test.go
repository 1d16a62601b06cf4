package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sooth/audio-capture-library/audiocore"
)

func writeFile(path, contents string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(contents), 0o644)
}

func resetViper() {
	viper.Reset()
}

func TestLoadCreatesDefaultConfigWhenMissing(t *testing.T) {
	resetViper()
	t.Setenv("HOME", t.TempDir())

	settings, err := Load()
	require.NoError(t, err)

	assert.Equal(t, float64(48000), settings.Capture.SampleRate)
	assert.Equal(t, 2, settings.Capture.Channels)
	assert.Equal(t, 32, settings.Capture.BitDepth)
	assert.True(t, settings.Capture.Float)
	assert.Equal(t, ":8080", settings.HTTP.Addr)
}

func TestLoadReadsExistingConfigFile(t *testing.T) {
	resetViper()
	home := t.TempDir()
	t.Setenv("HOME", home)

	dir := filepath.Join(home, ".config", "audio-capture-library")
	require.NoError(t, writeFile(filepath.Join(dir, "config.yaml"), `
capture:
  samplerate: 44100
  channels: 1
  bitdepth: 16
  float: false
output:
  wav:
    enabled: true
    path: out.wav
`))

	settings, err := Load()
	require.NoError(t, err)

	assert.Equal(t, float64(44100), settings.Capture.SampleRate)
	assert.Equal(t, 1, settings.Capture.Channels)
	assert.Equal(t, 16, settings.Capture.BitDepth)
	assert.False(t, settings.Capture.Float)
	assert.True(t, settings.Output.WAV.Enabled)
	assert.Equal(t, "out.wav", settings.Output.WAV.Path)
}

func TestTargetFormatFallsBackToDefault(t *testing.T) {
	var s Settings
	assert.Equal(t, audiocore.DefaultTargetFormat(), s.TargetFormat())
}

func TestTargetFormatUsesCaptureSection(t *testing.T) {
	var s Settings
	s.Capture.SampleRate = 16000
	s.Capture.Channels = 1
	s.Capture.BitDepth = 16
	s.Capture.Float = false
	s.Capture.Interleaved = true

	got := s.TargetFormat()
	assert.Equal(t, audiocore.AudioFormat{
		SampleRate:    16000,
		ChannelCount:  1,
		BitDepth:      16,
		IsFloat:       false,
		IsInterleaved: true,
	}, got)
}
