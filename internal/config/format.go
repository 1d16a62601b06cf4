package config

import "github.com/sooth/audio-capture-library/audiocore"

// TargetFormat builds the AudioFormat described by the Capture section,
// falling back to audiocore.DefaultTargetFormat for a zero-value
// Settings (e.g. a config file that omits the capture block entirely).
func (s *Settings) TargetFormat() audiocore.AudioFormat {
	if s.Capture.SampleRate == 0 || s.Capture.Channels == 0 || s.Capture.BitDepth == 0 {
		return audiocore.DefaultTargetFormat()
	}
	return audiocore.AudioFormat{
		SampleRate:    s.Capture.SampleRate,
		ChannelCount:  s.Capture.Channels,
		BitDepth:      s.Capture.BitDepth,
		IsFloat:       s.Capture.Float,
		IsInterleaved: s.Capture.Interleaved,
	}
}
