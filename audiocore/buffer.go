package audiocore

import "time"

// SampleLayout is a tagged union over the two ways decoded samples can be
// shaped, replacing the source library's runtime-detected 1-D/2-D numpy
// shape with a statically distinguishable Go type (spec §9 design note).
type SampleLayout interface {
	isSampleLayout()
	FrameCount(channels int) int
}

// Interleaved holds frame-major samples: index i*channels+ch.
type Interleaved struct {
	Samples []float32
}

func (Interleaved) isSampleLayout() {}

func (l Interleaved) FrameCount(channels int) int {
	if channels <= 0 {
		return 0
	}
	return len(l.Samples) / channels
}

// Planar holds one contiguous slice per channel.
type Planar struct {
	Channels [][]float32
}

func (Planar) isSampleLayout() {}

func (l Planar) FrameCount(int) int {
	if len(l.Channels) == 0 {
		return 0
	}
	return len(l.Channels[0])
}

// AudioBuffer is a short-lived, logically-immutable chunk of captured
// audio. Once handed to the pipeline it is shared read-only across every
// sink that receives it; no sink may mutate Layout or Raw.
type AudioBuffer struct {
	Layout     SampleLayout
	Raw        []byte // device-native bytes, valid only before conversion
	Format     AudioFormat
	Timestamp  time.Time
	FrameCount int
	SourceID   string
}

// Duration returns the playback duration of the buffer given its format.
func (b AudioBuffer) Duration() time.Duration {
	if b.Format.SampleRate <= 0 {
		return 0
	}
	seconds := float64(b.FrameCount) / b.Format.SampleRate
	return time.Duration(seconds * float64(time.Second))
}
