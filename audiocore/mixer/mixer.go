// Package mixer implements the two-source mixing coordinator (spec
// §4.9): an "output" source (e.g. system playback loopback) and an
// "input" source (e.g. microphone) are combined 50/50 once both have
// produced at least one buffer, falling back to unmixed passthrough of
// whichever single source is actually producing data.
package mixer

import (
	"github.com/sooth/audio-capture-library/audiocore"
)

// Collector is the subset of collector.Collector the mixer reads from.
type Collector interface {
	Buffers() [][]float32
	FrameCounts() []int
	TargetFormat() audiocore.AudioFormat
}

// Mix combines output's and input's converted buffers 50/50, frame for
// frame, flattening each collector's buffers into a single interleaved
// stream first. The result has the output stream's length: where the
// input stream is shorter, its missing frames are treated as silence
// (spec §4.9's zero-pad rule), and input frames beyond the end of the
// output stream are dropped. If only one of the two collectors has
// produced any frames, that collector's stream is returned unmixed.
func Mix(output, input Collector) []float32 {
	outFlat := flatten(output)
	inFlat := flatten(input)

	if len(outFlat) == 0 {
		return inFlat
	}
	if len(inFlat) == 0 {
		return outFlat
	}

	mixed := make([]float32, len(outFlat))
	for i := range mixed {
		var inSample float32
		if i < len(inFlat) {
			inSample = inFlat[i]
		}
		mixed[i] = 0.5*outFlat[i] + 0.5*inSample
	}
	return mixed
}

// flatten joins every buffer a collector has accumulated, in arrival
// order, into a single interleaved []float32. Each stored buffer is
// channel-concatenated, so it is interleaved using its FrameCounts
// entry; a buffer without a usable frame count is appended as-is.
func flatten(c Collector) []float32 {
	if c == nil {
		return nil
	}
	buffers := c.Buffers()
	counts := c.FrameCounts()
	total := 0
	for _, b := range buffers {
		total += len(b)
	}
	out := make([]float32, 0, total)
	for i, b := range buffers {
		frames := 0
		if i < len(counts) {
			frames = counts[i]
		}
		if frames <= 0 || len(b) == frames || len(b)%frames != 0 {
			out = append(out, b...)
			continue
		}
		channels := len(b) / frames
		for f := 0; f < frames; f++ {
			for ch := 0; ch < channels; ch++ {
				out = append(out, b[ch*frames+f])
			}
		}
	}
	return out
}
