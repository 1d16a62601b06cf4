package wavsink

import (
	"math"

	"github.com/sooth/audio-capture-library/audiocore"
	"github.com/sooth/audio-capture-library/audiocore/collector"
)

// toIntBufferData flattens buf into an interleaved []int suitable for
// audio.IntBuffer.Data, scaled to format's bit depth. Buffers reaching a
// sink have already passed through the collector's conversion pipeline,
// so only the canonical Planar/Interleaved float32 layouts are expected
// here; anything else yields no frames rather than failing the sink.
func toIntBufferData(buf audiocore.AudioBuffer, format audiocore.AudioFormat) ([]int, int) {
	channels := format.ChannelCount
	if channels <= 0 {
		channels = 1
	}

	planar := collector.DecodePlanar(buf, channels)
	if planar == nil {
		return nil, 0
	}

	frames := 0
	if len(planar) > 0 {
		frames = len(planar[0])
	}

	out := make([]int, frames*channels)
	for f := 0; f < frames; f++ {
		for ch := 0; ch < channels && ch < len(planar); ch++ {
			out[f*channels+ch] = sampleToInt(planar[ch][f], format)
		}
	}
	return out, frames
}

// sampleToInt converts a canonical float32 sample to the integer domain
// the go-audio encoder writes verbatim as bytes of the configured bit
// depth. For the IEEE-float path (format.IsFloat, bit depth 32) the
// encoder's Write does not itself reinterpret floats: it always writes
// int32(buf.Data[i]) regardless of the WAVE format code, so the only
// way to land true IEEE-754 bit patterns in the data chunk is to hand
// it the bit pattern itself, reinterpreted as an int32 via
// math.Float32bits. A plain amplitude-scaled int (as for PCM) would
// write valid-looking but wrong samples into a file whose fmt chunk
// claims WAVE_FORMAT_IEEE_FLOAT.
func sampleToInt(sample float32, format audiocore.AudioFormat) int {
	s := sample
	if s > 1 {
		s = 1
	} else if s < -1 {
		s = -1
	}
	switch {
	case format.IsFloat:
		return int(int32(math.Float32bits(s)))
	case format.BitDepth == 16:
		return int(int16(float64(s) * 32767.0))
	case format.BitDepth == 24:
		return int(int32(float64(s) * 8388607.0))
	case format.BitDepth == 32:
		return int(int32(float64(s) * 2147483647.0))
	default:
		return int(int16(float64(s) * 32767.0))
	}
}
