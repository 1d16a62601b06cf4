package collector

import (
	"encoding/binary"
	"math"

	"github.com/sooth/audio-capture-library/audiocore"
)

// sampleDecoder returns a function converting one sample's raw bytes
// (little-endian, format.BitDepth/8 bytes) into a canonical float32 in
// [-1, 1]. Divisors match the teacher's FormatConverter constants
// (32768 for 16-bit, 2^23 for 24-bit, 2^31 for 32-bit int).
func sampleDecoder(format audiocore.AudioFormat) func([]byte) float32 {
	switch {
	case format.BitDepth == 16 && !format.IsFloat:
		return func(b []byte) float32 {
			v := int16(binary.LittleEndian.Uint16(b))
			return float32(v) / 32768.0
		}
	case format.BitDepth == 24 && !format.IsFloat:
		return func(b []byte) float32 {
			v := int32(b[0]) | int32(b[1])<<8 | int32(b[2])<<16
			if b[2]&0x80 != 0 {
				v |= ^int32(0xFFFFFF)
			}
			return float32(v) / 8388608.0
		}
	case format.BitDepth == 32 && !format.IsFloat:
		return func(b []byte) float32 {
			v := int32(binary.LittleEndian.Uint32(b))
			return float32(v) / 2147483648.0
		}
	case format.BitDepth == 32 && format.IsFloat:
		return func(b []byte) float32 {
			return math.Float32frombits(binary.LittleEndian.Uint32(b))
		}
	case format.BitDepth == 64 && format.IsFloat:
		return func(b []byte) float32 {
			return float32(math.Float64frombits(binary.LittleEndian.Uint64(b)))
		}
	default:
		return func([]byte) float32 { return 0 }
	}
}

// EncodeSample converts one canonical float32 sample into targetFormat's
// wire representation, appending the encoded bytes to dst and returning
// the extended slice. This is the inverse of sampleDecoder and is used
// by sinks (WAV, broadcast) that need device/wire bytes rather than
// float32, following spec §4.3 step 4's clamp-then-scale rule for the
// float->int directions.
func EncodeSample(dst []byte, sample float32, targetFormat audiocore.AudioFormat) []byte {
	switch {
	case targetFormat.BitDepth == 16 && !targetFormat.IsFloat:
		s := clamp(sample) * 32767.0
		var buf [2]byte
		binary.LittleEndian.PutUint16(buf[:], uint16(int16(s)))
		return append(dst, buf[:]...)
	case targetFormat.BitDepth == 24 && !targetFormat.IsFloat:
		s := int32(clamp(sample) * 8388607.0)
		return append(dst, byte(s), byte(s>>8), byte(s>>16))
	case targetFormat.BitDepth == 32 && !targetFormat.IsFloat:
		s := int32(float64(clamp(sample)) * 2147483647.0)
		var buf [4]byte
		binary.LittleEndian.PutUint32(buf[:], uint32(s))
		return append(dst, buf[:]...)
	case targetFormat.BitDepth == 32 && targetFormat.IsFloat:
		var buf [4]byte
		binary.LittleEndian.PutUint32(buf[:], math.Float32bits(sample))
		return append(dst, buf[:]...)
	case targetFormat.BitDepth == 64 && targetFormat.IsFloat:
		var buf [8]byte
		binary.LittleEndian.PutUint64(buf[:], math.Float64bits(float64(sample)))
		return append(dst, buf[:]...)
	default:
		return dst
	}
}

// DecodePlanar extracts per-channel float32 planes from buf's Planar or
// Interleaved layout, or nil for any other layout (e.g. raw device
// bytes that haven't passed through a Collector yet). Shared by sinks
// that flatten an already-converted buffer back to wire or file bytes.
func DecodePlanar(buf audiocore.AudioBuffer, channels int) [][]float32 {
	if channels <= 0 {
		channels = 1
	}
	switch layout := buf.Layout.(type) {
	case audiocore.Planar:
		return layout.Channels
	case audiocore.Interleaved:
		frames := len(layout.Samples) / channels
		planar := make([][]float32, channels)
		for ch := 0; ch < channels; ch++ {
			planar[ch] = make([]float32, frames)
			for f := 0; f < frames; f++ {
				planar[ch][f] = layout.Samples[f*channels+ch]
			}
		}
		return planar
	default:
		return nil
	}
}

// InterleaveBytes flattens buf into little-endian interleaved wire bytes
// at format's bit depth, via EncodeSample. Shared by sinks that need
// device/wire bytes rather than float32 (broadcast, ring).
func InterleaveBytes(buf audiocore.AudioBuffer, format audiocore.AudioFormat) []byte {
	channels := format.ChannelCount
	if channels <= 0 {
		channels = 1
	}
	planar := DecodePlanar(buf, channels)
	if planar == nil {
		return nil
	}

	frames := 0
	if len(planar) > 0 {
		frames = len(planar[0])
	}
	bytesPerSample := format.BitDepth / 8
	out := make([]byte, 0, frames*channels*bytesPerSample)
	for f := 0; f < frames; f++ {
		for ch := 0; ch < channels && ch < len(planar); ch++ {
			out = EncodeSample(out, planar[ch][f], format)
		}
	}
	return out
}

func clamp(v float32) float32 {
	if v > 1 {
		return 1
	}
	if v < -1 {
		return -1
	}
	return v
}

// mapChannels applies the channel-mapping rule from spec §4.3 step 2:
// stereo->mono averages, mono->stereo duplicates, matching counts pass
// through, and any other mismatch truncates extra source channels and
// zero-pads missing destination channels (spec's pinned resolution of
// the open question left by the source library).
func mapChannels(planar [][]float32, targetChannels int) [][]float32 {
	sourceChannels := len(planar)
	if sourceChannels == targetChannels {
		return planar
	}
	if sourceChannels == 2 && targetChannels == 1 {
		frames := len(planar[0])
		mono := make([]float32, frames)
		for i := 0; i < frames; i++ {
			mono[i] = (planar[0][i] + planar[1][i]) / 2
		}
		return [][]float32{mono}
	}
	if sourceChannels == 1 && targetChannels == 2 {
		return [][]float32{planar[0], planar[0]}
	}

	frames := 0
	if sourceChannels > 0 {
		frames = len(planar[0])
	}
	out := make([][]float32, targetChannels)
	for ch := 0; ch < targetChannels; ch++ {
		if ch < sourceChannels {
			out[ch] = planar[ch]
		} else {
			out[ch] = make([]float32, frames) // zero-padded
		}
	}
	return out
}
