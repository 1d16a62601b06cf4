package audiocore

import (
	"fmt"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/sooth/audio-capture-library/internal/errors"
)

// ComponentAudioCore is the component tag attached to every audiocore error.
const ComponentAudioCore = "audiocore"

// AudioFormat describes the layout of PCM samples. It is an immutable
// value type: negotiate and convert always return a new AudioFormat
// rather than mutating one in place.
type AudioFormat struct {
	SampleRate    float64 // Hz, must be > 0
	ChannelCount  int     // must be > 0
	BitDepth      int     // one of 16, 24, 32, 64
	IsFloat       bool
	IsInterleaved bool
}

// DefaultTargetFormat is the collector/mixer default: 48kHz stereo
// float32, non-interleaved (planar).
func DefaultTargetFormat() AudioFormat {
	return AudioFormat{
		SampleRate:    48000,
		ChannelCount:  2,
		BitDepth:      32,
		IsFloat:       true,
		IsInterleaved: false,
	}
}

// Validate enforces the invariants from the data model: bit_depth=64
// implies float, bit_depth must be one of the supported widths, and
// sample rate/channel count must be positive.
func (f AudioFormat) Validate() error {
	switch f.BitDepth {
	case 16, 24, 32, 64:
	default:
		return errors.Newf("unsupported bit depth %d", f.BitDepth).
			Component(ComponentAudioCore).
			Category(errors.CategoryValidation).
			Context("bit_depth", f.BitDepth).
			Build()
	}
	if f.BitDepth == 64 && !f.IsFloat {
		return errors.Newf("64-bit format must be float").
			Component(ComponentAudioCore).
			Category(errors.CategoryValidation).
			Build()
	}
	if f.SampleRate <= 0 {
		return errors.Newf("sample rate must be positive, got %v", f.SampleRate).
			Component(ComponentAudioCore).
			Category(errors.CategoryValidation).
			Context("sample_rate", f.SampleRate).
			Build()
	}
	if f.ChannelCount <= 0 {
		return errors.Newf("channel count must be positive, got %d", f.ChannelCount).
			Component(ComponentAudioCore).
			Category(errors.CategoryValidation).
			Context("channel_count", f.ChannelCount).
			Build()
	}
	return nil
}

// BytesPerFrame returns (bit_depth/8) * channel_count, the number of
// bytes that make up one frame (one sample per channel) in interleaved
// wire representation.
func (f AudioFormat) BytesPerFrame() int {
	return (f.BitDepth / 8) * f.ChannelCount
}

// IsCompatible reports whether a and b agree on every field.
func (f AudioFormat) IsCompatible(other AudioFormat) bool {
	return f == other
}

// String renders a human-readable description, used in logs and errors.
func (f AudioFormat) String() string {
	kind := "Int"
	if f.IsFloat {
		kind = "Float"
	}
	layout := "NonInterleaved"
	if f.IsInterleaved {
		layout = "Interleaved"
	}
	return fmt.Sprintf("%gHz/%dch/%d-bit %s/%s", f.SampleRate, f.ChannelCount, f.BitDepth, kind, layout)
}

// NegotiationPriority selects the negotiate() tie-break rule.
type NegotiationPriority int

const (
	PriorityQuality NegotiationPriority = iota
	PriorityCompatibility
	PriorityPerformance
	PriorityBalanced
)

var negotiationCache = cache.New(5*time.Minute, 10*time.Minute)

// Negotiate picks a common format between source and dest according to
// priority. The function is pure; a process-local TTL cache in front of
// it (keyed on the three inputs) only avoids recomputing the same
// tuple repeatedly for hot AddSink/pipeline-setup paths and never
// changes the answer a fresh call would produce.
func Negotiate(source, dest AudioFormat, priority NegotiationPriority) AudioFormat {
	key := fmt.Sprintf("%s|%s|%d", source, dest, priority)
	if cached, ok := negotiationCache.Get(key); ok {
		return cached.(AudioFormat)
	}
	result := negotiate(source, dest, priority)
	negotiationCache.Set(key, result, cache.DefaultExpiration)
	return result
}

func negotiate(source, dest AudioFormat, priority NegotiationPriority) AudioFormat {
	switch priority {
	case PriorityQuality:
		return AudioFormat{
			SampleRate:    maxF(source.SampleRate, dest.SampleRate),
			ChannelCount:  maxI(source.ChannelCount, dest.ChannelCount),
			BitDepth:      maxI(source.BitDepth, dest.BitDepth),
			IsFloat:       source.IsFloat || dest.IsFloat,
			IsInterleaved: dest.IsInterleaved,
		}
	case PriorityCompatibility:
		return dest
	case PriorityPerformance:
		return source
	default: // PriorityBalanced
		return AudioFormat{
			SampleRate:    dest.SampleRate,
			ChannelCount:  minI(source.ChannelCount, dest.ChannelCount),
			BitDepth:      dest.BitDepth,
			IsFloat:       dest.IsFloat,
			IsInterleaved: dest.IsInterleaved,
		}
	}
}

// ConversionComplexity scores how much work converting source->dest
// requires, in [0,1], per the weighted-field-diff rule in spec §4.1.
func ConversionComplexity(source, dest AudioFormat) float64 {
	var score float64
	if source.SampleRate != dest.SampleRate {
		score += 0.3
	}
	if source.ChannelCount != dest.ChannelCount {
		score += 0.2
	}
	if source.BitDepth != dest.BitDepth {
		score += 0.2
	}
	if source.IsFloat != dest.IsFloat {
		score += 0.2
	}
	if source.IsInterleaved != dest.IsInterleaved {
		score += 0.1
	}
	if score > 1 {
		score = 1
	}
	return score
}

func maxF(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

func maxI(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func minI(a, b int) int {
	if a < b {
		return a
	}
	return b
}
