// Package collector implements the per-source streaming converting
// collector from spec §4.3: channel mapping, polyphase resampling, and
// bit-depth/float conversion applied to each arriving buffer as it
// arrives, never re-resampled in bulk at the end.
package collector

import (
	"log/slog"
	"sync"

	"github.com/sooth/audio-capture-library/audiocore"
	"github.com/sooth/audio-capture-library/audiocore/metricsx"
	"github.com/sooth/audio-capture-library/internal/errors"
	"github.com/sooth/audio-capture-library/internal/logging"
)

// Collector accumulates buffers from one source, converting each to a
// fixed target format as it arrives.
type Collector struct {
	mu sync.Mutex

	inputFormat  audiocore.AudioFormat
	targetFormat audiocore.AudioFormat
	maxBuffers   int

	converted [][]float32 // each entry: target-format planar frame block, per-channel concatenated
	shape     []int        // frame counts per stored buffer, parallel to converted

	totalFramesConverted int64
	totalBuffersAdded    int64
	conversionErrors     int64

	logger  *slog.Logger
	metrics *metricsx.PipelineMetrics
}

// Config configures a new Collector.
type Config struct {
	InputFormat  audiocore.AudioFormat
	TargetFormat audiocore.AudioFormat // zero value -> DefaultTargetFormat
	MaxBuffers   int                   // zero -> unbounded (0 disables the overflow policy)
	Logger       *slog.Logger
	Metrics      *metricsx.PipelineMetrics // nil disables conversion-error reporting
}

// New creates a Collector for one source.
func New(cfg Config) *Collector {
	target := cfg.TargetFormat
	if target == (audiocore.AudioFormat{}) {
		target = audiocore.DefaultTargetFormat()
	}
	return &Collector{
		inputFormat:  cfg.InputFormat,
		targetFormat: target,
		maxBuffers:   cfg.MaxBuffers,
		logger:       logging.Named(cfg.Logger, "collector"),
		metrics:      cfg.Metrics,
	}
}

// TargetFormat returns the collector's fixed output format.
func (c *Collector) TargetFormat() audiocore.AudioFormat { return c.targetFormat }

// Add converts buf to the target format and appends it. Conversion
// errors are caught, logged, counted, and the buffer is dropped — the
// collector never returns a fatal error to the caller (spec §4.3
// failure semantics).
func (c *Collector) Add(buf audiocore.AudioBuffer) {
	if buf.Format.SampleRate > 0 && buf.Format != c.inputFormat {
		c.logger.Debug("buffer format differs from collector's declared input format",
			"declared", c.inputFormat, "buffer", buf.Format)
	}

	planar, frames, err := c.convert(buf)
	if err != nil {
		c.mu.Lock()
		c.conversionErrors++
		c.mu.Unlock()
		c.logger.Warn("dropping buffer after conversion failure",
			"source_id", buf.SourceID, "error", err)
		if c.metrics != nil {
			c.metrics.RecordConversionError(buf.SourceID)
		}
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.converted = append(c.converted, planar)
	c.shape = append(c.shape, frames)
	c.totalFramesConverted += int64(frames)
	c.totalBuffersAdded++

	if c.maxBuffers > 0 && len(c.converted) > c.maxBuffers {
		dropped := c.shape[0]
		c.converted = c.converted[1:]
		c.shape = c.shape[1:]
		c.totalFramesConverted -= int64(dropped)
	}
}

// Buffers returns the converted buffers collected so far, each a
// channel-concatenated []float32 of the shape recorded in FrameCounts.
// The slices are returned by reference; callers must not mutate them.
func (c *Collector) Buffers() [][]float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([][]float32, len(c.converted))
	copy(out, c.converted)
	return out
}

// FrameCounts returns the frame count of each buffer returned by Buffers.
func (c *Collector) FrameCounts() []int {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]int, len(c.shape))
	copy(out, c.shape)
	return out
}

// TotalFramesConverted is an O(1) running total, used for the duration
// query in spec invariant 3 (duration = total_frames / target_rate).
func (c *Collector) TotalFramesConverted() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.totalFramesConverted
}

// DurationSeconds returns total_frames / target_sample_rate.
func (c *Collector) DurationSeconds() float64 {
	frames := c.TotalFramesConverted()
	if c.targetFormat.SampleRate <= 0 {
		return 0
	}
	return float64(frames) / c.targetFormat.SampleRate
}

// Counters is a snapshot of the collector's bookkeeping fields.
type Counters struct {
	TotalBuffersAdded    int64
	TotalFramesConverted int64
	ConversionErrors     int64
}

// Stats returns a snapshot of the collector's counters.
func (c *Collector) Stats() Counters {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Counters{
		TotalBuffersAdded:    c.totalBuffersAdded,
		TotalFramesConverted: c.totalFramesConverted,
		ConversionErrors:     c.conversionErrors,
	}
}

// convert runs the full pipeline from spec §4.3 steps 1-5 on one
// buffer, returning a channel-concatenated []float32 of
// target.ChannelCount channels at the target sample rate.
func (c *Collector) convert(buf audiocore.AudioBuffer) ([]float32, int, error) {
	planar, err := decodeToPlanar(buf)
	if err != nil {
		return nil, 0, err
	}

	planar = mapChannels(planar, c.targetFormat.ChannelCount)
	planar = resampleIfNeeded(planar, buf.Format.SampleRate, c.targetFormat.SampleRate)
	frames := 0
	if len(planar) > 0 {
		frames = len(planar[0])
	}

	out := make([]float32, frames*c.targetFormat.ChannelCount)
	for ch := 0; ch < c.targetFormat.ChannelCount; ch++ {
		copy(out[ch*frames:(ch+1)*frames], planar[ch])
	}
	return out, frames, nil
}

// decodeToPlanar converts whatever layout/encoding buf carries into a
// canonical per-channel []float32 slice set (step 1 + step 4's
// int16/float normalization to float32).
func decodeToPlanar(buf audiocore.AudioBuffer) ([][]float32, error) {
	channels := buf.Format.ChannelCount
	if channels <= 0 {
		return nil, errors.Newf("invalid channel count %d", channels).
			Component(audiocore.ComponentAudioCore).
			Category(errors.CategoryValidation).
			Build()
	}

	switch layout := buf.Layout.(type) {
	case audiocore.Planar:
		if len(layout.Channels) != channels {
			return nil, errors.Newf("planar layout has %d channels, format says %d", len(layout.Channels), channels).
				Component(audiocore.ComponentAudioCore).
				Category(errors.CategoryValidation).
				Build()
		}
		return layout.Channels, nil
	case audiocore.Interleaved:
		frames := len(layout.Samples) / channels
		planar := make([][]float32, channels)
		for ch := 0; ch < channels; ch++ {
			planar[ch] = make([]float32, frames)
			for f := 0; f < frames; f++ {
				planar[ch][f] = layout.Samples[f*channels+ch]
			}
		}
		return planar, nil
	default:
		return decodeRawToPlanar(buf)
	}
}

// decodeRawToPlanar handles buffers that only carry device-native raw
// bytes (buf.Raw), applying the int16/int24/int32/float32 -> float32
// normalization from spec §4.3 step 4 during decode.
func decodeRawToPlanar(buf audiocore.AudioBuffer) ([][]float32, error) {
	channels := buf.Format.ChannelCount
	bytesPerSample := buf.Format.BitDepth / 8
	if bytesPerSample <= 0 || channels <= 0 {
		return nil, errors.Newf("invalid format for raw decode: %s", buf.Format).
			Component(audiocore.ComponentAudioCore).
			Category(errors.CategoryValidation).
			Build()
	}
	frameSize := bytesPerSample * channels
	if frameSize == 0 || len(buf.Raw)%frameSize != 0 {
		return nil, errors.Newf("raw buffer length %d not a multiple of frame size %d", len(buf.Raw), frameSize).
			Component(audiocore.ComponentAudioCore).
			Category(errors.CategoryValidation).
			Build()
	}
	frames := len(buf.Raw) / frameSize
	planar := make([][]float32, channels)
	for ch := range planar {
		planar[ch] = make([]float32, frames)
	}

	decodeSample := sampleDecoder(buf.Format)
	for f := 0; f < frames; f++ {
		for ch := 0; ch < channels; ch++ {
			offset := (f*channels + ch) * bytesPerSample
			planar[ch][f] = decodeSample(buf.Raw[offset : offset+bytesPerSample])
		}
	}
	return planar, nil
}
