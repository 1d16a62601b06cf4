package kit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sooth/audio-capture-library/audiocore"
	"github.com/sooth/audio-capture-library/audiocore/collector"
	"github.com/sooth/audio-capture-library/audiocore/mixer"
	"github.com/sooth/audio-capture-library/audiocore/session"
	"github.com/sooth/audio-capture-library/sinks/callbacksink"
	"github.com/sooth/audio-capture-library/sinks/wavsink"
)

// MixSession tracks the two underlying capture sessions a MixToFile call
// started, so the caller can stop both together.
type MixSession struct {
	kit    *Kit
	output *session.Session
	input  *session.Session
	cancel context.CancelFunc
	done   chan struct{}
}

// Stop waits for the mix loop to drain, then stops both capture sessions
// through the Kit so they leave its bookkeeping.
func (m *MixSession) Stop() error {
	m.cancel()
	<-m.done
	err1 := m.kit.StopCapture(m.output)
	err2 := m.kit.StopCapture(m.input)
	if err1 != nil {
		return err1
	}
	return err2
}

// MixToFile captures from two devices (e.g. system loopback and a
// microphone), blends them 50/50 via audiocore/mixer, and periodically
// flushes the blended stream to a mono WAV file at path, grounded on
// original_source's interactive_recording_mixer.py two-source mix.
func (k *Kit) MixToFile(ctx context.Context, outputDevice, inputDevice, path string) (*MixSession, error) {
	target := audiocore.AudioFormat{SampleRate: 48000, ChannelCount: 1, BitDepth: 32, IsFloat: true, IsInterleaved: true}

	outSess, outMux, err := k.StartCapture(ctx, CaptureConfig{DeviceName: outputDevice})
	if err != nil {
		return nil, err
	}
	inSess, inMux, err := k.StartCapture(ctx, CaptureConfig{DeviceName: inputDevice})
	if err != nil {
		_ = k.StopCapture(outSess)
		return nil, err
	}

	var mu sync.Mutex
	outCollector := collector.New(collector.Config{TargetFormat: target, Logger: k.logger, Metrics: k.metrics})
	inCollector := collector.New(collector.Config{TargetFormat: target, Logger: k.logger, Metrics: k.metrics})

	outSink := callbacksink.New(fmt.Sprintf("mix-out-%s", outSess.ID()), func(buf audiocore.AudioBuffer) error {
		mu.Lock()
		outCollector.Add(buf)
		mu.Unlock()
		return nil
	}, k.logger)
	inSink := callbacksink.New(fmt.Sprintf("mix-in-%s", inSess.ID()), func(buf audiocore.AudioBuffer) error {
		mu.Lock()
		inCollector.Add(buf)
		mu.Unlock()
		return nil
	}, k.logger)

	if err := outMux.Attach(outSink, target); err != nil {
		_ = k.StopCapture(outSess)
		_ = k.StopCapture(inSess)
		return nil, err
	}
	if err := inMux.Attach(inSink, target); err != nil {
		_ = k.StopCapture(outSess)
		_ = k.StopCapture(inSess)
		return nil, err
	}

	writer := wavsink.New(fmt.Sprintf("mix-%s", outSess.ID()), path, 0, k.logger)
	if err := writer.Configure(target); err != nil {
		_ = k.StopCapture(outSess)
		_ = k.StopCapture(inSess)
		return nil, err
	}

	mixCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	go func() {
		defer close(done)
		ticker := time.NewTicker(250 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-mixCtx.Done():
				mu.Lock()
				mixed := mixer.Mix(outCollector, inCollector)
				mu.Unlock()
				k.flushMixed(writer, target, mixed)
				_ = writer.Finish()
				return
			case <-ticker.C:
				mu.Lock()
				mixed := mixer.Mix(outCollector, inCollector)
				outCollector = collector.New(collector.Config{TargetFormat: target, Logger: k.logger, Metrics: k.metrics})
				inCollector = collector.New(collector.Config{TargetFormat: target, Logger: k.logger, Metrics: k.metrics})
				mu.Unlock()
				k.flushMixed(writer, target, mixed)
			}
		}
	}()

	return &MixSession{kit: k, output: outSess, input: inSess, cancel: cancel, done: done}, nil
}

func (k *Kit) flushMixed(writer *wavsink.Sink, format audiocore.AudioFormat, mixed []float32) {
	if len(mixed) == 0 {
		return
	}
	buf := audiocore.AudioBuffer{
		Format:     format,
		Layout:     audiocore.Interleaved{Samples: mixed},
		FrameCount: len(mixed) / format.ChannelCount,
	}
	if err := writer.Process(context.Background(), buf); err != nil {
		k.logger.Error("mix: failed to write blended samples", "error", err)
	}
}
