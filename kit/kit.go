// Package kit provides the top-level facade over the capture pipeline
// (spec §4.10): a handful of high-level entry points (RecordToFile,
// StreamAudio, StartNetworkStream, StartCapture/StopCapture) built on
// top of audiocore's session, producer, multiplexer, and sinks, plus a
// lazy process-wide singleton for callers that don't want to thread a
// *Kit through their whole program.
package kit

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/sooth/audio-capture-library/audiocore"
	"github.com/sooth/audio-capture-library/audiocore/metricsx"
	"github.com/sooth/audio-capture-library/audiocore/mux"
	"github.com/sooth/audio-capture-library/audiocore/producer"
	"github.com/sooth/audio-capture-library/audiocore/resourcemon"
	"github.com/sooth/audio-capture-library/audiocore/session"
	devicemalgo "github.com/sooth/audio-capture-library/devices/malgo"
	"github.com/sooth/audio-capture-library/internal/errors"
	"github.com/sooth/audio-capture-library/internal/logging"
	"github.com/sooth/audio-capture-library/sinks/broadcast"
	"github.com/sooth/audio-capture-library/sinks/callbacksink"
	"github.com/sooth/audio-capture-library/sinks/wavsink"
)

// DeviceFactory opens a DeviceHandle for a capture request; the default
// points at devices/malgo.Open, overridable for tests.
type DeviceFactory func(deviceName string) (audiocore.DeviceHandle, error)

// Kit is the facade tying one DeviceFactory and shared instrumentation
// to however many concurrent capture sessions the caller starts.
type Kit struct {
	deviceFactory DeviceFactory
	registry      *prometheus.Registry
	metrics       *metricsx.PipelineMetrics
	resources     *resourcemon.Monitor
	logger        *slog.Logger

	mu       sync.Mutex
	sessions map[string]*session.Session
}

// Config configures a Kit.
type Config struct {
	DeviceFactory DeviceFactory // nil -> devices/malgo.Open
	Logger        *slog.Logger
}

// New constructs a Kit. Most callers should use Default() instead.
func New(cfg Config) (*Kit, error) {
	factory := cfg.DeviceFactory
	if factory == nil {
		factory = func(deviceName string) (audiocore.DeviceHandle, error) {
			return devicemalgo.Open(devicemalgo.Config{DeviceName: deviceName})
		}
	}

	registry := prometheus.NewRegistry()
	metrics, err := metricsx.NewPipelineMetrics(registry)
	if err != nil {
		return nil, errors.New(err).
			Component(audiocore.ComponentAudioCore).
			Category(errors.CategorySystem).
			Context("operation", "register_metrics").
			Build()
	}

	resources, err := resourcemon.New(5 * time.Second)
	if err != nil {
		return nil, err
	}

	return &Kit{
		deviceFactory: factory,
		registry:      registry,
		metrics:       metrics,
		resources:     resources,
		logger:        logging.Named(cfg.Logger, "kit"),
		sessions:      make(map[string]*session.Session),
	}, nil
}

var (
	defaultKit  *Kit
	defaultOnce sync.Once
	defaultErr  error
)

// Default returns the process-wide lazily-initialized Kit.
func Default() (*Kit, error) {
	defaultOnce.Do(func() {
		defaultKit, defaultErr = New(Config{})
	})
	return defaultKit, defaultErr
}

// CaptureConfig describes one capture session's device and target format.
type CaptureConfig struct {
	DeviceName   string
	TargetFormat audiocore.AudioFormat // zero value -> DefaultTargetFormat
}

// StartCapture opens a device, starts a session against it, and returns
// the session plus its multiplexer for attaching sinks.
func (k *Kit) StartCapture(ctx context.Context, cfg CaptureConfig) (*session.Session, *mux.Multiplexer, error) {
	device, err := k.deviceFactory(cfg.DeviceName)
	if err != nil {
		return nil, nil, errors.New(err).
			Component(audiocore.ComponentAudioCore).
			Category(errors.CategoryDevice).
			Context("device_name", cfg.DeviceName).
			Build()
	}

	m := mux.New(k.logger)
	m.SetMetrics(k.metrics)
	p := producer.New(producer.Config{
		SourceID:   cfg.DeviceName,
		Device:     device,
		Dispatcher: m,
		Logger:     k.logger,
		Metrics:    k.metrics,
	})
	sess := session.New(p, m, k.logger)

	if err := sess.Start(ctx); err != nil {
		return nil, nil, err
	}

	k.mu.Lock()
	k.sessions[sess.ID()] = sess
	k.metrics.SetActiveSessions(len(k.sessions))
	k.mu.Unlock()

	return sess, m, nil
}

// StopCapture stops a session started by StartCapture and removes it
// from the Kit's bookkeeping.
func (k *Kit) StopCapture(sess *session.Session) error {
	err := sess.Stop()

	k.mu.Lock()
	delete(k.sessions, sess.ID())
	k.metrics.SetActiveSessions(len(k.sessions))
	k.mu.Unlock()

	return err
}

// RecordToFile starts a capture session and attaches a single WAV sink
// writing to path, returning the session so the caller can Stop it.
func (k *Kit) RecordToFile(ctx context.Context, deviceName, path string) (*session.Session, error) {
	sess, m, err := k.StartCapture(ctx, CaptureConfig{DeviceName: deviceName})
	if err != nil {
		return nil, err
	}

	target := audiocore.DefaultTargetFormat()
	sink := wavsink.New(fmt.Sprintf("wav-%s", sess.ID()), path, 0, k.logger)
	if err := m.Attach(sink, target); err != nil {
		_ = k.StopCapture(sess)
		return nil, err
	}
	return sess, nil
}

// StreamAudio starts a capture session and forwards every converted
// buffer to handler until the session is stopped.
func (k *Kit) StreamAudio(ctx context.Context, deviceName string, handler callbacksink.Handler) (*session.Session, error) {
	sess, m, err := k.StartCapture(ctx, CaptureConfig{DeviceName: deviceName})
	if err != nil {
		return nil, err
	}

	target := audiocore.DefaultTargetFormat()
	sink := callbacksink.New(fmt.Sprintf("cb-%s", sess.ID()), handler, k.logger)
	if err := m.Attach(sink, target); err != nil {
		_ = k.StopCapture(sess)
		return nil, err
	}
	return sess, nil
}

// StartNetworkStream starts a capture session and attaches a TCP
// broadcast sink listening on host:port.
func (k *Kit) StartNetworkStream(ctx context.Context, deviceName, host string, port int) (*session.Session, *broadcast.Server, error) {
	sess, m, err := k.StartCapture(ctx, CaptureConfig{DeviceName: deviceName})
	if err != nil {
		return nil, nil, err
	}

	target := audiocore.DefaultTargetFormat()
	addr := fmt.Sprintf("%s:%d", host, port)
	sink := broadcast.NewServer(fmt.Sprintf("bcast-%s", sess.ID()), addr, k.registry, k.logger)
	if err := m.Attach(sink, target); err != nil {
		_ = k.StopCapture(sess)
		return nil, nil, err
	}
	return sess, sink, nil
}

// Statistics is a snapshot of the Kit's process-wide state.
type Statistics struct {
	ActiveSessions int
	CPUPercent     float64
	RSSBytes       uint64
}

// GetStatistics returns a snapshot combining session counts and the
// latest resource-monitor sample.
func (k *Kit) GetStatistics() Statistics {
	k.mu.Lock()
	active := len(k.sessions)
	k.mu.Unlock()

	sample := k.resources.Latest()
	return Statistics{
		ActiveSessions: active,
		CPUPercent:     sample.CPUPercent,
		RSSBytes:       sample.RSSBytes,
	}
}

// Registry exposes the Kit's private prometheus registry (e.g. for an
// HTTP /metrics handler).
func (k *Kit) Registry() *prometheus.Registry { return k.registry }

// Sessions returns a snapshot of every session currently tracked by the
// Kit, satisfying httpapi.SessionLister.
func (k *Kit) Sessions() []*session.Session {
	k.mu.Lock()
	defer k.mu.Unlock()
	out := make([]*session.Session, 0, len(k.sessions))
	for _, s := range k.sessions {
		out = append(out, s)
	}
	return out
}

// RunResourceMonitor starts periodic CPU/RSS sampling until ctx is
// canceled. Safe to call at most once per Kit.
func (k *Kit) RunResourceMonitor(ctx context.Context) { k.resources.Run(ctx) }

// Cleanup stops every session still tracked by the Kit on a best-effort
// basis, logging (not returning) individual failures.
func (k *Kit) Cleanup() {
	k.mu.Lock()
	sessions := make([]*session.Session, 0, len(k.sessions))
	for _, s := range k.sessions {
		sessions = append(sessions, s)
	}
	k.mu.Unlock()

	for _, s := range sessions {
		if err := k.StopCapture(s); err != nil {
			k.logger.Error("cleanup: failed to stop session", "session_id", s.ID(), "error", err)
		}
	}
}
