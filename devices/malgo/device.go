// Package malgo adapts gen2brain/malgo's cross-platform capture devices
// to the audiocore.DeviceHandle interface, grounded on the teacher's
// sources/malgo implementation. It is the only package in this module
// that imports malgo directly, so audiocore itself stays backend-agnostic.
package malgo

import (
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/gen2brain/malgo"

	"github.com/sooth/audio-capture-library/audiocore"
	"github.com/sooth/audio-capture-library/internal/errors"
)

// Config selects which capture device to open and at what format.
type Config struct {
	DeviceName string // "" or "default" selects the system default
	SampleRate uint32
	Channels   uint8
}

// Device is a gen2brain/malgo-backed audiocore.DeviceHandle.
type Device struct {
	ctx    *malgo.AllocatedContext
	device *malgo.Device

	mu       sync.Mutex
	callback func(raw []byte)

	format audiocore.AudioFormat
	closed atomic.Bool
}

// Open initializes a malgo capture context and device matching cfg,
// returning a DeviceHandle ready for RegisterCallback.
func Open(cfg Config) (*Device, error) {
	if cfg.SampleRate == 0 {
		cfg.SampleRate = 48000
	}
	if cfg.Channels == 0 {
		cfg.Channels = 1
	}

	backend, err := backendForPlatform()
	if err != nil {
		return nil, err
	}

	malgoCtx, err := malgo.InitContext([]malgo.Backend{backend}, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, errors.New(err).
			Component(audiocore.ComponentAudioCore).
			Category(errors.CategoryDevice).
			Context("operation", "init_context").
			Context("backend", runtime.GOOS).
			Build()
	}

	deviceInfo, err := selectDevice(malgoCtx, cfg.DeviceName)
	if err != nil {
		_ = malgoCtx.Uninit()
		return nil, err
	}

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Capture)
	deviceConfig.Capture.Channels = uint32(cfg.Channels)
	deviceConfig.Capture.DeviceID = deviceInfo.ID.Pointer()
	deviceConfig.Capture.Format = malgo.FormatS16
	deviceConfig.SampleRate = cfg.SampleRate
	deviceConfig.Alsa.NoMMap = 1

	d := &Device{ctx: malgoCtx}

	deviceCallbacks := malgo.DeviceCallbacks{
		Data: d.onData,
	}

	dev, err := malgo.InitDevice(malgoCtx.Context, deviceConfig, deviceCallbacks)
	if err != nil {
		_ = malgoCtx.Uninit()
		return nil, errors.New(err).
			Component(audiocore.ComponentAudioCore).
			Category(errors.CategoryDevice).
			Context("operation", "init_device").
			Context("device_name", cfg.DeviceName).
			Build()
	}
	d.device = dev

	d.format = audiocore.AudioFormat{
		SampleRate:    float64(dev.SampleRate()),
		ChannelCount:  int(cfg.Channels),
		BitDepth:      16,
		IsFloat:       false,
		IsInterleaved: true,
	}

	if err := dev.Start(); err != nil {
		dev.Uninit()
		_ = malgoCtx.Uninit()
		return nil, errors.New(err).
			Component(audiocore.ComponentAudioCore).
			Category(errors.CategoryDevice).
			Context("operation", "start_device").
			Build()
	}

	return d, nil
}

// onData is malgo's capture callback; it is invoked on malgo's own
// audio thread and must never block, so it only forwards to whatever
// callback RegisterCallback last installed.
func (d *Device) onData(_, samples []byte, _ uint32) {
	d.mu.Lock()
	cb := d.callback
	d.mu.Unlock()
	if cb != nil {
		cb(samples)
	}
}

// ActualFormat returns the format the device actually negotiated.
func (d *Device) ActualFormat() audiocore.AudioFormat { return d.format }

// RegisterCallback installs fn as the raw-frame callback, replacing any
// previously registered one.
func (d *Device) RegisterCallback(fn func(raw []byte)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.callback = fn
}

// Close stops and tears down the device and context. Idempotent.
func (d *Device) Close() error {
	if !d.closed.CompareAndSwap(false, true) {
		return nil
	}
	if d.device != nil {
		_ = d.device.Stop()
		d.device.Uninit()
	}
	if d.ctx != nil {
		if err := d.ctx.Uninit(); err != nil {
			return errors.New(err).
				Component(audiocore.ComponentAudioCore).
				Category(errors.CategoryDevice).
				Context("operation", "uninit_context").
				Build()
		}
	}
	return nil
}

func backendForPlatform() (malgo.Backend, error) {
	switch runtime.GOOS {
	case "linux":
		return malgo.BackendAlsa, nil
	case "windows":
		return malgo.BackendWasapi, nil
	case "darwin":
		return malgo.BackendCoreaudio, nil
	default:
		return malgo.BackendNull, errors.New(nil).
			Component(audiocore.ComponentAudioCore).
			Category(errors.CategoryDevice).
			Context("os", runtime.GOOS).
			Context("error", "unsupported operating system").
			Build()
	}
}

func selectDevice(ctx *malgo.AllocatedContext, name string) (*malgo.DeviceInfo, error) {
	devices, err := ctx.Devices(malgo.Capture)
	if err != nil {
		return nil, errors.New(err).
			Component(audiocore.ComponentAudioCore).
			Category(errors.CategoryDevice).
			Context("operation", "enumerate_devices").
			Build()
	}
	if len(devices) == 0 {
		return nil, errors.New(nil).
			Component(audiocore.ComponentAudioCore).
			Category(errors.CategoryDevice).
			Context("error", "no capture devices found").
			Build()
	}

	if name == "" || name == "default" {
		for i := range devices {
			if devices[i].IsDefault == 1 {
				return &devices[i], nil
			}
		}
		return &devices[0], nil
	}

	for i := range devices {
		if devices[i].Name() == name {
			return &devices[i], nil
		}
	}
	return nil, errors.New(nil).
		Component(audiocore.ComponentAudioCore).
		Category(errors.CategoryDevice).
		Context("device_name", name).
		Context("error", "no matching audio device found").
		Build()
}
