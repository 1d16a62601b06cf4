package audiocore

import "context"

// Sink is the capability set every fan-out destination implements
// (spec §6, "Sink plug-in interface"). Configure is called exactly once
// before any Process call; Finish is called exactly once and no further
// calls are permitted afterwards.
type Sink interface {
	// ID identifies the sink for attach/detach and error reporting.
	ID() string

	// Configure is called once, before the first Process, with the
	// format the session negotiated for this sink.
	Configure(format AudioFormat) error

	// Process delivers one buffer. Implementations must not mutate
	// buf.Layout/buf.Raw; they are shared with every other sink.
	Process(ctx context.Context, buf AudioBuffer) error

	// HandleError is invoked by the multiplexer when Process returns an
	// error, isolating the failure from every other attached sink.
	HandleError(err error)

	// Finish flushes and releases any resources. Called exactly once,
	// in attach order, when the owning session stops.
	Finish() error
}

// DeviceHandle is the opaque capability the core consumes from an
// external device backend (spec §1, §6): device enumeration and the OS
// audio backend are out of scope here. A DeviceHandle delivers raw
// native buffers to a registered callback until Close is called.
type DeviceHandle interface {
	// ActualFormat returns the format the device actually opened with,
	// which may differ from the format requested at Open time.
	ActualFormat() AudioFormat

	// RegisterCallback installs the function invoked on every device
	// audio callback. It must be registered before the device starts
	// delivering data and must not block for long inside the callback.
	RegisterCallback(fn func(raw []byte))

	// Close stops capture and releases the device. Idempotent.
	Close() error
}
