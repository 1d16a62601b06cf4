// Package audiocore implements the capture-session runtime: format
// negotiation and conversion, bounded buffer queues, a converting
// collector, a fan-out multiplexer, the producer adapter contract, the
// capture session state machine, and the two-source mixing coordinator.
//
// Data flow:
//
//	DeviceHandle -> Producer -> Multiplexer -> {sinks...}
//
// Control flow:
//
//	Kit -> Session -> Producer/sinks
//
// Sub-packages own the leaf mechanics (audiocore/queue, audiocore/
// collector, audiocore/mux, audiocore/producer, audiocore/session,
// audiocore/mixer) while this package's format.go and buffer.go hold
// the shared data model every sub-package imports.
package audiocore
