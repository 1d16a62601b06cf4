package audiocore

import (
	"time"

	"github.com/sooth/audio-capture-library/internal/errors"
)

// Sentinel errors used with errors.Is across package boundaries. Each is
// wrapped with fresh context at the call site via errors.New(ErrX)....
var (
	ErrSourceNotFound = errors.New(nil).
				Component(ComponentAudioCore).
				Category(errors.CategoryNotFound).
				Context("resource", "audio_source").
				Build()

	ErrSinkAlreadyConfigured = errors.New(nil).
					Component(ComponentAudioCore).
					Category(errors.CategoryState).
					Context("resource", "sink").
					Build()

	ErrSinkNotConfigured = errors.New(nil).
				Component(ComponentAudioCore).
				Category(errors.CategoryState).
				Context("resource", "sink").
				Build()

	ErrSinkFinished = errors.New(nil).
			Component(ComponentAudioCore).
			Category(errors.CategoryState).
			Context("resource", "sink").
			Build()

	ErrInvalidState = errors.New(nil).
			Component(ComponentAudioCore).
			Category(errors.CategoryState).
			Context("resource", "session").
			Build()

	ErrBufferOverflow = errors.New(nil).
				Component(ComponentAudioCore).
				Category(errors.CategoryResource).
				Context("resource", "queue").
				Build()

	ErrBufferUnderrun = errors.New(nil).
				Component(ComponentAudioCore).
				Category(errors.CategoryResource).
				Context("resource", "queue").
				Build()

	ErrDeviceNotFound = errors.New(nil).
				Component(ComponentAudioCore).
				Category(errors.CategoryDevice).
				Build()

	ErrDeviceDisconnected = errors.New(nil).
				Component(ComponentAudioCore).
				Category(errors.CategoryDevice).
				Build()

	ErrDeviceInUse = errors.New(nil).
			Component(ComponentAudioCore).
			Category(errors.CategoryDevice).
			Build()

	ErrPermissionDenied = errors.New(nil).
				Component(ComponentAudioCore).
				Category(errors.CategoryPermission).
				Build()

	ErrLoopbackPermission = errors.New(nil).
				Component(ComponentAudioCore).
				Category(errors.CategoryPermission).
				Context("resource", "loopback").
				Build()

	ErrMicrophonePermission = errors.New(nil).
					Component(ComponentAudioCore).
					Category(errors.CategoryPermission).
					Context("resource", "microphone").
					Build()

	ErrSessionStartFailed = errors.New(nil).
				Component(ComponentAudioCore).
				Category(errors.CategoryState).
				Context("resource", "session").
				Build()

	ErrUnsupportedFormat = errors.New(nil).
				Component(ComponentAudioCore).
				Category(errors.CategoryValidation).
				Build()

	ErrFormatConversionFailed = errors.New(nil).
					Component(ComponentAudioCore).
					Category(errors.CategoryProcessing).
					Build()

	ErrFormatMismatch = errors.New(nil).
				Component(ComponentAudioCore).
				Category(errors.CategoryValidation).
				Build()

	ErrOutputNotConfigured = errors.New(nil).
				Component(ComponentAudioCore).
				Category(errors.CategoryState).
				Context("resource", "sink").
				Build()

	ErrFileWriteFailed = errors.New(nil).
				Component(ComponentAudioCore).
				Category(errors.CategoryFileIO).
				Build()

	ErrNetworkConnectionFailed = errors.New(nil).
					Component(ComponentAudioCore).
					Category(errors.CategoryNetwork).
					Build()

	ErrStreamingProtocol = errors.New(nil).
				Component(ComponentAudioCore).
				Category(errors.CategoryProtocol).
				Build()
)

// RecoveryStrategy describes what a caller should do after an error of a
// given category, per spec §4.11/§7's suggested_strategy mapping.
type RecoveryStrategy int

const (
	// StrategyFail means the operation cannot be retried and the caller
	// should surface the error (e.g. to the session's Error state).
	StrategyFail RecoveryStrategy = iota
	// StrategyRetry means the caller should retry up to MaxAttempts
	// times, waiting Backoff between attempts.
	StrategyRetry
	// StrategyIgnore means the condition is expected under normal
	// operation (e.g. a transient overflow/underrun) and should be
	// counted but not surfaced as a session fault.
	StrategyIgnore
)

// RecoveryHint is the resolved policy for one error category.
type RecoveryHint struct {
	Strategy    RecoveryStrategy
	MaxAttempts int
	Backoff     time.Duration
}

// SuggestedStrategy maps an error to the recovery hint spec §7 calls
// for. Matching is by sentinel identity (unwrapping through a chain of
// *errors.EnhancedError values and comparing each against the
// package-level singletons above), not by Category: EnhancedError.Is matches any two
// errors sharing a Category — intentionally, mirroring the teacher's own
// loose Is — which would make every device-category error retry like
// ErrDeviceDisconnected if used here. Unmatched errors default to
// StrategyFail.
func SuggestedStrategy(err error) RecoveryHint {
	switch sentinelOf(err) {
	case ErrDeviceDisconnected:
		return RecoveryHint{Strategy: StrategyRetry, MaxAttempts: 3, Backoff: time.Second}
	case ErrSessionStartFailed:
		return RecoveryHint{Strategy: StrategyRetry, MaxAttempts: 2, Backoff: 500 * time.Millisecond}
	case ErrBufferOverflow, ErrBufferUnderrun:
		return RecoveryHint{Strategy: StrategyIgnore}
	default:
		return RecoveryHint{Strategy: StrategyFail}
	}
}

// sentinelOf walks err's Unwrap chain looking for one of the package's
// own *errors.EnhancedError sentinels, returned by pointer identity so
// SuggestedStrategy can switch on it directly.
func sentinelOf(err error) *errors.EnhancedError {
	for err != nil {
		if ee, ok := err.(*errors.EnhancedError); ok {
			for _, sentinel := range allSentinels {
				if ee == sentinel {
					return sentinel
				}
			}
			err = ee.Unwrap()
			continue
		}
		break
	}
	return nil
}

var allSentinels = []*errors.EnhancedError{
	ErrSourceNotFound, ErrSinkAlreadyConfigured, ErrSinkNotConfigured, ErrSinkFinished,
	ErrInvalidState, ErrBufferOverflow, ErrBufferUnderrun, ErrDeviceNotFound,
	ErrDeviceDisconnected, ErrDeviceInUse, ErrPermissionDenied, ErrLoopbackPermission,
	ErrMicrophonePermission, ErrSessionStartFailed, ErrUnsupportedFormat,
	ErrFormatConversionFailed, ErrFormatMismatch, ErrOutputNotConfigured,
	ErrFileWriteFailed, ErrNetworkConnectionFailed, ErrStreamingProtocol,
}
