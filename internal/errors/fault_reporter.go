package errors

import (
	"sync"

	"github.com/getsentry/sentry-go"
)

// FaultReporter receives unrecoverable errors, typically on a state
// machine's transition into a terminal Error state. The default
// implementation is a no-op so tests never touch the network.
type FaultReporter interface {
	ReportFault(err *EnhancedError)
}

// noopReporter discards every fault. It is the package default.
type noopReporter struct{}

func (noopReporter) ReportFault(*EnhancedError) {}

var (
	reporterMu sync.RWMutex
	reporter   FaultReporter = noopReporter{}
)

// SetFaultReporter installs the process-wide fault reporter. Passing nil
// restores the no-op reporter.
func SetFaultReporter(r FaultReporter) {
	reporterMu.Lock()
	defer reporterMu.Unlock()
	if r == nil {
		r = noopReporter{}
	}
	reporter = r
}

// ReportFault hands err to the installed reporter exactly once; repeated
// calls for an error already marked reported are ignored.
func ReportFault(err *EnhancedError) {
	if err == nil || err.IsReported() {
		return
	}
	reporterMu.RLock()
	r := reporter
	reporterMu.RUnlock()
	r.ReportFault(err)
	err.MarkReported()
}

// SentryReporter forwards faults to Sentry, attaching component/category
// and context as extras. Construct with NewSentryReporter after the
// process has called sentry.Init, or rely on sentry's own no-op client
// when no DSN is configured.
type SentryReporter struct{}

// NewSentryReporter returns a FaultReporter backed by the globally
// configured Sentry client (a no-op if sentry.Init was never called or
// was called with an empty DSN).
func NewSentryReporter() *SentryReporter {
	return &SentryReporter{}
}

func (s *SentryReporter) ReportFault(err *EnhancedError) {
	if err == nil {
		return
	}
	sentry.WithScope(func(scope *sentry.Scope) {
		scope.SetTag("component", err.Component())
		scope.SetTag("category", string(err.Category))
		for k, v := range err.GetContext() {
			scope.SetExtra(k, v)
		}
		if err.Err != nil {
			sentry.CaptureException(err.Err)
		} else {
			sentry.CaptureMessage(err.Error())
		}
	})
}
