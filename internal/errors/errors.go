// Package errors provides centralized error construction with structured
// context, modeled on the builder used throughout the teacher codebase
// this module was grown from.
package errors

import (
	stderrors "errors"
	"fmt"
	"maps"
	"sync"
	"time"
)

// ErrorCategory groups errors for reporting and retry-policy lookup.
type ErrorCategory string

const (
	CategoryValidation  ErrorCategory = "validation"
	CategoryState       ErrorCategory = "state"
	CategoryNotFound    ErrorCategory = "not-found"
	CategoryConflict    ErrorCategory = "conflict"
	CategoryLimit       ErrorCategory = "limit"
	CategoryResource    ErrorCategory = "resource"
	CategoryProcessing  ErrorCategory = "processing"
	CategoryFileIO      ErrorCategory = "file-io"
	CategoryNetwork     ErrorCategory = "network"
	CategoryProtocol    ErrorCategory = "protocol"
	CategoryDevice      ErrorCategory = "device"
	CategoryPermission  ErrorCategory = "permission"
	CategorySystem      ErrorCategory = "system-resource"
	CategoryGeneric     ErrorCategory = "generic"
)

// ComponentUnknown is used when no component was set on the builder.
const ComponentUnknown = "unknown"

// EnhancedError wraps an error with component/category/context metadata.
type EnhancedError struct {
	Err       error
	component string
	Category  ErrorCategory
	Context   map[string]any
	Timestamp time.Time

	mu       sync.RWMutex
	reported bool
}

func (ee *EnhancedError) Error() string {
	if ee.Err == nil {
		return fmt.Sprintf("%s: %s", ee.component, ee.Category)
	}
	return ee.Err.Error()
}

func (ee *EnhancedError) Unwrap() error { return ee.Err }

func (ee *EnhancedError) Is(target error) bool {
	var other *EnhancedError
	if stderrors.As(target, &other) {
		return ee.Category == other.Category
	}
	return stderrors.Is(ee.Err, target)
}

// Component returns the component name, or ComponentUnknown if unset.
func (ee *EnhancedError) Component() string {
	if ee.component == "" {
		return ComponentUnknown
	}
	return ee.component
}

// GetContext returns a defensive copy of the error's context map.
func (ee *EnhancedError) GetContext() map[string]any {
	ee.mu.RLock()
	defer ee.mu.RUnlock()
	if ee.Context == nil {
		return nil
	}
	out := make(map[string]any, len(ee.Context))
	maps.Copy(out, ee.Context)
	return out
}

// MarkReported records that this error has already been sent to a fault
// reporter, so retry loops don't double-report the same occurrence.
func (ee *EnhancedError) MarkReported() {
	ee.mu.Lock()
	defer ee.mu.Unlock()
	ee.reported = true
}

// IsReported reports whether MarkReported has been called.
func (ee *EnhancedError) IsReported() bool {
	ee.mu.RLock()
	defer ee.mu.RUnlock()
	return ee.reported
}

// Builder provides a fluent interface for constructing EnhancedErrors.
type Builder struct {
	err       error
	component string
	category  ErrorCategory
	context   map[string]any
}

// New starts a builder wrapping err (err may be nil for a pure-context error).
func New(err error) *Builder {
	return &Builder{err: err}
}

// Newf starts a builder around a formatted error.
func Newf(format string, args ...any) *Builder {
	return New(fmt.Errorf(format, args...))
}

// Component sets the owning component/package name.
func (b *Builder) Component(name string) *Builder {
	b.component = name
	return b
}

// Category sets the error category.
func (b *Builder) Category(cat ErrorCategory) *Builder {
	b.category = cat
	return b
}

// Context attaches a key/value pair of diagnostic context.
func (b *Builder) Context(key string, value any) *Builder {
	if b.context == nil {
		b.context = make(map[string]any, 4)
	}
	b.context[key] = value
	return b
}

// Build finalizes the EnhancedError.
func (b *Builder) Build() *EnhancedError {
	category := b.category
	if category == "" {
		category = CategoryGeneric
	}
	return &EnhancedError{
		Err:       b.err,
		component: b.component,
		Category:  category,
		Context:   b.context,
		Timestamp: time.Now(),
	}
}

// Is exposes stderrors.Is for callers that don't want to import "errors"
// alongside this package under two names.
func Is(err, target error) bool { return stderrors.Is(err, target) }

// As exposes stderrors.As.
func As(err error, target any) bool { return stderrors.As(err, target) }
