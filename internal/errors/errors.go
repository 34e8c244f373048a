// Package errors wraps the standard library errors package with a builder that
// attaches component, category and context metadata to an error.
//
// Usage:
//
//	return errors.Newf("snooze window overlaps").
//		Component("snooze").
//		Category(errors.CategoryConflict).
//		Context("property_id", propertyID).
//		Build()
package errors

import (
	stderrors "errors"
	"fmt"
	"maps"
	"sort"
	"strings"
	"sync"
)

// ErrorCategory classifies an error for reporting and HTTP mapping.
type ErrorCategory string

const (
	CategoryValidation ErrorCategory = "validation"
	CategoryNotFound   ErrorCategory = "not-found"
	CategoryConflict   ErrorCategory = "conflict"
	CategoryState      ErrorCategory = "state"
	CategoryDatabase   ErrorCategory = "database"
	CategoryNetwork    ErrorCategory = "network"
	CategoryInternal   ErrorCategory = "internal"
)

// EnhancedError is an error carrying classification metadata.
type EnhancedError struct {
	Err       error
	component string
	category  ErrorCategory
	context   map[string]any
}

func (e *EnhancedError) Error() string {
	if len(e.context) == 0 {
		return e.Err.Error()
	}
	keys := make([]string, 0, len(e.context))
	for k := range e.context {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, e.context[k]))
	}
	return fmt.Sprintf("%s (%s)", e.Err.Error(), strings.Join(parts, ", "))
}

func (e *EnhancedError) Unwrap() error { return e.Err }

// GetComponent returns the component that produced the error.
func (e *EnhancedError) GetComponent() string { return e.component }

// GetCategory returns the error category.
func (e *EnhancedError) GetCategory() ErrorCategory { return e.category }

// GetContext returns a copy of the error context.
func (e *EnhancedError) GetContext() map[string]any { return maps.Clone(e.context) }

// ErrorBuilder accumulates metadata before producing an EnhancedError.
type ErrorBuilder struct {
	err       error
	component string
	category  ErrorCategory
	context   map[string]any
}

// New starts a builder wrapping err.
func New(err error) *ErrorBuilder {
	return &ErrorBuilder{err: err, category: CategoryInternal}
}

// Newf starts a builder with a formatted message.
func Newf(format string, args ...any) *ErrorBuilder {
	return New(fmt.Errorf(format, args...))
}

func (b *ErrorBuilder) Component(component string) *ErrorBuilder {
	b.component = component
	return b
}

func (b *ErrorBuilder) Category(category ErrorCategory) *ErrorBuilder {
	b.category = category
	return b
}

func (b *ErrorBuilder) Context(key string, value any) *ErrorBuilder {
	if b.context == nil {
		b.context = make(map[string]any)
	}
	b.context[key] = value
	return b
}

// Build produces the error and hands it to the registered reporter when the
// category indicates a genuine failure.
func (b *ErrorBuilder) Build() error {
	if b.err == nil {
		b.err = stderrors.New("unknown error")
	}
	ee := &EnhancedError{
		Err:       b.err,
		component: b.component,
		category:  b.category,
		context:   b.context,
	}
	if shouldReport(ee.category) {
		report(ee)
	}
	return ee
}

// Reporter receives built errors, typically forwarding them to telemetry.
type Reporter func(err *EnhancedError)

var (
	reporterMu sync.RWMutex
	reporter   Reporter
)

// SetReporter registers the telemetry hook. Passing nil disables reporting.
func SetReporter(r Reporter) {
	reporterMu.Lock()
	defer reporterMu.Unlock()
	reporter = r
}

func report(ee *EnhancedError) {
	reporterMu.RLock()
	r := reporter
	reporterMu.RUnlock()
	if r != nil {
		r(ee)
	}
}

func shouldReport(c ErrorCategory) bool {
	switch c {
	case CategoryValidation, CategoryNotFound, CategoryConflict, CategoryState:
		return false
	default:
		return true
	}
}

// CategoryOf returns the category of the first EnhancedError in err's chain,
// or an empty category.
func CategoryOf(err error) ErrorCategory {
	var ee *EnhancedError
	if stderrors.As(err, &ee) {
		return ee.category
	}
	return ""
}

// HasCategory reports whether err carries category c.
func HasCategory(err error, c ErrorCategory) bool {
	return CategoryOf(err) == c
}

// Standard library passthroughs so callers only import this package.

func Is(err, target error) bool { return stderrors.Is(err, target) }
func As(err error, target any) bool { return stderrors.As(err, target) }
func Join(errs ...error) error { return stderrors.Join(errs...) }
func Unwrap(err error) error { return stderrors.Unwrap(err) }

// NewStd creates a plain error, used for sentinels.
func NewStd(text string) error { return stderrors.New(text) }
