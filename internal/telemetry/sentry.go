// Package telemetry forwards reportable errors to Sentry.
package telemetry

import (
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/homeledger/incident-engine/internal/errors"
	"github.com/homeledger/incident-engine/internal/logger"
)

const flushTimeout = 2 * time.Second

// Config controls Sentry initialization.
type Config struct {
	DSN         string
	Environment string
	Release     string
}

// Reporter sends enhanced errors to a Sentry hub.
type Reporter struct {
	hub *sentry.Hub
}

// Init initializes Sentry and registers the reporter as the errors package
// hook. With an empty DSN it does nothing and returns nil.
func Init(cfg Config, log logger.Logger) (*Reporter, error) {
	if cfg.DSN == "" {
		log.Debug("telemetry disabled, no sentry dsn configured")
		return nil, nil
	}
	client, err := sentry.NewClient(sentry.ClientOptions{
		Dsn:              cfg.DSN,
		Environment:      cfg.Environment,
		Release:          cfg.Release,
		AttachStacktrace: true,
	})
	if err != nil {
		return nil, errors.New(err).
			Component("telemetry").
			Category(errors.CategoryValidation).
			Build()
	}
	r := NewReporter(sentry.NewHub(client, sentry.NewScope()))
	errors.SetReporter(r.Report)
	log.Info("telemetry enabled", logger.String("environment", cfg.Environment))
	return r, nil
}

// NewReporter wraps an existing hub.
func NewReporter(hub *sentry.Hub) *Reporter {
	return &Reporter{hub: hub}
}

// Report captures err with its component, category and context as tags and
// extra data.
func (r *Reporter) Report(err *errors.EnhancedError) {
	r.hub.WithScope(func(scope *sentry.Scope) {
		scope.SetTag("component", err.GetComponent())
		scope.SetTag("category", string(err.GetCategory()))
		for k, v := range err.GetContext() {
			scope.SetExtra(k, v)
		}
		r.hub.CaptureException(err)
	})
}

// Close flushes buffered events and unregisters the hook.
func (r *Reporter) Close() {
	if r == nil {
		return
	}
	errors.SetReporter(nil)
	r.hub.Flush(flushTimeout)
}
