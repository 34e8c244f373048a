package main

import (
	"github.com/homeledger/incident-engine/internal/checklist"
	"github.com/homeledger/incident-engine/internal/conf"
	datastore "github.com/homeledger/incident-engine/internal/datastore/v2"
	"github.com/homeledger/incident-engine/internal/datastore/v2/repository"
	"github.com/homeledger/incident-engine/internal/logger"
	"github.com/homeledger/incident-engine/internal/observability/metrics"
	"github.com/homeledger/incident-engine/internal/orchestration"
	"github.com/homeledger/incident-engine/internal/snooze"
	"github.com/homeledger/incident-engine/internal/suppression"
	"github.com/homeledger/incident-engine/internal/telemetry"
)

// runtime is the wired object graph shared by the subcommands.
type runtime struct {
	settings *conf.Settings
	log      logger.Logger
	store    *datastore.Manager
	metrics  *metrics.Metrics
	bus      *orchestration.EventBus
	resolver *suppression.Resolver
	snoozes  *snooze.Manager
	engine   *orchestration.Engine
	reporter *telemetry.Reporter
}

func openStore(settings *conf.Settings) (*datastore.Manager, error) {
	return datastore.NewManager(datastore.Config{
		Driver:       settings.Database.Driver,
		Path:         settings.Database.Path,
		DSN:          settings.Database.DSN,
		MaxOpenConns: settings.Database.MaxOpenConns,
		LogLevel:     settings.Database.LogLevel,
	})
}

func newRuntime(settings *conf.Settings, log logger.Logger) (*runtime, error) {
	reporter, err := telemetry.Init(telemetry.Config{
		DSN:         settings.Telemetry.SentryDSN,
		Environment: settings.Telemetry.Environment,
		Release:     version,
	}, log)
	if err != nil {
		return nil, err
	}

	store, err := openStore(settings)
	if err != nil {
		reporter.Close()
		return nil, err
	}
	if err := store.Initialize(); err != nil {
		_ = store.Close()
		reporter.Close()
		return nil, err
	}

	rt := &runtime{
		settings: settings,
		log:      log,
		store:    store,
		metrics:  metrics.New(),
		reporter: reporter,
	}
	db := store.DB()
	properties := repository.NewPropertyRepository(db)

	var finder checklist.Finder
	switch settings.Checklist.Source {
	case "http":
		finder = checklist.NewHTTPClient(settings.Checklist.BaseURL, settings.Checklist.Timeout.Std(), nil)
	default:
		finder = checklist.NewDBFinder(repository.NewChecklistRepository(db))
	}
	rt.resolver = suppression.NewResolver(log, settings.Engine.ChecklistCacheTTL.Std(), suppression.NewChecklistLookup(finder))
	rt.resolver.OnFailure(rt.metrics.IncLookupFailure)

	rt.snoozes = snooze.NewManager(repository.NewSnoozeRepository(db), properties, log, snooze.Options{
		MaxRetries:   settings.Engine.ConflictRetries,
		RetryBackoff: settings.Engine.RetryBackoff.Std(),
		OnOperation:  rt.metrics.IncSnoozeOperation,
	})

	rt.bus = orchestration.NewEventBus()
	rt.bus.OnDrop(rt.metrics.IncBusDropped)
	rt.bus.Subscribe(orchestration.NewMetricsHandler(rt.metrics))

	rules, err := orchestration.RulesFromSettings(settings.Engine.ProposalRules)
	if err != nil {
		rt.Close()
		return nil, err
	}
	rt.engine = orchestration.NewEngine(orchestration.Deps{
		Incidents:   repository.NewIncidentRepository(db),
		Properties:  properties,
		Suppression: rt.resolver,
		Snoozes:     rt.snoozes,
		Bus:         rt.bus,
		Metrics:     rt.metrics,
		Log:         log,
	}, orchestration.Config{
		SurfacingThreshold: settings.Engine.SurfacingThreshold,
		MaxRetries:         settings.Engine.ConflictRetries,
		RetryBackoff:       settings.Engine.RetryBackoff.Std(),
		Rules:              rules,
	})
	return rt, nil
}

// Close stops the bus, then releases the store and flushes telemetry.
func (r *runtime) Close() {
	if r.bus != nil {
		r.bus.Stop()
	}
	if err := r.store.Close(); err != nil {
		r.log.Warn("failed to close database", logger.Error(err))
	}
	r.reporter.Close()
}
