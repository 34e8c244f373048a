package orchestration

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/homeledger/incident-engine/internal/checklist"
	"github.com/homeledger/incident-engine/internal/datastore/v2/entities"
	"github.com/homeledger/incident-engine/internal/datastore/v2/repository"
	"github.com/homeledger/incident-engine/internal/logger"
	"github.com/homeledger/incident-engine/internal/snooze"
	"github.com/homeledger/incident-engine/internal/suppression"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gorm_logger "gorm.io/gorm/logger"
)

const (
	testProperty = "prop-1"
	testTypeKey  = "water_heater.age"
)

var testNow = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

// testClock is a settable clock shared by the engine and the snooze manager.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// fakeObserver records engine measurements.
type fakeObserver struct {
	mu          sync.Mutex
	evaluations map[string]int
	retries     map[string]int
}

func newFakeObserver() *fakeObserver {
	return &fakeObserver{evaluations: map[string]int{}, retries: map[string]int{}}
}

func (o *fakeObserver) ObserveEvaluation(outcome string, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.evaluations[outcome]++
}

func (o *fakeObserver) IncConflictRetry(operation string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.retries[operation]++
}

func (o *fakeObserver) evaluationCount(outcome string) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.evaluations[outcome]
}

func (o *fakeObserver) retryCount(operation string) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.retries[operation]
}

// conflictingRepo runs each transaction for real and then reports a lost
// write race for the first failures attempts, rolling the work back.
type conflictingRepo struct {
	repository.IncidentRepository
	failures int
	attempts int
}

func (r *conflictingRepo) RunInTx(ctx context.Context, fn func(tx repository.IncidentTx) error) error {
	r.attempts++
	attempt := r.attempts
	return r.IncidentRepository.RunInTx(ctx, func(tx repository.IncidentTx) error {
		if err := fn(tx); err != nil {
			return err
		}
		if attempt <= r.failures {
			return repository.ErrConflict
		}
		return nil
	})
}

type harness struct {
	db       *gorm.DB
	clock    *testClock
	repo     repository.IncidentRepository
	snoozes  *snooze.Manager
	observer *fakeObserver
	engine   *Engine
}

type harnessOption func(*Deps, *Config)

func withIncidentRepo(wrap func(repository.IncidentRepository) repository.IncidentRepository) harnessOption {
	return func(d *Deps, _ *Config) { d.Incidents = wrap(d.Incidents) }
}

func withConfig(fn func(*Config)) harnessOption {
	return func(_ *Deps, c *Config) { fn(c) }
}

func withBus(bus *EventBus) harnessOption {
	return func(d *Deps, _ *Config) { d.Bus = bus }
}

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared&_foreign_keys=ON"), &gorm.Config{
		Logger:         gorm_logger.Default.LogMode(gorm_logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err, "failed to open in-memory database")

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(entities.All()...))
	require.NoError(t, db.Create(&entities.Property{ID: testProperty, Name: "Maple Street"}).Error)
	return db
}

func newHarness(t *testing.T, opts ...harnessOption) *harness {
	t.Helper()
	db := setupTestDB(t)
	clock := &testClock{now: testNow}
	log := logger.Nop()

	properties := repository.NewPropertyRepository(db)
	snoozes := snooze.NewManager(repository.NewSnoozeRepository(db), properties, log, snooze.Options{Now: clock.Now})
	resolver := suppression.NewResolver(log, 0,
		suppression.NewChecklistLookup(checklist.NewDBFinder(repository.NewChecklistRepository(db))))
	observer := newFakeObserver()

	deps := Deps{
		Incidents:   repository.NewIncidentRepository(db),
		Properties:  properties,
		Suppression: resolver,
		Snoozes:     snoozes,
		Metrics:     observer,
		Log:         log,
	}
	cfg := Config{
		MaxRetries:   3,
		RetryBackoff: time.Millisecond,
		Now:          clock.Now,
	}
	for _, opt := range opts {
		opt(&deps, &cfg)
	}

	return &harness{
		db:       db,
		clock:    clock,
		repo:     deps.Incidents,
		snoozes:  snoozes,
		observer: observer,
		engine:   NewEngine(deps, cfg),
	}
}

func f64(v float64) *float64 { return &v }

func ptr[T any](v T) *T { return &v }

// criticalSignal scores 40+25+15+10-5 = 85.
func criticalSignal() *Signal {
	return &Signal{
		SignalType: "age_check",
		ObservedAt: testNow,
		Title:      "Water heater nearing end of life",
		SourceType: "inspection",
		Breakdown: &entities.ScoreBreakdown{
			SchemaVersion:        entities.ScoreBreakdownSchemaVersion,
			RiskImpact:           f64(40),
			Likelihood:           f64(25),
			TimeSensitivity:      f64(15),
			CoveragePenalty:      f64(10),
			MitigationConfidence: f64(5),
		},
	}
}

// scoredSignal carries a breakdown summing to score.
func scoredSignal(score float64) *Signal {
	return &Signal{
		SignalType: "age_check",
		ObservedAt: testNow,
		Breakdown: &entities.ScoreBreakdown{
			SchemaVersion: entities.ScoreBreakdownSchemaVersion,
			RiskImpact:    f64(score),
		},
	}
}

func (h *harness) events(t *testing.T, incidentID string) []entities.IncidentEvent {
	t.Helper()
	events, err := h.repo.ListEvents(context.Background(), incidentID, repository.EventFilter{})
	require.NoError(t, err)
	return events
}

func eventTypes(events []entities.IncidentEvent) []entities.EventType {
	types := make([]entities.EventType, len(events))
	for i := range events {
		types[i] = events[i].Type
	}
	return types
}

func (h *harness) actions(t *testing.T, incidentID string) []entities.IncidentAction {
	t.Helper()
	actions, err := h.repo.ListActions(context.Background(), incidentID)
	require.NoError(t, err)
	return actions
}
