// Package snooze manages user-requested, time-boxed suppression windows keyed
// by (property, action key). At most one window per key is open at a time.
package snooze

import (
	"context"
	"math"
	"strings"
	"time"

	"github.com/homeledger/incident-engine/internal/datastore/v2/entities"
	"github.com/homeledger/incident-engine/internal/datastore/v2/repository"
	"github.com/homeledger/incident-engine/internal/errors"
	"github.com/homeledger/incident-engine/internal/logger"
)

const day = 24 * time.Hour

// ActiveSnooze is an open window that has not yet lapsed.
type ActiveSnooze struct {
	entities.SnoozeWindow
	DaysRemaining int `json:"days_remaining"`
}

// OperationHook observes snooze writes, e.g. for metrics.
type OperationHook func(operation, outcome string)

// Options tunes a Manager. Zero values select defaults.
type Options struct {
	Now          func() time.Time
	MaxRetries   int
	RetryBackoff time.Duration
	OnOperation  OperationHook
}

// Manager implements the snooze operations on top of the repositories.
type Manager struct {
	repo       repository.SnoozeRepository
	properties repository.PropertyRepository
	log        logger.Logger
	now        func() time.Time
	retry      repository.RetryPolicy
	onOp       OperationHook
}

// NewManager creates a snooze Manager.
func NewManager(repo repository.SnoozeRepository, properties repository.PropertyRepository, log logger.Logger, opts Options) *Manager {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	m := &Manager{
		repo:       repo,
		properties: properties,
		log:        log,
		now:        now,
		onOp:       opts.OnOperation,
	}
	m.retry = repository.RetryPolicy{
		MaxRetries:      opts.MaxRetries,
		InitialInterval: opts.RetryBackoff,
		OnRetry: func(err error, wait time.Duration) {
			m.log.Debug("snooze write conflict, retrying",
				logger.Duration("wait", wait),
				logger.Error(err))
		},
	}
	return m
}

// DaysRemaining returns ceil((until - now) / 24h), never negative.
func DaysRemaining(until, now time.Time) int {
	d := until.Sub(now)
	if d <= 0 {
		return 0
	}
	return int(math.Ceil(float64(d) / float64(day)))
}

// GetActiveSnooze returns the active window for the key, or nil when none is
// active. Windows whose snooze_until has passed are inactive even if they
// were never ended.
func (m *Manager) GetActiveSnooze(ctx context.Context, propertyID, actionKey string) (*ActiveSnooze, error) {
	propertyID, actionKey, ok := normalize(propertyID, actionKey)
	if !ok {
		return nil, nil
	}
	if err := m.requireProperty(ctx, propertyID); err != nil {
		return nil, err
	}

	windows, err := m.repo.ListOpenWindows(ctx, propertyID, actionKey)
	if err != nil {
		return nil, m.dbError(err, "get_active", propertyID, actionKey)
	}
	now := m.now()
	for i := range windows {
		if windows[i].IsActiveAt(now) {
			return &ActiveSnooze{SnoozeWindow: windows[i], DaysRemaining: DaysRemaining(windows[i].SnoozeUntil, now)}, nil
		}
	}
	return nil, nil
}

// SnoozeAction ends every open window for the key and opens a new one until
// snoozeUntil, atomically. It returns false without error for invalid input.
func (m *Manager) SnoozeAction(ctx context.Context, propertyID, actionKey string, snoozeUntil time.Time, reason *string) (bool, error) {
	propertyID, actionKey, ok := normalize(propertyID, actionKey)
	now := m.now()
	if !ok || !snoozeUntil.After(now) {
		m.observe("snooze", "invalid")
		return false, nil
	}
	if err := m.requireProperty(ctx, propertyID); err != nil {
		return false, err
	}
	if reason != nil {
		trimmed := strings.TrimSpace(*reason)
		if trimmed == "" {
			reason = nil
		} else {
			reason = &trimmed
		}
	}

	err := repository.RetryOnConflict(ctx, m.retry, func() error {
		now = m.now()
		return m.repo.ReplaceOpenWindow(ctx, &entities.SnoozeWindow{
			PropertyID:   propertyID,
			ActionKey:    actionKey,
			SnoozedAt:    now,
			SnoozeUntil:  snoozeUntil,
			SnoozeReason: reason,
		}, now)
	})
	if err != nil {
		m.observe("snooze", "error")
		return false, m.dbError(err, "snooze", propertyID, actionKey)
	}

	m.observe("snooze", "ok")
	m.log.Info("action snoozed",
		logger.String("property_id", propertyID),
		logger.String("action_key", actionKey),
		logger.Time("snooze_until", snoozeUntil))
	return true, nil
}

// UnsnoozeAction ends all open windows for the key. It succeeds when none
// are open.
func (m *Manager) UnsnoozeAction(ctx context.Context, propertyID, actionKey string) (bool, error) {
	propertyID, actionKey, ok := normalize(propertyID, actionKey)
	if !ok {
		m.observe("unsnooze", "invalid")
		return false, nil
	}
	if err := m.requireProperty(ctx, propertyID); err != nil {
		return false, err
	}

	var ended int64
	err := repository.RetryOnConflict(ctx, m.retry, func() error {
		var err error
		ended, err = m.repo.EndOpenWindows(ctx, propertyID, actionKey, m.now())
		return err
	})
	if err != nil {
		m.observe("unsnooze", "error")
		return false, m.dbError(err, "unsnooze", propertyID, actionKey)
	}

	m.observe("unsnooze", "ok")
	if ended > 0 {
		m.log.Info("action unsnoozed",
			logger.String("property_id", propertyID),
			logger.String("action_key", actionKey),
			logger.Int64("windows_ended", ended))
	}
	return true, nil
}

// GetPropertySnoozes returns the active window per action key. When a key
// has several open rows the latest snoozed_at wins, then the highest id.
func (m *Manager) GetPropertySnoozes(ctx context.Context, propertyID string) (map[string]ActiveSnooze, error) {
	propertyID = strings.TrimSpace(propertyID)
	result := make(map[string]ActiveSnooze)
	if propertyID == "" {
		return result, nil
	}
	if err := m.requireProperty(ctx, propertyID); err != nil {
		return nil, err
	}

	windows, err := m.repo.ListPropertyWindows(ctx, propertyID)
	if err != nil {
		return nil, m.dbError(err, "list", propertyID, "")
	}
	now := m.now()
	// windows arrive newest first, so the first active row per key wins.
	for i := range windows {
		w := windows[i]
		if !w.IsActiveAt(now) {
			continue
		}
		if _, seen := result[w.ActionKey]; seen {
			continue
		}
		result[w.ActionKey] = ActiveSnooze{SnoozeWindow: w, DaysRemaining: DaysRemaining(w.SnoozeUntil, now)}
	}
	return result, nil
}

func (m *Manager) requireProperty(ctx context.Context, propertyID string) error {
	if m.properties == nil {
		return nil
	}
	exists, err := m.properties.PropertyExists(ctx, propertyID)
	if err != nil {
		return m.dbError(err, "property_exists", propertyID, "")
	}
	if !exists {
		return errors.New(repository.ErrPropertyNotFound).
			Component("snooze").
			Category(errors.CategoryNotFound).
			Context("property_id", propertyID).
			Build()
	}
	return nil
}

func (m *Manager) dbError(err error, op, propertyID, actionKey string) error {
	category := errors.CategoryDatabase
	if errors.Is(err, repository.ErrConflict) {
		category = errors.CategoryConflict
	}
	b := errors.New(err).
		Component("snooze").
		Category(category).
		Context("operation", op).
		Context("property_id", propertyID)
	if actionKey != "" {
		b = b.Context("action_key", actionKey)
	}
	return b.Build()
}

func (m *Manager) observe(op, outcome string) {
	if m.onOp != nil {
		m.onOp(op, outcome)
	}
}

func normalize(propertyID, actionKey string) (pid, key string, ok bool) {
	pid = strings.TrimSpace(propertyID)
	key = strings.TrimSpace(actionKey)
	return pid, key, pid != "" && key != ""
}
