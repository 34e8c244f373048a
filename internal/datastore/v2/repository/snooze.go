package repository

import (
	"context"
	"time"

	"github.com/homeledger/incident-engine/internal/datastore/v2/entities"
)

// SnoozeRepository persists snooze windows keyed by (property, action key).
type SnoozeRepository interface {
	// ListOpenWindows returns every window for the key that has not ended,
	// newest snoozed_at first, ties broken by highest id.
	ListOpenWindows(ctx context.Context, propertyID, actionKey string) ([]entities.SnoozeWindow, error)
	// ListPropertyWindows returns all non-ended windows for a property with
	// the same ordering as ListOpenWindows.
	ListPropertyWindows(ctx context.Context, propertyID string) ([]entities.SnoozeWindow, error)
	// ReplaceOpenWindow ends every open window for the key at now and inserts
	// window as the new open one, in a single transaction.
	ReplaceOpenWindow(ctx context.Context, window *entities.SnoozeWindow, now time.Time) error
	// EndOpenWindows marks every open window for the key as ended at now and
	// returns the number of rows ended.
	EndOpenWindows(ctx context.Context, propertyID, actionKey string, now time.Time) (int64, error)
}
