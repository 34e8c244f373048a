package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/homeledger/incident-engine/internal/datastore/v2/entities"
	"gorm.io/gorm"
)

// snoozeRepository implements SnoozeRepository.
type snoozeRepository struct {
	db *gorm.DB
}

// NewSnoozeRepository creates a new SnoozeRepository.
func NewSnoozeRepository(db *gorm.DB) SnoozeRepository {
	return &snoozeRepository{db: db}
}

// ListOpenWindows returns open windows for the key.
func (r *snoozeRepository) ListOpenWindows(ctx context.Context, propertyID, actionKey string) ([]entities.SnoozeWindow, error) {
	var windows []entities.SnoozeWindow
	if err := r.db.WithContext(ctx).
		Where("property_id = ? AND action_key = ? AND ended_at IS NULL", propertyID, actionKey).
		Order("snoozed_at DESC").Order("id DESC").
		Find(&windows).Error; err != nil {
		return nil, fmt.Errorf("failed to list snooze windows for %s/%s: %w", propertyID, actionKey, err)
	}
	return windows, nil
}

// ListPropertyWindows returns open windows for every key of a property.
func (r *snoozeRepository) ListPropertyWindows(ctx context.Context, propertyID string) ([]entities.SnoozeWindow, error) {
	var windows []entities.SnoozeWindow
	if err := r.db.WithContext(ctx).
		Where("property_id = ? AND ended_at IS NULL", propertyID).
		Order("snoozed_at DESC").Order("id DESC").
		Find(&windows).Error; err != nil {
		return nil, fmt.Errorf("failed to list snooze windows for property %s: %w", propertyID, err)
	}
	return windows, nil
}

// ReplaceOpenWindow ends existing open windows and inserts the new one.
// A concurrent writer inserting for the same key trips the open-slot unique
// index and surfaces as ErrConflict.
func (r *snoozeRepository) ReplaceOpenWindow(ctx context.Context, window *entities.SnoozeWindow, now time.Time) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := endOpen(tx, window.PropertyID, window.ActionKey, now); err != nil {
			return err
		}
		slot := entities.OpenSlotValue
		window.OpenSlot = &slot
		window.EndedAt = nil
		window.ID = 0
		if err := tx.Create(window).Error; err != nil {
			return fmt.Errorf("failed to create snooze window: %w", err)
		}
		return nil
	})
	return translate(err)
}

// EndOpenWindows ends all open windows for the key.
func (r *snoozeRepository) EndOpenWindows(ctx context.Context, propertyID, actionKey string, now time.Time) (int64, error) {
	n, err := endOpen(r.db.WithContext(ctx), propertyID, actionKey, now)
	return n, translate(err)
}

func endOpen(db *gorm.DB, propertyID, actionKey string, now time.Time) (int64, error) {
	result := db.Model(&entities.SnoozeWindow{}).
		Where("property_id = ? AND action_key = ? AND ended_at IS NULL", propertyID, actionKey).
		Updates(map[string]any{"ended_at": now, "open_slot": nil})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to end snooze windows for %s/%s: %w", propertyID, actionKey, result.Error)
	}
	return result.RowsAffected, nil
}
