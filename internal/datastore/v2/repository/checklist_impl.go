package repository

import (
	"context"
	"fmt"

	"github.com/homeledger/incident-engine/internal/datastore/v2/entities"
	"github.com/homeledger/incident-engine/internal/errors"
	"gorm.io/gorm"
)

// checklistRepository implements ChecklistRepository.
type checklistRepository struct {
	db *gorm.DB
}

// NewChecklistRepository creates a new ChecklistRepository.
func NewChecklistRepository(db *gorm.DB) ChecklistRepository {
	return &checklistRepository{db: db}
}

// FindByOrchestrationAction returns the oldest matching checklist item.
func (r *checklistRepository) FindByOrchestrationAction(ctx context.Context, propertyID, actionKey string) (*entities.ChecklistItem, error) {
	var item entities.ChecklistItem
	err := r.db.WithContext(ctx).
		Where("property_id = ? AND orchestration_action_id = ?", propertyID, actionKey).
		Order("created_at ASC").Order("id ASC").
		First(&item).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrChecklistItemNotFound
		}
		return nil, fmt.Errorf("failed to find checklist item: %w", err)
	}
	return &item, nil
}

// propertyRepository implements PropertyRepository.
type propertyRepository struct {
	db *gorm.DB
}

// NewPropertyRepository creates a new PropertyRepository.
func NewPropertyRepository(db *gorm.DB) PropertyRepository {
	return &propertyRepository{db: db}
}

// PropertyExists reports whether the property row exists.
func (r *propertyRepository) PropertyExists(ctx context.Context, propertyID string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&entities.Property{}).
		Where("id = ?", propertyID).Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to check property %s: %w", propertyID, err)
	}
	return count > 0, nil
}
