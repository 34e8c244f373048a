package repository

import (
	"context"

	"github.com/homeledger/incident-engine/internal/datastore/v2/entities"
)

// ChecklistRepository reads checklist items owned by the maintenance feature.
type ChecklistRepository interface {
	// FindByOrchestrationAction returns the first item for the property
	// linked to actionKey, or ErrChecklistItemNotFound.
	FindByOrchestrationAction(ctx context.Context, propertyID, actionKey string) (*entities.ChecklistItem, error)
}

// PropertyRepository answers property existence checks.
type PropertyRepository interface {
	PropertyExists(ctx context.Context, propertyID string) (bool, error)
}
