// Package checklist looks up maintenance checklist items linked to an
// orchestration action, either in the shared database or over HTTP.
package checklist

import (
	"context"
	"time"

	"github.com/homeledger/incident-engine/internal/datastore/v2/repository"
	"github.com/homeledger/incident-engine/internal/errors"
)

// ErrNotFound is returned when no item is linked to the action.
var ErrNotFound = errors.NewStd("checklist item not found")

// Item is the subset of a checklist item the engine cares about.
type Item struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Frequency   *string    `json:"frequency,omitempty"`
	NextDueDate *time.Time `json:"nextDueDate,omitempty"`
	Status      string     `json:"status"`
}

// Finder resolves the checklist item for (propertyID, orchestrationActionID).
type Finder interface {
	FindChecklistItem(ctx context.Context, propertyID, orchestrationActionID string) (*Item, error)
}

// DBFinder reads checklist items through the repository layer.
type DBFinder struct {
	repo repository.ChecklistRepository
}

// NewDBFinder creates a Finder backed by repo.
func NewDBFinder(repo repository.ChecklistRepository) *DBFinder {
	return &DBFinder{repo: repo}
}

// FindChecklistItem implements Finder.
func (f *DBFinder) FindChecklistItem(ctx context.Context, propertyID, orchestrationActionID string) (*Item, error) {
	row, err := f.repo.FindByOrchestrationAction(ctx, propertyID, orchestrationActionID)
	if err != nil {
		if errors.Is(err, repository.ErrChecklistItemNotFound) {
			return nil, ErrNotFound
		}
		return nil, errors.New(err).
			Component("checklist").
			Category(errors.CategoryDatabase).
			Context("property_id", propertyID).
			Context("orchestration_action_id", orchestrationActionID).
			Build()
	}
	return &Item{
		ID:          row.ID,
		Title:       row.Title,
		Frequency:   row.Frequency,
		NextDueDate: row.NextDueDate,
		Status:      row.Status,
	}, nil
}
