package suppression

import (
	"context"

	"github.com/homeledger/incident-engine/internal/checklist"
	"github.com/homeledger/incident-engine/internal/errors"
)

// Lookup is one way of discovering a suppression source. It returns nil, nil
// when it finds nothing.
type Lookup interface {
	Name() string
	Lookup(ctx context.Context, propertyID, orchestrationActionID string) (Source, error)
}

// ChecklistLookup suppresses an action when a checklist item is linked to it.
// The item's status is carried but not interpreted: any linked item suppresses.
type ChecklistLookup struct {
	finder checklist.Finder
}

// NewChecklistLookup creates a checklist-backed Lookup.
func NewChecklistLookup(finder checklist.Finder) *ChecklistLookup {
	return &ChecklistLookup{finder: finder}
}

func (l *ChecklistLookup) Name() string { return string(SourceTypeChecklist) }

func (l *ChecklistLookup) Lookup(ctx context.Context, propertyID, orchestrationActionID string) (Source, error) {
	item, err := l.finder.FindChecklistItem(ctx, propertyID, orchestrationActionID)
	if err != nil {
		if errors.Is(err, checklist.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return ChecklistSource{
		ID:          item.ID,
		Title:       item.Title,
		Frequency:   item.Frequency,
		NextDueDate: item.NextDueDate,
		Status:      item.Status,
	}, nil
}
