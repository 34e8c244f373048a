package suppression

import (
	"encoding/json"
	"time"

	"github.com/homeledger/incident-engine/internal/datastore/v2/entities"
)

// SourceType discriminates suppression source variants.
type SourceType string

const (
	SourceTypeChecklist SourceType = "checklist"
)

// Source is something that already addresses an action. The set of variants
// is closed to this package; callers switch on Type or on the concrete type.
type Source interface {
	Type() SourceType
	// Ref is the compact form stored in event payloads.
	Ref() entities.SuppressionRef
	sealed()
}

// ChecklistSource is a checklist item linked to the same orchestration action.
type ChecklistSource struct {
	ID          string
	Title       string
	Frequency   *string
	NextDueDate *time.Time
	Status      string
}

func (ChecklistSource) Type() SourceType { return SourceTypeChecklist }
func (ChecklistSource) sealed()          {}

func (s ChecklistSource) Ref() entities.SuppressionRef {
	return entities.SuppressionRef{Type: string(SourceTypeChecklist), ID: s.ID, Title: s.Title}
}

// MarshalJSON encodes the source with its type discriminator.
func (s ChecklistSource) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type        SourceType `json:"type"`
		ID          string     `json:"id"`
		Title       string     `json:"title"`
		Frequency   *string    `json:"frequency,omitempty"`
		NextDueDate *time.Time `json:"next_due_date,omitempty"`
		Status      string     `json:"status"`
	}{s.Type(), s.ID, s.Title, s.Frequency, s.NextDueDate, s.Status})
}
