package orchestration

import (
	"strings"
	"time"

	"github.com/homeledger/incident-engine/internal/datastore/v2/entities"
	"github.com/homeledger/incident-engine/internal/severity"
)

// Signal is one observation fed into Evaluate.
type Signal struct {
	SignalType  string                   `json:"signal_type"`
	ExternalRef string                   `json:"external_ref,omitempty"`
	ObservedAt  time.Time                `json:"observed_at"`
	Payload     map[string]any           `json:"payload,omitempty"`
	ScoreHint   *int                     `json:"score_hint,omitempty"`
	Confidence  *int                     `json:"confidence,omitempty"`
	Breakdown   *entities.ScoreBreakdown `json:"breakdown,omitempty"`

	// ActionKey names the orchestration action this signal asks for. It
	// keys suppression and snooze lookups and defaults to the type key.
	ActionKey string `json:"action_key,omitempty"`

	// Incident metadata applied when present.
	SourceType string         `json:"source_type,omitempty"`
	Title      string         `json:"title,omitempty"`
	Summary    string         `json:"summary,omitempty"`
	Category   *string        `json:"category,omitempty"`
	UserID     *string        `json:"user_id,omitempty"`
	Details    map[string]any `json:"details,omitempty"`
}

func (s *Signal) valid() bool {
	return s != nil && strings.TrimSpace(s.SignalType) != ""
}

func (s *Signal) actionKey(typeKey string) string {
	if k := strings.TrimSpace(s.ActionKey); k != "" {
		return k
	}
	return typeKey
}

// record converts the signal into its stored form.
func (s *Signal) record(id, incidentID string, observedAt time.Time) *entities.IncidentSignal {
	return &entities.IncidentSignal{
		ID:          id,
		IncidentID:  incidentID,
		SignalType:  strings.TrimSpace(s.SignalType),
		ExternalRef: s.ExternalRef,
		ObservedAt:  observedAt,
		Payload:     s.Payload,
		ScoreHint:   s.ScoreHint,
		Confidence:  confidence(s.Confidence),
		Breakdown:   s.Breakdown,
	}
}

// apply copies present metadata onto the incident.
func (s *Signal) apply(inc *entities.Incident) {
	if s.SourceType != "" {
		inc.SourceType = s.SourceType
	}
	if s.Title != "" {
		inc.Title = s.Title
	}
	if s.Summary != "" {
		inc.Summary = s.Summary
	}
	if s.Category != nil {
		inc.Category = s.Category
	}
	if s.UserID != nil && inc.UserID == nil {
		inc.UserID = s.UserID
	}
	if len(s.Details) > 0 {
		if inc.Details == nil {
			inc.Details = make(map[string]any, len(s.Details))
		}
		for k, v := range s.Details {
			inc.Details[k] = v
		}
	}
	if s.Confidence != nil {
		inc.Confidence = confidence(s.Confidence)
	}
}

// confidence copies c clamped to 0-100.
func confidence(c *int) *int {
	if c == nil {
		return nil
	}
	v := severity.ClampPercent(*c)
	return &v
}
