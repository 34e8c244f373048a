package entities

import "time"

// IncidentSignal is one raw observation that contributed to an incident.
// Append-only.
type IncidentSignal struct {
	ID          string          `gorm:"primaryKey;size:36" json:"id"`
	IncidentID  string          `gorm:"size:36;not null;index:idx_incident_signals_observed,priority:1" json:"incident_id"`
	SignalType  string          `gorm:"size:50;not null" json:"signal_type"`
	ExternalRef string          `gorm:"size:255;default:''" json:"external_ref"`
	ObservedAt  time.Time       `gorm:"not null;index:idx_incident_signals_observed,priority:2" json:"observed_at"`
	Payload     map[string]any  `gorm:"type:text;serializer:json" json:"payload,omitempty"`
	ScoreHint   *int            `json:"score_hint,omitempty"`
	Confidence  *int            `json:"confidence,omitempty"`
	Breakdown   *ScoreBreakdown `gorm:"type:text;serializer:json" json:"breakdown,omitempty"`
	CreatedAt   time.Time       `gorm:"autoCreateTime" json:"created_at"`
}

// TableName returns the table name for GORM.
func (IncidentSignal) TableName() string {
	return "incident_signals"
}
