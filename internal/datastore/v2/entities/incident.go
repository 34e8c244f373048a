package entities

import "time"

// IncidentStatus is the lifecycle status of an incident.
type IncidentStatus string

const (
	IncidentStatusDetected   IncidentStatus = "DETECTED"
	IncidentStatusEvaluated  IncidentStatus = "EVALUATED"
	IncidentStatusActive     IncidentStatus = "ACTIVE"
	IncidentStatusActioned   IncidentStatus = "ACTIONED"
	IncidentStatusMitigated  IncidentStatus = "MITIGATED"
	IncidentStatusResolved   IncidentStatus = "RESOLVED"
	IncidentStatusSuppressed IncidentStatus = "SUPPRESSED"
	IncidentStatusExpired    IncidentStatus = "EXPIRED"
)

// IsTerminal reports whether no further transitions are possible.
func (s IncidentStatus) IsTerminal() bool {
	return s == IncidentStatusResolved || s == IncidentStatusExpired
}

// SeverityBand is the coarse severity derived from a score.
type SeverityBand string

const (
	SeverityInfo     SeverityBand = "INFO"
	SeverityWarning  SeverityBand = "WARNING"
	SeverityCritical SeverityBand = "CRITICAL"
)

// OpenSlotValue marks a row as the single open row for its key. Terminal or
// ended rows carry NULL so the unique index admits any number of them.
const OpenSlotValue = "open"

// Incident is one real-world condition tracked for a property. Incidents are
// never deleted; RESOLVED and EXPIRED rows remain for history.
type Incident struct {
	ID             string          `gorm:"primaryKey;size:36" json:"id"`
	PropertyID     string          `gorm:"size:64;not null;uniqueIndex:idx_incidents_open,priority:1;index" json:"property_id"`
	UserID         *string         `gorm:"size:64" json:"user_id,omitempty"`
	SourceType     string          `gorm:"size:50;not null;default:''" json:"source_type"`
	TypeKey        string          `gorm:"size:100;not null;uniqueIndex:idx_incidents_open,priority:2" json:"type_key"`
	ActionKey      string          `gorm:"size:100;not null;default:''" json:"action_key"`
	Category       *string         `gorm:"size:100" json:"category,omitempty"`
	Title          string          `gorm:"size:255;not null;default:''" json:"title"`
	Summary        string          `gorm:"size:2000;default:''" json:"summary"`
	Details        map[string]any  `gorm:"type:text;serializer:json" json:"details,omitempty"`
	Status         IncidentStatus  `gorm:"size:20;not null;index" json:"status"`
	Severity       *SeverityBand   `gorm:"size:10" json:"severity,omitempty"`
	SeverityScore  *int            `json:"severity_score,omitempty"`
	Confidence     *int            `json:"confidence,omitempty"`
	ScoreBreakdown *ScoreBreakdown `gorm:"type:text;serializer:json" json:"score_breakdown,omitempty"`
	IsSuppressed   bool            `gorm:"not null;default:false" json:"is_suppressed"`
	OpenedAt       time.Time       `gorm:"not null" json:"opened_at"`
	ActivatedAt    *time.Time      `json:"activated_at,omitempty"`
	SuppressedAt   *time.Time      `json:"suppressed_at,omitempty"`
	DismissedAt    *time.Time      `json:"dismissed_at,omitempty"`
	ResolvedAt     *time.Time      `json:"resolved_at,omitempty"`
	ExpiredAt      *time.Time      `json:"expired_at,omitempty"`
	LastObservedAt time.Time       `gorm:"not null;index" json:"last_observed_at"`
	OpenSlot       *string         `gorm:"size:8;uniqueIndex:idx_incidents_open,priority:3" json:"-"`
	CreatedAt      time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName returns the table name for GORM.
func (Incident) TableName() string {
	return "incidents"
}
