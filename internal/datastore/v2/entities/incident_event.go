package entities

import "time"

// EventType classifies an audit log row.
type EventType string

const (
	EventCreated          EventType = "CREATED"
	EventStatusChanged    EventType = "STATUS_CHANGED"
	EventSeverityComputed EventType = "SEVERITY_COMPUTED"
	EventActionProposed   EventType = "ACTION_PROPOSED"
	EventActionCreated    EventType = "ACTION_CREATED"
	EventSuppressed       EventType = "SUPPRESSED"
	EventAcknowledged     EventType = "ACKNOWLEDGED"
	EventDismissed        EventType = "DISMISSED"
	EventSnoozed          EventType = "SNOOZED"
	EventResolved         EventType = "RESOLVED"
	EventExpired          EventType = "EXPIRED"
)

// IncidentEvent is an immutable audit log row. Sequence preserves the order in
// which events were generated within and across evaluation cycles.
type IncidentEvent struct {
	ID         string        `gorm:"primaryKey;size:36" json:"id"`
	IncidentID string        `gorm:"size:36;not null;uniqueIndex:idx_incident_events_seq,priority:1" json:"incident_id"`
	Sequence   int           `gorm:"not null;uniqueIndex:idx_incident_events_seq,priority:2" json:"sequence"`
	Type       EventType     `gorm:"size:30;not null;index" json:"type"`
	Message    string        `gorm:"size:1000;default:''" json:"message,omitempty"`
	Payload    *EventPayload `gorm:"type:text;serializer:json" json:"payload,omitempty"`
	CreatedAt  time.Time     `gorm:"not null" json:"created_at"`
}

// TableName returns the table name for GORM.
func (IncidentEvent) TableName() string {
	return "incident_events"
}
