package entities

import "time"

// AckKind is the user's response to an incident.
type AckKind string

const (
	AckKindAcknowledged AckKind = "ACKNOWLEDGED"
	AckKindDismissed    AckKind = "DISMISSED"
	AckKindSnoozed      AckKind = "SNOOZED"
)

// IncidentAck records a user response. Append-only.
type IncidentAck struct {
	ID          string     `gorm:"primaryKey;size:36" json:"id"`
	IncidentID  string     `gorm:"size:36;not null;index" json:"incident_id"`
	Kind        AckKind    `gorm:"size:20;not null" json:"kind"`
	Note        *string    `gorm:"size:2000" json:"note,omitempty"`
	SnoozeUntil *time.Time `json:"snooze_until,omitempty"`
	CreatedAt   time.Time  `gorm:"autoCreateTime" json:"created_at"`
}

// TableName returns the table name for GORM.
func (IncidentAck) TableName() string {
	return "incident_acks"
}
