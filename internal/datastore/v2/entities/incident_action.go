package entities

import "time"

// ActionType is the kind of next step proposed for an incident.
type ActionType string

const (
	ActionTypeTask          ActionType = "TASK"
	ActionTypeChecklistItem ActionType = "CHECKLIST_ITEM"
	ActionTypeNotification  ActionType = "NOTIFICATION"
	ActionTypeDocument      ActionType = "DOCUMENT"
	ActionTypeNote          ActionType = "NOTE"
	// ActionTypeBooking exists only on legacy rows and is never created.
	ActionTypeBooking ActionType = "BOOKING"
)

// IsCreatable reports whether new actions of this type may be proposed.
func (t ActionType) IsCreatable() bool {
	switch t {
	case ActionTypeTask, ActionTypeChecklistItem, ActionTypeNotification, ActionTypeDocument, ActionTypeNote:
		return true
	default:
		return false
	}
}

// ActionStatus is the lifecycle status of an incident action.
type ActionStatus string

const (
	ActionStatusProposed   ActionStatus = "PROPOSED"
	ActionStatusCreated    ActionStatus = "CREATED"
	ActionStatusInProgress ActionStatus = "IN_PROGRESS"
	ActionStatusCompleted  ActionStatus = "COMPLETED"
	ActionStatusCanceled   ActionStatus = "CANCELED"
	ActionStatusFailed     ActionStatus = "FAILED"
)

// IsOpen reports whether the action is still pending or in flight.
func (s ActionStatus) IsOpen() bool {
	switch s {
	case ActionStatusProposed, ActionStatusCreated, ActionStatusInProgress:
		return true
	default:
		return false
	}
}

// ActionCTA is call-to-action metadata rendered by the UI.
type ActionCTA struct {
	Label string `json:"label"`
	Href  string `json:"href,omitempty"`
}

// IncidentAction is a concrete next step proposed from an incident.
type IncidentAction struct {
	ID         string         `gorm:"primaryKey;size:36" json:"id"`
	IncidentID string         `gorm:"size:36;not null;index" json:"incident_id"`
	ActionKey  string         `gorm:"size:100;not null;index" json:"action_key"`
	Type       ActionType     `gorm:"size:20;not null" json:"type"`
	Status     ActionStatus   `gorm:"size:20;not null;index" json:"status"`
	EntityType *string        `gorm:"size:50" json:"entity_type,omitempty"`
	EntityID   *string        `gorm:"size:64" json:"entity_id,omitempty"`
	CTA        *ActionCTA     `gorm:"column:cta;type:text;serializer:json" json:"cta,omitempty"`
	Payload    *ActionPayload `gorm:"type:text;serializer:json" json:"payload,omitempty"`
	CreatedAt  time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName returns the table name for GORM.
func (IncidentAction) TableName() string {
	return "incident_actions"
}
