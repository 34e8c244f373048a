package entities

import "time"

// ChecklistItem is owned by the maintenance checklist feature. The engine
// only reads it to decide suppression.
type ChecklistItem struct {
	ID                    string     `gorm:"primaryKey;size:36" json:"id"`
	PropertyID            string     `gorm:"size:64;not null;index:idx_checklist_items_action,priority:1" json:"property_id"`
	OrchestrationActionID string     `gorm:"size:100;not null;index:idx_checklist_items_action,priority:2" json:"orchestration_action_id"`
	Title                 string     `gorm:"size:255;not null" json:"title"`
	Frequency             *string    `gorm:"size:50" json:"frequency,omitempty"`
	NextDueDate           *time.Time `json:"next_due_date,omitempty"`
	Status                string     `gorm:"size:20;not null;default:'PENDING'" json:"status"`
	CreatedAt             time.Time  `gorm:"autoCreateTime" json:"created_at"`
}

// TableName returns the table name for GORM.
func (ChecklistItem) TableName() string {
	return "checklist_items"
}

// Property is the owning home. Only its existence matters here.
type Property struct {
	ID        string    `gorm:"primaryKey;size:64" json:"id"`
	Name      string    `gorm:"size:255;default:''" json:"name"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// TableName returns the table name for GORM.
func (Property) TableName() string {
	return "properties"
}
