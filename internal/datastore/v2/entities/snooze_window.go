package entities

import "time"

// SnoozeWindow is a user-requested, time-boxed suppression of an action.
// A window is open while EndedAt is nil; it is active while open and
// SnoozeUntil is still in the future.
type SnoozeWindow struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	PropertyID   string     `gorm:"size:64;not null;uniqueIndex:idx_snooze_windows_open,priority:1;index:idx_snooze_windows_key,priority:1" json:"property_id"`
	ActionKey    string     `gorm:"size:100;not null;uniqueIndex:idx_snooze_windows_open,priority:2;index:idx_snooze_windows_key,priority:2" json:"action_key"`
	SnoozedAt    time.Time  `gorm:"not null" json:"snoozed_at"`
	SnoozeUntil  time.Time  `gorm:"not null" json:"snooze_until"`
	SnoozeReason *string    `gorm:"size:500" json:"snooze_reason,omitempty"`
	EndedAt      *time.Time `gorm:"index" json:"ended_at,omitempty"`
	OpenSlot     *string    `gorm:"size:8;uniqueIndex:idx_snooze_windows_open,priority:3" json:"-"`
	CreatedAt    time.Time  `gorm:"autoCreateTime" json:"created_at"`
}

// TableName returns the table name for GORM.
func (SnoozeWindow) TableName() string {
	return "snooze_windows"
}

// IsActiveAt reports whether the window suppresses its action at now.
func (w *SnoozeWindow) IsActiveAt(now time.Time) bool {
	return w.EndedAt == nil && w.SnoozeUntil.After(now)
}
