package entities

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// The engine normally assigns ids up front so they can be referenced from
// event payloads before the rows are written; these hooks cover direct inserts.

func (i *Incident) BeforeCreate(_ *gorm.DB) error {
	if i.ID == "" {
		i.ID = uuid.NewString()
	}
	return nil
}

func (s *IncidentSignal) BeforeCreate(_ *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	return nil
}

func (a *IncidentAction) BeforeCreate(_ *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	return nil
}

func (a *IncidentAck) BeforeCreate(_ *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	return nil
}

func (e *IncidentEvent) BeforeCreate(_ *gorm.DB) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	return nil
}

// All returns every model owned or read by the engine, in migration order.
func All() []any {
	return []any{
		&Property{},
		&ChecklistItem{},
		&Incident{},
		&IncidentSignal{},
		&IncidentAction{},
		&IncidentAck{},
		&IncidentEvent{},
		&SnoozeWindow{},
	}
}
