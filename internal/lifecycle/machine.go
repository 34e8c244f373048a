// Package lifecycle owns the legal transition graph for incidents and their
// actions. Every status change goes through Machine so the audit events it
// emits stay consistent with the incident row.
package lifecycle

import (
	"fmt"
	"time"

	"github.com/homeledger/incident-engine/internal/datastore/v2/entities"
	"github.com/homeledger/incident-engine/internal/severity"
)

// Cause is the domain event recorded alongside a STATUS_CHANGED event.
type Cause struct {
	Type    entities.EventType
	Message string
	Payload *entities.EventPayload
}

// Machine applies transitions to incidents and records their events.
type Machine struct {
	now func() time.Time
}

// NewMachine creates a Machine. A nil clock uses time.Now.
func NewMachine(now func() time.Time) *Machine {
	if now == nil {
		now = time.Now
	}
	return &Machine{now: now}
}

// Transition moves inc to status to, updating its timestamps and flags, and
// appends exactly one STATUS_CHANGED event followed by the cause event when
// one is given. Illegal edges leave inc and j untouched.
func (m *Machine) Transition(inc *entities.Incident, to entities.IncidentStatus, cause *Cause, j *Journal) error {
	from := inc.Status
	if !CanTransition(from, to) {
		return &TransitionError{IncidentID: inc.ID, From: from, To: to}
	}

	now := m.now()
	inc.Status = to
	switch to {
	case entities.IncidentStatusActive:
		if inc.ActivatedAt == nil {
			inc.ActivatedAt = &now
		}
		inc.IsSuppressed = false
	case entities.IncidentStatusSuppressed:
		inc.IsSuppressed = true
		inc.SuppressedAt = &now
	case entities.IncidentStatusResolved:
		inc.IsSuppressed = false
		inc.ResolvedAt = &now
		inc.OpenSlot = nil
	case entities.IncidentStatusExpired:
		inc.IsSuppressed = false
		inc.ExpiredAt = &now
		inc.OpenSlot = nil
	default:
		inc.IsSuppressed = false
	}

	j.Append(entities.IncidentEvent{
		IncidentID: inc.ID,
		Type:       entities.EventStatusChanged,
		Message:    fmt.Sprintf("%s -> %s", from, to),
		Payload:    &entities.EventPayload{FromStatus: from, ToStatus: to},
		CreatedAt:  now,
	})
	if cause != nil {
		j.Append(entities.IncidentEvent{
			IncidentID: inc.ID,
			Type:       cause.Type,
			Message:    cause.Message,
			Payload:    cause.Payload,
			CreatedAt:  now,
		})
	}
	return nil
}

// RecordSeverity stores a new score on inc and appends SEVERITY_COMPUTED when
// the score or band changed. It reports whether anything changed.
func (m *Machine) RecordSeverity(inc *entities.Incident, result severity.Result, breakdown *entities.ScoreBreakdown, j *Journal) bool {
	if inc.SeverityScore != nil && inc.Severity != nil &&
		*inc.SeverityScore == result.Total && *inc.Severity == result.Band {
		inc.ScoreBreakdown = breakdown
		return false
	}

	payload := &entities.EventPayload{
		Score:     intPtr(result.Total),
		Band:      result.Band,
		Breakdown: breakdown,
	}
	if inc.SeverityScore != nil {
		payload.PreviousScore = intPtr(*inc.SeverityScore)
	}
	if inc.Severity != nil {
		payload.PreviousBand = *inc.Severity
	}

	band := result.Band
	inc.SeverityScore = intPtr(result.Total)
	inc.Severity = &band
	inc.ScoreBreakdown = breakdown

	j.Append(entities.IncidentEvent{
		IncidentID: inc.ID,
		Type:       entities.EventSeverityComputed,
		Message:    fmt.Sprintf("score %d (%s)", result.Total, result.Band),
		Payload:    payload,
		CreatedAt:  m.now(),
	})
	return true
}

// Record appends a non-transition event such as CREATED or ACKNOWLEDGED.
func (m *Machine) Record(inc *entities.Incident, eventType entities.EventType, message string, payload *entities.EventPayload, j *Journal) {
	j.Append(entities.IncidentEvent{
		IncidentID: inc.ID,
		Type:       eventType,
		Message:    message,
		Payload:    payload,
		CreatedAt:  m.now(),
	})
}

// TransitionAction moves an action to status to.
func (m *Machine) TransitionAction(action *entities.IncidentAction, to entities.ActionStatus) error {
	if !CanTransitionAction(action.Status, to) {
		return &ActionTransitionError{ActionID: action.ID, From: action.Status, To: to}
	}
	action.Status = to
	action.UpdatedAt = m.now()
	return nil
}

func intPtr(v int) *int { return &v }
