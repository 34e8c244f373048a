package orchestration

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/homeledger/incident-engine/internal/datastore/v2/entities"
	"github.com/homeledger/incident-engine/internal/datastore/v2/repository"
	"github.com/homeledger/incident-engine/internal/errors"
	"github.com/homeledger/incident-engine/internal/lifecycle"
	"github.com/homeledger/incident-engine/internal/logger"
)

// ErrIncidentClosed is returned for writes against a RESOLVED or EXPIRED
// incident.
var ErrIncidentClosed = errors.NewStd("incident is closed")

// ErrSnoozeRejected is returned when a SNOOZED acknowledgement could not open
// a snooze window.
var ErrSnoozeRejected = errors.NewStd("snooze rejected")

// AckRequest is a user response to an incident.
type AckRequest struct {
	Kind        entities.AckKind
	Note        *string
	SnoozeUntil *time.Time
}

// Acknowledge records a user response. ACKNOWLEDGED only writes an event;
// DISMISSED and SNOOZED also suppress the incident, and SNOOZED opens a
// snooze window for the incident's action key. Invalid input returns nil, nil.
func (e *Engine) Acknowledge(ctx context.Context, incidentID string, req AckRequest) (*entities.Incident, error) {
	incidentID = strings.TrimSpace(incidentID)
	if incidentID == "" {
		return nil, nil
	}
	switch req.Kind {
	case entities.AckKindAcknowledged, entities.AckKindDismissed:
	case entities.AckKindSnoozed:
		if req.SnoozeUntil == nil || !req.SnoozeUntil.After(e.now()) {
			return nil, nil
		}
	default:
		return nil, nil
	}
	note := trimNote(req.Note)

	var restore func()
	if req.Kind == entities.AckKindSnoozed {
		var err error
		if restore, err = e.openSnooze(ctx, incidentID, *req.SnoozeUntil, note); err != nil {
			return nil, err
		}
	}

	inc, err := e.mutateIncident(ctx, "acknowledge", incidentID, func(tx repository.IncidentTx, inc *entities.Incident, j *lifecycle.Journal) error {
		now := e.now()
		ack := &entities.IncidentAck{
			ID:         uuid.NewString(),
			IncidentID: inc.ID,
			Kind:       req.Kind,
			Note:       note,
			CreatedAt:  now,
		}
		payload := &entities.EventPayload{Note: deref(note)}
		var eventType entities.EventType
		switch req.Kind {
		case entities.AckKindAcknowledged:
			eventType = entities.EventAcknowledged
		case entities.AckKindDismissed:
			eventType = entities.EventDismissed
			inc.DismissedAt = &now
		case entities.AckKindSnoozed:
			eventType = entities.EventSnoozed
			until := req.SnoozeUntil.UTC()
			ack.SnoozeUntil = &until
			payload.SnoozeUntil = &until
		}
		if err := tx.CreateAck(ctx, ack); err != nil {
			return err
		}

		cause := &lifecycle.Cause{Type: eventType, Message: strings.ToLower(string(req.Kind)), Payload: payload}
		if req.Kind == entities.AckKindAcknowledged || inc.Status == entities.IncidentStatusSuppressed {
			e.machine.Record(inc, cause.Type, cause.Message, cause.Payload, j)
			return nil
		}
		return e.machine.Transition(inc, entities.IncidentStatusSuppressed, cause, j)
	})
	if err != nil && restore != nil {
		restore()
	}
	return inc, err
}

// openSnooze opens the window for the incident's action key ahead of the
// acknowledgement transaction. The returned func puts back whatever window
// was active before, for when that transaction fails.
func (e *Engine) openSnooze(ctx context.Context, incidentID string, until time.Time, reason *string) (func(), error) {
	if e.snoozes == nil {
		return nil, errors.Newf("snoozing is not configured").
			Component(componentName).
			Category(errors.CategoryInternal).
			Context("incident_id", incidentID).
			Build()
	}
	inc, err := e.repo.GetIncident(ctx, incidentID)
	if err != nil {
		return nil, e.wrap(err, "acknowledge", "incident_id", incidentID)
	}
	if inc.Status.IsTerminal() {
		return nil, e.wrap(ErrIncidentClosed, "acknowledge", "incident_id", incidentID)
	}
	key := actionKeyOf(inc)
	prior, err := e.snoozes.GetActiveSnooze(ctx, inc.PropertyID, key)
	if err != nil {
		return nil, err
	}
	ok, err := e.snoozes.SnoozeAction(ctx, inc.PropertyID, key, until, reason)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errors.New(ErrSnoozeRejected).
			Component(componentName).
			Category(errors.CategoryValidation).
			Context("incident_id", incidentID).
			Build()
	}

	restore := func() {
		// The request context may be what failed the transaction.
		ctx := context.WithoutCancel(ctx)
		var err error
		if prior != nil {
			_, err = e.snoozes.SnoozeAction(ctx, inc.PropertyID, key, prior.SnoozeUntil, prior.SnoozeReason)
		} else {
			_, err = e.snoozes.UnsnoozeAction(ctx, inc.PropertyID, key)
		}
		if err != nil {
			e.log.Warn("failed to roll back snooze window",
				logger.String("incident_id", incidentID),
				logger.String("action_key", key),
				logger.Error(err))
		}
	}
	return restore, nil
}

// MarkActionCreated records that the external entity for a proposed action
// now exists. The incident moves ACTIVE -> ACTIONED.
func (e *Engine) MarkActionCreated(ctx context.Context, actionID string, entityType, entityID *string) (*entities.IncidentAction, error) {
	actionID = strings.TrimSpace(actionID)
	if actionID == "" {
		return nil, nil
	}
	return e.mutateAction(ctx, "mark_action_created", actionID, func(inc *entities.Incident, action *entities.IncidentAction, j *lifecycle.Journal) error {
		if err := e.machine.TransitionAction(action, entities.ActionStatusCreated); err != nil {
			return err
		}
		if entityType != nil {
			action.EntityType = entityType
		}
		if entityID != nil {
			action.EntityID = entityID
		}
		cause := &lifecycle.Cause{
			Type:    entities.EventActionCreated,
			Message: fmt.Sprintf("%s created", action.Type),
			Payload: &entities.EventPayload{ActionID: action.ID, ActionType: action.Type, ActionStatus: action.Status},
		}
		if inc.Status == entities.IncidentStatusActive {
			return e.machine.Transition(inc, entities.IncidentStatusActioned, cause, j)
		}
		e.machine.Record(inc, cause.Type, cause.Message, cause.Payload, j)
		return nil
	})
}

// UpdateActionStatus moves an action along its lifecycle. Completing the
// action mitigates an ACTIONED incident.
func (e *Engine) UpdateActionStatus(ctx context.Context, actionID string, status entities.ActionStatus) (*entities.IncidentAction, error) {
	actionID = strings.TrimSpace(actionID)
	switch status {
	case entities.ActionStatusInProgress, entities.ActionStatusCompleted,
		entities.ActionStatusCanceled, entities.ActionStatusFailed:
	default:
		return nil, nil
	}
	if actionID == "" {
		return nil, nil
	}
	return e.mutateAction(ctx, "update_action_status", actionID, func(inc *entities.Incident, action *entities.IncidentAction, j *lifecycle.Journal) error {
		if err := e.machine.TransitionAction(action, status); err != nil {
			return err
		}
		if status == entities.ActionStatusCompleted && inc.Status == entities.IncidentStatusActioned {
			return e.machine.Transition(inc, entities.IncidentStatusMitigated, nil, j)
		}
		return nil
	})
}

// ResolveIncident closes a MITIGATED incident.
func (e *Engine) ResolveIncident(ctx context.Context, incidentID string, note *string) (*entities.Incident, error) {
	return e.close(ctx, "resolve", incidentID, entities.IncidentStatusResolved, entities.EventResolved, trimNote(note))
}

// ExpireIncident ends an open incident that no longer applies.
func (e *Engine) ExpireIncident(ctx context.Context, incidentID string, reason *string) (*entities.Incident, error) {
	return e.close(ctx, "expire", incidentID, entities.IncidentStatusExpired, entities.EventExpired, trimNote(reason))
}

func (e *Engine) close(ctx context.Context, op, incidentID string, to entities.IncidentStatus, eventType entities.EventType, note *string) (*entities.Incident, error) {
	incidentID = strings.TrimSpace(incidentID)
	if incidentID == "" {
		return nil, nil
	}
	return e.mutateIncident(ctx, op, incidentID, func(tx repository.IncidentTx, inc *entities.Incident, j *lifecycle.Journal) error {
		if err := e.machine.Transition(inc, to, &lifecycle.Cause{
			Type:    eventType,
			Message: strings.ToLower(string(to)),
			Payload: &entities.EventPayload{Note: deref(note)},
		}, j); err != nil {
			return err
		}
		return e.cancelProposed(ctx, tx, inc.ID)
	})
}

// cancelProposed cancels actions nobody acted on once their incident closes.
func (e *Engine) cancelProposed(ctx context.Context, tx repository.IncidentTx, incidentID string) error {
	open, err := tx.ListOpenActions(ctx, incidentID)
	if err != nil {
		return err
	}
	for i := range open {
		if open[i].Status != entities.ActionStatusProposed {
			continue
		}
		if err := e.machine.TransitionAction(&open[i], entities.ActionStatusCanceled); err != nil {
			return err
		}
		if err := tx.SaveAction(ctx, &open[i]); err != nil {
			return err
		}
	}
	return nil
}

// ExpireStale expires open incidents not observed since before. It returns
// how many were expired. Incidents closed concurrently are skipped.
func (e *Engine) ExpireStale(ctx context.Context, before time.Time, limit int) (int, error) {
	ids, err := e.repo.ListStaleIncidentIDs(ctx, before, limit)
	if err != nil {
		return 0, e.wrap(err, "expire_stale")
	}
	reason := fmt.Sprintf("not observed since %s", before.UTC().Format(time.RFC3339))
	expired := 0
	for _, id := range ids {
		if ctx.Err() != nil {
			return expired, ctx.Err()
		}
		if _, err := e.ExpireIncident(ctx, id, &reason); err != nil {
			if errors.Is(err, lifecycle.ErrIllegalTransition) || errors.Is(err, ErrIncidentClosed) {
				continue
			}
			return expired, err
		}
		expired++
	}
	if expired > 0 {
		e.log.Info("expired stale incidents",
			logger.Int("expired", expired),
			logger.Time("before", before))
	}
	return expired, nil
}

type incidentMutation func(tx repository.IncidentTx, inc *entities.Incident, j *lifecycle.Journal) error

// mutateIncident runs fn against the locked incident in one transaction,
// retrying on write conflicts, then saves the incident and its new events.
func (e *Engine) mutateIncident(ctx context.Context, op, incidentID string, fn incidentMutation) (*entities.Incident, error) {
	var (
		result  *entities.Incident
		journal lifecycle.Journal
	)
	err := repository.RetryOnConflict(ctx, e.retryPolicy(op), func() error {
		journal.Reset()
		return e.repo.RunInTx(ctx, func(tx repository.IncidentTx) error {
			inc, err := tx.GetIncident(ctx, incidentID)
			if err != nil {
				return err
			}
			if inc.Status.IsTerminal() {
				return ErrIncidentClosed
			}
			if err := fn(tx, inc, &journal); err != nil {
				return err
			}
			if err := tx.SaveIncident(ctx, inc); err != nil {
				return err
			}
			if err := tx.AppendEvents(ctx, inc.ID, journal.Events()); err != nil {
				return err
			}
			result = inc
			return nil
		})
	})
	if err != nil {
		return nil, e.wrap(err, op, "incident_id", incidentID)
	}
	e.publish(result, journal.Events())
	return result, nil
}

type actionMutation func(inc *entities.Incident, action *entities.IncidentAction, j *lifecycle.Journal) error

func (e *Engine) mutateAction(ctx context.Context, op, actionID string, fn actionMutation) (*entities.IncidentAction, error) {
	var (
		result   *entities.IncidentAction
		incident *entities.Incident
		journal  lifecycle.Journal
	)
	err := repository.RetryOnConflict(ctx, e.retryPolicy(op), func() error {
		journal.Reset()
		return e.repo.RunInTx(ctx, func(tx repository.IncidentTx) error {
			action, err := tx.GetAction(ctx, actionID)
			if err != nil {
				return err
			}
			inc, err := tx.GetIncident(ctx, action.IncidentID)
			if err != nil {
				return err
			}
			if inc.Status.IsTerminal() {
				return ErrIncidentClosed
			}
			if err := fn(inc, action, &journal); err != nil {
				return err
			}
			if err := tx.SaveAction(ctx, action); err != nil {
				return err
			}
			if journal.Len() > 0 {
				if err := tx.SaveIncident(ctx, inc); err != nil {
					return err
				}
				if err := tx.AppendEvents(ctx, inc.ID, journal.Events()); err != nil {
					return err
				}
			}
			result, incident = action, inc
			return nil
		})
	})
	if err != nil {
		return nil, e.wrap(err, op, "action_id", actionID)
	}
	e.publish(incident, journal.Events())
	return result, nil
}

func actionKeyOf(inc *entities.Incident) string {
	if inc.ActionKey != "" {
		return inc.ActionKey
	}
	return inc.TypeKey
}

func trimNote(s *string) *string {
	if s == nil {
		return nil
	}
	t := strings.TrimSpace(*s)
	if t == "" {
		return nil
	}
	return &t
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
