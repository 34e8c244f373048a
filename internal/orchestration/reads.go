package orchestration

import (
	"context"
	"strings"

	"github.com/homeledger/incident-engine/internal/datastore/v2/entities"
	"github.com/homeledger/incident-engine/internal/datastore/v2/repository"
)

// IncidentView is an incident with its actions and acknowledgements.
type IncidentView struct {
	*entities.Incident
	Actions []entities.IncidentAction `json:"actions"`
	Acks    []entities.IncidentAck    `json:"acks"`
}

// GetIncident returns the incident with its actions and acks. A blank ID
// returns nil, nil.
func (e *Engine) GetIncident(ctx context.Context, incidentID string) (*IncidentView, error) {
	incidentID = strings.TrimSpace(incidentID)
	if incidentID == "" {
		return nil, nil
	}
	inc, err := e.repo.GetIncident(ctx, incidentID)
	if err != nil {
		return nil, e.wrap(err, "get_incident", "incident_id", incidentID)
	}
	actions, err := e.repo.ListActions(ctx, incidentID)
	if err != nil {
		return nil, e.wrap(err, "get_incident", "incident_id", incidentID)
	}
	acks, err := e.repo.ListAcks(ctx, incidentID)
	if err != nil {
		return nil, e.wrap(err, "get_incident", "incident_id", incidentID)
	}
	return &IncidentView{Incident: inc, Actions: actions, Acks: acks}, nil
}

// ListIncidents returns a page of incidents and the total matching count.
func (e *Engine) ListIncidents(ctx context.Context, filter repository.IncidentFilter) ([]entities.Incident, int64, error) {
	incidents, total, err := e.repo.ListIncidents(ctx, filter)
	if err != nil {
		return nil, 0, e.wrap(err, "list_incidents", "property_id", filter.PropertyID)
	}
	return incidents, total, nil
}

// ListEvents returns the incident's audit log in sequence order.
func (e *Engine) ListEvents(ctx context.Context, incidentID string, types ...entities.EventType) ([]entities.IncidentEvent, error) {
	incidentID = strings.TrimSpace(incidentID)
	if incidentID == "" {
		return nil, nil
	}
	if _, err := e.repo.GetIncident(ctx, incidentID); err != nil {
		return nil, e.wrap(err, "list_events", "incident_id", incidentID)
	}
	events, err := e.repo.ListEvents(ctx, incidentID, repository.EventFilter{Types: types})
	if err != nil {
		return nil, e.wrap(err, "list_events", "incident_id", incidentID)
	}
	return events, nil
}

// ListSignals returns the observations recorded for the incident.
func (e *Engine) ListSignals(ctx context.Context, incidentID string) ([]entities.IncidentSignal, error) {
	signals, err := e.repo.ListSignals(ctx, strings.TrimSpace(incidentID))
	if err != nil {
		return nil, e.wrap(err, "list_signals", "incident_id", incidentID)
	}
	return signals, nil
}

// GetAction returns one action.
func (e *Engine) GetAction(ctx context.Context, actionID string) (*entities.IncidentAction, error) {
	actionID = strings.TrimSpace(actionID)
	if actionID == "" {
		return nil, nil
	}
	action, err := e.repo.GetAction(ctx, actionID)
	if err != nil {
		return nil, e.wrap(err, "get_action", "action_id", actionID)
	}
	return action, nil
}

// ProposalTrace pairs a proposed action with the trace that explains it.
type ProposalTrace struct {
	Sequence   int                     `json:"sequence"`
	ActionID   string                  `json:"action_id"`
	ActionType entities.ActionType     `json:"action_type"`
	Trace      *entities.DecisionTrace `json:"trace"`
}

// Traces returns the decision traces written for the incident, oldest first.
func (e *Engine) Traces(ctx context.Context, incidentID string) ([]ProposalTrace, error) {
	events, err := e.ListEvents(ctx, incidentID, entities.EventActionProposed)
	if err != nil {
		return nil, err
	}
	traces := make([]ProposalTrace, 0, len(events))
	for i := range events {
		p := events[i].Payload
		if p == nil || p.Trace == nil {
			continue
		}
		traces = append(traces, ProposalTrace{
			Sequence:   events[i].Sequence,
			ActionID:   p.ActionID,
			ActionType: p.ActionType,
			Trace:      p.Trace,
		})
	}
	return traces, nil
}
