package lifecycle

import "github.com/homeledger/incident-engine/internal/datastore/v2/entities"

// incidentEdges is the complete set of legal incident transitions apart from
// the side exits, which every non-terminal state has.
var incidentEdges = map[entities.IncidentStatus][]entities.IncidentStatus{
	entities.IncidentStatusDetected:   {entities.IncidentStatusEvaluated},
	entities.IncidentStatusEvaluated:  {entities.IncidentStatusActive},
	entities.IncidentStatusActive:     {entities.IncidentStatusActioned},
	entities.IncidentStatusActioned:   {entities.IncidentStatusMitigated},
	entities.IncidentStatusMitigated:  {entities.IncidentStatusResolved},
	entities.IncidentStatusSuppressed: {entities.IncidentStatusActive},
}

// sideExits are reachable from any non-terminal state.
var sideExits = []entities.IncidentStatus{
	entities.IncidentStatusSuppressed,
	entities.IncidentStatusExpired,
}

// CanTransition reports whether from -> to is a legal incident edge.
func CanTransition(from, to entities.IncidentStatus) bool {
	if from.IsTerminal() || from == to {
		return false
	}
	for _, s := range incidentEdges[from] {
		if s == to {
			return true
		}
	}
	for _, s := range sideExits {
		if s == to {
			return true
		}
	}
	return false
}

var actionEdges = map[entities.ActionStatus][]entities.ActionStatus{
	entities.ActionStatusProposed: {
		entities.ActionStatusCreated,
		entities.ActionStatusCanceled,
	},
	entities.ActionStatusCreated: {
		entities.ActionStatusInProgress,
		entities.ActionStatusCompleted,
		entities.ActionStatusCanceled,
		entities.ActionStatusFailed,
	},
	entities.ActionStatusInProgress: {
		entities.ActionStatusCompleted,
		entities.ActionStatusCanceled,
		entities.ActionStatusFailed,
	},
}

// CanTransitionAction reports whether from -> to is a legal action edge.
func CanTransitionAction(from, to entities.ActionStatus) bool {
	for _, s := range actionEdges[from] {
		if s == to {
			return true
		}
	}
	return false
}
