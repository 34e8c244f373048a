package lifecycle

import (
	"fmt"

	"github.com/homeledger/incident-engine/internal/datastore/v2/entities"
	"github.com/homeledger/incident-engine/internal/errors"
)

// ErrIllegalTransition is wrapped by every rejected transition.
var ErrIllegalTransition = errors.NewStd("illegal transition")

// TransitionError describes a rejected incident transition.
type TransitionError struct {
	IncidentID string
	From       entities.IncidentStatus
	To         entities.IncidentStatus
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("illegal incident transition %s -> %s (incident %s)", e.From, e.To, e.IncidentID)
}

func (e *TransitionError) Unwrap() error { return ErrIllegalTransition }

// ActionTransitionError describes a rejected action status change.
type ActionTransitionError struct {
	ActionID string
	From     entities.ActionStatus
	To       entities.ActionStatus
}

func (e *ActionTransitionError) Error() string {
	return fmt.Sprintf("illegal action transition %s -> %s (action %s)", e.From, e.To, e.ActionID)
}

func (e *ActionTransitionError) Unwrap() error { return ErrIllegalTransition }
