// Package trace records the ordered rule evaluations behind a proposed action.
package trace

import (
	"time"

	"github.com/homeledger/incident-engine/internal/datastore/v2/entities"
)

// Recorder accumulates trace steps for one evaluation pass. It is not safe
// for concurrent use; each pass owns its own recorder.
type Recorder struct {
	steps []entities.TraceStep
}

// NewRecorder returns an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Applied records a rule that fired.
func (r *Recorder) Applied(rule string, details entities.TraceDetails) {
	r.add(rule, entities.TraceApplied, details)
}

// Skipped records a rule that was evaluated but did not fire.
func (r *Recorder) Skipped(rule string, details entities.TraceDetails) {
	r.add(rule, entities.TraceSkipped, details)
}

func (r *Recorder) add(rule string, outcome entities.TraceOutcome, details entities.TraceDetails) {
	r.steps = append(r.steps, entities.TraceStep{Rule: rule, Outcome: outcome, Details: details})
}

// Len returns the number of recorded steps.
func (r *Recorder) Len() int {
	return len(r.steps)
}

// Snapshot returns a deep copy of the steps recorded so far. Later calls to
// Applied or Skipped do not affect it.
func (r *Recorder) Snapshot(at time.Time) *entities.DecisionTrace {
	steps := make([]entities.TraceStep, len(r.steps))
	for i, s := range r.steps {
		steps[i] = entities.TraceStep{Rule: s.Rule, Outcome: s.Outcome, Details: copyDetails(s.Details)}
	}
	return &entities.DecisionTrace{
		SchemaVersion: entities.DecisionTraceSchemaVersion,
		RecordedAt:    at,
		Steps:         steps,
	}
}

func copyDetails(d entities.TraceDetails) entities.TraceDetails {
	out := d
	if d.Score != nil {
		v := *d.Score
		out.Score = &v
	}
	if d.Threshold != nil {
		v := *d.Threshold
		out.Threshold = &v
	}
	if d.SnoozeUntil != nil {
		v := *d.SnoozeUntil
		out.SnoozeUntil = &v
	}
	return out
}
