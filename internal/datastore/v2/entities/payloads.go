package entities

import "time"

// Schema versions of the JSON documents stored alongside incidents. Bump a
// version whenever a field changes meaning so historical rows stay readable.
const (
	ScoreBreakdownSchemaVersion = 1
	DecisionTraceSchemaVersion  = 1
	ActionPayloadSchemaVersion  = 1
	EventPayloadSchemaVersion   = 1
)

// ScoreBreakdown holds the five weighted contributions to a severity score.
// A nil field was not reported and counts as zero.
type ScoreBreakdown struct {
	SchemaVersion        int      `json:"schema_version"`
	RiskImpact           *float64 `json:"risk_impact,omitempty"`
	Likelihood           *float64 `json:"likelihood,omitempty"`
	TimeSensitivity      *float64 `json:"time_sensitivity,omitempty"`
	CoveragePenalty      *float64 `json:"coverage_penalty,omitempty"`
	MitigationConfidence *float64 `json:"mitigation_confidence,omitempty"`
}

// TraceOutcome is the result of one rule evaluation.
type TraceOutcome string

const (
	TraceApplied TraceOutcome = "APPLIED"
	TraceSkipped TraceOutcome = "SKIPPED"
)

// TraceDetails carries the inputs a rule looked at.
type TraceDetails struct {
	Score       *int         `json:"score,omitempty"`
	Band        SeverityBand `json:"band,omitempty"`
	Threshold   *int         `json:"threshold,omitempty"`
	SourceType  string       `json:"source_type,omitempty"`
	SourceID    string       `json:"source_id,omitempty"`
	SnoozeUntil *time.Time   `json:"snooze_until,omitempty"`
	ActionType  ActionType   `json:"action_type,omitempty"`
	ActionKey   string       `json:"action_key,omitempty"`
	ActionID    string       `json:"action_id,omitempty"`
	Reason      string       `json:"reason,omitempty"`
}

// TraceStep is a single rule evaluation.
type TraceStep struct {
	Rule    string       `json:"rule"`
	Outcome TraceOutcome `json:"outcome"`
	Details TraceDetails `json:"details"`
}

// DecisionTrace is a point-in-time explanation of why an action was proposed.
type DecisionTrace struct {
	SchemaVersion int         `json:"schema_version"`
	RecordedAt    time.Time   `json:"recorded_at"`
	Steps         []TraceStep `json:"steps"`
}

// ActionPayload describes what a proposed action should do.
type ActionPayload struct {
	SchemaVersion int          `json:"schema_version"`
	RuleName      string       `json:"rule_name"`
	Title         string       `json:"title"`
	Severity      SeverityBand `json:"severity,omitempty"`
	Score         *int         `json:"score,omitempty"`
}

// SuppressionRef identifies what suppressed an incident.
type SuppressionRef struct {
	Type  string `json:"type"`
	ID    string `json:"id,omitempty"`
	Title string `json:"title,omitempty"`
}

// EventPayload is the structured body of an IncidentEvent. Only the fields
// relevant to the event type are set.
type EventPayload struct {
	SchemaVersion int             `json:"schema_version"`
	FromStatus    IncidentStatus  `json:"from_status,omitempty"`
	ToStatus      IncidentStatus  `json:"to_status,omitempty"`
	Score         *int            `json:"score,omitempty"`
	Band          SeverityBand    `json:"band,omitempty"`
	PreviousScore *int            `json:"previous_score,omitempty"`
	PreviousBand  SeverityBand    `json:"previous_band,omitempty"`
	Breakdown     *ScoreBreakdown `json:"breakdown,omitempty"`
	ActionID      string          `json:"action_id,omitempty"`
	ActionType    ActionType      `json:"action_type,omitempty"`
	ActionStatus  ActionStatus    `json:"action_status,omitempty"`
	Suppression   *SuppressionRef `json:"suppression,omitempty"`
	SnoozeUntil   *time.Time      `json:"snooze_until,omitempty"`
	Note          string          `json:"note,omitempty"`
	Trace         *DecisionTrace  `json:"trace,omitempty"`
}
