// Package orchestration turns incoming signals into incidents, drives them
// through their lifecycle and proposes the next action for a property.
package orchestration

// Condition operators define how incident properties are compared.
const (
	OperatorIs             = "is"
	OperatorIsNot          = "is_not"
	OperatorContains       = "contains"
	OperatorNotContains    = "not_contains"
	OperatorGreaterThan    = "greater_than"
	OperatorLessThan       = "less_than"
	OperatorGreaterOrEqual = "greater_or_equal"
	OperatorLessOrEqual    = "less_or_equal"
)

// Condition properties identify the incident fields proposal rules can test.
const (
	PropertyBand       = "severity_band"
	PropertyScore      = "severity_score"
	PropertyTypeKey    = "type_key"
	PropertySourceType = "source_type"
	PropertyCategory   = "category"
	PropertyConfidence = "confidence"
	PropertySignalType = "signal_type"
)

// Rule names written to decision traces.
const (
	RuleSuppression = "suppression.checklist"
	RuleSnooze      = "snooze.window"
	RuleThreshold   = "severity.threshold"
	RuleOpenAction  = "action.open_for_key"
)

// Evaluation outcomes reported to metrics.
const (
	OutcomeInvalid    = "invalid"
	OutcomeError      = "error"
	OutcomeSuppressed = "suppressed"
	OutcomeSurfaced   = "surfaced"
	OutcomeQuiet      = "below_threshold"
)

// DefaultSurfacingThreshold is the lowest score that makes an incident ACTIVE.
const DefaultSurfacingThreshold = 35

const componentName = "orchestration"
