package orchestration

import (
	"slices"

	"github.com/homeledger/incident-engine/internal/datastore/v2/entities"
)

// RuleSchema describes what proposal rules can test and the rules in effect.
type RuleSchema struct {
	Properties []PropertySchema `json:"properties"`
	Operators  []OperatorSchema `json:"operators"`
	Rules      []RuleView       `json:"rules"`
	Threshold  int              `json:"surfacing_threshold"`
}

// PropertySchema describes a property available for conditions.
type PropertySchema struct {
	Name      string   `json:"name"`
	Label     string   `json:"label"`
	Type      string   `json:"type"` // "string" or "number"
	Operators []string `json:"operators"`
}

// OperatorSchema describes a condition operator.
type OperatorSchema struct {
	Name  string `json:"name"`
	Label string `json:"label"`
	Type  string `json:"type"`
}

// RuleView is the JSON form of a ProposalRule.
type RuleView struct {
	Name       string              `json:"name"`
	ActionType entities.ActionType `json:"action_type"`
	Title      string              `json:"title"`
	CTALabel   string              `json:"cta_label"`
	Conditions []Condition         `json:"conditions"`
}

var stringOperators = []string{OperatorIs, OperatorIsNot, OperatorContains, OperatorNotContains}

var numericOperators = []string{OperatorGreaterThan, OperatorLessThan, OperatorGreaterOrEqual, OperatorLessOrEqual}

var conditionProperties = []PropertySchema{
	{Name: PropertyBand, Label: "Severity band", Type: "string", Operators: stringOperators},
	{Name: PropertyScore, Label: "Severity score", Type: "number", Operators: numericOperators},
	{Name: PropertyTypeKey, Label: "Incident type", Type: "string", Operators: stringOperators},
	{Name: PropertySourceType, Label: "Source type", Type: "string", Operators: stringOperators},
	{Name: PropertyCategory, Label: "Category", Type: "string", Operators: stringOperators},
	{Name: PropertyConfidence, Label: "Confidence", Type: "number", Operators: numericOperators},
	{Name: PropertySignalType, Label: "Signal type", Type: "string", Operators: stringOperators},
}

// GetRuleSchema returns the condition catalog and the engine's active rules.
func (e *Engine) GetRuleSchema() RuleSchema {
	rules := make([]RuleView, len(e.rules))
	for i, r := range e.rules {
		conds := r.Conditions
		if conds == nil {
			conds = []Condition{}
		}
		rules[i] = RuleView{Name: r.Name, ActionType: r.ActionType, Title: r.Title, CTALabel: r.CTALabel, Conditions: conds}
	}
	return RuleSchema{
		Properties: slices.Clone(conditionProperties),
		Operators: []OperatorSchema{
			{Name: OperatorIs, Label: "is", Type: "string"},
			{Name: OperatorIsNot, Label: "is not", Type: "string"},
			{Name: OperatorContains, Label: "contains", Type: "string"},
			{Name: OperatorNotContains, Label: "does not contain", Type: "string"},
			{Name: OperatorGreaterThan, Label: "greater than", Type: "number"},
			{Name: OperatorLessThan, Label: "less than", Type: "number"},
			{Name: OperatorGreaterOrEqual, Label: "greater or equal", Type: "number"},
			{Name: OperatorLessOrEqual, Label: "less or equal", Type: "number"},
		},
		Rules:     rules,
		Threshold: e.threshold,
	}
}

// propertySchema returns the catalog entry for name.
func propertySchema(name string) (PropertySchema, bool) {
	for _, p := range conditionProperties {
		if p.Name == name {
			return p, true
		}
	}
	return PropertySchema{}, false
}
