package orchestration

import (
	"slices"
	"strings"

	"github.com/homeledger/incident-engine/internal/conf"
	"github.com/homeledger/incident-engine/internal/datastore/v2/entities"
	"github.com/homeledger/incident-engine/internal/errors"
)

// ProposalRule maps matching incidents to an action type. Rules are tried in
// order and the first match wins.
type ProposalRule struct {
	Name       string
	ActionType entities.ActionType
	Title      string
	CTALabel   string
	Conditions []Condition
}

// Matches reports whether every condition of the rule holds.
func (r *ProposalRule) Matches(properties map[string]any) bool {
	return EvaluateConditions(r.Conditions, properties)
}

// DefaultProposalRules returns the built-in rules: CRITICAL incidents become
// tasks, WARNING incidents checklist items and everything else a note.
func DefaultProposalRules() []ProposalRule {
	return []ProposalRule{
		{
			Name:       "critical-task",
			ActionType: entities.ActionTypeTask,
			Title:      "Schedule a fix",
			CTALabel:   "Create task",
			Conditions: []Condition{
				{Property: PropertyBand, Operator: OperatorIs, Value: string(entities.SeverityCritical)},
			},
		},
		{
			Name:       "warning-checklist",
			ActionType: entities.ActionTypeChecklistItem,
			Title:      "Add to maintenance checklist",
			CTALabel:   "Add checklist item",
			Conditions: []Condition{
				{Property: PropertyBand, Operator: OperatorIs, Value: string(entities.SeverityWarning)},
			},
		},
		{
			Name:       "info-note",
			ActionType: entities.ActionTypeNote,
			Title:      "Keep a note",
			CTALabel:   "Add note",
		},
	}
}

// RulesFromSettings converts configured rules. An empty list selects the
// defaults.
func RulesFromSettings(settings []conf.ProposalRuleSettings) ([]ProposalRule, error) {
	if len(settings) == 0 {
		return DefaultProposalRules(), nil
	}

	rules := make([]ProposalRule, 0, len(settings))
	for i, s := range settings {
		actionType := entities.ActionType(strings.ToUpper(strings.TrimSpace(s.ActionType)))
		if !actionType.IsCreatable() {
			return nil, errors.Newf("proposal rule %q: action type %q cannot be proposed", s.Name, s.ActionType).
				Component(componentName).
				Category(errors.CategoryValidation).
				Context("rule_index", i).
				Build()
		}
		rule := ProposalRule{
			Name:       s.Name,
			ActionType: actionType,
			Title:      s.Title,
			CTALabel:   s.CTALabel,
		}
		if rule.Name == "" {
			rule.Name = strings.ToLower(string(actionType))
		}
		for _, c := range s.Conditions {
			if !isKnownOperator(c.Operator) {
				return nil, errors.Newf("proposal rule %q: unknown operator %q", rule.Name, c.Operator).
					Component(componentName).
					Category(errors.CategoryValidation).
					Context("rule_index", i).
					Build()
			}
			prop, ok := propertySchema(c.Property)
			if !ok {
				return nil, errors.Newf("proposal rule %q: unknown property %q", rule.Name, c.Property).
					Component(componentName).
					Category(errors.CategoryValidation).
					Context("rule_index", i).
					Build()
			}
			if !slices.Contains(prop.Operators, c.Operator) {
				return nil, errors.Newf("proposal rule %q: operator %q does not apply to %s property %q", rule.Name, c.Operator, prop.Type, c.Property).
					Component(componentName).
					Category(errors.CategoryValidation).
					Context("rule_index", i).
					Build()
			}
			rule.Conditions = append(rule.Conditions, Condition{Property: c.Property, Operator: c.Operator, Value: c.Value})
		}
		rules = append(rules, rule)
	}
	return rules, nil
}

// ruleProperties exposes the incident fields rules may test.
func ruleProperties(inc *entities.Incident, signalType string) map[string]any {
	props := map[string]any{
		PropertyTypeKey:    inc.TypeKey,
		PropertySourceType: inc.SourceType,
		PropertySignalType: signalType,
	}
	if inc.Severity != nil {
		props[PropertyBand] = string(*inc.Severity)
	}
	if inc.SeverityScore != nil {
		props[PropertyScore] = *inc.SeverityScore
	}
	if inc.Category != nil {
		props[PropertyCategory] = *inc.Category
	}
	if inc.Confidence != nil {
		props[PropertyConfidence] = *inc.Confidence
	}
	return props
}
