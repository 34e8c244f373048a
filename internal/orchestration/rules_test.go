package orchestration

import (
	"testing"

	"github.com/homeledger/incident-engine/internal/conf"
	"github.com/homeledger/incident-engine/internal/datastore/v2/entities"
	"github.com/homeledger/incident-engine/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvaluateConditions_EmptyConditions(t *testing.T) {
	assert.True(t, EvaluateConditions(nil, map[string]any{PropertyTypeKey: "roof.leak"}))
}

func TestEvaluateConditions_StringOperators(t *testing.T) {
	tests := []struct {
		name     string
		operator string
		value    string
		propVal  any
		want     bool
	}{
		{"is match", OperatorIs, "CRITICAL", "CRITICAL", true},
		{"is case insensitive", OperatorIs, "critical", "CRITICAL", true},
		{"is no match", OperatorIs, "WARNING", "CRITICAL", false},
		{"is_not match", OperatorIsNot, "WARNING", "CRITICAL", true},
		{"is_not no match", OperatorIsNot, "CRITICAL", "CRITICAL", false},
		{"contains match", OperatorContains, "heater", "water_heater.age", true},
		{"contains case insensitive", OperatorContains, "HEATER", "water_heater.age", true},
		{"not_contains match", OperatorNotContains, "roof", "water_heater.age", true},
		{"not_contains no match", OperatorNotContains, "water", "water_heater.age", false},
		{"unknown operator", "matches", "x", "x", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conds := []Condition{{Property: PropertyBand, Operator: tt.operator, Value: tt.value}}
			assert.Equal(t, tt.want, EvaluateConditions(conds, map[string]any{PropertyBand: tt.propVal}))
		})
	}
}

func TestEvaluateConditions_NumericOperators(t *testing.T) {
	tests := []struct {
		name     string
		operator string
		value    string
		propVal  any
		want     bool
	}{
		{"gt true", OperatorGreaterThan, "70", 85, true},
		{"gt equal", OperatorGreaterThan, "70", 70, false},
		{"lt true", OperatorLessThan, "35", 20, true},
		{"gte equal", OperatorGreaterOrEqual, "35", 35, true},
		{"lte false", OperatorLessOrEqual, "35", 36, false},
		{"int64 property", OperatorGreaterThan, "50", int64(60), true},
		{"string property coercion", OperatorGreaterThan, "50", "60", true},
		{"non numeric property", OperatorGreaterThan, "50", "high", false},
		{"non numeric value", OperatorGreaterThan, "high", 60, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conds := []Condition{{Property: PropertyScore, Operator: tt.operator, Value: tt.value}}
			assert.Equal(t, tt.want, EvaluateConditions(conds, map[string]any{PropertyScore: tt.propVal}))
		})
	}
}

func TestEvaluateConditions_MissingPropertyFails(t *testing.T) {
	conds := []Condition{{Property: PropertyCategory, Operator: OperatorIsNot, Value: "plumbing"}}
	assert.False(t, EvaluateConditions(conds, map[string]any{}))
	assert.False(t, EvaluateConditions(conds, map[string]any{PropertyCategory: nil}))
}

func TestDefaultProposalRules(t *testing.T) {
	rules := DefaultProposalRules()
	require.Len(t, rules, 3)

	pick := func(band entities.SeverityBand) entities.ActionType {
		props := map[string]any{PropertyBand: string(band)}
		for i := range rules {
			if rules[i].Matches(props) {
				return rules[i].ActionType
			}
		}
		return ""
	}
	assert.Equal(t, entities.ActionTypeTask, pick(entities.SeverityCritical))
	assert.Equal(t, entities.ActionTypeChecklistItem, pick(entities.SeverityWarning))
	assert.Equal(t, entities.ActionTypeNote, pick(entities.SeverityInfo))

	for _, r := range rules {
		assert.True(t, r.ActionType.IsCreatable(), r.Name)
	}
}

func TestRulesFromSettings(t *testing.T) {
	t.Run("empty selects defaults", func(t *testing.T) {
		rules, err := RulesFromSettings(nil)
		require.NoError(t, err)
		assert.Equal(t, DefaultProposalRules(), rules)
	})

	t.Run("converts configured rules", func(t *testing.T) {
		rules, err := RulesFromSettings([]conf.ProposalRuleSettings{
			{
				ActionType: "notification",
				Title:      "Tell the owner",
				Conditions: []conf.ConditionSettings{
					{Property: PropertyScore, Operator: OperatorGreaterOrEqual, Value: "90"},
				},
			},
		})
		require.NoError(t, err)
		require.Len(t, rules, 1)
		assert.Equal(t, "notification", rules[0].Name)
		assert.Equal(t, entities.ActionTypeNotification, rules[0].ActionType)
		assert.True(t, rules[0].Matches(map[string]any{PropertyScore: 95}))
		assert.False(t, rules[0].Matches(map[string]any{PropertyScore: 80}))
	})

	t.Run("rejects legacy action type", func(t *testing.T) {
		_, err := RulesFromSettings([]conf.ProposalRuleSettings{{Name: "book", ActionType: "BOOKING"}})
		require.Error(t, err)
		assert.Equal(t, errors.CategoryValidation, errors.CategoryOf(err))
	})

	t.Run("rejects unknown operator", func(t *testing.T) {
		_, err := RulesFromSettings([]conf.ProposalRuleSettings{{
			Name:       "bad",
			ActionType: "TASK",
			Conditions: []conf.ConditionSettings{{Property: PropertyBand, Operator: "like", Value: "x"}},
		}})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown operator")
	})

	t.Run("rejects unknown property", func(t *testing.T) {
		_, err := RulesFromSettings([]conf.ProposalRuleSettings{{
			ActionType: "TASK",
			Conditions: []conf.ConditionSettings{{Property: "species", Operator: OperatorIs, Value: "x"}},
		}})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown property")
	})

	t.Run("rejects operator of the wrong type", func(t *testing.T) {
		_, err := RulesFromSettings([]conf.ProposalRuleSettings{{
			ActionType: "TASK",
			Conditions: []conf.ConditionSettings{{Property: PropertyBand, Operator: OperatorGreaterThan, Value: "1"}},
		}})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "does not apply")
	})
}

func TestGetRuleSchema(t *testing.T) {
	engine := NewEngine(Deps{}, Config{SurfacingThreshold: 40})
	schema := engine.GetRuleSchema()

	assert.Equal(t, 40, schema.Threshold)
	require.Len(t, schema.Rules, len(DefaultProposalRules()))
	assert.Equal(t, "critical-task", schema.Rules[0].Name)
	assert.NotNil(t, schema.Rules[2].Conditions, "unconditional rules encode as an empty list")
	assert.Len(t, schema.Operators, 8)

	for _, p := range schema.Properties {
		for _, op := range p.Operators {
			assert.True(t, isKnownOperator(op), "%s lists unknown operator %s", p.Name, op)
		}
	}
	_, ok := propertySchema(PropertyScore)
	assert.True(t, ok)
	_, ok = propertySchema("species")
	assert.False(t, ok)
}
