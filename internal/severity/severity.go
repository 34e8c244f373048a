// Package severity turns a score breakdown into a clamped 0-100 score and a
// severity band. Scoring never fails: absent contributions count as zero.
package severity

import (
	"math"

	"github.com/homeledger/incident-engine/internal/datastore/v2/entities"
)

// Band thresholds on the clamped total.
const (
	CriticalThreshold = 70
	WarningThreshold  = 35

	MinScore = 0
	MaxScore = 100
)

// Result is the outcome of scoring one breakdown.
type Result struct {
	Raw   float64
	Total int
	Band  entities.SeverityBand
}

// Score computes riskImpact + likelihood + timeSensitivity + coveragePenalty
// - mitigationConfidence, rounds half away from zero and clamps to [0,100].
// A nil breakdown scores 0.
func Score(b *entities.ScoreBreakdown) Result {
	var raw float64
	if b != nil {
		raw = value(b.RiskImpact) + value(b.Likelihood) + value(b.TimeSensitivity) +
			value(b.CoveragePenalty) - value(b.MitigationConfidence)
	}
	total := clamp(math.Round(raw))
	return Result{Raw: raw, Total: total, Band: BandFor(total)}
}

// FromTotal builds a Result from a score computed elsewhere, such as a
// producer's hint. The total is clamped to the valid range.
func FromTotal(total int) Result {
	t := clamp(float64(total))
	return Result{Raw: float64(total), Total: t, Band: BandFor(t)}
}

// BandFor maps a clamped total to its band.
func BandFor(total int) entities.SeverityBand {
	switch {
	case total >= CriticalThreshold:
		return entities.SeverityCritical
	case total >= WarningThreshold:
		return entities.SeverityWarning
	default:
		return entities.SeverityInfo
	}
}

// Merge folds next into prev: a contribution present in next replaces the
// aggregated value, absent ones keep prev. Neither input is modified.
func Merge(prev, next *entities.ScoreBreakdown) *entities.ScoreBreakdown {
	if prev == nil && next == nil {
		return nil
	}
	out := &entities.ScoreBreakdown{SchemaVersion: entities.ScoreBreakdownSchemaVersion}
	if prev != nil {
		out.RiskImpact = clone(prev.RiskImpact)
		out.Likelihood = clone(prev.Likelihood)
		out.TimeSensitivity = clone(prev.TimeSensitivity)
		out.CoveragePenalty = clone(prev.CoveragePenalty)
		out.MitigationConfidence = clone(prev.MitigationConfidence)
	}
	if next != nil {
		overlay(&out.RiskImpact, next.RiskImpact)
		overlay(&out.Likelihood, next.Likelihood)
		overlay(&out.TimeSensitivity, next.TimeSensitivity)
		overlay(&out.CoveragePenalty, next.CoveragePenalty)
		overlay(&out.MitigationConfidence, next.MitigationConfidence)
	}
	return out
}

func value(p *float64) float64 {
	if p == nil || math.IsNaN(*p) {
		return 0
	}
	return *p
}

// ClampPercent bounds v to [MinScore, MaxScore].
func ClampPercent(v int) int {
	return clamp(float64(v))
}

func clamp(v float64) int {
	switch {
	case math.IsNaN(v), v <= MinScore:
		return MinScore
	case v >= MaxScore:
		return MaxScore
	default:
		return int(v)
	}
}

func clone(p *float64) *float64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func overlay(dst **float64, src *float64) {
	if src != nil {
		*dst = clone(src)
	}
}
