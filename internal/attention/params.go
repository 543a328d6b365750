// Package attention computes a deity's attention and interest in a character
// from a karma snapshot, classifies the character's trend, and holds the
// per-(character, deity) tracking record.
package attention

import (
	"time"

	"github.com/talgya/godwatch/internal/manifest"
)

// Params holds the tuned balance constants for scoring and trend
// classification. These are configuration, not hidden contracts — tests and
// deployments may override any of them.
type Params struct {
	// Attention signal weights.
	AffinityCoeff          float64 // per point of |affinity|
	DimensionCoeff         float64 // scales the weighted dimension sum
	ActivityBonusPerAction float64 // per action in the last 24h
	ActivityBonusCap       float64
	ConflictBonus          float64 // moral conflict detected
	RivalFavorBonus        float64 // rival affinity above threshold
	RivalFavorThreshold    int

	// Recency damping after an intervention.
	RecencyWindow  time.Duration
	RecencyDamping float64 // multiplier applied inside the window

	// Interest bonuses.
	InterestFloor      float64
	VolatileBonus      float64
	DecliningBonus     float64
	LeaderBonus        float64
	LevelCoeff         float64
	LevelBonusCap      float64
	BoonBonus          float64 // active blessing or curse
	ThresholdProximity int     // distance from a round-number affinity
	ThresholdBonus     float64

	// Trend classification.
	TrendWindowDays  int
	VolatileVariance float64
	TrendMeanCutoff  float64

	// Evaluation probability model.
	ProbabilityFloor   float64
	ProbabilityCeiling float64
	InterestBoost      float64 // max fractional boost at interest 100

	// Per-type cooldowns.
	Cooldowns map[manifest.Type]time.Duration
}

// DefaultParams returns the tuned defaults.
func DefaultParams() Params {
	cds := make(map[manifest.Type]time.Duration, manifest.NumTypes)
	for _, t := range manifest.Types() {
		cds[t] = t.DefaultCooldown()
	}

	return Params{
		AffinityCoeff:          0.5,
		DimensionCoeff:         0.25,
		ActivityBonusPerAction: 2.0,
		ActivityBonusCap:       20,
		ConflictBonus:          15,
		RivalFavorBonus:        12,
		RivalFavorThreshold:    60,

		RecencyWindow:  6 * time.Hour,
		RecencyDamping: 0.4,

		InterestFloor:      5,
		VolatileBonus:      20,
		DecliningBonus:     12,
		LeaderBonus:        15,
		LevelCoeff:         0.5,
		LevelBonusCap:      15,
		BoonBonus:          10,
		ThresholdProximity: 3,
		ThresholdBonus:     12,

		TrendWindowDays:  7,
		VolatileVariance: 40,
		TrendMeanCutoff:  3,

		ProbabilityFloor:   0.02,
		ProbabilityCeiling: 0.35,
		InterestBoost:      0.5,

		Cooldowns: cds,
	}
}

// Cooldown returns the configured cooldown for a type, falling back to the
// type's default.
func (p Params) Cooldown(t manifest.Type) time.Duration {
	if d, ok := p.Cooldowns[t]; ok {
		return d
	}
	return t.DefaultCooldown()
}
