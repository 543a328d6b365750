package attention

import (
	"math"
	"time"

	"github.com/talgya/godwatch/internal/deity"
	"github.com/talgya/godwatch/internal/karma"
)

// CharacterContext carries the non-karma inputs to interest scoring, fetched
// from the character table and the social-structure lookup.
type CharacterContext struct {
	Leader  bool
	Level   int
	Blessed bool
	Cursed  bool
}

// Scores is the output of one scoring pass.
type Scores struct {
	Attention float64
	Interest  float64
	Triggers  Triggers
	Trend     karma.Trend
}

// dimensionWeights returns the per-dimension attention weights for a deity.
// Negative weights mean a trait the deity actively dislikes — high values
// there reduce attention rather than raise it.
func dimensionWeights(id deity.ID) [karma.NumDimensions]float64 {
	switch id {
	case deity.Solenne:
		return [karma.NumDimensions]float64{
			karma.DimHonor:      1.0,
			karma.DimMercy:      0.9,
			karma.DimCruelty:    0.7, // cruelty horrifies but transfixes
			karma.DimGreed:      -0.3,
			karma.DimCourage:    0.5,
			karma.DimDeceit:     -0.4,
			karma.DimLoyalty:    0.6,
			karma.DimChaos:      -0.5,
			karma.DimJustice:    1.0,
			karma.DimTemperance: 0.4,
		}
	case deity.Vhorag:
		return [karma.NumDimensions]float64{
			karma.DimHonor:      -0.4,
			karma.DimMercy:      -0.5,
			karma.DimCruelty:    1.0,
			karma.DimGreed:      0.8,
			karma.DimCourage:    0.5,
			karma.DimDeceit:     0.9,
			karma.DimLoyalty:    -0.3,
			karma.DimChaos:      1.0,
			karma.DimJustice:    -0.4,
			karma.DimTemperance: -0.2,
		}
	default:
		return [karma.NumDimensions]float64{}
	}
}

// Score computes attention, interest, and triggers for one (character, deity)
// pair from a karma snapshot. Pure given its inputs; the only time-dependent
// term is the recency damping, which decays monotonically.
func Score(p *karma.Profile, id deity.ID, cc CharacterContext, lastIntervention time.Time, params Params, now time.Time) Scores {
	trend := ClassifyTrend(p.Actions, id, params, now)

	trig := Triggers{
		ExtremeKarma:  p.ExtremeKarma(),
		RecentDrama:   trend.Dramatic(),
		MoralConflict: p.HasMoralConflict(),
		GroupLeader:   cc.Leader,
	}

	// Signal a: affinity magnitude.
	aff := p.Affinities.Get(id)
	attention := clamp(math.Abs(float64(aff))*params.AffinityCoeff, 0, 40)

	// Signal b: weighted dimension sum. Signed weights let disliked traits
	// pull the total down.
	weights := dimensionWeights(id)
	dimSum := 0.0
	for d, v := range p.Dimensions {
		dimSum += math.Abs(float64(v)) * weights[d]
	}
	attention += clamp(dimSum*params.DimensionCoeff, -20, 40)

	// Signal c: recent activity, capped.
	recent := p.RecentActionCount(now, 24*time.Hour)
	attention += clamp(float64(recent)*params.ActivityBonusPerAction, 0, params.ActivityBonusCap)

	// Signal d: moral conflict.
	if trig.MoralConflict {
		attention += params.ConflictBonus
	}

	// Signal e: favored by the rival.
	if p.Affinities.Get(id.Rival()) >= params.RivalFavorThreshold {
		trig.RivalFavored = true
		attention += params.RivalFavorBonus
	}

	// Dampen a just-visited character so it cannot immediately re-trigger.
	if !lastIntervention.IsZero() && now.Sub(lastIntervention) < params.RecencyWindow {
		attention *= params.RecencyDamping
	}

	attention = clamp(attention, 0, 100)

	// Interest: narrative potential, independent of moral intensity.
	interest := params.InterestFloor
	switch trend {
	case karma.TrendVolatile:
		interest += params.VolatileBonus
	case karma.TrendDeclining:
		interest += params.DecliningBonus
	}
	if cc.Leader {
		interest += params.LeaderBonus
	}
	interest += clamp(float64(cc.Level)*params.LevelCoeff, 0, params.LevelBonusCap)
	if cc.Blessed || cc.Cursed {
		interest += params.BoonBonus
	}
	if nearThreshold(aff, params.ThresholdProximity) {
		interest += params.ThresholdBonus
	}
	interest = clamp(interest, 0, 100)

	return Scores{Attention: attention, Interest: interest, Triggers: trig, Trend: trend}
}

// affinityThresholds are the round numbers whose crossings build anticipation.
var affinityThresholds = [4]int{25, 50, 75, 90}

// nearThreshold reports whether |affinity| sits within dist of a threshold —
// a character about to flip.
func nearThreshold(affinity, dist int) bool {
	a := affinity
	if a < 0 {
		a = -a
	}
	for _, t := range affinityThresholds {
		d := a - t
		if d < 0 {
			d = -d
		}
		if d <= dist {
			return true
		}
	}
	return false
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
