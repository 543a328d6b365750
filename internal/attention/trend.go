package attention

import (
	"time"

	"github.com/talgya/godwatch/internal/deity"
	"github.com/talgya/godwatch/internal/karma"
)

// ClassifyTrend reads the recent-action log as a trajectory from one deity's
// point of view. Actions are bucketed by completed 24-hour period relative to
// now; the bucket deltas' mean and variance pick one of the four trend
// states. Deterministic given the same log and now.
func ClassifyTrend(actions []karma.Action, id deity.ID, p Params, now time.Time) karma.Trend {
	days := p.TrendWindowDays
	if days < 2 {
		days = 2
	}

	buckets := make([]float64, days)
	filled := make([]bool, days)

	for _, a := range actions {
		if !relevantTo(a, id) {
			continue
		}
		age := now.Sub(a.OccurredAt)
		if age < 0 {
			continue
		}
		day := int(age / (24 * time.Hour))
		if day >= days {
			continue
		}
		buckets[day] += signedDelta(a, id)
		filled[day] = true
	}

	// Count only days that saw activity; a silent week is not a trend.
	var deltas []float64
	for i, ok := range filled {
		if ok {
			deltas = append(deltas, buckets[i])
		}
	}
	if len(deltas) < 2 {
		return karma.TrendStable
	}

	mean := 0.0
	for _, d := range deltas {
		mean += d
	}
	mean /= float64(len(deltas))

	variance := 0.0
	for _, d := range deltas {
		diff := d - mean
		variance += diff * diff
	}
	variance /= float64(len(deltas))

	// Volatility takes priority over direction.
	switch {
	case variance > p.VolatileVariance:
		return karma.TrendVolatile
	case mean > p.TrendMeanCutoff:
		return karma.TrendImproving
	case mean < -p.TrendMeanCutoff:
		return karma.TrendDeclining
	default:
		return karma.TrendStable
	}
}

// relevantTo filters actions to those a deity cares about: acts it witnessed,
// plus acts on dimensions it weighs.
func relevantTo(a karma.Action, id deity.ID) bool {
	if a.WitnessedBy == id {
		return true
	}
	if a.WitnessedBy != deity.None {
		return false
	}
	return dimensionWeights(id)[a.Dimension] != 0
}

// signedDelta converts an action into a per-deity improvement delta: positive
// when the act moves the character toward the deity's values.
func signedDelta(a karma.Action, id deity.ID) float64 {
	w := dimensionWeights(id)[a.Dimension]
	if w == 0 {
		// Witnessed but unweighted — count raw movement.
		return float64(a.Magnitude)
	}
	if w < 0 {
		return -float64(a.Magnitude)
	}
	return float64(a.Magnitude)
}
