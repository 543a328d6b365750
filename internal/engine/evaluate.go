package engine

import (
	"time"

	"github.com/talgya/godwatch/internal/attention"
	"github.com/talgya/godwatch/internal/deity"
	"github.com/talgya/godwatch/internal/manifest"
)

// outcome is a winning evaluation draw for one manifestation type.
type outcome struct {
	Type        manifest.Type
	Probability float64
}

// evaluate runs the intervention state machine for one (character, deity)
// pair: global gates first, then the type ladder from least to most intrusive.
// The first type that is off cooldown and wins its draw is returned; nil means
// no intervention this tick, which is the common case and not an error.
func (e *Engine) evaluate(rec *attention.Record, st deity.AgentState, now time.Time) *outcome {
	if !st.GloballyEligible(now) {
		return nil
	}

	for _, t := range manifest.Types() {
		if rec.OnCooldown(t, now) {
			continue
		}
		prob := e.typeProbability(rec, st, t)
		if e.Entropy.Float() < prob {
			return &outcome{Type: t, Probability: prob}
		}
	}
	return nil
}

// typeProbability computes the per-check chance for one type: a base that
// rises monotonically with attention between the floor and ceiling, scaled by
// interest, mood, and the deity's dials, then clamped back into
// [floor, ceiling] so no single check is ever certain or fully blind.
func (e *Engine) typeProbability(rec *attention.Record, st deity.AgentState, t manifest.Type) float64 {
	p := e.Params

	base := p.ProbabilityFloor + (rec.Attention/100)*(p.ProbabilityCeiling-p.ProbabilityFloor)
	prob := base
	prob *= 1 + (rec.Interest/100)*p.InterestBoost
	prob *= moodMultiplier(st, t)
	prob *= 0.8 + 0.4*st.Dials.Influence
	prob *= 1.1 - 0.2*st.Dials.Patience

	if prob < p.ProbabilityFloor {
		prob = p.ProbabilityFloor
	}
	if prob > p.ProbabilityCeiling {
		prob = p.ProbabilityCeiling
	}
	return prob
}

// moodMultiplier biases gentle types under benevolent moods and stern types
// under harsh ones, nudged by the wrath/benevolence dials.
func moodMultiplier(st deity.AgentState, t manifest.Type) float64 {
	gentle := t.Gentle()

	m := 1.0
	switch {
	case st.Mood.Benevolent():
		if gentle {
			m = 1.3
		} else {
			m = 0.8
		}
	case st.Mood.Harsh():
		if gentle {
			m = 0.7
		} else {
			m = 1.4
		}
	}

	if gentle {
		m += 0.2 * st.Dials.Benevolence
	} else {
		m += 0.2 * st.Dials.Wrath
	}
	return m
}
