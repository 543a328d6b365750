package engine

import (
	"context"
	"errors"
	"log/slog"

	"github.com/talgya/godwatch/internal/attention"
	"github.com/talgya/godwatch/internal/deity"
	"github.com/talgya/godwatch/internal/karma"
	"github.com/talgya/godwatch/internal/manifest"
	"github.com/talgya/godwatch/internal/persistence"
)

// RestKind describes how the character is resting when the dream check runs.
type RestKind string

const (
	RestLight RestKind = "light"
	RestDeep  RestKind = "deep"
)

// DreamResult is the optional outcome of a dream check.
type DreamResult struct {
	Deity   deity.ID         `json:"deity"`
	Subtype manifest.Subtype `json:"subtype"`
	Message string           `json:"message"`
	Effect  *manifest.Effect `json:"effect,omitempty"`
}

// deepRestBoost scales the dream draw when the character sleeps soundly.
const deepRestBoost = 1.5

// CheckForDream is the synchronous entry point invoked from the player's rest
// action, outside the batch cycle. It scores a single character and attempts
// at most one dream dispatch, sharing the batch path's cooldown and
// probability logic. A nil result means no dream — indistinguishable from a
// losing draw, never an error a player can see.
func (e *Engine) CheckForDream(ctx context.Context, ch karma.CharacterID, rest RestKind) (*DreamResult, error) {
	now := e.now()

	profile, err := e.DB.Profile(ch, now.Add(-e.Config.ActivityWindow))
	if errors.Is(err, persistence.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	cc, err := e.DB.CharacterContext(ch)
	if err != nil {
		return nil, err
	}

	for _, d := range deity.All() {
		st, err := e.DB.DeityState(d)
		if err != nil {
			return nil, err
		}
		if !st.GloballyEligible(now) {
			continue
		}

		rec, err := e.DB.AttentionRecord(ch, d)
		if errors.Is(err, persistence.ErrNotFound) {
			rec = attention.NewRecord(ch, d, now)
		} else if err != nil {
			return nil, err
		}

		scores := attention.Score(profile, d, cc, rec.LastIntervention, e.Params, now)
		rec.Attention = scores.Attention
		rec.Interest = scores.Interest
		rec.Triggers = scores.Triggers
		rec.Trend = scores.Trend
		rec.LastEvaluated = now

		if err := e.DB.UpsertScores(rec); err != nil {
			return nil, err
		}

		if rec.OnCooldown(manifest.TypeDream, now) {
			continue
		}

		prob := e.typeProbability(rec, st, manifest.TypeDream)
		if rest == RestDeep {
			prob *= deepRestBoost
			if prob > e.Params.ProbabilityCeiling {
				prob = e.Params.ProbabilityCeiling
			}
		}
		if e.Entropy.Float() >= prob {
			continue
		}

		m, err := e.dispatch(ctx, rec, st, profile, cc,
			&outcome{Type: manifest.TypeDream, Probability: prob}, now)
		if err != nil {
			return nil, err
		}
		if m == nil {
			continue
		}

		slog.Info("dream check dispatched",
			"character", ch, "deity", d.String(), "rest", string(rest))
		return &DreamResult{
			Deity:   m.Deity,
			Subtype: m.Subtype,
			Message: m.Message,
			Effect:  m.Effect,
		}, nil
	}

	return nil, nil
}
