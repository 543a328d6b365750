package engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/talgya/godwatch/internal/attention"
	"github.com/talgya/godwatch/internal/deity"
	"github.com/talgya/godwatch/internal/karma"
	"github.com/talgya/godwatch/internal/manifest"
)

// dispatch turns a winning draw into a persisted manifestation: pick the
// subtype from trend and affinity sign, generate the message, and apply the
// conditional cooldown transition. Returns nil (no error) when the generator
// fails or another writer won the race — both abandon this single dispatch
// without disturbing the cycle.
func (e *Engine) dispatch(ctx context.Context, rec *attention.Record, st deity.AgentState, p *karma.Profile, cc attention.CharacterContext, out *outcome, now time.Time) (*manifest.Manifestation, error) {
	affinity := p.Affinities.Get(rec.Deity)
	subtype := manifest.SubtypeFor(rec.Trend, affinity)

	genCtx, cancel := context.WithTimeout(ctx, e.Config.GenerateTimeout)
	defer cancel()

	msg, err := e.Generator.Generate(genCtx, manifest.Request{
		Deity:    rec.Deity,
		Type:     out.Type,
		Subtype:  subtype,
		Trend:    rec.Trend,
		Affinity: affinity,
		Blessed:  cc.Blessed,
		Cursed:   cc.Cursed,
	})
	if err != nil {
		// A slow or failing generator abandons this dispatch; never retried
		// mid-cycle, never stalls the batch.
		slog.Warn("message generation failed, dispatch abandoned",
			"character", rec.Character, "deity", rec.Deity.String(),
			"type", out.Type.String(), "error", err)
		return nil, nil
	}

	m := &manifest.Manifestation{
		ID:        uuid.NewString(),
		Character: rec.Character,
		Deity:     rec.Deity,
		Type:      out.Type,
		Subtype:   subtype,
		Message:   msg,
		Effect:    manifest.EffectFor(out.Type, subtype),
		Urgency:   manifest.UrgencyFromAttention(rec.Attention),
		CreatedAt: now,
	}

	applied, err := e.DB.ApplyDispatch(m, now.Add(e.Params.Cooldown(out.Type)), now)
	if err != nil {
		return nil, err
	}
	if !applied {
		// Another evaluation advanced the cooldown first. The desired end
		// state already holds; losing the race is a no-op success.
		slog.Debug("dispatch lost race",
			"character", rec.Character, "deity", rec.Deity.String(), "type", out.Type.String())
		return nil, nil
	}

	rec.ArmCooldown(out.Type, now, e.Params.Cooldown(out.Type))

	slog.Info("manifestation dispatched",
		"character", rec.Character,
		"deity", rec.Deity.String(),
		"type", out.Type.String(),
		"subtype", string(subtype),
		"urgency", m.Urgency.String(),
		"probability", out.Probability)
	return m, nil
}

// deityStates loads both deities' agent states.
func (e *Engine) deityStates() (map[deity.ID]deity.AgentState, error) {
	states := make(map[deity.ID]deity.AgentState, 2)
	for _, d := range deity.All() {
		st, err := e.DB.DeityState(d)
		if err != nil {
			return nil, err
		}
		states[d] = st
	}
	return states, nil
}
