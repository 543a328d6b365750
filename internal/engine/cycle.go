package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/talgya/godwatch/internal/attention"
	"github.com/talgya/godwatch/internal/deity"
	"github.com/talgya/godwatch/internal/karma"
	"github.com/talgya/godwatch/internal/persistence"
)

// RunCycle executes one batch pass: per deity, select and score the watched
// top-N plus newly significant untracked characters, evaluate interventions
// for the already-tracked, then run the mood pass. Only a failure of the
// selection queries themselves aborts the cycle; per-character failures are
// logged and skipped.
func (e *Engine) RunCycle(ctx context.Context) (Summary, error) {
	start := e.now()
	e.cycles++

	summary := Summary{
		Interventions: make(map[deity.ID]int, 2),
		Moods:         make(map[deity.ID]deity.Mood, 2),
		Phases:        make(map[deity.ID]deity.Phase, 2),
	}

	states, err := e.deityStates()
	if err != nil {
		return summary, fmt.Errorf("load deity states: %w", err)
	}

	var evaluated, discovered int64

	for _, d := range deity.All() {
		st := states[d]
		now := e.now()

		tracked, err := e.DB.TopByAttention(d, e.Config.TopPerCycle)
		if err != nil {
			return summary, fmt.Errorf("select tracked for %s: %w", d, err)
		}

		candidates, err := e.DB.UntrackedCandidates(d,
			e.Config.DiscoveryMinAffinity, e.Config.DiscoveryMinActions,
			now.Add(-24*time.Hour), e.Config.DiscoveryPerCycle)
		if err != nil {
			return summary, fmt.Errorf("select candidates for %s: %w", d, err)
		}

		var dispatched int64

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(e.Config.MaxParallel)

		for _, rec := range tracked {
			g.Go(func() error {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				hit, err := e.processTracked(gctx, rec, st)
				if err != nil {
					slog.Error("character evaluation failed",
						"character", rec.Character, "deity", d.String(), "error", err)
					return nil
				}
				atomic.AddInt64(&evaluated, 1)
				if hit {
					atomic.AddInt64(&dispatched, 1)
				}
				return nil
			})
		}

		// Newly discovered characters are scored and persisted, but never
		// evaluated in the cycle that first sees them.
		for _, ch := range candidates {
			g.Go(func() error {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				if err := e.scoreOnly(ch, d); err != nil {
					slog.Error("character discovery failed",
						"character", ch, "deity", d.String(), "error", err)
					return nil
				}
				atomic.AddInt64(&discovered, 1)
				return nil
			})
		}

		if err := g.Wait(); err != nil {
			return summary, fmt.Errorf("cycle canceled: %w", err)
		}

		summary.Interventions[d] = int(dispatched)
	}

	// Mood pass, once per deity, after both populations are processed.
	moods, phases, err := e.moodPass()
	if err != nil {
		return summary, fmt.Errorf("mood pass: %w", err)
	}
	summary.Moods = moods
	summary.Phases = phases

	if e.Config.SweepEveryCycles > 0 && e.cycles%uint64(e.Config.SweepEveryCycles) == 0 {
		e.retentionSweep()
	}

	summary.Evaluated = int(evaluated)
	summary.Discovered = int(discovered)
	summary.Duration = e.now().Sub(start)

	slog.Info("cycle complete",
		"evaluated", summary.Evaluated,
		"discovered", summary.Discovered,
		"interventions_solenne", summary.Interventions[deity.Solenne],
		"interventions_vhorag", summary.Interventions[deity.Vhorag],
		"mood_solenne", summary.Moods[deity.Solenne].String(),
		"mood_vhorag", summary.Moods[deity.Vhorag].String(),
		"duration_ms", summary.Duration.Milliseconds())

	return summary, nil
}

// processTracked rescores one tracked character and attempts an intervention.
func (e *Engine) processTracked(ctx context.Context, rec *attention.Record, st deity.AgentState) (bool, error) {
	now := e.now()

	profile, err := e.DB.Profile(rec.Character, now.Add(-e.Config.ActivityWindow))
	if errors.Is(err, persistence.ErrNotFound) {
		// Ledger has no row — treat as zero attention and skip, never raise.
		rec.Attention = 0
		rec.Interest = 0
		rec.LastEvaluated = now
		return false, e.DB.UpsertScores(rec)
	}
	if err != nil {
		return false, err
	}

	cc, err := e.DB.CharacterContext(rec.Character)
	if err != nil {
		return false, err
	}

	scores := attention.Score(profile, rec.Deity, cc, rec.LastIntervention, e.Params, now)
	rec.Attention = scores.Attention
	rec.Interest = scores.Interest
	rec.Triggers = scores.Triggers
	rec.Trend = scores.Trend
	rec.LastEvaluated = now

	if err := e.DB.UpsertScores(rec); err != nil {
		return false, err
	}

	out := e.evaluate(rec, st, now)
	if out == nil {
		return false, nil
	}

	m, err := e.dispatch(ctx, rec, st, profile, cc, out, now)
	if err != nil {
		return false, err
	}
	return m != nil, nil
}

// scoreOnly scores and persists a newly discovered character without
// evaluating interventions.
func (e *Engine) scoreOnly(ch karma.CharacterID, d deity.ID) error {
	now := e.now()

	profile, err := e.DB.Profile(ch, now.Add(-e.Config.ActivityWindow))
	if errors.Is(err, persistence.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	cc, err := e.DB.CharacterContext(ch)
	if err != nil {
		return err
	}

	rec := attention.NewRecord(ch, d, now)
	scores := attention.Score(profile, d, cc, time.Time{}, e.Params, now)
	rec.Attention = scores.Attention
	rec.Interest = scores.Interest
	rec.Triggers = scores.Triggers
	rec.Trend = scores.Trend
	rec.LastEvaluated = now

	return e.DB.UpsertScores(rec)
}

// moodPass fully replaces each deity's mood and phase from the trailing
// world-activity rollup. Not incremental.
func (e *Engine) moodPass() (map[deity.ID]deity.Mood, map[deity.ID]deity.Phase, error) {
	now := e.now()

	activity, err := e.DB.WorldActivity(now.Add(-e.Config.MoodWindow))
	if err != nil {
		return nil, nil, err
	}

	moods := make(map[deity.ID]deity.Mood, 2)
	phases := make(map[deity.ID]deity.Phase, 2)

	for _, d := range deity.All() {
		st, err := e.DB.DeityState(d)
		if err != nil {
			return nil, nil, err
		}

		score, mood := deity.AggregateMood(d, activity)
		st.Mood = mood
		st.Phase = deity.PhaseFromActivity(activity.ActiveCharacters)

		if err := e.DB.SaveDeityState(st); err != nil {
			return nil, nil, err
		}

		moods[d] = mood
		phases[d] = st.Phase

		slog.Debug("mood updated",
			"deity", d.String(), "score", score,
			"mood", mood.String(), "phase", st.Phase.String())
	}
	return moods, phases, nil
}

// retentionSweep drops long-dormant low-attention records and prunes old
// manifestations. Failures are logged, never fatal to the cycle.
func (e *Engine) retentionSweep() {
	now := e.now()

	swept, err := e.DB.SweepDormant(now.Add(-e.Config.SweepDormantAfter), e.Config.SweepMaxAttention)
	if err != nil {
		slog.Warn("dormant sweep failed", "error", err)
	}

	pruned, err := e.DB.PruneManifestations(now.Add(-e.Config.ManifestRetention))
	if err != nil {
		slog.Warn("manifestation prune failed", "error", err)
	}

	if swept > 0 || pruned > 0 {
		slog.Info("retention sweep", "records_swept", swept, "manifestations_pruned", pruned)
	}
}
