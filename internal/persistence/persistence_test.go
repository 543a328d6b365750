package persistence

import (
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/godwatch/internal/attention"
	"github.com/talgya/godwatch/internal/deity"
	"github.com/talgya/godwatch/internal/karma"
	"github.com/talgya/godwatch/internal/manifest"
)

var dbNow = time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "godwatch.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func testManifestation(ch karma.CharacterID, d deity.ID, typ manifest.Type, id string) *manifest.Manifestation {
	return &manifest.Manifestation{
		ID:        id,
		Character: ch,
		Deity:     d,
		Type:      typ,
		Subtype:   manifest.SubtypeComfort,
		Message:   "rest now",
		Effect:    manifest.EffectFor(typ, manifest.SubtypeComfort),
		Urgency:   manifest.UrgencyLow,
		CreatedAt: dbNow,
	}
}

func seedRecord(t *testing.T, db *DB, ch karma.CharacterID, d deity.ID, att float64) *attention.Record {
	t.Helper()
	rec := attention.NewRecord(ch, d, dbNow)
	rec.Attention = att
	rec.Interest = 20
	rec.Triggers.MoralConflict = true
	rec.Trend = karma.TrendImproving
	rec.LastEvaluated = dbNow
	require.NoError(t, db.UpsertScores(rec))
	return rec
}

func TestAttentionRecordRoundTrip(t *testing.T) {
	db := openTestDB(t)

	_, err := db.AttentionRecord(1, deity.Solenne)
	assert.ErrorIs(t, err, ErrNotFound)

	seedRecord(t, db, 1, deity.Solenne, 42.5)

	got, err := db.AttentionRecord(1, deity.Solenne)
	require.NoError(t, err)
	assert.Equal(t, karma.CharacterID(1), got.Character)
	assert.Equal(t, deity.Solenne, got.Deity)
	assert.Equal(t, 42.5, got.Attention)
	assert.Equal(t, 20.0, got.Interest)
	assert.True(t, got.Triggers.MoralConflict)
	assert.Equal(t, karma.TrendImproving, got.Trend)
	assert.Equal(t, dbNow, got.LastEvaluated)
	assert.True(t, got.LastIntervention.IsZero())
}

func TestUpsertScoresNeverTouchesCooldowns(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, db.EnsureDeityStates())
	rec := seedRecord(t, db, 1, deity.Solenne, 42.5)

	m := testManifestation(1, deity.Solenne, manifest.TypeWhisper, "m-1")
	applied, err := db.ApplyDispatch(m, dbNow.Add(time.Hour), dbNow)
	require.NoError(t, err)
	require.True(t, applied)

	// Rescoring the pair must not reset the cooldown the dispatch armed.
	rec.Attention = 90
	require.NoError(t, db.UpsertScores(rec))

	got, err := db.AttentionRecord(1, deity.Solenne)
	require.NoError(t, err)
	assert.Equal(t, 90.0, got.Attention)
	assert.Equal(t, dbNow.Add(time.Hour), got.Cooldowns[manifest.TypeWhisper])
	assert.Equal(t, 1, got.Counts[manifest.TypeWhisper])
	assert.Equal(t, dbNow, got.LastIntervention)
}

func TestApplyDispatchLosesRaceOnArmedCooldown(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, db.EnsureDeityStates())
	seedRecord(t, db, 1, deity.Solenne, 50)

	first := testManifestation(1, deity.Solenne, manifest.TypeWhisper, "m-1")
	applied, err := db.ApplyDispatch(first, dbNow.Add(time.Hour), dbNow)
	require.NoError(t, err)
	require.True(t, applied)

	// Same pair, same type, cooldown still armed: the CAS fails quietly.
	second := testManifestation(1, deity.Solenne, manifest.TypeWhisper, "m-2")
	applied, err = db.ApplyDispatch(second, dbNow.Add(2*time.Hour), dbNow.Add(time.Minute))
	require.NoError(t, err)
	assert.False(t, applied)

	n, err := db.ManifestationCount()
	require.NoError(t, err)
	assert.Equal(t, 1, n, "the losing dispatch leaves no manifestation behind")
}

func TestApplyDispatchConcurrentSingleWinner(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, db.EnsureDeityStates())
	seedRecord(t, db, 1, deity.Solenne, 50)

	const dispatchers = 8
	var wins, failures int64
	var wg sync.WaitGroup

	for i := 0; i < dispatchers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			m := testManifestation(1, deity.Solenne, manifest.TypeWhisper, fmt.Sprintf("m-%d", i))
			applied, err := db.ApplyDispatch(m, dbNow.Add(time.Hour), dbNow)
			if !assert.NoError(t, err) {
				atomic.AddInt64(&failures, 1)
				return
			}
			if applied {
				atomic.AddInt64(&wins, 1)
			}
		}(i)
	}
	wg.Wait()

	assert.EqualValues(t, 0, failures)
	assert.EqualValues(t, 1, wins, "exactly one dispatcher wins, under any interleaving")

	n, err := db.ManifestationCount()
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	rec, err := db.AttentionRecord(1, deity.Solenne)
	require.NoError(t, err)
	assert.Equal(t, 1, rec.Counts[manifest.TypeWhisper])
	assert.Equal(t, dbNow.Add(time.Hour), rec.Cooldowns[manifest.TypeWhisper])
}

func TestApplyDispatchRespectsGlobalCooldown(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, db.EnsureDeityStates())
	seedRecord(t, db, 1, deity.Vhorag, 50)
	seedRecord(t, db, 2, deity.Vhorag, 50)

	first := testManifestation(1, deity.Vhorag, manifest.TypeWhisper, "m-1")
	applied, err := db.ApplyDispatch(first, dbNow.Add(time.Hour), dbNow)
	require.NoError(t, err)
	require.True(t, applied)

	// A different character, but the deity itself is now cooling down.
	other := testManifestation(2, deity.Vhorag, manifest.TypeWhisper, "m-2")
	applied, err = db.ApplyDispatch(other, dbNow.Add(time.Hour), dbNow.Add(time.Minute))
	require.NoError(t, err)
	assert.False(t, applied)

	st, err := db.DeityState(deity.Vhorag)
	require.NoError(t, err)

	// Past the global window the next dispatch goes through.
	later := dbNow.Add(st.GlobalCooldown + time.Minute)
	third := testManifestation(2, deity.Vhorag, manifest.TypeWhisper, "m-3")
	applied, err = db.ApplyDispatch(third, later.Add(time.Hour), later)
	require.NoError(t, err)
	assert.True(t, applied)
}

func TestMarkDeliveredIdempotent(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, db.EnsureDeityStates())
	seedRecord(t, db, 1, deity.Solenne, 50)

	m := testManifestation(1, deity.Solenne, manifest.TypeOmen, "m-1")
	applied, err := db.ApplyDispatch(m, dbNow.Add(6*time.Hour), dbNow)
	require.NoError(t, err)
	require.True(t, applied)

	require.NoError(t, db.MarkDelivered("m-1", dbNow.Add(time.Minute)))
	require.NoError(t, db.MarkDelivered("m-1", dbNow.Add(time.Hour)), "second flip is a no-op success")

	got, err := db.RecentManifestations(1, 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.True(t, got[0].Delivered)
	require.NotNil(t, got[0].DeliveredAt)
	assert.Equal(t, dbNow.Add(time.Minute), *got[0].DeliveredAt, "the first timestamp wins")

	assert.ErrorIs(t, db.MarkDelivered("no-such-id", dbNow), ErrNotFound)
	assert.ErrorIs(t, db.MarkAcknowledged("no-such-id", dbNow), ErrNotFound)
}

func TestUndeliveredOldestFirst(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, db.EnsureDeityStates())
	seedRecord(t, db, 1, deity.Solenne, 50)
	seedRecord(t, db, 1, deity.Vhorag, 50)

	old := testManifestation(1, deity.Solenne, manifest.TypeWhisper, "m-old")
	old.CreatedAt = dbNow.Add(-time.Hour)
	applied, err := db.ApplyDispatch(old, dbNow.Add(time.Hour), dbNow.Add(-time.Hour))
	require.NoError(t, err)
	require.True(t, applied)

	recent := testManifestation(1, deity.Vhorag, manifest.TypeWhisper, "m-new")
	applied, err = db.ApplyDispatch(recent, dbNow.Add(time.Hour), dbNow)
	require.NoError(t, err)
	require.True(t, applied)

	got, err := db.Undelivered(1, 10)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "m-old", got[0].ID)
	assert.Equal(t, "m-new", got[1].ID)

	require.NoError(t, db.MarkDelivered("m-old", dbNow))
	got, err = db.Undelivered(1, 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "m-new", got[0].ID)
}

func TestTopByAttentionOrdering(t *testing.T) {
	db := openTestDB(t)
	seedRecord(t, db, 1, deity.Solenne, 10)
	seedRecord(t, db, 2, deity.Solenne, 90)
	seedRecord(t, db, 3, deity.Solenne, 50)
	seedRecord(t, db, 4, deity.Vhorag, 99)

	recs, err := db.TopByAttention(deity.Solenne, 2)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, karma.CharacterID(2), recs[0].Character)
	assert.Equal(t, karma.CharacterID(3), recs[1].Character)
}

func TestUntrackedCandidates(t *testing.T) {
	db := openTestDB(t)

	// Tracked: already has a record, must not reappear.
	tracked := &karma.Profile{Character: 1}
	tracked.Affinities.Set(deity.Solenne, 90)
	require.NoError(t, db.UpsertProfile(tracked, dbNow))
	seedRecord(t, db, 1, deity.Solenne, 80)

	// Untracked with strong affinity.
	devout := &karma.Profile{Character: 2}
	devout.Affinities.Set(deity.Solenne, 60)
	require.NoError(t, db.UpsertProfile(devout, dbNow))

	// Untracked, weak affinity but busy.
	busy := &karma.Profile{Character: 3}
	require.NoError(t, db.UpsertProfile(busy, dbNow))
	for i := 0; i < 6; i++ {
		require.NoError(t, db.AppendAction(3, karma.Action{
			Dimension:  karma.DimGreed,
			Magnitude:  3,
			OccurredAt: dbNow.Add(-time.Duration(i) * time.Hour),
		}))
	}

	// Untracked, quiet and indifferent: below both thresholds.
	bystander := &karma.Profile{Character: 4}
	bystander.Affinities.Set(deity.Solenne, 5)
	require.NoError(t, db.UpsertProfile(bystander, dbNow))

	ids, err := db.UntrackedCandidates(deity.Solenne, 25, 5, dbNow.Add(-24*time.Hour), 10)
	require.NoError(t, err)
	assert.ElementsMatch(t, []karma.CharacterID{2, 3}, ids)
}

func TestSweepDormant(t *testing.T) {
	db := openTestDB(t)

	stale := attention.NewRecord(1, deity.Solenne, dbNow.Add(-60*24*time.Hour))
	stale.Attention = 2
	stale.LastEvaluated = dbNow.Add(-45 * 24 * time.Hour)
	require.NoError(t, db.UpsertScores(stale))

	watched := attention.NewRecord(2, deity.Solenne, dbNow.Add(-60*24*time.Hour))
	watched.Attention = 70
	watched.LastEvaluated = dbNow.Add(-45 * 24 * time.Hour)
	require.NoError(t, db.UpsertScores(watched))

	seedRecord(t, db, 3, deity.Solenne, 2)

	n, err := db.SweepDormant(dbNow.Add(-30*24*time.Hour), 10)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = db.AttentionRecord(1, deity.Solenne)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = db.AttentionRecord(2, deity.Solenne)
	assert.NoError(t, err, "high attention is kept even when stale")
	_, err = db.AttentionRecord(3, deity.Solenne)
	assert.NoError(t, err, "recently evaluated is kept even at low attention")
}

func TestPruneManifestations(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, db.EnsureDeityStates())
	seedRecord(t, db, 1, deity.Solenne, 50)
	seedRecord(t, db, 1, deity.Vhorag, 50)

	ancient := testManifestation(1, deity.Solenne, manifest.TypeWhisper, "m-ancient")
	ancient.CreatedAt = dbNow.Add(-100 * 24 * time.Hour)
	applied, err := db.ApplyDispatch(ancient, dbNow, dbNow.Add(-100*24*time.Hour))
	require.NoError(t, err)
	require.True(t, applied)

	recent := testManifestation(1, deity.Vhorag, manifest.TypeWhisper, "m-recent")
	applied, err = db.ApplyDispatch(recent, dbNow.Add(time.Hour), dbNow)
	require.NoError(t, err)
	require.True(t, applied)

	n, err := db.PruneManifestations(dbNow.Add(-90 * 24 * time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	total, err := db.ManifestationCount()
	require.NoError(t, err)
	assert.Equal(t, 1, total)
}

func TestDeityStateLifecycle(t *testing.T) {
	db := openTestDB(t)

	_, err := db.DeityState(deity.Solenne)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, db.EnsureDeityStates())
	require.NoError(t, db.EnsureDeityStates(), "ensure is idempotent")

	st, err := db.DeityState(deity.Solenne)
	require.NoError(t, err)
	assert.Equal(t, deity.DefaultState(deity.Solenne), st)

	// The mood pass rewrites mood and phase but must not advance the
	// intervention stamp; only ApplyDispatch does that.
	seedRecord(t, db, 1, deity.Solenne, 50)
	m := testManifestation(1, deity.Solenne, manifest.TypeWhisper, "m-1")
	applied, err := db.ApplyDispatch(m, dbNow.Add(time.Hour), dbNow)
	require.NoError(t, err)
	require.True(t, applied)

	st.Mood = deity.MoodWrathful
	st.Phase = deity.PhaseFervent
	st.LastIntervention = time.Time{}
	require.NoError(t, db.SaveDeityState(st))

	got, err := db.DeityState(deity.Solenne)
	require.NoError(t, err)
	assert.Equal(t, deity.MoodWrathful, got.Mood)
	assert.Equal(t, deity.PhaseFervent, got.Phase)
	assert.Equal(t, dbNow, got.LastIntervention)
}

func TestProfileRoundTrip(t *testing.T) {
	db := openTestDB(t)

	_, err := db.Profile(1, dbNow.Add(-7*24*time.Hour))
	assert.ErrorIs(t, err, ErrNotFound)

	p := &karma.Profile{Character: 1}
	p.Dimensions[karma.DimHonor] = 60
	p.Dimensions[karma.DimDeceit] = -30
	p.Affinities.Set(deity.Solenne, 45)
	p.Affinities.Set(deity.Vhorag, -20)
	require.NoError(t, db.UpsertProfile(p, dbNow))

	require.NoError(t, db.AppendAction(1, karma.Action{
		Dimension: karma.DimHonor, Magnitude: 8,
		WitnessedBy: deity.Solenne, OccurredAt: dbNow.Add(-time.Hour),
	}))
	require.NoError(t, db.AppendAction(1, karma.Action{
		Dimension: karma.DimHonor, Magnitude: 5,
		OccurredAt: dbNow.Add(-10 * 24 * time.Hour),
	}))

	got, err := db.Profile(1, dbNow.Add(-7*24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, p.Dimensions, got.Dimensions)
	assert.Equal(t, 45, got.Affinities.Get(deity.Solenne))
	assert.Equal(t, -20, got.Affinities.Get(deity.Vhorag))
	require.Len(t, got.Actions, 1, "actions before the cutoff are not loaded")
	assert.Equal(t, deity.Solenne, got.Actions[0].WitnessedBy)
	assert.Equal(t, dbNow.Add(-time.Hour), got.Actions[0].OccurredAt)
}

func TestCharacterContextMissingIsZero(t *testing.T) {
	db := openTestDB(t)

	cc, err := db.CharacterContext(404)
	require.NoError(t, err)
	assert.Equal(t, attention.CharacterContext{}, cc)

	require.NoError(t, db.UpsertCharacter(7, "Maro", 14, true, false, true))
	cc, err = db.CharacterContext(7)
	require.NoError(t, err)
	assert.True(t, cc.Leader)
	assert.Equal(t, 14, cc.Level)
	assert.True(t, cc.Cursed)
}

func TestWorldActivityRollup(t *testing.T) {
	db := openTestDB(t)

	require.NoError(t, db.AddWorldEvent("law_broken", 1, dbNow.Add(-time.Hour)))
	require.NoError(t, db.AddWorldEvent("law_broken", 2, dbNow.Add(-2*time.Hour)))
	require.NoError(t, db.AddWorldEvent("justice_served", 3, dbNow.Add(-time.Hour)))
	require.NoError(t, db.AddWorldEvent("rebellion", 1, dbNow.Add(-30*time.Hour)))

	require.NoError(t, db.AppendAction(1, karma.Action{
		Dimension: karma.DimChaos, Magnitude: 15, OccurredAt: dbNow.Add(-time.Hour)}))
	require.NoError(t, db.AppendAction(1, karma.Action{
		Dimension: karma.DimChaos, Magnitude: 2, OccurredAt: dbNow.Add(-time.Hour)}))
	require.NoError(t, db.AppendAction(2, karma.Action{
		Dimension: karma.DimHonor, Magnitude: 3, OccurredAt: dbNow.Add(-time.Hour)}))

	w, err := db.WorldActivity(dbNow.Add(-24 * time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 2, w.LawsBroken)
	assert.Equal(t, 1, w.JusticeServed)
	assert.Equal(t, 0, w.Rebellions, "events outside the window are excluded")
	assert.Equal(t, 2, w.ActiveCharacters)
	assert.Equal(t, 1, w.HighMagnitudeEvents)
}
