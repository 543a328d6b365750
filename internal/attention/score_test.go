package attention

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/talgya/godwatch/internal/deity"
	"github.com/talgya/godwatch/internal/karma"
)

var scoreNow = time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)

func TestScoreZeroProfile(t *testing.T) {
	p := &karma.Profile{Character: 1}
	s := Score(p, deity.Solenne, CharacterContext{}, time.Time{}, DefaultParams(), scoreNow)

	assert.Equal(t, 0.0, s.Attention, "blank soul draws no attention")
	assert.Equal(t, DefaultParams().InterestFloor, s.Interest)
	assert.Equal(t, karma.TrendStable, s.Trend)
	assert.Equal(t, Triggers{}, s.Triggers)
}

func TestScoreHighAffinityAlignedDimensions(t *testing.T) {
	p := &karma.Profile{Character: 2}
	p.Affinities.Set(deity.Solenne, 80)
	p.Dimensions[karma.DimHonor] = 60
	p.Dimensions[karma.DimJustice] = -60
	p.Dimensions[karma.DimMercy] = 60

	s := Score(p, deity.Solenne, CharacterContext{}, time.Time{}, DefaultParams(), scoreNow)
	assert.GreaterOrEqual(t, s.Attention, 80.0, "a devoted zealot is near the ceiling")
}

func TestScoreBoundsProperty(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	params := DefaultParams()

	for i := 0; i < 500; i++ {
		p := &karma.Profile{Character: karma.CharacterID(i)}
		for d := range p.Dimensions {
			p.Dimensions[d] = rng.Intn(201) - 100
		}
		p.Affinities.Set(deity.Solenne, rng.Intn(201)-100)
		p.Affinities.Set(deity.Vhorag, rng.Intn(201)-100)
		for a := 0; a < rng.Intn(30); a++ {
			p.Actions = append(p.Actions, karma.Action{
				Dimension:  karma.Dimension(rng.Intn(karma.NumDimensions)),
				Magnitude:  rng.Intn(41) - 20,
				OccurredAt: scoreNow.Add(-time.Duration(rng.Intn(7*24)) * time.Hour),
			})
		}
		cc := CharacterContext{
			Leader:  rng.Intn(2) == 0,
			Level:   rng.Intn(60),
			Blessed: rng.Intn(2) == 0,
			Cursed:  rng.Intn(2) == 0,
		}

		for _, d := range deity.All() {
			s := Score(p, d, cc, time.Time{}, params, scoreNow)
			assert.GreaterOrEqual(t, s.Attention, 0.0)
			assert.LessOrEqual(t, s.Attention, 100.0)
			assert.GreaterOrEqual(t, s.Interest, 0.0)
			assert.LessOrEqual(t, s.Interest, 100.0)
		}
	}
}

func TestScoreIdempotent(t *testing.T) {
	p := &karma.Profile{Character: 3}
	p.Affinities.Set(deity.Vhorag, -40)
	p.Dimensions[karma.DimChaos] = 70
	cc := CharacterContext{Leader: true, Level: 12}

	first := Score(p, deity.Vhorag, cc, time.Time{}, DefaultParams(), scoreNow)
	second := Score(p, deity.Vhorag, cc, time.Time{}, DefaultParams(), scoreNow)
	assert.Equal(t, first, second)
}

func TestScoreRecencyDamping(t *testing.T) {
	params := DefaultParams()
	p := &karma.Profile{Character: 4}
	p.Affinities.Set(deity.Solenne, 80)
	p.Dimensions[karma.DimHonor] = 60

	undamped := Score(p, deity.Solenne, CharacterContext{}, time.Time{}, params, scoreNow)
	damped := Score(p, deity.Solenne, CharacterContext{}, scoreNow.Add(-time.Hour), params, scoreNow)
	expired := Score(p, deity.Solenne, CharacterContext{}, scoreNow.Add(-params.RecencyWindow-time.Hour), params, scoreNow)

	assert.Less(t, damped.Attention, undamped.Attention, "a just-visited character is dampened")
	assert.Equal(t, undamped.Attention, expired.Attention, "damping expires with the window")
}

func TestScoreMoralConflictBonusAndTrigger(t *testing.T) {
	params := DefaultParams()
	base := &karma.Profile{Character: 5}
	base.Dimensions[karma.DimMercy] = 40

	conflicted := &karma.Profile{Character: 5}
	conflicted.Dimensions[karma.DimMercy] = 40
	conflicted.Dimensions[karma.DimCruelty] = 40

	s1 := Score(base, deity.Solenne, CharacterContext{}, time.Time{}, params, scoreNow)
	s2 := Score(conflicted, deity.Solenne, CharacterContext{}, time.Time{}, params, scoreNow)

	assert.False(t, s1.Triggers.MoralConflict)
	assert.True(t, s2.Triggers.MoralConflict)
	assert.Greater(t, s2.Attention, s1.Attention)
}

func TestScoreRivalFavorTrigger(t *testing.T) {
	params := DefaultParams()
	p := &karma.Profile{Character: 6}
	p.Affinities.Set(deity.Vhorag, 70)

	s := Score(p, deity.Solenne, CharacterContext{}, time.Time{}, params, scoreNow)
	assert.True(t, s.Triggers.RivalFavored, "Vhorag's favorites intrigue Solenne")
	assert.Greater(t, s.Attention, 0.0)
}

func TestInterestThresholdProximity(t *testing.T) {
	params := DefaultParams()

	near := &karma.Profile{Character: 7}
	near.Affinities.Set(deity.Solenne, 48) // within 3 of 50

	far := &karma.Profile{Character: 7}
	far.Affinities.Set(deity.Solenne, 40)

	sNear := Score(near, deity.Solenne, CharacterContext{}, time.Time{}, params, scoreNow)
	sFar := Score(far, deity.Solenne, CharacterContext{}, time.Time{}, params, scoreNow)

	assert.Greater(t, sNear.Interest, sFar.Interest, "about-to-flip characters build anticipation")
}

func TestInterestLeadershipAndBoons(t *testing.T) {
	params := DefaultParams()
	p := &karma.Profile{Character: 8}

	plain := Score(p, deity.Solenne, CharacterContext{}, time.Time{}, params, scoreNow)
	leader := Score(p, deity.Solenne, CharacterContext{Leader: true}, time.Time{}, params, scoreNow)
	blessed := Score(p, deity.Solenne, CharacterContext{Blessed: true}, time.Time{}, params, scoreNow)

	assert.Greater(t, leader.Interest, plain.Interest)
	assert.Greater(t, blessed.Interest, plain.Interest)
	assert.True(t, leader.Triggers.GroupLeader)
}

func TestNearThreshold(t *testing.T) {
	assert.True(t, nearThreshold(25, 3))
	assert.True(t, nearThreshold(-27, 3))
	assert.True(t, nearThreshold(88, 3))
	assert.False(t, nearThreshold(40, 3))
	assert.False(t, nearThreshold(0, 3))
}
