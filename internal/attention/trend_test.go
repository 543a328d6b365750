package attention

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/talgya/godwatch/internal/deity"
	"github.com/talgya/godwatch/internal/karma"
)

var trendNow = time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)

// dayActions builds one witnessed action per listed day, carrying that day's
// whole delta, so bucket deltas equal the given values exactly.
func dayActions(d deity.ID, deltas []int) []karma.Action {
	var actions []karma.Action
	for day, delta := range deltas {
		actions = append(actions, karma.Action{
			Dimension:   karma.DimHonor,
			Magnitude:   delta,
			WitnessedBy: d,
			OccurredAt:  trendNow.Add(-time.Duration(day)*24*time.Hour - time.Hour),
		})
	}
	return actions
}

func TestTrendImproving(t *testing.T) {
	actions := dayActions(deity.Solenne, []int{8, 9, 7})
	got := ClassifyTrend(actions, deity.Solenne, DefaultParams(), trendNow)
	assert.Equal(t, karma.TrendImproving, got)
}

func TestTrendVolatile(t *testing.T) {
	actions := dayActions(deity.Solenne, []int{9, -9, 10})
	got := ClassifyTrend(actions, deity.Solenne, DefaultParams(), trendNow)
	assert.Equal(t, karma.TrendVolatile, got)
}

func TestTrendDeclining(t *testing.T) {
	actions := dayActions(deity.Solenne, []int{-8, -7, -9})
	got := ClassifyTrend(actions, deity.Solenne, DefaultParams(), trendNow)
	assert.Equal(t, karma.TrendDeclining, got)
}

func TestTrendStableWithSparseHistory(t *testing.T) {
	p := DefaultParams()

	assert.Equal(t, karma.TrendStable, ClassifyTrend(nil, deity.Solenne, p, trendNow))

	oneDay := dayActions(deity.Solenne, []int{15})
	assert.Equal(t, karma.TrendStable, ClassifyTrend(oneDay, deity.Solenne, p, trendNow),
		"a single bucket is not a trajectory")
}

func TestTrendStableOnSmallDeltas(t *testing.T) {
	actions := dayActions(deity.Solenne, []int{1, -1, 2})
	got := ClassifyTrend(actions, deity.Solenne, DefaultParams(), trendNow)
	assert.Equal(t, karma.TrendStable, got)
}

func TestTrendDeterministic(t *testing.T) {
	actions := dayActions(deity.Vhorag, []int{5, -12, 9, 3})
	first := ClassifyTrend(actions, deity.Vhorag, DefaultParams(), trendNow)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, ClassifyTrend(actions, deity.Vhorag, DefaultParams(), trendNow))
	}
}

func TestTrendFiltersRivalWitnessedActions(t *testing.T) {
	// All actions witnessed by the rival — invisible to this deity.
	actions := dayActions(deity.Vhorag, []int{8, 9, 7})
	got := ClassifyTrend(actions, deity.Solenne, DefaultParams(), trendNow)
	assert.Equal(t, karma.TrendStable, got)
}

func TestTrendDislikedDimensionInverts(t *testing.T) {
	// Solenne weighs deceit negatively, so rising deceit reads as decline.
	var actions []karma.Action
	for day := 0; day < 3; day++ {
		actions = append(actions, karma.Action{
			Dimension:  karma.DimDeceit,
			Magnitude:  8,
			OccurredAt: trendNow.Add(-time.Duration(day)*24*time.Hour - time.Hour),
		})
	}
	got := ClassifyTrend(actions, deity.Solenne, DefaultParams(), trendNow)
	assert.Equal(t, karma.TrendDeclining, got, "growing deceit is decline in Solenne's eyes")
}

func TestTrendIgnoresActionsOutsideWindow(t *testing.T) {
	p := DefaultParams()
	actions := dayActions(deity.Solenne, []int{8, 9})
	actions = append(actions, karma.Action{
		Dimension:   karma.DimHonor,
		Magnitude:   -50,
		WitnessedBy: deity.Solenne,
		OccurredAt:  trendNow.Add(-time.Duration(p.TrendWindowDays+2) * 24 * time.Hour),
	})
	got := ClassifyTrend(actions, deity.Solenne, p, trendNow)
	assert.Equal(t, karma.TrendImproving, got)
}
