package attention

import (
	"time"

	"github.com/talgya/godwatch/internal/deity"
	"github.com/talgya/godwatch/internal/karma"
	"github.com/talgya/godwatch/internal/manifest"
)

// Triggers are the boolean flags raised during scoring. Persisted alongside
// the scores so the delivery layer can explain why a deity is watching.
type Triggers struct {
	ExtremeKarma  bool `json:"extreme_karma"`
	RecentDrama   bool `json:"recent_drama"`
	RivalFavored  bool `json:"rival_favored"`
	MoralConflict bool `json:"moral_conflict"`
	GroupLeader   bool `json:"group_leader"`
}

// Record tracks one deity's view of one character. Exactly one record exists
// per (character, deity) pair; created lazily on first evaluation and swept
// only when long dormant.
type Record struct {
	Character karma.CharacterID
	Deity     deity.ID

	Attention float64 // [0, 100]
	Interest  float64 // [0, 100]
	Triggers  Triggers
	Trend     karma.Trend

	// Per-type cooldown expiries and cumulative dispatch counts.
	Cooldowns [manifest.NumTypes]time.Time
	Counts    [manifest.NumTypes]int

	LastEvaluated    time.Time
	LastIntervention time.Time
	CreatedAt        time.Time
}

// NewRecord creates a fresh record for a pair.
func NewRecord(ch karma.CharacterID, d deity.ID, now time.Time) *Record {
	return &Record{Character: ch, Deity: d, Trend: karma.TrendStable, CreatedAt: now}
}

// OnCooldown reports whether a manifestation type is still cooling down.
func (r *Record) OnCooldown(t manifest.Type, now time.Time) bool {
	return now.Before(r.Cooldowns[t])
}

// ArmCooldown re-arms a type's cooldown after a dispatch and bumps its
// counter and the intervention stamp.
func (r *Record) ArmCooldown(t manifest.Type, now time.Time, d time.Duration) {
	r.Cooldowns[t] = now.Add(d)
	r.Counts[t]++
	r.LastIntervention = now
}

// TotalDispatches sums the per-type counters.
func (r *Record) TotalDispatches() int {
	total := 0
	for _, n := range r.Counts {
		total += n
	}
	return total
}
