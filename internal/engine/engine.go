// Package engine provides the tick-based attention and intervention cycle:
// population selection, scoring, the cooldown-gated probabilistic evaluator,
// manifestation dispatch, and the per-deity mood pass.
package engine

import (
	"time"

	"github.com/talgya/godwatch/internal/attention"
	"github.com/talgya/godwatch/internal/deity"
	"github.com/talgya/godwatch/internal/entropy"
	"github.com/talgya/godwatch/internal/manifest"
	"github.com/talgya/godwatch/internal/persistence"
)

// Config holds the cycle orchestration knobs. Balance constants, not hidden
// contracts — every value is overridable.
type Config struct {
	// Batch selection bounds per deity per cycle.
	TopPerCycle       int
	DiscoveryPerCycle int

	// Discovery thresholds for characters with no record yet.
	DiscoveryMinAffinity int
	DiscoveryMinActions  int

	// Trailing windows.
	ActivityWindow time.Duration // action-log horizon for scoring and trend
	MoodWindow     time.Duration // world-activity rollup for the mood pass

	// Parallelism across characters within a cycle.
	MaxParallel int

	// Retention, run every SweepEveryCycles cycles.
	SweepEveryCycles     int
	SweepDormantAfter    time.Duration
	SweepMaxAttention    float64
	ManifestRetention    time.Duration

	// Time allowed for one generator call per dispatch.
	GenerateTimeout time.Duration
}

// DefaultConfig returns the tuned cycle defaults.
func DefaultConfig() Config {
	return Config{
		TopPerCycle:          50,
		DiscoveryPerCycle:    20,
		DiscoveryMinAffinity: 25,
		DiscoveryMinActions:  5,
		ActivityWindow:       7 * 24 * time.Hour,
		MoodWindow:           24 * time.Hour,
		MaxParallel:          4,
		SweepEveryCycles:     36,
		SweepDormantAfter:    30 * 24 * time.Hour,
		SweepMaxAttention:    10,
		ManifestRetention:    90 * 24 * time.Hour,
		GenerateTimeout:      10 * time.Second,
	}
}

// Engine wires the store, scoring params, entropy source, and message
// generator into the cycle. The clock is injectable for deterministic tests.
type Engine struct {
	DB        *persistence.DB
	Config    Config
	Params    attention.Params
	Entropy   entropy.Source
	Generator manifest.Generator
	Clock     func() time.Time

	cycles uint64
}

// New creates an Engine with the given collaborators, filling in defaults
// for any left nil or zero.
func New(db *persistence.DB, cfg Config, params attention.Params, src entropy.Source, gen manifest.Generator) *Engine {
	if src == nil {
		src = entropy.CryptoSource{}
	}
	if gen == nil {
		gen = manifest.PhraseGenerator{}
	}
	return &Engine{
		DB:        db,
		Config:    cfg,
		Params:    params,
		Entropy:   src,
		Generator: gen,
		Clock:     func() time.Time { return time.Now().UTC() },
	}
}

// Summary is the structured result of one batch cycle.
type Summary struct {
	Evaluated     int                       `json:"evaluated"`
	Discovered    int                       `json:"discovered"`
	Interventions map[deity.ID]int          `json:"-"`
	Moods         map[deity.ID]deity.Mood   `json:"-"`
	Phases        map[deity.ID]deity.Phase  `json:"-"`
	Duration      time.Duration             `json:"duration"`
}

func (e *Engine) now() time.Time {
	return e.Clock().UTC()
}
