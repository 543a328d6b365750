// Package karma provides the moral-ledger data model consumed by the
// attention engine. Profiles are written by an external ledger; this core
// only reads them.
package karma

import (
	"time"

	"github.com/talgya/godwatch/internal/deity"
)

// CharacterID is a unique identifier for a player character.
type CharacterID uint64

// Dimension is one of the ten moral axes tracked per character.
type Dimension uint8

const (
	DimHonor Dimension = iota
	DimMercy
	DimCruelty
	DimGreed
	DimCourage
	DimDeceit
	DimLoyalty
	DimChaos
	DimJustice
	DimTemperance
)

// NumDimensions is the total number of moral axes.
const NumDimensions = 10

// DimLimit bounds every dimension value and affinity to [-DimLimit, DimLimit].
const DimLimit = 100

// MaxActionMagnitude bounds a single action's karma delta.
const MaxActionMagnitude = 20

func (d Dimension) String() string {
	names := [NumDimensions]string{
		"honor", "mercy", "cruelty", "greed", "courage",
		"deceit", "loyalty", "chaos", "justice", "temperance",
	}
	if int(d) < len(names) {
		return names[d]
	}
	return "unknown"
}

// Dimensions is a fixed-size array of the ten moral axes.
// Inline in Profile — zero heap allocation.
type Dimensions [NumDimensions]int

// Clamp bounds every dimension to the valid range.
func (ds *Dimensions) Clamp() {
	for i, v := range ds {
		ds[i] = ClampValue(v)
	}
}

// ClampValue bounds a dimension or affinity value to [-DimLimit, DimLimit].
func ClampValue(v int) int {
	if v > DimLimit {
		return DimLimit
	}
	if v < -DimLimit {
		return -DimLimit
	}
	return v
}

// Action is one discrete moral act in a character's recent history.
type Action struct {
	Dimension   Dimension `json:"dimension"`
	Magnitude   int       `json:"magnitude"` // signed, bounded
	WitnessedBy deity.ID  `json:"witnessed_by,omitempty"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// Affinities holds the per-deity affinity scalars.
type Affinities [2]int

// Get returns the affinity toward one deity.
func (a Affinities) Get(id deity.ID) int {
	if !id.Valid() {
		return 0
	}
	return a[id-1]
}

// Set stores a clamped affinity toward one deity.
func (a *Affinities) Set(id deity.ID, v int) {
	if id.Valid() {
		a[id-1] = ClampValue(v)
	}
}

// Profile is a read-only snapshot of one character's moral ledger: the ten
// dimensions, the capped recent-action log (oldest first), and the per-deity
// affinities.
type Profile struct {
	Character  CharacterID
	Dimensions Dimensions
	Affinities Affinities
	Actions    []Action
}

// MaxActionLog caps the recent-action history retained per character.
const MaxActionLog = 200

// RecentActionCount returns how many actions occurred within the window
// ending at now.
func (p *Profile) RecentActionCount(now time.Time, window time.Duration) int {
	cutoff := now.Add(-window)
	n := 0
	for _, a := range p.Actions {
		if !a.OccurredAt.Before(cutoff) {
			n++
		}
	}
	return n
}

// opposingPairs lists dimension pairs that pull a soul in opposite directions.
var opposingPairs = [4][2]Dimension{
	{DimMercy, DimCruelty},
	{DimHonor, DimDeceit},
	{DimJustice, DimChaos},
	{DimTemperance, DimGreed},
}

// MoralConflictThreshold is the magnitude both sides of an opposing pair must
// reach for the pair to count as a conflict.
const MoralConflictThreshold = 30

// HasMoralConflict reports whether any opposing dimension pair is
// simultaneously high-magnitude — a character at war with itself.
func (p *Profile) HasMoralConflict() bool {
	for _, pair := range opposingPairs {
		a := abs(p.Dimensions[pair[0]])
		b := abs(p.Dimensions[pair[1]])
		if a >= MoralConflictThreshold && b >= MoralConflictThreshold {
			return true
		}
	}
	return false
}

// ExtremeKarma reports whether any single dimension sits near its bound.
func (p *Profile) ExtremeKarma() bool {
	for _, v := range p.Dimensions {
		if abs(v) >= 80 {
			return true
		}
	}
	return false
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
