// Package deity provides the two fixed deity identities and their per-deity
// agent state: mood, activity phase, global cooldown, and narrative dials.
package deity

import "time"

// ID identifies a deity. Exactly two exist; zero means "no deity".
type ID uint8

const (
	None    ID = 0
	Solenne ID = 1 // honor, mercy, justice
	Vhorag  ID = 2 // cunning, cruelty, chaos
)

// All returns the two fixed deity identities.
func All() []ID {
	return []ID{Solenne, Vhorag}
}

// Rival returns the opposing deity.
func (id ID) Rival() ID {
	switch id {
	case Solenne:
		return Vhorag
	case Vhorag:
		return Solenne
	default:
		return None
	}
}

// Valid reports whether id names an actual deity.
func (id ID) Valid() bool {
	return id == Solenne || id == Vhorag
}

func (id ID) String() string {
	switch id {
	case Solenne:
		return "solenne"
	case Vhorag:
		return "vhorag"
	default:
		return "none"
	}
}

// ParseID maps a deity name back to its ID.
func ParseID(s string) (ID, bool) {
	switch s {
	case "solenne":
		return Solenne, true
	case "vhorag":
		return Vhorag, true
	default:
		return None, false
	}
}

// Mood is a deity's emotional bucket, ordered from worst to best.
type Mood int8

const (
	MoodWrathful Mood = iota
	MoodDispleased
	MoodNeutral
	MoodPleased
	MoodExultant
)

func (m Mood) String() string {
	switch m {
	case MoodWrathful:
		return "wrathful"
	case MoodDispleased:
		return "displeased"
	case MoodNeutral:
		return "neutral"
	case MoodPleased:
		return "pleased"
	default:
		return "exultant"
	}
}

// Benevolent reports whether the mood favors gentle manifestations.
func (m Mood) Benevolent() bool {
	return m >= MoodPleased
}

// Harsh reports whether the mood favors stern manifestations.
func (m Mood) Harsh() bool {
	return m <= MoodDispleased
}

// Phase is a deity's activity-intensity bucket, ordered low to high.
type Phase uint8

const (
	PhaseDormant Phase = iota
	PhaseDrowsy
	PhaseWatchful
	PhaseFervent
)

func (p Phase) String() string {
	switch p {
	case PhaseDormant:
		return "dormant"
	case PhaseDrowsy:
		return "drowsy"
	case PhaseWatchful:
		return "watchful"
	default:
		return "fervent"
	}
}

// Dials are the narrative stat knobs that bias evaluation, each in [0, 1].
type Dials struct {
	Influence   float64 `json:"influence" db:"influence"`     // overall reach
	Patience    float64 `json:"patience" db:"patience"`       // dampens all draws
	Wrath       float64 `json:"wrath" db:"wrath"`             // boosts stern types
	Benevolence float64 `json:"benevolence" db:"benevolence"` // boosts gentle types
}

// AgentState is the global per-deity state, loaded and saved each tick cycle.
// It is a plain value object so tests can inject a fixed state.
type AgentState struct {
	Deity            ID
	Mood             Mood
	Phase            Phase
	LastIntervention time.Time
	GlobalCooldown   time.Duration
	Dials            Dials
}

// GloballyEligible reports whether the deity may intervene at all right now:
// the global cooldown has expired and the deity is not dormant.
func (s AgentState) GloballyEligible(now time.Time) bool {
	if s.Phase == PhaseDormant {
		return false
	}
	if s.LastIntervention.IsZero() {
		return true
	}
	return !now.Before(s.LastIntervention.Add(s.GlobalCooldown))
}

// DefaultState returns the starting state for a deity. Dials reflect each
// deity's temperament; everything is tunable via persistence afterwards.
func DefaultState(id ID) AgentState {
	st := AgentState{
		Deity:          id,
		Mood:           MoodNeutral,
		Phase:          PhaseWatchful,
		GlobalCooldown: 6 * time.Hour,
	}
	switch id {
	case Solenne:
		st.Dials = Dials{Influence: 0.6, Patience: 0.7, Wrath: 0.2, Benevolence: 0.8}
	case Vhorag:
		st.Dials = Dials{Influence: 0.6, Patience: 0.3, Wrath: 0.8, Benevolence: 0.2}
	}
	return st
}
