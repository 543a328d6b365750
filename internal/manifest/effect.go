package manifest

import (
	"encoding/json"
	"log/slog"
)

// EffectVersion is the current effect schema version. Bump on breaking
// changes so old rows stay decodable.
const EffectVersion = 1

// EffectKind is the closed set of effect payload shapes.
type EffectKind string

const (
	EffectNone     EffectKind = "none"
	EffectFortune  EffectKind = "fortune"   // luck modifier for a duration
	EffectSanity   EffectKind = "sanity"    // sanity delta on delivery
	EffectVisitant EffectKind = "visitant"  // spawn hint for a disguised NPC
)

// Effect is the structured payload attached to a manifestation. A tagged
// struct rather than a grab-bag map, so a parse failure is rare rather than
// routine.
type Effect struct {
	Version       int        `json:"version"`
	Kind          EffectKind `json:"kind"`
	LuckDelta     int        `json:"luck_delta,omitempty"`
	SanityDelta   int        `json:"sanity_delta,omitempty"`
	DurationHours int        `json:"duration_hours,omitempty"`
	VisitantRole  string     `json:"visitant_role,omitempty"`
}

// EffectFor builds the effect hints for a manifestation. Pure lookup —
// gentle subtypes grant fortune, stern ones cost sanity or summon a
// visitant. Whispers carry no mechanical effect.
func EffectFor(t Type, st Subtype) *Effect {
	e := &Effect{Version: EffectVersion, Kind: EffectNone}

	switch t {
	case TypeWhisper:
		return e
	case TypeEncounter:
		e.Kind = EffectVisitant
		e.VisitantRole = visitantRole(st)
		return e
	}

	switch st {
	case SubtypeEncouragement, SubtypeComfort, SubtypePortent:
		e.Kind = EffectFortune
		e.LuckDelta = 5
		e.DurationHours = 24
	case SubtypeWarning, SubtypeTest, SubtypeTemptation:
		e.Kind = EffectFortune
		e.LuckDelta = -3
		e.DurationHours = 12
	case SubtypeRebuke, SubtypeMockery:
		e.Kind = EffectSanity
		e.SanityDelta = -5
	}
	return e
}

func visitantRole(st Subtype) string {
	switch st {
	case SubtypeEncouragement, SubtypeComfort:
		return "beggar"
	case SubtypeWarning, SubtypePortent:
		return "hermit"
	case SubtypeTemptation, SubtypeTest:
		return "merchant"
	default:
		return "stranger"
	}
}

// EncodeEffect serializes an effect for storage. Nil encodes as empty.
func EncodeEffect(e *Effect) string {
	if e == nil {
		return ""
	}
	b, err := json.Marshal(e)
	if err != nil {
		slog.Warn("effect encode failed", "error", err)
		return ""
	}
	return string(b)
}

// DecodeEffect parses a stored effect blob. A malformed blob is logged and
// yields no effect rather than an error — a player never sees a parse
// failure.
func DecodeEffect(raw string) *Effect {
	if raw == "" {
		return nil
	}
	var e Effect
	if err := json.Unmarshal([]byte(raw), &e); err != nil {
		slog.Warn("effect decode failed, dropping payload", "error", err)
		return nil
	}
	return &e
}
