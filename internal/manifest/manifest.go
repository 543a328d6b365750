// Package manifest provides the manifestation record model: the closed set of
// intervention types, the trend-driven subtype lookup, effect payloads, and
// the message-generator boundary.
package manifest

import (
	"time"

	"github.com/talgya/godwatch/internal/deity"
	"github.com/talgya/godwatch/internal/karma"
)

// Type is the closed set of manifestation kinds, ordered least to most
// intrusive. Evaluation walks them in this order.
type Type uint8

const (
	TypeWhisper Type = iota
	TypeOmen
	TypeEncounter // disguised NPC encounter
	TypeDream
	TypeApparition
)

// NumTypes is the total number of manifestation types.
const NumTypes = 5

// Types returns all manifestation types in evaluation priority order.
func Types() [NumTypes]Type {
	return [NumTypes]Type{TypeWhisper, TypeOmen, TypeEncounter, TypeDream, TypeApparition}
}

func (t Type) String() string {
	switch t {
	case TypeWhisper:
		return "whisper"
	case TypeOmen:
		return "omen"
	case TypeEncounter:
		return "encounter"
	case TypeDream:
		return "dream"
	case TypeApparition:
		return "apparition"
	default:
		return "unknown"
	}
}

// ParseType maps a type name back to its Type.
func ParseType(s string) (Type, bool) {
	for _, t := range Types() {
		if t.String() == s {
			return t, true
		}
	}
	return 0, false
}

// Gentle reports whether the type reads as benevolent contact. Mood
// multipliers boost gentle types for pleased deities and stern types for
// displeased ones.
func (t Type) Gentle() bool {
	return t == TypeWhisper || t == TypeDream
}

// DefaultCooldown returns the per-type re-fire cooldown. Balance constants,
// overridable through engine params.
func (t Type) DefaultCooldown() time.Duration {
	switch t {
	case TypeWhisper:
		return time.Hour
	case TypeOmen:
		return 6 * time.Hour
	case TypeDream:
		return 12 * time.Hour
	case TypeEncounter:
		return 24 * time.Hour
	default:
		return 168 * time.Hour
	}
}

// Urgency grades how insistently a manifestation should be surfaced.
type Urgency uint8

const (
	UrgencyLow Urgency = iota
	UrgencyMedium
	UrgencyHigh
)

func (u Urgency) String() string {
	switch u {
	case UrgencyHigh:
		return "high"
	case UrgencyMedium:
		return "medium"
	default:
		return "low"
	}
}

// UrgencyFromAttention grades urgency from the attention score at dispatch.
func UrgencyFromAttention(attention float64) Urgency {
	switch {
	case attention >= 80:
		return UrgencyHigh
	case attention >= 50:
		return UrgencyMedium
	default:
		return UrgencyLow
	}
}

// Manifestation is an immutable intervention record. Once created, only the
// delivered and acknowledged flags may flip, each exactly once.
type Manifestation struct {
	ID             string            `db:"id" json:"id"`
	Character      karma.CharacterID `db:"character_id" json:"character_id"`
	Deity          deity.ID          `db:"deity" json:"deity"`
	Type           Type              `db:"type" json:"type"`
	Subtype        Subtype           `db:"subtype" json:"subtype"`
	Message        string            `db:"message" json:"message"`
	Effect         *Effect           `db:"-" json:"effect,omitempty"`
	Urgency        Urgency           `db:"urgency" json:"urgency"`
	Delivered      bool              `db:"delivered" json:"delivered"`
	DeliveredAt    *time.Time        `db:"-" json:"delivered_at,omitempty"`
	Acknowledged   bool              `db:"acknowledged" json:"acknowledged"`
	AcknowledgedAt *time.Time        `db:"-" json:"acknowledged_at,omitempty"`
	CreatedAt      time.Time         `db:"-" json:"created_at"`
}
