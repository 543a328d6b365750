package manifest

import "github.com/talgya/godwatch/internal/karma"

// Subtype names the narrative register of a manifestation. Whether a
// manifestation fires is probabilistic; which subtype it carries is a pure
// function of the character's trend and affinity sign, so the kind of message
// always matches recent behavior.
type Subtype string

const (
	SubtypeEncouragement Subtype = "encouragement" // improving, favored
	SubtypeTest          Subtype = "test"          // improving, but estranged
	SubtypeWarning       Subtype = "warning"       // declining, favored
	SubtypeRebuke        Subtype = "rebuke"        // declining, estranged
	SubtypePortent       Subtype = "portent"       // volatile, favored
	SubtypeMockery       Subtype = "mockery"       // volatile, estranged
	SubtypeComfort       Subtype = "comfort"       // stable, favored
	SubtypeTemptation    Subtype = "temptation"    // stable, estranged
)

// SubtypeFor maps (trend, affinity sign) to a subtype. Negative affinity
// means the character is estranged from this deity; zero counts as favored.
func SubtypeFor(trend karma.Trend, affinity int) Subtype {
	favored := affinity >= 0
	switch trend {
	case karma.TrendImproving:
		if favored {
			return SubtypeEncouragement
		}
		return SubtypeTest
	case karma.TrendDeclining:
		if favored {
			return SubtypeWarning
		}
		return SubtypeRebuke
	case karma.TrendVolatile:
		if favored {
			return SubtypePortent
		}
		return SubtypeMockery
	default:
		if favored {
			return SubtypeComfort
		}
		return SubtypeTemptation
	}
}
