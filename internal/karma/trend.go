package karma

// Trend classifies a character's recent karma movement from one deity's
// point of view.
type Trend uint8

const (
	TrendStable Trend = iota
	TrendImproving
	TrendDeclining
	TrendVolatile
)

func (t Trend) String() string {
	switch t {
	case TrendImproving:
		return "improving"
	case TrendDeclining:
		return "declining"
	case TrendVolatile:
		return "volatile"
	default:
		return "stable"
	}
}

// Dramatic reports whether the trend carries narrative tension.
func (t Trend) Dramatic() bool {
	return t == TrendVolatile || t == TrendDeclining
}
