package deity

// WorldActivity aggregates a trailing window of population-wide behavior into
// named counters. The store computes it once per cycle; both deities read the
// same counters and weight them with opposite signs on contested dimensions.
type WorldActivity struct {
	HonorableActs       int `db:"honorable_acts" json:"honorable_acts"`
	JusticeServed       int `db:"justice_served" json:"justice_served"`
	FairDuels           int `db:"fair_duels" json:"fair_duels"`
	CheatersExposed     int `db:"cheaters_exposed" json:"cheaters_exposed"`
	LawsBroken          int `db:"laws_broken" json:"laws_broken"`
	Escapes             int `db:"escapes" json:"escapes"`
	ChaosEvents         int `db:"chaos_events" json:"chaos_events"`
	Rebellions          int `db:"rebellions" json:"rebellions"`
	ActiveCharacters    int `db:"active_characters" json:"active_characters"`
	HighMagnitudeEvents int `db:"high_magnitude_events" json:"high_magnitude_events"`
}

// moodWeights maps activity counters to a signed mood contribution.
type moodWeights struct {
	honorable, justice, duels, exposed int
	broken, escapes, chaos, rebellions int
	highMagnitude                      int
}

func weightsFor(id ID) moodWeights {
	switch id {
	case Solenne:
		return moodWeights{
			honorable: 3, justice: 4, duels: 2, exposed: 3,
			broken: -3, escapes: -1, chaos: -2, rebellions: -4,
			highMagnitude: 1,
		}
	case Vhorag:
		return moodWeights{
			honorable: -2, justice: -3, duels: 1, exposed: -2,
			broken: 3, escapes: 3, chaos: 4, rebellions: 4,
			highMagnitude: 1,
		}
	default:
		return moodWeights{}
	}
}

// moodScoreClamp bounds the raw aggregate before bucketing.
const moodScoreClamp = 100

// AggregateMood maps the activity counters into a mood score and bucket for
// one deity. The result fully replaces the previous mood; nothing carries
// over between cycles.
func AggregateMood(id ID, w WorldActivity) (int, Mood) {
	mw := weightsFor(id)

	score := mw.honorable*w.HonorableActs +
		mw.justice*w.JusticeServed +
		mw.duels*w.FairDuels +
		mw.exposed*w.CheatersExposed +
		mw.broken*w.LawsBroken +
		mw.escapes*w.Escapes +
		mw.chaos*w.ChaosEvents +
		mw.rebellions*w.Rebellions +
		mw.highMagnitude*w.HighMagnitudeEvents

	if score > moodScoreClamp {
		score = moodScoreClamp
	}
	if score < -moodScoreClamp {
		score = -moodScoreClamp
	}

	return score, moodFromScore(score)
}

func moodFromScore(score int) Mood {
	switch {
	case score <= -50:
		return MoodWrathful
	case score <= -15:
		return MoodDispleased
	case score < 15:
		return MoodNeutral
	case score < 50:
		return MoodPleased
	default:
		return MoodExultant
	}
}

// PhaseFromActivity derives the activity phase from the count of distinct
// active characters in the window. Independent of mood.
func PhaseFromActivity(activeCharacters int) Phase {
	switch {
	case activeCharacters == 0:
		return PhaseDormant
	case activeCharacters < 10:
		return PhaseDrowsy
	case activeCharacters < 50:
		return PhaseWatchful
	default:
		return PhaseFervent
	}
}
