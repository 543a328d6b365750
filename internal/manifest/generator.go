package manifest

import (
	"context"
	"fmt"

	"github.com/talgya/godwatch/internal/deity"
	"github.com/talgya/godwatch/internal/karma"
)

// Request carries the karma context handed to the message generator.
type Request struct {
	Deity    deity.ID
	Type     Type
	Subtype  Subtype
	Trend    karma.Trend
	Affinity int
	Blessed  bool
	Cursed   bool
}

// Generator produces the display string for a manifestation. The engine
// treats it as a black box: it must be callable synchronously and must not
// mutate engine state. A failing generator abandons that single dispatch.
type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// PhraseGenerator is the built-in generator: a small fixed phrase table so
// the daemon runs standalone. A richer narrative service can replace it
// behind the same interface.
type PhraseGenerator struct{}

var phrases = map[Subtype]string{
	SubtypeEncouragement: "your steps have not gone unseen, and they please me",
	SubtypeTest:          "you walk a better road than I expected of you. prove it was not chance",
	SubtypeWarning:       "turn back before the path you have chosen chooses you",
	SubtypeRebuke:        "you were warned, and you spat upon the warning",
	SubtypePortent:       "the threads around you fray and reknot faster than fate can follow",
	SubtypeMockery:       "how you flail. it is almost entertaining",
	SubtypeComfort:       "rest easy; my gaze upon you is a kindly one",
	SubtypeTemptation:    "there is an easier road, if you would only look at it",
}

var openings = map[Type]string{
	TypeWhisper:    "A voice only you can hear murmurs:",
	TypeOmen:       "A sign forms where none should be:",
	TypeEncounter:  "A stranger meets your eye and says:",
	TypeDream:      "In your dream, a presence speaks:",
	TypeApparition: "The air splits, and something vast regards you:",
}

// Generate renders a deterministic phrase for the request.
func (PhraseGenerator) Generate(_ context.Context, req Request) (string, error) {
	phrase, ok := phrases[req.Subtype]
	if !ok {
		return "", fmt.Errorf("no phrase for subtype %q", req.Subtype)
	}
	opening, ok := openings[req.Type]
	if !ok {
		return "", fmt.Errorf("no opening for type %q", req.Type)
	}

	var signature string
	switch req.Deity {
	case deity.Solenne:
		signature = "The light lingers a moment longer than it should."
	case deity.Vhorag:
		signature = "Somewhere close, something laughs without sound."
	}

	return fmt.Sprintf("%s %q. %s", opening, phrase, signature), nil
}
