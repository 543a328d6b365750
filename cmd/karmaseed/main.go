// Command karmaseed populates a development database with sample characters,
// karma profiles, action history, and world-activity events, so godwatchd has
// a population to watch without the surrounding game running.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"time"

	"github.com/talgya/godwatch/internal/deity"
	"github.com/talgya/godwatch/internal/karma"
	"github.com/talgya/godwatch/internal/persistence"
)

var worldEventKinds = []string{
	"honorable_act", "justice_served", "fair_duel", "cheater_exposed",
	"law_broken", "escape", "chaos_event", "rebellion",
}

var firstNames = []string{
	"Aldric", "Brenna", "Cassia", "Darek", "Elowen", "Fenric",
	"Gisela", "Hadrian", "Isolde", "Joren", "Katriel", "Lysander",
}

func main() {
	dbPath := flag.String("db", "data/godwatch.db", "database path")
	count := flag.Int("characters", 40, "number of characters to seed")
	days := flag.Int("days", 7, "days of action history")
	seed := flag.Int64("seed", 42, "rng seed")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	db, err := persistence.Open(*dbPath)
	if err != nil {
		slog.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := db.EnsureDeityStates(); err != nil {
		slog.Error("failed to ensure deity states", "error", err)
		os.Exit(1)
	}

	rng := rand.New(rand.NewSource(*seed))
	now := time.Now().UTC()

	for i := 1; i <= *count; i++ {
		ch := karma.CharacterID(i)
		name := fmt.Sprintf("%s %d", firstNames[rng.Intn(len(firstNames))], i)

		err := db.UpsertCharacter(ch, name,
			1+rng.Intn(30),     // level
			rng.Intn(10) == 0,  // leader
			rng.Intn(8) == 0,   // blessed
			rng.Intn(12) == 0)  // cursed
		if err != nil {
			slog.Error("seed character failed", "character", ch, "error", err)
			os.Exit(1)
		}

		p := &karma.Profile{Character: ch}
		for d := range p.Dimensions {
			p.Dimensions[d] = rng.Intn(161) - 80
		}
		p.Dimensions.Clamp()
		p.Affinities.Set(deity.Solenne, rng.Intn(201)-100)
		p.Affinities.Set(deity.Vhorag, rng.Intn(201)-100)

		if err := db.UpsertProfile(p, now); err != nil {
			slog.Error("seed profile failed", "character", ch, "error", err)
			os.Exit(1)
		}

		// Action history spread across the trailing window.
		actions := rng.Intn(4 * *days)
		for a := 0; a < actions; a++ {
			witness := deity.None
			switch rng.Intn(4) {
			case 0:
				witness = deity.Solenne
			case 1:
				witness = deity.Vhorag
			}
			act := karma.Action{
				Dimension:   karma.Dimension(rng.Intn(karma.NumDimensions)),
				Magnitude:   rng.Intn(2*karma.MaxActionMagnitude+1) - karma.MaxActionMagnitude,
				WitnessedBy: witness,
				OccurredAt:  now.Add(-time.Duration(rng.Intn(*days*24)) * time.Hour),
			}
			if err := db.AppendAction(ch, act); err != nil {
				slog.Error("seed action failed", "character", ch, "error", err)
				os.Exit(1)
			}
		}
	}

	// World activity for the mood pass.
	events := *count * 2
	for i := 0; i < events; i++ {
		kind := worldEventKinds[rng.Intn(len(worldEventKinds))]
		ch := karma.CharacterID(1 + rng.Intn(*count))
		at := now.Add(-time.Duration(rng.Intn(24)) * time.Hour)
		if err := db.AddWorldEvent(kind, ch, at); err != nil {
			slog.Error("seed world event failed", "error", err)
			os.Exit(1)
		}
	}

	slog.Info("seed complete", "characters", *count, "world_events", events, "db", *dbPath)
}
