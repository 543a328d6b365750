package persistence

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/talgya/godwatch/internal/deity"
)

type deityRow struct {
	Deity              uint8   `db:"deity"`
	Mood               int8    `db:"mood"`
	Phase              uint8   `db:"phase"`
	LastIntervention   int64   `db:"last_intervention"`
	GlobalCooldownSecs int64   `db:"global_cooldown_secs"`
	Influence          float64 `db:"influence"`
	Patience           float64 `db:"patience"`
	Wrath              float64 `db:"wrath"`
	Benevolence        float64 `db:"benevolence"`
}

// DeityState loads the global agent state for one deity.
func (db *DB) DeityState(d deity.ID) (deity.AgentState, error) {
	var row deityRow
	err := db.conn.Get(&row,
		`SELECT deity, mood, phase, last_intervention, global_cooldown_secs,
		        influence, patience, wrath, benevolence
		 FROM deity_state WHERE deity = ?`, d)
	if errors.Is(err, sql.ErrNoRows) {
		return deity.AgentState{}, ErrNotFound
	}
	if err != nil {
		return deity.AgentState{}, fmt.Errorf("load deity state %s: %w", d, err)
	}

	return deity.AgentState{
		Deity:            deity.ID(row.Deity),
		Mood:             deity.Mood(row.Mood),
		Phase:            deity.Phase(row.Phase),
		LastIntervention: fromUnix(row.LastIntervention),
		GlobalCooldown:   time.Duration(row.GlobalCooldownSecs) * time.Second,
		Dials: deity.Dials{
			Influence:   row.Influence,
			Patience:    row.Patience,
			Wrath:       row.Wrath,
			Benevolence: row.Benevolence,
		},
	}, nil
}

// SaveDeityState writes the full per-deity state. The mood pass replaces mood
// and phase wholesale each cycle; the intervention stamp is advanced only via
// the conditional update in ApplyDispatch, so it is preserved here.
func (db *DB) SaveDeityState(st deity.AgentState) error {
	_, err := db.conn.Exec(
		`INSERT INTO deity_state
		   (deity, mood, phase, last_intervention, global_cooldown_secs,
		    influence, patience, wrath, benevolence)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(deity) DO UPDATE SET
		   mood = excluded.mood,
		   phase = excluded.phase,
		   global_cooldown_secs = excluded.global_cooldown_secs,
		   influence = excluded.influence,
		   patience = excluded.patience,
		   wrath = excluded.wrath,
		   benevolence = excluded.benevolence`,
		st.Deity, st.Mood, st.Phase, toUnix(st.LastIntervention),
		int64(st.GlobalCooldown/time.Second),
		st.Dials.Influence, st.Dials.Patience, st.Dials.Wrath, st.Dials.Benevolence)
	if err != nil {
		return fmt.Errorf("save deity state %s: %w", st.Deity, err)
	}
	return nil
}

// EnsureDeityStates inserts default rows for any deity missing one. Called at
// startup so the two fixed rows always exist.
func (db *DB) EnsureDeityStates() error {
	for _, d := range deity.All() {
		_, err := db.DeityState(d)
		if err == nil {
			continue
		}
		if !errors.Is(err, ErrNotFound) {
			return err
		}
		if err := db.SaveDeityState(deity.DefaultState(d)); err != nil {
			return err
		}
	}
	return nil
}
