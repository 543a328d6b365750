package persistence

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/talgya/godwatch/internal/attention"
	"github.com/talgya/godwatch/internal/deity"
	"github.com/talgya/godwatch/internal/karma"
)

// Profile loads a character's karma snapshot: dimensions, affinities, and the
// recent-action log since the given cutoff (oldest first). Returns
// ErrNotFound if the ledger has no row for the character.
func (db *DB) Profile(ch karma.CharacterID, since time.Time) (*karma.Profile, error) {
	var row struct {
		DimsJSON        string `db:"dims_json"`
		AffinitySolenne int    `db:"affinity_solenne"`
		AffinityVhorag  int    `db:"affinity_vhorag"`
	}
	err := db.conn.Get(&row,
		"SELECT dims_json, affinity_solenne, affinity_vhorag FROM karma_profiles WHERE character_id = ?", ch)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load profile %d: %w", ch, err)
	}

	p := &karma.Profile{Character: ch}
	if err := json.Unmarshal([]byte(row.DimsJSON), &p.Dimensions); err != nil {
		return nil, fmt.Errorf("decode dimensions for %d: %w", ch, err)
	}
	p.Dimensions.Clamp()
	p.Affinities.Set(deity.Solenne, row.AffinitySolenne)
	p.Affinities.Set(deity.Vhorag, row.AffinityVhorag)

	var actions []struct {
		Dimension   uint8 `db:"dimension"`
		Magnitude   int   `db:"magnitude"`
		WitnessedBy uint8 `db:"witnessed_by"`
		OccurredAt  int64 `db:"occurred_at"`
	}
	err = db.conn.Select(&actions,
		`SELECT dimension, magnitude, witnessed_by, occurred_at FROM karma_actions
		 WHERE character_id = ? AND occurred_at >= ?
		 ORDER BY occurred_at ASC LIMIT ?`,
		ch, since.Unix(), karma.MaxActionLog)
	if err != nil {
		return nil, fmt.Errorf("load actions for %d: %w", ch, err)
	}
	for _, a := range actions {
		p.Actions = append(p.Actions, karma.Action{
			Dimension:   karma.Dimension(a.Dimension),
			Magnitude:   a.Magnitude,
			WitnessedBy: deity.ID(a.WitnessedBy),
			OccurredAt:  time.Unix(a.OccurredAt, 0).UTC(),
		})
	}

	return p, nil
}

// CharacterContext loads the non-karma scoring inputs for a character: the
// social-structure leadership flag, level, and active blessing/curse flags.
// A missing character yields a zero context, not an error.
func (db *DB) CharacterContext(ch karma.CharacterID) (attention.CharacterContext, error) {
	var row struct {
		Level   int  `db:"level"`
		Leader  bool `db:"leader"`
		Blessed bool `db:"blessed"`
		Cursed  bool `db:"cursed"`
	}
	err := db.conn.Get(&row,
		"SELECT level, leader, blessed, cursed FROM characters WHERE id = ?", ch)
	if errors.Is(err, sql.ErrNoRows) {
		return attention.CharacterContext{}, nil
	}
	if err != nil {
		return attention.CharacterContext{}, fmt.Errorf("load character %d: %w", ch, err)
	}
	return attention.CharacterContext{
		Leader:  row.Leader,
		Level:   row.Level,
		Blessed: row.Blessed,
		Cursed:  row.Cursed,
	}, nil
}

// WorldActivity aggregates the named population-wide counters over a trailing
// window, for the mood pass. One query per counter family, no per-character
// fan-out.
func (db *DB) WorldActivity(since time.Time) (deity.WorldActivity, error) {
	var w deity.WorldActivity
	cutoff := since.Unix()

	var kinds []struct {
		Kind string `db:"kind"`
		N    int    `db:"n"`
	}
	err := db.conn.Select(&kinds,
		"SELECT kind, COUNT(*) AS n FROM world_events WHERE occurred_at >= ? GROUP BY kind", cutoff)
	if err != nil {
		return w, fmt.Errorf("world event counts: %w", err)
	}
	for _, k := range kinds {
		switch k.Kind {
		case "honorable_act":
			w.HonorableActs = k.N
		case "justice_served":
			w.JusticeServed = k.N
		case "fair_duel":
			w.FairDuels = k.N
		case "cheater_exposed":
			w.CheatersExposed = k.N
		case "law_broken":
			w.LawsBroken = k.N
		case "escape":
			w.Escapes = k.N
		case "chaos_event":
			w.ChaosEvents = k.N
		case "rebellion":
			w.Rebellions = k.N
		}
	}

	err = db.conn.Get(&w.ActiveCharacters,
		"SELECT COUNT(DISTINCT character_id) FROM karma_actions WHERE occurred_at >= ?", cutoff)
	if err != nil {
		return w, fmt.Errorf("active character count: %w", err)
	}

	err = db.conn.Get(&w.HighMagnitudeEvents,
		"SELECT COUNT(*) FROM karma_actions WHERE occurred_at >= ? AND ABS(magnitude) >= ?",
		cutoff, karma.MaxActionMagnitude/2)
	if err != nil {
		return w, fmt.Errorf("high magnitude count: %w", err)
	}

	return w, nil
}

// UpsertCharacter writes a character row. Used by the seeder and tests; the
// live table is owned by the surrounding game.
func (db *DB) UpsertCharacter(ch karma.CharacterID, name string, level int, leader, blessed, cursed bool) error {
	_, err := db.conn.Exec(
		`INSERT INTO characters (id, name, level, leader, blessed, cursed)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   name = excluded.name, level = excluded.level, leader = excluded.leader,
		   blessed = excluded.blessed, cursed = excluded.cursed`,
		ch, name, level, leader, blessed, cursed)
	if err != nil {
		return fmt.Errorf("upsert character %d: %w", ch, err)
	}
	return nil
}

// UpsertProfile writes a karma profile row. Ledger-writer territory; exposed
// for the seeder and tests.
func (db *DB) UpsertProfile(p *karma.Profile, now time.Time) error {
	dims, err := json.Marshal(p.Dimensions)
	if err != nil {
		return fmt.Errorf("encode dimensions: %w", err)
	}
	_, err = db.conn.Exec(
		`INSERT INTO karma_profiles (character_id, dims_json, affinity_solenne, affinity_vhorag, updated_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(character_id) DO UPDATE SET
		   dims_json = excluded.dims_json,
		   affinity_solenne = excluded.affinity_solenne,
		   affinity_vhorag = excluded.affinity_vhorag,
		   updated_at = excluded.updated_at`,
		p.Character, string(dims),
		p.Affinities.Get(deity.Solenne), p.Affinities.Get(deity.Vhorag), now.Unix())
	if err != nil {
		return fmt.Errorf("upsert profile %d: %w", p.Character, err)
	}
	return nil
}

// AppendAction records a karma action and trims the per-character log to its
// cap. Ledger-writer territory; exposed for the seeder and tests.
func (db *DB) AppendAction(ch karma.CharacterID, a karma.Action) error {
	_, err := db.conn.Exec(
		`INSERT INTO karma_actions (character_id, dimension, magnitude, witnessed_by, occurred_at)
		 VALUES (?, ?, ?, ?, ?)`,
		ch, a.Dimension, a.Magnitude, a.WitnessedBy, a.OccurredAt.Unix())
	if err != nil {
		return fmt.Errorf("append action for %d: %w", ch, err)
	}

	_, err = db.conn.Exec(
		`DELETE FROM karma_actions WHERE character_id = ? AND id NOT IN (
		   SELECT id FROM karma_actions WHERE character_id = ?
		   ORDER BY occurred_at DESC, id DESC LIMIT ?)`,
		ch, ch, karma.MaxActionLog)
	if err != nil {
		return fmt.Errorf("trim action log for %d: %w", ch, err)
	}
	return nil
}

// AddWorldEvent records one population-wide activity event.
func (db *DB) AddWorldEvent(kind string, ch karma.CharacterID, at time.Time) error {
	_, err := db.conn.Exec(
		"INSERT INTO world_events (kind, character_id, occurred_at) VALUES (?, ?, ?)",
		kind, ch, at.Unix())
	if err != nil {
		return fmt.Errorf("add world event: %w", err)
	}
	return nil
}
