// Package persistence provides SQLite-based storage for attention records,
// deity state, manifestations, and the karma read-side. Every cross-cycle
// state mutation is expressed as a conditional update so a stale or duplicate
// scheduler run can never double-dispatch.
package persistence

import (
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// DB wraps a SQLite connection for engine state persistence.
type DB struct {
	conn *sqlx.DB
}

// Open opens or creates a SQLite database at the given path.
func Open(path string) (*DB, error) {
	conn, err := sqlx.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	// SQLite admits one writer at a time; a single pooled connection queues
	// concurrent evaluation workers in-process instead of surfacing
	// SQLITE_BUSY from racing dispatch transactions.
	conn.SetMaxOpenConns(1)

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS characters (
		id INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		level INTEGER NOT NULL DEFAULT 1,
		leader INTEGER NOT NULL DEFAULT 0,
		blessed INTEGER NOT NULL DEFAULT 0,
		cursed INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS karma_profiles (
		character_id INTEGER PRIMARY KEY,
		dims_json TEXT NOT NULL,
		affinity_solenne INTEGER NOT NULL DEFAULT 0,
		affinity_vhorag INTEGER NOT NULL DEFAULT 0,
		updated_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS karma_actions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		character_id INTEGER NOT NULL,
		dimension INTEGER NOT NULL,
		magnitude INTEGER NOT NULL,
		witnessed_by INTEGER NOT NULL DEFAULT 0,
		occurred_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS world_events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		kind TEXT NOT NULL,
		character_id INTEGER,
		occurred_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS attention_records (
		character_id INTEGER NOT NULL,
		deity INTEGER NOT NULL,
		attention REAL NOT NULL DEFAULT 0,
		interest REAL NOT NULL DEFAULT 0,
		triggers_json TEXT NOT NULL DEFAULT '{}',
		trend INTEGER NOT NULL DEFAULT 0,
		cd_whisper INTEGER NOT NULL DEFAULT 0,
		cd_omen INTEGER NOT NULL DEFAULT 0,
		cd_encounter INTEGER NOT NULL DEFAULT 0,
		cd_dream INTEGER NOT NULL DEFAULT 0,
		cd_apparition INTEGER NOT NULL DEFAULT 0,
		n_whisper INTEGER NOT NULL DEFAULT 0,
		n_omen INTEGER NOT NULL DEFAULT 0,
		n_encounter INTEGER NOT NULL DEFAULT 0,
		n_dream INTEGER NOT NULL DEFAULT 0,
		n_apparition INTEGER NOT NULL DEFAULT 0,
		last_evaluated INTEGER NOT NULL DEFAULT 0,
		last_intervention INTEGER NOT NULL DEFAULT 0,
		created_at INTEGER NOT NULL,
		PRIMARY KEY (character_id, deity)
	);

	CREATE TABLE IF NOT EXISTS deity_state (
		deity INTEGER PRIMARY KEY,
		mood INTEGER NOT NULL,
		phase INTEGER NOT NULL,
		last_intervention INTEGER NOT NULL DEFAULT 0,
		global_cooldown_secs INTEGER NOT NULL,
		influence REAL NOT NULL,
		patience REAL NOT NULL,
		wrath REAL NOT NULL,
		benevolence REAL NOT NULL
	);

	CREATE TABLE IF NOT EXISTS manifestations (
		id TEXT PRIMARY KEY,
		character_id INTEGER NOT NULL,
		deity INTEGER NOT NULL,
		type INTEGER NOT NULL,
		subtype TEXT NOT NULL,
		message TEXT NOT NULL,
		effect_json TEXT NOT NULL DEFAULT '',
		urgency INTEGER NOT NULL,
		delivered INTEGER NOT NULL DEFAULT 0,
		delivered_at INTEGER,
		acknowledged INTEGER NOT NULL DEFAULT 0,
		acknowledged_at INTEGER,
		created_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_karma_actions_char_time ON karma_actions(character_id, occurred_at);
	CREATE INDEX IF NOT EXISTS idx_karma_actions_time ON karma_actions(occurred_at);
	CREATE INDEX IF NOT EXISTS idx_world_events_time ON world_events(occurred_at);
	CREATE INDEX IF NOT EXISTS idx_attention_score ON attention_records(deity, attention);
	CREATE INDEX IF NOT EXISTS idx_manifest_char_time ON manifestations(character_id, created_at);
	CREATE INDEX IF NOT EXISTS idx_manifest_delivered ON manifestations(delivered);
	`
	_, err := db.conn.Exec(schema)
	return err
}
