package persistence

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/talgya/godwatch/internal/deity"
	"github.com/talgya/godwatch/internal/karma"
	"github.com/talgya/godwatch/internal/manifest"
)

type manifestRow struct {
	ID             string        `db:"id"`
	CharacterID    int64         `db:"character_id"`
	Deity          uint8         `db:"deity"`
	Type           uint8         `db:"type"`
	Subtype        string        `db:"subtype"`
	Message        string        `db:"message"`
	EffectJSON     string        `db:"effect_json"`
	Urgency        uint8         `db:"urgency"`
	Delivered      bool          `db:"delivered"`
	DeliveredAt    sql.NullInt64 `db:"delivered_at"`
	Acknowledged   bool          `db:"acknowledged"`
	AcknowledgedAt sql.NullInt64 `db:"acknowledged_at"`
	CreatedAt      int64         `db:"created_at"`
}

func (r manifestRow) toManifestation() manifest.Manifestation {
	m := manifest.Manifestation{
		ID:           r.ID,
		Character:    karma.CharacterID(r.CharacterID),
		Deity:        deity.ID(r.Deity),
		Type:         manifest.Type(r.Type),
		Subtype:      manifest.Subtype(r.Subtype),
		Message:      r.Message,
		Effect:       manifest.DecodeEffect(r.EffectJSON),
		Urgency:      manifest.Urgency(r.Urgency),
		Delivered:    r.Delivered,
		Acknowledged: r.Acknowledged,
		CreatedAt:    fromUnix(r.CreatedAt),
	}
	if r.DeliveredAt.Valid {
		t := fromUnix(r.DeliveredAt.Int64)
		m.DeliveredAt = &t
	}
	if r.AcknowledgedAt.Valid {
		t := fromUnix(r.AcknowledgedAt.Int64)
		m.AcknowledgedAt = &t
	}
	return m
}

const manifestColumns = `id, character_id, deity, type, subtype, message, effect_json,
	urgency, delivered, delivered_at, acknowledged, acknowledged_at, created_at`

func insertManifestation(tx *sqlx.Tx, m *manifest.Manifestation) error {
	_, err := tx.Exec(
		`INSERT INTO manifestations
		   (id, character_id, deity, type, subtype, message, effect_json, urgency, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.ID, m.Character, m.Deity, m.Type, string(m.Subtype), m.Message,
		manifest.EncodeEffect(m.Effect), m.Urgency, m.CreatedAt.Unix())
	if err != nil {
		return fmt.Errorf("insert manifestation %s: %w", m.ID, err)
	}
	return nil
}

// Undelivered returns a character's undelivered manifestations, oldest first,
// for the delivery layer to poll.
func (db *DB) Undelivered(ch karma.CharacterID, limit int) ([]manifest.Manifestation, error) {
	var rows []manifestRow
	err := db.conn.Select(&rows,
		"SELECT "+manifestColumns+` FROM manifestations
		 WHERE character_id = ? AND delivered = 0
		 ORDER BY created_at ASC LIMIT ?`, ch, limit)
	if err != nil {
		return nil, fmt.Errorf("undelivered for %d: %w", ch, err)
	}
	out := make([]manifest.Manifestation, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toManifestation())
	}
	return out, nil
}

// RecentManifestations returns a character's newest manifestations.
func (db *DB) RecentManifestations(ch karma.CharacterID, limit int) ([]manifest.Manifestation, error) {
	var rows []manifestRow
	err := db.conn.Select(&rows,
		"SELECT "+manifestColumns+` FROM manifestations
		 WHERE character_id = ?
		 ORDER BY created_at DESC LIMIT ?`, ch, limit)
	if err != nil {
		return nil, fmt.Errorf("recent manifestations for %d: %w", ch, err)
	}
	out := make([]manifest.Manifestation, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toManifestation())
	}
	return out, nil
}

// MarkDelivered flips the delivered flag exactly once. A second call finds
// the flag already set and is a no-op success — the desired end state holds
// either way. Returns ErrNotFound only when the record does not exist.
func (db *DB) MarkDelivered(id string, now time.Time) error {
	return db.markFlag(id, "delivered", "delivered_at", now)
}

// MarkAcknowledged flips the acknowledged flag exactly once, idempotently.
func (db *DB) MarkAcknowledged(id string, now time.Time) error {
	return db.markFlag(id, "acknowledged", "acknowledged_at", now)
}

func (db *DB) markFlag(id, flagCol, atCol string, now time.Time) error {
	res, err := db.conn.Exec(fmt.Sprintf(
		"UPDATE manifestations SET %s = 1, %s = ? WHERE id = ? AND %s = 0",
		flagCol, atCol, flagCol), now.Unix(), id)
	if err != nil {
		return fmt.Errorf("mark %s %s: %w", flagCol, id, err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return nil
	}

	// Lost the race or already done — distinguish "missing" from "idempotent".
	var exists int
	err = db.conn.Get(&exists, "SELECT 1 FROM manifestations WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("check manifestation %s: %w", id, err)
	}
	return nil
}

// PruneManifestations deletes records older than the retention cutoff.
func (db *DB) PruneManifestations(before time.Time) (int, error) {
	res, err := db.conn.Exec(
		"DELETE FROM manifestations WHERE created_at < ?", before.Unix())
	if err != nil {
		return 0, fmt.Errorf("prune manifestations: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

// ManifestationCount returns the total number of stored manifestations.
func (db *DB) ManifestationCount() (int, error) {
	var n int
	if err := db.conn.Get(&n, "SELECT COUNT(*) FROM manifestations"); err != nil {
		return 0, fmt.Errorf("count manifestations: %w", err)
	}
	return n, nil
}
