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
	"github.com/talgya/godwatch/internal/manifest"
)

// cooldownColumns maps a manifestation type to its cooldown/counter columns.
// Closed map over the type enum — never fed user input.
var cooldownColumns = map[manifest.Type][2]string{
	manifest.TypeWhisper:    {"cd_whisper", "n_whisper"},
	manifest.TypeOmen:       {"cd_omen", "n_omen"},
	manifest.TypeEncounter:  {"cd_encounter", "n_encounter"},
	manifest.TypeDream:      {"cd_dream", "n_dream"},
	manifest.TypeApparition: {"cd_apparition", "n_apparition"},
}

type attentionRow struct {
	CharacterID      int64   `db:"character_id"`
	Deity            uint8   `db:"deity"`
	Attention        float64 `db:"attention"`
	Interest         float64 `db:"interest"`
	TriggersJSON     string  `db:"triggers_json"`
	Trend            uint8   `db:"trend"`
	CdWhisper        int64   `db:"cd_whisper"`
	CdOmen           int64   `db:"cd_omen"`
	CdEncounter      int64   `db:"cd_encounter"`
	CdDream          int64   `db:"cd_dream"`
	CdApparition     int64   `db:"cd_apparition"`
	NWhisper         int     `db:"n_whisper"`
	NOmen            int     `db:"n_omen"`
	NEncounter       int     `db:"n_encounter"`
	NDream           int     `db:"n_dream"`
	NApparition      int     `db:"n_apparition"`
	LastEvaluated    int64   `db:"last_evaluated"`
	LastIntervention int64   `db:"last_intervention"`
	CreatedAt        int64   `db:"created_at"`
}

func (r attentionRow) toRecord() (*attention.Record, error) {
	rec := &attention.Record{
		Character:        karma.CharacterID(r.CharacterID),
		Deity:            deity.ID(r.Deity),
		Attention:        r.Attention,
		Interest:         r.Interest,
		Trend:            karma.Trend(r.Trend),
		LastEvaluated:    fromUnix(r.LastEvaluated),
		LastIntervention: fromUnix(r.LastIntervention),
		CreatedAt:        fromUnix(r.CreatedAt),
	}
	if err := json.Unmarshal([]byte(r.TriggersJSON), &rec.Triggers); err != nil {
		return nil, fmt.Errorf("decode triggers: %w", err)
	}
	rec.Cooldowns[manifest.TypeWhisper] = fromUnix(r.CdWhisper)
	rec.Cooldowns[manifest.TypeOmen] = fromUnix(r.CdOmen)
	rec.Cooldowns[manifest.TypeEncounter] = fromUnix(r.CdEncounter)
	rec.Cooldowns[manifest.TypeDream] = fromUnix(r.CdDream)
	rec.Cooldowns[manifest.TypeApparition] = fromUnix(r.CdApparition)
	rec.Counts[manifest.TypeWhisper] = r.NWhisper
	rec.Counts[manifest.TypeOmen] = r.NOmen
	rec.Counts[manifest.TypeEncounter] = r.NEncounter
	rec.Counts[manifest.TypeDream] = r.NDream
	rec.Counts[manifest.TypeApparition] = r.NApparition
	return rec, nil
}

func fromUnix(s int64) time.Time {
	if s == 0 {
		return time.Time{}
	}
	return time.Unix(s, 0).UTC()
}

func toUnix(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.Unix()
}

const attentionColumns = `character_id, deity, attention, interest, triggers_json, trend,
	cd_whisper, cd_omen, cd_encounter, cd_dream, cd_apparition,
	n_whisper, n_omen, n_encounter, n_dream, n_apparition,
	last_evaluated, last_intervention, created_at`

// AttentionRecord loads the record for a (character, deity) pair.
func (db *DB) AttentionRecord(ch karma.CharacterID, d deity.ID) (*attention.Record, error) {
	var row attentionRow
	err := db.conn.Get(&row,
		"SELECT "+attentionColumns+" FROM attention_records WHERE character_id = ? AND deity = ?", ch, d)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load attention record (%d, %s): %w", ch, d, err)
	}
	return row.toRecord()
}

// UpsertScores persists the scoring output for a pair, creating the record on
// first sight. Cooldown and counter columns are deliberately untouched — only
// ApplyDispatch may advance those, so a concurrent dispatch is never clobbered
// by a scoring pass.
func (db *DB) UpsertScores(rec *attention.Record) error {
	trig, err := json.Marshal(rec.Triggers)
	if err != nil {
		return fmt.Errorf("encode triggers: %w", err)
	}
	_, err = db.conn.Exec(
		`INSERT INTO attention_records
		   (character_id, deity, attention, interest, triggers_json, trend, last_evaluated, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(character_id, deity) DO UPDATE SET
		   attention = excluded.attention,
		   interest = excluded.interest,
		   triggers_json = excluded.triggers_json,
		   trend = excluded.trend,
		   last_evaluated = excluded.last_evaluated`,
		rec.Character, rec.Deity, rec.Attention, rec.Interest, string(trig),
		rec.Trend, toUnix(rec.LastEvaluated), toUnix(rec.CreatedAt))
	if err != nil {
		return fmt.Errorf("upsert scores (%d, %s): %w", rec.Character, rec.Deity, err)
	}
	return nil
}

// TopByAttention returns the most-watched tracked characters for a deity,
// attention descending, bounded by limit.
func (db *DB) TopByAttention(d deity.ID, limit int) ([]*attention.Record, error) {
	var rows []attentionRow
	err := db.conn.Select(&rows,
		"SELECT "+attentionColumns+` FROM attention_records
		 WHERE deity = ? ORDER BY attention DESC LIMIT ?`, d, limit)
	if err != nil {
		return nil, fmt.Errorf("top by attention for %s: %w", d, err)
	}
	recs := make([]*attention.Record, 0, len(rows))
	for _, r := range rows {
		rec, err := r.toRecord()
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	return recs, nil
}

// UntrackedCandidates finds characters worth a first look for a deity:
// significant affinity magnitude or high recent activity, with no attention
// record yet. One batched set-difference query, not a per-candidate probe.
func (db *DB) UntrackedCandidates(d deity.ID, minAffinity, minActions int, since time.Time, limit int) ([]karma.CharacterID, error) {
	affCol := "affinity_solenne"
	if d == deity.Vhorag {
		affCol = "affinity_vhorag"
	}

	query := fmt.Sprintf(
		`SELECT p.character_id FROM karma_profiles p
		 LEFT JOIN attention_records ar
		   ON ar.character_id = p.character_id AND ar.deity = ?
		 LEFT JOIN (
		   SELECT character_id, COUNT(*) AS n FROM karma_actions
		   WHERE occurred_at >= ? GROUP BY character_id
		 ) act ON act.character_id = p.character_id
		 WHERE ar.character_id IS NULL
		   AND (ABS(p.%s) >= ? OR COALESCE(act.n, 0) >= ?)
		 ORDER BY ABS(p.%s) DESC
		 LIMIT ?`, affCol, affCol)

	var ids []karma.CharacterID
	err := db.conn.Select(&ids, query, d, since.Unix(), minAffinity, minActions, limit)
	if err != nil {
		return nil, fmt.Errorf("untracked candidates for %s: %w", d, err)
	}
	return ids, nil
}

// ApplyDispatch performs the single atomic dispatch transition: re-arm the
// type cooldown, bump its counter, stamp the deity's global cooldown, and
// insert the manifestation — all conditional on both cooldowns still being
// expired. Returns false with no error when another writer won the race; the
// desired end state already holds, so losing is a no-op success.
func (db *DB) ApplyDispatch(m *manifest.Manifestation, cooldownUntil, now time.Time) (bool, error) {
	cols := cooldownColumns[m.Type]

	tx, err := db.conn.Beginx()
	if err != nil {
		return false, fmt.Errorf("begin dispatch tx: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.Exec(fmt.Sprintf(
		`UPDATE attention_records
		 SET %s = ?, %s = %s + 1, last_intervention = ?
		 WHERE character_id = ? AND deity = ? AND %s <= ?`,
		cols[0], cols[1], cols[1], cols[0]),
		cooldownUntil.Unix(), now.Unix(), m.Character, m.Deity, now.Unix())
	if err != nil {
		return false, fmt.Errorf("arm cooldown: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return false, nil
	}

	res, err = tx.Exec(
		`UPDATE deity_state SET last_intervention = ?
		 WHERE deity = ? AND last_intervention + global_cooldown_secs <= ?`,
		now.Unix(), m.Deity, now.Unix())
	if err != nil {
		return false, fmt.Errorf("stamp global cooldown: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return false, nil
	}

	if err := insertManifestation(tx, m); err != nil {
		return false, err
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit dispatch: %w", err)
	}
	return true, nil
}

// SweepDormant deletes records for long-dormant, low-attention characters.
func (db *DB) SweepDormant(before time.Time, maxAttention float64) (int, error) {
	res, err := db.conn.Exec(
		`DELETE FROM attention_records
		 WHERE last_evaluated < ? AND attention < ?
		   AND (last_intervention = 0 OR last_intervention < ?)`,
		before.Unix(), maxAttention, before.Unix())
	if err != nil {
		return 0, fmt.Errorf("sweep dormant records: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}
