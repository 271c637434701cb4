// Package sandbox is a local, single-file SQLite implementation of the
// evaluation store. The CLI uses it to run the full evaluate → override →
// accept workflow against a writers-room sandbox without a Postgres
// server.
package sandbox

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/styleverse/progression/internal/evaluation"
	"github.com/styleverse/progression/pkg/formula"
)

const schema = `
CREATE TABLE IF NOT EXISTS episodes (
	id                TEXT PRIMARY KEY,
	show_id           TEXT NOT NULL,
	season_id         TEXT,
	episode_number    INTEGER NOT NULL DEFAULT 0,
	title             TEXT NOT NULL DEFAULT '',
	script_content    TEXT NOT NULL DEFAULT '',
	wardrobe_json     TEXT NOT NULL DEFAULT '[]',
	evaluation_json   TEXT,
	evaluation_status TEXT NOT NULL DEFAULT 'none',
	formula_version   TEXT,
	created_at        TEXT NOT NULL,
	updated_at        TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS character_state (
	id                      TEXT PRIMARY KEY,
	show_id                 TEXT NOT NULL,
	season_id               TEXT,
	character_key           TEXT NOT NULL,
	coins                   INTEGER NOT NULL,
	reputation              INTEGER NOT NULL,
	brand_trust             INTEGER NOT NULL,
	influence               INTEGER NOT NULL,
	stress                  INTEGER NOT NULL,
	last_applied_episode_id TEXT,
	created_at              TEXT NOT NULL,
	updated_at              TEXT NOT NULL,
	UNIQUE (show_id, season_id, character_key)
);

CREATE TABLE IF NOT EXISTS character_state_history (
	id               TEXT PRIMARY KEY,
	show_id          TEXT NOT NULL,
	season_id        TEXT,
	character_key    TEXT NOT NULL,
	episode_id       TEXT NOT NULL,
	source           TEXT NOT NULL,
	deltas_json      TEXT NOT NULL,
	state_after_json TEXT NOT NULL,
	note             TEXT,
	created_at       TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_history_character
	ON character_state_history (show_id, character_key, created_at DESC);
`

const timeLayout = time.RFC3339Nano

// Store is a SQLite-backed evaluation store.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the sandbox database at path. Use ":memory:"
// for tests.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sandbox db: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("pragma: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("migrate sandbox db: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) GetOrCreateState(ctx context.Context, showID string, seasonID *string, characterKey string, defaults formula.Stats) (*evaluation.CharacterState, error) {
	now := time.Now().UTC().Format(timeLayout)
	id := stateID(showID, seasonID, characterKey)
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO character_state (id, show_id, season_id, character_key, coins, reputation, brand_trust, influence, stress, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (id) DO NOTHING`,
		id, showID, seasonID, characterKey,
		defaults.Coins, defaults.Reputation, defaults.BrandTrust, defaults.Influence, defaults.Stress,
		now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("create character state: %w", err)
	}

	st := &evaluation.CharacterState{}
	var createdAt, updatedAt string
	err = s.db.QueryRowContext(ctx,
		`SELECT id, show_id, season_id, character_key, coins, reputation, brand_trust, influence, stress,
		        last_applied_episode_id, created_at, updated_at
		 FROM character_state WHERE id = ?`,
		id,
	).Scan(&st.ID, &st.ShowID, &st.SeasonID, &st.CharacterKey,
		&st.Stats.Coins, &st.Stats.Reputation, &st.Stats.BrandTrust, &st.Stats.Influence, &st.Stats.Stress,
		&st.LastAppliedEpisodeID, &createdAt, &updatedAt)
	if err != nil {
		return nil, fmt.Errorf("get character state %s/%s: %w", showID, characterKey, err)
	}
	st.CreatedAt, _ = time.Parse(timeLayout, createdAt)
	st.UpdatedAt, _ = time.Parse(timeLayout, updatedAt)
	return st, nil
}

func (s *Store) GetEpisode(ctx context.Context, id string) (*evaluation.Episode, error) {
	ep := &evaluation.Episode{}
	var wardrobeJSON string
	var evalJSON, formulaVersion sql.NullString
	var createdAt, updatedAt string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, show_id, season_id, episode_number, title, script_content,
		        wardrobe_json, evaluation_json, evaluation_status, formula_version,
		        created_at, updated_at
		 FROM episodes WHERE id = ?`,
		id,
	).Scan(&ep.ID, &ep.ShowID, &ep.SeasonID, &ep.Number, &ep.Title, &ep.Script,
		&wardrobeJSON, &evalJSON, &ep.EvaluationStatus, &formulaVersion,
		&createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, evaluation.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get episode %s: %w", id, err)
	}

	ep.FormulaVersion = formulaVersion.String
	ep.CreatedAt, _ = time.Parse(timeLayout, createdAt)
	ep.UpdatedAt, _ = time.Parse(timeLayout, updatedAt)
	if wardrobeJSON != "" {
		if err := json.Unmarshal([]byte(wardrobeJSON), &ep.Wardrobe); err != nil {
			return nil, fmt.Errorf("decode wardrobe for episode %s: %w", id, err)
		}
	}
	if evalJSON.Valid && evalJSON.String != "" {
		ep.Evaluation = &evaluation.Evaluation{}
		if err := json.Unmarshal([]byte(evalJSON.String), ep.Evaluation); err != nil {
			return nil, fmt.Errorf("decode evaluation for episode %s: %w", id, err)
		}
	}
	return ep, nil
}

func (s *Store) UpsertEpisode(ctx context.Context, ep *evaluation.Episode) error {
	wardrobeJSON, err := json.Marshal(ep.Wardrobe)
	if err != nil {
		return fmt.Errorf("encode wardrobe: %w", err)
	}
	now := time.Now().UTC().Format(timeLayout)
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO episodes (id, show_id, season_id, episode_number, title, script_content, wardrobe_json, evaluation_status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (id) DO UPDATE SET
		   show_id = excluded.show_id,
		   season_id = excluded.season_id,
		   episode_number = excluded.episode_number,
		   title = excluded.title,
		   script_content = excluded.script_content,
		   wardrobe_json = excluded.wardrobe_json,
		   updated_at = excluded.updated_at`,
		ep.ID, ep.ShowID, ep.SeasonID, ep.Number, ep.Title, ep.Script,
		string(wardrobeJSON), ep.EvaluationStatus, now, now,
	)
	if err != nil {
		return fmt.Errorf("upsert episode %s: %w", ep.ID, err)
	}
	return nil
}

func (s *Store) SaveEvaluation(ctx context.Context, episodeID string, eval *evaluation.Evaluation, status string) error {
	evalJSON, err := json.Marshal(eval)
	if err != nil {
		return fmt.Errorf("encode evaluation: %w", err)
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE episodes
		 SET evaluation_json = ?, evaluation_status = ?, formula_version = ?, updated_at = ?
		 WHERE id = ?`,
		string(evalJSON), status, eval.FormulaVersion, time.Now().UTC().Format(timeLayout), episodeID,
	)
	if err != nil {
		return fmt.Errorf("save evaluation for episode %s: %w", episodeID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return evaluation.ErrNotFound
	}
	return nil
}

func (s *Store) CommitAccept(ctx context.Context, commit evaluation.AcceptCommit) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if err := updateState(ctx, tx, commit.StateID, commit.NewStats, &commit.LastAppliedEpisodeID); err != nil {
			return err
		}
		if err := insertLedger(ctx, tx, commit.Ledger); err != nil {
			return err
		}
		return saveEvaluationTx(ctx, tx, commit.EpisodeID, commit.Evaluation, evaluation.StatusAccepted)
	})
}

func (s *Store) CommitReversal(ctx context.Context, commit evaluation.ReversalCommit) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if err := updateState(ctx, tx, commit.StateID, commit.RestoredStats, commit.LastAppliedEpisodeID); err != nil {
			return err
		}
		if err := insertLedger(ctx, tx, commit.Ledger); err != nil {
			return err
		}
		return saveEvaluationTx(ctx, tx, commit.EpisodeID, commit.Evaluation, evaluation.StatusComputed)
	})
}

func (s *Store) LedgerForEpisode(ctx context.Context, showID string, seasonID *string, characterKey, episodeID string) (*evaluation.LedgerEntry, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, show_id, season_id, character_key, episode_id, source, deltas_json, state_after_json, note, created_at
		 FROM character_state_history
		 WHERE show_id = ? AND season_id IS ? AND character_key = ?
		   AND episode_id = ? AND source <> 'reversal'
		 ORDER BY created_at DESC LIMIT 1`,
		showID, seasonID, characterKey, episodeID,
	)
	entry, err := scanLedger(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, evaluation.ErrNotFound
	}
	return entry, err
}

func (s *Store) LedgerBefore(ctx context.Context, showID string, seasonID *string, characterKey string, before time.Time) (*evaluation.LedgerEntry, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, show_id, season_id, character_key, episode_id, source, deltas_json, state_after_json, note, created_at
		 FROM character_state_history
		 WHERE show_id = ? AND season_id IS ? AND character_key = ?
		   AND created_at < ?
		 ORDER BY created_at DESC LIMIT 1`,
		showID, seasonID, characterKey, before.UTC().Format(timeLayout),
	)
	entry, err := scanLedger(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, evaluation.ErrNotFound
	}
	return entry, err
}

func (s *Store) History(ctx context.Context, q evaluation.HistoryQuery) ([]evaluation.LedgerEntry, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = 50
	}

	query := `SELECT id, show_id, season_id, character_key, episode_id, source, deltas_json, state_after_json, note, created_at
	          FROM character_state_history WHERE show_id = ?`
	args := []any{q.ShowID}
	if q.CharacterKey != "" {
		query += " AND character_key = ?"
		args = append(args, q.CharacterKey)
	}
	if !q.Since.IsZero() {
		query += " AND created_at >= ?"
		args = append(args, q.Since.UTC().Format(timeLayout))
	}
	if !q.Until.IsZero() {
		query += " AND created_at <= ?"
		args = append(args, q.Until.UTC().Format(timeLayout))
	}
	query += " ORDER BY created_at DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var entries []evaluation.LedgerEntry
	for rows.Next() {
		entry, err := scanLedger(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *entry)
	}
	return entries, rows.Err()
}

func (s *Store) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func updateState(ctx context.Context, tx *sql.Tx, id string, stats formula.Stats, lastApplied *string) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE character_state
		 SET coins = ?, reputation = ?, brand_trust = ?, influence = ?, stress = ?,
		     last_applied_episode_id = ?, updated_at = ?
		 WHERE id = ?`,
		stats.Coins, stats.Reputation, stats.BrandTrust, stats.Influence, stats.Stress,
		lastApplied, time.Now().UTC().Format(timeLayout), id,
	)
	if err != nil {
		return fmt.Errorf("update character state %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return evaluation.ErrNotFound
	}
	return nil
}

func insertLedger(ctx context.Context, tx *sql.Tx, entry evaluation.LedgerEntry) error {
	deltasJSON, err := json.Marshal(entry.Deltas)
	if err != nil {
		return fmt.Errorf("encode deltas: %w", err)
	}
	stateJSON, err := json.Marshal(entry.StateAfter)
	if err != nil {
		return fmt.Errorf("encode state after: %w", err)
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO character_state_history
		   (id, show_id, season_id, character_key, episode_id, source, deltas_json, state_after_json, note, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.ShowID, entry.SeasonID, entry.CharacterKey, entry.EpisodeID,
		entry.Source, string(deltasJSON), string(stateJSON), entry.Note,
		entry.CreatedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("insert ledger entry: %w", err)
	}
	return nil
}

func saveEvaluationTx(ctx context.Context, tx *sql.Tx, episodeID string, eval *evaluation.Evaluation, status string) error {
	evalJSON, err := json.Marshal(eval)
	if err != nil {
		return fmt.Errorf("encode evaluation: %w", err)
	}
	_, err = tx.ExecContext(ctx,
		`UPDATE episodes
		 SET evaluation_json = ?, evaluation_status = ?, formula_version = ?, updated_at = ?
		 WHERE id = ?`,
		string(evalJSON), status, eval.FormulaVersion, time.Now().UTC().Format(timeLayout), episodeID,
	)
	if err != nil {
		return fmt.Errorf("save evaluation for episode %s: %w", episodeID, err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLedger(row rowScanner) (*evaluation.LedgerEntry, error) {
	entry := &evaluation.LedgerEntry{}
	var deltasJSON, stateJSON, createdAt string
	var note sql.NullString
	err := row.Scan(&entry.ID, &entry.ShowID, &entry.SeasonID, &entry.CharacterKey,
		&entry.EpisodeID, &entry.Source, &deltasJSON, &stateJSON, &note, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan ledger entry: %w", err)
	}
	entry.Note = note.String
	entry.CreatedAt, _ = time.Parse(timeLayout, createdAt)
	if err := json.Unmarshal([]byte(deltasJSON), &entry.Deltas); err != nil {
		return nil, fmt.Errorf("decode deltas: %w", err)
	}
	if err := json.Unmarshal([]byte(stateJSON), &entry.StateAfter); err != nil {
		return nil, fmt.Errorf("decode state after: %w", err)
	}
	return entry, nil
}

func stateID(showID string, seasonID *string, characterKey string) string {
	season := "global"
	if seasonID != nil {
		season = *seasonID
	}
	return showID + ":" + season + ":" + characterKey
}
