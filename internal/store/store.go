// Package store is the Postgres persistence layer for episodes, character
// state, and the state ledger. It implements evaluation.Store; the commit
// methods wrap the state update, ledger append, and evaluation freeze in
// one transaction.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/styleverse/progression/internal/evaluation"
	"github.com/styleverse/progression/pkg/formula"
)

// Store provides Postgres-backed persistence for the evaluation workflow.
type Store struct {
	db *sql.DB
}

// New creates a Store on an open database handle.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// GetOrCreateState returns the character state row for the key, creating
// it with the seed defaults on first access.
func (s *Store) GetOrCreateState(ctx context.Context, showID string, seasonID *string, characterKey string, defaults formula.Stats) (*evaluation.CharacterState, error) {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO character_state (show_id, season_id, character_key, coins, reputation, brand_trust, influence, stress)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 ON CONFLICT (show_id, COALESCE(season_id, ''), character_key) DO NOTHING`,
		showID, seasonID, characterKey,
		defaults.Coins, defaults.Reputation, defaults.BrandTrust, defaults.Influence, defaults.Stress,
	)
	if err != nil {
		return nil, fmt.Errorf("create character state: %w", err)
	}

	st := &evaluation.CharacterState{}
	err = s.db.QueryRowContext(ctx,
		`SELECT id, show_id, season_id, character_key, coins, reputation, brand_trust, influence, stress,
		        last_applied_episode_id, created_at, updated_at
		 FROM character_state
		 WHERE show_id = $1 AND season_id IS NOT DISTINCT FROM $2 AND character_key = $3`,
		showID, seasonID, characterKey,
	).Scan(&st.ID, &st.ShowID, &st.SeasonID, &st.CharacterKey,
		&st.Stats.Coins, &st.Stats.Reputation, &st.Stats.BrandTrust, &st.Stats.Influence, &st.Stats.Stress,
		&st.LastAppliedEpisodeID, &st.CreatedAt, &st.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("get character state %s/%s: %w", showID, characterKey, err)
	}
	return st, nil
}

// GetEpisode retrieves an episode with its evaluation record.
func (s *Store) GetEpisode(ctx context.Context, id string) (*evaluation.Episode, error) {
	ep := &evaluation.Episode{}
	var wardrobeJSON, evalJSON []byte
	var formulaVersion sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT id, show_id, season_id, episode_number, title, script_content,
		        wardrobe_json, evaluation_json, evaluation_status, formula_version,
		        created_at, updated_at
		 FROM episodes WHERE id = $1`,
		id,
	).Scan(&ep.ID, &ep.ShowID, &ep.SeasonID, &ep.Number, &ep.Title, &ep.Script,
		&wardrobeJSON, &evalJSON, &ep.EvaluationStatus, &formulaVersion,
		&ep.CreatedAt, &ep.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, evaluation.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get episode %s: %w", id, err)
	}

	ep.FormulaVersion = formulaVersion.String
	if len(wardrobeJSON) > 0 {
		if err := json.Unmarshal(wardrobeJSON, &ep.Wardrobe); err != nil {
			return nil, fmt.Errorf("decode wardrobe for episode %s: %w", id, err)
		}
	}
	if len(evalJSON) > 0 {
		ep.Evaluation = &evaluation.Evaluation{}
		if err := json.Unmarshal(evalJSON, ep.Evaluation); err != nil {
			return nil, fmt.Errorf("decode evaluation for episode %s: %w", id, err)
		}
	}
	return ep, nil
}

// UpsertEpisode creates or updates an episode's authored fields. The
// evaluation columns are owned by SaveEvaluation and the commit methods.
func (s *Store) UpsertEpisode(ctx context.Context, ep *evaluation.Episode) error {
	wardrobeJSON, err := json.Marshal(ep.Wardrobe)
	if err != nil {
		return fmt.Errorf("encode wardrobe: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO episodes (id, show_id, season_id, episode_number, title, script_content, wardrobe_json, evaluation_status)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 ON CONFLICT (id) DO UPDATE
		   SET show_id = EXCLUDED.show_id,
		       season_id = EXCLUDED.season_id,
		       episode_number = EXCLUDED.episode_number,
		       title = EXCLUDED.title,
		       script_content = EXCLUDED.script_content,
		       wardrobe_json = EXCLUDED.wardrobe_json,
		       updated_at = now()`,
		ep.ID, ep.ShowID, ep.SeasonID, ep.Number, ep.Title, ep.Script, wardrobeJSON, ep.EvaluationStatus,
	)
	if err != nil {
		return fmt.Errorf("upsert episode %s: %w", ep.ID, err)
	}
	return nil
}

// SaveEvaluation stores the evaluation record and status on the episode.
func (s *Store) SaveEvaluation(ctx context.Context, episodeID string, eval *evaluation.Evaluation, status string) error {
	evalJSON, err := json.Marshal(eval)
	if err != nil {
		return fmt.Errorf("encode evaluation: %w", err)
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE episodes
		 SET evaluation_json = $2, evaluation_status = $3, formula_version = $4, updated_at = now()
		 WHERE id = $1`,
		episodeID, evalJSON, status, eval.FormulaVersion,
	)
	if err != nil {
		return fmt.Errorf("save evaluation for episode %s: %w", episodeID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return evaluation.ErrNotFound
	}
	return nil
}

// CommitAccept applies an accept atomically: character stats, the ledger
// entry, and the frozen evaluation all land in one transaction.
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

// CommitReversal applies a re-evaluation reversal atomically.
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

// LedgerForEpisode returns the most recent non-reversal ledger entry for
// the episode.
func (s *Store) LedgerForEpisode(ctx context.Context, showID string, seasonID *string, characterKey, episodeID string) (*evaluation.LedgerEntry, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, show_id, season_id, character_key, episode_id, source, deltas_json, state_after_json, note, created_at
		 FROM character_state_history
		 WHERE show_id = $1 AND season_id IS NOT DISTINCT FROM $2 AND character_key = $3
		   AND episode_id = $4 AND source <> 'reversal'
		 ORDER BY created_at DESC LIMIT 1`,
		showID, seasonID, characterKey, episodeID,
	)
	return scanLedgerRow(row)
}

// LedgerBefore returns the most recent ledger entry for the character
// strictly before the given time.
func (s *Store) LedgerBefore(ctx context.Context, showID string, seasonID *string, characterKey string, before time.Time) (*evaluation.LedgerEntry, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, show_id, season_id, character_key, episode_id, source, deltas_json, state_after_json, note, created_at
		 FROM character_state_history
		 WHERE show_id = $1 AND season_id IS NOT DISTINCT FROM $2 AND character_key = $3
		   AND created_at < $4
		 ORDER BY created_at DESC LIMIT 1`,
		showID, seasonID, characterKey, before,
	)
	return scanLedgerRow(row)
}

// History returns ledger entries for a show, newest first.
func (s *Store) History(ctx context.Context, q evaluation.HistoryQuery) ([]evaluation.LedgerEntry, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = 50
	}
	if limit > 500 {
		limit = 500
	}

	query := `SELECT id, show_id, season_id, character_key, episode_id, source, deltas_json, state_after_json, note, created_at
	          FROM character_state_history WHERE show_id = $1`
	args := []any{q.ShowID}
	idx := 2
	if q.CharacterKey != "" {
		query += fmt.Sprintf(" AND character_key = $%d", idx)
		args = append(args, q.CharacterKey)
		idx++
	}
	if !q.Since.IsZero() {
		query += fmt.Sprintf(" AND created_at >= $%d", idx)
		args = append(args, q.Since)
		idx++
	}
	if !q.Until.IsZero() {
		query += fmt.Sprintf(" AND created_at <= $%d", idx)
		args = append(args, q.Until)
		idx++
	}
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d", idx)
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

func updateState(ctx context.Context, tx *sql.Tx, stateID string, stats formula.Stats, lastApplied *string) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE character_state
		 SET coins = $2, reputation = $3, brand_trust = $4, influence = $5, stress = $6,
		     last_applied_episode_id = $7, updated_at = now()
		 WHERE id = $1`,
		stateID, stats.Coins, stats.Reputation, stats.BrandTrust, stats.Influence, stats.Stress, lastApplied,
	)
	if err != nil {
		return fmt.Errorf("update character state %s: %w", stateID, err)
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
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		entry.ID, entry.ShowID, entry.SeasonID, entry.CharacterKey, entry.EpisodeID,
		entry.Source, deltasJSON, stateJSON, entry.Note, entry.CreatedAt,
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
		 SET evaluation_json = $2, evaluation_status = $3, formula_version = $4, updated_at = now()
		 WHERE id = $1`,
		episodeID, evalJSON, status, eval.FormulaVersion,
	)
	if err != nil {
		return fmt.Errorf("save evaluation for episode %s: %w", episodeID, err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLedgerRow(row *sql.Row) (*evaluation.LedgerEntry, error) {
	entry, err := scanLedger(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, evaluation.ErrNotFound
	}
	return entry, err
}

func scanLedger(row rowScanner) (*evaluation.LedgerEntry, error) {
	entry := &evaluation.LedgerEntry{}
	var deltasJSON, stateJSON []byte
	var note sql.NullString
	err := row.Scan(&entry.ID, &entry.ShowID, &entry.SeasonID, &entry.CharacterKey,
		&entry.EpisodeID, &entry.Source, &deltasJSON, &stateJSON, &note, &entry.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan ledger entry: %w", err)
	}
	entry.Note = note.String
	if err := json.Unmarshal(deltasJSON, &entry.Deltas); err != nil {
		return nil, fmt.Errorf("decode deltas: %w", err)
	}
	if err := json.Unmarshal(stateJSON, &entry.StateAfter); err != nil {
		return nil, fmt.Errorf("decode state after: %w", err)
	}
	return entry, nil
}
