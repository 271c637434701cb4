package decision

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
)

// DBSink writes decision entries to the decision_log table.
type DBSink struct {
	db *sql.DB
}

// NewDBSink creates a Postgres-backed Sink.
func NewDBSink(db *sql.DB) *DBSink {
	return &DBSink{db: db}
}

// Write inserts a single entry.
func (s *DBSink) Write(ctx context.Context, e Entry) error {
	contextJSON, err := json.Marshal(e.Context)
	if err != nil {
		return fmt.Errorf("marshal context: %w", err)
	}
	decisionJSON, err := json.Marshal(e.Decision)
	if err != nil {
		return fmt.Errorf("marshal decision: %w", err)
	}
	var alternativesJSON []byte
	if e.Alternatives != nil {
		alternativesJSON, err = json.Marshal(e.Alternatives)
		if err != nil {
			return fmt.Errorf("marshal alternatives: %w", err)
		}
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO decision_log
		 (id, type, episode_id, show_id, user_id, context_json, decision_json, alternatives_json, confidence, source, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		e.ID, e.Type, nullable(e.EpisodeID), nullable(e.ShowID), nullable(e.UserID),
		contextJSON, decisionJSON, alternativesJSON, e.Confidence, nullable(e.Source), e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert decision %s: %w", e.Type, err)
	}
	return nil
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
