package decision

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// Service provides read-side access to the decision log for admin views.
type Service struct {
	db *sql.DB
}

// NewService creates a decision-log query service.
func NewService(db *sql.DB) *Service {
	return &Service{db: db}
}

// TypeStat is the usage count for one decision type within a show.
type TypeStat struct {
	Type     string    `json:"type"`
	Count    int       `json:"count"`
	LastUsed time.Time `json:"last_used"`
}

// OverridePattern aggregates how often a reason code and target tier
// combination is used, and at what score.
type OverridePattern struct {
	ReasonCode       string  `json:"reason_code"`
	TierTo           string  `json:"tier_to"`
	TimesUsed        int     `json:"times_used"`
	AvgScoreWhenUsed float64 `json:"avg_score_when_used"`
}

// Recent returns the latest decisions for a show, newest first, optionally
// filtered by type.
func (s *Service) Recent(ctx context.Context, showID, decisionType string, limit int) ([]Entry, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}

	query := `SELECT id, type, episode_id, show_id, user_id,
	                 context_json, decision_json, alternatives_json, confidence, source, created_at
	          FROM decision_log WHERE show_id = $1`
	args := []any{showID}
	if decisionType != "" {
		query += ` AND type = $2`
		args = append(args, decisionType)
	}
	query += fmt.Sprintf(` ORDER BY created_at DESC LIMIT %d`, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list decisions: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e                                  Entry
			episodeID, showID, userID, source  sql.NullString
			contextJSON, decisionJSON, altJSON []byte
		)
		if err := rows.Scan(&e.ID, &e.Type, &episodeID, &showID, &userID,
			&contextJSON, &decisionJSON, &altJSON, &e.Confidence, &source, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan decision: %w", err)
		}
		e.EpisodeID = episodeID.String
		e.ShowID = showID.String
		e.UserID = userID.String
		e.Source = source.String
		_ = json.Unmarshal(contextJSON, &e.Context)
		_ = json.Unmarshal(decisionJSON, &e.Decision)
		if altJSON != nil {
			_ = json.Unmarshal(altJSON, &e.Alternatives)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Stats returns per-type usage counts for a show.
func (s *Service) Stats(ctx context.Context, showID string) ([]TypeStat, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT type, COUNT(*), MAX(created_at)
		 FROM decision_log WHERE show_id = $1
		 GROUP BY type ORDER BY COUNT(*) DESC`,
		showID,
	)
	if err != nil {
		return nil, fmt.Errorf("decision stats: %w", err)
	}
	defer rows.Close()

	var stats []TypeStat
	for rows.Next() {
		var st TypeStat
		if err := rows.Scan(&st.Type, &st.Count, &st.LastUsed); err != nil {
			return nil, fmt.Errorf("scan decision stat: %w", err)
		}
		stats = append(stats, st)
	}
	return stats, rows.Err()
}

// OverridePatterns returns which override reasons are used most for a
// show, with the average score they were applied at.
func (s *Service) OverridePatterns(ctx context.Context, showID string) ([]OverridePattern, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT decision_json->>'reason_code',
		        decision_json->>'tier_to',
		        COUNT(*),
		        COALESCE(AVG((context_json->>'score')::int), 0)
		 FROM decision_log
		 WHERE show_id = $1 AND type = $2
		 GROUP BY decision_json->>'reason_code', decision_json->>'tier_to'
		 ORDER BY COUNT(*) DESC`,
		showID, TypeTierOverride,
	)
	if err != nil {
		return nil, fmt.Errorf("override patterns: %w", err)
	}
	defer rows.Close()

	var patterns []OverridePattern
	for rows.Next() {
		var (
			p                  OverridePattern
			reasonCode, tierTo sql.NullString
		)
		if err := rows.Scan(&reasonCode, &tierTo, &p.TimesUsed, &p.AvgScoreWhenUsed); err != nil {
			return nil, fmt.Errorf("scan override pattern: %w", err)
		}
		p.ReasonCode = reasonCode.String
		p.TierTo = tierTo.String
		patterns = append(patterns, p)
	}
	return patterns, rows.Err()
}
