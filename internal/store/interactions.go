package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/fyrsmithlabs/interviewd/internal/interview"
)

var _ interview.InteractionLog = (*Store)(nil)

// RecordInteraction inserts a standalone assistant request.
func (s *Store) RecordInteraction(ctx context.Context, in *interview.Interaction) error {
	defer observe("record_interaction")()

	var score sql.NullFloat64
	if in.Score != nil {
		score = sql.NullFloat64{Float64: *in.Score, Valid: true}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO interactions (interaction_id, user_id, kind, question, input, output, score, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		in.ID, in.UserID, string(in.Kind), in.Question, in.Input, in.Output, score, in.CreatedAt.UnixNano())
	if err != nil {
		WritesTotal.WithLabelValues("interaction", "error").Inc()
		return fmt.Errorf("insert interaction: %w", err)
	}
	WritesTotal.WithLabelValues("interaction", "ok").Inc()
	return nil
}

// ListInteractions returns up to limit of the user's recorded interactions,
// newest first.
func (s *Store) ListInteractions(ctx context.Context, userID string, limit int) ([]interview.Interaction, error) {
	defer observe("list_interactions")()

	rows, err := s.db.QueryContext(ctx, `
		SELECT interaction_id, user_id, kind, question, input, output, score, created_at
		FROM interactions
		WHERE user_id = ?
		ORDER BY created_at DESC
		LIMIT ?`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list interactions: %w", err)
	}
	defer rows.Close()

	var out []interview.Interaction
	for rows.Next() {
		var (
			in        interview.Interaction
			kind      string
			score     sql.NullFloat64
			createdAt int64
		)
		if err := rows.Scan(&in.ID, &in.UserID, &kind, &in.Question, &in.Input, &in.Output, &score, &createdAt); err != nil {
			return nil, fmt.Errorf("scan interaction: %w", err)
		}
		in.Kind = interview.InteractionKind(kind)
		if score.Valid {
			v := score.Float64
			in.Score = &v
		}
		in.CreatedAt = time.Unix(0, createdAt).UTC()
		out = append(out, in)
	}
	return out, rows.Err()
}
