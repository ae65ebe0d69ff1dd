package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/interviewd/internal/interview"
)

const sessionColumns = `session_id, user_id, user_name, module_code, phase, status,
	total_questions, rejections, seed, follow_ups, clarifications, code, feedback,
	version, created_at, updated_at`

type encodedSession struct {
	seed           string
	followUps      string
	clarifications string
	feedback       sql.NullString
}

func encodeSession(sess *interview.Session) (encodedSession, error) {
	var enc encodedSession

	seed, err := json.Marshal(sess.Seed)
	if err != nil {
		return enc, fmt.Errorf("encode seed: %w", err)
	}
	followUps, err := json.Marshal(nonNilTurns(sess.FollowUps))
	if err != nil {
		return enc, fmt.Errorf("encode follow-ups: %w", err)
	}
	clarifications, err := json.Marshal(nonNilTurns(sess.Clarifications))
	if err != nil {
		return enc, fmt.Errorf("encode clarifications: %w", err)
	}
	enc.seed, enc.followUps, enc.clarifications = string(seed), string(followUps), string(clarifications)

	if sess.Feedback != nil {
		fb, err := json.Marshal(sess.Feedback)
		if err != nil {
			return enc, fmt.Errorf("encode feedback: %w", err)
		}
		enc.feedback = sql.NullString{String: string(fb), Valid: true}
	}
	return enc, nil
}

func nonNilTurns(t []interview.Turn) []interview.Turn {
	if t == nil {
		return []interview.Turn{}
	}
	return t
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*interview.Session, error) {
	var (
		sess                            interview.Session
		phase, status                   string
		seed, followUps, clarifications string
		feedback                        sql.NullString
		createdAt, updatedAt            int64
	)
	err := row.Scan(&sess.ID, &sess.UserID, &sess.UserName, &sess.Topic, &phase, &status,
		&sess.TotalQuestions, &sess.Rejections, &seed, &followUps, &clarifications, &sess.Code, &feedback,
		&sess.Version, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	sess.Phase = interview.Phase(phase)
	sess.Status = interview.Status(status)
	sess.CreatedAt = time.Unix(0, createdAt).UTC()
	sess.UpdatedAt = time.Unix(0, updatedAt).UTC()

	if err := json.Unmarshal([]byte(seed), &sess.Seed); err != nil {
		return nil, fmt.Errorf("decode seed for %s: %w", sess.ID, err)
	}
	if err := json.Unmarshal([]byte(followUps), &sess.FollowUps); err != nil {
		return nil, fmt.Errorf("decode follow-ups for %s: %w", sess.ID, err)
	}
	if err := json.Unmarshal([]byte(clarifications), &sess.Clarifications); err != nil {
		return nil, fmt.Errorf("decode clarifications for %s: %w", sess.ID, err)
	}
	if feedback.Valid {
		sess.Feedback = &interview.StoredFeedback{}
		if err := json.Unmarshal([]byte(feedback.String), sess.Feedback); err != nil {
			return nil, fmt.Errorf("decode feedback for %s: %w", sess.ID, err)
		}
	}
	return &sess, nil
}

// CreateSession inserts a new session at version 1.
func (s *Store) CreateSession(ctx context.Context, sess *interview.Session) error {
	defer observe("create_session")()

	enc, err := encodeSession(sess)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO sessions (`+sessionColumns+`, question_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 1, ?, ?, ?)`,
		sess.ID, sess.UserID, sess.UserName, sess.Topic, string(sess.Phase), string(sess.Status),
		sess.TotalQuestions, sess.Rejections, enc.seed, enc.followUps, enc.clarifications, sess.Code, enc.feedback,
		sess.CreatedAt.UnixNano(), sess.UpdatedAt.UnixNano(), sess.Seed.ID)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			WritesTotal.WithLabelValues("create", "conflict").Inc()
			return fmt.Errorf("session %s already exists: %w", sess.ID, interview.ErrConflict)
		}
		WritesTotal.WithLabelValues("create", "error").Inc()
		return fmt.Errorf("insert session: %w", err)
	}

	sess.Version = 1
	WritesTotal.WithLabelValues("create", "ok").Inc()
	return nil
}

// GetSession returns the session or interview.ErrNotFound.
func (s *Store) GetSession(ctx context.Context, id string) (*interview.Session, error) {
	defer observe("get_session")()

	row := s.db.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE session_id = ?`, id)
	sess, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("session %s: %w", id, interview.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	return sess, nil
}

// UpdateSession writes sess if its version still matches the stored row,
// then increments sess.Version.
func (s *Store) UpdateSession(ctx context.Context, sess *interview.Session) error {
	defer observe("update_session")()

	enc, err := encodeSession(sess)
	if err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE sessions SET
			user_name = ?, phase = ?, status = ?, total_questions = ?, rejections = ?,
			seed = ?, follow_ups = ?, clarifications = ?, code = ?, feedback = ?,
			updated_at = ?, version = version + 1
		WHERE session_id = ? AND version = ?`,
		sess.UserName, string(sess.Phase), string(sess.Status), sess.TotalQuestions, sess.Rejections,
		enc.seed, enc.followUps, enc.clarifications, sess.Code, enc.feedback,
		sess.UpdatedAt.UnixNano(), sess.ID, sess.Version)
	if err != nil {
		WritesTotal.WithLabelValues("update", "error").Inc()
		return fmt.Errorf("update session: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		WritesTotal.WithLabelValues("update", "error").Inc()
		return fmt.Errorf("update session: %w", err)
	}
	if n == 0 {
		var stored int64
		err := s.db.QueryRowContext(ctx, `SELECT version FROM sessions WHERE session_id = ?`, sess.ID).Scan(&stored)
		if errors.Is(err, sql.ErrNoRows) {
			WritesTotal.WithLabelValues("update", "not_found").Inc()
			return fmt.Errorf("session %s: %w", sess.ID, interview.ErrNotFound)
		}
		WritesTotal.WithLabelValues("update", "conflict").Inc()
		s.log.Debug(ctx, "stale session version",
			zap.String("session_id", sess.ID),
			zap.Int64("have", sess.Version),
			zap.Int64("stored", stored),
		)
		return fmt.Errorf("session %s at version %d: %w", sess.ID, sess.Version, interview.ErrConflict)
	}

	sess.Version++
	WritesTotal.WithLabelValues("update", "ok").Inc()
	return nil
}

// ListSessions returns up to limit of the user's sessions, newest first.
func (s *Store) ListSessions(ctx context.Context, userID string, limit int) ([]*interview.Session, error) {
	defer observe("list_sessions")()

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+sessionColumns+` FROM sessions
		WHERE user_id = ?
		ORDER BY created_at DESC
		LIMIT ?`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	return collect(rows)
}

// LatestAttempt returns the user's most recent other session on questionID
// that carries submitted code, or interview.ErrNotFound.
func (s *Store) LatestAttempt(ctx context.Context, userID, questionID, excludeSessionID string) (*interview.Session, error) {
	defer observe("latest_attempt")()

	row := s.db.QueryRowContext(ctx, `
		SELECT `+sessionColumns+` FROM sessions
		WHERE user_id = ? AND question_id = ? AND session_id != ? AND code != ''
		ORDER BY updated_at DESC
		LIMIT 1`, userID, questionID, excludeSessionID)
	sess, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("attempt on %s: %w", questionID, interview.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("latest attempt: %w", err)
	}
	return sess, nil
}

func collect(rows *sql.Rows) ([]*interview.Session, error) {
	var out []*interview.Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sess)
	}
	return out, rows.Err()
}
