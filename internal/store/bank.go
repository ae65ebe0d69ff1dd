package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/fyrsmithlabs/interviewd/internal/interview"
)

// RandomQuestion picks a seed question from moduleCode.
func (s *Store) RandomQuestion(ctx context.Context, moduleCode string) (interview.SeedQuestion, error) {
	defer observe("random_question")()

	var (
		q    interview.SeedQuestion
		tags string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT question_id, module_code, topic_code, question, difficulty, example, code_stub, tags, language
		FROM questions
		WHERE module_code = ?
		ORDER BY RANDOM()
		LIMIT 1`, moduleCode).
		Scan(&q.ID, &q.ModuleCode, &q.TopicCode, &q.Question, &q.Difficulty, &q.Example, &q.CodeStub, &tags, &q.Language)
	if errors.Is(err, sql.ErrNoRows) {
		return q, fmt.Errorf("no questions for module %s: %w", moduleCode, interview.ErrNotFound)
	}
	if err != nil {
		return q, fmt.Errorf("random question: %w", err)
	}
	if err := json.Unmarshal([]byte(tags), &q.Tags); err != nil {
		return q, fmt.Errorf("decode tags for %s: %w", q.ID, err)
	}
	return q, nil
}

// Modules lists modules with their question counts, ordered by code.
func (s *Store) Modules(ctx context.Context) ([]interview.Module, error) {
	defer observe("modules")()

	rows, err := s.db.QueryContext(ctx, `
		SELECT m.module_code, m.name, m.description, COUNT(q.question_id)
		FROM modules m
		LEFT JOIN questions q ON q.module_code = m.module_code
		GROUP BY m.module_code, m.name, m.description
		ORDER BY m.module_code`)
	if err != nil {
		return nil, fmt.Errorf("list modules: %w", err)
	}
	defer rows.Close()

	mods := []interview.Module{}
	for rows.Next() {
		var m interview.Module
		if err := rows.Scan(&m.Code, &m.Name, &m.Description, &m.QuestionCount); err != nil {
			return nil, err
		}
		mods = append(mods, m)
	}
	return mods, rows.Err()
}

// UserExists reports whether userID is registered.
func (s *Store) UserExists(ctx context.Context, userID string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM users WHERE user_id = ?`, userID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("lookup user: %w", err)
	}
	return true, nil
}

// UserName returns the user's display name, empty when unknown.
func (s *Store) UserName(ctx context.Context, userID string) (string, error) {
	var name string
	err := s.db.QueryRowContext(ctx, `SELECT name FROM users WHERE user_id = ?`, userID).Scan(&name)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("lookup user name: %w", err)
	}
	return name, nil
}

const (
	upsertUser = `
		INSERT INTO users (user_id, name, created_at) VALUES (?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET name = excluded.name`

	upsertModule = `
		INSERT INTO modules (module_code, name, description) VALUES (?, ?, ?)
		ON CONFLICT(module_code) DO UPDATE SET name = excluded.name, description = excluded.description`

	upsertQuestion = `
		INSERT INTO questions (question_id, module_code, topic_code, question, difficulty, example, code_stub, tags, language)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(question_id) DO UPDATE SET
			module_code = excluded.module_code, topic_code = excluded.topic_code,
			question = excluded.question, difficulty = excluded.difficulty,
			example = excluded.example, code_stub = excluded.code_stub,
			tags = excluded.tags, language = excluded.language`
)

// PutUser inserts or renames a user.
func (s *Store) PutUser(ctx context.Context, userID, name string) error {
	if _, err := s.db.ExecContext(ctx, upsertUser, userID, name, nowNano()); err != nil {
		return fmt.Errorf("put user %s: %w", userID, err)
	}
	return nil
}

// PutModule inserts or replaces a module.
func (s *Store) PutModule(ctx context.Context, m interview.Module) error {
	if _, err := s.db.ExecContext(ctx, upsertModule, m.Code, m.Name, m.Description); err != nil {
		return fmt.Errorf("put module %s: %w", m.Code, err)
	}
	return nil
}

// PutQuestion inserts or replaces a seed question. Its module must exist.
func (s *Store) PutQuestion(ctx context.Context, q interview.SeedQuestion) error {
	tags, err := encodeTags(q.Tags)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, upsertQuestion,
		q.ID, q.ModuleCode, q.TopicCode, q.Question, q.Difficulty, q.Example, q.CodeStub, tags, q.Language)
	if err != nil {
		return fmt.Errorf("put question %s: %w", q.ID, err)
	}
	return nil
}

func encodeTags(tags []string) (string, error) {
	if tags == nil {
		tags = []string{}
	}
	b, err := json.Marshal(tags)
	if err != nil {
		return "", fmt.Errorf("encode tags: %w", err)
	}
	return string(b), nil
}

func nowNano() int64 { return time.Now().UnixNano() }
