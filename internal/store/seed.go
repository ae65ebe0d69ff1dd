package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/BurntSushi/toml"
	"go.uber.org/zap"
)

// Bank is the on-disk question bank format.
type Bank struct {
	Users     []BankUser     `toml:"users"`
	Modules   []BankModule   `toml:"modules"`
	Questions []BankQuestion `toml:"questions"`
}

// BankUser is a registered candidate.
type BankUser struct {
	ID   string `toml:"id"`
	Name string `toml:"name"`
}

// BankModule is an interview topic.
type BankModule struct {
	Code        string `toml:"code"`
	Name        string `toml:"name"`
	Description string `toml:"description"`
}

// BankQuestion is a seed question.
type BankQuestion struct {
	ID         string   `toml:"id"`
	Module     string   `toml:"module"`
	Topic      string   `toml:"topic"`
	Question   string   `toml:"question"`
	Difficulty string   `toml:"difficulty"`
	Example    string   `toml:"example"`
	CodeStub   string   `toml:"code_stub"`
	Tags       []string `toml:"tags"`
	Language   string   `toml:"language"`
}

// LoadBank decodes a TOML question bank and checks it for consistency.
func LoadBank(path string) (*Bank, error) {
	var b Bank
	md, err := toml.DecodeFile(path, &b)
	if err != nil {
		return nil, fmt.Errorf("decode bank %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("bank %s: unknown keys %v", path, undecoded)
	}
	if err := b.Validate(); err != nil {
		return nil, fmt.Errorf("bank %s: %w", path, err)
	}
	return &b, nil
}

// Validate checks required fields and that each question names a module
// declared in the bank.
func (b *Bank) Validate() error {
	modules := make(map[string]bool, len(b.Modules))
	for _, m := range b.Modules {
		if m.Code == "" || m.Name == "" {
			return errors.New("module code and name are required")
		}
		modules[m.Code] = true
	}
	for _, u := range b.Users {
		if u.ID == "" {
			return errors.New("user id is required")
		}
	}
	seen := make(map[string]bool, len(b.Questions))
	for _, q := range b.Questions {
		if q.ID == "" || q.Question == "" {
			return errors.New("question id and text are required")
		}
		if seen[q.ID] {
			return fmt.Errorf("duplicate question id %s", q.ID)
		}
		seen[q.ID] = true
		if !modules[q.Module] {
			return fmt.Errorf("question %s references undeclared module %q", q.ID, q.Module)
		}
	}
	return nil
}

// Import upserts every bank entry in one transaction.
func (s *Store) Import(ctx context.Context, b *Bank) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin import: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, u := range b.Users {
		if _, err := tx.ExecContext(ctx, upsertUser, u.ID, u.Name, nowNano()); err != nil {
			return fmt.Errorf("import user %s: %w", u.ID, err)
		}
	}
	for _, m := range b.Modules {
		if _, err := tx.ExecContext(ctx, upsertModule, m.Code, m.Name, m.Description); err != nil {
			return fmt.Errorf("import module %s: %w", m.Code, err)
		}
	}
	for _, q := range b.Questions {
		tags, err := encodeTags(q.Tags)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, upsertQuestion,
			q.ID, q.Module, q.Topic, q.Question, q.Difficulty, q.Example, q.CodeStub, tags, q.Language)
		if err != nil {
			return fmt.Errorf("import question %s: %w", q.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit import: %w", err)
	}

	BankImports.WithLabelValues("user").Add(float64(len(b.Users)))
	BankImports.WithLabelValues("module").Add(float64(len(b.Modules)))
	BankImports.WithLabelValues("question").Add(float64(len(b.Questions)))
	s.log.Info(ctx, "question bank imported",
		zap.Int("users", len(b.Users)),
		zap.Int("modules", len(b.Modules)),
		zap.Int("questions", len(b.Questions)),
	)
	return nil
}
