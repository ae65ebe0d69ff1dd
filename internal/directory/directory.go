// Package directory answers questions about candidates: who they are and
// how their past interviews went.
package directory

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/interviewd/internal/interview"
	"github.com/fyrsmithlabs/interviewd/internal/logging"
)

var tracer = otel.Tracer("interviewd.directory")

// DefaultHistoryLimit is how many recent sessions feed the patterns.
const DefaultHistoryLimit = 15

// Source is the persistence the directory reads from.
type Source interface {
	UserExists(ctx context.Context, userID string) (bool, error)
	UserName(ctx context.Context, userID string) (string, error)
	ListSessions(ctx context.Context, userID string, limit int) ([]*interview.Session, error)
	LatestAttempt(ctx context.Context, userID, questionID, excludeSessionID string) (*interview.Session, error)
}

// Directory implements interview.Directory over a Source.
type Directory struct {
	src          Source
	historyLimit int
	log          *logging.Logger
}

var _ interview.Directory = (*Directory)(nil)

// New creates a Directory. historyLimit <= 0 selects DefaultHistoryLimit.
func New(src Source, historyLimit int, logger *logging.Logger) *Directory {
	if historyLimit <= 0 {
		historyLimit = DefaultHistoryLimit
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Directory{src: src, historyLimit: historyLimit, log: logger.Named("directory")}
}

// Exists implements interview.Directory.
func (d *Directory) Exists(ctx context.Context, userID string) (bool, error) {
	return d.src.UserExists(ctx, userID)
}

// Name implements interview.Directory. Unknown users have an empty name.
func (d *Directory) Name(ctx context.Context, userID string) (string, error) {
	return d.src.UserName(ctx, userID)
}

// History implements interview.Directory. A non-empty topic fills the
// topic-specific performance; a non-empty questionID fills the latest
// attempt on that question.
func (d *Directory) History(ctx context.Context, userID, topic, questionID string) (interview.History, error) {
	ctx, span := tracer.Start(ctx, "Directory.History")
	defer span.End()
	span.SetAttributes(attribute.String("topic", topic))

	sessions, err := d.src.ListSessions(ctx, userID, d.historyLimit)
	if err != nil {
		span.RecordError(err)
		return interview.History{}, fmt.Errorf("recent sessions: %w", err)
	}

	patterns := Extract(sessions, topic)
	if questionID != "" {
		prior, err := d.PriorAttempt(ctx, userID, questionID, "")
		if err != nil {
			d.log.Warn(ctx, "question history unavailable", zap.String("question_id", questionID), zap.Error(err))
		}
		patterns.QuestionHistory = prior
	}

	d.log.Debug(ctx, "computed interaction patterns",
		zap.Int("sessions", patterns.TotalSessions),
		zap.Float64("average_score", patterns.AverageScore),
	)

	return interview.History{Patterns: patterns, Guidance: Guidance(patterns)}, nil
}

// PriorAttempt implements interview.Directory.
func (d *Directory) PriorAttempt(ctx context.Context, userID, questionID, excludeSessionID string) (*interview.PriorAttempt, error) {
	sess, err := d.src.LatestAttempt(ctx, userID, questionID, excludeSessionID)
	if errors.Is(err, interview.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	prior := &interview.PriorAttempt{
		SessionID:   sess.ID,
		Answer:      sess.Code,
		SubmittedAt: sess.UpdatedAt,
	}
	if sess.Feedback != nil {
		prior.Result = sess.Feedback.Summary
	}
	return prior, nil
}
