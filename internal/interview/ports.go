package interview

import (
	"context"
	"time"
)

// Store persists sessions. UpdateSession must only succeed when the stored
// version equals s.Version; it then increments s.Version. A mismatch
// returns ErrConflict, a missing session ErrNotFound.
type Store interface {
	CreateSession(ctx context.Context, s *Session) error
	GetSession(ctx context.Context, id string) (*Session, error)
	UpdateSession(ctx context.Context, s *Session) error
	ListSessions(ctx context.Context, userID string, limit int) ([]*Session, error)
}

// Module is an interview topic with its question count.
type Module struct {
	Code          string `json:"module_code"`
	Name          string `json:"name"`
	Description   string `json:"description,omitempty"`
	QuestionCount int    `json:"question_count"`
}

// QuestionBank supplies seed questions.
type QuestionBank interface {
	RandomQuestion(ctx context.Context, moduleCode string) (SeedQuestion, error)
	Modules(ctx context.Context) ([]Module, error)
}

// GenerateRequest is the question generator input.
type GenerateRequest struct {
	History []Message
	Topic   string
	Context string
	IsSeed  bool
}

// QuestionGenerator produces the next interview question.
type QuestionGenerator interface {
	Generate(ctx context.Context, req GenerateRequest) (string, error)
}

// AssessRequest is the quality gate input. Context may be empty.
type AssessRequest struct {
	Question string
	Answer   string
	Topic    string
	Context  string
}

// QualityGate classifies an answer as good or bad.
type QualityGate interface {
	Assess(ctx context.Context, req AssessRequest) (Verdict, error)
}

// Clarifier answers coding-phase questions about the seed question.
type Clarifier interface {
	Clarify(ctx context.Context, seedQuestion, candidateQuestion string) (string, error)
}

// Nudger writes the corrective message returned after a bad answer.
type Nudger interface {
	Nudge(ctx context.Context, question, answer string) (string, error)
}

// FeedbackGenerator produces structured feedback from a transcript.
type FeedbackGenerator interface {
	Feedback(ctx context.Context, req FeedbackRequest) (FeedbackDraft, error)
}

// Retriever returns topic context chunks, possibly none.
type Retriever interface {
	Retrieve(ctx context.Context, topic string, topK int) ([]string, error)
	// Search ranks the module's chunks against query instead of the topic.
	Search(ctx context.Context, module, query string, topK int) ([]string, error)
}

// ApproachAnalyzer reviews a candidate's description of how they would
// solve a question.
type ApproachAnalyzer interface {
	AnalyzeApproach(ctx context.Context, question, approach string) (ApproachAnalysis, error)
}

// CodeOptimizer rewrites candidate code to be correct and efficient.
type CodeOptimizer interface {
	OptimizeCode(ctx context.Context, req OptimizeRequest) (string, error)
}

// InteractionLog keeps standalone assistant requests per user.
type InteractionLog interface {
	RecordInteraction(ctx context.Context, in *Interaction) error
	// ListInteractions returns up to limit of the user's interactions,
	// newest first.
	ListInteractions(ctx context.Context, userID string, limit int) ([]Interaction, error)
}

// Directory answers questions about candidates.
type Directory interface {
	Exists(ctx context.Context, userID string) (bool, error)
	Name(ctx context.Context, userID string) (string, error)
	History(ctx context.Context, userID, topic, questionID string) (History, error)
	// PriorAttempt returns nil when the user has no other session on questionID.
	PriorAttempt(ctx context.Context, userID, questionID, excludeSessionID string) (*PriorAttempt, error)
}

// NoticeKind names a published session change.
type NoticeKind string

const (
	NoticeCreated       NoticeKind = "created"
	NoticePhase         NoticeKind = "phase"
	NoticeCodeSubmitted NoticeKind = "submitted"
	NoticeFeedback      NoticeKind = "feedback"
)

// Notice describes a session change for downstream consumers.
type Notice struct {
	Kind      NoticeKind `json:"kind"`
	SessionID string     `json:"session_id"`
	UserID    string     `json:"user_id"`
	Topic     string     `json:"topic"`
	Phase     Phase      `json:"phase"`
	At        time.Time  `json:"at"`
}

// Notifier publishes session changes. Failures never fail the operation.
type Notifier interface {
	Notify(ctx context.Context, n Notice) error
}
