package interview

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/interviewd/internal/logging"
)

const (
	defaultInteractionLimit = 50
	maxContextTopK          = 20
)

// ApproachAnalysis is structured feedback on a described approach.
type ApproachAnalysis struct {
	Feedback            string   `json:"feedback"`
	Strengths           []string `json:"strengths"`
	AreasForImprovement []string `json:"areas_for_improvement"`
	// Score is out of 10.
	Score float64 `json:"score"`
}

// ApproachRequest asks for a review of an approach. UserID is optional;
// when set the request is recorded in the user's interactions.
type ApproachRequest struct {
	UserID   string `json:"user_id,omitempty"`
	Question string `json:"question"`
	Approach string `json:"user_answer"`
}

// OptimizeRequest asks for an improved version of candidate code.
type OptimizeRequest struct {
	UserID       string `json:"user_id,omitempty"`
	Question     string `json:"question"`
	Code         string `json:"user_code"`
	Language     string `json:"language,omitempty"`
	SampleInput  string `json:"sample_input,omitempty"`
	SampleOutput string `json:"sample_output,omitempty"`
}

// OptimizeResult carries the rewritten code.
type OptimizeResult struct {
	OptimizedCode string `json:"optimized_code"`
}

// ContextRequest searches the reference material of one module.
type ContextRequest struct {
	ModuleCode string `json:"module_code"`
	Question   string `json:"question"`
	TopK       int    `json:"top_k,omitempty"`
}

// ContextResult is the material a question would be answered with.
type ContextResult struct {
	ModuleCode string   `json:"module_code"`
	Question   string   `json:"question"`
	Chunks     []string `json:"context"`
}

// InteractionKind names what produced an interaction.
type InteractionKind string

const (
	InteractionInterview        InteractionKind = "interview"
	InteractionApproachAnalysis InteractionKind = "approach_analysis"
	InteractionCodeOptimization InteractionKind = "code_optimization"
)

// Interaction is one entry of a user's history with the assistant.
type Interaction struct {
	ID        string          `json:"id"`
	UserID    string          `json:"user_id"`
	Kind      InteractionKind `json:"kind"`
	SessionID string          `json:"session_id,omitempty"`
	Question  string          `json:"question"`
	Input     string          `json:"input,omitempty"`
	Output    string          `json:"output,omitempty"`
	Score     *float64        `json:"score,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// AnalyzeApproach reviews how a candidate would solve question.
func (s *Service) AnalyzeApproach(ctx context.Context, req ApproachRequest) (*ApproachAnalysis, error) {
	ctx, span := s.tracer.Start(ctx, "interview.AnalyzeApproach", trace.WithAttributes(
		attribute.String("user.id", req.UserID),
	))
	defer span.End()
	ctx = logging.WithUserID(ctx, req.UserID)

	if strings.TrimSpace(req.Question) == "" || strings.TrimSpace(req.Approach) == "" {
		return nil, fail(span, fmt.Errorf("%w: question and user_answer are required", ErrInvalidInput))
	}
	if err := s.optionalUser(ctx, req.UserID); err != nil {
		return nil, fail(span, err)
	}

	start := time.Now()
	analysis, err := s.deps.Analyzer.AnalyzeApproach(ctx, req.Question, req.Approach)
	s.observeOracle(ctx, "approach", start)
	if err != nil {
		return nil, fail(span, generationFailed("approach", err))
	}
	analysis.Strengths = nonNil(analysis.Strengths)
	analysis.AreasForImprovement = nonNil(analysis.AreasForImprovement)

	score := analysis.Score
	s.record(ctx, &Interaction{
		UserID:   req.UserID,
		Kind:     InteractionApproachAnalysis,
		Question: req.Question,
		Input:    req.Approach,
		Output:   analysis.Feedback,
		Score:    &score,
	})
	return &analysis, nil
}

// OptimizeCode returns an improved version of the candidate's code.
func (s *Service) OptimizeCode(ctx context.Context, req OptimizeRequest) (*OptimizeResult, error) {
	ctx, span := s.tracer.Start(ctx, "interview.OptimizeCode", trace.WithAttributes(
		attribute.String("user.id", req.UserID),
		attribute.String("language", req.Language),
	))
	defer span.End()
	ctx = logging.WithUserID(ctx, req.UserID)

	if strings.TrimSpace(req.Question) == "" || strings.TrimSpace(req.Code) == "" {
		return nil, fail(span, fmt.Errorf("%w: question and user_code are required", ErrInvalidInput))
	}
	if err := s.optionalUser(ctx, req.UserID); err != nil {
		return nil, fail(span, err)
	}

	start := time.Now()
	code, err := s.deps.Optimizer.OptimizeCode(ctx, req)
	s.observeOracle(ctx, "optimize", start)
	if err != nil {
		return nil, fail(span, generationFailed("optimize", err))
	}

	s.record(ctx, &Interaction{
		UserID:   req.UserID,
		Kind:     InteractionCodeOptimization,
		Question: req.Question,
		Input:    req.Code,
		Output:   code,
	})
	return &OptimizeResult{OptimizedCode: code}, nil
}

// RetrieveContext returns the reference chunks the oracles would see for
// question. Without a configured retriever the result is empty.
func (s *Service) RetrieveContext(ctx context.Context, req ContextRequest) (*ContextResult, error) {
	ctx, span := s.tracer.Start(ctx, "interview.RetrieveContext", trace.WithAttributes(
		attribute.String("module.code", req.ModuleCode),
	))
	defer span.End()

	if strings.TrimSpace(req.ModuleCode) == "" || strings.TrimSpace(req.Question) == "" {
		return nil, fail(span, fmt.Errorf("%w: module_code and question are required", ErrInvalidInput))
	}
	topK := req.TopK
	switch {
	case topK < 0 || topK > maxContextTopK:
		return nil, fail(span, fmt.Errorf("%w: top_k must be between 1 and %d", ErrInvalidInput, maxContextTopK))
	case topK == 0:
		topK = s.cfg.ContextTopK
	}

	res := &ContextResult{ModuleCode: req.ModuleCode, Question: req.Question, Chunks: []string{}}
	if s.deps.Retriever == nil || topK <= 0 {
		return res, nil
	}

	chunks, err := s.deps.Retriever.Search(ctx, req.ModuleCode, req.Question, topK)
	if err != nil {
		return nil, fail(span, fmt.Errorf("retrieve context: %w", err))
	}
	res.Chunks = nonNil(chunks)
	span.SetAttributes(attribute.Int("results", len(res.Chunks)))
	return res, nil
}

// Interactions returns the user's interview sessions together with their
// recorded assistant requests, newest first.
func (s *Service) Interactions(ctx context.Context, userID string, limit int) ([]Interaction, error) {
	ctx, span := s.tracer.Start(ctx, "interview.Interactions", trace.WithAttributes(
		attribute.String("user.id", userID),
	))
	defer span.End()

	if err := s.requireUser(ctx, userID); err != nil {
		return nil, fail(span, err)
	}
	if limit <= 0 {
		limit = defaultInteractionLimit
	}

	sessions, err := s.deps.Store.ListSessions(ctx, userID, limit)
	if err != nil {
		return nil, fail(span, err)
	}
	out := make([]Interaction, 0, len(sessions))
	for _, sess := range sessions {
		out = append(out, sessionInteraction(sess))
	}

	if s.deps.Interactions != nil {
		recorded, err := s.deps.Interactions.ListInteractions(ctx, userID, limit)
		if err != nil {
			return nil, fail(span, err)
		}
		out = append(out, recorded...)
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func sessionInteraction(sess *Session) Interaction {
	in := Interaction{
		ID:        sess.ID,
		UserID:    sess.UserID,
		Kind:      InteractionInterview,
		SessionID: sess.ID,
		Question:  sess.Seed.Question,
		Input:     sess.Code,
		Output:    string(sess.Status),
		CreatedAt: sess.CreatedAt,
	}
	if sess.Feedback != nil {
		score := sess.Feedback.Feedback.OverallScore
		in.Score = &score
	}
	return in
}

// optionalUser validates userID only when one was given.
func (s *Service) optionalUser(ctx context.Context, userID string) error {
	if userID == "" {
		return nil
	}
	return s.requireUser(ctx, userID)
}

// record counts the request and stores it when a user is attached. A
// failed write is logged and never fails the request.
func (s *Service) record(ctx context.Context, in *Interaction) {
	s.assists.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", string(in.Kind))))
	if in.UserID == "" || s.deps.Interactions == nil {
		return
	}
	in.ID = uuid.NewString()
	in.CreatedAt = s.now()
	if err := s.deps.Interactions.RecordInteraction(ctx, in); err != nil {
		s.log.Warn(ctx, "failed to record interaction", zap.String("kind", string(in.Kind)), zap.Error(err))
	}
}
