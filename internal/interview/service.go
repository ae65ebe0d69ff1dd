// Package interview drives mock interview sessions: seed question, gated
// follow-ups, the coding phase and idempotent feedback.
package interview

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/interviewd/internal/logging"
)

const instrumentationName = "github.com/fyrsmithlabs/interviewd/internal/interview"

// Config configures the interview service.
type Config struct {
	Policy Policy

	// ContextTopK is the number of retrieved chunks passed to oracles.
	ContextTopK int
}

// DefaultServiceConfig returns the standard policy with three context chunks.
func DefaultServiceConfig() *Config {
	return &Config{Policy: DefaultPolicy(), ContextTopK: 3}
}

// Deps are the collaborators a Service needs. Retriever, Notifier,
// Interactions, Tracer and Meter are optional.
type Deps struct {
	Store     Store
	Bank      QuestionBank
	Questions QuestionGenerator
	Gate      QualityGate
	Clarifier Clarifier
	Nudger    Nudger
	Feedback  FeedbackGenerator
	Analyzer  ApproachAnalyzer
	Optimizer CodeOptimizer
	Directory Directory
	Retriever Retriever
	Notifier  Notifier

	Interactions InteractionLog

	Tracer trace.Tracer
	Meter  metric.Meter
}

// Service implements the interview operations.
type Service struct {
	cfg  *Config
	deps Deps
	log  *logging.Logger
	now  func() time.Time

	tracer trace.Tracer

	answers     metric.Int64Counter
	forced      metric.Int64Counter
	transitions metric.Int64Counter
	feedback    metric.Int64Counter
	violations  metric.Int64Counter
	assists     metric.Int64Counter
	oracleTime  metric.Float64Histogram
}

// NewService creates an interview service.
func NewService(cfg *Config, deps Deps, logger *logging.Logger) (*Service, error) {
	if cfg == nil {
		cfg = DefaultServiceConfig()
	}
	if cfg.Policy.MaxFollowUps < 1 {
		return nil, errors.New("policy max follow-ups must be at least 1")
	}
	switch {
	case deps.Store == nil:
		return nil, errors.New("store is required")
	case deps.Bank == nil:
		return nil, errors.New("question bank is required")
	case deps.Questions == nil:
		return nil, errors.New("question generator is required")
	case deps.Gate == nil:
		return nil, errors.New("quality gate is required")
	case deps.Clarifier == nil:
		return nil, errors.New("clarifier is required")
	case deps.Nudger == nil:
		return nil, errors.New("nudger is required")
	case deps.Feedback == nil:
		return nil, errors.New("feedback generator is required")
	case deps.Analyzer == nil:
		return nil, errors.New("approach analyzer is required")
	case deps.Optimizer == nil:
		return nil, errors.New("code optimizer is required")
	case deps.Directory == nil:
		return nil, errors.New("directory is required")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	if deps.Tracer == nil {
		deps.Tracer = otel.Tracer(instrumentationName)
	}
	if deps.Meter == nil {
		deps.Meter = otel.Meter(instrumentationName)
	}

	s := &Service{
		cfg:    cfg,
		deps:   deps,
		log:    logger.Named("interview"),
		now:    time.Now,
		tracer: deps.Tracer,
	}
	s.initMetrics(deps.Meter)
	return s, nil
}

func (s *Service) initMetrics(meter metric.Meter) {
	counter := func(name, desc string) metric.Int64Counter {
		c, err := meter.Int64Counter(name, metric.WithDescription(desc))
		if err != nil {
			s.log.Warn(context.Background(), "failed to create counter", zap.String("name", name), zap.Error(err))
			return noop.Int64Counter{}
		}
		return c
	}

	s.answers = counter("interview.answers", "Answers assessed by the quality gate")
	s.forced = counter("interview.rejections.forced", "Questions force-advanced after the rejection cap")
	s.transitions = counter("interview.transitions", "Phase transitions")
	s.feedback = counter("interview.feedback", "Feedback requests by outcome")
	s.violations = counter("interview.invariant_violations", "Sessions found in an unexpected shape")
	s.assists = counter("interview.assists", "Standalone assistant requests by kind")

	h, err := meter.Float64Histogram("interview.oracle.duration",
		metric.WithDescription("Oracle call latency"),
		metric.WithUnit("s"),
	)
	if err != nil {
		s.log.Warn(context.Background(), "failed to create histogram", zap.Error(err))
		h = noop.Float64Histogram{}
	}
	s.oracleTime = h
}

// InitResult is returned when a session starts.
type InitResult struct {
	SessionID      string   `json:"session_id"`
	BaseQuestion   string   `json:"base_question"`
	BaseQuestionID string   `json:"base_question_id"`
	Difficulty     string   `json:"difficulty"`
	Example        string   `json:"example"`
	CodeStub       string   `json:"code_stub"`
	Tags           []string `json:"tags"`
	Language       string   `json:"language"`
	FirstFollowUp  string   `json:"first_follow_up"`
	ModuleCode     string   `json:"module_code"`
	TopicCode      string   `json:"topic_code"`
}

// Initialize starts a session for userID on moduleCode.
func (s *Service) Initialize(ctx context.Context, userID, moduleCode string) (*InitResult, error) {
	ctx, span := s.tracer.Start(ctx, "interview.Initialize", trace.WithAttributes(
		attribute.String("user.id", userID),
		attribute.String("module.code", moduleCode),
	))
	defer span.End()
	ctx = logging.WithUserID(ctx, userID)

	if strings.TrimSpace(userID) == "" || strings.TrimSpace(moduleCode) == "" {
		return nil, fail(span, fmt.Errorf("%w: user_id and module_code are required", ErrInvalidInput))
	}

	if err := s.requireUser(ctx, userID); err != nil {
		return nil, fail(span, err)
	}

	seed, err := s.deps.Bank.RandomQuestion(ctx, moduleCode)
	if err != nil {
		return nil, fail(span, fmt.Errorf("seed question for module %s: %w", moduleCode, err))
	}

	first, err := s.generate(ctx, GenerateRequest{Topic: moduleCode, IsSeed: true})
	if err != nil {
		return nil, fail(span, err)
	}

	now := s.now()
	sess := &Session{
		ID:             NewSessionID(userID, moduleCode, now),
		UserID:         userID,
		UserName:       s.displayName(ctx, userID),
		Topic:          moduleCode,
		Phase:          PhaseQuestioning,
		Status:         StatusInProgress,
		Seed:           seed,
		FollowUps:      []Turn{{Question: first, AskedAt: now}},
		Clarifications: []Turn{},
		TotalQuestions: 1,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := s.deps.Store.CreateSession(ctx, sess); err != nil {
		return nil, fail(span, fmt.Errorf("create session: %w", err))
	}

	ctx = logging.WithSessionID(ctx, sess.ID)
	span.SetAttributes(attribute.String("session.id", sess.ID))
	s.log.Info(ctx, "interview session created",
		zap.String("module", moduleCode),
		zap.String("question_id", seed.ID),
	)
	s.notify(ctx, sess, NoticeCreated)

	return &InitResult{
		SessionID:      sess.ID,
		BaseQuestion:   seed.Question,
		BaseQuestionID: seed.ID,
		Difficulty:     seed.Difficulty,
		Example:        seed.Example,
		CodeStub:       seed.CodeStub,
		Tags:           nonNil(seed.Tags),
		Language:       seed.Language,
		FirstFollowUp:  first,
		ModuleCode:     seed.ModuleCode,
		TopicCode:      seed.TopicCode,
	}, nil
}

// AnswerRequest is one candidate submission.
type AnswerRequest struct {
	SessionID     string `json:"session_id"`
	Answer        string `json:"answer"`
	Clarification bool   `json:"clarification"`
}

// AnswerResult is the interviewer's reply to a submission.
type AnswerResult struct {
	Question      string   `json:"question,omitempty"`
	Message       string   `json:"message,omitempty"`
	Clarification bool     `json:"clarification,omitempty"`
	ReadyToCode   bool     `json:"ready_to_code"`
	CodeStub      string   `json:"code_stub,omitempty"`
	Language      string   `json:"language,omitempty"`
	Tags          []string `json:"tags,omitempty"`
}

// SubmitAnswer advances the session by one candidate submission. Every
// oracle call completes before the single versioned write, so a failure
// leaves the session untouched.
func (s *Service) SubmitAnswer(ctx context.Context, req AnswerRequest) (*AnswerResult, error) {
	ctx, span := s.tracer.Start(ctx, "interview.SubmitAnswer", trace.WithAttributes(
		attribute.String("session.id", req.SessionID),
		attribute.Bool("clarification", req.Clarification),
	))
	defer span.End()
	ctx = logging.WithSessionID(ctx, req.SessionID)

	if strings.TrimSpace(req.SessionID) == "" {
		return nil, fail(span, fmt.Errorf("%w: session_id is required", ErrInvalidInput))
	}
	if strings.TrimSpace(req.Answer) == "" {
		return nil, fail(span, fmt.Errorf("%w: answer is required", ErrInvalidInput))
	}

	sess, err := s.deps.Store.GetSession(ctx, req.SessionID)
	if err != nil {
		return nil, fail(span, err)
	}
	ctx = logging.WithUserID(ctx, sess.UserID)
	span.SetAttributes(attribute.String("phase", string(sess.Phase)))

	var res *AnswerResult
	switch sess.Phase {
	case PhaseCoding:
		if req.Clarification {
			res, err = s.clarify(ctx, sess, req.Answer)
		} else {
			res, err = s.submitCode(ctx, sess, req.Answer)
		}
	case PhaseQuestioning:
		res, err = s.answer(ctx, sess, req.Answer)
	case PhaseCompleted:
		err = ErrSessionCompleted
	default:
		err = fmt.Errorf("%w: unknown phase %q", ErrInvalidTransition, sess.Phase)
	}
	if err != nil {
		return nil, fail(span, err)
	}
	return res, nil
}

func (s *Service) clarify(ctx context.Context, sess *Session, question string) (*AnswerResult, error) {
	if _, _, err := Transition(sess.Phase, ClarificationAsked{}, s.cfg.Policy); err != nil {
		return nil, err
	}

	start := time.Now()
	reply, err := s.deps.Clarifier.Clarify(ctx, sess.Seed.Question, question)
	s.observeOracle(ctx, "clarification", start)
	if err != nil {
		return nil, generationFailed("clarification", err)
	}

	work := sess.Clone()
	work.AddClarification(question, reply, s.now())
	if err := s.save(ctx, work); err != nil {
		return nil, err
	}

	return &AnswerResult{
		Question:      reply,
		Clarification: true,
		ReadyToCode:   true,
		Language:      sess.Seed.Language,
	}, nil
}

func (s *Service) submitCode(ctx context.Context, sess *Session, code string) (*AnswerResult, error) {
	if _, _, err := Transition(sess.Phase, CodeSubmitted{}, s.cfg.Policy); err != nil {
		return nil, err
	}

	work := sess.Clone()
	work.Code = code
	work.Status = StatusSubmitted
	if err := s.save(ctx, work); err != nil {
		return nil, err
	}

	s.log.Info(ctx, "code submitted", zap.Int("code_bytes", len(code)))
	s.notify(ctx, work, NoticeCodeSubmitted)

	return &AnswerResult{
		Message:  "Code submitted successfully. Generating feedback.",
		Language: sess.Seed.Language,
	}, nil
}

func (s *Service) answer(ctx context.Context, sess *Session, answer string) (*AnswerResult, error) {
	work := sess.Clone()
	now := s.now()
	work.RecordAnswer(answer, now)

	latest := s.latestAnswered(ctx, work)

	rag := s.retrieveContext(ctx, work.Topic)

	start := time.Now()
	verdict, err := s.deps.Gate.Assess(ctx, AssessRequest{
		Question: latest.Question,
		Answer:   latest.Answer,
		Topic:    work.Topic,
		Context:  rag,
	})
	s.observeOracle(ctx, "quality", start)
	if err != nil {
		return nil, generationFailed("quality", err)
	}
	s.answers.Add(ctx, 1, metric.WithAttributes(attribute.String("verdict", string(verdict))))

	next, effects, err := Transition(work.Phase, AnswerAssessed{
		Verdict:        verdict,
		TotalQuestions: work.TotalQuestions,
		Rejections:     work.Rejections,
	}, s.cfg.Policy)
	if err != nil {
		return nil, err
	}

	res := &AnswerResult{Language: work.Seed.Language}
	for _, eff := range effects {
		switch eff {
		case EffectCountRejection:
			work.Rejections++

		case EffectNudge:
			start := time.Now()
			nudge, err := s.deps.Nudger.Nudge(ctx, latest.Question, latest.Answer)
			s.observeOracle(ctx, "nudge", start)
			if err != nil {
				return nil, generationFailed("nudge", err)
			}
			res.Question = nudge

		case EffectForceAdvance:
			s.forced.Add(ctx, 1)
			s.log.Warn(ctx, "rejection cap reached; advancing",
				zap.Int("rejections", work.Rejections+1),
				zap.Int("cap", s.cfg.Policy.MaxRejections),
			)

		case EffectAskFollowUp:
			q, err := s.generate(ctx, GenerateRequest{
				History: work.Conversation(),
				Topic:   work.Topic,
				Context: rag,
			})
			if err != nil {
				return nil, err
			}
			work.AppendFollowUp(q, now)
			res.Question = q

		case EffectEnterCoding:
			enterCoding(work, next, res)
		}
	}

	if err := s.save(ctx, work); err != nil {
		return nil, err
	}

	if work.Phase != sess.Phase {
		s.enteredCoding(ctx, work, "budget")
	}
	s.log.Debug(ctx, "answer processed",
		zap.String("verdict", string(verdict)),
		zap.Int("total_questions", work.TotalQuestions),
		zap.Int("rejections", work.Rejections),
	)
	return res, nil
}

// EnterCoding moves a questioning session straight to the coding phase
// without spending the rest of the follow-up budget. The unanswered
// follow-up stays in the transcript.
func (s *Service) EnterCoding(ctx context.Context, sessionID string) (*AnswerResult, error) {
	ctx, span := s.tracer.Start(ctx, "interview.EnterCoding", trace.WithAttributes(
		attribute.String("session.id", sessionID),
	))
	defer span.End()
	ctx = logging.WithSessionID(ctx, sessionID)

	if strings.TrimSpace(sessionID) == "" {
		return nil, fail(span, fmt.Errorf("%w: session_id is required", ErrInvalidInput))
	}

	sess, err := s.deps.Store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, fail(span, err)
	}
	ctx = logging.WithUserID(ctx, sess.UserID)

	next, _, err := Transition(sess.Phase, CodingRequested{}, s.cfg.Policy)
	if err != nil {
		return nil, fail(span, err)
	}

	work := sess.Clone()
	res := &AnswerResult{Language: work.Seed.Language}
	enterCoding(work, next, res)
	if err := s.save(ctx, work); err != nil {
		return nil, fail(span, err)
	}

	s.enteredCoding(ctx, work, "requested")
	return res, nil
}

// enterCoding applies the coding-phase entry to work and fills res with the
// coding prompt and the seed question's stub.
func enterCoding(work *Session, next Phase, res *AnswerResult) {
	work.Phase = next
	work.Rejections = 0
	res.Question = CodingPrompt
	res.Clarification = true
	res.ReadyToCode = true
	res.CodeStub = work.Seed.CodeStub
	res.Tags = nonNil(work.Seed.Tags)
}

func (s *Service) enteredCoding(ctx context.Context, sess *Session, reason string) {
	s.transitions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("to", string(sess.Phase)),
		attribute.String("reason", reason),
	))
	s.log.Info(ctx, "session entered coding phase",
		zap.String("reason", reason),
		zap.Int("total_questions", sess.TotalQuestions),
	)
	s.notify(ctx, sess, NoticePhase)
}

// latestAnswered returns the turn to assess. Falling back to the last
// follow-up means the recorded answer was lost, so it is logged as an
// invariant violation rather than handled silently.
func (s *Service) latestAnswered(ctx context.Context, sess *Session) Turn {
	latest, fellBack := sess.LatestAnswered()
	if fellBack {
		s.violations.Add(ctx, 1, metric.WithAttributes(attribute.String("check", "latest_answered")))
		s.log.Error(ctx, "no answered follow-up after recording answer; assessing last follow-up",
			zap.Bool("invariant_violation", true),
			zap.Int("follow_ups", len(sess.FollowUps)),
		)
	}
	return latest
}

// Feedback returns the session's feedback, generating and persisting it
// on first request. Later requests replay the stored document.
func (s *Service) Feedback(ctx context.Context, sessionID string) (*Feedback, error) {
	ctx, span := s.tracer.Start(ctx, "interview.Feedback", trace.WithAttributes(
		attribute.String("session.id", sessionID),
	))
	defer span.End()
	ctx = logging.WithSessionID(ctx, sessionID)

	sess, err := s.deps.Store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, fail(span, err)
	}
	ctx = logging.WithUserID(ctx, sess.UserID)

	if sess.Feedback != nil {
		s.feedback.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", "replayed")))
		return replay(sess), nil
	}

	if !sess.HasAnswers() {
		return nil, fail(span, ErrEmptyConversation)
	}

	name := s.displayName(ctx, sess.UserID)

	history, err := s.deps.Directory.History(ctx, sess.UserID, sess.Topic, sess.Seed.ID)
	if err != nil {
		s.log.Warn(ctx, "history unavailable; generating without it", zap.Error(err))
		history = History{}
	}

	prior, err := s.deps.Directory.PriorAttempt(ctx, sess.UserID, sess.Seed.ID, sess.ID)
	if err != nil {
		s.log.Warn(ctx, "prior attempt lookup failed", zap.Error(err))
		prior = nil
	}
	history.Patterns.QuestionHistory = prior

	start := time.Now()
	draft, err := s.deps.Feedback.Feedback(ctx, FeedbackRequest{
		Transcript:    sess.Transcript(),
		CandidateName: name,
		PriorAttempt:  prior,
		Guidance:      history.Guidance,
		Patterns:      &history.Patterns,
	})
	s.observeOracle(ctx, "feedback", start)
	if err != nil {
		return nil, fail(span, generationFailed("feedback", err))
	}

	next, _, err := Transition(sess.Phase, FeedbackSaved{}, s.cfg.Policy)
	if err != nil {
		return nil, fail(span, err)
	}

	display := fromDraft(draft)
	display.BaseQuestion = sess.Seed.Question
	display.PreviousAttempt = prior
	display = WithDefaults(display, sess.Seed.Question)

	work := sess.Clone()
	work.Phase = next
	work.Status = StatusCompleted
	work.Feedback = &StoredFeedback{
		Feedback:     display,
		UserPatterns: &history.Patterns,
		Guidance:     history.Guidance,
		GeneratedAt:  s.now(),
	}

	if err := s.save(ctx, work); err != nil {
		if errors.Is(err, ErrConflict) {
			// A concurrent request may have saved feedback first.
			if latest, gerr := s.deps.Store.GetSession(ctx, sessionID); gerr == nil && latest.Feedback != nil {
				s.feedback.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", "replayed")))
				return replay(latest), nil
			}
		}
		return nil, fail(span, err)
	}

	s.feedback.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", "generated")))
	s.transitions.Add(ctx, 1, metric.WithAttributes(attribute.String("to", string(next))))
	s.log.Info(ctx, "feedback generated", zap.Float64("overall_score", display.OverallScore))
	s.notify(ctx, work, NoticeFeedback)

	return &display, nil
}

func replay(sess *Session) *Feedback {
	fb := WithDefaults(sess.Feedback.Feedback, sess.Seed.Question)
	return &fb
}

// Summary is one row of a user's session list.
type Summary struct {
	SessionID      string    `json:"session_id"`
	Topic          string    `json:"topic"`
	UserName       string    `json:"user_name"`
	Status         Status    `json:"status"`
	Phase          Phase     `json:"current_phase"`
	TotalQuestions int       `json:"total_questions"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
	HasFeedback    bool      `json:"has_feedback"`
}

func summarize(sess *Session) Summary {
	return Summary{
		SessionID:      sess.ID,
		Topic:          sess.Topic,
		UserName:       sess.UserName,
		Status:         sess.Status,
		Phase:          sess.Phase,
		TotalQuestions: sess.TotalQuestions,
		CreatedAt:      sess.CreatedAt,
		UpdatedAt:      sess.UpdatedAt,
		HasFeedback:    sess.Feedback != nil,
	}
}

// ListSessions returns the user's most recent sessions, newest first.
func (s *Service) ListSessions(ctx context.Context, userID string, limit int) ([]Summary, error) {
	ctx, span := s.tracer.Start(ctx, "interview.ListSessions", trace.WithAttributes(
		attribute.String("user.id", userID),
	))
	defer span.End()

	if err := s.requireUser(ctx, userID); err != nil {
		return nil, fail(span, err)
	}
	if limit <= 0 {
		limit = 20
	}

	sessions, err := s.deps.Store.ListSessions(ctx, userID, limit)
	if err != nil {
		return nil, fail(span, err)
	}

	out := make([]Summary, 0, len(sessions))
	for _, sess := range sessions {
		out = append(out, summarize(sess))
	}
	return out, nil
}

// Detail is the full view of one session.
type Detail struct {
	Summary
	Seed           SeedQuestion `json:"metadata"`
	FollowUps      []Turn       `json:"follow_up_questions"`
	Clarifications []Turn       `json:"clarifications"`
	Code           string       `json:"code,omitempty"`
	Feedback       *Feedback    `json:"feedback"`
}

// SessionDetail returns one of userID's sessions.
func (s *Service) SessionDetail(ctx context.Context, userID, sessionID string) (*Detail, error) {
	ctx, span := s.tracer.Start(ctx, "interview.SessionDetail", trace.WithAttributes(
		attribute.String("user.id", userID),
		attribute.String("session.id", sessionID),
	))
	defer span.End()

	if err := s.requireUser(ctx, userID); err != nil {
		return nil, fail(span, err)
	}

	sess, err := s.deps.Store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, fail(span, err)
	}
	if sess.UserID != userID {
		s.log.Warn(logging.WithUserID(ctx, userID), "session detail requested by non-owner",
			zap.String("session_id", sessionID))
		return nil, fail(span, ErrAccessDenied)
	}

	d := &Detail{
		Summary:        summarize(sess),
		Seed:           sess.Seed,
		FollowUps:      sess.FollowUps,
		Clarifications: sess.Clarifications,
		Code:           sess.Code,
	}
	if sess.Feedback != nil {
		d.Feedback = replay(sess)
	}
	return d, nil
}

// Patterns returns the user's interaction patterns and guidance.
func (s *Service) Patterns(ctx context.Context, userID string) (*History, error) {
	ctx, span := s.tracer.Start(ctx, "interview.Patterns", trace.WithAttributes(
		attribute.String("user.id", userID),
	))
	defer span.End()

	if err := s.requireUser(ctx, userID); err != nil {
		return nil, fail(span, err)
	}

	h, err := s.deps.Directory.History(ctx, userID, "", "")
	if err != nil {
		return nil, fail(span, err)
	}
	return &h, nil
}

// Modules lists the available interview modules.
func (s *Service) Modules(ctx context.Context) ([]Module, error) {
	ctx, span := s.tracer.Start(ctx, "interview.Modules")
	defer span.End()

	mods, err := s.deps.Bank.Modules(ctx)
	if err != nil {
		return nil, fail(span, err)
	}
	return mods, nil
}

func (s *Service) requireUser(ctx context.Context, userID string) error {
	if strings.TrimSpace(userID) == "" {
		return fmt.Errorf("%w: user_id is required", ErrInvalidInput)
	}
	ok, err := s.deps.Directory.Exists(ctx, userID)
	if err != nil {
		return fmt.Errorf("validate user: %w", err)
	}
	if !ok {
		return fmt.Errorf("user %s: %w", userID, ErrNotFound)
	}
	return nil
}

func (s *Service) displayName(ctx context.Context, userID string) string {
	name, err := s.deps.Directory.Name(ctx, userID)
	if err != nil || name == "" {
		if err != nil {
			s.log.Warn(ctx, "user name lookup failed", zap.Error(err))
		}
		return "User"
	}
	return name
}

func (s *Service) generate(ctx context.Context, req GenerateRequest) (string, error) {
	start := time.Now()
	q, err := s.deps.Questions.Generate(ctx, req)
	s.observeOracle(ctx, "question", start)
	if err != nil {
		return "", generationFailed("question", err)
	}
	return q, nil
}

// retrieveContext never fails; missing context only weakens the oracles.
func (s *Service) retrieveContext(ctx context.Context, topic string) string {
	if s.deps.Retriever == nil {
		return ""
	}
	chunks, err := s.deps.Retriever.Retrieve(ctx, topic, s.cfg.ContextTopK)
	if err != nil {
		s.log.Warn(ctx, "context retrieval failed", zap.String("topic", topic), zap.Error(err))
		return ""
	}
	return strings.Join(chunks, "\n\n")
}

func (s *Service) save(ctx context.Context, sess *Session) error {
	sess.UpdatedAt = s.now()
	if err := s.deps.Store.UpdateSession(ctx, sess); err != nil {
		if errors.Is(err, ErrConflict) {
			s.log.Warn(ctx, "concurrent session write detected", zap.Int64("version", sess.Version))
		}
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

func (s *Service) notify(ctx context.Context, sess *Session, kind NoticeKind) {
	if s.deps.Notifier == nil {
		return
	}
	err := s.deps.Notifier.Notify(ctx, Notice{
		Kind:      kind,
		SessionID: sess.ID,
		UserID:    sess.UserID,
		Topic:     sess.Topic,
		Phase:     sess.Phase,
		At:        s.now(),
	})
	if err != nil {
		s.log.Warn(ctx, "failed to publish session notice", zap.String("kind", string(kind)), zap.Error(err))
	}
}

func (s *Service) observeOracle(ctx context.Context, oracle string, start time.Time) {
	s.oracleTime.Record(ctx, time.Since(start).Seconds(),
		metric.WithAttributes(attribute.String("oracle", oracle)))
}

func fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}
