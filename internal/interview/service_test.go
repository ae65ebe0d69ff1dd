package interview

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/fyrsmithlabs/interviewd/internal/logging"
	"github.com/fyrsmithlabs/interviewd/internal/telemetry"
)

type harness struct {
	svc       *Service
	store     *memStore
	gen       *fakeGenerator
	gate      *fakeGate
	clarifier *fakeClarifier
	nudger    *fakeNudger
	feedback  *fakeFeedback
	analyzer  *fakeAnalyzer
	optimizer *fakeOptimizer
	dir       *fakeDirectory
	retriever *fakeRetriever
	notifier  *fakeNotifier
	logs      *logging.TestLogger
	tel       *telemetry.TestTelemetry
}

func newHarness(t *testing.T, policy Policy) *harness {
	t.Helper()

	score := 7.0
	h := &harness{
		store:     newMemStore(),
		gen:       &fakeGenerator{},
		gate:      &fakeGate{},
		clarifier: &fakeClarifier{},
		nudger:    &fakeNudger{},
		feedback: &fakeFeedback{draft: FeedbackDraft{
			Summary:        "Clear reasoning.",
			PositivePoints: []string{"explained trade-offs"},
			OverallScore:   &score,
		}},
		analyzer: &fakeAnalyzer{analysis: ApproachAnalysis{
			Feedback:  "Reasonable plan.",
			Strengths: []string{"uses two pointers"},
			Score:     6.5,
		}},
		optimizer: &fakeOptimizer{},
		dir: &fakeDirectory{
			names:   map[string]string{"u1": "Ada", "u2": "Grace"},
			history: History{Guidance: "Focus on edge cases."},
		},
		retriever: &fakeRetriever{chunks: []string{"chunk one", "chunk two"}},
		notifier:  &fakeNotifier{},
		logs:      logging.NewTestLogger(),
		tel:       telemetry.NewTestTelemetry(),
	}

	bank := &fakeBank{questions: map[string]SeedQuestion{
		"DSA": {
			ID:         "q1",
			ModuleCode: "DSA",
			TopicCode:  "LL",
			Question:   "Reverse a linked list.",
			Difficulty: "easy",
			Example:    "1->2->3 becomes 3->2->1",
			CodeStub:   "def reverse(head):",
			Tags:       []string{"linked-list"},
			Language:   "python",
		},
	}}

	svc, err := NewService(&Config{Policy: policy, ContextTopK: 3}, Deps{
		Store:     h.store,
		Bank:      bank,
		Questions: h.gen,
		Gate:      h.gate,
		Clarifier: h.clarifier,
		Nudger:    h.nudger,
		Feedback:  h.feedback,
		Analyzer:  h.analyzer,
		Optimizer: h.optimizer,
		Directory: h.dir,
		Retriever: h.retriever,
		Notifier:  h.notifier,

		Interactions: h.store,

		Tracer: h.tel.Tracer(instrumentationName),
		Meter:  h.tel.Meter(instrumentationName),
	}, h.logs.Logger)
	require.NoError(t, err)

	clock := t0
	svc.now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}
	h.svc = svc
	return h
}

func (h *harness) start(t *testing.T) string {
	t.Helper()
	res, err := h.svc.Initialize(context.Background(), "u1", "DSA")
	require.NoError(t, err)
	return res.SessionID
}

func (h *harness) answer(t *testing.T, id, text string) *AnswerResult {
	t.Helper()
	res, err := h.svc.SubmitAnswer(context.Background(), AnswerRequest{SessionID: id, Answer: text})
	require.NoError(t, err)
	return res
}

func (h *harness) session(t *testing.T, id string) *Session {
	t.Helper()
	s, err := h.store.GetSession(context.Background(), id)
	require.NoError(t, err)
	return s
}

// toCoding drives a fresh session into the coding phase.
func (h *harness) toCoding(t *testing.T) string {
	t.Helper()
	id := h.start(t)
	for i := 0; i < 5; i++ {
		h.answer(t, id, "a good answer")
	}
	require.Equal(t, PhaseCoding, h.session(t, id).Phase)
	return id
}

func TestNewService_RequiresDependencies(t *testing.T) {
	_, err := NewService(nil, Deps{}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store is required")

	_, err = NewService(&Config{Policy: Policy{MaxFollowUps: 0}}, Deps{}, nil)
	require.Error(t, err)
}

func TestInitialize(t *testing.T) {
	h := newHarness(t, DefaultPolicy())

	res, err := h.svc.Initialize(context.Background(), "u1", "DSA")
	require.NoError(t, err)

	assert.Equal(t, "Reverse a linked list.", res.BaseQuestion)
	assert.Equal(t, FirstFollowUp, res.FirstFollowUp)
	assert.Equal(t, "def reverse(head):", res.CodeStub)
	assert.Equal(t, "q1", res.BaseQuestionID)
	assert.Equal(t, "LL", res.TopicCode)
	assert.Contains(t, res.SessionID, "u1_DSA_")

	s := h.session(t, res.SessionID)
	assert.Equal(t, PhaseQuestioning, s.Phase)
	assert.Equal(t, StatusInProgress, s.Status)
	assert.Equal(t, 1, s.TotalQuestions)
	assert.Equal(t, "Ada", s.UserName)
	require.Len(t, s.FollowUps, 1)
	assert.True(t, h.gen.calls[0].IsSeed)
	assert.Equal(t, []NoticeKind{NoticeCreated}, h.notifier.kinds())
}

func TestInitialize_Errors(t *testing.T) {
	h := newHarness(t, DefaultPolicy())
	ctx := context.Background()

	_, err := h.svc.Initialize(ctx, "", "DSA")
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = h.svc.Initialize(ctx, "ghost", "DSA")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = h.svc.Initialize(ctx, "u1", "OS")
	assert.ErrorIs(t, err, ErrNotFound)

	h.gen.err = errOracleDown
	_, err = h.svc.Initialize(ctx, "u1", "DSA")
	assert.ErrorIs(t, err, ErrGenerationFailure)
	assert.Empty(t, h.store.sessions)
}

// Scenario A: five good answers move the session into coding.
func TestSubmitAnswer_GoodAnswersReachCoding(t *testing.T) {
	h := newHarness(t, DefaultPolicy())
	id := h.start(t)

	for i := 1; i <= 4; i++ {
		res := h.answer(t, id, "a good answer")
		assert.False(t, res.ReadyToCode)
		assert.NotEmpty(t, res.Question)

		s := h.session(t, id)
		assert.Equal(t, i+1, s.TotalQuestions)
		assert.Equal(t, PhaseQuestioning, s.Phase)
	}

	res := h.answer(t, id, "the fifth good answer")
	assert.True(t, res.ReadyToCode)
	assert.Equal(t, CodingPrompt, res.Question)
	assert.Equal(t, "def reverse(head):", res.CodeStub)
	assert.Equal(t, "python", res.Language)
	assert.Equal(t, []string{"linked-list"}, res.Tags)

	s := h.session(t, id)
	assert.Equal(t, PhaseCoding, s.Phase)
	assert.Equal(t, 5, s.TotalQuestions)
	assert.Len(t, s.FollowUps, 5)

	assert.Equal(t, []NoticeKind{NoticeCreated, NoticePhase}, h.notifier.kinds())
	assert.Equal(t, int64(5), h.tel.CounterValue("interview.answers"))
	assert.Equal(t, int64(1), h.tel.CounterValue("interview.transitions"))
}

// Scenario B: a bad answer and its retry append exactly one follow-up.
func TestSubmitAnswer_BadThenGoodAppendsOnce(t *testing.T) {
	h := newHarness(t, DefaultPolicy())
	id := h.start(t)
	h.gate.verdicts = []Verdict{VerdictBad}

	res := h.answer(t, id, "not sure")
	assert.False(t, res.ReadyToCode)
	assert.Contains(t, res.Question, "Let's dig deeper.")

	s := h.session(t, id)
	assert.Equal(t, 1, s.TotalQuestions)
	assert.Len(t, s.FollowUps, 1)
	assert.Equal(t, 1, s.Rejections)

	h.answer(t, id, "iterate with prev, cur and next pointers")

	s = h.session(t, id)
	assert.Equal(t, 2, s.TotalQuestions)
	require.Len(t, s.FollowUps, 2)
	assert.Equal(t, "iterate with prev, cur and next pointers", s.FollowUps[0].Answer)
	assert.False(t, s.FollowUps[1].Answered())
	assert.Zero(t, s.Rejections)

	// The retry was assessed against the same outstanding question.
	require.Len(t, h.gate.calls, 2)
	assert.Equal(t, h.gate.calls[0].Question, h.gate.calls[1].Question)
}

func TestSubmitAnswer_RejectionCapForcesAdvance(t *testing.T) {
	h := newHarness(t, Policy{MaxFollowUps: 5, MaxRejections: 2})
	id := h.start(t)
	h.gate.verdicts = []Verdict{VerdictBad, VerdictBad}

	h.answer(t, id, "no idea")
	assert.Equal(t, 1, h.session(t, id).TotalQuestions)

	res := h.answer(t, id, "still no idea")
	assert.False(t, res.ReadyToCode)
	assert.Equal(t, "follow-up 2", res.Question)

	s := h.session(t, id)
	assert.Equal(t, 2, s.TotalQuestions)
	assert.Zero(t, s.Rejections)
	assert.Equal(t, int64(1), h.tel.CounterValue("interview.rejections.forced"))
	h.logs.AssertLogged(t, zapcore.WarnLevel, "rejection cap reached")
}

func TestSubmitAnswer_UnboundedRejections(t *testing.T) {
	h := newHarness(t, Policy{MaxFollowUps: 5, MaxRejections: 0})
	id := h.start(t)
	h.gate.verdicts = make([]Verdict, 10)
	for i := range h.gate.verdicts {
		h.gate.verdicts[i] = VerdictBad
	}

	for i := 0; i < 10; i++ {
		h.answer(t, id, "no idea")
	}

	s := h.session(t, id)
	assert.Equal(t, 1, s.TotalQuestions)
	assert.Equal(t, 10, s.Rejections)
	assert.Len(t, s.FollowUps, 1)
}

// Scenario E: clarifications leave the phase and question count alone.
func TestSubmitAnswer_Clarification(t *testing.T) {
	h := newHarness(t, DefaultPolicy())
	id := h.toCoding(t)
	before := h.session(t, id)

	res, err := h.svc.SubmitAnswer(context.Background(), AnswerRequest{
		SessionID:     id,
		Answer:        "Can the list be empty?",
		Clarification: true,
	})
	require.NoError(t, err)
	assert.True(t, res.ReadyToCode)
	assert.True(t, res.Clarification)
	assert.Equal(t, "clarified: Can the list be empty?", res.Question)

	after := h.session(t, id)
	assert.Equal(t, PhaseCoding, after.Phase)
	assert.Equal(t, before.TotalQuestions, after.TotalQuestions)
	assert.Equal(t, before.FollowUps, after.FollowUps)
	require.Len(t, after.Clarifications, 1)
	assert.Equal(t, "Can the list be empty?", after.Clarifications[0].Question)
}

func TestSubmitAnswer_ClarificationFlagIgnoredWhileQuestioning(t *testing.T) {
	h := newHarness(t, DefaultPolicy())
	id := h.start(t)

	_, err := h.svc.SubmitAnswer(context.Background(), AnswerRequest{
		SessionID: id, Answer: "an answer", Clarification: true,
	})
	require.NoError(t, err)

	s := h.session(t, id)
	assert.Empty(t, s.Clarifications)
	assert.Equal(t, 2, s.TotalQuestions)
}

func TestSubmitAnswer_CodeSubmission(t *testing.T) {
	h := newHarness(t, DefaultPolicy())
	id := h.toCoding(t)

	res := h.answer(t, id, "def reverse(head):\n    return None")
	assert.False(t, res.ReadyToCode)
	assert.NotEmpty(t, res.Message)

	s := h.session(t, id)
	assert.Equal(t, PhaseCoding, s.Phase)
	assert.Equal(t, StatusSubmitted, s.Status)
	assert.Contains(t, s.Code, "return None")

	h.answer(t, id, "def reverse(head):\n    pass")
	assert.Contains(t, h.session(t, id).Code, "pass")
}

func TestSubmitAnswer_Errors(t *testing.T) {
	h := newHarness(t, DefaultPolicy())
	ctx := context.Background()
	id := h.start(t)

	_, err := h.svc.SubmitAnswer(ctx, AnswerRequest{SessionID: id, Answer: "   "})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = h.svc.SubmitAnswer(ctx, AnswerRequest{SessionID: "missing", Answer: "x"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSubmitAnswer_GenerationFailureLeavesSessionUntouched(t *testing.T) {
	tests := []struct {
		name  string
		setup func(h *harness)
	}{
		{"quality gate", func(h *harness) { h.gate.err = errOracleDown }},
		{"question generator", func(h *harness) { h.gen.err = errOracleDown }},
		{"nudge", func(h *harness) {
			h.gate.verdicts = []Verdict{VerdictBad}
			h.nudger.err = errOracleDown
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, DefaultPolicy())
			id := h.start(t)
			before := h.session(t, id)
			tt.setup(h)

			_, err := h.svc.SubmitAnswer(context.Background(), AnswerRequest{SessionID: id, Answer: "answer"})
			require.ErrorIs(t, err, ErrGenerationFailure)
			assert.Equal(t, before, h.session(t, id))
		})
	}
}

func TestSubmitAnswer_ClarificationFailureLeavesSessionUntouched(t *testing.T) {
	h := newHarness(t, DefaultPolicy())
	id := h.toCoding(t)
	before := h.session(t, id)
	h.clarifier.err = errOracleDown

	_, err := h.svc.SubmitAnswer(context.Background(), AnswerRequest{
		SessionID: id, Answer: "?", Clarification: true,
	})
	require.ErrorIs(t, err, ErrGenerationFailure)
	assert.Equal(t, before, h.session(t, id))
}

func TestSubmitAnswer_ConcurrentWriteConflicts(t *testing.T) {
	h := newHarness(t, DefaultPolicy())
	id := h.start(t)

	// Another writer lands between our read and our write.
	h.store.beforeUpdate = func(*Session) {
		other := h.session(t, id)
		other.RecordAnswer("written elsewhere", t0)
		require.NoError(t, h.store.UpdateSession(context.Background(), other))
	}

	_, err := h.svc.SubmitAnswer(context.Background(), AnswerRequest{SessionID: id, Answer: "mine"})
	require.ErrorIs(t, err, ErrConflict)

	s := h.session(t, id)
	assert.Equal(t, "written elsewhere", s.FollowUps[0].Answer)
	assert.Equal(t, 1, s.TotalQuestions)
	h.logs.AssertLogged(t, zapcore.WarnLevel, "concurrent session write")
}

func TestSubmitAnswer_CompletedSession(t *testing.T) {
	h := newHarness(t, DefaultPolicy())
	id := h.start(t)
	h.answer(t, id, "an answer")
	_, err := h.svc.Feedback(context.Background(), id)
	require.NoError(t, err)

	_, err = h.svc.SubmitAnswer(context.Background(), AnswerRequest{SessionID: id, Answer: "late"})
	assert.ErrorIs(t, err, ErrSessionCompleted)
	assert.ErrorIs(t, err, ErrConflict)
}

func TestSubmitAnswer_UnknownPhase(t *testing.T) {
	h := newHarness(t, DefaultPolicy())
	id := h.start(t)
	sess := h.session(t, id)
	sess.Phase = "paused"
	h.store.put(sess)

	_, err := h.svc.SubmitAnswer(context.Background(), AnswerRequest{SessionID: id, Answer: "x = 1"})
	require.ErrorIs(t, err, ErrInvalidTransition)
	assert.NotErrorIs(t, err, ErrSessionCompleted)
	assert.Contains(t, err.Error(), `unknown phase "paused"`)
	assert.NotContains(t, err.Error(), "code submitted")
}

func TestEnterCoding_MidFlow(t *testing.T) {
	h := newHarness(t, DefaultPolicy())
	id := h.start(t)
	h.answer(t, id, "a good answer")
	h.gate.verdicts = []Verdict{VerdictBad}
	h.answer(t, id, "a weak answer")
	require.Equal(t, 1, h.session(t, id).Rejections)

	res, err := h.svc.EnterCoding(context.Background(), id)
	require.NoError(t, err)
	assert.True(t, res.ReadyToCode)
	assert.True(t, res.Clarification)
	assert.Equal(t, CodingPrompt, res.Question)
	assert.Equal(t, "def reverse(head):", res.CodeStub)
	assert.Equal(t, "python", res.Language)
	assert.Equal(t, []string{"linked-list"}, res.Tags)

	s := h.session(t, id)
	assert.Equal(t, PhaseCoding, s.Phase)
	assert.Equal(t, 2, s.TotalQuestions)
	assert.Len(t, s.FollowUps, 2)
	assert.Zero(t, s.Rejections)

	assert.Equal(t, []NoticeKind{NoticeCreated, NoticePhase}, h.notifier.kinds())
	assert.Equal(t, int64(1), h.tel.CounterValue("interview.transitions"))
	h.logs.AssertField(t, "session entered coding phase", "reason", "requested")
	assert.Contains(t, h.tel.SpanNames(), "interview.EnterCoding")

	// The session now accepts clarifications and code.
	clar, err := h.svc.SubmitAnswer(context.Background(), AnswerRequest{SessionID: id, Answer: "Is it singly linked?", Clarification: true})
	require.NoError(t, err)
	assert.Equal(t, "clarified: Is it singly linked?", clar.Question)
}

func TestEnterCoding_OnlyOnce(t *testing.T) {
	h := newHarness(t, DefaultPolicy())
	id := h.start(t)

	_, err := h.svc.EnterCoding(context.Background(), id)
	require.NoError(t, err)
	version := h.session(t, id).Version

	_, err = h.svc.EnterCoding(context.Background(), id)
	require.ErrorIs(t, err, ErrInvalidTransition)
	assert.ErrorIs(t, err, ErrConflict)
	assert.Equal(t, version, h.session(t, id).Version)
	assert.Equal(t, 1, h.session(t, id).TotalQuestions)
}

func TestEnterCoding_Errors(t *testing.T) {
	h := newHarness(t, DefaultPolicy())
	ctx := context.Background()

	_, err := h.svc.EnterCoding(ctx, " ")
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = h.svc.EnterCoding(ctx, "nope")
	assert.ErrorIs(t, err, ErrNotFound)

	coding := h.toCoding(t)
	_, err = h.svc.EnterCoding(ctx, coding)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	done := h.start(t)
	h.answer(t, done, "an answer")
	_, err = h.svc.Feedback(ctx, done)
	require.NoError(t, err)
	_, err = h.svc.EnterCoding(ctx, done)
	assert.ErrorIs(t, err, ErrSessionCompleted)
}

func TestSubmitAnswer_RetrievalFailureDegrades(t *testing.T) {
	h := newHarness(t, DefaultPolicy())
	id := h.start(t)
	h.retriever.err = errors.New("qdrant down")

	h.answer(t, id, "an answer")

	assert.Empty(t, h.gate.calls[0].Context)
	h.logs.AssertLogged(t, zapcore.WarnLevel, "context retrieval failed")
}

func TestSubmitAnswer_PassesRetrievedContext(t *testing.T) {
	h := newHarness(t, DefaultPolicy())
	id := h.start(t)

	h.answer(t, id, "an answer")

	assert.Equal(t, "chunk one\n\nchunk two", h.gate.calls[0].Context)
	last := h.gen.calls[len(h.gen.calls)-1]
	assert.Equal(t, "chunk one\n\nchunk two", last.Context)
	assert.False(t, last.IsSeed)
	// Seed, first follow-up and its answer.
	assert.Len(t, last.History, 3)
}

func TestSubmitAnswer_NotifyFailureIsLogged(t *testing.T) {
	h := newHarness(t, DefaultPolicy())
	h.notifier.err = errors.New("nats closed")

	h.start(t)
	h.logs.AssertLogged(t, zapcore.WarnLevel, "failed to publish session notice")
}

func TestLatestAnswered_FallbackLoggedAsInvariantViolation(t *testing.T) {
	h := newHarness(t, DefaultPolicy())
	sess := newTestSession()

	turn := h.svc.latestAnswered(context.Background(), sess)

	assert.Equal(t, FirstFollowUp, turn.Question)
	h.logs.AssertLogged(t, zapcore.ErrorLevel, "no answered follow-up")
	h.logs.AssertField(t, "no answered follow-up after recording answer; assessing last follow-up",
		"invariant_violation", true)
	assert.Equal(t, int64(1), h.tel.CounterValue("interview.invariant_violations"))
}

func TestSubmitAnswer_NormalFlowHasNoInvariantViolation(t *testing.T) {
	h := newHarness(t, DefaultPolicy())
	h.toCoding(t)

	h.logs.AssertNotLogged(t, zapcore.ErrorLevel, "no answered follow-up")
}

// Property: total_questions never decreases and never exceeds the budget.
func TestSubmitAnswer_TotalQuestionsMonotonic(t *testing.T) {
	h := newHarness(t, DefaultPolicy())
	id := h.start(t)
	h.gate.verdicts = []Verdict{
		VerdictBad, VerdictGood, VerdictBad, VerdictBad, VerdictGood,
		VerdictGood, VerdictBad, VerdictGood, VerdictGood,
	}

	last := 1
	for i := 0; i < 9; i++ {
		h.answer(t, id, "answer")
		s := h.session(t, id)
		assert.GreaterOrEqual(t, s.TotalQuestions, last)
		assert.LessOrEqual(t, s.TotalQuestions, 5)
		last = s.TotalQuestions
	}
	assert.Equal(t, PhaseCoding, h.session(t, id).Phase)
}

func TestFeedback_Generated(t *testing.T) {
	h := newHarness(t, DefaultPolicy())
	id := h.start(t)
	h.answer(t, id, "an answer")
	h.dir.prior = &PriorAttempt{SessionID: "u1_DSA_0", Answer: "old code"}

	fb, err := h.svc.Feedback(context.Background(), id)
	require.NoError(t, err)

	assert.Equal(t, "Clear reasoning.", fb.Summary)
	assert.Equal(t, 7.0, fb.OverallScore)
	assert.Equal(t, "Reverse a linked list.", fb.BaseQuestion)
	assert.Equal(t, DefaultDetailedFeedback, fb.DetailedFeedback)
	assert.Equal(t, []string{}, fb.Recommendations)
	require.NotNil(t, fb.PreviousAttempt)
	assert.Equal(t, "old code", fb.PreviousAttempt.Answer)

	req := h.feedback.calls[0]
	assert.Equal(t, "Ada", req.CandidateName)
	assert.Equal(t, "Focus on edge cases.", req.Guidance)
	assert.NotEmpty(t, req.Transcript)

	s := h.session(t, id)
	assert.Equal(t, PhaseCompleted, s.Phase)
	assert.Equal(t, StatusCompleted, s.Status)
	require.NotNil(t, s.Feedback)
	assert.Equal(t, "Focus on edge cases.", s.Feedback.Guidance)
	assert.Contains(t, h.notifier.kinds(), NoticeFeedback)
}

// Scenario C.
func TestFeedback_EmptyConversation(t *testing.T) {
	h := newHarness(t, DefaultPolicy())
	id := h.start(t)

	_, err := h.svc.Feedback(context.Background(), id)
	require.ErrorIs(t, err, ErrEmptyConversation)
	assert.Empty(t, h.feedback.calls)
	assert.Equal(t, PhaseQuestioning, h.session(t, id).Phase)
}

// Scenario D: the second call replays the stored document byte for byte.
func TestFeedback_Idempotent(t *testing.T) {
	h := newHarness(t, DefaultPolicy())
	id := h.toCoding(t)
	h.answer(t, id, "def reverse(head): ...")

	first, err := h.svc.Feedback(context.Background(), id)
	require.NoError(t, err)
	h.feedback.draft = FeedbackDraft{Summary: "different"}
	second, err := h.svc.Feedback(context.Background(), id)
	require.NoError(t, err)

	b1, err := json.Marshal(first)
	require.NoError(t, err)
	b2, err := json.Marshal(second)
	require.NoError(t, err)
	assert.Equal(t, string(b1), string(b2))
	assert.Contains(t, string(b2), DefaultDetailedFeedback)
	assert.Len(t, h.feedback.calls, 1)
}

func TestFeedback_ReplayFillsDefaults(t *testing.T) {
	h := newHarness(t, DefaultPolicy())
	sess := newTestSession()
	sess.Phase = PhaseCompleted
	sess.Feedback = &StoredFeedback{Feedback: Feedback{Summary: "legacy"}}
	h.store.put(sess)

	fb, err := h.svc.Feedback(context.Background(), sess.ID)
	require.NoError(t, err)
	assert.Equal(t, "legacy", fb.Summary)
	assert.Equal(t, "Reverse a linked list.", fb.BaseQuestion)
	assert.Equal(t, []string{}, fb.PositivePoints)
}

func TestFeedback_GenerationFailure(t *testing.T) {
	h := newHarness(t, DefaultPolicy())
	id := h.start(t)
	h.answer(t, id, "an answer")
	before := h.session(t, id)
	h.feedback.err = errOracleDown

	_, err := h.svc.Feedback(context.Background(), id)
	require.ErrorIs(t, err, ErrGenerationFailure)
	assert.Equal(t, before, h.session(t, id))
}

func TestFeedback_HistoryFailureDegrades(t *testing.T) {
	h := newHarness(t, DefaultPolicy())
	id := h.start(t)
	h.answer(t, id, "an answer")
	h.dir.histErr = errors.New("history query failed")

	_, err := h.svc.Feedback(context.Background(), id)
	require.NoError(t, err)
	assert.Empty(t, h.feedback.calls[0].Guidance)
}

func TestFeedback_ConcurrentSaveReplaysWinner(t *testing.T) {
	h := newHarness(t, DefaultPolicy())
	id := h.start(t)
	h.answer(t, id, "an answer")

	h.store.beforeUpdate = func(*Session) {
		winner := h.session(t, id)
		winner.Phase = PhaseCompleted
		winner.Feedback = &StoredFeedback{Feedback: WithDefaults(Feedback{Summary: "winner"}, winner.Seed.Question)}
		require.NoError(t, h.store.UpdateSession(context.Background(), winner))
	}

	fb, err := h.svc.Feedback(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "winner", fb.Summary)
}

func TestFeedback_NotFound(t *testing.T) {
	h := newHarness(t, DefaultPolicy())
	_, err := h.svc.Feedback(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListSessionsAndDetail(t *testing.T) {
	h := newHarness(t, DefaultPolicy())
	ctx := context.Background()
	id := h.start(t)
	h.answer(t, id, "an answer")

	list, err := h.svc.ListSessions(ctx, "u1", 0)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, id, list[0].SessionID)
	assert.Equal(t, 2, list[0].TotalQuestions)
	assert.False(t, list[0].HasFeedback)

	d, err := h.svc.SessionDetail(ctx, "u1", id)
	require.NoError(t, err)
	assert.Len(t, d.FollowUps, 2)
	assert.Nil(t, d.Feedback)

	_, err = h.svc.SessionDetail(ctx, "u2", id)
	assert.ErrorIs(t, err, ErrAccessDenied)

	_, err = h.svc.ListSessions(ctx, "ghost", 10)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPatternsAndModules(t *testing.T) {
	h := newHarness(t, DefaultPolicy())
	ctx := context.Background()

	hist, err := h.svc.Patterns(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "Focus on edge cases.", hist.Guidance)

	mods, err := h.svc.Modules(ctx)
	require.NoError(t, err)
	require.Len(t, mods, 1)
	assert.Equal(t, "DSA", mods[0].Code)
}

func TestService_RecordsSpans(t *testing.T) {
	h := newHarness(t, DefaultPolicy())
	id := h.start(t)
	h.answer(t, id, "an answer")
	_, _ = h.svc.Feedback(context.Background(), "missing")

	names := h.tel.SpanNames()
	assert.Contains(t, names, "interview.Initialize")
	assert.Contains(t, names, "interview.SubmitAnswer")
	assert.Contains(t, names, "interview.Feedback")
}
