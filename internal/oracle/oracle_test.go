package oracle

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/interviewd/internal/interview"
)

type fakeCompleter struct {
	replies []string
	err     error
	prompts []Prompt
}

func (f *fakeCompleter) Complete(_ context.Context, p Prompt) (string, error) {
	f.prompts = append(f.prompts, p)
	if f.err != nil {
		return "", f.err
	}
	if len(f.replies) == 0 {
		return "", ErrEmptyCompletion
	}
	r := f.replies[0]
	f.replies = f.replies[1:]
	return r, nil
}

func newInterviewer(t *testing.T, replies ...string) (*Interviewer, *fakeCompleter) {
	t.Helper()
	fc := &fakeCompleter{replies: replies}
	i, err := NewInterviewer(fc)
	require.NoError(t, err)
	return i, fc
}

func TestNewInterviewer_RequiresCompleter(t *testing.T) {
	_, err := NewInterviewer(nil)
	assert.Error(t, err)
}

func TestGenerate_SeedIsFixed(t *testing.T) {
	i, fc := newInterviewer(t)

	q, err := i.Generate(context.Background(), interview.GenerateRequest{IsSeed: true, Topic: "DSA"})
	require.NoError(t, err)
	assert.Equal(t, interview.FirstFollowUp, q)
	assert.Empty(t, fc.prompts)
}

func TestGenerate_RendersHistoryAndContext(t *testing.T) {
	i, fc := newInterviewer(t, "How would you handle cycles?")

	q, err := i.Generate(context.Background(), interview.GenerateRequest{
		Topic: "DSA",
		History: []interview.Message{
			{Role: interview.RoleInterviewer, Content: "Reverse a linked list."},
			{Role: interview.RoleCandidate, Content: "Use three pointers & iterate."},
		},
		Context: "Linked lists store nodes <in> sequence.",
	})
	require.NoError(t, err)
	assert.Equal(t, "How would you handle cycles?", q)

	require.Len(t, fc.prompts, 1)
	p := fc.prompts[0]
	assert.Contains(t, p.System, "DSA interview")
	assert.Contains(t, p.User, "Interviewer: Reverse a linked list.")
	assert.Contains(t, p.User, "Candidate: Use three pointers & iterate.")
	assert.Contains(t, p.User, "Linked lists store nodes <in> sequence.", "prompts are not HTML escaped")
	assert.Equal(t, 0.7, p.Temperature)
}

func TestGenerate_OmitsEmptyContext(t *testing.T) {
	i, fc := newInterviewer(t, "next")

	_, err := i.Generate(context.Background(), interview.GenerateRequest{Topic: "DSA"})
	require.NoError(t, err)
	assert.NotContains(t, fc.prompts[0].User, "Reference material")
}

func TestAssess(t *testing.T) {
	tests := []struct {
		reply string
		want  interview.Verdict
	}{
		{"good", interview.VerdictGood},
		{"Good.", interview.VerdictGood},
		{"GOOD answer", interview.VerdictGood},
		{"bad", interview.VerdictBad},
		{"unclear", interview.VerdictBad},
	}

	for _, tt := range tests {
		t.Run(tt.reply, func(t *testing.T) {
			i, fc := newInterviewer(t, tt.reply)
			v, err := i.Assess(context.Background(), interview.AssessRequest{
				Question: "What is the complexity?",
				Answer:   "O(n)",
				Topic:    "DSA",
			})
			require.NoError(t, err)
			assert.Equal(t, tt.want, v)
			assert.Zero(t, fc.prompts[0].Temperature)
			assert.Contains(t, fc.prompts[0].User, "Answer: O(n)")
		})
	}
}

func TestAssess_PropagatesError(t *testing.T) {
	i, fc := newInterviewer(t)
	fc.err = errors.New("boom")

	_, err := i.Assess(context.Background(), interview.AssessRequest{})
	assert.Error(t, err)
}

func TestClarifyAndNudge(t *testing.T) {
	i, fc := newInterviewer(t, "The list may be empty.", "Think about the previous node.")

	c, err := i.Clarify(context.Background(), "Reverse a linked list.", "Can it be empty?")
	require.NoError(t, err)
	assert.Equal(t, "The list may be empty.", c)
	assert.Contains(t, fc.prompts[0].User, "Main question: Reverse a linked list.")
	assert.Contains(t, fc.prompts[0].User, "Can it be empty?")

	n, err := i.Nudge(context.Background(), "Which pointers?", "idk")
	require.NoError(t, err)
	assert.Equal(t, "Think about the previous node.", n)
	assert.Contains(t, fc.prompts[1].User, "Candidate's answer: idk")
}

const validFeedback = `{
  "summary": "Solid reasoning.",
  "positive_points": ["clear"],
  "points_to_address": ["edge cases"],
  "areas_for_improvement": ["testing"],
  "overall_score": 7.5,
  "recommendations": ["practice recursion"]
}`

func TestFeedback(t *testing.T) {
	i, fc := newInterviewer(t, validFeedback)

	draft, err := i.Feedback(context.Background(), interview.FeedbackRequest{
		Transcript: []interview.Exchange{
			{Question: "Reverse a linked list.", Answer: ""},
			{Question: interview.FirstFollowUp, Answer: "Iterate."},
			{Question: interview.ClarificationPrefix + "Empty list?", Answer: "Return nil."},
		},
		CandidateName: "Ada",
		PriorAttempt:  &interview.PriorAttempt{SessionID: "old", Answer: "def reverse(): pass"},
		Guidance:      "Focus on edge cases.",
		Patterns:      &interview.Patterns{TotalSessions: 3, AverageScore: 6, CompletionRate: 0.5, CommonWeaknesses: []string{"testing"}},
	})
	require.NoError(t, err)

	assert.Equal(t, "Solid reasoning.", draft.Summary)
	require.NotNil(t, draft.OverallScore)
	assert.Equal(t, 7.5, *draft.OverallScore)
	assert.Empty(t, draft.DetailedFeedback)

	p := fc.prompts[0]
	assert.True(t, p.JSON)
	assert.Contains(t, p.System, "Ada")
	assert.Contains(t, p.User, "Candidate: (no answer)")
	assert.Contains(t, p.User, "[Clarification] Empty list?")
	assert.Contains(t, p.User, "def reverse(): pass")
	assert.Contains(t, p.User, "average score 6.0")
	assert.Contains(t, p.User, "Recurring weaknesses: testing.")
	assert.Contains(t, p.User, "Focus on edge cases.")
}

func TestFeedback_NoPriorOrPatterns(t *testing.T) {
	i, fc := newInterviewer(t, validFeedback)

	_, err := i.Feedback(context.Background(), interview.FeedbackRequest{
		Transcript: []interview.Exchange{{Question: "Q", Answer: "A"}},
	})
	require.NoError(t, err)
	assert.NotContains(t, fc.prompts[0].User, "attempted this question before")
	assert.NotContains(t, fc.prompts[0].User, "Recent performance")
	assert.Contains(t, fc.prompts[0].System, "the candidate")
}

func TestParseFeedback(t *testing.T) {
	t.Run("code fence", func(t *testing.T) {
		d, err := parseFeedback("```json\n" + validFeedback + "\n```")
		require.NoError(t, err)
		assert.Equal(t, []string{"clear"}, d.PositivePoints)
	})

	t.Run("missing score", func(t *testing.T) {
		d, err := parseFeedback(`{"summary":"s","positive_points":[],"points_to_address":[],"areas_for_improvement":[]}`)
		require.NoError(t, err)
		assert.Nil(t, d.OverallScore)
	})

	invalid := map[string]string{
		"not json":        "Great job!",
		"missing field":   `{"summary":"s"}`,
		"wrong type":      `{"summary":1,"positive_points":[],"points_to_address":[],"areas_for_improvement":[]}`,
		"score too large": `{"summary":"s","positive_points":[],"points_to_address":[],"areas_for_improvement":[],"overall_score":42}`,
	}
	for name, raw := range invalid {
		t.Run(name, func(t *testing.T) {
			_, err := parseFeedback(raw)
			assert.ErrorIs(t, err, ErrInvalidFeedback)
		})
	}
}

const validAnalysis = `{
  "feedback": "Sorting first costs O(n log n).",
  "strengths": ["clear plan"],
  "areas_for_improvement": ["consider a hash set"],
  "score": 6
}`

func TestAnalyzeApproach(t *testing.T) {
	i, fc := newInterviewer(t, "```json\n"+validAnalysis+"\n```")

	a, err := i.AnalyzeApproach(context.Background(), "Find a pair summing to k.", "Sort & use two pointers.")
	require.NoError(t, err)
	assert.Equal(t, "Sorting first costs O(n log n).", a.Feedback)
	assert.Equal(t, []string{"clear plan"}, a.Strengths)
	assert.Equal(t, []string{"consider a hash set"}, a.AreasForImprovement)
	assert.Equal(t, 6.0, a.Score)

	p := fc.prompts[0]
	assert.True(t, p.JSON)
	assert.Contains(t, p.System, `"score": 0-10`)
	assert.Contains(t, p.User, "Question: Find a pair summing to k.")
	assert.Contains(t, p.User, "Sort & use two pointers.")
}

func TestAnalyzeApproach_Invalid(t *testing.T) {
	for name, raw := range map[string]string{
		"prose":         "Looks fine to me.",
		"missing score": `{"feedback":"f","strengths":[],"areas_for_improvement":[]}`,
		"score too low": `{"feedback":"f","strengths":[],"areas_for_improvement":[],"score":-1}`,
	} {
		t.Run(name, func(t *testing.T) {
			i, _ := newInterviewer(t, raw)
			_, err := i.AnalyzeApproach(context.Background(), "Q", "A")
			assert.ErrorIs(t, err, ErrInvalidAnalysis)
		})
	}
}

func TestOptimizeCode(t *testing.T) {
	i, fc := newInterviewer(t, "```python\ndef reverse(head):\n    return head\n```")

	code, err := i.OptimizeCode(context.Background(), interview.OptimizeRequest{
		Question:    "Reverse a linked list.",
		Code:        "def reverse(head): pass",
		Language:    "python",
		SampleInput: "1->2",
	})
	require.NoError(t, err)
	assert.Equal(t, "def reverse(head):\n    return head", code)

	p := fc.prompts[0]
	assert.False(t, p.JSON)
	assert.Equal(t, 0.2, p.Temperature)
	assert.Contains(t, p.User, "Sample input: 1->2")
	assert.NotContains(t, p.User, "Expected output")
	assert.Contains(t, p.User, "Candidate code (python):")
}

func TestOptimizeCode_EmptyReply(t *testing.T) {
	i, _ := newInterviewer(t, "```\n```")
	_, err := i.OptimizeCode(context.Background(), interview.OptimizeRequest{Question: "Q", Code: "x"})
	assert.ErrorIs(t, err, ErrEmptyCompletion)
}

func TestUnfence(t *testing.T) {
	assert.Equal(t, "x = 1", unfence("x = 1"))
	assert.Equal(t, "x = 1", unfence("```\nx = 1\n```"))
	assert.Equal(t, "x = 1", unfence("  ```go\nx = 1\n```  "))
}

func TestPromptsParse(t *testing.T) {
	tmpls, err := loadTemplates()
	require.NoError(t, err)
	for _, name := range []string{
		"interviewer_system", "next_question", "quality_system", "quality",
		"clarify_system", "clarify", "nudge_system", "nudge", "feedback_system", "feedback",
		"approach_system", "approach", "optimize_system", "optimize",
	} {
		assert.Contains(t, tmpls, name)
	}
}
