package directory

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/interviewd/internal/interview"
	"github.com/fyrsmithlabs/interviewd/internal/logging"
	"github.com/fyrsmithlabs/interviewd/internal/store"
)

var t0 = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

// session builds a session created n hours after t0.
func session(id, topic string, n int, fb *interview.StoredFeedback, answers ...string) *interview.Session {
	s := &interview.Session{
		ID:        id,
		UserID:    "u1",
		Topic:     topic,
		Phase:     interview.PhaseQuestioning,
		Status:    interview.StatusInProgress,
		Seed:      interview.SeedQuestion{ID: "q-" + id, Question: "Q?"},
		CreatedAt: t0.Add(time.Duration(n) * time.Hour),
		UpdatedAt: t0.Add(time.Duration(n) * time.Hour),
	}
	for _, a := range answers {
		s.FollowUps = append(s.FollowUps, interview.Turn{Question: "q", Answer: a})
	}
	if fb != nil {
		s.Feedback = fb
		s.Phase = interview.PhaseCompleted
		s.Status = interview.StatusCompleted
	}
	return s
}

func feedback(score float64, weak, strong []string) *interview.StoredFeedback {
	return &interview.StoredFeedback{Feedback: interview.Feedback{
		Summary:         "summary",
		OverallScore:    score,
		PointsToAddress: weak,
		PositivePoints:  strong,
	}}
}

// newest first, as the store returns them
func reverse(in []*interview.Session) []*interview.Session {
	out := make([]*interview.Session, len(in))
	for i, s := range in {
		out[len(in)-1-i] = s
	}
	return out
}

func TestExtract_Empty(t *testing.T) {
	p := Extract(nil, "DSA")

	assert.Zero(t, p.TotalSessions)
	assert.Zero(t, p.AverageScore)
	assert.NotNil(t, p.RecentTopics)
	assert.NotNil(t, p.CommonWeaknesses)
	assert.NotNil(t, p.TopicPerformance.Scores)
	assert.Empty(t, Guidance(p))
}

func TestExtract(t *testing.T) {
	sessions := reverse([]*interview.Session{
		session("s1", "DSA", 1, feedback(4, []string{"edge cases", "complexity", "naming"}, []string{"clarity"}), "one two three"),
		session("s2", "OS", 2, feedback(6, []string{"complexity"}, []string{"clarity", "testing"}), "one two three four five"),
		session("s3", "DSA", 3, nil, "x"),
		session("s4", "DSA", 4, feedback(8, []string{"edge cases", "complexity"}, []string{"testing"})),
	})

	p := Extract(sessions, "DSA")

	assert.Equal(t, 4, p.TotalSessions)
	assert.Equal(t, []string{"DSA", "OS"}, p.RecentTopics)
	assert.InDelta(t, 0.75, p.CompletionRate, 1e-9)
	assert.InDelta(t, 3.0, p.AvgResponseLength, 1e-9)
	assert.Equal(t, []float64{4, 6, 8}, p.RecentScores)
	assert.Equal(t, []float64{4, 6, 8}, p.PerformanceTrend)
	assert.InDelta(t, 6.0, p.AverageScore, 1e-9)

	// Only the first two points of each session count, so "naming" drops out.
	assert.Equal(t, []string{"complexity", "edge cases"}, p.CommonWeaknesses)
	assert.Equal(t, []string{"clarity", "testing"}, p.Strengths)

	assert.Equal(t, []float64{4, 8}, p.TopicPerformance.Scores)
	assert.Equal(t, []string{"edge cases", "edge cases"}, p.TopicPerformance.Weaknesses)
	assert.Equal(t, []string{"clarity", "testing"}, p.TopicPerformance.Strengths)
}

func TestExtract_TrendKeepsLastFive(t *testing.T) {
	var in []*interview.Session
	for i := 1; i <= 7; i++ {
		in = append(in, session("s", "DSA", i, feedback(float64(i), nil, nil)))
	}

	p := Extract(reverse(in), "")
	assert.Equal(t, []float64{3, 4, 5, 6, 7}, p.PerformanceTrend)
	assert.Len(t, p.RecentScores, 7)
	assert.Empty(t, p.TopicPerformance.Scores)
}

func TestMostCommon(t *testing.T) {
	got := mostCommon([]string{"a", "b", "c", "d", "b", "d", "d"}, 3)
	assert.Equal(t, []string{"d", "b", "a"}, got)
	assert.Equal(t, []string{}, mostCommon(nil, 3))
}

func TestGuidance(t *testing.T) {
	tests := []struct {
		name     string
		patterns interview.Patterns
		contains []string
		excludes []string
	}{
		{
			name: "improving, strong topic, verbose",
			patterns: interview.Patterns{
				TotalSessions:     4,
				PerformanceTrend:  []float64{4, 8, 9, 9},
				AverageScore:      7.5,
				TopicPerformance:  interview.TopicPerformance{Scores: []float64{8, 9}},
				AvgResponseLength: 150,
				CompletionRate:    1,
				Strengths:         []string{"clarity", "testing", "naming"},
			},
			contains: []string{
				"shows improvement, with an average score of 8.7/10",
				"performing well in this topic area with an average of 8.5/10",
				"Consider being more concise",
				"Your strengths: clarity, testing. Continue leveraging these.",
			},
			excludes: []string{"brief", "don't complete", "Areas for improvement"},
		},
		{
			name: "declining, weak topic, brief, incomplete",
			patterns: interview.Patterns{
				TotalSessions:     4,
				PerformanceTrend:  []float64{9, 9, 3, 3, 3},
				AverageScore:      5.4,
				TopicPerformance:  interview.TopicPerformance{Scores: []float64{3}},
				AvgResponseLength: 5,
				CompletionRate:    0.25,
				CommonWeaknesses:  []string{"edge cases", "complexity", "naming"},
			},
			contains: []string{
				"below your average",
				"you've averaged 3.0/10",
				"responses tend to be brief",
				"don't complete interview sessions",
				"Areas for improvement: edge cases, complexity",
			},
			excludes: []string{"naming", "Your strengths"},
		},
		{
			name: "short trend and middling topic say nothing",
			patterns: interview.Patterns{
				TotalSessions:     2,
				PerformanceTrend:  []float64{6, 6},
				AverageScore:      6,
				TopicPerformance:  interview.TopicPerformance{Scores: []float64{6}},
				AvgResponseLength: 50,
				CompletionRate:    0.5,
			},
			excludes: []string{"performance", "topic area", "responses", "complete"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Guidance(tt.patterns)
			for _, s := range tt.contains {
				assert.Contains(t, got, s)
			}
			for _, s := range tt.excludes {
				assert.NotContains(t, got, s)
			}
		})
	}
}

type failingSource struct{ Source }

func (failingSource) ListSessions(context.Context, string, int) ([]*interview.Session, error) {
	return nil, errors.New("database is locked")
}

func (failingSource) LatestAttempt(context.Context, string, string, string) (*interview.Session, error) {
	return nil, errors.New("database is locked")
}

func TestDirectory_Errors(t *testing.T) {
	d := New(failingSource{}, 0, nil)

	_, err := d.History(context.Background(), "u1", "DSA", "")
	assert.Error(t, err)

	_, err = d.PriorAttempt(context.Background(), "u1", "q1", "")
	assert.Error(t, err)
}

func TestDirectory_WithStore(t *testing.T) {
	ctx := context.Background()
	st, err := store.Open(ctx, store.Options{Path: filepath.Join(t.TempDir(), "dir.db")}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	require.NoError(t, st.PutUser(ctx, "u1", "Ada"))

	old := session("old", "DSA", 1, feedback(5, []string{"edge cases"}, []string{"clarity"}), "walk the list")
	old.Seed.ID = "q1"
	old.Code = "def reverse(head): ..."
	current := session("current", "DSA", 2, nil, "iterate")
	current.Seed.ID = "q1"
	current.Code = "def reverse(h): pass"
	for _, s := range []*interview.Session{old, current} {
		require.NoError(t, st.CreateSession(ctx, s))
	}

	logs := logging.NewTestLogger()
	d := New(st, 15, logs.Logger)

	ok, err := d.Exists(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = d.Exists(ctx, "ghost")
	require.NoError(t, err)
	assert.False(t, ok)

	name, err := d.Name(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "Ada", name)

	prior, err := d.PriorAttempt(ctx, "u1", "q1", "current")
	require.NoError(t, err)
	require.NotNil(t, prior)
	assert.Equal(t, "old", prior.SessionID)
	assert.Equal(t, "def reverse(head): ...", prior.Answer)
	assert.Equal(t, "summary", prior.Result)

	none, err := d.PriorAttempt(ctx, "u1", "q-unknown", "")
	require.NoError(t, err)
	assert.Nil(t, none)

	h, err := d.History(ctx, "u1", "DSA", "q1")
	require.NoError(t, err)
	assert.Equal(t, 2, h.Patterns.TotalSessions)
	assert.Equal(t, []float64{5}, h.Patterns.TopicPerformance.Scores)
	require.NotNil(t, h.Patterns.QuestionHistory)
	assert.Contains(t, h.Guidance, "Areas for improvement: edge cases")
}
