package interview

import "time"

// Placeholders used when a feedback field is missing.
const (
	DefaultSummary          = "No summary provided."
	DefaultDetailedFeedback = "No detailed feedback available."
	DefaultBaseQuestion     = "No base question available."
)

// Feedback is the display document returned to callers.
type Feedback struct {
	BaseQuestion        string   `json:"base_question"`
	Summary             string   `json:"summary"`
	PositivePoints      []string `json:"positive_points"`
	PointsToAddress     []string `json:"points_to_address"`
	AreasForImprovement []string `json:"areas_for_improvement"`
	OverallScore        float64  `json:"overall_score"`
	DetailedFeedback    string   `json:"detailed_feedback"`
	Recommendations     []string `json:"recommendations"`

	// PreviousAttempt is supplementary context, not oracle output.
	PreviousAttempt *PriorAttempt `json:"previous_attempt,omitempty"`
}

// StoredFeedback is the persisted document, including internal fields that
// are never displayed.
type StoredFeedback struct {
	Feedback

	UserPatterns *Patterns `json:"user_patterns,omitempty"`
	Guidance     string    `json:"personalized_guidance,omitempty"`
	GeneratedAt  time.Time `json:"generated_at"`
}

// FeedbackDraft is the raw feedback oracle output. Nil score means the
// oracle omitted it.
type FeedbackDraft struct {
	Summary             string
	PositivePoints      []string
	PointsToAddress     []string
	AreasForImprovement []string
	OverallScore        *float64
	DetailedFeedback    string
	Recommendations     []string
}

// FeedbackRequest is the feedback oracle input.
type FeedbackRequest struct {
	Transcript    []Exchange
	CandidateName string
	PriorAttempt  *PriorAttempt
	Guidance      string
	Patterns      *Patterns
}

// PriorAttempt summarizes the candidate's earlier session on the same seed question.
type PriorAttempt struct {
	SessionID   string    `json:"session_id"`
	Answer      string    `json:"answer"`
	Result      string    `json:"result,omitempty"`
	Output      string    `json:"output,omitempty"`
	SubmittedAt time.Time `json:"submitted_at"`
}

// WithDefaults fills every missing display field. seedQuestion backs the
// base question echo.
func WithDefaults(f Feedback, seedQuestion string) Feedback {
	if f.BaseQuestion == "" {
		f.BaseQuestion = seedQuestion
	}
	if f.BaseQuestion == "" {
		f.BaseQuestion = DefaultBaseQuestion
	}
	if f.Summary == "" {
		f.Summary = DefaultSummary
	}
	if f.DetailedFeedback == "" {
		f.DetailedFeedback = DefaultDetailedFeedback
	}
	f.PositivePoints = nonNil(f.PositivePoints)
	f.PointsToAddress = nonNil(f.PointsToAddress)
	f.AreasForImprovement = nonNil(f.AreasForImprovement)
	f.Recommendations = nonNil(f.Recommendations)
	return f
}

// fromDraft converts oracle output into a display document.
func fromDraft(d FeedbackDraft) Feedback {
	f := Feedback{
		Summary:             d.Summary,
		PositivePoints:      d.PositivePoints,
		PointsToAddress:     d.PointsToAddress,
		AreasForImprovement: d.AreasForImprovement,
		DetailedFeedback:    d.DetailedFeedback,
		Recommendations:     d.Recommendations,
	}
	if d.OverallScore != nil {
		f.OverallScore = *d.OverallScore
	}
	return f
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
