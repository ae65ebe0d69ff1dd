package oracle

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/fyrsmithlabs/interviewd/internal/interview"
)

// Interviewer implements every interview oracle on one Completer.
type Interviewer struct {
	llm Completer
}

// NewInterviewer creates an Interviewer.
func NewInterviewer(llm Completer) (*Interviewer, error) {
	if llm == nil {
		return nil, errors.New("completer is required")
	}
	return &Interviewer{llm: llm}, nil
}

var (
	_ interview.QuestionGenerator = (*Interviewer)(nil)
	_ interview.QualityGate       = (*Interviewer)(nil)
	_ interview.Clarifier         = (*Interviewer)(nil)
	_ interview.Nudger            = (*Interviewer)(nil)
	_ interview.FeedbackGenerator = (*Interviewer)(nil)
	_ interview.ApproachAnalyzer  = (*Interviewer)(nil)
	_ interview.CodeOptimizer     = (*Interviewer)(nil)
)

// Generate returns the next follow-up question. The opening follow-up is
// fixed and needs no model call.
func (i *Interviewer) Generate(ctx context.Context, req interview.GenerateRequest) (string, error) {
	if req.IsSeed {
		return interview.FirstFollowUp, nil
	}

	history := make([]map[string]any, 0, len(req.History))
	for _, m := range req.History {
		role := "Interviewer"
		if m.Role == interview.RoleCandidate {
			role = "Candidate"
		}
		history = append(history, map[string]any{"role": role, "content": m.Content})
	}

	p, err := prompt("interviewer_system", "next_question", map[string]any{
		"topic":   req.Topic,
		"history": history,
		"context": req.Context,
	})
	if err != nil {
		return "", err
	}
	p.Temperature = 0.7
	p.MaxTokens = 150

	return i.llm.Complete(ctx, p)
}

// Assess classifies an answer. Any reply containing "good" is good.
func (i *Interviewer) Assess(ctx context.Context, req interview.AssessRequest) (interview.Verdict, error) {
	p, err := prompt("quality_system", "quality", map[string]any{
		"topic":    req.Topic,
		"question": req.Question,
		"answer":   req.Answer,
		"context":  req.Context,
	})
	if err != nil {
		return "", err
	}
	p.Temperature = 0
	p.MaxTokens = 10

	reply, err := i.llm.Complete(ctx, p)
	if err != nil {
		return "", err
	}
	if strings.Contains(strings.ToLower(reply), "good") {
		return interview.VerdictGood, nil
	}
	return interview.VerdictBad, nil
}

// Clarify answers a coding-phase question about the seed question.
func (i *Interviewer) Clarify(ctx context.Context, seedQuestion, request string) (string, error) {
	p, err := prompt("clarify_system", "clarify", map[string]any{
		"seed_question": seedQuestion,
		"request":       request,
	})
	if err != nil {
		return "", err
	}
	p.Temperature = 0.7
	p.MaxTokens = 150

	return i.llm.Complete(ctx, p)
}

// Nudge explains what a rejected answer is missing.
func (i *Interviewer) Nudge(ctx context.Context, question, answer string) (string, error) {
	p, err := prompt("nudge_system", "nudge", map[string]any{
		"question": question,
		"answer":   answer,
	})
	if err != nil {
		return "", err
	}
	p.Temperature = 0.5
	p.MaxTokens = 150

	return i.llm.Complete(ctx, p)
}

// Feedback produces structured feedback from the transcript.
func (i *Interviewer) Feedback(ctx context.Context, req interview.FeedbackRequest) (interview.FeedbackDraft, error) {
	transcript := make([]map[string]any, 0, len(req.Transcript))
	for _, ex := range req.Transcript {
		answer := ex.Answer
		if answer == "" {
			answer = "(no answer)"
		}
		transcript = append(transcript, map[string]any{"question": ex.Question, "answer": answer})
	}

	candidate := req.CandidateName
	if candidate == "" {
		candidate = "the candidate"
	}

	data := map[string]any{
		"candidate":  candidate,
		"transcript": transcript,
		"guidance":   req.Guidance,
		"prior":      nil,
		"patterns":   nil,
	}
	if req.PriorAttempt != nil {
		data["prior"] = map[string]any{
			"session_id": req.PriorAttempt.SessionID,
			"answer":     req.PriorAttempt.Answer,
		}
	}
	if pt := req.Patterns; pt != nil && pt.TotalSessions > 0 {
		data["patterns"] = map[string]any{
			"total_sessions":  pt.TotalSessions,
			"average_score":   fmt.Sprintf("%.1f", pt.AverageScore),
			"completion_rate": fmt.Sprintf("%.0f%%", pt.CompletionRate*100),
			"weaknesses":      strings.Join(pt.CommonWeaknesses, "; "),
		}
	}

	p, err := prompt("feedback_system", "feedback", data)
	if err != nil {
		return interview.FeedbackDraft{}, err
	}
	p.Temperature = 0.5
	p.MaxTokens = 1000
	p.JSON = true

	raw, err := i.llm.Complete(ctx, p)
	if err != nil {
		return interview.FeedbackDraft{}, err
	}
	return parseFeedback(raw)
}

// AnalyzeApproach scores a described approach out of 10.
func (i *Interviewer) AnalyzeApproach(ctx context.Context, question, approach string) (interview.ApproachAnalysis, error) {
	p, err := prompt("approach_system", "approach", map[string]any{
		"question": question,
		"approach": approach,
	})
	if err != nil {
		return interview.ApproachAnalysis{}, err
	}
	p.Temperature = 0.7
	p.MaxTokens = 1000
	p.JSON = true

	raw, err := i.llm.Complete(ctx, p)
	if err != nil {
		return interview.ApproachAnalysis{}, err
	}
	return parseApproach(raw)
}

// OptimizeCode returns an improved version of the candidate's code.
func (i *Interviewer) OptimizeCode(ctx context.Context, req interview.OptimizeRequest) (string, error) {
	p, err := prompt("optimize_system", "optimize", map[string]any{
		"question":      req.Question,
		"code":          req.Code,
		"language":      req.Language,
		"sample_input":  req.SampleInput,
		"sample_output": req.SampleOutput,
	})
	if err != nil {
		return "", err
	}
	p.Temperature = 0.2
	p.MaxTokens = 1000

	reply, err := i.llm.Complete(ctx, p)
	if err != nil {
		return "", err
	}
	code := unfence(reply)
	if code == "" {
		return "", ErrEmptyCompletion
	}
	return code, nil
}
