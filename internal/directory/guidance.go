package directory

import (
	"fmt"
	"strings"

	"github.com/fyrsmithlabs/interviewd/internal/interview"
)

// Guidance turns patterns into short coaching sentences. Candidates with
// no sessions get none.
func Guidance(p interview.Patterns) string {
	if p.TotalSessions == 0 {
		return ""
	}

	var parts []string

	if trend := p.PerformanceTrend; len(trend) >= 3 {
		recent := mean(trend[len(trend)-3:])
		switch {
		case recent > p.AverageScore:
			parts = append(parts, fmt.Sprintf(
				"Your recent performance shows improvement, with an average score of %.1f/10 in your last 3 sessions.", recent))
		case recent < p.AverageScore:
			parts = append(parts,
				"Your recent performance has been below your average. Focus on consistency and review your approach.")
		}
	}

	if scores := p.TopicPerformance.Scores; len(scores) > 0 {
		avg := mean(scores)
		switch {
		case avg < 5:
			parts = append(parts, fmt.Sprintf(
				"In this topic area, you've averaged %.1f/10. Consider reviewing fundamental concepts.", avg))
		case avg > 7:
			parts = append(parts, fmt.Sprintf(
				"You're performing well in this topic area with an average of %.1f/10. Build on this strength.", avg))
		}
	}

	switch {
	case p.AvgResponseLength < 20:
		parts = append(parts,
			"Your responses tend to be brief. Consider providing more detailed explanations to demonstrate your understanding.")
	case p.AvgResponseLength > 100:
		parts = append(parts,
			"Your responses are comprehensive. Consider being more concise while maintaining clarity.")
	}

	if p.CompletionRate < 0.5 {
		parts = append(parts,
			"You often don't complete interview sessions. Try to finish more sessions to build consistency and confidence.")
	}

	if len(p.CommonWeaknesses) > 0 {
		parts = append(parts, "Areas for improvement: "+strings.Join(head(p.CommonWeaknesses, 2), ", "))
	}
	if len(p.Strengths) > 0 {
		parts = append(parts, fmt.Sprintf("Your strengths: %s. Continue leveraging these.", strings.Join(head(p.Strengths, 2), ", ")))
	}

	return strings.Join(parts, " ")
}
