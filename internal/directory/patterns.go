package directory

import (
	"sort"
	"strings"

	"github.com/fyrsmithlabs/interviewd/internal/interview"
)

const (
	topItems       = 3
	pointsPerFeed  = 2
	trendLength    = 5
	topicPointsPer = 1
)

// Extract computes interaction patterns from sessions ordered newest
// first. Scores and trends are kept in chronological order.
func Extract(sessions []*interview.Session, topic string) interview.Patterns {
	p := interview.Patterns{
		RecentTopics:     []string{},
		PerformanceTrend: []float64{},
		RecentScores:     []float64{},
		TopicPerformance: interview.TopicPerformance{
			Scores:     []float64{},
			Weaknesses: []string{},
			Strengths:  []string{},
		},
	}

	var (
		completed  int
		weaknesses []string
		strengths  []string
		lengths    []int
		seenTopics = make(map[string]bool)
	)

	for _, s := range sessions {
		if s.Topic != "" && !seenTopics[s.Topic] {
			seenTopics[s.Topic] = true
			p.RecentTopics = append(p.RecentTopics, s.Topic)
		}
	}

	for i := len(sessions) - 1; i >= 0; i-- {
		s := sessions[i]
		p.TotalSessions++
		if s.Status == interview.StatusCompleted {
			completed++
		}

		for _, t := range s.FollowUps {
			if t.Answered() {
				lengths = append(lengths, len(strings.Fields(t.Answer)))
			}
		}

		fb := s.Feedback
		if fb == nil {
			continue
		}
		weaknesses = append(weaknesses, head(fb.PointsToAddress, pointsPerFeed)...)
		strengths = append(strengths, head(fb.PositivePoints, pointsPerFeed)...)
		p.RecentScores = append(p.RecentScores, fb.OverallScore)

		if topic != "" && s.Topic == topic {
			tp := &p.TopicPerformance
			tp.Scores = append(tp.Scores, fb.OverallScore)
			tp.Weaknesses = append(tp.Weaknesses, head(fb.PointsToAddress, topicPointsPer)...)
			tp.Strengths = append(tp.Strengths, head(fb.PositivePoints, topicPointsPer)...)
		}
	}

	if p.TotalSessions > 0 {
		p.CompletionRate = float64(completed) / float64(p.TotalSessions)
	}
	if len(lengths) > 0 {
		total := 0
		for _, n := range lengths {
			total += n
		}
		p.AvgResponseLength = float64(total) / float64(len(lengths))
	}

	p.PerformanceTrend = append(p.PerformanceTrend, tail(p.RecentScores, trendLength)...)
	p.CommonWeaknesses = mostCommon(weaknesses, topItems)
	p.Strengths = mostCommon(strengths, topItems)
	p.AverageScore = mean(p.RecentScores)

	return p
}

// mostCommon returns the n most frequent items. Ties keep first-seen order.
func mostCommon(items []string, n int) []string {
	counts := make(map[string]int)
	var order []string
	for _, it := range items {
		if counts[it] == 0 {
			order = append(order, it)
		}
		counts[it]++
	}
	sort.SliceStable(order, func(i, j int) bool { return counts[order[i]] > counts[order[j]] })
	if len(order) > n {
		order = order[:n]
	}
	if order == nil {
		return []string{}
	}
	return order
}

func head(s []string, n int) []string {
	if len(s) > n {
		return s[:n]
	}
	return s
}

func tail(s []float64, n int) []float64 {
	if len(s) > n {
		return s[len(s)-n:]
	}
	return s
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}
