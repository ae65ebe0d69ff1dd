package interview

// Patterns summarizes a candidate's recent interview behavior.
type Patterns struct {
	RecentTopics      []string         `json:"recent_topics"`
	PerformanceTrend  []float64        `json:"performance_trend"`
	CommonWeaknesses  []string         `json:"common_weaknesses"`
	Strengths         []string         `json:"strengths"`
	CompletionRate    float64          `json:"completion_rate"`
	AvgResponseLength float64          `json:"avg_response_length"`
	TopicPerformance  TopicPerformance `json:"topic_specific_performance"`
	RecentScores      []float64        `json:"recent_scores"`
	AverageScore      float64          `json:"average_score"`
	TotalSessions     int              `json:"total_sessions"`
	QuestionHistory   *PriorAttempt    `json:"question_specific_history,omitempty"`
}

// TopicPerformance narrows Patterns to the current topic.
type TopicPerformance struct {
	Scores     []float64 `json:"scores"`
	Weaknesses []string  `json:"weaknesses"`
	Strengths  []string  `json:"strengths"`
}

// History is the personalized context handed to the feedback oracle.
type History struct {
	Patterns Patterns `json:"user_patterns"`
	Guidance string   `json:"personalized_guidance"`
}
