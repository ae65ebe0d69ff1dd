package interview

import (
	"fmt"
	"strings"
	"time"
)

// Phase is the forward-only position of a session in the interview.
type Phase string

const (
	PhaseQuestioning Phase = "questioning"
	PhaseCoding      Phase = "coding"
	PhaseCompleted   Phase = "completed"
)

// Status is the display status shown in session summaries.
type Status string

const (
	StatusInProgress Status = "in_progress"
	StatusSubmitted  Status = "submitted"
	StatusCompleted  Status = "completed"
)

// FirstFollowUp is asked right after the seed question of every session.
const FirstFollowUp = "Can you walk me through your thought process on how you would approach this problem?"

// CodingPrompt is returned when the session enters the coding phase.
const CodingPrompt = "You can start coding now. If you need clarification on the problem, please ask."

// SeedQuestion is the fixed opening question and its reference metadata.
type SeedQuestion struct {
	ID         string   `json:"id"`
	ModuleCode string   `json:"module_code"`
	TopicCode  string   `json:"topic_code,omitempty"`
	Question   string   `json:"question"`
	Difficulty string   `json:"difficulty"`
	Example    string   `json:"example"`
	CodeStub   string   `json:"code_stub"`
	Tags       []string `json:"tags"`
	Language   string   `json:"language"`

	// Answer is only used by sessions created without a first follow-up.
	Answer string `json:"answer,omitempty"`
}

// Turn is one question and its (possibly pending) answer.
type Turn struct {
	Question   string    `json:"question"`
	Answer     string    `json:"answer"`
	AskedAt    time.Time `json:"asked_at"`
	AnsweredAt time.Time `json:"answered_at,omitempty"`
}

// Answered reports whether the turn carries an answer.
func (t Turn) Answered() bool { return t.Answer != "" }

// Session is one interview attempt.
type Session struct {
	ID       string `json:"session_id"`
	UserID   string `json:"user_id"`
	UserName string `json:"user_name"`
	Topic    string `json:"topic"`

	Phase  Phase  `json:"current_phase"`
	Status Status `json:"status"`

	Seed           SeedQuestion `json:"seed"`
	FollowUps      []Turn       `json:"follow_up_questions"`
	Clarifications []Turn       `json:"clarifications"`
	Code           string       `json:"code,omitempty"`

	TotalQuestions int `json:"total_questions"`
	// Rejections counts consecutive bad verdicts on the outstanding question.
	Rejections int `json:"rejections"`

	Feedback *StoredFeedback `json:"feedback,omitempty"`

	// Version is the optimistic concurrency token checked on every write.
	Version   int64     `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewSessionID builds the composite session key.
func NewSessionID(userID, moduleCode string, at time.Time) string {
	return fmt.Sprintf("%s_%s_%d", userID, moduleCode, at.UnixMicro())
}

// Clone returns a deep copy so an operation can mutate freely and discard
// its work if a later step fails.
func (s *Session) Clone() *Session {
	c := *s
	c.Seed.Tags = append([]string(nil), s.Seed.Tags...)
	c.FollowUps = append([]Turn(nil), s.FollowUps...)
	c.Clarifications = append([]Turn(nil), s.Clarifications...)
	if s.Feedback != nil {
		fb := *s.Feedback
		c.Feedback = &fb
	}
	return &c
}

// RecordAnswer stores answer on the first unanswered follow-up. With no
// pending follow-up it overwrites the most recent one, so a rejected answer
// is replaced by the retry. Sessions without follow-ups record on the seed.
func (s *Session) RecordAnswer(answer string, at time.Time) {
	if len(s.FollowUps) == 0 {
		s.Seed.Answer = answer
		return
	}
	i := s.outstanding()
	if i < 0 {
		i = len(s.FollowUps) - 1
	}
	s.FollowUps[i].Answer = answer
	s.FollowUps[i].AnsweredAt = at
}

func (s *Session) outstanding() int {
	for i, t := range s.FollowUps {
		if !t.Answered() {
			return i
		}
	}
	return -1
}

// LatestAnswered returns the most recently answered turn. fellBack is true
// when no follow-up carries an answer and the last follow-up was returned
// instead, which means an answer was lost before assessment.
func (s *Session) LatestAnswered() (turn Turn, fellBack bool) {
	if len(s.FollowUps) == 0 {
		return Turn{Question: s.Seed.Question, Answer: s.Seed.Answer}, false
	}
	for i := len(s.FollowUps) - 1; i >= 0; i-- {
		if s.FollowUps[i].Answered() {
			return s.FollowUps[i], false
		}
	}
	return s.FollowUps[len(s.FollowUps)-1], true
}

// AppendFollowUp adds a pending follow-up and counts it against the budget.
func (s *Session) AppendFollowUp(question string, at time.Time) {
	s.FollowUps = append(s.FollowUps, Turn{Question: question, AskedAt: at})
	s.TotalQuestions++
	s.Rejections = 0
}

// AddClarification appends a coding-phase clarification exchange.
func (s *Session) AddClarification(question, reply string, at time.Time) {
	s.Clarifications = append(s.Clarifications, Turn{
		Question:   question,
		Answer:     reply,
		AskedAt:    at,
		AnsweredAt: at,
	})
}

// Role labels a conversation message.
type Role string

const (
	RoleInterviewer Role = "interviewer"
	RoleCandidate   Role = "candidate"
)

// Message is one utterance in the prior conversation.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Conversation returns the seed question followed by every follow-up and
// its answer, in order.
func (s *Session) Conversation() []Message {
	msgs := make([]Message, 0, 2*len(s.FollowUps)+2)
	msgs = append(msgs, Message{Role: RoleInterviewer, Content: s.Seed.Question})
	if s.Seed.Answer != "" {
		msgs = append(msgs, Message{Role: RoleCandidate, Content: s.Seed.Answer})
	}
	for _, t := range s.FollowUps {
		msgs = append(msgs, Message{Role: RoleInterviewer, Content: t.Question})
		if t.Answered() {
			msgs = append(msgs, Message{Role: RoleCandidate, Content: t.Answer})
		}
	}
	return msgs
}

// ClarificationPrefix marks clarification exchanges in the transcript.
const ClarificationPrefix = "[Clarification] "

// Exchange is one transcript entry handed to the feedback oracle.
type Exchange struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// Transcript returns seed, follow-up and clarification exchanges in order.
func (s *Session) Transcript() []Exchange {
	out := make([]Exchange, 0, 1+len(s.FollowUps)+len(s.Clarifications))
	if s.Seed.Question != "" {
		out = append(out, Exchange{Question: s.Seed.Question, Answer: s.Seed.Answer})
	}
	for _, t := range s.FollowUps {
		out = append(out, Exchange{Question: t.Question, Answer: t.Answer})
	}
	for _, c := range s.Clarifications {
		out = append(out, Exchange{Question: ClarificationPrefix + c.Question, Answer: c.Answer})
	}
	return out
}

// HasAnswers reports whether any exchange in the session carries an answer.
func (s *Session) HasAnswers() bool {
	if strings.TrimSpace(s.Seed.Answer) != "" || len(s.Clarifications) > 0 {
		return true
	}
	for _, t := range s.FollowUps {
		if t.Answered() {
			return true
		}
	}
	return false
}
