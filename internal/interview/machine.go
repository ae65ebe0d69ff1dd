package interview

import "fmt"

// Verdict is the quality gate's classification of one answer.
type Verdict string

const (
	VerdictGood Verdict = "good"
	VerdictBad  Verdict = "bad"
)

// Policy bounds the questioning phase.
type Policy struct {
	// MaxFollowUps is the follow-up budget; reaching it with a good answer
	// moves the session to coding.
	MaxFollowUps int
	// MaxRejections force-advances a question after this many consecutive
	// bad verdicts. Zero leaves rejections unbounded.
	MaxRejections int
}

// DefaultPolicy returns the standard five-question budget with a cap of
// three rejections per question.
func DefaultPolicy() Policy {
	return Policy{MaxFollowUps: 5, MaxRejections: 3}
}

// Event is an input to Transition.
type Event interface {
	event()
}

// AnswerAssessed reports the verdict on a questioning-phase answer.
type AnswerAssessed struct {
	Verdict        Verdict
	TotalQuestions int
	Rejections     int
}

// CodingRequested reports that the candidate asked to start coding before
// the follow-up budget ran out.
type CodingRequested struct{}

// ClarificationAsked reports a coding-phase question about the problem.
type ClarificationAsked struct{}

// CodeSubmitted reports the final code submission.
type CodeSubmitted struct{}

// FeedbackSaved reports that feedback was computed for the session.
type FeedbackSaved struct{}

func (AnswerAssessed) event()     {}
func (CodingRequested) event()    {}
func (ClarificationAsked) event() {}
func (CodeSubmitted) event()      {}
func (FeedbackSaved) event()      {}

// Effect is a side effect the caller must carry out after a transition.
type Effect string

const (
	EffectCountRejection      Effect = "count_rejection"
	EffectNudge               Effect = "nudge"
	EffectForceAdvance        Effect = "force_advance"
	EffectAskFollowUp         Effect = "ask_follow_up"
	EffectEnterCoding         Effect = "enter_coding"
	EffectAnswerClarification Effect = "answer_clarification"
	EffectRecordCode          Effect = "record_code"
	EffectComplete            Effect = "complete"
)

// Transition computes the next phase and the effects for event. It performs
// no I/O; phases only ever move forward.
func Transition(phase Phase, ev Event, policy Policy) (Phase, []Effect, error) {
	if phase == PhaseCompleted {
		return phase, nil, ErrSessionCompleted
	}

	switch e := ev.(type) {
	case AnswerAssessed:
		if phase != PhaseQuestioning {
			return phase, nil, fmt.Errorf("%w: answer assessed in %s", ErrInvalidTransition, phase)
		}
		return assessAnswer(e, policy)

	case CodingRequested:
		if phase != PhaseQuestioning {
			return phase, nil, fmt.Errorf("%w: coding requested in %s", ErrInvalidTransition, phase)
		}
		return PhaseCoding, []Effect{EffectEnterCoding}, nil

	case ClarificationAsked:
		if phase != PhaseCoding {
			return phase, nil, fmt.Errorf("%w: clarification in %s", ErrInvalidTransition, phase)
		}
		return PhaseCoding, []Effect{EffectAnswerClarification}, nil

	case CodeSubmitted:
		if phase != PhaseCoding {
			return phase, nil, fmt.Errorf("%w: code submitted in %s", ErrInvalidTransition, phase)
		}
		return PhaseCoding, []Effect{EffectRecordCode}, nil

	case FeedbackSaved:
		return PhaseCompleted, []Effect{EffectComplete}, nil

	default:
		return phase, nil, fmt.Errorf("%w: unknown event %T", ErrInvalidTransition, ev)
	}
}

func assessAnswer(e AnswerAssessed, policy Policy) (Phase, []Effect, error) {
	var effects []Effect

	switch e.Verdict {
	case VerdictGood:
	case VerdictBad:
		if policy.MaxRejections <= 0 || e.Rejections+1 < policy.MaxRejections {
			return PhaseQuestioning, []Effect{EffectCountRejection, EffectNudge}, nil
		}
		effects = append(effects, EffectForceAdvance)
	default:
		return PhaseQuestioning, nil, fmt.Errorf("%w: unknown verdict %q", ErrInvalidTransition, e.Verdict)
	}

	if e.TotalQuestions < policy.MaxFollowUps {
		return PhaseQuestioning, append(effects, EffectAskFollowUp), nil
	}
	return PhaseCoding, append(effects, EffectEnterCoding), nil
}
