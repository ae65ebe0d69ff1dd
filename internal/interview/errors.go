package interview

import (
	"errors"
	"fmt"
)

// Caller-facing failure kinds.
var (
	// ErrNotFound indicates the referenced session, user, module or question does not exist.
	ErrNotFound = errors.New("not found")

	// ErrEmptyConversation indicates feedback was requested before any answer was recorded.
	ErrEmptyConversation = errors.New("no conversation recorded for session")

	// ErrGenerationFailure indicates an oracle failed or timed out.
	ErrGenerationFailure = errors.New("generation failed")

	// ErrAccessDenied indicates a user requested another user's session.
	ErrAccessDenied = errors.New("access denied")

	// ErrConflict indicates a concurrent writer changed the session first.
	ErrConflict = errors.New("session modified concurrently")

	// ErrInvalidInput indicates a malformed request.
	ErrInvalidInput = errors.New("invalid input")
)

// State machine errors. Both surface as conflicts.
var (
	// ErrSessionCompleted indicates the session already holds feedback.
	ErrSessionCompleted = fmt.Errorf("%w: session already completed", ErrConflict)

	// ErrInvalidTransition indicates an event that the current phase does not accept.
	ErrInvalidTransition = fmt.Errorf("%w: invalid phase transition", ErrConflict)
)

// GenerationError wraps an oracle failure with the oracle's name.
type GenerationError struct {
	Oracle string
	Err    error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("%s oracle: %v", e.Oracle, e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// Is reports every GenerationError as ErrGenerationFailure.
func (e *GenerationError) Is(target error) bool {
	return target == ErrGenerationFailure
}

func generationFailed(oracle string, err error) error {
	return &GenerationError{Oracle: oracle, Err: err}
}

// Kind returns a stable identifier for the failure category of err.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrEmptyConversation):
		return "empty_conversation"
	case errors.Is(err, ErrGenerationFailure):
		return "generation_failure"
	case errors.Is(err, ErrAccessDenied):
		return "access_denied"
	case errors.Is(err, ErrConflict):
		return "conflict"
	case errors.Is(err, ErrInvalidInput):
		return "invalid_input"
	default:
		return "internal"
	}
}
