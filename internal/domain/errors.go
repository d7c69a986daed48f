package domain

import (
	"errors"
	"fmt"
)

// Error kinds. Every error returned by the core wraps exactly one of these,
// so callers classify with errors.Is.
var (
	// ErrValidation marks malformed input or configuration; no state was changed.
	ErrValidation = errors.New("validation failed")
	// ErrNotFound marks an unknown game, question, user or participant.
	ErrNotFound = errors.New("not found")
	// ErrStateConflict marks a request that is illegal in the current state; it was a no-op.
	ErrStateConflict = errors.New("state conflict")
	// ErrTransport marks a failed push to a connection. Never returned to request callers.
	ErrTransport = errors.New("transport error")
)

var (
	ErrGameNotFound        = fmt.Errorf("game %w", ErrNotFound)
	ErrQuestionNotFound    = fmt.Errorf("question %w", ErrNotFound)
	ErrUserNotFound        = fmt.Errorf("user %w", ErrNotFound)
	ErrParticipantNotFound = fmt.Errorf("participant %w", ErrNotFound)
	ErrConnectionNotFound  = fmt.Errorf("connection %w", ErrNotFound)

	ErrAlreadyJoined     = fmt.Errorf("%w: participant already joined", ErrStateConflict)
	ErrGameFull          = fmt.Errorf("%w: game is full", ErrStateConflict)
	ErrDuplicateAnswer   = fmt.Errorf("%w: answer already submitted", ErrStateConflict)
	ErrInvalidTransition = fmt.Errorf("%w: invalid status transition", ErrStateConflict)
	ErrGameNotActive     = fmt.Errorf("%w: game is not active", ErrStateConflict)
	ErrGameNotJoinable   = fmt.Errorf("%w: game is not accepting players", ErrStateConflict)
	ErrNoMoreQuestions   = fmt.Errorf("%w: no more questions", ErrStateConflict)

	ErrConnectionClosed = fmt.Errorf("%w: connection closed", ErrTransport)
	ErrSendBufferFull   = fmt.Errorf("%w: send buffer full", ErrTransport)
)

// Invalid builds a validation error carrying a human readable reason.
func Invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}
