package session

import "errors"

// Sentinel errors surfaced by the engine. Callers match with errors.Is; the
// HTTP layer maps them onto status codes. Wrapped variants carry detail but
// always unwrap to one of these.
var (
	ErrSessionNotFound  = errors.New("workout session not found")
	ErrTemplateNotFound = errors.New("workout template not found")
	ErrExerciseNotFound = errors.New("session exercise not found")
	ErrSetNotFound      = errors.New("session set not found")
	ErrGroupNotFound    = errors.New("exercise group not found")

	// ErrActiveSessionExists rejects starting a session while another one is
	// active or paused. The repository is the arbiter of this invariant.
	ErrActiveSessionExists = errors.New("an active session already exists")

	ErrInvalidInput     = errors.New("invalid input")
	ErrInvalidOperation = errors.New("invalid operation")

	// ErrPersistence wraps storage failures. The engine never retries; a
	// failed persist aborts the use case and leaves stored state untouched.
	ErrPersistence = errors.New("persistence failure")
)
