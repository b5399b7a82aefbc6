package session

import "errors"

// Errors returned by OnResult. A rejected delivery never changes the counters.
var (
	// ErrUnknownCandidate is returned for a candidate that was not submitted
	// when the session was created.
	ErrUnknownCandidate = errors.New("candidate is not part of this session")

	// ErrDuplicateResult is returned when a candidate already has an outcome.
	ErrDuplicateResult = errors.New("candidate already has a recorded outcome")

	// ErrSessionCompleted is returned once every candidate has been recorded.
	ErrSessionCompleted = errors.New("session is already completed")
)
