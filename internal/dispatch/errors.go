package dispatch

import "errors"

// Configuration errors returned by Run before any probe is dispatched.
var (
	// ErrInvalidConcurrency is returned when the concurrency limit is below 1.
	ErrInvalidConcurrency = errors.New("invalid concurrency: must be at least 1")

	// ErrInvalidTimeout is returned when the per-probe timeout is not positive.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrNoProber is returned when the Dispatcher was created without a Prober.
	ErrNoProber = errors.New("no prober configured")
)
