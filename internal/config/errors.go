package config

import "errors"

// Configuration validation errors returned by Config.Validate and ApplyFile.
var (
	// ErrInvalidTimeout is returned when the probe timeout is not positive.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrInvalidConcurrency is returned when the concurrency is below 1.
	ErrInvalidConcurrency = errors.New("invalid concurrency: must be at least 1")

	// ErrConflictingReportFormats is returned when both --json and --markdown
	// are specified.
	ErrConflictingReportFormats = errors.New("conflicting report formats: --json and --markdown cannot be used together")

	// ErrInvalidReportFormat is returned for an unknown report.format value.
	ErrInvalidReportFormat = errors.New("invalid report format: expected text, json or markdown")

	// ErrInvalidMaxBodySize is returned when the max body size is negative.
	ErrInvalidMaxBodySize = errors.New("invalid max body size: must be non-negative")

	// ErrInvalidMaxInputSize is returned when the max input size is negative.
	ErrInvalidMaxInputSize = errors.New("invalid max input size: must be non-negative")

	// ErrInvalidEndpoint is returned when the endpoint is not an absolute http(s) URL.
	ErrInvalidEndpoint = errors.New("invalid endpoint: expected an absolute http(s) URL")

	// ErrNoDBDir is returned when saving is enabled without a database directory.
	ErrNoDBDir = errors.New("history is enabled but no database directory is set")
)
