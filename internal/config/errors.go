package config

import "errors"

// Configuration validation errors.
// These errors are returned by Config.Validate() and provide specific
// information about what is wrong with the configuration.
//
// Design decision: We use package-level sentinel errors rather than
// creating new error instances in Validate(). This allows callers to use
// errors.Is() for programmatic error handling while still providing
// human-readable messages.
var (
	// ErrNoSeeds is returned when neither arguments nor --input provide a URL.
	ErrNoSeeds = errors.New("no URLs to crawl: provide URLs as arguments or use --input")

	// ErrInvalidMaxDepth is returned when the maximum depth is negative.
	ErrInvalidMaxDepth = errors.New("invalid max depth: must be non-negative")

	// ErrInvalidConcurrency is returned when the worker count is not positive.
	ErrInvalidConcurrency = errors.New("invalid concurrency: must be positive")

	// ErrInvalidTimeout is returned when the request timeout is not positive.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrInvalidDNSWorkers is returned when DNS validation is enabled and
	// the lookup pool size is not positive.
	ErrInvalidDNSWorkers = errors.New("invalid DNS workers: must be positive")

	// ErrInvalidDNSTimeout is returned when DNS validation is enabled and
	// the lookup timeout is not positive.
	ErrInvalidDNSTimeout = errors.New("invalid DNS timeout: must be positive")

	// ErrInvalidMaxBodySize is returned when the max body size is negative.
	// Use 0 to use the default limit.
	ErrInvalidMaxBodySize = errors.New("invalid max body size: must be non-negative")

	// ErrNoOutput is returned when the output path is empty.
	ErrNoOutput = errors.New("no output path: use --output, or '-' for stdout")

	// ErrUnknownFormat is returned when the output format is not supported.
	ErrUnknownFormat = errors.New("unknown output format: must be json, report, markdown or text")

	// ErrConfigNotFound is returned when the configuration file does not exist.
	ErrConfigNotFound = errors.New("configuration file not found")
)
