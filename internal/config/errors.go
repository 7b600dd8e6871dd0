package config

import "errors"

// Configuration validation errors returned by Config.Validate and
// EnsurePublicURL. Callers match them with errors.Is.
var (
	// ErrNoStartURL is returned when no seed URL is given.
	ErrNoStartURL = errors.New("no start url specified")

	// ErrInvalidScheme is returned for URLs that are not http or https.
	ErrInvalidScheme = errors.New("only http(s) urls are allowed")

	// ErrBlockedTarget is returned for localhost and literal private,
	// loopback or link-local addresses.
	ErrBlockedTarget = errors.New("target host is not allowed")

	// ErrMaxPagesTooLarge is returned when more than MaxPagesLimit pages are requested.
	ErrMaxPagesTooLarge = errors.New("max_pages cannot exceed 500")

	// ErrInvalidTimeout is returned when the per-request timeout is not positive.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrInvalidCrawlTimeout is returned when the crawl budget is not positive.
	ErrInvalidCrawlTimeout = errors.New("invalid crawl timeout: must be positive")

	// ErrInvalidConcurrency is returned when max_concurrent_requests is not positive.
	ErrInvalidConcurrency = errors.New("invalid max concurrent requests: must be positive")

	// ErrInvalidMaxBodySize is returned when the max body size is negative.
	ErrInvalidMaxBodySize = errors.New("invalid max body size: must be non-negative")

	// ErrInvalidRate is returned when the per-host request rate is negative.
	ErrInvalidRate = errors.New("invalid requests per second: must be non-negative")
)

// Bulk request errors.
var (
	// ErrNoURLs is returned for a bulk request without URLs.
	ErrNoURLs = errors.New("at least one url is required")

	// ErrTooManyURLs is returned for a bulk request over MaxBulkURLs.
	ErrTooManyURLs = errors.New("provide 200 urls or fewer")
)
