// Package log builds the slog loggers used by webkb.
//
// RedactingHandler wraps any slog.Handler and masks secrets before records
// reach the output:
//   - values of sensitive keys (authorization, cookie, token, password, ...)
//   - values that look like credentials (bearer tokens, JWTs, private keys)
//   - user info and sensitive query parameters inside URLs
//
// Crawls are configured with cookies and auth headers from the config file,
// and proxy URLs may carry passwords, so the masking applies at every level.
//
// # Usage
//
//	logger := log.NewLogger(os.Stderr, verbose)
//	slog.SetDefault(logger)
//
//	logger.Warn("fetch failed",
//	    "url", "https://user:pw@docs.example.com/a?token=abc", // https://docs.example.com/a?token=***REDACTED***
//	    "cookie", "session=abc123",                             // ***REDACTED***
//	)
package log
