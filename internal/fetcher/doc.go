// Package fetcher downloads pages for the crawler.
//
// Fetch issues up to three attempts per URL. Timeouts, transport errors and
// the statuses 408, 425, 429, 500, 502, 503 and 504 are retried after an
// exponential backoff; everything else is final. Each call yields exactly
// one Outcome, which converts into the diagnostic and error ledger entries
// of the run.
//
// Responses are decoded from gzip, deflate or brotli and converted to UTF-8
// before they reach the extractor. The default transport refuses to dial
// private, loopback and link-local addresses, so redirects cannot reach
// internal services.
package fetcher
