// Package model defines the data shared by the crawler, the exporters and
// the history store.
//
// This package contains the following main types:
//   - PageRecord: one extracted page
//   - ErrorRecord and DiagnosticRecord: the per-URL ledgers
//   - Run: everything a single crawl invocation produced
//
// Design decision: Models live in their own package so that crawler, report,
// database and server can all depend on them without import cycles.
package model
