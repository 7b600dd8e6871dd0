// Package database stores crawl run history in SQLite.
//
// Every finished run is saved as one row: the summary counters as columns
// for listing, and the full run (pages, ledgers and the combined markdown)
// for re-rendering reports later. The driver is modernc.org/sqlite, so the
// binary stays CGO-free.
package database
