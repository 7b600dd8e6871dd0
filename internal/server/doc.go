// Package server exposes the crawler, the bulk fetcher and the document
// importer over HTTP.
//
// Routes:
//
//	GET  /                usage
//	GET  /healthz         liveness
//	GET  /version         build information
//	GET  /debug/last-run  ledgers and counters of the latest crawl
//	POST /generate        crawl a site, return knowledgebase.md
//	POST /crawl-preview   crawl a site, list the pages found
//	POST /download-selected  fetch a selection of pages into a zip
//	POST /bulk/combined   fetch a URL list into one markdown file
//	POST /bulk/zip        fetch a URL list into a zip of markdown files
//	POST /import          convert uploaded documents
//
// The server keeps the latest run in memory and, when a history database
// is attached, stores every run in it.
package server
