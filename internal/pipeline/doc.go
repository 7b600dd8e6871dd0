// Package pipeline runs a crawl through its post-processing stages.
//
// A knowledge-base run is four steps executed in order on one model.Run:
// the crawl, the boilerplate filter, aggregation into a single markdown
// document, and the content check that rejects runs with too little text.
// Each step is a Step, so the CLI and the HTTP server assemble the same
// sequence with NewKnowledgeBase.
//
// BatchProcessor handles bulk requests, where a list of URLs is fetched and
// cleaned one page at a time with bounded concurrency and no link following.
package pipeline
