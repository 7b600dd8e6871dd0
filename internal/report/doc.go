// Package report turns crawl runs into documents.
//
// Combine builds the knowledge base itself: a crawl-summary comment and the
// pages grouped by host. Grouped, Index and PageFilename serve the bulk and
// import exports.
//
// Writers render the run report in several formats:
//   - MarkdownWriter: GitHub-flavored markdown with a mermaid error chart
//   - JSONWriter: structured output for tool integration
//   - SimpleWriter: plain text for the terminal
package report
