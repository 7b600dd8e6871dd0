package model

import (
	"strings"
	"time"
	"unicode/utf8"
)

// Run is the value returned by one crawl invocation.
// The core keeps no state between invocations; callers that need the last
// run (the HTTP debug route, the history store) hold on to this value.
type Run struct {
	// StartURL is the canonical seed URL.
	StartURL string `json:"start_url"`

	// Pages are the collected pages in the order their batches completed.
	Pages []*PageRecord `json:"pages"`

	// Errors is the error ledger.
	Errors []ErrorRecord `json:"errors"`

	// Diagnostics is the diagnostic ledger.
	Diagnostics []DiagnosticRecord `json:"diagnostics"`

	// SkippedLinks counts discovered links that admission rejected.
	SkippedLinks int `json:"skipped_links"`

	// TimedOut is set when the wall-clock budget stopped the crawl.
	TimedOut bool `json:"timed_out"`

	// CrawlTimeout is the wall-clock budget the run was started with.
	CrawlTimeout time.Duration `json:"crawl_timeout"`

	// Markdown is the combined knowledge-base document, set by the aggregator.
	Markdown string `json:"-"`

	// StartedAt and FinishedAt bracket the crawl.
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

// NewRun creates an empty run for the given seed.
func NewRun(startURL string, crawlTimeout time.Duration) *Run {
	return &Run{
		StartURL:     startURL,
		Pages:        make([]*PageRecord, 0),
		Errors:       make([]ErrorRecord, 0),
		Diagnostics:  make([]DiagnosticRecord, 0),
		CrawlTimeout: crawlTimeout,
		StartedAt:    time.Now(),
	}
}

// TotalChars is the summed markdown length, in characters, over all pages.
func (r *Run) TotalChars() int {
	total := 0
	for _, p := range r.Pages {
		total += utf8.RuneCountInString(p.Markdown)
	}
	return total
}

// Stats summarises the run for debugging endpoints and history rows.
func (r *Run) Stats() RunStats {
	thin := 0
	for _, p := range r.Pages {
		if p.IsThin() {
			thin++
		}
	}
	return RunStats{
		StartURL:       r.StartURL,
		PagesCount:     len(r.Pages),
		ThinPagesCount: thin,
		TotalChars:     r.TotalChars(),
		ErrorsCount:    len(r.Errors),
		SkippedLinks:   r.SkippedLinks,
		TimedOut:       r.TimedOut,
		StartedAt:      r.StartedAt,
		Elapsed:        r.FinishedAt.Sub(r.StartedAt),
	}
}

// Hosts returns the distinct page hosts in first-seen order.
func (r *Run) Hosts() []string {
	seen := make(map[string]bool)
	hosts := make([]string, 0)
	for _, p := range r.Pages {
		h := strings.ToLower(p.Host)
		if seen[h] {
			continue
		}
		seen[h] = true
		hosts = append(hosts, h)
	}
	return hosts
}

// RunStats is the summary of a run.
type RunStats struct {
	StartURL       string        `json:"start_url"`
	PagesCount     int           `json:"pages_count"`
	ThinPagesCount int           `json:"thin_pages_count"`
	TotalChars     int           `json:"total_chars"`
	ErrorsCount    int           `json:"errors_count"`
	SkippedLinks   int           `json:"skipped_links"`
	TimedOut       bool          `json:"timed_out"`
	StartedAt      time.Time     `json:"started_at"`
	Elapsed        time.Duration `json:"elapsed"`
}
