// Package boilerplate removes lines repeated across many pages of a crawl,
// such as menus and footers that survived extraction.
package boilerplate

import (
	"cmp"
	"slices"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"

	"github.com/nao1215/webkb/internal/mdnorm"
	"github.com/nao1215/webkb/internal/model"
)

const (
	// DefaultMaxPages is the number of pages a line may appear on and still
	// be kept unconditionally.
	DefaultMaxPages = 3

	// maxLabelChars bounds the structural labels that survive repetition.
	maxLabelChars = 60
)

// structuralLabels survive repetition because they organise a page rather
// than decorate it.
var structuralLabels = []string{
	"overview",
	"introduction",
	"summary",
	"contents",
	"table of contents",
}

// Filter is the whole-corpus repeated-line filter. It is not safe for
// concurrent use.
type Filter struct {
	maxPages int
	fold     cases.Caser
	labels   map[string]bool
}

// Option configures a Filter.
type Option func(*Filter)

// WithMaxPages overrides DefaultMaxPages.
func WithMaxPages(n int) Option {
	return func(f *Filter) {
		if n > 0 {
			f.maxPages = n
		}
	}
}

// New creates a Filter.
func New(opts ...Option) *Filter {
	f := &Filter{
		maxPages: DefaultMaxPages,
		fold:     cases.Fold(),
		labels:   make(map[string]bool, len(structuralLabels)),
	}
	for _, opt := range opts {
		opt(f)
	}
	for _, l := range structuralLabels {
		f.labels[f.fold.String(l)] = true
	}
	return f
}

// Frequencies maps a stripped, non-empty line to the number of pages it
// appears on.
type Frequencies map[string]int

// Count builds the histogram. A line repeated within one page counts once.
func Count(pages []*model.PageRecord) Frequencies {
	freq := make(Frequencies)
	for _, p := range pages {
		seen := make(map[string]bool)
		for _, raw := range strings.Split(p.Markdown, "\n") {
			line := strings.TrimSpace(raw)
			if line == "" || seen[line] {
				continue
			}
			seen[line] = true
			freq[line]++
		}
	}
	return freq
}

// Apply rewrites every page's markdown in place, dropping repeated lines,
// and returns the histogram it used. It must run after the crawl has
// collected all pages.
func (f *Filter) Apply(pages []*model.PageRecord) Frequencies {
	freq := Count(pages)
	for _, p := range pages {
		kept := make([]string, 0)
		for _, raw := range strings.Split(p.Markdown, "\n") {
			line := strings.TrimRight(raw, " \t\r")
			if f.Keep(line, freq[strings.TrimSpace(line)]) {
				kept = append(kept, line)
			}
		}
		p.Markdown = mdnorm.Normalize(strings.Join(kept, "\n"))
	}
	return freq
}

// Keep decides whether line, appearing on pages pages, stays.
func (f *Filter) Keep(line string, pages int) bool {
	if pages <= f.maxPages {
		return true
	}
	stripped := strings.TrimSpace(line)
	if stripped == "" {
		return true
	}
	if utf8.RuneCountInString(stripped) > maxLabelChars {
		return false
	}
	return f.labels[f.fold.String(stripped)] ||
		strings.HasPrefix(stripped, "# ") ||
		strings.HasPrefix(stripped, "## ")
}

// Top returns up to n lines with the highest page counts above the filter
// threshold, most frequent first and ties in lexical order.
func (f *Filter) Top(freq Frequencies, n int) []LineCount {
	out := make([]LineCount, 0)
	for line, count := range freq {
		if count > f.maxPages {
			out = append(out, LineCount{Line: line, Pages: count})
		}
	}
	slices.SortFunc(out, func(a, b LineCount) int {
		if a.Pages != b.Pages {
			return cmp.Compare(b.Pages, a.Pages)
		}
		return strings.Compare(a.Line, b.Line)
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}

// LineCount is one histogram entry.
type LineCount struct {
	Line  string
	Pages int
}
