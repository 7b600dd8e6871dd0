package crawler

import (
	"context"

	"github.com/nao1215/webkb/internal/politeness"
)

// entry is a frontier item: a canonical URL and its link depth from the seed.
type entry struct {
	url   string
	depth int
}

// frontier is the breadth-first queue of a crawl plus its bookkeeping sets.
// enqueued holds every URL ever admitted, visited those that were handed
// to a fetch, recorded the canonical URLs of collected pages.
// Only the scheduler goroutine touches it.
type frontier struct {
	queue    []entry
	enqueued map[string]bool
	visited  map[string]bool
	recorded map[string]bool
}

func newFrontier() *frontier {
	return &frontier{
		queue:    make([]entry, 0),
		enqueued: make(map[string]bool),
		visited:  make(map[string]bool),
		recorded: make(map[string]bool),
	}
}

// push admits url at depth. It reports false for URLs admitted before.
func (f *frontier) push(url string, depth int) bool {
	if f.enqueued[url] {
		return false
	}
	f.enqueued[url] = true
	f.queue = append(f.queue, entry{url: url, depth: depth})
	return true
}

func (f *frontier) pop() entry {
	e := f.queue[0]
	f.queue = f.queue[1:]
	return e
}

// Len returns the number of pending entries.
func (f *frontier) Len() int {
	return len(f.queue)
}

// sitemapSeeder admits sitemap URLs at depth 0 through the same checks as
// discovered links.
type sitemapSeeder struct {
	f      *frontier
	engine *politeness.Engine
}

// Len counts every URL admitted so far, the seed included.
func (s *sitemapSeeder) Len() int {
	return len(s.f.enqueued)
}

// Offer implements sitemap.Frontier.
func (s *sitemapSeeder) Offer(ctx context.Context, url string) bool {
	if s.f.enqueued[url] || s.f.visited[url] {
		return false
	}
	if !s.engine.CanEnqueue(ctx, url) {
		return false
	}
	return s.f.push(url, 0)
}
