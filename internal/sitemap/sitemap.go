// Package sitemap seeds a crawl frontier from the start host's /sitemap.xml,
// following sitemap indexes up to a fixed number of documents.
package sitemap

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/antchfx/xmlquery"

	"github.com/nao1215/webkb/internal/politeness"
	"github.com/nao1215/webkb/internal/urlnorm"
)

// DefaultMaxSitemaps bounds the sitemap documents fetched per crawl.
const DefaultMaxSitemaps = 20

// Frontier is the part of the crawl queue sitemap discovery writes to.
type Frontier interface {
	// Len returns the number of URLs ever enqueued.
	Len() int
	// Offer enqueues url at depth 0 unless it was already seen or the
	// politeness engine rejects it. It reports whether url was added.
	Offer(ctx context.Context, url string) bool
}

// Discoverer walks sitemaps.
type Discoverer struct {
	getter      politeness.Getter
	maxSitemaps int
	logger      *slog.Logger
}

// Option configures a Discoverer.
type Option func(*Discoverer)

// WithMaxSitemaps overrides DefaultMaxSitemaps.
func WithMaxSitemaps(n int) Option {
	return func(d *Discoverer) {
		if n > 0 {
			d.maxSitemaps = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Discoverer) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// NewDiscoverer creates a Discoverer fetching through getter.
func NewDiscoverer(getter politeness.Getter, opts ...Option) *Discoverer {
	d := &Discoverer{
		getter:      getter,
		maxSitemaps: DefaultMaxSitemaps,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Discover reads {scheme}://{host}/sitemap.xml of startURL and offers every
// page URL it lists to the frontier until the frontier holds urlLimit URLs.
// Unreachable, non-200 and malformed sitemaps contribute nothing.
// It returns the number of URLs added.
func (d *Discoverer) Discover(ctx context.Context, startURL string, urlLimit int, f Frontier) int {
	origin := urlnorm.Origin(startURL)
	if origin == "" {
		return 0
	}

	toProcess := []string{origin + "/sitemap.xml"}
	processed := make(map[string]bool)
	added := 0

	for len(toProcess) > 0 && len(processed) < d.maxSitemaps && f.Len() < urlLimit {
		current := urlnorm.Normalize(toProcess[0], "")
		toProcess = toProcess[1:]
		if current == "" || processed[current] {
			continue
		}
		processed[current] = true

		status, body, err := d.getter.Get(ctx, current)
		if err != nil {
			d.logger.Debug("sitemap fetch failed", "url", current, "error", err)
			continue
		}
		if status != http.StatusOK {
			continue
		}

		doc, err := Parse(body)
		if err != nil {
			d.logger.Debug("malformed sitemap", "url", current, "error", err)
			continue
		}

		for _, loc := range doc.Sitemaps {
			if len(processed)+len(toProcess) >= d.maxSitemaps {
				break
			}
			if next := urlnorm.Normalize(loc, current); next != "" {
				toProcess = append(toProcess, next)
			}
		}

		for _, loc := range doc.URLs {
			if f.Len() >= urlLimit {
				break
			}
			pageURL := urlnorm.Normalize(loc, current)
			if pageURL == "" {
				continue
			}
			if f.Offer(ctx, pageURL) {
				added++
			}
		}
	}

	if added > 0 {
		d.logger.Info("seeded frontier from sitemap", "start_url", startURL, "urls", added, "sitemaps", len(processed))
	}
	return added
}

// Document is a parsed sitemap: either an index listing further sitemaps
// or a urlset listing pages.
type Document struct {
	Sitemaps []string
	URLs     []string
}

// Parse reads a sitemap document. Namespaces are ignored; only the root
// element's name decides whether <loc> entries are sitemaps or pages.
func Parse(content []byte) (Document, error) {
	doc, err := xmlquery.Parse(bytes.NewReader(content))
	if err != nil {
		return Document{}, err
	}

	root := xmlquery.FindOne(doc, "/*")
	if root == nil {
		return Document{}, nil
	}

	var out Document
	switch root.Data {
	case "sitemapindex":
		out.Sitemaps = locs(root, "sitemap")
	case "urlset":
		out.URLs = locs(root, "url")
	}
	return out, nil
}

func locs(root *xmlquery.Node, entry string) []string {
	var out []string
	for _, n := range xmlquery.Find(root, "*[local-name()='"+entry+"']/*[local-name()='loc']") {
		if text := strings.TrimSpace(n.InnerText()); text != "" {
			out = append(out, text)
		}
	}
	return out
}
