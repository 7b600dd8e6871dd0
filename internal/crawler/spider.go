package crawler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"

	"github.com/nao1215/webkb/internal/config"
	"github.com/nao1215/webkb/internal/extract"
	"github.com/nao1215/webkb/internal/fetcher"
	"github.com/nao1215/webkb/internal/model"
	"github.com/nao1215/webkb/internal/politeness"
	"github.com/nao1215/webkb/internal/sitemap"
	"github.com/nao1215/webkb/internal/urlnorm"
)

// sitemapURLFactor bounds sitemap seeding to this many URLs per page of
// the page cap.
const sitemapURLFactor = 3

var (
	// ErrOutOfScope is returned by FetchAndClean for URLs the crawl scope
	// or the extension denylist excludes.
	ErrOutOfScope = errors.New("url is out of crawl scope")

	// ErrInvalidURL is returned by FetchAndClean for URLs that do not
	// normalize.
	ErrInvalidURL = errors.New("invalid url")
)

// FetchError reports a fetch that ended without a usable page.
type FetchError struct {
	Outcome fetcher.Outcome
}

// Error implements error.
func (e *FetchError) Error() string {
	if e.Outcome.Status != 0 {
		return fmt.Sprintf("fetch %s: %s (%d)", e.Outcome.URL, e.Outcome.Reason, e.Outcome.Status)
	}
	return fmt.Sprintf("fetch %s: %s", e.Outcome.URL, e.Outcome.Reason)
}

// Spider runs one crawl. It owns the politeness state (robots rules, guard
// verdicts) of that crawl, so a new Spider is needed per run.
type Spider struct {
	cfg       *config.Config
	startURL  string
	fetcher   *fetcher.Fetcher
	client    *http.Client
	resolver  politeness.Resolver
	engine    *politeness.Engine
	extractor *extract.Extractor
	logger    *slog.Logger
}

// Option configures a Spider.
type Option func(*Spider)

// WithFetcher replaces the fetcher built from the configuration.
func WithFetcher(f *fetcher.Fetcher) Option {
	return func(s *Spider) {
		s.fetcher = f
	}
}

// WithHTTPClient makes the built fetcher use c.
func WithHTTPClient(c *http.Client) Option {
	return func(s *Spider) {
		s.client = c
	}
}

// WithResolver replaces the DNS resolver of the SSRF guard.
func WithResolver(r politeness.Resolver) Option {
	return func(s *Spider) {
		s.resolver = r
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Spider) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewSpider creates a Spider for cfg. The configuration is copied and
// clamped; cfg itself is not modified.
func NewSpider(cfg *config.Config, opts ...Option) (*Spider, error) {
	s := &Spider{
		cfg:    cfg.Clone(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.cfg.Clamp()

	s.startURL = urlnorm.Normalize(s.cfg.StartURL, "")
	if s.startURL == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidURL, s.cfg.StartURL)
	}

	if s.fetcher == nil {
		fopts := []fetcher.Option{
			fetcher.WithTimeout(s.cfg.Timeout),
			fetcher.WithUserAgent(s.cfg.UserAgent),
			fetcher.WithMaxBodySize(s.cfg.MaxBodySize),
			fetcher.WithProxyURL(s.cfg.ProxyURL),
			fetcher.WithRequestsPerSecond(s.cfg.RequestsPerSecond),
			fetcher.WithHeaders(s.cfg.Headers),
			fetcher.WithLogger(s.logger),
		}
		if s.client != nil {
			fopts = append(fopts, fetcher.WithHTTPClient(s.client))
		}
		f, err := fetcher.New(fopts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create fetcher: %w", err)
		}
		s.fetcher = f
	}

	scope := politeness.NewScope(s.startURL, s.cfg.AllowedHosts, s.cfg.PathPrefixes, s.cfg.IncludeSubdomains)
	eopts := []politeness.EngineOption{
		politeness.WithRespectRobots(s.cfg.RespectRobots),
		politeness.WithEngineLogger(s.logger),
	}
	if s.resolver != nil {
		eopts = append(eopts, politeness.WithResolver(s.resolver))
	}
	s.engine = politeness.NewEngine(scope, s.fetcher, eopts...)

	s.extractor = extract.New(extract.Options{
		StripLinks:            s.cfg.StripLinks,
		StripImages:           s.cfg.StripImages,
		RemoveAdditionalNoise: s.cfg.RemoveAdditionalNoise,
		ReadabilityFallback:   s.cfg.ReadabilityFallback,
		MinTextChars:          s.cfg.MinTextChars,
		MainSelectors:         s.cfg.MainSelectors,
	}, s.logger)

	return s, nil
}

// StartURL returns the canonical seed URL.
func (s *Spider) StartURL() string {
	return s.startURL
}

// RootDomain returns the root domain of the seed, used to label pages
// without a host.
func (s *Spider) RootDomain() string {
	return s.engine.Scope().RootDomainName()
}

// Logger returns the spider's logger.
func (s *Spider) Logger() *slog.Logger {
	return s.logger
}

// Crawl runs the crawl to completion: the frontier drains, the page cap is
// reached or the crawl budget runs out. Per-URL failures land in the run's
// ledgers; Crawl itself never fails. Pages are returned unfiltered.
func (s *Spider) Crawl(ctx context.Context) *model.Run {
	run := model.NewRun(s.startURL, s.cfg.CrawlTimeout)
	defer func() { run.FinishedAt = time.Now() }()

	s.logger.Info("crawl started", "start_url", s.startURL,
		"max_pages", s.cfg.MaxPages, "max_depth", s.cfg.MaxDepth)

	f := newFrontier()
	f.push(s.startURL, 0)

	if s.cfg.UseSitemap {
		d := sitemap.NewDiscoverer(s.engine.Guarded(s.fetcher), sitemap.WithLogger(s.logger))
		d.Discover(ctx, s.startURL, sitemapURLFactor*s.cfg.MaxPages, &sitemapSeeder{f: f, engine: s.engine})
	}

	for f.Len() > 0 && len(run.Pages) < s.cfg.MaxPages {
		if time.Since(run.StartedAt) > s.cfg.CrawlTimeout {
			run.TimedOut = true
			s.logger.Warn("crawl timed out", "after", s.cfg.CrawlTimeout)
			break
		}
		if ctx.Err() != nil {
			s.logger.Warn("crawl cancelled", "error", ctx.Err())
			break
		}

		batch := s.nextBatch(ctx, f, run)
		if len(batch) == 0 {
			break
		}
		s.logger.Debug("fetching batch", "size", len(batch), "pending", f.Len(), "pages", len(run.Pages))

		for _, res := range s.fetchBatch(ctx, batch) {
			s.merge(ctx, f, run, res)
		}
	}

	s.logger.Info("crawl finished", "start_url", s.startURL, "pages", len(run.Pages),
		"errors", len(run.Errors), "skipped_links", run.SkippedLinks, "timed_out", run.TimedOut)
	return run
}

// nextBatch pops frontier entries until the batch is full, the page budget
// is covered or the frontier is empty. Refusals with a ledger reason are
// recorded here.
func (s *Spider) nextBatch(ctx context.Context, f *frontier, run *model.Run) []entry {
	batch := make([]entry, 0, s.cfg.MaxConcurrentRequests)
	for f.Len() > 0 &&
		len(batch) < s.cfg.MaxConcurrentRequests &&
		len(run.Pages)+len(batch) < s.cfg.MaxPages {
		e := f.pop()
		if f.visited[e.url] {
			continue
		}
		verdict := s.engine.CanVisit(ctx, e.url)
		if !verdict.Allowed {
			if verdict.Reason != "" {
				errRec, diag := model.NewSkipRecords(e.url, verdict.Reason)
				run.Errors = append(run.Errors, errRec)
				run.Diagnostics = append(run.Diagnostics, diag)
			}
			continue
		}
		f.visited[e.url] = true
		batch = append(batch, e)
	}
	return batch
}

// result is what one batch task hands back to the scheduler.
type result struct {
	entry   entry
	outcome fetcher.Outcome
	page    *model.PageRecord
	links   []string
}

// fetchBatch fetches and extracts every entry concurrently and returns the
// results in batch order once all of them are done. Tasks touch no shared
// crawl state.
func (s *Spider) fetchBatch(ctx context.Context, batch []entry) []result {
	results := make([]result, len(batch))

	var g errgroup.Group
	g.SetLimit(s.cfg.MaxConcurrentRequests)
	for i, e := range batch {
		g.Go(func() error {
			out := s.fetcher.Fetch(ctx, e.url)
			results[i] = result{entry: e, outcome: out}
			if out.OK() {
				results[i].page, results[i].links = s.buildPage(e.url, out)
			}
			return nil
		})
	}
	_ = g.Wait()

	return results
}

// merge applies one result to the crawl state. It runs only between
// batches.
func (s *Spider) merge(ctx context.Context, f *frontier, run *model.Run, res result) {
	run.Diagnostics = append(run.Diagnostics, res.outcome.Diagnostic())
	if rec, failed := res.outcome.ErrorRecord(); failed {
		run.Errors = append(run.Errors, rec)
	}
	if res.page == nil {
		return
	}

	if f.recorded[res.page.URL] {
		// The body is not recorded twice, but its links are still followed.
		s.logger.Debug("duplicate canonical page", "url", res.entry.url, "canonical", res.page.URL)
	} else {
		f.recorded[res.page.URL] = true
		f.visited[res.page.URL] = true
		f.enqueued[res.page.URL] = true
		run.Pages = append(run.Pages, res.page)
	}

	next := res.entry.depth + 1
	for _, link := range res.links {
		if f.visited[link] || f.enqueued[link] {
			continue
		}
		if next > s.cfg.MaxDepth ||
			len(f.visited)+f.Len() >= s.cfg.MaxPages ||
			!s.engine.CanEnqueue(ctx, link) {
			run.SkippedLinks++
			continue
		}
		f.push(link, next)
	}
}

// buildPage turns a successful fetch into a PageRecord and the links it
// carries. The declared canonical URL, when present, becomes the page's
// identity. Links resolve against the redirect-resolved URL.
func (s *Spider) buildPage(pageURL string, out fetcher.Outcome) (*model.PageRecord, []string) {
	base := out.FinalURL
	if base == "" {
		base = pageURL
	}

	var links []string
	if parsed, err := NewParser(base).Parse(strings.NewReader(out.Body)); err == nil {
		links = parsed.Links
		if parsed.Canonical != "" {
			pageURL = parsed.Canonical
		}
	} else {
		s.logger.Debug("link parsing failed", "url", pageURL, "error", err)
	}

	return s.newPageRecord(pageURL, out.Body), links
}

func (s *Spider) newPageRecord(pageURL, body string) *model.PageRecord {
	cleaned := s.extractor.Clean(body, pageURL)

	host := urlnorm.Hostname(pageURL)
	if host == "" {
		host = s.engine.Scope().RootDomainName()
	}
	return &model.PageRecord{
		URL:             pageURL,
		Host:            host,
		Path:            urlnorm.PathWithQuery(pageURL),
		Title:           cleaned.Title,
		Markdown:        cleaned.Markdown,
		CleanTextChars:  utf8.RuneCountInString(strings.TrimSpace(cleaned.Markdown)),
		UsedReadability: cleaned.UsedReadability,
	}
}

// CanVisit reports whether rawURL passes the SSRF guard, robots.txt (when
// respected) and the crawl scope.
func (s *Spider) CanVisit(ctx context.Context, rawURL string) bool {
	pageURL := urlnorm.Normalize(rawURL, "")
	if pageURL == "" {
		return false
	}
	return s.engine.CanVisit(ctx, pageURL).Allowed
}

// FetchAndClean fetches a single URL and extracts it without following
// links. The URL must be in the spider's scope and pass the SSRF guard.
// robots.txt is not consulted.
func (s *Spider) FetchAndClean(ctx context.Context, rawURL string) (*model.PageRecord, error) {
	pageURL := urlnorm.Normalize(rawURL, "")
	if pageURL == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidURL, rawURL)
	}
	if !s.engine.Scope().Allows(pageURL) {
		return nil, fmt.Errorf("%w: %s", ErrOutOfScope, pageURL)
	}
	if err := s.engine.CheckHost(ctx, pageURL); err != nil {
		return nil, err
	}

	out := s.fetcher.Fetch(ctx, pageURL)
	if !out.OK() {
		return nil, &FetchError{Outcome: out}
	}
	return s.newPageRecord(pageURL, out.Body), nil
}
