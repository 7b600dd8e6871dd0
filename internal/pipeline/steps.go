package pipeline

import (
	"context"
	"log/slog"

	"github.com/nao1215/webkb/internal/boilerplate"
	"github.com/nao1215/webkb/internal/config"
	"github.com/nao1215/webkb/internal/crawler"
	"github.com/nao1215/webkb/internal/model"
	"github.com/nao1215/webkb/internal/report"
)

// topRepeatedLines is the number of dropped lines logged at debug level.
const topRepeatedLines = 5

// Crawler produces a run. *crawler.Spider implements it.
type Crawler interface {
	Crawl(ctx context.Context) *model.Run
}

// CrawlStep runs the crawl and copies its result into the pipeline's run.
type CrawlStep struct {
	crawler Crawler
}

// NewCrawlStep creates a crawl step.
func NewCrawlStep(c Crawler) *CrawlStep {
	return &CrawlStep{crawler: c}
}

// Name returns the step name.
func (s *CrawlStep) Name() string {
	return "crawl"
}

// Do executes the crawl. Crawl failures are recorded in the run, so Do
// never fails.
func (s *CrawlStep) Do(ctx context.Context, run *model.Run) error {
	*run = *s.crawler.Crawl(ctx)
	return nil
}

// FilterStep removes lines repeated across many pages.
type FilterStep struct {
	filter *boilerplate.Filter
	logger *slog.Logger
}

// NewFilterStep creates a boilerplate filter step.
func NewFilterStep(filter *boilerplate.Filter, logger *slog.Logger) *FilterStep {
	if logger == nil {
		logger = slog.Default()
	}
	return &FilterStep{filter: filter, logger: logger}
}

// Name returns the step name.
func (s *FilterStep) Name() string {
	return "boilerplate"
}

// Do rewrites every page's markdown.
func (s *FilterStep) Do(_ context.Context, run *model.Run) error {
	freq := s.filter.Apply(run.Pages)
	for _, lc := range s.filter.Top(freq, topRepeatedLines) {
		s.logger.Debug("repeated line removed", "line", lc.Line, "pages", lc.Pages)
	}
	return nil
}

// AggregateStep combines the pages into the knowledge base.
type AggregateStep struct {
	fallbackHost string
}

// NewAggregateStep creates an aggregation step. fallbackHost labels pages
// without a host, usually the root domain of the seed.
func NewAggregateStep(fallbackHost string) *AggregateStep {
	return &AggregateStep{fallbackHost: fallbackHost}
}

// Name returns the step name.
func (s *AggregateStep) Name() string {
	return "aggregate"
}

// Do sets run.Markdown.
func (s *AggregateStep) Do(_ context.Context, run *model.Run) error {
	run.Markdown = report.Combine(run, s.fallbackHost)
	return nil
}

// ContentCheckStep rejects runs without enough text.
type ContentCheckStep struct {
	minTotalChars int
}

// NewContentCheckStep creates a content check requiring minTotalChars
// characters of page markdown.
func NewContentCheckStep(minTotalChars int) *ContentCheckStep {
	return &ContentCheckStep{minTotalChars: minTotalChars}
}

// Name returns the step name.
func (s *ContentCheckStep) Name() string {
	return "content_check"
}

// Do returns a *ContentError when the run has no pages or its total
// character count is under the minimum.
func (s *ContentCheckStep) Do(_ context.Context, run *model.Run) error {
	if len(run.Pages) == 0 || run.TotalChars() < s.minTotalChars {
		return newContentError(run)
	}
	return nil
}

// NewKnowledgeBase assembles the standard run: crawl, boilerplate filter,
// aggregation and content check.
func NewKnowledgeBase(spider *crawler.Spider, cfg *config.Config, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	p := New(WithLogger(logger))
	p.AddSteps(
		NewCrawlStep(spider),
		NewFilterStep(boilerplate.New(), logger),
		NewAggregateStep(spider.RootDomain()),
		NewContentCheckStep(cfg.MinTotalChars),
	)
	logger.Debug("knowledge base pipeline", "steps", p.StepNames())
	return p
}

// Generate crawls cfg.StartURL and returns the finished run. The run is
// returned together with a *ContentError when the content check fails, so
// callers can still report its ledgers.
func Generate(ctx context.Context, cfg *config.Config, opts ...crawler.Option) (*model.Run, error) {
	spider, err := crawler.NewSpider(cfg, opts...)
	if err != nil {
		return nil, err
	}
	run := model.NewRun(spider.StartURL(), cfg.CrawlTimeout)
	err = NewKnowledgeBase(spider, cfg, spider.Logger()).Execute(ctx, run)
	return run, err
}
