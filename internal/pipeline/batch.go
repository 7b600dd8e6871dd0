package pipeline

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nao1215/webkb/internal/model"
)

// DefaultBatchConcurrency is the number of pages fetched at once.
const DefaultBatchConcurrency = 8

// PageFetcher fetches and cleans one URL without following links.
// *crawler.Spider implements it.
type PageFetcher interface {
	FetchAndClean(ctx context.Context, rawURL string) (*model.PageRecord, error)
}

// BatchResult is the outcome of one URL of a batch.
type BatchResult struct {
	URL  string
	Page *model.PageRecord
	Err  error
}

// BatchProcessor fetches a list of URLs concurrently.
type BatchProcessor struct {
	fetcher     PageFetcher
	concurrency int
	logger      *slog.Logger
}

// BatchOption configures a BatchProcessor.
type BatchOption func(*BatchProcessor)

// WithBatchLogger sets a custom logger for batch processing.
func WithBatchLogger(logger *slog.Logger) BatchOption {
	return func(b *BatchProcessor) {
		b.logger = logger
	}
}

// WithConcurrency sets the maximum number of concurrent fetches.
// Non-positive values keep DefaultBatchConcurrency.
func WithConcurrency(n int) BatchOption {
	return func(b *BatchProcessor) {
		if n > 0 {
			b.concurrency = n
		}
	}
}

// NewBatchProcessor creates a BatchProcessor around f.
func NewBatchProcessor(f PageFetcher, opts ...BatchOption) *BatchProcessor {
	bp := &BatchProcessor{
		fetcher:     f,
		concurrency: DefaultBatchConcurrency,
	}
	for _, opt := range opts {
		opt(bp)
	}
	if bp.logger == nil {
		bp.logger = slog.Default()
	}
	return bp
}

// ProcessBatch fetches every URL and returns one result per URL in input
// order. A failed URL does not stop the others; its error is kept in the
// result. The returned error is non-nil only when ctx ended.
func (bp *BatchProcessor) ProcessBatch(ctx context.Context, urls []string) ([]BatchResult, error) {
	bp.logger.Debug("starting batch", "urls", len(urls), "concurrency", bp.concurrency)
	start := time.Now()

	results := make([]BatchResult, len(urls))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(bp.concurrency)

	for i, u := range urls {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				results[i] = BatchResult{URL: u, Err: err}
				return err
			}
			page, err := bp.fetcher.FetchAndClean(ctx, u)
			results[i] = BatchResult{URL: u, Page: page, Err: err}
			if err != nil {
				bp.logger.Warn("page failed", "url", u, "error", err)
			}
			return nil
		})
	}

	err := g.Wait()
	bp.logger.Debug("batch complete", "urls", len(urls), "elapsed", time.Since(start))
	return results, err
}

// Pages returns the successful pages of results, in order.
func Pages(results []BatchResult) []*model.PageRecord {
	pages := make([]*model.PageRecord, 0, len(results))
	for _, r := range results {
		if r.Err == nil && r.Page != nil {
			pages = append(pages, r.Page)
		}
	}
	return pages
}
