// Package crawler is the frontier and scheduler of a crawl.
//
// A Spider seeds its frontier with the start URL, and optionally with the
// URLs of the site's sitemap, then works through it breadth first in
// batches of at most MaxConcurrentRequests. Each batch is formed from
// entries the politeness engine lets through, fetched and extracted
// concurrently, and merged back into the crawl state only after every task
// of the batch has finished. All bookkeeping (visited and enqueued sets,
// the error and diagnostic ledgers, the page list) therefore happens on one
// goroutine and needs no locks.
//
// The crawl ends when the frontier is empty, when MaxPages pages have been
// collected, or when the crawl budget has elapsed before a new batch is
// formed. In-flight requests are never cancelled by the budget.
//
// # Usage
//
//	spider, err := crawler.NewSpider(cfg)
//	if err != nil {
//		return err
//	}
//	run := spider.Crawl(ctx)
package crawler
