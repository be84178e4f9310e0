// Package crawler provides the email-harvesting crawl engine.
//
// # Architecture
//
// The Engine coordinates a fixed pool of workers that drain a shared
// Frontier of (URL, depth) items:
//
//	seeds ──> Frontier ──> worker ──> claim ──> filter ──> fetch
//	             ^                                          │
//	             └──── links (depth+1) <── extract <────────┘
//	                                          │
//	                                          └──> emails ──> validate
//
// Once every queued item has been marked done the frontier is quiescent,
// the workers are stopped and the collected emails are aggregated into a
// sorted result.
//
// # Components
//
//   - Frontier: unbounded FIFO queue with completion tracking
//   - VisitedRegistry: at-most-once claim of each normalized URL
//   - DomainFilter: optional hostname allow-list
//   - ExtractEmails / ExtractLinks: pure extraction from HTML
//   - NormalizeURL: canonical URL form used for deduplication
//   - Aggregate: sorted, unique results
//
// # Failure isolation
//
// Fetch errors, non-HTML responses, DNS failures and even panics are
// contained to the item being processed. A crawl whose pages all fail
// still completes with an empty result.
//
// # Usage
//
//	engine := crawler.NewEngine(fetcher, validator, crawler.WithMaxDepth(1))
//	report, err := engine.Crawl(ctx, []string{"example.com"})
package crawler
