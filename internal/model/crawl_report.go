package model

import "time"

// CrawlReport is the outcome of a single crawl invocation.
// Emails is the only part of the report the crawl engine guarantees to be
// ordered; everything else is informational.
type CrawlReport struct {
	// Seeds are the normalized seed URLs the crawl started from.
	Seeds []string `json:"seeds"`

	// MaxDepth is the link-hop bound used for the crawl.
	MaxDepth int `json:"max_depth"`

	// DNSValidation is true when email domains were checked via DNS.
	DNSValidation bool `json:"dns_validation"`

	// StartedAt is when the first seed was enqueued.
	StartedAt time.Time `json:"started_at"`

	// FinishedAt is when all workers stopped.
	FinishedAt time.Time `json:"finished_at"`

	// Stats holds page counters.
	Stats CrawlStats `json:"stats"`

	// Emails is sorted by email, unique.
	Emails []EmailResult `json:"emails"`

	// Interrupted is true when the crawl was cancelled before the frontier
	// quiesced. Emails then holds a partial result.
	Interrupted bool `json:"interrupted,omitempty"`
}

// CrawlStats contains page counters collected during a crawl.
type CrawlStats struct {
	// PagesFetched counts pages fetched successfully (including non-HTML).
	PagesFetched int `json:"pages_fetched"`

	// PagesFailed counts fetches that ended with a transport error.
	PagesFailed int `json:"pages_failed"`

	// PagesFiltered counts URLs rejected by the domain allow-list.
	PagesFiltered int `json:"pages_filtered"`

	// DuplicatesSkipped counts dequeued URLs that had already been claimed.
	DuplicatesSkipped int `json:"duplicates_skipped"`

	// LinksEnqueued counts links pushed onto the frontier (seeds excluded).
	LinksEnqueued int `json:"links_enqueued"`
}

// NewCrawlReport creates an empty report for the given seeds.
func NewCrawlReport(seeds []string, maxDepth int, dnsValidation bool) *CrawlReport {
	return &CrawlReport{
		Seeds:         seeds,
		MaxDepth:      maxDepth,
		DNSValidation: dnsValidation,
		StartedAt:     time.Now(),
		Emails:        make([]EmailResult, 0),
	}
}

// Duration returns how long the crawl took.
// It returns zero if the crawl has not finished.
func (r *CrawlReport) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// ValidatedCount returns the number of emails whose domain resolved.
func (r *CrawlReport) ValidatedCount() int {
	return CountValidated(r.Emails)
}
