package crawler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nao1215/mailscan/internal/model"
	"golang.org/x/sync/errgroup"
)

// Default engine settings.
const (
	// DefaultMaxDepth follows links two hops away from each seed.
	DefaultMaxDepth = 2

	// DefaultConcurrency is the number of crawl workers.
	DefaultConcurrency = 10
)

// Fetcher retrieves the HTML of a page.
//
// Implementations must return an error for network failures, timeouts and
// non-2xx responses, and an empty string with a nil error for responses
// whose content type is not HTML.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// EmailValidator checks whether the domain of an email address resolves.
// Implementations must not block the caller beyond their own timeout and
// must report every failure as false rather than as an error.
type EmailValidator interface {
	Validate(ctx context.Context, email string) bool
}

// Engine crawls pages breadth-first from a set of seeds and collects the
// email addresses found on them.
//
// A fixed number of workers drain a shared Frontier. Each URL is fetched at
// most once, and each email address is validated at most once: the first
// observation wins. The engine is reusable; every Crawl call has its own
// frontier, visited set and email set.
type Engine struct {
	// fetcher retrieves page bodies. It is shared by all workers.
	fetcher Fetcher

	// validator checks email domains. Nil disables validation.
	validator EmailValidator

	// maxDepth is the number of link hops followed from a seed.
	// 0 means only the seeds are fetched.
	maxDepth int

	// concurrency is the fixed number of workers.
	concurrency int

	// dnsValidation enables the validator. When false, every discovered
	// email is marked valid without a lookup.
	dnsValidation bool

	// filter is the optional hostname allow-list.
	filter *DomainFilter

	logger *slog.Logger
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithMaxDepth sets the maximum crawl depth. Negative values are treated as 0.
func WithMaxDepth(depth int) EngineOption {
	return func(e *Engine) {
		if depth < 0 {
			depth = 0
		}
		e.maxDepth = depth
	}
}

// WithConcurrency sets the number of workers. Non-positive values are ignored.
func WithConcurrency(n int) EngineOption {
	return func(e *Engine) {
		if n > 0 {
			e.concurrency = n
		}
	}
}

// WithDNSValidation enables or disables DNS validation of email domains.
func WithDNSValidation(enabled bool) EngineOption {
	return func(e *Engine) {
		e.dnsValidation = enabled
	}
}

// WithAllowedDomains restricts fetching to the given hostnames.
// An empty list removes the restriction.
func WithAllowedDomains(domains []string) EngineOption {
	return func(e *Engine) {
		e.filter = NewDomainFilter(domains)
	}
}

// WithLogger sets the logger used by the engine and its workers.
func WithLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) {
		e.logger = logger
	}
}

// NewEngine creates an Engine that fetches pages with fetcher and validates
// email domains with validator. A nil validator disables DNS validation.
func NewEngine(fetcher Fetcher, validator EmailValidator, opts ...EngineOption) *Engine {
	e := &Engine{
		fetcher:       fetcher,
		validator:     validator,
		maxDepth:      DefaultMaxDepth,
		concurrency:   DefaultConcurrency,
		dnsValidation: true,
		filter:        NewDomainFilter(nil),
	}

	for _, opt := range opts {
		opt(e)
	}

	if e.validator == nil {
		e.dnsValidation = false
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}

	return e
}

// Crawl fetches every page reachable from seeds within the depth limit and
// returns the discovered email addresses sorted by address.
//
// Per-page failures never abort the crawl. If no seed survives
// normalization, Crawl returns an empty report and a nil error. If ctx is
// cancelled before the frontier quiesces, Crawl stops the workers and
// returns the partial report together with the context error.
func (e *Engine) Crawl(ctx context.Context, seeds []string) (*model.CrawlReport, error) {
	normalized := normalizeSeeds(seeds)
	report := model.NewCrawlReport(normalized, e.maxDepth, e.dnsValidation)

	if len(normalized) == 0 {
		e.logger.Warn("no valid start URLs provided")
		report.FinishedAt = time.Now()
		return report, nil
	}

	run := newCrawlRun(e)
	for _, seed := range normalized {
		run.frontier.Put(Item{URL: seed, Depth: 0})
	}

	e.logger.Info("starting crawl",
		"seeds", len(normalized),
		"workers", e.concurrency,
		"maxDepth", e.maxDepth,
		"dnsValidation", e.dnsValidation,
		"allowList", e.filter.Enabled(),
	)

	var g errgroup.Group
	for i := range e.concurrency {
		g.Go(func() error {
			run.work(ctx, i)
			return nil
		})
	}

	waitErr := run.frontier.Wait(ctx)

	// The frontier is quiescent (or the crawl was cancelled): stop every
	// worker and wait for all of them before reading the email set.
	run.frontier.Close()
	_ = g.Wait() //nolint:errcheck // workers never return errors

	report.FinishedAt = time.Now()
	report.Stats = run.stats()
	report.Emails = Aggregate(run.emails.snapshot())

	if waitErr != nil {
		report.Interrupted = true
		e.logger.Warn("crawl interrupted",
			"emails", len(report.Emails),
			"reason", waitErr,
		)
		return report, fmt.Errorf("crawl interrupted: %w", waitErr)
	}

	e.logger.Info("crawl finished",
		"emails", len(report.Emails),
		"pagesFetched", report.Stats.PagesFetched,
		"pagesFailed", report.Stats.PagesFailed,
		"elapsed", report.Duration(),
	)

	return report, nil
}

// normalizeSeeds normalizes seeds, dropping empty entries and duplicates
// while keeping the original order.
func normalizeSeeds(seeds []string) []string {
	out := make([]string, 0, len(seeds))
	seen := make(map[string]struct{}, len(seeds))
	for _, s := range seeds {
		n := NormalizeURL(s)
		if n == "" {
			continue
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}

// crawlRun holds the shared mutable state of a single Crawl call.
type crawlRun struct {
	engine   *Engine
	frontier *Frontier
	visited  *VisitedRegistry
	emails   *emailSet

	fetched    atomic.Int64
	failed     atomic.Int64
	filtered   atomic.Int64
	duplicates atomic.Int64
	enqueued   atomic.Int64
}

func newCrawlRun(e *Engine) *crawlRun {
	return &crawlRun{
		engine:   e,
		frontier: NewFrontier(),
		visited:  NewVisitedRegistry(),
		emails:   newEmailSet(),
	}
}

// work is the worker loop. It returns when the frontier is closed or ctx
// is done.
func (r *crawlRun) work(ctx context.Context, id int) {
	logger := r.engine.logger.With("worker", id)

	for {
		item, err := r.frontier.Take(ctx)
		if err != nil {
			if !errors.Is(err, ErrFrontierClosed) {
				logger.Debug("worker stopping", "reason", err)
			}
			return
		}
		r.process(ctx, logger, item)
	}
}

// process handles one frontier item. Done is deferred first so that it runs
// last, after panic recovery, whatever path the item takes.
func (r *crawlRun) process(ctx context.Context, logger *slog.Logger, item Item) {
	defer r.frontier.Done()
	defer func() {
		if rec := recover(); rec != nil {
			r.failed.Add(1)
			logger.Error("panic while processing url",
				"url", item.URL,
				"depth", item.Depth,
				"panic", rec,
				"stack", string(debug.Stack()),
			)
		}
	}()

	e := r.engine

	if !r.visited.Claim(item.URL) {
		r.duplicates.Add(1)
		return
	}

	if !e.filter.Allow(item.URL) {
		r.filtered.Add(1)
		logger.Debug("skipping url (domain not allowed)", "url", item.URL)
		return
	}

	logger.Debug("fetching", "url", item.URL, "depth", item.Depth)
	body, err := e.fetcher.Fetch(ctx, item.URL)
	if err != nil {
		r.failed.Add(1)
		if ctx.Err() == nil {
			logger.Warn("failed to fetch", "url", item.URL, "error", err)
		}
		return
	}
	r.fetched.Add(1)

	if body == "" {
		return
	}

	r.collectEmails(ctx, logger, ExtractEmails(body))

	if item.Depth >= e.maxDepth {
		return
	}
	for _, link := range ExtractLinks(item.URL, body) {
		link = NormalizeURL(link)
		if link == "" || r.visited.Seen(link) {
			continue
		}
		if r.frontier.Put(Item{URL: link, Depth: item.Depth + 1}) {
			r.enqueued.Add(1)
		}
	}
}

// collectEmails records every email not seen before and validates the new
// ones concurrently. It returns once all of them have a final flag.
func (r *crawlRun) collectEmails(ctx context.Context, logger *slog.Logger, emails []string) {
	e := r.engine

	var g errgroup.Group
	for _, email := range emails {
		if !r.emails.reserve(email) {
			continue
		}

		if !e.dnsValidation {
			r.emails.set(email, true)
			logger.Debug("discovered email", "email", email, "dnsLookup", true)
			continue
		}

		g.Go(func() error {
			// A panicking validator leaves the email reserved as invalid.
			defer func() {
				if rec := recover(); rec != nil {
					logger.Error("panic while validating email",
						"email", email,
						"panic", rec,
						"stack", string(debug.Stack()),
					)
				}
			}()

			valid := e.validator.Validate(ctx, email)
			r.emails.set(email, valid)
			logger.Debug("discovered email", "email", email, "dnsLookup", valid)
			return nil
		})
	}
	_ = g.Wait() //nolint:errcheck // validations never return errors
}

func (r *crawlRun) stats() model.CrawlStats {
	return model.CrawlStats{
		PagesFetched:      int(r.fetched.Load()),
		PagesFailed:       int(r.failed.Load()),
		PagesFiltered:     int(r.filtered.Load()),
		DuplicatesSkipped: int(r.duplicates.Load()),
		LinksEnqueued:     int(r.enqueued.Load()),
	}
}

// emailSet maps each discovered email to its validation flag.
// An email is reserved before validation so that concurrent sightings of
// the same address trigger exactly one lookup.
type emailSet struct {
	mu     sync.Mutex
	emails map[string]bool
}

func newEmailSet() *emailSet {
	return &emailSet{emails: make(map[string]bool)}
}

// reserve adds email with a false flag and returns true if it was not
// already present.
func (s *emailSet) reserve(email string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.emails[email]; ok {
		return false
	}
	s.emails[email] = false
	return true
}

func (s *emailSet) set(email string, valid bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.emails[email] = valid
}

func (s *emailSet) snapshot() map[string]bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]bool, len(s.emails))
	for k, v := range s.emails {
		out[k] = v
	}
	return out
}
