package crawler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"reflect"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/nao1215/mailscan/internal/model"
)

// discardLogger returns a logger that drops every record.
func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeFetcher serves pages from memory and records every fetch.
type fakeFetcher struct {
	mu     sync.Mutex
	pages  map[string]string
	errs   map[string]error
	calls  map[string]int
	handle func(ctx context.Context, url string) (string, error)
}

func newFakeFetcher(pages map[string]string) *fakeFetcher {
	return &fakeFetcher{
		pages: pages,
		errs:  make(map[string]error),
		calls: make(map[string]int),
	}
}

func (f *fakeFetcher) Fetch(ctx context.Context, url string) (string, error) {
	f.mu.Lock()
	f.calls[url]++
	body, ok := f.pages[url]
	err := f.errs[url]
	handle := f.handle
	f.mu.Unlock()

	if handle != nil {
		return handle(ctx, url)
	}
	if err != nil {
		return "", err
	}
	if !ok {
		return "", errors.New("404 not found")
	}
	return body, nil
}

func (f *fakeFetcher) count(url string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[url]
}

func (f *fakeFetcher) snapshot() map[string]int {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]int, len(f.calls))
	for k, v := range f.calls {
		out[k] = v
	}
	return out
}

// fakeValidator reports valid domains from a fixed set and counts calls.
type fakeValidator struct {
	mu    sync.Mutex
	valid map[string]bool
	calls map[string]int
}

func newFakeValidator(validEmails ...string) *fakeValidator {
	v := &fakeValidator{
		valid: make(map[string]bool),
		calls: make(map[string]int),
	}
	for _, e := range validEmails {
		v.valid[e] = true
	}
	return v
}

func (v *fakeValidator) Validate(_ context.Context, email string) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.calls[email]++
	return v.valid[email]
}

func (v *fakeValidator) total() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	n := 0
	for _, c := range v.calls {
		n += c
	}
	return n
}

func (v *fakeValidator) count(email string) int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.calls[email]
}

func crawlWithTimeout(t *testing.T, e *Engine, seeds []string) *model.CrawlReport {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	report, err := e.Crawl(ctx, seeds)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return report
}

// TestEngineCrawl tests end-to-end crawl scenarios against in-memory pages.
func TestEngineCrawl(t *testing.T) {
	t.Parallel()

	t.Run("follows links and validates emails", func(t *testing.T) {
		t.Parallel()

		fetcher := newFakeFetcher(map[string]string{
			"http://example.com/a": `<a href="/b">b</a> x@example.com`,
			"http://example.com/b": `y@example.com`,
		})
		v := newFakeValidator("x@example.com", "y@example.com")

		e := NewEngine(fetcher, v,
			WithMaxDepth(1),
			WithConcurrency(2),
			WithLogger(discardLogger()),
		)
		report := crawlWithTimeout(t, e, []string{"example.com/a"})

		want := []model.EmailResult{
			{Email: "x@example.com", DNSValidated: true},
			{Email: "y@example.com", DNSValidated: true},
		}
		if !reflect.DeepEqual(report.Emails, want) {
			t.Errorf("Emails = %v, want %v", report.Emails, want)
		}
		for _, u := range []string{"http://example.com/a", "http://example.com/b"} {
			if got := fetcher.count(u); got != 1 {
				t.Errorf("expected %s fetched once, got %d", u, got)
			}
		}
		if report.Stats.PagesFetched != 2 {
			t.Errorf("expected 2 pages fetched, got %d", report.Stats.PagesFetched)
		}
		if report.Interrupted {
			t.Error("expected report not to be interrupted")
		}
		if !reflect.DeepEqual(report.Seeds, []string{"http://example.com/a"}) {
			t.Errorf("unexpected seeds: %v", report.Seeds)
		}
	})

	t.Run("depth zero fetches only the seeds", func(t *testing.T) {
		t.Parallel()

		fetcher := newFakeFetcher(map[string]string{
			"http://example.com/":       `<a href="/deeper">d</a> top@example.com`,
			"http://example.com/deeper": `deep@example.com`,
		})

		e := NewEngine(fetcher, nil,
			WithMaxDepth(0),
			WithLogger(discardLogger()),
		)
		report := crawlWithTimeout(t, e, []string{"http://example.com"})

		if fetcher.count("http://example.com/deeper") != 0 {
			t.Error("expected linked page not to be fetched at depth 0")
		}
		if len(report.Emails) != 1 || report.Emails[0].Email != "top@example.com" {
			t.Errorf("unexpected emails: %v", report.Emails)
		}
	})

	t.Run("depth limit is respected along a chain", func(t *testing.T) {
		t.Parallel()

		fetcher := newFakeFetcher(map[string]string{
			"http://chain.test/0": `<a href="/1">next</a>`,
			"http://chain.test/1": `<a href="/2">next</a>`,
			"http://chain.test/2": `<a href="/3">next</a>`,
			"http://chain.test/3": `too-deep@chain.test`,
		})

		e := NewEngine(fetcher, nil, WithMaxDepth(2), WithLogger(discardLogger()))
		report := crawlWithTimeout(t, e, []string{"http://chain.test/0"})

		if fetcher.count("http://chain.test/2") != 1 {
			t.Error("expected page at depth 2 to be fetched")
		}
		if fetcher.count("http://chain.test/3") != 0 {
			t.Error("expected page at depth 3 not to be fetched")
		}
		if len(report.Emails) != 0 {
			t.Errorf("expected no emails, got %v", report.Emails)
		}
	})

	t.Run("allow-list blocks other hosts", func(t *testing.T) {
		t.Parallel()

		fetcher := newFakeFetcher(map[string]string{
			"http://example.com/": `<a href="http://other.com/x">x</a> a@example.com`,
			"http://other.com/x":  `leak@other.com`,
		})

		e := NewEngine(fetcher, nil,
			WithAllowedDomains([]string{"example.com"}),
			WithLogger(discardLogger()),
		)
		report := crawlWithTimeout(t, e, []string{"http://example.com/"})

		if fetcher.count("http://other.com/x") != 0 {
			t.Error("expected other.com never to be fetched")
		}
		if report.Stats.PagesFiltered != 1 {
			t.Errorf("expected 1 filtered page, got %d", report.Stats.PagesFiltered)
		}
		for _, r := range report.Emails {
			if r.Email == "leak@other.com" {
				t.Error("found email from a filtered host")
			}
		}
	})

	t.Run("failing seed does not affect the others", func(t *testing.T) {
		t.Parallel()

		fetcher := newFakeFetcher(map[string]string{
			"http://one.test/":   `one@one.test`,
			"http://three.test/": `three@three.test`,
		})
		fetcher.errs["http://two.test/"] = context.DeadlineExceeded

		e := NewEngine(fetcher, nil, WithLogger(discardLogger()))
		report := crawlWithTimeout(t, e, []string{
			"http://one.test/",
			"http://two.test/",
			"http://three.test/",
		})

		want := []model.EmailResult{
			{Email: "one@one.test", DNSValidated: true},
			{Email: "three@three.test", DNSValidated: true},
		}
		if !reflect.DeepEqual(report.Emails, want) {
			t.Errorf("Emails = %v, want %v", report.Emails, want)
		}
		if report.Stats.PagesFailed != 1 {
			t.Errorf("expected 1 failed page, got %d", report.Stats.PagesFailed)
		}
	})

	t.Run("blocking fetch that hits its deadline fails alone", func(t *testing.T) {
		t.Parallel()

		pages := map[string]string{
			"http://one.test/":   `one@one.test`,
			"http://three.test/": `three@three.test`,
		}
		fetcher := newFakeFetcher(pages)
		fetcher.handle = func(ctx context.Context, url string) (string, error) {
			if url != "http://two.test/" {
				return pages[url], nil
			}
			ctx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
			defer cancel()
			<-ctx.Done()
			return "", ctx.Err()
		}

		e := NewEngine(fetcher, nil, WithConcurrency(3), WithLogger(discardLogger()))
		report := crawlWithTimeout(t, e, []string{
			"http://one.test/",
			"http://two.test/",
			"http://three.test/",
		})

		want := []model.EmailResult{
			{Email: "one@one.test", DNSValidated: true},
			{Email: "three@three.test", DNSValidated: true},
		}
		if !reflect.DeepEqual(report.Emails, want) {
			t.Errorf("Emails = %v, want %v", report.Emails, want)
		}
		if report.Stats.PagesFailed != 1 || report.Interrupted {
			t.Errorf("failed = %d, interrupted = %v; want 1, false",
				report.Stats.PagesFailed, report.Interrupted)
		}
	})

	t.Run("disabled validation marks every email valid without lookups", func(t *testing.T) {
		t.Parallel()

		fetcher := newFakeFetcher(map[string]string{
			"http://example.com/": `a@nowhere.invalid b@example.com`,
		})
		v := newFakeValidator()

		e := NewEngine(fetcher, v,
			WithDNSValidation(false),
			WithLogger(discardLogger()),
		)
		report := crawlWithTimeout(t, e, []string{"http://example.com/"})

		if v.total() != 0 {
			t.Errorf("expected no validator calls, got %d", v.total())
		}
		if len(report.Emails) != 2 {
			t.Fatalf("expected 2 emails, got %v", report.Emails)
		}
		for _, r := range report.Emails {
			if !r.DNSValidated {
				t.Errorf("expected %s to be marked valid", r.Email)
			}
		}
		if report.DNSValidation {
			t.Error("expected report to record DNS validation as disabled")
		}
	})

	t.Run("failed validation is recorded as false", func(t *testing.T) {
		t.Parallel()

		fetcher := newFakeFetcher(map[string]string{
			"http://example.com/": `good@example.com bad@nowhere.invalid`,
		})
		v := newFakeValidator("good@example.com")

		e := NewEngine(fetcher, v, WithLogger(discardLogger()))
		report := crawlWithTimeout(t, e, []string{"http://example.com/"})

		want := []model.EmailResult{
			{Email: "bad@nowhere.invalid", DNSValidated: false},
			{Email: "good@example.com", DNSValidated: true},
		}
		if !reflect.DeepEqual(report.Emails, want) {
			t.Errorf("Emails = %v, want %v", report.Emails, want)
		}
	})

	t.Run("no usable seeds yields an empty report", func(t *testing.T) {
		t.Parallel()

		fetcher := newFakeFetcher(nil)
		e := NewEngine(fetcher, nil, WithLogger(discardLogger()))
		report := crawlWithTimeout(t, e, []string{"", "   "})

		if report.Emails == nil || len(report.Emails) != 0 {
			t.Errorf("expected empty non-nil emails, got %v", report.Emails)
		}
		if len(fetcher.snapshot()) != 0 {
			t.Error("expected no fetches")
		}
	})

	t.Run("non-HTML pages contribute nothing", func(t *testing.T) {
		t.Parallel()

		fetcher := newFakeFetcher(map[string]string{
			"http://example.com/file.pdf": "",
		})
		e := NewEngine(fetcher, nil, WithLogger(discardLogger()))
		report := crawlWithTimeout(t, e, []string{"http://example.com/file.pdf"})

		if len(report.Emails) != 0 {
			t.Errorf("expected no emails, got %v", report.Emails)
		}
		if report.Stats.PagesFetched != 1 {
			t.Errorf("expected 1 fetched page, got %d", report.Stats.PagesFetched)
		}
	})

	t.Run("duplicate seeds are fetched once", func(t *testing.T) {
		t.Parallel()

		fetcher := newFakeFetcher(map[string]string{
			"http://example.com/": `x@example.com`,
		})
		e := NewEngine(fetcher, nil, WithLogger(discardLogger()))
		crawlWithTimeout(t, e, []string{
			"example.com",
			"http://example.com/",
			"HTTP://EXAMPLE.COM:80/#top",
		})

		if got := fetcher.count("http://example.com/"); got != 1 {
			t.Errorf("expected 1 fetch, got %d", got)
		}
	})
}

// TestEngineAtMostOnce tests that a densely linked site is fetched and
// validated at most once per URL and email, whatever the worker count.
func TestEngineAtMostOnce(t *testing.T) {
	t.Parallel()

	const pages = 20
	site := make(map[string]string, pages)
	for i := range pages {
		var b strings.Builder
		for j := range pages {
			b.WriteString(`<a href="/p` + strconv.Itoa(j) + `">p</a>`)
		}
		b.WriteString(" shared@example.com owner" + strconv.Itoa(i) + "@example.com")
		site["http://example.com/p"+strconv.Itoa(i)] = b.String()
	}

	for _, workers := range []int{1, 4, 16} {
		t.Run("workers="+strconv.Itoa(workers), func(t *testing.T) {
			t.Parallel()

			fetcher := newFakeFetcher(site)
			v := newFakeValidator("shared@example.com")

			e := NewEngine(fetcher, v,
				WithMaxDepth(3),
				WithConcurrency(workers),
				WithLogger(discardLogger()),
			)
			report := crawlWithTimeout(t, e, []string{"http://example.com/p0"})

			for u, n := range fetcher.snapshot() {
				if n != 1 {
					t.Errorf("%s fetched %d times", u, n)
				}
			}
			if got := v.count("shared@example.com"); got != 1 {
				t.Errorf("expected shared email validated once, got %d", got)
			}
			if len(report.Emails) != pages+1 {
				t.Errorf("expected %d emails, got %d", pages+1, len(report.Emails))
			}
			for i := 1; i < len(report.Emails); i++ {
				if report.Emails[i-1].Email >= report.Emails[i].Email {
					t.Errorf("emails not strictly sorted at %d: %q >= %q",
						i, report.Emails[i-1].Email, report.Emails[i].Email)
				}
			}
		})
	}
}

// TestEngineRecoversFromPanic tests that a panicking fetch affects only its
// own page.
func TestEngineRecoversFromPanic(t *testing.T) {
	t.Parallel()

	fetcher := newFakeFetcher(nil)
	fetcher.handle = func(_ context.Context, url string) (string, error) {
		if url == "http://boom.test/" {
			panic("fetcher exploded")
		}
		return "ok@fine.test", nil
	}

	e := NewEngine(fetcher, nil, WithConcurrency(1), WithLogger(discardLogger()))
	report := crawlWithTimeout(t, e, []string{"http://boom.test/", "http://fine.test/"})

	if len(report.Emails) != 1 || report.Emails[0].Email != "ok@fine.test" {
		t.Errorf("unexpected emails: %v", report.Emails)
	}
	if report.Stats.PagesFailed != 1 {
		t.Errorf("expected 1 failed page, got %d", report.Stats.PagesFailed)
	}
}

// panicValidator panics for one email and accepts every other.
type panicValidator struct{ bad string }

func (v panicValidator) Validate(_ context.Context, email string) bool {
	if email == v.bad {
		panic("validator exploded")
	}
	return true
}

// TestEngineRecoversFromValidatorPanic tests that a panic during email
// validation marks that email invalid and the crawl carries on.
func TestEngineRecoversFromValidatorPanic(t *testing.T) {
	t.Parallel()

	fetcher := newFakeFetcher(map[string]string{
		"http://example.com/":     `<a href="/next">next</a> bad@example.com good@example.com`,
		"http://example.com/next": `later@example.com`,
	})

	e := NewEngine(fetcher, panicValidator{bad: "bad@example.com"}, WithLogger(discardLogger()))
	report := crawlWithTimeout(t, e, []string{"http://example.com/"})

	want := []model.EmailResult{
		{Email: "bad@example.com", DNSValidated: false},
		{Email: "good@example.com", DNSValidated: true},
		{Email: "later@example.com", DNSValidated: true},
	}
	if !reflect.DeepEqual(report.Emails, want) {
		t.Errorf("Emails = %v, want %v", report.Emails, want)
	}
}

// TestEngineCancellation tests that cancelling the context stops the crawl
// and still returns the partial result.
func TestEngineCancellation(t *testing.T) {
	t.Parallel()

	started := make(chan struct{})
	var once sync.Once

	fetcher := newFakeFetcher(nil)
	fetcher.handle = func(ctx context.Context, url string) (string, error) {
		if url == "http://fast.test/" {
			return "early@fast.test", nil
		}
		once.Do(func() { close(started) })
		<-ctx.Done()
		return "", ctx.Err()
	}

	e := NewEngine(fetcher, nil, WithConcurrency(2), WithLogger(discardLogger()))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	type result struct {
		report *model.CrawlReport
		err    error
	}
	done := make(chan result, 1)
	go func() {
		report, err := e.Crawl(ctx, []string{"http://fast.test/", "http://slow.test/"})
		done <- result{report: report, err: err}
	}()

	select {
	case <-started:
	case <-time.After(5 * time.Second):
		t.Fatal("slow fetch never started")
	}
	cancel()

	select {
	case res := <-done:
		if !errors.Is(res.err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", res.err)
		}
		if res.report == nil {
			t.Fatal("expected a partial report")
		}
		if !res.report.Interrupted {
			t.Error("expected report to be marked interrupted")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Crawl did not return after cancellation")
	}
}

// TestNewEngine tests engine construction and options.
func TestNewEngine(t *testing.T) {
	t.Parallel()

	t.Run("defaults", func(t *testing.T) {
		t.Parallel()

		e := NewEngine(newFakeFetcher(nil), newFakeValidator())
		if e.maxDepth != DefaultMaxDepth {
			t.Errorf("expected maxDepth %d, got %d", DefaultMaxDepth, e.maxDepth)
		}
		if e.concurrency != DefaultConcurrency {
			t.Errorf("expected concurrency %d, got %d", DefaultConcurrency, e.concurrency)
		}
		if !e.dnsValidation {
			t.Error("expected DNS validation enabled by default")
		}
		if e.filter.Enabled() {
			t.Error("expected no allow-list by default")
		}
		if e.logger == nil {
			t.Error("expected default logger")
		}
	})

	t.Run("nil validator disables validation", func(t *testing.T) {
		t.Parallel()

		e := NewEngine(newFakeFetcher(nil), nil, WithDNSValidation(true))
		if e.dnsValidation {
			t.Error("expected DNS validation disabled without a validator")
		}
	})

	t.Run("invalid values are clamped or ignored", func(t *testing.T) {
		t.Parallel()

		e := NewEngine(newFakeFetcher(nil), nil,
			WithMaxDepth(-3),
			WithConcurrency(0),
		)
		if e.maxDepth != 0 {
			t.Errorf("expected maxDepth 0, got %d", e.maxDepth)
		}
		if e.concurrency != DefaultConcurrency {
			t.Errorf("expected concurrency %d, got %d", DefaultConcurrency, e.concurrency)
		}
	})
}

// TestAggregate tests conversion of the email map into sorted results.
func TestAggregate(t *testing.T) {
	t.Parallel()

	got := Aggregate(map[string]bool{
		"b@example.com": false,
		"a@example.com": true,
		"":              true,
	})
	want := []model.EmailResult{
		{Email: "a@example.com", DNSValidated: true},
		{Email: "b@example.com", DNSValidated: false},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Aggregate() = %v, want %v", got, want)
	}

	if empty := Aggregate(nil); empty == nil || len(empty) != 0 {
		t.Errorf("expected empty non-nil slice, got %v", empty)
	}
}
