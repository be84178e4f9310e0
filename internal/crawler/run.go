package crawler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/nao1215/mailscan/internal/model"
	"github.com/nao1215/mailscan/internal/transport"
	"github.com/nao1215/mailscan/internal/validator"
)

// Params holds everything needed for one crawl.
type Params struct {
	// Seeds are the start URLs. They are normalized before use.
	Seeds []string

	// MaxDepth is the number of link hops followed from a seed.
	MaxDepth int

	// Concurrency is the number of crawl workers.
	Concurrency int

	// RequestTimeout is the deadline for a single fetch.
	RequestTimeout time.Duration

	// DNSValidate enables DNS validation of email domains.
	DNSValidate bool

	// DNSWorkers bounds the number of concurrent DNS lookups.
	// Zero uses validator.DefaultWorkers().
	DNSWorkers int

	// DNSTimeout bounds a single DNS lookup. Zero uses validator.DefaultTimeout.
	DNSTimeout time.Duration

	// Proxy is an optional proxy URL for all HTTP requests.
	Proxy string

	// AllowedDomains optionally restricts fetching to these hostnames.
	AllowedDomains []string

	// UserAgent overrides the default User-Agent header.
	UserAgent string

	// MaxBodySize limits the bytes read per response.
	MaxBodySize int64
}

// Run builds the HTTP client, fetcher and validator described by p and
// runs one crawl. Failing to build the HTTP client aborts the run; every
// other failure is handled per page by the engine.
func Run(ctx context.Context, p Params, logger *slog.Logger) (*model.CrawlReport, error) {
	if logger == nil {
		logger = slog.Default()
	}

	client, err := transport.NewHTTPClient(transport.ClientOptions{
		Proxy:        p.Proxy,
		Timeout:      p.RequestTimeout,
		MaxIdleConns: p.Concurrency * 2,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP client: %w", err)
	}

	fetcher := transport.NewHTTPFetcher(client,
		transport.WithUserAgent(p.UserAgent),
		transport.WithMaxBodySize(p.MaxBodySize),
		transport.WithFetcherLogger(logger.With("component", "fetcher")),
	)

	var v EmailValidator
	if p.DNSValidate {
		v = validator.New(
			validator.WithWorkers(p.DNSWorkers),
			validator.WithTimeout(p.DNSTimeout),
			validator.WithLogger(logger.With("component", "validator")),
		)
	}

	engine := NewEngine(fetcher, v,
		WithMaxDepth(p.MaxDepth),
		WithConcurrency(p.Concurrency),
		WithDNSValidation(p.DNSValidate),
		WithAllowedDomains(p.AllowedDomains),
		WithLogger(logger.With("component", "crawler")),
	)

	return engine.Crawl(ctx, p.Seeds)
}
