package validator

import (
	"context"
	"log/slog"
	"net"
	"runtime"
	"strings"
	"time"

	"golang.org/x/net/idna"
	"golang.org/x/sync/semaphore"
)

// DefaultTimeout bounds a single DNS lookup.
const DefaultTimeout = 5 * time.Second

// DefaultWorkers returns the default size of the lookup pool:
// min(32, NumCPU+4).
func DefaultWorkers() int {
	return min(32, runtime.NumCPU()+4)
}

// Resolver performs host lookups. *net.Resolver satisfies this interface.
type Resolver interface {
	LookupHost(ctx context.Context, host string) ([]string, error)
}

// DNSValidator validates email domains with DNS host lookups.
// It is safe for concurrent use.
type DNSValidator struct {
	// resolver performs the lookups. Defaults to net.DefaultResolver.
	resolver Resolver

	// pool bounds the number of concurrent lookups.
	pool *semaphore.Weighted

	// workers is the size of pool.
	workers int

	// timeout bounds a single lookup. Time spent waiting for a pool slot
	// is not counted; only the caller's context bounds that wait.
	timeout time.Duration

	logger *slog.Logger
}

// Option configures a DNSValidator.
type Option func(*DNSValidator)

// WithResolver sets the resolver used for lookups.
func WithResolver(r Resolver) Option {
	return func(v *DNSValidator) {
		v.resolver = r
	}
}

// WithWorkers sets the maximum number of concurrent lookups.
// Non-positive values are ignored.
func WithWorkers(n int) Option {
	return func(v *DNSValidator) {
		if n > 0 {
			v.workers = n
		}
	}
}

// WithTimeout sets the timeout for a single lookup.
// Non-positive values are ignored.
func WithTimeout(d time.Duration) Option {
	return func(v *DNSValidator) {
		if d > 0 {
			v.timeout = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(v *DNSValidator) {
		v.logger = logger
	}
}

// New creates a DNSValidator.
func New(opts ...Option) *DNSValidator {
	v := &DNSValidator{
		resolver: net.DefaultResolver,
		workers:  DefaultWorkers(),
		timeout:  DefaultTimeout,
	}

	for _, opt := range opts {
		opt(v)
	}

	if v.logger == nil {
		v.logger = slog.Default()
	}
	v.pool = semaphore.NewWeighted(int64(v.workers))

	return v
}

// Workers returns the size of the lookup pool.
func (v *DNSValidator) Workers() int {
	return v.workers
}

// Validate reports whether the domain of email resolves.
//
// Malformed addresses return false without a lookup. Lookup failures,
// timeouts and cancellation all return false; Validate never panics or
// returns an error.
func (v *DNSValidator) Validate(ctx context.Context, email string) bool {
	domain, ok := ParseDomain(email)
	if !ok {
		v.logger.Debug("skipping DNS validation for malformed email", "email", email)
		return false
	}

	if err := v.pool.Acquire(ctx, 1); err != nil {
		v.logger.Debug("DNS validation not started", "email", email, "error", err)
		return false
	}
	defer v.pool.Release(1)

	lookupCtx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()

	addrs, err := v.resolver.LookupHost(lookupCtx, domain)
	if err != nil || len(addrs) == 0 {
		v.logger.Debug("DNS resolution failed", "domain", domain, "error", err)
		return false
	}

	v.logger.Debug("DNS validation succeeded", "email", email, "domain", domain)
	return true
}

// ParseDomain extracts the domain of email: the text after the last "@",
// trimmed, with surrounding brackets removed, lowercased and converted to
// its ASCII form. It returns false if email has no "@", if the local part
// or the domain is empty, or if the domain contains no dot.
func ParseDomain(email string) (string, bool) {
	at := strings.LastIndex(email, "@")
	if at < 0 {
		return "", false
	}

	local := strings.TrimSpace(email[:at])
	domain := strings.Trim(strings.TrimSpace(email[at+1:]), "[]")
	if local == "" || domain == "" {
		return "", false
	}
	if !strings.Contains(domain, ".") {
		return "", false
	}

	domain = strings.ToLower(domain)
	if ascii, err := idna.Lookup.ToASCII(domain); err == nil {
		domain = ascii
	}

	return domain, true
}
