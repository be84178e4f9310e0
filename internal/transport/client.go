package transport

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/proxy"
	"golang.org/x/net/publicsuffix"
)

// maxRedirects is the number of redirects followed before giving up.
const maxRedirects = 10

// ClientOptions configures NewHTTPClient.
type ClientOptions struct {
	// Proxy is an optional proxy URL. Empty means a direct connection.
	Proxy string

	// Timeout is the total deadline for one request, including reading
	// the body. Zero means no timeout.
	Timeout time.Duration

	// MaxIdleConns caps the idle connection pool. Zero uses 100.
	MaxIdleConns int
}

// NewHTTPClient creates the HTTP client shared by all crawl workers.
// It returns ErrInvalidProxy if opts.Proxy is set but unusable.
//
// Design decisions:
//   - The cookie jar uses the public suffix list so that a site cannot set
//     cookies for a whole registry domain
//   - Redirects are limited to prevent loops while allowing normal redirects
//   - The returned client is never reconfigured after construction, so it
//     is safe to share between goroutines
func NewHTTPClient(opts ClientOptions) (*http.Client, error) {
	maxIdle := opts.MaxIdleConns
	if maxIdle <= 0 {
		maxIdle = 100
	}

	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:          maxIdle,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}

	if opts.Proxy != "" {
		if err := configureProxy(transport, opts.Proxy); err != nil {
			return nil, err
		}
	}

	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}

	return &http.Client{
		Transport: transport,
		Timeout:   opts.Timeout,
		Jar:       jar,
		CheckRedirect: func(_ *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return http.ErrUseLastResponse
			}
			return nil
		},
	}, nil
}

// configureProxy routes transport through the proxy at rawProxy.
func configureProxy(transport *http.Transport, rawProxy string) error {
	u, err := ParseProxyURL(rawProxy)
	if err != nil {
		return err
	}

	switch u.Scheme {
	case "http", "https":
		transport.Proxy = http.ProxyURL(u)
		return nil
	default:
		dialer, err := proxy.FromURL(u, proxy.Direct)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidProxy, err)
		}
		transport.Proxy = nil
		transport.DialContext = contextDialer(dialer)
		return nil
	}
}

// ParseProxyURL parses and checks a proxy URL.
func ParseProxyURL(rawProxy string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSpace(rawProxy))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidProxy, err)
	}

	switch strings.ToLower(u.Scheme) {
	case "http", "https", "socks5", "socks5h":
	default:
		return nil, ErrInvalidProxy
	}
	if u.Hostname() == "" {
		return nil, ErrInvalidProxy
	}
	u.Scheme = strings.ToLower(u.Scheme)

	return u, nil
}

// contextDialer adapts a proxy.Dialer to http.Transport.DialContext.
//
// SOCKS5 dialers from x/net implement proxy.ContextDialer. For any other
// dialer the dial runs in a goroutine so that cancellation is still
// honoured; the abandoned connection is closed when it completes.
func contextDialer(d proxy.Dialer) func(ctx context.Context, network, addr string) (net.Conn, error) {
	if cd, ok := d.(proxy.ContextDialer); ok {
		return cd.DialContext
	}

	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		type dialResult struct {
			conn net.Conn
			err  error
		}
		resultCh := make(chan dialResult, 1)

		go func() {
			conn, err := d.Dial(network, addr)
			resultCh <- dialResult{conn, err}
		}()

		select {
		case result := <-resultCh:
			return result.conn, result.err
		case <-ctx.Done():
			go func() {
				if result := <-resultCh; result.conn != nil {
					_ = result.conn.Close()
				}
			}()
			return nil, ctx.Err()
		}
	}
}
