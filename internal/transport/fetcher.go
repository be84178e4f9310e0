package transport

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strings"

	"golang.org/x/net/html/charset"
)

// Default request settings.
const (
	// DefaultUserAgent identifies MailScan in HTTP requests.
	DefaultUserAgent = "MailScan/1.0 (+https://github.com/nao1215/mailscan)"

	// DefaultMaxBodySize limits how much of a response body is read.
	DefaultMaxBodySize = 5 * 1024 * 1024 // 5MB

	acceptHeader         = "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8"
	acceptLanguageHeader = "en-US,en;q=0.5"
)

// HTTPFetcher fetches HTML pages with a shared *http.Client.
// It is safe for concurrent use.
type HTTPFetcher struct {
	client      *http.Client
	userAgent   string
	maxBodySize int64
	logger      *slog.Logger
}

// FetcherOption configures an HTTPFetcher.
type FetcherOption func(*HTTPFetcher)

// WithUserAgent sets the User-Agent header. Empty values are ignored.
func WithUserAgent(ua string) FetcherOption {
	return func(f *HTTPFetcher) {
		if ua != "" {
			f.userAgent = ua
		}
	}
}

// WithMaxBodySize sets the maximum number of body bytes read.
// Non-positive values are ignored.
func WithMaxBodySize(size int64) FetcherOption {
	return func(f *HTTPFetcher) {
		if size > 0 {
			f.maxBodySize = size
		}
	}
}

// WithFetcherLogger sets the logger.
func WithFetcherLogger(logger *slog.Logger) FetcherOption {
	return func(f *HTTPFetcher) {
		f.logger = logger
	}
}

// NewHTTPFetcher creates a fetcher that issues requests with client.
func NewHTTPFetcher(client *http.Client, opts ...FetcherOption) *HTTPFetcher {
	f := &HTTPFetcher{
		client:      client,
		userAgent:   DefaultUserAgent,
		maxBodySize: DefaultMaxBodySize,
	}

	for _, opt := range opts {
		opt(f)
	}

	if f.logger == nil {
		f.logger = slog.Default()
	}

	return f
}

// Fetch issues one GET request for pageURL and returns the body.
//
// Network errors, timeouts and non-2xx responses are returned as errors
// (the latter as *StatusError). A response whose content type is not
// text/html or application/xhtml+xml yields an empty string and a nil
// error.
func (f *HTTPFetcher) Fetch(ctx context.Context, pageURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", acceptHeader)
	req.Header.Set("Accept-Language", acceptLanguageHeader)

	resp, err := f.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &StatusError{URL: pageURL, StatusCode: resp.StatusCode}
	}

	contentType := resp.Header.Get("Content-Type")
	if !IsHTML(contentType) {
		f.logger.Debug("skipping non-HTML content", "url", pageURL, "contentType", contentType)
		return "", nil
	}

	body, err := io.ReadAll(decodeBody(io.LimitReader(resp.Body, f.maxBodySize), contentType))
	if err != nil {
		return "", fmt.Errorf("failed to read body: %w", err)
	}

	return strings.ToValidUTF8(string(body), ""), nil
}

// decodeBody converts r to UTF-8 using the charset named in contentType or
// in a <meta> tag near the start of the document. Unknown charsets are read
// as-is.
func decodeBody(r io.Reader, contentType string) io.Reader {
	decoded, err := charset.NewReader(r, contentType)
	if err != nil {
		return r
	}
	return decoded
}

// IsHTML reports whether contentType belongs to the HTML family.
func IsHTML(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = strings.ToLower(strings.TrimSpace(strings.Split(contentType, ";")[0]))
	}
	return mediaType == "text/html" || mediaType == "application/xhtml+xml"
}
