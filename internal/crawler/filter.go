package crawler

import (
	"net/url"
	"strings"
)

// DomainFilter restricts crawling to an allow-list of hostnames.
// A filter with an empty allow-list permits every URL.
// It is immutable after construction and safe for concurrent use.
type DomainFilter struct {
	allowed map[string]struct{}
}

// NewDomainFilter creates a filter for the given hostnames.
// Entries are trimmed and lowercased; empty entries are ignored.
func NewDomainFilter(domains []string) *DomainFilter {
	allowed := make(map[string]struct{}, len(domains))
	for _, d := range domains {
		d = strings.ToLower(strings.TrimSpace(d))
		if d == "" {
			continue
		}
		allowed[d] = struct{}{}
	}
	return &DomainFilter{allowed: allowed}
}

// Enabled reports whether an allow-list is configured.
func (f *DomainFilter) Enabled() bool {
	return f != nil && len(f.allowed) > 0
}

// Allow reports whether rawURL may be fetched.
//
// A URL without a resolvable hostname is permitted: the fetch fails fast
// on it anyway, and rejecting it here would hide that failure from the log.
func (f *DomainFilter) Allow(rawURL string) bool {
	if !f.Enabled() {
		return true
	}

	host := Hostname(rawURL)
	if host == "" {
		return true
	}
	_, ok := f.allowed[host]
	return ok
}

// Hostname returns the lowercase, port-stripped host of rawURL, or an empty
// string if rawURL cannot be parsed or has no host.
func Hostname(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}
