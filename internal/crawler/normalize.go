package crawler

import (
	"net/url"
	"regexp"
	"strings"
)

// schemePrefix matches an explicit "scheme://" at the start of a URL.
var schemePrefix = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9+.\-]*://`)

// NormalizeURL returns the canonical form of rawURL used for deduplication.
//
// The rules are:
//  1. Surrounding whitespace is trimmed
//  2. A missing scheme is assumed to be "http"
//  3. Scheme and host are lowercased
//  4. Default ports (80 for http, 443 for https) are removed
//  5. The fragment is removed
//  6. An empty path becomes "/"
//
// NormalizeURL is idempotent. Input that cannot be parsed is returned
// trimmed but otherwise unchanged, and an empty input yields "".
func NormalizeURL(rawURL string) string {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return ""
	}

	if !schemePrefix.MatchString(rawURL) {
		rawURL = "http://" + strings.TrimPrefix(rawURL, "//")
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}

	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	switch {
	case u.Scheme == "http" && strings.HasSuffix(u.Host, ":80"):
		u.Host = strings.TrimSuffix(u.Host, ":80")
	case u.Scheme == "https" && strings.HasSuffix(u.Host, ":443"):
		u.Host = strings.TrimSuffix(u.Host, ":443")
	}

	u.Fragment = ""
	u.RawFragment = ""
	if u.Path == "" && u.Opaque == "" {
		u.Path = "/"
	}

	return u.String()
}
