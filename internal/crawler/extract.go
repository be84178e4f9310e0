package crawler

import (
	"net/url"
	"regexp"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// emailRegex matches candidate email addresses anywhere in a page,
// including attribute values such as mailto: links.
//
// Design decision: We use a permissive regex rather than strict RFC 5322
// parsing because:
//  1. Addresses appear in markup, scripts and attributes, not only in text
//  2. False positives are filtered later by DNS validation
//  3. Strict parsing would miss many real-world cases
var emailRegex = regexp.MustCompile(`[a-zA-Z0-9_.+\-]+@[a-zA-Z0-9\-]+\.[a-zA-Z0-9.\-]+`)

// emailTrimChars are stripped from both ends of each regex match.
const emailTrimChars = ".,;:()[]<>"

// ExtractEmails returns the unique, lowercased email addresses found in
// htmlContent, sorted ascending. It is a pure function.
func ExtractEmails(htmlContent string) []string {
	if htmlContent == "" {
		return []string{}
	}

	seen := make(map[string]struct{})
	for _, m := range emailRegex.FindAllString(htmlContent, -1) {
		email := strings.ToLower(strings.Trim(strings.TrimSpace(m), emailTrimChars))
		if !strings.Contains(email, "@") {
			continue
		}
		seen[email] = struct{}{}
	}

	return sortedKeys(seen)
}

// ExtractLinks returns the unique absolute http(s) URLs linked from anchor
// elements in htmlContent, resolved against baseURL, with fragments removed
// and sorted ascending. Unparsable documents yield an empty slice.
func ExtractLinks(baseURL, htmlContent string) []string {
	if htmlContent == "" {
		return []string{}
	}

	base, err := url.Parse(baseURL)
	if err != nil {
		return []string{}
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlContent))
	if err != nil {
		return []string{}
	}

	seen := make(map[string]struct{})
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		if link := resolveLink(base, href); link != "" {
			seen[link] = struct{}{}
		}
	})

	return sortedKeys(seen)
}

// resolveLink resolves href against base and keeps it only if the result
// is an http or https URL.
func resolveLink(base *url.URL, href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	lower := strings.ToLower(href)
	if strings.HasPrefix(lower, "mailto:") || strings.HasPrefix(lower, "javascript:") {
		return ""
	}

	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}

	resolved := base.ResolveReference(ref)
	if resolved.Scheme != "http" && resolved.Scheme != "https" {
		return ""
	}
	resolved.Fragment = ""
	resolved.RawFragment = ""
	return resolved.String()
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
