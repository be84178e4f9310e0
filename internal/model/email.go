package model

import (
	"sort"
	"strings"
)

// EmailResult is a single discovered email address.
//
// The JSON field name "dnsLookup" is kept for compatibility with result files
// produced by earlier versions of the tool.
type EmailResult struct {
	// Email is the normalized (lowercased) email address. Never empty.
	Email string `json:"email"`

	// DNSValidated reports whether the domain of the address resolved.
	// When DNS validation is disabled every result is marked true.
	DNSValidated bool `json:"dnsLookup"`
}

// Domain returns the part of the address after the last "@".
// It returns an empty string when the address has no "@".
func (e EmailResult) Domain() string {
	i := strings.LastIndex(e.Email, "@")
	if i < 0 {
		return ""
	}
	return e.Email[i+1:]
}

// SortEmailResults sorts results in place by email using ordinal string order.
func SortEmailResults(results []EmailResult) {
	sort.Slice(results, func(i, j int) bool {
		return results[i].Email < results[j].Email
	})
}

// CountValidated returns the number of results whose domain resolved.
func CountValidated(results []EmailResult) int {
	n := 0
	for _, r := range results {
		if r.DNSValidated {
			n++
		}
	}
	return n
}
