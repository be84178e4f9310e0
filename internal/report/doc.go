// Package report writes crawl results.
//
// This package contains writers for different output formats:
//   - JSONWriter: the result list as a JSON array of {email, dnsLookup}
//   - FullJSONWriter: the whole crawl report with statistics
//   - MarkdownWriter: GitHub Flavored Markdown with tables and a chart
//   - SimpleWriter: human-readable text output for terminal display
//
// Design decision: We separate report writing from report data structures
// (which are in the model package) so that new output formats never touch
// the crawler.
package report
