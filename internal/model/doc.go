// Package model defines the core data structures used throughout MailScan.
//
// This package contains the following main types:
//   - EmailResult: A discovered email address and its DNS validation flag
//   - CrawlReport: The result of one crawl, with statistics
//   - CrawlStats: Page counters collected while crawling
//
// Design decision: We separate models into their own package to avoid circular
// dependencies. Multiple packages (crawler, report, database) need to use these
// types, so centralizing them prevents import cycles.
//
// The models are designed to be serializable to JSON for report output and
// database storage.
package model
