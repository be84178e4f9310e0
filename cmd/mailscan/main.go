// Package main provides the entry point for the MailScan CLI.
//
// MailScan crawls web sites from a set of seed URLs, collects the email
// addresses it finds and optionally checks that each address's domain
// resolves in DNS.
//
// Usage:
//
//	mailscan crawl https://example.com
//	mailscan crawl --input urls.txt --output results.json
//
// See --help for all available options.
package main

// main is the entry point for MailScan.
func main() {
	Execute()
}
