// Package transport provides the HTTP client and page fetcher used by the
// crawler.
//
// The client optionally routes every request through a proxy. Both HTTP(S)
// proxies (http://, https://) and SOCKS5 proxies (socks5://, socks5h://)
// are supported; the latter are dialed with golang.org/x/net/proxy.
//
// The HTTPFetcher performs a single GET per URL with no retries. The
// client's timeout is the only deadline for a fetch.
package transport
