// Package validator checks whether the domain of an email address resolves
// in DNS.
//
// Lookups are blocking network operations, so every lookup runs under a
// weighted semaphore whose size is an explicit configuration value. A slow
// or hanging lookup therefore occupies one slot of the pool and is cut off
// by its own timeout; it never stalls crawl workers that are not
// validating, nor more than one slot of the pool.
//
// Every domain is looked up again for each new address. There is no
// per-domain cache.
package validator
