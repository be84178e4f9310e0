package crawler

import "sync"

// VisitedRegistry is the set of URLs already claimed during one crawl.
// It only ever grows.
type VisitedRegistry struct {
	mu   sync.Mutex
	urls map[string]struct{}
}

// NewVisitedRegistry creates an empty registry.
func NewVisitedRegistry() *VisitedRegistry {
	return &VisitedRegistry{
		urls: make(map[string]struct{}),
	}
}

// Claim records url as visited. It returns true only for the first caller
// that claims a given URL; the membership check and the insertion happen
// under the same lock, so two workers can never both claim the same URL.
func (v *VisitedRegistry) Claim(url string) bool {
	v.mu.Lock()
	defer v.mu.Unlock()

	if _, ok := v.urls[url]; ok {
		return false
	}
	v.urls[url] = struct{}{}
	return true
}

// Seen reports whether url has already been claimed.
func (v *VisitedRegistry) Seen(url string) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	_, ok := v.urls[url]
	return ok
}

// Len returns the number of claimed URLs.
func (v *VisitedRegistry) Len() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.urls)
}
