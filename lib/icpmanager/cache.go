package icpmanager

import "sync"

// Cache answers whether this node holds a URL. A nil object with ok true
// is a hit without object content.
type Cache interface {
	Lookup(url string) (object []byte, ok bool)
}

// StaticCache is a Cache over a fixed set of URLs. It is safe for
// concurrent use.
type StaticCache struct {
	mu      sync.RWMutex
	entries map[string][]byte
}

// NewStaticCache reports every URL in urls as a hit without object.
func NewStaticCache(urls []string) *StaticCache {
	c := &StaticCache{}
	c.Replace(urls)
	return c
}

// Lookup implements Cache.
func (c *StaticCache) Lookup(url string) ([]byte, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	object, ok := c.entries[url]
	return object, ok
}

// Put records url with object content, which may be nil.
func (c *StaticCache) Put(url string, object []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[url] = object
}

// Replace swaps the whole content for urls, without objects.
func (c *StaticCache) Replace(urls []string) {
	entries := make(map[string][]byte, len(urls))
	for _, url := range urls {
		entries[url] = nil
	}
	c.mu.Lock()
	c.entries = entries
	c.mu.Unlock()
}

// Len returns the number of cached URLs.
func (c *StaticCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
