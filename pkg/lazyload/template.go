package lazyload

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/singleflight"
)

// templateCache holds fetched template bodies keyed by URL for the lifetime
// of the Loader.
type templateCache struct {
	src     Source
	mu      sync.RWMutex
	entries map[string]string
	flights singleflight.Group
}

func newTemplateCache(src Source) *templateCache {
	return &templateCache{src: src, entries: make(map[string]string)}
}

func (c *templateCache) get(ctx context.Context, url string) (string, error) {
	c.mu.RLock()
	body, ok := c.entries[url]
	c.mu.RUnlock()
	if ok {
		return body, nil
	}
	if c.src == nil {
		return "", fmt.Errorf("%w: no template source for %s", ErrInvalidConfig, url)
	}

	v, err, _ := c.flights.Do(url, func() (any, error) {
		raw, err := c.src.Fetch(ctx, url)
		if err != nil {
			return "", fmt.Errorf("%w: template %s: %w", ErrFetchFailed, url, err)
		}
		body := string(raw)
		c.put(url, body)
		return body, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func (c *templateCache) put(url, body string) {
	c.mu.Lock()
	c.entries[url] = body
	c.mu.Unlock()
}

// Template returns the template stored under url, fetching it through the
// template source on first use.
func (l *Loader) Template(ctx context.Context, url string) (string, error) {
	return l.templates.get(ctx, url)
}

// PutTemplate primes the template cache, so url is never fetched.
func (l *Loader) PutTemplate(url, body string) {
	l.templates.put(url, body)
}
