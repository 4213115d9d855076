// Package fetchcache memoizes page fetches for the lifetime of the process.
// Concurrent requests for the same URL share a single in-flight network call
// and every later request returns the originally resolved result, errors
// included.
package fetchcache

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// FetchFunc retrieves the text payload behind a URL.
type FetchFunc func(ctx context.Context, pageURL string) (string, error)

type result struct {
	body string
	err  error
}

type Cache struct {
	fetch FetchFunc

	group   singleflight.Group
	mu      sync.RWMutex
	results map[string]result
}

func New(fetch FetchFunc) *Cache {
	return &Cache{
		fetch:   fetch,
		results: map[string]result{},
	}
}

// Get returns the memoized payload for pageURL, issuing at most one
// underlying fetch per distinct URL per process lifetime.
func (c *Cache) Get(ctx context.Context, pageURL string) (string, error) {
	c.mu.RLock()
	cached, ok := c.results[pageURL]
	c.mu.RUnlock()
	if ok {
		return cached.body, cached.err
	}

	value, err, _ := c.group.Do(pageURL, func() (interface{}, error) {
		body, fetchErr := c.fetch(ctx, pageURL)

		c.mu.Lock()
		c.results[pageURL] = result{body: body, err: fetchErr}
		c.mu.Unlock()

		return body, fetchErr
	})

	body, _ := value.(string)
	return body, err
}

// Len reports the number of memoized URLs.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.results)
}

// StatusError reports a non-success HTTP status from a page fetch.
type StatusError struct {
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status: %d", e.StatusCode)
}

func IsStatus(err error, statusCode int) bool {
	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		return false
	}
	return statusErr.StatusCode == statusCode
}

// HTTPFetch builds a FetchFunc that issues browser-like GET requests with
// the given client.
func HTTPFetch(client *http.Client) FetchFunc {
	if client == nil {
		client = &http.Client{Timeout: 12 * time.Second}
	}

	return func(ctx context.Context, pageURL string) (string, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
		if err != nil {
			return "", fmt.Errorf("create request: %w", err)
		}

		req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36")
		req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
		req.Header.Set("Accept-Language", "en-US,en;q=0.9")

		res, err := client.Do(req)
		if err != nil {
			return "", fmt.Errorf("request failed: %w", err)
		}
		defer res.Body.Close()

		if res.StatusCode < 200 || res.StatusCode >= 300 {
			return "", &StatusError{StatusCode: res.StatusCode}
		}

		rawBody, err := io.ReadAll(res.Body)
		if err != nil {
			return "", fmt.Errorf("read response body: %w", err)
		}

		return string(rawBody), nil
	}
}
