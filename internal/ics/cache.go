package ics

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	appLog "wristcal/internal/log"
)

const (
	// DefaultTTL is how long a fetched feed stays fresh. Feed providers
	// rate-limit aggressively; just under an hour keeps a device polling
	// every few minutes from ever hitting them more than once per cycle.
	DefaultTTL = 50 * time.Minute

	// cacheSize bounds the entry count. Feeds are configured per
	// account, so a few dozen is already generous.
	cacheSize = 128

	fetchTimeout = 15 * time.Second
)

// Source represents a single ICS subscription source.
type Source struct {
	// ID is an internal identifier (e.g., the account key).
	ID string
	// URL is the ICS endpoint.
	URL string
}

// Cache holds parsed calendar feeds keyed by URL with a TTL. It is the
// only state shared across concurrent requests; the underlying
// expirable LRU serializes its own map access. The TTL-check-then-fetch
// sequence is deliberately not serialized per URL: two requests racing
// on a cold entry may both fetch, which costs one redundant HTTP call
// and nothing else.
type Cache struct {
	client *http.Client
	lru    *expirable.LRU[string, []ParsedEvent]
	ttl    time.Duration
}

// NewCache creates a feed cache with the given TTL. A ttl of zero
// means DefaultTTL.
func NewCache(ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{
		client: &http.Client{
			Timeout: fetchTimeout,
		},
		lru: expirable.NewLRU[string, []ParsedEvent](cacheSize, nil, ttl),
		ttl: ttl,
	}
}

// Get returns the parsed feed for src, fetching it if the cache has no
// fresh entry. forceMiss discards any existing entry first. A fetch
// failure with no cached entry returns a FetchError (or ParseError for
// a payload that fetched but would not parse).
func (c *Cache) Get(ctx context.Context, src Source, forceMiss bool) ([]ParsedEvent, error) {
	if src.URL == "" {
		return nil, &FetchError{URL: src.URL, Err: errors.New("source URL is empty")}
	}

	if forceMiss {
		c.lru.Remove(src.URL)
	} else if events, ok := c.lru.Get(src.URL); ok {
		appLog.Debug("feed cache hit", "id", src.ID, "url", redactURL(src.URL), "event_count", len(events))
		return events, nil
	}

	events, err := c.fetch(ctx, src)
	if err != nil {
		return nil, err
	}

	c.lru.Add(src.URL, events)
	return events, nil
}

// Precache warms the cache for a set of known feeds. Individual
// failures are logged and swallowed; warming is best-effort and is
// invoked out-of-band by a scheduler, never by request handlers.
//
// Unlike a forced Get, warming fetches first and replaces only on
// success: a transient outage during a scheduled warm must not evict
// an entry that is still serving requests.
func (c *Cache) Precache(ctx context.Context, sources []Source) {
	for _, src := range sources {
		events, err := c.fetch(ctx, src)
		if err != nil {
			appLog.Error("precache fetch failed", err, "id", src.ID, "url", redactURL(src.URL))
			continue
		}
		c.lru.Add(src.URL, events)
	}
	appLog.Info("precache completed", "source_count", len(sources))
}

// fetch retrieves and parses one feed.
func (c *Cache) fetch(ctx context.Context, src Source) ([]ParsedEvent, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src.URL, nil)
	if err != nil {
		return nil, &FetchError{URL: src.URL, Err: err}
	}

	appLog.Info("feed fetch start", "id", src.ID, "url", redactURL(src.URL))

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &FetchError{URL: src.URL, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &FetchError{URL: src.URL, Err: errors.New(resp.Status)}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &FetchError{URL: src.URL, Err: err}
	}

	events, err := ParseICS(src, body)
	if err != nil {
		// ParseICS already wraps in ParseError.
		return nil, err
	}

	appLog.Info("feed fetch success", "id", src.ID, "url", redactURL(src.URL), "event_count", len(events))
	return events, nil
}

// redactURL hides sensitive parts of an ICS URL for logging purposes.
// Feed URLs routinely embed access tokens in their paths.
func redactURL(u string) string {
	// Example:
	//   https://example.com/path/to/private.ics?token=abcd
	// -> https://example.com/...(redacted)
	const redactedSuffix = "/...(redacted)"

	// Find scheme separator.
	i := -1
	for idx := 0; idx+2 < len(u); idx++ {
		if u[idx:idx+3] == "://" {
			i = idx + 3
			break
		}
	}
	if i == -1 {
		return "ics://...(redacted)"
	}

	// Find next slash after host.
	j := i
	for j < len(u) && u[j] != '/' {
		j++
	}

	host := u[:j]
	return host + redactedSuffix
}
