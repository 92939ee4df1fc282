package scrapesvc

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/RobinCoderZhao/feedbot/pkg/cache"
)

// Cached decorates a Service with a result cache, so repeated requests for
// the same page or query within ttl do not hit the (metered) service.
type Cached struct {
	inner  Service
	cache  cache.Cache
	ttl    time.Duration
	logger *slog.Logger
}

// NewCached wraps inner with c.
func NewCached(inner Service, c cache.Cache, ttl time.Duration) *Cached {
	return &Cached{
		inner:  inner,
		cache:  c,
		ttl:    ttl,
		logger: slog.Default(),
	}
}

func (c *Cached) Scrape(ctx context.Context, url string) (string, error) {
	key := "scrape:" + url
	if v, ok := c.get(ctx, key); ok {
		return v, nil
	}
	content, err := c.inner.Scrape(ctx, url)
	if err != nil {
		return "", err
	}
	c.set(ctx, key, content)
	return content, nil
}

func (c *Cached) Search(ctx context.Context, query string, limit int) ([]SearchResult, error) {
	key := fmt.Sprintf("search:%d:%s", limit, query)
	if v, ok := c.get(ctx, key); ok {
		var results []SearchResult
		if err := json.Unmarshal([]byte(v), &results); err == nil {
			return results, nil
		}
	}
	results, err := c.inner.Search(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	if data, err := json.Marshal(results); err == nil {
		c.set(ctx, key, string(data))
	}
	return results, nil
}

func (c *Cached) get(ctx context.Context, key string) (string, bool) {
	v, ok, err := c.cache.Get(ctx, key)
	if err != nil {
		c.logger.Warn("scrape cache read failed", "key", key, "error", err)
		return "", false
	}
	return v, ok
}

func (c *Cached) set(ctx context.Context, key, value string) {
	if err := c.cache.Set(ctx, key, value, c.ttl); err != nil {
		c.logger.Warn("scrape cache write failed", "key", key, "error", err)
	}
}
