package geocode

import (
	"context"

	"go.uber.org/zap"
)

// Client tries providers in order until one matches, consulting the cache
// first when configured.
type Client struct {
	providers []Provider
	cache     *Cache
}

// Option configures the Client.
type Option func(*Client)

// WithCache enables result caching.
func WithCache(cache *Cache) Option {
	return func(c *Client) { c.cache = cache }
}

// NewClient creates a Client that cascades over the given providers.
func NewClient(providers []Provider, opts ...Option) *Client {
	c := &Client{providers: providers}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Geocode resolves a query. A provider error moves the cascade along; only
// when every provider misses does the result come back unmatched.
func (c *Client) Geocode(ctx context.Context, query string) (*Result, error) {
	if c.cache != nil {
		cached, err := c.cache.Lookup(ctx, query)
		if err != nil {
			zap.L().Warn("geocode cache lookup failed", zap.Error(err))
		} else if cached != nil {
			return cached, nil
		}
	}

	for _, p := range c.providers {
		result, err := p.Geocode(ctx, query)
		if err != nil {
			zap.L().Debug("geocode provider failed, trying next",
				zap.String("provider", p.Name()),
				zap.Error(err),
			)
			continue
		}
		if result != nil && result.Matched {
			c.storeCache(ctx, query, result)
			return result, nil
		}
	}

	noMatch := &Result{Matched: false}
	c.storeCache(ctx, query, noMatch)
	return noMatch, nil
}

func (c *Client) storeCache(ctx context.Context, query string, r *Result) {
	if c.cache == nil {
		return
	}
	if err := c.cache.Store(ctx, query, r); err != nil {
		zap.L().Warn("geocode cache store failed", zap.Error(err))
	}
}
