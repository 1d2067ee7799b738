// Package source holds the catalog source adapters. Every external catalog,
// real API or placeholder, satisfies Adapter; ingestion walks an ordered slice
// of them and survives any individual failure.
package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

// RawItem is one undecoded payload from an external catalog. Field names are
// source-specific; the normalizer resolves them to the canonical shape.
type RawItem = map[string]any

// ErrNotConfigured signals that an adapter is missing credentials. Ingestion
// records the source as skipped rather than failed.
var ErrNotConfigured = errors.New("source not configured")

// Adapter fetches raw catalog items from one source. Fetch returns whatever
// it accumulated even when it also returns an error, so callers keep partial
// results from a source that died mid-way.
type Adapter interface {
	Name() string
	Fetch(ctx context.Context, limit int) ([]RawItem, error)
}

// DefaultTimeout bounds every source HTTP request, matching the upstream APIs'
// own guidance.
const DefaultTimeout = 30 * time.Second

// client wraps the HTTP plumbing shared by the API adapters: request timeout
// plus an optional client-side rate limiter so we stay under API quotas.
type client struct {
	hc      *http.Client
	limiter *rate.Limiter
}

func newHTTPClient(timeout time.Duration, rps float64) *client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	c := &client{hc: &http.Client{Timeout: timeout}}
	if rps > 0 {
		burst := int(rps)
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
	return c
}

// getJSON issues a GET and decodes the JSON body into out. The error message
// never includes the URL because source credentials travel in query params.
func (c *client) getJSON(ctx context.Context, rawURL string, header http.Header, out any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	resp, err := c.hc.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
