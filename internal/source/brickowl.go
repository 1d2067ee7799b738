package source

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"
)

// BrickOwlOptions configures the BrickOwl adapter.
type BrickOwlOptions struct {
	APIKey            string
	Endpoint          string
	Timeout           time.Duration
	RequestsPerSecond float64
}

// BrickOwl fetches the set catalog from the BrickOwl v1 API. Items carry a
// "boid" native identifier.
type BrickOwl struct {
	apiKey   string
	endpoint string
	client   *client
}

func NewBrickOwl(opts BrickOwlOptions) *BrickOwl {
	if opts.Endpoint == "" {
		opts.Endpoint = "https://api.brickowl.com/v1"
	}
	return &BrickOwl{
		apiKey:   opts.APIKey,
		endpoint: opts.Endpoint,
		client:   newHTTPClient(opts.Timeout, opts.RequestsPerSecond),
	}
}

func (b *BrickOwl) Name() string { return "brickowl" }

func (b *BrickOwl) Fetch(ctx context.Context, limit int) ([]RawItem, error) {
	if b.apiKey == "" {
		return nil, ErrNotConfigured
	}
	params := url.Values{}
	params.Set("key", b.apiKey)
	params.Set("type", "Set")
	params.Set("limit", strconv.Itoa(limit))

	var out struct {
		Results []RawItem `json:"results"`
	}
	if err := b.client.getJSON(ctx, fmt.Sprintf("%s/catalog/list?%s", b.endpoint, params.Encode()), nil, &out); err != nil {
		return nil, fmt.Errorf("brickowl: %w", err)
	}
	if len(out.Results) > limit {
		out.Results = out.Results[:limit]
	}
	return out.Results, nil
}
