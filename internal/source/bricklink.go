package source

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"
)

// BrickLinkOptions configures the BrickLink adapter.
type BrickLinkOptions struct {
	Token             string
	Endpoint          string
	Timeout           time.Duration
	RequestsPerSecond float64
}

// BrickLink is a deliberate stub: the real API wants a full OAuth flow, which
// stays out of scope, so this adapter only speaks plain bearer-token requests.
// Without a token it reports not-configured and contributes nothing.
type BrickLink struct {
	token    string
	endpoint string
	client   *client
}

func NewBrickLink(opts BrickLinkOptions) *BrickLink {
	if opts.Endpoint == "" {
		opts.Endpoint = "https://api.bricklink.com"
	}
	return &BrickLink{
		token:    opts.Token,
		endpoint: opts.Endpoint,
		client:   newHTTPClient(opts.Timeout, opts.RequestsPerSecond),
	}
}

func (b *BrickLink) Name() string { return "bricklink" }

func (b *BrickLink) Fetch(ctx context.Context, limit int) ([]RawItem, error) {
	if b.token == "" {
		return nil, ErrNotConfigured
	}
	header := http.Header{}
	header.Set("Authorization", "Bearer "+b.token)

	var out struct {
		Data []RawItem `json:"data"`
	}
	u := fmt.Sprintf("%s/api/v3/catalog/sets?limit=%s", b.endpoint, strconv.Itoa(limit))
	if err := b.client.getJSON(ctx, u, header, &out); err != nil {
		return nil, fmt.Errorf("bricklink: %w", err)
	}
	if len(out.Data) > limit {
		out.Data = out.Data[:limit]
	}
	return out.Data, nil
}
