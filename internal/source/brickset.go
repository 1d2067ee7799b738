package source

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"
)

// bricksetYears is the year range queried, newest first. Fetching stops early
// once the requested limit is met.
var bricksetYears = []int{2024, 2023, 2022, 2021, 2020, 2019, 2018, 2017, 2016, 2015}

// BricksetOptions configures the Brickset adapter.
type BricksetOptions struct {
	APIKey            string
	Username          string
	Password          string
	Endpoint          string
	Timeout           time.Duration
	RequestsPerSecond float64
}

// Brickset fetches sets from the Brickset v3 API. The API needs a two-step
// handshake: login with key plus account credentials yields a userHash, which
// every getSets call then carries.
type Brickset struct {
	apiKey   string
	username string
	password string
	endpoint string
	client   *client
}

func NewBrickset(opts BricksetOptions) *Brickset {
	if opts.Endpoint == "" {
		opts.Endpoint = "https://brickset.com/api/v3.asmx"
	}
	return &Brickset{
		apiKey:   opts.APIKey,
		username: opts.Username,
		password: opts.Password,
		endpoint: opts.Endpoint,
		client:   newHTTPClient(opts.Timeout, opts.RequestsPerSecond),
	}
}

func (b *Brickset) Name() string { return "brickset" }

func (b *Brickset) Fetch(ctx context.Context, limit int) ([]RawItem, error) {
	if b.apiKey == "" || b.username == "" || b.password == "" {
		return nil, ErrNotConfigured
	}
	userHash, err := b.login(ctx)
	if err != nil {
		return nil, fmt.Errorf("brickset: %w", err)
	}

	perYear := limit / len(bricksetYears)
	if perYear < 1 {
		perYear = 1
	}
	if perYear > 100 {
		perYear = 100
	}

	items := make([]RawItem, 0, limit)
	for _, year := range bricksetYears {
		if len(items) >= limit {
			break
		}
		sets, err := b.getSets(ctx, userHash, year, perYear)
		if err != nil {
			return items, fmt.Errorf("brickset: year %d: %w", year, err)
		}
		for _, it := range sets {
			if len(items) >= limit {
				break
			}
			items = append(items, it)
		}
	}
	return items, nil
}

func (b *Brickset) login(ctx context.Context) (string, error) {
	params := url.Values{}
	params.Set("apiKey", b.apiKey)
	params.Set("username", b.username)
	params.Set("password", b.password)

	var out struct {
		Status  string `json:"status"`
		Hash    string `json:"hash"`
		Message string `json:"message"`
	}
	if err := b.client.getJSON(ctx, fmt.Sprintf("%s/login?%s", b.endpoint, params.Encode()), nil, &out); err != nil {
		return "", fmt.Errorf("login: %w", err)
	}
	if out.Status != "success" || out.Hash == "" {
		return "", fmt.Errorf("login failed: %s", out.Message)
	}
	return out.Hash, nil
}

func (b *Brickset) getSets(ctx context.Context, userHash string, year, pageSize int) ([]RawItem, error) {
	query, err := json.Marshal(map[string]any{"year": year, "pageSize": pageSize})
	if err != nil {
		return nil, err
	}
	params := url.Values{}
	params.Set("apiKey", b.apiKey)
	params.Set("userHash", userHash)
	params.Set("params", string(query))

	var out struct {
		Status  string    `json:"status"`
		Sets    []RawItem `json:"sets"`
		Message string    `json:"message"`
	}
	if err := b.client.getJSON(ctx, fmt.Sprintf("%s/getSets?%s", b.endpoint, params.Encode()), nil, &out); err != nil {
		return nil, err
	}
	if out.Status != "success" {
		// The API reports per-query misses as a non-success status; treat
		// them as an empty year rather than a failure.
		return nil, nil
	}
	return out.Sets, nil
}
