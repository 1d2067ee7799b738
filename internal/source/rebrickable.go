package source

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"
)

// rebrickableThemes are the themes the catalog is partitioned across, with
// their Rebrickable theme ids. Order matters: the fetch budget is split
// evenly and walked top to bottom.
var rebrickableThemes = []struct {
	Name string
	ID   int
}{
	{"Star Wars", 171},
	{"City", 52},
	{"Technic", 1},
	{"Creator", 22},
	{"Architecture", 50},
}

// rebrickableMaxPerTheme caps how many sets one theme may contribute.
const rebrickableMaxPerTheme = 100

// RebrickableOptions configures the Rebrickable adapter. Endpoint is
// overridable for tests.
type RebrickableOptions struct {
	APIKey            string
	Endpoint          string
	PageSize          int
	Timeout           time.Duration
	RequestsPerSecond float64
}

// Rebrickable fetches sets from the Rebrickable v3 API, key-authenticated via
// the "key" query parameter, paginated with "next" links.
type Rebrickable struct {
	apiKey   string
	endpoint string
	pageSize int
	client   *client
}

func NewRebrickable(opts RebrickableOptions) *Rebrickable {
	if opts.Endpoint == "" {
		opts.Endpoint = "https://rebrickable.com/api/v3"
	}
	if opts.PageSize <= 0 {
		opts.PageSize = 100
	}
	return &Rebrickable{
		apiKey:   opts.APIKey,
		endpoint: opts.Endpoint,
		pageSize: opts.PageSize,
		client:   newHTTPClient(opts.Timeout, opts.RequestsPerSecond),
	}
}

func (r *Rebrickable) Name() string { return "rebrickable" }

func (r *Rebrickable) Fetch(ctx context.Context, limit int) ([]RawItem, error) {
	if r.apiKey == "" {
		return nil, ErrNotConfigured
	}
	perTheme := limit / len(rebrickableThemes)
	if perTheme < 1 {
		perTheme = 1
	}
	if perTheme > rebrickableMaxPerTheme {
		perTheme = rebrickableMaxPerTheme
	}

	items := make([]RawItem, 0, limit)
	var firstErr error
	for _, theme := range rebrickableThemes {
		fetched := 0
		pageURL := r.firstPageURL(theme.ID, perTheme)
		for pageURL != "" && fetched < perTheme {
			var page struct {
				Results []RawItem `json:"results"`
				Next    string    `json:"next"`
			}
			if err := r.client.getJSON(ctx, pageURL, nil, &page); err != nil {
				if firstErr == nil {
					firstErr = fmt.Errorf("rebrickable: theme %q: %w", theme.Name, err)
				}
				break
			}
			for _, it := range page.Results {
				if fetched >= perTheme {
					break
				}
				items = append(items, it)
				fetched++
			}
			pageURL = page.Next
		}
		if ctx.Err() != nil {
			return items, ctx.Err()
		}
	}
	return items, firstErr
}

func (r *Rebrickable) firstPageURL(themeID, perTheme int) string {
	pageSize := r.pageSize
	if perTheme < pageSize {
		pageSize = perTheme
	}
	params := url.Values{}
	params.Set("key", r.apiKey)
	params.Set("theme_id", strconv.Itoa(themeID))
	params.Set("page_size", strconv.Itoa(pageSize))
	params.Set("ordering", "-set_num")
	return fmt.Sprintf("%s/lego/sets/?%s", r.endpoint, params.Encode())
}
