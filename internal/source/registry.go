package source

import (
	"github.com/bricksage/bricksage/config"
)

// FromConfig assembles every configured adapter. Adapters missing
// credentials are still returned; they report ErrNotConfigured at fetch
// time so ingest runs can record the skip.
func FromConfig(cfg config.SourcesConfig) []Adapter {
	adapters := []Adapter{
		NewRebrickable(RebrickableOptions{
			APIKey:            cfg.Rebrickable.APIKey,
			Endpoint:          cfg.Rebrickable.Endpoint,
			PageSize:          cfg.Rebrickable.PageSize,
			Timeout:           cfg.Timeout,
			RequestsPerSecond: cfg.RequestsPerSecond,
		}),
		NewBrickset(BricksetOptions{
			APIKey:            cfg.Brickset.APIKey,
			Username:          cfg.Brickset.Username,
			Password:          cfg.Brickset.Password,
			Endpoint:          cfg.Brickset.Endpoint,
			Timeout:           cfg.Timeout,
			RequestsPerSecond: cfg.RequestsPerSecond,
		}),
		NewBrickOwl(BrickOwlOptions{
			APIKey:            cfg.BrickOwl.APIKey,
			Endpoint:          cfg.BrickOwl.Endpoint,
			Timeout:           cfg.Timeout,
			RequestsPerSecond: cfg.RequestsPerSecond,
		}),
		NewBrickLink(BrickLinkOptions{
			Token:             cfg.BrickLink.Token,
			Endpoint:          cfg.BrickLink.Endpoint,
			Timeout:           cfg.Timeout,
			RequestsPerSecond: cfg.RequestsPerSecond,
		}),
	}
	if cfg.Curated.Enabled {
		adapters = append(adapters, CuratedSources()...)
	}
	return adapters
}
