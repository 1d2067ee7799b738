package main

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/bricksage/bricksage/config"
	"github.com/bricksage/bricksage/internal/cache"
	"github.com/bricksage/bricksage/internal/index"
	"github.com/bricksage/bricksage/internal/llm"
	"github.com/bricksage/bricksage/internal/store"
)

// Shared dependency constructors for the CLI subcommands. Each command opens
// only what it needs; serve wires everything through the server package
// instead.

func openStore(ctx context.Context, cfg *config.Config) (*store.Store, error) {
	st, err := store.NewWithDSN(ctx, cfg.Storage.Postgres.DSN())
	if err != nil {
		return nil, fmt.Errorf("postgres: %w", err)
	}
	return st, nil
}

func openCache(ctx context.Context, cfg *config.Config) (*cache.Cache, error) {
	if !cfg.Storage.Redis.Enabled() {
		return cache.New(nil, 0, nil), nil
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Storage.Redis.Addr(),
		Password: cfg.Storage.Redis.Password,
		DB:       cfg.Storage.Redis.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis connection failed (%s): %w", cfg.Storage.Redis.Addr(), err)
	}
	return cache.New(rdb, cfg.Retrieval.CacheTTL, nil), nil
}

func openLLM(cfg *config.Config) (*llm.Client, error) {
	return llm.NewClient(llm.Options{
		APIKey:         cfg.LLM.APIKey,
		BaseURL:        cfg.LLM.BaseURL,
		ChatModel:      cfg.LLM.ChatModel,
		EmbeddingModel: cfg.LLM.EmbeddingModel,
		Temperature:    cfg.LLM.Temperature,
		MaxTokens:      cfg.LLM.MaxTokens,
		QueryCacheSize: cfg.LLM.QueryCacheSize,
	})
}

func openBuilder(cfg *config.Config, st *store.Store, client *llm.Client) (*index.Builder, error) {
	return index.NewBuilder(index.Config{
		Dir:       cfg.Index.Dir,
		BatchSize: cfg.Index.BatchSize,
		DetailCap: cfg.Index.DetailCap,
	}, st, client, nil)
}
