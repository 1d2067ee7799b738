package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/bricksage/bricksage/config"
	"github.com/bricksage/bricksage/internal/cache"
	"github.com/bricksage/bricksage/internal/index"
	"github.com/bricksage/bricksage/internal/ingest"
	"github.com/bricksage/bricksage/internal/llm"
	"github.com/bricksage/bricksage/internal/runtime"
	"github.com/bricksage/bricksage/internal/search"
	"github.com/bricksage/bricksage/internal/source"
	"github.com/bricksage/bricksage/internal/store"
)

// Run wires every component and serves the HTTP API until the process ends.
func Run(cfg *config.Config) error {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	// Unified HTTP error handler with structured JSON and logging
	baseLogger := log.New(log.Writer(), "[HTTP] ", log.LstdFlags)
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		code := http.StatusInternalServerError
		msg := err.Error()
		if he, ok := err.(*echo.HTTPError); ok {
			code = he.Code
			if he.Message != nil {
				msg = fmt.Sprint(he.Message)
			}
		}
		req := c.Request()
		baseLogger.Printf("%d %s %s from %s: %v", code, req.Method, req.URL.Path, c.RealIP(), err)
		if !c.Response().Committed {
			_ = c.JSON(code, HTTPError{Error: msg})
		}
	}
	origins := cfg.Server.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type", "Cookie", "Authorization"},
		AllowCredentials: true,
	}))

	e.GET("/healthz", func(c echo.Context) error { return c.String(200, "ok") })
	registerDocs(e)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	ctx := context.Background()
	dsn := cfg.Storage.Postgres.DSN()
	if err := Migrate("file://migrations", dsn, "up", 0); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	st, err := store.NewWithDSN(ctx, dsn)
	if err != nil {
		return fmt.Errorf("postgres: %w", err)
	}

	llmClient, err := llm.NewClient(llm.Options{
		APIKey:         cfg.LLM.APIKey,
		BaseURL:        cfg.LLM.BaseURL,
		ChatModel:      cfg.LLM.ChatModel,
		EmbeddingModel: cfg.LLM.EmbeddingModel,
		Temperature:    cfg.LLM.Temperature,
		MaxTokens:      cfg.LLM.MaxTokens,
		QueryCacheSize: cfg.LLM.QueryCacheSize,
	})
	if err != nil {
		return err
	}

	builder, err := index.NewBuilder(index.Config{
		Dir:       cfg.Index.Dir,
		BatchSize: cfg.Index.BatchSize,
		DetailCap: cfg.Index.DetailCap,
	}, st, llmClient, nil)
	if err != nil {
		return err
	}
	engine := search.NewEngine(llmClient, nil)
	publishStartupIndex(ctx, cfg, builder, engine)

	var rdb *redis.Client
	if cfg.Storage.Redis.Enabled() {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Storage.Redis.Addr(),
			Password: cfg.Storage.Redis.Password,
			DB:       cfg.Storage.Redis.DB,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis connection failed (%s): %w", cfg.Storage.Redis.Addr(), err)
		}
	}
	answerCache := cache.New(rdb, cfg.Retrieval.CacheTTL, nil)

	runner, err := ingest.NewRunner(ingest.Config{
		Limit:       cfg.Ingest.Limit,
		Parallelism: cfg.Ingest.Parallelism,
	}, source.FromConfig(cfg.Sources), st, answerCache, nil)
	if err != nil {
		return err
	}

	secret, err := runtime.LoadJWTSecret(cfg)
	if err != nil {
		return err
	}

	api := e.Group("/api")
	ah := &AuthHandler{Store: st, Secret: secret}
	ah.Register(api.Group("/auth"))
	sh := &SearchHandler{Engine: engine, Cache: answerCache, Hybrid: cfg.Retrieval.Hybrid}
	sh.Register(api.Group("/ask"), secret)
	ch := &CatalogHandler{Store: st, Cache: answerCache}
	ch.Register(api.Group(""), secret)
	oh := &OpsHandler{Runner: runner, Builder: builder, Engine: engine, Cache: answerCache}
	oh.Register(api.Group(""), secret)

	if cfg.Schedule.Enabled {
		sched := &Scheduler{
			Runner:  runner,
			Builder: builder,
			Engine:  engine,
			Cache:   answerCache,
			Store:   st,
			Rdb:     rdb,
			Cron:    cfg.Schedule.Cron,
			Rebuild: cfg.Schedule.Rebuild,
			Stop:    make(chan struct{}),
		}
		sched.Start()
	}

	addr := cfg.Server.Address
	if addr == "" {
		addr = ":8080"
	}
	log.Printf("listening on %s", addr)
	return e.Start(addr)
}

// publishStartupIndex makes a previously persisted snapshot available before
// the first request. When none exists (or it fails to load) and a rebuild is
// allowed, the index is rebuilt from the store; either path failing leaves
// the engine unpublished and /api/ask answering 503 until a reindex.
func publishStartupIndex(ctx context.Context, cfg *config.Config, builder *index.Builder, engine *search.Engine) {
	logger := log.New(log.Writer(), "[INDEX] ", log.LstdFlags)
	ix, err := builder.Load(ctx)
	if err == nil {
		engine.Publish(ix)
		logger.Printf("loaded snapshot %s (%d records)", ix.Version(), ix.Size())
		return
	}
	if !errors.Is(err, os.ErrNotExist) {
		logger.Printf("snapshot load failed: %v", err)
	}
	if !cfg.Index.RebuildOnStartup {
		logger.Printf("no index published; POST /api/reindex to build one")
		return
	}
	ix, err = builder.Rebuild(ctx)
	if err != nil {
		if errors.Is(err, index.ErrEmptyCatalog) {
			logger.Printf("catalog empty; ingest before reindexing")
		} else {
			logger.Printf("startup rebuild failed: %v", err)
		}
		return
	}
	engine.Publish(ix)
}
