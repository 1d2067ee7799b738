package server

import (
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/bricksage/bricksage/internal/cache"
	"github.com/bricksage/bricksage/internal/index"
	"github.com/bricksage/bricksage/internal/ingest"
	"github.com/bricksage/bricksage/internal/runtime"
	"github.com/bricksage/bricksage/internal/search"
	"github.com/bricksage/bricksage/internal/telemetry"
)

// OpsHandler exposes operational endpoints: triggering ingestion runs,
// rebuilding the search index and inspecting the published index.
type OpsHandler struct {
	Runner  *ingest.Runner
	Builder *index.Builder
	Engine  *search.Engine
	Cache   *cache.Cache

	ingestMu  sync.Mutex
	reindexMu sync.Mutex
}

func (h *OpsHandler) Register(g *echo.Group, secret []byte) {
	g.Use(runtime.EchoAuthMiddleware(secret))
	g.POST("/ingest", h.ingest)
	g.POST("/reindex", h.reindex)
	g.GET("/index", h.index)
}

// ingest runs a full ingestion pass synchronously and returns its report.
// Overlapping runs are refused; upserts are idempotent but the run history
// stays readable when runs do not interleave.
func (h *OpsHandler) ingest(c echo.Context) error {
	if !h.ingestMu.TryLock() {
		return echo.NewHTTPError(http.StatusConflict, "ingestion already running")
	}
	defer h.ingestMu.Unlock()

	rep, err := h.Runner.Run(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, rep)
}

// reindex rebuilds the index from the full store contents and publishes it.
// The previous index keeps serving queries until the swap.
func (h *OpsHandler) reindex(c echo.Context) error {
	if !h.reindexMu.TryLock() {
		return echo.NewHTTPError(http.StatusConflict, "reindex already running")
	}
	defer h.reindexMu.Unlock()

	started := time.Now()
	ix, err := h.Builder.Rebuild(c.Request().Context())
	if err != nil {
		if errors.Is(err, index.ErrEmptyCatalog) {
			return echo.NewHTTPError(http.StatusConflict, "catalog is empty; ingest before reindexing")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	telemetry.RebuildDuration.Observe(time.Since(started).Seconds())
	telemetry.IndexRecords.Set(float64(ix.Size()))

	h.Engine.Publish(ix)
	h.Cache.Invalidate(c.Request().Context())
	return c.JSON(http.StatusOK, indexStatus(ix))
}

func (h *OpsHandler) index(c echo.Context) error {
	return c.JSON(http.StatusOK, indexStatus(h.Engine.Current()))
}

func indexStatus(ix *index.Index) IndexStatusResponse {
	if ix == nil {
		return IndexStatusResponse{Ready: false}
	}
	return IndexStatusResponse{
		Ready:      true,
		Version:    ix.Version(),
		BuiltAt:    ix.BuiltAt().Format(time.RFC3339),
		Records:    ix.Size(),
		Model:      ix.Model(),
		Dimensions: ix.Dimensions(),
	}
}
