package server

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/bricksage/bricksage/internal/cache"
	"github.com/bricksage/bricksage/internal/runtime"
	"github.com/bricksage/bricksage/internal/search"
	"github.com/bricksage/bricksage/internal/telemetry"
)

// SearchHandler answers catalog questions through the retrieval engine, with
// a redis answer cache in front of it. Hybrid is the configured default for
// requests that do not set the flag themselves.
type SearchHandler struct {
	Engine *search.Engine
	Cache  *cache.Cache
	Hybrid bool
}

func (h *SearchHandler) Register(g *echo.Group, secret []byte) {
	g.Use(runtime.EchoAuthMiddleware(secret))
	g.POST("", h.ask)
}

func (h *SearchHandler) ask(c echo.Context) error {
	var req AskRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if strings.TrimSpace(req.Query) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "query required")
	}
	ctx := c.Request().Context()
	hybrid := h.Hybrid
	if req.Hybrid != nil {
		hybrid = *req.Hybrid
	}

	key := cache.AnswerKey(req.Query, req.K, req.Threshold, hybrid)
	if ans, ok := h.Cache.GetAnswer(ctx, key); ok {
		telemetry.CacheRequests.WithLabelValues("hit").Inc()
		ans.Cached = true
		return c.JSON(http.StatusOK, ans)
	}
	telemetry.CacheRequests.WithLabelValues("miss").Inc()

	started := time.Now()
	ans, err := h.Engine.Ask(ctx, req.Query, search.AskOptions{
		K:         req.K,
		Threshold: req.Threshold,
		Hybrid:    hybrid,
	})
	if err != nil {
		switch {
		case errors.Is(err, search.ErrIndexNotReady):
			return echo.NewHTTPError(http.StatusServiceUnavailable, "index not ready; ingest and reindex first")
		case errors.Is(err, search.ErrSynthesis):
			return echo.NewHTTPError(http.StatusBadGateway, err.Error())
		default:
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
	}
	telemetry.Queries.WithLabelValues(ans.Intent).Inc()
	telemetry.QueryDuration.Observe(time.Since(started).Seconds())

	h.Cache.PutAnswer(ctx, key, ans)
	return c.JSON(http.StatusOK, ans)
}
