package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/bricksage/bricksage/internal/cache"
	"github.com/bricksage/bricksage/internal/catalog"
	"github.com/bricksage/bricksage/internal/runtime"
	"github.com/bricksage/bricksage/internal/store"
)

// CatalogHandler serves read-only catalog views: record listings, aggregate
// stats and ingestion run history.
type CatalogHandler struct {
	Store *store.Store
	Cache *cache.Cache
}

func (h *CatalogHandler) Register(g *echo.Group, secret []byte) {
	g.Use(runtime.EchoAuthMiddleware(secret))
	g.GET("/records", h.records)
	g.GET("/records/:id", h.record)
	g.GET("/stats", h.stats)
	g.GET("/runs", h.runs)
}

func (h *CatalogHandler) records(c echo.Context) error {
	f := store.RecordFilter{
		Source: c.QueryParam("source"),
		Theme:  c.QueryParam("theme"),
	}
	var err error
	if f.MinYear, err = intParam(c, "min_year"); err != nil {
		return err
	}
	if f.MaxYear, err = intParam(c, "max_year"); err != nil {
		return err
	}
	if f.MinPieces, err = intParam(c, "min_pieces"); err != nil {
		return err
	}
	if f.Limit, err = intParam(c, "limit"); err != nil {
		return err
	}
	if f.Limit <= 0 || f.Limit > 500 {
		f.Limit = 100
	}
	recs, err := h.Store.ListRecords(c.Request().Context(), f)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	out := make([]RecordResponse, 0, len(recs))
	for _, r := range recs {
		out = append(out, toRecordResponse(r))
	}
	return c.JSON(http.StatusOK, out)
}

func (h *CatalogHandler) record(c echo.Context) error {
	rec, err := h.Store.GetRecord(c.Request().Context(), c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "record not found")
	}
	return c.JSON(http.StatusOK, toRecordResponse(rec))
}

func (h *CatalogHandler) stats(c echo.Context) error {
	ctx := c.Request().Context()
	if st, ok := h.Cache.GetStats(ctx); ok {
		return c.JSON(http.StatusOK, toStatsResponse(*st, true))
	}
	st, err := h.Store.Stats(ctx)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	h.Cache.PutStats(ctx, &st)
	return c.JSON(http.StatusOK, toStatsResponse(st, false))
}

func (h *CatalogHandler) runs(c echo.Context) error {
	limit, err := intParam(c, "limit")
	if err != nil {
		return err
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	runs, err := h.Store.RecentIngestRuns(c.Request().Context(), limit)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	out := make([]IngestRunResponse, 0, len(runs))
	for _, r := range runs {
		out = append(out, toRunResponse(r))
	}
	return c.JSON(http.StatusOK, out)
}

func intParam(c echo.Context, name string) (int, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, echo.NewHTTPError(http.StatusBadRequest, name+" must be an integer")
	}
	return n, nil
}

func toRecordResponse(r catalog.Record) RecordResponse {
	return RecordResponse{
		ID:           r.ID,
		Source:       r.Source,
		Name:         r.Name,
		SetNumber:    r.SetNumber,
		Year:         r.Year,
		Theme:        r.Theme,
		PieceCount:   r.PieceCount,
		MinifigCount: r.MinifigCount,
		Price:        r.Price,
		Rating:       r.Rating,
		QualityScore: r.QualityScore,
	}
}

func toStatsResponse(st store.CatalogStats, cached bool) StatsResponse {
	return StatsResponse{
		TotalRecords:    st.TotalRecords,
		DistinctSources: st.DistinctSources,
		DistinctThemes:  st.DistinctThemes,
		AvgPieces:       st.AvgPieces,
		MinYear:         st.MinYear,
		MaxYear:         st.MaxYear,
		Cached:          cached,
	}
}

func toRunResponse(r store.IngestRun) IngestRunResponse {
	out := IngestRunResponse{
		ID:             r.ID,
		Status:         r.Status,
		StartedAt:      r.StartedAt.Format(time.RFC3339),
		SourcesOK:      r.SourcesOK,
		SourcesSkipped: r.SourcesSkipped,
		SourcesFailed:  r.SourcesFailed,
		Fetched:        r.Fetched,
		Stored:         r.Stored,
		Skipped:        r.Skipped,
		IDCollisions:   r.IDCollisions,
		Error:          r.Error,
	}
	if r.FinishedAt != nil {
		s := r.FinishedAt.Format(time.RFC3339)
		out.FinishedAt = &s
	}
	return out
}
