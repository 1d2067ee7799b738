// Package ingest orchestrates one catalog ingestion run: every configured
// source is fetched with failures contained per source, raw items are
// normalized and upserted, and the run outcome is persisted for later
// inspection.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/bricksage/bricksage/internal/catalog"
	"github.com/bricksage/bricksage/internal/source"
	"github.com/bricksage/bricksage/internal/store"
	"github.com/bricksage/bricksage/internal/telemetry"
)

// Per-source terminal statuses.
const (
	StatusOK      = "ok"
	StatusSkipped = "skipped"
	StatusFailed  = "failed"
)

// RecordStore is the slice of the catalog store an ingestion run needs.
type RecordStore interface {
	UpsertRecords(ctx context.Context, recs []catalog.Record) (int, int, error)
	CreateIngestRun(ctx context.Context, id string) error
	FinishIngestRun(ctx context.Context, run store.IngestRun) error
}

// Invalidator drops cached reads after the catalog changes.
type Invalidator interface {
	Invalidate(ctx context.Context)
}

// SourceResult reports one adapter's contribution to a run.
type SourceResult struct {
	Source       string `json:"source"`
	Status       string `json:"status"`
	Fetched      int    `json:"fetched"`
	Stored       int    `json:"stored"`
	Skipped      int    `json:"skipped"`
	IDCollisions int    `json:"id_collisions"`
	Error        string `json:"error,omitempty"`
}

// Report summarizes a full ingestion run.
type Report struct {
	RunID          string         `json:"run_id"`
	Status         string         `json:"status"`
	StartedAt      time.Time      `json:"started_at"`
	FinishedAt     time.Time      `json:"finished_at"`
	Sources        []SourceResult `json:"sources"`
	SourcesOK      int            `json:"sources_ok"`
	SourcesSkipped int            `json:"sources_skipped"`
	SourcesFailed  int            `json:"sources_failed"`
	Fetched        int            `json:"fetched"`
	Stored         int            `json:"stored"`
	Skipped        int            `json:"skipped"`
	IDCollisions   int            `json:"id_collisions"`
}

// Config tunes an ingestion run.
type Config struct {
	// Limit caps items per source. Adapters may return fewer.
	Limit int
	// Parallelism bounds how many sources fetch at once.
	Parallelism int
}

// Runner drives ingestion across an ordered set of source adapters.
type Runner struct {
	adapters []source.Adapter
	store    RecordStore
	inv      Invalidator
	cfg      Config
	logger   *log.Logger
}

// NewRunner wires an ingestion runner. inv may be nil when no cache is
// configured.
func NewRunner(cfg Config, adapters []source.Adapter, st RecordStore, inv Invalidator, logger *log.Logger) (*Runner, error) {
	if len(adapters) == 0 {
		return nil, errors.New("ingest requires at least one source adapter")
	}
	if st == nil {
		return nil, errors.New("ingest requires a record store")
	}
	if cfg.Limit <= 0 {
		cfg.Limit = 100
	}
	if cfg.Parallelism <= 0 {
		cfg.Parallelism = 4
	}
	if logger == nil {
		logger = log.New(log.Writer(), "[INGEST] ", log.LstdFlags)
	}
	return &Runner{adapters: adapters, store: st, inv: inv, cfg: cfg, logger: logger}, nil
}

// Run executes one full ingestion pass. Source failures never abort the
// run: each adapter lands in the report as ok, skipped (not configured) or
// failed, and whatever items it did deliver are stored.
func (r *Runner) Run(ctx context.Context) (*Report, error) {
	rep := &Report{
		RunID:     uuid.NewString(),
		StartedAt: time.Now().UTC(),
		Sources:   make([]SourceResult, len(r.adapters)),
	}
	if err := r.store.CreateIngestRun(ctx, rep.RunID); err != nil {
		return nil, fmt.Errorf("create ingest run: %w", err)
	}
	r.logger.Printf("run %s: ingesting %d sources (limit %d, parallelism %d)",
		rep.RunID, len(r.adapters), r.cfg.Limit, r.cfg.Parallelism)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.Parallelism)
	for i, ad := range r.adapters {
		i, ad := i, ad
		g.Go(func() error {
			rep.Sources[i] = r.runSource(gctx, ad)
			return nil
		})
	}
	// Goroutines report through rep.Sources, never through errors, so a
	// failing source cannot cancel its siblings.
	_ = g.Wait()

	for _, sr := range rep.Sources {
		switch sr.Status {
		case StatusOK:
			rep.SourcesOK++
		case StatusSkipped:
			rep.SourcesSkipped++
		case StatusFailed:
			rep.SourcesFailed++
		}
		rep.Fetched += sr.Fetched
		rep.Stored += sr.Stored
		rep.Skipped += sr.Skipped
		rep.IDCollisions += sr.IDCollisions
	}
	rep.Status = runStatus(rep)
	rep.FinishedAt = time.Now().UTC()

	finished := rep.FinishedAt
	run := store.IngestRun{
		ID:             rep.RunID,
		Status:         rep.Status,
		StartedAt:      rep.StartedAt,
		FinishedAt:     &finished,
		SourcesOK:      rep.SourcesOK,
		SourcesSkipped: rep.SourcesSkipped,
		SourcesFailed:  rep.SourcesFailed,
		Fetched:        rep.Fetched,
		Stored:         rep.Stored,
		Skipped:        rep.Skipped,
		IDCollisions:   rep.IDCollisions,
		Error:          firstError(rep.Sources),
	}
	if err := r.store.FinishIngestRun(ctx, run); err != nil {
		r.logger.Printf("warn: persist ingest run %s: %v", rep.RunID, err)
	}
	if r.inv != nil && rep.Stored > 0 {
		r.inv.Invalidate(ctx)
	}
	r.logger.Printf("run %s %s: %d fetched, %d stored, %d skipped across %d/%d sources in %s",
		rep.RunID, rep.Status, rep.Fetched, rep.Stored, rep.Skipped,
		rep.SourcesOK, len(r.adapters), rep.FinishedAt.Sub(rep.StartedAt).Round(time.Millisecond))
	return rep, nil
}

func (r *Runner) runSource(ctx context.Context, ad source.Adapter) SourceResult {
	res := SourceResult{Source: ad.Name(), Status: StatusOK}
	items, err := ad.Fetch(ctx, r.cfg.Limit)
	if err != nil {
		if errors.Is(err, source.ErrNotConfigured) {
			res.Status = StatusSkipped
			res.Error = err.Error()
			r.logger.Printf("source %s skipped: %v", ad.Name(), err)
			telemetry.SourceRuns.WithLabelValues(ad.Name(), StatusSkipped).Inc()
			return res
		}
		// Partial results gathered before the failure still count.
		res.Status = StatusFailed
		res.Error = err.Error()
		r.logger.Printf("source %s failed: %v", ad.Name(), err)
	}
	res.Fetched = len(items)
	if len(items) == 0 {
		telemetry.SourceRuns.WithLabelValues(ad.Name(), res.Status).Inc()
		return res
	}

	recs := make([]catalog.Record, 0, len(items))
	for _, item := range items {
		rec := catalog.Normalize(ad.Name(), item)
		if !rec.HasNativeID() {
			res.IDCollisions++
			telemetry.IDCollisions.WithLabelValues(ad.Name()).Inc()
			r.logger.Printf("warn: source %s item %q has no native id, collapsing onto placeholder record %s",
				ad.Name(), rec.Name, rec.ID)
		}
		recs = append(recs, rec)
	}

	stored, skipped, err := r.store.UpsertRecords(ctx, recs)
	res.Stored, res.Skipped = stored, skipped
	if err != nil {
		if res.Error == "" {
			res.Error = err.Error()
		}
		if stored == 0 && res.Status == StatusOK {
			res.Status = StatusFailed
		}
		r.logger.Printf("source %s: %d of %d upserts failed: %v", ad.Name(), skipped, len(recs), err)
	}
	telemetry.SourceRuns.WithLabelValues(ad.Name(), res.Status).Inc()
	telemetry.IngestItems.WithLabelValues(ad.Name(), "stored").Add(float64(stored))
	telemetry.IngestItems.WithLabelValues(ad.Name(), "skipped").Add(float64(skipped))
	return res
}

func runStatus(rep *Report) string {
	switch {
	case rep.SourcesFailed == 0:
		return store.RunStatusSucceeded
	case rep.SourcesOK == 0:
		return store.RunStatusFailed
	default:
		return store.RunStatusPartial
	}
}

func firstError(results []SourceResult) string {
	for _, sr := range results {
		if sr.Status == StatusFailed && sr.Error != "" {
			return fmt.Sprintf("%s: %s", sr.Source, sr.Error)
		}
	}
	return ""
}
