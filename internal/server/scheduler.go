package server

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/gorhill/cronexpr"
	"github.com/redis/go-redis/v9"

	"github.com/bricksage/bricksage/internal/cache"
	"github.com/bricksage/bricksage/internal/index"
	"github.com/bricksage/bricksage/internal/ingest"
	"github.com/bricksage/bricksage/internal/search"
	"github.com/bricksage/bricksage/internal/store"
	"github.com/bricksage/bricksage/internal/telemetry"
)

const schedulerLockKey = "sched:lock:ingest"

// Scheduler periodically runs ingestion and, when configured, rebuilds the
// index afterwards. A redis SetNX lock keeps multiple instances from running
// the same scheduled pass.
type Scheduler struct {
	Runner  *ingest.Runner
	Builder *index.Builder
	Engine  *search.Engine
	Cache   *cache.Cache
	Store   *store.Store
	Rdb     *redis.Client
	Cron    string
	Rebuild bool
	Stop    chan struct{}
	Logger  *log.Logger
}

func (s *Scheduler) Start() {
	if s.Logger == nil {
		s.Logger = log.New(log.Writer(), "[SCHED] ", log.LstdFlags)
	}
	ticker := time.NewTicker(1 * time.Hour)
	go func() {
		for {
			select {
			case <-s.Stop:
				ticker.Stop()
				return
			case <-ticker.C:
				s.tick()
			}
		}
	}()
}

func (s *Scheduler) tick() {
	ctx := context.Background()
	if !isDue(s.Cron, s.lastRunTime(ctx)) {
		return
	}

	// distributed lock to avoid duplicate runs
	if s.Rdb != nil {
		ok, _ := s.Rdb.SetNX(ctx, schedulerLockKey, "1", 2*time.Minute).Result()
		if !ok {
			return
		}
		defer s.Rdb.Del(ctx, schedulerLockKey)
	}

	// jitter to avoid stampedes
	time.Sleep(time.Duration(250+int64(time.Now().UnixNano()%250)) * time.Millisecond)

	rep, err := s.Runner.Run(ctx)
	if err != nil {
		s.Logger.Printf("scheduled ingest failed: %v", err)
		return
	}
	s.Logger.Printf("scheduled ingest %s: %s (fetched=%d stored=%d)", rep.RunID, rep.Status, rep.Fetched, rep.Stored)

	if !s.Rebuild {
		return
	}
	if rep.Stored == 0 {
		s.Logger.Printf("nothing stored, skipping scheduled rebuild")
		return
	}
	started := time.Now()
	ix, err := s.Builder.Rebuild(ctx)
	if err != nil {
		if errors.Is(err, index.ErrEmptyCatalog) {
			s.Logger.Printf("catalog empty, skipping scheduled rebuild")
			return
		}
		s.Logger.Printf("scheduled rebuild failed: %v", err)
		return
	}
	telemetry.RebuildDuration.Observe(time.Since(started).Seconds())
	telemetry.IndexRecords.Set(float64(ix.Size()))
	s.Engine.Publish(ix)
	s.Cache.Invalidate(ctx)
	s.Logger.Printf("scheduled rebuild published index %s (%d records)", ix.Version(), ix.Size())
}

// lastRunTime looks up when ingestion last started, nil when it never has.
func (s *Scheduler) lastRunTime(ctx context.Context) *time.Time {
	if s.Store == nil {
		return nil
	}
	runs, err := s.Store.RecentIngestRuns(ctx, 1)
	if err != nil || len(runs) == 0 {
		return nil
	}
	return &runs[0].StartedAt
}

// isDue determines whether a schedule with cronSpec should run now given the
// last run time. Supports "@daily", "@hourly" and standard 5-field cron
// expressions; an invalid expression falls back to @daily.
func isDue(cronSpec string, last *time.Time) bool {
	now := time.Now()
	switch cronSpec {
	case "@daily":
		if last == nil {
			return true
		}
		return now.Sub(*last) >= 24*time.Hour
	case "@hourly":
		if last == nil {
			return true
		}
		return now.Sub(*last) >= time.Hour
	default:
		expr, err := cronexpr.Parse(cronSpec)
		if err != nil {
			if last == nil {
				return true
			}
			return now.Sub(*last) >= 24*time.Hour
		}
		if last == nil {
			return true
		}
		next := expr.Next(*last)
		return !next.After(now)
	}
}
