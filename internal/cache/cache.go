// Package cache is the redis-backed read cache for synthesized answers and
// catalog stats. Entries are keyed by normalized query parameters and
// invalidated manually whenever ingestion or a rebuild mutates the catalog.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/bricksage/bricksage/internal/search"
	"github.com/bricksage/bricksage/internal/store"
)

const (
	answerPrefix = "bricksage:answer:"
	statsKey     = "bricksage:stats"

	// DefaultTTL bounds staleness between ingest runs.
	DefaultTTL = 10 * time.Minute
)

// Cache wraps a redis client. A nil Cache (or one built without a client)
// disables caching: every Get misses and every Put is a no-op, so callers
// never branch on whether redis is configured.
type Cache struct {
	rdb    *redis.Client
	ttl    time.Duration
	logger *log.Logger
}

// New wires an answer/stats cache. rdb may be nil to disable caching.
func New(rdb *redis.Client, ttl time.Duration, logger *log.Logger) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if logger == nil {
		logger = log.New(log.Writer(), "[CACHE] ", log.LstdFlags)
	}
	return &Cache{rdb: rdb, ttl: ttl, logger: logger}
}

func (c *Cache) enabled() bool { return c != nil && c.rdb != nil }

// AnswerKey derives the cache key for one query/parameter tuple. The query
// is case- and whitespace-normalized so trivial rephrasings share an entry.
func AnswerKey(query string, k int, threshold float64, hybrid bool) string {
	norm := strings.Join(strings.Fields(strings.ToLower(query)), " ")
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s|%d|%.3f|%t", norm, k, threshold, hybrid)))
	return answerPrefix + hex.EncodeToString(sum[:16])
}

// GetAnswer returns a cached answer for key, or false on any miss or error.
func (c *Cache) GetAnswer(ctx context.Context, key string) (*search.Answer, bool) {
	if !c.enabled() {
		return nil, false
	}
	raw, err := c.rdb.Get(ctx, key).Bytes()
	if err != nil {
		return nil, false
	}
	var ans search.Answer
	if err := json.Unmarshal(raw, &ans); err != nil {
		c.logger.Printf("warn: dropping undecodable answer cache entry: %v", err)
		c.rdb.Del(ctx, key)
		return nil, false
	}
	return &ans, true
}

// PutAnswer stores an answer under key. Failures are logged, not surfaced:
// a broken cache must never fail a request that already has an answer.
func (c *Cache) PutAnswer(ctx context.Context, key string, ans *search.Answer) {
	if !c.enabled() || ans == nil {
		return
	}
	raw, err := json.Marshal(ans)
	if err != nil {
		c.logger.Printf("warn: encode answer for cache: %v", err)
		return
	}
	if err := c.rdb.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		c.logger.Printf("warn: cache answer: %v", err)
	}
}

// GetStats returns cached catalog stats, or false on any miss or error.
func (c *Cache) GetStats(ctx context.Context) (*store.CatalogStats, bool) {
	if !c.enabled() {
		return nil, false
	}
	raw, err := c.rdb.Get(ctx, statsKey).Bytes()
	if err != nil {
		return nil, false
	}
	var stats store.CatalogStats
	if err := json.Unmarshal(raw, &stats); err != nil {
		c.rdb.Del(ctx, statsKey)
		return nil, false
	}
	return &stats, true
}

// PutStats stores catalog stats.
func (c *Cache) PutStats(ctx context.Context, stats *store.CatalogStats) {
	if !c.enabled() || stats == nil {
		return
	}
	raw, err := json.Marshal(stats)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, statsKey, raw, c.ttl).Err(); err != nil {
		c.logger.Printf("warn: cache stats: %v", err)
	}
}

// Invalidate drops every cached answer and the stats entry. Called after
// ingestion or an index rebuild changes what queries should see.
func (c *Cache) Invalidate(ctx context.Context) {
	if !c.enabled() {
		return
	}
	if err := c.rdb.Del(ctx, statsKey).Err(); err != nil && err != redis.Nil {
		c.logger.Printf("warn: invalidate stats cache: %v", err)
	}
	iter := c.rdb.Scan(ctx, 0, answerPrefix+"*", 100).Iterator()
	dropped := 0
	for iter.Next(ctx) {
		if err := c.rdb.Del(ctx, iter.Val()).Err(); err == nil {
			dropped++
		}
	}
	if err := iter.Err(); err != nil {
		c.logger.Printf("warn: scan answer cache: %v", err)
		return
	}
	if dropped > 0 {
		c.logger.Printf("invalidated %d cached answers", dropped)
	}
}
