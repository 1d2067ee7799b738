package cache

import (
	"context"
	"testing"

	"github.com/bricksage/bricksage/internal/search"
)

func TestAnswerKeyNormalizesQuery(t *testing.T) {
	a := AnswerKey("Star Wars sets", 10, 0.7, false)
	b := AnswerKey("  star   WARS sets ", 10, 0.7, false)
	if a != b {
		t.Fatalf("expected case/whitespace variants to share a key: %s vs %s", a, b)
	}
	if AnswerKey("star wars sets", 5, 0.7, false) == a {
		t.Fatal("expected k to distinguish keys")
	}
	if AnswerKey("star wars sets", 10, 0.8, false) == a {
		t.Fatal("expected threshold to distinguish keys")
	}
	if AnswerKey("star wars sets", 10, 0.7, true) == a {
		t.Fatal("expected hybrid flag to distinguish keys")
	}
}

func TestDisabledCacheNoOps(t *testing.T) {
	ctx := context.Background()
	c := New(nil, 0, nil)

	key := AnswerKey("anything", 8, 0.8, false)
	if _, ok := c.GetAnswer(ctx, key); ok {
		t.Fatal("disabled cache must always miss")
	}
	c.PutAnswer(ctx, key, &search.Answer{Query: "anything", Text: "hi"})
	if _, ok := c.GetAnswer(ctx, key); ok {
		t.Fatal("disabled cache must not retain writes")
	}
	if _, ok := c.GetStats(ctx); ok {
		t.Fatal("disabled cache must miss stats")
	}
	c.Invalidate(ctx)

	var nilCache *Cache
	if _, ok := nilCache.GetAnswer(ctx, key); ok {
		t.Fatal("nil cache must miss")
	}
	nilCache.PutAnswer(ctx, key, nil)
	nilCache.Invalidate(ctx)
}
