package index

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	chromem "github.com/philippgille/chromem-go"

	"github.com/bricksage/bricksage/internal/catalog"
	"github.com/bricksage/bricksage/internal/store"
)

// ErrEmptyCatalog is returned by Rebuild when the store has no records, so
// callers can keep serving whatever index they already hold.
var ErrEmptyCatalog = errors.New("catalog has no records to index")

// RecordSource lists catalog records for indexing.
type RecordSource interface {
	ListRecords(ctx context.Context, filter store.RecordFilter) ([]catalog.Record, error)
}

// Embedder turns text into embedding vectors.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
	EmbeddingModelName() string
}

// Config controls index construction and persistence.
type Config struct {
	// Dir is the snapshot directory. Empty disables persistence.
	Dir string
	// BatchSize bounds how many texts go into one embedding request.
	BatchSize int
	// DetailCap bounds the details payload carried into the search text.
	DetailCap int
}

// Builder produces Index values from the catalog store.
type Builder struct {
	records RecordSource
	embed   Embedder
	cfg     Config
	logger  *log.Logger
}

// NewBuilder wires a builder. Zero config fields get working defaults.
func NewBuilder(cfg Config, records RecordSource, embed Embedder, logger *log.Logger) (*Builder, error) {
	if records == nil {
		return nil, errors.New("index builder requires a record source")
	}
	if embed == nil {
		return nil, errors.New("index builder requires an embedder")
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 32
	}
	if cfg.DetailCap <= 0 {
		cfg.DetailCap = 500
	}
	if logger == nil {
		logger = log.New(log.Writer(), "[INDEX] ", log.LstdFlags)
	}
	return &Builder{records: records, embed: embed, cfg: cfg, logger: logger}, nil
}

// Rebuild loads every catalog record, embeds the rendered texts and returns
// a freshly built index, persisting a snapshot when configured. Any failure
// leaves the previous index and snapshot untouched: callers swap in the
// returned value only after Rebuild succeeds.
func (b *Builder) Rebuild(ctx context.Context) (*Index, error) {
	started := time.Now()
	records, err := b.records.ListRecords(ctx, store.RecordFilter{})
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	if len(records) == 0 {
		return nil, ErrEmptyCatalog
	}

	entries := make([]Entry, len(records))
	texts := make([]string, len(records))
	for i, rec := range records {
		entries[i] = NewEntry(rec, b.cfg.DetailCap)
		texts[i] = entries[i].Text
	}

	for start := 0; start < len(texts); start += b.cfg.BatchSize {
		end := start + b.cfg.BatchSize
		if end > len(texts) {
			end = len(texts)
		}
		chunk := texts[start:end]
		vectors, err := b.embed.Embed(ctx, chunk)
		if err != nil {
			return nil, fmt.Errorf("embed records %d-%d: %w", start, end-1, err)
		}
		if len(vectors) != len(chunk) {
			return nil, fmt.Errorf("embed records: expected %d vectors, got %d", len(chunk), len(vectors))
		}
		for j, vec := range vectors {
			entries[start+j].Vector = vec
		}
	}

	man := Manifest{
		Version:    uuid.NewString(),
		BuiltAt:    time.Now().UTC(),
		Records:    len(entries),
		Model:      b.embed.EmbeddingModelName(),
		Dimensions: len(entries[0].Vector),
	}
	ix, err := newIndex(ctx, entries, man, b.queryFunc())
	if err != nil {
		return nil, err
	}
	if b.cfg.Dir != "" {
		if err := writeSnapshot(b.cfg.Dir, entries, man); err != nil {
			return nil, fmt.Errorf("persist snapshot: %w", err)
		}
	}
	b.logger.Printf("index rebuilt: %d records, %d dims in %s",
		len(entries), man.Dimensions, time.Since(started).Round(time.Millisecond))
	return ix, nil
}

// Load restores the latest snapshot from disk without touching the embedding
// API. It returns an error satisfying errors.Is(err, os.ErrNotExist) when no
// snapshot has been written yet.
func (b *Builder) Load(ctx context.Context) (*Index, error) {
	entries, man, err := readSnapshot(b.cfg.Dir)
	if err != nil {
		return nil, err
	}
	ix, err := newIndex(ctx, entries, man, b.queryFunc())
	if err != nil {
		return nil, err
	}
	b.logger.Printf("index loaded from snapshot: %d records (built %s)",
		len(entries), man.BuiltAt.Format(time.RFC3339))
	return ix, nil
}

func (b *Builder) queryFunc() chromem.EmbeddingFunc {
	return func(ctx context.Context, text string) ([]float32, error) {
		return b.embed.EmbedQuery(ctx, text)
	}
}
