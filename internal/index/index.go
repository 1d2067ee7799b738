package index

import (
	"context"
	"fmt"
	"time"

	"github.com/blevesearch/bleve"
	chromem "github.com/philippgille/chromem-go"
)

const collectionName = "catalog"

// Hit pairs an indexed entry with its retrieval score and rank. Vector hits
// carry cosine similarity in [0,1]; keyword hits carry raw BM25 scores, so
// only ranks are comparable across the two.
type Hit struct {
	Entry Entry
	Score float64
	Rank  int
}

// Index is an immutable search structure over the catalog. Builders produce
// a complete replacement and callers swap the whole value, so no method here
// mutates state after construction.
type Index struct {
	version string
	builtAt time.Time
	model   string
	dims    int

	entries []Entry
	byID    map[string]Entry
	coll    *chromem.Collection
	keyword bleve.Index
}

type keywordDoc struct {
	Text string
}

func newIndex(ctx context.Context, entries []Entry, man Manifest, embedQuery chromem.EmbeddingFunc) (*Index, error) {
	db := chromem.NewDB()
	coll, err := db.GetOrCreateCollection(collectionName, nil, embedQuery)
	if err != nil {
		return nil, fmt.Errorf("create collection: %w", err)
	}
	keyword, err := bleve.NewMemOnly(bleve.NewIndexMapping())
	if err != nil {
		return nil, fmt.Errorf("create keyword index: %w", err)
	}
	byID := make(map[string]Entry, len(entries))
	for _, e := range entries {
		if err := coll.AddDocument(ctx, chromem.Document{
			ID:        e.ID,
			Content:   e.Text,
			Embedding: e.Vector,
			Metadata:  map[string]string{"source": e.Source, "theme": e.Theme},
		}); err != nil {
			return nil, fmt.Errorf("add document %s: %w", e.ID, err)
		}
		if err := keyword.Index(e.ID, keywordDoc{Text: e.Text}); err != nil {
			return nil, fmt.Errorf("index document %s: %w", e.ID, err)
		}
		byID[e.ID] = e
	}
	return &Index{
		version: man.Version,
		builtAt: man.BuiltAt,
		model:   man.Model,
		dims:    man.Dimensions,
		entries: entries,
		byID:    byID,
		coll:    coll,
		keyword: keyword,
	}, nil
}

// Size returns the number of indexed records.
func (ix *Index) Size() int { return len(ix.entries) }

// Version returns the identifier assigned when this index was built.
func (ix *Index) Version() string { return ix.version }

// BuiltAt returns when the index was built.
func (ix *Index) BuiltAt() time.Time { return ix.builtAt }

// Model returns the embedding model the vectors were produced with.
func (ix *Index) Model() string { return ix.model }

// Dimensions returns the embedding vector width.
func (ix *Index) Dimensions() int { return ix.dims }

// VectorSearch embeds the query and returns the k most similar entries,
// best first. k is clamped to the collection size.
func (ix *Index) VectorSearch(ctx context.Context, query string, k int) ([]Hit, error) {
	n := ix.coll.Count()
	if n == 0 || k <= 0 {
		return nil, nil
	}
	if k > n {
		k = n
	}
	results, err := ix.coll.Query(ctx, query, k, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("query collection: %w", err)
	}
	hits := make([]Hit, 0, len(results))
	for i, r := range results {
		e, ok := ix.byID[r.ID]
		if !ok {
			continue
		}
		hits = append(hits, Hit{Entry: e, Score: float64(r.Similarity), Rank: i + 1})
	}
	return hits, nil
}

// KeywordSearch runs a BM25 query-string search and returns up to k entries,
// best first.
func (ix *Index) KeywordSearch(query string, k int) ([]Hit, error) {
	if k <= 0 {
		return nil, nil
	}
	q := bleve.NewQueryStringQuery(query)
	req := bleve.NewSearchRequestOptions(q, k*3, 0, false)
	res, err := ix.keyword.Search(req)
	if err != nil {
		return nil, fmt.Errorf("keyword search: %w", err)
	}
	var out []Hit
	for i, hit := range res.Hits {
		e, ok := ix.byID[hit.ID]
		if !ok {
			continue
		}
		out = append(out, Hit{Entry: e, Score: hit.Score, Rank: i + 1})
		if len(out) >= k {
			break
		}
	}
	return out, nil
}
