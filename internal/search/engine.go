package search

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/bricksage/bricksage/internal/index"
)

var (
	// ErrIndexNotReady is returned before the first index publish.
	ErrIndexNotReady = errors.New("search index not ready")
	// ErrSynthesis wraps LLM failures during answer generation so callers
	// can tell a broken provider from an empty catalog.
	ErrSynthesis = errors.New("answer synthesis failed")
)

// NoMatchAnswer is returned verbatim when no candidate clears the
// similarity threshold, instead of asking the model to invent an answer
// from an empty context.
const NoMatchAnswer = "I could not find any LEGO sets in the catalog matching your question. Try rephrasing it, or ingest more sources first."

const systemPrompt = "You are a LEGO catalog assistant. Answer using only the numbered catalog context provided. " +
	"Cite entries by their [n] marker, mention set names, themes, years and piece counts when relevant, " +
	"and say plainly when the context does not answer the question."

const rrfK = 60

// Completer produces a grounded completion from a system and user prompt.
type Completer interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// AskOptions carries per-request overrides for retrieval tuning. Zero
// values defer to the intent strategy.
type AskOptions struct {
	K         int
	Threshold float64
	Hybrid    bool
}

// Source is one retrieval candidate surfaced alongside the answer.
type Source struct {
	ID     string  `json:"id"`
	Name   string  `json:"name"`
	Theme  string  `json:"theme,omitempty"`
	Year   int     `json:"year,omitempty"`
	Pieces int     `json:"pieces,omitempty"`
	Score  float64 `json:"score"`
	Text   string  `json:"text"`
}

// Analytics summarizes retrieval quality for one query.
type Analytics struct {
	QueryTerms int     `json:"query_terms"`
	Candidates int     `json:"candidates"`
	Matched    int     `json:"matched"`
	Themes     int     `json:"themes_found"`
	Years      int     `json:"years_found"`
	AvgPieces  float64 `json:"avg_pieces"`
	AvgQuality float64 `json:"avg_quality"`
}

// Answer is the synthesized reply plus the evidence that grounded it.
type Answer struct {
	Query        string    `json:"query"`
	Intent       string    `json:"intent"`
	K            int       `json:"k"`
	Threshold    float64   `json:"threshold"`
	Hybrid       bool      `json:"hybrid,omitempty"`
	Text         string    `json:"answer"`
	Sources      []Source  `json:"sources"`
	Analytics    Analytics `json:"analytics"`
	IndexVersion string    `json:"index_version"`
	TookMS       int64     `json:"took_ms"`
	Cached       bool      `json:"cached,omitempty"`
}

// Engine serves catalog questions against the latest published index.
// Publish swaps the whole index value, so in-flight queries finish against
// the index they started with.
type Engine struct {
	llm    Completer
	logger *log.Logger

	mu sync.RWMutex
	ix *index.Index
}

// NewEngine wires a retrieval engine. The index arrives later via Publish.
func NewEngine(llm Completer, logger *log.Logger) *Engine {
	if logger == nil {
		logger = log.New(log.Writer(), "[SEARCH] ", log.LstdFlags)
	}
	return &Engine{llm: llm, logger: logger}
}

// Publish swaps in a freshly built index.
func (e *Engine) Publish(ix *index.Index) {
	e.mu.Lock()
	e.ix = ix
	e.mu.Unlock()
}

// Current returns the published index, or nil before the first publish.
func (e *Engine) Current() *index.Index {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.ix
}

// Ready reports whether an index has been published.
func (e *Engine) Ready() bool { return e.Current() != nil }

// Ask answers a free-text question about the catalog. Candidates below the
// similarity threshold are dropped before synthesis; when nothing survives
// the engine returns NoMatchAnswer without calling the model.
func (e *Engine) Ask(ctx context.Context, query string, opts AskOptions) (*Answer, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("query required")
	}
	ix := e.Current()
	if ix == nil {
		return nil, ErrIndexNotReady
	}

	started := time.Now()
	strat := ClassifyIntent(query)
	k, threshold := strat.K, strat.Threshold
	if opts.K > 0 {
		k = opts.K
	}
	if opts.Threshold > 0 {
		threshold = opts.Threshold
	}

	hits, err := ix.VectorSearch(ctx, query, k)
	if err != nil {
		return nil, fmt.Errorf("retrieve candidates: %w", err)
	}
	candidates := len(hits)
	kept := make([]index.Hit, 0, len(hits))
	for _, h := range hits {
		if h.Score > threshold {
			kept = append(kept, h)
		}
	}
	if opts.Hybrid {
		kept = e.fuseKeyword(ix, query, k, kept)
	}

	ans := &Answer{
		Query:        query,
		Intent:       strat.Intent,
		K:            k,
		Threshold:    threshold,
		Hybrid:       opts.Hybrid,
		Analytics:    buildAnalytics(query, candidates, kept),
		IndexVersion: ix.Version(),
	}
	ans.Sources = make([]Source, 0, len(kept))
	for _, h := range kept {
		ans.Sources = append(ans.Sources, Source{
			ID:     h.Entry.ID,
			Name:   h.Entry.Name,
			Theme:  h.Entry.Theme,
			Year:   h.Entry.Year,
			Pieces: h.Entry.Pieces,
			Score:  h.Score,
			Text:   h.Entry.Text,
		})
	}

	if len(kept) == 0 {
		ans.Text = NoMatchAnswer
		ans.TookMS = time.Since(started).Milliseconds()
		return ans, nil
	}

	text, err := e.llm.Complete(ctx, systemPrompt, buildUserPrompt(query, kept))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSynthesis, err)
	}
	ans.Text = strings.TrimSpace(text)
	ans.TookMS = time.Since(started).Milliseconds()
	e.logger.Printf("answered %q: intent=%s matched=%d/%d in %dms",
		query, strat.Intent, len(kept), candidates, ans.TookMS)
	return ans, nil
}

// fuseKeyword merges BM25 keyword ranks into the threshold-filtered vector
// hits via reciprocal rank fusion. The similarity gate applies to the
// vector side only; keyword hits carry incomparable BM25 scores and enter
// on rank alone. Keyword search failures degrade to vector-only results.
func (e *Engine) fuseKeyword(ix *index.Index, query string, k int, vector []index.Hit) []index.Hit {
	keyword, err := ix.KeywordSearch(keywordTerms(query), k)
	if err != nil {
		e.logger.Printf("warn: keyword search failed, using vector hits only: %v", err)
		return vector
	}
	if len(keyword) == 0 {
		return vector
	}

	type agg struct {
		hit   index.Hit
		score float64
	}
	fused := make(map[string]*agg, len(vector)+len(keyword))
	add := func(list []index.Hit) {
		for _, h := range list {
			a, ok := fused[h.Entry.ID]
			if !ok {
				a = &agg{hit: h}
				fused[h.Entry.ID] = a
			}
			a.score += 1.0 / float64(rrfK+h.Rank)
		}
	}
	add(vector)
	add(keyword)

	out := make([]index.Hit, 0, len(fused))
	for _, a := range fused {
		h := a.hit
		h.Score = a.score
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if len(out) > k {
		out = out[:k]
	}
	for i := range out {
		out[i].Rank = i + 1
	}
	return out
}

// keywordTerms strips query-string operators so raw user questions cannot
// break the BM25 parser.
func keywordTerms(q string) string {
	fields := strings.FieldsFunc(strings.ToLower(q), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	return strings.Join(fields, " ")
}

func buildUserPrompt(query string, hits []index.Hit) string {
	var b strings.Builder
	b.WriteString("Catalog context:\n")
	for i, h := range hits {
		fmt.Fprintf(&b, "[%d] %s\n", i+1, h.Entry.Text)
	}
	b.WriteString("\nQuestion: ")
	b.WriteString(query)
	return b.String()
}

func buildAnalytics(query string, candidates int, hits []index.Hit) Analytics {
	a := Analytics{
		QueryTerms: len(strings.Fields(query)),
		Candidates: candidates,
		Matched:    len(hits),
	}
	themes := map[string]struct{}{}
	years := map[int]struct{}{}
	var pieces, quality, nPieces, nQuality int
	for _, h := range hits {
		themes[h.Entry.Theme] = struct{}{}
		years[h.Entry.Year] = struct{}{}
		if h.Entry.Pieces > 0 {
			pieces += h.Entry.Pieces
			nPieces++
		}
		if h.Entry.Quality > 0 {
			quality += h.Entry.Quality
			nQuality++
		}
	}
	a.Themes = len(themes)
	a.Years = len(years)
	if nPieces > 0 {
		a.AvgPieces = float64(pieces) / float64(nPieces)
	}
	if nQuality > 0 {
		a.AvgQuality = float64(quality) / float64(nQuality)
	}
	return a
}
