package server

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/bricksage/bricksage/internal/cache"
	"github.com/bricksage/bricksage/internal/catalog"
	"github.com/bricksage/bricksage/internal/index"
	"github.com/bricksage/bricksage/internal/ingest"
	"github.com/bricksage/bricksage/internal/search"
	"github.com/bricksage/bricksage/internal/source"
	"github.com/bricksage/bricksage/internal/store"
)

var quiet = log.New(io.Discard, "", 0)

// fakeIngestStore keeps upserted records and run rows in memory.
type fakeIngestStore struct {
	mu      sync.Mutex
	records map[string]catalog.Record
	runs    map[string]store.IngestRun
}

func newFakeIngestStore() *fakeIngestStore {
	return &fakeIngestStore{records: map[string]catalog.Record{}, runs: map[string]store.IngestRun{}}
}

func (s *fakeIngestStore) UpsertRecords(ctx context.Context, recs []catalog.Record) (int, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range recs {
		s.records[r.ID] = r
	}
	return len(recs), 0, nil
}

func (s *fakeIngestStore) CreateIngestRun(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs[id] = store.IngestRun{ID: id, Status: store.RunStatusRunning}
	return nil
}

func (s *fakeIngestStore) FinishIngestRun(ctx context.Context, run store.IngestRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs[run.ID] = run
	return nil
}

// fakeRecordSource serves a fixed record list to the index builder.
type fakeRecordSource struct {
	recs []catalog.Record
}

func (f *fakeRecordSource) ListRecords(ctx context.Context, _ store.RecordFilter) ([]catalog.Record, error) {
	return f.recs, nil
}

// fakeEmbedder maps every text onto the same unit vector, so every record
// matches every query with similarity 1.
type fakeEmbedder struct{}

func (fakeEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, 0, 0}
	}
	return out, nil
}

func (fakeEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	return []float32{1, 0, 0}, nil
}

func (fakeEmbedder) EmbeddingModelName() string { return "fake-embedder" }

func catalogRecord(id, name, theme string) catalog.Record {
	year := 2020
	pieces := 1000
	return catalog.Record{
		ID:           id,
		Source:       "test",
		Name:         name,
		Theme:        &theme,
		Year:         &year,
		PieceCount:   &pieces,
		QualityScore: 80,
	}
}

func newTestBuilder(t *testing.T, recs ...catalog.Record) *index.Builder {
	t.Helper()
	b, err := index.NewBuilder(index.Config{}, &fakeRecordSource{recs: recs}, fakeEmbedder{}, quiet)
	if err != nil {
		t.Fatalf("NewBuilder: %v", err)
	}
	return b
}

func curatedItems(ids ...string) []source.RawItem {
	items := make([]source.RawItem, 0, len(ids))
	for _, id := range ids {
		items = append(items, source.RawItem{"id": id, "name": "Set " + id, "year": 2020, "theme": "City", "pieces": 100})
	}
	return items
}

func TestIngestEndpoint(t *testing.T) {
	st := newFakeIngestStore()
	runner, err := ingest.NewRunner(ingest.Config{},
		[]source.Adapter{source.NewCurated("curated_test", curatedItems("A1", "A2"))},
		st, nil, quiet)
	if err != nil {
		t.Fatalf("NewRunner: %v", err)
	}
	h := &OpsHandler{Runner: runner}

	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/ingest", nil)
	rec := httptest.NewRecorder()
	if err := h.ingest(e.NewContext(req, rec)); err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200 got %d", rec.Code)
	}
	var rep ingest.Report
	if err := json.Unmarshal(rec.Body.Bytes(), &rep); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if rep.Status != store.RunStatusSucceeded || rep.Fetched != 2 || rep.Stored != 2 {
		t.Fatalf("unexpected report: %+v", rep)
	}
	if len(st.records) != 2 {
		t.Fatalf("expected 2 stored records, got %d", len(st.records))
	}
	if got := st.runs[rep.RunID]; got.Status != store.RunStatusSucceeded {
		t.Fatalf("run row not finalized: %+v", got)
	}
}

func TestReindexPublishes(t *testing.T) {
	builder := newTestBuilder(t,
		catalogRecord("id-1", "Millennium Falcon", "Star Wars"),
		catalogRecord("id-2", "Police Station", "City"),
	)
	engine := search.NewEngine(nil, quiet)
	h := &OpsHandler{Builder: builder, Engine: engine, Cache: cache.New(nil, 0, quiet)}

	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/reindex", nil)
	rec := httptest.NewRecorder()
	if err := h.reindex(e.NewContext(req, rec)); err != nil {
		t.Fatalf("reindex: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200 got %d", rec.Code)
	}
	var resp IndexStatusResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp.Ready || resp.Records != 2 || resp.Model != "fake-embedder" {
		t.Fatalf("unexpected status: %+v", resp)
	}
	if !engine.Ready() {
		t.Fatal("engine should have a published index")
	}
}

func TestReindexEmptyCatalog(t *testing.T) {
	builder := newTestBuilder(t)
	engine := search.NewEngine(nil, quiet)
	h := &OpsHandler{Builder: builder, Engine: engine, Cache: cache.New(nil, 0, quiet)}

	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/reindex", nil)
	rec := httptest.NewRecorder()
	err := h.reindex(e.NewContext(req, rec))
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %#v", err)
	}
	if engine.Ready() {
		t.Fatal("empty rebuild must not publish")
	}
}

func TestIndexStatusBeforePublish(t *testing.T) {
	h := &OpsHandler{Engine: search.NewEngine(nil, quiet)}

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/index", nil)
	rec := httptest.NewRecorder()
	if err := h.index(e.NewContext(req, rec)); err != nil {
		t.Fatalf("index: %v", err)
	}
	var resp IndexStatusResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Ready {
		t.Fatalf("expected not ready, got %+v", resp)
	}
}
