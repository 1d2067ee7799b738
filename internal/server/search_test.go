package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/bricksage/bricksage/internal/cache"
	"github.com/bricksage/bricksage/internal/search"
)

type fakeCompleter struct {
	reply string
	err   error
	calls int
}

func (f *fakeCompleter) Complete(ctx context.Context, system, user string) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

func newSearchTest(t *testing.T, llm *fakeCompleter, publish bool) *SearchHandler {
	t.Helper()
	engine := search.NewEngine(llm, quiet)
	if publish {
		builder := newTestBuilder(t,
			catalogRecord("id-1", "Millennium Falcon", "Star Wars"),
			catalogRecord("id-2", "Police Station", "City"),
		)
		ix, err := builder.Rebuild(context.Background())
		if err != nil {
			t.Fatalf("Rebuild: %v", err)
		}
		engine.Publish(ix)
	}
	return &SearchHandler{Engine: engine, Cache: cache.New(nil, 0, quiet)}
}

func TestAskEndpoint(t *testing.T) {
	llm := &fakeCompleter{reply: "The Millennium Falcon [1] is the biggest Star Wars set."}
	h := newSearchTest(t, llm, true)

	e := echo.New()
	req, rec := postJSON("/api/ask", `{"query":"star wars sets"}`)
	if err := h.ask(e.NewContext(req, rec)); err != nil {
		t.Fatalf("ask: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200 got %d", rec.Code)
	}
	var ans search.Answer
	if err := json.Unmarshal(rec.Body.Bytes(), &ans); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if ans.Text != llm.reply {
		t.Fatalf("unexpected answer: %q", ans.Text)
	}
	if ans.Intent != search.IntentTheme {
		t.Fatalf("expected theme intent, got %q", ans.Intent)
	}
	if len(ans.Sources) == 0 {
		t.Fatal("expected cited sources")
	}
	if ans.Cached {
		t.Fatal("fresh answer must not report cached")
	}
	if llm.calls != 1 {
		t.Fatalf("expected one completion call, got %d", llm.calls)
	}
}

func TestAskEndpointEmptyQuery(t *testing.T) {
	h := newSearchTest(t, &fakeCompleter{}, true)

	e := echo.New()
	req, rec := postJSON("/api/ask", `{"query":"   "}`)
	err := h.ask(e.NewContext(req, rec))
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %#v", err)
	}
}

func TestAskEndpointIndexNotReady(t *testing.T) {
	h := newSearchTest(t, &fakeCompleter{}, false)

	e := echo.New()
	req, rec := postJSON("/api/ask", `{"query":"star wars sets"}`)
	err := h.ask(e.NewContext(req, rec))
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %#v", err)
	}
}

func TestAskEndpointSynthesisFailure(t *testing.T) {
	h := newSearchTest(t, &fakeCompleter{err: errors.New("model overloaded")}, true)

	e := echo.New()
	req, rec := postJSON("/api/ask", `{"query":"star wars sets"}`)
	err := h.ask(e.NewContext(req, rec))
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %#v", err)
	}
}

func TestAskEndpointOverrides(t *testing.T) {
	llm := &fakeCompleter{reply: "ok"}
	h := newSearchTest(t, llm, true)

	e := echo.New()
	req, rec := postJSON("/api/ask", `{"query":"star wars sets","k":1,"threshold":0.5}`)
	if err := h.ask(e.NewContext(req, rec)); err != nil {
		t.Fatalf("ask: %v", err)
	}
	var ans search.Answer
	if err := json.Unmarshal(rec.Body.Bytes(), &ans); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if ans.K != 1 || ans.Threshold != 0.5 {
		t.Fatalf("overrides not applied: %+v", ans)
	}
	if len(ans.Sources) != 1 {
		t.Fatalf("expected 1 source with k=1, got %d", len(ans.Sources))
	}
}
