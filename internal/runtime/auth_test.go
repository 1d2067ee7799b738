package runtime

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/bricksage/bricksage/config"
)

func runMiddleware(t *testing.T, secret []byte, build func(*http.Request)) (echo.Context, error) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/stats", nil)
	if build != nil {
		build(req)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	handler := EchoAuthMiddleware(secret)(func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	return c, handler(c)
}

func TestSignAndVerify(t *testing.T) {
	secret := []byte("test-secret")
	tok, err := SignJWT("user-42", secret, time.Minute)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	c, err := runMiddleware(t, secret, func(req *http.Request) {
		req.Header.Set("Authorization", "Bearer "+tok)
	})
	if err != nil {
		t.Fatalf("middleware rejected valid token: %v", err)
	}
	if got := c.Get("user_id"); got != "user-42" {
		t.Fatalf("user_id = %v, want user-42", got)
	}
	if sub, ok := SubjectFromContext(c.Request().Context()); !ok || sub != "user-42" {
		t.Fatalf("SubjectFromContext = %q, %v", sub, ok)
	}
}

func TestMiddlewareAcceptsCookie(t *testing.T) {
	secret := []byte("test-secret")
	tok, err := SignJWT("user-7", secret, time.Minute)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	c, err := runMiddleware(t, secret, func(req *http.Request) {
		req.AddCookie(&http.Cookie{Name: "auth", Value: tok})
	})
	if err != nil {
		t.Fatalf("middleware rejected cookie token: %v", err)
	}
	if got := c.Get("user_id"); got != "user-7" {
		t.Fatalf("user_id = %v, want user-7", got)
	}
}

func TestMiddlewareRejectsMissingToken(t *testing.T) {
	_, err := runMiddleware(t, []byte("s"), nil)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusUnauthorized {
		t.Fatalf("want 401 HTTPError, got %v", err)
	}
}

func TestMiddlewareRejectsForgedToken(t *testing.T) {
	tok, err := SignJWT("intruder", []byte("other-secret"), time.Minute)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	_, err = runMiddleware(t, []byte("real-secret"), func(req *http.Request) {
		req.Header.Set("Authorization", "Bearer "+tok)
	})
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusUnauthorized {
		t.Fatalf("want 401 HTTPError, got %v", err)
	}
}

func TestMiddlewareRejectsExpiredToken(t *testing.T) {
	secret := []byte("test-secret")
	tok, err := SignJWT("user-1", secret, -time.Minute)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	_, err = runMiddleware(t, secret, func(req *http.Request) {
		req.Header.Set("Authorization", "Bearer "+tok)
	})
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusUnauthorized {
		t.Fatalf("want 401 HTTPError, got %v", err)
	}
}

func TestLoadJWTSecret(t *testing.T) {
	cfg := &config.Config{}
	if _, err := LoadJWTSecret(cfg); err == nil {
		t.Fatal("want error for missing secret")
	}
	cfg.Server.JWTSecret = "abc"
	secret, err := LoadJWTSecret(cfg)
	if err != nil {
		t.Fatalf("LoadJWTSecret: %v", err)
	}
	if string(secret) != "abc" {
		t.Fatalf("secret = %q", secret)
	}
}
