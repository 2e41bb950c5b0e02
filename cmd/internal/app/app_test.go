package app

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func newMemoryApp(t *testing.T, cfg Config) *App {
	t.Helper()

	cfg.DatabaseURL = ""
	a, err := New(cfg, discardLogger())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return a
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestApp_HealthAndReadiness(t *testing.T) {
	a := newMemoryApp(t, Config{})
	h := a.Handler()

	if rec := do(t, h, http.MethodGet, "/healthz", ""); rec.Code != http.StatusOK {
		t.Fatalf("healthz: status = %d", rec.Code)
	}
	if rec := do(t, h, http.MethodGet, "/readyz", ""); rec.Code != http.StatusOK {
		t.Fatalf("readyz: status = %d", rec.Code)
	}

	strict := newMemoryApp(t, Config{ReadinessRequireDB: true})
	if rec := do(t, strict.Handler(), http.MethodGet, "/readyz", ""); rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("readyz without db: status = %d, want 503", rec.Code)
	}
}

func TestApp_RegisterLoginVoteFlow(t *testing.T) {
	a := newMemoryApp(t, Config{})
	h := a.Handler()

	if rec := do(t, h, http.MethodPost, "/auth/register", `{"username":"ada","password":"pw123"}`); rec.Code != http.StatusCreated {
		t.Fatalf("register: status = %d (body %s)", rec.Code, rec.Body)
	}
	if rec := do(t, h, http.MethodPost, "/auth/login", `{"username":"ada","password":"pw123"}`); rec.Code != http.StatusOK {
		t.Fatalf("login: status = %d (body %s)", rec.Code, rec.Body)
	}

	rec := do(t, h, http.MethodPost, "/posts", `{"title":"hello"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create post: status = %d (body %s)", rec.Code, rec.Body)
	}
	var created struct {
		ID int64 `json:"id"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode post: %v", err)
	}

	rec = do(t, h, http.MethodPost, fmt.Sprintf("/posts/%d/upvote", created.ID), "")
	if rec.Code != http.StatusOK {
		t.Fatalf("upvote: status = %d (body %s)", rec.Code, rec.Body)
	}
	var vote struct {
		Count   int  `json:"count"`
		Upvoted bool `json:"upvoted"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &vote); err != nil {
		t.Fatalf("decode vote: %v", err)
	}
	if vote.Count != 1 || !vote.Upvoted {
		t.Fatalf("vote = %+v", vote)
	}
}

func TestApp_MetricsEndpoint(t *testing.T) {
	a := newMemoryApp(t, Config{})
	h := a.Handler()

	do(t, h, http.MethodGet, "/posts", "")

	rec := do(t, h, http.MethodGet, "/metrics", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("metrics: status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "upvote_http_requests_total") {
		t.Fatal("metrics output missing request counter")
	}
}

func TestSeedAccount(t *testing.T) {
	a := newMemoryApp(t, Config{SeedUsername: "admin", SeedPassword: "pw123"})

	if err := seedAccount(t.Context(), discardLogger(), a.identity, a.cfg); err != nil {
		t.Fatalf("seed: %v", err)
	}
	// Idempotent on a second boot.
	if err := seedAccount(t.Context(), discardLogger(), a.identity, a.cfg); err != nil {
		t.Fatalf("second seed: %v", err)
	}

	rec := do(t, a.Handler(), http.MethodPost, "/auth/login", `{"username":"admin","password":"pw123"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("seeded login: status = %d (body %s)", rec.Code, rec.Body)
	}
}
