package authapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"upvote/cmd/identity"
	"upvote/cmd/security/password"
)

func testPasswordConfig() password.Config {
	cfg := password.DefaultConfig()
	cfg.Params.MemoryKiB = 8 * 1024
	cfg.Params.Iterations = 1
	cfg.Params.Parallelism = 1
	return cfg
}

func newTestMux(t *testing.T) (*http.ServeMux, *identity.Service) {
	t.Helper()

	svc := identity.NewService(identity.NewMemoryStore(), nil, testPasswordConfig())
	h, err := NewHandler(nil, svc, testPasswordConfig(), Config{})
	if err != nil {
		t.Fatalf("NewHandler: %v", err)
	}

	mux := http.NewServeMux()
	h.Register(mux)
	return mux, svc
}

func doJSON(t *testing.T, mux *http.ServeMux, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func TestRegister_CreatesAccount(t *testing.T) {
	t.Parallel()

	mux, _ := newTestMux(t)

	rec := doJSON(t, mux, http.MethodPost, "/auth/register",
		`{"first_name":"Ada","last_name":"Lovelace","username":"ada","password":"pw123"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d (body %s)", rec.Code, http.StatusCreated, rec.Body)
	}

	var resp registerResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.User.Username != "ada" {
		t.Fatalf("username = %q, want %q", resp.User.Username, "ada")
	}
	if resp.User.Role != identity.RoleUser {
		t.Fatalf("role = %q, want %q", resp.User.Role, identity.RoleUser)
	}
}

func TestRegister_DuplicateUsernameConflicts(t *testing.T) {
	t.Parallel()

	mux, _ := newTestMux(t)

	if rec := doJSON(t, mux, http.MethodPost, "/auth/register", `{"username":"ada","password":"pw123"}`); rec.Code != http.StatusCreated {
		t.Fatalf("first register: status = %d", rec.Code)
	}
	rec := doJSON(t, mux, http.MethodPost, "/auth/register", `{"username":"ada","password":"other"}`)
	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusConflict)
	}
}

func TestRegister_MissingFields(t *testing.T) {
	t.Parallel()

	mux, _ := newTestMux(t)

	for _, body := range []string{
		`{"username":"","password":"pw123"}`,
		`{"username":"ada","password":""}`,
		`not json`,
	} {
		rec := doJSON(t, mux, http.MethodPost, "/auth/register", body)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("body %q: status = %d, want %d", body, rec.Code, http.StatusBadRequest)
		}
	}
}

func TestLogin_Succeeds(t *testing.T) {
	t.Parallel()

	mux, _ := newTestMux(t)
	doJSON(t, mux, http.MethodPost, "/auth/register", `{"username":"ada","password":"pw123"}`)

	rec := doJSON(t, mux, http.MethodPost, "/auth/login", `{"username":"ada","password":"pw123"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d (body %s)", rec.Code, http.StatusOK, rec.Body)
	}

	var resp loginResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Authority != "ROLE_USER" {
		t.Fatalf("authority = %q, want %q", resp.Authority, "ROLE_USER")
	}
	if resp.User.Username != "ada" {
		t.Fatalf("username = %q, want %q", resp.User.Username, "ada")
	}
}

func TestLogin_WrongPassword(t *testing.T) {
	t.Parallel()

	mux, _ := newTestMux(t)
	doJSON(t, mux, http.MethodPost, "/auth/register", `{"username":"ada","password":"pw123"}`)

	rec := doJSON(t, mux, http.MethodPost, "/auth/login", `{"username":"ada","password":"nope"}`)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}

func TestLogin_UnknownUser(t *testing.T) {
	t.Parallel()

	mux, _ := newTestMux(t)

	rec := doJSON(t, mux, http.MethodPost, "/auth/login", `{"username":"ghost","password":"pw123"}`)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}

func TestOIDCCallback_UpsertsOnce(t *testing.T) {
	t.Parallel()

	mux, _ := newTestMux(t)

	first := doJSON(t, mux, http.MethodPost, "/auth/oidc/callback", `{"email":"bob@example.com","subject":"sub-1"}`)
	if first.Code != http.StatusOK {
		t.Fatalf("first callback: status = %d (body %s)", first.Code, first.Body)
	}
	second := doJSON(t, mux, http.MethodPost, "/auth/oidc/callback", `{"email":"bob@example.com","subject":"sub-1"}`)
	if second.Code != http.StatusOK {
		t.Fatalf("second callback: status = %d", second.Code)
	}

	var a, b oidcCallbackResponse
	if err := json.Unmarshal(first.Body.Bytes(), &a); err != nil {
		t.Fatalf("decode first: %v", err)
	}
	if err := json.Unmarshal(second.Body.Bytes(), &b); err != nil {
		t.Fatalf("decode second: %v", err)
	}
	if a.User.Username != "bob@example.com" || b.User.Username != a.User.Username {
		t.Fatalf("usernames = %q, %q; want both %q", a.User.Username, b.User.Username, "bob@example.com")
	}
}

func TestOIDCCallback_FallsBackToSubject(t *testing.T) {
	t.Parallel()

	mux, _ := newTestMux(t)

	rec := doJSON(t, mux, http.MethodPost, "/auth/oidc/callback", `{"email":"","subject":"sub-42"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d (body %s)", rec.Code, rec.Body)
	}

	var resp oidcCallbackResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.User.Username != "sub-42" {
		t.Fatalf("username = %q, want %q", resp.User.Username, "sub-42")
	}
}

func TestOIDCCallback_MissingIdentifiers(t *testing.T) {
	t.Parallel()

	mux, _ := newTestMux(t)

	rec := doJSON(t, mux, http.MethodPost, "/auth/oidc/callback", `{"email":"  ","subject":""}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestFederatedAccountCannotPasswordLogin(t *testing.T) {
	t.Parallel()

	mux, _ := newTestMux(t)
	doJSON(t, mux, http.MethodPost, "/auth/oidc/callback", `{"email":"bob@example.com"}`)

	// No password ever matches an account that has no stored hash.
	rec := doJSON(t, mux, http.MethodPost, "/auth/login", `{"username":"bob@example.com","password":""}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("empty password: status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
	rec = doJSON(t, mux, http.MethodPost, "/auth/login", `{"username":"bob@example.com","password":"anything"}`)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}

func TestAuthEndpoints_MethodNotAllowed(t *testing.T) {
	t.Parallel()

	mux, _ := newTestMux(t)

	for _, path := range []string{"/auth/register", "/auth/login", "/auth/oidc/callback"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)
		if rec.Code != http.StatusMethodNotAllowed {
			t.Fatalf("%s: status = %d, want %d", path, rec.Code, http.StatusMethodNotAllowed)
		}
	}
}
