// Package authapi exposes the account endpoints: registration, password
// login, and the federated login callback.
package authapi

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"upvote/cmd/identity"
	"upvote/cmd/security/password"
)

// Handler wires HTTP auth endpoints to the identity service.
type Handler struct {
	log *slog.Logger
	cfg Config

	identity *identity.Service

	dummyHash string
}

// NewHandler constructs an auth Handler.
func NewHandler(log *slog.Logger, svc *identity.Service, pw password.Config, cfg Config) (*Handler, error) {
	if log == nil {
		log = slog.Default()
	}
	if svc == nil {
		return nil, errors.New("auth: nil identity service")
	}

	h := &Handler{
		log:      log,
		cfg:      cfg.withDefaults(),
		identity: svc,
	}

	// Dummy hash for timing-resistant login checks against unknown usernames.
	if hash, err := pw.Hash("dummy-password-for-timing-only"); err == nil {
		h.dummyHash = hash
	}

	return h, nil
}

// Register wires auth routes onto the provided mux.
func (h *Handler) Register(mux *http.ServeMux) {
	if h == nil || mux == nil {
		return
	}
	mux.HandleFunc("/auth/register", h.handleRegister)
	mux.HandleFunc("/auth/login", h.handleLogin)
	mux.HandleFunc("/auth/oidc/callback", h.handleOIDCCallback)
}

// ---- handlers ----

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req registerRequest
	if err := decodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid request body")
		return
	}

	acc, err := h.identity.Register(r.Context(), identity.RegisterInput{
		Username: req.Username,
		Password: req.Password,
	})
	if err != nil {
		switch {
		case identity.IsConflict(err):
			writeError(w, http.StatusConflict, "username_taken", "username is already taken")
		case identity.IsInvalidInput(err):
			writeError(w, http.StatusBadRequest, "invalid_request", "username and password are required")
		default:
			h.log.Error("auth.register.fail", "err", err)
			writeError(w, http.StatusServiceUnavailable, "server_busy", "please retry later")
		}
		return
	}

	writeJSON(w, http.StatusCreated, registerResponse{User: toUserResponse(acc)})
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req loginRequest
	if err := decodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid request body")
		return
	}

	username := strings.TrimSpace(req.Username)
	if username == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "username and password are required")
		return
	}

	ctx := r.Context()

	rec, err := h.identity.LookupForAuth(ctx, username)
	if err != nil {
		if identity.IsNotFound(err) {
			// Timing resistance: perform a dummy verify when the user is missing.
			if h.dummyHash != "" {
				_, _ = h.identity.VerifyPassword(req.Password, h.dummyHash)
			}
			writeError(w, http.StatusUnauthorized, "invalid_credentials", "invalid username or password")
			return
		}
		h.log.Error("auth.login.lookup.fail", "err", err)
		writeError(w, http.StatusServiceUnavailable, "server_busy", "please retry later")
		return
	}

	ok, err := h.identity.VerifyPassword(req.Password, rec.PasswordHash)
	if err != nil {
		h.log.Error("auth.login.verify.fail", "username", username, "err", err)
		writeError(w, http.StatusUnauthorized, "invalid_credentials", "invalid username or password")
		return
	}
	if !ok {
		h.log.Info("auth.login.rejected", "username", username)
		writeError(w, http.StatusUnauthorized, "invalid_credentials", "invalid username or password")
		return
	}

	acc, found, err := h.identity.FindByUsername(ctx, username)
	if err != nil || !found {
		h.log.Error("auth.login.reload.fail", "username", username, "err", err)
		writeError(w, http.StatusServiceUnavailable, "server_busy", "please retry later")
		return
	}

	h.log.Info("auth.login.ok", "username", username)
	writeJSON(w, http.StatusOK, loginResponse{
		User:      toUserResponse(acc),
		Authority: rec.Authority,
	})
}

func (h *Handler) handleOIDCCallback(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req oidcCallbackRequest
	if err := decodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid request body")
		return
	}

	// The provider's email is the stable identifier when present; the raw
	// subject claim is the fallback.
	externalID := strings.TrimSpace(req.Email)
	if externalID == "" {
		externalID = strings.TrimSpace(req.Subject)
	}
	if externalID == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "email or subject is required")
		return
	}

	acc, err := h.identity.UpsertFederated(r.Context(), externalID)
	if err != nil {
		if identity.IsInvalidInput(err) {
			writeError(w, http.StatusBadRequest, "invalid_request", "email or subject is required")
			return
		}
		h.log.Error("auth.oidc.fail", "err", err)
		writeError(w, http.StatusServiceUnavailable, "server_busy", "please retry later")
		return
	}

	writeJSON(w, http.StatusOK, oidcCallbackResponse{User: toUserResponse(acc)})
}
