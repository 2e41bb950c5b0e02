// Package postsapi exposes the post CRUD and vote endpoints and feeds
// vote-count changes into the live websocket ticker.
package postsapi

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"upvote/cmd/internal/feed"
	"upvote/cmd/posts"
)

const defaultMaxBodyBytes = 64 << 10

// Handler wires HTTP post endpoints to a posts.Store.
type Handler struct {
	log   *slog.Logger
	store posts.Store
	hub   *feed.Hub

	maxBodyBytes int64
	maxTitleLen  int

	onVote func(upvoted bool)
}

// HandlerOption configures optional handler dependencies.
type HandlerOption func(*Handler)

// WithVoteObserver installs a callback invoked after every successful vote
// mutation. Used for metrics.
func WithVoteObserver(fn func(upvoted bool)) HandlerOption {
	return func(h *Handler) {
		if fn != nil {
			h.onVote = fn
		}
	}
}

// WithMaxTitleLen bounds accepted post titles.
func WithMaxTitleLen(n int) HandlerOption {
	return func(h *Handler) {
		if n > 0 {
			h.maxTitleLen = n
		}
	}
}

// NewHandler constructs a posts Handler. The hub may be nil when the live
// feed is disabled.
func NewHandler(log *slog.Logger, store posts.Store, hub *feed.Hub, opts ...HandlerOption) (*Handler, error) {
	if log == nil {
		log = slog.Default()
	}
	if store == nil {
		return nil, errors.New("posts: nil store")
	}

	h := &Handler{
		log:          log,
		store:        store,
		hub:          hub,
		maxBodyBytes: defaultMaxBodyBytes,
		maxTitleLen:  512,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}
	return h, nil
}

// Register wires post routes onto the provided mux.
func (h *Handler) Register(mux *http.ServeMux) {
	if h == nil || mux == nil {
		return
	}
	mux.HandleFunc("GET /posts", h.handleList)
	mux.HandleFunc("POST /posts", h.handleCreate)
	mux.HandleFunc("GET /posts/{id}", h.handleGet)
	mux.HandleFunc("DELETE /posts/{id}", h.handleDelete)
	mux.HandleFunc("POST /posts/{id}/upvote", h.handleUpvote)
	mux.HandleFunc("DELETE /posts/{id}/upvote", h.handleRemoveUpvote)
}

func pathID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// ---- handlers ----

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	all, err := h.store.List(r.Context())
	if err != nil {
		h.log.Error("posts.list.fail", "err", err)
		writeError(w, http.StatusServiceUnavailable, "server_busy", "please retry later")
		return
	}

	resp := listPostsResponse{Posts: make([]postResponse, 0, len(all))}
	for _, p := range all {
		resp.Posts = append(resp.Posts, toPostResponse(p))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req createPostRequest
	if err := decodeJSON(w, r, h.maxBodyBytes, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid request body")
		return
	}

	title := strings.TrimSpace(req.Title)
	if title == "" || len(title) > h.maxTitleLen {
		writeError(w, http.StatusBadRequest, "invalid_title", "title is required")
		return
	}

	p, err := h.store.Create(r.Context(), title)
	if err != nil {
		h.log.Error("posts.create.fail", "err", err)
		writeError(w, http.StatusServiceUnavailable, "server_busy", "please retry later")
		return
	}

	h.log.Info("posts.create.ok", "post_id", p.ID)
	writeJSON(w, http.StatusCreated, toPostResponse(p))
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_id", "post id must be a positive integer")
		return
	}

	p, err := h.store.Get(r.Context(), id)
	if err != nil {
		h.writeStoreError(w, "posts.get", err)
		return
	}
	writeJSON(w, http.StatusOK, toPostResponse(p))
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_id", "post id must be a positive integer")
		return
	}

	if err := h.store.Delete(r.Context(), id); err != nil {
		h.writeStoreError(w, "posts.delete", err)
		return
	}

	h.log.Info("posts.delete.ok", "post_id", id)
	writeJSON(w, http.StatusOK, deletePostResponse{Deleted: true, ID: id})
}

func (h *Handler) handleUpvote(w http.ResponseWriter, r *http.Request) {
	h.handleVote(w, r, "posts.upvote", h.store.Upvote)
}

func (h *Handler) handleRemoveUpvote(w http.ResponseWriter, r *http.Request) {
	h.handleVote(w, r, "posts.unvote", h.store.RemoveUpvote)
}

func (h *Handler) handleVote(w http.ResponseWriter, r *http.Request, op string, mutate func(ctx context.Context, id int64) (posts.VoteResult, error)) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_id", "post id must be a positive integer")
		return
	}

	res, err := mutate(r.Context(), id)
	if err != nil {
		h.writeStoreError(w, op, err)
		return
	}

	if h.onVote != nil {
		h.onVote(res.Upvoted)
	}
	h.hub.Publish(feed.Event{
		PostID:  id,
		Count:   res.Count,
		Upvoted: res.Upvoted,
		At:      time.Now().UTC(),
	})

	h.log.Info(op+".ok", "post_id", id, "count", res.Count)
	writeJSON(w, http.StatusOK, voteResponse{Count: res.Count, Upvoted: res.Upvoted})
}

func (h *Handler) writeStoreError(w http.ResponseWriter, op string, err error) {
	switch {
	case posts.IsNotFound(err):
		writeError(w, http.StatusNotFound, "post_not_found", "post does not exist")
	case posts.IsInvalidInput(err):
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid request")
	default:
		h.log.Error(op+".fail", "err", err)
		writeError(w, http.StatusServiceUnavailable, "server_busy", "please retry later")
	}
}
