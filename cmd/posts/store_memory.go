package posts

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"
)

// MemoryStore is the volatile fallback used when Postgres is not configured.
//
// All access is serialized by one mutex, which also makes every vote mutation
// an atomic read-modify-write: no interleaved stale read can lose an update.
// Unlike the account store, posts get process-local ids here so they remain
// addressable over HTTP; the sequence restarts at 1 on every boot and must
// not be mistaken for a durable identifier.
type MemoryStore struct {
	mu     sync.Mutex
	nextID int64
	items  map[int64]Post
}

// NewMemoryStore constructs an empty in-memory post store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		items: make(map[int64]Post),
	}
}

// List returns all posts ordered by id.
func (s *MemoryStore) List(ctx context.Context) ([]Post, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	out := make([]Post, 0, len(s.items))
	for _, p := range s.items {
		out = append(out, p)
	}
	s.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Get returns a post or a NotFoundError.
func (s *MemoryStore) Get(ctx context.Context, id int64) (Post, error) {
	const op = "posts.Get"

	if err := ctx.Err(); err != nil {
		return Post{}, err
	}

	s.mu.Lock()
	p, ok := s.items[id]
	s.mu.Unlock()

	if !ok {
		return Post{}, NotFoundError{Op: op, ID: id}
	}
	return p, nil
}

// Create persists a new post with zero votes.
func (s *MemoryStore) Create(ctx context.Context, title string) (Post, error) {
	const op = "posts.Create"

	if err := ctx.Err(); err != nil {
		return Post{}, err
	}
	title = strings.TrimSpace(title)
	if title == "" {
		return Post{}, OpError{Op: op, Kind: ErrInvalidInput, Msg: "missing title"}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	p := Post{
		ID:        s.nextID,
		Title:     title,
		Votes:     0,
		CreatedAt: time.Now().UTC(),
	}
	s.items[p.ID] = p
	return p, nil
}

// Delete removes a post by id.
func (s *MemoryStore) Delete(ctx context.Context, id int64) error {
	const op = "posts.Delete"

	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.items[id]; !ok {
		return NotFoundError{Op: op, ID: id}
	}
	delete(s.items, id)
	return nil
}

// Upvote atomically increments the post's vote count.
func (s *MemoryStore) Upvote(ctx context.Context, id int64) (VoteResult, error) {
	return s.mutateVotes(ctx, "posts.Upvote", id, ApplyUpvote)
}

// RemoveUpvote atomically decrements the post's vote count, flooring at zero.
func (s *MemoryStore) RemoveUpvote(ctx context.Context, id int64) (VoteResult, error) {
	return s.mutateVotes(ctx, "posts.RemoveUpvote", id, ApplyRemoveUpvote)
}

func (s *MemoryStore) mutateVotes(ctx context.Context, op string, id int64, transition func(int) VoteResult) (VoteResult, error) {
	if err := ctx.Err(); err != nil {
		return VoteResult{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.items[id]
	if !ok {
		return VoteResult{}, NotFoundError{Op: op, ID: id}
	}

	res := transition(p.Votes)
	p.Votes = res.Count
	s.items[id] = p
	return res, nil
}
