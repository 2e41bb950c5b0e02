package posts

import (
	"context"
	"time"
)

// Post is a title with a vote counter attached.
//
// ID is a store-assigned surrogate; the in-memory store assigns its own
// process-local sequence so posts stay addressable without a database.
// Votes is never negative.
type Post struct {
	ID        int64
	Title     string
	Votes     int
	CreatedAt time.Time
}

// Store is the post persistence boundary.
//
// Upvote and RemoveUpvote run the whole read-modify-write cycle inside the
// store so that concurrent mutations of the same post serialize: the Postgres
// backend locks the row, the in-memory backend holds its mutex.
type Store interface {
	// List returns all posts ordered by id.
	List(ctx context.Context) ([]Post, error)

	// Get returns a post or a NotFoundError.
	Get(ctx context.Context, id int64) (Post, error)

	// Create persists a new post with zero votes and returns it with its id.
	Create(ctx context.Context, title string) (Post, error)

	// Delete removes a post; a missing id yields a NotFoundError.
	Delete(ctx context.Context, id int64) error

	// Upvote atomically increments the post's vote count.
	Upvote(ctx context.Context, id int64) (VoteResult, error)

	// RemoveUpvote atomically decrements the post's vote count,
	// flooring at zero. Decrementing at zero succeeds and stays at zero.
	RemoveUpvote(ctx context.Context, id int64) (VoteResult, error)
}
