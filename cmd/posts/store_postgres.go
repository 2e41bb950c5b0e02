package posts

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore implements post persistence over PostgreSQL.
//
// Design notes:
// - The pgx pool is owned by the caller; this store must NOT close it.
// - Vote mutations run in a transaction with SELECT ... FOR UPDATE on the
//   post row, so concurrent mutations of the same post serialize and no
//   increment is lost to a stale read.
// - The vote transition itself (floor at zero) is shared with the in-memory
//   backend via ApplyUpvote/ApplyRemoveUpvote.
type PostgresStore struct {
	pool   *pgxpool.Pool
	schema string
}

// PostgresOption configures the store.
type PostgresOption func(*PostgresStore) error

var pgIdentRe = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// WithSchema sets the Postgres schema used by the post store (default "upvote").
func WithSchema(schema string) PostgresOption {
	return func(s *PostgresStore) error {
		schema = strings.TrimSpace(schema)
		if schema == "" {
			return fmt.Errorf("posts: empty schema")
		}
		if !pgIdentRe.MatchString(schema) {
			return fmt.Errorf("posts: invalid schema identifier")
		}
		s.schema = schema
		return nil
	}
}

// NewPostgresStore constructs a PostgresStore with safe defaults.
func NewPostgresStore(pool *pgxpool.Pool, opts ...PostgresOption) (*PostgresStore, error) {
	st := &PostgresStore{
		pool:   pool,
		schema: "upvote",
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(st); err != nil {
			return nil, err
		}
	}
	if st.pool == nil {
		return nil, fmt.Errorf("posts: nil pool")
	}
	return st, nil
}

// List returns all posts ordered by id.
func (s *PostgresStore) List(ctx context.Context) ([]Post, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	table := pgIdent(s.schema, "post")

	rows, err := s.pool.Query(ctx,
		`SELECT id, title, vote_count, created_at FROM `+table+` ORDER BY id`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Post
	for rows.Next() {
		var p Post
		if err := rows.Scan(&p.ID, &p.Title, &p.Votes, &p.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Get returns a post or a NotFoundError.
func (s *PostgresStore) Get(ctx context.Context, id int64) (Post, error) {
	const op = "posts.Get"

	if err := ctx.Err(); err != nil {
		return Post{}, err
	}

	table := pgIdent(s.schema, "post")

	var p Post
	err := s.pool.QueryRow(ctx,
		`SELECT id, title, vote_count, created_at FROM `+table+` WHERE id = $1`,
		id,
	).Scan(&p.ID, &p.Title, &p.Votes, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Post{}, NotFoundError{Op: op, ID: id}
		}
		return Post{}, err
	}
	return p, nil
}

// Create persists a new post with zero votes.
func (s *PostgresStore) Create(ctx context.Context, title string) (Post, error) {
	const op = "posts.Create"

	if err := ctx.Err(); err != nil {
		return Post{}, err
	}
	title = strings.TrimSpace(title)
	if title == "" {
		return Post{}, OpError{Op: op, Kind: ErrInvalidInput, Msg: "missing title"}
	}

	now := time.Now().UTC()
	table := pgIdent(s.schema, "post")

	p := Post{Title: title, Votes: 0, CreatedAt: now}
	err := s.pool.QueryRow(ctx,
		`INSERT INTO `+table+` (title, vote_count, created_at)
		 VALUES ($1, 0, $2)
		 RETURNING id`,
		title, now,
	).Scan(&p.ID)
	if err != nil {
		return Post{}, err
	}
	return p, nil
}

// Delete removes a post by id.
func (s *PostgresStore) Delete(ctx context.Context, id int64) error {
	const op = "posts.Delete"

	if err := ctx.Err(); err != nil {
		return err
	}

	table := pgIdent(s.schema, "post")

	ct, err := s.pool.Exec(ctx, `DELETE FROM `+table+` WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return NotFoundError{Op: op, ID: id}
	}
	return nil
}

// Upvote atomically increments the post's vote count.
func (s *PostgresStore) Upvote(ctx context.Context, id int64) (VoteResult, error) {
	return s.mutateVotes(ctx, "posts.Upvote", id, ApplyUpvote)
}

// RemoveUpvote atomically decrements the post's vote count, flooring at zero.
func (s *PostgresStore) RemoveUpvote(ctx context.Context, id int64) (VoteResult, error) {
	return s.mutateVotes(ctx, "posts.RemoveUpvote", id, ApplyRemoveUpvote)
}

// mutateVotes runs one read-modify-write cycle under a row lock.
// The row lock serializes concurrent mutations of the same post (single-writer);
// unrelated posts do not contend.
func (s *PostgresStore) mutateVotes(ctx context.Context, op string, id int64, transition func(int) VoteResult) (VoteResult, error) {
	if s == nil || s.pool == nil {
		return VoteResult{}, OpError{Op: op, Kind: ErrInvalidInput, Msg: "nil store"}
	}
	if err := ctx.Err(); err != nil {
		return VoteResult{}, err
	}

	table := pgIdent(s.schema, "post")

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{
		IsoLevel:   pgx.ReadCommitted,
		AccessMode: pgx.ReadWrite,
	})
	if err != nil {
		return VoteResult{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var votes int
	err = tx.QueryRow(ctx,
		`SELECT vote_count FROM `+table+` WHERE id = $1 FOR UPDATE`,
		id,
	).Scan(&votes)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return VoteResult{}, NotFoundError{Op: op, ID: id}
		}
		return VoteResult{}, err
	}

	res := transition(votes)

	if _, err := tx.Exec(ctx,
		`UPDATE `+table+` SET vote_count = $1 WHERE id = $2`,
		res.Count, id,
	); err != nil {
		return VoteResult{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return VoteResult{}, err
	}

	return res, nil
}

// pgIdent safely quotes a schema-qualified identifier: "schema"."name".
func pgIdent(schema, name string) string {
	return pgx.Identifier{schema, name}.Sanitize()
}
