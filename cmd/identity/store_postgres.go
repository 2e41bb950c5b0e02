package identity

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore implements account persistence over PostgreSQL.
//
// Design notes:
// - The pgx pool is owned by the caller; this store must NOT close it.
// - Schema/table identifiers are safely quoted to avoid SQL injection via identifiers.
// - The table carries a unique constraint on username; it is the source of
//   uniqueness truth. A racing duplicate insert is rejected here even when a
//   service-level pre-check passed.
// - Errors are mapped to identity sentinel kinds where appropriate; anything
//   else (connectivity, syntax) passes through untouched.
type PostgresStore struct {
	pool   *pgxpool.Pool
	schema string
}

// PostgresOption configures the store.
type PostgresOption func(*PostgresStore) error

var pgIdentRe = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// WithSchema sets the Postgres schema used by the account store (default "upvote").
// The schema name is validated to be a legal PostgreSQL identifier.
func WithSchema(schema string) PostgresOption {
	return func(s *PostgresStore) error {
		schema = strings.TrimSpace(schema)
		if schema == "" {
			return fmt.Errorf("identity: empty schema")
		}
		if !pgIdentRe.MatchString(schema) {
			return fmt.Errorf("identity: invalid schema identifier")
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
		return nil, fmt.Errorf("identity: nil pool")
	}
	return st, nil
}

// FindByUsername returns the account for a case-sensitive username match.
func (s *PostgresStore) FindByUsername(ctx context.Context, username string) (Account, error) {
	const op = "identity.FindByUsername"

	if s == nil || s.pool == nil {
		return Account{}, OpError{Op: op, Kind: ErrInvalidInput, Msg: "nil store"}
	}
	if err := ctx.Err(); err != nil {
		return Account{}, err
	}
	username = strings.TrimSpace(username)
	if username == "" {
		return Account{}, OpError{Op: op, Kind: ErrInvalidInput, Msg: "missing username"}
	}

	users := pgIdent(s.schema, "app_user")

	var out Account
	err := s.pool.QueryRow(ctx,
		`SELECT id, username, password_hash, role, created_at
		   FROM `+users+`
		  WHERE username = $1`,
		username,
	).Scan(&out.ID, &out.Username, &out.PasswordHash, &out.Role, &out.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Account{}, NotFoundError{Op: op, Resource: "account"}
		}
		return Account{}, err
	}

	return out, nil
}

// Save inserts the account when ID is zero and updates it otherwise.
// The returned account carries the store-assigned ID after an insert.
func (s *PostgresStore) Save(ctx context.Context, a Account) (Account, error) {
	const op = "identity.Save"

	if s == nil || s.pool == nil {
		return Account{}, OpError{Op: op, Kind: ErrInvalidInput, Msg: "nil store"}
	}
	if err := ctx.Err(); err != nil {
		return Account{}, err
	}

	a.Username = strings.TrimSpace(a.Username)
	if a.Username == "" {
		return Account{}, OpError{Op: op, Kind: ErrInvalidInput, Msg: "missing username"}
	}
	if a.Role == "" {
		a.Role = RoleUser
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}

	users := pgIdent(s.schema, "app_user")

	if a.ID == 0 {
		err := s.pool.QueryRow(ctx,
			`INSERT INTO `+users+` (username, password_hash, role, created_at)
			 VALUES ($1, $2, $3, $4)
			 RETURNING id`,
			a.Username, a.PasswordHash, a.Role, a.CreatedAt,
		).Scan(&a.ID)
		if err != nil {
			if pgIsUniqueViolation(err) {
				return Account{}, ConflictError{Op: op, Field: "username"}
			}
			return Account{}, err
		}
		return a, nil
	}

	ct, err := s.pool.Exec(ctx,
		`UPDATE `+users+`
		    SET password_hash = $1,
		        role = $2
		  WHERE id = $3`,
		a.PasswordHash, a.Role, a.ID,
	)
	if err != nil {
		if pgIsUniqueViolation(err) {
			return Account{}, ConflictError{Op: op, Field: "username"}
		}
		return Account{}, err
	}
	if ct.RowsAffected() == 0 {
		return Account{}, NotFoundError{Op: op, Resource: "account"}
	}
	return a, nil
}

// ExistsByUsername reports whether an account with the username exists.
func (s *PostgresStore) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	const op = "identity.ExistsByUsername"

	if s == nil || s.pool == nil {
		return false, OpError{Op: op, Kind: ErrInvalidInput, Msg: "nil store"}
	}
	if err := ctx.Err(); err != nil {
		return false, err
	}
	username = strings.TrimSpace(username)
	if username == "" {
		return false, OpError{Op: op, Kind: ErrInvalidInput, Msg: "missing username"}
	}

	users := pgIdent(s.schema, "app_user")

	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM `+users+` WHERE username = $1)`,
		username,
	).Scan(&exists)
	if err != nil {
		return false, err
	}
	return exists, nil
}

// ---- helpers ----

// pgIdent safely quotes a schema-qualified identifier: "schema"."name".
func pgIdent(schema, name string) string {
	return pgx.Identifier{schema, name}.Sanitize()
}

func pgIsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == "23505" // unique_violation
}
