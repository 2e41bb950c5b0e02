package identity

import (
	"context"
	"time"
)

// RoleUser is the default role tag for accounts created without one.
const RoleUser = "USER"

// Account is the service's canonical security principal.
//
// Username is unique across the whole store and case-sensitive; it is stable
// for the account's lifetime.
//
// PasswordHash is an encoded Argon2id hash. An empty string is meaningful:
// it marks an account created from a federated identity, which is ineligible
// for password login.
//
// ID is a store-assigned surrogate. The Postgres store assigns it on first
// insert; the in-memory store has no generator and leaves it 0 permanently.
// Callers must not assume a positive ID is always present.
type Account struct {
	ID           int64
	Username     string
	PasswordHash string
	Role         string
	CreatedAt    time.Time
}

// AuthRecord is the read-only credential view handed to the authentication
// boundary. Authority is the single role-derived authority string.
type AuthRecord struct {
	Username     string
	PasswordHash string
	Authority    string
}

// RegisterInput describes a registration request. Password is plaintext and
// lives only here; the Service is the only writer of Account.PasswordHash.
type RegisterInput struct {
	Username string
	Password string
	Role     string
	Now      time.Time
}

// Store is the account persistence boundary.
//
// Both implementations expose identical external behavior; the caller selects
// one instance at construction time and never branches on the backend again.
type Store interface {
	// FindByUsername returns the account or a NotFoundError.
	FindByUsername(ctx context.Context, username string) (Account, error)

	// Save persists the account and returns it with any store-assigned ID
	// populated. A zero ID means insert; a duplicate username yields a
	// ConflictError. A non-zero ID means update of the existing row.
	Save(ctx context.Context, a Account) (Account, error)

	// ExistsByUsername reports whether an account with the username exists.
	ExistsByUsername(ctx context.Context, username string) (bool, error)
}
