package identity

import (
	"context"
	"strings"
	"sync"
	"time"
)

// MemoryStore is the volatile fallback used when Postgres is not configured.
//
// It is an internally synchronized map keyed by username and is exposed only
// through the Store interface. Check-and-insert happens under one lock, so at
// most one Save per username ever succeeds even under concurrent access.
//
// MemoryStore has no ID generator: accounts created here keep ID == 0 for
// their whole lifetime. Callers must treat the ID as optional rather than
// fabricate one.
type MemoryStore struct {
	mu       sync.RWMutex
	accounts map[string]Account
}

// NewMemoryStore constructs an empty in-memory account store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		accounts: make(map[string]Account),
	}
}

// FindByUsername returns the account or a NotFoundError.
func (s *MemoryStore) FindByUsername(ctx context.Context, username string) (Account, error) {
	const op = "identity.FindByUsername"

	if err := ctx.Err(); err != nil {
		return Account{}, err
	}
	username = strings.TrimSpace(username)
	if username == "" {
		return Account{}, OpError{Op: op, Kind: ErrInvalidInput, Msg: "missing username"}
	}

	s.mu.RLock()
	a, ok := s.accounts[username]
	s.mu.RUnlock()

	if !ok {
		return Account{}, NotFoundError{Op: op, Resource: "account"}
	}
	return a, nil
}

// Save inserts the account. A username that is already taken yields a
// ConflictError; the check and the insert happen under one lock, so two
// concurrent Saves for the same username cannot both succeed.
//
// Accounts created here have no ID, so an updating Save (non-zero ID) can
// only refer to a row owned by another backend; it replaces the record under
// the same username, mirroring the durable store's update-by-id semantics.
func (s *MemoryStore) Save(ctx context.Context, a Account) (Account, error) {
	const op = "identity.Save"

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

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.accounts[a.Username]; ok && a.ID == 0 {
		return Account{}, ConflictError{Op: op, Field: "username"}
	}

	s.accounts[a.Username] = a
	return a, nil
}

// ExistsByUsername reports whether an account with the username exists.
func (s *MemoryStore) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	s.mu.RLock()
	_, ok := s.accounts[strings.TrimSpace(username)]
	s.mu.RUnlock()
	return ok, nil
}

// Len reports the number of stored accounts (test helper).
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.accounts)
}
