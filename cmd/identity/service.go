package identity

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"upvote/cmd/security/password"
)

// Service mediates all account creation and lookup. It owns the
// hash-on-write policy: plaintext passwords enter through RegisterInput and
// nothing but an Argon2id hash is ever persisted or logged.
//
// Service holds no mutable state of its own; every call reads and writes
// through the Store, which serializes conflicting writes. The backend
// (durable or volatile) is chosen once at construction time.
type Service struct {
	store Store
	log   *slog.Logger
	pw    password.Config
}

// NewService constructs a Service over the given store.
func NewService(store Store, log *slog.Logger, pw password.Config) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		store: store,
		log:   log,
		pw:    pw,
	}
}

// LookupForAuth returns the credential-bearing record for the authentication
// boundary. A missing account surfaces as ErrNotFound: the caller needs an
// explicit signal to reject the login, never an empty value.
func (s *Service) LookupForAuth(ctx context.Context, username string) (AuthRecord, error) {
	const op = "identity.LookupForAuth"

	a, err := s.store.FindByUsername(ctx, username)
	if err != nil {
		if IsNotFound(err) {
			return AuthRecord{}, NotFoundError{Op: op, Resource: "account"}
		}
		return AuthRecord{}, err
	}

	role := a.Role
	if role == "" {
		role = RoleUser
	}

	return AuthRecord{
		Username:     a.Username,
		PasswordHash: a.PasswordHash,
		Authority:    "ROLE_" + role,
	}, nil
}

// Register creates a new account.
//
// Contract:
//   - the username must be free; a duplicate yields a ConflictError. The
//     pre-check here can race, so the store's uniqueness guarantee is the
//     final arbiter and its conflict is surfaced identically.
//   - the plaintext password is hashed before persistence and never stored.
//   - an empty role defaults to "USER".
//   - the returned account carries any store-assigned ID.
func (s *Service) Register(ctx context.Context, in RegisterInput) (Account, error) {
	const op = "identity.Register"

	username := strings.TrimSpace(in.Username)
	if username == "" {
		return Account{}, OpError{Op: op, Kind: ErrInvalidInput, Msg: "missing username"}
	}

	s.log.Info("identity.register", "username", username)

	exists, err := s.store.ExistsByUsername(ctx, username)
	if err != nil {
		return Account{}, err
	}
	if exists {
		s.log.Warn("identity.register.conflict", "username", username)
		return Account{}, ConflictError{Op: op, Field: "username"}
	}

	hash, err := s.pw.Hash(in.Password)
	if err != nil {
		if errors.Is(err, password.ErrPasswordEmpty) || errors.Is(err, password.ErrPasswordTooLong) {
			return Account{}, OpError{Op: op, Kind: ErrInvalidInput, Msg: err.Error()}
		}
		return Account{}, err
	}

	role := strings.TrimSpace(in.Role)
	if role == "" {
		role = RoleUser
	}

	now := in.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}

	saved, err := s.store.Save(ctx, Account{
		Username:     username,
		PasswordHash: hash,
		Role:         role,
		CreatedAt:    now,
	})
	if err != nil {
		// The racing duplicate lands here: the store rejected the insert.
		if IsConflict(err) {
			s.log.Warn("identity.register.conflict", "username", username)
		}
		return Account{}, err
	}

	s.log.Info("identity.register.ok", "username", saved.Username, "id", saved.ID)
	return saved, nil
}

// FindByUsername is a pure lookup with absent-value semantics: a missing
// account returns ok=false and a nil error. Infrastructure failures still
// propagate as errors.
func (s *Service) FindByUsername(ctx context.Context, username string) (Account, bool, error) {
	a, err := s.store.FindByUsername(ctx, username)
	if err != nil {
		if IsNotFound(err) {
			return Account{}, false, nil
		}
		return Account{}, false, err
	}
	return a, true, nil
}

// UpsertFederated looks up the account for an externally authenticated
// identifier and creates it on first sight with role "USER" and an empty
// password hash (password-login-ineligible).
//
// The operation is idempotent: repeated calls with the same identifier
// return the same account and never error. A concurrent first call that
// loses the store's check-and-insert race falls back to the winner's row.
func (s *Service) UpsertFederated(ctx context.Context, externalID string) (Account, error) {
	const op = "identity.UpsertFederated"

	externalID = strings.TrimSpace(externalID)
	if externalID == "" {
		return Account{}, OpError{Op: op, Kind: ErrInvalidInput, Msg: "missing external identifier"}
	}

	a, err := s.store.FindByUsername(ctx, externalID)
	if err == nil {
		return a, nil
	}
	if !IsNotFound(err) {
		return Account{}, err
	}

	saved, err := s.store.Save(ctx, Account{
		Username:     externalID,
		PasswordHash: "",
		Role:         RoleUser,
		CreatedAt:    time.Now().UTC(),
	})
	if err != nil {
		if IsConflict(err) {
			// Lost the creation race; the account exists now.
			return s.store.FindByUsername(ctx, externalID)
		}
		return Account{}, err
	}

	s.log.Info("identity.federated.created", "username", saved.Username)
	return saved, nil
}

// VerifyPassword checks a plaintext password against an account's stored
// credential. An empty stored hash never matches.
func (s *Service) VerifyPassword(plaintext, encodedHash string) (bool, error) {
	return s.pw.Verify(encodedHash, plaintext)
}
