package password

import "errors"

var (
	// ErrPasswordEmpty is returned for empty or whitespace-only passwords.
	ErrPasswordEmpty = errors.New("password is empty")

	// ErrPasswordTooLong is returned when the password exceeds Policy.MaxLength.
	ErrPasswordTooLong = errors.New("password too long")

	// ErrInvalidHash is returned for malformed or unsupported encoded hashes.
	ErrInvalidHash = errors.New("invalid argon2id hash")
)
