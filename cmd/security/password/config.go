package password

import (
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"
)

// Argon2idParams controls Argon2id hashing cost.
// MemoryKiB is in KiB as required by argon2.IDKey.
type Argon2idParams struct {
	MemoryKiB   uint32
	Iterations  uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// Policy controls password validation.
//
// The upvote demo deliberately accepts short passwords: the only hard rules
// are non-empty and a maximum length. An empty credential marks a
// federated-only account and is handled above this package.
type Policy struct {
	MaxLength int
}

// Config is the single configuration surface for this package.
type Config struct {
	Params Argon2idParams
	Policy Policy
}

// DefaultConfig returns a baseline suitable for interactive logins.
// Parallelism is CPU-aware but clamped to [1..4] to keep resource usage
// predictable in containers.
func DefaultConfig() Config {
	threads := runtime.NumCPU()
	if threads <= 0 {
		threads = 1
	}
	if threads > 4 {
		threads = 4
	}

	return Config{
		Params: Argon2idParams{
			MemoryKiB:   64 * 1024, // 64 MiB
			Iterations:  3,
			Parallelism: uint8(threads), // #nosec G115 -- clamped to [1..4] above; safe conversion.
			SaltLength:  16,
			KeyLength:   32,
		},
		Policy: Policy{
			MaxLength: 256,
		},
	}
}

// FromEnv loads config from environment variables.
//
// Env surface:
// - UPVOTE_PASSWORD_MAX_LEN
// - UPVOTE_ARGON2_MEMORY_KIB
// - UPVOTE_ARGON2_ITERATIONS
// - UPVOTE_ARGON2_PARALLELISM
// - UPVOTE_ARGON2_SALT_LEN
// - UPVOTE_ARGON2_KEY_LEN
func FromEnv() (Config, error) {
	cfg := DefaultConfig()

	if v, ok := os.LookupEnv("UPVOTE_PASSWORD_MAX_LEN"); ok {
		n, err := atoiBounded(v, 1, 4096)
		if err != nil {
			return Config{}, fmt.Errorf("UPVOTE_PASSWORD_MAX_LEN: %w", err)
		}
		cfg.Policy.MaxLength = n
	}

	if v, ok := os.LookupEnv("UPVOTE_ARGON2_MEMORY_KIB"); ok {
		n, err := atoiBounded(v, 8*1024, 1024*1024)
		if err != nil {
			return Config{}, fmt.Errorf("UPVOTE_ARGON2_MEMORY_KIB: %w", err)
		}
		cfg.Params.MemoryKiB = uint32(n) // #nosec G115 -- bounded above; safe conversion.
	}

	if v, ok := os.LookupEnv("UPVOTE_ARGON2_ITERATIONS"); ok {
		n, err := atoiBounded(v, 1, 16)
		if err != nil {
			return Config{}, fmt.Errorf("UPVOTE_ARGON2_ITERATIONS: %w", err)
		}
		cfg.Params.Iterations = uint32(n) // #nosec G115 -- bounded above; safe conversion.
	}

	if v, ok := os.LookupEnv("UPVOTE_ARGON2_PARALLELISM"); ok {
		n, err := atoiBounded(v, 1, 64)
		if err != nil {
			return Config{}, fmt.Errorf("UPVOTE_ARGON2_PARALLELISM: %w", err)
		}
		cfg.Params.Parallelism = uint8(n) // #nosec G115 -- bounded above; safe conversion.
	}

	if v, ok := os.LookupEnv("UPVOTE_ARGON2_SALT_LEN"); ok {
		n, err := atoiBounded(v, 8, 64)
		if err != nil {
			return Config{}, fmt.Errorf("UPVOTE_ARGON2_SALT_LEN: %w", err)
		}
		cfg.Params.SaltLength = uint32(n) // #nosec G115 -- bounded above; safe conversion.
	}

	if v, ok := os.LookupEnv("UPVOTE_ARGON2_KEY_LEN"); ok {
		n, err := atoiBounded(v, 16, 128)
		if err != nil {
			return Config{}, fmt.Errorf("UPVOTE_ARGON2_KEY_LEN: %w", err)
		}
		cfg.Params.KeyLength = uint32(n) // #nosec G115 -- bounded above; safe conversion.
	}

	return cfg, nil
}

// Validate checks a plaintext password against the policy.
func (c Config) Validate(password string) error {
	if strings.TrimSpace(password) == "" {
		return ErrPasswordEmpty
	}
	if c.Policy.MaxLength > 0 && len(password) > c.Policy.MaxLength {
		return ErrPasswordTooLong
	}
	return nil
}

func atoiBounded(v string, min, max int) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return 0, err
	}
	if n < min || n > max {
		return 0, fmt.Errorf("value %d out of range [%d..%d]", n, min, max)
	}
	return n, nil
}
