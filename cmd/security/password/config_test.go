package password

import "testing"

func TestFromEnv_Defaults(t *testing.T) {
	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv error: %v", err)
	}
	if cfg.Params.MemoryKiB == 0 || cfg.Params.Iterations == 0 || cfg.Params.Parallelism == 0 {
		t.Fatalf("expected non-zero params: %+v", cfg.Params)
	}
	if cfg.Policy.MaxLength <= 0 {
		t.Fatalf("expected positive max length")
	}
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("UPVOTE_ARGON2_MEMORY_KIB", "16384")
	t.Setenv("UPVOTE_ARGON2_ITERATIONS", "2")
	t.Setenv("UPVOTE_PASSWORD_MAX_LEN", "64")

	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv error: %v", err)
	}
	if cfg.Params.MemoryKiB != 16384 {
		t.Fatalf("expected 16384 KiB, got %d", cfg.Params.MemoryKiB)
	}
	if cfg.Params.Iterations != 2 {
		t.Fatalf("expected 2 iterations, got %d", cfg.Params.Iterations)
	}
	if cfg.Policy.MaxLength != 64 {
		t.Fatalf("expected max length 64, got %d", cfg.Policy.MaxLength)
	}
}

func TestFromEnv_RejectsOutOfRange(t *testing.T) {
	t.Setenv("UPVOTE_ARGON2_MEMORY_KIB", "1")

	if _, err := FromEnv(); err == nil {
		t.Fatalf("expected error for out-of-range memory")
	}
}
