package password

import "testing"

func TestHashAndVerify_OK(t *testing.T) {
	cfg := DefaultConfig()

	h, err := cfg.Hash("pw123")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}
	if h == "pw123" {
		t.Fatalf("hash must differ from the plaintext")
	}

	ok, err := cfg.Verify(h, "pw123")
	if err != nil {
		t.Fatalf("Verify error: %v", err)
	}
	if !ok {
		t.Fatalf("expected match")
	}
}

func TestVerify_WrongPassword(t *testing.T) {
	cfg := DefaultConfig()

	h, err := cfg.Hash("pw123")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}

	ok, err := cfg.Verify(h, "other")
	if err != nil {
		t.Fatalf("Verify error: %v", err)
	}
	if ok {
		t.Fatalf("expected mismatch")
	}
}

func TestVerify_EmptyHash_NeverMatches(t *testing.T) {
	cfg := DefaultConfig()

	ok, err := cfg.Verify("", "anything")
	if err != nil {
		t.Fatalf("Verify error: %v", err)
	}
	if ok {
		t.Fatalf("empty credential must never match")
	}
}

func TestValidate_Policy(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Policy.MaxLength = 16

	if err := cfg.Validate(""); err != ErrPasswordEmpty {
		t.Fatalf("expected ErrPasswordEmpty, got %v", err)
	}
	if err := cfg.Validate("   "); err != ErrPasswordEmpty {
		t.Fatalf("expected ErrPasswordEmpty for blanks, got %v", err)
	}
	if err := cfg.Validate("this password is definitely too long"); err != ErrPasswordTooLong {
		t.Fatalf("expected ErrPasswordTooLong, got %v", err)
	}
	if err := cfg.Validate("pw123"); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
}

func TestVerify_InvalidHash(t *testing.T) {
	cfg := DefaultConfig()

	ok, err := cfg.Verify("not-a-hash", "whatever")
	if err != ErrInvalidHash {
		t.Fatalf("expected ErrInvalidHash, got %v", err)
	}
	if ok {
		t.Fatalf("expected false")
	}
}

func TestVerify_RejectsOversizedParams(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Params.MemoryKiB = 16 * 1024
	cfg.Params.Iterations = 2

	// Attacker-supplied hash with 100x memory cost.
	attack := "$argon2id$v=19$m=1638400,t=2,p=1$AAAAAAAAAAAAAAAAAAAAAA$AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"
	ok, err := cfg.Verify(attack, "whatever")
	if err != ErrInvalidHash {
		t.Fatalf("expected ErrInvalidHash, got %v", err)
	}
	if ok {
		t.Fatalf("expected false")
	}
}
