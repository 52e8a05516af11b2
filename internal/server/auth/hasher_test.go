package auth

import (
	"errors"
	"strings"
	"testing"

	"github.com/dstepanov2008/shopauth/internal/common"
)

func TestHashAndVerify_Roundtrip(t *testing.T) {
	t.Parallel()

	const password = "Str0ng!Pass"

	encoded, err := HashPassword(password)
	if err != nil {
		t.Fatalf("HashPassword error: %v", err)
	}
	if !strings.HasPrefix(encoded, "$argon2id$") {
		t.Fatalf("expected PHC argon2id prefix, got %q", encoded)
	}

	ok, err := VerifyPassword(password, encoded)
	if err != nil {
		t.Fatalf("VerifyPassword error: %v", err)
	}
	if !ok {
		t.Fatalf("correct password must verify")
	}

	ok, err = VerifyPassword("Wr0ng!Pass", encoded)
	if err != nil {
		t.Fatalf("VerifyPassword error: %v", err)
	}
	if ok {
		t.Fatalf("wrong password must not verify")
	}
}

func TestHashPassword_SaltsDiffer(t *testing.T) {
	t.Parallel()

	a, err := HashPassword("Same1!Pass")
	if err != nil {
		t.Fatalf("HashPassword error: %v", err)
	}
	b, err := HashPassword("Same1!Pass")
	if err != nil {
		t.Fatalf("HashPassword error: %v", err)
	}
	if a == b {
		t.Fatalf("two hashes of the same password must differ (random salt)")
	}
}

func TestVerifyPassword_MalformedHash(t *testing.T) {
	t.Parallel()

	cases := []string{
		"",
		"plainly-not-a-hash",
		"$bcrypt$v=19$m=65536,t=1,p=4$c2FsdA$aGFzaA",
		"$argon2id$vX$m=65536,t=1,p=4$c2FsdA$aGFzaA",
		"$argon2id$v=19$m=banana$c2FsdA$aGFzaA",
		"$argon2id$v=19$m=65536,t=1,p=4$!!!$aGFzaA",
		"$argon2id$v=19$m=65536,t=1,p=4$c2FsdA$!!!",
	}

	for _, encoded := range cases {
		_, err := VerifyPassword("whatever", encoded)
		if !errors.Is(err, common.ErrMalformedHash) {
			t.Fatalf("encoded=%q: want ErrMalformedHash, got %v", encoded, err)
		}
	}
}

func TestVerifyPassword_ImplausibleParameters(t *testing.T) {
	t.Parallel()

	// Parameter fields that scan cleanly but would make argon2.IDKey panic
	// (zero rounds/threads) or allocate absurdly. All are corrupt data and
	// must come back as ErrMalformedHash, never crash the caller.
	cases := []string{
		"$argon2id$v=19$m=65536,t=0,p=4$c2FsdA$aGFzaA",
		"$argon2id$v=19$m=65536,t=1,p=0$c2FsdA$aGFzaA",
		"$argon2id$v=19$m=0,t=1,p=4$c2FsdA$aGFzaA",
		"$argon2id$v=19$m=16,t=1,p=4$c2FsdA$aGFzaA",
		"$argon2id$v=19$m=4294967295,t=1,p=1$c2FsdA$aGFzaA",
	}

	for _, encoded := range cases {
		_, err := VerifyPassword("whatever", encoded)
		if !errors.Is(err, common.ErrMalformedHash) {
			t.Fatalf("encoded=%q: want ErrMalformedHash, got %v", encoded, err)
		}
	}
}

func TestVerifyPassword_UnsupportedVersion(t *testing.T) {
	t.Parallel()

	_, err := VerifyPassword("x", "$argon2id$v=18$m=65536,t=1,p=4$c2FsdA$aGFzaA")
	if !errors.Is(err, common.ErrMalformedHash) {
		t.Fatalf("want ErrMalformedHash for version mismatch, got %v", err)
	}
}
