package security_test

import (
	"crypto/md5"
	"encoding/hex"
	"testing"

	"github.com/pwvale/panel-backend/pkg/config"
	"github.com/pwvale/panel-backend/pkg/security"
)

func testPasswordConfig() config.PasswordConfig {
	return config.PasswordConfig{
		ArgonMemoryKB:    32768,
		ArgonTime:        1,
		ArgonParallelism: 1,
		ArgonSaltLen:     16,
		ArgonKeyLen:      32,
	}
}

func TestHashAndVerifyPassword(t *testing.T) {
	hash, err := security.HashPassword("very-secure-password", testPasswordConfig())
	if err != nil {
		t.Fatalf("HashPassword returned error: %v", err)
	}
	if hash == "" {
		t.Fatal("HashPassword returned empty string")
	}

	ok, err := security.VerifyPassword("very-secure-password", hash)
	if err != nil {
		t.Fatalf("VerifyPassword returned error for valid hash: %v", err)
	}
	if !ok {
		t.Fatal("VerifyPassword failed for the correct password")
	}

	ok, err = security.VerifyPassword("bogus-password", hash)
	if err != nil {
		t.Fatalf("VerifyPassword returned error for invalid password: %v", err)
	}
	if ok {
		t.Fatal("VerifyPassword returned true for incorrect password")
	}
}

func TestHashPasswordRejectsEmpty(t *testing.T) {
	if _, err := security.HashPassword("", testPasswordConfig()); err == nil {
		t.Fatal("expected error for empty password")
	}
}

func TestVerifyPasswordBadHash(t *testing.T) {
	if _, err := security.VerifyPassword("irrelevant", "not-a-hash"); err == nil {
		t.Fatal("expected error for malformed hash")
	}
}

func TestLegacyHashDetectionAndVerify(t *testing.T) {
	sum := md5.Sum([]byte("old-password"))
	legacy := hex.EncodeToString(sum[:])

	if !security.IsLegacyHash(legacy) {
		t.Fatal("expected hex MD5 digest to be detected as legacy")
	}
	if security.IsLegacyHash("$argon2id$v=19$m=32768,t=1,p=1$x$y") {
		t.Fatal("argon2id hash must not be detected as legacy")
	}
	if security.IsLegacyHash("zzzz") {
		t.Fatal("short non-hex string must not be detected as legacy")
	}

	if !security.VerifyLegacyPassword("old-password", legacy) {
		t.Fatal("legacy verify failed for the correct password")
	}
	if security.VerifyLegacyPassword("wrong-password", legacy) {
		t.Fatal("legacy verify passed for an incorrect password")
	}

	// daemon wrote digests in either case
	upper := "0123456789ABCDEF0123456789ABCDEF"
	if !security.IsLegacyHash(upper) {
		t.Fatal("uppercase hex digest should still be legacy")
	}
}
