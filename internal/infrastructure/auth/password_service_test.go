package auth

import (
	"strings"
	"testing"
)

func TestPasswordService_HashAndVerify(t *testing.T) {
	svc := NewPasswordService()

	hash, err := svc.Hash("Passw0rd!")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if hash == "Passw0rd!" {
		t.Fatal("hash must not equal the plaintext")
	}
	if !strings.HasPrefix(hash, "$2") {
		t.Errorf("expected a bcrypt hash, got %q", hash)
	}

	if !svc.Verify(hash, "Passw0rd!") {
		t.Error("expected the original password to verify")
	}
	if svc.Verify(hash, "wrong") {
		t.Error("expected a wrong password to fail")
	}
}

func TestPasswordService_HashesAreSalted(t *testing.T) {
	svc := NewPasswordService()

	a, err := svc.Hash("Passw0rd!")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, err := svc.Hash("Passw0rd!")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a == b {
		t.Error("expected distinct hashes for the same password")
	}
}
