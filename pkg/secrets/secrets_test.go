package secrets

import "testing"

func TestGenerateHashVerify(t *testing.T) {
	secret, err := Generate()
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if secret == "" {
		t.Fatal("expected non-empty secret")
	}

	hash, err := Hash(secret)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}

	if err := Verify(secret, hash); err != nil {
		t.Fatalf("verify with correct secret: %v", err)
	}
	if err := Verify("wrong-secret", hash); err == nil {
		t.Fatal("expected verification failure for wrong secret")
	}
}

func TestHashRejectsEmptySecret(t *testing.T) {
	if _, err := Hash(""); err == nil {
		t.Fatal("expected error for empty secret")
	}
}
