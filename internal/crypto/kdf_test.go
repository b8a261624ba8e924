package crypto

import (
	"bytes"
	"testing"
)

func TestKDF_DeriveKey(t *testing.T) {
	kdf, err := NewKDF(1000)
	if err != nil {
		t.Fatalf("NewKDF failed: %v", err)
	}
	if len(kdf.Salt) != SaltSize {
		t.Errorf("Salt size mismatch: got %d, want %d", len(kdf.Salt), SaltSize)
	}

	k1 := kdf.DeriveKey([]byte("password"), 32)
	k2 := kdf.DeriveKey([]byte("password"), 32)
	if !bytes.Equal(k1, k2) {
		t.Error("DeriveKey should be deterministic")
	}
	if len(k1) != 32 {
		t.Errorf("Key length mismatch: got %d, want 32", len(k1))
	}
	if bytes.Equal(k1, kdf.DeriveKey([]byte("other"), 32)) {
		t.Error("Different passwords should derive different keys")
	}
}

func TestKDF_DefaultIterations(t *testing.T) {
	kdf, err := NewKDF(0)
	if err != nil {
		t.Fatalf("NewKDF failed: %v", err)
	}
	if kdf.Iterations != DefaultIters {
		t.Errorf("Iterations mismatch: got %d, want %d", kdf.Iterations, DefaultIters)
	}
}

func TestRandomBytes(t *testing.T) {
	a, err := RandomBytes(32)
	if err != nil {
		t.Fatalf("RandomBytes failed: %v", err)
	}
	b, err := RandomBytes(32)
	if err != nil {
		t.Fatalf("RandomBytes failed: %v", err)
	}
	if bytes.Equal(a, b) {
		t.Error("Two random reads should differ")
	}
	if _, err := RandomBytes(-1); err == nil {
		t.Error("Expected error for negative length")
	}
}

func TestClearBytes(t *testing.T) {
	b := []byte("secret")
	ClearBytes(b)
	if !bytes.Equal(b, make([]byte, 6)) {
		t.Errorf("ClearBytes left data behind: %v", b)
	}
	if !ConstantTimeCompare([]byte("a"), []byte("a")) || ConstantTimeCompare([]byte("a"), []byte("b")) {
		t.Error("ConstantTimeCompare gave wrong answer")
	}
}
