package keyring

import (
	"errors"
	"testing"

	"github.com/zalando/go-keyring"
)

func TestStore_RoundTrip(t *testing.T) {
	keyring.MockInit()

	s := New("")
	if s.Service() != DefaultService {
		t.Errorf("Service mismatch: got %s", s.Service())
	}

	if s.HasPassword("vault-1") {
		t.Error("Fresh keyring should have no password")
	}
	if _, err := s.GetPassword("vault-1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}

	if err := s.SavePassword("vault-1", []byte("hunter2")); err != nil {
		t.Fatalf("Failed to save: %v", err)
	}
	pw, err := s.GetPassword("vault-1")
	if err != nil {
		t.Fatalf("Failed to get: %v", err)
	}
	if string(pw) != "hunter2" {
		t.Errorf("Password mismatch: got %q", pw)
	}

	if err := s.DeletePassword("vault-1"); err != nil {
		t.Fatalf("Failed to delete: %v", err)
	}
	if s.HasPassword("vault-1") {
		t.Error("Password should be gone after delete")
	}
}

func TestStore_ServicesAreSeparate(t *testing.T) {
	keyring.MockInit()

	a, b := New("svc-a"), New("svc-b")
	if err := a.SavePassword("id", []byte("one")); err != nil {
		t.Fatalf("Failed to save: %v", err)
	}
	if b.HasPassword("id") {
		t.Error("Password leaked across services")
	}
	if err := a.SavePassword("", []byte("x")); err == nil {
		t.Error("Expected error for empty vault ID")
	}
}
