package storage

import (
	"errors"
	"path/filepath"
	"testing"
	"time"
)

var fastBackOff = BackOffOpts{
	LockTimeout:     20 * time.Millisecond,
	InitialInterval: 10 * time.Millisecond,
	MaxInterval:     20 * time.Millisecond,
	MaxElapsedTime:  100 * time.Millisecond,
}

func TestOpenWithBackOff_Locked(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "locked.cipherbox")

	holder, err := Open(dbPath)
	if err != nil {
		t.Fatalf("Failed to open: %v", err)
	}
	defer holder.Close()

	start := time.Now()
	_, err = OpenWithBackOff(dbPath, fastBackOff)
	if !errors.Is(err, ErrLocked) {
		t.Fatalf("Expected ErrLocked, got %v", err)
	}
	if elapsed := time.Since(start); elapsed < fastBackOff.MaxElapsedTime {
		t.Errorf("Gave up after %v, before the retry budget", elapsed)
	}
}

func TestOpenWithBackOff_ReleasedWhileWaiting(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "released.cipherbox")

	holder, err := Open(dbPath)
	if err != nil {
		t.Fatalf("Failed to open: %v", err)
	}
	go func() {
		time.Sleep(30 * time.Millisecond)
		holder.Close()
	}()

	opts := fastBackOff
	opts.MaxElapsedTime = 2 * time.Second
	db, err := OpenWithBackOff(dbPath, opts)
	if err != nil {
		t.Fatalf("Expected open to succeed after release, got %v", err)
	}
	db.Close()
}

func TestOpenWithBackOff_OtherErrorsNotRetried(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "missing-dir", "x.cipherbox")

	_, err := OpenWithBackOff(dbPath, fastBackOff)
	if err == nil || errors.Is(err, ErrLocked) {
		t.Fatalf("Expected a plain open error, got %v", err)
	}
}
