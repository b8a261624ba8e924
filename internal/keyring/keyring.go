// Package keyring caches vault passwords in the OS keyring, keyed by vault ID.
package keyring

import (
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"
)

// DefaultService is the keyring service name entries are filed under.
const DefaultService = "cipherbox"

// ErrNotFound is returned when no password is stored for a vault.
var ErrNotFound = keyring.ErrNotFound

// Store reads and writes vault passwords under one service name.
type Store struct {
	service string
}

// New returns a Store for service, or DefaultService when empty.
func New(service string) *Store {
	if service == "" {
		service = DefaultService
	}
	return &Store{service: service}
}

// Service returns the keyring service name.
func (s *Store) Service() string { return s.service }

// SavePassword stores a password in the OS keyring
func (s *Store) SavePassword(vaultID string, password []byte) error {
	if vaultID == "" {
		return errors.New("empty vault ID")
	}
	if err := keyring.Set(s.service, vaultID, string(password)); err != nil {
		return fmt.Errorf("failed to save password to keyring: %w", err)
	}
	return nil
}

// GetPassword retrieves a password from the OS keyring
func (s *Store) GetPassword(vaultID string) ([]byte, error) {
	pw, err := keyring.Get(s.service, vaultID)
	if err != nil {
		return nil, err
	}
	return []byte(pw), nil
}

// DeletePassword removes a password from the OS keyring
func (s *Store) DeletePassword(vaultID string) error {
	return keyring.Delete(s.service, vaultID)
}

// HasPassword checks if a password is stored in the keyring
func (s *Store) HasPassword(vaultID string) bool {
	_, err := keyring.Get(s.service, vaultID)
	return err == nil
}
