// Package store persists the auth session, wallet session included.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/AlexZinkM/walletlink/internal/crypto"
	"github.com/AlexZinkM/walletlink/internal/model"

	"github.com/zalando/go-keyring"
)

// ErrNoSession means nothing is stored yet
var ErrNoSession = errors.New("no stored session")

// SessionStore saves, loads and clears the auth session
type SessionStore interface {
	Save(session *model.AuthSession) error
	Load() (*model.AuthSession, error)
	Clear() error
}

// PasswordFunc returns the at-rest password; the caller zeroes the result
type PasswordFunc func() ([]byte, error)

// FileStore keeps the session in a password-encrypted .cws file
type FileStore struct {
	path     string
	password PasswordFunc
}

// NewFileStore creates a file store at path
func NewFileStore(path string, password PasswordFunc) *FileStore {
	return &FileStore{path: path, password: password}
}

func (s *FileStore) Save(session *model.AuthSession) error {
	pw, err := s.password()
	if err != nil {
		return err
	}
	defer clear(pw)
	return crypto.EncryptSession(s.path, session, pw)
}

func (s *FileStore) Load() (*model.AuthSession, error) {
	pw, err := s.password()
	if err != nil {
		return nil, err
	}
	defer clear(pw)

	session, err := crypto.DecryptSession(s.path, pw)
	if errors.Is(err, crypto.ErrSessionFileNotFound) {
		return nil, ErrNoSession
	}
	return session, err
}

func (s *FileStore) Clear() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove session file: %w", err)
	}
	return nil
}

// KeyringStore keeps the session in the OS keyring
type KeyringStore struct {
	service string
	user    string
}

// NewKeyringStore creates a keyring store under service/user
func NewKeyringStore(service, user string) *KeyringStore {
	return &KeyringStore{service: service, user: user}
}

func (s *KeyringStore) Save(session *model.AuthSession) error {
	raw, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}
	defer clear(raw)

	if err := keyring.Set(s.service, s.user, string(raw)); err != nil {
		return fmt.Errorf("failed to save session to keyring: %w", err)
	}
	return nil
}

func (s *KeyringStore) Load() (*model.AuthSession, error) {
	raw, err := keyring.Get(s.service, s.user)
	if errors.Is(err, keyring.ErrNotFound) {
		return nil, ErrNoSession
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read session from keyring: %w", err)
	}

	var session model.AuthSession
	if err := json.Unmarshal([]byte(raw), &session); err != nil {
		return nil, fmt.Errorf("failed to parse stored session: %w", err)
	}
	return &session, nil
}

func (s *KeyringStore) Clear() error {
	err := keyring.Delete(s.service, s.user)
	if err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return fmt.Errorf("failed to delete session from keyring: %w", err)
	}
	return nil
}
