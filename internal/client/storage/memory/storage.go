// Package memory provides a process-local storage backend.
// It backs ephemeral sessions (nothing written to disk) and tests.
package memory

import (
	"context"
	"sync"

	"github.com/iudanet/cvewatch/internal/client/storage"
)

var (
	_ storage.CredentialStorage  = (*Storage)(nil)
	_ storage.PreferencesStorage = (*Storage)(nil)
)

// Storage keeps the session record and preferences in memory.
type Storage struct {
	creds storage.Credentials
	prefs *storage.Preferences
	salt  []byte
	mu    sync.RWMutex
}

// New returns an empty in-memory storage.
func New() *Storage {
	return &Storage{}
}

// Get returns a copy of the record.
func (s *Storage) Get(ctx context.Context) (*storage.Credentials, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c := s.creds
	if c.User != nil {
		u := *c.User
		c.User = &u
	}
	return &c, nil
}

// Set merges the present fields of c.
func (s *Storage) Set(ctx context.Context, c storage.Credentials) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c.AccessToken != "" {
		s.creds.AccessToken = c.AccessToken
	}
	if c.RefreshToken != "" {
		s.creds.RefreshToken = c.RefreshToken
	}
	if c.HasExpiry() {
		s.creds.ExpiresAt = c.ExpiresAt
	}
	if c.User != nil {
		u := *c.User
		s.creds.User = &u
	}
	return nil
}

// Clear drops the whole record.
func (s *Storage) Clear(ctx context.Context) error {
	s.mu.Lock()
	s.creds = storage.Credentials{}
	s.mu.Unlock()
	return nil
}

// GetPreferences returns saved preferences or defaults.
func (s *Storage) GetPreferences(ctx context.Context) (*storage.Preferences, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.prefs == nil {
		return storage.DefaultPreferences(), nil
	}
	p := *s.prefs
	return &p, nil
}

// SavePreferences overwrites preferences.
func (s *Storage) SavePreferences(ctx context.Context, p *storage.Preferences) error {
	if p == nil {
		return nil
	}
	s.mu.Lock()
	cp := *p
	s.prefs = &cp
	s.mu.Unlock()
	return nil
}

// GetOrCreateSalt returns the salt, generating it once.
func (s *Storage) GetOrCreateSalt(ctx context.Context, gen func() ([]byte, error)) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.salt == nil {
		salt, err := gen()
		if err != nil {
			return nil, err
		}
		s.salt = salt
	}
	return append([]byte(nil), s.salt...), nil
}
