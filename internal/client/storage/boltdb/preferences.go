package boltdb

import (
	"context"
	"encoding/json"
	"fmt"

	"go.etcd.io/bbolt"

	"github.com/iudanet/cvewatch/internal/client/storage"
)

var (
	keyPreferences = []byte("prefs")
	keySealSalt    = []byte("seal_salt")
)

// GetPreferences retrieves stored preferences or defaults
func (s *Storage) GetPreferences(ctx context.Context) (*storage.Preferences, error) {
	prefs := storage.DefaultPreferences()

	err := s.view(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketPreferences)
		if bucket == nil {
			return fmt.Errorf("preferences bucket not found")
		}

		data := bucket.Get(keyPreferences)
		if data == nil {
			return nil
		}

		if err := json.Unmarshal(data, prefs); err != nil {
			return fmt.Errorf("%w: preferences: %v", storage.ErrCorruptRecord, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return prefs, nil
}

// SavePreferences overwrites stored preferences
func (s *Storage) SavePreferences(ctx context.Context, p *storage.Preferences) error {
	if p == nil {
		return fmt.Errorf("preferences are nil")
	}

	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to marshal preferences: %w", err)
	}

	return s.update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketPreferences)
		if bucket == nil {
			return fmt.Errorf("preferences bucket not found")
		}
		if err := bucket.Put(keyPreferences, data); err != nil {
			return fmt.Errorf("failed to save preferences: %w", err)
		}
		return nil
	})
}

// GetOrCreateSalt returns the salt used to seal tokens at rest.
// Read and create happen in the same write transaction.
func (s *Storage) GetOrCreateSalt(ctx context.Context, gen func() ([]byte, error)) ([]byte, error) {
	var salt []byte

	err := s.update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketPreferences)
		if bucket == nil {
			return fmt.Errorf("preferences bucket not found")
		}

		if existing := bucket.Get(keySealSalt); existing != nil {
			// Значения bbolt валидны только внутри транзакции
			salt = append([]byte(nil), existing...)
			return nil
		}

		fresh, err := gen()
		if err != nil {
			return fmt.Errorf("failed to generate salt: %w", err)
		}
		if err := bucket.Put(keySealSalt, fresh); err != nil {
			return fmt.Errorf("failed to save salt: %w", err)
		}
		salt = fresh
		return nil
	})
	if err != nil {
		return nil, err
	}

	return salt, nil
}
