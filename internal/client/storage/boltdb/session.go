package boltdb

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"go.etcd.io/bbolt"

	"github.com/iudanet/cvewatch/internal/client/storage"
)

var sessionKeys = [][]byte{
	[]byte(storage.KeyAuthToken),
	[]byte(storage.KeyRefreshToken),
	[]byte(storage.KeyTokenExpiresAt),
	[]byte(storage.KeyUserData),
}

// Get retrieves the stored session record
func (s *Storage) Get(ctx context.Context) (*storage.Credentials, error) {
	creds := &storage.Credentials{}

	err := s.view(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketSession)
		if bucket == nil {
			return fmt.Errorf("session bucket not found")
		}

		creds.AccessToken = string(bucket.Get([]byte(storage.KeyAuthToken)))
		creds.RefreshToken = string(bucket.Get([]byte(storage.KeyRefreshToken)))

		// Срок хранится как epoch-ms строкой
		if raw := bucket.Get([]byte(storage.KeyTokenExpiresAt)); raw != nil {
			ms, err := strconv.ParseInt(string(raw), 10, 64)
			if err != nil {
				return fmt.Errorf("%w: %s: %v", storage.ErrCorruptRecord, storage.KeyTokenExpiresAt, err)
			}
			creds.ExpiresAt = time.UnixMilli(ms)
		}

		if raw := bucket.Get([]byte(storage.KeyUserData)); raw != nil {
			user, err := storage.ParseUser(raw)
			if err != nil {
				return fmt.Errorf("%w: %s: %v", storage.ErrCorruptRecord, storage.KeyUserData, err)
			}
			creds.User = user
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return creds, nil
}

// Set merges the present fields of c into the stored record
func (s *Storage) Set(ctx context.Context, c storage.Credentials) error {
	var userData []byte
	if c.User != nil {
		data, err := json.Marshal(c.User)
		if err != nil {
			return fmt.Errorf("failed to marshal user data: %w", err)
		}
		userData = data
	}

	return s.update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketSession)
		if bucket == nil {
			return fmt.Errorf("session bucket not found")
		}

		put := func(key string, value []byte) error {
			if err := bucket.Put([]byte(key), value); err != nil {
				return fmt.Errorf("failed to save %s: %w", key, err)
			}
			return nil
		}

		if c.AccessToken != "" {
			if err := put(storage.KeyAuthToken, []byte(c.AccessToken)); err != nil {
				return err
			}
		}
		if c.RefreshToken != "" {
			if err := put(storage.KeyRefreshToken, []byte(c.RefreshToken)); err != nil {
				return err
			}
		}
		if c.HasExpiry() {
			ms := strconv.FormatInt(c.ExpiresAtMillis(), 10)
			if err := put(storage.KeyTokenExpiresAt, []byte(ms)); err != nil {
				return err
			}
		}
		if userData != nil {
			if err := put(storage.KeyUserData, userData); err != nil {
				return err
			}
		}

		return nil
	})
}

// Clear removes the whole session record in one transaction (logout)
func (s *Storage) Clear(ctx context.Context) error {
	return s.update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketSession)
		if bucket == nil {
			return fmt.Errorf("session bucket not found")
		}

		// Удаление отсутствующего ключа в bbolt не ошибка
		for _, key := range sessionKeys {
			if err := bucket.Delete(key); err != nil {
				return fmt.Errorf("failed to delete %s: %w", key, err)
			}
		}

		return nil
	})
}
