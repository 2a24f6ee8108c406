package boltdb

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.etcd.io/bbolt"

	"github.com/iudanet/cvewatch/internal/client/storage"
)

func TestStorage_GetEmpty(t *testing.T) {
	store := createTestStorage(t)

	got, err := store.Get(context.Background())
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, got.IsEmpty())
}

func TestStorage_SetGetClear(t *testing.T) {
	ctx := context.Background()
	store := createTestStorage(t)

	expiresAt := time.UnixMilli(time.Now().Add(time.Hour).UnixMilli())
	creds := storage.Credentials{
		AccessToken:  "access-1",
		RefreshToken: "refresh-1",
		ExpiresAt:    expiresAt,
		User: &storage.User{
			Username: "analyst",
			Role:     "admin",
			Extra:    map[string]any{"email": "analyst@example.com"},
		},
	}

	require.NoError(t, store.Set(ctx, creds))

	got, err := store.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, "access-1", got.AccessToken)
	assert.Equal(t, "refresh-1", got.RefreshToken)
	assert.True(t, expiresAt.Equal(got.ExpiresAt))
	require.NotNil(t, got.User)
	assert.Equal(t, "analyst", got.User.Username)
	assert.Equal(t, "admin", got.User.Role)
	assert.Equal(t, "analyst@example.com", got.User.Extra["email"])

	// Clear убирает все четыре поля
	require.NoError(t, store.Clear(ctx))

	got, err = store.Get(ctx)
	require.NoError(t, err)
	assert.True(t, got.IsEmpty())

	// Повторная очистка пустого хранилища не ошибка
	assert.NoError(t, store.Clear(ctx))
}

func TestStorage_SetMerges(t *testing.T) {
	ctx := context.Background()
	store := createTestStorage(t)

	user := &storage.User{Username: "alice", Role: "user"}
	require.NoError(t, store.Set(ctx, storage.Credentials{
		AccessToken:  "old-access",
		RefreshToken: "old-refresh",
		ExpiresAt:    time.UnixMilli(1000),
		User:         user,
	}))

	// Частичная запись: пользователь не передан и не должен пропасть
	require.NoError(t, store.Set(ctx, storage.Credentials{
		AccessToken:  "new-access",
		RefreshToken: "new-refresh",
		ExpiresAt:    time.UnixMilli(2000),
	}))

	got, err := store.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, "new-access", got.AccessToken)
	assert.Equal(t, "new-refresh", got.RefreshToken)
	assert.Equal(t, int64(2000), got.ExpiresAtMillis())
	require.NotNil(t, got.User)
	assert.Equal(t, "alice", got.User.Username)
}

func TestStorage_ExpiresAtStoredAsEpochMillis(t *testing.T) {
	ctx := context.Background()
	store := createTestStorage(t)

	require.NoError(t, store.Set(ctx, storage.Credentials{ExpiresAt: time.UnixMilli(1700000000123)}))

	err := store.db.View(func(tx *bbolt.Tx) error {
		raw := tx.Bucket(bucketSession).Get([]byte(storage.KeyTokenExpiresAt))
		assert.Equal(t, "1700000000123", string(raw))
		return nil
	})
	require.NoError(t, err)
}

func TestStorage_Get_CorruptExpiry(t *testing.T) {
	ctx := context.Background()
	store := createTestStorage(t)

	err := store.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketSession).Put([]byte(storage.KeyTokenExpiresAt), []byte("not-a-number"))
	})
	require.NoError(t, err)

	_, err = store.Get(ctx)
	assert.ErrorIs(t, err, storage.ErrCorruptRecord)
}

func TestStorage_Get_CorruptUser(t *testing.T) {
	ctx := context.Background()
	store := createTestStorage(t)

	err := store.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketSession).Put([]byte(storage.KeyUserData), []byte("{broken"))
	})
	require.NoError(t, err)

	_, err = store.Get(ctx)
	assert.ErrorIs(t, err, storage.ErrCorruptRecord)
}

func TestStorage_BucketMissing(t *testing.T) {
	ctx := context.Background()
	store := createTestStorage(t)

	// Удаляем bucket напрямую
	err := store.db.Update(func(tx *bbolt.Tx) error {
		return tx.DeleteBucket(bucketSession)
	})
	require.NoError(t, err)

	_, err = store.Get(ctx)
	assert.Error(t, err)
	assert.Error(t, store.Set(ctx, storage.Credentials{AccessToken: "x"}))
	assert.Error(t, store.Clear(ctx))
}
