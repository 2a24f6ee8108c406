package auth

import (
	"context"
	"fmt"
	"strings"

	"github.com/iudanet/cvewatch/internal/client/storage"
	"github.com/iudanet/cvewatch/internal/crypto"
)

// sealedPrefix помечает зашифрованные значения в хранилище
const sealedPrefix = "sealed:"

// SealedStore implements storage.CredentialStorage and provides encryption layer
// between the token manager and storage. It encrypts tokens before saving
// and decrypts them when retrieving. Expiry and user are stored as is.
type SealedStore struct {
	storage storage.CredentialStorage
	key     []byte
}

// Compile-time check that SealedStore implements CredentialStorage
var _ storage.CredentialStorage = (*SealedStore)(nil)

// NewSealedStore creates a SealedStore with the given 32-byte key
func NewSealedStore(s storage.CredentialStorage, key []byte) (*SealedStore, error) {
	if len(key) != crypto.KeySize {
		return nil, fmt.Errorf("encryption key must be %d bytes, got %d", crypto.KeySize, len(key))
	}
	return &SealedStore{storage: s, key: key}, nil
}

// OpenSealedStore derives the key from passphrase and the per-database salt
func OpenSealedStore(ctx context.Context, s storage.CredentialStorage, prefs storage.PreferencesStorage, passphrase string) (*SealedStore, error) {
	salt, err := prefs.GetOrCreateSalt(ctx, crypto.GenerateSalt)
	if err != nil {
		return nil, fmt.Errorf("failed to get store salt: %w", err)
	}
	key, err := crypto.DeriveKey(passphrase, salt)
	if err != nil {
		return nil, fmt.Errorf("failed to derive store key: %w", err)
	}
	return NewSealedStore(s, key)
}

// Set шифрует токены и передаёт запись в хранилище
func (s *SealedStore) Set(ctx context.Context, c storage.Credentials) error {
	var err error
	if c.AccessToken, err = s.seal(c.AccessToken); err != nil {
		return fmt.Errorf("failed to encrypt access token: %w", err)
	}
	if c.RefreshToken, err = s.seal(c.RefreshToken); err != nil {
		return fmt.Errorf("failed to encrypt refresh token: %w", err)
	}
	return s.storage.Set(ctx, c)
}

// Get загружает запись из хранилища и расшифровывает токены
func (s *SealedStore) Get(ctx context.Context) (*storage.Credentials, error) {
	stored, err := s.storage.Get(ctx)
	if err != nil {
		return nil, err
	}

	// Копируем структуру, чтобы не менять значение хранилища
	creds := *stored
	if creds.AccessToken, err = s.open(stored.AccessToken); err != nil {
		return nil, fmt.Errorf("failed to decrypt access token: %w", err)
	}
	if creds.RefreshToken, err = s.open(stored.RefreshToken); err != nil {
		return nil, fmt.Errorf("failed to decrypt refresh token: %w", err)
	}
	return &creds, nil
}

// Clear удаляет данные
func (s *SealedStore) Clear(ctx context.Context) error {
	return s.storage.Clear(ctx)
}

func (s *SealedStore) seal(value string) (string, error) {
	if value == "" {
		return "", nil
	}
	sealed, err := crypto.EncryptToBase64([]byte(value), s.key)
	if err != nil {
		return "", err
	}
	return sealedPrefix + sealed, nil
}

func (s *SealedStore) open(value string) (string, error) {
	if value == "" {
		return "", nil
	}
	encoded, ok := strings.CutPrefix(value, sealedPrefix)
	if !ok {
		return "", fmt.Errorf("%w: value is not sealed", storage.ErrCorruptRecord)
	}
	plain, err := crypto.DecryptFromBase64(encoded, s.key)
	if err != nil {
		// Другой ключ или повреждённые данные
		return "", fmt.Errorf("%w: %w", storage.ErrCorruptRecord, err)
	}
	return string(plain), nil
}
