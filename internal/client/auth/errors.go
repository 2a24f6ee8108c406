package auth

import (
	"errors"
	"fmt"
)

// ErrNoRefreshToken означает, что в записи сессии нет refresh token
var ErrNoRefreshToken = errors.New("no refresh token available")

// ErrMalformedTokenResponse означает ответ refresh/login без обязательных полей
var ErrMalformedTokenResponse = errors.New("malformed token response")

// RefreshError - неудачная попытка обновления токена.
// После неё запись сессии всегда очищена.
type RefreshError struct {
	Err error
}

// Error implements the error interface.
func (e *RefreshError) Error() string {
	return fmt.Sprintf("token refresh failed: %v", e.Err)
}

// Unwrap returns the underlying error.
func (e *RefreshError) Unwrap() error {
	return e.Err
}
