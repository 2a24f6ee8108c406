package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Status описывает текущую сессию для отображения пользователю
type Status struct {
	ExpiresAt       time.Time
	Username        string
	Role            string
	Remaining       time.Duration
	Authenticated   bool
	HasRefreshToken bool
	// FromToken means identity fields were read from the access token claims.
	FromToken bool
}

// Describe собирает состояние сессии. Если пользователь не сохранён,
// имя и роль берутся из claims access token. Подпись не проверяется:
// данные используются только для отображения.
func (m *Manager) Describe(ctx context.Context) (*Status, error) {
	creds, err := m.store.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read credentials: %w", err)
	}

	now := m.now()
	st := &Status{
		Authenticated:   creds.IsAuthenticated(now),
		HasRefreshToken: creds.RefreshToken != "",
		ExpiresAt:       creds.ExpiresAt,
	}
	if creds.HasExpiry() {
		st.Remaining = creds.ExpiresAt.Sub(now)
	}

	if creds.User != nil {
		st.Username = creds.User.Username
		st.Role = creds.User.Role
		return st, nil
	}

	if creds.AccessToken == "" {
		return st, nil
	}
	claims, err := parseClaims(creds.AccessToken)
	if err != nil {
		m.logger.Debug("access token is not a readable JWT", "error", err)
		return st, nil
	}
	st.FromToken = true
	st.Username = claims.Subject
	if claims.Username != "" {
		st.Username = claims.Username
	}
	st.Role = claims.Role
	if !creds.HasExpiry() && claims.ExpiresAt != nil {
		// Только для отображения: отсутствие срока в хранилище по-прежнему считается "не истёк"
		st.ExpiresAt = claims.ExpiresAt.Time
		st.Remaining = claims.ExpiresAt.Sub(now)
	}
	return st, nil
}

// tokenClaims - поля, которые бэкенд кладёт в access token
type tokenClaims struct {
	Username string `json:"username,omitempty"`
	Role     string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// parseClaims читает claims без проверки подписи
func parseClaims(token string) (*tokenClaims, error) {
	claims := &tokenClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, fmt.Errorf("failed to parse token claims: %w", err)
	}
	return claims, nil
}
