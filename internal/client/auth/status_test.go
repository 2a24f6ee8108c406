package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/cvewatch/internal/client/storage"
)

func signTestToken(t *testing.T, claims jwt.Claims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return token
}

func TestManager_Describe_StoredUser(t *testing.T) {
	m, _ := newTestManager(t, &mockAuthAPI{}, sessionExpiringIn(20*time.Minute))

	st, err := m.Describe(context.Background())

	require.NoError(t, err)
	assert.True(t, st.Authenticated)
	assert.True(t, st.HasRefreshToken)
	assert.False(t, st.FromToken)
	assert.Equal(t, "alice", st.Username)
	assert.Equal(t, "analyst", st.Role)
	assert.Equal(t, 20*time.Minute, st.Remaining)
}

func TestManager_Describe_FromTokenClaims(t *testing.T) {
	token := signTestToken(t, tokenClaims{
		Role: "admin",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "carol",
			ExpiresAt: jwt.NewNumericDate(testNow.Add(10 * time.Minute)),
		},
	})
	// Срок в хранилище отсутствует, пользователь не сохранён
	m, _ := newTestManager(t, &mockAuthAPI{}, &storage.Credentials{AccessToken: token})

	st, err := m.Describe(context.Background())

	require.NoError(t, err)
	assert.True(t, st.Authenticated)
	assert.True(t, st.FromToken)
	assert.Equal(t, "carol", st.Username)
	assert.Equal(t, "admin", st.Role)
	assert.Equal(t, 10*time.Minute, st.Remaining)
}

func TestManager_Describe_OpaqueToken(t *testing.T) {
	m, _ := newTestManager(t, &mockAuthAPI{}, &storage.Credentials{AccessToken: "not-a-jwt"})

	st, err := m.Describe(context.Background())

	require.NoError(t, err)
	assert.True(t, st.Authenticated)
	assert.False(t, st.FromToken)
	assert.Empty(t, st.Username)
}

func TestManager_Describe_Empty(t *testing.T) {
	m, _ := newTestManager(t, &mockAuthAPI{}, nil)

	st, err := m.Describe(context.Background())

	require.NoError(t, err)
	assert.False(t, st.Authenticated)
	assert.False(t, st.HasRefreshToken)
	assert.True(t, st.ExpiresAt.IsZero())
}
