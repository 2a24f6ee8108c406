package storage

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCredentials_IsAuthenticated(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name  string
		creds Credentials
		want  bool
	}{
		{name: "empty", creds: Credentials{}, want: false},
		{name: "token without expiry", creds: Credentials{AccessToken: "t"}, want: true},
		{name: "token in future", creds: Credentials{AccessToken: "t", ExpiresAt: now.Add(time.Minute)}, want: true},
		{name: "token expired", creds: Credentials{AccessToken: "t", ExpiresAt: now.Add(-time.Minute)}, want: false},
		{name: "expiry without token", creds: Credentials{ExpiresAt: now.Add(time.Hour)}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.creds.IsAuthenticated(now))
		})
	}
}

func TestCredentials_ExpiresAtMillis(t *testing.T) {
	var c Credentials
	assert.Equal(t, int64(0), c.ExpiresAtMillis())
	assert.True(t, c.IsEmpty())

	c.ExpiresAt = time.UnixMilli(42)
	assert.Equal(t, int64(42), c.ExpiresAtMillis())
	assert.False(t, c.IsEmpty())
}

func TestUser_JSONKeepsOpaqueFields(t *testing.T) {
	in := []byte(`{"user_id":"u-1","username":"bob","role":"analyst","login_count":3}`)

	user, err := ParseUser(in)
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Equal(t, "bob", user.Username)
	assert.Equal(t, "analyst", user.Role)
	assert.Equal(t, "u-1", user.Extra["user_id"])

	out, err := json.Marshal(user)
	require.NoError(t, err)
	assert.JSONEq(t, string(in), string(out))
}

func TestParseUser_Empty(t *testing.T) {
	for _, in := range [][]byte{nil, []byte("null")} {
		user, err := ParseUser(in)
		require.NoError(t, err)
		assert.Nil(t, user)
	}

	_, err := ParseUser([]byte(`"just a string"`))
	assert.Error(t, err)
}
