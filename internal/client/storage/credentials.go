package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// Ключи записи сессии. Совпадают с ключами, которые веб-клиент держал в localStorage.
const (
	KeyAuthToken      = "auth_token"
	KeyRefreshToken   = "refresh_token"
	KeyTokenExpiresAt = "token_expires_at"
	KeyUserData       = "user_data"
)

// CredentialStorage defines the persistent session record on the client.
// It is the lowest layer: it stores values as-is and performs no validation.
type CredentialStorage interface {
	// Get returns the current record. Absent fields are zero values;
	// an empty store yields an empty record, not an error.
	Get(ctx context.Context) (*Credentials, error)

	// Set merges every non-absent field of c into the record in one transaction.
	Set(ctx context.Context, c Credentials) error

	// Clear removes all four fields in one transaction.
	Clear(ctx context.Context) error
}

// Credentials is the session record.
// Empty strings, zero ExpiresAt and nil User mean "absent".
type Credentials struct {
	ExpiresAt    time.Time
	User         *User
	AccessToken  string
	RefreshToken string
}

// HasExpiry reports whether the expiry timestamp is present.
func (c *Credentials) HasExpiry() bool {
	return !c.ExpiresAt.IsZero()
}

// IsEmpty reports whether no field is present.
func (c *Credentials) IsEmpty() bool {
	return c.AccessToken == "" && c.RefreshToken == "" && !c.HasExpiry() && c.User == nil
}

// IsAuthenticated проверяет наличие access token и срок его действия.
// Отсутствие срока действия считается "не истёк".
func (c *Credentials) IsAuthenticated(now time.Time) bool {
	if c.AccessToken == "" {
		return false
	}
	if !c.HasExpiry() {
		return true
	}
	return now.Before(c.ExpiresAt)
}

// ExpiresAtMillis returns the expiry as epoch milliseconds, 0 when absent.
func (c *Credentials) ExpiresAtMillis() int64 {
	if !c.HasExpiry() {
		return 0
	}
	return c.ExpiresAt.UnixMilli()
}

// User is the last known authenticated identity, used for display only.
// Fields the client does not know about are kept in Extra and written back unchanged.
type User struct {
	Extra    map[string]any
	Username string
	Role     string
}

// MarshalJSON flattens Extra next to the known fields.
func (u User) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(u.Extra)+2)
	for k, v := range u.Extra {
		out[k] = v
	}
	out["username"] = u.Username
	out["role"] = u.Role
	return json.Marshal(out)
}

// UnmarshalJSON splits known fields from the opaque rest.
func (u *User) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("failed to unmarshal user: %w", err)
	}
	u.Username, _ = raw["username"].(string)
	u.Role, _ = raw["role"].(string)
	delete(raw, "username")
	delete(raw, "role")
	u.Extra = nil
	if len(raw) > 0 {
		u.Extra = raw
	}
	return nil
}

// ParseUser decodes a user object from a backend response.
// Empty input returns nil without error.
func ParseUser(data []byte) (*User, error) {
	if len(data) == 0 || string(data) == "null" {
		return nil, nil
	}
	var u User
	if err := json.Unmarshal(data, &u); err != nil {
		return nil, err
	}
	return &u, nil
}
