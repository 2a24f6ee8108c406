package storage

import "context"

// PreferencesStorage keeps client-side settings that live next to the session
// but are not part of it: they survive logout.
type PreferencesStorage interface {
	// GetPreferences returns stored preferences, or defaults when nothing was saved
	GetPreferences(ctx context.Context) (*Preferences, error)

	// SavePreferences overwrites stored preferences
	SavePreferences(ctx context.Context, p *Preferences) error

	// GetOrCreateSalt returns the per-database salt, generating it with gen on first use
	GetOrCreateSalt(ctx context.Context, gen func() ([]byte, error)) ([]byte, error)
}

// Preferences представляет локальные настройки клиента
type Preferences struct {
	ChatSessionID string `json:"chat_session_id,omitempty"` // текущая сессия чата
	DefaultLimit  int    `json:"default_limit,omitempty"`   // лимит выдачи поиска по умолчанию
	DarkMode      bool   `json:"dark_mode"`
}

// DefaultPreferences returns the values used before anything is saved.
func DefaultPreferences() *Preferences {
	return &Preferences{DefaultLimit: 20}
}
