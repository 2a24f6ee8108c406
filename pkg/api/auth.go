package api

import "encoding/json"

// LoginRequest представляет запрос на аутентификацию
type LoginRequest struct {
	Username string `json:"username"` // username или email
	Password string `json:"password"`
}

// RefreshRequest представляет запрос на обновление access token
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// TokenResponse представляет ответ с токенами доступа.
// Login возвращает также User, refresh - только токены.
type TokenResponse struct {
	AccessToken  string          `json:"access_token"`         // JWT access token
	RefreshToken string          `json:"refresh_token"`        // refresh token
	TokenType    string          `json:"token_type,omitempty"` // обычно "bearer"
	User         json.RawMessage `json:"user,omitempty"`       // профиль пользователя (opaque)
	ExpiresIn    int64           `json:"expires_in"`           // время жизни access token в секундах
}

// MessageResponse is the generic {"message": "..."} acknowledgement.
type MessageResponse struct {
	Message string `json:"message"`
}

// ErrorResponse представляет ответ с ошибкой.
// Бэкенд отдаёт detail, старые эндпоинты - error/message.
type ErrorResponse struct {
	Detail  any    `json:"detail,omitempty"`
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
}

// Text returns the most specific human readable message carried by the response.
func (e ErrorResponse) Text() string {
	switch d := e.Detail.(type) {
	case string:
		if d != "" {
			return d
		}
	case nil:
	default:
		if b, err := json.Marshal(d); err == nil {
			return string(b)
		}
	}
	if e.Message != "" {
		return e.Message
	}
	return e.Error
}
