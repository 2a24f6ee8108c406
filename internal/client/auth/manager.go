package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/iudanet/cvewatch/internal/client/storage"
	"github.com/iudanet/cvewatch/internal/logging"
	"github.com/iudanet/cvewatch/internal/validation"
	pkgapi "github.com/iudanet/cvewatch/pkg/api"
)

// DefaultRefreshWindow - за сколько до истечения токен обновляется заранее
const DefaultRefreshWindow = 5 * time.Minute

// defaultLoginTTL используется, когда login не вернул expires_in
const defaultLoginTTL = 3600 * time.Second

// maxExpiresIn - наибольшее expires_in, представимое как time.Duration
const maxExpiresIn = math.MaxInt64 / int64(time.Second)

// tokenTTL переводит expires_in в длительность, ограничивая сверху
func tokenTTL(expiresIn int64) time.Duration {
	return time.Duration(min(expiresIn, maxExpiresIn)) * time.Second
}

// AuthAPI описывает auth эндпоинты бэкенда. Реализуется api.Client.
type AuthAPI interface {
	Login(ctx context.Context, req pkgapi.LoginRequest) (*pkgapi.TokenResponse, error)
	Refresh(ctx context.Context, req pkgapi.RefreshRequest) (*pkgapi.TokenResponse, error)
	Logout(ctx context.Context, accessToken string) error
}

// Manager управляет жизненным циклом токенов: выдаёт действующий access token,
// заранее обновляет его и очищает сессию при любой ошибке обновления.
type Manager struct {
	api           AuthAPI
	store         storage.CredentialStorage
	logger        *slog.Logger
	now           func() time.Time
	flight        singleflight.Group
	refreshWindow time.Duration
}

// Option настраивает Manager
type Option func(*Manager)

// WithLogger задаёт логгер
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// WithClock подменяет текущее время (для тестов)
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// WithRefreshWindow задаёт окно заблаговременного обновления
func WithRefreshWindow(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.refreshWindow = d
		}
	}
}

// NewManager создает менеджер токенов
func NewManager(api AuthAPI, store storage.CredentialStorage, opts ...Option) *Manager {
	m := &Manager{
		api:           api,
		store:         store,
		now:           time.Now,
		refreshWindow: DefaultRefreshWindow,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.logger == nil {
		m.logger = logging.Discard()
	}
	m.logger = m.logger.With("component", "auth")
	return m
}

// EnsureValidToken возвращает access token, пригодный для запроса.
//
// Без срока действия токен возвращается как есть (возможно, пустой).
// Если до истечения меньше окна обновления, выполняется Refresh;
// при неудаче сессия уже очищена и возвращается "" без ошибки.
// Ошибка возвращается только при сбое хранилища.
func (m *Manager) EnsureValidToken(ctx context.Context) (string, error) {
	creds, err := m.store.Get(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to read credentials: %w", err)
	}
	if !m.needsRefresh(creds) {
		return creds.AccessToken, nil
	}

	res := m.refreshShared(ctx, true)
	if res.storeErr != nil {
		return "", res.storeErr
	}
	if res.refreshErr != nil {
		m.logger.Warn("token refresh failed, continuing unauthenticated", "error", res.refreshErr)
		return "", nil
	}
	return res.token, nil
}

// Refresh обменивает refresh token на новую пару токенов.
// Конкурентные вызовы разделяют один запрос и его результат.
// При любой неудаче запись сессии очищается целиком.
func (m *Manager) Refresh(ctx context.Context) (string, error) {
	res := m.refreshShared(ctx, false)
	if res.refreshErr != nil || res.storeErr != nil {
		var errs []error
		if res.refreshErr != nil {
			errs = append(errs, res.refreshErr)
		}
		if res.storeErr != nil {
			errs = append(errs, res.storeErr)
		}
		return "", errors.Join(errs...)
	}
	return res.token, nil
}

// refreshResult - результат одного обновления, общий для всех ожидающих
type refreshResult struct {
	refreshErr *RefreshError
	storeErr   error
	token      string
}

// needsRefresh проверяет окно обновления. Запись без срока действия не обновляется.
func (m *Manager) needsRefresh(creds *storage.Credentials) bool {
	if !creds.HasExpiry() {
		return false
	}
	return creds.ExpiresAt.Sub(m.now()) < m.refreshWindow
}

func (m *Manager) refreshShared(ctx context.Context, onlyIfStale bool) refreshResult {
	// Отмена контекста первого вызывающего не должна обрывать общий запрос
	// и приводить к очистке сессии для остальных
	flightCtx := context.WithoutCancel(ctx)
	v, _, _ := m.flight.Do("refresh", func() (any, error) {
		return m.refresh(flightCtx, onlyIfStale), nil
	})
	return v.(refreshResult)
}

func (m *Manager) refresh(ctx context.Context, onlyIfStale bool) refreshResult {
	creds, err := m.store.Get(ctx)
	if err != nil {
		return refreshResult{storeErr: fmt.Errorf("failed to read credentials: %w", err)}
	}

	// Другой вызов мог уже обновить токен, пока мы ждали
	if onlyIfStale && !m.needsRefresh(creds) {
		return refreshResult{token: creds.AccessToken}
	}

	if creds.RefreshToken == "" {
		return m.failRefresh(ctx, ErrNoRefreshToken)
	}

	resp, err := m.api.Refresh(ctx, pkgapi.RefreshRequest{RefreshToken: creds.RefreshToken})
	if err != nil {
		return m.failRefresh(ctx, err)
	}
	if err := validateRefreshResponse(resp); err != nil {
		return m.failRefresh(ctx, err)
	}

	// Пользователь не меняется, перезаписываются только токены и срок
	update := storage.Credentials{
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
		ExpiresAt:    m.now().Add(tokenTTL(resp.ExpiresIn)),
	}
	if err := m.store.Set(ctx, update); err != nil {
		return refreshResult{storeErr: errors.Join(
			fmt.Errorf("failed to save refreshed tokens: %w", err),
			m.clear(ctx),
		)}
	}

	m.logger.Debug("access token refreshed", "expires_at", update.ExpiresAt)
	return refreshResult{token: resp.AccessToken}
}

func (m *Manager) failRefresh(ctx context.Context, cause error) refreshResult {
	res := refreshResult{refreshErr: &RefreshError{Err: cause}}
	if err := m.clear(ctx); err != nil {
		res.storeErr = err
	}
	return res
}

func validateRefreshResponse(resp *pkgapi.TokenResponse) error {
	switch {
	case resp == nil:
		return fmt.Errorf("%w: empty body", ErrMalformedTokenResponse)
	case resp.AccessToken == "":
		return fmt.Errorf("%w: missing access_token", ErrMalformedTokenResponse)
	case resp.RefreshToken == "":
		return fmt.Errorf("%w: missing refresh_token", ErrMalformedTokenResponse)
	case resp.ExpiresIn <= 0:
		return fmt.Errorf("%w: expires_in must be positive, got %d", ErrMalformedTokenResponse, resp.ExpiresIn)
	}
	return nil
}

// Login выполняет аутентификацию и полностью перезаписывает запись сессии.
func (m *Manager) Login(ctx context.Context, username, password string) (*storage.User, error) {
	if err := validation.ValidateCredentials(username, password); err != nil {
		return nil, fmt.Errorf("invalid credentials: %w", err)
	}
	username = strings.TrimSpace(username)

	resp, err := m.api.Login(ctx, pkgapi.LoginRequest{Username: username, Password: password})
	if err != nil {
		return nil, fmt.Errorf("login failed: %w", err)
	}
	if resp.AccessToken == "" {
		return nil, fmt.Errorf("login failed: %w: missing access_token", ErrMalformedTokenResponse)
	}

	user, err := storage.ParseUser(resp.User)
	if err != nil {
		return nil, fmt.Errorf("login failed: invalid user object: %w", err)
	}
	if user == nil {
		user = &storage.User{Username: username}
	}

	ttl := defaultLoginTTL
	if resp.ExpiresIn > 0 {
		ttl = tokenTTL(resp.ExpiresIn)
	}

	// Новая сессия не наследует ничего от предыдущей
	if err := m.store.Clear(ctx); err != nil {
		return nil, fmt.Errorf("failed to clear previous session: %w", err)
	}
	creds := storage.Credentials{
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
		ExpiresAt:    m.now().Add(ttl),
		User:         user,
	}
	if err := m.store.Set(ctx, creds); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}

	m.logger.Info("logged in", "username", user.Username, "expires_at", creds.ExpiresAt)
	return user, nil
}

// Logout уведомляет сервер (best effort) и всегда очищает локальную сессию
func (m *Manager) Logout(ctx context.Context) error {
	// 1. Пытаемся получить текущий access token для отправки серверу
	creds, err := m.store.Get(ctx)
	if err != nil {
		m.logger.Debug("no credentials readable during logout", "error", err)
	} else if creds.AccessToken != "" {
		// 2. Пытаемся уведомить сервер о logout (best effort)
		if logoutErr := m.api.Logout(ctx, creds.AccessToken); logoutErr != nil {
			// Не прерываем процесс, если сервер недоступен
			m.logger.Warn("failed to logout on server", "error", logoutErr)
		}
	}

	// 3. Всегда удаляем локальные данные, даже если сервер недоступен
	return m.clear(context.WithoutCancel(ctx))
}

// IsAuthenticated проверяет наличие access token и срок его действия
func (m *Manager) IsAuthenticated(ctx context.Context) (bool, error) {
	creds, err := m.store.Get(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to read credentials: %w", err)
	}
	return creds.IsAuthenticated(m.now()), nil
}

// ClearSession удаляет запись сессии целиком
func (m *Manager) ClearSession(ctx context.Context) error {
	return m.clear(ctx)
}

func (m *Manager) clear(ctx context.Context) error {
	if err := m.store.Clear(ctx); err != nil {
		m.logger.Error("failed to clear session", "error", err)
		return fmt.Errorf("failed to clear session: %w", err)
	}
	m.logger.Debug("session cleared")
	return nil
}
