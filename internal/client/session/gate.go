// Package session хранит состояние сессии для фронтенда: какие разделы
// доступны и нужно ли показать запрос учётных данных.
package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/iudanet/cvewatch/internal/client/api"
	"github.com/iudanet/cvewatch/internal/client/auth"
	"github.com/iudanet/cvewatch/internal/client/storage"
	"github.com/iudanet/cvewatch/internal/logging"
)

// State - состояние сессии фронтенда
type State int

const (
	// Unauthenticated - начальное состояние: разделы закрыты, нужен вход
	Unauthenticated State = iota
	// Authenticating - учётные данные отправлены, ждём ответа
	Authenticating
	// Authenticated - разделы доступны
	Authenticated
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case Unauthenticated:
		return "unauthenticated"
	case Authenticating:
		return "authenticating"
	case Authenticated:
		return "authenticated"
	default:
		return "unknown"
	}
}

// Причины возврата к запросу учётных данных
const (
	ReasonSessionExpired = "Session expired. Please login again."
	ReasonAccessDenied   = "Access denied. Insufficient permissions."
)

// Authenticator - операции менеджера токенов, нужные Gate. Реализуется auth.Manager.
type Authenticator interface {
	Login(ctx context.Context, username, password string) (*storage.User, error)
	Logout(ctx context.Context) error
	IsAuthenticated(ctx context.Context) (bool, error)
	Describe(ctx context.Context) (*auth.Status, error)
}

// Status - снимок состояния
type Status struct {
	User   *storage.User
	Reason string
	State  State
}

// Gate - конечный автомат сессии фронтенда.
// Переходы сериализуются мьютексом, подписчики вызываются вне блокировки.
type Gate struct {
	auth      Authenticator
	logger    *slog.Logger
	user      *storage.User
	reason    string
	listeners []func(Status)
	mu        sync.Mutex
	state     State
}

// NewGate создает Gate в состоянии Unauthenticated
func NewGate(auth Authenticator, logger *slog.Logger) *Gate {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Gate{
		auth:   auth,
		logger: logger.With("component", "session"),
		state:  Unauthenticated,
	}
}

// Subscribe регистрирует обработчик изменений состояния
func (g *Gate) Subscribe(fn func(Status)) {
	if fn == nil {
		return
	}
	g.mu.Lock()
	g.listeners = append(g.listeners, fn)
	g.mu.Unlock()
}

// Restore определяет начальное состояние по сохранённой сессии
func (g *Gate) Restore(ctx context.Context) (Status, error) {
	ok, err := g.auth.IsAuthenticated(ctx)
	if err != nil {
		return g.Status(), err
	}
	if !ok {
		return g.transition(Unauthenticated, nil, ""), nil
	}

	var user *storage.User
	if st, err := g.auth.Describe(ctx); err != nil {
		g.logger.Debug("failed to describe restored session", "error", err)
	} else if st.Username != "" {
		user = &storage.User{Username: st.Username, Role: st.Role}
	}
	return g.transition(Authenticated, user, ""), nil
}

// SubmitCredentials выполняет вход.
// Unauthenticated -> Authenticating -> Authenticated или обратно в Unauthenticated с причиной.
func (g *Gate) SubmitCredentials(ctx context.Context, username, password string) (Status, error) {
	g.transition(Authenticating, nil, "")

	user, err := g.auth.Login(ctx, username, password)
	if err != nil {
		g.logger.Info("login failed", "error", err)
		return g.transition(Unauthenticated, nil, err.Error()), err
	}
	return g.transition(Authenticated, user, ""), nil
}

// Logout завершает сессию. Состояние становится Unauthenticated даже при ошибке хранилища.
func (g *Gate) Logout(ctx context.Context) (Status, error) {
	err := g.auth.Logout(ctx)
	return g.transition(Unauthenticated, nil, ""), err
}

// HandleAuthFailure переводит Gate в Unauthenticated после 401/403.
// Регистрируется как обработчик Executor.
func (g *Gate) HandleAuthFailure(err error) {
	reason := ReasonSessionExpired
	if errors.Is(err, api.ErrAccessDenied) {
		reason = ReasonAccessDenied
	} else if !errors.Is(err, api.ErrAuthRequired) {
		return
	}
	g.logger.Info("session invalidated", "reason", reason)
	g.transition(Unauthenticated, nil, reason)
}

// Status возвращает снимок состояния
func (g *Gate) Status() Status {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.snapshot()
}

// RegionsEnabled сообщает, доступны ли разделы с данными
func (g *Gate) RegionsEnabled() bool {
	return g.Status().State == Authenticated
}

// PromptRequired сообщает, нужно ли показать запрос учётных данных
func (g *Gate) PromptRequired() bool {
	return g.Status().State == Unauthenticated
}

func (g *Gate) transition(state State, user *storage.User, reason string) Status {
	g.mu.Lock()
	g.state = state
	g.user = user
	g.reason = reason
	st := g.snapshot()
	listeners := make([]func(Status), len(g.listeners))
	copy(listeners, g.listeners)
	g.mu.Unlock()

	for _, fn := range listeners {
		fn(st)
	}
	return st
}

func (g *Gate) snapshot() Status {
	st := Status{State: g.state, Reason: g.reason}
	if g.user != nil {
		u := *g.user
		st.User = &u
	}
	return st
}
