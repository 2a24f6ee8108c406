package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/iudanet/cvewatch/internal/client/api"
	"github.com/iudanet/cvewatch/internal/client/session"
)

// ErrNotAuthenticated возвращается командам с данными без активной сессии
var ErrNotAuthenticated = errors.New("not authenticated: run 'cvewatch login'")

// promptLogin запрашивает учётные данные и передаёт их в Gate
func (a *App) promptLogin(ctx context.Context, username string, p Passwords) (session.Status, error) {
	if username == "" {
		var err error
		username, err = a.io.ReadInput("Username: ")
		if err != nil {
			return a.gate.Status(), fmt.Errorf("failed to read username: %w", err)
		}
	}
	password, err := readPassword(a.io, p)
	if err != nil {
		return a.gate.Status(), err
	}
	return a.gate.SubmitCredentials(ctx, username, password)
}

// requireSession пропускает команду только при открытой сессии.
// В терминале вместо ошибки показывается запрос входа.
func (a *App) requireSession(ctx context.Context) error {
	if a.gate.RegionsEnabled() {
		return nil
	}
	if st := a.gate.Status(); st.Reason != "" {
		a.io.Println(st.Reason)
	}
	if !a.io.IsInteractive() {
		return ErrNotAuthenticated
	}
	if _, err := a.promptLogin(ctx, "", Passwords{}); err != nil {
		return fmt.Errorf("login failed: %w", err)
	}
	return nil
}

// run выполняет fn в рамках сессии. Если сервер отклонил токен,
// показывается причина, а в терминале fn повторяется один раз после повторного входа.
func (a *App) run(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := a.requireSession(ctx); err != nil {
		return err
	}

	err := fn(ctx)
	if err == nil || !api.IsAuthError(err) {
		return err
	}

	if st := a.gate.Status(); st.Reason != "" {
		a.io.Println(st.Reason)
	}
	if !a.io.IsInteractive() {
		return err
	}
	if _, loginErr := a.promptLogin(ctx, "", Passwords{}); loginErr != nil {
		return errors.Join(err, fmt.Errorf("login failed: %w", loginErr))
	}
	return fn(ctx)
}

// printJSON выводит ответ сервера с отступами
func (a *App) printJSON(v any) error {
	var data []byte
	var err error
	if raw, ok := v.(json.RawMessage); ok {
		if len(raw) == 0 {
			return nil
		}
		var out any
		if err := json.Unmarshal(raw, &out); err != nil {
			return fmt.Errorf("failed to parse response: %w", err)
		}
		v = out
	}
	data, err = json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to format response: %w", err)
	}
	a.io.Println(string(data))
	return nil
}
