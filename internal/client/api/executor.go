package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/iudanet/cvewatch/internal/logging"
)

// Значения по умолчанию политики повторов
const (
	DefaultMaxRetries     = 3
	DefaultRetryDelayBase = time.Second
)

// TokenSource выдаёт bearer токен и владеет записью сессии.
// Реализуется auth.Manager.
type TokenSource interface {
	// EnsureValidToken returns a usable access token or "" when the caller
	// should proceed unauthenticated.
	EnsureValidToken(ctx context.Context) (string, error)

	// ClearSession removes every field of the session record at once.
	ClearSession(ctx context.Context) error
}

// Request describes one logical call through the Executor.
type Request struct {
	// Body is encoded as JSON; []byte is sent as is.
	Body   any
	Header http.Header
	Query  url.Values
	Method string
	// Path is relative to APIPrefix, e.g. "/dashboard/metrics".
	Path string
	// MaxRetries overrides the executor default when positive; negative disables retries.
	MaxRetries int
}

// Executor выполняет авторизованные запросы: добавляет токен, повторяет
// временные ошибки с линейной задержкой и единообразно обрабатывает 401/403.
type Executor struct {
	client        *Client
	tokens        TokenSource
	logger        *slog.Logger
	onAuthFailure func(error)
	sleep         func(ctx context.Context, d time.Duration) error
	maxRetries    int
	retryDelay    time.Duration
}

// ExecutorOption настраивает Executor
type ExecutorOption func(*Executor)

// WithMaxRetries задаёт число дополнительных попыток
func WithMaxRetries(n int) ExecutorOption {
	return func(e *Executor) {
		if n >= 0 {
			e.maxRetries = n
		}
	}
}

// WithRetryDelay задаёт базовую задержку: перед попыткой i+1 ждём base*(i+1)
func WithRetryDelay(base time.Duration) ExecutorOption {
	return func(e *Executor) {
		if base >= 0 {
			e.retryDelay = base
		}
	}
}

// WithAuthFailureHook регистрирует обработчик терминальных ошибок аутентификации.
// Вызывается один раз на каждый ответ 401/403, после очистки сессии.
func WithAuthFailureHook(fn func(error)) ExecutorOption {
	return func(e *Executor) {
		e.onAuthFailure = fn
	}
}

// WithSleep подменяет ожидание между попытками (для тестов)
func WithSleep(fn func(ctx context.Context, d time.Duration) error) ExecutorOption {
	return func(e *Executor) {
		if fn != nil {
			e.sleep = fn
		}
	}
}

// WithExecutorLogger задаёт логгер
func WithExecutorLogger(logger *slog.Logger) ExecutorOption {
	return func(e *Executor) {
		e.logger = logger
	}
}

// NewExecutor создает Executor поверх Client. tokens может быть nil:
// тогда запросы уходят без авторизации.
func NewExecutor(client *Client, tokens TokenSource, opts ...ExecutorOption) *Executor {
	e := &Executor{
		client:     client,
		tokens:     tokens,
		sleep:      sleepContext,
		maxRetries: DefaultMaxRetries,
		retryDelay: DefaultRetryDelayBase,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = logging.Discard()
	}
	e.logger = e.logger.With("component", "executor")
	return e
}

// Do выполняет запрос и декодирует JSON ответ в out (out может быть nil)
func (e *Executor) Do(ctx context.Context, method, path string, body, out any) error {
	raw, status, err := e.execute(ctx, Request{Method: method, Path: path, Body: body})
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if len(raw) == 0 {
		if status == http.StatusNoContent {
			return nil
		}
		// Ответ без тела там, где ожидаются данные
		return fmt.Errorf("%s %s: %w", method, path, &ParseError{Err: errEmptyBody})
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%s %s: %w", method, path, &ParseError{Body: truncate(raw), Err: err})
	}
	return nil
}

// Execute выполняет запрос и возвращает тело успешного ответа.
// Пустое тело (например, 204) возвращается как nil без ошибки.
func (e *Executor) Execute(ctx context.Context, req Request) (json.RawMessage, error) {
	raw, _, err := e.execute(ctx, req)
	return raw, err
}

// execute возвращает также код ответа, чтобы Do мог отличить 204 от пустого 200
func (e *Executor) execute(ctx context.Context, req Request) (json.RawMessage, int, error) {
	if req.Method == "" {
		req.Method = http.MethodGet
	}
	path := req.Path
	if len(req.Query) > 0 {
		path += "?" + req.Query.Encode()
	}
	op := req.Method + " " + req.Path

	payload, err := encodeBody(req.Body)
	if err != nil {
		return nil, 0, fmt.Errorf("%s: %w", op, err)
	}

	// Токен запрашивается один раз на вызов, все попытки используют его
	var token string
	if e.tokens != nil {
		token, err = e.tokens.EnsureValidToken(ctx)
		if err != nil {
			return nil, 0, fmt.Errorf("%s: %w", op, err)
		}
	}

	header := make(http.Header)
	header.Set("Content-Type", "application/json")
	if token != "" {
		header.Set("Authorization", "Bearer "+token)
	}
	// Заголовки вызывающего имеют приоритет
	for k, values := range req.Header {
		header.Del(k)
		for _, v := range values {
			header.Add(k, v)
		}
	}

	retries := e.maxRetries
	switch {
	case req.MaxRetries > 0:
		retries = req.MaxRetries
	case req.MaxRetries < 0:
		retries = 0
	}

	var lastErr error
	for attempt := 0; attempt <= retries; attempt++ {
		resp, err := e.client.send(ctx, req.Method, path, payload, header)
		if err == nil {
			switch {
			case resp.statusCode == http.StatusUnauthorized:
				return nil, resp.statusCode, e.authFailure(ctx, op, ErrAuthRequired)
			case resp.statusCode == http.StatusForbidden:
				return nil, resp.statusCode, e.authFailure(ctx, op, ErrAccessDenied)
			case !resp.ok():
				err = newHTTPError(resp)
			default:
				raw, err := successBody(op, resp.body)
				return raw, resp.statusCode, err
			}
		}

		lastErr = err
		if !IsRetryable(err) || attempt == retries {
			break
		}

		delay := e.retryDelay * time.Duration(attempt+1)
		e.logger.Warn("request failed, retrying",
			"op", op,
			"attempt", attempt+1,
			"delay", delay,
			"error", err)
		if sleepErr := e.sleep(ctx, delay); sleepErr != nil {
			lastErr = errors.Join(sleepErr, lastErr)
			break
		}
	}

	return nil, 0, fmt.Errorf("%s: %w", op, lastErr)
}

// authFailure очищает сессию и уведомляет обработчик
func (e *Executor) authFailure(ctx context.Context, op string, sentinel error) error {
	err := fmt.Errorf("%s: %w", op, sentinel)
	if e.tokens != nil {
		// Очистка не должна зависеть от отмены запроса
		if clearErr := e.tokens.ClearSession(context.WithoutCancel(ctx)); clearErr != nil {
			err = errors.Join(err, fmt.Errorf("failed to clear session: %w", clearErr))
		}
	}
	e.logger.Info("authentication failure", "op", op, "error", sentinel)
	if e.onAuthFailure != nil {
		e.onAuthFailure(err)
	}
	return err
}

var errEmptyBody = errors.New("response body is empty")

func successBody(op string, body []byte) (json.RawMessage, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, nil
	}
	if !json.Valid(body) {
		return nil, fmt.Errorf("%s: %w", op, &ParseError{Body: truncate(body), Err: fmt.Errorf("response is not valid JSON")})
	}
	return json.RawMessage(body), nil
}

func encodeBody(body any) ([]byte, error) {
	switch b := body.(type) {
	case nil:
		return nil, nil
	case []byte:
		return b, nil
	case json.RawMessage:
		return b, nil
	default:
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		return data, nil
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
