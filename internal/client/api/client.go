package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/time/rate"

	"github.com/iudanet/cvewatch/internal/logging"
	"github.com/iudanet/cvewatch/pkg/api"
)

// APIPrefix - общий префикс REST API бэкенда
const APIPrefix = "/api/v1"

// DefaultTimeout - таймаут HTTP клиента по умолчанию
const DefaultTimeout = 30 * time.Second

// maxErrorBody ограничивает размер тела ответа, попадающего в текст ошибки
const maxErrorBody = 512

// Client представляет HTTP клиент для взаимодействия с сервером.
// Client сам по себе не добавляет токен и не повторяет запросы: это делает Executor.
// Запросы auth эндпоинтов идут напрямую через Client.
type Client struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *slog.Logger
	baseURL    string
}

// ClientOption настраивает Client
type ClientOption func(*Client)

// WithTimeout задаёт общий таймаут одного HTTP запроса
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// WithHTTPClient заменяет HTTP клиент целиком (тесты, кастомный транспорт)
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithRateLimit ограничивает частоту запросов на стороне клиента.
// rps <= 0 отключает ограничение.
func WithRateLimit(rps float64, burst int) ClientOption {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithLogger задаёт логгер клиента
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient создает новый API клиент
func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout:   DefaultTimeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
			// Настройка обработки редиректов
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				// Ограничиваем количество редиректов
				if len(via) >= 10 {
					return fmt.Errorf("stopped after 10 redirects")
				}
				// Копируем заголовки Authorization при редиректе
				if len(via) > 0 && via[0].Header.Get("Authorization") != "" {
					req.Header.Set("Authorization", via[0].Header.Get("Authorization"))
				}
				return nil
			},
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = logging.Discard()
	}
	c.logger = c.logger.With("component", "api")
	return c
}

// BaseURL returns the server root the client talks to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Login выполняет аутентификацию пользователя
func (c *Client) Login(ctx context.Context, req api.LoginRequest) (*api.TokenResponse, error) {
	var resp api.TokenResponse
	if err := c.doRequest(ctx, http.MethodPost, "/auth/login", "", req, &resp); err != nil {
		return nil, fmt.Errorf("login request failed: %w", err)
	}
	return &resp, nil
}

// Refresh обменивает refresh token на новую пару токенов.
// Запрос уходит без Authorization заголовка.
func (c *Client) Refresh(ctx context.Context, req api.RefreshRequest) (*api.TokenResponse, error) {
	var resp api.TokenResponse
	if err := c.doRequest(ctx, http.MethodPost, "/auth/refresh", "", req, &resp); err != nil {
		return nil, fmt.Errorf("refresh request failed: %w", err)
	}
	return &resp, nil
}

// Logout уведомляет сервер о выходе
func (c *Client) Logout(ctx context.Context, accessToken string) error {
	if err := c.doRequest(ctx, http.MethodPost, "/auth/logout", accessToken, nil, nil); err != nil {
		return fmt.Errorf("logout request failed: %w", err)
	}
	return nil
}

// response - прочитанный целиком HTTP ответ
type response struct {
	header     http.Header
	status     string
	body       []byte
	statusCode int
}

func (r *response) ok() bool {
	return r.statusCode >= 200 && r.statusCode < 300
}

// send выполняет один HTTP запрос и читает тело ответа.
// Ошибки транспорта возвращаются как *NetworkError.
func (c *Client) send(ctx context.Context, method, path string, body []byte, header http.Header) (*response, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}
	}

	url := c.baseURL + APIPrefix + path

	var bodyReader io.Reader
	if body != nil {
		bodyReader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	for k, v := range header {
		req.Header[k] = v
	}

	started := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &NetworkError{Method: method, URL: url, Err: err}
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	// Читаем тело ответа
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &NetworkError{Method: method, URL: url, Err: fmt.Errorf("failed to read response body: %w", err)}
	}

	c.logger.Debug("request completed",
		"method", method,
		"path", path,
		"status", resp.StatusCode,
		"duration", time.Since(started))

	return &response{
		header:     resp.Header,
		status:     resp.Status,
		body:       respBody,
		statusCode: resp.StatusCode,
	}, nil
}

// doRequest выполняет HTTP запрос к auth эндпоинтам без повторов
func (c *Client) doRequest(ctx context.Context, method, path, token string, body, result any) error {
	header := make(http.Header)
	var payload []byte
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		payload = jsonData
		header.Set("Content-Type", "application/json")
	}
	if token != "" {
		header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.send(ctx, method, path, payload, header)
	if err != nil {
		return err
	}

	// Проверяем статус код
	if !resp.ok() {
		return newHTTPError(resp)
	}

	// Декодируем успешный ответ
	return decodeBody(resp.body, result)
}

// newHTTPError строит ошибку из ответа, предпочитая сообщение бэкенда сырому телу
func newHTTPError(resp *response) *HTTPError {
	e := &HTTPError{StatusCode: resp.statusCode, Status: resp.status}
	var errResp api.ErrorResponse
	if err := json.Unmarshal(resp.body, &errResp); err == nil && errResp.Text() != "" {
		e.Body = errResp.Text()
		return e
	}
	e.Body = truncate([]byte(strings.TrimSpace(string(resp.body))))
	return e
}

// decodeBody декодирует JSON тело в result. Пустое тело допустимо при result == nil.
func decodeBody(body []byte, result any) error {
	if result == nil {
		if len(bytes.TrimSpace(body)) == 0 || json.Valid(body) {
			return nil
		}
		return &ParseError{Body: truncate(body), Err: fmt.Errorf("response is not valid JSON")}
	}
	if err := json.Unmarshal(body, result); err != nil {
		return &ParseError{Body: truncate(body), Err: err}
	}
	return nil
}

// truncate ограничивает тело maxErrorBody байтами, не разрезая UTF-8 символ
func truncate(body []byte) string {
	if len(body) <= maxErrorBody {
		return string(body)
	}
	cut := maxErrorBody
	for cut > 0 && !utf8.RuneStart(body[cut]) {
		cut--
	}
	return string(body[:cut]) + "..."
}
