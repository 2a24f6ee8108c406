package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/cvewatch/pkg/api"
)

// mockTokenSource implements TokenSource for testing
type mockTokenSource struct {
	ensureErr   error
	clearErr    error
	token       string
	mu          sync.Mutex
	ensureCalls int
	clearCalls  int
}

func (m *mockTokenSource) EnsureValidToken(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ensureCalls++
	if m.ensureErr != nil {
		return "", m.ensureErr
	}
	return m.token, nil
}

func (m *mockTokenSource) ClearSession(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clearCalls++
	m.token = ""
	return m.clearErr
}

// sleepRecorder записывает задержки между попытками вместо реального ожидания
type sleepRecorder struct {
	delays []time.Duration
}

func (s *sleepRecorder) sleep(ctx context.Context, d time.Duration) error {
	s.delays = append(s.delays, d)
	return ctx.Err()
}

func newTestExecutor(t *testing.T, handler http.HandlerFunc, tokens TokenSource, opts ...ExecutorOption) (*Executor, *sleepRecorder) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	rec := &sleepRecorder{}
	opts = append([]ExecutorOption{WithSleep(rec.sleep)}, opts...)
	return NewExecutor(NewClient(server.URL), tokens, opts...), rec
}

func TestNewExecutor_Defaults(t *testing.T) {
	e := NewExecutor(NewClient("http://localhost"), nil)
	assert.Equal(t, DefaultMaxRetries, e.maxRetries)
	assert.Equal(t, DefaultRetryDelayBase, e.retryDelay)
	assert.NotNil(t, e.sleep)
	assert.NotNil(t, e.logger)
}

func TestExecutor_AttachesBearerToken(t *testing.T) {
	tokens := &mockTokenSource{token: "at-1"}
	e, _ := newTestExecutor(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/dashboard/metrics", r.URL.Path)
		assert.Equal(t, "Bearer at-1", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		_, _ = w.Write([]byte(`{"total_cves":42}`))
	}, tokens)

	var out struct {
		TotalCVEs int `json:"total_cves"`
	}
	err := e.Do(context.Background(), http.MethodGet, "/dashboard/metrics", nil, &out)

	require.NoError(t, err)
	assert.Equal(t, 42, out.TotalCVEs)
	assert.Equal(t, 1, tokens.ensureCalls)
}

func TestExecutor_NoTokenProceedsUnauthenticated(t *testing.T) {
	e, _ := newTestExecutor(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}, &mockTokenSource{})

	raw, err := e.Health(context.Background())
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"ok"}`, string(raw))
}

func TestExecutor_CallerHeadersOverride(t *testing.T) {
	e, _ := newTestExecutor(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "text/plain", r.Header.Get("Content-Type"))
		assert.Equal(t, "Bearer caller", r.Header.Get("Authorization"))
		assert.Equal(t, "yes", r.Header.Get("X-Trace"))
		assert.Equal(t, "days=7", r.URL.RawQuery)
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		assert.Equal(t, "hello", string(body))
		w.WriteHeader(http.StatusNoContent)
	}, &mockTokenSource{token: "managed"})

	header := make(http.Header)
	header.Set("Content-Type", "text/plain")
	header.Set("Authorization", "Bearer caller")
	header.Set("X-Trace", "yes")

	raw, err := e.Execute(context.Background(), Request{
		Method: http.MethodPost,
		Path:   "/cve/import-from-nvd",
		Query:  map[string][]string{"days": {"7"}},
		Header: header,
		Body:   []byte("hello"),
	})
	require.NoError(t, err)
	assert.Nil(t, raw)
}

func TestExecutor_AuthFailures(t *testing.T) {
	tests := []struct {
		wantErr    error
		name       string
		statusCode int
	}{
		{name: "401 session expired", statusCode: http.StatusUnauthorized, wantErr: ErrAuthRequired},
		{name: "403 access denied", statusCode: http.StatusForbidden, wantErr: ErrAccessDenied},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var attempts atomic.Int32
			var hookErrs []error
			tokens := &mockTokenSource{token: "at"}

			e, rec := newTestExecutor(t, func(w http.ResponseWriter, r *http.Request) {
				attempts.Add(1)
				w.WriteHeader(tt.statusCode)
			}, tokens, WithAuthFailureHook(func(err error) { hookErrs = append(hookErrs, err) }))

			_, err := e.Execute(context.Background(), Request{Path: "/watchlist/"})

			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.False(t, IsRetryable(err))
			// Ровно одна попытка, без ожиданий
			assert.Equal(t, int32(1), attempts.Load())
			assert.Empty(t, rec.delays)
			// Ровно одна очистка сессии
			assert.Equal(t, 1, tokens.clearCalls)
			require.Len(t, hookErrs, 1)
			assert.ErrorIs(t, hookErrs[0], tt.wantErr)
		})
	}
}

func TestExecutor_AuthFailure_ClearErrorJoined(t *testing.T) {
	clearErr := errors.New("disk full")
	tokens := &mockTokenSource{token: "at", clearErr: clearErr}
	e, _ := newTestExecutor(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}, tokens)

	_, err := e.Execute(context.Background(), Request{Path: "/cve/"})
	assert.ErrorIs(t, err, ErrAuthRequired)
	assert.ErrorIs(t, err, clearErr)
}

func TestExecutor_RetryBudget(t *testing.T) {
	var attempts atomic.Int32
	e, rec := newTestExecutor(t, func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}, &mockTokenSource{token: "at"}, WithMaxRetries(3), WithRetryDelay(time.Second))

	_, err := e.Execute(context.Background(), Request{Path: "/dashboard/stats"})

	require.Error(t, err)
	// Первая попытка и три повтора
	assert.Equal(t, int32(4), attempts.Load())
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second, 3 * time.Second}, rec.delays)

	var httpErr *HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusServiceUnavailable, httpErr.StatusCode)
	assert.Contains(t, err.Error(), "GET /dashboard/stats")
}

func TestExecutor_RetriesNetworkError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	rec := &sleepRecorder{}
	e := NewExecutor(NewClient(url), nil, WithSleep(rec.sleep), WithMaxRetries(2), WithRetryDelay(10*time.Millisecond))

	_, err := e.Execute(context.Background(), Request{Path: "/cve/"})

	var netErr *NetworkError
	require.ErrorAs(t, err, &netErr)
	assert.Equal(t, []time.Duration{10 * time.Millisecond, 20 * time.Millisecond}, rec.delays)
}

func TestExecutor_RecoversAfterTransientFailure(t *testing.T) {
	var attempts atomic.Int32
	e, rec := newTestExecutor(t, func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(`[1,2,3]`))
	}, nil)

	raw, err := e.Execute(context.Background(), Request{Path: "/poc/"})

	require.NoError(t, err)
	assert.JSONEq(t, `[1,2,3]`, string(raw))
	assert.Equal(t, int32(2), attempts.Load())
	assert.Len(t, rec.delays, 1)
}

func TestExecutor_PerRequestRetries(t *testing.T) {
	var attempts atomic.Int32
	e, _ := newTestExecutor(t, func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}, nil)

	_, err := e.Execute(context.Background(), Request{Path: "/chat/", Method: http.MethodPost, MaxRetries: -1})
	require.Error(t, err)
	assert.Equal(t, int32(1), attempts.Load())

	attempts.Store(0)
	_, err = e.Execute(context.Background(), Request{Path: "/chat/", Method: http.MethodPost, MaxRetries: 5})
	require.Error(t, err)
	assert.Equal(t, int32(6), attempts.Load())
}

func TestExecutor_ParseErrorNotRetried(t *testing.T) {
	var attempts atomic.Int32
	e, rec := newTestExecutor(t, func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		_, _ = w.Write([]byte(`<html>maintenance</html>`))
	}, nil)

	_, err := e.Execute(context.Background(), Request{Path: "/reports/"})

	var parseErr *ParseError
	require.ErrorAs(t, err, &parseErr)
	assert.Equal(t, int32(1), attempts.Load())
	assert.Empty(t, rec.delays)
}

func TestExecutor_DoEmptyBody(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		wantErr bool
	}{
		{name: "200 without body is a parse error", status: http.StatusOK, wantErr: true},
		{name: "204 is success", status: http.StatusNoContent, wantErr: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var attempts atomic.Int32
			e, _ := newTestExecutor(t, func(w http.ResponseWriter, r *http.Request) {
				attempts.Add(1)
				w.WriteHeader(tt.status)
			}, nil)

			var out struct {
				Total int `json:"total"`
			}
			err := e.Do(context.Background(), http.MethodGet, "/dashboard/stats", nil, &out)

			if tt.wantErr {
				var parseErr *ParseError
				require.ErrorAs(t, err, &parseErr)
				assert.ErrorIs(t, err, errEmptyBody)
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, int32(1), attempts.Load())

			// Без out пустое тело допустимо при любом 2xx
			require.NoError(t, e.Do(context.Background(), http.MethodGet, "/dashboard/stats", nil, nil))
		})
	}
}

func TestExecutor_ContextCanceledDuringBackoff(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	sleeps := 0
	sleep := func(ctx context.Context, d time.Duration) error {
		sleeps++
		cancel()
		return ctx.Err()
	}
	e := NewExecutor(NewClient(server.URL), nil, WithSleep(sleep))

	_, err := e.Execute(ctx, Request{Path: "/cve/"})

	assert.ErrorIs(t, err, context.Canceled)
	var httpErr *HTTPError
	assert.ErrorAs(t, err, &httpErr)
	assert.Equal(t, 1, sleeps)
}

func TestExecutor_TokenSourceError(t *testing.T) {
	storeErr := errors.New("storage closed")
	var attempts atomic.Int32
	e, _ := newTestExecutor(t, func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
	}, &mockTokenSource{ensureErr: storeErr})

	_, err := e.Execute(context.Background(), Request{Path: "/cve/"})
	assert.ErrorIs(t, err, storeErr)
	assert.Equal(t, int32(0), attempts.Load())
}

func TestSleepContext(t *testing.T) {
	require.NoError(t, sleepContext(context.Background(), time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, sleepContext(ctx, time.Hour), context.Canceled)
}

func TestExecutor_Dashboard(t *testing.T) {
	e, _ := newTestExecutor(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/dashboard/metrics":
			_, _ = w.Write([]byte(`{"m":1}`))
		case "/api/v1/dashboard/stats":
			_, _ = w.Write([]byte(`{"s":2}`))
		case "/api/v1/dashboard/timeline":
			_, _ = w.Write([]byte(`[]`))
		case "/api/v1/dashboard/recent-cves":
			assert.Equal(t, "10", r.URL.Query().Get("limit"))
			_, _ = w.Write([]byte(`[{"cve_id":"CVE-2024-3094"}]`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}, &mockTokenSource{token: "at"})

	snap, err := e.Dashboard(context.Background(), 10)

	require.NoError(t, err)
	assert.JSONEq(t, `{"m":1}`, string(snap.Metrics))
	assert.JSONEq(t, `{"s":2}`, string(snap.Stats))
	assert.JSONEq(t, `[]`, string(snap.Timeline))
	assert.Contains(t, string(snap.RecentCVEs), "CVE-2024-3094")
}

func TestExecutor_DashboardAuthFailure(t *testing.T) {
	e, _ := newTestExecutor(t, func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/stats") {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`{}`))
	}, &mockTokenSource{token: "at"})

	_, err := e.Dashboard(context.Background(), 0)
	assert.ErrorIs(t, err, ErrAuthRequired)
}

func TestExecutor_AdvancedSearch(t *testing.T) {
	var got api.SearchFilter
	e, _ := newTestExecutor(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/cve/search/advanced", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"results":[],"total":0}`))
	}, nil)

	minScore := 7.5
	_, err := e.AdvancedSearch(context.Background(), api.SearchFilter{
		Query:    "openssl",
		CVSSMin:  &minScore,
		Severity: []string{api.SeverityHigh, api.SeverityCritical},
		Limit:    50,
	})

	require.NoError(t, err)
	assert.Equal(t, "openssl", got.Query)
	require.NotNil(t, got.CVSSMin)
	assert.Equal(t, 7.5, *got.CVSSMin)
	assert.Equal(t, []string{"HIGH", "CRITICAL"}, got.Severity)
}

func TestExecutor_AdvancedSearch_InvalidFilter(t *testing.T) {
	var attempts atomic.Int32
	e, _ := newTestExecutor(t, func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
	}, nil)

	_, err := e.AdvancedSearch(context.Background(), api.SearchFilter{Limit: 1000})
	assert.ErrorContains(t, err, "invalid search filter")
	assert.Equal(t, int32(0), attempts.Load())
}

func TestExecutor_Endpoints(t *testing.T) {
	tests := []struct {
		call       func(e *Executor) error
		name       string
		wantMethod string
		wantPath   string
	}{
		{
			name:       "get cve",
			wantMethod: http.MethodGet,
			wantPath:   "/api/v1/cve/CVE-2024-3094",
			call: func(e *Executor) error {
				_, err := e.GetCVE(context.Background(), "CVE-2024-3094")
				return err
			},
		},
		{
			name:       "add to watchlist",
			wantMethod: http.MethodPost,
			wantPath:   "/api/v1/watchlist/7/cves",
			call: func(e *Executor) error {
				_, err := e.AddToWatchlist(context.Background(), "7", "CVE-2024-3094")
				return err
			},
		},
		{
			name:       "mark notification read",
			wantMethod: http.MethodPut,
			wantPath:   "/api/v1/notifications/12/read",
			call: func(e *Executor) error {
				return e.MarkNotificationRead(context.Background(), "12")
			},
		},
		{
			name:       "delete saved search",
			wantMethod: http.MethodDelete,
			wantPath:   "/api/v1/cve/search/saved/3",
			call: func(e *Executor) error {
				return e.DeleteSavedSearch(context.Background(), "3")
			},
		},
		{
			name:       "generate poc",
			wantMethod: http.MethodPost,
			wantPath:   "/api/v1/poc/generate",
			call: func(e *Executor) error {
				_, err := e.GeneratePoC(context.Background(), api.PoCRequest{CVEID: "CVE-2021-44228"})
				return err
			},
		},
		{
			name:       "chat",
			wantMethod: http.MethodPost,
			wantPath:   "/api/v1/chat/",
			call: func(e *Executor) error {
				_, err := e.Chat(context.Background(), api.ChatRequest{Message: "hi", SessionID: "s-1"})
				return err
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, _ := newTestExecutor(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, tt.wantMethod, r.Method)
				assert.Equal(t, tt.wantPath, r.URL.Path)
				_, _ = w.Write([]byte(`{}`))
			}, &mockTokenSource{token: "at"})

			assert.NoError(t, tt.call(e))
		})
	}
}
