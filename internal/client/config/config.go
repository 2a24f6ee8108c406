// Package config собирает настройки клиента: значения по умолчанию,
// затем .env файл, затем переменные окружения CVEWATCH_*. Флаги командной
// строки применяются поверх в пакете cli.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// EnvPrefix - префикс переменных окружения клиента
const EnvPrefix = "CVEWATCH_"

// Config - настройки клиента
type Config struct {
	ServerURL       string
	DBPath          string
	StorePassphrase string
	LogLevel        string
	LogFormat       string
	OTLPEndpoint    string
	RetryDelay      time.Duration
	Timeout         time.Duration
	RefreshWindow   time.Duration
	RateLimit       float64
	RateBurst       int
	MaxRetries      int
	Verbose         bool
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		ServerURL:     "http://localhost:8000",
		DBPath:        "cvewatch.db",
		LogLevel:      "info",
		LogFormat:     "text",
		MaxRetries:    3,
		RetryDelay:    time.Second,
		Timeout:       30 * time.Second,
		RefreshWindow: 5 * time.Minute,
		RateBurst:     1,
	}
}

// Load читает .env файлы (по умолчанию ./.env, отсутствие файла не ошибка)
// и переменные окружения. Уже заданные переменные окружения не перезаписываются.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", f, err)
		}
	}

	cfg := FromEnv(os.LookupEnv)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// FromEnv накладывает переменные окружения на значения по умолчанию.
// Некорректные числа и длительности игнорируются.
func FromEnv(lookup func(string) (string, bool)) *Config {
	cfg := Default()
	env := func(key string) string {
		v, _ := lookup(EnvPrefix + key)
		return strings.TrimSpace(v)
	}

	cfg.ServerURL = getString(env("SERVER"), cfg.ServerURL)
	cfg.DBPath = getString(env("DB"), cfg.DBPath)
	cfg.StorePassphrase = env("STORE_PASSPHRASE")
	cfg.LogLevel = getString(env("LOG_LEVEL"), cfg.LogLevel)
	cfg.LogFormat = getString(env("LOG_FORMAT"), cfg.LogFormat)
	cfg.MaxRetries = getInt(env("MAX_RETRIES"), cfg.MaxRetries)
	cfg.RetryDelay = getDuration(env("RETRY_DELAY"), cfg.RetryDelay)
	cfg.Timeout = getDuration(env("TIMEOUT"), cfg.Timeout)
	cfg.RefreshWindow = getDuration(env("REFRESH_WINDOW"), cfg.RefreshWindow)
	cfg.RateLimit = getFloat(env("RATE_LIMIT"), cfg.RateLimit)
	cfg.RateBurst = getInt(env("RATE_BURST"), cfg.RateBurst)
	cfg.Verbose = getBool(env("VERBOSE"), cfg.Verbose)

	// Стандартная переменная OpenTelemetry
	if v, ok := lookup("OTEL_EXPORTER_OTLP_ENDPOINT"); ok {
		cfg.OTLPEndpoint = strings.TrimSpace(v)
	}
	return cfg
}

// Validate проверяет настройки
func (c *Config) Validate() error {
	u, err := url.Parse(c.ServerURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("server URL must be an absolute http(s) URL, got %q", c.ServerURL)
	}
	if strings.TrimSpace(c.DBPath) == "" {
		return fmt.Errorf("database path cannot be empty")
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("max retries must not be negative")
	}
	if c.RetryDelay < 0 {
		return fmt.Errorf("retry delay must not be negative")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.RefreshWindow <= 0 {
		return fmt.Errorf("refresh window must be positive")
	}
	if c.RateLimit < 0 {
		return fmt.Errorf("rate limit must not be negative")
	}
	return nil
}

func getString(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

func getInt(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}

func getFloat(raw string, fallback float64) float64 {
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fallback
	}
	return v
}

func getBool(raw string, fallback bool) bool {
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return fallback
	}
	return v
}

func getDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}
	return v
}
