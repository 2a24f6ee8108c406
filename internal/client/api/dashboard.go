package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"golang.org/x/sync/errgroup"
)

// DashboardMetrics возвращает сводные метрики дашборда
func (e *Executor) DashboardMetrics(ctx context.Context) (json.RawMessage, error) {
	return e.get(ctx, "/dashboard/metrics", nil)
}

// DashboardStats возвращает статистику по CVE
func (e *Executor) DashboardStats(ctx context.Context) (json.RawMessage, error) {
	return e.get(ctx, "/dashboard/stats", nil)
}

// DashboardTimeline возвращает временную шкалу публикаций
func (e *Executor) DashboardTimeline(ctx context.Context) (json.RawMessage, error) {
	return e.get(ctx, "/dashboard/timeline", nil)
}

// RecentCVEs возвращает последние CVE. limit <= 0 оставляет значение сервера.
func (e *Executor) RecentCVEs(ctx context.Context, limit int) (json.RawMessage, error) {
	var q url.Values
	if limit > 0 {
		q = url.Values{"limit": []string{strconv.Itoa(limit)}}
	}
	return e.get(ctx, "/dashboard/recent-cves", q)
}

// DashboardSnapshot - содержимое главного экрана
type DashboardSnapshot struct {
	Metrics    json.RawMessage `json:"metrics"`
	Stats      json.RawMessage `json:"stats"`
	Timeline   json.RawMessage `json:"timeline"`
	RecentCVEs json.RawMessage `json:"recent_cves"`
}

// Dashboard загружает все секции дашборда параллельно.
// Первая ошибка отменяет остальные запросы.
func (e *Executor) Dashboard(ctx context.Context, recentLimit int) (*DashboardSnapshot, error) {
	var snap DashboardSnapshot
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() (err error) {
		snap.Metrics, err = e.DashboardMetrics(ctx)
		return err
	})
	g.Go(func() (err error) {
		snap.Stats, err = e.DashboardStats(ctx)
		return err
	})
	g.Go(func() (err error) {
		snap.Timeline, err = e.DashboardTimeline(ctx)
		return err
	})
	g.Go(func() (err error) {
		snap.RecentCVEs, err = e.RecentCVEs(ctx, recentLimit)
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to load dashboard: %w", err)
	}
	return &snap, nil
}

// Health возвращает состояние бэкенда
func (e *Executor) Health(ctx context.Context) (json.RawMessage, error) {
	return e.get(ctx, "/monitoring/health", nil)
}

func (e *Executor) get(ctx context.Context, path string, q url.Values) (json.RawMessage, error) {
	return e.Execute(ctx, Request{Method: http.MethodGet, Path: path, Query: q})
}

func (e *Executor) send(ctx context.Context, method, path string, body any) (json.RawMessage, error) {
	return e.Execute(ctx, Request{Method: method, Path: path, Body: body})
}
