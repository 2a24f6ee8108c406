package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/iudanet/cvewatch/pkg/api"
)

// Watchlists возвращает списки наблюдения пользователя
func (e *Executor) Watchlists(ctx context.Context) (json.RawMessage, error) {
	return e.get(ctx, "/watchlist/", nil)
}

// CreateWatchlist создает список наблюдения
func (e *Executor) CreateWatchlist(ctx context.Context, req api.WatchlistRequest) (json.RawMessage, error) {
	if req.Name == "" {
		return nil, fmt.Errorf("watchlist name cannot be empty")
	}
	return e.send(ctx, http.MethodPost, "/watchlist/", req)
}

// DeleteWatchlist удаляет список наблюдения
func (e *Executor) DeleteWatchlist(ctx context.Context, watchlistID string) error {
	_, err := e.send(ctx, http.MethodDelete, "/watchlist/"+url.PathEscape(watchlistID), nil)
	return err
}

// AddToWatchlist добавляет CVE в список наблюдения
func (e *Executor) AddToWatchlist(ctx context.Context, watchlistID string, cveIDs ...string) (json.RawMessage, error) {
	if len(cveIDs) == 0 {
		return nil, fmt.Errorf("no CVE IDs given")
	}
	req := api.WatchlistCVEsRequest{CVEIDs: cveIDs}
	return e.send(ctx, http.MethodPost, "/watchlist/"+url.PathEscape(watchlistID)+"/cves", req)
}

// WatchlistStats возвращает сводку по спискам наблюдения
func (e *Executor) WatchlistStats(ctx context.Context) (json.RawMessage, error) {
	return e.get(ctx, "/watchlist/stats/overview", nil)
}
