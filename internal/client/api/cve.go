package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/iudanet/cvewatch/pkg/api"
)

// ListCVEs возвращает страницу локальной базы CVE
func (e *Executor) ListCVEs(ctx context.Context, q url.Values) (json.RawMessage, error) {
	return e.get(ctx, "/cve/", q)
}

// QuickSearch выполняет простой поиск по строке
func (e *Executor) QuickSearch(ctx context.Context, query string, limit int) (json.RawMessage, error) {
	body := api.SearchFilter{Query: query, Limit: limit}
	return e.send(ctx, http.MethodPost, "/cve/search", body)
}

// AdvancedSearch выполняет поиск по типизированному фильтру
func (e *Executor) AdvancedSearch(ctx context.Context, filter api.SearchFilter) (json.RawMessage, error) {
	if err := filter.Validate(); err != nil {
		return nil, fmt.Errorf("invalid search filter: %w", err)
	}
	return e.send(ctx, http.MethodPost, "/cve/search/advanced", filter)
}

// GetCVE возвращает запись CVE
func (e *Executor) GetCVE(ctx context.Context, cveID string) (json.RawMessage, error) {
	return e.get(ctx, "/cve/"+url.PathEscape(cveID), nil)
}

// CVEDetails возвращает расширенные сведения о CVE
func (e *Executor) CVEDetails(ctx context.Context, cveID string) (json.RawMessage, error) {
	return e.get(ctx, "/cve/"+url.PathEscape(cveID)+"/details", nil)
}

// ImportFromNVD запускает импорт CVE из NVD
func (e *Executor) ImportFromNVD(ctx context.Context, req api.ImportRequest) (json.RawMessage, error) {
	return e.send(ctx, http.MethodPost, "/cve/import-from-nvd", req)
}

// SaveSearch сохраняет фильтр под именем
func (e *Executor) SaveSearch(ctx context.Context, req api.SavedSearchRequest) (json.RawMessage, error) {
	if err := req.Parameters.Validate(); err != nil {
		return nil, fmt.Errorf("invalid search filter: %w", err)
	}
	return e.send(ctx, http.MethodPost, "/cve/search/save", req)
}

// SavedSearches возвращает сохранённые поиски
func (e *Executor) SavedSearches(ctx context.Context) (json.RawMessage, error) {
	return e.get(ctx, "/cve/search/saved", nil)
}

// DeleteSavedSearch удаляет сохранённый поиск
func (e *Executor) DeleteSavedSearch(ctx context.Context, searchID string) error {
	_, err := e.send(ctx, http.MethodDelete, "/cve/search/saved/"+url.PathEscape(searchID), nil)
	return err
}
