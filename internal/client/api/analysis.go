package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/iudanet/cvewatch/pkg/api"
)

// Analyze запускает AI анализ CVE
func (e *Executor) Analyze(ctx context.Context, req api.AnalysisRequest) (json.RawMessage, error) {
	return e.send(ctx, http.MethodPost, "/analysis/analyze", req)
}

// AnalysisResults возвращает результаты анализов
func (e *Executor) AnalysisResults(ctx context.Context) (json.RawMessage, error) {
	return e.get(ctx, "/analysis/results", nil)
}

// AnalysisResult возвращает один результат анализа
func (e *Executor) AnalysisResult(ctx context.Context, analysisID string) (json.RawMessage, error) {
	return e.get(ctx, "/analysis/results/"+url.PathEscape(analysisID), nil)
}

// AIStatus возвращает состояние AI сервиса
func (e *Executor) AIStatus(ctx context.Context) (json.RawMessage, error) {
	return e.get(ctx, "/analysis/ai/status", nil)
}

// GeneratePoC запрашивает генерацию proof of concept
func (e *Executor) GeneratePoC(ctx context.Context, req api.PoCRequest) (json.RawMessage, error) {
	return e.send(ctx, http.MethodPost, "/poc/generate", req)
}

// ListPoCs возвращает сгенерированные PoC
func (e *Executor) ListPoCs(ctx context.Context) (json.RawMessage, error) {
	return e.get(ctx, "/poc/", nil)
}

// GetPoC возвращает PoC для CVE
func (e *Executor) GetPoC(ctx context.Context, cveID string) (json.RawMessage, error) {
	return e.get(ctx, "/poc/"+url.PathEscape(cveID), nil)
}
