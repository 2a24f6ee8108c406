package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"

	"github.com/iudanet/cvewatch/pkg/api"
)

// Notifications возвращает уведомления. unreadOnly фильтрует прочитанные.
func (e *Executor) Notifications(ctx context.Context, unreadOnly bool) (json.RawMessage, error) {
	var q url.Values
	if unreadOnly {
		q = url.Values{"unread_only": []string{strconv.FormatBool(true)}}
	}
	return e.get(ctx, "/notifications/", q)
}

// MarkNotificationRead отмечает уведомление прочитанным
func (e *Executor) MarkNotificationRead(ctx context.Context, notificationID string) error {
	_, err := e.send(ctx, http.MethodPut, "/notifications/"+url.PathEscape(notificationID)+"/read", nil)
	return err
}

// MarkAllNotificationsRead отмечает все уведомления прочитанными
func (e *Executor) MarkAllNotificationsRead(ctx context.Context) error {
	_, err := e.send(ctx, http.MethodPut, "/notifications/mark-all-read", nil)
	return err
}

// UserSettings возвращает настройки пользователя на сервере
func (e *Executor) UserSettings(ctx context.Context) (json.RawMessage, error) {
	return e.get(ctx, "/settings/user", nil)
}

// UpdateUserSettings сохраняет настройки пользователя на сервере
func (e *Executor) UpdateUserSettings(ctx context.Context, settings json.RawMessage) (json.RawMessage, error) {
	return e.send(ctx, http.MethodPut, "/settings/user", settings)
}

// Reports возвращает сгенерированные отчёты
func (e *Executor) Reports(ctx context.Context) (json.RawMessage, error) {
	return e.get(ctx, "/reports/", nil)
}

// GenerateReport запускает генерацию отчёта
func (e *Executor) GenerateReport(ctx context.Context, req api.ReportRequest) (json.RawMessage, error) {
	return e.send(ctx, http.MethodPost, "/reports/generate", req)
}

// Chat отправляет сообщение AI ассистенту
func (e *Executor) Chat(ctx context.Context, req api.ChatRequest) (json.RawMessage, error) {
	return e.send(ctx, http.MethodPost, "/chat/", req)
}

// ChatSessions возвращает сессии чата
func (e *Executor) ChatSessions(ctx context.Context) (json.RawMessage, error) {
	return e.get(ctx, "/chat/sessions", nil)
}
