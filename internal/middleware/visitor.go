// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
)

// DefaultVisitorCookieName は訪問者スコープIDを保持するCookieの名前。
const DefaultVisitorCookieName = "storefront_visitor"

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

var visitorIDContextKey = contextKey("visitor_id")

// VisitorConfig は訪問者スコープミドルウェアの設定。
type VisitorConfig struct {
	CookieName   string
	MaxAge       int // Cookieの有効期間（秒）
	CookieSecure bool
	CookieDomain string
}

// NewVisitorMiddleware は訪問者スコープIDをCookieから読み取り、
// リクエストコンテキストに注入するミドルウェアを返す。
// Cookieがない、またはUUIDとして不正な場合は新しいIDを発行する。
// 未ログインでもリクエストは拒否しない。
func NewVisitorMiddleware(config VisitorConfig) func(next http.Handler) http.Handler {
	name := config.CookieName
	if name == "" {
		name = DefaultVisitorCookieName
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			visitorID := ""
			if cookie, err := r.Cookie(name); err == nil {
				if id, err := uuid.Parse(cookie.Value); err == nil {
					visitorID = id.String()
				}
			}

			if visitorID == "" {
				visitorID = uuid.New().String()
				http.SetCookie(w, &http.Cookie{
					Name:     name,
					Value:    visitorID,
					Path:     "/",
					Domain:   config.CookieDomain,
					MaxAge:   config.MaxAge,
					HttpOnly: true,
					Secure:   config.CookieSecure,
					SameSite: http.SameSiteLaxMode,
				})
				slog.Debug("visitor scope issued", slog.String("visitor_id", visitorID))
			}

			next.ServeHTTP(w, r.WithContext(ContextWithVisitorID(r.Context(), visitorID)))
		})
	}
}

// VisitorIDFromContext はリクエストコンテキストから訪問者スコープIDを取得する。
// 訪問者スコープミドルウェアを通過したリクエストでのみ有効。
func VisitorIDFromContext(ctx context.Context) (string, error) {
	id, ok := ctx.Value(visitorIDContextKey).(string)
	if !ok || id == "" {
		return "", fmt.Errorf("visitor ID not found in context")
	}
	return id, nil
}

// ContextWithVisitorID はコンテキストに訪問者スコープIDを注入する。
func ContextWithVisitorID(ctx context.Context, visitorID string) context.Context {
	return context.WithValue(ctx, visitorIDContextKey, visitorID)
}
