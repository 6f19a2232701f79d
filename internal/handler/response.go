// Package handler はHTTPハンドラーを提供する。
package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/storefront/internal/middleware"
	"github.com/hitoshi/storefront/internal/model"
)

// writeJSON はJSONレスポンスを書き込む。
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", slog.String("error", err.Error()))
	}
}

// writeServiceError はサービス層のエラーをHTTPレスポンスに変換する。
// *model.APIError以外は内部エラーとして扱い、詳細はログにのみ残す。
func writeServiceError(w http.ResponseWriter, err error) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		middleware.WriteErrorResponse(w, middleware.StatusForError(apiErr), apiErr)
		return
	}
	slog.Error("unexpected service error", slog.String("error", err.Error()))
	middleware.WriteInternalServerError(w)
}

// visitorScope はリクエストの訪問者スコープを返す。
// VisitorMiddlewareを通っていない場合は500を書き込みfalseを返す。
func visitorScope(w http.ResponseWriter, r *http.Request) (string, bool) {
	scope, err := middleware.VisitorIDFromContext(r.Context())
	if err != nil {
		slog.Error("visitor scope missing", slog.String("path", r.URL.Path))
		middleware.WriteInternalServerError(w)
		return "", false
	}
	return scope, true
}

// lineIDParam はURLパスのカート行IDを返す。
// chiはRawPathがある場合（%2Fなど既定と異なるエスケープを含む場合）だけ
// 未復号のパスでルーティングするため、そのときに限り1回復号する。
func lineIDParam(r *http.Request) string {
	id := chi.URLParam(r, "id")
	if r.URL.RawPath == "" {
		return id
	}
	if decoded, err := url.PathUnescape(id); err == nil {
		return decoded
	}
	return id
}

// localRedirect は同一オリジン内のパスのみを戻り先として許可する。
func localRedirect(target, fallback string) string {
	if target == "" || !strings.HasPrefix(target, "/") || strings.HasPrefix(target, "//") || strings.Contains(target, `\`) {
		return fallback
	}
	return target
}
