package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"
	"strings"
)

// recoveryPage はHTMLページでpanicした場合に返す最小限のページ。
const recoveryPage = `<!doctype html>
<html lang="en"><head><meta charset="utf-8"><title>Garg Glasses</title></head>
<body><h1>Something went wrong</h1><p>Please <a href="/">return to the shop</a> and try again.</p></body></html>
`

// NewRecoveryMiddleware はpanicを500レスポンスに変換するミドルウェアを返す。
// ルーターの最外周に置くため、訪問者IDはコンテキストではなくCookieから読む。
// /api配下は統一エラーフォーマット、それ以外は簡易HTMLで応答する。
func NewRecoveryMiddleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}

				args := []any{
					slog.Any("panic", rec),
					slog.String("method", r.Method),
					slog.String("path", r.URL.Path),
					slog.String("stack", string(debug.Stack())),
				}
				if c, err := r.Cookie(DefaultVisitorCookieName); err == nil {
					args = append(args, slog.String("visitor_id", c.Value))
				}
				slog.Error("panic recovered", args...)

				if strings.HasPrefix(r.URL.Path, "/api/") {
					WriteInternalServerError(w)
					return
				}
				w.Header().Set("Content-Type", "text/html; charset=utf-8")
				w.WriteHeader(http.StatusInternalServerError)
				_, _ = w.Write([]byte(recoveryPage))
			}()
			next.ServeHTTP(w, r)
		})
	}
}
