package handler

import (
	"encoding/json"
	"net/http"

	"github.com/hitoshi/storefront/internal/auth"
	"github.com/hitoshi/storefront/internal/model"
)

// AuthHandler は認証JSON APIのハンドラー。
type AuthHandler struct {
	service AuthServiceInterface
}

// NewAuthHandler はAuthHandlerを生成する。
func NewAuthHandler(service AuthServiceInterface) *AuthHandler {
	return &AuthHandler{service: service}
}

// signupRequest はサインアップリクエストのボディ。
type signupRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// loginRequest はログインリクエストのボディ。
type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// sessionResponse はセッション情報のAPIレスポンス。
type sessionResponse struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

// authResultResponse はサインアップ・ログイン成功時のAPIレスポンス。
// クライアントはredirect_after_ms経過後にredirect_toへ遷移する。
type authResultResponse struct {
	Session         sessionResponse `json:"session"`
	Message         string          `json:"message"`
	RedirectTo      string          `json:"redirect_to"`
	RedirectAfterMS int64           `json:"redirect_after_ms"`
}

// currentSessionResponse は現在のログイン状態のAPIレスポンス。
type currentSessionResponse struct {
	LoggedIn bool             `json:"logged_in"`
	Session  *sessionResponse `json:"session"`
}

// Signup はアカウントを作成してログイン状態にする。
// POST /api/auth/signup
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	scope, ok := visitorScope(w, r)
	if !ok {
		return
	}

	var req signupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeServiceError(w, model.NewInvalidRequestError("body must be a JSON object"))
		return
	}

	result, err := h.service.Signup(r.Context(), scope, req.Name, req.Email, req.Password)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toAuthResultResponse(result))
}

// Login は既存アカウントでログインする。
// POST /api/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	scope, ok := visitorScope(w, r)
	if !ok {
		return
	}

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeServiceError(w, model.NewInvalidRequestError("body must be a JSON object"))
		return
	}

	result, err := h.service.Login(r.Context(), scope, req.Email, req.Password)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAuthResultResponse(result))
}

// Logout はセッションを破棄する。未ログインでも成功扱い。
// POST /api/auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	scope, ok := visitorScope(w, r)
	if !ok {
		return
	}
	h.service.Logout(r.Context(), scope)
	w.WriteHeader(http.StatusNoContent)
}

// Session は現在のログイン状態を返す。
// GET /api/auth/session
func (h *AuthHandler) Session(w http.ResponseWriter, r *http.Request) {
	scope, ok := visitorScope(w, r)
	if !ok {
		return
	}

	resp := currentSessionResponse{}
	if session := h.service.Current(r.Context(), scope); session != nil {
		resp.LoggedIn = true
		resp.Session = &sessionResponse{Email: session.Email, Name: session.Name}
	}
	writeJSON(w, http.StatusOK, resp)
}

func toAuthResultResponse(result *auth.Result) authResultResponse {
	return authResultResponse{
		Session:         sessionResponse{Email: result.Session.Email, Name: result.Session.Name},
		Message:         result.Message,
		RedirectTo:      result.RedirectTo,
		RedirectAfterMS: result.RedirectAfter.Milliseconds(),
	}
}
