package handler

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/hitoshi/storefront/internal/auth"
	"github.com/hitoshi/storefront/internal/cart"
	"github.com/hitoshi/storefront/internal/middleware"
	"github.com/hitoshi/storefront/internal/model"
	"github.com/hitoshi/storefront/internal/view"
)

// CartServiceInterface はカートハンドラーが必要とするサービスインターフェース。
type CartServiceInterface interface {
	Summary(ctx context.Context, scope string) cart.Summary
	AddToCart(ctx context.Context, scope string, item model.CartLineItem) []model.CartLineItem
	RemoveFromCart(ctx context.Context, scope, id string) []model.CartLineItem
	ChangeQty(ctx context.Context, scope, id string, delta float64) ([]model.CartLineItem, bool)
}

// AuthServiceInterface は認証ハンドラーが必要とするサービスインターフェース。
type AuthServiceInterface interface {
	Signup(ctx context.Context, scope, name, email, password string) (*auth.Result, error)
	Login(ctx context.Context, scope, email, password string) (*auth.Result, error)
	Logout(ctx context.Context, scope string)
	Current(ctx context.Context, scope string) *model.Session
}

// PageRenderer はHTMLページの描画インターフェース。
type PageRenderer interface {
	Render(w io.Writer, page string, data *view.PageData) error
}

// PageHandler はHTMLページとフォーム送信のハンドラー。
// 状態変更はPOST→303リダイレクト（PRG）で行い、表示は常に最新の状態から描画する。
type PageHandler struct {
	cart     CartServiceInterface
	auth     AuthServiceInterface
	products ProductCatalog
	renderer PageRenderer
}

// NewPageHandler はPageHandlerを生成する。
func NewPageHandler(cartService CartServiceInterface, authService AuthServiceInterface, products ProductCatalog, renderer PageRenderer) *PageHandler {
	return &PageHandler{
		cart:     cartService,
		auth:     authService,
		products: products,
		renderer: renderer,
	}
}

// Index はトップページを表示する。?cart=open でカートサイドバーを開く。
// GET /
func (h *PageHandler) Index(w http.ResponseWriter, r *http.Request) {
	data, ok := h.pageData(w, r, "Home")
	if !ok {
		return
	}
	data.Products = h.products.All()
	data.CartOpen = r.URL.Query().Get("cart") == "open"
	h.render(w, http.StatusOK, view.PageIndex, data)
}

// Products は商品一覧を表示する。
// GET /products
func (h *PageHandler) Products(w http.ResponseWriter, r *http.Request) {
	data, ok := h.pageData(w, r, "Products")
	if !ok {
		return
	}
	data.Products = h.products.All()
	h.render(w, http.StatusOK, view.PageProducts, data)
}

// Product は商品詳細を表示する。
// GET /products/{id}
func (h *PageHandler) Product(w http.ResponseWriter, r *http.Request) {
	id := lineIDParam(r)
	product, found := h.products.Get(id)
	if !found {
		h.NotFound(w, r)
		return
	}

	data, ok := h.pageData(w, r, product.Title)
	if !ok {
		return
	}
	data.Product = &product
	h.render(w, http.StatusOK, view.PageProduct, data)
}

// Cart はカートページを表示する。
// GET /cart
func (h *PageHandler) Cart(w http.ResponseWriter, r *http.Request) {
	data, ok := h.pageData(w, r, "Your Cart")
	if !ok {
		return
	}
	h.render(w, http.StatusOK, view.PageCart, data)
}

// Checkout は注文内容の確認ページを表示する。
// GET /checkout
func (h *PageHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	data, ok := h.pageData(w, r, "Checkout")
	if !ok {
		return
	}
	h.render(w, http.StatusOK, view.PageCheckout, data)
}

// NotFound は404ページを表示する。
func (h *PageHandler) NotFound(w http.ResponseWriter, r *http.Request) {
	data, ok := h.pageData(w, r, "Not Found")
	if !ok {
		return
	}
	h.render(w, http.StatusNotFound, view.PageNotFound, data)
}

// AddToCart はフォームの商品をカートに追加して戻り先へリダイレクトする。
// POST /cart/add
func (h *PageHandler) AddToCart(w http.ResponseWriter, r *http.Request) {
	scope, ok := visitorScope(w, r)
	if !ok {
		return
	}
	submitted := model.CartLineItem{
		ID:     r.PostFormValue("id"),
		Title:  r.PostFormValue("title"),
		ImgSrc: r.PostFormValue("imgSrc"),
		Price:  model.ParseNumber(r.PostFormValue("price")),
	}
	h.cart.AddToCart(r.Context(), scope, resolveLineItem(h.products, submitted))
	http.Redirect(w, r, localRedirect(r.PostFormValue("return_to"), "/cart"), http.StatusSeeOther)
}

// IncrementLine はカート行の数量を1増やす。
// POST /cart/items/{id}/inc
func (h *PageHandler) IncrementLine(w http.ResponseWriter, r *http.Request) {
	h.changeLine(w, r, 1)
}

// DecrementLine はカート行の数量を1減らす。0以下になった行は削除される。
// POST /cart/items/{id}/dec
func (h *PageHandler) DecrementLine(w http.ResponseWriter, r *http.Request) {
	h.changeLine(w, r, -1)
}

// RemoveLine はカート行を削除する。
// POST /cart/items/{id}/remove
func (h *PageHandler) RemoveLine(w http.ResponseWriter, r *http.Request) {
	scope, ok := visitorScope(w, r)
	if !ok {
		return
	}
	h.cart.RemoveFromCart(r.Context(), scope, lineIDParam(r))
	http.Redirect(w, r, localRedirect(r.PostFormValue("return_to"), "/cart"), http.StatusSeeOther)
}

func (h *PageHandler) changeLine(w http.ResponseWriter, r *http.Request, delta float64) {
	scope, ok := visitorScope(w, r)
	if !ok {
		return
	}
	id := lineIDParam(r)
	// 存在しない行は何もしない（別タブで削除済みの場合など）
	if _, found := h.cart.ChangeQty(r.Context(), scope, id, delta); !found {
		slog.Debug("cart line not found", slog.String("item_id", id))
	}
	http.Redirect(w, r, localRedirect(r.PostFormValue("return_to"), "/cart"), http.StatusSeeOther)
}

// LoginPage はログインフォームを表示する。
// GET /login
func (h *PageHandler) LoginPage(w http.ResponseWriter, r *http.Request) {
	data, ok := h.pageData(w, r, "Login")
	if !ok {
		return
	}
	h.render(w, http.StatusOK, view.PageLogin, data)
}

// SignupPage はサインアップフォームを表示する。
// GET /signup
func (h *PageHandler) SignupPage(w http.ResponseWriter, r *http.Request) {
	data, ok := h.pageData(w, r, "Sign up")
	if !ok {
		return
	}
	h.render(w, http.StatusOK, view.PageSignup, data)
}

// Login はログインフォームを処理する。
// 成功時はメッセージを表示し、Refreshヘッダーで一定時間後にトップへ遷移させる。
// POST /login
func (h *PageHandler) Login(w http.ResponseWriter, r *http.Request) {
	scope, ok := visitorScope(w, r)
	if !ok {
		return
	}
	email := r.PostFormValue("email")
	result, err := h.auth.Login(r.Context(), scope, email, r.PostFormValue("password"))
	h.authResponse(w, r, view.PageLogin, "Login", result, err, map[string]string{"email": email})
}

// Signup はサインアップフォームを処理する。
// POST /signup
func (h *PageHandler) Signup(w http.ResponseWriter, r *http.Request) {
	scope, ok := visitorScope(w, r)
	if !ok {
		return
	}
	name := r.PostFormValue("name")
	email := r.PostFormValue("email")
	result, err := h.auth.Signup(r.Context(), scope, name, email, r.PostFormValue("password"))
	h.authResponse(w, r, view.PageSignup, "Sign up", result, err, map[string]string{"name": name, "email": email})
}

// Logout はセッションを破棄してトップへリダイレクトする。
// POST /logout
func (h *PageHandler) Logout(w http.ResponseWriter, r *http.Request) {
	scope, ok := visitorScope(w, r)
	if !ok {
		return
	}
	h.auth.Logout(r.Context(), scope)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *PageHandler) authResponse(w http.ResponseWriter, r *http.Request, page, title string, result *auth.Result, err error, form map[string]string) {
	status := http.StatusOK
	var feedback *view.Feedback

	if err != nil {
		var apiErr *model.APIError
		if !errors.As(err, &apiErr) {
			slog.Error("auth form failed", slog.String("page", page), slog.String("error", err.Error()))
			http.Error(w, "internal server error", http.StatusInternalServerError)
			return
		}
		status = middleware.StatusForError(apiErr)
		feedback = &view.Feedback{Kind: view.FeedbackError, Message: apiErr.Message}
	} else {
		feedback = &view.Feedback{Kind: view.FeedbackSuccess, Message: result.Message}
		w.Header().Set("Refresh", view.RefreshHeader(result.RedirectAfter, result.RedirectTo))
	}

	// 成功時のナビゲーションに新しいセッションを反映するため、状態変更後に組み立てる
	data, ok := h.pageData(w, r, title)
	if !ok {
		return
	}
	data.Feedback = feedback
	data.Form = form
	h.render(w, status, page, data)
}

// pageData は全ページ共通のナビゲーションとCSRFトークンを組み立てる。
func (h *PageHandler) pageData(w http.ResponseWriter, r *http.Request, title string) (*view.PageData, bool) {
	scope, ok := visitorScope(w, r)
	if !ok {
		return nil, false
	}
	summary := h.cart.Summary(r.Context(), scope)
	return &view.PageData{
		Title: title,
		Nav: view.Nav{
			Active:    view.ActiveNav(r.URL.Path),
			CartCount: summary.Count,
			Session:   h.auth.Current(r.Context(), scope),
		},
		CSRFToken: middleware.CSRFTokenFromContext(r.Context()),
		ReturnTo:  r.URL.RequestURI(),
		Cart:      summary,
	}, true
}

// render はバッファに描画してから書き込む。
func (h *PageHandler) render(w http.ResponseWriter, status int, page string, data *view.PageData) {
	var buf bytes.Buffer
	if err := h.renderer.Render(&buf, page, data); err != nil {
		slog.Error("failed to render page", slog.String("page", page), slog.String("error", err.Error()))
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}
