package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/storefront/internal/auth"
	"github.com/hitoshi/storefront/internal/cart"
	"github.com/hitoshi/storefront/internal/currency"
	"github.com/hitoshi/storefront/internal/middleware"
	"github.com/hitoshi/storefront/internal/model"
	"github.com/hitoshi/storefront/internal/view"
)

// --- モック定義 ---

// mockCartService はCartServiceInterfaceのモック実装。
type mockCartService struct {
	summaryFn   func(ctx context.Context, scope string) cart.Summary
	addFn       func(ctx context.Context, scope string, item model.CartLineItem) []model.CartLineItem
	removeFn    func(ctx context.Context, scope, id string) []model.CartLineItem
	changeQtyFn func(ctx context.Context, scope, id string, delta float64) ([]model.CartLineItem, bool)
}

func (m *mockCartService) Summary(ctx context.Context, scope string) cart.Summary {
	if m.summaryFn != nil {
		return m.summaryFn(ctx, scope)
	}
	return cart.Summary{}
}

func (m *mockCartService) AddToCart(ctx context.Context, scope string, item model.CartLineItem) []model.CartLineItem {
	if m.addFn != nil {
		return m.addFn(ctx, scope, item)
	}
	return nil
}

func (m *mockCartService) RemoveFromCart(ctx context.Context, scope, id string) []model.CartLineItem {
	if m.removeFn != nil {
		return m.removeFn(ctx, scope, id)
	}
	return nil
}

func (m *mockCartService) ChangeQty(ctx context.Context, scope, id string, delta float64) ([]model.CartLineItem, bool) {
	if m.changeQtyFn != nil {
		return m.changeQtyFn(ctx, scope, id, delta)
	}
	return nil, false
}

// mockAuthService はAuthServiceInterfaceのモック実装。
type mockAuthService struct {
	signupFn  func(ctx context.Context, scope, name, email, password string) (*auth.Result, error)
	loginFn   func(ctx context.Context, scope, email, password string) (*auth.Result, error)
	logoutFn  func(ctx context.Context, scope string)
	currentFn func(ctx context.Context, scope string) *model.Session
}

func (m *mockAuthService) Signup(ctx context.Context, scope, name, email, password string) (*auth.Result, error) {
	if m.signupFn != nil {
		return m.signupFn(ctx, scope, name, email, password)
	}
	return nil, nil
}

func (m *mockAuthService) Login(ctx context.Context, scope, email, password string) (*auth.Result, error) {
	if m.loginFn != nil {
		return m.loginFn(ctx, scope, email, password)
	}
	return nil, nil
}

func (m *mockAuthService) Logout(ctx context.Context, scope string) {
	if m.logoutFn != nil {
		m.logoutFn(ctx, scope)
	}
}

func (m *mockAuthService) Current(ctx context.Context, scope string) *model.Session {
	if m.currentFn != nil {
		return m.currentFn(ctx, scope)
	}
	return nil
}

// mockPinger はrepository.Pingerのモック実装。
type mockPinger struct {
	err error
}

func (m *mockPinger) PingContext(ctx context.Context) error {
	return m.err
}

// --- テストヘルパー ---

// withVisitor はテスト用にリクエストコンテキストに訪問者IDを注入するヘルパー。
func withVisitor(r *http.Request, visitorID string) *http.Request {
	return r.WithContext(middleware.ContextWithVisitorID(r.Context(), visitorID))
}

// withChiURLParam はテスト用にchiのURLパラメータを注入するヘルパー。
func withChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	ctx := context.WithValue(r.Context(), chi.RouteCtxKey, rctx)
	return r.WithContext(ctx)
}

func newTestRenderer(t *testing.T) *view.Renderer {
	t.Helper()
	r, err := view.NewRenderer(currency.NewFormatter(currency.DefaultLocale))
	if err != nil {
		t.Fatalf("NewRenderer() error = %v", err)
	}
	return r
}

var aviator = model.Product{ID: "sku1", Title: "Aviator", Price: 500, ImgSrc: "a.png"}
