package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/go-cmp/cmp"

	"github.com/hitoshi/storefront/internal/cart"
	"github.com/hitoshi/storefront/internal/catalog"
	"github.com/hitoshi/storefront/internal/currency"
	"github.com/hitoshi/storefront/internal/model"
)

func newTestCartHandler(svc *mockCartService) *CartHandler {
	return NewCartHandler(svc, catalog.New([]model.Product{aviator}), currency.NewFormatter(currency.DefaultLocale))
}

func decodeCart(t *testing.T, w *httptest.ResponseRecorder) cartResponse {
	t.Helper()
	var resp cartResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode cart response: %v", err)
	}
	return resp
}

func TestCartHandler_GetCart(t *testing.T) {
	svc := &mockCartService{
		summaryFn: func(ctx context.Context, scope string) cart.Summary {
			if scope != "v1" {
				t.Errorf("scope = %q, want v1", scope)
			}
			return cart.Summarize([]model.CartLineItem{{ID: "sku1", Title: "Aviator", Qty: 2, Price: 1500}})
		},
	}
	h := newTestCartHandler(svc)

	w := httptest.NewRecorder()
	h.GetCart(w, withVisitor(httptest.NewRequest(http.MethodGet, "/api/cart", nil), "v1"))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	resp := decodeCart(t, w)
	if resp.Count != 2 || resp.Subtotal != 3000 || resp.SubtotalDisplay != "₹3,000" {
		t.Errorf("resp = %+v", resp)
	}
}

func TestCartHandler_GetCart_EmptyItemsIsArray(t *testing.T) {
	h := newTestCartHandler(&mockCartService{})

	w := httptest.NewRecorder()
	h.GetCart(w, withVisitor(httptest.NewRequest(http.MethodGet, "/api/cart", nil), "v1"))

	if !strings.Contains(w.Body.String(), `"items":[]`) {
		t.Errorf("body = %s, want items as empty array", w.Body.String())
	}
}

func TestCartHandler_AddItem(t *testing.T) {
	tests := []struct {
		name string
		body string
		want model.CartLineItem
	}{
		{
			name: "catalog product uses catalog values",
			body: `{"id":"sku1","title":"Fake","price":1}`,
			want: model.CartLineItem{ID: "sku1", Title: "Aviator", ImgSrc: "a.png", Price: 500},
		},
		{
			name: "unknown product uses submitted values",
			body: `{"id":101,"title":"Round","price":"250","imgSrc":"r.png","qty":9}`,
			want: model.CartLineItem{ID: "101", Title: "Round", ImgSrc: "r.png", Price: 250},
		},
		{
			name: "missing fields fall back to defaults",
			body: `{}`,
			want: model.CartLineItem{ID: catalog.DefaultProductID, Title: catalog.DefaultProductTitle},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got model.CartLineItem
			svc := &mockCartService{
				addFn: func(ctx context.Context, scope string, item model.CartLineItem) []model.CartLineItem {
					got = item
					item.Qty = 1
					return []model.CartLineItem{item}
				},
			}
			h := newTestCartHandler(svc)

			w := httptest.NewRecorder()
			h.AddItem(w, withVisitor(httptest.NewRequest(http.MethodPost, "/api/cart/items", strings.NewReader(tt.body)), "v1"))

			if w.Code != http.StatusOK {
				t.Fatalf("status = %d, want 200", w.Code)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("item mismatch (-want +got):\n%s", diff)
			}
			if resp := decodeCart(t, w); resp.Count != 1 {
				t.Errorf("count = %d, want 1", resp.Count)
			}
		})
	}
}

func TestCartHandler_AddItem_InvalidBody(t *testing.T) {
	called := false
	svc := &mockCartService{
		addFn: func(ctx context.Context, scope string, item model.CartLineItem) []model.CartLineItem {
			called = true
			return nil
		},
	}
	h := newTestCartHandler(svc)

	for _, body := range []string{`not json`, `[1,2]`, `"sku1"`} {
		w := httptest.NewRecorder()
		h.AddItem(w, withVisitor(httptest.NewRequest(http.MethodPost, "/api/cart/items", strings.NewReader(body)), "v1"))
		if w.Code != http.StatusBadRequest {
			t.Errorf("body %s: status = %d, want 400", body, w.Code)
		}
	}
	if called {
		t.Error("service must not be called for invalid bodies")
	}
}

func TestCartHandler_ChangeQty(t *testing.T) {
	var gotDelta float64
	svc := &mockCartService{
		changeQtyFn: func(ctx context.Context, scope, id string, delta float64) ([]model.CartLineItem, bool) {
			gotDelta = delta
			return []model.CartLineItem{{ID: id, Qty: 3, Price: 100}}, true
		},
	}
	h := newTestCartHandler(svc)

	req := httptest.NewRequest(http.MethodPatch, "/api/cart/items/sku1", strings.NewReader(`{"delta":"2"}`))
	req = withChiURLParam(withVisitor(req, "v1"), "id", "sku1")
	w := httptest.NewRecorder()
	h.ChangeQty(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if gotDelta != 2 {
		t.Errorf("delta = %v, want 2", gotDelta)
	}
	if resp := decodeCart(t, w); resp.Count != 3 || resp.Subtotal != 300 {
		t.Errorf("resp = %+v", resp)
	}
}

func TestCartHandler_ChangeQty_MissingLine_Returns404(t *testing.T) {
	h := newTestCartHandler(&mockCartService{})

	req := httptest.NewRequest(http.MethodPatch, "/api/cart/items/ghost", strings.NewReader(`{"delta":1}`))
	req = withChiURLParam(withVisitor(req, "v1"), "id", "ghost")
	w := httptest.NewRecorder()
	h.ChangeQty(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
	var body map[string]string
	_ = json.NewDecoder(w.Body).Decode(&body)
	if body["code"] != model.ErrCodeCartLineNotFound {
		t.Errorf("code = %q, want %s", body["code"], model.ErrCodeCartLineNotFound)
	}
}

func TestCartHandler_ChangeQty_MissingDelta_Returns400(t *testing.T) {
	h := newTestCartHandler(&mockCartService{})

	req := httptest.NewRequest(http.MethodPatch, "/api/cart/items/sku1", strings.NewReader(`{}`))
	req = withChiURLParam(withVisitor(req, "v1"), "id", "sku1")
	w := httptest.NewRecorder()
	h.ChangeQty(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestCartHandler_RemoveItem_DecodesIDOnce(t *testing.T) {
	tests := []struct {
		name   string
		target string
		wantID string
	}{
		{name: "plain", target: "/api/cart/items/sku1", wantID: "sku1"},
		{name: "space", target: "/api/cart/items/a%20b", wantID: "a b"},
		{name: "literal percent", target: "/api/cart/items/a%2541", wantID: "a%41"},
		{name: "escaped slash", target: "/api/cart/items/a%2Fb", wantID: "a/b"},
		{name: "url id", target: "/api/cart/items/https:%2F%2Fshop.example%2Fp%2F1", wantID: "https://shop.example/p/1"},
		{name: "percent and slash", target: "/api/cart/items/50%25%2Foff", wantID: "50%/off"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotID string
			svc := &mockCartService{
				removeFn: func(ctx context.Context, scope, id string) []model.CartLineItem {
					gotID = id
					return nil
				},
			}
			r := chi.NewRouter()
			r.Delete("/api/cart/items/{id}", newTestCartHandler(svc).RemoveItem)

			w := httptest.NewRecorder()
			r.ServeHTTP(w, withVisitor(httptest.NewRequest(http.MethodDelete, tt.target, nil), "v1"))

			if w.Code != http.StatusOK {
				t.Fatalf("status = %d, want 200", w.Code)
			}
			if gotID != tt.wantID {
				t.Errorf("id = %q, want %q", gotID, tt.wantID)
			}
		})
	}
}

func TestCartHandler_NoVisitor_Returns500(t *testing.T) {
	h := newTestCartHandler(&mockCartService{})

	w := httptest.NewRecorder()
	h.GetCart(w, httptest.NewRequest(http.MethodGet, "/api/cart", nil))

	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", w.Code)
	}
}
